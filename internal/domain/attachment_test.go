package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedContentType(t *testing.T) {
	assert.True(t, AllowedContentType("image/png"))
	assert.True(t, AllowedContentType(" Application/PDF "))
	assert.False(t, AllowedContentType("application/x-msdownload"))
	assert.False(t, AllowedContentType(""))
}

func TestKeyOwnedBy(t *testing.T) {
	assert.True(t, KeyOwnedBy("user-1/photo.png", "user-1"))
	assert.False(t, KeyOwnedBy("user-10/photo.png", "user-1"))
	assert.False(t, KeyOwnedBy("photo.png", "user-1"))
	assert.False(t, KeyOwnedBy("user-1/photo.png", ""))
}
