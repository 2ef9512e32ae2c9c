package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestPresignUploadMintsNamespacedKey(t *testing.T) {
	signer := &fakeSigner{}
	svc := NewUploadService(signer)

	result, err := svc.PresignUpload(context.Background(), testRequester, PresignUploadInput{
		FileName:    "Report.PDF",
		ContentType: "application/pdf",
		SizeBytes:   1024,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.StorageKey, testRequester.ID+"/"))
	assert.True(t, strings.HasSuffix(result.StorageKey, ".pdf"))
	assert.NotEmpty(t, result.UploadURL)
	require.Len(t, signer.putKeys, 1)
	assert.Equal(t, result.StorageKey, signer.putKeys[0])
}

func TestPresignUploadValidation(t *testing.T) {
	svc := NewUploadService(&fakeSigner{})

	_, err := svc.PresignUpload(context.Background(), testRequester, PresignUploadInput{
		FileName: "virus.exe", ContentType: "application/x-msdownload", SizeBytes: 10,
	})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = svc.PresignUpload(context.Background(), testRequester, PresignUploadInput{
		FileName: "a.png", ContentType: "image/png", SizeBytes: 0,
	})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = svc.PresignUpload(context.Background(), testRequester, PresignUploadInput{
		FileName: "", ContentType: "image/png", SizeBytes: 10,
	})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestPresignUploadWithoutStorage(t *testing.T) {
	svc := NewUploadService(nil)

	_, err := svc.PresignUpload(context.Background(), testRequester, PresignUploadInput{
		FileName: "a.png", ContentType: "image/png", SizeBytes: 10,
	})
	assert.Equal(t, "STORAGE_UNAVAILABLE", apperrors.CodeOf(err))
}

func TestSafeExtension(t *testing.T) {
	assert.Equal(t, ".png", safeExtension("photo.PNG"))
	assert.Equal(t, "", safeExtension("noext"))
	assert.Equal(t, "", safeExtension("weird.p@g"))
	assert.Equal(t, ".tar", safeExtension("archive.tar"))
}
