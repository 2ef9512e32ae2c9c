package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func pngInput(key string) AttachmentInput {
	return AttachmentInput{
		FileName:    "screenshot.png",
		StorageKey:  key,
		ContentType: "image/png",
		SizeBytes:   2048,
	}
}

func TestAddAttachmentsWithinCap(t *testing.T) {
	attachments := &mockAttachmentRepo{
		CountByTicketFunc: func(_ context.Context, _ string) (int, error) { return 4, nil },
	}
	audit := &mockAuditRepo{}
	stores := testStores(ownTicketRepo(), nil, attachments, audit, nil, nil)
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

	added, err := svc.Add(context.Background(), testRequester, "t1", []AttachmentInput{
		pngInput(testRequester.ID + "/a"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, domain.AuditAttachmentAdd, audit.entries[0].Action)
	assert.Equal(t, map[string]any{"count": float64(1)}, audit.entries[0].Changes)
}

func TestAddAttachmentsOverCap(t *testing.T) {
	attachments := &mockAttachmentRepo{
		CountByTicketFunc: func(_ context.Context, _ string) (int, error) { return 4, nil },
	}
	stores := testStores(ownTicketRepo(), nil, attachments, nil, nil, nil)
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

	_, err := svc.Add(context.Background(), testRequester, "t1", []AttachmentInput{
		pngInput(testRequester.ID + "/a"),
		pngInput(testRequester.ID + "/b"),
	})
	require.Error(t, err)
	assert.Equal(t, "TOO_MANY_ATTACHMENTS", apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "already has 4 attachments")
	assert.Contains(t, err.Error(), "adding 2 more")
	assert.Contains(t, err.Error(), "limit of 5")
}

func TestAddAttachmentsRejectsForeignKey(t *testing.T) {
	stores := testStores(ownTicketRepo(), nil, nil, nil, nil, nil)
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

	_, err := svc.Add(context.Background(), testRequester, "t1", []AttachmentInput{
		pngInput("user-2/stolen"),
	})
	assert.Equal(t, "INVALID_KEY", apperrors.CodeOf(err))
}

func TestAddAttachmentsRejectsDisallowedContentType(t *testing.T) {
	stores := testStores(ownTicketRepo(), nil, nil, nil, nil, nil)
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

	input := pngInput(testRequester.ID + "/a")
	input.ContentType = "application/x-msdownload"
	_, err := svc.Add(context.Background(), testRequester, "t1", []AttachmentInput{input})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestAddAttachmentsSkipsDuplicateKeys(t *testing.T) {
	attachments := &mockAttachmentRepo{
		CreateManyFunc: func(_ context.Context, batch []domain.Attachment) (int, error) {
			// One of the two keys already exists.
			return len(batch) - 1, nil
		},
	}
	audit := &mockAuditRepo{}
	stores := testStores(ownTicketRepo(), nil, attachments, audit, nil, nil)
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

	added, err := svc.Add(context.Background(), testRequester, "t1", []AttachmentInput{
		pngInput(testRequester.ID + "/a"),
		pngInput(testRequester.ID + "/a"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, map[string]any{"count": float64(1)}, audit.entries[0].Changes)
}

func attachmentFixtureStores() (*mockAttachmentRepo, *mockAuditRepo, *mockTicketRepo) {
	attachments := &mockAttachmentRepo{
		GetByIDFunc: func(_ context.Context, id string) (*domain.Attachment, error) {
			return &domain.Attachment{
				ID: id, TicketID: "t1", UploaderID: testRequester.ID,
				StorageKey: testRequester.ID + "/a", FileName: "a.png",
			}, nil
		},
	}
	tickets := &mockTicketRepo{
		GetByIDFunc: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, RequesterID: testRequester.ID}, nil
		},
	}
	return attachments, &mockAuditRepo{}, tickets
}

func TestRemoveAttachmentPermissions(t *testing.T) {
	cases := []struct {
		name     string
		actor    Actor
		wantCode string
	}{
		{"uploader may remove", testRequester, ""},
		{"admin may remove", testAdmin, ""},
		{"stranger may not", testOther, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attachments, audit, tickets := attachmentFixtureStores()
			stores := testStores(tickets, nil, attachments, audit, nil, nil)
			svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

			err := svc.Remove(context.Background(), tc.actor, "a1")
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, apperrors.CodeOf(err))
				assert.Empty(t, audit.entries)
				return
			}
			require.NoError(t, err)
			require.Len(t, audit.entries, 1)
			assert.Equal(t, domain.AuditAttachmentRemove, audit.entries[0].Action)
		})
	}
}

func TestRemoveAttachmentAllowsTicketOwner(t *testing.T) {
	attachments := &mockAttachmentRepo{
		GetByIDFunc: func(_ context.Context, id string) (*domain.Attachment, error) {
			return &domain.Attachment{ID: id, TicketID: "t1", UploaderID: testAdmin.ID}, nil
		},
	}
	tickets := &mockTicketRepo{
		GetByIDFunc: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, RequesterID: testRequester.ID}, nil
		},
	}
	stores := testStores(tickets, nil, attachments, nil, nil, nil)
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

	// Uploaded by an admin, but the ticket owner may still remove it.
	assert.NoError(t, svc.Remove(context.Background(), testRequester, "a1"))
}

func TestDownloadURL(t *testing.T) {
	attachments, _, tickets := attachmentFixtureStores()
	stores := testStores(tickets, nil, attachments, nil, nil, nil)
	signer := &fakeSigner{}
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, signer, testPolicy())

	url, err := svc.DownloadURL(context.Background(), testRequester, "a1")
	require.NoError(t, err)
	assert.Contains(t, url, testRequester.ID+"/a")
	require.Len(t, signer.getKeys, 1)

	_, err = svc.DownloadURL(context.Background(), testOther, "a1")
	assert.Equal(t, "FORBIDDEN", apperrors.CodeOf(err))
}

func TestDownloadURLWithoutStorage(t *testing.T) {
	attachments, _, tickets := attachmentFixtureStores()
	stores := testStores(tickets, nil, attachments, nil, nil, nil)
	svc := NewAttachmentService(stores, &fakeUOW{stores: stores}, nil, testPolicy())

	_, err := svc.DownloadURL(context.Background(), testRequester, "a1")
	assert.Equal(t, "STORAGE_UNAVAILABLE", apperrors.CodeOf(err))
}
