package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Func-field mocks: a test sets only the calls it expects. Unset funcs
// return benign zero values so incidental calls (e.g. the post-commit
// requester email lookup) do not blow up unrelated tests.

type mockTicketRepo struct {
	CreateFunc             func(ctx context.Context, ticket *domain.Ticket) error
	UpdateFunc             func(ctx context.Context, ticket *domain.Ticket) error
	GetByIDFunc            func(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilterFunc     func(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
	ListResolvedBeforeFunc func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if m.CreateFunc == nil {
		ticket.ID = "ticket-1"
		return nil
	}
	return m.CreateFunc(ctx, ticket)
}

func (m *mockTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if m.UpdateFunc == nil {
		return nil
	}
	return m.UpdateFunc(ctx, ticket)
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if m.GetByIDFunc == nil {
		return nil, pgx.ErrNoRows
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *mockTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if m.ListWithFilterFunc == nil {
		return nil, nil
	}
	return m.ListWithFilterFunc(ctx, filter)
}

func (m *mockTicketRepo) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	if m.ListResolvedBeforeFunc == nil {
		return nil, nil
	}
	return m.ListResolvedBeforeFunc(ctx, cutoff, limit)
}

type mockCommentRepo struct {
	CreateFunc       func(ctx context.Context, comment *domain.Comment) error
	GetByIDFunc      func(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicketFunc func(ctx context.Context, ticketID string) ([]domain.Comment, error)
	SoftDeleteFunc   func(ctx context.Context, id string, deletedAt time.Time) error
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	if m.CreateFunc == nil {
		comment.ID = "comment-1"
		return nil
	}
	return m.CreateFunc(ctx, comment)
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	if m.GetByIDFunc == nil {
		return nil, pgx.ErrNoRows
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *mockCommentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if m.ListByTicketFunc == nil {
		return nil, nil
	}
	return m.ListByTicketFunc(ctx, ticketID)
}

func (m *mockCommentRepo) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	if m.SoftDeleteFunc == nil {
		return nil
	}
	return m.SoftDeleteFunc(ctx, id, deletedAt)
}

type mockAttachmentRepo struct {
	CreateManyFunc    func(ctx context.Context, attachments []domain.Attachment) (int, error)
	GetByIDFunc       func(ctx context.Context, id string) (*domain.Attachment, error)
	ListByTicketFunc  func(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	CountByTicketFunc func(ctx context.Context, ticketID string) (int, error)
	DeleteFunc        func(ctx context.Context, id string) error
}

func (m *mockAttachmentRepo) CreateMany(ctx context.Context, attachments []domain.Attachment) (int, error) {
	if m.CreateManyFunc == nil {
		return len(attachments), nil
	}
	return m.CreateManyFunc(ctx, attachments)
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	if m.GetByIDFunc == nil {
		return nil, pgx.ErrNoRows
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *mockAttachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	if m.ListByTicketFunc == nil {
		return nil, nil
	}
	return m.ListByTicketFunc(ctx, ticketID)
}

func (m *mockAttachmentRepo) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	if m.CountByTicketFunc == nil {
		return 0, nil
	}
	return m.CountByTicketFunc(ctx, ticketID)
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id)
}

type mockAuditRepo struct {
	entries          []domain.AuditLogEntry
	CreateFunc       func(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByTargetFunc func(ctx context.Context, targetType domain.AuditTargetType, targetID string, limit, offset int) ([]domain.AuditLogEntry, error)
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	entry.ID = "audit-1"
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditRepo) ListByTarget(ctx context.Context, targetType domain.AuditTargetType, targetID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if m.ListByTargetFunc != nil {
		return m.ListByTargetFunc(ctx, targetType, targetID, limit, offset)
	}
	return m.entries, nil
}

type mockDedupRepo struct {
	ClaimFunc func(ctx context.Context, ticketID, eventType string, bucket time.Time) (bool, error)
}

func (m *mockDedupRepo) Claim(ctx context.Context, ticketID, eventType string, bucket time.Time) (bool, error) {
	if m.ClaimFunc == nil {
		return true, nil
	}
	return m.ClaimFunc(ctx, ticketID, eventType, bucket)
}

// memoryDedup mimics the database unique constraint in memory.
type memoryDedup struct {
	seen map[string]struct{}
}

func newMemoryDedup() *memoryDedup {
	return &memoryDedup{seen: make(map[string]struct{})}
}

func (m *memoryDedup) Claim(ctx context.Context, ticketID, eventType string, bucket time.Time) (bool, error) {
	key := ticketID + "|" + eventType + "|" + bucket.Format(time.RFC3339)
	if _, dup := m.seen[key]; dup {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

type mockUserRepo struct {
	CreateFunc     func(ctx context.Context, user *domain.User) error
	GetByIDFunc    func(ctx context.Context, id string) (*domain.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc == nil {
		user.ID = "user-1"
		return nil
	}
	return m.CreateFunc(ctx, user)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc == nil {
		return nil, pgx.ErrNoRows
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFunc == nil {
		return nil, pgx.ErrNoRows
	}
	return m.GetByEmailFunc(ctx, email)
}

// fakeUOW hands the service's own stores to the transactional closure, so
// mutation and audit writes land in the same mocks the test inspects.
type fakeUOW struct {
	stores *repository.Stores
	err    error
}

func (f *fakeUOW) WithinTx(ctx context.Context, fn func(s *repository.Stores) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f.stores)
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

// recordingMailer captures outbound mail.
type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	sent    []sentMail
	sendErr error
}

func (m *recordingMailer) Send(to, subject, htmlBody string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// fakeSigner satisfies StorageSigner without hitting S3.
type fakeSigner struct {
	putKeys []string
	getKeys []string
}

func (s *fakeSigner) PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error) {
	s.putKeys = append(s.putKeys, key)
	return "https://bucket.example/" + key + "?sig=put", map[string]string{"Content-Type": contentType}, nil
}

func (s *fakeSigner) PresignGet(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	return "https://bucket.example/" + key + "?sig=get", nil
}

var (
	testRequester = Actor{Principal: domain.Principal{ID: "user-1", Role: domain.RoleUser, Email: "user@example.com", Name: "User One"}}
	testOther     = Actor{Principal: domain.Principal{ID: "user-2", Role: domain.RoleUser, Email: "other@example.com", Name: "User Two"}}
	testAdmin     = Actor{Principal: domain.Principal{ID: "admin-1", Role: domain.RoleAdmin, Email: "admin@example.com", Name: "Admin"}}
)

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		ReopenWindowDays:        14,
		MaxAttachmentsPerTicket: 5,
		AutoCloseAfterDays:      7,
	}
}

// testStores bundles the mocks into the Stores shape services expect.
func testStores(tickets *mockTicketRepo, comments *mockCommentRepo, attachments *mockAttachmentRepo, audit *mockAuditRepo, dedup *mockDedupRepo, users *mockUserRepo) *repository.Stores {
	if tickets == nil {
		tickets = &mockTicketRepo{}
	}
	if comments == nil {
		comments = &mockCommentRepo{}
	}
	if attachments == nil {
		attachments = &mockAttachmentRepo{}
	}
	if audit == nil {
		audit = &mockAuditRepo{}
	}
	if dedup == nil {
		dedup = &mockDedupRepo{}
	}
	if users == nil {
		users = &mockUserRepo{}
	}
	return &repository.Stores{
		Tickets:     tickets,
		Comments:    comments,
		Attachments: attachments,
		Audit:       audit,
		Dedup:       dedup,
		Users:       users,
	}
}
