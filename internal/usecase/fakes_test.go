package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"signflow/internal/domain"
)

// memDocs is an in-memory DocumentRepository with the same conditional
// transition semantics as the postgres implementation.
type memDocs struct {
	mu   sync.Mutex
	docs map[string]*domain.Document

	failCreate bool
	failVoid   bool
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[string]*domain.Document)}
}

func (m *memDocs) Create(_ context.Context, doc domain.Document) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return domain.Document{}, errors.New("create failed")
	}
	stored := doc
	stored.CreatedAt = time.Now()
	m.docs[doc.ID] = &stored
	return stored, nil
}

func (m *memDocs) Get(_ context.Context, docID string) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return *doc, nil
}

func (m *memDocs) Delete(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[docID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, docID)
	return nil
}

func (m *memDocs) ReplaceFields(_ context.Context, docID string, fields []domain.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Fields = fields
	return nil
}

func (m *memDocs) MarkSent(_ context.Context, docID string, sentAt time.Time, grants []SigningGrant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if doc.Status != domain.StatusDraft {
		return false, nil
	}
	doc.Status = domain.StatusSent
	at := sentAt
	doc.SentAt = &at
	byRecipient := make(map[string]SigningGrant, len(grants))
	for _, g := range grants {
		byRecipient[g.RecipientID] = g
	}
	for i := range doc.Recipients {
		g, ok := byRecipient[doc.Recipients[i].ID]
		if !ok {
			continue
		}
		doc.Recipients[i].SigningToken = g.Token
		doc.Recipients[i].SigningURL = g.URL
		if doc.Recipients[i].Status == domain.RecipientPending {
			doc.Recipients[i].Status = domain.RecipientSent
		}
	}
	return true, nil
}

func (m *memDocs) Void(_ context.Context, docID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failVoid {
		return false, errors.New("void failed")
	}
	doc, ok := m.docs[docID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if doc.Status == domain.StatusCompleted || doc.Status == domain.StatusVoided {
		return false, nil
	}
	doc.Status = domain.StatusVoided
	stamp := at
	doc.VoidedAt = &stamp
	doc.VoidReason = reason
	return true, nil
}

func (m *memDocs) Expire(_ context.Context, docID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if doc.Status.Terminal() {
		return false, nil
	}
	doc.Status = domain.StatusExpired
	return true, nil
}

func (m *memDocs) MarkRecipientViewed(_ context.Context, docID, recipientID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range doc.Recipients {
		if doc.Recipients[i].ID == recipientID {
			doc.Recipients[i].Status = domain.RecipientViewed
		}
	}
	if doc.Status == domain.StatusSent {
		doc.Status = domain.StatusViewed
	}
	return nil
}

func (m *memDocs) ApplySignature(_ context.Context, docID string, recipient domain.Recipient, fields []domain.Field) (domain.DocumentStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return "", false, domain.ErrNotFound
	}
	if !doc.Status.InFlight() {
		return "", false, nil
	}
	for i := range doc.Recipients {
		if doc.Recipients[i].ID != recipient.ID {
			continue
		}
		if doc.Recipients[i].Status == domain.RecipientSigned ||
			doc.Recipients[i].Status == domain.RecipientDeclined {
			return "", false, nil
		}
		doc.Recipients[i] = recipient
	}
	doc.Fields = fields
	doc.Status = domain.DeriveStatus(doc.Recipients)
	if doc.Status == domain.StatusCompleted && recipient.SignedAt != nil {
		stamp := *recipient.SignedAt
		doc.CompletedAt = &stamp
	}
	return doc.Status, true, nil
}

func (m *memDocs) ApplyDecline(_ context.Context, docID, recipientID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !doc.Status.InFlight() {
		return false, nil
	}
	for i := range doc.Recipients {
		if doc.Recipients[i].ID != recipientID {
			continue
		}
		if doc.Recipients[i].Status == domain.RecipientSigned ||
			doc.Recipients[i].Status == domain.RecipientDeclined {
			return false, nil
		}
		doc.Recipients[i].Status = domain.RecipientDeclined
		doc.Recipients[i].DeclineReason = reason
	}
	doc.Status = domain.StatusDeclined
	stamp := at
	doc.DeclinedAt = &stamp
	return true, nil
}

func (m *memDocs) GetByToken(_ context.Context, token string) (domain.Document, domain.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		for _, r := range doc.Recipients {
			if r.SigningToken != "" && r.SigningToken == token {
				return *doc, r, nil
			}
		}
	}
	return domain.Document{}, domain.Recipient{}, domain.ErrNotFound
}

func (m *memDocs) GetByVerificationToken(_ context.Context, token string) (domain.Document, domain.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		for _, r := range doc.Recipients {
			if r.Checksum != nil && r.Checksum.VerificationToken == token {
				return *doc, r, nil
			}
		}
	}
	return domain.Document{}, domain.Recipient{}, domain.ErrNotFound
}

func (m *memDocs) ListCompleted(_ context.Context, offset, limit int) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var completed []domain.Document
	for _, doc := range m.docs {
		if doc.Status == domain.StatusCompleted {
			completed = append(completed, *doc)
		}
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i].ID < completed[j].ID })
	if offset >= len(completed) {
		return nil, nil
	}
	end := offset + limit
	if end > len(completed) {
		end = len(completed)
	}
	return completed[offset:end], nil
}

// WithTx snapshots the store and restores it when fn fails, mimicking a
// rollback.
func (m *memDocs) WithTx(ctx context.Context, fn func(tx DocumentRepository) error) error {
	m.mu.Lock()
	snapshot := make(map[string]*domain.Document, len(m.docs))
	for id, doc := range m.docs {
		copied := *doc
		copied.Recipients = append([]domain.Recipient(nil), doc.Recipients...)
		copied.Fields = append([]domain.Field(nil), doc.Fields...)
		snapshot[id] = &copied
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.docs = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAudit) Append(_ context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memAudit) ListByDocumentSince(_ context.Context, docID string, since time.Time) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if e.DocumentID == docID && e.CreatedAt.After(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) ListByTeamSince(_ context.Context, teamID string, since time.Time) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if e.TeamID == teamID && e.CreatedAt.After(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) events() []domain.AuditEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEventType, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Event)
	}
	return out
}

type memBlobs struct {
	data map[string][]byte
	err  error

	// onGet fires once before the next fetch, for interleaving a
	// concurrent mutation between a service's pre-read and its write.
	onGet func()
}

func (m *memBlobs) Get(_ context.Context, _, key string) ([]byte, error) {
	if hook := m.onGet; hook != nil {
		m.onGet = nil
		hook()
	}
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *memBlobs) Put(_ context.Context, _, key string, data []byte) (string, error) {
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = data
	return key, nil
}

type memEmail struct {
	mu     sync.Mutex
	sent   []string
	failTo map[string]bool
}

func (m *memEmail) Send(_ context.Context, to, _, _ string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return errors.New("delivery refused")
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *memEmail) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type memAnalytics struct {
	mu     sync.Mutex
	events []AnalyticsEvent
	err    error
}

func (m *memAnalytics) Record(_ context.Context, event AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

type staticAudience struct{ addrs []string }

func (a staticAudience) CompletionAudience(_ context.Context, _ domain.Document) []string {
	return a.addrs
}
