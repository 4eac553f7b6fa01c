package usecase

import (
	"context"
	"time"

	"signflow/internal/domain"
)

// SigningGrant is the token and URL minted for one recipient at send time.
type SigningGrant struct {
	RecipientID string
	Token       string
	URL         string
}

// DocumentRepository owns every multi-row document mutation. Conditional
// transitions are update-where-status-matches: the bool result reports
// whether this call won the transition, so a racing caller can re-read and
// surface the right guard error.
type DocumentRepository interface {
	Create(ctx context.Context, doc domain.Document) (domain.Document, error)
	Get(ctx context.Context, docID string) (domain.Document, error)
	Delete(ctx context.Context, docID string) error
	ReplaceFields(ctx context.Context, docID string, fields []domain.Field) error

	// MarkSent flips DRAFT to SENT, stamps sentAt, persists the signing
	// grants, and advances PENDING recipients to SENT, all in one
	// transaction.
	MarkSent(ctx context.Context, docID string, sentAt time.Time, grants []SigningGrant) (bool, error)

	// Void flips any voidable status to VOIDED with the reason.
	Void(ctx context.Context, docID, reason string, at time.Time) (bool, error)

	// Expire flips a non-terminal status to EXPIRED.
	Expire(ctx context.Context, docID string, at time.Time) (bool, error)

	// MarkRecipientViewed advances the recipient to VIEWED and, when the
	// document is still SENT, the document too.
	MarkRecipientViewed(ctx context.Context, docID, recipientID string, at time.Time) error

	// ApplySignature persists filled field values and the recipient's
	// SIGNED state with capture metadata and checksum, then derives the
	// document status from the recipient rows as re-read inside the same
	// transaction, stamping completedAt when every gating recipient has
	// signed. The bool reports whether the transition won: false when
	// the document already left the in-flight set or the recipient
	// already finished, with nothing written.
	ApplySignature(ctx context.Context, docID string, recipient domain.Recipient, fields []domain.Field) (domain.DocumentStatus, bool, error)

	// ApplyDecline persists the recipient's DECLINED state and terminates
	// the document, guarded the same way as ApplySignature.
	ApplyDecline(ctx context.Context, docID, recipientID, reason string, at time.Time) (bool, error)

	GetByToken(ctx context.Context, token string) (domain.Document, domain.Recipient, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.Document, domain.Recipient, error)

	// ListCompleted pages over completed documents for the public
	// certificate scan, oldest first.
	ListCompleted(ctx context.Context, offset, limit int) ([]domain.Document, error)

	// WithTx runs fn against a repository bound to one transaction,
	// rolling back when fn errors.
	WithTx(ctx context.Context, fn func(tx DocumentRepository) error) error
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	ListByDocumentSince(ctx context.Context, docID string, since time.Time) ([]domain.AuditEntry, error)
	ListByTeamSince(ctx context.Context, teamID string, since time.Time) ([]domain.AuditEntry, error)
}

// BlobStore is the key-addressed store holding document bytes and signed
// artifacts. The storage tag selects the backend.
type BlobStore interface {
	Get(ctx context.Context, storageTag, key string) ([]byte, error)
	Put(ctx context.Context, storageTag, key string, data []byte) (string, error)
}

// EmailSender delivers one templated message per call. Callers treat each
// send independently and collect failures.
type EmailSender interface {
	Send(ctx context.Context, to, subject, templateRef string, data map[string]any) error
}

type AnalyticsEvent struct {
	Name       string
	DocumentID string
	TeamID     string
	Properties map[string]any
	OccurredAt time.Time
}

// AnalyticsSink mirrors audit events best-effort. Failures are swallowed
// by callers, never propagated.
type AnalyticsSink interface {
	Record(ctx context.Context, event AnalyticsEvent) error
}

// AudienceResolver supplies notification audiences, keeping static admin
// lists out of the engine.
type AudienceResolver interface {
	CompletionAudience(ctx context.Context, doc domain.Document) []string
}

type Clock func() time.Time
