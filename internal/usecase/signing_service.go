package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signflow/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SigningService handles the token-addressed recipient surface: viewing,
// signing, and declining. Strict signing order is a policy flag, not an
// assumption.
type SigningService struct {
	Docs     DocumentRepository
	Audit    *AuditRecorder
	Blobs    BlobStore
	Email    EmailSender
	Audience AudienceResolver
	Clock    Clock
	Log      *zap.Logger

	// EnforceSigningOrder gates signing on every lower-order gating
	// recipient having signed first.
	EnforceSigningOrder bool
}

func NewSigningService(docs DocumentRepository, audit *AuditRecorder, blobs BlobStore, email EmailSender, audience AudienceResolver, enforceOrder bool, log *zap.Logger) *SigningService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SigningService{
		Docs:                docs,
		Audit:               audit,
		Blobs:               blobs,
		Email:               email,
		Audience:            audience,
		Clock:               time.Now,
		Log:                 log,
		EnforceSigningOrder: enforceOrder,
	}
}

// View resolves a signing token, advances the recipient (and a SENT
// document) to VIEWED, and returns the signing context.
func (s *SigningService) View(ctx context.Context, token string, action ActionContext) (domain.Document, domain.Recipient, error) {
	doc, recipient, err := s.Docs.GetByToken(ctx, token)
	if err != nil {
		return domain.Document{}, domain.Recipient{}, err
	}
	if !doc.Status.InFlight() {
		return domain.Document{}, domain.Recipient{}, domain.ErrIllegalTransition
	}

	if recipient.Status == domain.RecipientSent || recipient.Status == domain.RecipientPending {
		if err := s.Docs.MarkRecipientViewed(ctx, doc.ID, recipient.ID, s.now()); err != nil {
			return domain.Document{}, domain.Recipient{}, err
		}
		if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			RecipientID: recipient.ID,
			Event:       domain.AuditDocumentViewed,
			IPAddress:   action.IPAddress,
			UserAgent:   action.UserAgent,
			Referer:     action.Referer,
			SessionID:   action.SessionID,
		}); err != nil {
			return domain.Document{}, domain.Recipient{}, err
		}
	}
	return s.Docs.GetByToken(ctx, token)
}

type FieldValue struct {
	FieldID string
	Value   string
}

type SignInput struct {
	Token             string
	Values            []FieldValue
	SignatureImageKey string
	Action            ActionContext
}

// Sign fulfils the recipient's fields and advances them to SIGNED,
// minting the tamper-evident checksum at the same instant. The document
// bytes are fetched before the transaction; no collaborator I/O happens
// inside it.
func (s *SigningService) Sign(ctx context.Context, input SignInput) (domain.Document, domain.Recipient, error) {
	doc, recipient, err := s.Docs.GetByToken(ctx, input.Token)
	if err != nil {
		return domain.Document{}, domain.Recipient{}, err
	}
	if !doc.Status.InFlight() {
		return domain.Document{}, domain.Recipient{}, domain.ErrIllegalTransition
	}
	if recipient.Role == domain.RoleViewer {
		return domain.Document{}, domain.Recipient{}, domain.ErrViewerCannotSign
	}
	if recipient.Finished() {
		return domain.Document{}, domain.Recipient{}, domain.ErrRecipientFinished
	}
	if s.EnforceSigningOrder && domain.BlockedBySigningOrder(doc.Recipients, recipient) {
		return domain.Document{}, domain.Recipient{}, domain.ErrSigningOrderBlocks
	}

	now := s.now()
	fields, filledIDs, err := applyValues(doc.Fields, recipient.ID, input.Values, now)
	if err != nil {
		return domain.Document{}, domain.Recipient{}, err
	}
	if unfilled := domain.UnfilledRequired(fields, recipient.ID); len(unfilled) > 0 {
		return domain.Document{}, domain.Recipient{}, domain.ErrFieldsUnfilled
	}

	docBytes, err := s.Blobs.Get(ctx, doc.StorageTag, doc.FileKey)
	if err != nil {
		return domain.Document{}, domain.Recipient{}, fmt.Errorf("fetch document bytes: %w", err)
	}

	checksum := domain.ComputeChecksum(docBytes, recipient.ID, now, input.Action.IPAddress, uuid.NewString())
	signedAt := now
	recipient.Status = domain.RecipientSigned
	recipient.SignedAt = &signedAt
	recipient.CaptureIP = input.Action.IPAddress
	recipient.CaptureClient = input.Action.UserAgent
	recipient.SignatureImageKey = input.SignatureImageKey
	recipient.Checksum = &checksum

	status, won, err := s.Docs.ApplySignature(ctx, doc.ID, recipient, fields)
	if err != nil {
		return domain.Document{}, domain.Recipient{}, err
	}
	if !won {
		return domain.Document{}, domain.Recipient{}, s.lostTransition(ctx, doc.ID)
	}

	for _, fieldID := range filledIDs {
		if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			RecipientID: recipient.ID,
			Event:       domain.AuditFieldCompleted,
			IPAddress:   input.Action.IPAddress,
			UserAgent:   input.Action.UserAgent,
			SessionID:   input.Action.SessionID,
			Metadata:    map[string]any{"field_id": fieldID},
		}); err != nil {
			return domain.Document{}, domain.Recipient{}, err
		}
	}
	if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		RecipientID: recipient.ID,
		Event:       domain.AuditRecipientSigned,
		IPAddress:   input.Action.IPAddress,
		UserAgent:   input.Action.UserAgent,
		Referer:     input.Action.Referer,
		SessionID:   input.Action.SessionID,
		Metadata:    map[string]any{"verification_token": checksum.VerificationToken},
	}); err != nil {
		return domain.Document{}, domain.Recipient{}, err
	}

	if status == domain.StatusCompleted {
		if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Event:      domain.AuditDocumentCompleted,
			IPAddress:  input.Action.IPAddress,
			UserAgent:  input.Action.UserAgent,
			SessionID:  input.Action.SessionID,
		}); err != nil {
			return domain.Document{}, domain.Recipient{}, err
		}
		s.notifyCompleted(ctx, doc)
	}

	final, finalRecipient, err := s.Docs.GetByToken(ctx, input.Token)
	if err != nil {
		return domain.Document{}, domain.Recipient{}, err
	}
	return final, finalRecipient, nil
}

type DeclineInput struct {
	Token  string
	Reason string
	Action ActionContext
}

// Decline terminates the recipient and, with them, the document.
func (s *SigningService) Decline(ctx context.Context, input DeclineInput) (domain.Document, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return domain.Document{}, domain.ErrInvalidArgument
	}
	doc, recipient, err := s.Docs.GetByToken(ctx, input.Token)
	if err != nil {
		return domain.Document{}, err
	}
	if !doc.Status.InFlight() {
		return domain.Document{}, domain.ErrIllegalTransition
	}
	if recipient.Role == domain.RoleViewer {
		return domain.Document{}, domain.ErrViewerCannotSign
	}
	if recipient.Finished() {
		return domain.Document{}, domain.ErrRecipientFinished
	}

	won, err := s.Docs.ApplyDecline(ctx, doc.ID, recipient.ID, input.Reason, s.now())
	if err != nil {
		return domain.Document{}, err
	}
	if !won {
		return domain.Document{}, s.lostTransition(ctx, doc.ID)
	}
	if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		RecipientID: recipient.ID,
		Event:       domain.AuditRecipientDeclined,
		IPAddress:   input.Action.IPAddress,
		UserAgent:   input.Action.UserAgent,
		SessionID:   input.Action.SessionID,
		Metadata:    map[string]any{"reason": input.Reason},
	}); err != nil {
		return domain.Document{}, err
	}
	return s.Docs.Get(ctx, doc.ID)
}

// lostTransition re-reads after a conditional update matched nothing, so
// the caller learns what beat them: the document left the in-flight set,
// or this recipient's submission already landed.
func (s *SigningService) lostTransition(ctx context.Context, docID string) error {
	current, err := s.Docs.Get(ctx, docID)
	if err != nil {
		return err
	}
	if !current.Status.InFlight() {
		return domain.ErrIllegalTransition
	}
	return domain.ErrRecipientFinished
}

func applyValues(fields []domain.Field, recipientID string, values []FieldValue, at time.Time) ([]domain.Field, []string, error) {
	byID := make(map[string]int, len(fields))
	for i, f := range fields {
		byID[f.ID] = i
	}
	out := make([]domain.Field, len(fields))
	copy(out, fields)

	var filled []string
	for _, v := range values {
		i, ok := byID[v.FieldID]
		if !ok {
			return nil, nil, domain.ErrNotFound
		}
		if out[i].RecipientID != recipientID {
			return nil, nil, domain.ErrForbidden
		}
		if strings.TrimSpace(v.Value) == "" {
			continue
		}
		filledAt := at
		out[i].Value = v.Value
		out[i].FilledAt = &filledAt
		filled = append(filled, out[i].ID)
	}
	return out, filled, nil
}

// notifyCompleted emails the creator and the configured completion
// audience. Best-effort: failures are logged, never returned.
func (s *SigningService) notifyCompleted(ctx context.Context, doc domain.Document) {
	if s.Email == nil {
		return
	}
	audience := map[string]bool{}
	for _, r := range doc.Recipients {
		audience[r.Email] = true
	}
	if s.Audience != nil {
		for _, addr := range s.Audience.CompletionAudience(ctx, doc) {
			audience[addr] = true
		}
	}
	data := map[string]any{"document_title": doc.Title}
	for addr := range audience {
		if err := s.Email.Send(ctx, addr, "Completed: "+doc.Title, "document_completed", data); err != nil {
			s.Log.Warn("completion notice delivery failed",
				zap.String("document_id", doc.ID),
				zap.String("recipient", addr),
				zap.Error(err))
		}
	}
}

func (s *SigningService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
