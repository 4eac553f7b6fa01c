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

// DocumentService drives the document lifecycle. Every state mutation
// goes through the repository's conditional transitions; collaborator
// I/O (email, blob fetch) happens strictly outside those transactions.
type DocumentService struct {
	Docs     DocumentRepository
	Audit    *AuditRecorder
	Email    EmailSender
	Blobs    BlobStore
	Audience AudienceResolver
	Clock    Clock
	Log      *zap.Logger

	// SigningBaseURL prefixes minted signing URLs.
	SigningBaseURL string
}

func NewDocumentService(docs DocumentRepository, audit *AuditRecorder, email EmailSender, blobs BlobStore, audience AudienceResolver, signingBaseURL string, log *zap.Logger) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentService{
		Docs:           docs,
		Audit:          audit,
		Email:          email,
		Blobs:          blobs,
		Audience:       audience,
		Clock:          time.Now,
		Log:            log,
		SigningBaseURL: strings.TrimRight(signingBaseURL, "/"),
	}
}

type RecipientInput struct {
	Name         string
	Email        string
	Role         domain.RecipientRole
	SigningOrder int
}

type FieldInput struct {
	RecipientEmail string
	Type           domain.FieldType
	Page           int
	X, Y           float64
	Width, Height  float64
	Required       bool
}

type CreateDocumentInput struct {
	TeamID         string
	CreatedBy      string
	Title          string
	Description    string
	FileKey        string
	StorageTag     string
	PageCount      int
	ExpirationDate *time.Time
	Recipients     []RecipientInput
	Fields         []FieldInput
	Action         ActionContext
}

func (s *DocumentService) Create(ctx context.Context, input CreateDocumentInput) (domain.Document, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.FileKey) == "" {
		return domain.Document{}, domain.ErrInvalidArgument
	}
	if input.TeamID == "" || input.CreatedBy == "" {
		return domain.Document{}, domain.ErrInvalidArgument
	}

	doc := domain.Document{
		ID:             uuid.NewString(),
		TeamID:         input.TeamID,
		CreatedBy:      input.CreatedBy,
		Title:          input.Title,
		Description:    input.Description,
		FileKey:        input.FileKey,
		StorageTag:     input.StorageTag,
		PageCount:      input.PageCount,
		Status:         domain.StatusDraft,
		ExpirationDate: input.ExpirationDate,
	}

	byEmail := make(map[string]string, len(input.Recipients))
	for _, in := range input.Recipients {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if email == "" || in.Name == "" {
			return domain.Document{}, domain.ErrInvalidArgument
		}
		r := domain.Recipient{
			ID:           uuid.NewString(),
			DocumentID:   doc.ID,
			Name:         in.Name,
			Email:        email,
			Role:         in.Role,
			SigningOrder: in.SigningOrder,
			Status:       domain.RecipientPending,
		}
		if r.Role == "" {
			r.Role = domain.RoleSigner
		}
		doc.Recipients = append(doc.Recipients, r)
		byEmail[email] = r.ID
	}

	fields, err := buildFields(doc.ID, byEmail, input.Fields)
	if err != nil {
		return domain.Document{}, err
	}
	doc.Fields = fields

	created, err := s.Docs.Create(ctx, doc)
	if err != nil {
		return domain.Document{}, err
	}

	err = s.Audit.Record(ctx, created.TeamID, domain.AuditEntry{
		ID:         uuid.NewString(),
		DocumentID: created.ID,
		Event:      domain.AuditDocumentCreated,
		IPAddress:  input.Action.IPAddress,
		UserAgent:  input.Action.UserAgent,
		Referer:    input.Action.Referer,
		SessionID:  input.Action.SessionID,
		Metadata:   map[string]any{"title": created.Title, "recipients": len(created.Recipients)},
	})
	if err != nil {
		return domain.Document{}, err
	}
	return created, nil
}

func buildFields(docID string, recipientByEmail map[string]string, inputs []FieldInput) ([]domain.Field, error) {
	var out []domain.Field
	for _, in := range inputs {
		if !domain.ValidFieldType(in.Type) {
			return nil, domain.ErrInvalidArgument
		}
		f := domain.Field{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Type:       in.Type,
			Page:       in.Page,
			X:          in.X,
			Y:          in.Y,
			Width:      in.Width,
			Height:     in.Height,
			Required:   in.Required,
		}
		if email := strings.ToLower(strings.TrimSpace(in.RecipientEmail)); email != "" {
			id, ok := recipientByEmail[email]
			if !ok {
				return nil, fmt.Errorf("field recipient %q: %w", email, domain.ErrInvalidArgument)
			}
			f.RecipientID = id
		}
		out = append(out, f)
	}
	return out, nil
}

// Get scopes the read to the caller's team; an empty teamID is the
// admin wildcard. A foreign document reads as absent either way.
func (s *DocumentService) Get(ctx context.Context, teamID, docID string) (domain.Document, error) {
	doc, err := s.Docs.Get(ctx, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if teamID != "" && doc.TeamID != teamID {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

// ReplaceFields swaps the document's field set wholesale. Partial edits
// are not supported; a half-updated layout must never reach recipients.
func (s *DocumentService) ReplaceFields(ctx context.Context, teamID, docID string, inputs []FieldInput) (domain.Document, error) {
	doc, err := s.Get(ctx, teamID, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.Status != domain.StatusDraft {
		return domain.Document{}, domain.ErrNotDraft
	}
	byEmail := make(map[string]string, len(doc.Recipients))
	for _, r := range doc.Recipients {
		byEmail[r.Email] = r.ID
	}
	fields, err := buildFields(doc.ID, byEmail, inputs)
	if err != nil {
		return domain.Document{}, err
	}
	if err := s.Docs.ReplaceFields(ctx, doc.ID, fields); err != nil {
		return domain.Document{}, err
	}
	doc.Fields = fields
	return doc, nil
}

// DeliveryResult reports which recipient addresses a batched email
// operation reached, so callers can retry only the failed subset.
type DeliveryResult struct {
	Delivered []string
	Failed    []string
}

type SendDocumentInput struct {
	TeamID string
	DocID  string
	Action ActionContext
}

// Send transitions DRAFT to SENT: mints per-recipient signing tokens
// inside the same transaction as the status flip, then notifies every
// non-viewer recipient. One recipient's delivery failure never aborts the
// others.
func (s *DocumentService) Send(ctx context.Context, input SendDocumentInput) (domain.Document, DeliveryResult, error) {
	doc, err := s.Get(ctx, input.TeamID, input.DocID)
	if err != nil {
		return domain.Document{}, DeliveryResult{}, err
	}
	if err := domain.ValidateTransition(doc.Status, domain.StatusSent); err != nil {
		return domain.Document{}, DeliveryResult{}, err
	}
	if len(doc.Recipients) == 0 {
		return domain.Document{}, DeliveryResult{}, domain.ErrNoRecipients
	}

	now := s.now()
	grants := make([]SigningGrant, 0, len(doc.Recipients))
	for _, r := range doc.Recipients {
		token := uuid.NewString()
		grants = append(grants, SigningGrant{
			RecipientID: r.ID,
			Token:       token,
			URL:         s.SigningBaseURL + "/v1/sign/" + token,
		})
	}

	won, err := s.Docs.MarkSent(ctx, doc.ID, now, grants)
	if err != nil {
		return domain.Document{}, DeliveryResult{}, err
	}
	if !won {
		// Lost the race: re-read and report the guard for the status the
		// winner left behind.
		current, err := s.Docs.Get(ctx, doc.ID)
		if err != nil {
			return domain.Document{}, DeliveryResult{}, err
		}
		return domain.Document{}, DeliveryResult{}, domain.ValidateTransition(current.Status, domain.StatusSent)
	}

	if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Event:      domain.AuditDocumentSent,
		IPAddress:  input.Action.IPAddress,
		UserAgent:  input.Action.UserAgent,
		Referer:    input.Action.Referer,
		SessionID:  input.Action.SessionID,
		Metadata:   map[string]any{"recipients": len(doc.Recipients)},
	}); err != nil {
		return domain.Document{}, DeliveryResult{}, err
	}

	// Delivery happens after the transaction committed.
	grantByRecipient := make(map[string]SigningGrant, len(grants))
	for _, g := range grants {
		grantByRecipient[g.RecipientID] = g
	}
	var result DeliveryResult
	for _, r := range doc.Recipients {
		if r.Role == domain.RoleViewer {
			continue
		}
		g := grantByRecipient[r.ID]
		data := map[string]any{
			"recipient_name": r.Name,
			"document_title": doc.Title,
			"signing_url":    g.URL,
		}
		if err := s.Email.Send(ctx, r.Email, "Signature requested: "+doc.Title, "signature_request", data); err != nil {
			s.Log.Warn("signature request delivery failed",
				zap.String("document_id", doc.ID),
				zap.String("recipient", r.Email),
				zap.Error(err))
			result.Failed = append(result.Failed, r.Email)
			continue
		}
		result.Delivered = append(result.Delivered, r.Email)
	}

	sent, err := s.Docs.Get(ctx, doc.ID)
	if err != nil {
		return domain.Document{}, result, err
	}
	return sent, result, nil
}

type RemindInput struct {
	TeamID      string
	DocID       string
	RecipientID string
	Action      ActionContext
}

// Remind re-notifies recipients that still owe a signature. Targeting
// defaults to every gating recipient that has neither signed nor
// declined; a specific recipient id narrows the set.
func (s *DocumentService) Remind(ctx context.Context, input RemindInput) (DeliveryResult, error) {
	doc, err := s.Get(ctx, input.TeamID, input.DocID)
	if err != nil {
		return DeliveryResult{}, err
	}
	if err := domain.ReminderAllowed(doc.Status); err != nil {
		return DeliveryResult{}, err
	}
	targets := domain.ReminderTargets(doc.Recipients, input.RecipientID)
	if len(targets) == 0 {
		return DeliveryResult{}, domain.ErrNotFound
	}

	var result DeliveryResult
	for _, r := range targets {
		data := map[string]any{
			"recipient_name": r.Name,
			"document_title": doc.Title,
			"signing_url":    r.SigningURL,
		}
		if err := s.Email.Send(ctx, r.Email, "Reminder: "+doc.Title+" is waiting for you", "signature_reminder", data); err != nil {
			s.Log.Warn("reminder delivery failed",
				zap.String("document_id", doc.ID),
				zap.String("recipient", r.Email),
				zap.Error(err))
			result.Failed = append(result.Failed, r.Email)
			continue
		}
		result.Delivered = append(result.Delivered, r.Email)
	}

	if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Event:      domain.AuditReminderSent,
		IPAddress:  input.Action.IPAddress,
		UserAgent:  input.Action.UserAgent,
		SessionID:  input.Action.SessionID,
		Metadata:   map[string]any{"delivered": len(result.Delivered), "failed": len(result.Failed)},
	}); err != nil {
		return result, err
	}
	return result, nil
}

type VoidInput struct {
	TeamID string
	DocID  string
	Reason string
	Action ActionContext
}

func (s *DocumentService) Void(ctx context.Context, input VoidInput) (domain.Document, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return domain.Document{}, domain.ErrInvalidArgument
	}
	doc, err := s.Get(ctx, input.TeamID, input.DocID)
	if err != nil {
		return domain.Document{}, err
	}
	if err := domain.ValidateTransition(doc.Status, domain.StatusVoided); err != nil {
		return domain.Document{}, err
	}

	now := s.now()
	won, err := s.Docs.Void(ctx, doc.ID, input.Reason, now)
	if err != nil {
		return domain.Document{}, err
	}
	if !won {
		current, err := s.Docs.Get(ctx, doc.ID)
		if err != nil {
			return domain.Document{}, err
		}
		return domain.Document{}, domain.ValidateTransition(current.Status, domain.StatusVoided)
	}

	if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Event:      domain.AuditDocumentVoided,
		IPAddress:  input.Action.IPAddress,
		UserAgent:  input.Action.UserAgent,
		SessionID:  input.Action.SessionID,
		Metadata:   map[string]any{"reason": input.Reason},
	}); err != nil {
		return domain.Document{}, err
	}
	return s.Docs.Get(ctx, doc.ID)
}

// Delete hard-deletes a DRAFT. Anything that left DRAFT must be voided
// instead; its history is not erasable.
func (s *DocumentService) Delete(ctx context.Context, teamID, docID string) error {
	doc, err := s.Get(ctx, teamID, docID)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusDraft {
		return domain.ErrDeleteNonDraft
	}
	return s.Docs.Delete(ctx, doc.ID)
}

// Expire applies EXPIRED on behalf of the external time-based sweep. The
// engine only validates that the transition is legal right now.
func (s *DocumentService) Expire(ctx context.Context, teamID, docID string, action ActionContext) (domain.Document, error) {
	doc, err := s.Get(ctx, teamID, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if !doc.Expirable(s.now()) {
		if doc.Status.Terminal() {
			return domain.Document{}, domain.ErrIllegalTransition
		}
		return domain.Document{}, domain.ErrNotExpirable
	}
	won, err := s.Docs.Expire(ctx, doc.ID, s.now())
	if err != nil {
		return domain.Document{}, err
	}
	if !won {
		return domain.Document{}, domain.ErrIllegalTransition
	}
	if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Event:      domain.AuditDocumentExpired,
		IPAddress:  action.IPAddress,
		UserAgent:  action.UserAgent,
		SessionID:  action.SessionID,
	}); err != nil {
		return domain.Document{}, err
	}
	return s.Docs.Get(ctx, doc.ID)
}

// Download fetches the stored document bytes and records the access.
func (s *DocumentService) Download(ctx context.Context, teamID, docID string, action ActionContext) ([]byte, domain.Document, error) {
	doc, err := s.Get(ctx, teamID, docID)
	if err != nil {
		return nil, domain.Document{}, err
	}
	data, err := s.Blobs.Get(ctx, doc.StorageTag, doc.FileKey)
	if err != nil {
		return nil, domain.Document{}, fmt.Errorf("fetch document bytes: %w", err)
	}
	if err := s.Audit.Record(ctx, doc.TeamID, domain.AuditEntry{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Event:      domain.AuditDocumentDownloaded,
		IPAddress:  action.IPAddress,
		UserAgent:  action.UserAgent,
		SessionID:  action.SessionID,
	}); err != nil {
		return nil, domain.Document{}, err
	}
	return data, doc, nil
}

func (s *DocumentService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
