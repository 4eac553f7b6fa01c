package usecase

import (
	"context"
	"time"

	"signflow/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CorrectionReason is the fixed void reason recorded on the predecessor.
const CorrectionReason = "corrected and resent"

// CorrectionService amends an in-flight document by voiding it and
// cloning it into a fresh draft inside one transaction. Recipients and
// fields are remapped by email identity, never by positional index.
type CorrectionService struct {
	Docs  DocumentRepository
	Audit *AuditRecorder
	Clock Clock
	Log   *zap.Logger
}

func NewCorrectionService(docs DocumentRepository, audit *AuditRecorder, log *zap.Logger) *CorrectionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CorrectionService{Docs: docs, Audit: audit, Clock: time.Now, Log: log}
}

type CorrectInput struct {
	TeamID string
	DocID  string
	Action ActionContext
}

func (s *CorrectionService) Correct(ctx context.Context, input CorrectInput) (domain.Document, error) {
	var successor domain.Document

	err := s.Docs.WithTx(ctx, func(tx DocumentRepository) error {
		doc, err := tx.Get(ctx, input.DocID)
		if err != nil {
			return err
		}
		if input.TeamID != "" && doc.TeamID != input.TeamID {
			return domain.ErrNotFound
		}
		switch doc.Status {
		case domain.StatusDraft:
			return domain.ErrCorrectDraft
		case domain.StatusCompleted:
			return domain.ErrVoidCompleted
		case domain.StatusVoided:
			return domain.ErrAlreadyVoided
		}

		now := s.now()
		won, err := tx.Void(ctx, doc.ID, CorrectionReason, now)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrConflict
		}

		clone := buildSuccessor(doc)
		successor, err = tx.Create(ctx, clone)
		return err
	})
	if err != nil {
		return domain.Document{}, err
	}

	for _, entry := range []domain.AuditEntry{
		{
			ID:         uuid.NewString(),
			DocumentID: input.DocID,
			Event:      domain.AuditDocumentVoided,
			IPAddress:  input.Action.IPAddress,
			UserAgent:  input.Action.UserAgent,
			SessionID:  input.Action.SessionID,
			Metadata:   map[string]any{"reason": CorrectionReason, "successor_id": successor.ID},
		},
		{
			ID:         uuid.NewString(),
			DocumentID: successor.ID,
			Event:      domain.AuditDocumentCreated,
			IPAddress:  input.Action.IPAddress,
			UserAgent:  input.Action.UserAgent,
			SessionID:  input.Action.SessionID,
			Metadata:   map[string]any{"corrected_from": input.DocID},
		},
	} {
		if err := s.Audit.Record(ctx, input.TeamID, entry); err != nil {
			return domain.Document{}, err
		}
	}
	return successor, nil
}

// buildSuccessor clones the document into a fresh draft. Every recipient
// resets to PENDING; prior signing state never carries over. Fields remap
// through the old recipient's email, and a field whose recipient cannot
// be remapped is dropped rather than silently misassigned.
func buildSuccessor(doc domain.Document) domain.Document {
	clone := domain.Document{
		ID:             uuid.NewString(),
		TeamID:         doc.TeamID,
		CreatedBy:      doc.CreatedBy,
		Title:          doc.Title + " (corrected)",
		Description:    doc.Description,
		FileKey:        doc.FileKey,
		StorageTag:     doc.StorageTag,
		PageCount:      doc.PageCount,
		Status:         domain.StatusDraft,
		ExpirationDate: doc.ExpirationDate,
	}

	oldEmailByID := make(map[string]string, len(doc.Recipients))
	newIDByEmail := make(map[string]string, len(doc.Recipients))
	for _, r := range doc.Recipients {
		oldEmailByID[r.ID] = r.Email
		cloned := domain.Recipient{
			ID:           uuid.NewString(),
			DocumentID:   clone.ID,
			Name:         r.Name,
			Email:        r.Email,
			Role:         r.Role,
			SigningOrder: r.SigningOrder,
			Status:       domain.RecipientPending,
		}
		clone.Recipients = append(clone.Recipients, cloned)
		newIDByEmail[r.Email] = cloned.ID
	}

	for _, f := range doc.Fields {
		cloned := domain.Field{
			ID:         uuid.NewString(),
			DocumentID: clone.ID,
			Type:       f.Type,
			Page:       f.Page,
			X:          f.X,
			Y:          f.Y,
			Width:      f.Width,
			Height:     f.Height,
			Required:   f.Required,
		}
		if f.RecipientID != "" {
			email, ok := oldEmailByID[f.RecipientID]
			if !ok {
				continue
			}
			newID, ok := newIDByEmail[email]
			if !ok {
				continue
			}
			cloned.RecipientID = newID
		}
		clone.Fields = append(clone.Fields, cloned)
	}
	return clone
}

func (s *CorrectionService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
