package db

import (
	"context"
	"encoding/json"
	"time"

	"signflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLogRepository is append-only. Entries are never updated or
// deleted through this type.
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if r.db == nil {
		return domain.AuditEntry{}, errDBUnavailable
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}

	var metadataJSON []byte
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return domain.AuditEntry{}, err
		}
		metadataJSON = encoded
	}

	model := AuditLogModel{
		ID:          entry.ID,
		DocumentID:  entry.DocumentID,
		TeamID:      entry.TeamID,
		RecipientID: stringPtrIfNotEmpty(entry.RecipientID),
		Event:       string(entry.Event),
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Browser:     entry.Browser,
		OS:          entry.OS,
		Device:      entry.Device,
		Referer:     entry.Referer,
		SessionID:   entry.SessionID,
		Page:        entry.Page,
		DurationMS:  entry.DurationMS,
		Metadata:    metadataJSON,
		CreatedAt:   entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

func (r *AuditLogRepository) ListByDocumentSince(ctx context.Context, docID string, since time.Time) ([]domain.AuditEntry, error) {
	return r.list(ctx, "document_id = ?", docID, since)
}

func (r *AuditLogRepository) ListByTeamSince(ctx context.Context, teamID string, since time.Time) ([]domain.AuditEntry, error) {
	return r.list(ctx, "team_id = ?", teamID, since)
}

func (r *AuditLogRepository) list(ctx context.Context, cond, arg string, since time.Time) ([]domain.AuditEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditLogModel
	err := r.db.WithContext(ctx).
		Where(cond, arg).
		Where("created_at > ?", since.UTC()).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditEntry, 0, len(models))
	for _, model := range models {
		entry, err := auditEntryFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func auditEntryFromModel(model AuditLogModel) (domain.AuditEntry, error) {
	entry := domain.AuditEntry{
		ID:          model.ID,
		DocumentID:  model.DocumentID,
		TeamID:      model.TeamID,
		RecipientID: stringValue(model.RecipientID),
		Event:       domain.AuditEventType(model.Event),
		IPAddress:   model.IPAddress,
		UserAgent:   model.UserAgent,
		Browser:     model.Browser,
		OS:          model.OS,
		Device:      model.Device,
		Referer:     model.Referer,
		SessionID:   model.SessionID,
		Page:        model.Page,
		DurationMS:  model.DurationMS,
		CreatedAt:   model.CreatedAt.UTC(),
	}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &entry.Metadata); err != nil {
			return domain.AuditEntry{}, err
		}
	}
	return entry, nil
}
