package db

import (
	"context"
	"errors"
	"time"

	"signflow/internal/domain"
	"signflow/internal/usecase"

	"gorm.io/gorm"
)

// DocumentRepository persists the document aggregate. Status transitions
// are conditional updates: the WHERE clause carries the precondition and
// RowsAffected reports whether this call won.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) WithTx(ctx context.Context, fn func(tx usecase.DocumentRepository) error) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentRepository{db: tx})
	})
}

func (r *DocumentRepository) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if r.db == nil {
		return domain.Document{}, errDBUnavailable
	}
	now := time.Now().UTC()
	model := documentModelFromDomain(doc)
	model.CreatedAt = now
	model.UpdatedAt = now

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		for _, rec := range doc.Recipients {
			rm := recipientModelFromDomain(rec)
			rm.CreatedAt = now
			rm.UpdatedAt = now
			if err := tx.Create(&rm).Error; err != nil {
				return err
			}
		}
		for _, f := range doc.Fields {
			fm := fieldModelFromDomain(f)
			fm.CreatedAt = now
			if err := tx.Create(&fm).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}
	return r.Get(ctx, doc.ID)
}

func (r *DocumentRepository) Get(ctx context.Context, docID string) (domain.Document, error) {
	if r.db == nil {
		return domain.Document{}, errDBUnavailable
	}
	var model DocumentModel
	err := r.db.WithContext(ctx).Where("id = ?", docID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, err
	}
	return r.hydrate(ctx, model)
}

func (r *DocumentRepository) hydrate(ctx context.Context, model DocumentModel) (domain.Document, error) {
	var recipients []RecipientModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", model.ID).
		Order("signing_order ASC, created_at ASC").
		Find(&recipients).Error; err != nil {
		return domain.Document{}, err
	}
	var fields []FieldModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", model.ID).
		Order("page ASC, created_at ASC").
		Find(&fields).Error; err != nil {
		return domain.Document{}, err
	}

	doc := documentFromModel(model)
	for _, rm := range recipients {
		doc.Recipients = append(doc.Recipients, recipientFromModel(rm))
	}
	for _, fm := range fields {
		doc.Fields = append(doc.Fields, fieldFromModel(fm))
	}
	return doc, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, docID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&FieldModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", docID).Delete(&RecipientModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", docID).Delete(&DocumentModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *DocumentRepository) ReplaceFields(ctx context.Context, docID string, fields []domain.Field) error {
	if r.db == nil {
		return errDBUnavailable
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&FieldModel{}).Error; err != nil {
			return err
		}
		for _, f := range fields {
			fm := fieldModelFromDomain(f)
			fm.CreatedAt = now
			if err := tx.Create(&fm).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *DocumentRepository) MarkSent(ctx context.Context, docID string, sentAt time.Time, grants []usecase.SigningGrant) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DocumentModel{}).
			Where("id = ? AND status = ?", docID, string(domain.StatusDraft)).
			Updates(map[string]any{
				"status":     string(domain.StatusSent),
				"sent_at":    sentAt.UTC(),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true
		for _, g := range grants {
			if err := tx.Exec(
				`UPDATE recipients
				 SET signing_token = ?, signing_url = ?,
				     status = CASE WHEN status = ? THEN ? ELSE status END,
				     updated_at = ?
				 WHERE id = ? AND document_id = ?`,
				g.Token, g.URL,
				string(domain.RecipientPending), string(domain.RecipientSent),
				time.Now().UTC(),
				g.RecipientID, docID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return won, err
}

func (r *DocumentRepository) Void(ctx context.Context, docID, reason string, at time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("id = ? AND status NOT IN ?", docID, []string{
			string(domain.StatusCompleted),
			string(domain.StatusVoided),
		}).
		Updates(map[string]any{
			"status":      string(domain.StatusVoided),
			"voided_at":   at.UTC(),
			"void_reason": reason,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DocumentRepository) Expire(ctx context.Context, docID string, at time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("id = ? AND status NOT IN ?", docID, []string{
			string(domain.StatusCompleted),
			string(domain.StatusDeclined),
			string(domain.StatusVoided),
			string(domain.StatusExpired),
		}).
		Updates(map[string]any{
			"status":     string(domain.StatusExpired),
			"updated_at": at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DocumentRepository) MarkRecipientViewed(ctx context.Context, docID, recipientID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&RecipientModel{}).
			Where("id = ? AND document_id = ? AND status IN ?", recipientID, docID, []string{
				string(domain.RecipientPending),
				string(domain.RecipientSent),
			}).
			Updates(map[string]any{
				"status":     string(domain.RecipientViewed),
				"updated_at": at.UTC(),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&DocumentModel{}).
			Where("id = ? AND status = ?", docID, string(domain.StatusSent)).
			Updates(map[string]any{
				"status":     string(domain.StatusViewed),
				"updated_at": at.UTC(),
			}).Error
	})
}

// errTransitionLost aborts a transaction whose conditional update matched
// zero rows, so the partial writes roll back and the caller re-reads.
var errTransitionLost = errors.New("transition lost")

func inFlightStatuses() []string {
	return []string{
		string(domain.StatusSent),
		string(domain.StatusViewed),
		string(domain.StatusPartiallySigned),
	}
}

func (r *DocumentRepository) ApplySignature(ctx context.Context, docID string, recipient domain.Recipient, fields []domain.Field) (domain.DocumentStatus, bool, error) {
	if r.db == nil {
		return "", false, errDBUnavailable
	}
	now := time.Now().UTC()
	var status domain.DocumentStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":              string(recipient.Status),
			"signed_at":           recipient.SignedAt,
			"capture_ip":          recipient.CaptureIP,
			"capture_client":      recipient.CaptureClient,
			"signature_image_key": recipient.SignatureImageKey,
			"updated_at":          now,
		}
		if recipient.Checksum != nil {
			updates["checksum_document_hash"] = recipient.Checksum.DocumentHash
			updates["checksum_signature_hash"] = recipient.Checksum.SignatureHash
			updates["checksum_algorithm"] = recipient.Checksum.Algorithm
			updates["checksum_created_at"] = recipient.Checksum.CreatedAt
			updates["verification_token"] = recipient.Checksum.VerificationToken
		}
		res := tx.Model(&RecipientModel{}).
			Where("id = ? AND document_id = ? AND status NOT IN ?", recipient.ID, docID,
				[]string{string(domain.RecipientSigned), string(domain.RecipientDeclined)}).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTransitionLost
		}

		for _, f := range fields {
			if f.FilledAt == nil {
				continue
			}
			if err := tx.Model(&FieldModel{}).
				Where("id = ? AND document_id = ?", f.ID, docID).
				Updates(map[string]any{
					"value":     f.Value,
					"filled_at": f.FilledAt,
				}).Error; err != nil {
				return err
			}
		}

		// Derive from the rows as this transaction sees them, not from
		// the caller's pre-read: a concurrent final signer must still
		// land the document on COMPLETED.
		var rows []RecipientModel
		if err := tx.Where("document_id = ?", docID).Find(&rows).Error; err != nil {
			return err
		}
		recipients := make([]domain.Recipient, 0, len(rows))
		for _, row := range rows {
			recipients = append(recipients, recipientFromModel(row))
		}
		status = domain.DeriveStatus(recipients)

		docUpdates := map[string]any{
			"status":     string(status),
			"updated_at": now,
		}
		if status == domain.StatusCompleted {
			stamp := now
			if recipient.SignedAt != nil {
				stamp = recipient.SignedAt.UTC()
			}
			docUpdates["completed_at"] = stamp
		}
		res = tx.Model(&DocumentModel{}).
			Where("id = ? AND status IN ?", docID, inFlightStatuses()).
			Updates(docUpdates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTransitionLost
		}
		return nil
	})
	if errors.Is(err, errTransitionLost) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return status, true, nil
}

func (r *DocumentRepository) ApplyDecline(ctx context.Context, docID, recipientID, reason string, at time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&RecipientModel{}).
			Where("id = ? AND document_id = ? AND status NOT IN ?", recipientID, docID,
				[]string{string(domain.RecipientSigned), string(domain.RecipientDeclined)}).
			Updates(map[string]any{
				"status":         string(domain.RecipientDeclined),
				"decline_reason": reason,
				"updated_at":     at.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTransitionLost
		}
		res = tx.Model(&DocumentModel{}).
			Where("id = ? AND status IN ?", docID, inFlightStatuses()).
			Updates(map[string]any{
				"status":      string(domain.StatusDeclined),
				"declined_at": at.UTC(),
				"updated_at":  at.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTransitionLost
		}
		return nil
	})
	if errors.Is(err, errTransitionLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DocumentRepository) GetByToken(ctx context.Context, token string) (domain.Document, domain.Recipient, error) {
	return r.getByRecipientColumn(ctx, "signing_token", token)
}

func (r *DocumentRepository) GetByVerificationToken(ctx context.Context, token string) (domain.Document, domain.Recipient, error) {
	return r.getByRecipientColumn(ctx, "verification_token", token)
}

func (r *DocumentRepository) getByRecipientColumn(ctx context.Context, column, token string) (domain.Document, domain.Recipient, error) {
	if r.db == nil {
		return domain.Document{}, domain.Recipient{}, errDBUnavailable
	}
	if token == "" {
		return domain.Document{}, domain.Recipient{}, domain.ErrNotFound
	}
	var rm RecipientModel
	err := r.db.WithContext(ctx).Where(column+" = ?", token).First(&rm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, domain.Recipient{}, domain.ErrNotFound
		}
		return domain.Document{}, domain.Recipient{}, err
	}
	doc, err := r.Get(ctx, rm.DocumentID)
	if err != nil {
		return domain.Document{}, domain.Recipient{}, err
	}
	return doc, recipientFromModel(rm), nil
}

func (r *DocumentRepository) ListCompleted(ctx context.Context, offset, limit int) ([]domain.Document, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DocumentModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.StatusCompleted)).
		Order("completed_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Document, 0, len(models))
	for _, model := range models {
		doc, err := r.hydrate(ctx, model)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func documentModelFromDomain(doc domain.Document) DocumentModel {
	return DocumentModel{
		ID:             doc.ID,
		TeamID:         doc.TeamID,
		CreatedBy:      doc.CreatedBy,
		Title:          doc.Title,
		Description:    doc.Description,
		FileKey:        doc.FileKey,
		StorageTag:     doc.StorageTag,
		PageCount:      doc.PageCount,
		Status:         string(doc.Status),
		SentAt:         doc.SentAt,
		CompletedAt:    doc.CompletedAt,
		DeclinedAt:     doc.DeclinedAt,
		VoidedAt:       doc.VoidedAt,
		VoidReason:     doc.VoidReason,
		ExpirationDate: doc.ExpirationDate,
		CertificateKey: doc.CertificateKey,
	}
}

func documentFromModel(model DocumentModel) domain.Document {
	return domain.Document{
		ID:             model.ID,
		TeamID:         model.TeamID,
		CreatedBy:      model.CreatedBy,
		Title:          model.Title,
		Description:    model.Description,
		FileKey:        model.FileKey,
		StorageTag:     model.StorageTag,
		PageCount:      model.PageCount,
		Status:         domain.DocumentStatus(model.Status),
		SentAt:         model.SentAt,
		CompletedAt:    model.CompletedAt,
		DeclinedAt:     model.DeclinedAt,
		VoidedAt:       model.VoidedAt,
		VoidReason:     model.VoidReason,
		ExpirationDate: model.ExpirationDate,
		CertificateKey: model.CertificateKey,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func recipientModelFromDomain(rec domain.Recipient) RecipientModel {
	model := RecipientModel{
		ID:                rec.ID,
		DocumentID:        rec.DocumentID,
		Name:              rec.Name,
		Email:             rec.Email,
		Role:              string(rec.Role),
		SigningOrder:      rec.SigningOrder,
		Status:            string(rec.Status),
		DeclineReason:     rec.DeclineReason,
		SigningToken:      stringPtrIfNotEmpty(rec.SigningToken),
		SigningURL:        rec.SigningURL,
		SignedAt:          rec.SignedAt,
		CaptureIP:         rec.CaptureIP,
		CaptureClient:     rec.CaptureClient,
		SignatureImageKey: rec.SignatureImageKey,
	}
	if rec.Checksum != nil {
		created := rec.Checksum.CreatedAt
		model.ChecksumDocumentHash = rec.Checksum.DocumentHash
		model.ChecksumSignatureHash = rec.Checksum.SignatureHash
		model.ChecksumAlgorithm = rec.Checksum.Algorithm
		model.ChecksumCreatedAt = &created
		model.VerificationToken = stringPtrIfNotEmpty(rec.Checksum.VerificationToken)
	}
	return model
}

func recipientFromModel(model RecipientModel) domain.Recipient {
	rec := domain.Recipient{
		ID:                model.ID,
		DocumentID:        model.DocumentID,
		Name:              model.Name,
		Email:             model.Email,
		Role:              domain.RecipientRole(model.Role),
		SigningOrder:      model.SigningOrder,
		Status:            domain.RecipientStatus(model.Status),
		DeclineReason:     model.DeclineReason,
		SigningToken:      stringValue(model.SigningToken),
		SigningURL:        model.SigningURL,
		SignedAt:          model.SignedAt,
		CaptureIP:         model.CaptureIP,
		CaptureClient:     model.CaptureClient,
		SignatureImageKey: model.SignatureImageKey,
	}
	if model.ChecksumSignatureHash != "" {
		checksum := domain.SignatureChecksum{
			DocumentHash:      model.ChecksumDocumentHash,
			SignatureHash:     model.ChecksumSignatureHash,
			Algorithm:         model.ChecksumAlgorithm,
			VerificationToken: stringValue(model.VerificationToken),
		}
		if model.ChecksumCreatedAt != nil {
			checksum.CreatedAt = *model.ChecksumCreatedAt
		}
		rec.Checksum = &checksum
	}
	return rec
}

func fieldModelFromDomain(f domain.Field) FieldModel {
	return FieldModel{
		ID:          f.ID,
		DocumentID:  f.DocumentID,
		RecipientID: stringPtrIfNotEmpty(f.RecipientID),
		Type:        string(f.Type),
		Page:        f.Page,
		X:           f.X,
		Y:           f.Y,
		Width:       f.Width,
		Height:      f.Height,
		Required:    f.Required,
		Value:       f.Value,
		FilledAt:    f.FilledAt,
	}
}

func fieldFromModel(model FieldModel) domain.Field {
	return domain.Field{
		ID:          model.ID,
		DocumentID:  model.DocumentID,
		RecipientID: stringValue(model.RecipientID),
		Type:        domain.FieldType(model.Type),
		Page:        model.Page,
		X:           model.X,
		Y:           model.Y,
		Width:       model.Width,
		Height:      model.Height,
		Required:    model.Required,
		Value:       model.Value,
		FilledAt:    model.FilledAt,
	}
}
