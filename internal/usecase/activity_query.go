package usecase

import (
	"context"
	"time"

	"signflow/internal/domain"
)

// ActivityQuery is the polling-style read model: what changed since a
// given instant, for one document or a whole team.
type ActivityQuery struct {
	Docs  DocumentRepository
	Audit AuditLogRepository
}

func NewActivityQuery(docs DocumentRepository, audit AuditLogRepository) *ActivityQuery {
	return &ActivityQuery{Docs: docs, Audit: audit}
}

type DocumentActivity struct {
	DocumentID string
	Status     domain.DocumentStatus
	Entries    []domain.AuditEntry
}

func (q *ActivityQuery) ForDocument(ctx context.Context, teamID, docID string, since time.Time) (DocumentActivity, error) {
	doc, err := q.Docs.Get(ctx, docID)
	if err != nil {
		return DocumentActivity{}, err
	}
	if teamID != "" && doc.TeamID != teamID {
		return DocumentActivity{}, domain.ErrNotFound
	}
	entries, err := q.Audit.ListByDocumentSince(ctx, docID, since)
	if err != nil {
		return DocumentActivity{}, err
	}
	return DocumentActivity{DocumentID: docID, Status: doc.Status, Entries: entries}, nil
}

func (q *ActivityQuery) ForTeam(ctx context.Context, teamID string, since time.Time) ([]domain.AuditEntry, error) {
	return q.Audit.ListByTeamSince(ctx, teamID, since)
}
