package usecase

import (
	"context"
	"errors"
	"time"

	"signflow/internal/domain"

	"go.uber.org/zap"
)

// AuditRecorder appends exactly one audit entry per lifecycle action,
// synchronously, then mirrors it to the analytics sink best-effort. A
// sink failure is logged and swallowed; an append failure propagates.
type AuditRecorder struct {
	Repo      AuditLogRepository
	Analytics AnalyticsSink
	Clock     Clock
	Log       *zap.Logger
}

func NewAuditRecorder(repo AuditLogRepository, analytics AnalyticsSink, log *zap.Logger) *AuditRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditRecorder{
		Repo:      repo,
		Analytics: analytics,
		Clock:     time.Now,
		Log:       log,
	}
}

// ActionContext is the network/client fingerprint captured with every
// lifecycle action.
type ActionContext struct {
	IPAddress string
	UserAgent string
	Referer   string
	SessionID string
}

func (r *AuditRecorder) Record(ctx context.Context, teamID string, entry domain.AuditEntry) error {
	if r == nil || r.Repo == nil {
		return errors.New("audit repository required")
	}
	if !domain.ValidAuditEvent(entry.Event) {
		return domain.ErrInvalidArgument
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	if entry.TeamID == "" {
		entry.TeamID = teamID
	}
	entry.Browser, entry.OS, entry.Device = ParseClient(entry.UserAgent)

	appended, err := r.Repo.Append(ctx, entry)
	if err != nil {
		return err
	}

	if r.Analytics == nil {
		return nil
	}
	event := AnalyticsEvent{
		Name:       string(appended.Event),
		DocumentID: appended.DocumentID,
		TeamID:     teamID,
		Properties: appended.Metadata,
		OccurredAt: appended.CreatedAt,
	}
	if err := r.Analytics.Record(ctx, event); err != nil {
		r.Log.Warn("analytics mirror failed",
			zap.String("event", event.Name),
			zap.String("document_id", event.DocumentID),
			zap.Error(err))
	}
	return nil
}

func (r *AuditRecorder) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}
