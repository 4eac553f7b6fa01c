package domain

import "time"

type AuditEventType string

// Closed event vocabulary. Nothing else is ever appended.
const (
	AuditDocumentCreated    AuditEventType = "document.created"
	AuditDocumentSent       AuditEventType = "document.sent"
	AuditDocumentViewed     AuditEventType = "document.viewed"
	AuditDocumentDownloaded AuditEventType = "document.downloaded"
	AuditRecipientSigned    AuditEventType = "recipient.signed"
	AuditRecipientDeclined  AuditEventType = "recipient.declined"
	AuditDocumentCompleted  AuditEventType = "document.completed"
	AuditDocumentVoided     AuditEventType = "document.voided"
	AuditDocumentExpired    AuditEventType = "document.expired"
	AuditFieldCompleted     AuditEventType = "field.completed"
	AuditReminderSent       AuditEventType = "reminder.sent"
)

// AuditEntry is append-only and the sole source of truth for what
// happened and when. Entries are never updated or deleted.
type AuditEntry struct {
	ID          string
	DocumentID  string
	TeamID      string
	RecipientID string
	Event       AuditEventType

	IPAddress string
	UserAgent string
	Browser   string
	OS        string
	Device    string
	Referer   string
	SessionID string

	Page       *int
	DurationMS *int
	Metadata   map[string]any

	CreatedAt time.Time
}

func ValidAuditEvent(event AuditEventType) bool {
	switch event {
	case AuditDocumentCreated, AuditDocumentSent, AuditDocumentViewed,
		AuditDocumentDownloaded, AuditRecipientSigned, AuditRecipientDeclined,
		AuditDocumentCompleted, AuditDocumentVoided, AuditDocumentExpired,
		AuditFieldCompleted, AuditReminderSent:
		return true
	}
	return false
}
