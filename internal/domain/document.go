package domain

import "time"

type DocumentStatus string

const (
	StatusDraft           DocumentStatus = "draft"
	StatusSent            DocumentStatus = "sent"
	StatusViewed          DocumentStatus = "viewed"
	StatusPartiallySigned DocumentStatus = "partially_signed"
	StatusCompleted       DocumentStatus = "completed"
	StatusDeclined        DocumentStatus = "declined"
	StatusVoided          DocumentStatus = "voided"
	StatusExpired         DocumentStatus = "expired"
)

// Document is the aggregate root of the signing workflow. It owns its
// recipients and fields; all navigation between them is by id through the
// owning document, never by back-pointer.
type Document struct {
	ID          string
	TeamID      string
	CreatedBy   string
	Title       string
	Description string
	FileKey     string
	StorageTag  string
	PageCount   int
	Status      DocumentStatus

	SentAt         *time.Time
	CompletedAt    *time.Time
	DeclinedAt     *time.Time
	VoidedAt       *time.Time
	VoidReason     string
	ExpirationDate *time.Time
	CertificateKey string

	Recipients []Recipient
	Fields     []Field

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s DocumentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDeclined, StatusVoided, StatusExpired:
		return true
	}
	return false
}

// InFlight reports whether recipients can still act on the document.
func (s DocumentStatus) InFlight() bool {
	switch s {
	case StatusSent, StatusViewed, StatusPartiallySigned:
		return true
	}
	return false
}

var transitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft:           {StatusSent, StatusDeclined, StatusExpired},
	StatusSent:            {StatusViewed, StatusPartiallySigned, StatusCompleted, StatusDeclined, StatusExpired},
	StatusViewed:          {StatusPartiallySigned, StatusCompleted, StatusDeclined, StatusExpired},
	StatusPartiallySigned: {StatusCompleted, StatusDeclined, StatusExpired},
}

// ValidateTransition is the single gate every status mutation must pass.
// It returns the specific guard error for the transitions callers are
// known to race on, and ErrIllegalTransition for everything else.
// VOIDED is special-cased: a fully executed instrument can never be
// voided, an already-voided one cannot be voided twice, but every other
// status can.
func ValidateTransition(from, to DocumentStatus) error {
	if to == StatusVoided {
		switch from {
		case StatusCompleted:
			return ErrVoidCompleted
		case StatusVoided:
			return ErrAlreadyVoided
		default:
			return nil
		}
	}
	if to == StatusSent && from != StatusDraft {
		return ErrAlreadySent
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return ErrIllegalTransition
}

// DeriveStatus recomputes the in-flight document status from its
// recipients. VIEWER recipients never gate completion. The result is only
// meaningful for documents that have been sent and are not terminal;
// callers still pass it through ValidateTransition before applying it.
func DeriveStatus(recipients []Recipient) DocumentStatus {
	var required, signed, viewed int
	for _, r := range recipients {
		if r.Role == RoleViewer {
			continue
		}
		required++
		switch r.Status {
		case RecipientSigned:
			signed++
		case RecipientViewed:
			viewed++
		}
	}
	switch {
	case required > 0 && signed == required:
		return StatusCompleted
	case signed > 0:
		return StatusPartiallySigned
	case viewed > 0:
		return StatusViewed
	default:
		return StatusSent
	}
}

// ExactlyOneTerminalStamp checks the invariant that at most one of
// completedAt/declinedAt/voidedAt is set, and only when the status matches.
func (d Document) ExactlyOneTerminalStamp() bool {
	set := 0
	if d.CompletedAt != nil {
		if d.Status != StatusCompleted {
			return false
		}
		set++
	}
	if d.DeclinedAt != nil {
		if d.Status != StatusDeclined {
			return false
		}
		set++
	}
	if d.VoidedAt != nil {
		if d.Status != StatusVoided {
			return false
		}
		set++
	}
	return set <= 1
}

// Expirable reports whether a time-based sweep may legally apply EXPIRED.
func (d Document) Expirable(now time.Time) bool {
	if d.Status.Terminal() {
		return false
	}
	return d.ExpirationDate != nil && now.After(*d.ExpirationDate)
}
