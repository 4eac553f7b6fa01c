package domain

import "time"

type RecipientRole string

const (
	RoleSigner   RecipientRole = "signer"
	RoleViewer   RecipientRole = "viewer"
	RoleApprover RecipientRole = "approver"
)

type RecipientStatus string

const (
	RecipientPending  RecipientStatus = "pending"
	RecipientSent     RecipientStatus = "sent"
	RecipientViewed   RecipientStatus = "viewed"
	RecipientSigned   RecipientStatus = "signed"
	RecipientDeclined RecipientStatus = "declined"
)

type Recipient struct {
	ID           string
	DocumentID   string
	Name         string
	Email        string
	Role         RecipientRole
	SigningOrder int
	Status       RecipientStatus

	DeclineReason string

	// Minted at send time.
	SigningToken string
	SigningURL   string

	// Capture metadata, set only at SIGNED.
	SignedAt          *time.Time
	CaptureIP         string
	CaptureClient     string
	SignatureImageKey string

	Checksum *SignatureChecksum
}

// Gates reports whether this recipient's signature is required before the
// document can complete. Viewers never gate.
func (r Recipient) Gates() bool {
	return r.Role != RoleViewer
}

func (r Recipient) Finished() bool {
	return r.Status == RecipientSigned || r.Status == RecipientDeclined
}

// BlockedBySigningOrder reports whether strict-order policy forbids the
// target from signing: some other gating recipient with a strictly lower
// signingOrder has not signed yet.
func BlockedBySigningOrder(recipients []Recipient, target Recipient) bool {
	for _, r := range recipients {
		if r.ID == target.ID || !r.Gates() {
			continue
		}
		if r.SigningOrder < target.SigningOrder && r.Status != RecipientSigned {
			return true
		}
	}
	return false
}

// ReminderTargets selects which recipients are due a reminder. A specific
// recipient id narrows the set to that recipient alone, still subject to
// eligibility; otherwise every gating recipient that has neither signed
// nor declined is due.
func ReminderTargets(recipients []Recipient, recipientID string) []Recipient {
	var out []Recipient
	for _, r := range recipients {
		if recipientID != "" && r.ID != recipientID {
			continue
		}
		if !r.Gates() || r.Finished() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ReminderAllowed rejects reminders for documents nothing can be done
// about: drafts have not been sent, terminal documents have nothing left.
func ReminderAllowed(status DocumentStatus) error {
	if status == StatusDraft {
		return ErrReminderNotAllowed
	}
	if status.Terminal() {
		return ErrReminderNotAllowed
	}
	return nil
}
