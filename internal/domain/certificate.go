package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Certificate is derived, not stored: its id is a deterministic function
// of (documentId, completedAt) and is only valid for a COMPLETED document
// with a non-null completedAt.
type Certificate struct {
	ID          string
	DocumentID  string
	Title       string
	CompletedAt time.Time
	Recipients  []Recipient
}

// CertificateID derives the public certificate identifier. A keyed hash
// keeps the id collision-resistant and unguessable without the secret,
// while the same inputs always yield the same id.
func CertificateID(secret []byte, documentID string, completedAt time.Time) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(documentID))
	mac.Write([]byte("|"))
	mac.Write([]byte(completedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewCertificate builds the certificate view for a completed document.
func NewCertificate(secret []byte, doc Document) (Certificate, error) {
	if doc.Status != StatusCompleted || doc.CompletedAt == nil {
		return Certificate{}, ErrNotCompleted
	}
	return Certificate{
		ID:          CertificateID(secret, doc.ID, *doc.CompletedAt),
		DocumentID:  doc.ID,
		Title:       doc.Title,
		CompletedAt: doc.CompletedAt.UTC(),
		Recipients:  doc.Recipients,
	}, nil
}
