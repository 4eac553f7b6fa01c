package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// ChecksumAlgorithm identifies the hash construction stored alongside the
// hashes, so records written under an older construction stay verifiable
// after an upgrade.
const ChecksumAlgorithm = "sha256/v1"

// SignatureChecksum binds a signed document's bytes to the recipient, the
// signing instant, and the capture-origin address. Produced once at the
// moment of signing, immutable thereafter. VerificationToken is the only
// value exposed externally for lookup.
type SignatureChecksum struct {
	DocumentHash      string
	SignatureHash     string
	Algorithm         string
	CreatedAt         time.Time
	VerificationToken string
}

// ComputeChecksum produces the checksum for a signing event. The token
// must be a random opaque handle minted by the caller; it carries no
// information derivable from the recipient or document ids.
func ComputeChecksum(docBytes []byte, recipientID string, signedAt time.Time, originAddr string, token string) SignatureChecksum {
	return SignatureChecksum{
		DocumentHash:      hashBytes(docBytes),
		SignatureHash:     signatureHash(recipientID, signedAt, originAddr),
		Algorithm:         ChecksumAlgorithm,
		CreatedAt:         signedAt.UTC(),
		VerificationToken: token,
	}
}

// Verify recomputes both hashes from the given inputs and requires
// bit-exact equality with the stored values. Any mismatch, including an
// unknown algorithm tag, yields false; it never distinguishes why.
func (c SignatureChecksum) Verify(docBytes []byte, recipientID string, signedAt time.Time, originAddr string) bool {
	if c.Algorithm != ChecksumAlgorithm {
		return false
	}
	docOK := subtle.ConstantTimeCompare([]byte(c.DocumentHash), []byte(hashBytes(docBytes))) == 1
	sigOK := subtle.ConstantTimeCompare([]byte(c.SignatureHash), []byte(signatureHash(recipientID, signedAt, originAddr))) == 1
	return docOK && sigOK
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func signatureHash(recipientID string, signedAt time.Time, originAddr string) string {
	payload := fmt.Sprintf("%s|%s|%s", recipientID, signedAt.UTC().Format(time.RFC3339Nano), originAddr)
	sum := sha256.Sum256([]byte(payload))
	return "sha256:" + hex.EncodeToString(sum[:])
}
