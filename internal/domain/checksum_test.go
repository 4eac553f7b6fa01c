package domain

import (
	"testing"
	"time"
)

func TestChecksumDeterminismAndSensitivity(t *testing.T) {
	docBytes := []byte("canonical signed document bytes")
	signedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	const recipientID = "5f0a9a1e-1111-4222-8333-444455556666"
	const origin = "203.0.113.10"

	sum := ComputeChecksum(docBytes, recipientID, signedAt, origin, "tok-1")
	if sum.Algorithm != ChecksumAlgorithm {
		t.Fatalf("algorithm = %q, want %q", sum.Algorithm, ChecksumAlgorithm)
	}

	again := ComputeChecksum(docBytes, recipientID, signedAt, origin, "tok-2")
	if sum.DocumentHash != again.DocumentHash || sum.SignatureHash != again.SignatureHash {
		t.Fatalf("identical inputs must produce identical hashes")
	}

	if !sum.Verify(docBytes, recipientID, signedAt, origin) {
		t.Fatalf("verification over identical inputs must pass")
	}

	flipped := make([]byte, len(docBytes))
	copy(flipped, docBytes)
	flipped[0] ^= 0x01
	tests := []struct {
		name string
		ok   bool
	}{
		{"one byte flipped", sum.Verify(flipped, recipientID, signedAt, origin)},
		{"different recipient", sum.Verify(docBytes, "other-recipient", signedAt, origin)},
		{"different instant", sum.Verify(docBytes, recipientID, signedAt.Add(time.Nanosecond), origin)},
		{"different origin", sum.Verify(docBytes, recipientID, signedAt, "198.51.100.7")},
	}
	for _, tt := range tests {
		if tt.ok {
			t.Fatalf("%s: verification must fail", tt.name)
		}
	}
}

func TestChecksumUnknownAlgorithmNeverVerifies(t *testing.T) {
	signedAt := time.Now()
	sum := ComputeChecksum([]byte("doc"), "r1", signedAt, "203.0.113.10", "tok")
	sum.Algorithm = "md5/v0"
	if sum.Verify([]byte("doc"), "r1", signedAt, "203.0.113.10") {
		t.Fatalf("unknown algorithm tag must not verify")
	}
}

func TestCertificateIDDeterministic(t *testing.T) {
	secret := []byte("cert-secret")
	completedAt := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	a := CertificateID(secret, "doc-a", completedAt)
	b := CertificateID(secret, "doc-a", completedAt)
	if a != b {
		t.Fatalf("same inputs must yield the same certificate id")
	}
	if CertificateID(secret, "doc-b", completedAt) == a {
		t.Fatalf("distinct documents must not collide")
	}
	if CertificateID(secret, "doc-a", completedAt.Add(time.Second)) == a {
		t.Fatalf("distinct completion instants must not collide")
	}
	if CertificateID([]byte("other-secret"), "doc-a", completedAt) == a {
		t.Fatalf("the id must depend on the secret")
	}
}

func TestNewCertificateRequiresCompletion(t *testing.T) {
	secret := []byte("cert-secret")
	if _, err := NewCertificate(secret, Document{ID: "d", Status: StatusSent}); err != ErrNotCompleted {
		t.Fatalf("err = %v, want ErrNotCompleted", err)
	}
	now := time.Now()
	cert, err := NewCertificate(secret, Document{ID: "d", Status: StatusCompleted, CompletedAt: &now})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cert.ID != CertificateID(secret, "d", now) {
		t.Fatalf("certificate id mismatch")
	}
}
