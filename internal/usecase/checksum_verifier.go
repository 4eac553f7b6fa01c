package usecase

import (
	"context"

	"signflow/internal/domain"

	"go.uber.org/zap"
)

// VerificationResult is everything the public verification endpoint
// reveals. Verified is false for tampering, origin mismatch, and unknown
// tokens alike; the caller learns nothing about why, and Algorithm is
// the same constant on every path so token existence cannot be probed.
type VerificationResult struct {
	Verified  bool
	Algorithm string
}

// ChecksumVerifier recomputes a stored signature checksum against the
// current document bytes. It is read-only: no verification outcome ever
// mutates stored state.
type ChecksumVerifier struct {
	Docs  DocumentRepository
	Blobs BlobStore
	Log   *zap.Logger
}

func NewChecksumVerifier(docs DocumentRepository, blobs BlobStore, log *zap.Logger) *ChecksumVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChecksumVerifier{Docs: docs, Blobs: blobs, Log: log}
}

func (v *ChecksumVerifier) VerifyByToken(ctx context.Context, token string) VerificationResult {
	failed := VerificationResult{Algorithm: domain.ChecksumAlgorithm}

	doc, recipient, err := v.Docs.GetByVerificationToken(ctx, token)
	if err != nil {
		return failed
	}
	if recipient.Checksum == nil || recipient.SignedAt == nil {
		return failed
	}

	docBytes, err := v.Blobs.Get(ctx, doc.StorageTag, doc.FileKey)
	if err != nil {
		v.Log.Warn("verification blob fetch failed",
			zap.String("document_id", doc.ID),
			zap.Error(err))
		return failed
	}

	ok := recipient.Checksum.Verify(docBytes, recipient.ID, *recipient.SignedAt, recipient.CaptureIP)
	return VerificationResult{Verified: ok, Algorithm: domain.ChecksumAlgorithm}
}
