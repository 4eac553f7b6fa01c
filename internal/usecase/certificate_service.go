package usecase

import (
	"context"

	"signflow/internal/domain"
)

// certScanPageSize bounds each page of the public verification scan.
const certScanPageSize = 200

// CertificateService mints and resolves completion certificates. The
// public path recomputes ids over completed documents in bounded pages;
// index the derived id if completed-document counts grow.
type CertificateService struct {
	Docs   DocumentRepository
	Secret []byte
}

func NewCertificateService(docs DocumentRepository, secret []byte) *CertificateService {
	return &CertificateService{Docs: docs, Secret: secret}
}

// Get returns the certificate for a completed document on the
// authenticated path.
func (s *CertificateService) Get(ctx context.Context, teamID, docID string) (domain.Certificate, error) {
	doc, err := s.Docs.Get(ctx, docID)
	if err != nil {
		return domain.Certificate{}, err
	}
	if teamID != "" && doc.TeamID != teamID {
		return domain.Certificate{}, domain.ErrNotFound
	}
	return domain.NewCertificate(s.Secret, doc)
}

// VerifyByID is the public, unauthenticated lookup: it accepts only a
// candidate certificate id and locates the matching completed document by
// recomputing ids over candidates.
func (s *CertificateService) VerifyByID(ctx context.Context, certID string) (domain.Certificate, error) {
	if certID == "" {
		return domain.Certificate{}, domain.ErrNotFound
	}
	for offset := 0; ; offset += certScanPageSize {
		page, err := s.Docs.ListCompleted(ctx, offset, certScanPageSize)
		if err != nil {
			return domain.Certificate{}, err
		}
		for _, doc := range page {
			if doc.CompletedAt == nil {
				continue
			}
			if domain.CertificateID(s.Secret, doc.ID, *doc.CompletedAt) == certID {
				return domain.NewCertificate(s.Secret, doc)
			}
		}
		if len(page) < certScanPageSize {
			return domain.Certificate{}, domain.ErrNotFound
		}
	}
}
