package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signflow/internal/config"
	"signflow/internal/domain"
	"signflow/internal/infra/ratelimit"
	"signflow/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubDocs overrides only the calls a test exercises; anything else
// panics, which is the point.
type stubDocs struct {
	usecase.DocumentRepository
	docs map[string]domain.Document
}

func (s *stubDocs) Create(_ context.Context, doc domain.Document) (domain.Document, error) {
	if s.docs == nil {
		s.docs = map[string]domain.Document{}
	}
	doc.CreatedAt = time.Now()
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *stubDocs) Get(_ context.Context, docID string) (domain.Document, error) {
	doc, ok := s.docs[docID]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

func (s *stubDocs) GetByVerificationToken(_ context.Context, _ string) (domain.Document, domain.Recipient, error) {
	return domain.Document{}, domain.Recipient{}, domain.ErrNotFound
}

func (s *stubDocs) ListCompleted(_ context.Context, _, _ int) ([]domain.Document, error) {
	return nil, nil
}

type stubAudit struct{}

func (stubAudit) Append(_ context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	return entry, nil
}

func (stubAudit) ListByDocumentSince(_ context.Context, _ string, _ time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (stubAudit) ListByTeamSince(_ context.Context, _ string, _ time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	docs := &stubDocs{}
	recorder := usecase.NewAuditRecorder(stubAudit{}, nil, zap.NewNop())
	deps := ServerDeps{
		Documents: usecase.NewDocumentService(docs, recorder, nil, nil, nil, "https://sign.test", zap.NewNop()),
		Certs:     usecase.NewCertificateService(docs, []byte("secret")),
		Verifier:  usecase.NewChecksumVerifier(docs, nil, zap.NewNop()),
		Log:       zap.NewNop(),
	}
	return NewServer(cfg, nil, deps)
}

func doRequest(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header"})
	w := doRequest(s, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header"})
	w := doRequest(s, http.MethodGet, "/v2/nothing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "NOT_FOUND" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestCreateDocumentRequiresPrincipal(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header"})
	w := doRequest(s, http.MethodPost, "/v1/documents", `{"title":"X","file_key":"k"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestCreateDocumentRequiresScope(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header"})
	w := doRequest(s, http.MethodPost, "/v1/documents", `{"title":"X","file_key":"k"}`, map[string]string{
		"X-Principal-Subject": "user-1",
		"X-Principal-Team":    "team-1",
		"X-Principal-Scopes":  "doc:read",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "MISSING_SCOPE" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestCreateDocumentWithScope(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header"})
	body := `{"title":"Mutual NDA","file_key":"contracts/nda.pdf","recipients":[{"name":"Alice","email":"alice@example.com"}]}`
	w := doRequest(s, http.MethodPost, "/v1/documents", body, map[string]string{
		"X-Principal-Subject": "user-1",
		"X-Principal-Team":    "team-1",
		"X-Principal-Scopes":  "doc:write",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp documentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "draft" || resp.TeamID != "team-1" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Recipients) != 1 || resp.Recipients[0].Email != "alice@example.com" {
		t.Fatalf("recipients = %+v", resp.Recipients)
	}
}

func TestAdminKeyBypassesScopes(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header", AdminAPIKey: "sekret"})
	body := `{"title":"Ops doc","file_key":"ops/doc.pdf"}`
	w := doRequest(s, http.MethodPost, "/v1/documents", body, map[string]string{
		"X-Admin-Key": "sekret",
	})
	// Admin key authenticates, but the admin principal has no team, so
	// the create is rejected by input validation rather than auth.
	if w.Code == http.StatusUnauthorized || w.Code == http.StatusForbidden {
		t.Fatalf("status = %d, admin key should pass auth", w.Code)
	}

	w = doRequest(s, http.MethodPost, "/v1/documents", body, map[string]string{
		"X-Admin-Key": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for bad admin key", w.Code)
	}
}

func TestVerifySignatureNeverErrors(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header"})
	w := doRequest(s, http.MethodGet, "/v1/verify/signature/no-such-token", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Verified  bool   `json:"verified"`
		Algorithm string `json:"algorithm"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Verified {
		t.Fatal("unknown token verified")
	}
	if resp.Algorithm != domain.ChecksumAlgorithm {
		t.Fatalf("algorithm = %q, unknown tokens must answer like mismatches", resp.Algorithm)
	}
}

func TestAdminKeyReadsAcrossTeams(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header", AdminAPIKey: "sekret"})
	body := `{"title":"Mutual NDA","file_key":"contracts/nda.pdf"}`
	w := doRequest(s, http.MethodPost, "/v1/documents", body, map[string]string{
		"X-Principal-Subject": "user-1",
		"X-Principal-Team":    "team-1",
		"X-Principal-Scopes":  "doc:write",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created documentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doRequest(s, http.MethodGet, "/v1/documents/"+created.ID, "", map[string]string{
		"X-Admin-Key": "sekret",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("admin read status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestTeamlessPrincipalRejected(t *testing.T) {
	s := newTestServer(t, config.Config{AuthMode: "header"})
	w := doRequest(s, http.MethodGet, "/v1/documents/any-id", "", map[string]string{
		"X-Principal-Subject": "user-1",
		"X-Principal-Scopes":  "doc:read",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "TEAM_MISMATCH" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPublicVerifyRateLimited(t *testing.T) {
	cfg := config.Config{
		AuthMode:               "header",
		RateLimitRequests:      1,
		RateLimitWindowSeconds: 60,
	}
	docs := &stubDocs{}
	deps := ServerDeps{
		Verifier:    usecase.NewChecksumVerifier(docs, nil, zap.NewNop()),
		RateLimiter: ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{}),
		Log:         zap.NewNop(),
	}
	s := NewServer(cfg, nil, deps)

	first := doRequest(s, http.MethodGet, "/v1/verify/signature/tok", "", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	if first.Header().Get("RateLimit-Limit") != "1" {
		t.Fatalf("missing RateLimit-Limit header")
	}

	second := doRequest(s, http.MethodGet, "/v1/verify/signature/tok", "", nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestVerifyPurposesDoNotShareBuckets(t *testing.T) {
	cfg := config.Config{
		AuthMode:               "header",
		RateLimitRequests:      1,
		RateLimitWindowSeconds: 60,
	}
	docs := &stubDocs{}
	deps := ServerDeps{
		Certs:       usecase.NewCertificateService(docs, []byte("secret")),
		Verifier:    usecase.NewChecksumVerifier(docs, nil, zap.NewNop()),
		RateLimiter: ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{}),
		Log:         zap.NewNop(),
	}
	s := NewServer(cfg, nil, deps)

	if w := doRequest(s, http.MethodGet, "/v1/verify/signature/tok", "", nil); w.Code != http.StatusOK {
		t.Fatalf("signature verify status = %d", w.Code)
	}
	// The certificate purpose still has budget for the same caller.
	if w := doRequest(s, http.MethodGet, "/v1/verify/certificate/abc", "", nil); w.Code == http.StatusTooManyRequests {
		t.Fatal("certificate verify shared the signature bucket")
	}
}
