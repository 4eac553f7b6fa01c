package auth

import (
	"strings"

	"signflow/internal/domain"

	"github.com/gin-gonic/gin"
)

// HeaderAuthenticator trusts identity headers injected by the gateway in
// front of this service. It performs no verification of its own.
type HeaderAuthenticator struct{}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{}
}

func (h *HeaderAuthenticator) Authenticate(c *gin.Context) (domain.Principal, error) {
	principal := domain.Principal{
		Subject: strings.TrimSpace(c.GetHeader("X-Principal-Subject")),
		TeamID:  strings.TrimSpace(c.GetHeader("X-Principal-Team")),
	}
	if scopes := strings.TrimSpace(c.GetHeader("X-Principal-Scopes")); scopes != "" {
		principal.Scopes = splitCSV(scopes)
	}
	if roles := strings.TrimSpace(c.GetHeader("X-Principal-Roles")); roles != "" {
		principal.Roles = splitCSV(roles)
	}
	return principal, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
