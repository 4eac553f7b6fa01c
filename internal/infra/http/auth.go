package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"signflow/internal/domain"
	"signflow/internal/infra/auth"

	"github.com/gin-gonic/gin"
)

const principalContextKey = "principal"

// requireAuth authenticates the caller and checks the permission against
// the team scope. An admin API key, when configured, grants the admin
// role without going through the authenticator.
func (s *Server) requireAuth(c *gin.Context, permission, teamID string) (domain.Principal, bool) {
	if s.adminAPIKey != "" {
		if key := strings.TrimSpace(c.GetHeader("X-Admin-Key")); key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) == 1 {
				principal := domain.Principal{
					Subject: "admin-key",
					Roles:   []string{auth.DefaultAdminRole},
					Scopes:  []string{auth.DefaultAdminScope},
				}
				c.Set(principalContextKey, principal)
				return principal, true
			}
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
			return domain.Principal{}, false
		}
	}
	if s.cfg.AuthMode == "none" {
		return domain.Principal{TeamID: teamID, Subject: "anonymous"}, true
	}
	if s.authenticator == nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		return domain.Principal{}, false
	}

	principal, err := s.authenticator.Authenticate(c)
	if err != nil || principal.Subject == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return domain.Principal{}, false
	}
	if s.authorizer != nil {
		if err := s.authorizer.Require(principal, teamID, permission); err != nil {
			writeAuthzError(c, err)
			return domain.Principal{}, false
		}
	}
	// A non-admin principal without a team would otherwise reach the
	// usecases with an unscoped read; only admins may go teamless.
	if principal.TeamID == "" && !auth.IsAdmin(principal) {
		writeErrorCode(c, http.StatusForbidden, "TEAM_MISMATCH", "forbidden")
		return domain.Principal{}, false
	}
	c.Set(principalContextKey, principal)
	return principal, true
}

func writeAuthzError(c *gin.Context, err error) {
	var denied *domain.AccessError
	if errors.As(err, &denied) {
		writeErrorCode(c, http.StatusForbidden, denied.Code, "forbidden")
		return
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
}
