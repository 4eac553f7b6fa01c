package auth

import (
	"strings"

	"signflow/internal/domain"
)

const (
	DefaultAdminRole  = "signflow_admin"
	DefaultAdminScope = "admin:*"
)

type Authorizer struct {
	adminRole  string
	adminScope string
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{adminRole: DefaultAdminRole, adminScope: DefaultAdminScope}
}

func (a *Authorizer) Require(principal domain.Principal, teamID string, permission string) error {
	if principal.Subject == "" {
		return domain.ErrUnauthorized
	}
	if permission == "" {
		return nil
	}
	if IsAdmin(principal) {
		return nil
	}
	if strings.HasSuffix(permission, ":admin") {
		return &domain.AccessError{Code: "MISSING_ROLE"}
	}
	if teamID != "" {
		if principal.TeamID == "" || teamID != principal.TeamID {
			return &domain.AccessError{Code: "TEAM_MISMATCH"}
		}
	}
	if !hasScope(principal, permission) {
		return &domain.AccessError{Code: "MISSING_SCOPE"}
	}
	return nil
}

// IsAdmin reports whether the principal carries the admin role or the
// wildcard scope. Admin principals skip team scoping entirely.
func IsAdmin(principal domain.Principal) bool {
	for _, r := range principal.Roles {
		if r == DefaultAdminRole {
			return true
		}
	}
	return hasScope(principal, DefaultAdminScope)
}

func hasScope(principal domain.Principal, scope string) bool {
	if scope == "" {
		return false
	}
	for _, s := range principal.Scopes {
		if s == scope || s == DefaultAdminScope {
			return true
		}
	}
	return false
}
