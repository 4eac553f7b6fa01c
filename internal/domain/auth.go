package domain

// Permissions gating the authenticated document surface.
const (
	PermDocRead  = "doc:read"
	PermDocWrite = "doc:write"
	PermDocSend  = "doc:send"
	PermDocVoid  = "doc:void"
	PermDocAdmin = "doc:admin"
)

type Principal struct {
	Subject string
	TeamID  string
	Roles   []string
	Scopes  []string
}

type Authorizer interface {
	Require(principal Principal, teamID string, permission string) error
}

// AccessError is a denial with a machine-readable code for the response
// body. It unwraps to ErrForbidden so errors.Is keeps working.
type AccessError struct {
	Code string
}

func (e *AccessError) Error() string { return "access denied: " + e.Code }

func (e *AccessError) Unwrap() error { return ErrForbidden }
