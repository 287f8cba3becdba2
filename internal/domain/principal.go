package domain

// Role is the closed set of principal variants
type Role string

const (
	RoleRequester Role = "STUDENT"
	RoleResponder Role = "COMPANY"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleResponder, RoleAdmin:
		return true
	}
	return false
}

// Principal is an authenticated actor
type Principal struct {
	ID   uint64 `json:"id"`
	Role Role   `json:"role"`
}

// CanRequest reports whether the principal may submit chat requests
func (p Principal) CanRequest() bool { return p.Role == RoleRequester }

// CanRespond reports whether the principal may accept or reject chat requests
func (p Principal) CanRespond() bool { return p.Role == RoleResponder }

// IsAdmin reports whether the principal has admin privileges
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
