package domain

import dErrors "auditflow/pkg/domain-errors"

// Role is fixed at account creation.
type Role string

const (
	RoleUser    Role = "USER"
	RoleAuditor Role = "AUDITOR"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAuditor
}

func (r Role) String() string { return string(r) }

// ParseRole accepts only the exact enumerated spellings.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, `"role" must be one of [USER, AUDITOR]`)
	}
	return r, nil
}

// Identity is the public view of an authenticated user. It is passed
// explicitly into every operation that acts on behalf of someone.
type Identity struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAuditor() bool { return i.Role == RoleAuditor }
func (i Identity) IsUser() bool    { return i.Role == RoleUser }
