package domain

import "strings"

// Role is the closed set of privilege levels a user can hold.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
	RoleSuperAdmin  Role = "super_admin"
)

var knownRoles = map[Role]struct{}{
	RoleParticipant: {},
	RoleAdmin:       {},
	RoleSuperAdmin:  {},
}

// ParseRole converts raw input into a Role. An empty string yields participant.
func ParseRole(raw string) (Role, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return RoleParticipant, nil
	}
	r := Role(raw)
	if !r.Valid() {
		return "", NewValidationError("role", "must be one of participant, admin, super_admin")
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) CanSubmitQuiz() bool { return r == RoleParticipant }

// IsAdmin reports admin-level access; super admins are admins too.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

func (r Role) IsSuperAdmin() bool { return r == RoleSuperAdmin }

// Allows reports whether r is one of the required roles. No requirement means any valid role.
func (r Role) Allows(required ...Role) bool {
	if !r.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}

var (
	AdminRoles      = []Role{RoleAdmin, RoleSuperAdmin}
	SuperAdminRoles = []Role{RoleSuperAdmin}
)
