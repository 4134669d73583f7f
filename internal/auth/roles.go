package auth

import "strings"

// Role is the closed set of privilege levels. A named role keeps room for
// future levels without boolean proliferation.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// NormalizeRole maps arbitrary input onto a known role, defaulting to member.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleMember
	}
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}
