package domain

import "fmt"

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleMaster Role = "master"
)

// HasModerationPrivilege is the single place deciding who may approve,
// reject, clear reports and manage other users' content.
func HasModerationPrivilege(role Role) bool {
	switch role {
	case RoleAdmin, RoleMaster:
		return true
	default:
		return false
	}
}

// ParseRole accepts only the known roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleMaster:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role %q", s)
	}
}
