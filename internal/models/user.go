package models

import "time"

const (
	RoleUser       = "user"
	RoleListener   = "listener"
	RoleSupport    = "support"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superAdmin"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Roles        []string  `json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsSupportStaff reports whether the user's role or any of its extra roles
// grants support capability. Normalized once at connection time; event
// handlers only ever see the resolved capability.
func IsSupportStaff(role string, roles []string) bool {
	if role == RoleSupport || role == RoleSuperAdmin {
		return true
	}
	for _, r := range roles {
		if r == RoleSupport || r == RoleSuperAdmin {
			return true
		}
	}
	return false
}
