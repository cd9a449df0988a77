// Package model defines domain entities for the application.
package model

import "time"

// Role is a user's role within their team.
type Role string

// Roles, from most to least privileged.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"
)

var roleRank = map[Role]int{
	RoleAdmin:  4,
	RoleMember: 3,
	RoleViewer: 2,
	RoleGuest:  1,
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r is at least as privileged as min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Team is the tenant boundary that groups users and their keys.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User represents a member of a team. This service never mutates users.
type User struct {
	ID          string     `json:"id"`
	TeamID      string     `json:"team_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	SuspendedAt *time.Time `json:"suspended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsSuspended returns true if the user has been suspended.
func (u *User) IsSuspended() bool {
	return u.SuspendedAt != nil
}

// IsAdmin returns true if the user administers their team.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
