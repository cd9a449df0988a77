package service

import (
	"github.com/penshort/teamkeys/internal/model"
	"github.com/penshort/teamkeys/internal/repository"
)

// ScopeKind enumerates whose keys a list request may see.
type ScopeKind int

const (
	// ScopeOwn is the actor's own keys.
	ScopeOwn ScopeKind = iota
	// ScopeTeam is every key in the actor's team.
	ScopeTeam
	// ScopeSpecificUser is one named user's keys, within the actor's team.
	ScopeSpecificUser
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeOwn:
		return "own"
	case ScopeTeam:
		return "team"
	case ScopeSpecificUser:
		return "user"
	default:
		return "unknown"
	}
}

// Scope is the resolved visibility of a list request.
type Scope struct {
	Kind   ScopeKind
	TeamID string
	UserID string
}

// ResolveScope decides which keys a list request covers. target is the
// explicitly requested user, already authorized by the caller, or nil.
// An explicit target always wins over the team-wide default.
func ResolveScope(actor *model.User, canListTeam bool, target *model.User) Scope {
	switch {
	case target != nil:
		return Scope{Kind: ScopeSpecificUser, TeamID: actor.TeamID, UserID: target.ID}
	case canListTeam:
		return Scope{Kind: ScopeTeam, TeamID: actor.TeamID}
	default:
		return Scope{Kind: ScopeOwn, TeamID: actor.TeamID, UserID: actor.ID}
	}
}

// Filter translates the scope into a store query. The team boundary is
// always present.
func (s Scope) Filter() repository.APIKeyFilter {
	f := repository.APIKeyFilter{TeamID: s.TeamID}
	if s.Kind != ScopeTeam {
		f.UserID = s.UserID
	}
	return f
}
