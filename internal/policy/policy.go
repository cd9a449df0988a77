// Package policy decides whether an actor may perform an action on a
// resource. Rules are attribute-based and evaluated by casbin.
package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"github.com/penshort/teamkeys/internal/apperr"
	"github.com/penshort/teamkeys/internal/metrics"
	"github.com/penshort/teamkeys/internal/model"
)

// Action names a capability.
type Action string

// Actions understood by the engine.
const (
	ActionCreateAPIKey Action = "createApiKey"
	ActionListAPIKeys  Action = "listApiKeys"
	ActionDelete       Action = "delete"
)

// Resource kinds.
const (
	KindTeam   = "team"
	KindUser   = "user"
	KindAPIKey = "apiKey"
)

// Subject is the actor as seen by the rules. Fields are plain types so
// rule expressions compare them directly.
type Subject struct {
	ID        string
	TeamID    string
	Role      string
	Suspended bool
}

// Resource is the target of an action.
type Resource struct {
	Kind    string
	ID      string
	TeamID  string
	OwnerID string
}

// SubjectOf builds the rule subject for a user.
func SubjectOf(u *model.User) Subject {
	return Subject{
		ID:        u.ID,
		TeamID:    u.TeamID,
		Role:      string(u.Role),
		Suspended: u.IsSuspended(),
	}
}

// TeamResource targets a team.
func TeamResource(teamID string) *Resource {
	return &Resource{Kind: KindTeam, ID: teamID, TeamID: teamID}
}

// UserResource targets a user.
func UserResource(u *model.User) *Resource {
	return &Resource{Kind: KindUser, ID: u.ID, TeamID: u.TeamID, OwnerID: u.ID}
}

// APIKeyResource targets a key. The key's TeamID must be populated.
func APIKeyResource(k *model.APIKey) *Resource {
	return &Resource{Kind: KindAPIKey, ID: k.ID, TeamID: k.TeamID, OwnerID: k.UserID}
}

// Decision is the outcome of a capability check.
type Decision struct {
	Allowed bool
	Action  Action
	Reason  string
}

// Checker evaluates capability checks without side effects on the request.
type Checker interface {
	Check(ctx context.Context, actor *model.User, action Action, target *Resource) Decision
}

// Authorize runs a check and converts a deny into an authorization error.
func Authorize(ctx context.Context, c Checker, actor *model.User, action Action, target *Resource) error {
	d := c.Check(ctx, actor, action, target)
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden("Authorization error")
}

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = act, rule

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.act == p.act && eval(p.rule)
`

// rules maps each action to the attribute expressions that allow it.
// A request is allowed when any rule for its action holds.
var rules = []struct {
	action Action
	rule   string
}{
	{ActionCreateAPIKey, "r.obj.Kind == 'team' && r.sub.TeamID == r.obj.ID && !r.sub.Suspended && (r.sub.Role == 'admin' || r.sub.Role == 'member')"},
	{ActionListAPIKeys, "r.obj.Kind == 'team' && r.sub.TeamID == r.obj.ID && !r.sub.Suspended && r.sub.Role == 'admin'"},
	{ActionListAPIKeys, "r.obj.Kind == 'user' && r.sub.TeamID == r.obj.TeamID && !r.sub.Suspended && (r.sub.ID == r.obj.ID || r.sub.Role == 'admin')"},
	{ActionDelete, "r.obj.Kind == 'apiKey' && r.sub.TeamID == r.obj.TeamID && !r.sub.Suspended && (r.sub.ID == r.obj.OwnerID || r.sub.Role == 'admin')"},
}

// Enforcer is the casbin-backed Checker.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// New builds an Enforcer loaded with the built-in rules.
func New(recorder metrics.Recorder, logger *slog.Logger) (*Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("parse policy model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, r := range rules {
		if _, err := e.AddPolicy(string(r.action), r.rule); err != nil {
			return nil, fmt.Errorf("add policy for %s: %w", r.action, err)
		}
	}

	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Enforcer{enforcer: e, metrics: recorder, logger: logger}, nil
}

// Check evaluates the rules for action. A nil actor or target is denied.
// Engine errors deny and are logged.
func (e *Enforcer) Check(ctx context.Context, actor *model.User, action Action, target *Resource) Decision {
	d := Decision{Action: action}

	switch {
	case actor == nil:
		d.Reason = "no actor"
	case target == nil:
		d.Reason = "no target"
	default:
		allowed, err := e.enforcer.Enforce(SubjectOf(actor), *target, string(action))
		if err != nil {
			e.logger.ErrorContext(ctx, "policy evaluation failed",
				slog.String("action", string(action)),
				slog.String("error", err.Error()),
			)
			d.Reason = "evaluation error"
			break
		}
		d.Allowed = allowed
		if !allowed {
			d.Reason = "no rule allows " + string(action) + " on " + target.Kind
		}
	}

	e.metrics.IncAuthzDecision(string(action), d.Allowed)
	return d
}
