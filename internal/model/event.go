package model

import "time"

// Audit event names.
const (
	EventAPIKeyCreate = "api_keys.create"
	EventAPIKeyDelete = "api_keys.delete"
)

// Event is an append-only audit record of a mutating operation.
type Event struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	ActorID   string         `json:"actor_id"`
	TeamID    string         `json:"team_id"`
	ModelID   string         `json:"model_id"`
	Data      map[string]any `json:"data,omitempty"`
	IP        string         `json:"ip,omitempty"`
	AuthType  AuthType       `json:"auth_type,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
