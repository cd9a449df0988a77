package audit

import (
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/penshort/teamkeys/internal/model"
)

var knownEvents = map[string]bool{
	model.EventAPIKeyCreate: true,
	model.EventAPIKeyDelete: true,
}

// ValidatePayload checks a stream payload before it is published.
func ValidatePayload(p StreamPayload) error {
	if _, err := ulid.ParseStrict(p.ID); err != nil {
		return errors.New("id must be a ULID")
	}
	if !knownEvents[p.Name] {
		return errors.New("unknown event name " + p.Name)
	}
	if p.ActorID == "" {
		return errors.New("actor is required")
	}
	if p.TeamID == "" {
		return errors.New("team is required")
	}
	if p.ModelID == "" {
		return errors.New("model is required")
	}
	if p.CreatedAt <= 0 {
		return errors.New("created_at must be set")
	}
	return nil
}
