// Package audit records append-only events for mutating operations.
//
// Events are written through the same Store as the mutation, so inside a
// transaction they commit or roll back together with it. After commit the
// Publisher copies them to a Redis stream for downstream consumers.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/penshort/teamkeys/internal/model"
)

// EventWriter persists events.
type EventWriter interface {
	CreateEvent(ctx context.Context, event *model.Event) error
}

// Source is the request context an event is attributed to.
type Source struct {
	RequestID string
	IP        string
	AuthType  model.AuthType
}

// Recorder builds and writes audit events.
type Recorder struct {
	now func() time.Time
}

// NewRecorder creates a Recorder. A nil clock uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Record writes one event for the given actor and model through w and
// returns it.
func (r *Recorder) Record(ctx context.Context, w EventWriter, name string, actor *model.User, modelID string, data map[string]any, src Source) (*model.Event, error) {
	at := r.now().UTC()
	event := &model.Event{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Name:      name,
		ActorID:   actor.ID,
		TeamID:    actor.TeamID,
		ModelID:   modelID,
		Data:      data,
		IP:        src.IP,
		AuthType:  src.AuthType,
		RequestID: src.RequestID,
		CreatedAt: at,
	}

	if err := w.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record %s: %w", name, err)
	}
	return event, nil
}
