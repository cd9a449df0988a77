package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/penshort/teamkeys/internal/model"
)

// CreateEvent appends an audit event. Inside WithTx it commits or rolls
// back together with the mutation it describes.
func (r *Repository) CreateEvent(ctx context.Context, event *model.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}

	query := `
		INSERT INTO events (id, name, actor_id, team_id, model_id, data, ip, auth_type, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)
	`

	_, err = r.db.Exec(ctx, query,
		event.ID,
		event.Name,
		event.ActorID,
		event.TeamID,
		event.ModelID,
		data,
		event.IP,
		string(event.AuthType),
		event.RequestID,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// ListEventsByModel returns events for a model, oldest first.
func (r *Repository) ListEventsByModel(ctx context.Context, modelID string) ([]*model.Event, error) {
	query := `
		SELECT id, name, actor_id, team_id, model_id, data,
		       COALESCE(ip, ''), COALESCE(auth_type, ''), COALESCE(request_id, ''), created_at
		FROM events
		WHERE model_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var (
			e    model.Event
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.ActorID, &e.TeamID, &e.ModelID, &data,
			&e.IP, &e.AuthType, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event data: %w", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
