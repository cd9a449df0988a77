package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/penshort/teamkeys/internal/model"
)

// ErrTeamNotFound is returned when a team does not exist.
var ErrTeamNotFound = errors.New("team not found")

// CreateTeam inserts a new team.
func (r *Repository) CreateTeam(ctx context.Context, team *model.Team) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO teams (id, name, created_at) VALUES ($1, $2, $3)`,
		team.ID, team.Name, team.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetTeamByID retrieves a team by its ID.
func (r *Repository) GetTeamByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM teams WHERE id = $1`, id,
	).Scan(&team.ID, &team.Name, &team.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by ID: %w", err)
	}
	return &team, nil
}
