package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/penshort/teamkeys/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrAPIKeyExists   = errors.New("API key already exists")
)

// CreateAPIKey inserts a new API key into the database.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, last4, scope, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		key.ID,
		key.UserID,
		key.Name,
		key.KeyHash,
		key.KeyPrefix,
		key.Last4,
		pq.Array(key.Scope),
		key.ExpiresAt,
		key.CreatedAt,
		key.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrAPIKeyExists
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyForUpdate retrieves a key by ID and locks its row until the
// enclosing transaction ends. Outside a transaction the lock is released
// immediately.
func (r *Repository) GetAPIKeyForUpdate(ctx context.Context, id string) (*model.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.id = $1
		FOR UPDATE OF k
	`

	return scanAPIKey(r.db.QueryRow(ctx, query, id))
}

// GetAPIKeysByPrefix retrieves all API keys matching a prefix.
// Used during authentication to find candidate keys for verification.
func (r *Repository) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.key_prefix = $1
	`

	rows, err := r.db.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get API keys by prefix: %w", err)
	}
	return collectAPIKeys(rows)
}

// ListAPIKeys returns a page of keys matching the filter, newest first.
func (r *Repository) ListAPIKeys(ctx context.Context, filter APIKeyFilter, page model.Page) ([]*model.APIKey, error) {
	query, args, err := buildListQuery(filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to build API key query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return collectAPIKeys(rows)
}

// CountAPIKeys returns the number of keys matching the filter.
func (r *Repository) CountAPIKeys(ctx context.Context, filter APIKeyFilter) (int, error) {
	query, args, err := buildCountQuery(filter)
	if err != nil {
		return 0, fmt.Errorf("failed to build API key count: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count API keys: %w", err)
	}
	return total, nil
}

// DeleteAPIKey removes a key permanently.
func (r *Repository) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// TouchAPIKey updates last_active_at.
// Should be called asynchronously after successful authentication.
func (r *Repository) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE api_keys
		SET last_active_at = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to update API key last active: %w", err)
	}

	return nil
}

// scanAPIKey scans a single row into an APIKey model.
func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	key, err := scanAPIKeyColumns(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to scan API key: %w", err)
	}
	return key, nil
}

func collectAPIKeys(rows pgx.Rows) ([]*model.APIKey, error) {
	defer rows.Close()

	keys := make([]*model.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKeyColumns(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}

func scanAPIKeyColumns(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey
	var scope []string

	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.Last4,
		pq.Array(&scope),
		&key.ExpiresAt,
		&key.LastActiveAt,
		&key.CreatedAt,
		&key.UpdatedAt,
		&key.TeamID,
	)
	if err != nil {
		return nil, err
	}

	key.Scope = scope
	return &key, nil
}
