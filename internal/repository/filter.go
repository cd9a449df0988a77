package repository

import (
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/penshort/teamkeys/internal/model"
)

// ErrFilterMissingTeam is returned when a key query has no team boundary.
var ErrFilterMissingTeam = errors.New("api key filter requires a team")

// APIKeyFilter selects keys by their owner's team and, optionally, owner.
type APIKeyFilter struct {
	TeamID string
	UserID string
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const apiKeyColumns = "k.id, k.user_id, k.name, k.key_hash, k.key_prefix, k.last4, k.scope, " +
	"k.expires_at, k.last_active_at, k.created_at, k.updated_at, u.team_id"

// where applies the filter to a builder joined against users.
func (f APIKeyFilter) where(b sq.SelectBuilder) (sq.SelectBuilder, error) {
	if f.TeamID == "" {
		return b, ErrFilterMissingTeam
	}
	b = b.Join("users u ON u.id = k.user_id").Where(sq.Eq{"u.team_id": f.TeamID})
	if f.UserID != "" {
		b = b.Where(sq.Eq{"u.id": f.UserID})
	}
	return b, nil
}

func buildListQuery(f APIKeyFilter, page model.Page) (string, []any, error) {
	b, err := f.where(psql.Select(apiKeyColumns).From("api_keys k"))
	if err != nil {
		return "", nil, err
	}
	return b.OrderBy("k.created_at DESC", "k.id DESC").
		Offset(uint64(page.Offset)).
		Limit(uint64(page.Limit)).
		ToSql()
}

func buildCountQuery(f APIKeyFilter) (string, []any, error) {
	b, err := f.where(psql.Select("COUNT(*)").From("api_keys k"))
	if err != nil {
		return "", nil, err
	}
	return b.ToSql()
}
