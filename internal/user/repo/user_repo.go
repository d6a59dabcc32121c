package repo

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/user/entity"
)

var dialect = goqu.Dialect("postgres")

// UserRepo reads public profiles from the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// ProfilesByIDs fetches every profile in ids with one query and returns them
// keyed by id. Ids with no row are simply absent from the map.
func (r *UserRepo) ProfilesByIDs(ctx context.Context, ids []string) (map[string]entity.Profile, error) {
	out := make(map[string]entity.Profile, len(ids))
	ids = uniqueNonEmpty(ids)
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := profilesQuery(ids)
	if err != nil {
		return nil, err
	}
	var rows []entity.Profile
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func profilesQuery(ids []string) (string, []any, error) {
	return dialect.From("users").
		Select("id", "username", "first_name", "last_name", "image").
		Where(goqu.C("id").In(ids)).
		Prepared(true).
		ToSQL()
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
