package repo

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event/entity"
)

const participationsTable = "participations"

var participationColumns = []any{"id", "event_id", "user_id", "created_at"}

// ParticipationRepo is the participations table backed by PostgreSQL.
type ParticipationRepo struct {
	db *sqlx.DB
}

func NewParticipationRepo(db *sqlx.DB) *ParticipationRepo {
	return &ParticipationRepo{db: db}
}

// ListByEvent returns the participations of one event in join order.
func (r *ParticipationRepo) ListByEvent(ctx context.Context, eventID string) ([]entity.Participation, error) {
	query, args, err := dialect.From(participationsTable).Select(participationColumns...).
		Where(goqu.C("event_id").Eq(eventID)).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	rows := []entity.Participation{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select participations: %w", err)
	}
	return rows, nil
}

// CountByEvent counts participation rows without reading them.
func (r *ParticipationRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	query, args, err := countQuery(eventID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count participations: %w", err)
	}
	return n, nil
}

// Create stores a participation; apperror.ErrConflict if the user already joined.
func (r *ParticipationRepo) Create(ctx context.Context, p *entity.Participation) error {
	query, args, err := dialect.Insert(participationsTable).Rows(goqu.Record{
		"id":         p.ID,
		"event_id":   p.EventID,
		"user_id":    p.UserID,
		"created_at": p.CreatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return apperror.FromStore(fmt.Errorf("insert participation: %w", err))
	}
	return nil
}

// Delete removes one user's participation; apperror.ErrNotFound when absent.
func (r *ParticipationRepo) Delete(ctx context.Context, eventID, userID string) error {
	n, err := r.deleteWhere(ctx, goqu.Ex{"event_id": eventID, "user_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// DeleteByEvent removes every participation of an event and reports how many.
func (r *ParticipationRepo) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	return r.deleteWhere(ctx, goqu.Ex{"event_id": eventID})
}

func (r *ParticipationRepo) deleteWhere(ctx context.Context, where goqu.Ex) (int64, error) {
	query, args, err := dialect.Delete(participationsTable).Where(where).Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete participations: %w", err)
	}
	return res.RowsAffected()
}

func countQuery(eventID string) (string, []any, error) {
	return dialect.From(participationsTable).
		Select(goqu.COUNT("*")).
		Where(goqu.C("event_id").Eq(eventID)).
		Prepared(true).
		ToSQL()
}
