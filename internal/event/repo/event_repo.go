package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event/entity"
)

const eventsTable = "events"

var (
	dialect      = goqu.Dialect("postgres")
	eventColumns = []any{"id", "user_id", "name", "description", "start_date", "end_date", "location", "image", "created_at", "updated_at"}
)

// EventRepo is the events table backed by PostgreSQL.
type EventRepo struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Find returns the events selected by q.
func (r *EventRepo) Find(ctx context.Context, q entity.Query) ([]entity.Event, error) {
	query, args, err := findQuery(q)
	if err != nil {
		return nil, err
	}
	rows := []entity.Event{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return rows, nil
}

// Get returns one event. apperror.ErrNotFound when absent.
func (r *EventRepo) Get(ctx context.Context, id string) (*entity.Event, error) {
	query, args, err := dialect.From(eventsTable).Select(eventColumns...).
		Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var e entity.Event
	if err := r.db.GetContext(ctx, &e, query, args...); err != nil {
		return nil, apperror.FromStore(fmt.Errorf("get event: %w", err))
	}
	return &e, nil
}

func (r *EventRepo) Create(ctx context.Context, e *entity.Event) error {
	query, args, err := dialect.Insert(eventsTable).Rows(goqu.Record{
		"id":          e.ID,
		"user_id":     e.UserID,
		"name":        e.Name,
		"description": e.Description,
		"start_date":  e.StartDate,
		"end_date":    e.EndDate,
		"location":    e.Location,
		"image":       e.Image,
		"created_at":  e.CreatedAt,
		"updated_at":  e.UpdatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return apperror.FromStore(fmt.Errorf("insert event: %w", err))
	}
	return nil
}

// Update applies a sparse patch and returns the updated row.
// apperror.ErrNotFound when no event has the id.
func (r *EventRepo) Update(ctx context.Context, id string, p entity.Patch) (*entity.Event, error) {
	query, args, err := updateQuery(id, p, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	var e entity.Event
	if err := r.db.GetContext(ctx, &e, query, args...); err != nil {
		return nil, apperror.FromStore(fmt.Errorf("update event: %w", err))
	}
	return &e, nil
}

// Delete removes an event. apperror.ErrNotFound if nothing was deleted.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	query, args, err := dialect.Delete(eventsTable).Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func findQuery(q entity.Query) (string, []any, error) {
	ds := dialect.From(eventsTable).Select(eventColumns...)
	if q.OwnerID != "" {
		ds = ds.Where(goqu.C("user_id").Eq(q.OwnerID))
	}
	if q.NewestFirst {
		ds = ds.Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	} else {
		ds = ds.Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
	}
	if q.Limit > 0 {
		ds = ds.Limit(q.Limit)
	}
	return ds.Prepared(true).ToSQL()
}

// updateQuery sets only the fields present in p. The caller guarantees p is not empty.
func updateQuery(id string, p entity.Patch, now time.Time) (string, []any, error) {
	rec := goqu.Record{"updated_at": now}
	if p.Name != nil {
		rec["name"] = *p.Name
	}
	if p.Description != nil {
		rec["description"] = *p.Description
	}
	if p.StartDate != nil {
		rec["start_date"] = *p.StartDate
	}
	if p.EndDate != nil {
		rec["end_date"] = *p.EndDate
	}
	if p.Location != nil {
		rec["location"] = *p.Location
	}
	if p.Image != nil {
		rec["image"] = *p.Image
	}
	return dialect.Update(eventsTable).
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Returning(eventColumns...).
		Prepared(true).
		ToSQL()
}
