package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment/entity"
)

const table = "comments"

var (
	dialect = goqu.Dialect("postgres")
	columns = []any{"id", "post_id", "user_id", "comment", "created_at", "updated_at"}
)

// CommentRepo is the comments table backed by PostgreSQL.
type CommentRepo struct {
	db *sqlx.DB
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// ListByPost returns the comments of a post, oldest first.
func (r *CommentRepo) ListByPost(ctx context.Context, postID string) ([]entity.Comment, error) {
	q, args, err := listByPostQuery(postID)
	if err != nil {
		return nil, err
	}
	rows := []entity.Comment{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	return rows, nil
}

func (r *CommentRepo) Create(ctx context.Context, c *entity.Comment) error {
	q, args, err := dialect.Insert(table).Rows(goqu.Record{
		"id":         c.ID,
		"post_id":    c.PostID,
		"user_id":    c.UserID,
		"comment":    c.Text,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return apperror.FromStore(fmt.Errorf("insert comment: %w", err))
	}
	return nil
}

// UpdateText replaces the text of a comment and returns the updated row.
// apperror.ErrNotFound when no comment has the id.
func (r *CommentRepo) UpdateText(ctx context.Context, id, text string) (*entity.Comment, error) {
	q, args, err := dialect.Update(table).
		Set(goqu.Record{"comment": text, "updated_at": time.Now().UTC()}).
		Where(goqu.C("id").Eq(id)).
		Returning(columns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	var c entity.Comment
	if err := r.db.GetContext(ctx, &c, q, args...); err != nil {
		return nil, apperror.FromStore(fmt.Errorf("update comment: %w", err))
	}
	return &c, nil
}

// Delete removes a comment. apperror.ErrNotFound if nothing was deleted.
func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	q, args, err := dialect.Delete(table).Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
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

func listByPostQuery(postID string) (string, []any, error) {
	return dialect.From(table).
		Select(columns...).
		Where(goqu.C("post_id").Eq(postID)).
		Order(goqu.C("created_at").Asc()).
		Prepared(true).
		ToSQL()
}
