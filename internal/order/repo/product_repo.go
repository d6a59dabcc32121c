package repo

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/order/entity"
)

var dialect = goqu.Dialect("postgres")

// ProductRepo reads the product catalog.
type ProductRepo struct {
	db *sqlx.DB
}

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// Get returns the product's current state; apperror.ErrNotFound when absent.
func (r *ProductRepo) Get(ctx context.Context, id string) (*entity.Product, error) {
	q, args, err := productQuery(id)
	if err != nil {
		return nil, err
	}
	var p entity.Product
	if err := r.db.GetContext(ctx, &p, q, args...); err != nil {
		return nil, apperror.FromStore(fmt.Errorf("get product: %w", err))
	}
	return &p, nil
}

func productQuery(id string) (string, []any, error) {
	return dialect.From("products").
		Select("id", "name", "price", "image", "created_at", "updated_at").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
}
