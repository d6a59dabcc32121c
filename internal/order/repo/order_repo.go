package repo

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/order/entity"
)

const ordersTable = "orders"

var orderColumns = []any{"id", "user_id", "lines", "total_price", "payment_method_id", "created_at"}

// OrderRepo stores orders with their frozen lines in a JSONB column.
type OrderRepo struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	q, args, err := insertOrderQuery(o)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return apperror.FromStore(fmt.Errorf("insert order: %w", err))
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*entity.Order, error) {
	q, args, err := dialect.From(ordersTable).Select(orderColumns...).
		Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var o entity.Order
	if err := r.db.GetContext(ctx, &o, q, args...); err != nil {
		return nil, apperror.FromStore(fmt.Errorf("get order: %w", err))
	}
	return &o, nil
}

// ListByBuyer returns a buyer's orders, newest first.
func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID string) ([]entity.Order, error) {
	q, args, err := listByBuyerQuery(buyerID)
	if err != nil {
		return nil, err
	}
	rows := []entity.Order{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return rows, nil
}

func insertOrderQuery(o *entity.Order) (string, []any, error) {
	return dialect.Insert(ordersTable).Rows(goqu.Record{
		"id":                o.ID,
		"user_id":           o.UserID,
		"lines":             o.Lines,
		"total_price":       o.TotalPrice,
		"payment_method_id": o.PaymentMethodID,
		"created_at":        o.CreatedAt,
	}).Prepared(true).ToSQL()
}

func listByBuyerQuery(buyerID string) (string, []any, error) {
	return dialect.From(ordersTable).Select(orderColumns...).
		Where(goqu.C("user_id").Eq(buyerID)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Prepared(true).
		ToSQL()
}
