package entity

import (
	"database/sql/driver"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Product is a catalog row. It changes independently of the orders that
// reference it.
type Product struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Image     string          `db:"image" json:"image"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// LineRequest is one product selected by the buyer.
type LineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Line is a persisted order line. Name, Price and Image are copied from the
// product when the order is created and never re-read; they stay nil when
// the product could not be resolved at that moment.
type Line struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Name      *string          `json:"name,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Image     *string          `json:"image,omitempty"`
}

// Resolved reports whether the line carries a product snapshot.
func (l Line) Resolved() bool { return l.Price != nil }

// Lines is stored as a single JSONB column.
type Lines []Line

func (l Lines) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *Lines) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = Lines{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("order lines: unsupported column type")
	}
	return json.Unmarshal(data, l)
}

// Order is a receipt: its lines are frozen at creation.
type Order struct {
	ID              string              `db:"id" json:"id"`
	UserID          string              `db:"user_id" json:"userId"`
	Lines           Lines               `db:"lines" json:"lines"`
	TotalPrice      decimal.NullDecimal `db:"total_price" json:"totalPrice"`
	PaymentMethodID string              `db:"payment_method_id" json:"paymentMethodId"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`
}
