package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/order/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/fanout"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

var tracer = otel.Tracer("github.com/ovaphlow/pitchfork/service-community-go/internal/order")

var ErrOrderNotFound = fmt.Errorf("order %w", apperror.ErrNotFound)

// ProductReader resolves catalog products by id.
type ProductReader interface {
	Get(ctx context.Context, id string) (*entity.Product, error)
}

// Store persists orders.
type Store interface {
	Create(ctx context.Context, o *entity.Order) error
	Get(ctx context.Context, id string) (*entity.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]entity.Order, error)
}

// CreateRequest is what a buyer submits. TotalPrice is optional.
type CreateRequest struct {
	Lines           []entity.LineRequest `json:"selectedProducts"`
	TotalPrice      *decimal.Decimal     `json:"totalPrice"`
	PaymentMethodID string               `json:"paymentMethodId"`
}

// Service writes orders whose lines are frozen copies of the catalog.
type Service struct {
	store    Store
	products ProductReader
	logger   *zap.SugaredLogger
}

func NewService(store Store, products ProductReader, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, products: products, logger: logger}
}

// Create resolves every line's product concurrently, freezes the resolved
// ones and persists the order. A product that cannot be resolved leaves its
// line without a snapshot; it never fails the order.
func (s *Service) Create(ctx context.Context, buyerID string, req CreateRequest) (*entity.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Create")
	defer span.End()
	span.SetAttributes(attribute.Int("order.lines", len(req.Lines)))

	if err := validate(buyerID, req); err != nil {
		return nil, err
	}

	results := fanout.Map(ctx, req.Lines, fanout.DefaultLimit, func(ctx context.Context, l entity.LineRequest) (*entity.Product, error) {
		return s.products.Get(ctx, l.ProductID)
	})
	resolved := make(map[string]entity.Product, len(results))
	for i, res := range results {
		if res.Err != nil {
			s.logger.Warnw("product unresolved, line left without snapshot",
				"product_id", req.Lines[i].ProductID, "not_found", errors.Is(res.Err, apperror.ErrNotFound), "err", res.Err)
			continue
		}
		resolved[req.Lines[i].ProductID] = *res.Value
	}

	o := &entity.Order{
		ID:              utilities.NewKSUID(),
		UserID:          buyerID,
		Lines:           FreezeLines(req.Lines, resolved),
		PaymentMethodID: req.PaymentMethodID,
		CreatedAt:       time.Now().UTC(),
	}
	if req.TotalPrice != nil {
		o.TotalPrice = decimal.NewNullDecimal(*req.TotalPrice)
	} else {
		o.TotalPrice = decimal.NewNullDecimal(Total(o.Lines))
	}

	if err := s.store.Create(ctx, o); err != nil {
		s.logger.Errorw("create order failed", "user_id", buyerID, "err", err)
		return nil, err
	}
	s.logger.Infow("order created", "order_id", o.ID, "user_id", buyerID, "lines", len(o.Lines), "resolved", len(resolved))
	return o, nil
}

// Get returns one of the caller's orders as stored.
func (s *Service) Get(ctx context.Context, buyerID, id string) (*entity.Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		s.logger.Errorw("get order failed", "order_id", id, "err", err)
		return nil, err
	}
	if o.UserID != buyerID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string) ([]entity.Order, error) {
	orders, err := s.store.ListByBuyer(ctx, buyerID)
	if err != nil {
		s.logger.Errorw("list orders failed", "user_id", buyerID, "err", err)
		return nil, err
	}
	return orders, nil
}

func validate(buyerID string, req CreateRequest) error {
	var errs []apperror.FieldError
	if strings.TrimSpace(buyerID) == "" {
		errs = append(errs, apperror.FieldError{Field: "userId", Message: "userId is required"})
	}
	if len(req.Lines) == 0 {
		errs = append(errs, apperror.FieldError{Field: "selectedProducts", Message: "at least one product is required"})
	}
	for i, l := range req.Lines {
		if strings.TrimSpace(l.ProductID) == "" {
			errs = append(errs, apperror.FieldError{Field: fmt.Sprintf("selectedProducts[%d].productId", i), Message: "productId is required"})
		}
		if l.Quantity < 1 {
			errs = append(errs, apperror.FieldError{Field: fmt.Sprintf("selectedProducts[%d].quantity", i), Message: "quantity must be at least 1"})
		}
	}
	if req.TotalPrice != nil && req.TotalPrice.IsNegative() {
		errs = append(errs, apperror.FieldError{Field: "totalPrice", Message: "totalPrice must not be negative"})
	}
	return apperror.Validation(errs...)
}
