package app

import (
	"context"

	"github.com/avgystin/practicalwork/internal/catalog"
	"github.com/avgystin/practicalwork/internal/clock"
	"github.com/avgystin/practicalwork/internal/domain"
)

// OrderStore is the durable store contract. FindByID returns nil, nil and
// DeleteByID returns false, nil when the order does not exist.
type OrderStore interface {
	Save(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

type PriceCatalog interface {
	Price(name string) (int64, bool)
	Products() []catalog.Product
}

const defaultMaxOrderQuantity = 10_000

type OrderLedger struct {
	store       OrderStore
	catalog     PriceCatalog
	clock       clock.Clock
	maxQuantity int
}

type OrderLedgerOption func(*OrderLedger)

// WithMaxOrderQuantity overrides the per-order quantity ceiling.
func WithMaxOrderQuantity(n int) OrderLedgerOption {
	return func(l *OrderLedger) {
		if n > 0 {
			l.maxQuantity = n
		}
	}
}

func NewOrderLedger(store OrderStore, cat PriceCatalog, clk clock.Clock, opts ...OrderLedgerOption) *OrderLedger {
	l := &OrderLedger{
		store:       store,
		catalog:     cat,
		clock:       clk,
		maxQuantity: defaultMaxOrderQuantity,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type CreateOrderInput struct {
	SessionToken string
	ProductName  string
	Quantity     int
}

// Create prices the product and persists a new order.
func (l *OrderLedger) Create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if in.Quantity <= 0 || in.Quantity > l.maxQuantity {
		return domain.Order{}, domain.ErrInvalidQuantity
	}
	unitPrice, ok := l.catalog.Price(in.ProductName)
	if !ok {
		return domain.Order{}, domain.ErrProductNotFound
	}

	order := domain.Order{
		ExternalID:   newUUID(),
		SessionToken: in.SessionToken,
		ProductName:  in.ProductName,
		Quantity:     in.Quantity,
		UnitPrice:    unitPrice,
		TotalPrice:   unitPrice * int64(in.Quantity),
		CreatedAt:    l.clock.Now(),
	}

	saved, err := l.store.Save(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	return saved, nil
}

// GetByID returns the order only when the caller also names its product.
func (l *OrderLedger) GetByID(ctx context.Context, id int64, expectedProduct string) (domain.Order, error) {
	order, err := l.store.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.ProductName != expectedProduct {
		return domain.Order{}, domain.ErrProductMismatch
	}
	return *order, nil
}

// DeleteByID removes the order. A missing order is reported as false, not an error.
func (l *OrderLedger) DeleteByID(ctx context.Context, id int64) (bool, error) {
	return l.store.DeleteByID(ctx, id)
}

// Products lists the catalog in display order.
func (l *OrderLedger) Products() []catalog.Product {
	return l.catalog.Products()
}
