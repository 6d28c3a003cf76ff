package rejections

import (
	"context"
	"time"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// ListBetween returns rejections dated within [from, to], joined with display names.
	ListBetween(ctx context.Context, from, to time.Time) ([]Record, error)
}

type Tx interface {
	GetProduct(ctx context.Context, id int64) (ledger.Product, error)
	GetCustomer(ctx context.Context, id string) (ledger.Customer, error)
	// OrderOwner returns the customer that placed the order.
	OrderOwner(ctx context.Context, orderID int64) (string, error)
	InsertRejection(ctx context.Context, r *ledger.MaterialRejection) error
	LockRejection(ctx context.Context, id int64) (ledger.MaterialRejection, error)
	UpdateRejection(ctx context.Context, r ledger.MaterialRejection) error
}

type Record struct {
	Rejection    ledger.MaterialRejection
	ProductName  string
	CustomerName string
}
