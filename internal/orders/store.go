package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

// Store is the transactional data-access boundary of the fulfillment engine.
type Store interface {
	// WithinTx runs fn as one unit of work. Any error from fn, a cancelled ctx or a failed
	// commit rolls everything back. Lock waits past the configured timeout surface as
	// ledger.ErrContention.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetOrder(ctx context.Context, id int64) (ledger.Order, error)
	GetInvoiceByOrder(ctx context.Context, orderID int64) (ledger.Invoice, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]ledger.Product, error)
}

// Tx is the view of the store inside a unit of work. Lock* methods take exclusive row locks
// held until commit or rollback.
type Tx interface {
	LockCustomer(ctx context.Context, id string) (ledger.Customer, error)
	SetCustomerBalance(ctx context.Context, id string, balance decimal.Decimal) error

	GetProducts(ctx context.Context, ids []int64) (map[int64]ledger.Product, error)

	// LockInventory locks every record for the given products, in id order. A nil warehouse
	// means all active warehouses.
	LockInventory(ctx context.Context, warehouseID *int64, productIDs []int64) ([]ledger.InventoryItem, error)
	LockInventoryByIDs(ctx context.Context, ids []int64) ([]ledger.InventoryItem, error)
	SaveInventory(ctx context.Context, items []ledger.InventoryItem) error

	FindOrderByExternalID(ctx context.Context, customerID, externalID string) (ledger.Order, bool, error)
	NextOrderID(ctx context.Context) (int64, error)
	// InsertOrder persists the order and its items and assigns item ids.
	InsertOrder(ctx context.Context, order *ledger.Order) error
	LockOrder(ctx context.Context, id int64) (ledger.Order, error)
	UpdateOrderStatus(ctx context.Context, order ledger.Order) error

	InsertAllocations(ctx context.Context, allocations []ledger.Allocation) error
	ListAllocations(ctx context.Context, orderID int64) ([]ledger.Allocation, error)
	ReleaseAllocations(ctx context.Context, orderID int64) error

	// InsertInvoice fails with ledger.ErrIntegrity on a duplicate invoice number or order.
	InsertInvoice(ctx context.Context, inv *ledger.Invoice) error
	GetInvoiceByOrder(ctx context.Context, orderID int64) (ledger.Invoice, error)
	SetInvoiceStatus(ctx context.Context, orderID int64, status ledger.InvoiceStatus) error
}

// TrackCache is an optional read-through cache for tracking views. Store must keep a cached
// view that the new one does not supersede.
type TrackCache interface {
	Load(ctx context.Context, orderID int64) (TrackingView, bool)
	Store(ctx context.Context, view TrackingView)
	Invalidate(ctx context.Context, orderID int64)
}
