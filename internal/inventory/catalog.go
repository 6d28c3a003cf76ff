package inventory

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

type StockRow struct {
	Item          ledger.InventoryItem `json:"item"`
	ProductCode   string               `json:"product_code"`
	ProductName   string               `json:"product_name"`
	WarehouseName string               `json:"warehouse_name"`
}

type StockFilter struct {
	WarehouseID *int64
	ProductID   *int64
	InStockOnly bool
}

type StockReader interface {
	GetCustomer(ctx context.Context, id string) (ledger.Customer, error)
	// ListStock returns rows of active products in active warehouses, ordered by record id.
	ListStock(ctx context.Context, f StockFilter) ([]StockRow, error)
}

// Catalog answers inventory visibility queries. Only VIP and Premium customers (and staff)
// see records that are out of stock.
type Catalog struct {
	Reader StockReader
}

func (c *Catalog) Visible(ctx context.Context, actor ledger.Actor, f StockFilter) ([]StockRow, error) {
	if c == nil || c.Reader == nil {
		return nil, errors.New("inventory catalog: reader is required")
	}
	if !actor.Elevated() && !actor.HasRole(ledger.RoleFinance) {
		if actor.ID == "" {
			return nil, ledger.ErrForbidden
		}
		cust, err := c.Reader.GetCustomer(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if !cust.Rating.SeesFullInventory() {
			f.InStockOnly = true
		}
	}
	return c.Reader.ListStock(ctx, f)
}
