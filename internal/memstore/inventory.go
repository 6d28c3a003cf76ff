package memstore

import (
	"context"

	"github.com/ariefcatur/go-parts-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

type InventoryStore struct{ db *DB }

func (db *DB) Inventory() *InventoryStore { return &InventoryStore{db: db} }

func (s *InventoryStore) GetCustomer(_ context.Context, id string) (c ledger.Customer, err error) {
	s.db.read(func(st *state) {
		var ok bool
		if c, ok = st.customers[id]; !ok {
			err = ledger.NotFound("customer %s", id)
		}
	})
	return c, err
}

func (s *InventoryStore) ListStock(_ context.Context, f inventory.StockFilter) ([]inventory.StockRow, error) {
	var items []ledger.InventoryItem
	var rows []inventory.StockRow
	s.db.read(func(st *state) {
		for _, it := range st.inventory {
			if f.WarehouseID != nil && it.WarehouseID != *f.WarehouseID {
				continue
			}
			if f.ProductID != nil && it.ProductID != *f.ProductID {
				continue
			}
			if f.InStockOnly && it.QuantityInStock <= 0 {
				continue
			}
			p, ok := st.products[it.ProductID]
			if !ok || !p.Active {
				continue
			}
			if w, ok := st.warehouses[it.WarehouseID]; ok && !w.Active {
				continue
			}
			items = append(items, it)
		}
		for _, it := range sortedInventory(items) {
			p := st.products[it.ProductID]
			rows = append(rows, inventory.StockRow{
				Item:          it,
				ProductCode:   p.Code,
				ProductName:   p.Name,
				WarehouseName: st.warehouses[it.WarehouseID].Name,
			})
		}
	})
	return rows, nil
}
