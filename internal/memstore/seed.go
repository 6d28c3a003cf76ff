package memstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

// SeedCatalog loads the reference warehouses, products and stock used for local runs, plus
// one demo customer per rating tier of interest.
func (db *DB) SeedCatalog(now time.Time) {
	for _, w := range []ledger.Warehouse{
		{ID: 1, Name: "Main Warehouse", Active: true},
		{ID: 2, Name: "North Warehouse", Active: true},
		{ID: 3, Name: "South Warehouse", Active: true},
		{ID: 4, Name: "West Warehouse", Active: true},
	} {
		db.PutWarehouse(w)
	}

	for _, p := range []ledger.Product{
		{ID: 1, Code: "TW001", Name: "Two-Wheeler Brake Pad", UnitPrice: decimal.RequireFromString("250.00"), Category: ledger.CategoryTwoWheeler, Active: true},
		{ID: 2, Code: "TW002", Name: "Two-Wheeler Air Filter", UnitPrice: decimal.RequireFromString("150.00"), Category: ledger.CategoryTwoWheeler, Active: true},
		{ID: 3, Code: "FW001", Name: "Four-Wheeler Brake Disc", UnitPrice: decimal.RequireFromString("1500.00"), Category: ledger.CategoryFourWheeler, Active: true},
		{ID: 4, Code: "FW002", Name: "Four-Wheeler Oil Filter", UnitPrice: decimal.RequireFromString("300.00"), Category: ledger.CategoryFourWheeler, Active: true},
		{ID: 5, Code: "TW003", Name: "Two-Wheeler Spark Plug", UnitPrice: decimal.RequireFromString("80.00"), Category: ledger.CategoryTwoWheeler, Active: true},
	} {
		db.PutProduct(p)
	}

	stock := []struct {
		id, product, warehouse int64
		qty, reorder, eoq      int
	}{
		{1, 1, 1, 500, 100, 200},
		{2, 2, 1, 300, 50, 150},
		{3, 3, 1, 200, 40, 100},
		{4, 1, 2, 400, 80, 180},
		{5, 4, 2, 250, 60, 120},
		{6, 2, 3, 350, 70, 160},
		{7, 5, 3, 600, 120, 250},
		{8, 3, 4, 150, 30, 80},
		{9, 4, 4, 280, 55, 130},
	}
	for _, s := range stock {
		db.PutInventory(ledger.InventoryItem{
			ID:                    s.id,
			ProductID:             s.product,
			WarehouseID:           s.warehouse,
			QuantityInStock:       s.qty,
			ReorderPoint:          s.reorder,
			EconomicOrderQuantity: s.eoq,
			LastUpdated:           now,
		})
	}

	db.PutCustomer(ledger.Customer{
		ID:          "demo-regular",
		CompanyName: "Demo Motors",
		CreditLimit: decimal.NewFromInt(100000),
		Rating:      ledger.RatingRegular,
	})
	db.PutCustomer(ledger.Customer{
		ID:          "demo-vip",
		CompanyName: "Demo Fleet Services",
		CreditLimit: decimal.NewFromInt(500000),
		Rating:      ledger.RatingVIP,
	})
}
