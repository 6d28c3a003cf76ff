package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-parts-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

// InventoryRepo serves read-only stock listings.
type InventoryRepo struct{ DB *pgxpool.Pool }

func (r *InventoryRepo) GetCustomer(ctx context.Context, id string) (ledger.Customer, error) {
	c, err := scanCustomer(r.DB.QueryRow(ctx, `
		SELECT id, company_name, credit_limit, outstanding_balance, rating
		FROM customers WHERE id=$1`, id))
	if err != nil {
		return ledger.Customer{}, notFound(err, "customer %s", id)
	}
	return c, nil
}

func (r *InventoryRepo) ListStock(ctx context.Context, f inventory.StockFilter) ([]inventory.StockRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+inventoryColumns+`, p.code, p.name, w.name
		FROM inventory_items i
		JOIN products p ON p.id = i.product_id
		JOIN warehouses w ON w.id = i.warehouse_id
		WHERE p.active AND w.active
		  AND ($1::bigint IS NULL OR i.warehouse_id = $1)
		  AND ($2::bigint IS NULL OR i.product_id = $2)
		  AND (NOT $3 OR i.quantity_in_stock > 0)
		ORDER BY i.id`, f.WarehouseID, f.ProductID, f.InStockOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.StockRow
	for rows.Next() {
		var row inventory.StockRow
		it := &row.Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.WarehouseID, &it.QuantityInStock,
			&it.ReorderPoint, &it.EconomicOrderQuantity, &it.LastUpdated,
			&row.ProductCode, &row.ProductName, &row.WarehouseName); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
