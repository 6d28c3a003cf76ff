package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
)

const (
	orderColumns = `id, order_number, external_id, customer_id, warehouse_id, status,
		sub_total, discount_amount, tax_amount, total_amount,
		order_date, confirmed_date, shipped_date, delivered_date`
	invoiceColumns = `id, invoice_number, order_id, customer_id, invoice_date, due_date,
		sub_total, discount_amount, tax_percentage, tax_amount, total_amount,
		amount_paid, outstanding_amount, status`
	inventoryColumns = `i.id, i.product_id, i.warehouse_id, i.quantity_in_stock, i.reorder_point,
		i.economic_order_quantity, i.last_updated`
)

// OrderRepo implements orders.Store on Postgres. Locks are row-level (FOR UPDATE) and
// acquired in id order.
type OrderRepo struct {
	DB          *pgxpool.Pool
	LockTimeout time.Duration
}

func (r *OrderRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	return runTx(ctx, r.DB, r.LockTimeout, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &orderTx{tx: tx})
	})
}

func (r *OrderRepo) GetOrder(ctx context.Context, id int64) (ledger.Order, error) {
	return loadOrder(ctx, r.DB, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *OrderRepo) GetInvoiceByOrder(ctx context.Context, orderID int64) (ledger.Invoice, error) {
	return invoiceByOrder(ctx, r.DB, orderID)
}

func (r *OrderRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]ledger.Product, error) {
	return productsByID(ctx, r.DB, ids)
}

type orderTx struct{ tx pgx.Tx }

func (t *orderTx) LockCustomer(ctx context.Context, id string) (ledger.Customer, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx, `
		SELECT id, company_name, credit_limit, outstanding_balance, rating
		FROM customers WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return ledger.Customer{}, notFound(err, "customer %s", id)
	}
	return c, nil
}

func (t *orderTx) SetCustomerBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	ct, err := t.tx.Exec(ctx, `UPDATE customers SET outstanding_balance=$2 WHERE id=$1`, id, balance)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ledger.NotFound("customer %s", id)
	}
	return nil
}

func (t *orderTx) GetProducts(ctx context.Context, ids []int64) (map[int64]ledger.Product, error) {
	return productsByID(ctx, t.tx, ids)
}

func (t *orderTx) LockInventory(ctx context.Context, warehouseID *int64, productIDs []int64) ([]ledger.InventoryItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory_items i
		JOIN warehouses w ON w.id = i.warehouse_id
		WHERE i.product_id = ANY($1)
		  AND (($2::bigint IS NULL AND w.active) OR i.warehouse_id = $2)
		ORDER BY i.id
		FOR UPDATE OF i`, productIDs, warehouseID)
	if err != nil {
		return nil, err
	}
	return collectInventory(rows)
}

func (t *orderTx) LockInventoryByIDs(ctx context.Context, ids []int64) ([]ledger.InventoryItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory_items i
		WHERE i.id = ANY($1)
		ORDER BY i.id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	items, err := collectInventory(rows)
	if err != nil {
		return nil, err
	}
	found := make(map[int64]bool, len(items))
	for _, it := range items {
		found[it.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, ledger.NotFound("inventory item %d", id)
		}
	}
	return items, nil
}

func (t *orderTx) SaveInventory(ctx context.Context, items []ledger.InventoryItem) error {
	for _, it := range items {
		ct, err := t.tx.Exec(ctx, `
			UPDATE inventory_items SET quantity_in_stock=$2, last_updated=$3 WHERE id=$1`,
			it.ID, it.QuantityInStock, it.LastUpdated)
		if err != nil {
			return err
		}
		if ct.RowsAffected() != 1 {
			return ledger.NotFound("inventory item %d", it.ID)
		}
	}
	return nil
}

func (t *orderTx) FindOrderByExternalID(ctx context.Context, customerID, externalID string) (ledger.Order, bool, error) {
	o, err := loadOrder(ctx, t.tx, `
		SELECT `+orderColumns+` FROM orders WHERE customer_id=$1 AND external_id=$2`,
		customerID, externalID)
	if err != nil {
		if ledger.Kind(err) == "not_found" {
			return ledger.Order{}, false, nil
		}
		return ledger.Order{}, false, err
	}
	return o, true, nil
}

func (t *orderTx) NextOrderID(ctx context.Context) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT nextval(pg_get_serial_sequence('orders', 'id'))`).Scan(&id)
	return id, err
}

func (t *orderTx) InsertOrder(ctx context.Context, o *ledger.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, external_id, customer_id, warehouse_id, status,
			sub_total, discount_amount, tax_amount, total_amount, order_date)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.OrderNumber, o.ExternalID, o.CustomerID, o.WarehouseID, string(o.Status),
		o.SubTotal, o.DiscountAmount, o.TaxAmount, o.TotalAmount, o.OrderDate,
	)
	if err != nil {
		return err
	}
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := t.tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity_ordered, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			o.ID, it.ProductID, it.QuantityOrdered, it.UnitPrice, it.TotalPrice,
		).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t *orderTx) LockOrder(ctx context.Context, id int64) (ledger.Order, error) {
	return loadOrder(ctx, t.tx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (t *orderTx) UpdateOrderStatus(ctx context.Context, o ledger.Order) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET status=$2, confirmed_date=$3, shipped_date=$4, delivered_date=$5
		WHERE id=$1`,
		o.ID, string(o.Status), o.ConfirmedDate, o.ShippedDate, o.DeliveredDate)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ledger.NotFound("order %d", o.ID)
	}
	return nil
}

func (t *orderTx) InsertAllocations(ctx context.Context, allocs []ledger.Allocation) error {
	for _, a := range allocs {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_allocations(order_id, order_item_id, product_id, inventory_item_id, quantity, status)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			a.OrderID, a.OrderItemID, a.ProductID, a.InventoryItemID, a.Quantity, string(a.Status),
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *orderTx) ListAllocations(ctx context.Context, orderID int64) ([]ledger.Allocation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT order_id, order_item_id, product_id, inventory_item_id, quantity, status
		FROM order_allocations
		WHERE order_id=$1 AND status='allocated'
		ORDER BY inventory_item_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Allocation
	for rows.Next() {
		var a ledger.Allocation
		var status string
		if err := rows.Scan(&a.OrderID, &a.OrderItemID, &a.ProductID, &a.InventoryItemID, &a.Quantity, &status); err != nil {
			return nil, err
		}
		a.Status = ledger.AllocationStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *orderTx) ReleaseAllocations(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE order_allocations SET status='released'
		WHERE order_id=$1 AND status='allocated'`, orderID)
	return err
}

func (t *orderTx) InsertInvoice(ctx context.Context, inv *ledger.Invoice) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO invoices(invoice_number, order_id, customer_id, invoice_date, due_date,
			sub_total, discount_amount, tax_percentage, tax_amount, total_amount,
			amount_paid, outstanding_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		inv.InvoiceNumber, inv.OrderID, inv.CustomerID, inv.InvoiceDate, inv.DueDate,
		inv.SubTotal, inv.DiscountAmount, inv.TaxPercentage, inv.TaxAmount, inv.TotalAmount,
		inv.AmountPaid, inv.OutstandingAmount, string(inv.Status),
	).Scan(&inv.ID)
}

func (t *orderTx) GetInvoiceByOrder(ctx context.Context, orderID int64) (ledger.Invoice, error) {
	return invoiceByOrder(ctx, t.tx, orderID)
}

func (t *orderTx) SetInvoiceStatus(ctx context.Context, orderID int64, status ledger.InvoiceStatus) error {
	ct, err := t.tx.Exec(ctx, `UPDATE invoices SET status=$2 WHERE order_id=$1`, orderID, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ledger.NotFound("invoice for order %d", orderID)
	}
	return nil
}

// ---- shared scans ----

func scanCustomer(row pgx.Row) (ledger.Customer, error) {
	var c ledger.Customer
	var rating int16
	if err := row.Scan(&c.ID, &c.CompanyName, &c.CreditLimit, &c.OutstandingBalance, &rating); err != nil {
		return ledger.Customer{}, err
	}
	c.Rating = ledger.CustomerRating(rating)
	return c, nil
}

func productsByID(ctx context.Context, q querier, ids []int64) (map[int64]ledger.Product, error) {
	rows, err := q.Query(ctx, `
		SELECT id, code, name, unit_price, category, active
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]ledger.Product, len(ids))
	for rows.Next() {
		var p ledger.Product
		var category string
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.UnitPrice, &category, &p.Active); err != nil {
			return nil, err
		}
		p.Category = ledger.ProductCategory(category)
		out[p.ID] = p
	}
	return out, rows.Err()
}

func collectInventory(rows pgx.Rows) ([]ledger.InventoryItem, error) {
	defer rows.Close()
	var out []ledger.InventoryItem
	for rows.Next() {
		var it ledger.InventoryItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.WarehouseID, &it.QuantityInStock,
			&it.ReorderPoint, &it.EconomicOrderQuantity, &it.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func loadOrder(ctx context.Context, q querier, sql string, args ...any) (ledger.Order, error) {
	var o ledger.Order
	var externalID *string
	var status string
	err := q.QueryRow(ctx, sql, args...).Scan(
		&o.ID, &o.OrderNumber, &externalID, &o.CustomerID, &o.WarehouseID, &status,
		&o.SubTotal, &o.DiscountAmount, &o.TaxAmount, &o.TotalAmount,
		&o.OrderDate, &o.ConfirmedDate, &o.ShippedDate, &o.DeliveredDate,
	)
	if err != nil {
		return ledger.Order{}, notFound(err, "order %v", args[0])
	}
	if externalID != nil {
		o.ExternalID = *externalID
	}
	o.Status = ledger.OrderStatus(status)

	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity_ordered, unit_price, total_price
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return ledger.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it ledger.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.QuantityOrdered, &it.UnitPrice, &it.TotalPrice); err != nil {
			return ledger.Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return ledger.Order{}, fmt.Errorf("order %d items: %w", o.ID, err)
	}
	return o, nil
}

func invoiceByOrder(ctx context.Context, q querier, orderID int64) (ledger.Invoice, error) {
	var inv ledger.Invoice
	var status string
	err := q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id=$1`, orderID).Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.CustomerID, &inv.InvoiceDate, &inv.DueDate,
		&inv.SubTotal, &inv.DiscountAmount, &inv.TaxPercentage, &inv.TaxAmount, &inv.TotalAmount,
		&inv.AmountPaid, &inv.OutstandingAmount, &status,
	)
	if err != nil {
		return ledger.Invoice{}, notFound(err, "invoice for order %d", orderID)
	}
	inv.Status = ledger.InvoiceStatus(status)
	return inv, nil
}
