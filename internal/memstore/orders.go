package memstore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
)

type OrderStore struct{ db *DB }

func (db *DB) Orders() *OrderStore { return &OrderStore{db: db} }

func (s *OrderStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	return s.db.withinTx(ctx, func(ctx context.Context, st *state) error {
		return fn(ctx, &orderTx{st: st})
	})
}

func (s *OrderStore) GetOrder(_ context.Context, id int64) (o ledger.Order, err error) {
	s.db.read(func(st *state) {
		var ok bool
		if o, ok = st.orders[id]; !ok {
			err = ledger.NotFound("order %d", id)
			return
		}
		o = copyOrder(o)
	})
	return o, err
}

func (s *OrderStore) GetInvoiceByOrder(_ context.Context, orderID int64) (inv ledger.Invoice, err error) {
	s.db.read(func(st *state) { inv, err = invoiceByOrder(st, orderID) })
	return inv, err
}

func (s *OrderStore) GetProducts(_ context.Context, ids []int64) (out map[int64]ledger.Product, err error) {
	s.db.read(func(st *state) { out = productsByID(st, ids) })
	return out, nil
}

func invoiceByOrder(st *state, orderID int64) (ledger.Invoice, error) {
	for _, inv := range st.invoices {
		if inv.OrderID == orderID {
			return inv, nil
		}
	}
	return ledger.Invoice{}, ledger.NotFound("invoice for order %d", orderID)
}

func productsByID(st *state, ids []int64) map[int64]ledger.Product {
	out := make(map[int64]ledger.Product, len(ids))
	for _, id := range ids {
		if p, ok := st.products[id]; ok {
			out[id] = p
		}
	}
	return out
}

type orderTx struct{ st *state }

func (t *orderTx) LockCustomer(_ context.Context, id string) (ledger.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return ledger.Customer{}, ledger.NotFound("customer %s", id)
	}
	return c, nil
}

func (t *orderTx) SetCustomerBalance(_ context.Context, id string, balance decimal.Decimal) error {
	c, ok := t.st.customers[id]
	if !ok {
		return ledger.NotFound("customer %s", id)
	}
	if balance.IsNegative() || balance.GreaterThan(c.CreditLimit) {
		return fmt.Errorf("%w: balance %s outside credit limit %s", ledger.ErrIntegrity, balance, c.CreditLimit)
	}
	c.OutstandingBalance = balance
	t.st.customers[id] = c
	return nil
}

func (t *orderTx) GetProducts(_ context.Context, ids []int64) (map[int64]ledger.Product, error) {
	return productsByID(t.st, ids), nil
}

func (t *orderTx) LockInventory(_ context.Context, warehouseID *int64, productIDs []int64) ([]ledger.InventoryItem, error) {
	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	var out []ledger.InventoryItem
	for _, it := range t.st.inventory {
		if !want[it.ProductID] {
			continue
		}
		if warehouseID != nil {
			if it.WarehouseID != *warehouseID {
				continue
			}
		} else if w, ok := t.st.warehouses[it.WarehouseID]; ok && !w.Active {
			continue
		}
		out = append(out, it)
	}
	return sortedInventory(out), nil
}

func (t *orderTx) LockInventoryByIDs(_ context.Context, ids []int64) ([]ledger.InventoryItem, error) {
	seen := map[int64]bool{}
	var out []ledger.InventoryItem
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		it, ok := t.st.inventory[id]
		if !ok {
			return nil, ledger.NotFound("inventory item %d", id)
		}
		out = append(out, it)
	}
	return sortedInventory(out), nil
}

func (t *orderTx) SaveInventory(_ context.Context, items []ledger.InventoryItem) error {
	for _, it := range items {
		if _, ok := t.st.inventory[it.ID]; !ok {
			return ledger.NotFound("inventory item %d", it.ID)
		}
		if it.QuantityInStock < 0 {
			return fmt.Errorf("%w: inventory item %d would go negative", ledger.ErrIntegrity, it.ID)
		}
		t.st.inventory[it.ID] = it
	}
	return nil
}

func (t *orderTx) FindOrderByExternalID(_ context.Context, customerID, externalID string) (ledger.Order, bool, error) {
	for _, o := range t.st.orders {
		if o.CustomerID == customerID && o.ExternalID != "" && o.ExternalID == externalID {
			return copyOrder(o), true, nil
		}
	}
	return ledger.Order{}, false, nil
}

func (t *orderTx) NextOrderID(context.Context) (int64, error) {
	t.st.seq.order++
	return t.st.seq.order, nil
}

func (t *orderTx) InsertOrder(_ context.Context, o *ledger.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return fmt.Errorf("%w: order %d already exists", ledger.ErrIntegrity, o.ID)
	}
	for _, existing := range t.st.orders {
		if existing.OrderNumber == o.OrderNumber {
			return fmt.Errorf("%w: duplicate order number %s", ledger.ErrIntegrity, o.OrderNumber)
		}
	}
	for i := range o.Items {
		t.st.seq.item++
		o.Items[i].ID = t.st.seq.item
		o.Items[i].OrderID = o.ID
	}
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *orderTx) LockOrder(_ context.Context, id int64) (ledger.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return ledger.Order{}, ledger.NotFound("order %d", id)
	}
	return copyOrder(o), nil
}

func (t *orderTx) UpdateOrderStatus(_ context.Context, o ledger.Order) error {
	cur, ok := t.st.orders[o.ID]
	if !ok {
		return ledger.NotFound("order %d", o.ID)
	}
	cur.Status = o.Status
	cur.ConfirmedDate = o.ConfirmedDate
	cur.ShippedDate = o.ShippedDate
	cur.DeliveredDate = o.DeliveredDate
	t.st.orders[o.ID] = cur
	return nil
}

func (t *orderTx) InsertAllocations(_ context.Context, allocs []ledger.Allocation) error {
	t.st.allocations = append(t.st.allocations, allocs...)
	return nil
}

func (t *orderTx) ListAllocations(_ context.Context, orderID int64) ([]ledger.Allocation, error) {
	var out []ledger.Allocation
	for _, a := range t.st.allocations {
		if a.OrderID == orderID && a.Status == ledger.AllocationAllocated {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *orderTx) ReleaseAllocations(_ context.Context, orderID int64) error {
	for i, a := range t.st.allocations {
		if a.OrderID == orderID {
			t.st.allocations[i].Status = ledger.AllocationReleased
		}
	}
	return nil
}

func (t *orderTx) InsertInvoice(_ context.Context, inv *ledger.Invoice) error {
	for _, existing := range t.st.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return fmt.Errorf("%w: duplicate invoice number %s", ledger.ErrIntegrity, inv.InvoiceNumber)
		}
		if existing.OrderID == inv.OrderID {
			return fmt.Errorf("%w: order %d already invoiced", ledger.ErrIntegrity, inv.OrderID)
		}
	}
	t.st.seq.invoice++
	inv.ID = t.st.seq.invoice
	t.st.invoices[inv.ID] = *inv
	return nil
}

func (t *orderTx) GetInvoiceByOrder(_ context.Context, orderID int64) (ledger.Invoice, error) {
	return invoiceByOrder(t.st, orderID)
}

func (t *orderTx) SetInvoiceStatus(_ context.Context, orderID int64, status ledger.InvoiceStatus) error {
	inv, err := invoiceByOrder(t.st, orderID)
	if err != nil {
		return err
	}
	inv.Status = status
	t.st.invoices[inv.ID] = inv
	return nil
}
