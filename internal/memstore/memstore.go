// Package memstore is an in-process implementation of the engine's data-access interfaces.
// Units of work are fully serialized: one writer holds the store at a time, and works on a
// private copy that replaces the committed state only on success.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

const DefaultLockTimeout = 5 * time.Second

type sequences struct {
	order, item, invoice, rejection, inventory, product, warehouse int64
}

type state struct {
	customers   map[string]ledger.Customer
	products    map[int64]ledger.Product
	warehouses  map[int64]ledger.Warehouse
	inventory   map[int64]ledger.InventoryItem
	orders      map[int64]ledger.Order
	allocations []ledger.Allocation
	invoices    map[int64]ledger.Invoice
	rejections  map[int64]ledger.MaterialRejection
	seq         sequences
}

func newState() *state {
	return &state{
		customers:  map[string]ledger.Customer{},
		products:   map[int64]ledger.Product{},
		warehouses: map[int64]ledger.Warehouse{},
		inventory:  map[int64]ledger.InventoryItem{},
		orders:     map[int64]ledger.Order{},
		invoices:   map[int64]ledger.Invoice{},
		rejections: map[int64]ledger.MaterialRejection{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	c.allocations = append([]ledger.Allocation(nil), s.allocations...)
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.rejections {
		c.rejections[k] = v
	}
	c.seq = s.seq
	return c
}

func copyOrder(o ledger.Order) ledger.Order {
	o.Items = append([]ledger.OrderItem(nil), o.Items...)
	return o
}

type DB struct {
	mu          sync.RWMutex
	committed   *state
	writer      chan struct{}
	lockTimeout time.Duration
}

func New(lockTimeout time.Duration) *DB {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &DB{
		committed:   newState(),
		writer:      make(chan struct{}, 1),
		lockTimeout: lockTimeout,
	}
}

func (db *DB) withinTx(ctx context.Context, fn func(ctx context.Context, st *state) error) error {
	timer := time.NewTimer(db.lockTimeout)
	defer timer.Stop()
	select {
	case db.writer <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: lock wait exceeded %s", ledger.ErrContention, db.lockTimeout)
	}
	defer func() { <-db.writer }()

	db.mu.RLock()
	work := db.committed.clone()
	db.mu.RUnlock()

	if err := fn(ctx, work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	db.committed = work
	db.mu.Unlock()
	return nil
}

func (db *DB) read(fn func(st *state)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(db.committed)
}

func (db *DB) write(fn func(st *state)) {
	db.writer <- struct{}{}
	defer func() { <-db.writer }()
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.committed)
}

// ---- seeding and inspection ----

func (db *DB) PutCustomer(c ledger.Customer) {
	db.write(func(st *state) { st.customers[c.ID] = c })
}

func (db *DB) PutProduct(p ledger.Product) ledger.Product {
	db.write(func(st *state) {
		if p.ID == 0 {
			st.seq.product++
			p.ID = st.seq.product
		} else if p.ID > st.seq.product {
			st.seq.product = p.ID
		}
		st.products[p.ID] = p
	})
	return p
}

func (db *DB) PutWarehouse(w ledger.Warehouse) ledger.Warehouse {
	db.write(func(st *state) {
		if w.ID == 0 {
			st.seq.warehouse++
			w.ID = st.seq.warehouse
		} else if w.ID > st.seq.warehouse {
			st.seq.warehouse = w.ID
		}
		st.warehouses[w.ID] = w
	})
	return w
}

func (db *DB) PutInventory(i ledger.InventoryItem) ledger.InventoryItem {
	db.write(func(st *state) {
		if i.ID == 0 {
			st.seq.inventory++
			i.ID = st.seq.inventory
		} else if i.ID > st.seq.inventory {
			st.seq.inventory = i.ID
		}
		st.inventory[i.ID] = i
	})
	return i
}

func (db *DB) Customer(id string) (c ledger.Customer, ok bool) {
	db.read(func(st *state) { c, ok = st.customers[id] })
	return c, ok
}

func (db *DB) InventoryItem(id int64) (i ledger.InventoryItem, ok bool) {
	db.read(func(st *state) { i, ok = st.inventory[id] })
	return i, ok
}

func (db *DB) Order(id int64) (o ledger.Order, ok bool) {
	db.read(func(st *state) {
		o, ok = st.orders[id]
		o = copyOrder(o)
	})
	return o, ok
}

func (db *DB) Allocations(orderID int64) []ledger.Allocation {
	var out []ledger.Allocation
	db.read(func(st *state) {
		for _, a := range st.allocations {
			if a.OrderID == orderID {
				out = append(out, a)
			}
		}
	})
	return out
}

func (db *DB) CountOrders() (n int) {
	db.read(func(st *state) { n = len(st.orders) })
	return n
}

func (db *DB) CountInvoices() (n int) {
	db.read(func(st *state) { n = len(st.invoices) })
	return n
}

func (db *DB) Rejection(id int64) (r ledger.MaterialRejection, ok bool) {
	db.read(func(st *state) { r, ok = st.rejections[id] })
	return r, ok
}

func sortedInventory(items []ledger.InventoryItem) []ledger.InventoryItem {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}
