package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/rejections"
)

type RejectionStore struct{ db *DB }

func (db *DB) Rejections() *RejectionStore { return &RejectionStore{db: db} }

func (s *RejectionStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx rejections.Tx) error) error {
	return s.db.withinTx(ctx, func(ctx context.Context, st *state) error {
		return fn(ctx, &rejectionTx{st: st})
	})
}

func (s *RejectionStore) ListBetween(_ context.Context, from, to time.Time) ([]rejections.Record, error) {
	var out []rejections.Record
	s.db.read(func(st *state) {
		for _, r := range st.rejections {
			if r.RejectionDate.Before(from) || r.RejectionDate.After(to) {
				continue
			}
			out = append(out, rejections.Record{
				Rejection:    r,
				ProductName:  st.products[r.ProductID].Name,
				CustomerName: st.customers[r.CustomerID].CompanyName,
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Rejection.ID < out[j].Rejection.ID })
	return out, nil
}

type rejectionTx struct{ st *state }

func (t *rejectionTx) GetProduct(_ context.Context, id int64) (ledger.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return ledger.Product{}, ledger.NotFound("product %d", id)
	}
	return p, nil
}

func (t *rejectionTx) GetCustomer(_ context.Context, id string) (ledger.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return ledger.Customer{}, ledger.NotFound("customer %s", id)
	}
	return c, nil
}

func (t *rejectionTx) OrderOwner(_ context.Context, orderID int64) (string, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return "", ledger.NotFound("order %d", orderID)
	}
	return o.CustomerID, nil
}

func (t *rejectionTx) InsertRejection(_ context.Context, r *ledger.MaterialRejection) error {
	if r.ID == 0 {
		t.st.seq.rejection++
		r.ID = t.st.seq.rejection
	}
	for _, existing := range t.st.rejections {
		if existing.RejectionNumber == r.RejectionNumber {
			return fmt.Errorf("%w: duplicate rejection number %s", ledger.ErrIntegrity, r.RejectionNumber)
		}
	}
	t.st.rejections[r.ID] = *r
	return nil
}

func (t *rejectionTx) LockRejection(_ context.Context, id int64) (ledger.MaterialRejection, error) {
	r, ok := t.st.rejections[id]
	if !ok {
		return ledger.MaterialRejection{}, ledger.NotFound("rejection %d", id)
	}
	return r, nil
}

func (t *rejectionTx) UpdateRejection(_ context.Context, r ledger.MaterialRejection) error {
	if _, ok := t.st.rejections[r.ID]; !ok {
		return ledger.NotFound("rejection %d", r.ID)
	}
	t.st.rejections[r.ID] = r
	return nil
}
