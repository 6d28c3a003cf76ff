package rejections

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

type ProductBucket struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product"`
	Count       int    `json:"count"`
	Quantity    int    `json:"quantity"`
}

type CustomerBucket struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer"`
	Count        int    `json:"count"`
	Quantity     int    `json:"quantity"`
}

type ReasonBucket struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type Report struct {
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	TotalRejections int              `json:"total_rejections"`
	TotalQuantity   int              `json:"total_quantity"`
	ByProduct       []ProductBucket  `json:"by_product"`
	ByCustomer      []CustomerBucket `json:"by_customer"`
	ByReason        []ReasonBucket   `json:"by_reason"`
	ResolvedCount   int              `json:"resolved_count"`
	PendingCount    int              `json:"pending_count"`
}

// Report aggregates rejections in [from, to]. A nil bound defaults to the last month.
func (t *Tracker) Report(ctx context.Context, actor ledger.Actor, from, to *time.Time) (Report, error) {
	if !actor.CanReadReports() {
		return Report{}, ledger.ErrForbidden
	}
	end := t.clock()
	if to != nil {
		end = to.UTC()
	}
	start := end.AddDate(0, -1, 0)
	if from != nil {
		start = from.UTC()
	}
	if start.After(end) {
		return Report{}, ledger.Invalid("report start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	recs, err := t.store.ListBetween(ctx, start, end)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(start, end, recs), nil
}

// Aggregate is a pure read-side fold; buckets are sorted by count desc, then key.
func Aggregate(from, to time.Time, recs []Record) Report {
	rep := Report{From: from, To: to}
	products := map[int64]*ProductBucket{}
	customers := map[string]*CustomerBucket{}
	reasons := map[string]*ReasonBucket{}

	for _, rec := range recs {
		r := rec.Rejection
		rep.TotalRejections++
		rep.TotalQuantity += r.RejectedQuantity
		if r.Status.Settled() {
			rep.ResolvedCount++
		} else {
			rep.PendingCount++
		}

		pb, ok := products[r.ProductID]
		if !ok {
			pb = &ProductBucket{ProductID: r.ProductID, ProductName: rec.ProductName}
			products[r.ProductID] = pb
		}
		pb.Count++
		pb.Quantity += r.RejectedQuantity

		cb, ok := customers[r.CustomerID]
		if !ok {
			cb = &CustomerBucket{CustomerID: r.CustomerID, CustomerName: rec.CustomerName}
			customers[r.CustomerID] = cb
		}
		cb.Count++
		cb.Quantity += r.RejectedQuantity

		rb, ok := reasons[r.Reason]
		if !ok {
			rb = &ReasonBucket{Reason: r.Reason}
			reasons[r.Reason] = rb
		}
		rb.Count++
	}

	rep.ByProduct = make([]ProductBucket, 0, len(products))
	for _, b := range products {
		rep.ByProduct = append(rep.ByProduct, *b)
	}
	sort.Slice(rep.ByProduct, func(i, j int) bool {
		a, b := rep.ByProduct[i], rep.ByProduct[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ProductID < b.ProductID
	})

	rep.ByCustomer = make([]CustomerBucket, 0, len(customers))
	for _, b := range customers {
		rep.ByCustomer = append(rep.ByCustomer, *b)
	}
	sort.Slice(rep.ByCustomer, func(i, j int) bool {
		a, b := rep.ByCustomer[i], rep.ByCustomer[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.CustomerID < b.CustomerID
	})

	rep.ByReason = make([]ReasonBucket, 0, len(reasons))
	for _, b := range reasons {
		rep.ByReason = append(rep.ByReason, *b)
	}
	sort.Slice(rep.ByReason, func(i, j int) bool {
		a, b := rep.ByReason[i], rep.ByReason[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Reason < b.Reason
	})
	return rep
}
