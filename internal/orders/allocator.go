package orders

import (
	"sort"
	"time"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

type LineRequest struct {
	ProductID int64
	Quantity  int
}

// Deduction is one slice of one line drawn from one inventory record.
type Deduction struct {
	Line            int
	ProductID       int64
	InventoryItemID int64
	Quantity        int
}

type AllocationResult struct {
	Deductions []Deduction
	// Touched holds the post-deduction state of every record that changed, in id order.
	Touched []ledger.InventoryItem
}

// Allocator deducts stock deterministically: records are consumed in ascending id order.
type Allocator struct{}

// Allocate works on copies of records and never mutates its input. It fails as a whole if
// any line cannot be satisfied, so callers either persist every deduction or none.
func (Allocator) Allocate(warehouseID *int64, records []ledger.InventoryItem, lines []LineRequest, now time.Time) (AllocationResult, error) {
	if len(lines) == 0 {
		return AllocationResult{}, ledger.Invalid("at least one line item is required")
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return AllocationResult{}, ledger.Invalid("line %d: quantity must be greater than zero, got %d", i+1, l.Quantity)
		}
	}

	work := make([]ledger.InventoryItem, 0, len(records))
	for _, r := range records {
		if warehouseID != nil && r.WarehouseID != *warehouseID {
			continue
		}
		work = append(work, r)
	}
	sort.Slice(work, func(i, j int) bool { return work[i].ID < work[j].ID })

	byProduct := make(map[int64][]int)
	for i, r := range work {
		byProduct[r.ProductID] = append(byProduct[r.ProductID], i)
	}

	var out AllocationResult
	touched := make(map[int]bool)
	for li, l := range lines {
		idxs := byProduct[l.ProductID]
		available := 0
		for _, i := range idxs {
			if work[i].QuantityInStock > 0 {
				available += work[i].QuantityInStock
			}
		}
		if available < l.Quantity {
			return AllocationResult{}, &ledger.InsufficientStockError{
				ProductID: l.ProductID,
				Requested: l.Quantity,
				Available: available,
			}
		}

		remaining := l.Quantity
		for _, i := range idxs {
			if remaining == 0 {
				break
			}
			take := min(remaining, work[i].QuantityInStock)
			if take <= 0 {
				continue
			}
			work[i].QuantityInStock -= take
			work[i].LastUpdated = now.UTC()
			remaining -= take
			touched[i] = true
			out.Deductions = append(out.Deductions, Deduction{
				Line:            li,
				ProductID:       l.ProductID,
				InventoryItemID: work[i].ID,
				Quantity:        take,
			})
		}
	}

	for i := range work {
		if touched[i] {
			out.Touched = append(out.Touched, work[i])
		}
	}
	return out, nil
}

// Release returns allocated quantities to the records they were drawn from.
func (Allocator) Release(records []ledger.InventoryItem, allocations []ledger.Allocation, now time.Time) ([]ledger.InventoryItem, error) {
	byID := make(map[int64]int, len(records))
	work := make([]ledger.InventoryItem, len(records))
	copy(work, records)
	for i, r := range work {
		byID[r.ID] = i
	}

	touched := make(map[int]bool)
	for _, a := range allocations {
		if a.Status != ledger.AllocationAllocated {
			continue
		}
		i, ok := byID[a.InventoryItemID]
		if !ok {
			return nil, ledger.NotFound("inventory item %d for allocation of order %d", a.InventoryItemID, a.OrderID)
		}
		work[i].QuantityInStock += a.Quantity
		work[i].LastUpdated = now.UTC()
		touched[i] = true
	}

	var out []ledger.InventoryItem
	for i := range work {
		if touched[i] {
			out = append(out, work[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
