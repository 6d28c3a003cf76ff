package orders_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
)

var allocNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func stockRecords() []ledger.InventoryItem {
	return []ledger.InventoryItem{
		{ID: 2, ProductID: 10, WarehouseID: 2, QuantityInStock: 30},
		{ID: 1, ProductID: 10, WarehouseID: 1, QuantityInStock: 50},
		{ID: 3, ProductID: 20, WarehouseID: 1, QuantityInStock: 5},
	}
}

func TestAllocateSpansRecordsInIDOrder(t *testing.T) {
	t.Parallel()

	records := stockRecords()
	res, err := orders.Allocator{}.Allocate(nil, records, []orders.LineRequest{{ProductID: 10, Quantity: 70}}, allocNow)
	require.NoError(t, err)

	require.Equal(t, []orders.Deduction{
		{Line: 0, ProductID: 10, InventoryItemID: 1, Quantity: 50},
		{Line: 0, ProductID: 10, InventoryItemID: 2, Quantity: 20},
	}, res.Deductions)
	require.Len(t, res.Touched, 2)
	require.Equal(t, int64(1), res.Touched[0].ID)
	require.Equal(t, 0, res.Touched[0].QuantityInStock)
	require.Equal(t, int64(2), res.Touched[1].ID)
	require.Equal(t, 10, res.Touched[1].QuantityInStock)
	require.Equal(t, allocNow, res.Touched[1].LastUpdated)

	// input untouched
	require.Equal(t, 30, records[0].QuantityInStock)
	require.Equal(t, 50, records[1].QuantityInStock)
}

func TestAllocateFailsWholeWhenShort(t *testing.T) {
	t.Parallel()

	_, err := orders.Allocator{}.Allocate(nil, stockRecords(), []orders.LineRequest{
		{ProductID: 20, Quantity: 5},
		{ProductID: 10, Quantity: 81},
	}, allocNow)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(10), stockErr.ProductID)
	require.Equal(t, 81, stockErr.Requested)
	require.Equal(t, 80, stockErr.Available)
}

func TestAllocateRespectsWarehouse(t *testing.T) {
	t.Parallel()

	wh := int64(2)
	_, err := orders.Allocator{}.Allocate(&wh, stockRecords(), []orders.LineRequest{{ProductID: 10, Quantity: 31}}, allocNow)
	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 30, stockErr.Available)

	res, err := orders.Allocator{}.Allocate(&wh, stockRecords(), []orders.LineRequest{{ProductID: 10, Quantity: 30}}, allocNow)
	require.NoError(t, err)
	require.Len(t, res.Deductions, 1)
	require.Equal(t, int64(2), res.Deductions[0].InventoryItemID)
}

func TestAllocateRepeatedProductLinesShareStock(t *testing.T) {
	t.Parallel()

	lines := []orders.LineRequest{{ProductID: 20, Quantity: 3}, {ProductID: 20, Quantity: 3}}
	_, err := orders.Allocator{}.Allocate(nil, stockRecords(), lines, allocNow)
	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 2, stockErr.Available)
}

func TestAllocateRejectsBadLines(t *testing.T) {
	t.Parallel()

	_, err := orders.Allocator{}.Allocate(nil, stockRecords(), nil, allocNow)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = orders.Allocator{}.Allocate(nil, stockRecords(), []orders.LineRequest{{ProductID: 10, Quantity: 0}}, allocNow)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestReleaseRestoresAllocatedQuantities(t *testing.T) {
	t.Parallel()

	records := []ledger.InventoryItem{
		{ID: 1, ProductID: 10, QuantityInStock: 0},
		{ID: 2, ProductID: 10, QuantityInStock: 10},
	}
	allocs := []ledger.Allocation{
		{OrderID: 5, InventoryItemID: 2, Quantity: 20, Status: ledger.AllocationAllocated},
		{OrderID: 5, InventoryItemID: 1, Quantity: 50, Status: ledger.AllocationAllocated},
		{OrderID: 5, InventoryItemID: 1, Quantity: 99, Status: ledger.AllocationReleased},
	}
	out, err := orders.Allocator{}.Release(records, allocs, allocNow)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 50, out[0].QuantityInStock)
	require.Equal(t, 30, out[1].QuantityInStock)
	require.Equal(t, 0, records[0].QuantityInStock)

	_, err = orders.Allocator{}.Release(records, []ledger.Allocation{
		{OrderID: 5, InventoryItemID: 9, Quantity: 1, Status: ledger.AllocationAllocated},
	}, allocNow)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}
