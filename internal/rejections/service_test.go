package rejections_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/memstore"
	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
	"github.com/ariefcatur/go-parts-fulfillment/internal/rejections"
)

var (
	customer = ledger.Actor{ID: "c-1", Roles: []string{ledger.RoleCustomer}}
	admin    = ledger.Actor{ID: "a-1", Roles: []string{ledger.RoleAdmin}}
	finance  = ledger.Actor{ID: "f-1", Roles: []string{ledger.RoleFinance}}
)

type fixture struct {
	db      *memstore.DB
	tracker *rejections.Tracker
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memstore.New(time.Second)
	db.PutWarehouse(ledger.Warehouse{ID: 1, Name: "Main", Active: true})
	db.PutProduct(ledger.Product{ID: 1, Code: "TW001", Name: "Brake Pad", UnitPrice: decimal.NewFromInt(250), Active: true})
	db.PutProduct(ledger.Product{ID: 2, Code: "TW002", Name: "Air Filter", UnitPrice: decimal.NewFromInt(150), Active: true})
	db.PutInventory(ledger.InventoryItem{ID: 1, ProductID: 1, WarehouseID: 1, QuantityInStock: 100})
	db.PutCustomer(ledger.Customer{ID: "c-1", CompanyName: "Acme Motors", CreditLimit: decimal.NewFromInt(100000)})
	db.PutCustomer(ledger.Customer{ID: "c-2", CompanyName: "Beta Fleet", CreditLimit: decimal.NewFromInt(100000)})

	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	ids := []string{"9f1c2a7e-0000-4000-8000-000000000001", "0a1b2c3d-0000-4000-8000-000000000002", "deadbeef-0000-4000-8000-000000000003"}
	next := 0
	tracker, err := rejections.NewTracker(rejections.ServiceDeps{
		Store: db.Rejections(),
		Clock: func() time.Time { return now },
		NewID: func() string {
			id := ids[next%len(ids)]
			next++
			return id
		},
	})
	require.NoError(t, err)
	return &fixture{db: db, tracker: tracker, now: now}
}

func TestRejectionNumber(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "REJ-20260610-9F1C2A7E", rejections.RejectionNumber(at, "9f1c2a7e-0000-4000-8000-000000000001"))
	require.Equal(t, "REJ-20260610-AB", rejections.RejectionNumber(at, "ab"))
}

func TestCreateRejection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	cost := decimal.RequireFromString("1250.00")
	rej, err := f.tracker.Create(context.Background(), rejections.CreateCommand{
		Actor:       customer,
		CustomerID:  "c-1",
		ProductID:   1,
		Quantity:    5,
		Reason:      "  cracked housing ",
		Description: "batch 7",
		CostImpact:  &cost,
	})
	require.NoError(t, err)
	require.Equal(t, "REJ-20260610-9F1C2A7E", rej.RejectionNumber)
	require.Equal(t, ledger.RejectionReported, rej.Status)
	require.Equal(t, "cracked housing", rej.Reason)
	require.Equal(t, f.now, rej.RejectionDate)

	stored, ok := f.db.Rejection(rej.ID)
	require.True(t, ok)
	require.Equal(t, 5, stored.RejectedQuantity)
	require.True(t, stored.CostImpact.Equal(cost))
}

func TestCreateRejectionValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	negative := decimal.NewFromInt(-1)
	missingOrder := int64(77)

	cases := []struct {
		name string
		cmd  rejections.CreateCommand
		want error
	}{
		{"zero quantity", rejections.CreateCommand{Actor: customer, CustomerID: "c-1", ProductID: 1, Reason: "x"}, ledger.ErrInvalidInput},
		{"no reason", rejections.CreateCommand{Actor: customer, CustomerID: "c-1", ProductID: 1, Quantity: 1, Reason: "   "}, ledger.ErrInvalidInput},
		{"negative cost", rejections.CreateCommand{Actor: customer, CustomerID: "c-1", ProductID: 1, Quantity: 1, Reason: "x", CostImpact: &negative}, ledger.ErrInvalidInput},
		{"other customer", rejections.CreateCommand{Actor: customer, CustomerID: "c-2", ProductID: 1, Quantity: 1, Reason: "x"}, ledger.ErrForbidden},
		{"unknown product", rejections.CreateCommand{Actor: customer, CustomerID: "c-1", ProductID: 99, Quantity: 1, Reason: "x"}, ledger.ErrNotFound},
		{"unknown order", rejections.CreateCommand{Actor: customer, CustomerID: "c-1", ProductID: 1, Quantity: 1, Reason: "x", OrderID: &missingOrder}, ledger.ErrNotFound},
	}
	for _, tc := range cases {
		_, err := f.tracker.Create(ctx, tc.cmd)
		require.ErrorIs(t, err, tc.want, tc.name)
	}
}

func TestCreateRejectionChecksOrderOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	svc, err := orders.NewService(orders.ServiceDeps{Store: f.db.Orders()})
	require.NoError(t, err)
	placed, err := svc.CreateOrder(ctx, orders.CreateOrderCommand{
		Actor:      admin,
		CustomerID: "c-2",
		Lines:      []orders.LineInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = f.tracker.Create(ctx, rejections.CreateCommand{
		Actor:      admin,
		CustomerID: "c-1",
		ProductID:  1,
		OrderID:    &placed.OrderID,
		Quantity:   1,
		Reason:     "wrong part",
	})
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	rej, err := f.tracker.Create(ctx, rejections.CreateCommand{
		Actor:      admin,
		CustomerID: "c-2",
		ProductID:  1,
		OrderID:    &placed.OrderID,
		Quantity:   1,
		Reason:     "wrong part",
	})
	require.NoError(t, err)
	require.Equal(t, placed.OrderID, *rej.OrderID)
}

func TestResolveIsNotIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	rej, err := f.tracker.Create(ctx, rejections.CreateCommand{Actor: customer, CustomerID: "c-1", ProductID: 1, Quantity: 2, Reason: "bent"})
	require.NoError(t, err)

	_, err = f.tracker.Resolve(ctx, rej.ID, "", ledger.Actor{ID: "c-2"})
	require.ErrorIs(t, err, ledger.ErrForbidden)

	resolved, err := f.tracker.Resolve(ctx, rej.ID, "", admin)
	require.NoError(t, err)
	require.Equal(t, ledger.RejectionResolved, resolved.Status)
	require.Equal(t, "Resolved via admin interface", resolved.ResolutionNotes)
	require.Equal(t, f.now, *resolved.ResolutionDate)

	_, err = f.tracker.Resolve(ctx, rej.ID, "again", admin)
	require.ErrorIs(t, err, ledger.ErrAlreadyResolved)

	stored, _ := f.db.Rejection(rej.ID)
	require.Equal(t, "Resolved via admin interface", stored.ResolutionNotes)

	closed, err := f.tracker.Close(ctx, rej.ID, admin)
	require.NoError(t, err)
	require.Equal(t, ledger.RejectionClosed, closed.Status)

	_, err = f.tracker.Resolve(ctx, rej.ID, "", admin)
	require.ErrorIs(t, err, ledger.ErrAlreadyResolved)
}

func TestInvestigationFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	rej, err := f.tracker.Create(ctx, rejections.CreateCommand{Actor: customer, CustomerID: "c-1", ProductID: 1, Quantity: 2, Reason: "bent"})
	require.NoError(t, err)

	_, err = f.tracker.Close(ctx, rej.ID, admin)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	inv, err := f.tracker.StartInvestigation(ctx, rej.ID, customer)
	require.NoError(t, err)
	require.Equal(t, ledger.RejectionUnderInvestigation, inv.Status)

	_, err = f.tracker.StartInvestigation(ctx, rej.ID, customer)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	done, err := f.tracker.Resolve(ctx, rej.ID, "supplier credit issued", customer)
	require.NoError(t, err)
	require.Equal(t, "supplier credit issued", done.ResolutionNotes)

	_, err = f.tracker.Resolve(ctx, 999, "", admin)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestReport(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for _, c := range []rejections.CreateCommand{
		{Actor: admin, CustomerID: "c-1", ProductID: 1, Quantity: 3, Reason: "cracked"},
		{Actor: admin, CustomerID: "c-1", ProductID: 2, Quantity: 4, Reason: "cracked"},
		{Actor: admin, CustomerID: "c-2", ProductID: 1, Quantity: 5, Reason: "wrong size"},
	} {
		_, err := f.tracker.Create(ctx, c)
		require.NoError(t, err)
	}
	_, err := f.tracker.Resolve(ctx, 1, "", admin)
	require.NoError(t, err)

	_, err = f.tracker.Report(ctx, customer, nil, nil)
	require.ErrorIs(t, err, ledger.ErrForbidden)

	rep, err := f.tracker.Report(ctx, finance, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 3, rep.TotalRejections)
	require.Equal(t, 12, rep.TotalQuantity)
	require.Equal(t, 1, rep.ResolvedCount)
	require.Equal(t, 2, rep.PendingCount)
	require.Equal(t, f.now.AddDate(0, -1, 0), rep.From)

	require.Equal(t, []rejections.ProductBucket{
		{ProductID: 1, ProductName: "Brake Pad", Count: 2, Quantity: 8},
		{ProductID: 2, ProductName: "Air Filter", Count: 1, Quantity: 4},
	}, rep.ByProduct)
	require.Equal(t, "Acme Motors", rep.ByCustomer[0].CustomerName)
	require.Equal(t, []rejections.ReasonBucket{{Reason: "cracked", Count: 2}, {Reason: "wrong size", Count: 1}}, rep.ByReason)

	before := f.now.Add(-48 * time.Hour)
	yesterday := f.now.Add(-24 * time.Hour)
	empty, err := f.tracker.Report(ctx, admin, &before, &yesterday)
	require.NoError(t, err)
	require.Zero(t, empty.TotalRejections)
	require.Empty(t, empty.ByProduct)

	_, err = f.tracker.Report(ctx, admin, &yesterday, &before)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
}
