package orders_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
)

var (
	owner   = ledger.Actor{ID: "c-1", Roles: []string{ledger.RoleCustomer}}
	manager = ledger.Actor{ID: "m-1", Roles: []string{ledger.RoleManager}}
)

func TestCanTransitionTable(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to ledger.OrderStatus }{
		{ledger.OrderPending, ledger.OrderConfirmed},
		{ledger.OrderPending, ledger.OrderCancelled},
		{ledger.OrderPending, ledger.OrderRejected},
		{ledger.OrderConfirmed, ledger.OrderProcessing},
		{ledger.OrderConfirmed, ledger.OrderCancelled},
		{ledger.OrderProcessing, ledger.OrderPartiallyShipped},
		{ledger.OrderProcessing, ledger.OrderShipped},
		{ledger.OrderPartiallyShipped, ledger.OrderShipped},
		{ledger.OrderShipped, ledger.OrderDelivered},
	}
	for _, c := range allowed {
		require.True(t, orders.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}

	denied := []struct{ from, to ledger.OrderStatus }{
		{ledger.OrderConfirmed, ledger.OrderConfirmed},
		{ledger.OrderPending, ledger.OrderShipped},
		{ledger.OrderProcessing, ledger.OrderCancelled},
		{ledger.OrderShipped, ledger.OrderProcessing},
		{ledger.OrderDelivered, ledger.OrderCancelled},
		{ledger.OrderCancelled, ledger.OrderPending},
		{ledger.OrderRejected, ledger.OrderConfirmed},
	}
	for _, c := range denied {
		require.False(t, orders.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestEveryTransitionAdvancesStep(t *testing.T) {
	t.Parallel()

	all := []ledger.OrderStatus{ledger.OrderPending, ledger.OrderConfirmed, ledger.OrderProcessing, ledger.OrderPartiallyShipped,
		ledger.OrderShipped, ledger.OrderDelivered, ledger.OrderCancelled, ledger.OrderRejected}
	for _, from := range all {
		for _, to := range all {
			if orders.CanTransition(from, to) {
				require.Greater(t, to.Step(), from.Step(), "%s -> %s", from, to)
			}
		}
		if from.Terminal() {
			for _, to := range all {
				require.False(t, orders.CanTransition(from, to), "%s -> %s", from, to)
			}
		}
	}
}

func pendingOrder() ledger.Order {
	return ledger.Order{
		ID:          7,
		CustomerID:  "c-1",
		Status:      ledger.OrderPending,
		TotalAmount: decimal.NewFromInt(600),
	}
}

func TestTransitionConfirmBooksBalance(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	eff, err := orders.StateMachine{}.Transition(orders.TransitionRequest{
		Order:    pendingOrder(),
		Customer: ledger.Customer{ID: "c-1", CreditLimit: decimal.NewFromInt(10000), OutstandingBalance: decimal.NewFromInt(9000)},
		Target:   ledger.OrderConfirmed,
		Actor:    owner,
		Now:      now,
	})
	require.NoError(t, err)
	require.Equal(t, ledger.OrderPending, eff.From)
	require.Equal(t, ledger.OrderConfirmed, eff.Order.Status)
	require.True(t, eff.BalanceDelta.Equal(decimal.NewFromInt(600)))
	require.NotNil(t, eff.Order.ConfirmedDate)
	require.Equal(t, now, *eff.Order.ConfirmedDate)
	require.False(t, eff.ReleaseStock)
}

func TestTransitionConfirmRechecksCredit(t *testing.T) {
	t.Parallel()

	_, err := orders.StateMachine{}.Transition(orders.TransitionRequest{
		Order:    pendingOrder(),
		Customer: ledger.Customer{ID: "c-1", CreditLimit: decimal.NewFromInt(10000), OutstandingBalance: decimal.NewFromInt(9500)},
		Target:   ledger.OrderConfirmed,
		Actor:    owner,
	})
	require.ErrorIs(t, err, ledger.ErrCreditLimitExceeded)
}

func TestTransitionAuthorization(t *testing.T) {
	t.Parallel()

	_, err := orders.StateMachine{}.Transition(orders.TransitionRequest{
		Order:  pendingOrder(),
		Target: ledger.OrderCancelled,
		Actor:  ledger.Actor{ID: "c-2"},
	})
	require.ErrorIs(t, err, ledger.ErrForbidden)

	confirmed := pendingOrder()
	confirmed.Status = ledger.OrderConfirmed
	_, err = orders.StateMachine{}.Transition(orders.TransitionRequest{Order: confirmed, Target: ledger.OrderProcessing, Actor: owner})
	require.ErrorIs(t, err, ledger.ErrForbidden)

	eff, err := orders.StateMachine{}.Transition(orders.TransitionRequest{Order: confirmed, Target: ledger.OrderProcessing, Actor: manager})
	require.NoError(t, err)
	require.Equal(t, ledger.OrderProcessing, eff.Order.Status)
}

func TestTransitionCancelReleasesStock(t *testing.T) {
	t.Parallel()

	eff, err := orders.StateMachine{}.Transition(orders.TransitionRequest{Order: pendingOrder(), Target: ledger.OrderCancelled, Actor: owner})
	require.NoError(t, err)
	require.True(t, eff.ReleaseStock)
	require.True(t, eff.BalanceDelta.IsZero())

	eff, err = orders.StateMachine{}.Transition(orders.TransitionRequest{Order: pendingOrder(), Target: ledger.OrderRejected, Actor: manager})
	require.NoError(t, err)
	require.True(t, eff.ReleaseStock)
}

func TestTransitionIllegalMove(t *testing.T) {
	t.Parallel()

	delivered := pendingOrder()
	delivered.Status = ledger.OrderDelivered
	_, err := orders.StateMachine{}.Transition(orders.TransitionRequest{Order: delivered, Target: ledger.OrderCancelled, Actor: manager})

	var trErr *ledger.InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	require.Equal(t, ledger.OrderDelivered, trErr.From)
	require.Equal(t, ledger.OrderCancelled, trErr.To)
}

func TestTransitionStampsShippingDates(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	o := pendingOrder()
	o.Status = ledger.OrderProcessing
	eff, err := orders.StateMachine{}.Transition(orders.TransitionRequest{Order: o, Target: ledger.OrderShipped, Actor: manager, Now: now})
	require.NoError(t, err)
	require.Equal(t, now, *eff.Order.ShippedDate)

	eff, err = orders.StateMachine{}.Transition(orders.TransitionRequest{Order: eff.Order, Target: ledger.OrderDelivered, Actor: manager, Now: now.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), *eff.Order.DeliveredDate)
}
