package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

var validNext = map[ledger.OrderStatus]map[ledger.OrderStatus]bool{
	ledger.OrderPending:          {ledger.OrderConfirmed: true, ledger.OrderCancelled: true, ledger.OrderRejected: true},
	ledger.OrderConfirmed:        {ledger.OrderProcessing: true, ledger.OrderCancelled: true, ledger.OrderRejected: true},
	ledger.OrderProcessing:       {ledger.OrderPartiallyShipped: true, ledger.OrderShipped: true},
	ledger.OrderPartiallyShipped: {ledger.OrderShipped: true},
	ledger.OrderShipped:          {ledger.OrderDelivered: true},
	ledger.OrderDelivered:        {},
	ledger.OrderCancelled:        {},
	ledger.OrderRejected:         {},
}

func CanTransition(from, to ledger.OrderStatus) bool {
	return validNext[from][to]
}

// ownerTransitions may be requested by the owning customer; everything else needs an elevated role.
var ownerTransitions = map[ledger.OrderStatus]bool{
	ledger.OrderConfirmed: true,
	ledger.OrderCancelled: true,
}

type TransitionRequest struct {
	Order ledger.Order
	// Customer must be the locked owner row when Target is Confirmed.
	Customer ledger.Customer
	Target   ledger.OrderStatus
	Actor    ledger.Actor
	Now      time.Time
}

// Effect is the outcome of a legal transition. Callers persist all of it or none of it.
type Effect struct {
	Order        ledger.Order
	From         ledger.OrderStatus
	BalanceDelta decimal.Decimal
	ReleaseStock bool
}

// StateMachine governs order status changes.
type StateMachine struct {
	Credit CreditValidator
}

func (m StateMachine) Transition(req TransitionRequest) (Effect, error) {
	order := req.Order
	if !req.Actor.CanActFor(order.CustomerID) {
		return Effect{}, ledger.ErrForbidden
	}
	if !ownerTransitions[req.Target] && !req.Actor.Elevated() {
		return Effect{}, ledger.ErrForbidden
	}
	if !CanTransition(order.Status, req.Target) {
		return Effect{}, &ledger.InvalidTransitionError{From: order.Status, To: req.Target}
	}

	eff := Effect{From: order.Status, BalanceDelta: decimal.Zero}
	now := req.Now.UTC()
	switch req.Target {
	case ledger.OrderConfirmed:
		if req.Customer.ID != order.CustomerID {
			return Effect{}, ledger.Invalid("customer %q does not own order %d", req.Customer.ID, order.ID)
		}
		if err := m.Credit.Validate(req.Customer, order.TotalAmount); err != nil {
			return Effect{}, err
		}
		order.ConfirmedDate = &now
		eff.BalanceDelta = order.TotalAmount
	case ledger.OrderShipped:
		order.ShippedDate = &now
	case ledger.OrderDelivered:
		order.DeliveredDate = &now
	case ledger.OrderCancelled, ledger.OrderRejected:
		eff.ReleaseStock = true
	}
	order.Status = req.Target
	eff.Order = order
	return eff, nil
}
