package ledger

import "strings"

type OrderStatus string

const (
	OrderPending          OrderStatus = "Pending"
	OrderConfirmed        OrderStatus = "Confirmed"
	OrderProcessing       OrderStatus = "Processing"
	OrderPartiallyShipped OrderStatus = "PartiallyShipped"
	OrderShipped          OrderStatus = "Shipped"
	OrderDelivered        OrderStatus = "Delivered"
	OrderCancelled        OrderStatus = "Cancelled"
	OrderRejected         OrderStatus = "Rejected"
)

// orderRank orders the forward lifecycle; Cancelled and Rejected sit outside it.
var orderRank = map[OrderStatus]int{
	OrderPending:          0,
	OrderConfirmed:        1,
	OrderProcessing:       2,
	OrderPartiallyShipped: 3,
	OrderShipped:          4,
	OrderDelivered:        5,
}

// Reached reports whether s is at or past target on the forward lifecycle.
func (s OrderStatus) Reached(target OrderStatus) bool {
	rs, ok := orderRank[s]
	if !ok {
		return false
	}
	rt, ok := orderRank[target]
	if !ok {
		return false
	}
	return rs >= rt
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderRejected
}

// Step grows with every legal status change, so of two snapshots of one order the higher step
// is the newer one. Unknown statuses sit below Pending.
func (s OrderStatus) Step() int {
	if r, ok := orderRank[s]; ok {
		return r
	}
	if s.Terminal() {
		return len(orderRank)
	}
	return -1
}

func ParseOrderStatus(v string) (OrderStatus, bool) {
	for _, s := range []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing, OrderPartiallyShipped,
		OrderShipped, OrderDelivered, OrderCancelled, OrderRejected} {
		if strings.EqualFold(string(s), strings.TrimSpace(v)) {
			return s, true
		}
	}
	return "", false
}

type InvoiceStatus string

const (
	InvoiceGenerated     InvoiceStatus = "Generated"
	InvoicePending       InvoiceStatus = "Pending"
	InvoiceSent          InvoiceStatus = "Sent"
	InvoicePartiallyPaid InvoiceStatus = "PartiallyPaid"
	InvoicePaid          InvoiceStatus = "Paid"
	InvoiceOverdue       InvoiceStatus = "Overdue"
	InvoiceCancelled     InvoiceStatus = "Cancelled"
)

type RejectionStatus string

const (
	RejectionReported           RejectionStatus = "Reported"
	RejectionUnderInvestigation RejectionStatus = "UnderInvestigation"
	RejectionResolved           RejectionStatus = "Resolved"
	RejectionClosed             RejectionStatus = "Closed"
)

// Settled is true once resolution fields have been written.
func (s RejectionStatus) Settled() bool {
	return s == RejectionResolved || s == RejectionClosed
}
