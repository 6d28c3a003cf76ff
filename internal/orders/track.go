package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

type TrackingItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type TimelineStage struct {
	Stage     string     `json:"stage"`
	Date      *time.Time `json:"date"`
	Completed bool       `json:"completed"`
}

// TrackingView is the read-only projection returned to customers.
type TrackingView struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	Status      string          `json:"status"`
	OrderDate   time.Time       `json:"order_date"`
	WarehouseID *int64          `json:"warehouse_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []TrackingItem  `json:"items"`
	Timeline    []TimelineStage `json:"timeline"`
}

// Supersedes reports whether v may overwrite cached. A view never moves an order back along
// its lifecycle.
func (v TrackingView) Supersedes(cached TrackingView) bool {
	return ledger.OrderStatus(v.Status).Step() >= ledger.OrderStatus(cached.Status).Step()
}

func (s *Service) TrackOrder(ctx context.Context, orderID int64, actor ledger.Actor) (TrackingView, error) {
	if orderID <= 0 {
		return TrackingView{}, ledger.Invalid("order id must be positive")
	}
	if s.cache != nil {
		if v, ok := s.cache.Load(ctx, orderID); ok {
			if !actor.CanActFor(v.CustomerID) {
				return TrackingView{}, ledger.ErrForbidden
			}
			return v, nil
		}
	}

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return TrackingView{}, err
	}
	if !actor.CanActFor(o.CustomerID) {
		return TrackingView{}, ledger.ErrForbidden
	}

	v, err := s.trackingView(ctx, o)
	if err != nil {
		return TrackingView{}, err
	}
	if s.cache != nil {
		s.cache.Store(ctx, v)
	}
	return v, nil
}

// refreshTrackCache writes the committed order through to the cache. A view that cannot be
// built is dropped instead, so readers fall back to the store.
func (s *Service) refreshTrackCache(ctx context.Context, o ledger.Order) {
	if s.cache == nil {
		return
	}
	v, err := s.trackingView(ctx, o)
	if err != nil {
		s.log.Warn("tracking view refresh", zap.Int64("order_id", o.ID), zap.Error(err))
		s.cache.Invalidate(ctx, o.ID)
		return
	}
	s.cache.Store(ctx, v)
}

func (s *Service) trackingView(ctx context.Context, o ledger.Order) (TrackingView, error) {
	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return TrackingView{}, err
	}
	return buildTrackingView(o, products), nil
}

func buildTrackingView(o ledger.Order, products map[int64]ledger.Product) TrackingView {
	items := make([]TrackingItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, TrackingItem{
			ProductID:   it.ProductID,
			ProductName: products[it.ProductID].Name,
			Quantity:    it.QuantityOrdered,
			UnitPrice:   it.UnitPrice,
		})
	}
	placed := o.OrderDate
	return TrackingView{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		OrderDate:   o.OrderDate,
		WarehouseID: o.WarehouseID,
		TotalAmount: o.TotalAmount,
		Items:       items,
		Timeline: []TimelineStage{
			{Stage: "Order Placed", Date: &placed, Completed: true},
			{Stage: "Order Confirmed", Date: o.ConfirmedDate, Completed: o.Status.Reached(ledger.OrderConfirmed)},
			{Stage: "In Production", Completed: o.Status.Reached(ledger.OrderProcessing)},
			{Stage: "Shipped", Date: o.ShippedDate, Completed: o.Status.Reached(ledger.OrderShipped)},
			{Stage: "Delivered", Date: o.DeliveredDate, Completed: o.Status == ledger.OrderDelivered},
		},
	}
}
