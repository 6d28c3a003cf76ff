package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderService interface {
	CreateOrder(ctx context.Context, cmd orders.CreateOrderCommand) (orders.CreateOrderResult, error)
	ProcessOrder(ctx context.Context, orderID int64, actor ledger.Actor) (ledger.Order, error)
	Transition(ctx context.Context, orderID int64, target ledger.OrderStatus, actor ledger.Actor) (ledger.Order, error)
	TrackOrder(ctx context.Context, orderID int64, actor ledger.Actor) (orders.TrackingView, error)
	GetInvoice(ctx context.Context, orderID int64, actor ledger.Actor) (ledger.Invoice, error)
}

type OrdersHandler struct {
	Service OrderService
}

type CreateOrderReq struct {
	ExternalID  string             `json:"external_id"`
	CustomerID  string             `json:"customer_id"`
	WarehouseID *int64             `json:"warehouse_id"`
	Lines       []orders.LineInput `json:"lines"`
}

type TransitionReq struct {
	Status string `json:"status"`
}

type orderItemResp struct {
	ID         int64           `json:"id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type orderResp struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"order_number"`
	CustomerID     string          `json:"customer_id"`
	WarehouseID    *int64          `json:"warehouse_id,omitempty"`
	Status         string          `json:"status"`
	SubTotal       decimal.Decimal `json:"sub_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	OrderDate      time.Time       `json:"order_date"`
	ConfirmedDate  *time.Time      `json:"confirmed_date,omitempty"`
	ShippedDate    *time.Time      `json:"shipped_date,omitempty"`
	DeliveredDate  *time.Time      `json:"delivered_date,omitempty"`
	Items          []orderItemResp `json:"items"`
}

type invoiceResp struct {
	ID                int64           `json:"id"`
	InvoiceNumber     string          `json:"invoice_number"`
	OrderID           int64           `json:"order_id"`
	CustomerID        string          `json:"customer_id"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	DueDate           time.Time       `json:"due_date"`
	SubTotal          decimal.Decimal `json:"sub_total"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	TaxPercentage     decimal.Decimal `json:"tax_percentage"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Status            string          `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Post("/orders/{id}/process", h.processOrder)
	r.Post("/orders/{id}/status", h.transition)
	r.Get("/orders/{id}/track", h.trackOrder)
	r.Get("/orders/{id}/invoice", h.getInvoice)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CreateOrderReq
	if !decodeJSON(w, r, &req) {
		return
	}
	// the header wins over the body so gateways can add idempotency transparently
	externalID := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if externalID == "" {
		externalID = strings.TrimSpace(req.ExternalID)
	}

	res, err := h.Service.CreateOrder(r.Context(), orders.CreateOrderCommand{
		Actor:       actor,
		CustomerID:  req.CustomerID,
		WarehouseID: req.WarehouseID,
		Lines:       req.Lines,
		ExternalID:  externalID,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *OrdersHandler) processOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := h.Service.ProcessOrder(r.Context(), id, actor)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req TransitionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	target, ok := ledger.ParseOrderStatus(req.Status)
	if !ok {
		writeServiceError(r.Context(), w, ledger.Invalid("unknown order status %q", req.Status))
		return
	}
	o, err := h.Service.Transition(r.Context(), id, target, actor)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) trackOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := h.Service.TrackOrder(r.Context(), id, actor)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) getInvoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.Service.GetInvoice(r.Context(), id, actor)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceResp{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		OrderID:           inv.OrderID,
		CustomerID:        inv.CustomerID,
		InvoiceDate:       inv.InvoiceDate,
		DueDate:           inv.DueDate,
		SubTotal:          inv.SubTotal,
		DiscountAmount:    inv.DiscountAmount,
		TaxPercentage:     inv.TaxPercentage,
		TaxAmount:         inv.TaxAmount,
		TotalAmount:       inv.TotalAmount,
		AmountPaid:        inv.AmountPaid,
		OutstandingAmount: inv.OutstandingAmount,
		Status:            string(inv.Status),
	})
}

func toOrderResp(o ledger.Order) orderResp {
	items := make([]orderItemResp, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResp{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.QuantityOrdered,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return orderResp{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		CustomerID:     o.CustomerID,
		WarehouseID:    o.WarehouseID,
		Status:         string(o.Status),
		SubTotal:       o.SubTotal,
		DiscountAmount: o.DiscountAmount,
		TaxAmount:      o.TaxAmount,
		TotalAmount:    o.TotalAmount,
		OrderDate:      o.OrderDate,
		ConfirmedDate:  o.ConfirmedDate,
		ShippedDate:    o.ShippedDate,
		DeliveredDate:  o.DeliveredDate,
		Items:          items,
	}
}
