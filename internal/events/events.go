package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated        = "OrderCreated"
	EventOrderStatusChanged  = "OrderStatusChanged"
	EventInventoryAllocated  = "InventoryAllocated"
	EventInventoryReleased   = "InventoryReleased"
	EventReorderRequested    = "ReorderRequested"
	EventRejectionReported   = "RejectionReported"
	EventRejectionTransition = "RejectionStatusChanged"
)

const currentVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher hands an envelope to the event bus. Implementations must not block past ctx.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, env Envelope) error
}

func New(eventType, producer, correlationID string, occurredAt time.Time, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  currentVersion,
		OccurredAt:    occurredAt.UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// UnwrapPayload decodes the event-specific payload.
func UnwrapPayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// ---- payloads ----

type OrderLine struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID       int64       `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	CustomerID    string      `json:"customer_id"`
	WarehouseID   *int64      `json:"warehouse_id,omitempty"`
	InvoiceNumber string      `json:"invoice_number"`
	TotalAmount   string      `json:"total_amount"`
	Items         []OrderLine `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	ActorID     string `json:"actor_id,omitempty"`
}

type StockLevel struct {
	InventoryItemID       int64 `json:"inventory_item_id"`
	ProductID             int64 `json:"product_id"`
	WarehouseID           int64 `json:"warehouse_id"`
	QuantityChange        int   `json:"quantity_change"`
	QuantityInStock       int   `json:"quantity_in_stock"`
	ReorderPoint          int   `json:"reorder_point"`
	EconomicOrderQuantity int   `json:"economic_order_quantity"`
}

type InventoryMovedPayload struct {
	OrderID int64        `json:"order_id"`
	Levels  []StockLevel `json:"levels"`
}

type ReorderRequestedPayload struct {
	InventoryItemID int64  `json:"inventory_item_id"`
	ProductID       int64  `json:"product_id"`
	WarehouseID     int64  `json:"warehouse_id"`
	QuantityInStock int    `json:"quantity_in_stock"`
	ReorderPoint    int    `json:"reorder_point"`
	Quantity        int    `json:"quantity"`
	SourceEventID   string `json:"source_event_id"`
}

type RejectionPayload struct {
	RejectionID     int64  `json:"rejection_id"`
	RejectionNumber string `json:"rejection_number"`
	ProductID       int64  `json:"product_id"`
	CustomerID      string `json:"customer_id"`
	OrderID         *int64 `json:"order_id,omitempty"`
	Quantity        int    `json:"quantity"`
	Reason          string `json:"reason"`
	Status          string `json:"status"`
}
