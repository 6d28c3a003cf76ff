package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-parts-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

type InventoryService interface {
	Visible(ctx context.Context, actor ledger.Actor, f inventory.StockFilter) ([]inventory.StockRow, error)
}

type InventoryHandler struct {
	Service InventoryService
}

type stockResp struct {
	InventoryItemID       int64     `json:"inventory_item_id"`
	ProductID             int64     `json:"product_id"`
	ProductCode           string    `json:"product_code"`
	ProductName           string    `json:"product_name"`
	WarehouseID           int64     `json:"warehouse_id"`
	WarehouseName         string    `json:"warehouse_name"`
	QuantityInStock       int       `json:"quantity_in_stock"`
	ReorderPoint          int       `json:"reorder_point"`
	EconomicOrderQuantity int       `json:"economic_order_quantity"`
	LastUpdated           time.Time `json:"last_updated"`
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/inventory", h.list)
}

func (h *InventoryHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var f inventory.StockFilter
	var err error
	if f.WarehouseID, err = optionalID(r, "warehouse_id"); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	if f.ProductID, err = optionalID(r, "product_id"); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	rows, err := h.Service.Visible(r.Context(), actor, f)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	out := make([]stockResp, 0, len(rows))
	for _, row := range rows {
		out = append(out, stockResp{
			InventoryItemID:       row.Item.ID,
			ProductID:             row.Item.ProductID,
			ProductCode:           row.ProductCode,
			ProductName:           row.ProductName,
			WarehouseID:           row.Item.WarehouseID,
			WarehouseName:         row.WarehouseName,
			QuantityInStock:       row.Item.QuantityInStock,
			ReorderPoint:          row.Item.ReorderPoint,
			EconomicOrderQuantity: row.Item.EconomicOrderQuantity,
			LastUpdated:           row.Item.LastUpdated,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func optionalID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, ledger.Invalid("%s must be a positive integer", name)
	}
	return &id, nil
}
