package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/rejections"
)

type RejectionService interface {
	Create(ctx context.Context, cmd rejections.CreateCommand) (ledger.MaterialRejection, error)
	StartInvestigation(ctx context.Context, id int64, actor ledger.Actor) (ledger.MaterialRejection, error)
	Resolve(ctx context.Context, id int64, notes string, actor ledger.Actor) (ledger.MaterialRejection, error)
	Close(ctx context.Context, id int64, actor ledger.Actor) (ledger.MaterialRejection, error)
	Report(ctx context.Context, actor ledger.Actor, from, to *time.Time) (rejections.Report, error)
}

type RejectionsHandler struct {
	Service RejectionService
}

type CreateRejectionReq struct {
	CustomerID  string           `json:"customer_id"`
	ProductID   int64            `json:"product_id"`
	OrderID     *int64           `json:"order_id"`
	Quantity    int              `json:"quantity"`
	Reason      string           `json:"reason"`
	Description string           `json:"description"`
	CostImpact  *decimal.Decimal `json:"cost_impact"`
}

type ResolveReq struct {
	Notes string `json:"notes"`
}

type rejectionResp struct {
	ID               int64            `json:"id"`
	RejectionNumber  string           `json:"rejection_number"`
	ProductID        int64            `json:"product_id"`
	CustomerID       string           `json:"customer_id"`
	OrderID          *int64           `json:"order_id,omitempty"`
	RejectionDate    time.Time        `json:"rejection_date"`
	RejectedQuantity int              `json:"rejected_quantity"`
	Reason           string           `json:"reason"`
	Description      string           `json:"description,omitempty"`
	Status           string           `json:"status"`
	ResolutionDate   *time.Time       `json:"resolution_date,omitempty"`
	ResolutionNotes  string           `json:"resolution_notes,omitempty"`
	CostImpact       *decimal.Decimal `json:"cost_impact,omitempty"`
}

func (h *RejectionsHandler) Register(r chi.Router) {
	r.Post("/rejections", h.create)
	r.Get("/rejections/report", h.report)
	r.Post("/rejections/{id}/investigate", h.investigate)
	r.Post("/rejections/{id}/resolve", h.resolve)
	r.Post("/rejections/{id}/close", h.close)
}

func (h *RejectionsHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CreateRejectionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	rej, err := h.Service.Create(r.Context(), rejections.CreateCommand{
		Actor:       actor,
		CustomerID:  req.CustomerID,
		ProductID:   req.ProductID,
		OrderID:     req.OrderID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		Description: req.Description,
		CostImpact:  req.CostImpact,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRejectionResp(rej))
}

func (h *RejectionsHandler) investigate(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, nil, func(ctx context.Context, id int64, actor ledger.Actor) (ledger.MaterialRejection, error) {
		return h.Service.StartInvestigation(ctx, id, actor)
	})
}

func (h *RejectionsHandler) resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveReq
	decode := func() bool { return decodeOptionalJSON(w, r, &req) }
	h.move(w, r, decode, func(ctx context.Context, id int64, actor ledger.Actor) (ledger.MaterialRejection, error) {
		return h.Service.Resolve(ctx, id, req.Notes, actor)
	})
}

func (h *RejectionsHandler) close(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, nil, func(ctx context.Context, id int64, actor ledger.Actor) (ledger.MaterialRejection, error) {
		return h.Service.Close(ctx, id, actor)
	})
}

// move authenticates, parses the id, then runs decode (when set) before fn.
func (h *RejectionsHandler) move(w http.ResponseWriter, r *http.Request, decode func() bool, fn func(context.Context, int64, ledger.Actor) (ledger.MaterialRejection, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if decode != nil && !decode() {
		return
	}
	rej, err := fn(r.Context(), id, actor)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRejectionResp(rej))
}

func (h *RejectionsHandler) report(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	from, err := parseTimeParam(r, "start")
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	to, err := parseTimeParam(r, "end")
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	rep, err := h.Service.Report(r.Context(), actor, from, to)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// parseTimeParam accepts RFC3339 timestamps or plain dates (2006-01-02).
func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, ledger.Invalid("%s must be an RFC3339 timestamp or a date", name)
}

func toRejectionResp(r ledger.MaterialRejection) rejectionResp {
	return rejectionResp{
		ID:               r.ID,
		RejectionNumber:  r.RejectionNumber,
		ProductID:        r.ProductID,
		CustomerID:       r.CustomerID,
		OrderID:          r.OrderID,
		RejectionDate:    r.RejectionDate,
		RejectedQuantity: r.RejectedQuantity,
		Reason:           r.Reason,
		Description:      r.Description,
		Status:           string(r.Status),
		ResolutionDate:   r.ResolutionDate,
		ResolutionNotes:  r.ResolutionNotes,
		CostImpact:       r.CostImpact,
	}
}
