package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/inventory"
)

type StockStore interface {
	Get(ctx context.Context, productID string) (inventory.StockItem, error)
	SetAvailable(ctx context.Context, productID string, available int) error
}

// InventoryHandler is the staff-only stock surface.
type InventoryHandler struct {
	repo StockStore
	log  *zap.Logger
}

func NewInventoryHandler(repo StockStore, log *zap.Logger) *InventoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryHandler{repo: repo, log: log}
}

func (h *InventoryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	item, err := h.repo.Get(r.Context(), productID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.log.Error("get availability failed", zap.String("product_id", productID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) AdjustAvailability(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.repo.SetAvailable(r.Context(), req.ProductID, *req.Available); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.log.Error("adjust availability failed", zap.String("product_id", req.ProductID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.log.Info("stock adjusted", zap.String("product_id", req.ProductID), zap.Int("available", *req.Available))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
