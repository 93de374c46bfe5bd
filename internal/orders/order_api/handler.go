package order_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/logger"
	"gatepass/internal/models"
	"gatepass/internal/qr"
	"gatepass/internal/utils"
)

type DBLayer interface {
	GetOrderWithItems(ctx context.Context, sessionID string) (*models.OrderWithItems, error)
	GetItemByID(ctx context.Context, itemID string) (*models.Item, error)
}

type Handler struct {
	DB      DBLayer
	QRCache *qr.ImageCache
	Logger  *logger.Logger
}

func NewHandler(db DBLayer, cache *qr.ImageCache, log *logger.Logger) *Handler {
	return &Handler{DB: db, QRCache: cache, Logger: log}
}

// GetOrder serves the buyer's ticket page data: the order, its event and
// every item with its QR reference. Keyed by checkout session id, which the
// buyer got in their confirmation.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("order")
	if sessionID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("order query parameter is required", ""))
		return
	}

	result, err := h.DB.GetOrderWithItems(r.Context(), sessionID)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", ""))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Order retrieved", result))
}

// GetQRImage serves one item's QR PNG, redis first, items table second.
// This is the URL embedded in confirmation emails.
func (h *Handler) GetQRImage(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		http.Error(w, "item id is required", http.StatusBadRequest)
		return
	}

	if h.QRCache != nil {
		if png, err := h.QRCache.Get(r.Context(), itemID); err == nil && png != nil {
			servePNG(w, png)
			return
		}
	}

	item, err := h.DB.GetItemByID(r.Context(), itemID)
	if err != nil || len(item.QRCode) == 0 {
		http.Error(w, "QR code not found", http.StatusNotFound)
		return
	}

	if h.QRCache != nil {
		if err := h.QRCache.Set(r.Context(), itemID, item.QRCode); err != nil {
			h.Logger.Warn("QR", fmt.Sprintf("Failed to cache QR image for %s: %v", itemID, err))
		}
	}

	servePNG(w, item.QRCode)
}

func servePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(png)
}
