package refund_api

import (
	"encoding/json"
	"errors"
	"net/http"

	"gatepass/internal/models"
	"gatepass/internal/refund"
	"gatepass/internal/utils"
)

type Handler struct {
	Service *refund.Service
}

func NewHandler(service *refund.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req models.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.ItemID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("item_id is required", ""))
		return
	}

	resp, err := h.Service.Refund(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, refund.ErrItemNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Item not found", ""))
		case errors.Is(err, refund.ErrAlreadyRefunded):
			utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Item is already refunded", ""))
		default:
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Refund failed", err.Error()))
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Refund processed", resp))
}
