package analytics_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/analytics"
	"gatepass/internal/logger"
	"gatepass/internal/utils"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) GetEventAnalytics(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	if eventID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("event id is required", ""))
		return
	}

	result, err := h.Service.GetEventAnalytics(r.Context(), eventID)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to compute analytics", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event analytics", result))
}
