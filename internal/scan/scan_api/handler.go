package scan_api

import (
	"encoding/json"
	"net/http"

	"gatepass/internal/auth"
	"gatepass/internal/models"
	"gatepass/internal/scan"
	"gatepass/internal/utils"
)

type Handler struct {
	Service *scan.Service
}

func NewHandler(service *scan.Service) *Handler {
	return &Handler{Service: service}
}

// Scan validates one presented code. Always 200 with a ScanResult so the
// scanner app renders the outcome instead of interpreting status codes at
// the door.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.ItemID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("item_id is required", ""))
		return
	}

	token, _ := auth.ExtractTokenFromRequest(r)

	result := h.Service.Scan(r.Context(), req, token)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// PINLogin authenticates a scanner device for an event shift.
func (h *Handler) PINLogin(w http.ResponseWriter, r *http.Request) {
	var req models.PINLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	resp := h.Service.PINLogin(r.Context(), req)
	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnauthorized
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
