package fulfillment_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"

	"gatepass/internal/fulfillment"
	"gatepass/internal/logger"
)

// WebhookError classifies a webhook failure for the HTTP boundary. Only
// PublicError ever reaches the caller; InternalError goes to the logs.
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

type Handler struct {
	Worker        *fulfillment.Worker
	WebhookSecret string
	Logger        *logger.Logger
}

// StripeWebhook receives payment events. Signature failures get a 400;
// everything verified and queued is acked with 200 {received:true}. Later
// business failures never surface here, the idempotency guard makes the
// redeliveries we do trigger safe.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if werr := h.processWebhook(r); werr != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("[%s] %s", werr.Category, werr.InternalError))
		http.Error(w, werr.PublicError, werr.StatusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

func (h *Handler) processWebhook(r *http.Request) *WebhookError {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("Failed to read webhook payload: %v", err),
			OriginalErr:   err,
		}
	}

	event, err := fulfillment.VerifyEvent(payload, r.Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		if errors.Is(err, fulfillment.ErrMissingSecret) {
			return &WebhookError{
				Category:      "configuration",
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Webhook processing error",
				InternalError: "Stripe webhook secret is not configured",
				OriginalErr:   err,
			}
		}
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Webhook signature verification failed",
			InternalError: fmt.Sprintf("Signature verification failed: %v", err),
			OriginalErr:   err,
		}
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid event data",
				InternalError: fmt.Sprintf("Failed to unmarshal checkout session: %v", err),
				OriginalErr:   err,
			}
		}

		// Refuse before acking: a full queue must surface as an error so
		// the provider redelivers instead of the sale silently vanishing.
		if !h.Worker.Enqueue(&session) {
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusServiceUnavailable,
				PublicError:   "Fulfillment queue full",
				InternalError: fmt.Sprintf("Fulfillment queue full, rejected session %s", session.ID),
			}
		}
		h.Logger.Info("WEBHOOK", fmt.Sprintf("Queued fulfillment for session %s", session.ID))

	default:
		h.Logger.Info("WEBHOOK", fmt.Sprintf("Ignoring event type: %s", event.Type))
	}

	return nil
}
