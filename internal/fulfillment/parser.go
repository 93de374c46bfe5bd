package fulfillment

import (
	"errors"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v82"

	"gatepass/internal/models"
)

var ErrMissingBuyerEmail = errors.New("buyer email missing from metadata and customer details")

// DefaultBuyerName is used when the checkout collected no name.
const DefaultBuyerName = "Guest"

// ParseOrder normalizes a completed checkout session into an Order. The raw
// metadata map never travels past this function.
//
// Quantity policy: malformed or missing quantities parse as 0. A session
// where both quantities resolve to 0 is fulfilled as one admission item:
// the payment succeeded, so dropping it would lose a paid sale.
func ParseOrder(session *stripe.CheckoutSession) (models.Order, error) {
	meta := session.Metadata

	order := models.Order{
		SessionID:    session.ID,
		EventID:      meta["event_id"],
		AdmissionQty: parseQty(meta["admission_qty"]),
		ParkingQty:   parseQty(meta["parking_qty"]),
		AmountTotal:  session.AmountTotal,
		Currency:     string(session.Currency),
		CreatedAt:    time.Now(),
	}

	if session.PaymentIntent != nil {
		order.PaymentIntentID = session.PaymentIntent.ID
	}

	order.BuyerEmail = meta["buyer_email"]
	order.BuyerName = meta["buyer_name"]
	order.BuyerPhone = meta["buyer_phone"]

	if details := session.CustomerDetails; details != nil {
		if order.BuyerEmail == "" {
			order.BuyerEmail = details.Email
		}
		if order.BuyerName == "" {
			order.BuyerName = details.Name
		}
		if order.BuyerPhone == "" {
			order.BuyerPhone = details.Phone
		}
	}

	if order.BuyerEmail == "" {
		return models.Order{}, ErrMissingBuyerEmail
	}

	if order.BuyerName == "" {
		order.BuyerName = DefaultBuyerName
	}

	// Zero-quantity fallback, see policy above.
	if order.AdmissionQty == 0 && order.ParkingQty == 0 {
		order.AdmissionQty = 1
	}

	return order, nil
}

func parseQty(raw string) int {
	if raw == "" {
		return 0
	}
	qty, err := strconv.Atoi(raw)
	if err != nil || qty < 0 {
		return 0
	}
	return qty
}
