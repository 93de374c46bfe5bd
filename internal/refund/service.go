package refund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"

	"gatepass/internal/logger"
	"gatepass/internal/models"
)

var (
	ErrItemNotFound    = errors.New("refund item not found")
	ErrAlreadyRefunded = errors.New("item is already refunded")
)

type DBLayer interface {
	GetItemByID(ctx context.Context, itemID string) (*models.Item, error)
	GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error)
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	MarkItemRefunded(ctx context.Context, itemID string, amount int64, at time.Time) (bool, error)
	ReopenItem(ctx context.Context, itemID, priorStatus string) error
}

// Provider issues the refund at the payment processor.
type Provider interface {
	CreateRefund(ctx context.Context, paymentIntentID string, amount int64) (string, error)
}

type Notifier interface {
	SendRefundNotice(ctx context.Context, item models.Item, amount int64, currency string) error
}

type KafkaPublisher interface {
	PublishItemRefunded(itemID, sessionID string, amount int64, stripeRefundID string) error
}

type Service struct {
	DB       DBLayer
	Provider Provider
	Notifier Notifier
	Kafka    KafkaPublisher
	Logger   *logger.Logger
}

func NewService(db DBLayer, provider Provider, notifier Notifier, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:       db,
		Provider: provider,
		Notifier: notifier,
		Kafka:    kafka,
		Logger:   log,
	}
}

// Refund reverses one item. The row is claimed with a conditional status
// update before the processor is asked to move money, so concurrent
// requests for the same item issue at most one processor refund; a
// transient processor failure reopens the row for retry. When the
// processor reports the money already moved, only the local status is
// reconciled and the response says so.
func (s *Service) Refund(ctx context.Context, req models.RefundRequest) (models.RefundResponse, error) {
	item, err := s.DB.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return models.RefundResponse{}, ErrItemNotFound
	}
	if req.SessionID != "" && item.SessionID != req.SessionID {
		return models.RefundResponse{}, ErrItemNotFound
	}
	if item.Status == models.ItemStatusRefunded {
		return models.RefundResponse{}, ErrAlreadyRefunded
	}

	order, err := s.DB.GetOrderBySession(ctx, item.SessionID)
	if err != nil {
		return models.RefundResponse{}, fmt.Errorf("load order %s: %w", item.SessionID, err)
	}

	amount := s.refundAmount(ctx, order, item)

	// Claim the row before touching the processor. The conditional update
	// admits exactly one winner, so two concurrent requests for the same
	// item can never both reach the provider.
	now := time.Now()
	ok, err := s.DB.MarkItemRefunded(ctx, req.ItemID, amount, now)
	if err != nil {
		return models.RefundResponse{}, fmt.Errorf("mark item %s refunded: %w", req.ItemID, err)
	}
	if !ok {
		return models.RefundResponse{}, ErrAlreadyRefunded
	}

	var refundID string
	var providerSkipped bool
	switch {
	case order.PaymentIntentID == "":
		// Nothing to reverse at the processor, comp or import orders.
		providerSkipped = true
		s.Logger.Warn("REFUND", fmt.Sprintf("Order %s has no payment intent, refunding locally only", order.SessionID))
	default:
		refundID, err = s.Provider.CreateRefund(ctx, order.PaymentIntentID, amount)
		if err != nil {
			if !isProviderConflict(err) {
				// Give the row back so the operator can retry once the
				// processor recovers.
				if revertErr := s.DB.ReopenItem(ctx, req.ItemID, item.Status); revertErr != nil {
					s.Logger.Error("REFUND", fmt.Sprintf("Failed to reopen item %s after processor error: %v", req.ItemID, revertErr))
				}
				return models.RefundResponse{}, fmt.Errorf("processor refund for %s: %w", req.ItemID, err)
			}
			// Money already moved for this payment. Reconcile our side.
			providerSkipped = true
			s.Logger.Warn("REFUND", fmt.Sprintf("Processor reports %s already refunded, reconciling item %s locally", order.PaymentIntentID, req.ItemID))
		}
	}

	s.Logger.Info("REFUND", fmt.Sprintf("Item %s refunded for %d %s", req.ItemID, amount, order.Currency))

	if s.Notifier != nil {
		if err := s.Notifier.SendRefundNotice(ctx, *item, amount, order.Currency); err != nil {
			s.Logger.Warn("NOTIFY", fmt.Sprintf("Refund notice for %s failed: %v", req.ItemID, err))
		}
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishItemRefunded(req.ItemID, item.SessionID, amount, refundID); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish refund event for %s: %v", req.ItemID, err))
		}
	}

	return models.RefundResponse{
		ItemID:          req.ItemID,
		RefundAmount:    amount,
		StripeRefundID:  refundID,
		ProviderSkipped: providerSkipped,
		RefundedAt:      now,
	}, nil
}

// refundAmount is the event's unit price for the item kind, or an even
// split of the order total when the event record is gone.
func (s *Service) refundAmount(ctx context.Context, order *models.Order, item *models.Item) int64 {
	if event, err := s.DB.GetEventByID(ctx, item.EventID); err == nil {
		return event.PriceFor(item.Kind)
	}

	units := order.AdmissionQty + order.ParkingQty
	if units == 0 {
		return order.AmountTotal
	}
	return order.AmountTotal / int64(units)
}

// isProviderConflict reports whether the processor rejected the refund
// because the money was already returned, rather than a transient failure.
func isProviderConflict(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	switch stripeErr.Code {
	case stripe.ErrorCodeChargeAlreadyRefunded, stripe.ErrorCodeAmountTooLarge:
		return true
	}
	return false
}
