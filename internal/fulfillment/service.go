package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"golang.org/x/sync/errgroup"

	"gatepass/internal/logger"
	"gatepass/internal/models"
	"gatepass/internal/store"
)

// ErrPersistence marks failures that webhook redelivery should retry. The
// idempotency guard makes reprocessing safe.
var ErrPersistence = errors.New("persistence failure")

// qrConcurrency caps parallel QR renders per order so a large order doesn't
// saturate the database connection pool.
const qrConcurrency = 4

type DBLayer interface {
	CreateOrderWithItems(ctx context.Context, order models.Order, items []models.Item) error
	CountItemsBySession(ctx context.Context, sessionID string) (int, error)
	UpdateItemQR(ctx context.Context, itemID string, png []byte, ref string) error
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
}

type SessionGuard interface {
	Acquire(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
}

type QRGenerator interface {
	Generate(itemID string) ([]byte, error)
	RefFor(itemID string) string
}

type Notifier interface {
	SendConfirmation(ctx context.Context, order models.Order, event *models.Event, items []models.Item) error
}

type KafkaPublisher interface {
	PublishOrderFulfilled(sessionID, eventID string, itemIDs []string) error
}

type Service struct {
	DB       DBLayer
	Guard    SessionGuard
	QR       QRGenerator
	Notifier Notifier
	Kafka    KafkaPublisher
	Logger   *logger.Logger
}

func NewService(db DBLayer, guard SessionGuard, qrGen QRGenerator, notifier Notifier, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:       db,
		Guard:    guard,
		QR:       qrGen,
		Notifier: notifier,
		Kafka:    kafka,
		Logger:   log,
	}
}

// FulfillSession turns one verified checkout.session.completed event into
// persisted items plus a buyer notification. Safe to call any number of
// times for the same session.
func (s *Service) FulfillSession(ctx context.Context, session *stripe.CheckoutSession) error {
	order, err := ParseOrder(session)
	if err != nil {
		return fmt.Errorf("failed to parse order from session %s: %w", session.ID, err)
	}

	ok, err := s.Guard.Acquire(ctx, order.SessionID)
	if err != nil {
		s.Logger.Warn("FULFILL", fmt.Sprintf("Session guard unavailable for %s, relying on DB constraint: %v", order.SessionID, err))
	} else if !ok {
		s.Logger.LogFulfillment("SKIP", order.SessionID, "another delivery of this session is already in flight")
		return nil
	} else {
		defer func() {
			if err := s.Guard.Release(context.Background(), order.SessionID); err != nil {
				s.Logger.Warn("FULFILL", fmt.Sprintf("Failed to release session guard for %s: %v", order.SessionID, err))
			}
		}()
	}

	count, err := s.DB.CountItemsBySession(ctx, order.SessionID)
	if err != nil {
		return fmt.Errorf("%w: idempotency check for session %s: %v", ErrPersistence, order.SessionID, err)
	}
	if count > 0 {
		s.Logger.LogFulfillment("SKIP", order.SessionID, fmt.Sprintf("already fulfilled (%d items exist)", count))
		return nil
	}

	event, err := s.DB.GetEventByID(ctx, order.EventID)
	if err != nil {
		// The email degrades to a generic event name; the sale still stands.
		s.Logger.Warn("FULFILL", fmt.Sprintf("Event %s not found for session %s: %v", order.EventID, order.SessionID, err))
		event = nil
	}

	order.FulfilledAt = time.Now()
	items := MaterializeItems(order)

	// Order and items land in one transaction: a partial failure writes
	// nothing, so webhook redelivery reprocesses the session from scratch.
	if err := s.DB.CreateOrderWithItems(ctx, order, items); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			s.Logger.LogFulfillment("SKIP", order.SessionID, "concurrent delivery won the insert")
			return nil
		}
		return fmt.Errorf("%w: persist order %s: %v", ErrPersistence, order.SessionID, err)
	}

	s.Logger.LogFulfillment("CREATED", order.SessionID,
		fmt.Sprintf("%d admission + %d parking items", order.AdmissionQty, order.ParkingQty))

	s.attachQRCodes(ctx, items)

	if err := s.Notifier.SendConfirmation(ctx, order, event, items); err != nil {
		// Never roll back a completed sale over a notification failure.
		s.Logger.Error("NOTIFY", fmt.Sprintf("Confirmation for session %s failed, flagged for follow-up: %v", order.SessionID, err))
	}

	if s.Kafka != nil {
		itemIDs := make([]string, len(items))
		for i, item := range items {
			itemIDs[i] = item.ItemID
		}
		if err := s.Kafka.PublishOrderFulfilled(order.SessionID, order.EventID, itemIDs); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish fulfillment event for %s: %v", order.SessionID, err))
		}
	}

	s.Logger.LogFulfillment("DONE", order.SessionID, "fulfillment complete")
	return nil
}

// attachQRCodes renders and persists one QR per item, a few at a time.
// A failed persist keeps the PNG in memory with an empty ref so the email
// falls back to an inline image; a failed render leaves the item without a
// code rather than failing the whole order.
func (s *Service) attachQRCodes(ctx context.Context, items []models.Item) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(qrConcurrency)

	for i := range items {
		g.Go(func() error {
			item := &items[i]

			png, err := s.QR.Generate(item.ItemID)
			if err != nil {
				s.Logger.Error("QR", fmt.Sprintf("Failed to render QR for %s: %v", item.ItemID, err))
				return nil
			}

			ref := s.QR.RefFor(item.ItemID)
			if err := s.DB.UpdateItemQR(ctx, item.ItemID, png, ref); err != nil {
				s.Logger.Warn("QR", fmt.Sprintf("Failed to persist QR for %s, falling back to inline image: %v", item.ItemID, err))
				ref = ""
			}

			item.QRCode = png
			item.QRRef = ref
			return nil
		})
	}

	_ = g.Wait()
}

// MaterializeItems expands an order into its item rows, admission first
// then parking, 1-indexed per kind so numbering is deterministic.
func MaterializeItems(order models.Order) []models.Item {
	items := make([]models.Item, 0, order.AdmissionQty+order.ParkingQty)

	appendKind := func(kind string, qty int) {
		for seq := 1; seq <= qty; seq++ {
			items = append(items, models.Item{
				ItemID:     models.ItemID(kind, order.SessionID, seq),
				SessionID:  order.SessionID,
				EventID:    order.EventID,
				Kind:       kind,
				Status:     models.ItemStatusPurchased,
				BuyerName:  order.BuyerName,
				BuyerEmail: order.BuyerEmail,
				BuyerPhone: order.BuyerPhone,
				IssuedAt:   order.FulfilledAt,
			})
		}
	}

	appendKind(models.KindAdmission, order.AdmissionQty)
	appendKind(models.KindParking, order.ParkingQty)

	return items
}
