package analytics

import (
	"context"

	"github.com/uptrace/bun"

	"gatepass/internal/models"
)

// Service aggregates sales and door activity per event for the venue
// dashboard. Read-only over the same tables the pipeline writes.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// EventAnalytics is the per-event dashboard payload.
type EventAnalytics struct {
	EventID       string `json:"event_id"`
	EventName     string `json:"event_name,omitempty"`
	Orders        int    `json:"orders"`
	GrossRevenue  int64  `json:"gross_revenue"`
	TicketsSold   int    `json:"tickets_sold"`
	ParkingSold   int    `json:"parking_sold"`
	ItemsAdmitted int    `json:"items_admitted"`
	ItemsRefunded int    `json:"items_refunded"`
	ScanAttempts  int    `json:"scan_attempts"`
}

func (s *Service) GetEventAnalytics(ctx context.Context, eventID string) (*EventAnalytics, error) {
	result := &EventAnalytics{EventID: eventID}

	var event models.Event
	if err := s.db.NewSelect().Model(&event).Where("event_id = ?", eventID).Limit(1).Scan(ctx); err == nil {
		result.EventName = event.Name
	}

	orders, err := s.db.NewSelect().
		Model((*models.Order)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	result.Orders = orders

	err = s.db.NewRaw("SELECT COALESCE(SUM(amount_total), 0) FROM orders WHERE event_id = ?", eventID).
		Scan(ctx, &result.GrossRevenue)
	if err != nil {
		return nil, err
	}

	if result.TicketsSold, err = s.countItems(ctx, eventID, "kind = ?", models.KindAdmission); err != nil {
		return nil, err
	}
	if result.ParkingSold, err = s.countItems(ctx, eventID, "kind = ?", models.KindParking); err != nil {
		return nil, err
	}
	if result.ItemsAdmitted, err = s.countItems(ctx, eventID, "status = ?", models.ItemStatusUsed); err != nil {
		return nil, err
	}
	if result.ItemsRefunded, err = s.countItems(ctx, eventID, "status = ?", models.ItemStatusRefunded); err != nil {
		return nil, err
	}

	scans, err := s.db.NewSelect().
		Model((*models.ScanAudit)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	result.ScanAttempts = scans

	return result, nil
}

func (s *Service) countItems(ctx context.Context, eventID, cond string, arg interface{}) (int, error) {
	return s.db.NewSelect().
		Model((*models.Item)(nil)).
		Where("event_id = ?", eventID).
		Where(cond, arg).
		Count(ctx)
}
