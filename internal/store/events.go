package store

import (
	"context"

	"gatepass/internal/models"
)

// GetEventByID → fetch one event.
func (d *DB) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEventByPIN → fetch the active event matching a scanner PIN. Used by
// scanner-device login.
func (d *DB) GetEventByPIN(ctx context.Context, pin string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("scanner_pin = ?", pin).
		Where("active = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
