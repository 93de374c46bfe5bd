package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"gatepass/internal/models"
)

// CreateOrder → insert the order row for a fulfilled session.
func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(ctx)
	if isConflict(err) {
		return ErrAlreadyExists
	}
	return err
}

// CreateOrderWithItems inserts the order row and all of its items in one
// transaction, so a mid-insert failure can never leave an order on record
// with no items behind it. A primary key conflict on either table means
// another delivery already fulfilled this session; nothing is written and
// ErrAlreadyExists is returned.
func (d *DB) CreateOrderWithItems(ctx context.Context, order models.Order, items []models.Item) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&items).Exec(ctx)
		return err
	})
	if isConflict(err) {
		return ErrAlreadyExists
	}
	return err
}

// GetOrderBySession → fetch one order by its checkout session id.
func (d *DB) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderWithItems retrieves an order, its event and all of its items for
// the buyer-facing ticket page.
func (d *DB) GetOrderWithItems(ctx context.Context, sessionID string) (*models.OrderWithItems, error) {
	order, err := d.GetOrderBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	items, err := d.GetItemsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items for session %s: %w", sessionID, err)
	}

	result := &models.OrderWithItems{Order: *order, Items: items}

	if event, err := d.GetEventByID(ctx, order.EventID); err == nil {
		result.Event = event
	}

	return result, nil
}
