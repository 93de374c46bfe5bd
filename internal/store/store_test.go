package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"gatepass/internal/models"
	"gatepass/internal/store"
)

// newTestDB opens a private in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *store.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := &store.DB{Bun: bun.NewDB(sqldb, sqlitedialect.New())}
	require.NoError(t, db.CreateTables(context.Background()))

	t.Cleanup(func() { db.Bun.Close() })
	return db
}

func seedOrder(t *testing.T, db *store.DB, sessionID string) models.Order {
	t.Helper()

	order := models.Order{
		SessionID:    sessionID,
		EventID:      "evt_1",
		BuyerName:    "Jane Doe",
		BuyerEmail:   "jane@example.com",
		AdmissionQty: 2,
		ParkingQty:   1,
		AmountTotal:  10500,
		Currency:     "usd",
		FulfilledAt:  time.Now(),
		CreatedAt:    time.Now(),
	}
	require.NoError(t, db.CreateOrder(context.Background(), order))
	return order
}

func seedItems(t *testing.T, db *store.DB, sessionID string) []models.Item {
	t.Helper()

	items := []models.Item{
		newItem(models.KindAdmission, sessionID, 1),
		newItem(models.KindAdmission, sessionID, 2),
		newItem(models.KindParking, sessionID, 1),
	}
	require.NoError(t, db.CreateItems(context.Background(), items))
	return items
}

func newItem(kind, sessionID string, seq int) models.Item {
	return models.Item{
		ItemID:     models.ItemID(kind, sessionID, seq),
		SessionID:  sessionID,
		EventID:    "evt_1",
		Kind:       kind,
		Status:     models.ItemStatusPurchased,
		BuyerName:  "Jane Doe",
		BuyerEmail: "jane@example.com",
		IssuedAt:   time.Now(),
	}
}
