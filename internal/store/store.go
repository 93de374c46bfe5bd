package store

import (
	"context"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"gatepass/internal/models"
)

// ErrAlreadyExists is returned when an insert hits the items table's
// primary key. Callers treat it as "already fulfilled", not a failure.
var ErrAlreadyExists = errors.New("record already exists")

type DB struct {
	Bun *bun.DB
}

// CreateTables creates all tables if they do not exist. Used by cmd/migrate
// and by in-memory test databases.
func (d *DB) CreateTables(ctx context.Context) error {
	tables := []interface{}{
		(*models.Event)(nil),
		(*models.Order)(nil),
		(*models.Item)(nil),
		(*models.ScanAudit)(nil),
	}
	for _, m := range tables {
		if _, err := d.Bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// isConflict classifies driver-level unique violations (postgres and the
// sqlite test driver phrase them differently).
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
