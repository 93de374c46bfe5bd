package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"gatepass/internal/models"
	"gatepass/internal/store"
)

func main() {
	drop := flag.Bool("drop", false, "drop tables before creating")
	seed := flag.Bool("seed", false, "insert a sample event")
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN not set")
	}

	ctx := context.Background()

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := &store.DB{Bun: bun.NewDB(sqldb, pgdialect.New())}

	if *drop {
		log.Println("Dropping tables...")
		if err := dropTables(ctx, db.Bun); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Creating tables...")
	if err := db.CreateTables(ctx); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	if *seed {
		log.Println("Seeding sample event...")
		if err := seedData(ctx, db.Bun); err != nil {
			log.Fatalf("Failed to seed: %v", err)
		}
	}

	log.Println("Done.")
}

func dropTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.ScanAudit)(nil),
		(*models.Item)(nil),
		(*models.Order)(nil),
		(*models.Event)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func seedData(ctx context.Context, db *bun.DB) error {
	event := models.Event{
		EventID:        "evt_sample",
		Name:           "Riverside Summer Concert",
		Date:           time.Now().AddDate(0, 1, 0),
		Venue:          "Riverside Amphitheater",
		AdmissionPrice: 4500,
		ParkingPrice:   1500,
		ScannerPIN:     "4268",
		Active:         true,
		CreatedAt:      time.Now(),
	}
	_, err := db.NewInsert().Model(&event).On("CONFLICT (event_id) DO NOTHING").Exec(ctx)
	return err
}
