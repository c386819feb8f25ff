package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"ms-campsite/internal/models"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Development schema bootstrap: drops, recreates and optionally seeds the
// tables straight from the bun models. Production schemas move through the
// SQL files in migrations/ instead.
func main() {
	drop := flag.Bool("drop", false, "drop tables before creating them")
	seed := flag.Bool("seed", false, "insert sample data after creating tables")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	if *drop {
		log.Println("Dropping tables...")
		dropTables(ctx, db)
	}

	log.Println("Creating tables...")
	createTables(ctx, db)

	if *seed {
		log.Println("Seeding sample data...")
		seedData(ctx, db)
	}

	log.Println("Done.")
}

func dropTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{(*models.Reservation)(nil), (*models.Occupant)(nil), (*models.Plot)(nil), (*models.Stay)(nil)}
	for _, m := range tables {
		_, _ = db.NewDropTable().Model(m).IfExists().Cascade().Exec(ctx)
	}
}

func createTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{(*models.Stay)(nil), (*models.Plot)(nil), (*models.Occupant)(nil), (*models.Reservation)(nil)}
	for _, m := range tables {
		_, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx)
		if err != nil {
			log.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}
}

func seedData(ctx context.Context, db *bun.DB) {
	plots := []models.Plot{
		{ID: "plot-a1", Name: "A1", Status: models.PlotStatusFree},
		{ID: "plot-a2", Name: "A2", Status: models.PlotStatusFree},
		{ID: "plot-b1", Name: "B1", Status: models.PlotStatusFree},
		{ID: "plot-b2", Name: "B2", Status: models.PlotStatusMaintenance},
	}
	_, _ = db.NewInsert().Model(&plots).Exec(ctx)

	stay := models.Stay{
		ID:                 "stay-sample",
		ResponsibleContact: "0123456789",
		ScheduledArrival:   time.Now().AddDate(0, 0, 7),
		ScheduledDeparture: time.Now().AddDate(0, 0, 10),
		PersonCount:        2,
		PlotCount:          1,
		Status:             models.StayStatusActive,
		CreatedAt:          time.Now(),
	}
	_, _ = db.NewInsert().Model(&stay).Exec(ctx)

	occupants := []models.Occupant{
		{ContactNumber: "0123456789", FullName: "Asha Perera", Age: 34, PaymentResponsible: true, ResponsibleContact: "0123456789", StayID: "stay-sample"},
		{ContactNumber: "0123456790", FullName: "Nimal Perera", Age: 36, ResponsibleContact: "0123456789", StayID: "stay-sample"},
	}
	_, _ = db.NewInsert().Model(&occupants).Exec(ctx)

	reservation := models.Reservation{
		ID:            "res-sample",
		PlotID:        "plot-a1",
		StartDate:     time.Now().AddDate(0, 1, 0),
		EndDate:       time.Now().AddDate(0, 1, 2),
		HolderName:    "Kamala Silva",
		HolderContact: "0778888888",
		Status:        models.ReservationStatusConfirmed,
		CreatedAt:     time.Now(),
	}
	_, _ = db.NewInsert().Model(&reservation).Exec(ctx)
}
