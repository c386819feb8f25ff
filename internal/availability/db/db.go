package db

import (
	"context"

	"ms-campsite/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) GetPlot(ctx context.Context, id string) (*models.Plot, error) {
	var plot models.Plot
	err := d.Bun.NewSelect().
		Model(&plot).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &plot, nil
}

// ActiveReservationsForPlot returns every non-cancelled hold on the plot,
// oldest first so the first conflict reported is the earliest one placed.
func (d *DB) ActiveReservationsForPlot(ctx context.Context, plotID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Where("plot_id = ?", plotID).
		Where("status != ?", models.ReservationStatusCancelled).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// ActiveStaysForPlot returns active, checked-in stays holding the plot.
// The primary predicate is the plot-id FK; the display-name match survives
// only for rows migrated from the old schema, where the stay recorded plot
// names and the plot row has no back-reference.
func (d *DB) ActiveStaysForPlot(ctx context.Context, plotID, plotName string) ([]models.Stay, error) {
	var stays []models.Stay
	err := d.Bun.NewSelect().
		Model(&stays).
		Where("status = ?", models.StayStatusActive).
		Where("checked_in = ?", true).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("EXISTS (SELECT 1 FROM plots AS p WHERE p.id = ? AND p.stay_id = stay.id)", plotID).
				WhereOr("assigned_plot_names = ?", plotName)
		}).
		Order("scheduled_arrival ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return stays, nil
}

func (d *DB) InsertReservation(ctx context.Context, res *models.Reservation) error {
	_, err := d.Bun.NewInsert().
		Model(res).
		Exec(ctx)
	return err
}

func (d *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	err := d.Bun.NewSelect().
		Model(&res).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelReservation flips status only; reservation rows are never deleted.
func (d *DB) CancelReservation(ctx context.Context, id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("status = ?", models.ReservationStatusCancelled).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
