package db

import (
	"context"
	"database/sql"
	"fmt"

	"ms-campsite/internal/models"
	"ms-campsite/internal/stay"

	"github.com/uptrace/bun"
)

// DB implements stay.Gateway on top of bun. Bun is either a *bun.DB or,
// inside WithTx, the running bun.Tx.
type DB struct {
	Bun bun.IDB
}

// WithTx runs fn inside a single store transaction. Nested calls reuse the
// transaction already in flight.
func (d *DB) WithTx(ctx context.Context, fn func(tx stay.Gateway) error) error {
	bdb, ok := d.Bun.(*bun.DB)
	if !ok {
		return fn(d)
	}
	return bdb.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&DB{Bun: tx})
	})
}

// ---------------- STAYS ----------------

func (d *DB) GetStay(ctx context.Context, id string) (*models.Stay, error) {
	var s models.Stay
	err := d.Bun.NewSelect().
		Model(&s).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) InsertStay(ctx context.Context, s *models.Stay) error {
	_, err := d.Bun.NewInsert().
		Model(s).
		Exec(ctx)
	return err
}

// UpdateStay writes every mutable column, guarded by the optimistic version
// counter. A lost race surfaces as stay.ErrConflict and leaves the in-memory
// version untouched.
func (d *DB) UpdateStay(ctx context.Context, s *models.Stay) error {
	oldVersion := s.Version
	s.Version++

	res, err := d.Bun.NewUpdate().
		Model(s).
		ExcludeColumn("id", "created_at").
		Where("id = ? AND version = ?", s.ID, oldVersion).
		Exec(ctx)
	if err != nil {
		s.Version = oldVersion
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		s.Version = oldVersion
		return fmt.Errorf("stay %s: %w", s.ID, stay.ErrConflict)
	}
	return nil
}

// ---------------- OCCUPANTS ----------------

func (d *DB) OccupantsByStay(ctx context.Context, stayID string) ([]models.Occupant, error) {
	var occupants []models.Occupant
	err := d.Bun.NewSelect().
		Model(&occupants).
		Where("stay_id = ?", stayID).
		Order("full_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return occupants, nil
}

func (d *DB) InsertOccupants(ctx context.Context, occupants []models.Occupant) error {
	if len(occupants) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().
		Model(&occupants).
		Exec(ctx)
	return err
}

// ReassignOccupants relocates every occupant of fromStayID in one statement:
// new stay reference, the destination's responsible contact, and an
// unconditional demotion of the payment-responsible flag.
func (d *DB) ReassignOccupants(ctx context.Context, fromStayID, toStayID, responsibleContact string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Occupant)(nil)).
		Set("stay_id = ?", toStayID).
		Set("responsible_contact = ?", responsibleContact).
		Set("payment_responsible = ?", false).
		Where("stay_id = ?", fromStayID).
		Exec(ctx)
	return err
}

func (d *DB) SetOccupantResponsible(ctx context.Context, contactNumber string, responsible bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Occupant)(nil)).
		Set("payment_responsible = ?", responsible).
		Where("contact_number = ?", contactNumber).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---------------- PLOTS ----------------

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

// AssignPlot marks the plot occupied and points its back-reference at the
// stay. Status and back-reference always move together, so the
// occupied-iff-referenced invariant holds after every statement.
func (d *DB) AssignPlot(ctx context.Context, plotID, stayID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Plot)(nil)).
		Set("status = ?", models.PlotStatusOccupied).
		Set("stay_id = ?", stayID).
		Set("version = version + 1").
		Where("id = ?", plotID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("plot %s: %w", plotID, stay.ErrPlotNotFound)
	}
	return nil
}

func (d *DB) ReassignPlots(ctx context.Context, fromStayID, toStayID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Plot)(nil)).
		Set("stay_id = ?", toStayID).
		Set("version = version + 1").
		Where("stay_id = ?", fromStayID).
		Exec(ctx)
	return err
}

func (d *DB) ReleasePlotsByStay(ctx context.Context, stayID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Plot)(nil)).
		Set("status = ?", models.PlotStatusFree).
		Set("stay_id = NULL").
		Set("version = version + 1").
		Where("stay_id = ?", stayID).
		Exec(ctx)
	return err
}

func (d *DB) SetPlotStatus(ctx context.Context, plotID, status string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Plot)(nil)).
		Set("status = ?", status).
		Set("version = version + 1").
		Where("id = ?", plotID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("plot %s: %w", plotID, stay.ErrPlotNotFound)
	}
	return nil
}
