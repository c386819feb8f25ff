package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-campsite/internal/models"
	"ms-campsite/internal/stay"
	"ms-campsite/internal/stay/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	// Create required tables
	for _, model := range []interface{}{
		(*models.Stay)(nil),
		(*models.Occupant)(nil),
		(*models.Plot)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func sampleStay(id string) *models.Stay {
	return &models.Stay{
		ID:                 id,
		ResponsibleContact: "0711111111",
		ScheduledArrival:   time.Now().AddDate(0, 0, 1),
		ScheduledDeparture: time.Now().AddDate(0, 0, 4),
		PersonCount:        2,
		PlotCount:          1,
		Status:             models.StayStatusActive,
		CreatedAt:          time.Now(),
	}
}

func TestStayRoundTrip(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	stayID := uuid.New().String()
	created := sampleStay(stayID)
	created.PlotIDs = []string{"plot-a1", "plot-a2"}

	err := stayDB.InsertStay(context.Background(), created)
	assert.NoError(t, err)

	loaded, err := stayDB.GetStay(context.Background(), stayID)
	assert.NoError(t, err)
	assert.Equal(t, stayID, loaded.ID)
	assert.Equal(t, "0711111111", loaded.ResponsibleContact)
	assert.Equal(t, []string{"plot-a1", "plot-a2"}, loaded.PlotIDs)

	// Non-existent stay
	loaded, err = stayDB.GetStay(context.Background(), "non-existent")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.Nil(t, loaded)
}

func TestUpdateStayVersionConflict(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	stayID := uuid.New().String()
	require.NoError(t, stayDB.InsertStay(context.Background(), sampleStay(stayID)))

	// Two readers load the same row.
	first, err := stayDB.GetStay(context.Background(), stayID)
	require.NoError(t, err)
	second, err := stayDB.GetStay(context.Background(), stayID)
	require.NoError(t, err)

	// First writer wins and bumps the version.
	first.PersonCount = 5
	err = stayDB.UpdateStay(context.Background(), first)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	// Second writer still carries the stale version and must lose.
	second.PersonCount = 9
	err = stayDB.UpdateStay(context.Background(), second)
	assert.ErrorIs(t, err, stay.ErrConflict)
	assert.Equal(t, int64(0), second.Version, "a failed update must not advance the in-memory version")

	loaded, err := stayDB.GetStay(context.Background(), stayID)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.PersonCount)
	assert.Equal(t, int64(1), loaded.Version)
}

func TestReassignOccupantsDemotes(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, stayDB.InsertStay(context.Background(), sampleStay("stay-src")))
	require.NoError(t, stayDB.InsertStay(context.Background(), sampleStay("stay-dst")))

	occupants := []models.Occupant{
		{ContactNumber: "0711", FullName: "Asha", PaymentResponsible: true, ResponsibleContact: "0711", StayID: "stay-src"},
		{ContactNumber: "0712", FullName: "Bimal", ResponsibleContact: "0711", StayID: "stay-src"},
		{ContactNumber: "0721", FullName: "Chamari", PaymentResponsible: true, ResponsibleContact: "0721", StayID: "stay-dst"},
	}
	require.NoError(t, stayDB.InsertOccupants(context.Background(), occupants))

	err := stayDB.ReassignOccupants(context.Background(), "stay-src", "stay-dst", "0721")
	assert.NoError(t, err)

	moved, err := stayDB.OccupantsByStay(context.Background(), "stay-dst")
	require.NoError(t, err)
	assert.Len(t, moved, 3)
	for _, o := range moved {
		if o.ContactNumber == "0721" {
			assert.True(t, o.PaymentResponsible, "resident occupants keep their flag")
			continue
		}
		assert.Equal(t, "0721", o.ResponsibleContact)
		assert.False(t, o.PaymentResponsible, "relocated occupants are demoted")
	}

	remaining, err := stayDB.OccupantsByStay(context.Background(), "stay-src")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSetOccupantResponsible(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, stayDB.InsertStay(context.Background(), sampleStay("stay-1")))
	require.NoError(t, stayDB.InsertOccupants(context.Background(), []models.Occupant{
		{ContactNumber: "0711", FullName: "Asha", StayID: "stay-1"},
	}))

	err := stayDB.SetOccupantResponsible(context.Background(), "0711", true)
	assert.NoError(t, err)

	occupants, err := stayDB.OccupantsByStay(context.Background(), "stay-1")
	require.NoError(t, err)
	require.Len(t, occupants, 1)
	assert.True(t, occupants[0].PaymentResponsible)

	err = stayDB.SetOccupantResponsible(context.Background(), "non-existent", true)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestAssignAndReleasePlots(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, stayDB.InsertStay(context.Background(), sampleStay("stay-1")))
	plots := []models.Plot{
		{ID: "plot-a1", Name: "A1", Status: models.PlotStatusFree},
		{ID: "plot-a2", Name: "A2", Status: models.PlotStatusFree},
	}
	_, err := bunDB.NewInsert().Model(&plots).Exec(context.Background())
	require.NoError(t, err)

	err = stayDB.AssignPlot(context.Background(), "plot-a1", "stay-1")
	assert.NoError(t, err)

	plot, err := stayDB.GetPlot(context.Background(), "plot-a1")
	require.NoError(t, err)
	assert.Equal(t, models.PlotStatusOccupied, plot.Status)
	assert.Equal(t, "stay-1", plot.StayID)
	assert.Equal(t, int64(1), plot.Version)

	// The sibling plot stays untouched.
	other, err := stayDB.GetPlot(context.Background(), "plot-a2")
	require.NoError(t, err)
	assert.Equal(t, models.PlotStatusFree, other.Status)

	err = stayDB.ReleasePlotsByStay(context.Background(), "stay-1")
	assert.NoError(t, err)

	plot, err = stayDB.GetPlot(context.Background(), "plot-a1")
	require.NoError(t, err)
	assert.Equal(t, models.PlotStatusFree, plot.Status)
	assert.Empty(t, plot.StayID)

	err = stayDB.AssignPlot(context.Background(), "non-existent", "stay-1")
	assert.ErrorIs(t, err, stay.ErrPlotNotFound)
}

func TestReassignPlots(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, stayDB.InsertStay(context.Background(), sampleStay("stay-src")))
	require.NoError(t, stayDB.InsertStay(context.Background(), sampleStay("stay-dst")))
	plots := []models.Plot{
		{ID: "plot-a1", Name: "A1", Status: models.PlotStatusOccupied, StayID: "stay-src"},
		{ID: "plot-b1", Name: "B1", Status: models.PlotStatusOccupied, StayID: "stay-dst"},
	}
	_, err := bunDB.NewInsert().Model(&plots).Exec(context.Background())
	require.NoError(t, err)

	err = stayDB.ReassignPlots(context.Background(), "stay-src", "stay-dst")
	assert.NoError(t, err)

	for _, id := range []string{"plot-a1", "plot-b1"} {
		plot, err := stayDB.GetPlot(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "stay-dst", plot.StayID)
		assert.Equal(t, models.PlotStatusOccupied, plot.Status)
	}
}

func TestSetPlotStatus(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	plots := []models.Plot{{ID: "plot-a1", Name: "A1", Status: models.PlotStatusFree}}
	_, err := bunDB.NewInsert().Model(&plots).Exec(context.Background())
	require.NoError(t, err)

	err = stayDB.SetPlotStatus(context.Background(), "plot-a1", models.PlotStatusMaintenance)
	assert.NoError(t, err)

	plot, err := stayDB.GetPlot(context.Background(), "plot-a1")
	require.NoError(t, err)
	assert.Equal(t, models.PlotStatusMaintenance, plot.Status)

	err = stayDB.SetPlotStatus(context.Background(), "non-existent", models.PlotStatusFree)
	assert.ErrorIs(t, err, stay.ErrPlotNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	stayID := uuid.New().String()
	err := stayDB.WithTx(context.Background(), func(tx stay.Gateway) error {
		if err := tx.InsertStay(context.Background(), sampleStay(stayID)); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	// The insert must not have survived the failed transaction.
	count, err := bunDB.NewSelect().
		Model((*models.Stay)(nil)).
		Where("id = ?", stayID).
		Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestWithTxCommits(t *testing.T) {
	stayDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	stayID := uuid.New().String()
	err := stayDB.WithTx(context.Background(), func(tx stay.Gateway) error {
		return tx.InsertStay(context.Background(), sampleStay(stayID))
	})
	assert.NoError(t, err)

	count, err := bunDB.NewSelect().
		Model((*models.Stay)(nil)).
		Where("id = ?", stayID).
		Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
