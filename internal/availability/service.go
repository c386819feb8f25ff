package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-campsite/internal/models"

	"github.com/google/uuid"
)

const (
	ReasonReserved = "reserved"
	ReasonOccupied = "occupied"
)

var (
	ErrInvalidRange = errors.New("start date must not be after end date")
	ErrPlotNotFound = errors.New("plot not found")
	ErrPlotBlocked  = errors.New("plot is not open for reservations")
)

type DBLayer interface {
	GetPlot(ctx context.Context, id string) (*models.Plot, error)
	ActiveReservationsForPlot(ctx context.Context, plotID string) ([]models.Reservation, error)
	ActiveStaysForPlot(ctx context.Context, plotID, plotName string) ([]models.Stay, error)
	InsertReservation(ctx context.Context, res *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	CancelReservation(ctx context.Context, id string) error
}

// Result is the outcome of an availability check. Exactly one of Reservation
// and Stay is set when Available is false.
type Result struct {
	Available   bool                `json:"available"`
	Reason      string              `json:"reason,omitempty"`
	Reservation *models.Reservation `json:"conflicting_reservation,omitempty"`
	Stay        *models.Stay        `json:"conflicting_stay,omitempty"`
}

type Checker struct {
	DB DBLayer
}

func NewChecker(db DBLayer) *Checker {
	return &Checker{DB: db}
}

// CheckAvailability reports whether the candidate range on a plot collides
// with a live reservation or an active, checked-in stay. Pure read path:
// store errors propagate to the caller untouched.
func (c *Checker) CheckAvailability(ctx context.Context, plotID string, start, end time.Time) (*Result, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	plot, err := c.DB.GetPlot(ctx, plotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlotNotFound
		}
		return nil, err
	}

	// Step 1: pending or confirmed reservations on the plot.
	reservations, err := c.DB.ActiveReservationsForPlot(ctx, plotID)
	if err != nil {
		return nil, err
	}
	for i := range reservations {
		r := reservations[i]
		if overlaps(start, end, r.StartDate, r.EndDate) {
			return &Result{Available: false, Reason: ReasonReserved, Reservation: &r}, nil
		}
	}

	// Step 2: active, checked-in stays holding the plot.
	stays, err := c.DB.ActiveStaysForPlot(ctx, plotID, plot.Name)
	if err != nil {
		return nil, err
	}
	for i := range stays {
		s := stays[i]
		if overlaps(start, end, s.ScheduledArrival, s.ScheduledDeparture) {
			return &Result{Available: false, Reason: ReasonOccupied, Stay: &s}, nil
		}
	}

	return &Result{Available: true}, nil
}

// overlaps uses inclusive bounds on both sides: touching endpoints collide,
// which is intended for whole-day plot occupancy.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

type ReservationInput struct {
	PlotID        string    `json:"plot_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	HolderName    string    `json:"holder_name"`
	HolderContact string    `json:"holder_contact"`
}

// CreateReservation places a hold on a plot after verifying the range is
// still open.
func (c *Checker) CreateReservation(ctx context.Context, input ReservationInput) (*models.Reservation, error) {
	result, err := c.CheckAvailability(ctx, input.PlotID, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	if !result.Available {
		return nil, fmt.Errorf("plot %s is already %s for the requested dates", input.PlotID, result.Reason)
	}

	plot, err := c.DB.GetPlot(ctx, input.PlotID)
	if err != nil {
		return nil, err
	}
	if plot.Status == models.PlotStatusMaintenance {
		return nil, ErrPlotBlocked
	}

	res := &models.Reservation{
		ID:            uuid.NewString(),
		PlotID:        input.PlotID,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		HolderName:    input.HolderName,
		HolderContact: input.HolderContact,
		Status:        models.ReservationStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := c.DB.InsertReservation(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Checker) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := c.DB.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %s not found", id)
		}
		return nil, err
	}
	return res, nil
}

// CancelReservation marks a hold cancelled; the row is retained.
func (c *Checker) CancelReservation(ctx context.Context, id string) error {
	if _, err := c.DB.GetReservation(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reservation %s not found", id)
		}
		return err
	}
	return c.DB.CancelReservation(ctx, id)
}
