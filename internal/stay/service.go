package stay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-campsite/internal/models"

	"github.com/google/uuid"
)

// Gateway is the narrow transactional store interface the engines depend on.
// Implementations must make every call all-or-nothing at the row level and
// WithTx must run the callback inside one store transaction.
type Gateway interface {
	WithTx(ctx context.Context, fn func(tx Gateway) error) error

	GetStay(ctx context.Context, id string) (*models.Stay, error)
	InsertStay(ctx context.Context, stay *models.Stay) error
	UpdateStay(ctx context.Context, stay *models.Stay) error

	OccupantsByStay(ctx context.Context, stayID string) ([]models.Occupant, error)
	InsertOccupants(ctx context.Context, occupants []models.Occupant) error
	ReassignOccupants(ctx context.Context, fromStayID, toStayID, responsibleContact string) error
	SetOccupantResponsible(ctx context.Context, contactNumber string, responsible bool) error

	GetPlot(ctx context.Context, id string) (*models.Plot, error)
	AssignPlot(ctx context.Context, plotID, stayID string) error
	ReassignPlots(ctx context.Context, fromStayID, toStayID string) error
	ReleasePlotsByStay(ctx context.Context, stayID string) error
	SetPlotStatus(ctx context.Context, plotID, status string) error
}

// PlotLock fences concurrent assignment of the same plots.
type PlotLock interface {
	LockPlots(plotIDs []string, stayID string) (bool, error)
	UnlockPlots(plotIDs []string, stayID string) error
}

// EventPublisher hands completed operations to the notification dispatcher.
// The engines themselves never publish; the service publishes after commit.
type EventPublisher interface {
	PublishStayRegistered(event models.StayEvent) error
	PublishStayCheckedIn(event models.StayEvent) error
	PublishStayMerged(event models.StayEvent) error
	PublishStayCheckedOut(event models.StayEvent) error
	PublishPlotsAssigned(event models.StayEvent) error
}

type Service struct {
	DB     Gateway
	Locks  PlotLock
	Events EventPublisher
}

func NewService(db Gateway, locks PlotLock, events EventPublisher) *Service {
	return &Service{DB: db, Locks: locks, Events: events}
}

// ---------------- REGISTRATION & LIFECYCLE ----------------

type OccupantInput struct {
	ContactNumber      string `json:"contact_number"`
	FullName           string `json:"full_name"`
	Age                int    `json:"age"`
	MedicalNotes       string `json:"medical_notes"`
	HighRisk           bool   `json:"high_risk"`
	PaymentResponsible bool   `json:"payment_responsible"`
}

type RegisterInput struct {
	ResponsibleContact string          `json:"responsible_contact"`
	ScheduledArrival   time.Time       `json:"scheduled_arrival"`
	ScheduledDeparture time.Time       `json:"scheduled_departure"`
	PersonCount        int             `json:"person_count"`
	PlotCount          int             `json:"plot_count"`
	ChairCount         int             `json:"chair_count"`
	TableCount         int             `json:"table_count"`
	VehicleType        string          `json:"vehicle_type"`
	VehicleCount       int             `json:"vehicle_count"`
	CheckedIn          bool            `json:"checked_in"`
	Occupants          []OccupantInput `json:"occupants"`
}

func (in *RegisterInput) validate() error {
	if in.ResponsibleContact == "" {
		return fmt.Errorf("%w: responsible contact is required", ErrValidation)
	}
	if in.ScheduledArrival.After(in.ScheduledDeparture) {
		return fmt.Errorf("%w: scheduled arrival is after scheduled departure", ErrValidation)
	}
	if len(in.Occupants) == 0 {
		return fmt.Errorf("%w: at least one occupant is required", ErrValidation)
	}
	responsible := 0
	for _, o := range in.Occupants {
		if o.ContactNumber == "" {
			return fmt.Errorf("%w: occupant %q has no contact number", ErrValidation, o.FullName)
		}
		if o.PaymentResponsible {
			responsible++
		}
	}
	if responsible != 1 {
		return fmt.Errorf("%w: exactly one occupant must be payment-responsible, got %d", ErrValidation, responsible)
	}
	return nil
}

// RegisterStay creates a stay (pre-arrival hold or walk-in) with its group.
func (s *Service) RegisterStay(ctx context.Context, input RegisterInput) (*models.Stay, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	stay := &models.Stay{
		ID:                 uuid.NewString(),
		ResponsibleContact: input.ResponsibleContact,
		ScheduledArrival:   input.ScheduledArrival,
		ScheduledDeparture: input.ScheduledDeparture,
		PersonCount:        input.PersonCount,
		PlotCount:          input.PlotCount,
		ChairCount:         input.ChairCount,
		TableCount:         input.TableCount,
		VehicleType:        input.VehicleType,
		VehicleCount:       input.VehicleCount,
		Status:             models.StayStatusActive,
		CheckedIn:          input.CheckedIn,
		CreatedAt:          time.Now().UTC(),
	}

	occupants := make([]models.Occupant, 0, len(input.Occupants))
	for _, o := range input.Occupants {
		occupants = append(occupants, models.Occupant{
			ContactNumber:      o.ContactNumber,
			FullName:           o.FullName,
			Age:                o.Age,
			MedicalNotes:       o.MedicalNotes,
			HighRisk:           o.HighRisk,
			PaymentResponsible: o.PaymentResponsible,
			ResponsibleContact: input.ResponsibleContact,
			StayID:             stay.ID,
		})
	}

	err := s.DB.WithTx(ctx, func(tx Gateway) error {
		if err := tx.InsertStay(ctx, stay); err != nil {
			return err
		}
		return tx.InsertOccupants(ctx, occupants)
	})
	if err != nil {
		return nil, err
	}

	s.publish(s.eventPublisher().PublishStayRegistered, models.NewStayEvent(*stay))
	return stay, nil
}

// ConfirmCheckIn flips the arrival-confirmation flag on an active stay.
func (s *Service) ConfirmCheckIn(ctx context.Context, stayID string) (*models.Stay, error) {
	var confirmed *models.Stay
	err := s.DB.WithTx(ctx, func(tx Gateway) error {
		stay, err := getStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if stay.Terminal() {
			return fmt.Errorf("%w: stay %s is %s", ErrValidation, stayID, stay.Status)
		}
		if stay.CheckedIn {
			confirmed = stay
			return nil
		}
		stay.CheckedIn = true
		if err := tx.UpdateStay(ctx, stay); err != nil {
			return err
		}
		confirmed = stay
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(s.eventPublisher().PublishStayCheckedIn, models.NewStayEvent(*confirmed))
	return confirmed, nil
}

// Checkout records the actual departure, finalizes the stay and frees its
// plots. The stay row is retained as history.
func (s *Service) Checkout(ctx context.Context, stayID string) (*models.Stay, error) {
	var finalized *models.Stay
	err := s.DB.WithTx(ctx, func(tx Gateway) error {
		stay, err := getStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if stay.Terminal() {
			return fmt.Errorf("%w: stay %s is already %s", ErrValidation, stayID, stay.Status)
		}
		now := time.Now().UTC()
		stay.ActualDeparture = &now
		stay.Status = models.StayStatusFinalized
		if err := tx.UpdateStay(ctx, stay); err != nil {
			return err
		}
		if err := tx.ReleasePlotsByStay(ctx, stayID); err != nil {
			return err
		}
		finalized = stay
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(s.eventPublisher().PublishStayCheckedOut, models.NewStayEvent(*finalized))
	return finalized, nil
}

// CancelStay retires an active stay without a checkout and frees its plots.
func (s *Service) CancelStay(ctx context.Context, stayID string) error {
	return s.DB.WithTx(ctx, func(tx Gateway) error {
		stay, err := getStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if stay.Terminal() {
			return fmt.Errorf("%w: stay %s is already %s", ErrValidation, stayID, stay.Status)
		}
		stay.Status = models.StayStatusCancelled
		if err := tx.UpdateStay(ctx, stay); err != nil {
			return err
		}
		return tx.ReleasePlotsByStay(ctx, stayID)
	})
}

func (s *Service) GetStay(ctx context.Context, stayID string) (*models.Stay, error) {
	return getStay(ctx, s.DB, stayID)
}

func (s *Service) GetOccupants(ctx context.Context, stayID string) ([]models.Occupant, error) {
	if _, err := getStay(ctx, s.DB, stayID); err != nil {
		return nil, err
	}
	return s.DB.OccupantsByStay(ctx, stayID)
}

func (s *Service) GetPlot(ctx context.Context, plotID string) (*models.Plot, error) {
	return getPlot(ctx, s.DB, plotID)
}

// SetPlotMaintenance toggles a plot between free and maintenance. Occupied
// plots cannot be taken down.
func (s *Service) SetPlotMaintenance(ctx context.Context, plotID string, enabled bool) error {
	plot, err := getPlot(ctx, s.DB, plotID)
	if err != nil {
		return err
	}
	if plot.Status == models.PlotStatusOccupied {
		return fmt.Errorf("%w: plot %s is occupied by stay %s", ErrValidation, plotID, plot.StayID)
	}
	status := models.PlotStatusFree
	if enabled {
		status = models.PlotStatusMaintenance
	}
	return s.DB.SetPlotStatus(ctx, plotID, status)
}

// ---------------- MERGE ENGINE ----------------

// MergeStays folds the source stay into the destination: occupants move
// over demoted, shared resource totals are summed unless the incoming party
// brings no plot-bearing resources, and the source is cancelled. The whole
// sequence commits or rolls back as one transaction.
func (s *Service) MergeStays(ctx context.Context, sourceID, destID string, occupantHasNoPlot bool) error {
	if sourceID == destID {
		return fmt.Errorf("%w: a stay cannot be merged into itself", ErrValidation)
	}

	var merged models.Stay
	err := s.DB.WithTx(ctx, func(tx Gateway) error {
		dest, err := mergeStays(ctx, tx, sourceID, destID, occupantHasNoPlot)
		if err != nil {
			return err
		}
		merged = *dest
		return nil
	})
	if err != nil {
		return err
	}

	event := models.NewStayEvent(merged)
	event.SourceStayID = sourceID
	s.publish(s.eventPublisher().PublishStayMerged, event)
	return nil
}

func mergeStays(ctx context.Context, tx Gateway, sourceID, destID string, occupantHasNoPlot bool) (*models.Stay, error) {
	source, err := getStay(ctx, tx, sourceID)
	if err != nil {
		return nil, err
	}
	dest, err := getStay(ctx, tx, destID)
	if err != nil {
		return nil, err
	}
	if dest.Terminal() {
		return nil, fmt.Errorf("%w: destination stay %s is %s", ErrValidation, destID, dest.Status)
	}
	if source.Terminal() {
		return nil, fmt.Errorf("%w: source stay %s is %s", ErrValidation, sourceID, source.Status)
	}

	// Snapshot before relocation so the former responsible occupant is
	// still identifiable for the promotion fallback.
	sourceOccupants, err := tx.OccupantsByStay(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	// Relocated occupants are never the new responsible party by default.
	if err := tx.ReassignOccupants(ctx, sourceID, destID, dest.ResponsibleContact); err != nil {
		return nil, err
	}

	if !occupantHasNoPlot {
		dest.PersonCount += source.PersonCount
		dest.PlotCount += source.PlotCount
		dest.ChairCount += source.ChairCount
		dest.TableCount += source.TableCount
		dest.PlotIDs = append(dest.PlotIDs, source.PlotIDs...)
		dest.AssignedPlotNames = joinPlotNames(dest.AssignedPlotNames, source.AssignedPlotNames)

		if err := tx.ReassignPlots(ctx, sourceID, destID); err != nil {
			return nil, err
		}
	}
	if err := tx.UpdateStay(ctx, dest); err != nil {
		return nil, err
	}

	source.Status = models.StayStatusCancelled
	source.PlotIDs = nil
	source.AssignedPlotNames = ""
	if err := tx.UpdateStay(ctx, source); err != nil {
		return nil, err
	}

	if err := ensureResponsible(ctx, tx, destID, sourceOccupants); err != nil {
		return nil, err
	}
	return dest, nil
}

// ensureResponsible validates the exactly-one-responsible invariant on the
// destination. A destination that never had a responsible occupant inherits
// the source's former one rather than ending up with none.
func ensureResponsible(ctx context.Context, tx Gateway, stayID string, relocated []models.Occupant) error {
	occupants, err := tx.OccupantsByStay(ctx, stayID)
	if err != nil {
		return err
	}
	responsible := 0
	for _, o := range occupants {
		if o.PaymentResponsible {
			responsible++
		}
	}
	switch {
	case responsible == 1:
		return nil
	case responsible > 1:
		return fmt.Errorf("%w: stay %s has %d payment-responsible occupants", ErrValidation, stayID, responsible)
	}

	for _, o := range relocated {
		if o.PaymentResponsible {
			return tx.SetOccupantResponsible(ctx, o.ContactNumber, true)
		}
	}
	return fmt.Errorf("%w: stay %s has no payment-responsible occupant", ErrValidation, stayID)
}

// ---------------- PLOT ASSIGNMENT ENGINE ----------------

type FusionInfo struct {
	ShouldMerge       bool   `json:"should_merge"`
	DestinationStayID string `json:"destination_stay_id"`
}

type AssignResult struct {
	WasMerged bool `json:"was_merged"`
	// StayID is the surviving stay every assigned plot now references.
	StayID string `json:"stay_id"`
}

// AssignPlots links the given plots to a stay. When the caller determined a
// merge is required the source is folded into fusion.DestinationStayID first
// and the plots reference the destination, never the original stay. Empty
// plotIDs is a successful no-op.
func (s *Service) AssignPlots(ctx context.Context, stayID string, plotIDs []string, fusion *FusionInfo, incomingPlotCount int) (*AssignResult, error) {
	if _, err := getStay(ctx, s.DB, stayID); err != nil {
		return nil, err
	}

	target := stayID
	shouldMerge := fusion != nil && fusion.ShouldMerge
	if shouldMerge {
		if fusion.DestinationStayID == "" {
			return nil, fmt.Errorf("%w: merge requested without a destination stay", ErrValidation)
		}
		target = fusion.DestinationStayID
	}

	if len(plotIDs) > 0 && s.Locks != nil {
		ok, err := s.Locks.LockPlots(plotIDs, target)
		if err != nil {
			return nil, fmt.Errorf("plot lock error: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: one or more plots are being assigned by another request", ErrConflict)
		}
		defer s.Locks.UnlockPlots(plotIDs, target)
	}

	var merged models.Stay
	err := s.DB.WithTx(ctx, func(tx Gateway) error {
		if shouldMerge {
			dest, err := mergeStays(ctx, tx, stayID, fusion.DestinationStayID, incomingPlotCount == 0)
			if err != nil {
				return err
			}
			merged = *dest
		}
		for _, plotID := range plotIDs {
			if err := assignPlot(ctx, tx, plotID, target); err != nil {
				return err
			}
		}
		if len(plotIDs) > 0 {
			return recordAssignedPlots(ctx, tx, target, plotIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if shouldMerge {
		event := models.NewStayEvent(merged)
		event.SourceStayID = stayID
		s.publish(s.eventPublisher().PublishStayMerged, event)
	}
	if len(plotIDs) > 0 {
		s.publish(s.eventPublisher().PublishPlotsAssigned, models.StayEvent{
			StayID:     target,
			PlotIDs:    plotIDs,
			Status:     models.StayStatusActive,
			OccurredAt: time.Now().UTC(),
		})
	}

	return &AssignResult{WasMerged: shouldMerge, StayID: target}, nil
}

func assignPlot(ctx context.Context, tx Gateway, plotID, stayID string) error {
	plot, err := getPlot(ctx, tx, plotID)
	if err != nil {
		return err
	}
	if plot.Status == models.PlotStatusMaintenance {
		return fmt.Errorf("%w: plot %s is under maintenance", ErrValidation, plotID)
	}
	if plot.Status == models.PlotStatusOccupied && plot.StayID != stayID {
		return fmt.Errorf("%w: plot %s is occupied by stay %s", ErrConflict, plotID, plot.StayID)
	}
	return tx.AssignPlot(ctx, plotID, stayID)
}

// recordAssignedPlots mirrors the plot links onto the stay row: the id list
// for the FK join and the display names for the legacy name column.
func recordAssignedPlots(ctx context.Context, tx Gateway, stayID string, plotIDs []string) error {
	stay, err := getStay(ctx, tx, stayID)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(plotIDs))
	for _, plotID := range plotIDs {
		if containsString(stay.PlotIDs, plotID) {
			continue
		}
		stay.PlotIDs = append(stay.PlotIDs, plotID)
		plot, err := getPlot(ctx, tx, plotID)
		if err != nil {
			return err
		}
		names = append(names, plot.Name)
	}
	stay.AssignedPlotNames = joinPlotNames(stay.AssignedPlotNames, strings.Join(names, ","))
	return tx.UpdateStay(ctx, stay)
}

// ---------------- HELPERS ----------------

func getStay(ctx context.Context, db Gateway, id string) (*models.Stay, error) {
	stay, err := db.GetStay(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stay %s: %w", id, ErrStayNotFound)
		}
		return nil, err
	}
	return stay, nil
}

func getPlot(ctx context.Context, db Gateway, id string) (*models.Plot, error) {
	plot, err := db.GetPlot(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plot %s: %w", id, ErrPlotNotFound)
		}
		return nil, err
	}
	return plot, nil
}

func joinPlotNames(existing, added string) string {
	switch {
	case existing == "":
		return added
	case added == "":
		return existing
	default:
		return existing + "," + added
	}
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

type noopPublisher struct{}

func (noopPublisher) PublishStayRegistered(models.StayEvent) error { return nil }
func (noopPublisher) PublishStayCheckedIn(models.StayEvent) error  { return nil }
func (noopPublisher) PublishStayMerged(models.StayEvent) error     { return nil }
func (noopPublisher) PublishStayCheckedOut(models.StayEvent) error { return nil }
func (noopPublisher) PublishPlotsAssigned(models.StayEvent) error  { return nil }

func (s *Service) eventPublisher() EventPublisher {
	if s.Events == nil {
		return noopPublisher{}
	}
	return s.Events
}

// publish is fire-and-forget: a broker outage must not fail an operation
// that already committed.
func (s *Service) publish(fn func(models.StayEvent) error, event models.StayEvent) {
	_ = fn(event)
}
