package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	StayStatusActive    = "active"
	StayStatusCancelled = "cancelled"
	StayStatusFinalized = "finalized"
)

type Stay struct {
	bun.BaseModel `bun:"table:stays"`

	ID                 string     `bun:"id,pk" json:"id"`
	ResponsibleContact string     `bun:"responsible_contact,notnull" json:"responsible_contact"`
	ScheduledArrival   time.Time  `bun:"scheduled_arrival,notnull" json:"scheduled_arrival"`
	ScheduledDeparture time.Time  `bun:"scheduled_departure,notnull" json:"scheduled_departure"`
	ActualDeparture    *time.Time `bun:"actual_departure,nullzero" json:"actual_departure,omitempty"`

	PersonCount  int    `bun:"person_count" json:"person_count"`
	PlotCount    int    `bun:"plot_count" json:"plot_count"`
	ChairCount   int    `bun:"chair_count" json:"chair_count"`
	TableCount   int    `bun:"table_count" json:"table_count"`
	VehicleType  string `bun:"vehicle_type" json:"vehicle_type,omitempty"`
	VehicleCount int    `bun:"vehicle_count" json:"vehicle_count"`

	BaseCost    float64 `bun:"base_cost" json:"base_cost"`
	Discount    float64 `bun:"discount" json:"discount"`
	FinalAmount float64 `bun:"final_amount" json:"final_amount"`
	Balance     float64 `bun:"balance" json:"balance"`

	Status    string `bun:"status,notnull" json:"status"`
	CheckedIn bool   `bun:"checked_in" json:"checked_in"`

	PlotIDs []string `bun:"plot_ids" json:"plot_ids"`
	// AssignedPlotNames carries the plot display names from the pre-FK
	// schema. Only the availability fallback still reads it.
	AssignedPlotNames string `bun:"assigned_plot_names" json:"-"`

	Version   int64     `bun:"version,notnull,default:0" json:"-"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Terminal reports whether the stay can no longer be mutated.
func (s *Stay) Terminal() bool {
	return s.Status == StayStatusCancelled || s.Status == StayStatusFinalized
}
