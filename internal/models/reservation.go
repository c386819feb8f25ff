package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
)

// Reservation is a future-dated hold on a plot. A confirmed reservation does
// not occupy the plot until it is realized as a stay.
type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID            string    `bun:"id,pk" json:"id"`
	PlotID        string    `bun:"plot_id,notnull" json:"plot_id"`
	StartDate     time.Time `bun:"start_date,notnull" json:"start_date"`
	EndDate       time.Time `bun:"end_date,notnull" json:"end_date"`
	HolderName    string    `bun:"holder_name" json:"holder_name"`
	HolderContact string    `bun:"holder_contact" json:"holder_contact"`
	Status        string    `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}
