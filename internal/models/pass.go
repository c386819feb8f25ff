package models

import "time"

// CheckInPass is the payload embedded in the encrypted gate QR code.
type CheckInPass struct {
	StayID             string    `json:"stay_id"`
	ResponsibleContact string    `json:"responsible_contact"`
	PlotIDs            []string  `json:"plot_ids"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	IssuedAt           time.Time `json:"issued_at"`
}
