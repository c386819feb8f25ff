package models

import "time"

// StayEvent is the payload published to Kafka after a successful stay
// operation. The notification dispatcher consumes these; the core engines
// never publish directly.
type StayEvent struct {
	StayID             string    `json:"stay_id"`
	SourceStayID       string    `json:"source_stay_id,omitempty"`
	PlotIDs            []string  `json:"plot_ids,omitempty"`
	ResponsibleContact string    `json:"responsible_contact"`
	Status             string    `json:"status"`
	OccurredAt         time.Time `json:"occurred_at"`
}

func NewStayEvent(stay Stay) StayEvent {
	return StayEvent{
		StayID:             stay.ID,
		PlotIDs:            stay.PlotIDs,
		ResponsibleContact: stay.ResponsibleContact,
		Status:             stay.Status,
		OccurredAt:         time.Now().UTC(),
	}
}
