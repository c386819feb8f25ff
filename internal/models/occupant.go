package models

import "github.com/uptrace/bun"

// Occupant is one person inside a stay. The contact number is the natural
// key; a merge moves occupants between stays by rewriting StayID.
type Occupant struct {
	bun.BaseModel `bun:"table:occupants"`

	ContactNumber      string `bun:"contact_number,pk" json:"contact_number"`
	FullName           string `bun:"full_name,notnull" json:"full_name"`
	Age                int    `bun:"age" json:"age"`
	MedicalNotes       string `bun:"medical_notes" json:"medical_notes,omitempty"`
	HighRisk           bool   `bun:"high_risk" json:"high_risk"`
	PaymentResponsible bool   `bun:"payment_responsible" json:"payment_responsible"`
	ResponsibleContact string `bun:"responsible_contact" json:"responsible_contact"`
	StayID             string `bun:"stay_id,notnull" json:"stay_id"`
}
