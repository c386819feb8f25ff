package models

import "github.com/uptrace/bun"

const (
	PlotStatusFree        = "free"
	PlotStatusOccupied    = "occupied"
	PlotStatusMaintenance = "maintenance"
)

// Plot is a physical site. StayID is set exactly when Status is "occupied".
type Plot struct {
	bun.BaseModel `bun:"table:plots"`

	ID      string `bun:"id,pk" json:"id"`
	Name    string `bun:"name,notnull" json:"name"`
	Status  string `bun:"status,notnull" json:"status"`
	StayID  string `bun:"stay_id,nullzero" json:"stay_id,omitempty"`
	Version int64  `bun:"version,notnull,default:0" json:"-"`
}
