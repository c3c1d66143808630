package model

// TimeSlot is a reusable time-of-day window, not tied to a specific date.
// Active marks whether the template is offered at all; per-date occupancy is
// derived from non-cancelled appointments.
type TimeSlot struct {
	Base
	StartTime string `db:"start_time" json:"start_time"` // "15:04"
	EndTime   string `db:"end_time" json:"end_time"`
	Active    bool   `db:"active" json:"active"`
}
