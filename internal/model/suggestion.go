package model

import (
	"github.com/google/uuid"
)

// ArrangementItem is one advisor recommendation: a therapy placed into a
// slot with an ordering rank.
type ArrangementItem struct {
	TherapyID  uuid.UUID `json:"therapy_id"`
	TimeSlotID uuid.UUID `json:"time_slot_id"`
	Rank       int       `json:"rank"`
	Rationale  string    `json:"rationale"`
}

// Suggestion is advisory only. It may pre-populate a reservation request but
// never bypasses the availability re-check or the price lookup.
type Suggestion struct {
	Arrangement []ArrangementItem `json:"arrangement"`
	Summary     string            `json:"summary"`
	EnergyNotes string            `json:"energy_notes,omitempty"`
	Fallback    bool              `json:"fallback"`
}

type SuggestRequest struct {
	Date       string      `json:"date" binding:"required,bookingdate"`
	TherapyIDs []uuid.UUID `json:"therapy_ids" binding:"required,min=1"`
}
