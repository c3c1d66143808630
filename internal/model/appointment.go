package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Appointment is the central transactional entity of the booking workflow:
// one (therapy, time slot, date) instance owned by a patient. TotalAmount is
// fixed at reservation time from the therapy's price and never recomputed.
type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	PractitionerID  *uuid.UUID        `db:"practitioner_id" json:"practitioner_id,omitempty"`
	TherapyID       uuid.UUID         `db:"therapy_id" json:"therapy_id"`
	TimeSlotID      uuid.UUID         `db:"time_slot_id" json:"time_slot_id"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	Status          AppointmentStatus `db:"status" json:"status"`
	PaymentStatus   PaymentStatus     `db:"payment_status" json:"payment_status"`
	TotalAmount     float64           `db:"total_amount" json:"total_amount"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	CancelReason    *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// Selection is one (therapy, slot) pair within a reservation request.
type Selection struct {
	TherapyID  uuid.UUID `json:"therapy_id" binding:"required"`
	TimeSlotID uuid.UUID `json:"time_slot_id" binding:"required"`
}

type ReserveRequest struct {
	Date       string      `json:"date" binding:"required,bookingdate"` // "2006-01-02"
	Selections []Selection `json:"selections" binding:"required,min=1,dive"`
	Notes      string      `json:"notes" binding:"max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=confirmed in_progress completed"`
}

type AppointmentFilters struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	Status         AppointmentStatus
	StartDate      time.Time
	EndDate        time.Time
}
