package model

import (
	"github.com/google/uuid"
)

// Payment is one local record per (appointment, gateway order) pairing.
// Appointments ordered together share a gateway order id; each keeps its own
// row so that the order total equals the sum of the per-appointment amounts.
type Payment struct {
	Base
	AppointmentID    uuid.UUID     `db:"appointment_id" json:"appointment_id"`
	Amount           float64       `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	Status           PaymentStatus `db:"status" json:"status"`
	Method           string        `db:"method" json:"method,omitempty"`
	GatewayOrderID   string        `db:"gateway_order_id" json:"gateway_order_id"`
	GatewayPaymentID *string       `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
}

type CreateOrderRequest struct {
	AppointmentIDs []uuid.UUID `json:"appointment_ids" binding:"required,min=1"`
}

// OrderDetails is what the browser-side checkout widget consumes.
type OrderDetails struct {
	GatewayOrderID string `json:"gateway_order_id"`
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
	GatewayKeyID   string `json:"gateway_key_id"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string      `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string      `json:"gateway_payment_id" binding:"required"`
	GatewaySignature string      `json:"gateway_signature" binding:"required"`
	AppointmentIDs   []uuid.UUID `json:"appointment_ids"`
}

type VerifyPaymentResult struct {
	UpdatedAppointments int `json:"updated_appointments"`
}

// PaymentCompletedEvent is the payload fanned out through the outbox after a
// successful verification. The worker uses it to send the confirmation email.
type PaymentCompletedEvent struct {
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	PatientEmail     string    `json:"patient_email,omitempty"`
	Appointments     int       `json:"appointments"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
}
