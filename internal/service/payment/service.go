package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/gateway/razorpay"
	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	"github.com/ayursutra/booking-api/internal/service/event"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/metrics"
)

// Gateway is the slice of the payment gateway the service needs.
type Gateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error)
	KeyID() string
}

// Service owns the order-then-verify payment flow. Amounts are computed
// server-side from the reserved appointments; the verify step is the only
// place an appointment's payment_status moves to completed.
type Service struct {
	payments     repository.PaymentRepository
	appointments repository.AppointmentRepository
	gateway      Gateway
	keySecret    string
	currency     string
	events       *event.Service
	metrics      *metrics.Metrics
}

func NewService(
	payments repository.PaymentRepository,
	appointments repository.AppointmentRepository,
	gateway Gateway,
	keySecret string,
	currency string,
	events *event.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		payments:     payments,
		appointments: appointments,
		gateway:      gateway,
		keySecret:    keySecret,
		currency:     currency,
		events:       events,
		metrics:      m,
	}
}

// CreateOrder creates one gateway order covering the given appointments and
// records a pending payment row per appointment. All appointments must exist,
// belong to the requester, and still be awaiting payment. The receipt is
// derived from the appointment id set, so retrying the same selection
// produces the same receipt at the gateway.
func (s *Service) CreateOrder(ctx context.Context, patientID uuid.UUID, appointmentIDs []uuid.UUID) (*model.OrderDetails, error) {
	ids := dedupe(appointmentIDs)
	if len(ids) == 0 {
		return nil, apperrors.Validation("at least one appointment id is required")
	}

	appointments, err := s.appointments.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Lookup("failed to load appointments", err)
	}
	if len(appointments) != len(ids) {
		return nil, apperrors.NotFound("appointment", nil)
	}

	var total float64
	for _, apt := range appointments {
		if apt.PatientID != patientID {
			return nil, apperrors.Authorization("appointment belongs to another patient")
		}
		if apt.Status == model.AppointmentStatusCancelled {
			return nil, apperrors.Conflict("cannot pay for a cancelled appointment", nil)
		}
		if apt.PaymentStatus != model.PaymentStatusPending {
			return nil, apperrors.Conflict("appointment is already paid", nil)
		}
		total += apt.TotalAmount
	}

	pending, err := s.payments.HasPendingOrder(ctx, ids)
	if err != nil {
		return nil, apperrors.Lookup("failed to check for open orders", err)
	}
	if pending {
		return nil, apperrors.Conflict("an order for these appointments is already open", nil)
	}

	amountMinor := int64(math.Round(total * 100))
	idStrings := sortedIDStrings(ids)

	start := time.Now()
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderParams{
		AmountMinor: amountMinor,
		Currency:    s.currency,
		Receipt:     receiptFor(idStrings),
		Notes: map[string]string{
			"patient_id":      patientID.String(),
			"appointment_ids": strings.Join(idStrings, ","),
			"description":     fmt.Sprintf("Ayurvedic therapy booking covering %d appointment(s)", len(ids)),
		},
	})
	s.metrics.GatewayLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.OrdersFailed.Inc()
		return nil, apperrors.Upstream("payment gateway rejected the order", err)
	}

	payments := make([]*model.Payment, 0, len(appointments))
	for _, apt := range appointments {
		payments = append(payments, &model.Payment{
			AppointmentID:  apt.ID,
			Amount:         apt.TotalAmount,
			Currency:       s.currency,
			Status:         model.PaymentStatusPending,
			GatewayOrderID: order.ID,
		})
	}
	if err := s.payments.CreateBatch(ctx, payments); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.metrics.OrdersCreated.Inc()
	return &model.OrderDetails{
		GatewayOrderID: order.ID,
		AmountMinor:    order.AmountMinor,
		Currency:       order.Currency,
		GatewayKeyID:   s.gateway.KeyID(),
	}, nil
}

// Verify authenticates a checkout callback and reconciles the order: every
// payment row of the order and every covered appointment owned by the caller
// moves to completed. The writes are unconditional terminal-state updates, so
// replaying the same callback succeeds and changes nothing.
func (s *Service) Verify(ctx context.Context, patientID uuid.UUID, patientEmail string, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResult, error) {
	if !razorpay.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature, s.keySecret) {
		s.metrics.SignatureFailures.Inc()
		return nil, apperrors.Signature("payment signature verification failed")
	}

	payments, err := s.payments.ListByOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, apperrors.Lookup("failed to load order payments", err)
	}
	if len(payments) == 0 {
		return nil, apperrors.NotFound("order", nil)
	}

	// Optional cross-check: when the caller names the appointments it
	// believes the order covers, the sets must match exactly.
	if len(req.AppointmentIDs) > 0 {
		covered := make(map[uuid.UUID]struct{}, len(payments))
		for _, p := range payments {
			covered[p.AppointmentID] = struct{}{}
		}
		claimed := dedupe(req.AppointmentIDs)
		if len(claimed) != len(covered) {
			return nil, apperrors.Conflict("appointment set does not match the order", nil)
		}
		for _, id := range claimed {
			if _, ok := covered[id]; !ok {
				return nil, apperrors.Conflict("appointment set does not match the order", nil)
			}
		}
	}

	updated, err := s.payments.CompleteByOrderID(ctx, req.GatewayOrderID, req.GatewayPaymentID, "razorpay", patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if updated == 0 {
		return nil, apperrors.Authorization("order does not belong to this patient")
	}

	var total float64
	for _, p := range payments {
		total += p.Amount
	}

	s.metrics.PaymentsVerified.Inc()
	s.events.Emit(ctx, model.EventPaymentCompleted, model.PaymentCompletedEvent{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		PatientID:        patientID,
		PatientEmail:     patientEmail,
		Appointments:     updated,
		Amount:           total,
		Currency:         s.currency,
	})
	return &model.VerifyPaymentResult{UpdatedAppointments: updated}, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortedIDStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}

// receiptFor derives a stable receipt from the sorted appointment id set.
// Razorpay caps receipts at 40 characters, hence the truncated digest.
func receiptFor(sorted []string) string {
	h := sha256.New()
	for _, s := range sorted {
		h.Write([]byte(s))
	}
	return "rcpt_" + hex.EncodeToString(h.Sum(nil))[:24]
}
