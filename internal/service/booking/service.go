package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	"github.com/ayursutra/booking-api/internal/service/availability"
	"github.com/ayursutra/booking-api/internal/service/catalog"
	"github.com/ayursutra/booking-api/internal/service/event"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/metrics"
)

// Service is the reservation manager: it turns a set of (therapy, slot)
// selections into pending-payment appointments, all-or-nothing.
type Service struct {
	appointments repository.AppointmentRepository
	catalog      *catalog.Service
	availability *availability.Service
	events       *event.Service
	metrics      *metrics.Metrics
}

func NewService(
	appointments repository.AppointmentRepository,
	catalogSvc *catalog.Service,
	availabilitySvc *availability.Service,
	events *event.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		appointments: appointments,
		catalog:      catalogSvc,
		availability: availabilitySvc,
		events:       events,
		metrics:      m,
	}
}

// Reserve creates one scheduled, pending-payment appointment per selection,
// in selection order. Availability is re-checked at call time and the insert
// happens inside a single transaction guarded by the storage uniqueness
// constraint, so a lost race surfaces as a conflict and nothing is written.
// The total amount is always the therapy's current price; client-supplied
// amounts are never trusted.
func (s *Service) Reserve(ctx context.Context, patientID uuid.UUID, date time.Time, selections []model.Selection, notes string) ([]*model.Appointment, error) {
	if len(selections) == 0 {
		return nil, apperrors.Validation("at least one selection is required")
	}

	seen := make(map[uuid.UUID]struct{}, len(selections))
	for _, sel := range selections {
		if _, dup := seen[sel.TimeSlotID]; dup {
			return nil, apperrors.Validation("duplicate time slot in selections")
		}
		seen[sel.TimeSlotID] = struct{}{}
	}

	// Re-check availability; the earlier read the client acted on is not
	// trusted.
	bookable, err := s.availability.ListBookableSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	open := make(map[uuid.UUID]struct{}, len(bookable))
	for _, slot := range bookable {
		open[slot.ID] = struct{}{}
	}
	var taken []string
	for _, sel := range selections {
		if _, ok := open[sel.TimeSlotID]; !ok {
			taken = append(taken, sel.TimeSlotID.String())
		}
	}
	if len(taken) > 0 {
		s.metrics.ReservationConflicts.Inc()
		return nil, apperrors.Conflict(
			fmt.Sprintf("slot(s) no longer available: %s", strings.Join(taken, ", ")), nil)
	}

	therapyIDs := make([]uuid.UUID, 0, len(selections))
	for _, sel := range selections {
		therapyIDs = append(therapyIDs, sel.TherapyID)
	}
	therapies, err := s.catalog.TherapiesByID(ctx, therapyIDs)
	if err != nil {
		return nil, err
	}

	appointments := make([]*model.Appointment, 0, len(selections))
	for _, sel := range selections {
		appointments = append(appointments, &model.Appointment{
			PatientID:       patientID,
			TherapyID:       sel.TherapyID,
			TimeSlotID:      sel.TimeSlotID,
			AppointmentDate: date,
			Status:          model.AppointmentStatusScheduled,
			PaymentStatus:   model.PaymentStatusPending,
			TotalAmount:     therapies[sel.TherapyID].Price,
			Notes:           notes,
		})
	}

	if err := s.appointments.CreateBatch(ctx, appointments); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.ReservationConflicts.Inc()
			return nil, apperrors.Conflict("slot was booked by another patient", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.metrics.ReservationsCreated.Add(float64(len(appointments)))
	for _, apt := range appointments {
		s.events.Emit(ctx, model.EventAppointmentReserved, apt)
	}
	return appointments, nil
}

// Get returns an appointment the requester owns.
func (s *Service) Get(ctx context.Context, id, requesterID uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, apperrors.Lookup("failed to load appointment", err)
	}
	if apt.PatientID != requesterID {
		return nil, apperrors.Authorization("appointment belongs to another patient")
	}
	return apt, nil
}

// ListForPatient returns the requester's own appointments.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}
	filters.PatientID = patientID

	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Lookup("failed to list appointments", err)
	}
	return appointments, nil
}

// Cancel frees the slot. Payment status is deliberately untouched: there is
// no refund path here.
func (s *Service) Cancel(ctx context.Context, id, requesterID uuid.UUID, reason string) error {
	apt, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return err
	}

	switch apt.Status {
	case model.AppointmentStatusCancelled:
		return apperrors.Conflict("appointment is already cancelled", nil)
	case model.AppointmentStatusCompleted:
		return apperrors.Conflict("cannot cancel a completed appointment", nil)
	}

	if err := s.appointments.UpdateStatus(ctx, id, model.AppointmentStatusCancelled, &reason); err != nil {
		return apperrors.Internal(err)
	}
	s.events.Emit(ctx, model.EventAppointmentCancelled, map[string]interface{}{
		"appointment_id": id,
		"patient_id":     requesterID,
		"reason":         reason,
	})
	return nil
}

// AdvanceStatus moves an appointment along its lifecycle. Used by
// practitioner tooling; payment status is never touched here.
func (s *Service) AdvanceStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	apt, err := s.appointments.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return apperrors.Lookup("failed to load appointment", err)
	}

	if !validTransition(apt.Status, status) {
		return apperrors.Conflict(
			fmt.Sprintf("cannot move appointment from %s to %s", apt.Status, status), nil)
	}

	if err := s.appointments.UpdateStatus(ctx, id, status, nil); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func validTransition(from, to model.AppointmentStatus) bool {
	switch from {
	case model.AppointmentStatusScheduled:
		return to == model.AppointmentStatusConfirmed || to == model.AppointmentStatusInProgress
	case model.AppointmentStatusConfirmed:
		return to == model.AppointmentStatusInProgress
	case model.AppointmentStatusInProgress:
		return to == model.AppointmentStatusCompleted
	default:
		return false
	}
}
