package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
)

// Service answers "which slots can still be booked on a date". Pure reads,
// no side effects, no automatic retries.
type Service struct {
	slots        repository.TimeSlotRepository
	appointments repository.AppointmentRepository
}

func NewService(slots repository.TimeSlotRepository, appointments repository.AppointmentRepository) *Service {
	return &Service{
		slots:        slots,
		appointments: appointments,
	}
}

// ListBookableSlots returns the active slot templates not already consumed
// by a non-cancelled appointment on the given date, ordered by start time.
// Past dates are rejected.
func (s *Service) ListBookableSlots(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	active, err := s.slots.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Lookup("failed to load time slots", err)
	}

	occupied, err := s.appointments.OccupiedSlotIDs(ctx, date)
	if err != nil {
		return nil, apperrors.Lookup("failed to load booked slots", err)
	}

	taken := make(map[uuid.UUID]struct{}, len(occupied))
	for _, id := range occupied {
		taken[id] = struct{}{}
	}

	bookable := make([]*model.TimeSlot, 0, len(active))
	for _, slot := range active {
		if _, ok := taken[slot.ID]; !ok {
			bookable = append(bookable, slot)
		}
	}
	return bookable, nil
}

func validateDate(date time.Time) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return apperrors.Validation("date cannot be in the past")
	}
	return nil
}
