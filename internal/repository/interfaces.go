package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/model"
)

// Sentinel errors surfaced by implementations; services translate them into
// the caller-facing error taxonomy.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrSlotTaken is returned when the storage-level uniqueness constraint
	// on (appointment_date, time_slot_id) rejects an insert. It is the
	// authoritative double-booking signal; the application-level
	// availability check only narrows the race window.
	ErrSlotTaken = errors.New("time slot already booked")
)

// All repository interfaces in one file
type (
	TherapyRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Therapy, error)
		GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Therapy, error)
		List(ctx context.Context) ([]*model.Therapy, error)
	}

	TimeSlotRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error)
		List(ctx context.Context) ([]*model.TimeSlot, error)
		ListActive(ctx context.Context) ([]*model.TimeSlot, error)
	}

	AppointmentRepository interface {
		// CreateBatch inserts all appointments in a single transaction.
		// A uniqueness-constraint violation rolls the whole batch back and
		// surfaces ErrSlotTaken.
		CreateBatch(ctx context.Context, appointments []*model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// OccupiedSlotIDs returns the slot ids consumed by non-cancelled
		// appointments on the given date.
		OccupiedSlotIDs(ctx context.Context, date time.Time) ([]uuid.UUID, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, cancelReason *string) error
	}

	PaymentRepository interface {
		// CreateBatch inserts all payment rows in a single transaction.
		CreateBatch(ctx context.Context, payments []*model.Payment) error
		ListByOrderID(ctx context.Context, gatewayOrderID string) ([]*model.Payment, error)
		// HasPendingOrder reports whether any of the appointments already
		// carries a pending payment row from an earlier order.
		HasPendingOrder(ctx context.Context, appointmentIDs []uuid.UUID) (bool, error)
		// CompleteByOrderID transitions every payment row of the order and
		// every referenced appointment owned by ownerID to completed, in one
		// transaction. The update is an unconditional "set to completed" so
		// repeated calls are no-ops. Returns the count of appointments the
		// update touched.
		CompleteByOrderID(ctx context.Context, gatewayOrderID, gatewayPaymentID, method string, ownerID uuid.UUID) (int, error)
	}

	WellnessRepository interface {
		RecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.WellnessSample, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
