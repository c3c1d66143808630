package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
)

const uniqueViolation = "23505"

func (r *appointmentRepository) CreateBatch(ctx context.Context, appointments []*model.Appointment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointments (
			id, patient_id, practitioner_id, therapy_id, time_slot_id,
			appointment_date, status, payment_status, total_amount, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	now := time.Now()
	for _, apt := range appointments {
		apt.ID = uuid.New()
		apt.CreatedAt = now
		apt.UpdatedAt = now

		_, err := tx.ExecContext(ctx, query,
			apt.ID,
			apt.PatientID,
			apt.PractitionerID,
			apt.TherapyID,
			apt.TimeSlotID,
			apt.AppointmentDate,
			apt.Status,
			apt.PaymentStatus,
			apt.TotalAmount,
			apt.Notes,
			apt.CreatedAt,
			apt.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return repository.ErrSlotTaken
			}
			return fmt.Errorf("failed to create appointment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit appointments: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, practitioner_id, therapy_id, time_slot_id,
			   appointment_date, status, payment_status, total_amount, notes,
			   cancel_reason, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, practitioner_id, therapy_id, time_slot_id,
			   appointment_date, status, payment_status, total_amount, notes,
			   cancel_reason, created_at, updated_at
		FROM appointments
		WHERE id = ANY($1)
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, practitioner_id, therapy_id, time_slot_id,
			   appointment_date, status, payment_status, total_amount, notes,
			   cancel_reason, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}

	if filters.PractitionerID != uuid.Nil {
		query += fmt.Sprintf(" AND practitioner_id = $%d", argCount)
		args = append(args, filters.PractitionerID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND appointment_date >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}

	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND appointment_date <= $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY appointment_date ASC, created_at ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) OccupiedSlotIDs(ctx context.Context, date time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT time_slot_id
		FROM appointments
		WHERE appointment_date = $1
		AND status <> 'cancelled'
	`
	var slotIDs []uuid.UUID
	err := r.db.SelectContext(ctx, &slotIDs, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupied slots: %w", err)
	}
	return slotIDs, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, cancelReason *string) error {
	query := `
		UPDATE appointments
		SET status = $1, cancel_reason = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, status, cancelReason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
