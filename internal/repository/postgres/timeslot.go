package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
)

func (r *timeSlotRepository) Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	query := `
		SELECT id, start_time, end_time, active, created_at, updated_at
		FROM time_slots
		WHERE id = $1
	`
	var slot model.TimeSlot
	err := r.db.GetContext(ctx, &slot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time slot: %w", err)
	}
	return &slot, nil
}

func (r *timeSlotRepository) List(ctx context.Context) ([]*model.TimeSlot, error) {
	query := `
		SELECT id, start_time, end_time, active, created_at, updated_at
		FROM time_slots
		ORDER BY start_time ASC
	`
	var slots []*model.TimeSlot
	err := r.db.SelectContext(ctx, &slots, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	return slots, nil
}

func (r *timeSlotRepository) ListActive(ctx context.Context) ([]*model.TimeSlot, error) {
	query := `
		SELECT id, start_time, end_time, active, created_at, updated_at
		FROM time_slots
		WHERE active = true
		ORDER BY start_time ASC
	`
	var slots []*model.TimeSlot
	err := r.db.SelectContext(ctx, &slots, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active time slots: %w", err)
	}
	return slots, nil
}
