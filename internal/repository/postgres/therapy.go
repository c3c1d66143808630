package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
)

func (r *therapyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Therapy, error) {
	query := `
		SELECT id, name, category, description, duration, price, benefits, active,
			   created_at, updated_at
		FROM therapies
		WHERE id = $1
	`
	var therapy model.Therapy
	err := r.db.GetContext(ctx, &therapy, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get therapy: %w", err)
	}
	return &therapy, nil
}

func (r *therapyRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Therapy, error) {
	query := `
		SELECT id, name, category, description, duration, price, benefits, active,
			   created_at, updated_at
		FROM therapies
		WHERE id = ANY($1)
	`
	var therapies []*model.Therapy
	err := r.db.SelectContext(ctx, &therapies, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get therapies: %w", err)
	}
	return therapies, nil
}

func (r *therapyRepository) List(ctx context.Context) ([]*model.Therapy, error) {
	query := `
		SELECT id, name, category, description, duration, price, benefits, active,
			   created_at, updated_at
		FROM therapies
		WHERE active = true
		ORDER BY name ASC
	`
	var therapies []*model.Therapy
	err := r.db.SelectContext(ctx, &therapies, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list therapies: %w", err)
	}
	return therapies, nil
}
