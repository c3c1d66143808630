package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/model"
)

func (r *wellnessRepository) RecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.WellnessSample, error) {
	if limit <= 0 {
		limit = 7
	}
	query := `
		SELECT id, patient_id, sleep_quality, energy_level, stress_level,
			   digestion, recorded_at
		FROM wellness_samples
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	var samples []*model.WellnessSample
	err := r.db.SelectContext(ctx, &samples, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wellness samples: %w", err)
	}
	return samples, nil
}
