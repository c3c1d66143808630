package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ayursutra/booking-api/internal/model"
)

func (r *paymentRepository) CreateBatch(ctx context.Context, payments []*model.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO payments (
			id, appointment_id, amount, currency, status, method,
			gateway_order_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	now := time.Now()
	for _, p := range payments {
		p.ID = uuid.New()
		p.CreatedAt = now
		p.UpdatedAt = now

		_, err := tx.ExecContext(ctx, query,
			p.ID,
			p.AppointmentID,
			p.Amount,
			p.Currency,
			p.Status,
			p.Method,
			p.GatewayOrderID,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payments: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListByOrderID(ctx context.Context, gatewayOrderID string) ([]*model.Payment, error) {
	query := `
		SELECT id, appointment_id, amount, currency, status, method,
			   gateway_order_id, gateway_payment_id, created_at, updated_at
		FROM payments
		WHERE gateway_order_id = $1
		ORDER BY created_at ASC
	`
	var payments []*model.Payment
	err := r.db.SelectContext(ctx, &payments, query, gatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) HasPendingOrder(ctx context.Context, appointmentIDs []uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE appointment_id = ANY($1)
			AND status = 'pending'
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, pq.Array(appointmentIDs))
	if err != nil {
		return false, fmt.Errorf("failed to check pending orders: %w", err)
	}
	return exists, nil
}

// CompleteByOrderID reconciles an order in one transaction: every payment
// row sharing the gateway order id is set to completed and stamped with the
// gateway payment id, then every referenced appointment still owned by
// ownerID has its payment_status set to completed. Both updates are
// unconditional writes of the terminal state, so replays are no-ops. When
// the ownership filter matches no appointments the whole transaction is
// rolled back, leaving the payment rows untouched as well.
func (r *paymentRepository) CompleteByOrderID(ctx context.Context, gatewayOrderID, gatewayPaymentID, method string, ownerID uuid.UUID) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updatePayments := `
		UPDATE payments
		SET status = 'completed', method = $1, gateway_payment_id = $2, updated_at = $3
		WHERE gateway_order_id = $4
		RETURNING appointment_id
	`
	var appointmentIDs []uuid.UUID
	if err := tx.SelectContext(ctx, &appointmentIDs, updatePayments, method, gatewayPaymentID, time.Now(), gatewayOrderID); err != nil {
		return 0, fmt.Errorf("failed to complete payments: %w", err)
	}
	if len(appointmentIDs) == 0 {
		return 0, nil
	}

	updateAppointments := `
		UPDATE appointments
		SET payment_status = 'completed', updated_at = $1
		WHERE id = ANY($2)
		AND patient_id = $3
	`
	result, err := tx.ExecContext(ctx, updateAppointments, time.Now(), pq.Array(appointmentIDs), ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to complete appointments: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Caller does not own these appointments; the deferred rollback
		// discards the payment updates too.
		return 0, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	return int(rows), nil
}
