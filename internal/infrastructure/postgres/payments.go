package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/towerly/building-service/internal/domain"
)

func (r *Repository) CreatePayment(ctx context.Context, p domain.Payment) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments
			(id, email, month, amount_cents, apartment_no, block_name, floor, transaction_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, p.Email, p.Month, p.AmountCents, p.ApartmentNo, p.BlockName, p.Floor, p.TransactionID, p.PaidAt)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Repository) ListPaymentsByEmail(ctx context.Context, email string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, month, amount_cents, apartment_no, block_name, floor, transaction_id, paid_at
		FROM payments
		WHERE email = $1
		ORDER BY paid_at DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.Email, &p.Month, &p.AmountCents, &p.ApartmentNo, &p.BlockName, &p.Floor, &p.TransactionID, &p.PaidAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
