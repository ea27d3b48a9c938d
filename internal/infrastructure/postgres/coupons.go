package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/towerly/building-service/internal/domain"
)

func (r *Repository) CreateCoupon(ctx context.Context, c domain.Coupon) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO coupons (id, code, discount_pct, description, available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, c.Code, c.DiscountPct, c.Description, c.Available, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, domain.ErrCouponExists
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Repository) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, discount_pct, description, available, created_at
		FROM coupons
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Coupon
	for rows.Next() {
		var c domain.Coupon
		if err := rows.Scan(&c.ID, &c.Code, &c.DiscountPct, &c.Description, &c.Available, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *Repository) SetCouponAvailability(ctx context.Context, id uuid.UUID, available bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE coupons SET available = $2 WHERE id = $1
	`, id, available)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, domain.ErrCouponNotFound
	}
	return true, nil
}

func (r *Repository) DeactivateCouponByCode(ctx context.Context, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE coupons SET available = FALSE WHERE code = $1
	`, code)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, domain.ErrCouponNotFound
	}
	return true, nil
}
