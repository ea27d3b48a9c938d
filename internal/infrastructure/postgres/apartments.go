package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/towerly/building-service/internal/domain"
)

// ListApartments pages through the listing with optional rent bounds. The
// total counts all rows matching the bounds, not just the current page.
func (r *Repository) ListApartments(ctx context.Context, f domain.ApartmentFilter) ([]domain.Apartment, int, error) {
	var conds []string
	var args []any

	if f.MinRent != nil {
		args = append(args, *f.MinRent)
		conds = append(conds, fmt.Sprintf("rent >= $%d", len(args)))
	}
	if f.MaxRent != nil {
		args = append(args, *f.MaxRent)
		conds = append(conds, fmt.Sprintf("rent <= $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM apartments `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	args = append(args, f.Limit, offset)
	query := fmt.Sprintf(`
		SELECT apartment_no, block_name, floor, rent, status, image_url
		FROM apartments
		%s
		ORDER BY block_name ASC, floor ASC, apartment_no ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.Apartment
	for rows.Next() {
		var a domain.Apartment
		var status string
		if err := rows.Scan(&a.ApartmentNo, &a.BlockName, &a.Floor, &a.Rent, &status, &a.ImageURL); err != nil {
			return nil, 0, err
		}
		a.Status = domain.ApartmentStatus(status)
		items = append(items, a)
	}
	return items, total, rows.Err()
}
