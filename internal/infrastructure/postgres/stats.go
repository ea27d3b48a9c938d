package postgres

import (
	"context"

	"github.com/towerly/building-service/internal/domain"
)

// GetAdminStats aggregates the dashboard counters in one round trip.
func (r *Repository) GetAdminStats(ctx context.Context) (domain.AdminStats, error) {
	var s domain.AdminStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM apartments),
			(SELECT COUNT(*) FROM apartments WHERE status = 'available'),
			(SELECT COUNT(*) FROM apartments WHERE status = 'unavailable'),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE role = 'member')
	`).Scan(&s.TotalRooms, &s.AvailableRooms, &s.UnavailableRooms, &s.TotalUsers, &s.TotalMembers)
	if err != nil {
		return domain.AdminStats{}, err
	}
	return s, nil
}
