package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/towerly/building-service/internal/domain"
)

func (r *Repository) CreateAnnouncement(ctx context.Context, a domain.Announcement) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO announcements (id, title, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, a.Title, a.Description, a.CreatedAt)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Repository) ListAnnouncements(ctx context.Context) ([]domain.Announcement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, created_at
		FROM announcements
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
