package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/towerly/building-service/internal/domain"
)

// UpsertUser inserts the user on first sign-in. ON CONFLICT DO NOTHING keeps
// the stored role intact for returning users; created reports whether a row
// was actually written.
func (r *Repository) UpsertUser(ctx context.Context, u domain.User) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO users (email, name, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email) DO NOTHING
	`, u.Email, u.Name, string(u.Role))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT email, name, role, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.Email, &u.Name, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.listUsers(ctx, `
		SELECT email, name, role, created_at
		FROM users
		ORDER BY created_at ASC
	`)
}

func (r *Repository) ListMembers(ctx context.Context) ([]domain.User, error) {
	return r.listUsers(ctx, `
		SELECT email, name, role, created_at
		FROM users
		WHERE role = 'member'
		ORDER BY created_at ASC
	`)
}

func (r *Repository) listUsers(ctx context.Context, query string) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var role string
		if err := rows.Scan(&u.Email, &u.Name, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = domain.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserRole reports modified=false for an unknown email rather than
// erroring; the role-change endpoint surfaces that as success=false.
func (r *Repository) SetUserRole(ctx context.Context, email string, role domain.Role) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET role = $2 WHERE email = $1
	`, email, string(role))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
