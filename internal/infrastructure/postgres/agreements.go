package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/towerly/building-service/internal/domain"
)

// -------------------------
// Lock policy for the agreement lifecycle:
// Always lock the agreement row first (FOR UPDATE), then touch users and
// apartments. Submit and Decide both follow this order, so the two paths
// cannot deadlock against each other for the same email.
// -------------------------

// CreateAgreement inserts a pending agreement, enforcing at most one
// agreement per email across all statuses.
func (r *Repository) CreateAgreement(ctx context.Context, traceID string, a domain.Agreement) (uuid.UUID, error) {
	traceID = strings.TrimSpace(traceID)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1) One agreement per email, pending or decided alike.
	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM agreements WHERE email = $1)
	`, a.Email).Scan(&exists)
	if err != nil {
		return uuid.Nil, err
	}
	if exists {
		return uuid.Nil, domain.ErrAgreementExists
	}

	// 2) Insert pending row. The existence check above cannot see a
	// concurrent uncommitted submit, so the unique index on email is the
	// real guard; its violation maps to the same conflict.
	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO agreements
			(id, email, user_name, apartment_no, block_name, floor, rent, status, role_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, a.Email, a.UserName, a.ApartmentNo, a.BlockName, a.Floor, a.Rent,
		string(domain.AgreementPending), string(domain.RoleUser), a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, domain.ErrAgreementExists
		}
		return uuid.Nil, err
	}

	// 3) Outbox (agreement.submitted)
	payload, _ := json.Marshal(map[string]any{
		"agreement_id": id,
		"email":        a.Email,
		"apartment_no": a.ApartmentNo,
		"block_name":   a.BlockName,
		"floor":        a.Floor,
	})
	_, _ = tx.Exec(ctx,
		`INSERT INTO outbox (message_id, trace_id, routing_key, payload, occurred_at, status)
		 VALUES ($1, $2, $3, $4, NOW(), 'pending')`,
		uuid.New(), traceID, "agreement.submitted", payload,
	)

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// DecideAgreement applies accept/reject in a single transaction. The status
// update is filtered on 'pending' so a concurrent decision loses cleanly:
// zero rows affected maps to ErrAgreementDecided. Accept additionally
// promotes the user to member and claims the apartment; reject changes
// nothing but the agreement row.
func (r *Repository) DecideAgreement(ctx context.Context, traceID string, id uuid.UUID, action domain.DecisionAction, userEmail string) error {
	traceID = strings.TrimSpace(traceID)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1) Lock the agreement row first.
	var email, status string
	var apartmentNo, floor int
	var blockName string
	err = tx.QueryRow(ctx, `
		SELECT email, status, apartment_no, block_name, floor
		FROM agreements
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&email, &status, &apartmentNo, &blockName, &floor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAgreementNotFound
		}
		return err
	}
	if status != string(domain.AgreementPending) {
		return domain.ErrAgreementDecided
	}

	// 2) Flip pending -> checked, gated on status so the transition fires
	// at most once even if the lock above is ever relaxed.
	tag, err := tx.Exec(ctx, `
		UPDATE agreements
		SET status = $2,
		    decided_action = $3,
		    decided_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, string(domain.AgreementChecked), string(action))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAgreementDecided
	}

	// 3) Accept cascade: promote the requester and claim the unit.
	if action == domain.ActionAccept {
		promote := email
		if userEmail != "" {
			promote = userEmail
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET role = 'member' WHERE email = $1
		`, promote)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE apartments
			SET status = 'unavailable'
			WHERE apartment_no = $1 AND block_name = $2 AND floor = $3
		`, apartmentNo, blockName, floor)
		if err != nil {
			return err
		}
	}

	// 4) Outbox (agreement.accepted / agreement.rejected)
	routingKey := "agreement.rejected"
	if action == domain.ActionAccept {
		routingKey = "agreement.accepted"
	}
	payload, _ := json.Marshal(map[string]any{
		"agreement_id": id,
		"email":        email,
		"action":       action,
		"apartment_no": apartmentNo,
		"block_name":   blockName,
		"floor":        floor,
	})
	_, _ = tx.Exec(ctx,
		`INSERT INTO outbox (message_id, trace_id, routing_key, payload, occurred_at, status)
		 VALUES ($1, $2, $3, $4, NOW(), 'pending')`,
		uuid.New(), traceID, routingKey, payload,
	)

	return tx.Commit(ctx)
}

const agreementColumns = `
	id, email, user_name, apartment_no, block_name, floor, rent,
	status, role_snapshot, created_at, decided_at, decided_action`

func scanAgreement(row pgx.Row) (domain.Agreement, error) {
	var a domain.Agreement
	var status, roleSnapshot string
	var decidedAt *time.Time
	var decidedAction *string

	err := row.Scan(
		&a.ID, &a.Email, &a.UserName, &a.ApartmentNo, &a.BlockName, &a.Floor, &a.Rent,
		&status, &roleSnapshot, &a.CreatedAt, &decidedAt, &decidedAction,
	)
	if err != nil {
		return domain.Agreement{}, err
	}

	a.Status = domain.AgreementStatus(status)
	a.RoleSnapshot = domain.Role(roleSnapshot)
	a.DecidedAt = decidedAt
	if decidedAction != nil {
		action := domain.DecisionAction(*decidedAction)
		a.DecidedAction = &action
	}
	return a, nil
}

func (r *Repository) ListPendingAgreements(ctx context.Context) ([]domain.Agreement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agreementColumns+`
		FROM agreements
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *Repository) ListAgreementsByEmail(ctx context.Context, email string) ([]domain.Agreement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agreementColumns+`
		FROM agreements
		WHERE email = $1
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
