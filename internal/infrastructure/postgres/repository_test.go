//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/towerly/building-service/internal/domain"
	"github.com/towerly/building-service/internal/infrastructure/postgres"
)

func setupRepo(t *testing.T) (*postgres.Repository, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE users, apartments, agreements, announcements, coupons, payments, outbox
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	return postgres.New(pool), pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool, email string, role domain.Role) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (email, name, role) VALUES ($1, '', $2)
	`, email, string(role))
	require.NoError(t, err)
}

func seedApartment(t *testing.T, pool *pgxpool.Pool, ref domain.ApartmentRef) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO apartments (apartment_no, block_name, floor, rent, status)
		VALUES ($1, $2, $3, 1200, 'available')
	`, ref.ApartmentNo, ref.BlockName, ref.Floor)
	require.NoError(t, err)
}

func pendingAgreement(email string, ref domain.ApartmentRef) domain.Agreement {
	return domain.Agreement{
		Email:        email,
		UserName:     "Test User",
		ApartmentRef: ref,
		Rent:         1200,
		CreatedAt:    time.Now().UTC(),
	}
}

func userRole(t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()
	var role string
	err := pool.QueryRow(context.Background(),
		`SELECT role FROM users WHERE email = $1`, email).Scan(&role)
	require.NoError(t, err)
	return role
}

func apartmentStatus(t *testing.T, pool *pgxpool.Pool, ref domain.ApartmentRef) string {
	t.Helper()
	var status string
	err := pool.QueryRow(context.Background(), `
		SELECT status FROM apartments
		WHERE apartment_no = $1 AND block_name = $2 AND floor = $3
	`, ref.ApartmentNo, ref.BlockName, ref.Floor).Scan(&status)
	require.NoError(t, err)
	return status
}

func outboxCount(t *testing.T, pool *pgxpool.Pool, routingKey string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM outbox WHERE routing_key = $1`, routingKey).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestCreateAgreement_SecondSubmitForEmailConflicts(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	ref := domain.ApartmentRef{ApartmentNo: 3, BlockName: "A", Floor: 2}
	seedUser(t, pool, "alice@example.com", domain.RoleUser)
	seedApartment(t, pool, ref)

	id, err := repo.CreateAgreement(ctx, "t-1", pendingAgreement("alice@example.com", ref))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	// Second submit conflicts while the first is still pending.
	_, err = repo.CreateAgreement(ctx, "t-2", pendingAgreement("alice@example.com", ref))
	assert.ErrorIs(t, err, domain.ErrAgreementExists)

	// Still conflicts after the first one is decided.
	require.NoError(t, repo.DecideAgreement(ctx, "t-3", id, domain.ActionReject, ""))
	_, err = repo.CreateAgreement(ctx, "t-4", pendingAgreement("alice@example.com", ref))
	assert.ErrorIs(t, err, domain.ErrAgreementExists)

	assert.Equal(t, 1, outboxCount(t, pool, "agreement.submitted"))
}

func TestCreateAgreement_ConcurrentSameEmail(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	ref := domain.ApartmentRef{ApartmentNo: 7, BlockName: "B", Floor: 1}
	seedUser(t, pool, "bob@example.com", domain.RoleUser)
	seedApartment(t, pool, ref)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateAgreement(ctx, "t-race", pendingAgreement("bob@example.com", ref))
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAgreementExists):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflict)

	var rows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM agreements WHERE email = 'bob@example.com'`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestDecideAgreement_AcceptPromotesAndClaims(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	ref := domain.ApartmentRef{ApartmentNo: 12, BlockName: "C", Floor: 4}
	seedUser(t, pool, "carol@example.com", domain.RoleUser)
	seedApartment(t, pool, ref)

	id, err := repo.CreateAgreement(ctx, "t-1", pendingAgreement("carol@example.com", ref))
	require.NoError(t, err)

	require.NoError(t, repo.DecideAgreement(ctx, "t-2", id, domain.ActionAccept, ""))

	assert.Equal(t, "member", userRole(t, pool, "carol@example.com"))
	assert.Equal(t, "unavailable", apartmentStatus(t, pool, ref))
	assert.Equal(t, 1, outboxCount(t, pool, "agreement.accepted"))

	var status, action string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status, decided_action FROM agreements WHERE id = $1`, id).Scan(&status, &action))
	assert.Equal(t, "checked", status)
	assert.Equal(t, "accept", action)
}

func TestDecideAgreement_SecondDecisionIsRejected(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	ref := domain.ApartmentRef{ApartmentNo: 5, BlockName: "A", Floor: 3}
	seedUser(t, pool, "dave@example.com", domain.RoleUser)
	seedApartment(t, pool, ref)

	id, err := repo.CreateAgreement(ctx, "t-1", pendingAgreement("dave@example.com", ref))
	require.NoError(t, err)

	require.NoError(t, repo.DecideAgreement(ctx, "t-2", id, domain.ActionReject, ""))

	// A later accept must not fire: no promotion, no apartment claim, and
	// the recorded decision stays 'reject'.
	err = repo.DecideAgreement(ctx, "t-3", id, domain.ActionAccept, "")
	assert.ErrorIs(t, err, domain.ErrAgreementDecided)

	assert.Equal(t, "user", userRole(t, pool, "dave@example.com"))
	assert.Equal(t, "available", apartmentStatus(t, pool, ref))
	assert.Equal(t, 0, outboxCount(t, pool, "agreement.accepted"))
	assert.Equal(t, 1, outboxCount(t, pool, "agreement.rejected"))

	var action string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT decided_action FROM agreements WHERE id = $1`, id).Scan(&action))
	assert.Equal(t, "reject", action)
}

func TestDecideAgreement_RejectTouchesOnlyTheAgreement(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	ref := domain.ApartmentRef{ApartmentNo: 9, BlockName: "D", Floor: 2}
	seedUser(t, pool, "erin@example.com", domain.RoleUser)
	seedApartment(t, pool, ref)

	id, err := repo.CreateAgreement(ctx, "t-1", pendingAgreement("erin@example.com", ref))
	require.NoError(t, err)

	require.NoError(t, repo.DecideAgreement(ctx, "t-2", id, domain.ActionReject, ""))

	assert.Equal(t, "user", userRole(t, pool, "erin@example.com"))
	assert.Equal(t, "available", apartmentStatus(t, pool, ref))
	assert.Equal(t, 1, outboxCount(t, pool, "agreement.rejected"))
}

func TestDecideAgreement_UnknownID(t *testing.T) {
	repo, _ := setupRepo(t)

	err := repo.DecideAgreement(context.Background(), "t-1", uuid.New(), domain.ActionAccept, "")
	assert.ErrorIs(t, err, domain.ErrAgreementNotFound)
}

func TestSetUserRole_UnknownEmailReportsNotModified(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	seedUser(t, pool, "frank@example.com", domain.RoleMember)

	modified, err := repo.SetUserRole(ctx, "frank@example.com", domain.RoleUser)
	require.NoError(t, err)
	assert.True(t, modified)
	assert.Equal(t, "user", userRole(t, pool, "frank@example.com"))

	modified, err = repo.SetUserRole(ctx, "ghost@example.com", domain.RoleMember)
	require.NoError(t, err)
	assert.False(t, modified)
}
