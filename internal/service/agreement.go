package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/towerly/building-service/internal/audit"
	"github.com/towerly/building-service/internal/domain"
	"github.com/towerly/building-service/internal/metrics"
)

// AgreementService owns the rental-agreement state machine: submission with
// the one-agreement-per-email invariant, and the accept/reject transition
// that promotes the user and claims the apartment.
type AgreementService struct {
	repo  domain.AgreementRepository
	audit *audit.Logger
}

func NewAgreementService(repo domain.AgreementRepository, auditLog *audit.Logger) *AgreementService {
	return &AgreementService{repo: repo, audit: auditLog}
}

func (s *AgreementService) Submit(ctx context.Context, traceID string, a domain.Agreement) (uuid.UUID, error) {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if a.Email == "" {
		return uuid.Nil, domain.ErrEmailRequired
	}

	a.Status = domain.AgreementPending
	a.RoleSnapshot = domain.RoleUser
	a.CreatedAt = time.Now().UTC()

	id, err := s.repo.CreateAgreement(ctx, traceID, a)
	if err != nil {
		return uuid.Nil, err
	}

	metrics.RecordAgreementSubmitted()
	if s.audit != nil {
		s.audit.AgreementSubmitted(ctx, id, a.Email, a.ApartmentRef)
	}
	return id, nil
}

// Decide moves the agreement from pending to checked. On accept, the
// requesting user is promoted to member and the apartment flips to
// unavailable; on reject only the status changes. The repository performs
// the whole cascade in one transaction.
func (s *AgreementService) Decide(ctx context.Context, traceID string, id uuid.UUID, action domain.DecisionAction, userEmail string) error {
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))

	if err := s.repo.DecideAgreement(ctx, traceID, id, action, userEmail); err != nil {
		return err
	}

	metrics.RecordAgreementDecided(string(action))
	if s.audit != nil {
		s.audit.AgreementDecided(ctx, id, action, userEmail)
	}
	return nil
}

func (s *AgreementService) ListPending(ctx context.Context) ([]domain.Agreement, error) {
	return s.repo.ListPendingAgreements(ctx)
}

func (s *AgreementService) ListByEmail(ctx context.Context, email string) ([]domain.Agreement, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	return s.repo.ListAgreementsByEmail(ctx, email)
}
