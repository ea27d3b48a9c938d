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

// BillingService fronts the payment provider and the payment/coupon records.
type BillingService struct {
	payments domain.PaymentRepository
	coupons  domain.CouponRepository
	provider domain.PaymentProvider
	audit    *audit.Logger
}

func NewBillingService(payments domain.PaymentRepository, coupons domain.CouponRepository, provider domain.PaymentProvider, auditLog *audit.Logger) *BillingService {
	return &BillingService{payments: payments, coupons: coupons, provider: provider, audit: auditLog}
}

// CreateChargeIntent asks the payment provider for a card charge intent and
// returns its client secret. The provider call is opaque; no payment state is
// stored here.
func (s *BillingService) CreateChargeIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	if amountCents <= 0 {
		return "", domain.ErrInvalidAmount
	}
	if currency == "" {
		currency = "usd"
	}

	secret, err := s.provider.CreateChargeIntent(ctx, amountCents, currency)
	if err != nil {
		return "", err
	}
	metrics.RecordPaymentIntent()
	return secret, nil
}

func (s *BillingService) RecordPayment(ctx context.Context, p domain.Payment) (uuid.UUID, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		return uuid.Nil, domain.ErrEmailRequired
	}
	if p.AmountCents <= 0 {
		return uuid.Nil, domain.ErrInvalidAmount
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}

	id, err := s.payments.CreatePayment(ctx, p)
	if err != nil {
		return uuid.Nil, err
	}
	if s.audit != nil {
		s.audit.PaymentRecorded(ctx, id, p.Email, p.AmountCents)
	}
	return id, nil
}

func (s *BillingService) ListPayments(ctx context.Context, email string) ([]domain.Payment, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	return s.payments.ListPaymentsByEmail(ctx, email)
}

func (s *BillingService) CreateCoupon(ctx context.Context, c domain.Coupon) (uuid.UUID, error) {
	c.Code = strings.TrimSpace(c.Code)
	c.Available = true
	c.CreatedAt = time.Now().UTC()
	return s.coupons.CreateCoupon(ctx, c)
}

func (s *BillingService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	return s.coupons.ListCoupons(ctx)
}

func (s *BillingService) SetCouponAvailability(ctx context.Context, id uuid.UUID, available bool) (bool, error) {
	return s.coupons.SetCouponAvailability(ctx, id, available)
}

func (s *BillingService) DeactivateCoupon(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	return s.coupons.DeactivateCouponByCode(ctx, code)
}
