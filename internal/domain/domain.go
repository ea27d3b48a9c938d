package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type AgreementStatus string

const (
	AgreementPending AgreementStatus = "pending"
	AgreementChecked AgreementStatus = "checked"
)

type DecisionAction string

const (
	ActionAccept DecisionAction = "accept"
	ActionReject DecisionAction = "reject"
)

type ApartmentStatus string

const (
	ApartmentAvailable   ApartmentStatus = "available"
	ApartmentUnavailable ApartmentStatus = "unavailable"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrAgreementExists   = errors.New("email already has an agreement")
	ErrAgreementNotFound = errors.New("agreement not found")
	ErrAgreementDecided  = errors.New("agreement already decided")
	ErrApartmentNotFound = errors.New("apartment not found")
	ErrCouponExists      = errors.New("coupon code already exists")
	ErrCouponNotFound    = errors.New("coupon not found")

	ErrEmailRequired = errors.New("email is required")
	ErrInvalidAmount = errors.New("amount must be positive")

	ErrForbidden = errors.New("forbidden")
	ErrCacheMiss = errors.New("cache miss")
)

type User struct {
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// ApartmentRef is the composite key identifying a unit.
type ApartmentRef struct {
	ApartmentNo int
	BlockName   string
	Floor       int
}

type Agreement struct {
	ID       uuid.UUID
	Email    string
	UserName string

	ApartmentRef
	Rent int64

	Status       AgreementStatus
	RoleSnapshot Role

	CreatedAt     time.Time
	DecidedAt     *time.Time
	DecidedAction *DecisionAction
}

type Apartment struct {
	ApartmentRef
	Rent     int64
	Status   ApartmentStatus
	ImageURL string
}

type ApartmentFilter struct {
	Page    int
	Limit   int
	MinRent *int64
	MaxRent *int64
}

type Announcement struct {
	ID          uuid.UUID
	Title       string
	Description string
	CreatedAt   time.Time
}

type Coupon struct {
	ID          uuid.UUID
	Code        string
	DiscountPct int
	Description string
	Available   bool
	CreatedAt   time.Time
}

type Payment struct {
	ID    uuid.UUID
	Email string
	Month string

	AmountCents int64
	ApartmentRef
	TransactionID string
	PaidAt        time.Time
}

type AdminStats struct {
	TotalRooms       int
	AvailableRooms   int
	UnavailableRooms int
	TotalUsers       int
	TotalMembers     int
}

type UserRepository interface {
	// UpsertUser creates the record on first sign-in; an existing email is
	// left untouched and reported via created=false.
	UpsertUser(ctx context.Context, u User) (created bool, err error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListMembers(ctx context.Context) ([]User, error)
	SetUserRole(ctx context.Context, email string, role Role) (modified bool, err error)
}

// AgreementRepository owns the lifecycle transactions, including the outbox.
type AgreementRepository interface {
	CreateAgreement(ctx context.Context, traceID string, a Agreement) (uuid.UUID, error)
	DecideAgreement(ctx context.Context, traceID string, id uuid.UUID, action DecisionAction, userEmail string) error
	ListPendingAgreements(ctx context.Context) ([]Agreement, error)
	ListAgreementsByEmail(ctx context.Context, email string) ([]Agreement, error)
}

type ApartmentRepository interface {
	ListApartments(ctx context.Context, f ApartmentFilter) (items []Apartment, total int, err error)
}

type AnnouncementRepository interface {
	CreateAnnouncement(ctx context.Context, a Announcement) (uuid.UUID, error)
	ListAnnouncements(ctx context.Context) ([]Announcement, error)
}

type CouponRepository interface {
	CreateCoupon(ctx context.Context, c Coupon) (uuid.UUID, error)
	ListCoupons(ctx context.Context) ([]Coupon, error)
	SetCouponAvailability(ctx context.Context, id uuid.UUID, available bool) (modified bool, err error)
	DeactivateCouponByCode(ctx context.Context, code string) (modified bool, err error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p Payment) (uuid.UUID, error)
	ListPaymentsByEmail(ctx context.Context, email string) ([]Payment, error)
}

type StatsRepository interface {
	GetAdminStats(ctx context.Context) (AdminStats, error)
}

type CacheRepository interface {
	GetStats(ctx context.Context) (AdminStats, error)
	SetStats(ctx context.Context, s AdminStats, ttl time.Duration) error

	AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error)
}

// PaymentProvider creates card charge intents with an external processor.
type PaymentProvider interface {
	CreateChargeIntent(ctx context.Context, amountCents int64, currency string) (clientSecret string, err error)
}
