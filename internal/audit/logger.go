package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/towerly/building-service/internal/domain"
	appCtx "github.com/towerly/building-service/internal/pkg/context"
)

// Logger provides structured audit logging for business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// AgreementSubmitted logs a new rental agreement request
func (l *Logger) AgreementSubmitted(ctx context.Context, id uuid.UUID, email string, ref domain.ApartmentRef) {
	l.log.Info().
		Str("action", "agreement_submitted").
		Str("agreement_id", id.String()).
		Str("email", email).
		Int("apartment_no", ref.ApartmentNo).
		Str("block_name", ref.BlockName).
		Int("floor", ref.Floor).
		Str("trace_id", getTraceID(ctx)).
		Msg("Agreement submitted")
}

// AgreementDecided logs the accept/reject transition
func (l *Logger) AgreementDecided(ctx context.Context, id uuid.UUID, action domain.DecisionAction, userEmail string) {
	l.log.Info().
		Str("action", "agreement_decided").
		Str("agreement_id", id.String()).
		Str("decision", string(action)).
		Str("user_email", userEmail).
		Str("trace_id", getTraceID(ctx)).
		Msg("Agreement decided")
}

// RoleChanged logs an explicit admin role change
func (l *Logger) RoleChanged(ctx context.Context, email string, role domain.Role) {
	l.log.Warn().
		Str("action", "role_changed").
		Str("email", email).
		Str("role", string(role)).
		Str("trace_id", getTraceID(ctx)).
		Msg("User role changed")
}

// UserCreated logs a first sign-in upsert
func (l *Logger) UserCreated(ctx context.Context, email string) {
	l.log.Info().
		Str("action", "user_created").
		Str("email", email).
		Str("trace_id", getTraceID(ctx)).
		Msg("User created")
}

// PaymentRecorded logs a stored rent payment
func (l *Logger) PaymentRecorded(ctx context.Context, id uuid.UUID, email string, amountCents int64) {
	l.log.Info().
		Str("action", "payment_recorded").
		Str("payment_id", id.String()).
		Str("email", email).
		Int64("amount_cents", amountCents).
		Str("trace_id", getTraceID(ctx)).
		Msg("Payment recorded")
}

// getTraceID extracts the request id from context if available
func getTraceID(ctx context.Context) string {
	return appCtx.GetRequestID(ctx)
}
