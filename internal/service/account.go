package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/towerly/building-service/internal/audit"
	"github.com/towerly/building-service/internal/domain"
)

// AccountService covers the user directory: first-sign-in upsert, role
// lookup, member listing, explicit role changes and the admin dashboard
// counters.
type AccountService struct {
	users domain.UserRepository
	stats domain.StatsRepository
	cache domain.CacheRepository
	audit *audit.Logger

	statsTTL time.Duration
}

func NewAccountService(users domain.UserRepository, stats domain.StatsRepository, cache domain.CacheRepository, auditLog *audit.Logger, statsTTL time.Duration) *AccountService {
	return &AccountService{users: users, stats: stats, cache: cache, audit: auditLog, statsTTL: statsTTL}
}

func (s *AccountService) UpsertUser(ctx context.Context, u domain.User) (created bool, err error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return false, domain.ErrEmailRequired
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt = time.Now().UTC()

	created, err = s.users.UpsertUser(ctx, u)
	if err != nil {
		return false, err
	}
	if created && s.audit != nil {
		s.audit.UserCreated(ctx, u.Email)
	}
	return created, nil
}

// GetRole returns the stored role for an email, defaulting to "user" when no
// record exists (found=false).
func (s *AccountService) GetRole(ctx context.Context, email string) (domain.Role, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false, domain.ErrEmailRequired
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.RoleUser, false, nil
		}
		return "", false, err
	}
	return u.Role, true, nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *AccountService) ListMembers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListMembers(ctx)
}

func (s *AccountService) ChangeRole(ctx context.Context, email string, role domain.Role) (modified bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, domain.ErrEmailRequired
	}

	modified, err = s.users.SetUserRole(ctx, email, role)
	if err != nil {
		return false, err
	}
	if modified && s.audit != nil {
		s.audit.RoleChanged(ctx, email, role)
	}
	return modified, nil
}

func (s *AccountService) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetStats(ctx); err == nil {
			return cached, nil
		}
		// cache miss, and redis trouble is not fatal for a dashboard read
	}

	stats, err := s.stats.GetAdminStats(ctx)
	if err != nil {
		return domain.AdminStats{}, err
	}

	if s.cache != nil {
		_ = s.cache.SetStats(ctx, stats, s.statsTTL)
	}
	return stats, nil
}
