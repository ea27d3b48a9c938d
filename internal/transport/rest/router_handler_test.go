package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/towerly/building-service/internal/domain"
	"github.com/towerly/building-service/internal/security"
	"github.com/towerly/building-service/internal/service"
	"github.com/towerly/building-service/internal/transport/rest/response"
)

type fakeVerifier struct {
	claims security.TokenClaims
	err    error
}

func (f fakeVerifier) VerifyAccessToken(token string) (security.TokenClaims, error) {
	return f.claims, f.err
}

type fakeCache struct {
	allow bool
	stats *domain.AdminStats
}

func newFakeCache() *fakeCache {
	return &fakeCache{allow: true}
}

func (c *fakeCache) GetStats(ctx context.Context) (domain.AdminStats, error) {
	if c.stats == nil {
		return domain.AdminStats{}, domain.ErrCacheMiss
	}
	return *c.stats, nil
}

func (c *fakeCache) SetStats(ctx context.Context, s domain.AdminStats, ttl time.Duration) error {
	c.stats = &s
	return nil
}

func (c *fakeCache) AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error) {
	return c.allow, nil
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	m := map[string]domain.User{}
	for _, u := range users {
		m[u.Email] = u
	}
	return &fakeUserRepo{users: m}
}

func (r *fakeUserRepo) UpsertUser(ctx context.Context, u domain.User) (bool, error) {
	if _, ok := r.users[u.Email]; ok {
		return false, nil
	}
	r.users[u.Email] = u
	return true, nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, ok := r.users[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) ListMembers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.Role == domain.RoleMember {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetUserRole(ctx context.Context, email string, role domain.Role) (bool, error) {
	u, ok := r.users[email]
	if !ok {
		return false, nil
	}
	u.Role = role
	r.users[email] = u
	return true, nil
}

type fakeAgreementRepo struct {
	createFn  func(ctx context.Context, traceID string, a domain.Agreement) (uuid.UUID, error)
	decideFn  func(ctx context.Context, traceID string, id uuid.UUID, action domain.DecisionAction, userEmail string) error
	pendingFn func(ctx context.Context) ([]domain.Agreement, error)
	byEmailFn func(ctx context.Context, email string) ([]domain.Agreement, error)
}

func (r *fakeAgreementRepo) CreateAgreement(ctx context.Context, traceID string, a domain.Agreement) (uuid.UUID, error) {
	if r.createFn == nil {
		return uuid.Nil, errors.New("not implemented")
	}
	return r.createFn(ctx, traceID, a)
}

func (r *fakeAgreementRepo) DecideAgreement(ctx context.Context, traceID string, id uuid.UUID, action domain.DecisionAction, userEmail string) error {
	if r.decideFn == nil {
		return errors.New("not implemented")
	}
	return r.decideFn(ctx, traceID, id, action, userEmail)
}

func (r *fakeAgreementRepo) ListPendingAgreements(ctx context.Context) ([]domain.Agreement, error) {
	if r.pendingFn == nil {
		return nil, errors.New("not implemented")
	}
	return r.pendingFn(ctx)
}

func (r *fakeAgreementRepo) ListAgreementsByEmail(ctx context.Context, email string) ([]domain.Agreement, error) {
	if r.byEmailFn == nil {
		return nil, errors.New("not implemented")
	}
	return r.byEmailFn(ctx, email)
}

func newTestRouter(agreements domain.AgreementRepository, users domain.UserRepository, cache domain.CacheRepository, claims security.TokenClaims) http.Handler {
	agreementSvc := service.NewAgreementService(agreements, nil)
	accountSvc := service.NewAccountService(users, nil, cache, nil, time.Minute)
	catalogSvc := service.NewCatalogService(nil, nil)
	billingSvc := service.NewBillingService(nil, nil, nil, nil)

	h := NewHandler(agreementSvc, accountSvc, catalogSvc, billingSvc)
	return NewRouter(RouterDeps{
		Handler:   h,
		Verifier:  fakeVerifier{claims: claims},
		Users:     users,
		Cache:     cache,
		JWTIssuer: claims.Issuer,
	})
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var errBody response.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errBody))
	return errBody
}

func TestNewRouter_PanicsOnNilDeps(t *testing.T) {
	users := newFakeUserRepo()
	h := NewHandler(
		service.NewAgreementService(&fakeAgreementRepo{}, nil),
		service.NewAccountService(users, nil, nil, nil, time.Minute),
		service.NewCatalogService(nil, nil),
		service.NewBillingService(nil, nil, nil, nil),
	)

	require.Panics(t, func() {
		_ = NewRouter(RouterDeps{Handler: nil, Verifier: fakeVerifier{}, Users: users})
	})
	require.Panics(t, func() {
		_ = NewRouter(RouterDeps{Handler: h, Verifier: nil, Users: users})
	})
	require.Panics(t, func() {
		_ = NewRouter(RouterDeps{Handler: h, Verifier: fakeVerifier{}, Users: nil})
	})
}

func TestRouter_SubmitAgreement_Success_200(t *testing.T) {
	id := uuid.New()
	agreements := &fakeAgreementRepo{
		createFn: func(ctx context.Context, traceID string, a domain.Agreement) (uuid.UUID, error) {
			require.Equal(t, "alice@example.com", a.Email)
			require.Equal(t, domain.AgreementPending, a.Status)
			return id, nil
		},
	}
	r := newTestRouter(agreements, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	body := `{"email":"Alice@Example.com","userName":"Alice","apartmentNo":3,"blockName":"A","floor":2,"rent":1200}`
	req := httptest.NewRequest(http.MethodPost, "/agreements", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeData(t, rr)
	m := env.Data.(map[string]any)
	require.Equal(t, true, m["success"])
	require.Equal(t, id.String(), m["insertedId"])
}

func TestRouter_SubmitAgreement_ApartmentZero_200(t *testing.T) {
	agreements := &fakeAgreementRepo{
		createFn: func(ctx context.Context, traceID string, a domain.Agreement) (uuid.UUID, error) {
			require.Equal(t, 0, a.ApartmentNo)
			return uuid.New(), nil
		},
	}
	r := newTestRouter(agreements, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	// unit numbering starts at 0 in some blocks
	body := `{"email":"zed@example.com","apartmentNo":0,"blockName":"A","floor":0,"rent":800}`
	req := httptest.NewRequest(http.MethodPost, "/agreements", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeData(t, rr)
	m := env.Data.(map[string]any)
	require.Equal(t, true, m["success"])
}

func TestRouter_SubmitAgreement_MissingApartmentNo_400(t *testing.T) {
	r := newTestRouter(&fakeAgreementRepo{}, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	body := `{"email":"zed@example.com","blockName":"A","rent":800}`
	req := httptest.NewRequest(http.MethodPost, "/agreements", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "request.invalid", errBody.Error.Code)
}

func TestRouter_SubmitAgreement_MissingEmail_400(t *testing.T) {
	r := newTestRouter(&fakeAgreementRepo{}, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	body := `{"apartmentNo":3,"blockName":"A"}`
	req := httptest.NewRequest(http.MethodPost, "/agreements", bytes.NewBufferString(body))
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "request.invalid", errBody.Error.Code)
	require.Equal(t, "rid-1", errBody.Error.RequestID)
}

func TestRouter_SubmitAgreement_Duplicate_409(t *testing.T) {
	agreements := &fakeAgreementRepo{
		createFn: func(ctx context.Context, traceID string, a domain.Agreement) (uuid.UUID, error) {
			return uuid.Nil, domain.ErrAgreementExists
		},
	}
	r := newTestRouter(agreements, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	body := `{"email":"bob@example.com","apartmentNo":1,"blockName":"B","rent":900}`
	req := httptest.NewRequest(http.MethodPost, "/agreements", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "agreement.exists", errBody.Error.Code)
}

func TestRouter_AdminRoutes_MissingToken_401(t *testing.T) {
	r := newTestRouter(&fakeAgreementRepo{}, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	req := httptest.NewRequest(http.MethodGet, "/agreements/requests", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "auth.unauthorized", errBody.Error.Code)
	require.Equal(t, "unauthorized access", errBody.Error.Message)
}

func TestRouter_AdminRoutes_UnknownUser_403(t *testing.T) {
	claims := security.TokenClaims{Email: "ghost@example.com", Issuer: "identity"}
	r := newTestRouter(&fakeAgreementRepo{}, newFakeUserRepo(), newFakeCache(), claims)

	req := httptest.NewRequest(http.MethodGet, "/agreements/requests", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "forbidden access", errBody.Error.Message)
}

func TestRouter_AdminRoutes_WrongRole_403(t *testing.T) {
	claims := security.TokenClaims{Email: "carol@example.com", Issuer: "identity"}
	users := newFakeUserRepo(domain.User{Email: "carol@example.com", Role: domain.RoleMember})
	r := newTestRouter(&fakeAgreementRepo{}, users, newFakeCache(), claims)

	// member is not admin; exact match only
	req := httptest.NewRequest(http.MethodGet, "/agreements/requests", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRouter_ListPendingAgreements_Admin_200(t *testing.T) {
	claims := security.TokenClaims{Email: "admin@example.com", Issuer: "identity"}
	users := newFakeUserRepo(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin})
	agreements := &fakeAgreementRepo{
		pendingFn: func(ctx context.Context) ([]domain.Agreement, error) {
			return []domain.Agreement{{
				ID:     uuid.New(),
				Email:  "alice@example.com",
				Status: domain.AgreementPending,
			}}, nil
		},
	}
	r := newTestRouter(agreements, users, newFakeCache(), claims)

	req := httptest.NewRequest(http.MethodGet, "/agreements/requests", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeData(t, rr)
	m := env.Data.(map[string]any)
	require.Len(t, m["requests"], 1)
}

func TestRouter_DecideAgreement_Accept_200(t *testing.T) {
	claims := security.TokenClaims{Email: "admin@example.com", Issuer: "identity"}
	users := newFakeUserRepo(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin})
	id := uuid.New()
	agreements := &fakeAgreementRepo{
		decideFn: func(ctx context.Context, traceID string, gotID uuid.UUID, action domain.DecisionAction, userEmail string) error {
			require.Equal(t, id, gotID)
			require.Equal(t, domain.ActionAccept, action)
			require.Equal(t, "alice@example.com", userEmail)
			return nil
		},
	}
	r := newTestRouter(agreements, users, newFakeCache(), claims)

	body := `{"action":"accept","userEmail":"alice@example.com"}`
	req := httptest.NewRequest(http.MethodPatch, "/agreements/requests/"+id.String(), bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeData(t, rr)
	m := env.Data.(map[string]any)
	require.Equal(t, true, m["success"])
}

func TestRouter_DecideAgreement_InvalidID_400(t *testing.T) {
	claims := security.TokenClaims{Email: "admin@example.com", Issuer: "identity"}
	users := newFakeUserRepo(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin})
	r := newTestRouter(&fakeAgreementRepo{}, users, newFakeCache(), claims)

	body := `{"action":"accept"}`
	req := httptest.NewRequest(http.MethodPatch, "/agreements/requests/not-a-uuid", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "request.invalid", errBody.Error.Code)
}

func TestRouter_DecideAgreement_AlreadyDecided_409(t *testing.T) {
	claims := security.TokenClaims{Email: "admin@example.com", Issuer: "identity"}
	users := newFakeUserRepo(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin})
	agreements := &fakeAgreementRepo{
		decideFn: func(ctx context.Context, traceID string, id uuid.UUID, action domain.DecisionAction, userEmail string) error {
			return domain.ErrAgreementDecided
		},
	}
	r := newTestRouter(agreements, users, newFakeCache(), claims)

	body := `{"action":"reject"}`
	req := httptest.NewRequest(http.MethodPatch, "/agreements/requests/"+uuid.NewString(), bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "agreement.already_decided", errBody.Error.Code)
}

func TestRouter_ChangeMemberRole_SuccessMirrorsModified(t *testing.T) {
	claims := security.TokenClaims{Email: "admin@example.com", Issuer: "identity"}
	users := newFakeUserRepo(
		domain.User{Email: "admin@example.com", Role: domain.RoleAdmin},
		domain.User{Email: "dave@example.com", Role: domain.RoleMember},
	)
	r := newTestRouter(&fakeAgreementRepo{}, users, newFakeCache(), claims)

	body := `{"role":"user"}`
	req := httptest.NewRequest(http.MethodPatch, "/members/dave@example.com/role", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeData(t, rr)
	m := env.Data.(map[string]any)
	require.Equal(t, true, m["success"])

	u, err := users.GetUserByEmail(context.Background(), "dave@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, u.Role)
}

func TestRouter_ChangeMemberRole_UnknownEmail_200False(t *testing.T) {
	claims := security.TokenClaims{Email: "admin@example.com", Issuer: "identity"}
	users := newFakeUserRepo(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin})
	r := newTestRouter(&fakeAgreementRepo{}, users, newFakeCache(), claims)

	body := `{"role":"member"}`
	req := httptest.NewRequest(http.MethodPatch, "/members/ghost@example.com/role", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeData(t, rr)
	m := env.Data.(map[string]any)
	require.Equal(t, false, m["success"])
}

func TestRouter_ChangeMemberRole_InvalidRole_400(t *testing.T) {
	claims := security.TokenClaims{Email: "admin@example.com", Issuer: "identity"}
	users := newFakeUserRepo(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin})
	r := newTestRouter(&fakeAgreementRepo{}, users, newFakeCache(), claims)

	body := `{"role":"landlord"}`
	req := httptest.NewRequest(http.MethodPatch, "/members/dave@example.com/role", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer ok")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	errBody := decodeError(t, rr)
	require.Equal(t, "request.invalid", errBody.Error.Code)
}

func TestRouter_GetUserRole_UnknownDefaultsToUser(t *testing.T) {
	r := newTestRouter(&fakeAgreementRepo{}, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	req := httptest.NewRequest(http.MethodGet, "/users/role/ghost@example.com", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeData(t, rr)
	m := env.Data.(map[string]any)
	require.Equal(t, "user", m["role"])
	require.Equal(t, false, m["found"])
}

func TestRouter_RateLimit_429(t *testing.T) {
	cache := newFakeCache()
	cache.allow = false
	agreements := &fakeAgreementRepo{}
	users := newFakeUserRepo()

	agreementSvc := service.NewAgreementService(agreements, nil)
	accountSvc := service.NewAccountService(users, nil, cache, nil, time.Minute)
	h := NewHandler(agreementSvc, accountSvc, service.NewCatalogService(nil, nil), service.NewBillingService(nil, nil, nil, nil))
	r := NewRouter(RouterDeps{
		Handler:          h,
		Verifier:         fakeVerifier{},
		Users:            users,
		Cache:            cache,
		RateLimitEnabled: true,
		RateLimitMax:     1,
		RateLimitWindow:  time.Minute,
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	r := newTestRouter(&fakeAgreementRepo{}, newFakeUserRepo(), newFakeCache(), security.TokenClaims{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}
