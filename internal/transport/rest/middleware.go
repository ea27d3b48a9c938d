package rest

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/towerly/building-service/internal/domain"
	appCtx "github.com/towerly/building-service/internal/pkg/context"
	"github.com/towerly/building-service/internal/security"
	"github.com/towerly/building-service/internal/transport/rest/response"
)

type AuthOptions struct {
	// If set (non-empty), enforce exact issuer match.
	ExpectedIssuer string
}

// AuthMiddleware rejects missing or malformed Authorization headers before
// any token parsing, then delegates validation to the verifier and attaches
// the Principal to the context.
func AuthMiddleware(verifier security.AccessTokenVerifier, opt AuthOptions) func(next http.Handler) http.Handler {
	if verifier == nil {
		panic("AuthMiddleware: nil verifier")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := strings.TrimSpace(r.Header.Get("Authorization"))
			if h == "" {
				unauthorized(w, r)
				return
			}

			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, r)
				return
			}

			raw := strings.TrimSpace(parts[1])
			if raw == "" {
				unauthorized(w, r)
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				// expired vs invalid could carry different messages; status
				// stays 401 either way.
				unauthorized(w, r)
				return
			}

			if opt.ExpectedIssuer != "" && claims.Issuer != opt.ExpectedIssuer {
				unauthorized(w, r)
				return
			}

			ctx := withPrincipal(r.Context(), Principal{
				Email: claims.Email,
				Name:  claims.Name,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole loads the stored User for the verified principal and demands
// an exact role match. No hierarchy: an admin is not implicitly a member.
func RequireRole(users domain.UserRepository, role domain.Role) func(next http.Handler) http.Handler {
	if users == nil {
		panic("RequireRole: nil user repository")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				unauthorized(w, r)
				return
			}

			u, err := users.GetUserByEmail(r.Context(), p.Email)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					forbidden(w, r)
					return
				}
				response.Fail(w, http.StatusInternalServerError, "internal", "internal error", nil, appCtx.GetRequestID(r.Context()))
				return
			}

			if u.Role != role {
				forbidden(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	response.Fail(w, http.StatusUnauthorized, "auth.unauthorized", "unauthorized access", nil, appCtx.GetRequestID(r.Context()))
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	response.Fail(w, http.StatusForbidden, "auth.forbidden", "forbidden access", nil, appCtx.GetRequestID(r.Context()))
}

func RateLimitMiddleware(cache domain.CacheRepository, limit int, window time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed, _ := cache.AllowRequest(r.Context(), ip, limit, window)
			if !allowed {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keeps it simple: RemoteAddr host part.
// Trusting X-Forwarded-For blindly is a spoofing risk; leave that to a
// trusted reverse proxy layer.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
		next.ServeHTTP(w, r)
	})
}
