package http

import (
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
)

// Authn verifies the bearer token, loads the user and session, and stores
// the auth context on the request. Requests without a usable token are
// rejected before the handler runs, as are accounts suspended or
// deactivated after their token was issued.
func Authn(resolver *service.Resolver) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if err := service.RequireActiveAccount(&ac); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), &ac)))
		})
	}
}

// OptionalAuthn resolves the auth context when a token is present but lets
// anonymous requests through. Handlers and rate-limit keying downstream
// check AuthFromContext themselves. A present-but-bad token is still an
// error; silently downgrading it to anonymous would mask expiry from
// clients.
func OptionalAuthn(resolver *service.Resolver) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := resolver.ResolveOptional(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if ac != nil {
				if err := service.RequireActiveAccount(ac); err != nil {
					WriteError(w, r, err)
					return
				}
				r = r.WithContext(WithAuthContext(r.Context(), ac))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated requests whose user lacks one of the
// allowed roles. Must run after Authn.
func RequireRole(allowed ...domain.Role) httpx.Middleware {
	return requirePredicate(func(ac *domain.AuthContext) error {
		return service.RequireRole(ac, allowed...)
	})
}

// RequireAdmin allows ADMIN and OWNER. Must run after Authn.
func RequireAdmin() httpx.Middleware {
	return requirePredicate(service.RequireAdmin)
}

// RequireEmailVerified rejects users who have not verified their email
// address. Must run after Authn.
func RequireEmailVerified() httpx.Middleware {
	return requirePredicate(service.RequireEmailVerified)
}

func requirePredicate(check func(*domain.AuthContext) error) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, _ := AuthFromContext(r.Context())
			if err := check(ac); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ByUser keys rate limiting on the authenticated user under a fixed
// category, falling back to the client IP when the request is anonymous.
func ByUser(category string) httpx.KeyFunc {
	return func(r *http.Request) (string, string) {
		if ac, ok := AuthFromContext(r.Context()); ok {
			return category, ratelimit.UserKey(ac.User.ID)
		}
		return category, ratelimit.IPKey(httpx.ClientIP(r))
	}
}

// ByRole picks the rate-limit category from the caller's role. Admins and
// owners share the roomier "admin" budget, regular users get "user", and
// anonymous traffic falls into "general" keyed by IP.
func ByRole() httpx.KeyFunc {
	return func(r *http.Request) (string, string) {
		ac, ok := AuthFromContext(r.Context())
		if !ok {
			return "general", ratelimit.IPKey(httpx.ClientIP(r))
		}
		switch ac.User.Role {
		case domain.RoleOwner, domain.RoleAdmin:
			return "admin", ratelimit.UserKey(ac.User.ID)
		default:
			return "user", ratelimit.UserKey(ac.User.ID)
		}
	}
}
