package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// Rate-limit categories used by the routes below. Each maps to a Config in
// the limiter's table; unknown categories fall back to the limiter default.
const (
	CategorySignIn               = "sign_in"
	CategorySignUp               = "sign_up"
	CategoryTokenRefresh         = "token_refresh"
	CategoryPasswordResetRequest = "password_reset_request"
	CategoryPasswordReset        = "password_reset"
	CategoryEmailVerify          = "email_verify"
	CategoryResendVerification   = "resend_verification"
	CategoryChangePassword       = "change_password"
	CategoryMFASetup             = "mfa_setup"
	CategoryMFAVerify            = "mfa_verify"
	CategoryMFADisable           = "mfa_disable"
	CategoryGeneral              = "general"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	limiter  *ratelimit.Limiter
	resolver *service.Resolver

	AuthService *service.AuthService
	MFAService  *service.MFAService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	limiter *ratelimit.Limiter,
	resolver *service.Resolver,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		limiter:      limiter,
		resolver:     resolver,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPassword()
	r.registerVerification()
	r.registerProfile()
	r.registerMFA()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential endpoints are keyed by IP: the caller has no identity yet
	// and per-IP limiting is what blunts brute force.
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignUp),
			httpx.RateLimit(r.limiter, httpx.ByIP(CategorySignUp)),
		),
	)

	r.Mux.Handle("POST /v1/auth/signin",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimit(r.limiter, httpx.ByIP(CategorySignIn)),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimit(r.limiter, httpx.ByIP(CategoryTokenRefresh)),
		),
	)

	r.Mux.Handle("POST /v1/auth/signout",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			Authn(r.resolver),
			httpx.RateLimit(r.limiter, ByUser(CategoryGeneral)),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleResetRequest),
			httpx.RateLimit(r.limiter, httpx.ByIP(CategoryPasswordResetRequest)),
		),
	)

	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimit(r.limiter, httpx.ByIP(CategoryPasswordReset)),
		),
	)

	r.Mux.Handle("POST /v1/me/password",
		httpx.Chain(http.HandlerFunc(h.HandleChange),
			Authn(r.resolver),
			httpx.RateLimit(r.limiter, ByUser(CategoryChangePassword)),
		),
	)
}

func (r *Router) registerVerification() {
	h := &VerifyHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /v1/auth/verify/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimit(r.limiter, httpx.ByIP(CategoryResendVerification)),
		),
	)

	r.Mux.Handle("POST /v1/auth/verify/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimit(r.limiter, httpx.ByIP(CategoryEmailVerify)),
		),
	)
}

func (r *Router) registerProfile() {
	h := &MeHandler{}

	// Role-based budget: admins get more headroom than regular users.
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(h,
			Authn(r.resolver),
			httpx.RateLimit(r.limiter, ByRole()),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService, Store: r.store}

	r.Mux.Handle("POST /v1/me/mfa/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			Authn(r.resolver),
			RequireEmailVerified(),
			httpx.RateLimit(r.limiter, ByUser(CategoryMFASetup)),
		),
	)

	r.Mux.Handle("POST /v1/me/mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			Authn(r.resolver),
			httpx.RateLimit(r.limiter, ByUser(CategoryMFAVerify)),
		),
	)

	r.Mux.Handle("POST /v1/me/mfa/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			Authn(r.resolver),
			httpx.RateLimit(r.limiter, ByUser(CategoryMFADisable)),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Limiter: r.limiter}

	secured := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			Authn(r.resolver),
			RequireAdmin(),
			httpx.RateLimit(r.limiter, ByRole()),
		)
	}

	r.Mux.Handle("GET /v1/admin/ratelimit/{category}/{subject}", secured(h.HandleStatus))
	r.Mux.Handle("DELETE /v1/admin/ratelimit/{category}/{subject}", secured(h.HandleReset))
	r.Mux.Handle("DELETE /v1/admin/ratelimit", secured(h.HandleClear))
}

func (r *Router) registerSystem() {
	// Health check endpoints sit outside the limiter; monitoring polls
	// them constantly and a throttled probe reads as an outage.
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
