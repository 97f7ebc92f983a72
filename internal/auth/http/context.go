package http

import (
	"context"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
)

type ctxKey int

const ctxKeyAuth ctxKey = iota

// WithAuthContext stores the resolved auth context on the request context.
// Only the authentication middleware writes this.
func WithAuthContext(ctx context.Context, ac *domain.AuthContext) context.Context {
	return context.WithValue(ctx, ctxKeyAuth, ac)
}

// AuthFromContext returns the auth context resolved for this request, if
// any. A nil result means the request is anonymous.
func AuthFromContext(ctx context.Context) (*domain.AuthContext, bool) {
	ac, ok := ctx.Value(ctxKeyAuth).(*domain.AuthContext)
	if !ok || ac == nil {
		return nil, false
	}
	return ac, true
}
