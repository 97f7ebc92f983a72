package http

import (
	"net/http"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
)

// MeHandler returns the authenticated user's own profile.
type MeHandler struct{}

type meResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	MFAEnabled    bool       `json:"mfa_enabled"`
	CreatedAt     time.Time  `json:"created_at"`
	SessionExpiry time.Time  `json:"session_expires_at"`
	LastAccessAt  *time.Time `json:"last_access_at,omitempty"`
}

// ServeHTTP handles GET /v1/me.
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ac, ok := AuthFromContext(r.Context())
	if !ok {
		WriteError(w, r, service.ErrUnauthorized)
		return
	}

	resp := meResponse{
		ID:            ac.User.ID,
		Email:         ac.User.Email,
		Role:          string(ac.User.Role),
		Status:        string(ac.User.Status),
		EmailVerified: ac.User.EmailVerified,
		MFAEnabled:    ac.User.MFAEnabled != nil,
		CreatedAt:     ac.User.CreatedAt,
		SessionExpiry: ac.Session.ExpiresAt,
	}
	if !ac.Session.LastAccessAt.IsZero() {
		la := ac.Session.LastAccessAt
		resp.LastAccessAt = &la
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}
