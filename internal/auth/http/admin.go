package http

import (
	"net/http"
	"time"

	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// AdminHandler exposes rate-limit inspection and reset to operators. All
// routes sit behind RequireAdmin.
type AdminHandler struct {
	Limiter *ratelimit.Limiter
}

type limitStatusResponse struct {
	Category  string    `json:"category"`
	Subject   string    `json:"subject"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Tracked   bool      `json:"tracked"`
}

// HandleStatus handles GET /v1/admin/ratelimit/{category}/{subject}.
// Reading status never consumes an attempt.
func (h *AdminHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	subject := r.PathValue("subject")
	if category == "" || subject == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "category and subject are required")
		return
	}

	res, tracked := h.Limiter.Status(category, subject)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, limitStatusResponse{
		Category:  category,
		Subject:   subject,
		Limit:     res.Limit,
		Remaining: res.Remaining,
		ResetAt:   res.ResetAt,
		Tracked:   tracked,
	})
}

// HandleReset handles DELETE /v1/admin/ratelimit/{category}/{subject}.
// Clears the counter for one key, for support unlocks.
func (h *AdminHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	category := r.PathValue("category")
	subject := r.PathValue("subject")
	if category == "" || subject == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "category and subject are required")
		return
	}

	h.Limiter.Reset(category, subject)

	actor := "unknown"
	if ac, ok := AuthFromContext(ctx); ok {
		actor = ac.User.ID
	}
	log.Info("rate limit reset", "category", category, "subject", subject, "actor", actor)

	w.WriteHeader(http.StatusNoContent)
}

// HandleClear handles DELETE /v1/admin/ratelimit. Drops every tracked
// counter across all categories.
func (h *AdminHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	h.Limiter.Clear()

	actor := "unknown"
	if ac, ok := AuthFromContext(ctx); ok {
		actor = ac.User.ID
	}
	log.Warn("all rate limits cleared", "actor", actor)

	w.WriteHeader(http.StatusNoContent)
}
