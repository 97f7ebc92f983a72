package http

import (
	"errors"
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// VerifyHandler covers email verification: requesting a fresh token and
// confirming one.
type VerifyHandler struct {
	AuthService *service.AuthService
}

type verifyRequest struct {
	Email string `json:"email"`
}

// HandleRequest handles POST /v1/auth/verify/request. Like the password
// reset request, the response never reveals whether the address exists.
func (h *VerifyHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	token, err := h.AuthService.RequestEmailVerification(ctx, req.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info("verification requested for unknown email")
	case errors.Is(err, store.ErrAlreadyExists):
		// Answering differently for verified addresses would let callers
		// probe which accounts exist.
		log.Info("verification requested for already verified email")
	case err != nil:
		WriteError(w, r, err)
		return
	default:
		log.Debug("email verification token issued", "email", req.Email, "token", token)
	}

	w.WriteHeader(http.StatusAccepted)
}

type verifyConfirm struct {
	Token string `json:"token"`
}

// HandleConfirm handles POST /v1/auth/verify/confirm.
func (h *VerifyHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyConfirm
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.AuthService.VerifyEmail(ctx, req.Token); err != nil {
		log.Warn("email verification refused", "err", err)
		WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
