package http

import (
	"encoding/json"
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// AuthHandler covers the credential endpoints: sign-in, token refresh and
// sign-out.
type AuthHandler struct {
	AuthService *service.AuthService
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// HandleSignUp handles POST /v1/auth/signup. The account starts PENDING;
// a verification token is minted for the address.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	user, token, err := h.AuthService.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		log.Warn("sign-up refused", "email", req.Email, "err", err)
		WriteError(w, r, err)
		return
	}

	// Token delivery belongs to the mailer; until one is wired it is only
	// observable at debug level.
	log.Debug("email verification token issued", "email", user.Email, "token", token)

	httpx.WriteJSON(w, http.StatusCreated, signUpResponse{
		ID:     user.ID,
		Email:  user.Email,
		Status: string(user.Status),
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfa_code,omitempty"`
}

// HandleSignIn handles POST /v1/auth/signin.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	pair, err := h.AuthService.SignIn(ctx, req.Email, req.Password, req.MFACode, httpx.ClientIP(r), r.UserAgent())
	if err != nil {
		log.Warn("sign-in refused", "email", req.Email, "err", err)
		WriteError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh handles POST /v1/auth/refresh. Rotation: the presented
// refresh token is revoked and a new pair is issued. Presenting an already
// revoked token revokes the whole session.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		log.Warn("refresh refused", "err", err)
		WriteError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleSignOut handles POST /v1/auth/signout. Requires authentication;
// revokes the current session and its refresh tokens.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	ac, ok := AuthFromContext(ctx)
	if !ok {
		WriteError(w, r, service.ErrUnauthorized)
		return
	}

	if err := h.AuthService.SignOut(ctx, *ac); err != nil {
		log.Error("sign-out failed", "user_id", ac.User.ID, "err", err)
		WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON decodes the request body into dst, writing a 400 and
// returning false on failure. Bodies are capped at 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}
