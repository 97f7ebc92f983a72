package http

import (
	"errors"
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
	"github.com/gatehouse-dev/gatehouse/pkg/jwtx"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// WriteError maps core errors onto HTTP responses. Anything unmapped
// becomes a generic 500 so internal details never leak to clients; the real
// error goes to the log.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var limitErr *ratelimit.LimitError
	if errors.As(err, &limitErr) {
		httpx.WriteJSON(w, http.StatusTooManyRequests, httpx.ErrorBody{
			Error:      "Too Many Requests",
			Message:    "Rate limit exceeded. Please try again later.",
			RetryAfter: limitErr.Result.RetryAfter,
		})
		return
	}

	switch {
	case errors.Is(err, jwtx.ErrExpired):
		writeError(w, http.StatusUnauthorized, "token_expired", "The token has expired.")
	case errors.Is(err, jwtx.ErrMalformed),
		errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrAlgMismatch),
		errors.Is(err, jwtx.ErrIssuer),
		errors.Is(err, jwtx.ErrAudience),
		errors.Is(err, jwtx.ErrNotYetValid),
		errors.Is(err, jwtx.ErrWrongTokenType):
		writeError(w, http.StatusUnauthorized, "invalid_token", "The token is invalid.")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.")
	case errors.Is(err, service.ErrMFARequired):
		writeError(w, http.StatusUnauthorized, "mfa_required", "A one-time code is required.")
	case errors.Is(err, service.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, "invalid_code", "The one-time code is invalid.")
	case errors.Is(err, service.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, "session_invalid", "The session has expired or been revoked.")
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
	case errors.Is(err, service.ErrPurposeMismatch):
		writeError(w, http.StatusUnauthorized, "invalid_token", "The token is invalid.")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "You do not have access to this resource.")
	case errors.Is(err, service.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, "account_disabled", "This account has been disabled.")
	case errors.Is(err, service.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, "email_not_verified", "Email address has not been verified.")
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		writeError(w, http.StatusBadRequest, "mfa_already_enabled", "MFA is already enabled.")
	case errors.Is(err, service.ErrMFANotEnabled):
		writeError(w, http.StatusBadRequest, "mfa_not_enabled", "MFA is not enabled.")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Resource not found.")
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "Resource already exists.")
	default:
		slogx.FromContext(r.Context()).Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "An internal error occurred.")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	httpx.WriteJSON(w, status, httpx.ErrorBody{Error: code, Message: message})
}
