package http

import (
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/auth/service"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// MFAHandler covers TOTP enrollment, activation and disabling. All
// endpoints require authentication.
type MFAHandler struct {
	MFAService *service.MFAService
	Store      store.Store
}

type mfaEnrollResponse struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}

// HandleEnroll handles POST /v1/me/mfa/enroll. Generates and stores a TOTP
// secret without enabling MFA; activation requires proving possession of
// the secret via HandleVerify.
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	ac, ok := AuthFromContext(ctx)
	if !ok {
		WriteError(w, r, service.ErrUnauthorized)
		return
	}
	if ac.User.MFAEnabled != nil {
		WriteError(w, r, service.ErrMFAAlreadyEnabled)
		return
	}

	secret, err := h.MFAService.GenerateSecret()
	if err != nil {
		log.Error("failed to generate totp secret", "user_id", ac.User.ID, "err", err)
		WriteError(w, r, err)
		return
	}
	if err := h.Store.Users().UpdateMFASecret(ctx, ac.User.ID, secret); err != nil {
		log.Error("failed to store totp secret", "user_id", ac.User.ID, "err", err)
		WriteError(w, r, err)
		return
	}

	url, err := h.MFAService.ProvisioningURL(ac.User.Email, secret)
	if err != nil {
		log.Error("failed to build provisioning url", "user_id", ac.User.ID, "err", err)
		WriteError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, mfaEnrollResponse{Secret: secret, OtpauthURL: url})
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

type mfaBackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// HandleVerify handles POST /v1/me/mfa/verify. A valid code enables MFA
// and returns the backup codes. They are shown exactly once.
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	ac, ok := AuthFromContext(ctx)
	if !ok {
		WriteError(w, r, service.ErrUnauthorized)
		return
	}
	if ac.User.MFAEnabled != nil {
		WriteError(w, r, service.ErrMFAAlreadyEnabled)
		return
	}
	if ac.User.MFASecret == nil {
		WriteError(w, r, service.ErrMFANotEnabled)
		return
	}

	var req mfaCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.MFAService.VerifyCode(ac.User.ID, *ac.User.MFASecret, req.Code); err != nil {
		log.Warn("mfa activation code rejected", "user_id", ac.User.ID)
		WriteError(w, r, err)
		return
	}
	if err := h.Store.Users().EnableMFA(ctx, ac.User.ID); err != nil {
		log.Error("failed to enable mfa", "user_id", ac.User.ID, "err", err)
		WriteError(w, r, err)
		return
	}

	codes, err := h.MFAService.GenerateBackupCodes(service.DefaultBackupCodeCount)
	if err != nil {
		log.Error("failed to generate backup codes", "user_id", ac.User.ID, "err", err)
		WriteError(w, r, err)
		return
	}

	log.Info("mfa enabled", "user_id", ac.User.ID)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, mfaBackupCodesResponse{BackupCodes: codes})
}

// HandleDisable handles POST /v1/me/mfa/disable. Requires a valid current
// code so a hijacked session alone cannot strip MFA.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	ac, ok := AuthFromContext(ctx)
	if !ok {
		WriteError(w, r, service.ErrUnauthorized)
		return
	}
	if ac.User.MFAEnabled == nil || ac.User.MFASecret == nil {
		WriteError(w, r, service.ErrMFANotEnabled)
		return
	}

	var req mfaCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.MFAService.VerifyCode(ac.User.ID, *ac.User.MFASecret, req.Code); err != nil {
		log.Warn("mfa disable code rejected", "user_id", ac.User.ID)
		WriteError(w, r, err)
		return
	}
	if err := h.Store.Users().DisableMFA(ctx, ac.User.ID); err != nil {
		log.Error("failed to disable mfa", "user_id", ac.User.ID, "err", err)
		WriteError(w, r, err)
		return
	}

	log.Info("mfa disabled", "user_id", ac.User.ID)
	w.WriteHeader(http.StatusNoContent)
}
