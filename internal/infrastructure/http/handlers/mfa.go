package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/infrastructure/http/middleware"
)

// TOTPValidator checks a 6-digit code against a stored secret.
type TOTPValidator interface {
	Validate(code, secret string) bool
}

// MFAHandler verifies a second factor and flips the server-side
// mfa-verified flag. The flag lives in the MFA state store, never in a
// client-asserted claim.
type MFAHandler struct {
	profiles ports.ProfileStore
	state    ports.MFAStateStore
	totp     TOTPValidator
	ttl      time.Duration
	validate *validator.Validate
	log      zerolog.Logger
}

func NewMFAHandler(profiles ports.ProfileStore, state ports.MFAStateStore, totp TOTPValidator, ttl time.Duration, log zerolog.Logger) *MFAHandler {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MFAHandler{
		profiles: profiles,
		state:    state,
		totp:     totp,
		ttl:      ttl,
		validate: validator.New(),
		log:      log,
	}
}

// Verify is POST /auth/mfa/verify. Requires an authenticated session.
func (h *MFAHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeAuthRequired, "authentication required")
		return
	}
	var body struct {
		Code string `json:"code" validate:"required,len=6,numeric"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	accountID := sess.AccountID
	profile, err := h.profiles.GetProfile(r.Context(), accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("profile load failed during mfa verify")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	if !profile.MFAEnabled || profile.TOTPSecret == "" {
		writeErr(w, http.StatusBadRequest, ErrCodeMFANotEnrolled, "no second factor enrolled")
		return
	}
	if !h.totp.Validate(body.Code, profile.TOTPSecret) {
		AuditLog(h.log, r, "mfa.verify", accountID.String(), false, "invalid code")
		writeErr(w, http.StatusUnauthorized, ErrCodeMFACodeInvalid, "invalid verification code")
		return
	}
	if err := h.state.MarkVerified(r.Context(), accountID.String(), h.ttl); err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("mfa state write failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	AuditLog(h.log, r, "mfa.verify", accountID.String(), true, "")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mfa_verified": true,
		"expires_in":   int(h.ttl.Seconds()),
	})
}
