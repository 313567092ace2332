package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/lockout"
	"github.com/merchantry/bulwark/internal/application/ports"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
	"github.com/merchantry/bulwark/internal/infrastructure/http/middleware"
)

// genericLoginError is returned for wrong passwords and unknown accounts
// alike, so the response shape never betrays whether the account exists.
const genericLoginError = "invalid email or password"

// dummyHash is verified against when the email does not resolve, so the
// not-found path costs the same as a real password check.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2FsdA$G9mkZWHkFK8ZYL8WIyiZB9Vsd3nXHb9dpUMJpbBIV5g"

// LoginHandler gates login through the lockout ledger, delegates credential
// verification to the external identity provider, and records every outcome.
type LoginHandler struct {
	profiles ports.ProfileStore
	lockouts *lockout.Manager
	idp      ports.IdentityProvider
	burner   ports.PasswordVerifier
	audit    ports.AuditSink
	validate *validator.Validate
	log      zerolog.Logger
}

func NewLoginHandler(profiles ports.ProfileStore, lockouts *lockout.Manager, idp ports.IdentityProvider, burner ports.PasswordVerifier, audit ports.AuditSink, log zerolog.Logger) *LoginHandler {
	return &LoginHandler{
		profiles: profiles,
		lockouts: lockouts,
		idp:      idp,
		burner:   burner,
		audit:    audit,
		validate: validator.New(),
		log:      log,
	}
}

// Login is POST /auth/login. The lockout gate runs strictly before
// credential verification; a locked account can never authenticate its way
// out.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	email := SanitizeEmail(body.Email)
	password := SanitizePassword(body.Password)
	if email == "" || password == "" {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid email or password length")
		return
	}

	source, agent := getClientIP(r), r.UserAgent()

	profile, err := h.profiles.GetProfileByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, domerrors.ErrAccountNotFound) {
			// Burn a hash verification so timing matches the known-account
			// path, then answer exactly like a wrong password.
			if h.burner != nil {
				h.burner.Verify(password, dummyHash)
			}
			AuditEmit(h.log, r, h.audit, "user.login", "", false, "unknown email")
			middleware.RecordLoginAttempt("failure")
			writeErr(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, genericLoginError)
			return
		}
		h.log.Error().Err(err).Msg("profile lookup failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	accountID := profile.ID

	check, err := h.lockouts.CheckLockout(r.Context(), accountID)
	if err != nil {
		// Fail closed: an unreadable ledger denies, never assumes unlocked.
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("lockout check failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	if check.IsLocked {
		AuditEmit(h.log, r, h.audit, "user.login", accountID.String(), false, "account locked")
		middleware.RecordLoginAttempt("locked")
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":               check.Message,
			"code":                ErrCodeAccountLocked,
			"retry_after_minutes": check.RemainingMinutes,
		})
		return
	}

	token, err := h.idp.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, domerrors.ErrInvalidCredentials) {
			res, rerr := h.lockouts.RecordFailedAttempt(r.Context(), accountID, source, agent)
			if rerr != nil {
				// The denial stands regardless; only the ledger write is lost.
				h.log.Error().Err(rerr).Str("account_id", accountID.String()).Msg("failed attempt not recorded")
			}
			AuditEmit(h.log, r, h.audit, "user.login", accountID.String(), false, "invalid credentials")
			middleware.RecordLoginAttempt("failure")
			if rerr == nil && res.IsLocked {
				middleware.RecordLockout()
				writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
					"error":               lockedNowMessage,
					"code":                ErrCodeAccountLocked,
					"retry_after_minutes": int(lockout.LockoutDuration.Minutes()),
				})
				return
			}
			writeErr(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, genericLoginError)
			return
		}
		h.log.Error().Err(err).Msg("identity provider error")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}

	if err := h.lockouts.RecordSuccess(r.Context(), accountID, source, agent); err != nil {
		// Authentication already succeeded; the counter reset will happen on
		// the next lazy observation.
		h.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("success not recorded")
	}
	AuditEmit(h.log, r, h.audit, "user.login", accountID.String(), true, "")
	middleware.RecordLoginAttempt("success")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"mfa_enrolled": profile.MFAEnabled,
		"account": map[string]interface{}{
			"id":    accountID.String(),
			"email": profile.Email,
		},
	})
}

const lockedNowMessage = "account temporarily locked; try again in 30 minutes"
