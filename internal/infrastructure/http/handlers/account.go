package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/lockout"
	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/application/stepup"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
	"github.com/merchantry/bulwark/internal/infrastructure/http/middleware"
)

// AccountHandler serves the account-security surface: the login-history
// view and the sensitive operations gated by the step-up guard.
type AccountHandler struct {
	guard    *stepup.Guard
	profiles ports.ProfileStore
	lockouts *lockout.Manager
	hasher   ports.PasswordHasher
	audit    ports.AuditSink
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAccountHandler(guard *stepup.Guard, profiles ports.ProfileStore, lockouts *lockout.Manager, hasher ports.PasswordHasher, audit ports.AuditSink, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		guard:    guard,
		profiles: profiles,
		lockouts: lockouts,
		hasher:   hasher,
		audit:    audit,
		validate: validator.New(),
		log:      log,
	}
}

// Security is GET /account/security: lockout state plus recent login
// history for the signed-in account.
func (h *AccountHandler) Security(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	accountID, err := domain.ParseAccountID(principal.Attrs.String(domain.AttrAccountID))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeAuthRequired, "authentication required")
		return
	}
	acct, state, err := h.lockouts.Status(r.Context(), accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("lockout status failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	history, err := h.lockouts.History(r.Context(), accountID, 20)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("login history failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	events := make([]map[string]interface{}, 0, len(history))
	for _, ev := range history {
		events = append(events, map[string]interface{}{
			"at":         ev.At,
			"outcome":    string(ev.Outcome),
			"source":     ev.Source,
			"user_agent": ev.UserAgent,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"failed_attempts":        acct.FailedAttempts,
		"locked":                 state.Locked,
		"lock_remaining_minutes": state.RemainingMinutes,
		"last_successful_login":  acct.LastSuccessfulLogin,
		"last_failed_login":      acct.LastFailedLogin,
		"login_history":          events,
	})
}

// ChangeEmail is POST /account/email, behind step-up.
func (h *AccountHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewEmail        string `json:"new_email" validate:"required,email,max=254"`
		CurrentPassword string `json:"current_password" validate:"max=128"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	email := SanitizeEmail(body.NewEmail)
	if email == "" {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid email")
		return
	}
	grant, ok := h.stepUp(w, r, "account:email", body.CurrentPassword)
	if !ok {
		return
	}
	accountID, err := domain.ParseAccountID(grant.Principal.Attrs.String(domain.AttrAccountID))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeAuthRequired, "authentication required")
		return
	}
	if err := h.profiles.UpdateEmail(r.Context(), accountID, email); err != nil {
		h.fail(w, r, "account.email_change", accountID.String(), err)
		return
	}
	AuditEmit(h.log, r, h.audit, "account.email_change", accountID.String(), true, "")
	writeJSON(w, http.StatusOK, map[string]interface{}{"email": email})
}

// ChangePassword is POST /account/password, behind step-up. The new hash is
// produced here; storage stays with the profile service.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
		CurrentPassword string `json:"current_password" validate:"max=128"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	password := SanitizePassword(body.NewPassword)
	if password == "" {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid password length")
		return
	}
	grant, ok := h.stepUp(w, r, "account:password", body.CurrentPassword)
	if !ok {
		return
	}
	accountID, err := domain.ParseAccountID(grant.Principal.Attrs.String(domain.AttrAccountID))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeAuthRequired, "authentication required")
		return
	}
	hash, err := h.hasher.Hash(password)
	if err != nil {
		h.fail(w, r, "account.password_change", accountID.String(), err)
		return
	}
	if err := h.profiles.UpdatePasswordHash(r.Context(), accountID, hash); err != nil {
		h.fail(w, r, "account.password_change", accountID.String(), err)
		return
	}
	AuditEmit(h.log, r, h.audit, "account.password_change", accountID.String(), true, "")
	w.WriteHeader(http.StatusNoContent)
}

// Deactivate is DELETE /account, behind step-up.
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"current_password" validate:"max=128"`
	}
	// A missing body is fine for federated users; the guard enforces the
	// password requirement for password users.
	_ = json.NewDecoder(r.Body).Decode(&body)

	grant, ok := h.stepUp(w, r, "account:deactivate", body.CurrentPassword)
	if !ok {
		return
	}
	accountID, err := domain.ParseAccountID(grant.Principal.Attrs.String(domain.AttrAccountID))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeAuthRequired, "authentication required")
		return
	}
	if err := h.profiles.Deactivate(r.Context(), accountID); err != nil {
		h.fail(w, r, "account.deactivate", accountID.String(), err)
		return
	}
	AuditEmit(h.log, r, h.audit, "account.deactivate", accountID.String(), true, "")
	w.WriteHeader(http.StatusNoContent)
}

// stepUp runs the guard and writes the denial response on failure.
func (h *AccountHandler) stepUp(w http.ResponseWriter, r *http.Request, resource, currentPassword string) (*stepup.Grant, bool) {
	grant, err := h.guard.Authorize(r.Context(), stepup.Request{
		Token:           middleware.BearerToken(r),
		Resource:        resource,
		CurrentPassword: SanitizePassword(currentPassword),
		Source:          getClientIP(r),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		var denial *stepup.Error
		if errors.As(err, &denial) {
			middleware.RecordStepUpDecision(string(denial.Code))
			writeErr(w, stepUpStatus(denial.Code), string(denial.Code), denial.Message)
			return nil, false
		}
		h.log.Error().Err(err).Str("resource", resource).Msg("step-up failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return nil, false
	}
	middleware.RecordStepUpDecision("allowed")
	return grant, true
}

func stepUpStatus(code stepup.Code) int {
	switch code {
	case stepup.CodeCurrentPasswordRequired:
		return http.StatusBadRequest
	case stepup.CodeUnsupportedProvider:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

func (h *AccountHandler) decode(w http.ResponseWriter, r *http.Request, body interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return false
	}
	if err := h.validate.Struct(body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return false
	}
	return true
}

func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, event, accountID string, err error) {
	AuditEmit(h.log, r, h.audit, event, accountID, false, err.Error())
	if errors.Is(err, domerrors.ErrAccountNotFound) {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "account not found")
		return
	}
	h.log.Error().Err(err).Str("event", event).Msg("profile update failed")
	writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
}
