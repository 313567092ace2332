package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/merchantry/bulwark/internal/application/lockout"
	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/domain"
	domerrors "github.com/merchantry/bulwark/internal/domain/errors"
)

// AdminHandler serves the operator surface for the lockout ledger. Routes
// using it sit behind the admin policy, so existence non-disclosure does not
// apply here.
type AdminHandler struct {
	lockouts *lockout.Manager
	audit    ports.AuditSink
	log      zerolog.Logger
}

func NewAdminHandler(lockouts *lockout.Manager, audit ports.AuditSink, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{lockouts: lockouts, audit: audit, log: log}
}

// LockoutStatus is GET /admin/accounts/{id}/lockout.
func (h *AdminHandler) LockoutStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	acct, state, err := h.lockouts.Status(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domerrors.ErrAccountNotFound) {
			writeErr(w, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("lockout status failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	history, err := h.lockouts.History(r.Context(), accountID, 50)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("login history failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":             accountID.String(),
		"email":                  acct.Email,
		"failed_attempts":        acct.FailedAttempts,
		"locked":                 state.Locked,
		"lock_until":             state.Until,
		"lock_remaining_minutes": state.RemainingMinutes,
		"login_events":           len(history),
	})
}

// Unlock is POST /admin/accounts/{id}/unlock: clears a lock ahead of expiry.
func (h *AdminHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if err := h.lockouts.Unlock(r.Context(), accountID); err != nil {
		if errors.Is(err, domerrors.ErrAccountNotFound) {
			writeErr(w, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("unlock failed")
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "temporarily unavailable, try again")
		return
	}
	AuditEmit(h.log, r, h.audit, "admin.unlock", accountID.String(), true, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) accountID(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	id, err := domain.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid account id")
		return domain.AccountID{}, false
	}
	return id, true
}
