package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"celltrack/internal/adapters/http/middleware"
	"celltrack/internal/application/orchestrators"
	"celltrack/internal/domain/membership"
	"celltrack/internal/domain/occurrence"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps engine errors onto HTTP statuses: validation problems are
// 400, unknown targets 404, permission failures 403, preconditions 409.
// Anything unrecognized is an internal error with details withheld.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrators.ErrCellNotFound),
		errors.Is(err, orchestrators.ErrOccurrenceLookup),
		errors.Is(err, orchestrators.ErrMembershipNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, orchestrators.ErrDateNotExpected),
		errors.Is(err, orchestrators.ErrCellInactive),
		errors.Is(err, orchestrators.ErrParticipantInput),
		errors.Is(err, orchestrators.ErrMembershipCellMismatch),
		errors.Is(err, occurrence.ErrNegativeValue),
		errors.Is(err, occurrence.ErrBeforeOccurrence),
		errors.Is(err, membership.ErrInvalidRole),
		errors.Is(err, membership.ErrAmbiguousRef):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, occurrence.ErrCutoffPassed),
		errors.Is(err, occurrence.ErrAlreadyConfirmed),
		errors.Is(err, orchestrators.ErrConfirmNotAllowed),
		errors.Is(err, orchestrators.ErrApproveNotAllowed):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, occurrence.ErrNothingToConfirm),
		errors.Is(err, occurrence.ErrNoPendingEdit),
		errors.Is(err, orchestrators.ErrDateTaken),
		errors.Is(err, orchestrators.ErrConflictingDeferrals),
		errors.Is(err, orchestrators.ErrAlreadyMember),
		errors.Is(err, membership.ErrAlreadyRemoved):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		internalError(w, err)
	}
}

// notifyDeps builds the notification dependencies, nil when no recipients or
// no outbox are configured.
func notifyDeps() *orchestrators.NotifyDeps {
	if stores.OutboxStore == nil || len(params.NotifyRecipients) == 0 {
		return nil
	}
	return &orchestrators.NotifyDeps{
		OutboxStore: stores.OutboxStore,
		Recipients:  params.NotifyRecipients,
		Now:         timeNow,
		GenerateID:  generateID,
	}
}

// promotionDeps builds the promotion evaluator dependencies.
func promotionDeps() *orchestrators.PromotionDeps {
	return &orchestrators.PromotionDeps{
		MembershipStore: stores.MembershipStore,
		HistoryStore:    stores.OccurrenceStore,
		Notifications:   notifyDeps(),
	}
}

// handleLogin handles POST /login with JSON credentials.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input orchestrators.LoginInput
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.ParticipantID, result.Capabilities)
	if err != nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"accountId":    result.AccountID,
		"email":        result.Email,
		"capabilities": result.Capabilities,
	})
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie("celltrack_session")
	if err == nil {
		sessions.Delete(cookie.Value)
	}

	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword handles POST /change-password for the logged-in account.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminPerf returns aggregated request/query timings.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	since := timeNow().Add(-1 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			since = timeNow().Add(-d)
		}
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, 10))
}
