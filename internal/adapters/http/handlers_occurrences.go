package web

import (
	"net/http"
	"strconv"
	"strings"

	"celltrack/internal/adapters/http/middleware"
	"celltrack/internal/application/orchestrators"
)

// handleOccurrences dispatches the /occurrences/ subtree:
//
//	POST /occurrences/:id/confirm   confirm a filled contribution
//	POST /occurrences/:id/date      move the occurrence to another date
//	POST /occurrences/:id/approve   apply the parked pending edit
func handleOccurrences(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "occurrences" || parts[1] == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	occurrenceID := parts[1]

	switch parts[2] {
	case "confirm":
		handleConfirmContribution(w, r, occurrenceID)
	case "date":
		handleChangeDate(w, r, occurrenceID)
	case "approve":
		handleApproveEdit(w, r, occurrenceID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func handleConfirmContribution(w http.ResponseWriter, r *http.Request, occurrenceID string) {
	o, err := orchestrators.ExecuteConfirmContribution(r.Context(), orchestrators.ConfirmContributionInput{
		OccurrenceID: occurrenceID,
		Caller:       middleware.CallerFromContext(r.Context()),
	}, orchestrators.ConfirmContributionDeps{
		OccurrenceStore: stores.OccurrenceStore,
		Now:             timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func handleChangeDate(w http.ResponseWriter, r *http.Request, occurrenceID string) {
	var body struct {
		Date string `json:"date"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteChangeDate(r.Context(), orchestrators.ChangeDateInput{
		OccurrenceID: occurrenceID,
		NewDate:      body.Date,
		Caller:       middleware.CallerFromContext(r.Context()),
	}, orchestrators.ChangeDateDeps{
		CellStore:       stores.CellStore,
		OccurrenceStore: stores.OccurrenceStore,
		Notifications:   notifyDeps(),
		EditWindow:      params.EditWindow,
		Now:             timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	// A date move bypasses the cell's month view; force a re-seed.
	views.invalidate(result.Occurrence.CellID)
	writeJSON(w, http.StatusOK, result)
}

func handleApproveEdit(w http.ResponseWriter, r *http.Request, occurrenceID string) {
	o, err := orchestrators.ExecuteApproveEdit(r.Context(), orchestrators.ApproveEditInput{
		OccurrenceID: occurrenceID,
		Caller:       middleware.CallerFromContext(r.Context()),
	}, orchestrators.ApproveEditDeps{
		CellStore:       stores.CellStore,
		OccurrenceStore: stores.OccurrenceStore,
		PDCutoff:        params.PDCutoff,
		Now:             timeNow,
		GenerateID:      generateID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	// The applied edit may touch marks or the date outside the view.
	views.invalidate(o.CellID)
	writeJSON(w, http.StatusOK, o)
}

// handleListPendingEdits returns occurrences waiting on an approval.
func handleListPendingEdits(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	entries, err := stores.OccurrenceStore.ListPendingEdits(r.Context(), limit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
