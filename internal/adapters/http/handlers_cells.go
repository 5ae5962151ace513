package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"celltrack/internal/adapters/http/middleware"
	cellStore "celltrack/internal/adapters/storage/cell"
	"celltrack/internal/application/listutil"
	"celltrack/internal/application/orchestrators"
	"celltrack/internal/domain/membership"
	"celltrack/internal/domain/occurrence"
)

// handleCells dispatches the /cells/ subtree:
//
//	GET    /cells/                       list cells (?status=&page=&per_page=)
//	GET    /cells/:id                    cell attributes
//	GET    /cells/:id/members            memberships incl. visitors
//	POST   /cells/:id/members            add participant or visitor
//	DELETE /cells/:id/members/:mid       remove membership
//	GET    /cells/:id/occurrences        month view (?year=&month=)
//	POST   /cells/:id/toggle             attendance toggle
//	POST   /cells/:id/save               full occurrence save
func handleCells(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 1 && parts[0] == "cells" && r.Method == "GET" {
		handleListCells(w, r)
		return
	}
	if len(parts) < 2 || parts[0] != "cells" || parts[1] == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	cellID := parts[1]

	switch {
	case len(parts) == 2 && r.Method == "GET":
		handleGetCell(w, r, cellID)
	case len(parts) == 3 && parts[2] == "members" && r.Method == "GET":
		handleListMembers(w, r, cellID)
	case len(parts) == 3 && parts[2] == "members" && r.Method == "POST":
		handleAddParticipant(w, r, cellID)
	case len(parts) == 4 && parts[2] == "members" && (r.Method == "DELETE" || r.Method == "POST"):
		handleRemoveMembership(w, r, cellID, parts[3])
	case len(parts) == 3 && parts[2] == "occurrences" && r.Method == "GET":
		handleListOccurrences(w, r, cellID)
	case len(parts) == 3 && parts[2] == "toggle" && r.Method == "POST":
		handleToggleAttendance(w, r, cellID)
	case len(parts) == 3 && parts[2] == "save" && r.Method == "POST":
		handleSaveOccurrence(w, r, cellID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func handleListCells(w http.ResponseWriter, r *http.Request) {
	lp := listutil.ParseListParams(r.URL.Query(), nil, []string{"status"})
	cells, err := stores.CellStore.List(r.Context(), cellStore.ListFilter{
		Status: lp.Filters["status"],
		Limit:  lp.PerPage,
		Offset: lp.Offset(),
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cells":    cells,
		"page":     lp.Page,
		"per_page": lp.PerPage,
	})
}

func handleGetCell(w http.ResponseWriter, r *http.Request, cellID string) {
	c, err := stores.CellStore.GetByID(r.Context(), cellID)
	if err != nil {
		http.Error(w, "cell not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func handleListMembers(w http.ResponseWriter, r *http.Request, cellID string) {
	members, err := stores.MembershipStore.ListByCellID(r.Context(), cellID)
	if err != nil {
		internalError(w, err)
		return
	}

	lp := listutil.ParseListParams(r.URL.Query(), nil, []string{"role"})
	if role := lp.Filters["role"]; role != "" {
		filtered := members[:0]
		for _, m := range members {
			if m.Role == role {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}

	info := listutil.NewPageInfo(lp.Page, lp.PerPage, len(members))
	start, end := info.Bounds()

	writeJSON(w, http.StatusOK, map[string]any{
		"members": members[start:end],
		"page":    info,
	})
}

func handleAddParticipant(w http.ResponseWriter, r *http.Request, cellID string) {
	var body struct {
		FullName      string `json:"fullName"`
		Phone         string `json:"phone"`
		ParticipantID string `json:"participantId"`
		Role          string `json:"role"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	m, err := orchestrators.ExecuteAddParticipant(r.Context(), orchestrators.AddParticipantInput{
		CellID:        cellID,
		FullName:      body.FullName,
		Phone:         body.Phone,
		ParticipantID: body.ParticipantID,
		Role:          body.Role,
		Caller:        middleware.CallerFromContext(r.Context()),
	}, orchestrators.AddParticipantDeps{
		CellStore:       stores.CellStore,
		MembershipStore: stores.MembershipStore,
		Now:             timeNow,
		GenerateID:      generateID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func handleRemoveMembership(w http.ResponseWriter, r *http.Request, cellID, membershipID string) {
	err := orchestrators.ExecuteRemoveMembership(r.Context(), orchestrators.RemoveMembershipInput{
		CellID:       cellID,
		MembershipID: membershipID,
		Caller:       middleware.CallerFromContext(r.Context()),
	}, orchestrators.RemoveMembershipDeps{
		MembershipStore: stores.MembershipStore,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleListOccurrences(w http.ResponseWriter, r *http.Request, cellID string) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "year is required", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, "month is required", http.StatusBadRequest)
		return
	}

	entries, err := orchestrators.ExecuteListOccurrences(r.Context(), orchestrators.ListOccurrencesInput{
		CellID: cellID,
		Year:   year,
		Month:  time.Month(month),
	}, orchestrators.ListOccurrencesDeps{
		CellStore:       stores.CellStore,
		OccurrenceStore: stores.OccurrenceStore,
		PDCutoff:        params.PDCutoff,
		Now:             timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func handleToggleAttendance(w http.ResponseWriter, r *http.Request, cellID string) {
	var body struct {
		Date          string `json:"date"`
		MembershipID  string `json:"membershipId"`
		ParticipantID string `json:"participantId"`
		Next          string `json:"next"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ref := membership.Ref{MembershipID: body.MembershipID, ParticipantID: body.ParticipantID}
	next := occurrence.MarkStatus(body.Next)

	period := body.Date
	if len(period) >= 7 {
		period = period[:7]
	}
	view, err := views.forPeriod(r.Context(), stores.OccurrenceStore, cellID, period)
	if err != nil {
		internalError(w, err)
		return
	}

	// The view applies the mark tentatively, dropping overlapping toggles
	// for the same person and date; the orchestrator is the commit.
	var result orchestrators.ToggleAttendanceResult
	commit := func(ctx context.Context) (occurrence.Occurrence, error) {
		var err error
		result, err = orchestrators.ExecuteToggleAttendance(ctx, orchestrators.ToggleAttendanceInput{
			CellID: cellID,
			Date:   body.Date,
			Ref:    ref,
			Next:   next,
			Caller: middleware.CallerFromContext(r.Context()),
		}, orchestrators.ToggleAttendanceDeps{
			CellStore:       stores.CellStore,
			OccurrenceStore: stores.OccurrenceStore,
			Promotions:      promotionDeps(),
			EditWindow:      params.EditWindow,
			Now:             timeNow,
			GenerateID:      generateID,
		})
		return result.Occurrence, err
	}

	applied, err := view.Toggle(r.Context(), body.Date, ref, next, commit)
	if err != nil {
		respondError(w, err)
		return
	}
	if !applied {
		writeJSON(w, http.StatusOK, map[string]any{"applied": false})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleSaveOccurrence(w http.ResponseWriter, r *http.Request, cellID string) {
	var body struct {
		Date              string   `json:"date"`
		ReferenceMonth    string   `json:"referenceMonth"`
		ContributionValue *float64 `json:"contributionValue"`
		Attendance        []struct {
			MembershipID  string `json:"membershipId"`
			ParticipantID string `json:"participantId"`
			Status        string `json:"status"`
		} `json:"attendance"`
		Visitors []struct {
			FullName string `json:"fullName"`
			Phone    string `json:"phone"`
		} `json:"visitors"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	input := orchestrators.SaveRealizationInput{
		CellID:         cellID,
		Date:           body.Date,
		ReferenceMonth: body.ReferenceMonth,
		Caller:         middleware.CallerFromContext(r.Context()),
	}
	if body.ContributionValue != nil {
		input.ContributionSet = true
		input.ContributionValue = *body.ContributionValue
	}
	for _, e := range body.Attendance {
		input.Attendance = append(input.Attendance, orchestrators.AttendanceEntry{
			Ref:    membership.Ref{MembershipID: e.MembershipID, ParticipantID: e.ParticipantID},
			Status: occurrence.MarkStatus(e.Status),
		})
	}
	for _, v := range body.Visitors {
		input.Visitors = append(input.Visitors, orchestrators.VisitorEntry{FullName: v.FullName, Phone: v.Phone})
	}

	result, err := orchestrators.ExecuteSaveRealization(r.Context(), input, orchestrators.SaveRealizationDeps{
		CellStore:       stores.CellStore,
		OccurrenceStore: stores.OccurrenceStore,
		MembershipStore: stores.MembershipStore,
		Promotions:      promotionDeps(),
		Notifications:   notifyDeps(),
		EditWindow:      params.EditWindow,
		PDCutoff:        params.PDCutoff,
		Now:             timeNow,
		GenerateID:      generateID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	views.replace(cellID, result.Occurrence)
	writeJSON(w, http.StatusOK, result)
}
