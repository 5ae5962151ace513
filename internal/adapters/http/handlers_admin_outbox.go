package web

import (
	"net/http"
	"strconv"
	"strings"

	"celltrack/internal/application/orchestrators"
	"celltrack/internal/domain/outbox"
)

// handleAdminOutbox handles admin endpoints for managing outbox entries.
// Routes:
//
//	GET    /admin/outbox                 list entries (?status=&type=&limit=)
//	POST   /admin/outbox/:id/retry       manual retry, skips backoff
//	POST   /admin/outbox/:id/abandon     mark abandoned
//	DELETE /admin/outbox/:id             purge a terminal entry
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		// List failed entries (permanently failed or max retries)
		limitStr := r.URL.Query().Get("limit")
		limit := 50
		if limitStr != "" {
			if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		status := r.URL.Query().Get("status")
		if status == "" {
			status = outbox.StatusFailed
		}

		var entries []outbox.Entry
		var err error

		switch {
		case r.URL.Query().Get("type") != "":
			st := status
			if st == "all" {
				st = ""
			}
			entries, err = stores.OutboxStore.ListByActionType(ctx, r.URL.Query().Get("type"), st, limit)
		case status == "all":
			entries, err = stores.OutboxStore.ListPending(ctx, limit)
		default:
			entries, err = stores.OutboxStore.ListFailed(ctx, limit)
		}

		if err != nil {
			internalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, entries)

	case "POST":
		// Extract entry ID from path: /admin/outbox/:id/:action
		path := r.URL.Path
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) < 4 || parts[0] != "admin" || parts[1] != "outbox" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		entryID := parts[2]
		action := parts[3]

		processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, orchestrators.DefaultExecutors(emailSender))

		switch action {
		case "retry":
			if err := processor.ProcessSingle(ctx, entryID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "retry triggered"})

		case "abandon":
			if err := processor.AbandonEntry(ctx, entryID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})

		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
		}

	case "DELETE":
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "admin" || parts[1] != "outbox" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		entryID := parts[2]

		entry, err := stores.OutboxStore.GetByID(ctx, entryID)
		if err != nil {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		if !entry.IsTerminal() {
			http.Error(w, "only terminal entries can be deleted", http.StatusConflict)
			return
		}
		if err := stores.OutboxStore.Delete(ctx, entryID); err != nil {
			internalError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
