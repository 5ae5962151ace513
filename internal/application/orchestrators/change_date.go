package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"celltrack/internal/domain/cell"
	"celltrack/internal/domain/identity"
	"celltrack/internal/domain/occurrence"
)

// ErrDateTaken is returned when another occurrence already exists on the
// requested date for the same cell.
var ErrDateTaken = errors.New("an occurrence already exists on that date")

// ChangeDateOccurrenceStore extends lookup with a by-date check so a date
// change cannot collide with an existing row.
type ChangeDateOccurrenceStore interface {
	OccurrenceLookupStore
	GetByCellAndDate(ctx context.Context, cellID, date string) (occurrence.Occurrence, error)
}

// ChangeDateInput carries a date-change request.
type ChangeDateInput struct {
	OccurrenceID string
	NewDate      string // YYYY-MM-DD
	Caller       identity.Caller
}

// ChangeDateDeps holds dependencies for ExecuteChangeDate.
type ChangeDateDeps struct {
	CellStore       CellLookupStore
	OccurrenceStore ChangeDateOccurrenceStore
	Notifications   *NotifyDeps
	EditWindow      time.Duration
	Now             func() time.Time
}

// ChangeDateResult reports the occurrence after the request, with Deferred
// set when the change was parked for approval instead of applied.
type ChangeDateResult struct {
	Occurrence occurrence.Occurrence
	Deferred   bool
}

// dateEditPayload is the JSON shape parked for a deferred date change.
type dateEditPayload struct {
	Date string `json:"date"`
}

// ExecuteChangeDate moves an occurrence to another legitimate date for its
// cell. A direct leader of the cell carries a separate late-change allowance
// for dates on top of the general one.
// PRE: input.NewDate is YYYY-MM-DD
// POST: either the date is moved, or the request is parked as a pending edit
func ExecuteChangeDate(ctx context.Context, input ChangeDateInput, deps ChangeDateDeps) (ChangeDateResult, error) {
	day, err := time.ParseInLocation(cell.DateFormat, input.NewDate, time.UTC)
	if err != nil {
		return ChangeDateResult{}, errors.New("date must be YYYY-MM-DD")
	}

	o, err := deps.OccurrenceStore.GetByID(ctx, input.OccurrenceID)
	if err != nil {
		return ChangeDateResult{}, ErrOccurrenceLookup
	}
	c, err := deps.CellStore.GetByID(ctx, o.CellID)
	if err != nil {
		return ChangeDateResult{}, ErrCellNotFound
	}
	if !input.Caller.IsAdmin() && !c.IsExpectedDate(day) {
		return ChangeDateResult{}, ErrDateNotExpected
	}
	if existing, err := deps.OccurrenceStore.GetByCellAndDate(ctx, o.CellID, input.NewDate); err == nil && existing.ID != o.ID {
		return ChangeDateResult{}, ErrDateTaken
	}

	now := deps.Now()
	editCtx := occurrence.EditContext{
		OccurredAt:   c.MeetingDateTime(o.Date),
		Now:          now,
		Window:       deps.EditWindow,
		Admin:        input.Caller.IsAdmin(),
		DirectLeader: c.IsLedBy(input.Caller.ParticipantID),
	}
	class, err := o.ClassifyEdit(occurrence.GroupDate, editCtx)
	if err != nil {
		return ChangeDateResult{}, err
	}

	if class == occurrence.EditRequiresApproval {
		payload, _ := json.Marshal(dateEditPayload{Date: input.NewDate})
		o.DeferEdit(occurrence.GroupDate, string(payload), input.Caller.AccountID, now)
		o.UpdatedAt = now
		if err := deps.OccurrenceStore.Save(ctx, o); err != nil {
			return ChangeDateResult{}, err
		}
		slog.Info("realization_event", "event", "date_change_deferred",
			"occurrence_id", o.ID, "cell_id", o.CellID, "requested_date", input.NewDate)
		if deps.Notifications != nil {
			_ = EnqueuePendingEditEmail(ctx, c, o, *deps.Notifications)
		}
		return ChangeDateResult{Occurrence: o, Deferred: true}, nil
	}

	oldDate := o.Date.Format(cell.DateFormat)
	o.Date = day
	o.ReferenceMonth = day.Format("2006-01")
	o.UpdatedAt = now
	if err := deps.OccurrenceStore.Save(ctx, o); err != nil {
		return ChangeDateResult{}, err
	}

	slog.Info("realization_event", "event", "date_changed",
		"occurrence_id", o.ID, "cell_id", o.CellID,
		"old_date", oldDate, "new_date", input.NewDate)

	return ChangeDateResult{Occurrence: o}, nil
}
