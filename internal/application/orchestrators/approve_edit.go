package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"celltrack/internal/domain/cell"
	"celltrack/internal/domain/identity"
	"celltrack/internal/domain/membership"
	"celltrack/internal/domain/occurrence"
)

// ErrApproveNotAllowed is returned when the caller lacks the approval
// capability.
var ErrApproveNotAllowed = errors.New("caller cannot approve edits")

// ApproveEditInput carries the approval request.
type ApproveEditInput struct {
	OccurrenceID string
	Caller       identity.Caller
}

// ApproveEditDeps holds dependencies for ExecuteApproveEdit.
type ApproveEditDeps struct {
	CellStore       CellLookupStore
	OccurrenceStore ChangeDateOccurrenceStore
	PDCutoff        time.Time
	Now             func() time.Time
	GenerateID      func() string
}

// ExecuteApproveEdit applies the parked edit on an occurrence and marks the
// approval status approved. The parked payload decides what gets applied:
// attendance marks, a date move, or a contribution value. Approval applies
// the change with the approver's authority, so the cutoff and the
// already-confirmed guard do not block it.
// PRE: input.OccurrenceID is non-empty
// POST: the pending edit is consumed exactly once
func ExecuteApproveEdit(ctx context.Context, input ApproveEditInput, deps ApproveEditDeps) (occurrence.Occurrence, error) {
	if !input.Caller.Has(identity.CapApproveEdits) && !input.Caller.IsAdmin() {
		return occurrence.Occurrence{}, ErrApproveNotAllowed
	}

	o, err := deps.OccurrenceStore.GetByID(ctx, input.OccurrenceID)
	if err != nil {
		return occurrence.Occurrence{}, ErrOccurrenceLookup
	}

	edit, err := o.TakePendingEdit()
	if err != nil {
		return occurrence.Occurrence{}, err
	}

	now := deps.Now()
	switch edit.Group {
	case occurrence.GroupAttendance:
		var entries []attendanceEditPayload
		if err := json.Unmarshal([]byte(edit.Payload), &entries); err != nil {
			return occurrence.Occurrence{}, err
		}
		for _, e := range entries {
			ref := membership.Ref{MembershipID: e.MembershipID, ParticipantID: e.ParticipantID}
			if _, _, err := o.SetMark(ref, e.Status, deps.GenerateID); err != nil {
				return occurrence.Occurrence{}, err
			}
		}
	case occurrence.GroupDate:
		var p dateEditPayload
		if err := json.Unmarshal([]byte(edit.Payload), &p); err != nil {
			return occurrence.Occurrence{}, err
		}
		day, err := time.ParseInLocation(cell.DateFormat, p.Date, time.UTC)
		if err != nil {
			return occurrence.Occurrence{}, err
		}
		c, err := deps.CellStore.GetByID(ctx, o.CellID)
		if err != nil {
			return occurrence.Occurrence{}, ErrCellNotFound
		}
		if !c.IsExpectedDate(day) {
			return occurrence.Occurrence{}, ErrDateNotExpected
		}
		if existing, err := deps.OccurrenceStore.GetByCellAndDate(ctx, o.CellID, p.Date); err == nil && existing.ID != o.ID {
			return occurrence.Occurrence{}, ErrDateTaken
		}
		o.Date = day
		o.ReferenceMonth = day.Format("2006-01")
	case occurrence.GroupContribution:
		var p contributionEditPayload
		if err := json.Unmarshal([]byte(edit.Payload), &p); err != nil {
			return occurrence.Occurrence{}, err
		}
		if err := o.FillContribution(p.Value, edit.RequestedBy, now, deps.PDCutoff, true); err != nil {
			return occurrence.Occurrence{}, err
		}
	default:
		return occurrence.Occurrence{}, errors.New("unknown pending edit group")
	}

	o.UpdatedAt = now
	if err := o.Validate(); err != nil {
		return occurrence.Occurrence{}, err
	}
	if err := deps.OccurrenceStore.Save(ctx, o); err != nil {
		return occurrence.Occurrence{}, err
	}

	slog.Info("realization_event", "event", "edit_approved",
		"occurrence_id", o.ID, "cell_id", o.CellID,
		"group", string(edit.Group), "approved_by", input.Caller.AccountID)

	return o, nil
}
