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

// Orchestrator errors shared across the save/toggle/change-date flows.
var (
	ErrCellNotFound       = errors.New("cell not found")
	ErrCellInactive       = errors.New("cell is not active")
	ErrDateNotExpected    = errors.New("date is not an expected meeting date for this cell")
	ErrOccurrenceNotFound = errors.New("occurrence not found")
)

// CellLookupStore defines the cell store interface the write flows need.
type CellLookupStore interface {
	GetByID(ctx context.Context, id string) (cell.Cell, error)
}

// OccurrenceWriteStore defines the occurrence store interface for toggles.
type OccurrenceWriteStore interface {
	GetByCellAndDate(ctx context.Context, cellID, date string) (occurrence.Occurrence, error)
	Save(ctx context.Context, o occurrence.Occurrence) error
}

// ToggleAttendanceInput carries input for the attendance toggle.
type ToggleAttendanceInput struct {
	CellID string
	Date   string // YYYY-MM-DD
	Ref    membership.Ref
	Next   occurrence.MarkStatus // present, absent, or unmarked
	Caller identity.Caller
}

// ToggleAttendanceDeps holds dependencies for ToggleAttendance.
type ToggleAttendanceDeps struct {
	CellStore       CellLookupStore
	OccurrenceStore OccurrenceWriteStore
	Promotions      *PromotionDeps // optional: nil skips visitor promotion
	EditWindow      time.Duration  // zero means occurrence.DefaultEditWindow
	Now             func() time.Time
	GenerateID      func() string
}

// ToggleAttendanceResult reports the settled occurrence state.
type ToggleAttendanceResult struct {
	Occurrence occurrence.Occurrence
	Deferred   bool // true when the change was parked pending approval
}

// attendanceEditPayload is the JSON shape parked for a deferred attendance edit.
type attendanceEditPayload struct {
	MembershipID  string                `json:"membership_id,omitempty"`
	ParticipantID string                `json:"participant_id,omitempty"`
	Status        occurrence.MarkStatus `json:"status"`
}

// ExecuteToggleAttendance upserts or removes one attendance mark. The first
// toggle for a date creates the occurrence lazily. Marking strictly before
// the meeting is rejected outright for non-administrators; a late toggle past
// the edit window consumes the occurrence's free attendance allowance or is
// parked pending approval.
// PRE: input.Ref is valid, input.Date is YYYY-MM-DD
// POST: on success the returned occurrence is the persisted state; when
// Deferred is true no mark was changed
func ExecuteToggleAttendance(ctx context.Context, input ToggleAttendanceInput, deps ToggleAttendanceDeps) (ToggleAttendanceResult, error) {
	if err := input.Ref.Validate(); err != nil {
		return ToggleAttendanceResult{}, err
	}
	day, err := time.ParseInLocation(cell.DateFormat, input.Date, time.UTC)
	if err != nil {
		return ToggleAttendanceResult{}, errors.New("date must be YYYY-MM-DD")
	}

	c, err := deps.CellStore.GetByID(ctx, input.CellID)
	if err != nil {
		return ToggleAttendanceResult{}, ErrCellNotFound
	}
	if !c.IsActive() {
		return ToggleAttendanceResult{}, ErrCellInactive
	}
	if !input.Caller.IsAdmin() && !c.IsExpectedDate(day) {
		return ToggleAttendanceResult{}, ErrDateNotExpected
	}

	now := deps.Now()
	o, err := deps.OccurrenceStore.GetByCellAndDate(ctx, input.CellID, input.Date)
	if err != nil {
		// First write for this date creates the occurrence.
		o = occurrence.Occurrence{
			ID:                 deps.GenerateID(),
			CellID:             input.CellID,
			Date:               day,
			ReferenceMonth:     day.Format("2006-01"),
			ContributionStatus: occurrence.ContributionUnset,
			EditApprovalStatus: occurrence.EditNone,
			CreatedAt:          now,
		}
	}

	class, err := o.ClassifyEdit(occurrence.GroupAttendance, occurrence.EditContext{
		OccurredAt:   c.MeetingDateTime(day),
		Now:          now,
		Window:       deps.EditWindow,
		Admin:        input.Caller.IsAdmin(),
		DirectLeader: c.IsLedBy(input.Caller.ParticipantID),
	})
	if err != nil {
		return ToggleAttendanceResult{}, err
	}

	if class == occurrence.EditRequiresApproval {
		payload, _ := json.Marshal([]attendanceEditPayload{{
			MembershipID:  input.Ref.MembershipID,
			ParticipantID: input.Ref.ParticipantID,
			Status:        input.Next,
		}})
		o.DeferEdit(occurrence.GroupAttendance, string(payload), input.Caller.AccountID, now)
		o.UpdatedAt = now
		if err := deps.OccurrenceStore.Save(ctx, o); err != nil {
			return ToggleAttendanceResult{}, err
		}
		slog.Info("attendance_event", "event", "toggle_deferred", "cell_id", input.CellID, "date", input.Date, "participant", input.Ref.Key())
		return ToggleAttendanceResult{Occurrence: o, Deferred: true}, nil
	}

	if _, _, err := o.SetMark(input.Ref, input.Next, deps.GenerateID); err != nil {
		return ToggleAttendanceResult{}, err
	}
	o.UpdatedAt = now
	if err := o.Validate(); err != nil {
		return ToggleAttendanceResult{}, err
	}
	if err := deps.OccurrenceStore.Save(ctx, o); err != nil {
		return ToggleAttendanceResult{}, err
	}

	slog.Info("attendance_event", "event", "mark_toggled", "cell_id", input.CellID, "date", input.Date, "participant", input.Ref.Key(), "status", string(input.Next))

	// Best-effort visitor promotion after a successful save.
	if deps.Promotions != nil {
		_ = EvaluatePromotions(ctx, c, o, *deps.Promotions)
	}

	return ToggleAttendanceResult{Occurrence: o}, nil
}
