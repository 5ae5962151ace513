package occurrence

import (
	"errors"
	"time"
)

// EditClass is the outcome of the edit window policy: the change either
// applies immediately or is deferred for approval. Deferral is not a denial.
type EditClass int

// Edit classifications.
const (
	EditImmediate EditClass = iota
	EditRequiresApproval
)

// FieldGroup identifies which part of an occurrence an edit touches. Each
// group carries its own single free late-edit allowance.
type FieldGroup string

// Field groups.
const (
	GroupAttendance   FieldGroup = "attendance"
	GroupDate         FieldGroup = "date"
	GroupContribution FieldGroup = "contribution"
)

// DefaultEditWindow is how long after a meeting edits stay unconditionally
// immediate.
const DefaultEditWindow = 48 * time.Hour

// ErrBeforeOccurrence rejects edits attempted strictly before the meeting's
// own date and time. This is a hard rejection, not a deferral.
var ErrBeforeOccurrence = errors.New("occurrence cannot be edited before its date")

// EditContext carries the inputs to the edit window policy.
type EditContext struct {
	OccurredAt   time.Time // the occurrence's date and start time
	Now          time.Time
	Window       time.Duration // zero means DefaultEditWindow
	Admin        bool          // administrator override capability
	DirectLeader bool          // direct leader of this cell
}

// ClassifyEdit applies the edit window policy for one field group.
// Administrators always get Immediate without consuming any allowance.
// Within the window every edit is Immediate. After the window each field
// group gets exactly one Immediate late edit; the direct leader holds one
// extra late allowance for date changes. Anything beyond that requires
// approval.
// PRE: ctx.Now and ctx.OccurredAt are set
// POST: when a late allowance is granted the matching used-flag is set, so
// the caller must persist the occurrence afterwards
func (o *Occurrence) ClassifyEdit(group FieldGroup, ctx EditContext) (EditClass, error) {
	if ctx.Admin {
		return EditImmediate, nil
	}
	if ctx.Now.Before(ctx.OccurredAt) {
		return 0, ErrBeforeOccurrence
	}

	window := ctx.Window
	if window <= 0 {
		window = DefaultEditWindow
	}
	if !ctx.Now.After(ctx.OccurredAt.Add(window)) {
		return EditImmediate, nil
	}

	switch group {
	case GroupAttendance:
		if !o.LateAttendanceEditUsed {
			o.LateAttendanceEditUsed = true
			return EditImmediate, nil
		}
	case GroupDate:
		if !o.LateDateEditUsed {
			o.LateDateEditUsed = true
			return EditImmediate, nil
		}
		if ctx.DirectLeader && !o.LeaderDateEditUsed {
			o.LeaderDateEditUsed = true
			return EditImmediate, nil
		}
	case GroupContribution:
		if !o.LateContributionEditUsed {
			o.LateContributionEditUsed = true
			return EditImmediate, nil
		}
	}
	return EditRequiresApproval, nil
}

// DeferEdit parks a change for approval, making it visible to holders of the
// approve-edits capability. Only one pending edit is held at a time; a new
// deferral replaces the previous one.
// POST: EditApprovalStatus is pending and PendingEdit is set
func (o *Occurrence) DeferEdit(group FieldGroup, payload, requestedBy string, now time.Time) {
	o.EditApprovalStatus = EditPending
	o.PendingEdit = &PendingEdit{
		Group:       group,
		Payload:     payload,
		RequestedBy: requestedBy,
		RequestedAt: now,
	}
}

// TakePendingEdit clears and returns the parked change so the approver can
// apply it. There is no reject path: an unapproved edit simply stays pending.
// PRE: EditApprovalStatus is pending
// POST: EditApprovalStatus is approved and PendingEdit is nil
func (o *Occurrence) TakePendingEdit() (PendingEdit, error) {
	if o.EditApprovalStatus != EditPending || o.PendingEdit == nil {
		return PendingEdit{}, ErrNoPendingEdit
	}
	edit := *o.PendingEdit
	o.PendingEdit = nil
	o.EditApprovalStatus = EditApproved
	return edit, nil
}
