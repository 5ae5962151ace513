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

// MembershipWriteStore defines the membership store interface for saves.
type MembershipWriteStore interface {
	ListByCellID(ctx context.Context, cellID string) ([]membership.Membership, error)
	Save(ctx context.Context, m membership.Membership) error
}

// AttendanceEntry is one mark in the full attendance snapshot of a save.
type AttendanceEntry struct {
	Ref    membership.Ref
	Status occurrence.MarkStatus
}

// VisitorEntry is an ad-hoc visitor recorded on an occurrence. Visitors are
// local-only memberships: a name and phone without a global identity.
type VisitorEntry struct {
	FullName string
	Phone    string
}

// SaveRealizationInput carries the full snapshot for one date.
type SaveRealizationInput struct {
	CellID         string
	Date           string // YYYY-MM-DD
	ReferenceMonth string // YYYY-MM; defaults to the date's month
	// ContributionSet distinguishes an explicit value (zero included, which
	// records "no collection occurred") from an untouched field.
	ContributionSet   bool
	ContributionValue float64
	Attendance        []AttendanceEntry
	Visitors          []VisitorEntry
	Caller            identity.Caller
}

// SaveRealizationDeps holds dependencies for SaveRealization.
type SaveRealizationDeps struct {
	CellStore       CellLookupStore
	OccurrenceStore OccurrenceWriteStore
	MembershipStore MembershipWriteStore
	Promotions      *PromotionDeps // optional: nil skips visitor promotion
	Notifications   *NotifyDeps    // optional: nil skips pending-edit emails
	EditWindow      time.Duration  // zero means occurrence.DefaultEditWindow
	PDCutoff        time.Time      // externally configured cutoff; zero means none
	Now             func() time.Time
	GenerateID      func() string
}

// SaveRealizationResult reports the settled occurrence and which field
// groups, if any, were deferred for approval rather than applied.
type SaveRealizationResult struct {
	Occurrence     occurrence.Occurrence
	DeferredGroups []occurrence.FieldGroup
}

// contributionEditPayload is the JSON shape parked for a deferred
// contribution edit.
type contributionEditPayload struct {
	Value float64 `json:"value"`
}

// ErrConflictingDeferrals rejects a save that would park two field groups at
// once. An occurrence holds one pending edit; a second deferral would
// overwrite the first and silently lose it.
var ErrConflictingDeferrals = errors.New("contribution and attendance edits cannot both await approval in one save; submit them separately")

// ExecuteSaveRealization orchestrates one save operation: it validates the
// date against the cell's generated set, classifies each affected field group
// through the edit window policy, applies the contribution lifecycle, upserts
// the supplied attendance set atomically, persists new visitor memberships,
// and finally runs the promotion evaluator per visitor with a mark in this
// occurrence. Attendance and contribution advance independently in state but
// the underlying occurrence write is one unit.
// PRE: input.Date is YYYY-MM-DD; attendance refs are valid
// POST: nothing is written when a validation or permission error is returned
func ExecuteSaveRealization(ctx context.Context, input SaveRealizationInput, deps SaveRealizationDeps) (SaveRealizationResult, error) {
	day, err := time.ParseInLocation(cell.DateFormat, input.Date, time.UTC)
	if err != nil {
		return SaveRealizationResult{}, errors.New("date must be YYYY-MM-DD")
	}
	if input.ContributionSet && input.ContributionValue < 0 {
		return SaveRealizationResult{}, occurrence.ErrNegativeValue
	}
	for _, e := range input.Attendance {
		if err := e.Ref.Validate(); err != nil {
			return SaveRealizationResult{}, err
		}
	}

	c, err := deps.CellStore.GetByID(ctx, input.CellID)
	if err != nil {
		return SaveRealizationResult{}, ErrCellNotFound
	}
	if !c.IsActive() {
		return SaveRealizationResult{}, ErrCellInactive
	}
	if !input.Caller.IsAdmin() && !c.IsExpectedDate(day) {
		return SaveRealizationResult{}, ErrDateNotExpected
	}

	now := deps.Now()
	refMonth := input.ReferenceMonth
	if refMonth == "" {
		refMonth = day.Format("2006-01")
	}

	o, err := deps.OccurrenceStore.GetByCellAndDate(ctx, input.CellID, input.Date)
	if err != nil {
		o = occurrence.Occurrence{
			ID:                 deps.GenerateID(),
			CellID:             input.CellID,
			Date:               day,
			ReferenceMonth:     refMonth,
			ContributionStatus: occurrence.ContributionUnset,
			EditApprovalStatus: occurrence.EditNone,
			CreatedAt:          now,
		}
	}

	editCtx := occurrence.EditContext{
		OccurredAt:   c.MeetingDateTime(day),
		Now:          now,
		Window:       deps.EditWindow,
		Admin:        input.Caller.IsAdmin(),
		DirectLeader: c.IsLedBy(input.Caller.ParticipantID),
	}

	var deferred []occurrence.FieldGroup

	// Contribution change, gated by the edit window and the PD lifecycle.
	if input.ContributionSet && contributionChanged(o, input.ContributionValue) {
		class, err := o.ClassifyEdit(occurrence.GroupContribution, editCtx)
		if err != nil {
			return SaveRealizationResult{}, err
		}
		if class == occurrence.EditRequiresApproval {
			payload, _ := json.Marshal(contributionEditPayload{Value: input.ContributionValue})
			o.DeferEdit(occurrence.GroupContribution, string(payload), input.Caller.AccountID, now)
			deferred = append(deferred, occurrence.GroupContribution)
		} else {
			if err := o.FillContribution(input.ContributionValue, input.Caller.AccountID, now, deps.PDCutoff, input.Caller.IsAdmin()); err != nil {
				return SaveRealizationResult{}, err
			}
		}
	}

	// Attendance snapshot, visitor presents included, gated as one
	// field-group edit. Recording a visitor is recording that they came, so
	// their present mark follows the same classification: on a deferral the
	// membership is still created but the mark is parked in the payload.
	if len(input.Attendance) > 0 || len(input.Visitors) > 0 {
		class, err := o.ClassifyEdit(occurrence.GroupAttendance, editCtx)
		if err != nil {
			return SaveRealizationResult{}, err
		}
		if class == occurrence.EditRequiresApproval {
			if len(deferred) > 0 {
				return SaveRealizationResult{}, ErrConflictingDeferrals
			}
			entries := append([]AttendanceEntry(nil), input.Attendance...)
			for _, v := range input.Visitors {
				m, err := recordVisitor(ctx, c.ID, v, deps, now)
				if err != nil {
					return SaveRealizationResult{}, err
				}
				entries = append(entries, AttendanceEntry{Ref: membership.ByMembership(m.ID), Status: occurrence.MarkPresent})
			}
			payload, _ := json.Marshal(attendanceSetPayload(entries))
			o.DeferEdit(occurrence.GroupAttendance, string(payload), input.Caller.AccountID, now)
			deferred = append(deferred, occurrence.GroupAttendance)
		} else {
			for _, e := range input.Attendance {
				if _, _, err := o.SetMark(e.Ref, e.Status, deps.GenerateID); err != nil {
					return SaveRealizationResult{}, err
				}
			}
			for _, v := range input.Visitors {
				m, err := recordVisitor(ctx, c.ID, v, deps, now)
				if err != nil {
					return SaveRealizationResult{}, err
				}
				if _, _, err := o.SetMark(membership.ByMembership(m.ID), occurrence.MarkPresent, deps.GenerateID); err != nil {
					return SaveRealizationResult{}, err
				}
			}
		}
	}

	o.UpdatedAt = now
	if err := o.Validate(); err != nil {
		return SaveRealizationResult{}, err
	}
	if err := deps.OccurrenceStore.Save(ctx, o); err != nil {
		return SaveRealizationResult{}, err
	}

	slog.Info("realization_event", "event", "occurrence_saved",
		"cell_id", input.CellID, "date", input.Date,
		"contribution_status", string(o.ContributionStatus),
		"marks", len(o.Marks), "deferred", len(deferred))

	if len(deferred) > 0 && deps.Notifications != nil {
		_ = EnqueuePendingEditEmail(ctx, c, o, *deps.Notifications)
	}
	if deps.Promotions != nil {
		_ = EvaluatePromotions(ctx, c, o, *deps.Promotions)
	}

	return SaveRealizationResult{Occurrence: o, DeferredGroups: deferred}, nil
}

// contributionChanged reports whether the supplied value differs from the
// stored one, treating an unset status as always-changed so an explicit zero
// is recorded.
func contributionChanged(o occurrence.Occurrence, value float64) bool {
	if o.ContributionStatus == occurrence.ContributionUnset {
		return true
	}
	return o.ContributionValue != value
}

// attendanceSetPayload converts the snapshot to its parked JSON shape.
func attendanceSetPayload(entries []AttendanceEntry) []attendanceEditPayload {
	out := make([]attendanceEditPayload, len(entries))
	for i, e := range entries {
		out[i] = attendanceEditPayload{
			MembershipID:  e.Ref.MembershipID,
			ParticipantID: e.Ref.ParticipantID,
			Status:        e.Status,
		}
	}
	return out
}

// recordVisitor resolves the membership for an ad-hoc visitor entry and logs
// newly created ones.
func recordVisitor(ctx context.Context, cellID string, v VisitorEntry, deps SaveRealizationDeps, now time.Time) (membership.Membership, error) {
	m, created, err := ensureVisitorMembership(ctx, cellID, v, deps, now)
	if err != nil {
		return membership.Membership{}, err
	}
	if created {
		slog.Info("membership_event", "event", "visitor_added", "cell_id", cellID, "membership_id", m.ID, "name", m.FullName)
	}
	return m, nil
}

// ensureVisitorMembership finds or creates the visitor membership for an
// ad-hoc visitor entry, matching existing visitors by name.
func ensureVisitorMembership(ctx context.Context, cellID string, v VisitorEntry, deps SaveRealizationDeps, now time.Time) (membership.Membership, bool, error) {
	if v.FullName == "" {
		return membership.Membership{}, false, errors.New("visitor full name is required")
	}
	existing, err := deps.MembershipStore.ListByCellID(ctx, cellID)
	if err != nil {
		return membership.Membership{}, false, err
	}
	for _, m := range existing {
		if m.IsVisitor() && m.FullName == v.FullName {
			return m, false, nil
		}
	}

	m := membership.Membership{
		ID:        deps.GenerateID(),
		CellID:    cellID,
		FullName:  v.FullName,
		Phone:     v.Phone,
		Role:      membership.RoleVisitor,
		Status:    membership.StatusActive,
		CreatedAt: now,
	}
	if err := m.Validate(); err != nil {
		return membership.Membership{}, false, err
	}
	if err := deps.MembershipStore.Save(ctx, m); err != nil {
		return membership.Membership{}, false, err
	}
	return m, true, nil
}
