package occurrence

import (
	"errors"
	"time"

	"celltrack/internal/domain/membership"
)

// MarkStatus is the three-state attendance status. Unmarked is a real state,
// not the absence of a record: a removed mark reverts to unmarked.
type MarkStatus string

// Attendance mark statuses. The stored codes follow the ledger convention:
// V for present, X for absent.
const (
	MarkUnmarked MarkStatus = ""
	MarkPresent  MarkStatus = "V"
	MarkAbsent   MarkStatus = "X"
)

// ContributionStatus tracks the approval lifecycle of the monetary value
// attached to an occurrence. Pending is derived, never stored: a filled value
// whose cutoff has passed without confirmation reads as pending.
type ContributionStatus string

// Contribution statuses.
const (
	ContributionUnset     ContributionStatus = "unset"
	ContributionFilled    ContributionStatus = "filled"
	ContributionPending   ContributionStatus = "pending"
	ContributionConfirmed ContributionStatus = "confirmed"
	ContributionRejected  ContributionStatus = "rejected"
)

// EditApprovalStatus tracks whether a late edit is waiting on approval.
type EditApprovalStatus string

// Edit approval statuses.
const (
	EditNone     EditApprovalStatus = "none"
	EditPending  EditApprovalStatus = "pending"
	EditApproved EditApprovalStatus = "approved"
)

// Domain errors
var (
	ErrInvalidMarkStatus = errors.New("mark status must be present, absent, or unmarked")
	ErrNoPendingEdit     = errors.New("occurrence has no pending edit")
)

// Mark is one participant's attendance record on one occurrence. It carries
// both addressing modes; at least one of MembershipID/ParticipantID is set.
type Mark struct {
	ID            string
	OccurrenceID  string
	MembershipID  string
	ParticipantID string
	Status        MarkStatus
}

// Matches returns true if the mark is addressed by the given ref: the
// membership reference matches or the participant reference matches.
// INVARIANT: empty identifiers never match
func (m Mark) Matches(ref membership.Ref) bool {
	if ref.MembershipID != "" && ref.MembershipID == m.MembershipID {
		return true
	}
	if ref.ParticipantID != "" && ref.ParticipantID == m.ParticipantID {
		return true
	}
	return false
}

// NextStatus advances the toggle cycle: unmarked -> present -> absent -> unmarked.
// POST: three consecutive applications return the original status
func NextStatus(s MarkStatus) MarkStatus {
	switch s {
	case MarkUnmarked:
		return MarkPresent
	case MarkPresent:
		return MarkAbsent
	default:
		return MarkUnmarked
	}
}

// PendingEdit holds a late change that was deferred for approval instead of
// being applied. Payload is the JSON-encoded change for its field group.
type PendingEdit struct {
	Group       FieldGroup
	Payload     string
	RequestedBy string
	RequestedAt time.Time
}

// Occurrence is one concrete meeting instance ("realization") of a cell on a
// specific date. Created lazily on the first write for its date, amended but
// never deleted.
type Occurrence struct {
	ID             string
	CellID         string
	Date           time.Time // calendar date of the meeting, midnight UTC
	ReferenceMonth string    // YYYY-MM month the date was generated for

	ContributionValue  float64
	ContributionStatus ContributionStatus
	FilledBy           string
	ConfirmedBy        string
	ConfirmedAt        time.Time

	EditApprovalStatus EditApprovalStatus
	PendingEdit        *PendingEdit

	// One free late edit per field group; set once consumed. The direct
	// leader holds a separate extra allowance for date changes.
	LateAttendanceEditUsed   bool
	LateDateEditUsed         bool
	LateContributionEditUsed bool
	LeaderDateEditUsed       bool

	Marks []Mark

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks if the Occurrence has valid data.
// PRE: Occurrence struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (o *Occurrence) Validate() error {
	if o.CellID == "" {
		return errors.New("occurrence must belong to a cell")
	}
	if o.Date.IsZero() {
		return errors.New("occurrence date must be set")
	}
	if o.ContributionValue < 0 {
		return ErrNegativeValue
	}
	for _, m := range o.Marks {
		if m.Status != MarkPresent && m.Status != MarkAbsent {
			return ErrInvalidMarkStatus
		}
		if m.MembershipID == "" && m.ParticipantID == "" {
			return errors.New("attendance mark needs a membership or participant reference")
		}
	}
	return nil
}

// SetMark upserts or removes the attendance mark addressed by ref. Setting
// unmarked removes the mark; present/absent replaces the one matching mark or
// appends a new one. The replacement is done on the in-memory collection so
// the persisted write stays all-or-nothing.
// PRE: ref is valid, genID produces unique IDs
// POST: at most one mark matches ref; returns the resulting mark (zero Mark
// when removed) and whether the collection changed
func (o *Occurrence) SetMark(ref membership.Ref, status MarkStatus, genID func() string) (Mark, bool, error) {
	if err := ref.Validate(); err != nil {
		return Mark{}, false, err
	}
	if status != MarkUnmarked && status != MarkPresent && status != MarkAbsent {
		return Mark{}, false, ErrInvalidMarkStatus
	}

	idx := -1
	for i, m := range o.Marks {
		if m.Matches(ref) {
			idx = i
			break
		}
	}

	if status == MarkUnmarked {
		if idx < 0 {
			return Mark{}, false, nil
		}
		o.Marks = append(o.Marks[:idx], o.Marks[idx+1:]...)
		return Mark{}, true, nil
	}

	if idx >= 0 {
		if o.Marks[idx].Status == status {
			return o.Marks[idx], false, nil
		}
		o.Marks[idx].Status = status
		return o.Marks[idx], true, nil
	}

	mark := Mark{
		ID:            genID(),
		OccurrenceID:  o.ID,
		MembershipID:  ref.MembershipID,
		ParticipantID: ref.ParticipantID,
		Status:        status,
	}
	o.Marks = append(o.Marks, mark)
	return mark, true, nil
}

// MarkFor returns the current status for the participant addressed by ref.
// POST: returns MarkUnmarked when no mark matches
func (o *Occurrence) MarkFor(ref membership.Ref) MarkStatus {
	for _, m := range o.Marks {
		if m.Matches(ref) {
			return m.Status
		}
	}
	return MarkUnmarked
}

// SnapshotMarks returns a deep copy of the mark collection, used by the
// optimistic mutation coordinator for rollback-by-snapshot.
func (o *Occurrence) SnapshotMarks() []Mark {
	if o.Marks == nil {
		return nil
	}
	snap := make([]Mark, len(o.Marks))
	copy(snap, o.Marks)
	return snap
}
