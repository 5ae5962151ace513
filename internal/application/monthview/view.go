package monthview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"celltrack/internal/domain/cell"
	"celltrack/internal/domain/membership"
	"celltrack/internal/domain/occurrence"
)

// CommitFunc performs the backing-store write for a toggle and returns the
// occurrence state the store settled on. It is the only suspension point of
// the toggle flow.
type CommitFunc func(ctx context.Context) (occurrence.Occurrence, error)

// inflightKey deduplicates toggles per (participant identity, occurrence date).
type inflightKey struct {
	participant string
	date        string
}

// View owns the in-memory occurrences for the month currently being worked
// on, the only shared mutable state of the engine. All mutation goes through
// Toggle or Replace; no other component touches the map directly.
//
// Toggle applies a tentative local mutation before the store call resolves
// and rolls back to the prior snapshot on failure. A second toggle for the
// same (participant, date) while one is in flight is silently ignored, so a
// double-click never issues two overlapping writes whose responses could land
// out of order.
type View struct {
	mu         sync.Mutex
	cellID     string
	period     string // YYYY-MM
	generation uint64
	occs       map[string]*occurrence.Occurrence // keyed by date YYYY-MM-DD
	inflight   map[inflightKey]struct{}

	// OnBackgroundError receives failures from writes that complete after
	// the view has moved to another cell or period. Optional.
	OnBackgroundError func(error)

	// GenerateID mints mark IDs for tentative local mutations. Defaults to
	// uuid.NewString.
	GenerateID func() string
}

// New creates a view for one cell and period, seeded with the occurrences
// already persisted for that period.
func New(cellID, period string, occs []occurrence.Occurrence) *View {
	v := &View{
		inflight:   make(map[inflightKey]struct{}),
		GenerateID: uuid.NewString,
	}
	v.Reset(cellID, period, occs)
	return v
}

// Reset points the view at another cell/period. In-flight writes are not
// cancelled; when they complete against a reset view their failures surface
// through OnBackgroundError instead of corrupting the new state.
// POST: the view holds copies of occs; prior state is discarded
func (v *View) Reset(cellID, period string, occs []occurrence.Occurrence) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cellID = cellID
	v.period = period
	v.generation++
	v.occs = make(map[string]*occurrence.Occurrence, len(occs))
	for _, o := range occs {
		c := o
		c.Marks = o.SnapshotMarks()
		v.occs[c.Date.Format(cell.DateFormat)] = &c
	}
}

// Occurrence returns a copy of the occurrence for the given date.
// POST: returns false if the date has no occurrence yet
func (v *View) Occurrence(date string) (occurrence.Occurrence, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	o, ok := v.occs[date]
	if !ok {
		return occurrence.Occurrence{}, false
	}
	c := *o
	c.Marks = o.SnapshotMarks()
	return c, true
}

// Replace installs the authoritative occurrence state after a save
// operation.
// PRE: occ belongs to the viewed cell and period
func (v *View) Replace(occ occurrence.Occurrence) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := occ
	c.Marks = occ.SnapshotMarks()
	v.occs[c.Date.Format(cell.DateFormat)] = &c
}

// Toggle applies next for the participant addressed by ref on the given date:
// tentatively in the local view first, then through commit. Returns false if
// a toggle for the same (participant, date) is already in flight; the
// request is dropped, not queued. On commit failure the occurrence's mark
// collection is restored wholesale from the pre-toggle snapshot and the error
// is returned for the caller to surface.
// PRE: ref is valid; date is YYYY-MM-DD within the viewed period
// POST: on success the view holds the store's state; on failure the exact
// prior snapshot
func (v *View) Toggle(ctx context.Context, date string, ref membership.Ref, next occurrence.MarkStatus, commit CommitFunc) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	key := inflightKey{participant: ref.Key(), date: date}

	v.mu.Lock()
	if _, busy := v.inflight[key]; busy {
		v.mu.Unlock()
		slog.Debug("toggle_deduplicated", "participant", ref.Key(), "date", date)
		return false, nil
	}

	o, ok := v.occs[date]
	if !ok {
		// First write for this date: the occurrence is created lazily.
		day, err := time.ParseInLocation(cell.DateFormat, date, time.UTC)
		if err != nil {
			v.mu.Unlock()
			return false, err
		}
		o = &occurrence.Occurrence{
			CellID:             v.cellID,
			Date:               day,
			ReferenceMonth:     v.period,
			ContributionStatus: occurrence.ContributionUnset,
			EditApprovalStatus: occurrence.EditNone,
		}
		v.occs[date] = o
	}

	snapshot := o.SnapshotMarks()
	if _, _, err := o.SetMark(ref, next, v.GenerateID); err != nil {
		v.mu.Unlock()
		return false, err
	}
	v.inflight[key] = struct{}{}
	gen := v.generation
	v.mu.Unlock()

	settled, err := commit(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.inflight, key)

	if v.generation != gen {
		// The view moved on while the write was in flight. The write itself
		// stands; only a failure is reported, out of band.
		if err != nil && v.OnBackgroundError != nil {
			v.OnBackgroundError(err)
		}
		return err == nil, nil
	}

	if err != nil {
		o.Marks = snapshot
		return false, err
	}

	c := settled
	c.Marks = settled.SnapshotMarks()
	v.occs[date] = &c
	return true, nil
}
