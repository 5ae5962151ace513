package orchestrators

import (
	"context"
	"errors"
	"sort"
	"time"

	"celltrack/internal/domain/cell"
	"celltrack/internal/domain/occurrence"
)

// OccurrenceListStore defines the read access for the month view.
type OccurrenceListStore interface {
	ListByCellAndMonth(ctx context.Context, cellID, referenceMonth string) ([]occurrence.Occurrence, error)
}

// OccurrenceEntry is one row in the month view: an expected date, a persisted
// occurrence, or both. Occurrence is nil for expected dates nothing has been
// saved for yet. EffectiveStatus folds the cutoff into the stored
// contribution status so a filled-but-unconfirmed value past the cutoff
// shows as pending.
type OccurrenceEntry struct {
	Date            time.Time
	Expected        bool
	Occurrence      *occurrence.Occurrence
	EffectiveStatus occurrence.ContributionStatus
}

// ListOccurrencesInput identifies the cell and period.
type ListOccurrencesInput struct {
	CellID string
	Year   int
	Month  time.Month
}

// ListOccurrencesDeps holds dependencies for ExecuteListOccurrences.
type ListOccurrencesDeps struct {
	CellStore       CellLookupStore
	OccurrenceStore OccurrenceListStore
	PDCutoff        time.Time
	Now             func() time.Time
}

// ExecuteListOccurrences merges the cell's generated date set for a month
// with whatever occurrences have been persisted. Persisted rows win on date
// collisions; rows saved on non-generated dates (admin overrides, approved
// date moves) still appear, flagged as unexpected.
// POST: entries are in ascending date order
func ExecuteListOccurrences(ctx context.Context, input ListOccurrencesInput, deps ListOccurrencesDeps) ([]OccurrenceEntry, error) {
	if input.Year < 1 || input.Month < time.January || input.Month > time.December {
		return nil, errors.New("period must be a valid year and month")
	}

	c, err := deps.CellStore.GetByID(ctx, input.CellID)
	if err != nil {
		return nil, ErrCellNotFound
	}

	refMonth := time.Date(input.Year, input.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	persisted, err := deps.OccurrenceStore.ListByCellAndMonth(ctx, input.CellID, refMonth)
	if err != nil {
		return nil, err
	}

	now := deps.Now()
	byDate := make(map[string]OccurrenceEntry)
	for _, d := range c.ExpectedDates(input.Year, input.Month) {
		byDate[d.Format(cell.DateFormat)] = OccurrenceEntry{Date: d, Expected: true}
	}
	for i := range persisted {
		o := &persisted[i]
		key := o.Date.Format(cell.DateFormat)
		entry, ok := byDate[key]
		if !ok {
			entry = OccurrenceEntry{Date: o.Date, Expected: c.IsExpectedDate(o.Date)}
		}
		entry.Occurrence = o
		entry.EffectiveStatus = o.EffectiveContributionStatus(now, deps.PDCutoff)
		byDate[key] = entry
	}

	entries := make([]OccurrenceEntry, 0, len(byDate))
	for _, e := range byDate {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}
