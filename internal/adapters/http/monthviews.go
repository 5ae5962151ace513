package web

import (
	"context"
	"log/slog"
	"sync"

	occurrenceStore "celltrack/internal/adapters/storage/occurrence"
	"celltrack/internal/application/monthview"
	"celltrack/internal/domain/occurrence"
)

// monthViews holds one optimistic view per cell, pointed at the month
// currently being worked on. Toggles run through the view so a second toggle
// for the same participant and date is dropped while one is in flight, and a
// failed store write rolls the tentative mark back.
type monthViews struct {
	mu    sync.Mutex
	cells map[string]*cellView
}

type cellView struct {
	view   *monthview.View
	period string // YYYY-MM
}

func newMonthViews() *monthViews {
	return &monthViews{cells: make(map[string]*cellView)}
}

// forPeriod returns the view for one cell and period, seeding it from the
// store when the cell is new and resetting it when the period changed.
func (mv *monthViews) forPeriod(ctx context.Context, store occurrenceStore.Store, cellID, period string) (*monthview.View, error) {
	mv.mu.Lock()
	defer mv.mu.Unlock()

	e, ok := mv.cells[cellID]
	if ok && e.period == period {
		return e.view, nil
	}

	occs, err := store.ListByCellAndMonth(ctx, cellID, period)
	if err != nil {
		return nil, err
	}
	if !ok {
		v := monthview.New(cellID, period, occs)
		v.GenerateID = generateID
		v.OnBackgroundError = func(err error) {
			slog.Error("background_toggle_failed", "cell_id", cellID, "error", err.Error())
		}
		mv.cells[cellID] = &cellView{view: v, period: period}
		return v, nil
	}
	e.view.Reset(cellID, period, occs)
	e.period = period
	return e.view, nil
}

// replace installs the authoritative occurrence state into the cell's view
// after a save, when a view is open on the matching period.
func (mv *monthViews) replace(cellID string, occ occurrence.Occurrence) {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	if e, ok := mv.cells[cellID]; ok && e.period == occ.ReferenceMonth {
		e.view.Replace(occ)
	}
}

// invalidate drops the cell's view so the next toggle re-seeds from the
// store. Called after writes that bypass the view, like a date move.
func (mv *monthViews) invalidate(cellID string) {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	delete(mv.cells, cellID)
}
