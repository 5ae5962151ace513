package occurrence

import (
	"context"

	domain "celltrack/internal/domain/occurrence"
)

// Store persists Occurrence state. Saving replaces the occurrence row and its
// whole attendance mark collection in one transaction, so a caller never
// observes the old mark gone but the new one absent.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Occurrence, error)
	// GetByCellAndDate resolves the occurrence for a (cell, date) pair;
	// date is YYYY-MM-DD.
	GetByCellAndDate(ctx context.Context, cellID, date string) (domain.Occurrence, error)
	// ListByCellAndMonth returns the persisted occurrences for a reference
	// month (YYYY-MM), marks included, ascending by date.
	ListByCellAndMonth(ctx context.Context, cellID, referenceMonth string) ([]domain.Occurrence, error)
	Save(ctx context.Context, value domain.Occurrence) error
	// MarkHistory returns one person's explicit marks across the cell's
	// occurrences in date order, oldest first, matched in either addressing
	// mode: by membership row or, when participantID is non-empty, by
	// global participant. Occurrences without a mark for the person are
	// skipped, not reported as absences.
	MarkHistory(ctx context.Context, cellID, membershipID, participantID string) ([]domain.MarkStatus, error)
	// ListPendingEdits returns occurrences whose edit approval status is
	// pending, for the approve-edits review surface.
	ListPendingEdits(ctx context.Context, limit int) ([]domain.Occurrence, error)
}
