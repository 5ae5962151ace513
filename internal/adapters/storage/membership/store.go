package membership

import (
	"context"

	domain "celltrack/internal/domain/membership"
)

// Store persists Membership state. Removal is a soft status change so the
// (cell, participant) uniqueness invariant considers only non-removed rows.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Membership, error)
	Save(ctx context.Context, value domain.Membership) error
	// ListByCellID returns non-removed memberships for a cell, visitors included.
	ListByCellID(ctx context.Context, cellID string) ([]domain.Membership, error)
	// FindActive resolves the non-removed membership for a (cell, participant)
	// pair, if any.
	FindActive(ctx context.Context, cellID, participantID string) (domain.Membership, error)
}
