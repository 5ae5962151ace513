package cell

import (
	"context"

	domain "celltrack/internal/domain/cell"
)

// Store persists Cell state. Cells are deactivated, never deleted.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Cell, error)
	Save(ctx context.Context, value domain.Cell) error
	List(ctx context.Context, filter ListFilter) ([]domain.Cell, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Status string // empty means all
	Limit  int
	Offset int
}
