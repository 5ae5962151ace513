package outbox

import (
	"context"

	domain "celltrack/internal/domain/outbox"
)

// Store persists notification outbox entries. Entries survive process
// restarts so a promotion or pending-edit email is never lost to a crash
// between the state change and the send.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	// ListPending returns entries awaiting delivery (pending or retrying),
	// oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
	// ListFailed returns permanently failed entries, most recent attempt
	// first, for the admin review surface.
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)
	// ListByActionType filters entries by action type; an empty status
	// matches any.
	ListByActionType(ctx context.Context, actionType string, status string, limit int) ([]domain.Entry, error)
	// Delete purges an entry. Callers only delete terminal entries.
	Delete(ctx context.Context, id string) error
}
