package membership

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"celltrack/internal/adapters/storage"
	domain "celltrack/internal/domain/membership"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new membership store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const membershipColumns = "id, cell_id, participant_id, full_name, phone, role, status, created_at"

// GetByID retrieves a Membership by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Membership, error) {
	query := "SELECT " + membershipColumns + " FROM membership WHERE id = ?"
	row := s.db.QueryRowContext(ctx, query, id)
	entity, err := scanMembership(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Membership{}, fmt.Errorf("membership not found: %w", err)
	}
	return entity, err
}

// Save persists a Membership to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Membership) error {
	query := `INSERT INTO membership (` + membershipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			participant_id=excluded.participant_id, full_name=excluded.full_name,
			phone=excluded.phone, role=excluded.role, status=excluded.status`

	var participantID, fullName, phone any
	if entity.ParticipantID != "" {
		participantID = entity.ParticipantID
	}
	if entity.FullName != "" {
		fullName = entity.FullName
	}
	if entity.Phone != "" {
		phone = entity.Phone
	}

	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.CellID,
		participantID,
		fullName,
		phone,
		entity.Role,
		entity.Status,
		entity.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListByCellID returns non-removed memberships for a cell.
// PRE: cellID is non-empty
// POST: Returns matching entities ordered by creation
func (s *SQLiteStore) ListByCellID(ctx context.Context, cellID string) ([]domain.Membership, error) {
	query := "SELECT " + membershipColumns + " FROM membership WHERE cell_id = ? AND status != ? ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, cellID, domain.StatusRemoved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Membership
	for rows.Next() {
		entity, err := scanMembership(rows.Scan)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// FindActive resolves the non-removed membership for a (cell, participant) pair.
// PRE: cellID and participantID are non-empty
// POST: Returns the entity or sql.ErrNoRows-wrapped error if absent
func (s *SQLiteStore) FindActive(ctx context.Context, cellID, participantID string) (domain.Membership, error) {
	query := "SELECT " + membershipColumns + " FROM membership WHERE cell_id = ? AND participant_id = ? AND status != ?"
	row := s.db.QueryRowContext(ctx, query, cellID, participantID, domain.StatusRemoved)
	entity, err := scanMembership(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Membership{}, fmt.Errorf("membership not found: %w", err)
	}
	return entity, err
}

func scanMembership(scan func(dest ...any) error) (domain.Membership, error) {
	var entity domain.Membership
	var participantID, fullName, phone sql.NullString
	var createdAt string
	err := scan(
		&entity.ID,
		&entity.CellID,
		&participantID,
		&fullName,
		&phone,
		&entity.Role,
		&entity.Status,
		&createdAt,
	)
	if err != nil {
		return domain.Membership{}, err
	}
	entity.ParticipantID = participantID.String
	entity.FullName = fullName.String
	entity.Phone = phone.String
	entity.CreatedAt, err = parseStoredTime(createdAt)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return entity, nil
}

// parseStoredTime handles the timestamp formats SQLite may hand back.
func parseStoredTime(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %q", value)
}
