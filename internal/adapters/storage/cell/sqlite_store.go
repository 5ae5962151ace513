package cell

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"celltrack/internal/adapters/storage"
	domain "celltrack/internal/domain/cell"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new cell store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const cellColumns = "id, name, weekday, frequency, leader_id, co_leader_id, meeting_time, status, created_at"

// GetByID retrieves a Cell by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Cell, error) {
	query := "SELECT " + cellColumns + " FROM cell WHERE id = ?"
	row := s.db.QueryRowContext(ctx, query, id)
	entity, err := scanCell(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Cell{}, fmt.Errorf("cell not found: %w", err)
	}
	return entity, err
}

// Save persists a Cell to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Cell) error {
	query := `INSERT INTO cell (` + cellColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, weekday=excluded.weekday, frequency=excluded.frequency,
			leader_id=excluded.leader_id, co_leader_id=excluded.co_leader_id,
			meeting_time=excluded.meeting_time, status=excluded.status`

	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.Name,
		entity.Weekday,
		entity.Frequency,
		nullIfEmpty(entity.LeaderID),
		nullIfEmpty(entity.CoLeaderID),
		nullIfEmpty(entity.MeetingTime),
		entity.Status,
		entity.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// List retrieves cells matching the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities ordered by name
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Cell, error) {
	query := "SELECT " + cellColumns + " FROM cell"
	var args []any
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Cell
	for rows.Next() {
		entity, err := scanCell(rows.Scan)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func scanCell(scan func(dest ...any) error) (domain.Cell, error) {
	var entity domain.Cell
	var leaderID, coLeaderID, meetingTime sql.NullString
	var createdAt string
	err := scan(
		&entity.ID,
		&entity.Name,
		&entity.Weekday,
		&entity.Frequency,
		&leaderID,
		&coLeaderID,
		&meetingTime,
		&entity.Status,
		&createdAt,
	)
	if err != nil {
		return domain.Cell{}, err
	}
	entity.LeaderID = leaderID.String
	entity.CoLeaderID = coLeaderID.String
	entity.MeetingTime = meetingTime.String
	entity.CreatedAt, err = parseStoredTime(createdAt)
	if err != nil {
		return domain.Cell{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return entity, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// parseStoredTime handles the timestamp formats SQLite may hand back.
func parseStoredTime(value string) (time.Time, error) {
	if idx := strings.Index(value, " m="); idx != -1 {
		value = value[:idx]
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999 -0700 MST",
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
