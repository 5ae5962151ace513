package occurrence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"celltrack/internal/adapters/storage"
	domain "celltrack/internal/domain/occurrence"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new occurrence store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const occurrenceColumns = `id, cell_id, date, reference_month, contribution_value, contribution_status,
	filled_by, confirmed_by, confirmed_at, edit_approval_status,
	pending_edit_group, pending_edit_payload, pending_edit_requested_by, pending_edit_requested_at,
	late_attendance_edit_used, late_date_edit_used, late_contribution_edit_used, leader_date_edit_used,
	created_at, updated_at`

// GetByID retrieves an Occurrence with its marks.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Occurrence, error) {
	query := "SELECT " + occurrenceColumns + " FROM occurrence WHERE id = ?"
	row := s.db.QueryRowContext(ctx, query, id)
	entity, err := scanOccurrence(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Occurrence{}, fmt.Errorf("occurrence not found: %w", err)
	}
	if err != nil {
		return domain.Occurrence{}, err
	}
	entity.Marks, err = s.loadMarks(ctx, entity.ID)
	return entity, err
}

// GetByCellAndDate resolves the occurrence for a (cell, date) pair.
// PRE: cellID is non-empty, date is YYYY-MM-DD
// POST: Returns the entity with marks or an error if not found
func (s *SQLiteStore) GetByCellAndDate(ctx context.Context, cellID, date string) (domain.Occurrence, error) {
	query := "SELECT " + occurrenceColumns + " FROM occurrence WHERE cell_id = ? AND date = ?"
	row := s.db.QueryRowContext(ctx, query, cellID, date)
	entity, err := scanOccurrence(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Occurrence{}, fmt.Errorf("occurrence not found: %w", err)
	}
	if err != nil {
		return domain.Occurrence{}, err
	}
	entity.Marks, err = s.loadMarks(ctx, entity.ID)
	return entity, err
}

// ListByCellAndMonth returns persisted occurrences for a reference month.
// PRE: cellID is non-empty, referenceMonth is YYYY-MM
// POST: Returns entities with marks, ascending by date
func (s *SQLiteStore) ListByCellAndMonth(ctx context.Context, cellID, referenceMonth string) ([]domain.Occurrence, error) {
	query := "SELECT " + occurrenceColumns + " FROM occurrence WHERE cell_id = ? AND reference_month = ? ORDER BY date"

	rows, err := s.db.QueryContext(ctx, query, cellID, referenceMonth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Occurrence
	for rows.Next() {
		entity, err := scanOccurrence(rows.Scan)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entities {
		entities[i].Marks, err = s.loadMarks(ctx, entities[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// Save persists an Occurrence and replaces its mark collection atomically.
// PRE: entity has been validated and has an ID
// POST: occurrence row upserted and marks replaced in one transaction
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Occurrence) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO occurrence (` + occurrenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date=excluded.date, reference_month=excluded.reference_month,
			contribution_value=excluded.contribution_value, contribution_status=excluded.contribution_status,
			filled_by=excluded.filled_by, confirmed_by=excluded.confirmed_by, confirmed_at=excluded.confirmed_at,
			edit_approval_status=excluded.edit_approval_status,
			pending_edit_group=excluded.pending_edit_group, pending_edit_payload=excluded.pending_edit_payload,
			pending_edit_requested_by=excluded.pending_edit_requested_by,
			pending_edit_requested_at=excluded.pending_edit_requested_at,
			late_attendance_edit_used=excluded.late_attendance_edit_used,
			late_date_edit_used=excluded.late_date_edit_used,
			late_contribution_edit_used=excluded.late_contribution_edit_used,
			leader_date_edit_used=excluded.leader_date_edit_used,
			updated_at=excluded.updated_at`

	var confirmedAt, updatedAt any
	if !entity.ConfirmedAt.IsZero() {
		confirmedAt = entity.ConfirmedAt.Format(time.RFC3339Nano)
	}
	if !entity.UpdatedAt.IsZero() {
		updatedAt = entity.UpdatedAt.Format(time.RFC3339Nano)
	}
	var peGroup, pePayload, peBy, peAt any
	if entity.PendingEdit != nil {
		peGroup = string(entity.PendingEdit.Group)
		pePayload = entity.PendingEdit.Payload
		peBy = entity.PendingEdit.RequestedBy
		peAt = entity.PendingEdit.RequestedAt.Format(time.RFC3339Nano)
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.CellID,
		entity.Date.Format("2006-01-02"),
		entity.ReferenceMonth,
		entity.ContributionValue,
		string(entity.ContributionStatus),
		nullIfEmpty(entity.FilledBy),
		nullIfEmpty(entity.ConfirmedBy),
		confirmedAt,
		string(entity.EditApprovalStatus),
		peGroup,
		pePayload,
		peBy,
		peAt,
		boolToInt(entity.LateAttendanceEditUsed),
		boolToInt(entity.LateDateEditUsed),
		boolToInt(entity.LateContributionEditUsed),
		boolToInt(entity.LeaderDateEditUsed),
		entity.CreatedAt.Format(time.RFC3339Nano),
		updatedAt,
	)
	if err != nil {
		return err
	}

	// Replace the whole mark collection so the write stays all-or-nothing.
	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance_mark WHERE occurrence_id = ?", entity.ID); err != nil {
		return err
	}
	for _, m := range entity.Marks {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO attendance_mark (id, occurrence_id, membership_id, participant_id, status) VALUES (?, ?, ?, ?, ?)",
			m.ID, entity.ID, nullIfEmpty(m.MembershipID), nullIfEmpty(m.ParticipantID), string(m.Status),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkHistory returns one person's explicit marks in date order, matched by
// membership row or by global participant when participantID is non-empty.
// PRE: cellID and membershipID are non-empty
// POST: Returns statuses oldest first; dates without a mark are skipped
func (s *SQLiteStore) MarkHistory(ctx context.Context, cellID, membershipID, participantID string) ([]domain.MarkStatus, error) {
	query := `SELECT m.status FROM attendance_mark m
		JOIN occurrence o ON o.id = m.occurrence_id
		WHERE o.cell_id = ? AND (m.membership_id = ? OR (? <> '' AND m.participant_id = ?))
		ORDER BY o.date`

	rows, err := s.db.QueryContext(ctx, query, cellID, membershipID, participantID, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.MarkStatus
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return nil, err
		}
		history = append(history, domain.MarkStatus(status))
	}
	return history, rows.Err()
}

// ListPendingEdits returns occurrences awaiting edit approval.
// PRE: limit > 0
// POST: Returns entities ordered by the pending request time
func (s *SQLiteStore) ListPendingEdits(ctx context.Context, limit int) ([]domain.Occurrence, error) {
	query := "SELECT " + occurrenceColumns + " FROM occurrence WHERE edit_approval_status = ? ORDER BY pending_edit_requested_at LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, string(domain.EditPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Occurrence
	for rows.Next() {
		entity, err := scanOccurrence(rows.Scan)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (s *SQLiteStore) loadMarks(ctx context.Context, occurrenceID string) ([]domain.Mark, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, occurrence_id, membership_id, participant_id, status FROM attendance_mark WHERE occurrence_id = ? ORDER BY id",
		occurrenceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []domain.Mark
	for rows.Next() {
		var m domain.Mark
		var membershipID, participantID sql.NullString
		var status string
		if err := rows.Scan(&m.ID, &m.OccurrenceID, &membershipID, &participantID, &status); err != nil {
			return nil, err
		}
		m.MembershipID = membershipID.String
		m.ParticipantID = participantID.String
		m.Status = domain.MarkStatus(status)
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

func scanOccurrence(scan func(dest ...any) error) (domain.Occurrence, error) {
	var entity domain.Occurrence
	var dateStr, createdAt string
	var contributionStatus, editStatus string
	var filledBy, confirmedBy, confirmedAt, updatedAt sql.NullString
	var peGroup, pePayload, peBy, peAt sql.NullString
	var lateAtt, lateDate, lateContrib, leaderDate int

	err := scan(
		&entity.ID,
		&entity.CellID,
		&dateStr,
		&entity.ReferenceMonth,
		&entity.ContributionValue,
		&contributionStatus,
		&filledBy,
		&confirmedBy,
		&confirmedAt,
		&editStatus,
		&peGroup,
		&pePayload,
		&peBy,
		&peAt,
		&lateAtt,
		&lateDate,
		&lateContrib,
		&leaderDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Occurrence{}, err
	}

	entity.Date, err = time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("failed to parse date: %w", err)
	}
	entity.ContributionStatus = domain.ContributionStatus(contributionStatus)
	entity.EditApprovalStatus = domain.EditApprovalStatus(editStatus)
	entity.FilledBy = filledBy.String
	entity.ConfirmedBy = confirmedBy.String
	if confirmedAt.Valid {
		if entity.ConfirmedAt, err = parseStoredTime(confirmedAt.String); err != nil {
			return domain.Occurrence{}, fmt.Errorf("failed to parse confirmed_at: %w", err)
		}
	}
	if peGroup.Valid {
		pe := domain.PendingEdit{
			Group:       domain.FieldGroup(peGroup.String),
			Payload:     pePayload.String,
			RequestedBy: peBy.String,
		}
		if peAt.Valid {
			if pe.RequestedAt, err = parseStoredTime(peAt.String); err != nil {
				return domain.Occurrence{}, fmt.Errorf("failed to parse pending_edit_requested_at: %w", err)
			}
		}
		entity.PendingEdit = &pe
	}
	entity.LateAttendanceEditUsed = lateAtt != 0
	entity.LateDateEditUsed = lateDate != 0
	entity.LateContributionEditUsed = lateContrib != 0
	entity.LeaderDateEditUsed = leaderDate != 0
	if entity.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return domain.Occurrence{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if updatedAt.Valid {
		if entity.UpdatedAt, err = parseStoredTime(updatedAt.String); err != nil {
			return domain.Occurrence{}, fmt.Errorf("failed to parse updated_at: %w", err)
		}
	}
	return entity, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
