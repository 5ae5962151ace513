package account

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"celltrack/internal/adapters/storage"
	domain "celltrack/internal/domain/account"
	"celltrack/internal/domain/identity"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const accountColumns = "id, email, password_hash, participant_id, capabilities, status, created_at, failed_logins, locked_until"

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE email = ?", email)
	entity, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	caps := make([]string, len(entity.Capabilities))
	for i, c := range entity.Capabilities {
		caps[i] = string(c)
	}
	var participantID, lockedUntil any
	if entity.ParticipantID != "" {
		participantID = entity.ParticipantID
	}
	if !entity.LockedUntil.IsZero() {
		lockedUntil = entity.LockedUntil.Format(time.RFC3339Nano)
	}

	query := `INSERT INTO account (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email=excluded.email, password_hash=excluded.password_hash,
			participant_id=excluded.participant_id, capabilities=excluded.capabilities,
			status=excluded.status, failed_logins=excluded.failed_logins,
			locked_until=excluded.locked_until`

	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.Email,
		entity.PasswordHash,
		participantID,
		strings.Join(caps, ","),
		entity.Status,
		entity.CreatedAt.Format(time.RFC3339Nano),
		entity.FailedLogins,
		lockedUntil,
	)
	return err
}

// Count returns the total number of accounts.
// POST: Returns count, used to decide whether to seed a default admin
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var participantID, lockedUntil sql.NullString
	var caps, createdAt string
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&participantID,
		&caps,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.ParticipantID = participantID.String
	for _, c := range strings.Split(caps, ",") {
		if c = strings.TrimSpace(c); c != "" {
			entity.Capabilities = append(entity.Capabilities, identity.Capability(c))
		}
	}
	if entity.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		if entity.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return domain.Account{}, fmt.Errorf("failed to parse created_at: %w", err)
		}
	}
	if lockedUntil.Valid && lockedUntil.String != "" {
		if entity.LockedUntil, err = time.Parse(time.RFC3339Nano, lockedUntil.String); err != nil {
			return domain.Account{}, fmt.Errorf("failed to parse locked_until: %w", err)
		}
	}
	return entity, nil
}
