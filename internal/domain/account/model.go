package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"celltrack/internal/domain/identity"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
)

// Account status constants
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Domain errors
var (
	ErrInvalidEmail      = errors.New("email must contain '@'")
	ErrEmptyEmail        = errors.New("email cannot be empty")
	ErrEmptyPassword     = errors.New("password cannot be empty")
	ErrPasswordTooShort  = errors.New("password must be at least 12 characters")
	ErrWrongPassword     = errors.New("incorrect password")
	ErrUnknownCapability = errors.New("unknown capability")
)

// Account is the engine's stand-in for the external authentication
// collaborator: it carries the resolved identity and granted capabilities
// that every operation implicitly receives.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	ParticipantID string // global person this account acts as
	Capabilities  []identity.Capability
	Status        string
	CreatedAt     time.Time
	FailedLogins  int
	LockedUntil   time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return errors.New("email cannot exceed 254 characters")
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	for _, c := range a.Capabilities {
		if !isKnownCapability(c) {
			return ErrUnknownCapability
		}
	}
	if a.Status != StatusActive && a.Status != StatusDisabled {
		return errors.New("status must be 'active' or 'disabled'")
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt with cost 12.
// PRE: plaintext is non-empty and >= 12 characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < 12 {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsDisabled returns true if the account has been disabled.
// INVARIANT: Account fields are not mutated
func (a *Account) IsDisabled() bool {
	return a.Status == StatusDisabled
}

// IsLocked returns true if the account is currently locked out.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked() bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return time.Now().Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account after 5 failures.
// PRE: Account exists
// POST: FailedLogins incremented; LockedUntil set if >= 5 failures
func (a *Account) RecordFailedLogin() {
	a.FailedLogins++
	if a.FailedLogins >= 5 {
		a.LockedUntil = time.Now().Add(15 * time.Minute)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// PRE: Account exists
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// Caller builds the resolved caller identity handed to every operation.
// INVARIANT: Account fields are not mutated
func (a *Account) Caller() identity.Caller {
	return identity.Caller{
		AccountID:     a.ID,
		ParticipantID: a.ParticipantID,
		Capabilities:  append([]identity.Capability(nil), a.Capabilities...),
	}
}

func isKnownCapability(c identity.Capability) bool {
	for _, v := range identity.ValidCapabilities {
		if v == c {
			return true
		}
	}
	return false
}
