package cell

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Recurrence frequency constants
const (
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

// Cell status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// ValidFrequencies contains all valid frequency values.
var ValidFrequencies = []string{FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly}

// Domain errors
var (
	ErrInvalidWeekday   = errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidFrequency = errors.New("frequency must be one of: weekly, biweekly, monthly")
	ErrAlreadyInactive  = errors.New("cell is already inactive")
	ErrAlreadyActive    = errors.New("cell is already active")
)

// Cell represents a recurring small-group meeting. Its weekday, frequency and
// creation date anchor the expected-date generator; cells are deactivated,
// never deleted.
type Cell struct {
	ID          string
	Name        string
	Weekday     int // 0 = Sunday .. 6 = Saturday
	Frequency   string
	LeaderID    string // participant ID of the leader
	CoLeaderID  string // participant ID of the co-leader (optional)
	MeetingTime string // HH:MM local start time of the meeting
	Status      string
	CreatedAt   time.Time
}

// Validate checks if the Cell has valid data.
// PRE: Cell struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Weekday in 0..6, Frequency is a known value
func (c *Cell) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("cell name cannot be empty")
	}
	if len(c.Name) > MaxNameLength {
		return errors.New("cell name cannot exceed 100 characters")
	}
	if c.Weekday < 0 || c.Weekday > 6 {
		return ErrInvalidWeekday
	}
	if !isValidFrequency(c.Frequency) {
		return ErrInvalidFrequency
	}
	if c.Status != StatusActive && c.Status != StatusInactive {
		return errors.New("status must be 'active' or 'inactive'")
	}
	if c.CreatedAt.IsZero() {
		return errors.New("creation date must be set")
	}
	return nil
}

// IsActive returns true if the cell is currently active.
// INVARIANT: Status field is not mutated
func (c *Cell) IsActive() bool {
	return c.Status == StatusActive
}

// IsLedBy returns true if the given participant is the leader or co-leader.
// INVARIANT: no fields are mutated
func (c *Cell) IsLedBy(participantID string) bool {
	if participantID == "" {
		return false
	}
	return c.LeaderID == participantID || c.CoLeaderID == participantID
}

// Deactivate sets the cell status to inactive.
// PRE: Cell is active
// POST: Status is inactive
func (c *Cell) Deactivate() error {
	if c.Status == StatusInactive {
		return ErrAlreadyInactive
	}
	c.Status = StatusInactive
	return nil
}

// Reactivate sets the cell status back to active.
// PRE: Cell is inactive
// POST: Status is active
func (c *Cell) Reactivate() error {
	if c.Status == StatusActive {
		return ErrAlreadyActive
	}
	c.Status = StatusActive
	return nil
}

// MeetingDateTime combines a meeting date with the cell's start time.
// PRE: date is the meeting day
// POST: Returns the date at MeetingTime, or at midnight if MeetingTime is unset/invalid
func (c *Cell) MeetingDateTime(date time.Time) time.Time {
	if c.MeetingTime == "" {
		return date
	}
	t, err := time.Parse("15:04", c.MeetingTime)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

func isValidFrequency(f string) bool {
	for _, v := range ValidFrequencies {
		if v == f {
			return true
		}
	}
	return false
}
