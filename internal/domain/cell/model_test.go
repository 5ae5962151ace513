package cell

import (
	"strings"
	"testing"
	"time"
)

func validCell() Cell {
	return Cell{
		ID:          "cell-1",
		Name:        "Wednesday Group",
		Weekday:     3,
		Frequency:   FrequencyWeekly,
		LeaderID:    "part-leader",
		MeetingTime: "19:30",
		Status:      StatusActive,
		CreatedAt:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestCell_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Cell)
		wantErr bool
	}{
		{"valid cell", func(c *Cell) {}, false},
		{"empty name", func(c *Cell) { c.Name = "  " }, true},
		{"name too long", func(c *Cell) { c.Name = strings.Repeat("a", MaxNameLength+1) }, true},
		{"weekday below range", func(c *Cell) { c.Weekday = -1 }, true},
		{"weekday above range", func(c *Cell) { c.Weekday = 7 }, true},
		{"sunday is valid", func(c *Cell) { c.Weekday = 0 }, false},
		{"unknown frequency", func(c *Cell) { c.Frequency = "daily" }, true},
		{"biweekly is valid", func(c *Cell) { c.Frequency = FrequencyBiweekly }, false},
		{"monthly is valid", func(c *Cell) { c.Frequency = FrequencyMonthly }, false},
		{"unknown status", func(c *Cell) { c.Status = "archived" }, true},
		{"zero creation date", func(c *Cell) { c.CreatedAt = time.Time{} }, true},
		{"no co-leader is valid", func(c *Cell) { c.CoLeaderID = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCell()
			tt.modify(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCell_IsLedBy(t *testing.T) {
	c := validCell()
	c.CoLeaderID = "part-co"

	tests := []struct {
		name          string
		participantID string
		want          bool
	}{
		{"leader", "part-leader", true},
		{"co-leader", "part-co", true},
		{"member", "part-other", false},
		{"empty id", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsLedBy(tt.participantID); got != tt.want {
				t.Errorf("IsLedBy(%q) = %v, want %v", tt.participantID, got, tt.want)
			}
		})
	}
}

func TestCell_IsLedBy_EmptyCoLeader(t *testing.T) {
	c := validCell()
	if c.IsLedBy("") {
		t.Error("empty participant ID matched the unset co-leader")
	}
}

func TestCell_DeactivateReactivate(t *testing.T) {
	c := validCell()

	if err := c.Deactivate(); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if c.IsActive() {
		t.Error("cell still active after Deactivate")
	}
	if err := c.Deactivate(); err != ErrAlreadyInactive {
		t.Errorf("second Deactivate() error = %v, want ErrAlreadyInactive", err)
	}

	if err := c.Reactivate(); err != nil {
		t.Fatalf("Reactivate() error = %v", err)
	}
	if !c.IsActive() {
		t.Error("cell not active after Reactivate")
	}
	if err := c.Reactivate(); err != ErrAlreadyActive {
		t.Errorf("second Reactivate() error = %v, want ErrAlreadyActive", err)
	}
}

func TestCell_MeetingDateTime(t *testing.T) {
	date := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		meetingTime string
		want        time.Time
	}{
		{"start time applied", "19:30", time.Date(2024, 3, 6, 19, 30, 0, 0, time.UTC)},
		{"unset falls back to midnight", "", date},
		{"invalid falls back to midnight", "late", date},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCell()
			c.MeetingTime = tt.meetingTime
			if got := c.MeetingDateTime(date); !got.Equal(tt.want) {
				t.Errorf("MeetingDateTime() = %v, want %v", got, tt.want)
			}
		})
	}
}
