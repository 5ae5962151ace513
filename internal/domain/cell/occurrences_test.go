package cell

import (
	"testing"
	"time"
)

func mustDates(t *testing.T, dates []time.Time, want ...string) {
	t.Helper()
	if len(dates) != len(want) {
		t.Fatalf("got %d dates %v, want %d", len(dates), dates, len(want))
	}
	for i, d := range dates {
		if got := d.Format(DateFormat); got != want[i] {
			t.Errorf("date[%d] = %s, want %s", i, got, want[i])
		}
	}
}

func TestExpectedDates_Weekly(t *testing.T) {
	// Wednesday cell created 2024-01-03.
	created := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	got := ExpectedDates(3, FrequencyWeekly, created, 2024, time.March)
	mustDates(t, got, "2024-03-06", "2024-03-13", "2024-03-20", "2024-03-27")
}

func TestExpectedDates_CreationDayFloor(t *testing.T) {
	// Created mid-month on a Wednesday: the creation day itself is expected,
	// earlier Wednesdays in the month are not.
	created := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)

	got := ExpectedDates(3, FrequencyWeekly, created, 2024, time.January)
	mustDates(t, got, "2024-01-17", "2024-01-24", "2024-01-31")
}

func TestExpectedDates_BeforeCreation(t *testing.T) {
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	got := ExpectedDates(3, FrequencyWeekly, created, 2024, time.March)
	if len(got) != 0 {
		t.Errorf("months before creation should be empty, got %v", got)
	}
}

func TestExpectedDates_Biweekly(t *testing.T) {
	// Wednesday biweekly cell created 2024-01-03: on-parity Wednesdays are
	// 01-03, 01-17, 01-31, 02-14, 02-28, 03-13, 03-27.
	created := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	got := ExpectedDates(3, FrequencyBiweekly, created, 2024, time.January)
	mustDates(t, got, "2024-01-03", "2024-01-17", "2024-01-31")

	got = ExpectedDates(3, FrequencyBiweekly, created, 2024, time.March)
	mustDates(t, got, "2024-03-13", "2024-03-27")

	// Consecutive dates are always exactly two weeks apart across the month
	// boundary as well.
	feb := ExpectedDates(3, FrequencyBiweekly, created, 2024, time.February)
	mustDates(t, feb, "2024-02-14", "2024-02-28")
}

func TestExpectedDates_Monthly(t *testing.T) {
	created := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	// First Wednesday only, even when the month holds five of them.
	got := ExpectedDates(3, FrequencyMonthly, created, 2024, time.May)
	mustDates(t, got, "2024-05-01")

	// When the first matching weekday precedes creation the month is empty.
	got = ExpectedDates(3, FrequencyMonthly, created, 2024, time.January)
	mustDates(t, got, "2024-01-03")
}

func TestExpectedDates_MidnightUTC(t *testing.T) {
	// A creation timestamp late in the day must not push the anchor past
	// midnight.
	created := time.Date(2024, 1, 3, 23, 45, 0, 0, time.UTC)

	got := ExpectedDates(3, FrequencyWeekly, created, 2024, time.January)
	mustDates(t, got, "2024-01-03", "2024-01-10", "2024-01-17", "2024-01-24", "2024-01-31")
	for _, d := range got {
		if d.Hour() != 0 || d.Location() != time.UTC {
			t.Errorf("date %v is not midnight UTC", d)
		}
	}
}

func TestCell_IsExpectedDate(t *testing.T) {
	c := Cell{
		Weekday:   3,
		Frequency: FrequencyWeekly,
		CreatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"expected wednesday", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), true},
		{"thursday", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), false},
		{"wednesday before creation", time.Date(2023, 12, 27, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsExpectedDate(tt.date); got != tt.want {
				t.Errorf("IsExpectedDate(%s) = %v, want %v", tt.date.Format(DateFormat), got, tt.want)
			}
		})
	}
}
