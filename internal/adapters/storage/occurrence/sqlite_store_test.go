package occurrence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"celltrack/internal/adapters/storage"
	domain "celltrack/internal/domain/occurrence"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	// The occurrence table references cell, and the schema enforces it.
	_, err = db.Exec(
		"INSERT INTO cell (id, name, weekday, frequency, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		"cell-1", "Wednesday Group", 3, "weekly", "active", "2024-01-03T00:00:00Z",
	)
	if err != nil {
		t.Fatalf("failed to seed cell: %v", err)
	}
	return NewSQLiteStore(db)
}

func storedOccurrence() domain.Occurrence {
	return domain.Occurrence{
		ID:                 "occ-1",
		CellID:             "cell-1",
		Date:               time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		ReferenceMonth:     "2024-03",
		ContributionValue:  150,
		ContributionStatus: domain.ContributionFilled,
		FilledBy:           "acct-1",
		EditApprovalStatus: domain.EditNone,
		Marks: []domain.Mark{
			{ID: "m1", OccurrenceID: "occ-1", MembershipID: "mem-1", Status: domain.MarkPresent},
			{ID: "m2", OccurrenceID: "occ-1", ParticipantID: "part-2", Status: domain.MarkAbsent},
		},
		CreatedAt: time.Date(2024, 3, 6, 21, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, storedOccurrence()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.GetByCellAndDate(ctx, "cell-1", "2024-03-06")
	if err != nil {
		t.Fatalf("GetByCellAndDate() error = %v", err)
	}
	if got.ID != "occ-1" || got.ReferenceMonth != "2024-03" {
		t.Errorf("got id=%q month=%q", got.ID, got.ReferenceMonth)
	}
	if got.ContributionValue != 150 || got.ContributionStatus != domain.ContributionFilled || got.FilledBy != "acct-1" {
		t.Errorf("contribution round trip: %v/%q/%q", got.ContributionValue, got.ContributionStatus, got.FilledBy)
	}
	if len(got.Marks) != 2 {
		t.Fatalf("marks = %d, want 2", len(got.Marks))
	}
	// One mark per addressing mode; empty identifiers come back empty.
	if got.Marks[0].MembershipID != "mem-1" || got.Marks[0].ParticipantID != "" {
		t.Errorf("mark[0] = %+v", got.Marks[0])
	}
	if got.Marks[1].ParticipantID != "part-2" || got.Marks[1].MembershipID != "" {
		t.Errorf("mark[1] = %+v", got.Marks[1])
	}

	if _, err := store.GetByID(ctx, "occ-1"); err != nil {
		t.Errorf("GetByID() error = %v", err)
	}
	if _, err := store.GetByID(ctx, "occ-9"); err == nil {
		t.Error("GetByID() on a missing row must fail")
	}
}

func TestSQLiteStore_SaveReplacesMarks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	o := storedOccurrence()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Drop one mark, flip the other; the save replaces the collection.
	o.Marks = []domain.Mark{
		{ID: "m1", OccurrenceID: "occ-1", MembershipID: "mem-1", Status: domain.MarkAbsent},
	}
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.GetByID(ctx, "occ-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(got.Marks) != 1 || got.Marks[0].Status != domain.MarkAbsent {
		t.Errorf("marks after replacement: %+v", got.Marks)
	}
}

func TestSQLiteStore_PendingEditRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	o := storedOccurrence()
	o.EditApprovalStatus = domain.EditPending
	o.PendingEdit = &domain.PendingEdit{
		Group:       domain.GroupDate,
		Payload:     `{"date":"2024-03-13"}`,
		RequestedBy: "acct-1",
		RequestedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	o.LateDateEditUsed = true
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.GetByID(ctx, "occ-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PendingEdit == nil {
		t.Fatal("pending edit did not round trip")
	}
	if got.PendingEdit.Group != domain.GroupDate || got.PendingEdit.Payload != `{"date":"2024-03-13"}` {
		t.Errorf("pending edit = %+v", got.PendingEdit)
	}
	if !got.PendingEdit.RequestedAt.Equal(o.PendingEdit.RequestedAt) {
		t.Errorf("RequestedAt = %v", got.PendingEdit.RequestedAt)
	}
	if !got.LateDateEditUsed || got.LateAttendanceEditUsed {
		t.Errorf("allowance flags = %v/%v", got.LateDateEditUsed, got.LateAttendanceEditUsed)
	}

	pending, err := store.ListPendingEdits(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingEdits() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "occ-1" {
		t.Errorf("pending edits = %+v", pending)
	}

	// Approval clears the pending columns.
	got.PendingEdit = nil
	got.EditApprovalStatus = domain.EditApproved
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save() after approval error = %v", err)
	}
	again, _ := store.GetByID(ctx, "occ-1")
	if again.PendingEdit != nil || again.EditApprovalStatus != domain.EditApproved {
		t.Errorf("approval round trip: status=%q pending=%v", again.EditApprovalStatus, again.PendingEdit)
	}
}

func TestSQLiteStore_ListByCellAndMonth(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	second := storedOccurrence()
	second.ID = "occ-2"
	second.Date = time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	second.Marks = nil
	other := storedOccurrence()
	other.ID = "occ-3"
	other.Date = time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)
	other.ReferenceMonth = "2024-04"
	other.Marks = nil

	for _, o := range []domain.Occurrence{storedOccurrence(), second, other} {
		if err := store.Save(ctx, o); err != nil {
			t.Fatalf("Save(%s) error = %v", o.ID, err)
		}
	}

	got, err := store.ListByCellAndMonth(ctx, "cell-1", "2024-03")
	if err != nil {
		t.Fatalf("ListByCellAndMonth() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "occ-1" || got[1].ID != "occ-2" {
		t.Errorf("month listing = %+v", got)
	}
}

func TestSQLiteStore_MarkHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	dates := []string{"2024-03-06", "2024-03-13", "2024-03-27"}
	statuses := []domain.MarkStatus{domain.MarkPresent, domain.MarkAbsent, domain.MarkPresent}
	for i, d := range dates {
		day, _ := time.ParseInLocation("2006-01-02", d, time.UTC)
		o := domain.Occurrence{
			ID:                 "occ-" + d,
			CellID:             "cell-1",
			Date:               day,
			ReferenceMonth:     "2024-03",
			ContributionStatus: domain.ContributionUnset,
			EditApprovalStatus: domain.EditNone,
			Marks: []domain.Mark{
				{ID: "m-" + d, MembershipID: "mem-1", Status: statuses[i]},
			},
			CreatedAt: day,
		}
		if err := store.Save(ctx, o); err != nil {
			t.Fatalf("Save(%s) error = %v", d, err)
		}
	}

	history, err := store.MarkHistory(ctx, "cell-1", "mem-1", "")
	if err != nil {
		t.Fatalf("MarkHistory() error = %v", err)
	}
	want := []domain.MarkStatus{domain.MarkPresent, domain.MarkAbsent, domain.MarkPresent}
	if len(history) != len(want) {
		t.Fatalf("history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, history[i], want[i])
		}
	}
}

func TestSQLiteStore_MarkHistory_BothAddressingModes(t *testing.T) {
	// One person, three meetings: marked once by membership row, once by
	// global participant, once not at all. The history sees both marks and
	// ignores other people's.
	store := openTestStore(t)
	ctx := context.Background()

	marks := map[string][]domain.Mark{
		"2024-03-06": {
			{ID: "m-1", MembershipID: "mem-1", Status: domain.MarkPresent},
			{ID: "m-other", MembershipID: "mem-2", Status: domain.MarkPresent},
		},
		"2024-03-13": {
			{ID: "m-2", ParticipantID: "part-1", Status: domain.MarkAbsent},
		},
		"2024-03-20": {
			{ID: "m-3", ParticipantID: "part-2", Status: domain.MarkPresent},
		},
	}
	for d, ms := range marks {
		day, _ := time.ParseInLocation("2006-01-02", d, time.UTC)
		o := domain.Occurrence{
			ID:                 "occ-" + d,
			CellID:             "cell-1",
			Date:               day,
			ReferenceMonth:     "2024-03",
			ContributionStatus: domain.ContributionUnset,
			EditApprovalStatus: domain.EditNone,
			Marks:              ms,
			CreatedAt:          day,
		}
		if err := store.Save(ctx, o); err != nil {
			t.Fatalf("Save(%s) error = %v", d, err)
		}
	}

	history, err := store.MarkHistory(ctx, "cell-1", "mem-1", "part-1")
	if err != nil {
		t.Fatalf("MarkHistory() error = %v", err)
	}
	want := []domain.MarkStatus{domain.MarkPresent, domain.MarkAbsent}
	if len(history) != len(want) {
		t.Fatalf("history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, history[i], want[i])
		}
	}

	// Without a participant ID only the membership-addressed mark remains.
	local, err := store.MarkHistory(ctx, "cell-1", "mem-1", "")
	if err != nil {
		t.Fatalf("MarkHistory() error = %v", err)
	}
	if len(local) != 1 || local[0] != domain.MarkPresent {
		t.Errorf("local-only history = %v, want one present", local)
	}
}
