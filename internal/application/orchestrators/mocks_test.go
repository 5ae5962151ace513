package orchestrators

import (
	"context"
	"errors"
	"strconv"
	"time"

	"celltrack/internal/domain/cell"
	"celltrack/internal/domain/membership"
	"celltrack/internal/domain/occurrence"
)

var errNotFound = errors.New("not found")

// fixedNow is the common "current time" for orchestrator tests: a Thursday
// morning right after the 2024-03-06 Wednesday meeting.
var fixedNow = time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)

func testClock() time.Time { return fixedNow }

func testIDGen() func() string {
	n := 0
	return func() string {
		n++
		return "gen-" + strconv.Itoa(n)
	}
}

func weeklyCell() cell.Cell {
	return cell.Cell{
		ID:        "cell-1",
		Name:      "Wednesday Group",
		Weekday:   3,
		Frequency: cell.FrequencyWeekly,
		LeaderID:  "part-leader",
		Status:    cell.StatusActive,
		CreatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

type mockCellStore struct {
	cells map[string]cell.Cell
}

func newMockCellStore(cells ...cell.Cell) *mockCellStore {
	s := &mockCellStore{cells: make(map[string]cell.Cell)}
	for _, c := range cells {
		s.cells[c.ID] = c
	}
	return s
}

func (s *mockCellStore) GetByID(_ context.Context, id string) (cell.Cell, error) {
	c, ok := s.cells[id]
	if !ok {
		return cell.Cell{}, errNotFound
	}
	return c, nil
}

type mockOccurrenceStore struct {
	occs    map[string]occurrence.Occurrence // keyed by ID
	saveErr error
	saved   []occurrence.Occurrence
}

func newMockOccurrenceStore(occs ...occurrence.Occurrence) *mockOccurrenceStore {
	s := &mockOccurrenceStore{occs: make(map[string]occurrence.Occurrence)}
	for _, o := range occs {
		s.occs[o.ID] = o
	}
	return s
}

func (s *mockOccurrenceStore) GetByID(_ context.Context, id string) (occurrence.Occurrence, error) {
	o, ok := s.occs[id]
	if !ok {
		return occurrence.Occurrence{}, errNotFound
	}
	return o, nil
}

func (s *mockOccurrenceStore) GetByCellAndDate(_ context.Context, cellID, date string) (occurrence.Occurrence, error) {
	for _, o := range s.occs {
		if o.CellID == cellID && o.Date.Format(cell.DateFormat) == date {
			return o, nil
		}
	}
	return occurrence.Occurrence{}, errNotFound
}

func (s *mockOccurrenceStore) ListByCellAndMonth(_ context.Context, cellID, referenceMonth string) ([]occurrence.Occurrence, error) {
	var out []occurrence.Occurrence
	for _, o := range s.occs {
		if o.CellID == cellID && o.ReferenceMonth == referenceMonth {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *mockOccurrenceStore) Save(_ context.Context, o occurrence.Occurrence) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.occs[o.ID] = o
	s.saved = append(s.saved, o)
	return nil
}

func (s *mockOccurrenceStore) lastSaved() (occurrence.Occurrence, bool) {
	if len(s.saved) == 0 {
		return occurrence.Occurrence{}, false
	}
	return s.saved[len(s.saved)-1], true
}

type mockMembershipStore struct {
	members   map[string]membership.Membership // keyed by ID
	histories map[string][]occurrence.MarkStatus
	saved     []membership.Membership
}

func newMockMembershipStore(members ...membership.Membership) *mockMembershipStore {
	s := &mockMembershipStore{
		members:   make(map[string]membership.Membership),
		histories: make(map[string][]occurrence.MarkStatus),
	}
	for _, m := range members {
		s.members[m.ID] = m
	}
	return s
}

func (s *mockMembershipStore) GetByID(_ context.Context, id string) (membership.Membership, error) {
	m, ok := s.members[id]
	if !ok {
		return membership.Membership{}, errNotFound
	}
	return m, nil
}

func (s *mockMembershipStore) ListByCellID(_ context.Context, cellID string) ([]membership.Membership, error) {
	var out []membership.Membership
	for _, m := range s.members {
		if m.CellID == cellID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mockMembershipStore) FindActive(_ context.Context, cellID, participantID string) (membership.Membership, error) {
	for _, m := range s.members {
		if m.CellID == cellID && m.ParticipantID == participantID && !m.IsRemoved() {
			return m, nil
		}
	}
	return membership.Membership{}, errNotFound
}

func (s *mockMembershipStore) Save(_ context.Context, m membership.Membership) error {
	s.members[m.ID] = m
	s.saved = append(s.saved, m)
	return nil
}

func (s *mockMembershipStore) MarkHistory(_ context.Context, _, membershipID, participantID string) ([]occurrence.MarkStatus, error) {
	if h, ok := s.histories[membershipID]; ok {
		return h, nil
	}
	if participantID != "" {
		return s.histories[participantID], nil
	}
	return nil, nil
}
