package services

import (
	"errors"
	"testing"
)

type stubRosterStore struct {
	entries map[string]*RosterEntry
	puts    int
	putErr  error
}

func newStubRosterStore(entries ...*RosterEntry) *stubRosterStore {
	s := &stubRosterStore{entries: map[string]*RosterEntry{}}
	for _, e := range entries {
		s.entries[e.StudentID] = e
	}
	return s
}

func (s *stubRosterStore) GetStudent(id string) (*RosterEntry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.Classes = append([]ClassCredit(nil), e.Classes...)
	return &cp, nil
}

func (s *stubRosterStore) PutStudent(e *RosterEntry) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	cp := *e
	cp.Classes = append([]ClassCredit(nil), e.Classes...)
	s.entries[e.StudentID] = &cp
	return nil
}

func rosterFixture() *RosterEntry {
	return &RosterEntry{
		StudentID: "S100",
		FirstName: "Ada",
		LastName:  "Nguyen",
		Classes: []ClassCredit{
			{Key: "cs101", Name: "Intro to Computing"},
			{Key: "psy110", Name: "Psychology I"},
		},
	}
}

func TestValidateUnknownStudent(t *testing.T) {
	l := NewRosterLedger(newStubRosterStore())
	if _, err := l.Validate("nope"); !HasErrorCode(err, ErrorNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if _, err := l.Validate("  "); !HasErrorCode(err, ErrorInvalid) {
		t.Fatalf("expected invalid for blank id, got %v", err)
	}
}

func TestGrantExtraCreditIdempotent(t *testing.T) {
	store := newStubRosterStore(rosterFixture())
	l := NewRosterLedger(store)

	granted, alreadyHad, err := l.GrantExtraCredit("S100", "CS101")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !granted || alreadyHad {
		t.Fatalf("first grant = (%v,%v), want (true,false)", granted, alreadyHad)
	}

	granted, alreadyHad, err = l.GrantExtraCredit("S100", "cs101")
	if err != nil {
		t.Fatalf("regrant: %v", err)
	}
	if granted || !alreadyHad {
		t.Fatalf("second grant = (%v,%v), want (false,true)", granted, alreadyHad)
	}

	e := store.entries["S100"]
	if e.TotalExtraCredit() != 1 {
		t.Fatalf("total credit = %d, want exactly 1", e.TotalExtraCredit())
	}
	if !e.HasExtra {
		t.Fatalf("has_extra not persisted")
	}
	if store.puts != 1 {
		t.Fatalf("puts = %d, want write-through exactly once", store.puts)
	}
}

func TestGrantExtraCreditUnknownClass(t *testing.T) {
	l := NewRosterLedger(newStubRosterStore(rosterFixture()))
	if _, _, err := l.GrantExtraCredit("S100", "art999"); !HasErrorCode(err, ErrorInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if _, _, err := l.GrantExtraCredit("S100", ""); !HasErrorCode(err, ErrorInvalid) {
		t.Fatalf("expected invalid for empty key, got %v", err)
	}
}

func TestGrantExtraCreditPersistFailure(t *testing.T) {
	store := newStubRosterStore(rosterFixture())
	store.putErr = errors.New("disk full")
	l := NewRosterLedger(store)
	if _, _, err := l.GrantExtraCredit("S100", "cs101"); !HasErrorCode(err, ErrorPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if store.entries["S100"].HasExtra {
		t.Fatalf("failed write must not mark the stored row")
	}
}

func TestSetConsentWriteThrough(t *testing.T) {
	store := newStubRosterStore(rosterFixture())
	l := NewRosterLedger(store)
	if err := l.SetConsent("S100", true); err != nil {
		t.Fatalf("set consent: %v", err)
	}
	if !store.entries["S100"].Consent {
		t.Fatalf("consent not persisted")
	}
	// Unchanged value skips the write.
	if err := l.SetConsent("S100", true); err != nil {
		t.Fatalf("idempotent set: %v", err)
	}
	if store.puts != 1 {
		t.Fatalf("puts = %d, want 1", store.puts)
	}
}
