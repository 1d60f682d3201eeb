package services

import (
	"fmt"
	"strings"
	"sync"
)

// RosterStore abstracts the backing ledger (CSV file or SQLite table).
// GetStudent returns (nil, nil) for an unknown id; PutStudent writes the
// full row through before returning.
type RosterStore interface {
	GetStudent(id string) (*RosterEntry, error)
	PutStudent(e *RosterEntry) error
}

// RosterLedger is the authoritative student identity/consent/extra-credit
// service. Every mutation is a read-modify-write transaction under the
// ledger mutex and is persisted before success is reported, so a crash
// after an acknowledged update never loses it.
type RosterLedger struct {
	store RosterStore
	mu    sync.Mutex
}

func NewRosterLedger(store RosterStore) *RosterLedger {
	return &RosterLedger{store: store}
}

// Validate resolves a student id to its roster entry.
func (l *RosterLedger) Validate(studentID string) (*RosterEntry, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, NewInvalidError("student id required")
	}
	e, err := l.store.GetStudent(studentID)
	if err != nil {
		return nil, NewPersistenceError(fmt.Sprintf("read roster: %v", err))
	}
	if e == nil {
		return nil, NewNotFoundError("student id not recognized")
	}
	return e, nil
}

// SetConsent updates the consent flag, writing through only on change.
func (l *RosterLedger) SetConsent(studentID string, consent bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, err := l.Validate(studentID)
	if err != nil {
		return err
	}
	if e.Consent == consent {
		return nil
	}
	e.Consent = consent
	if err := l.store.PutStudent(e); err != nil {
		return NewPersistenceError(fmt.Sprintf("persist consent: %v", err))
	}
	return nil
}

// GrantExtraCredit adds one extra-credit point to the chosen class.
// Idempotent: a student who already holds credit gets alreadyHad=true and
// no second increment, without error.
func (l *RosterLedger) GrantExtraCredit(studentID, classKey string) (granted, alreadyHad bool, err error) {
	classKey = strings.ToLower(strings.TrimSpace(classKey))
	if classKey == "" {
		return false, false, NewInvalidError("class selection required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, err := l.Validate(studentID)
	if err != nil {
		return false, false, err
	}
	if e.HasExtra || e.TotalExtraCredit() >= 1 {
		return false, true, nil
	}
	idx := -1
	for i, c := range e.Classes {
		if c.Key == classKey {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, false, NewInvalidError("selected class not found for this student")
	}
	e.Classes[idx].Points++
	e.HasExtra = true
	if err := l.store.PutStudent(e); err != nil {
		return false, false, NewPersistenceError(fmt.Sprintf("persist extra credit: %v", err))
	}
	return true, false, nil
}
