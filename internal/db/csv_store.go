package db

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/campuswell/sentinel/internal/services"
)

// Roster CSV layout. The classes cell holds a JSON array of
// {key,name,points} objects so variable class lists fit one column.
var rosterHeader = []string{"student_id", "first_name", "last_name", "consent", "has_extra", "classes"}

// RosterCSVStore is the file-backed student ledger. Every mutation is a
// full read-modify-write of the file under the store mutex, flushed via
// temp-file rename before success is reported.
type RosterCSVStore struct {
	path string
	mu   sync.Mutex
}

func NewRosterCSVStore(path string) *RosterCSVStore {
	return &RosterCSVStore{path: path}
}

func (s *RosterCSVStore) GetStudent(id string) (*services.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.StudentID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (s *RosterCSVStore) PutStudent(e *services.RosterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadAll()
	if err != nil {
		return err
	}
	replaced := false
	for i, cur := range entries {
		if cur.StudentID == e.StudentID {
			entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	return s.writeAll(entries)
}

// LoadAll returns every roster row; used by the SQLite migration.
func (s *RosterCSVStore) LoadAll() ([]*services.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAll()
}

func (s *RosterCSVStore) loadAll() ([]*services.RosterEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", s.path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read roster header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"student_id"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("roster missing required column %q", required)
		}
	}
	var entries []*services.RosterEntry
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row: %w", err)
		}
		id := strings.TrimSpace(field(rec, cols, "student_id"))
		if id == "" {
			continue
		}
		e := &services.RosterEntry{
			StudentID: id,
			FirstName: strings.TrimSpace(field(rec, cols, "first_name")),
			LastName:  strings.TrimSpace(field(rec, cols, "last_name")),
			Consent:   parseBoolFlag(field(rec, cols, "consent")),
			HasExtra:  parseBoolFlag(field(rec, cols, "has_extra")),
		}
		if raw := strings.TrimSpace(field(rec, cols, "classes")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &e.Classes); err != nil {
				return nil, fmt.Errorf("roster row %s: bad classes cell: %w", id, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *RosterCSVStore) writeAll(entries []*services.RosterEntry) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".roster-*")
	if err != nil {
		return fmt.Errorf("create roster temp: %w", err)
	}
	name := tmp.Name()
	w := csv.NewWriter(tmp)
	_ = w.Write(rosterHeader)
	for _, e := range entries {
		classes := ""
		if len(e.Classes) > 0 {
			b, err := json.Marshal(e.Classes)
			if err != nil {
				_ = tmp.Close()
				_ = os.Remove(name)
				return fmt.Errorf("encode classes for %s: %w", e.StudentID, err)
			}
			classes = string(b)
		}
		rec := []string{e.StudentID, e.FirstName, e.LastName, formatBool(e.Consent), formatBool(e.HasExtra), classes}
		if err := w.Write(rec); err != nil {
			_ = tmp.Close()
			_ = os.Remove(name)
			return fmt.Errorf("write roster row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, s.path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("replace roster file: %w", err)
	}
	return nil
}

// TherapistCSVStore reads credential rows {username,password,
// first_responder}. Rows are cached and reloaded when the file's mtime
// changes, so credential edits take effect without a restart.
type TherapistCSVStore struct {
	path  string
	mu    sync.Mutex
	cache map[string]*services.TherapistCredential
	mtime time.Time
}

func NewTherapistCSVStore(path string) *TherapistCSVStore {
	return &TherapistCSVStore{path: path}
}

func (s *TherapistCSVStore) FindTherapist(username string) (*services.TherapistCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return s.cache[strings.ToLower(strings.TrimSpace(username))], nil
}

// LoadAll returns every credential row; used by the SQLite migration.
func (s *TherapistCSVStore) LoadAll() ([]*services.TherapistCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(); err != nil {
		return nil, err
	}
	out := make([]*services.TherapistCredential, 0, len(s.cache))
	for _, c := range s.cache {
		out = append(out, c)
	}
	return out, nil
}

func (s *TherapistCSVStore) refresh() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.cache = map[string]*services.TherapistCredential{}
			s.mtime = time.Time{}
			return nil
		}
		return fmt.Errorf("stat therapist ledger: %w", err)
	}
	if s.cache != nil && info.ModTime().Equal(s.mtime) {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open therapist ledger: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.cache = map[string]*services.TherapistCredential{}
			s.mtime = info.ModTime()
			return nil
		}
		return fmt.Errorf("read therapist header: %w", err)
	}
	cols := columnIndex(header)
	cache := map[string]*services.TherapistCredential{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read therapist row: %w", err)
		}
		username := strings.TrimSpace(field(rec, cols, "username"))
		password := strings.TrimSpace(field(rec, cols, "password"))
		if username == "" || password == "" {
			continue
		}
		cache[strings.ToLower(username)] = &services.TherapistCredential{
			Username:       username,
			Password:       password,
			FirstResponder: parseBoolFlag(field(rec, cols, "first_responder")),
		}
	}
	s.cache = cache
	s.mtime = info.ModTime()
	return nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseBoolFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
