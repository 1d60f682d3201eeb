package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/campuswell/sentinel/internal/services"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
    student_id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT '',
    consent    INTEGER NOT NULL DEFAULT 0,
    has_extra  INTEGER NOT NULL DEFAULT 0,
    classes    TEXT
);
CREATE TABLE IF NOT EXISTS therapists (
    username        TEXT PRIMARY KEY,
    password        TEXT NOT NULL,
    first_responder INTEGER NOT NULL DEFAULT 0
);
`

// RunMigrations applies the ledger schema. Idempotent.
func RunMigrations(sqlDB *sql.DB) error {
	if _, err := sqlDB.Exec(schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// SQLiteStore backs both ledgers with a SQLite database for deployments
// that outgrow flat CSV files. Implements services.RosterStore and
// services.TherapistStore.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(sqlDB *sql.DB) (*SQLiteStore, error) {
	if sqlDB == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := sqlDB.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

func (s *SQLiteStore) GetStudent(id string) (*services.RosterEntry, error) {
	row := s.db.QueryRow(
		`SELECT student_id, first_name, last_name, consent, has_extra, classes FROM students WHERE student_id = ?`, id)
	var (
		e       services.RosterEntry
		consent int64
		extra   int64
		classes sql.NullString
	)
	err := row.Scan(&e.StudentID, &e.FirstName, &e.LastName, &consent, &extra, &classes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select student %s: %w", id, err)
	}
	e.Consent = int64ToBool(consent)
	e.HasExtra = int64ToBool(extra)
	if classes.Valid && strings.TrimSpace(classes.String) != "" {
		if err := json.Unmarshal([]byte(classes.String), &e.Classes); err != nil {
			return nil, fmt.Errorf("decode classes for %s: %w", id, err)
		}
	}
	return &e, nil
}

func (s *SQLiteStore) PutStudent(e *services.RosterEntry) error {
	var toEncode any
	if len(e.Classes) > 0 {
		toEncode = e.Classes
	}
	classes, err := encodeJSON(toEncode)
	if err != nil {
		return fmt.Errorf("encode classes for %s: %w", e.StudentID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO students (student_id, first_name, last_name, consent, has_extra, classes)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(student_id) DO UPDATE SET
             first_name = excluded.first_name,
             last_name  = excluded.last_name,
             consent    = excluded.consent,
             has_extra  = excluded.has_extra,
             classes    = excluded.classes`,
		e.StudentID, e.FirstName, e.LastName, boolToInt64(e.Consent), boolToInt64(e.HasExtra), classes)
	if err != nil {
		return fmt.Errorf("upsert student %s: %w", e.StudentID, err)
	}
	return nil
}

func (s *SQLiteStore) FindTherapist(username string) (*services.TherapistCredential, error) {
	row := s.db.QueryRow(
		`SELECT username, password, first_responder FROM therapists WHERE username = ? COLLATE NOCASE`,
		strings.TrimSpace(username))
	var (
		c  services.TherapistCredential
		fr int64
	)
	err := row.Scan(&c.Username, &c.Password, &fr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select therapist: %w", err)
	}
	c.FirstResponder = int64ToBool(fr)
	return &c, nil
}

func (s *SQLiteStore) PutTherapist(c *services.TherapistCredential) error {
	_, err := s.db.Exec(
		`INSERT INTO therapists (username, password, first_responder) VALUES (?, ?, ?)
         ON CONFLICT(username) DO UPDATE SET
             password = excluded.password,
             first_responder = excluded.first_responder`,
		c.Username, c.Password, boolToInt64(c.FirstResponder))
	if err != nil {
		return fmt.Errorf("upsert therapist %s: %w", c.Username, err)
	}
	return nil
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func int64ToBool(v int64) bool { return v != 0 }

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
