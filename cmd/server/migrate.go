package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/campuswell/sentinel/config"
	dbstore "github.com/campuswell/sentinel/internal/db"
)

// MigrateIfNeeded imports the CSV ledgers into a fresh SQLite database.
// Runs once: an existing database file means the import already
// happened. Missing CSV files are not an error; the database simply
// starts empty.
func MigrateIfNeeded(cfg *config.Config) error {
	if cfg.SQLitePath == "" {
		return errors.New("sqlite path is required")
	}
	if _, err := os.Stat(cfg.SQLitePath); err == nil {
		return nil // already migrated
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check sqlite file: %w", err)
	}

	log.Printf("First run detected, importing CSV ledgers into %s...", cfg.SQLitePath)

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	sqliteDB, err := sql.Open("sqlite3", sqliteDSN(cfg.SQLitePath))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}()

	if err := dbstore.RunMigrations(sqliteDB); err != nil {
		return err
	}
	dst, err := dbstore.NewSQLiteStore(sqliteDB)
	if err != nil {
		return fmt.Errorf("init sqlite store: %w", err)
	}

	students, err := dbstore.NewRosterCSVStore(cfg.StudentRoster).LoadAll()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load roster csv: %w", err)
	}
	for _, e := range students {
		if err := dst.PutStudent(e); err != nil {
			return fmt.Errorf("import student %s: %w", e.StudentID, err)
		}
	}

	therapists, err := dbstore.NewTherapistCSVStore(cfg.TherapistCSV).LoadAll()
	if err != nil {
		return fmt.Errorf("load therapist csv: %w", err)
	}
	for _, c := range therapists {
		if err := dst.PutTherapist(c); err != nil {
			return fmt.Errorf("import therapist %s: %w", c.Username, err)
		}
	}

	log.Printf("Ledger import completed: %d students, %d therapists.", len(students), len(therapists))
	return nil
}
