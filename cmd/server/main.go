package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/campuswell/sentinel/config"
	"github.com/campuswell/sentinel/internal/api"
	dbstore "github.com/campuswell/sentinel/internal/db"
	"github.com/campuswell/sentinel/internal/middleware"
	"github.com/campuswell/sentinel/internal/scorer"
	"github.com/campuswell/sentinel/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	rosterStore, therapistStore, closeStores, err := openStores(cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer closeStores()

	evaluator, err := services.NewRiskEvaluator(cfg.Policy())
	if err != nil {
		// Serving with a broken risk policy is worse than not serving.
		log.Fatalf("risk policy error: %v", err)
	}

	roster := services.NewRosterLedger(rosterStore)
	vault := services.NewAlertVault(cfg.AlertDir, cfg.EncryptOnAlert)
	history := services.NewSubmissionHistory(cfg.HistoryLimit)
	session := services.NewTherapistSession(
		therapistStore, middleware.SignSessionToken, middleware.ParseSessionToken, cfg.SessionTTL)

	analyze := services.NewAnalyzeService(services.AnalyzeDeps{
		Roster:    roster,
		Stress:    scorer.NewStressClient(cfg.StressURL, nil),
		Mental:    scorer.NewMentalClient(cfg.MentalURL, nil),
		Emotion:   scorer.NewEmotionClient(cfg.EmotionURL, nil),
		Evaluator: evaluator,
		Vault:     vault,
		History:   history,
		MinWords:  cfg.MinResponseWords,
	})

	mux := http.NewServeMux()
	api.NewRouter(api.Deps{
		Roster:  roster,
		Analyze: analyze,
		Session: session,
		History: history,
		Vault:   vault,
	}).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":                 true,
			"name":               "Sentinel API",
			"encryption_enabled": vault.EncryptionEnabled(),
		})
	})

	handler := middleware.Harden(mux)

	log.Printf("Sentinel server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStores picks the ledger backend: SQLite when SENTINEL_SQLITE_PATH
// is set (with one-time CSV import), CSV files otherwise.
func openStores(cfg *config.Config) (services.RosterStore, services.TherapistStore, func(), error) {
	if cfg.SQLitePath == "" {
		return dbstore.NewRosterCSVStore(cfg.StudentRoster), dbstore.NewTherapistCSVStore(cfg.TherapistCSV), func() {}, nil
	}
	if err := MigrateIfNeeded(cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate ledgers: %w", err)
	}
	sqliteDB, err := sql.Open("sqlite3", sqliteDSN(cfg.SQLitePath))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := dbstore.RunMigrations(sqliteDB); err != nil {
		_ = sqliteDB.Close()
		return nil, nil, nil, err
	}
	store, err := dbstore.NewSQLiteStore(sqliteDB)
	if err != nil {
		_ = sqliteDB.Close()
		return nil, nil, nil, err
	}
	closeDB := func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}
	return store, store, closeDB, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
}
