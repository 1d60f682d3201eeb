package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/campuswell/sentinel/internal/services"
)

func writeRoster(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	content := strings.Join(append([]string{strings.Join(rosterHeader, ",")}, rows...), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestRosterCSVGetStudent(t *testing.T) {
	path := writeRoster(t,
		`S100,Ada,Nguyen,true,false,"[{""key"":""cs101"",""name"":""Intro CS"",""points"":0}]"`,
		`S200,Ben,Okafor,false,true,`,
	)
	store := NewRosterCSVStore(path)

	e, err := store.GetStudent("S100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || e.FirstName != "Ada" || !e.Consent || len(e.Classes) != 1 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Classes[0].Key != "cs101" {
		t.Fatalf("classes = %+v", e.Classes)
	}

	e, err = store.GetStudent("S200")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || !e.HasExtra || e.Consent {
		t.Fatalf("unexpected entry: %+v", e)
	}

	e, err = store.GetStudent("ghost")
	if err != nil || e != nil {
		t.Fatalf("unknown id should be (nil,nil), got %+v %v", e, err)
	}
}

func TestRosterCSVPutStudentRoundTrip(t *testing.T) {
	path := writeRoster(t, `S100,Ada,Nguyen,false,false,`)
	store := NewRosterCSVStore(path)

	e, err := store.GetStudent("S100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	e.Consent = true
	e.HasExtra = true
	e.Classes = []services.ClassCredit{{Key: "cs101", Name: "Intro CS", Points: 1}}
	if err := store.PutStudent(e); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Re-open through a fresh store to prove the write hit disk.
	again, err := NewRosterCSVStore(path).GetStudent("S100")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !again.Consent || !again.HasExtra || again.TotalExtraCredit() != 1 {
		t.Fatalf("mutation not persisted: %+v", again)
	}
}

func TestRosterCSVPreservesOtherRows(t *testing.T) {
	path := writeRoster(t, `S100,Ada,Nguyen,false,false,`, `S200,Ben,Okafor,true,false,`)
	store := NewRosterCSVStore(path)
	e, _ := store.GetStudent("S100")
	e.Consent = true
	if err := store.PutStudent(e); err != nil {
		t.Fatalf("put: %v", err)
	}
	other, err := store.GetStudent("S200")
	if err != nil || other == nil || !other.Consent {
		t.Fatalf("unrelated row damaged: %+v %v", other, err)
	}
}

func TestRosterCSVMissingFile(t *testing.T) {
	store := NewRosterCSVStore(filepath.Join(t.TempDir(), "absent.csv"))
	if _, err := store.GetStudent("S100"); err == nil {
		t.Fatalf("expected error for missing roster file")
	}
}

func TestTherapistCSVFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "therapists.csv")
	content := "username,password,first_responder\ndrlee,opensesame,true\noncall,$2a$fakehash,0\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewTherapistCSVStore(path)

	c, err := store.FindTherapist("DrLee")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c == nil || !c.FirstResponder || c.Password != "opensesame" {
		t.Fatalf("unexpected credential: %+v", c)
	}
	if c, _ := store.FindTherapist("ghost"); c != nil {
		t.Fatalf("unknown user should be nil")
	}
}

func TestTherapistCSVReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "therapists.csv")
	if err := os.WriteFile(path, []byte("username,password,first_responder\ndrlee,one,false\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewTherapistCSVStore(path)
	if c, _ := store.FindTherapist("drlee"); c == nil || c.Password != "one" {
		t.Fatalf("initial load failed: %+v", c)
	}

	if err := os.WriteFile(path, []byte("username,password,first_responder\ndrlee,two,true\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	// Bump mtime in case the filesystem clock is too coarse.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if c, _ := store.FindTherapist("drlee"); c == nil || c.Password != "two" || !c.FirstResponder {
		t.Fatalf("credential edit not picked up: %+v", c)
	}
}

func TestTherapistCSVMissingFileIsEmpty(t *testing.T) {
	store := NewTherapistCSVStore(filepath.Join(t.TempDir(), "absent.csv"))
	c, err := store.FindTherapist("anyone")
	if err != nil || c != nil {
		t.Fatalf("missing ledger should act empty, got %+v %v", c, err)
	}
}
