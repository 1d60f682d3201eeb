package services

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// AlertVault persists encrypted high-risk artifacts. Each alert gets a
// fresh symmetric key; ciphertext and key are written to separate
// write-once artifacts so possession of one without the other is useless.
// The vault exposes no decrypt path.
type AlertVault struct {
	root    string
	encrypt bool

	mu      sync.Mutex
	records []*AlertRecord

	now   func() time.Time
	idGen func() string
	logf  func(format string, args ...any)
}

// alertPayload is the minimal context sealed alongside the raw text.
type alertPayload struct {
	Text         string `json:"text"`
	CreatedAt    string `json:"created_at"`
	TriggerLabel Label  `json:"trigger_label,omitempty"`
}

func NewAlertVault(root string, encrypt bool) *AlertVault {
	return &AlertVault{
		root:    root,
		encrypt: encrypt,
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
		logf:    log.Printf,
	}
}

// EncryptionEnabled reports whether alerts are sealed or suppressed.
func (v *AlertVault) EncryptionEnabled() bool { return v.encrypt }

// Create seals one high-risk submission. The create-then-write sequence
// is serialized so concurrent high-risk decisions never reuse an
// identifier or clobber each other's artifacts, and it always reaches a
// definite completed-or-failed outcome: on any partial write the written
// half is removed before the error returns.
//
// With encryption administratively disabled, Create writes an explicit
// suppressed-marker record (never the raw text) and logs a warning so a
// missing alert stays detectable.
func (v *AlertVault) Create(studentID, rawText string, decision *RiskDecision) (*AlertRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	alertID := fmt.Sprintf("alert_%s_%s", now.Format("20060102T150405Z"), v.idGen())
	if err := os.MkdirAll(v.root, 0o700); err != nil {
		return nil, NewPersistenceError(fmt.Sprintf("create alert dir %s: %v", v.root, err))
	}

	rec := &AlertRecord{
		AlertID:      alertID,
		StudentID:    studentID,
		CreatedAt:    now,
		TriggerLabel: decision.TriggerLabel,
	}

	if !v.encrypt {
		marker := filepath.Join(v.root, alertID+".suppressed")
		body, _ := json.Marshal(map[string]any{
			"alert_id":      alertID,
			"student_id":    studentID,
			"created_at":    now.Format(time.RFC3339),
			"trigger_label": decision.TriggerLabel,
			"reason":        "alert suppressed: encryption unavailable",
		})
		if err := writeFileAtomic(marker, body, 0o600); err != nil {
			return nil, NewPersistenceError(fmt.Sprintf("write suppressed marker: %v", err))
		}
		rec.Suppressed = true
		v.records = append(v.records, rec)
		v.logf("alert vault: WARNING encryption disabled, suppressed marker written for %s", alertID)
		return rec, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, NewPersistenceError(fmt.Sprintf("generate alert key: %v", err))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, NewPersistenceError(fmt.Sprintf("init cipher: %v", err))
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, NewPersistenceError(fmt.Sprintf("generate nonce: %v", err))
	}
	payload, err := json.Marshal(alertPayload{
		Text:         rawText,
		CreatedAt:    now.Format(time.RFC3339),
		TriggerLabel: decision.TriggerLabel,
	})
	if err != nil {
		return nil, NewPersistenceError(fmt.Sprintf("encode alert payload: %v", err))
	}
	ciphertext := aead.Seal(nonce, nonce, payload, []byte(alertID))

	cipherPath := filepath.Join(v.root, alertID+".enc")
	keyPath := filepath.Join(v.root, alertID+".key")
	if err := writeFileAtomic(cipherPath, ciphertext, 0o600); err != nil {
		return nil, NewPersistenceError(fmt.Sprintf("write ciphertext: %v", err))
	}
	if err := writeFileAtomic(keyPath, key, 0o600); err != nil {
		_ = os.Remove(cipherPath)
		return nil, NewPersistenceError(fmt.Sprintf("write key artifact: %v", err))
	}

	rec.CiphertextPath = cipherPath
	rec.KeyPath = keyPath
	v.records = append(v.records, rec)
	v.logf("alert vault: sealed %s (key stored separately)", alertID)
	return rec, nil
}

// Records returns a snapshot of the in-process alert metadata index,
// newest last.
func (v *AlertVault) Records() []*AlertRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*AlertRecord, len(v.records))
	copy(out, v.records)
	return out
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".alert-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
