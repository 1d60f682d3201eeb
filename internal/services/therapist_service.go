package services

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TherapistStore resolves credentials from the external therapist ledger.
// FindTherapist returns (nil, nil) for an unknown username.
type TherapistStore interface {
	FindTherapist(username string) (*TherapistCredential, error)
}

// SessionSigner mints a session token for an authenticated therapist.
type SessionSigner func(username string, firstResponder bool, jti string, ttl time.Duration) (string, error)

// SessionParser validates a token and returns its identity and token id.
type SessionParser func(token string) (username string, firstResponder bool, jti string, err error)

// TherapistSession gates dashboard access: credential check plus
// short-lived tokens, revocable on logout. Passwords are never logged or
// echoed.
type TherapistSession struct {
	store TherapistStore
	sign  SessionSigner
	parse SessionParser
	ttl   time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry

	now   func() time.Time
	idGen func() string
}

func NewTherapistSession(store TherapistStore, sign SessionSigner, parse SessionParser, ttl time.Duration) *TherapistSession {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TherapistSession{
		store:   store,
		sign:    sign,
		parse:   parse,
		ttl:     ttl,
		revoked: map[string]time.Time{},
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
	}
}

func (s *TherapistSession) TokenTTL() time.Duration { return s.ttl }

// Login checks the supplied credentials against the therapist ledger and
// issues a session token.
func (s *TherapistSession) Login(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return "", NewInvalidError("username/password required")
	}
	cred, err := s.store.FindTherapist(username)
	if err != nil {
		return "", err
	}
	if cred == nil || !verifyPassword(cred.Password, password) {
		return "", NewUnauthorizedError("invalid credentials")
	}
	if s.sign == nil {
		return "", NewInvalidError("session signer not configured")
	}
	token, err := s.sign(cred.Username, cred.FirstResponder, s.idGen(), s.ttl)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authorize resolves a token to the therapist it was issued to. Revoked
// and malformed tokens are rejected with no partial access.
func (s *TherapistSession) Authorize(token string) (*TherapistIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewUnauthorizedError("session token required")
	}
	if s.parse == nil {
		return nil, NewInvalidError("session parser not configured")
	}
	username, firstResponder, jti, err := s.parse(token)
	if err != nil {
		return nil, NewUnauthorizedError("invalid or expired session")
	}
	s.mu.Lock()
	_, dead := s.revoked[jti]
	s.mu.Unlock()
	if dead {
		return nil, NewUnauthorizedError("session revoked")
	}
	return &TherapistIdentity{Username: username, FirstResponder: firstResponder}, nil
}

// Logout destroys the session by revoking its token id. Unknown or
// already-invalid tokens are ignored.
func (s *TherapistSession) Logout(token string) {
	if s.parse == nil {
		return
	}
	_, _, jti, err := s.parse(token)
	if err != nil || jti == "" {
		return
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = now.Add(s.ttl)
}

// verifyPassword accepts bcrypt hashes and, for legacy ledger rows,
// plaintext compared in constant time.
func verifyPassword(stored, supplied string) bool {
	stored = strings.TrimSpace(stored)
	supplied = strings.TrimSpace(supplied)
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
