package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload for a logged-in therapist. Subject
// carries the username and ID the token id used for revocation.
type Claims struct {
	FirstResponder bool `json:"fr"`
	jwt.RegisteredClaims
}

func secret() []byte {
	s := os.Getenv("SENTINEL_JWT_SECRET")
	if s == "" {
		s = "sentinel-dev-secret"
	}
	return []byte(s)
}

// SignSessionToken mints an HS256 session token. Signature matches
// services.SessionSigner.
func SignSessionToken(username string, firstResponder bool, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		FirstResponder: firstResponder,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ParseSessionToken validates a session token and returns its identity
// and token id. Signature matches services.SessionParser.
func ParseSessionToken(tok string) (string, bool, string, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) { return secret(), nil })
	if err != nil {
		return "", false, "", err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return "", false, "", errors.New("invalid token")
	}
	return c.Subject, c.FirstResponder, c.ID, nil
}

// BearerToken extracts the Authorization bearer token, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
