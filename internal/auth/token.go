package auth

import (
	"errors"
	"net/http"
	"strings"

	"testbank/internal/app/apiresp"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier checks the shared service token presented by authoring
// clients. Only the bcrypt hash of the token is held in memory.
type TokenVerifier struct {
	tokenHash []byte
	enabled   bool
}

func NewTokenVerifier(tokenHash string) *TokenVerifier {
	tokenHash = strings.TrimSpace(tokenHash)
	return &TokenVerifier{
		tokenHash: []byte(tokenHash),
		enabled:   tokenHash != "",
	}
}

// HashToken produces a storable hash for a freshly issued token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (v *TokenVerifier) Verify(token string) error {
	if !v.enabled {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(v.tokenHash, []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// Middleware rejects requests without a valid bearer token. When no token
// hash is configured the check is disabled, for local development.
func (v *TokenVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.enabled {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if err := v.Verify(strings.TrimSpace(token)); err != nil {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
