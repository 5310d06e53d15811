package profile

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid auth token")

// tokenClaims are the claims the profile service puts in its auth tokens.
// Some deployments use "id", others only the registered "sub".
type tokenClaims struct {
	ID         string `json:"id"`
	Collection string `json:"collectionId,omitempty"`
	jwt.RegisteredClaims
}

// AuthStore holds the bearer token of the signed-in user. The signature is
// verified by the profile service, so claims are read without verification
// and only used to find the user id and expiry.
type AuthStore struct {
	mu     sync.RWMutex
	token  string
	userID string
	expiry time.Time
	now    func() time.Time
}

func NewAuthStore() *AuthStore {
	return &AuthStore{now: time.Now}
}

// Save replaces the stored token. An empty token clears the store.
func (s *AuthStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		s.Clear()
		return nil
	}

	userID, expiry, err := decodeToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = userID
	s.expiry = expiry
	return nil
}

func (s *AuthStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.userID = ""
	s.expiry = time.Time{}
}

// Token returns the token and user id while the token is unexpired.
func (s *AuthStore) Token() (string, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", "", false
	}
	if !s.expiry.IsZero() && !s.now().Before(s.expiry) {
		return "", "", false
	}
	return s.token, s.userID, true
}

func (s *AuthStore) IsValid() bool {
	_, _, ok := s.Token()
	return ok
}

func decodeToken(token string) (string, time.Time, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", time.Time{}, errors.Join(ErrInvalidToken, err)
	}

	userID := claims.ID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", time.Time{}, errors.Join(ErrInvalidToken, errors.New("token has no user id"))
	}

	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	return userID, expiry, nil
}
