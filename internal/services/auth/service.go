package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Errors
var (
	ErrMissingToken = errors.New("admin token required")
	ErrInvalidToken = errors.New("invalid admin token")
	ErrEmptyToken   = errors.New("token must not be empty")
)

// Service checks admin bearer tokens against a configured bcrypt hash.
// With no hash configured every request is allowed.
type Service struct {
	hash []byte

	mu       sync.RWMutex
	verified map[string]struct{}
}

// New creates a Service for the given bcrypt hash. An empty hash disables auth.
func New(tokenHash string) (*Service, error) {
	s := &Service{verified: make(map[string]struct{})}
	if tokenHash == "" {
		return s, nil
	}
	if _, err := bcrypt.Cost([]byte(tokenHash)); err != nil {
		return nil, fmt.Errorf("invalid token hash: %w", err)
	}
	s.hash = []byte(tokenHash)
	return s, nil
}

// Enabled reports whether requests need a token
func (s *Service) Enabled() bool {
	return len(s.hash) > 0
}

// Verify checks a presented token. Accepted tokens are remembered so repeated
// requests skip the bcrypt comparison.
func (s *Service) Verify(token string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrMissingToken
	}

	s.mu.RLock()
	_, ok := s.verified[token]
	s.mu.RUnlock()
	if ok {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}

	s.mu.Lock()
	s.verified[token] = struct{}{}
	s.mu.Unlock()
	return nil
}

// HashToken produces the value to put in api.token_hash
func HashToken(token string, cost int) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
