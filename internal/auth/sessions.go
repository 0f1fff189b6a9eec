package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// ErrInvalidSession covers every way a cookie can fail to name a live session:
// missing, forged, expired, or logged out.
var ErrInvalidSession = errors.New("auth: no valid session")

// Sessions issues and resolves session cookies.
type Sessions struct {
	tokens *TokenService
	store  SessionStore
	ttl    time.Duration
}

// NewSessions combines the cookie signer and the session store.
func NewSessions(tokens *TokenService, store SessionStore, ttl time.Duration) *Sessions {
	return &Sessions{tokens: tokens, store: store, ttl: ttl}
}

// TTL is the lifetime of new sessions; the cookie MaxAge matches it.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Begin opens a session for userID and returns the cookie value naming it.
func (s *Sessions) Begin(ctx context.Context, userID string) (string, error) {
	sessionID := xid.New().String()

	if err := s.store.Save(ctx, sessionID, userID, s.ttl); err != nil {
		return "", fmt.Errorf("auth: opening session: %w", err)
	}

	cookie, err := s.tokens.Generate(sessionID, userID, s.ttl)
	if err != nil {
		_ = s.store.Delete(ctx, sessionID)
		return "", err
	}
	return cookie, nil
}

// Resolve returns the user id bound to the session named by cookie.
// Returns ErrInvalidSession when there is no such live session. Store
// failures are returned as-is so they surface as 500 rather than 401.
func (s *Sessions) Resolve(ctx context.Context, cookie string) (string, error) {
	if cookie == "" {
		return "", ErrInvalidSession
	}

	claims, err := s.tokens.Validate(cookie)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	userID, err := s.store.Lookup(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}

	// A store entry for a different user means the cookie was not issued for it.
	if userID != claims.UserID {
		return "", ErrInvalidSession
	}
	return userID, nil
}

// End deletes the session named by cookie. Unknown or invalid cookies are
// ignored; only store failures are reported.
func (s *Sessions) End(ctx context.Context, cookie string) error {
	if cookie == "" {
		return nil
	}
	claims, err := s.tokens.Validate(cookie)
	if err != nil {
		return nil
	}
	return s.store.Delete(ctx, claims.SessionID)
}
