// Package auth implements the session layer of the panel.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User visits /auth/discord/login → redirected to Discord
// 2. Discord calls back /auth/discord/callback with a code
// 3. Server exchanges the code for the Discord user, upserts the user in the DB
// 4. Server opens a session in the SessionStore and sets a signed cookie that
//    names it
// 5. On later API calls, middleware verifies the cookie, loads the session and
//    the user, and puts the user in the request context
//
// WHY A JWT *AND* A SESSION STORE?
// A bare JWT cannot be revoked: logout would only delete the browser cookie and
// a copied token would stay valid until it expired. Here the JWT only carries
// the session id (jti) and user id (sub). The signature lets us reject forged
// cookies without touching the store; the store lookup makes logout real.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"jti":"<session id>","sub":"<user id>","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "botpanel"

// TokenService signs and verifies session cookies.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// SessionClaims is the verified content of a session cookie.
type SessionClaims struct {
	SessionID string
	UserID    string
}

// Generate signs a cookie value for the given session, valid for ttl.
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric, so the same secret
// signs and verifies; fine for a single server process.
func (s *TokenService) Generate(sessionID, userID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a cookie value.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps signed with a shared secret)
//   - Algorithm is HS256 (prevents "alg: none" and algorithm confusion attacks)
func (s *TokenService) Validate(tokenStr string) (*SessionClaims, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.ID == "" || c.Subject == "" {
		return nil, fmt.Errorf("auth: token is missing session or subject")
	}

	return &SessionClaims{SessionID: c.ID, UserID: c.Subject}, nil
}
