package user

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid token")

const (
	sessionAudience = "session"
	resetAudience   = "password-reset"
)

type tokenManager struct {
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func newTokenManager(secret []byte, ttl time.Duration) *tokenManager {
	return &tokenManager{secret: secret, ttl: ttl, resetTTL: time.Hour, now: time.Now}
}

// Issue signs an HS256 session token whose subject is the user id.
func (m *tokenManager) Issue(userID string) (string, error) {
	return m.sign(jwt.RegisteredClaims{Subject: userID}, sessionAudience, m.ttl)
}

// Validate returns the user id carried by a valid, unexpired session token.
func (m *tokenManager) Validate(raw string) (string, error) {
	claims, err := m.parse(raw, sessionAudience)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IssueReset signs a short-lived password reset token. The token id is a
// fingerprint of the current password hash, so it stops working once the
// password changes.
func (m *tokenManager) IssueReset(userID, passwordHash string) (string, error) {
	return m.sign(jwt.RegisteredClaims{Subject: userID, ID: fingerprint(passwordHash)}, resetAudience, m.resetTTL)
}

// ValidateReset returns the user id and password fingerprint of a reset token.
func (m *tokenManager) ValidateReset(raw string) (string, string, error) {
	claims, err := m.parse(raw, resetAudience)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.ID, nil
}

func (m *tokenManager) sign(claims jwt.RegisteredClaims, audience string, ttl time.Duration) (string, error) {
	now := m.now()
	claims.Audience = jwt.ClaimStrings{audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (m *tokenManager) parse(raw, audience string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !slices.Contains(claims.Audience, audience) {
		return nil, fmt.Errorf("%w: wrong audience", errInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	return &claims, nil
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
