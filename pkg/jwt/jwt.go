package jwt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is written to and required on every token.
const Issuer = "crm-portal"

// ErrEmptyToken is returned when hashing or parsing an empty token
var ErrEmptyToken = errors.New("token is empty")

// Manager signs and verifies dashboard session tokens. Access and refresh
// tokens use separate secrets so one kind can never stand in for the other.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewManager creates a new JWT manager
func NewManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

func (m *Manager) registered(userID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    Issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// GenerateAccessToken signs a short-lived token for userID
func (m *Manager) GenerateAccessToken(userID uuid.UUID, email, role string) (string, error) {
	claims := &Claims{
		UserID:           userID,
		Email:            email,
		Role:             role,
		RegisteredClaims: m.registered(userID, m.accessExpiry),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
}

// GenerateRefreshToken signs a long-lived token backing a session. Each
// token carries a fresh jti, so two sessions opened in the same second
// still get distinct tokens.
func (m *Manager) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	claims := m.registered(userID, m.refreshExpiry)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(m.refreshSecret)
}

// ValidateAccessToken validates and parses an access token
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenString, claims, m.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefreshToken validates a refresh token and returns its user ID
func (m *Manager) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	if err := m.parse(tokenString, claims, m.refreshSecret); err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in token: %w", err)
	}
	return userID, nil
}

func (m *Manager) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return ErrEmptyToken
	}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// GetAccessExpiry returns access token expiry duration
func (m *Manager) GetAccessExpiry() time.Duration {
	return m.accessExpiry
}

// GetRefreshExpiry returns refresh token expiry duration
func (m *Manager) GetRefreshExpiry() time.Duration {
	return m.refreshExpiry
}

// HashToken returns the SHA-256 hex digest stored in place of a refresh token.
func (m *Manager) HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:]), nil
}
