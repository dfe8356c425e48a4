package entities

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side dashboard session backing a refresh token.
type Session struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	RefreshToken string     `json:"-" gorm:"column:refresh_token;type:text;uniqueIndex;not null"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	ExpiresAt    time.Time  `json:"expires_at" gorm:"type:timestamptz;not null;index"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty" gorm:"type:timestamptz"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty" gorm:"type:timestamptz"`
	IPAddress    *string    `json:"ip_address,omitempty" gorm:"type:varchar(45)"`
	UserAgent    *string    `json:"user_agent,omitempty" gorm:"type:text"`
}

// NewSession creates a new session
func NewSession(userID uuid.UUID, refreshToken string, expiresAt time.Time) *Session {
	return &Session{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now(),
	}
}

// IsExpired checks if session is expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsValid checks if session is valid (not expired and not revoked)
func (s *Session) IsValid() bool {
	if s == nil {
		return false
	}
	return !s.IsExpired() && s.RevokedAt == nil
}

// WithDeviceInfo adds device information
func (s *Session) WithDeviceInfo(ip, userAgent string) *Session {
	if ip != "" {
		s.IPAddress = &ip
	}
	if userAgent != "" {
		s.UserAgent = &userAgent
	}
	return s
}
