package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// User represents a user in the system
type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email    string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name     string    `json:"name" gorm:"type:varchar(255);not null"`
	Role     UserRole  `json:"role" gorm:"type:varchar(50);default:'viewer';not null"`
	IsActive bool      `json:"is_active" gorm:"default:true;not null"`

	// Dashboard sign-in
	OAuthProvider *string `json:"oauth_provider,omitempty" gorm:"column:oauth_provider;type:varchar(50);index:idx_oauth"`
	OAuthID       *string `json:"oauth_id,omitempty" gorm:"column:oauth_id;type:varchar(255);index:idx_oauth"`
	AvatarURL     *string `json:"avatar_url,omitempty" gorm:"type:varchar(500)"`

	// Google integration (Drive/Calendar). Tokens are never exposed in JSON.
	GoogleAccessToken  *string                     `json:"-" gorm:"column:google_access_token;type:text"`
	GoogleRefreshToken *string                     `json:"-" gorm:"column:google_refresh_token;type:text"`
	GoogleTokenExpiry  *time.Time                  `json:"-" gorm:"column:google_token_expiry;type:timestamptz"`
	GoogleScopes       datatypes.JSONSlice[string] `json:"google_scopes,omitempty" gorm:"column:google_scopes;type:jsonb"`
	NotesIngestion     bool                        `json:"notes_ingestion_enabled" gorm:"column:notes_ingestion_enabled;default:false;not null"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty" gorm:"type:timestamptz"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// UserRole defines user roles
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleTeam   UserRole = "team"
	RoleViewer UserRole = "viewer"
)

// IsValid checks if the user role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeam, RoleViewer:
		return true
	}
	return false
}

// NewUser creates a new user with default values
func NewUser(email, name string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Role:      RoleViewer,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewOAuthUser creates a new user from OAuth provider
func NewOAuthUser(email, name, provider, oauthID string) *User {
	user := NewUser(email, name)
	user.OAuthProvider = &provider
	user.OAuthID = &oauthID
	return user
}

// UpdateLastLogin updates the last login timestamp
func (u *User) UpdateLastLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// IsTeamMember reports whether the user works at the firm.
func (u *User) IsTeamMember() bool {
	return u.Role == RoleTeam || u.Role == RoleAdmin
}

// IsAdmin checks if user is admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasGoogleConnection reports whether a long-lived Google refresh token is stored.
func (u *User) HasGoogleConnection() bool {
	return u.GoogleRefreshToken != nil && *u.GoogleRefreshToken != ""
}

// EligibleForNotes reports whether the notes sweep should scan this user's Drive.
func (u *User) EligibleForNotes() bool {
	return u.IsActive && u.IsTeamMember() && u.NotesIngestion && u.HasGoogleConnection()
}

// TokenBundle returns the stored Google credentials, or nil when not connected.
func (u *User) TokenBundle() *TokenBundle {
	if !u.HasGoogleConnection() {
		return nil
	}
	b := &TokenBundle{
		RefreshToken: *u.GoogleRefreshToken,
		Scopes:       append([]string(nil), u.GoogleScopes...),
	}
	if u.GoogleAccessToken != nil {
		b.AccessToken = *u.GoogleAccessToken
	}
	if u.GoogleTokenExpiry != nil {
		b.Expiry = *u.GoogleTokenExpiry
	}
	return b
}

// SetTokenBundle copies b onto the user record.
func (u *User) SetTokenBundle(b *TokenBundle) {
	if b == nil {
		u.ClearTokenBundle()
		return
	}
	access, refresh, expiry := b.AccessToken, b.RefreshToken, b.Expiry
	u.GoogleAccessToken = &access
	u.GoogleRefreshToken = &refresh
	u.GoogleTokenExpiry = &expiry
	u.GoogleScopes = datatypes.NewJSONSlice(append([]string(nil), b.Scopes...))
}

// ClearTokenBundle removes the stored Google credentials.
func (u *User) ClearTokenBundle() {
	u.GoogleAccessToken = nil
	u.GoogleRefreshToken = nil
	u.GoogleTokenExpiry = nil
	u.GoogleScopes = nil
	u.NotesIngestion = false
}

// Validate validates user data
func (u *User) Validate() error {
	if u.Email == "" {
		return ErrInvalidEmail
	}
	if u.Name == "" {
		return ErrInvalidName
	}
	if !u.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}
