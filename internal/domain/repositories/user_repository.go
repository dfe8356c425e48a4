package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *entities.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*entities.User, error)

	// FindByOAuth finds a user by OAuth provider and ID
	FindByOAuth(ctx context.Context, provider, oauthID string) (*entities.User, error)

	// Update updates a user
	Update(ctx context.Context, user *entities.User) error

	// SaveGoogleTokens stores the Google token bundle on the user row
	SaveGoogleTokens(ctx context.Context, userID uuid.UUID, bundle *entities.TokenBundle) error

	// ClearGoogleTokens removes the stored bundle and disables notes ingestion
	ClearGoogleTokens(ctx context.Context, userID uuid.UUID) error

	// SetNotesIngestion toggles the per-user ingestion flag
	SetNotesIngestion(ctx context.Context, userID uuid.UUID, enabled bool) error

	// ListNotesEligible returns active team members with ingestion enabled
	// and a stored refresh token, ordered by email
	ListNotesEligible(ctx context.Context) ([]*entities.User, error)
}
