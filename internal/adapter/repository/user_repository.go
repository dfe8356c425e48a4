package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// UserRepository implements the user repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("email = ?", entities.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

// FindByOAuth finds a user by OAuth provider and ID
func (r *UserRepository) FindByOAuth(ctx context.Context, provider, oauthID string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).
		Where("oauth_provider = ? AND oauth_id = ?", provider, oauthID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by OAuth: %w", err)
	}
	return &user, nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SaveGoogleTokens stores the Google token bundle
func (r *UserRepository) SaveGoogleTokens(ctx context.Context, userID uuid.UUID, bundle *entities.TokenBundle) error {
	res := r.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"google_access_token":  bundle.AccessToken,
			"google_refresh_token": bundle.RefreshToken,
			"google_token_expiry":  bundle.Expiry,
			"google_scopes":        datatypes.NewJSONSlice(bundle.Scopes),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save google tokens: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

// ClearGoogleTokens removes the stored bundle and turns ingestion off
func (r *UserRepository) ClearGoogleTokens(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"google_access_token":     nil,
			"google_refresh_token":    nil,
			"google_token_expiry":     nil,
			"google_scopes":           nil,
			"notes_ingestion_enabled": false,
		}).Error; err != nil {
		return fmt.Errorf("failed to clear google tokens: %w", err)
	}
	return nil
}

// SetNotesIngestion toggles the per-user ingestion flag
func (r *UserRepository) SetNotesIngestion(ctx context.Context, userID uuid.UUID, enabled bool) error {
	res := r.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("id = ?", userID).
		Update("notes_ingestion_enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("failed to update notes ingestion flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

// ListNotesEligible lists users whose Drive the notes sweep scans
func (r *UserRepository) ListNotesEligible(ctx context.Context) ([]*entities.User, error) {
	var users []*entities.User
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND notes_ingestion_enabled = ?", true, true).
		Where("role IN ?", []entities.UserRole{entities.RoleTeam, entities.RoleAdmin}).
		Where("google_refresh_token IS NOT NULL AND google_refresh_token <> ''").
		Order("email ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list notes eligible users: %w", err)
	}
	return users, nil
}
