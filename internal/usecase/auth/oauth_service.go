package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/domain/repositories"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/oauth"
	"github.com/seedbridge/crm-portal/pkg/jwt"
)

// loginSubject binds sign-in states, which are issued before a user exists.
const loginSubject = "login"

// OAuthService handles Google sign-in for the team dashboard
type OAuthService struct {
	userRepo     repositories.UserRepository
	sessionRepo  repositories.SessionRepository
	google       *oauth.GoogleProvider
	stateManager StateManager
	jwtManager   *jwt.Manager
	logger       *zap.Logger
}

// StateManager issues and consumes CSRF state tokens
type StateManager interface {
	GenerateState(ctx context.Context, subject string) (string, error)
	ValidateState(ctx context.Context, state, subject string) bool
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	google *oauth.GoogleProvider,
	stateManager StateManager,
	jwtManager *jwt.Manager,
	logger *zap.Logger,
) *OAuthService {
	return &OAuthService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		google:       google,
		stateManager: stateManager,
		jwtManager:   jwtManager,
		logger:       logger,
	}
}

// GoogleAuthURLResponse represents the response for auth URL request
type GoogleAuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// GetGoogleAuthURL generates the Google sign-in URL
func (s *OAuthService) GetGoogleAuthURL(ctx context.Context) (*GoogleAuthURLResponse, error) {
	state, err := s.stateManager.GenerateState(ctx, loginSubject)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	return &GoogleAuthURLResponse{
		URL:   s.google.GetAuthURL(state),
		State: state,
	}, nil
}

// GoogleCallbackRequest represents the callback request
type GoogleCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User         *entities.User `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"-"`
	ExpiresIn    int64          `json:"expires_in"`
	SessionID    string         `json:"session_id,omitempty"`
}

// HandleGoogleCallback signs the user in, creating the account on first login
func (s *OAuthService) HandleGoogleCallback(ctx context.Context, req *GoogleCallbackRequest) (*AuthResponse, error) {
	if !s.stateManager.ValidateState(ctx, req.State, loginSubject) {
		return nil, entities.ErrOAuthStateMismatch
	}
	if req.Code == "" {
		return nil, entities.ErrOAuthCodeMissing
	}

	token, err := s.google.ExchangeCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	googleUser, err := s.google.GetUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	user, err := s.findOrCreateUser(ctx, googleUser)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, entities.ErrUnauthorized
	}

	resp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("auth.login", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	return resp, nil
}

func (s *OAuthService) findOrCreateUser(ctx context.Context, googleUser *oauth.GoogleUserInfo) (*entities.User, error) {
	user, err := s.userRepo.FindByOAuth(ctx, "google", googleUser.ID)
	if err == nil {
		user.UpdateLastLogin()
		user.AvatarURL = &googleUser.Picture
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, entities.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// A user invited by email signs in with Google for the first time
	existing, err := s.userRepo.FindByEmail(ctx, entities.NormalizeEmail(googleUser.Email))
	if err == nil {
		provider := "google"
		existing.OAuthProvider = &provider
		existing.OAuthID = &googleUser.ID
		existing.AvatarURL = &googleUser.Picture
		existing.UpdateLastLogin()
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to link accounts: %w", err)
		}
		return existing, nil
	}
	if !errors.Is(err, entities.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user = entities.NewOAuthUser(googleUser.Email, googleUser.Name, "google", googleUser.ID)
	user.AvatarURL = &googleUser.Picture
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *OAuthService) issueSession(ctx context.Context, user *entities.User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	hashed, err := s.jwtManager.HashToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session := entities.NewSession(user.ID, hashed, time.Now().Add(s.jwtManager.GetRefreshExpiry()))
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetAccessExpiry().Seconds()),
		SessionID:    session.ID.String(),
	}, nil
}

// RefreshAccessToken issues a new access token for a valid refresh token
func (s *OAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, entities.ErrInvalidToken
	}

	session, err := s.findSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !session.IsValid() || session.UserID != userID {
		return nil, entities.ErrSessionExpired
	}

	_ = s.sessionRepo.UpdateLastUsed(ctx, session.ID)

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive {
		return nil, entities.ErrUnauthorized
	}

	newAccessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: newAccessToken,
		ExpiresIn:   int64(s.jwtManager.GetAccessExpiry().Seconds()),
		SessionID:   session.ID.String(),
	}, nil
}

// ValidateSession validates an access token and returns its user
func (s *OAuthService) ValidateSession(ctx context.Context, token string) (*entities.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, entities.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, entities.ErrUnauthorized
	}

	return user, nil
}

// Logout revokes the session behind refreshToken
func (s *OAuthService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.findSession(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.sessionRepo.Revoke(ctx, session.ID)
}

// LogoutAll revokes all sessions for a user
func (s *OAuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.sessionRepo.RevokeAllByUserID(ctx, userID)
}

func (s *OAuthService) findSession(ctx context.Context, refreshToken string) (*entities.Session, error) {
	hashed, err := s.jwtManager.HashToken(refreshToken)
	if err != nil {
		return nil, entities.ErrInvalidToken
	}
	session, err := s.sessionRepo.FindByRefreshToken(ctx, hashed)
	if err != nil {
		return nil, entities.ErrSessionNotFound
	}
	return session, nil
}
