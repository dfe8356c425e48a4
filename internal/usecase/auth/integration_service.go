package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	appErrors "github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/domain/repositories"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

// TokenProvider performs the OAuth2 exchanges with Google
type TokenProvider interface {
	AuthCodeURL(state string, scopes []string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Revoke(ctx context.Context, token string) error
}

// IntegrationService manages the Google Drive/Calendar connection of a
// signed-in team member. Every operation requires the caller's identity.
type IntegrationService struct {
	provider     TokenProvider
	stateManager StateManager
	userRepo     repositories.UserRepository
	sessionRepo  repositories.SessionRepository
	retry        []retry.Option
	logger       *zap.Logger
}

// NewIntegrationService creates the service
func NewIntegrationService(
	provider TokenProvider,
	stateManager StateManager,
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	logger *zap.Logger,
	retryOpts ...retry.Option,
) *IntegrationService {
	return &IntegrationService{
		provider:     provider,
		stateManager: stateManager,
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		retry:        append([]retry.Option{retry.WithLogger(logger)}, retryOpts...),
		logger:       logger,
	}
}

// BuildAuthorizationURL returns the consent URL for scopes. The embedded
// state can only be redeemed by the same user.
func (s *IntegrationService) BuildAuthorizationURL(ctx context.Context, identity *entities.User, scopes []string) (string, error) {
	if identity == nil {
		return "", appErrors.ErrUnauthenticated()
	}
	scopes = compact(scopes)
	if len(scopes) == 0 {
		return "", appErrors.ErrInvalidArgument(entities.ErrOAuthScopesMissing.Error())
	}

	state, err := s.stateManager.GenerateState(ctx, identity.ID.String())
	if err != nil {
		return "", appErrors.ErrInternal(fmt.Errorf("failed to generate state: %w", err))
	}
	return s.provider.AuthCodeURL(state, scopes), nil
}

// ExchangeCodeForTokens redeems an authorization code and stores the
// resulting bundle on the caller's record.
func (s *IntegrationService) ExchangeCodeForTokens(ctx context.Context, identity *entities.User, code, state string) (*entities.TokenBundle, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated()
	}
	if code == "" {
		return nil, appErrors.ErrInvalidArgument(entities.ErrOAuthCodeMissing.Error())
	}
	if !s.stateManager.ValidateState(ctx, state, identity.ID.String()) {
		return nil, appErrors.ErrOAuthStateMismatch()
	}

	tok, err := retry.Do(ctx, func(ctx context.Context) (*oauth2.Token, error) {
		return s.provider.Exchange(ctx, code)
	}, s.retry...)
	if err != nil {
		return nil, oauthError("exchange", err)
	}

	var previous string
	if identity.GoogleRefreshToken != nil {
		previous = *identity.GoogleRefreshToken
	}
	bundle := entities.TokenBundleFromOAuth2(tok, previous, grantedScopes(tok))
	if bundle.RefreshToken == "" {
		return nil, appErrors.ErrOAuthFailed("google", entities.ErrRefreshTokenMissing)
	}

	if err := s.userRepo.SaveGoogleTokens(ctx, identity.ID, bundle); err != nil {
		return nil, appErrors.ErrDBQueryFailed("save google tokens", err)
	}
	identity.SetTokenBundle(bundle)

	s.logger.Info("google.connected", zap.String("user_id", identity.ID.String()), zap.Strings("scopes", bundle.Scopes))
	return bundle, nil
}

// RefreshAccessToken obtains a fresh access token and stores it. The
// refresh token is kept when Google does not rotate it.
func (s *IntegrationService) RefreshAccessToken(ctx context.Context, identity *entities.User, refreshToken string) (*entities.TokenBundle, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated()
	}
	if refreshToken == "" {
		return nil, appErrors.ErrInvalidArgument(entities.ErrRefreshTokenMissing.Error())
	}

	bundle, err := s.refresh(ctx, identity.ID, refreshToken, identity.GoogleScopes)
	if err != nil {
		return nil, err
	}
	identity.SetTokenBundle(bundle)
	return bundle, nil
}

// Revoke disconnects Google. The remote revoke is best effort; the caller's
// sessions and stored tokens are removed whatever its outcome.
func (s *IntegrationService) Revoke(ctx context.Context, identity *entities.User, refreshToken string) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated()
	}
	if refreshToken == "" {
		return appErrors.ErrInvalidArgument(entities.ErrRefreshTokenMissing.Error())
	}

	_, err := retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.provider.Revoke(ctx, refreshToken)
	}, s.retry...)
	if err != nil {
		s.logger.Warn("google.revoke_failed", zap.String("user_id", identity.ID.String()), zap.Error(err))
	}

	if err := s.sessionRepo.RevokeAllByUserID(ctx, identity.ID); err != nil {
		return appErrors.ErrDBQueryFailed("revoke sessions", err)
	}
	if err := s.userRepo.ClearGoogleTokens(ctx, identity.ID); err != nil {
		return appErrors.ErrDBQueryFailed("clear google tokens", err)
	}
	identity.ClearTokenBundle()

	s.logger.Info("google.disconnected", zap.String("user_id", identity.ID.String()))
	return nil
}

// SetNotesIngestion toggles the caller's notes ingestion flag. Enabling
// requires a connected Google account.
func (s *IntegrationService) SetNotesIngestion(ctx context.Context, identity *entities.User, enabled bool) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated()
	}
	if enabled && !identity.HasGoogleConnection() {
		return appErrors.ErrGoogleNotConnected(identity.Email)
	}
	if err := s.userRepo.SetNotesIngestion(ctx, identity.ID, enabled); err != nil {
		return appErrors.ErrDBQueryFailed("set notes ingestion", err)
	}
	identity.NotesIngestion = enabled
	return nil
}

// TokenSource returns a token source for user's stored credentials. Expired
// access tokens are refreshed through the retrying refresh path and the
// rotated bundle is persisted.
func (s *IntegrationService) TokenSource(ctx context.Context, user *entities.User) (oauth2.TokenSource, error) {
	bundle := user.TokenBundle()
	if bundle == nil {
		return nil, entities.ErrGoogleNotConnected
	}
	return oauth2.ReuseTokenSource(bundle.OAuth2(), &refreshingSource{
		ctx:     ctx,
		svc:     s,
		userID:  user.ID,
		refresh: bundle.RefreshToken,
		scopes:  bundle.Scopes,
	}), nil
}

func (s *IntegrationService) refresh(ctx context.Context, userID uuid.UUID, refreshToken string, scopes []string) (*entities.TokenBundle, error) {
	tok, err := retry.Do(ctx, func(ctx context.Context) (*oauth2.Token, error) {
		return s.provider.Refresh(ctx, refreshToken)
	}, s.retry...)
	if err != nil {
		return nil, oauthError("refresh", err)
	}

	if granted := grantedScopes(tok); len(granted) > 0 {
		scopes = granted
	}
	bundle := entities.TokenBundleFromOAuth2(tok, refreshToken, scopes)
	if err := s.userRepo.SaveGoogleTokens(ctx, userID, bundle); err != nil {
		return nil, appErrors.ErrDBQueryFailed("save google tokens", err)
	}
	return bundle, nil
}

type refreshingSource struct {
	mu      sync.Mutex
	ctx     context.Context
	svc     *IntegrationService
	userID  uuid.UUID
	refresh string
	scopes  []string
}

func (r *refreshingSource) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The refresh has its own retry budget; API calls made with this source
	// must not spend theirs on it again.
	bundle, err := r.svc.refresh(r.ctx, r.userID, r.refresh, r.scopes)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	r.refresh = bundle.RefreshToken
	return bundle.OAuth2(), nil
}

func oauthError(op string, err error) error {
	if retry.Retryable(err) {
		return appErrors.ErrUnavailable("google oauth", err).WithDetail("operation", op)
	}
	return appErrors.ErrOAuthFailed("google", err).WithDetail("operation", op)
}

func grantedScopes(tok *oauth2.Token) []string {
	scope, _ := tok.Extra("scope").(string)
	return strings.Fields(scope)
}

func compact(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
