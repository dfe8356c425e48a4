package auth

import (
	"context"
	stdErrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	appErrors "github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/infrastructure/cache"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/oauth"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

type fixture struct {
	svc      *IntegrationService
	provider *fakeProvider
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	state    *oauth.StateManager
	user     *entities.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	user := entities.NewUser("ana@seedbridge.vc", "Ana")
	user.Role = entities.RoleTeam

	f := &fixture{
		provider: newFakeProvider(),
		users:    newFakeUserRepo(user),
		sessions: newFakeSessionRepo(),
		state:    oauth.NewStateManager(store),
		user:     user,
	}
	f.svc = NewIntegrationService(f.provider, f.state, f.users, f.sessions, zap.NewNop(),
		retry.WithTimer(&instantTimer{}), retry.WithRand(func() float64 { return 0 }))
	return f
}

func appCode(t *testing.T, err error) appErrors.ErrorCode {
	t.Helper()
	var appErr appErrors.AppError
	require.True(t, stdErrors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func TestIntegration_RequiresIdentityBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BuildAuthorizationURL(ctx, nil, []string{"drive.readonly"})
	assert.Equal(t, appErrors.ErrorCode_UNAUTHENTICATED, appCode(t, err))

	_, err = f.svc.ExchangeCodeForTokens(ctx, nil, "code", "state")
	assert.Equal(t, appErrors.ErrorCode_UNAUTHENTICATED, appCode(t, err))

	_, err = f.svc.RefreshAccessToken(ctx, nil, "rt")
	assert.Equal(t, appErrors.ErrorCode_UNAUTHENTICATED, appCode(t, err))

	err = f.svc.Revoke(ctx, nil, "rt")
	assert.Equal(t, appErrors.ErrorCode_UNAUTHENTICATED, appCode(t, err))

	assert.Zero(t, f.provider.count("url"))
	assert.Zero(t, f.provider.count("exchange"))
	assert.Zero(t, f.provider.count("refresh"))
	assert.Zero(t, f.provider.count("revoke"))
}

func TestIntegration_InvalidArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BuildAuthorizationURL(ctx, f.user, []string{" ", ""})
	assert.Equal(t, appErrors.ErrorCode_INVALID_ARGUMENT, appCode(t, err))

	_, err = f.svc.ExchangeCodeForTokens(ctx, f.user, "", "state")
	assert.Equal(t, appErrors.ErrorCode_INVALID_ARGUMENT, appCode(t, err))

	_, err = f.svc.RefreshAccessToken(ctx, f.user, "")
	assert.Equal(t, appErrors.ErrorCode_INVALID_ARGUMENT, appCode(t, err))

	assert.Zero(t, f.provider.count("exchange"))
	assert.Zero(t, f.provider.count("refresh"))
}

func TestIntegration_AuthorizeThenExchange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provider.exchange = []result{
		{err: &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}},
		{tok: (&oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}).
			WithExtra(map[string]interface{}{"scope": "https://www.googleapis.com/auth/drive.readonly"})},
	}

	url, err := f.svc.BuildAuthorizationURL(ctx, f.user, []string{"https://www.googleapis.com/auth/drive.readonly"})
	require.NoError(t, err)
	assert.Contains(t, url, f.provider.lastState)

	bundle, err := f.svc.ExchangeCodeForTokens(ctx, f.user, "code", f.provider.lastState)
	require.NoError(t, err)
	assert.Equal(t, "at", bundle.AccessToken)
	assert.Equal(t, "rt", bundle.RefreshToken)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/drive.readonly"}, bundle.Scopes)
	assert.Equal(t, 2, f.provider.count("exchange"), "503 retried once")
	require.Len(t, f.users.saved, 1)
	assert.True(t, f.user.HasGoogleConnection())

	_, err = f.svc.ExchangeCodeForTokens(ctx, f.user, "code", f.provider.lastState)
	assert.Equal(t, appErrors.ErrorCode_AUTH_OAUTH_STATE_MISMATCH, appCode(t, err), "state is single use")
}

func TestIntegration_ExchangeStateBoundToUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BuildAuthorizationURL(ctx, f.user, []string{"drive.readonly"})
	require.NoError(t, err)

	other := entities.NewUser("bo@seedbridge.vc", "Bo")
	_, err = f.svc.ExchangeCodeForTokens(ctx, other, "code", f.provider.lastState)
	assert.Equal(t, appErrors.ErrorCode_AUTH_OAUTH_STATE_MISMATCH, appCode(t, err))
	assert.Zero(t, f.provider.count("exchange"))
}

func TestIntegration_RefreshKeepsRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.provider.refresh = []result{{tok: &oauth2.Token{AccessToken: "new-at", Expiry: time.Now().Add(time.Hour)}}}

	bundle, err := f.svc.RefreshAccessToken(context.Background(), f.user, "long-lived")
	require.NoError(t, err)
	assert.Equal(t, "new-at", bundle.AccessToken)
	assert.Equal(t, "long-lived", bundle.RefreshToken)
	assert.Equal(t, "long-lived", f.provider.lastRefresh)
	require.Len(t, f.users.saved, 1)
}

func TestIntegration_RefreshExhaustionSurfacesUnavailable(t *testing.T) {
	f := newFixture(t)
	f.provider.refresh = []result{{err: statusErr(http.StatusTooManyRequests)}}

	_, err := f.svc.RefreshAccessToken(context.Background(), f.user, "rt")
	assert.Equal(t, appErrors.ErrorCode_UNAVAILABLE, appCode(t, err))
	assert.Equal(t, retry.DefaultMaxRetries, f.provider.count("refresh"))
	assert.Empty(t, f.users.saved)
}

func TestIntegration_RefreshRejectedNotRetried(t *testing.T) {
	f := newFixture(t)
	f.provider.refresh = []result{{err: &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}, ErrorCode: "invalid_grant"}}}

	_, err := f.svc.RefreshAccessToken(context.Background(), f.user, "rt")
	assert.Equal(t, appErrors.ErrorCode_AUTH_OAUTH_FAILED, appCode(t, err))
	assert.Equal(t, 1, f.provider.count("refresh"))
}

func TestIntegration_RevokeClearsLocalStateEvenIfRemoteFails(t *testing.T) {
	f := newFixture(t)
	f.user.SetTokenBundle(&entities.TokenBundle{AccessToken: "at", RefreshToken: "rt"})
	f.user.NotesIngestion = true
	f.provider.revokeErr = []error{statusErr(http.StatusBadRequest)}

	require.NoError(t, f.svc.Revoke(context.Background(), f.user, "rt"))

	assert.Equal(t, 1, f.provider.count("revoke"))
	assert.Equal(t, "rt", f.provider.lastRevoked)
	assert.Equal(t, []uuid.UUID{f.user.ID}, f.sessions.revokeAll)
	assert.Equal(t, []uuid.UUID{f.user.ID}, f.users.cleared)
	assert.False(t, f.user.HasGoogleConnection())
	assert.False(t, f.user.NotesIngestion)
}

func TestIntegration_SetNotesIngestionRequiresConnection(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SetNotesIngestion(context.Background(), f.user, true)
	assert.Equal(t, appErrors.ErrorCode_INTEGRATION_NOT_CONNECTED, appCode(t, err))

	f.user.SetTokenBundle(&entities.TokenBundle{RefreshToken: "rt"})
	require.NoError(t, f.svc.SetNotesIngestion(context.Background(), f.user, true))
	assert.True(t, f.user.NotesIngestion)
}

func TestIntegration_TokenSourceRefreshesExpiredAndPersists(t *testing.T) {
	f := newFixture(t)
	f.user.SetTokenBundle(&entities.TokenBundle{AccessToken: "stale", RefreshToken: "rt", Expiry: time.Now().Add(-time.Minute)})
	f.provider.refresh = []result{
		{err: statusErr(http.StatusBadGateway)},
		{tok: &oauth2.Token{AccessToken: "fresh", RefreshToken: "rotated", Expiry: time.Now().Add(time.Hour)}},
	}

	ts, err := f.svc.TokenSource(context.Background(), f.user)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, 2, f.provider.count("refresh"))
	require.Len(t, f.users.saved, 1)
	assert.Equal(t, "rotated", f.users.saved[0].RefreshToken)

	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, 2, f.provider.count("refresh"), "valid token reused")
}

func TestIntegration_TokenSourceNotConnected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.TokenSource(context.Background(), f.user)
	assert.ErrorIs(t, err, entities.ErrGoogleNotConnected)
}
