package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/seedbridge/crm-portal/internal/infrastructure/cache"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	g := NewGoogleProvider("client-id", "client-secret", "http://localhost/login/callback", "http://localhost/integrations/google")
	endpoint := oauth2.Endpoint{AuthURL: ts.URL + "/auth", TokenURL: ts.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	g.login.Endpoint = endpoint
	g.integration.Endpoint = endpoint
	g.httpClient = ts.Client()
	g.revokeURL = ts.URL + "/revoke"
	g.userInfoURL = ts.URL + "/userinfo"
	return g
}

func TestAuthCodeURL_RequestsOfflineConsent(t *testing.T) {
	g := NewGoogleProvider("client-id", "secret", "http://localhost/cb", "http://localhost/integration")

	raw := g.AuthCodeURL("state-1", []string{"https://www.googleapis.com/auth/drive.readonly", "https://www.googleapis.com/auth/calendar.readonly"})
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "http://localhost/integration", q.Get("redirect_uri"))
	assert.Equal(t, "https://www.googleapis.com/auth/drive.readonly https://www.googleapis.com/auth/calendar.readonly", q.Get("scope"))
}

func TestExchange(t *testing.T) {
	g := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "code-123", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	tok, err := g.Exchange(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
}

func TestRefresh_ServerErrorIsRetryable(t *testing.T) {
	g := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"backend_error"}`))
	})

	_, err := g.Refresh(context.Background(), "refresh")
	require.Error(t, err)
	status, ok := retry.StatusOf(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.True(t, retry.Retryable(err))
}

func TestRevoke(t *testing.T) {
	var revoked string
	g := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/revoke", r.URL.Path)
		require.NoError(t, r.ParseForm())
		revoked = r.Form.Get("token")
		if revoked == "unknown" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, g.Revoke(context.Background(), "refresh"))
	assert.Equal(t, "refresh", revoked)

	err := g.Revoke(context.Background(), "unknown")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)
	assert.False(t, retry.Retryable(err))
}

func TestGetUserInfo(t *testing.T) {
	g := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(GoogleUserInfo{ID: "g-1", Email: "ana@seedbridge.vc", Name: "Ana"})
	})

	info, err := g.GetUserInfo(context.Background(), &oauth2.Token{AccessToken: "access", TokenType: "Bearer"})
	require.NoError(t, err)
	assert.Equal(t, "ana@seedbridge.vc", info.Email)
}

func TestStateManager_BoundAndSingleUse(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	sm := NewStateManager(store)

	state, err := sm.GenerateState(ctx, "user-1")
	require.NoError(t, err)

	other, err := sm.GenerateState(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, state, other)

	assert.False(t, sm.ValidateState(ctx, other, "user-2"), "state issued to another subject")
	assert.False(t, sm.ValidateState(ctx, other, "user-1"), "state consumed by failed attempt")

	assert.True(t, sm.ValidateState(ctx, state, "user-1"))
	assert.False(t, sm.ValidateState(ctx, state, "user-1"), "state reused")
	assert.False(t, sm.ValidateState(ctx, "", "user-1"))
}

func TestStateManager_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	sm := NewStateManager(store)

	state, err := sm.GenerateState(ctx, "user-1")
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sm.ValidateState(ctx, state, "user-1") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&wins))
}
