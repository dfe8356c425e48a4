package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	appErrors "github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/google"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

func TestTokenSource_DriveScanSpendsOneRefreshBudget(t *testing.T) {
	f := newFixture(t)
	f.user.SetTokenBundle(&entities.TokenBundle{AccessToken: "stale", RefreshToken: "rt", Expiry: time.Now().Add(-time.Minute)})
	f.provider.refresh = []result{{err: statusErr(http.StatusServiceUnavailable)}}

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	scanner := google.NewDriveScanner(
		google.NewClientFactory(option.WithEndpoint(srv.URL+"/")),
		google.DriveConfig{
			Limiter: google.NewRateLimiterWithConfig(google.RateLimitConfig{BurstSize: 1}),
			Retry:   []retry.Option{retry.WithTimer(&instantTimer{}), retry.WithRand(func() float64 { return 0 })},
		},
		zap.NewNop(),
	)

	ts, err := f.svc.TokenSource(context.Background(), f.user)
	require.NoError(t, err)

	files, err := scanner.Scan(context.Background(), ts, f.user.Email, time.Now().Add(-24*time.Hour))
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Equal(t, appErrors.ErrorCode_UNAVAILABLE, appCode(t, err))
	assert.Equal(t, retry.DefaultMaxRetries, f.provider.count("refresh"))
	assert.Zero(t, atomic.LoadInt32(&hits), "no request leaves without a token")
	assert.Empty(t, f.users.saved)
}
