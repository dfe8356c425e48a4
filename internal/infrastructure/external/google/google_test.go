package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

type instantTimer struct {
	c chan time.Time
}

func (t *instantTimer) Start(time.Duration) {
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }

func testFactory(t *testing.T, handler http.HandlerFunc) *ClientFactory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := NewClientFactory(option.WithEndpoint(srv.URL + "/"))
	f.base = srv.Client()
	return f
}

func testTokens() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access", TokenType: "Bearer"})
}

func testRetry() []retry.Option {
	return []retry.Option{retry.WithTimer(&instantTimer{}), retry.WithRand(func() float64 { return 0 })}
}

func unlimited() *RateLimiter {
	return NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 0, BurstSize: 1})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBuildQuery(t *testing.T) {
	since := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	q := BuildQuery("o'brien@seedbridge.vc", since)

	assert.Equal(t,
		`(mimeType contains 'video/' or mimeType = 'application/vnd.google-apps.document') and createdTime > '2026-03-01T08:30:00Z' and 'o\'brien@seedbridge.vc' in owners and trashed = false`,
		q)
}

func TestDriveScanner_ScanFiltersDocsByMarker(t *testing.T) {
	var query, order, auth string
	f := testFactory(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		order = r.URL.Query().Get("orderBy")
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"files": []map[string]interface{}{
				{"id": "rec-1", "name": "Acme sync recording", "mimeType": "video/mp4", "createdTime": "2026-03-01T10:00:00Z", "webViewLink": "https://drive/rec-1"},
				{"id": "doc-1", "name": "Acme sync - Notes by Gemini", "mimeType": entities.MimeGoogleDoc, "createdTime": "2026-03-01T11:00:00Z", "owners": []map[string]string{{"emailAddress": "Ana@seedbridge.vc"}}},
				{"id": "doc-2", "name": "Quarterly plan", "mimeType": entities.MimeGoogleDoc, "createdTime": "2026-03-01T12:00:00Z"},
			},
		})
	})

	s := NewDriveScanner(f, DriveConfig{Limiter: unlimited(), Retry: testRetry()}, zap.NewNop())
	files, err := s.Scan(context.Background(), testTokens(), "ana@seedbridge.vc", time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "rec-1", files[0].ID)
	assert.True(t, files[0].IsRecording())
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), files[0].CreatedTime)
	assert.Equal(t, "ana@seedbridge.vc", files[0].OwnerEmail)
	assert.Equal(t, "doc-1", files[1].ID)
	assert.Equal(t, "ana@seedbridge.vc", files[1].OwnerEmail)

	assert.Contains(t, query, "createdTime > '2026-02-28T12:00:00Z'")
	assert.Equal(t, "createdTime", order)
	assert.Equal(t, "Bearer access", auth)
}

func TestDriveScanner_ScanRetriesThrottling(t *testing.T) {
	var calls int32
	f := testFactory(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{"error": map[string]interface{}{"code": 429, "message": "rate limited"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"files": []map[string]interface{}{{"id": "rec-1", "mimeType": "video/mp4", "createdTime": "2026-03-01T10:00:00Z"}}})
	})

	s := NewDriveScanner(f, DriveConfig{Limiter: unlimited(), Retry: testRetry()}, zap.NewNop())
	files, err := s.Scan(context.Background(), testTokens(), "ana@seedbridge.vc", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDriveScanner_ScanFailureYieldsNoFiles(t *testing.T) {
	var calls int32
	f := testFactory(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"error": map[string]interface{}{"code": 403, "message": "forbidden"}})
	})

	s := NewDriveScanner(f, DriveConfig{Limiter: unlimited(), Retry: testRetry()}, zap.NewNop())
	files, err := s.Scan(context.Background(), testTokens(), "ana@seedbridge.vc", time.Now())
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "forbidden is not retried")
	status, _ := retry.StatusOf(err)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestFilePager_WalksPages(t *testing.T) {
	f := testFactory(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"nextPageToken": "page-2",
				"files":         []map[string]interface{}{{"id": "a", "mimeType": "video/mp4", "createdTime": "2026-03-01T10:00:00Z"}},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"files": []map[string]interface{}{{"id": "b", "mimeType": "video/webm", "createdTime": "2026-03-01T11:00:00Z"}},
		})
	})

	s := NewDriveScanner(f, DriveConfig{Limiter: unlimited(), Retry: testRetry()}, zap.NewNop())
	pager, err := s.ScanPages(context.Background(), testTokens(), "ana@seedbridge.vc", time.Now())
	require.NoError(t, err)

	first, more, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, "a", first[0].ID)

	second, more, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, "b", second[0].ID)

	rest, more, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, more)
	assert.Empty(t, rest)
}

func TestDriveScanner_ExportText(t *testing.T) {
	f := testFactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/files/doc-1/export"))
		assert.Equal(t, "text/plain", r.URL.Query().Get("mimeType"))
		_, _ = w.Write([]byte("Attendees: founder@acme.io"))
	})

	s := NewDriveScanner(f, DriveConfig{Limiter: unlimited(), Retry: testRetry()}, zap.NewNop())
	text, err := s.ExportText(context.Background(), testTokens(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Attendees: founder@acme.io", text)
}

func calendarFactory(t *testing.T, items []map[string]interface{}) *ClientFactory {
	return testFactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"))
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
	})
}

func TestCalendarResolver_AttachmentWins(t *testing.T) {
	f := calendarFactory(t, []map[string]interface{}{
		{"summary": "Acme sync", "attendees": []map[string]interface{}{{"email": "someone@else.io"}}},
		{
			"summary":     "Weekly",
			"start":       map[string]string{"dateTime": "2026-03-01T10:00:00Z"},
			"organizer":   map[string]string{"email": "Founder@Acme.io"},
			"attachments": []map[string]string{{"fileId": "doc-1"}},
			"attendees": []map[string]interface{}{
				{"email": "ana@seedbridge.vc"},
				{"email": "room-4@resource.calendar.google.com", "resource": true},
				{"email": "cfo@acme.io"},
			},
		},
	})

	r := NewCalendarResolver(f, CalendarConfig{Limiter: unlimited(), Retry: testRetry()}, zap.NewNop())
	p, err := r.Participants(context.Background(), testTokens(), entities.DriveFile{
		ID:          "doc-1",
		Name:        "Acme sync - Notes by Gemini",
		CreatedTime: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "Weekly", p.Title)
	assert.Equal(t, "founder@acme.io", p.Organizer)
	assert.Equal(t, []string{"ana@seedbridge.vc", "cfo@acme.io", "founder@acme.io"}, p.Emails)
	assert.Equal(t, ParticipantSourceCalendar, p.Source)
}

func TestCalendarResolver_TitleMatchAndMiss(t *testing.T) {
	f := calendarFactory(t, []map[string]interface{}{
		{"summary": "Board prep"},
		{"summary": "Acme Sync", "attendees": []map[string]interface{}{{"email": "founder@acme.io"}}},
	})
	r := NewCalendarResolver(f, CalendarConfig{Limiter: unlimited(), Retry: testRetry()}, zap.NewNop())
	created := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	p, err := r.Participants(context.Background(), testTokens(), entities.DriveFile{ID: "doc-1", Name: "acme sync - Notes by Gemini", CreatedTime: created})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []string{"founder@acme.io"}, p.Emails)

	p, err = r.Participants(context.Background(), testTokens(), entities.DriveFile{ID: "doc-2", Name: "Unrelated", CreatedTime: created})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRateLimiter_RetryAfterBlocks(t *testing.T) {
	r := unlimited()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Wait(context.Background()))
	r.RecordRetryAfter(30)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)

	now = now.Add(31 * time.Second)
	require.NoError(t, r.Wait(context.Background()))

	r.RecordRetryAfter(0)
	require.NoError(t, r.Wait(context.Background()))
}

func TestIsGrantRevoked(t *testing.T) {
	invalidGrant := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}, ErrorCode: "invalid_grant"}

	assert.True(t, IsGrantRevoked(invalidGrant))
	assert.True(t, IsGrantRevoked(fmt.Errorf("list files: %w", retry.Permanent(invalidGrant))))
	assert.True(t, IsGrantRevoked(&googleapi.Error{Code: http.StatusUnauthorized}))

	assert.False(t, IsGrantRevoked(&oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}))
	assert.False(t, IsGrantRevoked(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, IsGrantRevoked(errors.New("dial tcp: connection refused")))
	assert.False(t, IsGrantRevoked(nil))
}
