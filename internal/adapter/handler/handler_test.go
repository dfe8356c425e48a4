package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	httpmw "github.com/seedbridge/crm-portal/internal/infrastructure/http/middleware"
	"github.com/seedbridge/crm-portal/internal/usecase/crm"
	"github.com/seedbridge/crm-portal/internal/usecase/notes"
	"github.com/seedbridge/crm-portal/pkg/config"
	pkgvalidator "github.com/seedbridge/crm-portal/pkg/validator"
)

type fakeSessions struct {
	users map[string]*entities.User
}

func (f *fakeSessions) ValidateSession(_ context.Context, token string) (*entities.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, entities.ErrInvalidToken
}

type fakeNotes struct {
	summary *notes.SweepSummary
	err     error
	queue   []*entities.NoteMatchAttempt
	limit   int
}

func (f *fakeNotes) RunSweep(context.Context) (*notes.SweepSummary, error) {
	return f.summary, f.err
}

func (f *fakeNotes) ReviewQueue(_ context.Context, limit, _ int) ([]*entities.NoteMatchAttempt, error) {
	f.limit = limit
	return f.queue, nil
}

type fakeLeads struct {
	got crm.SubmitLead
	err error
}

func (f *fakeLeads) Submit(_ context.Context, in crm.SubmitLead) (*entities.Lead, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return entities.NewLead(in.Name, in.Email, in.Company), nil
}

func (f *fakeLeads) List(context.Context, entities.LeadStatus, int, int) ([]*entities.Lead, error) {
	return nil, nil
}

type fakeEntities struct {
	err error
}

func (f *fakeEntities) Meetings(_ context.Context, ref entities.EntityRef, _, _ int) (*crm.EntityMeetings, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &crm.EntityMeetings{Entity: &entities.CRMEntity{ID: ref.ID, Type: ref.Type, Name: "Acme"}}, nil
}

type fakeIntegration struct {
	enabled *bool
	err     error
}

func (f *fakeIntegration) BuildAuthorizationURL(_ context.Context, _ *entities.User, scopes []string) (string, error) {
	return "https://accounts.google.com/o/oauth2/auth?scope=" + strings.Join(scopes, "+"), nil
}

func (f *fakeIntegration) ExchangeCodeForTokens(context.Context, *entities.User, string, string) (*entities.TokenBundle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entities.TokenBundle{AccessToken: "at", RefreshToken: "secret-refresh", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeIntegration) RefreshAccessToken(context.Context, *entities.User, string) (*entities.TokenBundle, error) {
	return nil, f.err
}

func (f *fakeIntegration) Revoke(context.Context, *entities.User, string) error { return f.err }

func (f *fakeIntegration) SetNotesIngestion(_ context.Context, u *entities.User, enabled bool) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = &enabled
	u.NotesIngestion = enabled
	return nil
}

type testServer struct {
	e           *echo.Echo
	notes       *fakeNotes
	leads       *fakeLeads
	entities    *fakeEntities
	integration *fakeIntegration
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	team := entities.NewUser("ana@seedbridge.vc", "Ana")
	team.Role = entities.RoleTeam
	viewer := entities.NewUser("guest@example.com", "Guest")
	sessions := &fakeSessions{users: map[string]*entities.User{"team-token": team, "viewer-token": viewer}}

	ts := &testServer{
		e:           echo.New(),
		notes:       &fakeNotes{},
		leads:       &fakeLeads{},
		entities:    &fakeEntities{},
		integration: &fakeIntegration{},
	}
	ts.e.Validator = pkgvalidator.New()
	ts.e.HTTPErrorHandler = ErrorHandler(logger)

	cfg := &config.Config{Server: config.ServerConfig{Environment: "test"}}
	router := NewRouter(
		cfg,
		NewAuth(nil, logger, cfg),
		NewIntegration(ts.integration, logger),
		NewNotes(ts.notes, logger),
		NewCRM(ts.leads, ts.entities, logger),
		httpmw.EchoAuth(sessions),
		httpmw.OptionalAuth(sessions),
		map[string]HealthCheck{"database": func(context.Context) error { return nil }},
	)
	router.Setup(ts.e)
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSweep_ReturnsSummary(t *testing.T) {
	ts := newTestServer(t)
	ts.notes.summary = &notes.SweepSummary{Users: 2, Ingested: 3}

	rec := ts.do(http.MethodPost, "/v1/notes/sweep", "team-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["ingested"])
}

func TestSweep_InProgressIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.notes.err = entities.ErrSweepInProgress

	rec := ts.do(http.MethodPost, "/v1/notes/sweep", "team-token", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "failed-precondition", decode(t, rec)["code"])
}

func TestSweep_InternalErrorHidesCause(t *testing.T) {
	ts := newTestServer(t)
	ts.notes.err = errors.New("pq: connection refused")

	rec := ts.do(http.MethodPost, "/v1/notes/sweep", "team-token", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal", body["code"])
	assert.Nil(t, body["info"])
}

func TestSweep_RequiresTeamMember(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/notes/sweep", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decode(t, rec)["code"])

	rec = ts.do(http.MethodPost, "/v1/notes/sweep", "viewer-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission-denied", decode(t, rec)["code"])
}

func TestReview_Pagination(t *testing.T) {
	ts := newTestServer(t)
	ts.notes.queue = []*entities.NoteMatchAttempt{{FileID: "doc-1", Attempts: 6, NeedsReview: true}}

	rec := ts.do(http.MethodGet, "/v1/notes/review?limit=500", "team-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxLimit, ts.notes.limit)

	rec = ts.do(http.MethodGet, "/v1/notes/review?limit=-1", "team-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitLead(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/leads", "", `{"name":"Jo","email":"jo@acme.io","company":"Acme","stage":"seed","raise_amount":1500000}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "jo@acme.io", ts.leads.got.Email)
	require.NotNil(t, ts.leads.got.RaiseAmount)
	assert.Equal(t, int64(1500000), *ts.leads.got.RaiseAmount)

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "new", data["status"])
}

func TestSubmitLead_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/leads", "", `{"name":"Jo","email":"not-an-email","company":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "invalid-argument", body["code"])
	assert.Equal(t, map[string]interface{}{"email": "email"}, body["fields"])

	rec = ts.do(http.MethodPost, "/v1/leads", "", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntityMeetings(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()

	rec := ts.do(http.MethodGet, "/v1/entities/client/"+id.String()+"/meetings", "team-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/entities/client/not-a-uuid/meetings", "team-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.entities.err = entities.ErrEntityNotFound
	rec = ts.do(http.MethodGet, "/v1/entities/client/"+id.String()+"/meetings", "team-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not-found", decode(t, rec)["code"])
}

func TestIntegration_ExchangeHidesRefreshToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/integrations/google/exchange", "team-token", `{"code":"c","state":"s"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-refresh")
	assert.Contains(t, rec.Body.String(), `"access_token":"at"`)
}

func TestIntegration_ExchangeErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/integrations/google/exchange", "team-token", `{"code":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.integration.err = appErrors.ErrUnavailable("google oauth", errors.New("503"))
	rec = ts.do(http.MethodPost, "/v1/integrations/google/exchange", "team-token", `{"code":"c","state":"s"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode(t, rec)["code"])
}

func TestIntegration_Authorize(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/integrations/google/authorize?scopes=a,b", "team-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scope=a+b")
}

func TestIntegration_SetNotes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPut, "/v1/integrations/google/notes", "team-token", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.integration.enabled)
	assert.True(t, *ts.integration.enabled)

	rec = ts.do(http.MethodPut, "/v1/integrations/google/notes", "team-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.integration.err = appErrors.ErrGoogleNotConnected("ana@seedbridge.vc")
	rec = ts.do(http.MethodPut, "/v1/integrations/google/notes", "team-token", `{"enabled":true}`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = ts.do(http.MethodGet, "/v1/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not-found", decode(t, rec)["code"])
}
