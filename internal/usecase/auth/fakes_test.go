package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*entities.User
	saved   []*entities.TokenBundle
	cleared []uuid.UUID
}

func newFakeUserRepo(users ...*entities.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*entities.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) FindByOAuth(_ context.Context, provider, oauthID string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.OAuthProvider != nil && *u.OAuthProvider == provider && u.OAuthID != nil && *u.OAuthID == oauthID {
			return u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) SaveGoogleTokens(_ context.Context, _ uuid.UUID, b *entities.TokenBundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, b)
	return nil
}

func (r *fakeUserRepo) ClearGoogleTokens(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, id)
	return nil
}

func (r *fakeUserRepo) SetNotesIngestion(_ context.Context, id uuid.UUID, enabled bool) error {
	return nil
}

func (r *fakeUserRepo) ListNotesEligible(context.Context) ([]*entities.User, error) {
	return nil, nil
}

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*entities.Session
	revokeAll []uuid.UUID
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entities.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *entities.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return nil, entities.ErrSessionNotFound
}

func (r *fakeSessionRepo) FindByRefreshToken(_ context.Context, token string) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RefreshToken == token && s.RevokedAt == nil {
			return s, nil
		}
	}
	return nil, entities.ErrSessionNotFound
}

func (r *fakeSessionRepo) UpdateLastUsed(context.Context, uuid.UUID) error { return nil }

func (r *fakeSessionRepo) Revoke(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (r *fakeSessionRepo) RevokeAllByUserID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revokeAll = append(r.revokeAll, id)
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(context.Context, time.Time) error { return nil }

// fakeProvider returns queued results in order; when a queue is empty the
// last entry is repeated.
type fakeProvider struct {
	mu          sync.Mutex
	exchange    []result
	refresh     []result
	revokeErr   []error
	calls       map[string]int
	lastScopes  []string
	lastState   string
	lastRefresh string
	lastRevoked string
}

type result struct {
	tok *oauth2.Token
	err error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: make(map[string]int)}
}

func (p *fakeProvider) AuthCodeURL(state string, scopes []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["url"]++
	p.lastState, p.lastScopes = state, scopes
	return "https://accounts.example/auth?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["exchange"]++
	return next(&p.exchange)
}

func (p *fakeProvider) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["refresh"]++
	p.lastRefresh = refreshToken
	return next(&p.refresh)
}

func (p *fakeProvider) Revoke(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["revoke"]++
	p.lastRevoked = token
	if len(p.revokeErr) == 0 {
		return nil
	}
	err := p.revokeErr[0]
	if len(p.revokeErr) > 1 {
		p.revokeErr = p.revokeErr[1:]
	}
	return err
}

func (p *fakeProvider) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func next(q *[]result) (*oauth2.Token, error) {
	if len(*q) == 0 {
		return nil, nil
	}
	r := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return r.tok, r.err
}

type statusErr int

func (e statusErr) Error() string       { return "upstream status" }
func (e statusErr) ResponseStatus() int { return int(e) }

type instantTimer struct{ c chan time.Time }

func (t *instantTimer) Start(time.Duration) {
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }
