package notes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

type fakeUsers struct {
	users  []*entities.User
	paused []uuid.UUID
}

func (f *fakeUsers) ListNotesEligible(context.Context) ([]*entities.User, error) {
	return f.users, nil
}

func (f *fakeUsers) SetNotesIngestion(_ context.Context, id uuid.UUID, enabled bool) error {
	if !enabled {
		f.paused = append(f.paused, id)
	}
	return nil
}

type fakeTokens struct {
	failFor map[string]bool
}

func (f *fakeTokens) TokenSource(_ context.Context, user *entities.User) (oauth2.TokenSource, error) {
	if f.failFor[user.Email] {
		return nil, errors.New("refresh token revoked")
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at-" + user.Email}), nil
}

type fakeScanner struct {
	mu      sync.Mutex
	files   map[string][]entities.DriveFile
	texts   map[string]string
	scanErr map[string]error
	scans   []string
	exports []string
}

func (f *fakeScanner) Scan(_ context.Context, _ oauth2.TokenSource, owner string, _ time.Time) ([]entities.DriveFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, owner)
	if err := f.scanErr[owner]; err != nil {
		return nil, err
	}
	return f.files[owner], nil
}

func (f *fakeScanner) ExportText(_ context.Context, _ oauth2.TokenSource, fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, fileID)
	return f.texts[fileID], nil
}

type fakeResolver struct {
	byFile map[string]*entities.MeetingParticipants
	calls  []string
}

func (f *fakeResolver) Participants(_ context.Context, _ oauth2.TokenSource, file entities.DriveFile) (*entities.MeetingParticipants, error) {
	f.calls = append(f.calls, file.ID)
	return f.byFile[file.ID], nil
}

type fakeContacts struct {
	contacts []*entities.Contact
	queries  int
}

func (f *fakeContacts) FindByEmails(_ context.Context, emails []string) ([]*entities.Contact, error) {
	f.queries++
	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[e] = true
	}
	var out []*entities.Contact
	for _, c := range f.contacts {
		if want[c.Email] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContacts) Create(_ context.Context, c *entities.Contact) error {
	f.contacts = append(f.contacts, c)
	return nil
}

type fakeNotesRepo struct {
	mu          sync.Mutex
	processed   map[string]bool
	attempts    map[string]*entities.NoteMatchAttempt
	commits     []*entities.IngestionRecord
	archiveKeys map[string]string
	commitErr   error
}

func newFakeNotesRepo() *fakeNotesRepo {
	return &fakeNotesRepo{
		processed:   make(map[string]bool),
		attempts:    make(map[string]*entities.NoteMatchAttempt),
		archiveKeys: make(map[string]string),
	}
}

func (r *fakeNotesRepo) IsProcessed(_ context.Context, fileID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed[fileID], nil
}

func (r *fakeNotesRepo) FindAttempt(_ context.Context, fileID string) (*entities.NoteMatchAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[fileID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeNotesRepo) RecordUnmatched(_ context.Context, file entities.DriveFile, maxAttempts int) (*entities.NoteMatchAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[file.ID]
	if !ok {
		a = &entities.NoteMatchAttempt{FileID: file.ID, FileName: file.Name, OwnerEmail: file.OwnerEmail}
		r.attempts[file.ID] = a
	}
	a.Attempts++
	a.LastAttemptAt = time.Now()
	a.NeedsReview = a.Attempts >= maxAttempts
	cp := *a
	return &cp, nil
}

func (r *fakeNotesRepo) CommitIngestion(_ context.Context, record *entities.IngestionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.commits = append(r.commits, record)
	r.processed[record.Marker.FileID] = true
	return nil
}

func (r *fakeNotesRepo) SetArchiveKey(_ context.Context, meetingID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archiveKeys[meetingID] = key
	return nil
}

func (r *fakeNotesRepo) ListNeedsReview(_ context.Context, limit, offset int) ([]*entities.NoteMatchAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.NoteMatchAttempt
	for _, a := range r.attempts {
		if a.NeedsReview {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeArchiver struct {
	objects map[string]string
}

func (f *fakeArchiver) UploadText(_ context.Context, key, content string) error {
	f.objects[key] = content
	return nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) MeetingIngested(_ context.Context, user *entities.User, m *entities.Meeting) error {
	f.sent = append(f.sent, user.Email+":"+m.ID)
	return f.err
}

func teamMember(email string) *entities.User {
	u := entities.NewUser(email, email)
	u.Role = entities.RoleTeam
	u.SetTokenBundle(&entities.TokenBundle{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)})
	u.NotesIngestion = true
	return u
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
