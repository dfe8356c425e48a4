// Package notes runs the periodic sweep that turns meeting recordings and
// generated notes in team members' Drives into CRM meeting records.
package notes

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/domain/repositories"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/google"
	"github.com/seedbridge/crm-portal/internal/infrastructure/lease"
	"github.com/seedbridge/crm-portal/internal/infrastructure/storage"
	"github.com/seedbridge/crm-portal/internal/usecase/matcher"
	"github.com/seedbridge/crm-portal/pkg/jobcontext"
)

// JobName keys the sweep lease.
const JobName = "notes-ingestion"

// UserStore returns the team members whose Drives are swept and pauses
// ingestion for those whose Google grant was revoked
type UserStore interface {
	ListNotesEligible(ctx context.Context) ([]*entities.User, error)
	SetNotesIngestion(ctx context.Context, id uuid.UUID, enabled bool) error
}

// TokenSourcer hands out Google credentials for a team member
type TokenSourcer interface {
	TokenSource(ctx context.Context, user *entities.User) (oauth2.TokenSource, error)
}

// Scanner lists and exports Drive files
type Scanner interface {
	Scan(ctx context.Context, ts oauth2.TokenSource, owner string, since time.Time) ([]entities.DriveFile, error)
	ExportText(ctx context.Context, ts oauth2.TokenSource, fileID string) (string, error)
}

// ParticipantResolver finds who attended the meeting behind a file
type ParticipantResolver interface {
	Participants(ctx context.Context, ts oauth2.TokenSource, file entities.DriveFile) (*entities.MeetingParticipants, error)
}

// EntityMatcher attributes participants to a CRM entity
type EntityMatcher interface {
	Match(ctx context.Context, in matcher.MatchInput) (*matcher.Match, error)
}

// Archiver stores exported notes text
type Archiver interface {
	UploadText(ctx context.Context, objectName string, content string) error
}

// Notifier tells a team member about an ingested meeting
type Notifier interface {
	MeetingIngested(ctx context.Context, user *entities.User, meeting *entities.Meeting) error
}

// Config tunes the sweep.
type Config struct {
	Lookback         time.Duration
	SweepTimeout     time.Duration
	DeadlineMargin   time.Duration
	LeaseTTL         time.Duration
	MaxMatchAttempts int
	NameMarker       string
}

// SweepSummary reports what one sweep did.
type SweepSummary struct {
	SweepID          uuid.UUID     `json:"sweep_id"`
	StartedAt        time.Time     `json:"started_at"`
	Users            int           `json:"users"`
	FailedUsers      int           `json:"failed_users"`
	RevokedUsers     int           `json:"revoked_users"`
	Files            int           `json:"files"`
	Skipped          int           `json:"skipped"`
	Ingested         int           `json:"ingested"`
	Unmatched        int           `json:"unmatched"`
	FlaggedForReview int           `json:"flagged_for_review"`
	Errors           int           `json:"errors"`
	Truncated        bool          `json:"truncated"`
	Duration         time.Duration `json:"duration_ns"`
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeIngested
	outcomeUnmatched
	outcomeFlagged
)

// Service is the notes ingestion orchestrator.
type Service struct {
	users        UserStore
	notes        repositories.NotesRepository
	tokens       TokenSourcer
	scanner      Scanner
	participants ParticipantResolver
	matcher      EntityMatcher
	locker       lease.Locker
	archiver     Archiver
	notifier     Notifier
	cfg          Config
	logger       *zap.Logger

	running atomic.Bool
	now     func() time.Time
}

// Deps groups the collaborators of the service. Archiver and Notifier are
// optional.
type Deps struct {
	Users        UserStore
	Notes        repositories.NotesRepository
	Tokens       TokenSourcer
	Scanner      Scanner
	Participants ParticipantResolver
	Matcher      EntityMatcher
	Locker       lease.Locker
	Archiver     Archiver
	Notifier     Notifier
}

// NewService creates the orchestrator
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if cfg.MaxMatchAttempts < 1 {
		cfg.MaxMatchAttempts = 6
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 15 * time.Minute
	}
	return &Service{
		users:        deps.Users,
		notes:        deps.Notes,
		tokens:       deps.Tokens,
		scanner:      deps.Scanner,
		participants: deps.Participants,
		matcher:      deps.Matcher,
		locker:       deps.Locker,
		archiver:     deps.Archiver,
		notifier:     deps.Notifier,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// RunSweep scans every eligible team member's Drive once. It returns
// entities.ErrSweepInProgress without doing any work when another sweep
// holds the lease. Per-user and per-file failures are counted in the
// summary and never abort the sweep.
func (s *Service) RunSweep(ctx context.Context) (*SweepSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, entities.ErrSweepInProgress
	}
	defer s.running.Store(false)

	ctx, cancel := jobcontext.Begin(ctx, JobName, s.cfg.SweepTimeout)
	defer cancel()
	meta := jobcontext.GetJobMetadata(ctx)

	held, err := s.locker.TryAcquire(ctx, JobName, s.cfg.LeaseTTL)
	if errors.Is(err, lease.ErrHeld) {
		return nil, entities.ErrSweepInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lease: %w", err)
	}
	defer s.release(ctx, held)

	summary := &SweepSummary{SweepID: meta.JobID, StartedAt: meta.StartTime}
	log := s.logger.With(zap.String("sweep_id", meta.JobID.String()))
	log.Info("notes.sweep_started")

	users, err := s.users.ListNotesEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible users: %w", err)
	}

	for _, user := range users {
		if jobcontext.ShouldStop(ctx, s.cfg.DeadlineMargin) {
			summary.Truncated = true
			break
		}
		if !user.EligibleForNotes() {
			continue
		}

		summary.Users++
		err := jobcontext.Run(ctx, func(ctx context.Context) error {
			return s.sweepUser(ctx, log, user, summary)
		})
		if err != nil {
			summary.FailedUsers++
			summary.Errors++
			log.Error("notes.user_failed", zap.String("user", user.Email), zap.Error(err))
		}
		if summary.Truncated {
			break
		}
	}

	summary.Duration = s.now().Sub(meta.StartTime)
	log.Info("notes.sweep_completed",
		zap.Int("users", summary.Users),
		zap.Int("failed_users", summary.FailedUsers),
		zap.Int("revoked_users", summary.RevokedUsers),
		zap.Int("files", summary.Files),
		zap.Int("skipped", summary.Skipped),
		zap.Int("ingested", summary.Ingested),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("flagged", summary.FlaggedForReview),
		zap.Int("errors", summary.Errors),
		zap.Bool("truncated", summary.Truncated),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// ReviewQueue returns files that could not be matched within the attempt cap
func (s *Service) ReviewQueue(ctx context.Context, limit, offset int) ([]*entities.NoteMatchAttempt, error) {
	return s.notes.ListNeedsReview(ctx, limit, offset)
}

func (s *Service) release(ctx context.Context, held lease.Lease) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := held.Release(releaseCtx); err != nil {
		s.logger.Warn("notes.lease_release_failed", zap.Error(err))
	}
}

func (s *Service) sweepUser(ctx context.Context, log *zap.Logger, user *entities.User, summary *SweepSummary) error {
	log = log.With(zap.String("user", user.Email))

	ts, err := s.tokens.TokenSource(ctx, user)
	if err != nil {
		s.checkRevoked(ctx, log, user, summary, err)
		return fmt.Errorf("token source: %w", err)
	}

	files, err := s.scanner.Scan(ctx, ts, user.Email, s.now().Add(-s.cfg.Lookback))
	if err != nil {
		s.checkRevoked(ctx, log, user, summary, err)
		return fmt.Errorf("scan drive: %w", err)
	}

	for _, file := range files {
		if jobcontext.ShouldStop(ctx, s.cfg.DeadlineMargin) {
			summary.Truncated = true
			log.Warn("notes.deadline_reached", zap.Int("files", len(files)))
			return nil
		}
		summary.Files++

		var result outcome
		err := jobcontext.Run(ctx, func(ctx context.Context) error {
			var err error
			result, err = s.processFile(ctx, log, user, ts, file)
			return err
		})
		if err != nil {
			summary.Errors++
			log.Error("notes.file_failed", zap.String("file_id", file.ID), zap.Error(err))
			continue
		}

		switch result {
		case outcomeSkipped:
			summary.Skipped++
		case outcomeIngested:
			summary.Ingested++
		case outcomeUnmatched:
			summary.Unmatched++
		case outcomeFlagged:
			summary.Unmatched++
			summary.FlaggedForReview++
		}
	}
	return nil
}

// checkRevoked turns ingestion off for a user whose Google grant is gone so
// later sweeps stop retrying it. Reconnecting and re-enabling restores it.
func (s *Service) checkRevoked(ctx context.Context, log *zap.Logger, user *entities.User, summary *SweepSummary, err error) {
	if !google.IsGrantRevoked(err) {
		return
	}
	summary.RevokedUsers++
	log.Warn("notes.grant_revoked", zap.Error(err))

	if err := s.users.SetNotesIngestion(ctx, user.ID, false); err != nil {
		log.Error("notes.pause_ingestion_failed", zap.Error(err))
		return
	}
	user.NotesIngestion = false
}

func (s *Service) processFile(ctx context.Context, log *zap.Logger, user *entities.User, ts oauth2.TokenSource, file entities.DriveFile) (outcome, error) {
	log = log.With(zap.String("file_id", file.ID))

	processed, err := s.notes.IsProcessed(ctx, file.ID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("check processed: %w", err)
	}
	if processed {
		log.Debug("notes.already_processed")
		return outcomeSkipped, nil
	}

	attempt, err := s.notes.FindAttempt(ctx, file.ID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("find match attempt: %w", err)
	}
	if attempt != nil && attempt.NeedsReview {
		log.Debug("notes.awaiting_review", zap.Int("attempts", attempt.Attempts))
		return outcomeSkipped, nil
	}

	var text string
	if file.IsNotesDoc() {
		text, err = s.scanner.ExportText(ctx, ts, file.ID)
		if err != nil {
			log.Warn("notes.export_failed", zap.Error(err))
		}
	}

	people := s.resolveParticipants(ctx, log, ts, file, text)
	match, err := s.matcher.Match(ctx, matcher.MatchInput{
		Participants: people.Emails,
		Organizer:    people.Organizer,
		Internal:     []string{user.Email},
	})
	if err != nil {
		return outcomeSkipped, fmt.Errorf("match entity: %w", err)
	}

	if match == nil {
		recorded, err := s.notes.RecordUnmatched(ctx, file, s.cfg.MaxMatchAttempts)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("record unmatched: %w", err)
		}
		log.Info("notes.unmatched",
			zap.Int("participants", len(people.Emails)),
			zap.Int("attempts", recorded.Attempts),
			zap.Bool("needs_review", recorded.NeedsReview),
		)
		if recorded.NeedsReview {
			return outcomeFlagged, nil
		}
		return outcomeUnmatched, nil
	}

	record := s.buildRecord(user, file, people, match)
	if err := s.notes.CommitIngestion(ctx, record); err != nil {
		return outcomeSkipped, fmt.Errorf("commit ingestion: %w", err)
	}
	log.Info("notes.ingested",
		zap.String("entity_type", string(match.Entity.Type)),
		zap.String("entity_id", match.Entity.ID.String()),
		zap.String("reason", string(match.Reason)),
	)

	s.archive(ctx, log, record.Meeting, text)
	if s.notifier != nil {
		if err := s.notifier.MeetingIngested(ctx, user, record.Meeting); err != nil {
			log.Warn("notes.notify_failed", zap.Error(err))
		}
	}
	return outcomeIngested, nil
}

func (s *Service) resolveParticipants(ctx context.Context, log *zap.Logger, ts oauth2.TokenSource, file entities.DriveFile, text string) *entities.MeetingParticipants {
	if s.participants != nil {
		people, err := s.participants.Participants(ctx, ts, file)
		if err != nil {
			log.Warn("notes.calendar_lookup_failed", zap.Error(err))
		}
		if people != nil && len(people.Emails) > 0 {
			return people
		}
	}
	return &entities.MeetingParticipants{
		Emails: ParseEmails(text, file.Description),
		Source: SourceNotesText,
	}
}

func (s *Service) buildRecord(user *entities.User, file entities.DriveFile, people *entities.MeetingParticipants, match *matcher.Match) *entities.IngestionRecord {
	now := s.now()

	title := people.Title
	if title == "" {
		title = MeetingTitle(file.Name, s.cfg.NameMarker)
	}
	date := people.Start
	if date.IsZero() {
		date = file.CreatedTime
	}

	meeting := &entities.Meeting{
		ID:           file.ID,
		Title:        title,
		Date:         date,
		Participants: append([]string(nil), people.Emails...),
		EntityType:   match.Entity.Type,
		EntityID:     match.Entity.ID,
		NotesLink:    file.WebViewLink,
		Source:       entities.MeetingSourceDrive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ref := match.Entity
	activity := entities.NewActivity(entities.ActivityMeetingIngested, "Meeting notes ingested: "+title, &ref, map[string]interface{}{
		"file_id":            file.ID,
		"owner":              user.Email,
		"notes_link":         file.WebViewLink,
		"match_reason":       string(match.Reason),
		"participant_source": people.Source,
	})
	actor := user.ID
	activity.ActorID = &actor

	return &entities.IngestionRecord{
		Entity:   ref,
		Meeting:  meeting,
		Activity: activity,
		Marker: &entities.ProcessedNote{
			FileID:      file.ID,
			ProcessedAt: now,
			EntityType:  ref.Type,
			EntityID:    ref.ID,
		},
	}
}

func (s *Service) archive(ctx context.Context, log *zap.Logger, meeting *entities.Meeting, text string) {
	if s.archiver == nil || text == "" {
		return
	}
	key := storage.NotesKey(meeting.Ref(), meeting.ID)
	if err := s.archiver.UploadText(ctx, key, text); err != nil {
		log.Warn("notes.archive_failed", zap.Error(err))
		return
	}
	if err := s.notes.SetArchiveKey(ctx, meeting.ID, key); err != nil {
		log.Warn("notes.archive_key_failed", zap.Error(err))
		return
	}
	meeting.ArchiveKey = &key
}
