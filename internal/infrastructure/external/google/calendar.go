package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

const (
	ParticipantSourceCalendar = "calendar"

	// Notes and recordings are written during or shortly after the meeting.
	defaultLookBefore = 3 * time.Hour
	defaultLookAfter  = time.Hour
)

// CalendarConfig tunes the resolver.
type CalendarConfig struct {
	Limiter *RateLimiter
	Retry   []retry.Option
}

// CalendarResolver finds the calendar event a Drive file was produced from.
type CalendarResolver struct {
	factory *ClientFactory
	call    caller
	before  time.Duration
	after   time.Duration
	logger  *zap.Logger
}

// NewCalendarResolver creates a resolver
func NewCalendarResolver(factory *ClientFactory, cfg CalendarConfig, logger *zap.Logger) *CalendarResolver {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(ServiceCalendar)
	}
	return &CalendarResolver{
		factory: factory,
		call:    caller{limiter: cfg.Limiter, retry: cfg.Retry},
		before:  defaultLookBefore,
		after:   defaultLookAfter,
		logger:  logger,
	}
}

// Participants returns the attendees of the event behind file, or nil when
// no event could be found. An event that references the file as an
// attachment wins over one that only overlaps in time with a matching title.
func (r *CalendarResolver) Participants(ctx context.Context, ts oauth2.TokenSource, file entities.DriveFile) (*entities.MeetingParticipants, error) {
	if file.CreatedTime.IsZero() {
		return nil, nil
	}

	svc, err := r.factory.NewCalendarService(ctx, ts)
	if err != nil {
		return nil, err
	}

	events, err := call(ctx, r.call, func(ctx context.Context) (*calendar.Events, error) {
		return svc.Events.List("primary").
			TimeMin(file.CreatedTime.Add(-r.before).Format(time.RFC3339)).
			TimeMax(file.CreatedTime.Add(r.after).Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	event := pickEvent(events.Items, file)
	if event == nil {
		r.logger.Debug("calendar.no_event", zap.String("file_id", file.ID))
		return nil, nil
	}
	return toParticipants(event), nil
}

func pickEvent(events []*calendar.Event, file entities.DriveFile) *calendar.Event {
	for _, ev := range events {
		for _, att := range ev.Attachments {
			if att.FileId == file.ID {
				return ev
			}
		}
	}

	name := strings.ToLower(file.Name)
	for _, ev := range events {
		title := strings.ToLower(strings.TrimSpace(ev.Summary))
		if title != "" && strings.Contains(name, title) {
			return ev
		}
	}
	return nil
}

func toParticipants(ev *calendar.Event) *entities.MeetingParticipants {
	p := &entities.MeetingParticipants{
		Title:  ev.Summary,
		Source: ParticipantSourceCalendar,
	}
	if ev.Start != nil && ev.Start.DateTime != "" {
		p.Start, _ = time.Parse(time.RFC3339, ev.Start.DateTime)
	}
	if ev.Organizer != nil {
		p.Organizer = entities.NormalizeEmail(ev.Organizer.Email)
	}

	seen := make(map[string]bool)
	for _, a := range ev.Attendees {
		if a.Resource || a.Email == "" {
			continue
		}
		email := entities.NormalizeEmail(a.Email)
		if !seen[email] {
			seen[email] = true
			p.Emails = append(p.Emails, email)
		}
	}
	if p.Organizer != "" && !seen[p.Organizer] {
		p.Emails = append(p.Emails, p.Organizer)
	}
	return p
}
