// Package notify composes the transactional emails sent by the portal.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/sendgrid"
)

// Sender delivers one email
type Sender interface {
	Send(ctx context.Context, msg sendgrid.Message) error
}

// Service sends portal notifications.
type Service struct {
	sender    Sender
	teamEmail string
	portalURL string
	logger    *zap.Logger
}

// NewService creates a notification service. Lead alerts go to teamEmail;
// links point into portalURL.
func NewService(sender Sender, teamEmail, portalURL string, logger *zap.Logger) *Service {
	return &Service{
		sender:    sender,
		teamEmail: teamEmail,
		portalURL: strings.TrimRight(portalURL, "/"),
		logger:    logger,
	}
}

// MeetingIngested tells the Drive owner which entity a meeting was filed under
func (s *Service) MeetingIngested(ctx context.Context, user *entities.User, meeting *entities.Meeting) error {
	entityURL := fmt.Sprintf("%s/%ss/%s", s.portalURL, meeting.EntityType, meeting.EntityID)
	subject := fmt.Sprintf("Meeting filed: %s", meeting.Title)

	text := fmt.Sprintf(
		"Your meeting %q on %s was added to the CRM.\n\nNotes: %s\nEntity: %s\n",
		meeting.Title, meeting.Date.Format("Jan 2, 2006 15:04 MST"), meeting.NotesLink, entityURL,
	)
	body := fmt.Sprintf(
		`<p>Your meeting <strong>%s</strong> on %s was added to the CRM.</p><p><a href="%s">Open notes</a> · <a href="%s">View %s</a></p>`,
		html.EscapeString(meeting.Title),
		html.EscapeString(meeting.Date.Format("Jan 2, 2006 15:04 MST")),
		html.EscapeString(meeting.NotesLink),
		html.EscapeString(entityURL),
		html.EscapeString(string(meeting.EntityType)),
	)

	if err := s.sender.Send(ctx, sendgrid.Message{
		ToEmail: user.Email,
		ToName:  user.Name,
		Subject: subject,
		Text:    text,
		HTML:    body,
	}); err != nil {
		return fmt.Errorf("send meeting notification: %w", err)
	}
	return nil
}

// LeadSubmitted alerts the team about a new intake form submission
func (s *Service) LeadSubmitted(ctx context.Context, lead *entities.Lead) error {
	if s.teamEmail == "" {
		s.logger.Debug("email.no_team_address", zap.String("lead_id", lead.ID.String()))
		return nil
	}

	lines := []string{
		"Name: " + lead.Name,
		"Email: " + lead.Email,
		"Company: " + lead.Company,
	}
	if lead.Stage != "" {
		lines = append(lines, "Stage: "+lead.Stage)
	}
	if lead.RaiseAmount != nil {
		lines = append(lines, fmt.Sprintf("Raise: $%d", *lead.RaiseAmount))
	}
	if lead.Source != "" {
		lines = append(lines, "Source: "+lead.Source)
	}
	if lead.Message != "" {
		lines = append(lines, "", lead.Message)
	}

	escaped := make([]string, len(lines))
	for i, l := range lines {
		escaped[i] = html.EscapeString(l)
	}

	if err := s.sender.Send(ctx, sendgrid.Message{
		ToEmail: s.teamEmail,
		Subject: fmt.Sprintf("New lead: %s", lead.Company),
		Text:    strings.Join(lines, "\n") + fmt.Sprintf("\n\n%s/leads/%s\n", s.portalURL, lead.ID),
		HTML:    "<p>" + strings.Join(escaped, "<br>") + "</p>",
	}); err != nil {
		return fmt.Errorf("send lead notification: %w", err)
	}
	return nil
}
