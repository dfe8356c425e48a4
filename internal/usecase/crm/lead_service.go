// Package crm holds the dashboard reads and the public lead intake.
package crm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/domain/repositories"
)

// LeadNotifier alerts the team about a new lead
type LeadNotifier interface {
	LeadSubmitted(ctx context.Context, lead *entities.Lead) error
}

// SubmitLead is a validated intake form.
type SubmitLead struct {
	Name        string
	Email       string
	Company     string
	Stage       string
	RaiseAmount *int64
	Message     string
	Source      string
}

// LeadService handles lead intake
type LeadService struct {
	leads      repositories.LeadRepository
	activities repositories.ActivityRepository
	notifier   LeadNotifier
	logger     *zap.Logger
}

// NewLeadService creates a lead service. notifier may be nil.
func NewLeadService(leads repositories.LeadRepository, activities repositories.ActivityRepository, notifier LeadNotifier, logger *zap.Logger) *LeadService {
	return &LeadService{leads: leads, activities: activities, notifier: notifier, logger: logger}
}

// Submit stores a lead, records it on the activity log and emails the team.
// Only the lead insert is required to succeed.
func (s *LeadService) Submit(ctx context.Context, in SubmitLead) (*entities.Lead, error) {
	lead := entities.NewLead(strings.TrimSpace(in.Name), in.Email, strings.TrimSpace(in.Company))
	lead.Stage = strings.TrimSpace(in.Stage)
	lead.RaiseAmount = in.RaiseAmount
	lead.Message = strings.TrimSpace(in.Message)
	lead.Source = strings.TrimSpace(in.Source)

	if lead.Name == "" || lead.Company == "" {
		return nil, entities.ErrInvalidRequest
	}
	if !strings.Contains(lead.Email, "@") {
		return nil, entities.ErrInvalidEmail
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	activity := entities.NewActivity(entities.ActivityLeadSubmitted, "Lead submitted: "+lead.Company, nil, map[string]interface{}{
		"lead_id": lead.ID.String(),
		"email":   lead.Email,
		"source":  lead.Source,
	})
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("lead.activity_failed", zap.String("lead_id", lead.ID.String()), zap.Error(err))
	}

	if s.notifier != nil {
		if err := s.notifier.LeadSubmitted(ctx, lead); err != nil {
			s.logger.Warn("lead.notify_failed", zap.String("lead_id", lead.ID.String()), zap.Error(err))
		}
	}

	s.logger.Info("lead.submitted", zap.String("lead_id", lead.ID.String()), zap.String("company", lead.Company))
	return lead, nil
}

// List returns leads, newest first. An empty status lists all of them.
func (s *LeadService) List(ctx context.Context, status entities.LeadStatus, limit, offset int) ([]*entities.Lead, error) {
	return s.leads.List(ctx, status, limit, offset)
}
