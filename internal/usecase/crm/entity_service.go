package crm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/domain/repositories"
)

// Presigner issues download links for archived notes
type Presigner interface {
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// MeetingView is a meeting row plus a temporary link to its archived notes.
type MeetingView struct {
	*entities.Meeting
	ArchiveURL string `json:"archive_url,omitempty"`
}

// EntityMeetings is everything the dashboard shows for an entity's meetings.
type EntityMeetings struct {
	Entity   *entities.CRMEntity           `json:"entity"`
	Portal   []entities.PortalMeetingEntry `json:"portal"`
	Meetings []MeetingView                 `json:"meetings"`
}

// EntityService serves dashboard reads
type EntityService struct {
	entities  repositories.EntityRepository
	meetings  repositories.MeetingRepository
	presigner Presigner
	linkTTL   time.Duration
	logger    *zap.Logger
}

// NewEntityService creates an entity service. presigner may be nil when the
// notes archive is disabled.
func NewEntityService(entityRepo repositories.EntityRepository, meetings repositories.MeetingRepository, presigner Presigner, logger *zap.Logger) *EntityService {
	return &EntityService{
		entities:  entityRepo,
		meetings:  meetings,
		presigner: presigner,
		linkTTL:   15 * time.Minute,
		logger:    logger,
	}
}

// Meetings returns the entity with its portal entries and meeting rows
func (s *EntityService) Meetings(ctx context.Context, ref entities.EntityRef, limit, offset int) (*EntityMeetings, error) {
	if !ref.Type.IsValid() {
		return nil, entities.ErrInvalidEntityType
	}

	entity, err := s.entities.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	rows, err := s.meetings.ListByEntity(ctx, ref, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	portal := make([]entities.PortalMeetingEntry, 0, len(entity.Meetings.Data()))
	for _, entry := range entity.Meetings.Data() {
		portal = append(portal, entry)
	}
	sort.Slice(portal, func(i, j int) bool { return portal[i].Date.After(portal[j].Date) })

	views := make([]MeetingView, 0, len(rows))
	for _, m := range rows {
		view := MeetingView{Meeting: m}
		if m.ArchiveKey != nil && s.presigner != nil {
			url, err := s.presigner.PresignedURL(ctx, *m.ArchiveKey, s.linkTTL)
			if err != nil {
				s.logger.Warn("meeting.presign_failed", zap.String("meeting_id", m.ID), zap.Error(err))
			} else {
				view.ArchiveURL = url
			}
		}
		views = append(views, view)
	}

	return &EntityMeetings{Entity: entity, Portal: portal, Meetings: views}, nil
}
