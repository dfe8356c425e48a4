package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// ContactRepository defines the interface for contact lookups
type ContactRepository interface {
	// FindByEmails returns the contacts whose email is in emails.
	// Emails must already be normalised.
	FindByEmails(ctx context.Context, emails []string) ([]*entities.Contact, error)

	// Create creates a new contact
	Create(ctx context.Context, contact *entities.Contact) error
}

// EntityRepository defines the interface for CRM entity data access
type EntityRepository interface {
	// FindByRef finds an entity by type and ID
	FindByRef(ctx context.Context, ref entities.EntityRef) (*entities.CRMEntity, error)

	// Create creates a new entity
	Create(ctx context.Context, entity *entities.CRMEntity) error
}

// MeetingRepository defines the interface for meeting reads
type MeetingRepository interface {
	// ListByEntity returns the meetings attributed to ref, newest first
	ListByEntity(ctx context.Context, ref entities.EntityRef, limit, offset int) ([]*entities.Meeting, error)

	// FindByID finds a meeting by its source file ID
	FindByID(ctx context.Context, id string) (*entities.Meeting, error)
}

// ActivityRepository defines the interface for the audit log
type ActivityRepository interface {
	Create(ctx context.Context, activity *entities.Activity) error
	ListByEntity(ctx context.Context, ref entities.EntityRef, limit int) ([]*entities.Activity, error)
}

// LeadRepository defines the interface for lead intake
type LeadRepository interface {
	Create(ctx context.Context, lead *entities.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Lead, error)
	List(ctx context.Context, status entities.LeadStatus, limit, offset int) ([]*entities.Lead, error)
}
