package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// ContactRepository implements the contact repository interface using GORM
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// FindByEmails returns the contacts matching any of emails
func (r *ContactRepository) FindByEmails(ctx context.Context, emails []string) ([]*entities.Contact, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	var contacts []*entities.Contact
	if err := r.db.WithContext(ctx).
		Where("lower(email) IN ?", emails).
		Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to find contacts by email: %w", err)
	}
	return contacts, nil
}

// Create creates a new contact
func (r *ContactRepository) Create(ctx context.Context, contact *entities.Contact) error {
	contact.Email = entities.NormalizeEmail(contact.Email)
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// EntityRepository implements the CRM entity repository interface using GORM
type EntityRepository struct {
	db *gorm.DB
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// FindByRef finds an entity by type and ID
func (r *EntityRepository) FindByRef(ctx context.Context, ref entities.EntityRef) (*entities.CRMEntity, error) {
	var entity entities.CRMEntity
	if err := r.db.WithContext(ctx).
		Where("id = ? AND type = ?", ref.ID, ref.Type).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to find entity: %w", err)
	}
	return &entity, nil
}

// Create creates a new entity
func (r *EntityRepository) Create(ctx context.Context, entity *entities.CRMEntity) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// MeetingRepository implements the meeting repository interface using GORM
type MeetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// ListByEntity lists meetings attributed to ref, newest first
func (r *MeetingRepository) ListByEntity(ctx context.Context, ref entities.EntityRef, limit, offset int) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", ref.Type, ref.ID).
		Order("date DESC").
		Limit(limit).
		Offset(offset).
		Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// FindByID finds a meeting by source file ID
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*entities.Meeting, error) {
	var meeting entities.Meeting
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to find meeting: %w", err)
	}
	return &meeting, nil
}

// ActivityRepository implements the activity repository interface using GORM
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an activity
func (r *ActivityRepository) Create(ctx context.Context, activity *entities.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// ListByEntity lists the most recent activities of ref
func (r *ActivityRepository) ListByEntity(ctx context.Context, ref entities.EntityRef, limit int) ([]*entities.Activity, error) {
	var activities []*entities.Activity
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", ref.Type, ref.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// LeadRepository implements the lead repository interface using GORM
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create creates a new lead
func (r *LeadRepository) Create(ctx context.Context, lead *entities.Lead) error {
	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entities.ErrLeadAlreadyExists
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// FindByID finds a lead by ID
func (r *LeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Lead, error) {
	var lead entities.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return &lead, nil
}

// List lists leads, optionally filtered by status
func (r *LeadRepository) List(ctx context.Context, status entities.LeadStatus, limit, offset int) ([]*entities.Lead, error) {
	var leads []*entities.Lead
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}
