package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EntityType identifies the kind of CRM record a meeting can be attributed to.
type EntityType string

const (
	EntityClient   EntityType = "client"
	EntityInvestor EntityType = "investor"
	EntityPartner  EntityType = "partner"
)

// IsValid checks if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityClient, EntityInvestor, EntityPartner:
		return true
	}
	return false
}

// EntityRef points at one CRM entity.
type EntityRef struct {
	Type EntityType `json:"entity_type"`
	ID   uuid.UUID  `json:"entity_id"`
}

// PortalMeetingEntry is the summary of a meeting shown on an entity's portal page.
type PortalMeetingEntry struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
	Link  string    `json:"link"`
}

// PortalMeetings maps source file id to its portal entry.
type PortalMeetings map[string]PortalMeetingEntry

// CRMEntity is a client company, investment firm or partner firm.
type CRMEntity struct {
	ID        uuid.UUID                          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Type      EntityType                         `json:"type" gorm:"type:varchar(20);not null;index"`
	Name      string                             `json:"name" gorm:"type:varchar(255);not null"`
	Stage     *string                            `json:"stage,omitempty" gorm:"type:varchar(50)"`
	Website   *string                            `json:"website,omitempty" gorm:"type:varchar(500)"`
	Meetings  datatypes.JSONType[PortalMeetings] `json:"meetings" gorm:"type:jsonb;default:'{}'"`
	CreatedAt time.Time                          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time                          `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by CRMEntity
func (CRMEntity) TableName() string {
	return "crm_entities"
}

// Ref returns the entity reference of e.
func (e *CRMEntity) Ref() EntityRef {
	return EntityRef{Type: e.Type, ID: e.ID}
}
