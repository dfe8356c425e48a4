package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityKind classifies audit log entries.
type ActivityKind string

const (
	ActivityMeetingIngested ActivityKind = "meeting_ingested"
	ActivityLeadSubmitted   ActivityKind = "lead_submitted"
)

// Activity is an append-only audit entry shown on the dashboard timeline.
type Activity struct {
	ID         uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Kind       ActivityKind      `json:"kind" gorm:"type:varchar(50);not null"`
	EntityType *EntityType       `json:"entity_type,omitempty" gorm:"type:varchar(20);index:idx_activities_entity"`
	EntityID   *uuid.UUID        `json:"entity_id,omitempty" gorm:"type:uuid;index:idx_activities_entity"`
	ActorID    *uuid.UUID        `json:"actor_id,omitempty" gorm:"type:uuid"`
	Title      string            `json:"title" gorm:"type:varchar(500);not null"`
	Metadata   datatypes.JSONMap `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	CreatedAt  time.Time         `json:"created_at" gorm:"autoCreateTime;index"`
}

// NewActivity creates an activity attributed to ref. A nil ref leaves the
// entry unattributed.
func NewActivity(kind ActivityKind, title string, ref *EntityRef, metadata map[string]interface{}) *Activity {
	a := &Activity{
		ID:        uuid.New(),
		Kind:      kind,
		Title:     title,
		Metadata:  datatypes.JSONMap(metadata),
		CreatedAt: time.Now(),
	}
	if ref != nil {
		t, id := ref.Type, ref.ID
		a.EntityType = &t
		a.EntityID = &id
	}
	return a
}
