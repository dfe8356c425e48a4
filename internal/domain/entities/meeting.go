package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Meeting is the CRM record of one meeting, keyed by the Drive file id of its
// recording or notes. Summary, Notes and Source are edited by hand in the
// dashboard and are never overwritten by ingestion.
type Meeting struct {
	ID           string                      `json:"id" gorm:"type:varchar(255);primary_key"`
	Title        string                      `json:"title" gorm:"type:varchar(500);not null"`
	Date         time.Time                   `json:"date" gorm:"type:timestamptz;not null;index"`
	Participants datatypes.JSONSlice[string] `json:"participants" gorm:"type:jsonb;default:'[]'"`
	EntityType   EntityType                  `json:"entity_type" gorm:"type:varchar(20);not null;index:idx_meetings_entity"`
	EntityID     uuid.UUID                   `json:"entity_id" gorm:"type:uuid;not null;index:idx_meetings_entity"`
	NotesLink    string                      `json:"notes_link" gorm:"type:text"`
	Summary      *string                     `json:"summary,omitempty" gorm:"type:text"`
	Notes        *string                     `json:"notes,omitempty" gorm:"type:text"`
	Source       string                      `json:"source" gorm:"type:varchar(50);default:'manual'"`
	ArchiveKey   *string                     `json:"archive_key,omitempty" gorm:"type:text"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time                   `json:"updated_at" gorm:"autoUpdateTime"`
}

// MeetingSourceDrive marks meetings created by notes ingestion.
const MeetingSourceDrive = "google_drive"

// IngestedColumns are the columns notes ingestion owns on conflict.
var IngestedColumns = []string{"title", "date", "participants", "entity_type", "entity_id", "notes_link", "updated_at"}

// Ref returns the entity the meeting is attributed to.
func (m *Meeting) Ref() EntityRef {
	return EntityRef{Type: m.EntityType, ID: m.EntityID}
}

// PortalEntry returns the summary written onto the entity row.
func (m *Meeting) PortalEntry() PortalMeetingEntry {
	return PortalMeetingEntry{
		ID:    m.ID,
		Title: m.Title,
		Date:  m.Date,
		Link:  m.NotesLink,
	}
}
