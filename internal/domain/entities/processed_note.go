package entities

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedNote marks a source file as ingested. It is written once, as the
// last step of a successful ingestion, and never updated.
type ProcessedNote struct {
	FileID      string     `json:"file_id" gorm:"type:varchar(255);primary_key"`
	ProcessedAt time.Time  `json:"processed_at" gorm:"type:timestamptz;not null"`
	EntityType  EntityType `json:"entity_type" gorm:"type:varchar(20);not null"`
	EntityID    uuid.UUID  `json:"entity_id" gorm:"type:uuid;not null"`
}

// NoteMatchAttempt counts failed matches for a file. Once Attempts reaches
// the configured cap the file is flagged for manual review.
type NoteMatchAttempt struct {
	FileID        string    `json:"file_id" gorm:"type:varchar(255);primary_key"`
	FileName      string    `json:"file_name" gorm:"type:varchar(500)"`
	OwnerEmail    string    `json:"owner_email" gorm:"type:varchar(255);index"`
	WebViewLink   string    `json:"web_view_link" gorm:"type:text"`
	Attempts      int       `json:"attempts" gorm:"not null;default:0"`
	NeedsReview   bool      `json:"needs_review" gorm:"not null;default:false;index"`
	LastAttemptAt time.Time `json:"last_attempt_at" gorm:"type:timestamptz;not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by NoteMatchAttempt
func (NoteMatchAttempt) TableName() string {
	return "note_match_attempts"
}
