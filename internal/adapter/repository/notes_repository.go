package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// NotesRepository implements the notes ingestion bookkeeping using GORM
type NotesRepository struct {
	db *gorm.DB
}

// NewNotesRepository creates a new notes repository
func NewNotesRepository(db *gorm.DB) *NotesRepository {
	return &NotesRepository{db: db}
}

// IsProcessed reports whether fileID already has a processed marker
func (r *NotesRepository) IsProcessed(ctx context.Context, fileID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.ProcessedNote{}).
		Where("file_id = ?", fileID).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check processed marker: %w", err)
	}
	return count > 0, nil
}

// FindAttempt returns the attempt row of fileID or nil
func (r *NotesRepository) FindAttempt(ctx context.Context, fileID string) (*entities.NoteMatchAttempt, error) {
	var attempt entities.NoteMatchAttempt
	if err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find match attempt: %w", err)
	}
	return &attempt, nil
}

// RecordUnmatched upserts the attempt row, incrementing the counter
func (r *NotesRepository) RecordUnmatched(ctx context.Context, file entities.DriveFile, maxAttempts int) (*entities.NoteMatchAttempt, error) {
	now := time.Now()
	attempt := &entities.NoteMatchAttempt{
		FileID:        file.ID,
		FileName:      file.Name,
		OwnerEmail:    file.OwnerEmail,
		WebViewLink:   file.WebViewLink,
		Attempts:      1,
		NeedsReview:   maxAttempts <= 1,
		LastAttemptAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "file_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"attempts":        gorm.Expr("note_match_attempts.attempts + 1"),
					"needs_review":    gorm.Expr("note_match_attempts.attempts + 1 >= ?", maxAttempts),
					"last_attempt_at": now,
				}),
			},
			clause.Returning{},
		).
		Create(attempt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record unmatched file: %w", err)
	}
	return attempt, nil
}

// CommitIngestion writes all records of a matched file in one transaction
func (r *NotesRepository) CommitIngestion(ctx context.Context, record *entities.IngestionRecord) error {
	entry, err := json.Marshal(record.Meeting.PortalEntry())
	if err != nil {
		return fmt.Errorf("failed to encode portal entry: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.CRMEntity{}).
			Where("id = ? AND type = ?", record.Entity.ID, record.Entity.Type).
			Update("meetings", gorm.Expr(
				"coalesce(meetings, '{}'::jsonb) || jsonb_build_object(?::text, ?::jsonb)",
				record.Meeting.ID, string(entry),
			))
		if res.Error != nil {
			return fmt.Errorf("failed to upsert portal entry: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return entities.ErrEntityNotFound
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(entities.IngestedColumns),
		}).Create(record.Meeting).Error; err != nil {
			return fmt.Errorf("failed to upsert meeting: %w", err)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record.Activity).Error; err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record.Marker).Error; err != nil {
			return fmt.Errorf("failed to insert processed marker: %w", err)
		}
		return nil
	})
}

// SetArchiveKey stores the archive object key on a meeting
func (r *NotesRepository) SetArchiveKey(ctx context.Context, meetingID, key string) error {
	if err := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", meetingID).
		Update("archive_key", key).Error; err != nil {
		return fmt.Errorf("failed to set archive key: %w", err)
	}
	return nil
}

// ListNeedsReview lists files flagged for manual review, oldest first
func (r *NotesRepository) ListNeedsReview(ctx context.Context, limit, offset int) ([]*entities.NoteMatchAttempt, error) {
	var attempts []*entities.NoteMatchAttempt
	if err := r.db.WithContext(ctx).
		Where("needs_review = ?", true).
		Order("last_attempt_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list files needing review: %w", err)
	}
	return attempts, nil
}
