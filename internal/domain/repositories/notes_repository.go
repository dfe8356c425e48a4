package repositories

import (
	"context"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// NotesRepository holds the ingestion bookkeeping: processed markers, match
// attempts and the transactional write of a matched file.
type NotesRepository interface {
	// IsProcessed reports whether a processed marker exists for fileID
	IsProcessed(ctx context.Context, fileID string) (bool, error)

	// FindAttempt returns the match attempt row for fileID, or nil
	FindAttempt(ctx context.Context, fileID string) (*entities.NoteMatchAttempt, error)

	// RecordUnmatched increments the attempt counter for file and flags it
	// for review once the counter reaches maxAttempts
	RecordUnmatched(ctx context.Context, file entities.DriveFile, maxAttempts int) (*entities.NoteMatchAttempt, error)

	// CommitIngestion writes the portal entry, meeting, activity and
	// processed marker in one transaction, the marker last
	CommitIngestion(ctx context.Context, record *entities.IngestionRecord) error

	// SetArchiveKey stores the object storage key of a meeting's notes
	SetArchiveKey(ctx context.Context, meetingID, key string) error

	// ListNeedsReview returns files flagged for manual review
	ListNeedsReview(ctx context.Context, limit, offset int) ([]*entities.NoteMatchAttempt, error)
}
