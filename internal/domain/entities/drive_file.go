package entities

import (
	"strings"
	"time"
)

const (
	MimeGoogleDoc = "application/vnd.google-apps.document"
	mimeVideo     = "video/"
)

// DriveFile is a meeting recording or generated-notes document found in a
// team member's Drive.
type DriveFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type"`
	CreatedTime time.Time `json:"created_time"`
	WebViewLink string    `json:"web_view_link"`
	Description string    `json:"description,omitempty"`
	OwnerEmail  string    `json:"owner_email"`
}

// IsRecording reports whether the file is a video recording.
func (f *DriveFile) IsRecording() bool {
	return strings.HasPrefix(f.MimeType, mimeVideo)
}

// IsNotesDoc reports whether the file is a Google Doc.
func (f *DriveFile) IsNotesDoc() bool {
	return f.MimeType == MimeGoogleDoc
}

// MeetingParticipants is what is known about who attended a meeting.
type MeetingParticipants struct {
	Emails    []string
	Organizer string
	Title     string
	Start     time.Time
	Source    string
}

// IngestionRecord is the set of writes committed together for one matched file.
type IngestionRecord struct {
	Entity   EntityRef
	Meeting  *Meeting
	Activity *Activity
	Marker   *ProcessedNote
}
