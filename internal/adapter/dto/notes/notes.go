package notes

import "time"

// SweepResponse is the result of a manually triggered sweep
type SweepResponse struct {
	Success bool        `json:"success"`
	Summary interface{} `json:"summary"`
}

// ReviewItem is a file awaiting manual attribution
type ReviewItem struct {
	FileID        string    `json:"file_id"`
	FileName      string    `json:"file_name"`
	OwnerEmail    string    `json:"owner_email"`
	WebViewLink   string    `json:"web_view_link"`
	Attempts      int       `json:"attempts"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}
