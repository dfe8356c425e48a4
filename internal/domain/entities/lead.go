package entities

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus tracks a lead through triage.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusDeclined  LeadStatus = "declined"
)

// Lead is a submission from the public intake form.
type Lead struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string     `json:"name" gorm:"type:varchar(255);not null"`
	Email       string     `json:"email" gorm:"type:varchar(255);not null;index"`
	Company     string     `json:"company" gorm:"type:varchar(255);not null"`
	Stage       string     `json:"stage" gorm:"type:varchar(50)"`
	RaiseAmount *int64     `json:"raise_amount,omitempty"`
	Message     string     `json:"message" gorm:"type:text"`
	Source      string     `json:"source" gorm:"type:varchar(100)"`
	Status      LeadStatus `json:"status" gorm:"type:varchar(20);not null;default:'new'"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewLead creates a lead in the new state.
func NewLead(name, email, company string) *Lead {
	now := time.Now()
	return &Lead{
		ID:        uuid.New(),
		Name:      name,
		Email:     NormalizeEmail(email),
		Company:   company,
		Status:    LeadStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
