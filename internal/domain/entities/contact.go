package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Contact is a person at a client, investment firm or partner firm. A contact
// may be associated with more than one entity.
type Contact struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email      string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name       string     `json:"name" gorm:"type:varchar(255)"`
	IsPrimary  bool       `json:"is_primary" gorm:"column:is_primary;default:false;not null"`
	ClientID   *uuid.UUID `json:"client_id,omitempty" gorm:"type:uuid;index"`
	InvestorID *uuid.UUID `json:"investor_id,omitempty" gorm:"type:uuid;index"`
	PartnerID  *uuid.UUID `json:"partner_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Associations returns the entities the contact belongs to, ordered
// client, investor, partner.
func (c *Contact) Associations() []EntityRef {
	refs := make([]EntityRef, 0, 3)
	if c.ClientID != nil {
		refs = append(refs, EntityRef{Type: EntityClient, ID: *c.ClientID})
	}
	if c.InvestorID != nil {
		refs = append(refs, EntityRef{Type: EntityInvestor, ID: *c.InvestorID})
	}
	if c.PartnerID != nil {
		refs = append(refs, EntityRef{Type: EntityPartner, ID: *c.PartnerID})
	}
	return refs
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
