// Package matcher attributes a meeting to one CRM entity from the email
// addresses of its participants.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/domain/repositories"
)

// Reason explains how a match was chosen.
type Reason string

const (
	ReasonSingle           Reason = "single-entity"
	ReasonOrganizerPrimary Reason = "organizer-primary-contact"
	ReasonPrimaryContact   Reason = "primary-contact"
	ReasonFirstParticipant Reason = "first-participant"
)

// MatchInput describes a meeting's attendees.
type MatchInput struct {
	Participants []string
	Organizer    string
	// Internal lists extra addresses to ignore besides the team domains,
	// e.g. the Drive owner.
	Internal []string
}

// Match is the entity a meeting is attributed to.
type Match struct {
	Entity     entities.EntityRef
	Reason     Reason
	Contact    string
	Candidates int
}

// Matcher looks participants up in the contacts table.
type Matcher struct {
	contacts    repositories.ContactRepository
	teamDomains []string
	logger      *zap.Logger
}

// New creates a matcher. Addresses in teamDomains belong to the team and
// never identify an entity.
func New(contacts repositories.ContactRepository, teamDomains []string, logger *zap.Logger) *Matcher {
	domains := make([]string, 0, len(teamDomains))
	for _, d := range teamDomains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &Matcher{contacts: contacts, teamDomains: domains, logger: logger}
}

// Match returns the entity for in, or nil when no participant is a known
// contact.
//
// When participants reference several entities the choice is, in order:
// the entity of the organizer if the organizer is a primary contact; the
// entity of the first primary contact in participant order; the first
// entity in participant order. A contact linked to several entities
// contributes them client first, then investor, then partner.
func (m *Matcher) Match(ctx context.Context, in MatchInput) (*Match, error) {
	organizer := entities.NormalizeEmail(in.Organizer)
	emails := m.externalEmails(append(append([]string(nil), in.Participants...), organizer), in.Internal)
	if len(emails) == 0 {
		return nil, nil
	}

	found, err := m.contacts.FindByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	byEmail := make(map[string]*entities.Contact, len(found))
	for _, c := range found {
		byEmail[entities.NormalizeEmail(c.Email)] = c
	}

	var (
		candidates []entities.EntityRef
		seen       = make(map[entities.EntityRef]bool)
		firstOwner = make(map[entities.EntityRef]string)
	)
	for _, email := range emails {
		c, ok := byEmail[email]
		if !ok {
			continue
		}
		for _, ref := range c.Associations() {
			if !seen[ref] {
				seen[ref] = true
				candidates = append(candidates, ref)
				firstOwner[ref] = email
			}
		}
	}

	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return &Match{Entity: candidates[0], Reason: ReasonSingle, Contact: firstOwner[candidates[0]], Candidates: 1}, nil
	}

	match := m.tieBreak(emails, organizer, byEmail, candidates, firstOwner)
	m.logger.Info("matcher.tie_break",
		zap.Int("candidates", len(candidates)),
		zap.String("entity_type", string(match.Entity.Type)),
		zap.String("entity_id", match.Entity.ID.String()),
		zap.String("reason", string(match.Reason)),
	)
	return match, nil
}

func (m *Matcher) tieBreak(
	emails []string,
	organizer string,
	byEmail map[string]*entities.Contact,
	candidates []entities.EntityRef,
	firstOwner map[entities.EntityRef]string,
) *Match {
	if c, ok := byEmail[organizer]; ok && c.IsPrimary {
		if refs := c.Associations(); len(refs) > 0 {
			return &Match{Entity: refs[0], Reason: ReasonOrganizerPrimary, Contact: organizer, Candidates: len(candidates)}
		}
	}

	for _, email := range emails {
		c, ok := byEmail[email]
		if !ok || !c.IsPrimary {
			continue
		}
		if refs := c.Associations(); len(refs) > 0 {
			return &Match{Entity: refs[0], Reason: ReasonPrimaryContact, Contact: email, Candidates: len(candidates)}
		}
	}

	return &Match{Entity: candidates[0], Reason: ReasonFirstParticipant, Contact: firstOwner[candidates[0]], Candidates: len(candidates)}
}

// externalEmails normalises and de-duplicates addresses, keeping their
// order and dropping team members.
func (m *Matcher) externalEmails(addrs, internal []string) []string {
	skip := make(map[string]bool, len(internal))
	for _, a := range internal {
		skip[entities.NormalizeEmail(a)] = true
	}

	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		email := entities.NormalizeEmail(a)
		if email == "" || skip[email] || m.IsInternal(email) {
			continue
		}
		skip[email] = true
		out = append(out, email)
	}
	return out
}

// IsInternal reports whether email belongs to a team domain
func (m *Matcher) IsInternal(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range m.teamDomains {
		if domain == d {
			return true
		}
	}
	return false
}
