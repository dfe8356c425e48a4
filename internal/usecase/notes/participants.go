package notes

import (
	"regexp"
	"strings"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// SourceNotesText marks participants parsed out of the notes themselves.
const SourceNotesText = "notes-text"

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)

// ParseEmails returns the distinct addresses found in texts, in order of
// first appearance.
func ParseEmails(texts ...string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, text := range texts {
		for _, m := range emailPattern.FindAllString(text, -1) {
			email := entities.NormalizeEmail(strings.TrimRight(m, "."))
			if !seen[email] {
				seen[email] = true
				out = append(out, email)
			}
		}
	}
	return out
}

// MeetingTitle derives a title from a generated notes file name such as
// "Acme sync - 2026/03/01 10:00 GMT - Notes by Gemini".
func MeetingTitle(name, marker string) string {
	title := name
	if marker != "" {
		if i := strings.Index(strings.ToLower(title), strings.ToLower(marker)); i > 0 {
			title = title[:i]
		}
	}
	title = strings.TrimRight(strings.TrimSpace(title), " -–")
	if title == "" {
		return name
	}
	return title
}
