package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/sendgrid"
)

type fakeSender struct {
	sent []sendgrid.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg sendgrid.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func TestMeetingIngested(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, "team@seedbridge.vc", "https://portal.seedbridge.vc/", zap.NewNop())

	user := entities.NewUser("ana@seedbridge.vc", "Ana")
	id := uuid.New()
	meeting := &entities.Meeting{
		ID:         "doc-1",
		Title:      "Acme <weekly>",
		Date:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EntityType: entities.EntityClient,
		EntityID:   id,
		NotesLink:  "https://docs.google.com/document/d/doc-1",
	}

	require.NoError(t, svc.MeetingIngested(context.Background(), user, meeting))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ana@seedbridge.vc", msg.ToEmail)
	assert.Equal(t, "Meeting filed: Acme <weekly>", msg.Subject)
	assert.Contains(t, msg.Text, "https://portal.seedbridge.vc/clients/"+id.String())
	assert.Contains(t, msg.HTML, "Acme &lt;weekly&gt;")
}

func TestLeadSubmitted(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, "team@seedbridge.vc", "https://portal.seedbridge.vc", zap.NewNop())

	lead := entities.NewLead("Jo", "jo@acme.io", "Acme")
	raise := int64(1500000)
	lead.RaiseAmount = &raise
	lead.Message = "We build rockets"

	require.NoError(t, svc.LeadSubmitted(context.Background(), lead))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "team@seedbridge.vc", msg.ToEmail)
	assert.Equal(t, "New lead: Acme", msg.Subject)
	assert.Contains(t, msg.Text, "Raise: $1500000")
	assert.Contains(t, msg.Text, "We build rockets")
}

func TestLeadSubmitted_NoTeamAddress(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, "", "", zap.NewNop())

	assert.NoError(t, svc.LeadSubmitted(context.Background(), entities.NewLead("Jo", "jo@acme.io", "Acme")))
	assert.Empty(t, sender.sent)
}

func TestSendFailureWrapped(t *testing.T) {
	cause := errors.New("sendgrid down")
	svc := NewService(&fakeSender{err: cause}, "team@seedbridge.vc", "", zap.NewNop())

	err := svc.LeadSubmitted(context.Background(), entities.NewLead("Jo", "jo@acme.io", "Acme"))
	assert.ErrorIs(t, err, cause)
}
