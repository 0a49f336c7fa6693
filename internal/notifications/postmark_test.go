package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

type fakeSender struct {
	resp postmark.EmailResponse
	err  error
	sent []postmark.Email
}

func (f *fakeSender) SendEmail(_ context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.sent = append(f.sent, email)
	return f.resp, f.err
}

func newTestMailer(t *testing.T, sender *fakeSender) *PostmarkMailer {
	t.Helper()

	mailer, err := NewPostmarkMailer(PostmarkMailerParams{
		SenderEmail:  "billing@labelworks.io",
		SupportEmail: "support@labelworks.io",
		Sender:       sender,
	})
	require.NoError(t, err)
	return mailer
}

func TestSendUsageWarningReportsDelivery(t *testing.T) {
	sender := &fakeSender{}
	mailer := newTestMailer(t, sender)
	acct := &models.Account{Email: "payer@example.com"}

	delivered, err := mailer.SendUsageWarning(context.Background(), acct, enums.UsageResourceProducts, 85, 85, 100)
	require.NoError(t, err)
	assert.True(t, delivered)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "payer@example.com", sender.sent[0].To)
	assert.Equal(t, "usage-warning", sender.sent[0].Tag)
	assert.Contains(t, sender.sent[0].Subject, "85%")
}

func TestSendUsageWarningFailureIsNotDelivered(t *testing.T) {
	sender := &fakeSender{err: errors.New("timeout")}
	mailer := newTestMailer(t, sender)

	delivered, err := mailer.SendUsageWarning(context.Background(), &models.Account{Email: "x@example.com"}, enums.UsageResourceLabels, 90, 9, 10)
	require.Error(t, err)
	assert.False(t, delivered)
}

func TestPostmarkErrorCodeSurfacesAsError(t *testing.T) {
	sender := &fakeSender{resp: postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}}
	mailer := newTestMailer(t, sender)

	err := mailer.SendCancellationProcessed(context.Background(), &models.Account{Email: "x@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "406")
}

func TestLifecycleEmailsCarryTags(t *testing.T) {
	sender := &fakeSender{}
	mailer := newTestMailer(t, sender)
	acct := &models.Account{Email: "payer@example.com"}
	at := time.Date(2026, 9, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, mailer.SendCancellationReminder(context.Background(), acct, at))
	require.NoError(t, mailer.SendCancellationProcessed(context.Background(), acct))
	require.NoError(t, mailer.SendFinalDeletionNotice(context.Background(), acct, at))

	require.Len(t, sender.sent, 3)
	assert.Equal(t, "cancellation-reminder", sender.sent[0].Tag)
	assert.Equal(t, "cancellation-processed", sender.sent[1].Tag)
	assert.Equal(t, "final-deletion-notice", sender.sent[2].Tag)
}

func TestNewPostmarkMailerRequiresSenderEmail(t *testing.T) {
	_, err := NewPostmarkMailer(PostmarkMailerParams{Sender: &fakeSender{}})
	require.Error(t, err)
}
