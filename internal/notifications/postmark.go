package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// postmarkSender is the subset of the Postmark client the mailer uses.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkMailerParams groups dependencies for the Postmark mailer.
type PostmarkMailerParams struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
	SupportEmail string
	// Sender overrides the Postmark client, for tests.
	Sender postmarkSender
}

// PostmarkMailer implements Mailer on Postmark's transactional API.
type PostmarkMailer struct {
	sender       postmarkSender
	senderEmail  string
	supportEmail string
}

// NewPostmarkMailer builds the mailer. Tokens are required unless a sender
// override is supplied.
func NewPostmarkMailer(params PostmarkMailerParams) (*PostmarkMailer, error) {
	if params.SenderEmail == "" {
		return nil, errors.New("sender email is required")
	}
	if params.Sender == nil {
		if params.ServerToken == "" {
			return nil, errors.New("postmark server token is required")
		}
		params.Sender = postmark.NewClient(params.ServerToken, params.AccountToken)
	}
	if params.SupportEmail == "" {
		params.SupportEmail = params.SenderEmail
	}
	return &PostmarkMailer{
		sender:       params.Sender,
		senderEmail:  params.SenderEmail,
		supportEmail: params.SupportEmail,
	}, nil
}

func (m *PostmarkMailer) send(ctx context.Context, to, subject, tag, body string) error {
	resp, err := m.sender.SendEmail(ctx, postmark.Email{
		From:     m.senderEmail,
		ReplyTo:  m.supportEmail,
		To:       to,
		Subject:  subject,
		Tag:      tag,
		TextBody: body,
	})
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

func (m *PostmarkMailer) SendUsageWarning(ctx context.Context, acct *models.Account, resource enums.UsageResource, pct int, current int64, limit int) (bool, error) {
	subject := fmt.Sprintf("You've used %d%% of your %s limit", pct, resource)
	body := fmt.Sprintf(
		"You have created %d of the %d %s included in your plan this month. "+
			"Upgrade your plan to keep creating without interruption.",
		current, limit, resource,
	)
	if err := m.send(ctx, acct.Email, subject, "usage-warning", body); err != nil {
		return false, err
	}
	return true, nil
}

func (m *PostmarkMailer) SendCancellationReminder(ctx context.Context, acct *models.Account, effectiveAt time.Time) error {
	body := fmt.Sprintf(
		"Your subscription cancellation takes effect on %s. "+
			"You can still change your mind from your account settings before then.",
		effectiveAt.UTC().Format(time.RFC1123),
	)
	return m.send(ctx, acct.Email, "Your cancellation takes effect soon", "cancellation-reminder", body)
}

func (m *PostmarkMailer) SendCancellationProcessed(ctx context.Context, acct *models.Account) error {
	body := "Your subscription has been cancelled. Your data remains available " +
		"until your account is closed. We're sorry to see you go."
	return m.send(ctx, acct.Email, "Your subscription has been cancelled", "cancellation-processed", body)
}

func (m *PostmarkMailer) SendFinalDeletionNotice(ctx context.Context, acct *models.Account, scheduledAt time.Time) error {
	body := fmt.Sprintf(
		"Your account and all associated data are being permanently deleted as scheduled on %s. "+
			"This action cannot be undone.",
		scheduledAt.UTC().Format(time.RFC1123),
	)
	return m.send(ctx, acct.Email, "Your account is being deleted", "final-deletion-notice", body)
}
