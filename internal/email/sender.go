// Package email provides outbound email delivery for documents, reminders
// and internal notifications.
package email

import (
	"context"

	"chantier_crm_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	FileName string
	Content  []byte
}

// Sender is the outbound email interface. Implementations must only return
// nil once the message has been handed to the mail server: the pipeline
// engine treats a nil error as the dispatch acknowledgement that commits a
// stage move.
type Sender interface {
	// SendDocumentEmail delivers a quote or invoice to a client. The body is
	// the user-approved HTML from the confirmation dialog, sent as-is inside
	// the branded layout.
	SendDocumentEmail(ctx context.Context, toEmail, subject, htmlBody string, attachments ...Attachment) error
	// SendReminderEmail delivers a follow-up reminder. The body is sent
	// exactly as the user wrote it.
	SendReminderEmail(ctx context.Context, toEmail, subject, htmlBody string) error
	// SendPaymentReceiptEmail confirms a recorded payment to the client.
	SendPaymentReceiptEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, amountCents, remainingCents int64) error
	// SendInternalAlertEmail notifies the office inbox (due follow-ups,
	// upcoming site visits).
	SendInternalAlertEmail(ctx context.Context, toEmail, subject, htmlBody string) error
}

// NoopSender is a Sender that does nothing, used when email is disabled in
// development environments.
type NoopSender struct{}

func (NoopSender) SendDocumentEmail(context.Context, string, string, string, ...Attachment) error {
	return nil
}

func (NoopSender) SendReminderEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendPaymentReceiptEmail(context.Context, string, string, string, int64, int64) error {
	return nil
}

func (NoopSender) SendInternalAlertEmail(context.Context, string, string, string) error {
	return nil
}

// NewSenderFromConfig builds the configured Sender. Email disabled means a
// NoopSender; everything else goes through SMTP.
func NewSenderFromConfig(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(), cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
	)
}
