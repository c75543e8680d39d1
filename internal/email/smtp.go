package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendDocumentEmail delivers a quote or invoice with its PDF attached.
func (s *SMTPSender) SendDocumentEmail(ctx context.Context, toEmail, subject, htmlBody string, attachments ...Attachment) error {
	content, err := renderEmailTemplate("document_dispatch.html", bodyEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: subject},
		Body:          template.HTML(htmlBody),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content, attachments...)
}

// SendReminderEmail delivers a follow-up reminder.
func (s *SMTPSender) SendReminderEmail(ctx context.Context, toEmail, subject, htmlBody string) error {
	content, err := renderEmailTemplate("followup.html", bodyEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: subject},
		Body:          template.HTML(htmlBody),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

// SendPaymentReceiptEmail confirms a recorded payment.
func (s *SMTPSender) SendPaymentReceiptEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, amountCents, remainingCents int64) error {
	subject := fmt.Sprintf(subjectPaymentReceiptFmt, invoiceNumber)
	content, err := renderEmailTemplate("payment_receipt.html", paymentReceiptEmailData{
		baseEmailData:      baseEmailData{Title: subject, Heading: "Paiement bien reçu"},
		ClientName:         clientName,
		InvoiceNumber:      invoiceNumber,
		AmountFormatted:    formatCurrencyEUR(amountCents),
		RemainingFormatted: formatCurrencyEUR(remainingCents),
		FullyPaid:          remainingCents == 0,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

// SendInternalAlertEmail notifies the office inbox.
func (s *SMTPSender) SendInternalAlertEmail(ctx context.Context, toEmail, subject, htmlBody string) error {
	content, err := renderEmailTemplate("internal_alert.html", bodyEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: subject},
		Body:          template.HTML(htmlBody),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

// Compile-time check that SMTPSender implements Sender
var _ Sender = (*SMTPSender)(nil)
