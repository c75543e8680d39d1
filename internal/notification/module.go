// Package notification provides event handlers for sending emails in
// response to domain events. Domain modules publish events and never talk to
// the mail provider directly.
package notification

import (
	"context"
	"fmt"
	"html"

	"chantier_crm_backend/internal/email"
	"chantier_crm_backend/internal/events"
	"chantier_crm_backend/internal/invoices/domain"
	"chantier_crm_backend/platform/config"
	"chantier_crm_backend/platform/logger"
)

// Module subscribes to domain events and turns them into outgoing emails:
// payment receipts for clients, internal alerts for the office inbox.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates the notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, log: log}
}

// Name returns the module name for logging
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.InvoicePaymentRecorded{}.EventName(), m)
	bus.Subscribe(events.InvoicePaymentRemoved{}.EventName(), m)
	bus.Subscribe(events.FollowupReminderDue{}.EventName(), m)
	bus.Subscribe(events.VisitReminderDue{}.EventName(), m)
	bus.Subscribe(events.ProspectStageChanged{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InvoicePaymentRecorded:
		return m.handlePaymentRecorded(ctx, e)
	case events.InvoicePaymentRemoved:
		return m.handlePaymentRemoved(ctx, e)
	case events.FollowupReminderDue:
		return m.handleFollowupReminderDue(ctx, e)
	case events.VisitReminderDue:
		return m.handleVisitReminderDue(ctx, e)
	case events.ProspectStageChanged:
		return m.handleProspectStageChanged(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handlePaymentRecorded(ctx context.Context, e events.InvoicePaymentRecorded) error {
	if e.ClientEmail == "" {
		return nil
	}

	if err := m.sender.SendPaymentReceiptEmail(ctx, e.ClientEmail, e.ClientName, e.Number, e.AmountCents, e.RemainingCents); err != nil {
		m.log.Error("failed to send payment receipt email",
			"invoice_id", e.InvoiceID, "email", e.ClientEmail, "error", err)
		return err
	}

	m.log.Info("payment receipt email sent", "invoice_id", e.InvoiceID, "number", e.Number)
	return nil
}

func (m *Module) handlePaymentRemoved(ctx context.Context, e events.InvoicePaymentRemoved) error {
	subject := fmt.Sprintf("Paiement annulé — facture %s", e.Number)
	body := fmt.Sprintf(
		"<p>Un paiement de <strong>%s</strong> a été retiré de la facture <strong>%s</strong>.</p>"+
			"<p>Reste à payer : <strong>%s</strong>.</p>",
		html.EscapeString(domain.FormatEuros(e.AmountCents)),
		html.EscapeString(e.Number),
		html.EscapeString(domain.FormatEuros(e.RemainingCents)))

	return m.sendOfficeAlert(ctx, subject, body)
}

func (m *Module) handleFollowupReminderDue(ctx context.Context, e events.FollowupReminderDue) error {
	subject := fmt.Sprintf("Relance à prévoir — %s", e.Name)
	body := fmt.Sprintf(
		"<p>Le prospect <strong>%s</strong> est sans réponse à l'étape <strong>%s</strong> depuis le %s.</p>"+
			"<p><a href=\"%s\">Ouvrir le pipeline</a></p>",
		html.EscapeString(e.Name),
		html.EscapeString(e.Stage),
		e.IdleSince.Format("02/01/2006"),
		html.EscapeString(m.cfg.GetAppBaseURL()+"/pipeline"))

	return m.sendOfficeAlert(ctx, subject, body)
}

func (m *Module) handleVisitReminderDue(ctx context.Context, e events.VisitReminderDue) error {
	who := "visite de chantier"
	if e.ProspectName != "" {
		who = "visite chez " + e.ProspectName
	}

	subject := fmt.Sprintf("Rappel — %s le %s", who, e.StartsAt.Format("02/01/2006 à 15h04"))
	body := fmt.Sprintf(
		"<p>Une %s est prévue le <strong>%s</strong>.</p><p>Lieu : %s</p>",
		html.EscapeString(who),
		e.StartsAt.Format("02/01/2006 à 15h04"),
		html.EscapeString(e.Location))

	return m.sendOfficeAlert(ctx, subject, body)
}

// handleProspectStageChanged alerts the office when a deal closes, in either
// direction. Intermediate moves stay quiet.
func (m *Module) handleProspectStageChanged(ctx context.Context, e events.ProspectStageChanged) error {
	var subject string
	switch e.ToStage {
	case "won":
		subject = fmt.Sprintf("Affaire gagnée — %s", e.Name)
	case "lost":
		subject = fmt.Sprintf("Affaire perdue — %s", e.Name)
	default:
		return nil
	}

	body := fmt.Sprintf(
		"<p>Le prospect <strong>%s</strong> (%s) est passé de <strong>%s</strong> à <strong>%s</strong> après %d relance(s).</p>",
		html.EscapeString(e.Name),
		html.EscapeString(e.Email),
		html.EscapeString(e.FromStage),
		html.EscapeString(e.ToStage),
		e.RelanceCount)

	return m.sendOfficeAlert(ctx, subject, body)
}

func (m *Module) sendOfficeAlert(ctx context.Context, subject, body string) error {
	inbox := m.cfg.GetOfficeInboxAddress()
	if inbox == "" {
		return nil
	}

	if err := m.sender.SendInternalAlertEmail(ctx, inbox, subject, body); err != nil {
		m.log.Error("failed to send internal alert email", "subject", subject, "error", err)
		return err
	}
	return nil
}

// Compile-time check that Module implements events.Handler
var _ events.Handler = (*Module)(nil)
