package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"chantier_crm_backend/internal/email"
	"chantier_crm_backend/internal/events"
	"chantier_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct {
	inbox string
}

func (c testNotificationConfig) GetAppBaseURL() string         { return "https://crm.example.fr" }
func (c testNotificationConfig) GetOfficeInboxAddress() string { return c.inbox }

type recordedAlert struct {
	to      string
	subject string
	body    string
}

type recordedReceipt struct {
	to             string
	clientName     string
	invoiceNumber  string
	amountCents    int64
	remainingCents int64
}

type testSender struct {
	alerts   []recordedAlert
	receipts []recordedReceipt
}

func (s *testSender) SendDocumentEmail(context.Context, string, string, string, ...email.Attachment) error {
	return nil
}

func (s *testSender) SendReminderEmail(context.Context, string, string, string) error { return nil }

func (s *testSender) SendPaymentReceiptEmail(_ context.Context, to, clientName, invoiceNumber string, amountCents, remainingCents int64) error {
	s.receipts = append(s.receipts, recordedReceipt{to, clientName, invoiceNumber, amountCents, remainingCents})
	return nil
}

func (s *testSender) SendInternalAlertEmail(_ context.Context, to, subject, htmlBody string) error {
	s.alerts = append(s.alerts, recordedAlert{to, subject, htmlBody})
	return nil
}

func newTestModule(inbox string) (*Module, *testSender) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{inbox: inbox}, logger.New("development"))
	return m, sender
}

func TestPaymentRecordedSendsReceiptToClient(t *testing.T) {
	m, sender := newTestModule("bureau@example.fr")

	err := m.Handle(context.Background(), events.InvoicePaymentRecorded{
		BaseEvent:      events.NewBaseEvent(),
		InvoiceID:      uuid.New(),
		PaymentID:      uuid.New(),
		Number:         "FAC-2026-0007",
		ClientName:     "Mme Dubois",
		ClientEmail:    "dubois@example.fr",
		AmountCents:    40000,
		RemainingCents: 60000,
		Status:         "partiellement_payée",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(sender.receipts) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(sender.receipts))
	}
	r := sender.receipts[0]
	if r.to != "dubois@example.fr" || r.invoiceNumber != "FAC-2026-0007" {
		t.Errorf("receipt sent with wrong recipient or number: %+v", r)
	}
	if r.amountCents != 40000 || r.remainingCents != 60000 {
		t.Errorf("receipt amounts wrong: %+v", r)
	}
}

func TestPaymentRecordedWithoutEmailIsSkipped(t *testing.T) {
	m, sender := newTestModule("bureau@example.fr")

	err := m.Handle(context.Background(), events.InvoicePaymentRecorded{
		BaseEvent: events.NewBaseEvent(),
		InvoiceID: uuid.New(),
		Number:    "FAC-2026-0008",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(sender.receipts) != 0 {
		t.Errorf("expected no receipt without client email, got %d", len(sender.receipts))
	}
}

func TestFollowupReminderDueAlertsOffice(t *testing.T) {
	m, sender := newTestModule("bureau@example.fr")

	err := m.Handle(context.Background(), events.FollowupReminderDue{
		BaseEvent:  events.NewBaseEvent(),
		ProspectID: uuid.New(),
		Name:       "M. Martin",
		Stage:      "quote",
		IdleSince:  time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(sender.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(sender.alerts))
	}
	a := sender.alerts[0]
	if a.to != "bureau@example.fr" {
		t.Errorf("alert sent to %q, want office inbox", a.to)
	}
	if !strings.Contains(a.body, "M. Martin") || !strings.Contains(a.body, "01/08/2026") {
		t.Errorf("alert body missing prospect or date: %q", a.body)
	}
}

func TestNoAlertWithoutOfficeInbox(t *testing.T) {
	m, sender := newTestModule("")

	err := m.Handle(context.Background(), events.FollowupReminderDue{
		BaseEvent: events.NewBaseEvent(),
		Name:      "M. Martin",
		Stage:     "quote",
		IdleSince: time.Now(),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(sender.alerts) != 0 {
		t.Errorf("expected no alert without configured inbox, got %d", len(sender.alerts))
	}
}

func TestStageChangedAlertsOnlyOnClose(t *testing.T) {
	m, sender := newTestModule("bureau@example.fr")

	intermediate := events.ProspectStageChanged{
		BaseEvent: events.NewBaseEvent(),
		Name:      "M. Martin",
		FromStage: "quote",
		ToStage:   "quote_followup1",
	}
	if err := m.Handle(context.Background(), intermediate); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(sender.alerts) != 0 {
		t.Fatalf("intermediate move should not alert, got %d", len(sender.alerts))
	}

	won := events.ProspectStageChanged{
		BaseEvent:    events.NewBaseEvent(),
		Name:         "M. Martin",
		Email:        "martin@example.fr",
		FromStage:    "invoice_followup2",
		ToStage:      "won",
		RelanceCount: 4,
	}
	if err := m.Handle(context.Background(), won); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(sender.alerts) != 1 {
		t.Fatalf("expected 1 alert after close, got %d", len(sender.alerts))
	}
	if !strings.Contains(sender.alerts[0].subject, "gagnée") {
		t.Errorf("alert subject = %q, want win subject", sender.alerts[0].subject)
	}
}

func TestVisitReminderDueAlertsOffice(t *testing.T) {
	m, sender := newTestModule("bureau@example.fr")

	err := m.Handle(context.Background(), events.VisitReminderDue{
		BaseEvent:    events.NewBaseEvent(),
		VisitID:      uuid.New(),
		ProspectName: "Mme Dubois",
		Location:     "12 rue des Lilas, Nantes",
		StartsAt:     time.Date(2026, 9, 3, 14, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(sender.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(sender.alerts))
	}
	a := sender.alerts[0]
	if !strings.Contains(a.body, "12 rue des Lilas, Nantes") {
		t.Errorf("alert body missing location: %q", a.body)
	}
	if !strings.Contains(a.subject, "Mme Dubois") {
		t.Errorf("alert subject missing prospect: %q", a.subject)
	}
}
