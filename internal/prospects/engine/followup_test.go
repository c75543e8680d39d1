package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chantier_crm_backend/internal/prospects/domain"
	"chantier_crm_backend/platform/apperr"
)

func TestSendFollowupRejectsNonFollowupTargets(t *testing.T) {
	eng, store, _, reminders := newTestEngine(domain.StageQuoteSent)
	d := NewFollowupDispatcher(eng)

	for _, target := range []domain.StageID{domain.StageIntake, domain.StageQuoteSent, domain.StageInvoiceSent, domain.StageWon, domain.StageLost} {
		_, err := d.SendFollowup(context.Background(), store.prospect, target, "")
		if !apperr.HasCode(err, domain.CodeInvalidTransition) {
			t.Errorf("SendFollowup to %q: code = %q, want %q", target, apperr.GetCode(err), domain.CodeInvalidTransition)
		}
	}
	if reminders.calls != 0 {
		t.Errorf("reminder dispatched %d times for rejected targets", reminders.calls)
	}
}

func TestSendFollowupEmptyMessageUsesFamilyTemplate(t *testing.T) {
	eng, store, _, reminders := newTestEngine(domain.StageQuoteSent)
	d := NewFollowupDispatcher(eng)

	updated, err := d.SendFollowup(context.Background(), store.prospect, domain.StageQuoteFollowup1, "   ")
	if err != nil {
		t.Fatalf("SendFollowup returned error: %v", err)
	}
	if updated.Stage != domain.StageQuoteFollowup1 {
		t.Errorf("stage = %q, want %q", updated.Stage, domain.StageQuoteFollowup1)
	}
	if !strings.Contains(reminders.lastBody, "Martin Dupont") {
		t.Errorf("template body not personalized: %q", reminders.lastBody)
	}
	if !strings.Contains(reminders.lastBody, "devis") {
		t.Errorf("quote-family template expected, got %q", reminders.lastBody)
	}
}

func TestSendFollowupEditedMessageIsSentVerbatim(t *testing.T) {
	eng, store, _, reminders := newTestEngine(domain.StageInvoiceSent)
	d := NewFollowupDispatcher(eng)

	edited := "<p>Bonjour, le règlement de la facture FAC-2026-0033 reste attendu.</p>"
	if _, err := d.SendFollowup(context.Background(), store.prospect, domain.StageInvoiceFollowup1, edited); err != nil {
		t.Fatalf("SendFollowup returned error: %v", err)
	}
	if reminders.lastBody != edited {
		t.Errorf("body = %q, want the edited message verbatim", reminders.lastBody)
	}
}

func TestSendFollowupFailureKeepsCounter(t *testing.T) {
	eng, store, _, reminders := newTestEngine(domain.StageInvoiceFollowup1)
	store.prospect.RelanceCount = 1
	reminders.err = errors.New("smtp timeout")
	d := NewFollowupDispatcher(eng)

	_, err := d.SendFollowup(context.Background(), store.prospect, domain.StageInvoiceFollowup2, "")
	if !apperr.HasCode(err, domain.CodeGateActionFailed) {
		t.Fatalf("error code = %q, want %q", apperr.GetCode(err), domain.CodeGateActionFailed)
	}
	if store.prospect.RelanceCount != 1 {
		t.Errorf("relance counter = %d, want unchanged 1", store.prospect.RelanceCount)
	}
	if store.prospect.Stage != domain.StageInvoiceFollowup1 {
		t.Errorf("stage = %q, want unchanged %q", store.prospect.Stage, domain.StageInvoiceFollowup1)
	}
}

func TestSendFollowupSuccessIncrementsCounter(t *testing.T) {
	eng, store, _, _ := newTestEngine(domain.StageQuoteFollowup1)
	store.prospect.RelanceCount = 1
	d := NewFollowupDispatcher(eng)

	updated, err := d.SendFollowup(context.Background(), store.prospect, domain.StageQuoteFollowup2, "")
	if err != nil {
		t.Fatalf("SendFollowup returned error: %v", err)
	}
	if updated.RelanceCount != 2 {
		t.Errorf("relance counter = %d, want 2", updated.RelanceCount)
	}
}

func TestFollowupSubjectPerFamily(t *testing.T) {
	if got := FollowupSubject(domain.StageQuoteFollowup2); got != subjectQuoteFollowup {
		t.Errorf("FollowupSubject(quote_followup2) = %q", got)
	}
	if got := FollowupSubject(domain.StageInvoiceFollowup1); got != subjectInvoiceFollowup {
		t.Errorf("FollowupSubject(invoice_followup1) = %q", got)
	}
}
