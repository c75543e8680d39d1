package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chantier_crm_backend/internal/prospects/domain"
	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	prospect    domain.Prospect
	updateCalls int
	failWrite   bool
}

func (s *fakeStore) UpdateStage(_ context.Context, prospectID uuid.UUID, stage domain.StageID, incrementRelance bool) (domain.Prospect, error) {
	s.updateCalls++
	if s.failWrite {
		return domain.Prospect{}, apperr.Internal("write failed")
	}
	if prospectID != s.prospect.ID {
		return domain.Prospect{}, apperr.NotFound("prospect introuvable")
	}
	s.prospect.Stage = stage
	if incrementRelance {
		s.prospect.RelanceCount++
	}
	return s.prospect, nil
}

type fakeDocumentSender struct {
	calls int
	err   error
}

func (f *fakeDocumentSender) SendDocumentEmail(context.Context, string, DocumentRef, string, string) error {
	f.calls++
	return f.err
}

type fakeReminderSender struct {
	calls    int
	lastBody string
	err      error
}

func (f *fakeReminderSender) SendReminderEmail(_ context.Context, _, _, htmlBody string) error {
	f.calls++
	f.lastBody = htmlBody
	return f.err
}

func newTestProspect(stage domain.StageID) domain.Prospect {
	return domain.Prospect{
		ID:    uuid.New(),
		Name:  "Martin Dupont",
		Email: "martin@example.fr",
		Stage: stage,
	}
}

func newTestEngine(stage domain.StageID) (*Engine, *fakeStore, *fakeDocumentSender, *fakeReminderSender) {
	store := &fakeStore{prospect: newTestProspect(stage)}
	docs := &fakeDocumentSender{}
	reminders := &fakeReminderSender{}
	return New(store, docs, reminders, nil), store, docs, reminders
}

func TestRequestMoveUnconditionalCommitsWithoutEmail(t *testing.T) {
	// quote_followup2 → won is a direct move: commits immediately, no email.
	eng, store, docs, reminders := newTestEngine(domain.StageQuoteFollowup2)

	updated, err := eng.RequestMove(context.Background(), store.prospect, domain.StageWon, MovePayload{})
	if err != nil {
		t.Fatalf("RequestMove returned error: %v", err)
	}
	if updated.Stage != domain.StageWon {
		t.Errorf("stage = %q, want %q", updated.Stage, domain.StageWon)
	}
	if docs.calls != 0 || reminders.calls != 0 {
		t.Errorf("unconditional move dispatched email: docs=%d reminders=%d", docs.calls, reminders.calls)
	}
}

func TestRequestMoveSameStageIsRejected(t *testing.T) {
	eng, store, _, _ := newTestEngine(domain.StageQuoteSent)

	_, err := eng.RequestMove(context.Background(), store.prospect, domain.StageQuoteSent, MovePayload{})
	if !apperr.HasCode(err, domain.CodeInvalidTransition) {
		t.Fatalf("error code = %q, want %q", apperr.GetCode(err), domain.CodeInvalidTransition)
	}
	if store.updateCalls != 0 {
		t.Errorf("stage write attempted on same-stage move")
	}
}

func TestRequestMoveUnknownTargetIsRejected(t *testing.T) {
	eng, store, _, _ := newTestEngine(domain.StageIntake)

	_, err := eng.RequestMove(context.Background(), store.prospect, "archived", MovePayload{})
	if !apperr.HasCode(err, domain.CodeInvalidTransition) {
		t.Fatalf("error code = %q, want %q", apperr.GetCode(err), domain.CodeInvalidTransition)
	}
	if store.updateCalls != 0 {
		t.Errorf("stage write attempted on unknown target")
	}
}

func TestRequestMoveGatedDocumentSuccessCommits(t *testing.T) {
	eng, store, docs, _ := newTestEngine(domain.StageIntake)

	payload := MovePayload{
		RecipientEmail: store.prospect.Email,
		Document:       &DocumentRef{ID: uuid.New(), Kind: "quote", Number: "DEV-2026-0012", FileName: "devis.pdf"},
		Subject:        "Votre devis",
		HTMLBody:       "<p>Veuillez trouver votre devis ci-joint.</p>",
	}
	updated, err := eng.RequestMove(context.Background(), store.prospect, domain.StageQuoteSent, payload)
	if err != nil {
		t.Fatalf("RequestMove returned error: %v", err)
	}
	if updated.Stage != domain.StageQuoteSent {
		t.Errorf("stage = %q, want %q", updated.Stage, domain.StageQuoteSent)
	}
	if docs.calls != 1 {
		t.Errorf("document dispatch calls = %d, want 1", docs.calls)
	}
	if updated.RelanceCount != 0 {
		t.Errorf("document dispatch must not touch the relance counter, got %d", updated.RelanceCount)
	}
}

func TestRequestMoveGatedWithoutDocumentNeverDispatches(t *testing.T) {
	// Dragging to invoice with no document selected must prompt for one,
	// never reach the email collaborator.
	eng, store, docs, _ := newTestEngine(domain.StageIntake)

	_, err := eng.RequestMove(context.Background(), store.prospect, domain.StageInvoiceSent, MovePayload{
		RecipientEmail: store.prospect.Email,
	})
	if !apperr.HasCode(err, domain.CodeMissingGatePayload) {
		t.Fatalf("error code = %q, want %q", apperr.GetCode(err), domain.CodeMissingGatePayload)
	}
	if docs.calls != 0 {
		t.Errorf("email collaborator called despite missing document")
	}
	if store.updateCalls != 0 {
		t.Errorf("stage write attempted despite missing document")
	}
	if store.prospect.Stage != domain.StageIntake {
		t.Errorf("stage = %q, want unchanged %q", store.prospect.Stage, domain.StageIntake)
	}
}

func TestRequestMoveGatedReminderFailureLeavesProspectUntouched(t *testing.T) {
	// Prospect in quote, dragged to quote_followup1; the send fails: stage
	// and relance counter stay put and the error is surfaced.
	eng, store, _, reminders := newTestEngine(domain.StageQuoteSent)
	reminders.err = errors.New("connection reset by peer")

	_, err := eng.RequestMove(context.Background(), store.prospect, domain.StageQuoteFollowup1, MovePayload{
		RecipientEmail: store.prospect.Email,
		Subject:        subjectQuoteFollowup,
		HTMLBody:       "<p>Petit rappel concernant notre devis.</p>",
	})
	if !apperr.HasCode(err, domain.CodeGateActionFailed) {
		t.Fatalf("error code = %q, want %q", apperr.GetCode(err), domain.CodeGateActionFailed)
	}
	if !strings.Contains(errors.Unwrap(err.(*apperr.Error)).Error(), "connection reset") {
		t.Errorf("underlying dispatch error not carried: %v", err)
	}
	if store.prospect.Stage != domain.StageQuoteSent {
		t.Errorf("stage = %q, want unchanged %q", store.prospect.Stage, domain.StageQuoteSent)
	}
	if store.prospect.RelanceCount != 0 {
		t.Errorf("relance counter = %d, want 0 after failed send", store.prospect.RelanceCount)
	}
	if store.updateCalls != 0 {
		t.Errorf("stage write attempted after failed dispatch")
	}
}

func TestRequestMoveFailedGateIsRetryable(t *testing.T) {
	eng, store, _, reminders := newTestEngine(domain.StageQuoteSent)
	payload := MovePayload{
		RecipientEmail: store.prospect.Email,
		Subject:        subjectQuoteFollowup,
		HTMLBody:       "<p>Petit rappel.</p>",
	}

	reminders.err = errors.New("temporary failure")
	if _, err := eng.RequestMove(context.Background(), store.prospect, domain.StageQuoteFollowup1, payload); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	// Same move, same unchanged prospect: the retry re-attempts the dispatch.
	reminders.err = nil
	updated, err := eng.RequestMove(context.Background(), store.prospect, domain.StageQuoteFollowup1, payload)
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if updated.Stage != domain.StageQuoteFollowup1 {
		t.Errorf("stage after retry = %q, want %q", updated.Stage, domain.StageQuoteFollowup1)
	}
	if updated.RelanceCount != 1 {
		t.Errorf("relance counter after retry = %d, want 1", updated.RelanceCount)
	}
	if reminders.calls != 2 {
		t.Errorf("reminder dispatch calls = %d, want 2", reminders.calls)
	}
}

func TestRequestMoveStageIsAlwaysOldOrTarget(t *testing.T) {
	// Sweep every stage pair under both dispatch outcomes: the persisted
	// stage must end up as either the original or the requested target.
	for _, from := range domain.Catalog {
		for _, to := range domain.Catalog {
			for _, dispatchFails := range []bool{false, true} {
				store := &fakeStore{prospect: newTestProspect(from.ID)}
				docs := &fakeDocumentSender{}
				reminders := &fakeReminderSender{}
				if dispatchFails {
					docs.err = errors.New("boom")
					reminders.err = errors.New("boom")
				}
				eng := New(store, docs, reminders, nil)

				payload := MovePayload{
					RecipientEmail: store.prospect.Email,
					Document:       &DocumentRef{ID: uuid.New(), Kind: "quote", FileName: "doc.pdf"},
					Subject:        "sujet",
					HTMLBody:       "<p>corps</p>",
				}
				_, err := eng.RequestMove(context.Background(), store.prospect, to.ID, payload)

				got := store.prospect.Stage
				if got != from.ID && got != to.ID {
					t.Fatalf("move %q→%q (fail=%v): persisted stage %q is neither origin nor target", from.ID, to.ID, dispatchFails, got)
				}
				if err != nil && got != from.ID {
					t.Fatalf("move %q→%q (fail=%v): failed move mutated stage to %q", from.ID, to.ID, dispatchFails, got)
				}
			}
		}
	}
}

func TestRequestMoveRejectsConcurrentDuplicate(t *testing.T) {
	store := &fakeStore{prospect: newTestProspect(domain.StageQuoteSent)}
	release := make(chan struct{})
	started := make(chan struct{})
	reminders := &blockingReminderSender{started: started, release: release}
	eng := New(store, &fakeDocumentSender{}, reminders, nil)

	payload := MovePayload{
		RecipientEmail: store.prospect.Email,
		Subject:        subjectQuoteFollowup,
		HTMLBody:       "<p>rappel</p>",
	}

	done := make(chan error, 1)
	go func() {
		_, err := eng.RequestMove(context.Background(), store.prospect, domain.StageQuoteFollowup1, payload)
		done <- err
	}()
	<-started

	// Second identical move while the first dispatch is outstanding.
	_, err := eng.RequestMove(context.Background(), store.prospect, domain.StageQuoteFollowup1, payload)
	if !apperr.HasCode(err, domain.CodeInvalidTransition) {
		t.Fatalf("duplicate in-flight move: code = %q, want %q", apperr.GetCode(err), domain.CodeInvalidTransition)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first move returned error: %v", err)
	}
	if reminders.calls != 1 {
		t.Errorf("reminder dispatched %d times, want 1", reminders.calls)
	}
}

type blockingReminderSender struct {
	calls   int
	started chan struct{}
	release chan struct{}
}

func (b *blockingReminderSender) SendReminderEmail(context.Context, string, string, string) error {
	b.calls++
	close(b.started)
	<-b.release
	return nil
}
