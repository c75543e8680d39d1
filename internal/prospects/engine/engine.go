// Package engine orchestrates sales-pipeline stage moves: it evaluates the
// transition guard, runs the required external dispatch for gated moves, and
// commits the stage write only after that dispatch succeeded.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"chantier_crm_backend/internal/prospects/domain"
	"chantier_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// DocumentRef identifies a stored quote or invoice PDF to dispatch.
type DocumentRef struct {
	ID       uuid.UUID
	Kind     string // "quote" or "invoice"
	Number   string
	FileName string
}

// MovePayload carries the user-prepared payload for a gated move. Document
// gates need Document + recipient; reminder gates need HTMLBody + recipient.
type MovePayload struct {
	RecipientEmail string
	Document       *DocumentRef
	Subject        string
	HTMLBody       string
}

// StageStore persists committed stage changes. The write must also refresh
// the prospect's last-action timestamp and, when asked, increment the
// relance counter, returning the updated record.
type StageStore interface {
	UpdateStage(ctx context.Context, prospectID uuid.UUID, stage domain.StageID, incrementRelance bool) (domain.Prospect, error)
}

// DocumentSender dispatches a document email (quote/invoice gates).
type DocumentSender interface {
	SendDocumentEmail(ctx context.Context, recipient string, doc DocumentRef, subject, htmlBody string) error
}

// ReminderSender dispatches a follow-up reminder email.
type ReminderSender interface {
	SendReminderEmail(ctx context.Context, recipient, subject, htmlBody string) error
}

// pendingAction is the ephemeral record of a gated move in progress. It lives
// only in memory and is discarded on both success and failure.
type pendingAction struct {
	target    domain.StageID
	payload   MovePayload
	startedAt time.Time
}

// Engine applies the pipeline commit discipline.
type Engine struct {
	store     StageStore
	documents DocumentSender
	reminders ReminderSender
	log       *logger.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]pendingAction
}

// New creates a pipeline engine.
func New(store StageStore, documents DocumentSender, reminders ReminderSender, log *logger.Logger) *Engine {
	return &Engine{
		store:     store,
		documents: documents,
		reminders: reminders,
		log:       log,
		inFlight:  make(map[uuid.UUID]pendingAction),
	}
}

// RequestMove attempts to move the prospect to the target stage.
//
// The persisted stage after this call is either the prospect's stage before
// the call or the requested target, never anything else. For gated moves the
// stage write happens strictly after the dispatch success acknowledgement; a
// failed dispatch leaves the prospect untouched and the same move can be
// retried.
func (e *Engine) RequestMove(ctx context.Context, prospect domain.Prospect, target domain.StageID, payload MovePayload) (domain.Prospect, error) {
	decision := domain.Evaluate(prospect.Stage, target)

	switch decision.Kind {
	case domain.TransitionInvalid:
		e.logMove(ctx, prospect, target, false, "invalid transition")
		return prospect, domain.InvalidTransition(prospect.Stage, target)

	case domain.TransitionUnconditional:
		updated, err := e.store.UpdateStage(ctx, prospect.ID, target, false)
		if err != nil {
			e.logMove(ctx, prospect, target, false, "stage write failed")
			return prospect, err
		}
		e.logMove(ctx, prospect, target, true, "")
		return updated, nil
	}

	// Gated move. Reject before any side effect if the payload was never
	// prepared: the gate's input collection step belongs before dispatch.
	if err := validateGatePayload(decision.RequiredGate, payload); err != nil {
		e.logMove(ctx, prospect, target, false, "missing gate payload")
		return prospect, err
	}

	if !e.begin(prospect.ID, target, payload) {
		e.logMove(ctx, prospect, target, false, "move already in flight")
		return prospect, domain.InvalidTransition(prospect.Stage, target)
	}
	defer e.finish(prospect.ID)

	var dispatchErr error
	switch decision.RequiredGate {
	case domain.GateDocumentDispatch:
		dispatchErr = e.documents.SendDocumentEmail(ctx, payload.RecipientEmail, *payload.Document, payload.Subject, payload.HTMLBody)
	case domain.GateReminderDispatch:
		dispatchErr = e.reminders.SendReminderEmail(ctx, payload.RecipientEmail, payload.Subject, payload.HTMLBody)
	}
	if dispatchErr != nil {
		e.logMove(ctx, prospect, target, false, dispatchErr.Error())
		return prospect, domain.GateActionFailed(dispatchErr)
	}

	incrementRelance := decision.RequiredGate == domain.GateReminderDispatch
	updated, err := e.store.UpdateStage(ctx, prospect.ID, target, incrementRelance)
	if err != nil {
		// The email went out but the write failed; surfacing the storage
		// error keeps the caller's view consistent with the database.
		e.logMove(ctx, prospect, target, false, "stage write failed after dispatch")
		return prospect, err
	}

	e.logMove(ctx, prospect, target, true, "")
	return updated, nil
}

// begin records the pending action unless a move for the same prospect is
// already outstanding. The guard prevents double-dispatch of the same email
// when the UI fails to disable re-triggering.
func (e *Engine) begin(prospectID uuid.UUID, target domain.StageID, payload MovePayload) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.inFlight[prospectID]; exists {
		return false
	}
	e.inFlight[prospectID] = pendingAction{target: target, payload: payload, startedAt: time.Now()}
	return true
}

func (e *Engine) finish(prospectID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, prospectID)
}

func (e *Engine) logMove(ctx context.Context, prospect domain.Prospect, target domain.StageID, committed bool, reason string) {
	if e.log == nil {
		return
	}
	e.log.WithContext(ctx).PipelineMove(prospect.ID.String(), string(prospect.Stage), string(target), committed, reason)
}

func validateGatePayload(gate domain.GateKind, payload MovePayload) error {
	if strings.TrimSpace(payload.RecipientEmail) == "" {
		return domain.MissingGatePayload("le prospect n'a pas d'adresse e-mail")
	}

	switch gate {
	case domain.GateDocumentDispatch:
		if payload.Document == nil {
			return domain.MissingGatePayload("aucun document sélectionné : choisissez un devis ou une facture avant l'envoi")
		}
	case domain.GateReminderDispatch:
		if strings.TrimSpace(payload.HTMLBody) == "" {
			return domain.MissingGatePayload("aucun message de relance préparé")
		}
	}
	return nil
}
