package domain

import (
	"fmt"

	"chantier_crm_backend/platform/apperr"
)

// Machine-readable error codes surfaced to the UI for pipeline failures.
const (
	CodeInvalidTransition  = "invalid_transition"
	CodeGateActionFailed   = "gate_action_failed"
	CodeMissingGatePayload = "missing_gate_payload"
)

// TransitionKind classifies a requested stage move.
type TransitionKind int

const (
	// TransitionInvalid marks a move that must be rejected outright.
	TransitionInvalid TransitionKind = iota
	// TransitionUnconditional commits immediately with no side effect
	// besides the stage write itself.
	TransitionUnconditional
	// TransitionGated commits only after the required external action
	// succeeds.
	TransitionGated
)

// Decision is the output of the transition guard.
type Decision struct {
	Kind TransitionKind
	// RequiredGate is set when Kind is TransitionGated.
	RequiredGate GateKind
}

// Evaluate decides how a (current → target) move must be handled. It is pure
// and deterministic: no side effects, so it can be tested independent of any
// network or email behavior.
//
// A move is Invalid when the target does not exist in the catalog or equals
// the current stage (a same-column drop is a no-op and must be rejected, not
// silently committed). Gated targets carry the gate kind of the target stage;
// every other known target, including direct moves to won/lost from any
// stage, is unconditional.
func Evaluate(current, target StageID) Decision {
	stage, ok := StageByID(target)
	if !ok {
		return Decision{Kind: TransitionInvalid}
	}
	if target == current {
		return Decision{Kind: TransitionInvalid}
	}
	if stage.RequiresGate() {
		return Decision{Kind: TransitionGated, RequiredGate: stage.Gate}
	}
	return Decision{Kind: TransitionUnconditional}
}

// InvalidTransition builds the rejection error for a refused move.
func InvalidTransition(current, target StageID) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("transition de %q vers %q refusée", current, target)).
		WithCode(CodeInvalidTransition)
}

// GateActionFailed wraps a failed external dispatch. No state was changed;
// the caller may retry the same move.
func GateActionFailed(err error) *apperr.Error {
	return apperr.Wrap(apperr.KindUnavailable, "l'envoi requis a échoué, le prospect n'a pas changé d'étape", err).
		WithCode(CodeGateActionFailed)
}

// MissingGatePayload rejects a gated move whose payload was never prepared.
// The external action is not attempted at all.
func MissingGatePayload(message string) *apperr.Error {
	return apperr.Validation(message).WithCode(CodeMissingGatePayload)
}
