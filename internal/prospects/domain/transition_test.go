package domain

import (
	"testing"

	"chantier_crm_backend/platform/apperr"
)

func TestEvaluateCoversEveryStagePair(t *testing.T) {
	// For every known (current, target) pair the guard must return exactly
	// one of the three decisions, and the gated set must match the catalog.
	for _, current := range Catalog {
		for _, target := range Catalog {
			decision := Evaluate(current.ID, target.ID)

			switch {
			case current.ID == target.ID:
				if decision.Kind != TransitionInvalid {
					t.Errorf("Evaluate(%q, %q): same-stage move must be invalid, got %v", current.ID, target.ID, decision.Kind)
				}
			case target.RequiresGate():
				if decision.Kind != TransitionGated {
					t.Errorf("Evaluate(%q, %q) = %v, want gated", current.ID, target.ID, decision.Kind)
				}
				if decision.RequiredGate != target.Gate {
					t.Errorf("Evaluate(%q, %q) gate = %v, want %v", current.ID, target.ID, decision.RequiredGate, target.Gate)
				}
			default:
				if decision.Kind != TransitionUnconditional {
					t.Errorf("Evaluate(%q, %q) = %v, want unconditional", current.ID, target.ID, decision.Kind)
				}
			}
		}
	}
}

func TestEvaluateUnknownTargetIsInvalid(t *testing.T) {
	decision := Evaluate(StageIntake, "archived")
	if decision.Kind != TransitionInvalid {
		t.Fatalf("Evaluate with unknown target = %v, want invalid", decision.Kind)
	}
}

func TestEvaluateTerminalMovesAreUnconditional(t *testing.T) {
	// Direct moves to won/lost from any stage commit without a gate.
	for _, current := range Catalog {
		for _, terminal := range []StageID{StageWon, StageLost} {
			if current.ID == terminal {
				continue
			}
			if decision := Evaluate(current.ID, terminal); decision.Kind != TransitionUnconditional {
				t.Errorf("Evaluate(%q, %q) = %v, want unconditional", current.ID, terminal, decision.Kind)
			}
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	first := Evaluate(StageQuoteSent, StageQuoteFollowup1)
	for i := 0; i < 100; i++ {
		if got := Evaluate(StageQuoteSent, StageQuoteFollowup1); got != first {
			t.Fatalf("Evaluate returned %v after returning %v", got, first)
		}
	}
}

func TestTransitionErrorCodes(t *testing.T) {
	if err := InvalidTransition(StageIntake, StageIntake); !apperr.HasCode(err, CodeInvalidTransition) {
		t.Errorf("InvalidTransition code = %q, want %q", apperr.GetCode(err), CodeInvalidTransition)
	}
	if err := MissingGatePayload("aucun document choisi"); !apperr.HasCode(err, CodeMissingGatePayload) {
		t.Errorf("MissingGatePayload code = %q, want %q", apperr.GetCode(err), CodeMissingGatePayload)
	}
	gateErr := GateActionFailed(errSMTPDown)
	if !apperr.HasCode(gateErr, CodeGateActionFailed) {
		t.Errorf("GateActionFailed code = %q, want %q", apperr.GetCode(gateErr), CodeGateActionFailed)
	}
	if !apperr.Is(gateErr, apperr.KindUnavailable) {
		t.Errorf("GateActionFailed kind = %v, want KindUnavailable", apperr.GetKind(gateErr))
	}
}

var errSMTPDown = apperr.Internal("smtp down")
