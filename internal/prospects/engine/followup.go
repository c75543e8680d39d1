package engine

import (
	"context"
	"fmt"
	"strings"

	"chantier_crm_backend/internal/prospects/domain"
)

// Subjects and default bodies for the two reminder families. The body is a
// starting point the user can edit; whatever text reaches SendFollowup is
// dispatched verbatim.
const (
	subjectQuoteFollowup   = "Relance : votre devis"
	subjectInvoiceFollowup = "Relance : votre facture"
)

// DefaultFollowupMessage returns the stage-family template for a reminder,
// personalized with the prospect's name.
func DefaultFollowupMessage(target domain.StageID, prospectName string) string {
	switch domain.FamilyOf(target) {
	case domain.FamilyQuote:
		return fmt.Sprintf(
			"<p>Bonjour %s,</p><p>Nous revenons vers vous au sujet du devis que nous vous avons transmis. "+
				"Avez-vous eu le temps de l'examiner ? Nous restons à votre disposition pour toute question.</p>",
			prospectName)
	case domain.FamilyInvoice:
		return fmt.Sprintf(
			"<p>Bonjour %s,</p><p>Sauf erreur de notre part, notre facture reste en attente de règlement. "+
				"Merci de nous indiquer la date de paiement prévue.</p>",
			prospectName)
	default:
		return ""
	}
}

// FollowupSubject returns the reminder subject for a follow-up stage family.
func FollowupSubject(target domain.StageID) string {
	if domain.FamilyOf(target) == domain.FamilyInvoice {
		return subjectInvoiceFollowup
	}
	return subjectQuoteFollowup
}

// FollowupDispatcher is the narrower gated path restricted to the four
// follow-up stages. It shares the engine's commit discipline: the stage
// change and relance counter only move on a successful send.
type FollowupDispatcher struct {
	engine *Engine
}

// NewFollowupDispatcher creates a follow-up dispatcher on top of the engine.
func NewFollowupDispatcher(eng *Engine) *FollowupDispatcher {
	return &FollowupDispatcher{engine: eng}
}

// SendFollowup dispatches a reminder and, only on success, commits the move
// to the corresponding follow-up stage. An empty message falls back to the
// stage-family template; a user-edited message is sent exactly as passed,
// never reverted to the template.
func (d *FollowupDispatcher) SendFollowup(ctx context.Context, prospect domain.Prospect, target domain.StageID, message string) (domain.Prospect, error) {
	if !domain.IsFollowupStage(target) {
		return prospect, domain.InvalidTransition(prospect.Stage, target)
	}

	body := message
	if strings.TrimSpace(body) == "" {
		body = DefaultFollowupMessage(target, prospect.Name)
	}

	return d.engine.RequestMove(ctx, prospect, target, MovePayload{
		RecipientEmail: prospect.Email,
		Subject:        FollowupSubject(target),
		HTMLBody:       body,
	})
}
