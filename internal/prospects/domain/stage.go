// Package domain provides core business rules for the sales pipeline
// bounded context.
package domain

import "fmt"

// StageID identifies one position in the sales pipeline. The set of stages is
// closed and ordered; values are stored as-is in Postgres.
type StageID string

const (
	StageIntake           StageID = "all"
	StageQuoteSent        StageID = "quote"
	StageQuoteFollowup1   StageID = "quote_followup1"
	StageQuoteFollowup2   StageID = "quote_followup2"
	StageInvoiceSent      StageID = "invoice"
	StageInvoiceFollowup1 StageID = "invoice_followup1"
	StageInvoiceFollowup2 StageID = "invoice_followup2"
	StageWon              StageID = "won"
	StageLost             StageID = "lost"
)

// GateKind describes the side-effecting action required before a stage may be
// entered.
type GateKind int

const (
	// GateNone marks a stage that is entered by a direct, unconditional move.
	GateNone GateKind = iota
	// GateDocumentDispatch requires a quote/invoice document to be emailed
	// to the prospect before the move commits.
	GateDocumentDispatch
	// GateReminderDispatch requires a follow-up reminder to be emailed to
	// the prospect before the move commits.
	GateReminderDispatch
)

// Stage is an immutable catalog entry.
type Stage struct {
	ID      StageID
	Label   string
	Ordinal int
	Gate    GateKind
}

// RequiresGate reports whether entering this stage demands a prior successful
// side-effecting action.
func (s Stage) RequiresGate() bool {
	return s.Gate != GateNone
}

// Catalog is the static ordered definition of the pipeline. Terminal stages
// (won/lost) absorb prospects; they are still reachable by an explicit move.
var Catalog = []Stage{
	{ID: StageIntake, Label: "Tous les prospects", Ordinal: 0, Gate: GateNone},
	{ID: StageQuoteSent, Label: "Devis envoyé", Ordinal: 1, Gate: GateDocumentDispatch},
	{ID: StageQuoteFollowup1, Label: "Relance devis 1", Ordinal: 2, Gate: GateReminderDispatch},
	{ID: StageQuoteFollowup2, Label: "Relance devis 2", Ordinal: 3, Gate: GateReminderDispatch},
	{ID: StageInvoiceSent, Label: "Facture envoyée", Ordinal: 4, Gate: GateDocumentDispatch},
	{ID: StageInvoiceFollowup1, Label: "Relance facture 1", Ordinal: 5, Gate: GateReminderDispatch},
	{ID: StageInvoiceFollowup2, Label: "Relance facture 2", Ordinal: 6, Gate: GateReminderDispatch},
	{ID: StageWon, Label: "Gagné", Ordinal: 7, Gate: GateNone},
	{ID: StageLost, Label: "Perdu", Ordinal: 8, Gate: GateNone},
}

var catalogByID = func() map[StageID]Stage {
	m := make(map[StageID]Stage, len(Catalog))
	for _, s := range Catalog {
		m[s.ID] = s
	}
	return m
}()

// IsKnownStage reports whether the id exists in the catalog.
func IsKnownStage(id StageID) bool {
	_, ok := catalogByID[id]
	return ok
}

// StageByID looks up a catalog entry. The boolean is false for unknown ids.
func StageByID(id StageID) (Stage, bool) {
	s, ok := catalogByID[id]
	return s, ok
}

// MustStage looks up a catalog entry and panics on unknown ids. Unknown
// stages reaching this point are a programming error, not a recoverable
// runtime condition.
func MustStage(id StageID) Stage {
	s, ok := catalogByID[id]
	if !ok {
		panic(fmt.Sprintf("unknown pipeline stage %q", id))
	}
	return s
}

// IsGated reports whether entering the stage requires a gate. Panics on
// unknown ids.
func IsGated(id StageID) bool {
	return MustStage(id).RequiresGate()
}

// Ordinal returns the stage's position in the pipeline. Panics on unknown ids.
func Ordinal(id StageID) int {
	return MustStage(id).Ordinal
}

// IsTerminalStage reports whether the stage is one of the absorbing end
// states of the pipeline.
func IsTerminalStage(id StageID) bool {
	return id == StageWon || id == StageLost
}

// IsFollowupStage reports whether the stage belongs to one of the two
// follow-up families.
func IsFollowupStage(id StageID) bool {
	s, ok := catalogByID[id]
	return ok && s.Gate == GateReminderDispatch
}

// FollowupFamily distinguishes the two reminder families.
type FollowupFamily int

const (
	FamilyNone FollowupFamily = iota
	FamilyQuote
	FamilyInvoice
)

// FamilyOf returns which document family a stage belongs to. Intake and the
// terminal stages belong to no family.
func FamilyOf(id StageID) FollowupFamily {
	switch id {
	case StageQuoteSent, StageQuoteFollowup1, StageQuoteFollowup2:
		return FamilyQuote
	case StageInvoiceSent, StageInvoiceFollowup1, StageInvoiceFollowup2:
		return FamilyInvoice
	default:
		return FamilyNone
	}
}

// legacyStageAliases maps stage identifiers from the historical data model to
// their canonical ids. Normalization happens once, when rows are loaded,
// never on every comparison.
var legacyStageAliases = map[string]StageID{
	"nouveau":           StageIntake,
	"tous":              StageIntake,
	"devis_envoye":      StageQuoteSent,
	"relance_devis_1":   StageQuoteFollowup1,
	"relance_devis_2":   StageQuoteFollowup2,
	"facture_envoyee":   StageInvoiceSent,
	"relance_facture_1": StageInvoiceFollowup1,
	"relance_facture_2": StageInvoiceFollowup2,
	"gagne":             StageWon,
	"perdu":             StageLost,
}

// NormalizeLegacyStage resolves a raw stored stage value to its canonical id.
// Returns false when the value is neither canonical nor a known alias.
func NormalizeLegacyStage(raw string) (StageID, bool) {
	if IsKnownStage(StageID(raw)) {
		return StageID(raw), true
	}
	if canonical, ok := legacyStageAliases[raw]; ok {
		return canonical, true
	}
	return "", false
}
