package domain

import "testing"

func TestCatalogOrdinalsAreDenseAndOrdered(t *testing.T) {
	for i, stage := range Catalog {
		if stage.Ordinal != i {
			t.Errorf("stage %q has ordinal %d, want %d", stage.ID, stage.Ordinal, i)
		}
		if Ordinal(stage.ID) != i {
			t.Errorf("Ordinal(%q) = %d, want %d", stage.ID, Ordinal(stage.ID), i)
		}
	}
}

func TestGateAssignments(t *testing.T) {
	tests := []struct {
		id       StageID
		gated    bool
		gateKind GateKind
	}{
		{StageIntake, false, GateNone},
		{StageQuoteSent, true, GateDocumentDispatch},
		{StageQuoteFollowup1, true, GateReminderDispatch},
		{StageQuoteFollowup2, true, GateReminderDispatch},
		{StageInvoiceSent, true, GateDocumentDispatch},
		{StageInvoiceFollowup1, true, GateReminderDispatch},
		{StageInvoiceFollowup2, true, GateReminderDispatch},
		{StageWon, false, GateNone},
		{StageLost, false, GateNone},
	}

	for _, tc := range tests {
		if IsGated(tc.id) != tc.gated {
			t.Errorf("IsGated(%q) = %v, want %v", tc.id, IsGated(tc.id), tc.gated)
		}
		if MustStage(tc.id).Gate != tc.gateKind {
			t.Errorf("stage %q gate = %v, want %v", tc.id, MustStage(tc.id).Gate, tc.gateKind)
		}
	}
}

func TestMustStagePanicsOnUnknownID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustStage should panic on an unknown stage id")
		}
	}()
	MustStage("prospection_lunaire")
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		id   StageID
		want FollowupFamily
	}{
		{StageQuoteSent, FamilyQuote},
		{StageQuoteFollowup1, FamilyQuote},
		{StageQuoteFollowup2, FamilyQuote},
		{StageInvoiceSent, FamilyInvoice},
		{StageInvoiceFollowup1, FamilyInvoice},
		{StageInvoiceFollowup2, FamilyInvoice},
		{StageIntake, FamilyNone},
		{StageWon, FamilyNone},
		{StageLost, FamilyNone},
	}

	for _, tc := range tests {
		if got := FamilyOf(tc.id); got != tc.want {
			t.Errorf("FamilyOf(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestNormalizeLegacyStage(t *testing.T) {
	tests := []struct {
		raw    string
		want   StageID
		wantOK bool
	}{
		// Canonical values pass through untouched.
		{"quote", StageQuoteSent, true},
		{"won", StageWon, true},
		// Historical identifiers resolve once at the loading boundary.
		{"devis_envoye", StageQuoteSent, true},
		{"relance_devis_1", StageQuoteFollowup1, true},
		{"relance_facture_2", StageInvoiceFollowup2, true},
		{"nouveau", StageIntake, true},
		{"gagne", StageWon, true},
		{"perdu", StageLost, true},
		// Garbage stays garbage.
		{"", "", false},
		{"archived", "", false},
	}

	for _, tc := range tests {
		got, ok := NormalizeLegacyStage(tc.raw)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("NormalizeLegacyStage(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}
