package email

import (
	"html/template"
	"strings"
	"testing"
)

func TestReminderTemplateKeepsBodyVerbatim(t *testing.T) {
	body := `<p>Bonjour Martin,</p><p>Petit rappel concernant le devis DEV-2026-0012 &amp; ses options.</p>`
	out, err := renderEmailTemplate("followup.html", bodyEmailData{
		baseEmailData: baseEmailData{Title: "Relance : votre devis", Heading: "Relance : votre devis"},
		Body:          template.HTML(body),
	})
	if err != nil {
		t.Fatalf("renderEmailTemplate returned error: %v", err)
	}
	if !strings.Contains(out, body) {
		t.Errorf("user-authored body was altered by the layout:\n%s", out)
	}
}

func TestPaymentReceiptTemplate(t *testing.T) {
	out, err := renderEmailTemplate("payment_receipt.html", paymentReceiptEmailData{
		baseEmailData:      baseEmailData{Title: "Reçu", Heading: "Paiement bien reçu"},
		ClientName:         "Sophie Bernard",
		InvoiceNumber:      "FAC-2026-0033",
		AmountFormatted:    formatCurrencyEUR(40_000),
		RemainingFormatted: formatCurrencyEUR(60_000),
	})
	if err != nil {
		t.Fatalf("renderEmailTemplate returned error: %v", err)
	}
	for _, want := range []string{"Sophie Bernard", "FAC-2026-0033", "400,00 €", "600,00 €"} {
		if !strings.Contains(out, want) {
			t.Errorf("receipt missing %q", want)
		}
	}
}

func TestFormatCurrencyEUR(t *testing.T) {
	if got := formatCurrencyEUR(123456); got != "1234,56 €" {
		t.Errorf("formatCurrencyEUR = %q", got)
	}
}
