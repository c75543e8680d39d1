package domain

import (
	"fmt"

	"chantier_crm_backend/platform/apperr"
)

// Machine-readable error codes for ledger failures.
const (
	CodeInvalidAmount           = "invalid_amount"
	CodePaymentExceedsRemaining = "payment_exceeds_remaining"
	CodeInvoiceCancelled        = "invoice_cancelled"
)

// Ledger holds the figures derived from an invoice's payment rows.
type Ledger struct {
	PaidCents      int64
	RemainingCents int64
	Status         Status
}

// Derive computes the ledger from the persisted facts. Status precedence,
// highest first: cancelled, fully paid, partially paid, sent, draft. A
// cancelled invoice keeps its payment history visible but its status is
// annulée regardless of the amounts.
func Derive(totalCents int64, payments []Payment, cancelled, sent bool) Ledger {
	var paid int64
	for _, p := range payments {
		paid += p.AmountCents
	}

	remaining := totalCents - paid
	if remaining < 0 {
		remaining = 0
	}

	status := StatusDraft
	switch {
	case cancelled:
		status = StatusCancelled
	case totalCents > 0 && paid >= totalCents:
		status = StatusPaid
	case paid > 0:
		status = StatusPartiallyPaid
	case sent:
		status = StatusSent
	}

	return Ledger{PaidCents: paid, RemainingCents: remaining, Status: status}
}

// Apply recomputes the invoice's derived fields from its payment rows.
func (i *Invoice) Apply() {
	ledger := Derive(i.TotalCents, i.Payments, i.IsCancelled(), i.IsSent())
	i.PaidCents = ledger.PaidCents
	i.RemainingCents = ledger.RemainingCents
	i.Status = ledger.Status
}

// ValidateNewPayment checks a payment before it is recorded. Amounts must be
// strictly positive and must not take the paid total past the invoice amount;
// cancelled invoices accept no payments at all.
func ValidateNewPayment(invoice Invoice, amountCents int64) error {
	if invoice.IsCancelled() {
		return apperr.Conflict("cette facture est annulée, aucun paiement ne peut être enregistré").
			WithCode(CodeInvoiceCancelled)
	}
	if amountCents <= 0 {
		return apperr.Validation("le montant du paiement doit être strictement positif").
			WithCode(CodeInvalidAmount)
	}
	ledger := Derive(invoice.TotalCents, invoice.Payments, false, invoice.IsSent())
	if amountCents > ledger.RemainingCents {
		return apperr.Validation(fmt.Sprintf(
			"le paiement de %s dépasse le restant dû de %s",
			FormatEuros(amountCents), FormatEuros(ledger.RemainingCents))).
			WithCode(CodePaymentExceedsRemaining)
	}
	return nil
}

// FormatEuros renders integer cents as a French-style euro amount, e.g.
// 123456 → "1234,56 €".
func FormatEuros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d €", sign, cents/100, cents%100)
}
