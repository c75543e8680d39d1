package domain

import (
	"testing"
	"time"

	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

func payment(amountCents int64) Payment {
	return Payment{
		ID:          uuid.New(),
		AmountCents: amountCents,
		Method:      "virement",
		PaidAt:      time.Now(),
	}
}

func TestDeriveStatusPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		payments  []int64
		cancelled bool
		sent      bool
		want      Status
	}{
		{"draft, nothing recorded", 100_000, nil, false, false, StatusDraft},
		{"sent, no payments", 100_000, nil, false, true, StatusSent},
		{"partial payment", 100_000, []int64{40_000}, false, true, StatusPartiallyPaid},
		{"partial before sending", 100_000, []int64{40_000}, false, false, StatusPartiallyPaid},
		{"fully paid", 100_000, []int64{40_000, 60_000}, false, true, StatusPaid},
		{"fully paid in one go", 100_000, []int64{100_000}, false, false, StatusPaid},
		{"cancelled wins over paid", 100_000, []int64{100_000}, true, true, StatusCancelled},
		{"cancelled wins over draft", 100_000, nil, true, false, StatusCancelled},
		{"zero total never counts as paid", 0, nil, false, true, StatusSent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var payments []Payment
			for _, amount := range tc.payments {
				payments = append(payments, payment(amount))
			}
			got := Derive(tc.total, payments, tc.cancelled, tc.sent)
			if got.Status != tc.want {
				t.Errorf("status = %q, want %q", got.Status, tc.want)
			}
		})
	}
}

func TestDeriveLedgerFigures(t *testing.T) {
	// 1000 € invoice, 400 € payment: 400 paid, 600 remaining. Deleting the
	// payment restores the full remaining amount.
	invoice := Invoice{
		ID:         uuid.New(),
		TotalCents: 100_000,
		Payments:   []Payment{payment(40_000)},
	}
	now := time.Now()
	invoice.SentAt = &now
	invoice.Apply()

	if invoice.PaidCents != 40_000 {
		t.Errorf("paid = %d, want 40000", invoice.PaidCents)
	}
	if invoice.RemainingCents != 60_000 {
		t.Errorf("remaining = %d, want 60000", invoice.RemainingCents)
	}
	if invoice.Status != StatusPartiallyPaid {
		t.Errorf("status = %q, want %q", invoice.Status, StatusPartiallyPaid)
	}

	invoice.Payments = nil
	invoice.Apply()
	if invoice.RemainingCents != 100_000 {
		t.Errorf("remaining after deletion = %d, want 100000", invoice.RemainingCents)
	}
	if invoice.Status != StatusSent {
		t.Errorf("status after deletion = %q, want %q", invoice.Status, StatusSent)
	}
}

func TestDeriveRemainingNeverNegative(t *testing.T) {
	// Historical rows may overshoot; remaining clamps at zero.
	got := Derive(50_000, []Payment{payment(60_000)}, false, true)
	if got.RemainingCents != 0 {
		t.Errorf("remaining = %d, want 0", got.RemainingCents)
	}
	if got.Status != StatusPaid {
		t.Errorf("status = %q, want %q", got.Status, StatusPaid)
	}
}

func TestValidateNewPayment(t *testing.T) {
	now := time.Now()
	base := Invoice{ID: uuid.New(), TotalCents: 100_000, SentAt: &now}

	tests := []struct {
		name     string
		invoice  func() Invoice
		amount   int64
		wantCode string
	}{
		{"valid partial", func() Invoice { return base }, 40_000, ""},
		{"valid exact remainder", func() Invoice {
			inv := base
			inv.Payments = []Payment{payment(40_000)}
			return inv
		}, 60_000, ""},
		{"zero amount", func() Invoice { return base }, 0, CodeInvalidAmount},
		{"negative amount", func() Invoice { return base }, -500, CodeInvalidAmount},
		{"exceeds total", func() Invoice { return base }, 100_001, CodePaymentExceedsRemaining},
		{"exceeds remaining", func() Invoice {
			inv := base
			inv.Payments = []Payment{payment(40_000)}
			return inv
		}, 60_001, CodePaymentExceedsRemaining},
		{"cancelled accepts nothing", func() Invoice {
			inv := base
			inv.CancelledAt = &now
			return inv
		}, 1_000, CodeInvoiceCancelled},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNewPayment(tc.invoice(), tc.amount)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.HasCode(err, tc.wantCode) {
				t.Errorf("code = %q, want %q", apperr.GetCode(err), tc.wantCode)
			}
		})
	}
}

func TestFormatEuros(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0,00 €"},
		{5, "0,05 €"},
		{123456, "1234,56 €"},
		{-2500, "-25,00 €"},
	}
	for _, tc := range tests {
		if got := FormatEuros(tc.cents); got != tc.want {
			t.Errorf("FormatEuros(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
