package service

import (
	"context"
	"testing"
	"time"

	"chantier_crm_backend/internal/invoices/domain"
	"chantier_crm_backend/internal/invoices/repository"
	"chantier_crm_backend/internal/invoices/transport"
	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	invoices map[uuid.UUID]*domain.Invoice
	counter  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{invoices: make(map[uuid.UUID]*domain.Invoice)}
}

func (f *fakeStore) NextInvoiceNumber(context.Context) (string, error) {
	f.counter++
	return uuid.NewString()[:8], nil
}

func (f *fakeStore) Create(_ context.Context, inv *domain.Invoice) error {
	clone := *inv
	f.invoices[inv.ID] = &clone
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, apperr.NotFound("facture introuvable")
	}
	clone := *inv
	clone.Payments = append([]domain.Payment(nil), inv.Payments...)
	clone.Apply()
	return &clone, nil
}

func (f *fakeStore) List(context.Context, repository.ListParams) (*repository.ListResult, error) {
	return &repository.ListResult{}, nil
}

func (f *fakeStore) Update(_ context.Context, inv *domain.Invoice) error {
	stored, ok := f.invoices[inv.ID]
	if !ok {
		return apperr.NotFound("facture introuvable")
	}
	payments := stored.Payments
	clone := *inv
	clone.Payments = payments
	f.invoices[inv.ID] = &clone
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.invoices[id]; !ok {
		return apperr.NotFound("facture introuvable")
	}
	delete(f.invoices, id)
	return nil
}

func (f *fakeStore) AddPayment(_ context.Context, p *domain.Payment) error {
	inv, ok := f.invoices[p.InvoiceID]
	if !ok {
		return apperr.NotFound("facture introuvable")
	}
	inv.Payments = append(inv.Payments, *p)
	return nil
}

func (f *fakeStore) RemovePayment(_ context.Context, invoiceID, paymentID uuid.UUID) (*domain.Payment, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return nil, apperr.NotFound("facture introuvable")
	}
	for i, p := range inv.Payments {
		if p.ID == paymentID {
			inv.Payments = append(inv.Payments[:i], inv.Payments[i+1:]...)
			return &p, nil
		}
	}
	return nil, apperr.NotFound("paiement introuvable")
}

func newTestInvoice(t *testing.T, svc *Service, totalCents int64) uuid.UUID {
	t.Helper()
	resp, err := svc.Create(context.Background(), transport.CreateInvoiceRequest{
		ClientName:  "Sophie Bernard",
		ClientEmail: "Sophie.Bernard@Example.FR",
		TotalCents:  totalCents,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return resp.ID
}

func TestCreateStartsAsDraft(t *testing.T) {
	svc := New(newFakeStore(), nil)
	resp, err := svc.Create(context.Background(), transport.CreateInvoiceRequest{
		ClientName:  "Sophie Bernard",
		ClientEmail: "SOPHIE@Example.FR",
		TotalCents:  100_000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if resp.Status != string(domain.StatusDraft) {
		t.Errorf("status = %q, want %q", resp.Status, domain.StatusDraft)
	}
	if resp.ClientEmail != "sophie@example.fr" {
		t.Errorf("client email not normalized: %q", resp.ClientEmail)
	}
	if resp.RemainingCents != 100_000 {
		t.Errorf("remaining = %d, want 100000", resp.RemainingCents)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	// 1000 € invoice: record 400 €, check the derived figures, then delete
	// the payment and check they roll back.
	store := newFakeStore()
	svc := New(store, nil)
	id := newTestInvoice(t, svc, 100_000)

	if _, err := svc.MarkSent(context.Background(), id); err != nil {
		t.Fatalf("MarkSent returned error: %v", err)
	}

	resp, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: 40_000})
	if err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if resp.PaidCents != 40_000 || resp.RemainingCents != 60_000 {
		t.Errorf("paid/remaining = %d/%d, want 40000/60000", resp.PaidCents, resp.RemainingCents)
	}
	if resp.Status != string(domain.StatusPartiallyPaid) {
		t.Errorf("status = %q, want %q", resp.Status, domain.StatusPartiallyPaid)
	}

	paymentID := resp.Payments[0].ID
	resp, err = svc.RemovePayment(context.Background(), id, paymentID)
	if err != nil {
		t.Fatalf("RemovePayment returned error: %v", err)
	}
	if resp.RemainingCents != 100_000 {
		t.Errorf("remaining after removal = %d, want 100000", resp.RemainingCents)
	}
	if resp.Status != string(domain.StatusSent) {
		t.Errorf("status after removal = %q, want %q", resp.Status, domain.StatusSent)
	}
}

func TestPaymentCarriesReferenceAndNotes(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	ref := "VIR-2026-118"
	notes := "acompte reçu avant le début du chantier"
	resp, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{
		AmountCents: 30_000,
		Method:      "virement",
		Reference:   &ref,
		Notes:       &notes,
	})
	if err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}

	if len(resp.Payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(resp.Payments))
	}
	p := resp.Payments[0]
	if p.Reference == nil || *p.Reference != ref {
		t.Errorf("reference = %v, want %q", p.Reference, ref)
	}
	if p.Notes == nil || *p.Notes != notes {
		t.Errorf("notes = %v, want %q", p.Notes, notes)
	}
}

func TestAddPaymentRejectsOverpayment(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	if _, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: 40_000}); err != nil {
		t.Fatalf("first payment returned error: %v", err)
	}

	_, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: 60_001})
	if !apperr.HasCode(err, domain.CodePaymentExceedsRemaining) {
		t.Fatalf("code = %q, want %q", apperr.GetCode(err), domain.CodePaymentExceedsRemaining)
	}

	// The rejected payment must not have been written.
	resp, err := svc.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if resp.PaidCents != 40_000 {
		t.Errorf("paid = %d, want 40000 after rejected overpayment", resp.PaidCents)
	}
}

func TestAddPaymentRejectsNonPositiveAmounts(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	for _, amount := range []int64{0, -100} {
		_, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: amount})
		if !apperr.HasCode(err, domain.CodeInvalidAmount) {
			t.Errorf("amount %d: code = %q, want %q", amount, apperr.GetCode(err), domain.CodeInvalidAmount)
		}
	}
}

func TestExactPaymentSettlesInvoice(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	resp, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: 100_000})
	if err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if resp.Status != string(domain.StatusPaid) {
		t.Errorf("status = %q, want %q", resp.Status, domain.StatusPaid)
	}
	if resp.RemainingCents != 0 {
		t.Errorf("remaining = %d, want 0", resp.RemainingCents)
	}
}

func TestCancelledInvoiceAcceptsNoPayments(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	resp, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if resp.Status != string(domain.StatusCancelled) {
		t.Errorf("status = %q, want %q", resp.Status, domain.StatusCancelled)
	}

	_, err = svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: 1_000})
	if !apperr.HasCode(err, domain.CodeInvoiceCancelled) {
		t.Errorf("code = %q, want %q", apperr.GetCode(err), domain.CodeInvoiceCancelled)
	}
}

func TestCancelKeepsPaymentHistory(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	if _, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: 25_000}); err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	resp, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if len(resp.Payments) != 1 {
		t.Errorf("payments = %d, want history preserved", len(resp.Payments))
	}
	if resp.Status != string(domain.StatusCancelled) {
		t.Errorf("status = %q, want %q", resp.Status, domain.StatusCancelled)
	}
}

func TestUpdateCannotDropTotalBelowPaid(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	if _, err := svc.AddPayment(context.Background(), id, transport.AddPaymentRequest{AmountCents: 50_000}); err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}

	lower := int64(40_000)
	_, err := svc.Update(context.Background(), id, transport.UpdateInvoiceRequest{TotalCents: &lower})
	if !apperr.HasCode(err, domain.CodeInvalidAmount) {
		t.Errorf("code = %q, want %q", apperr.GetCode(err), domain.CodeInvalidAmount)
	}
}

func TestMarkSentIsIdempotent(t *testing.T) {
	svc := New(newFakeStore(), nil)
	id := newTestInvoice(t, svc, 100_000)

	first, err := svc.MarkSent(context.Background(), id)
	if err != nil {
		t.Fatalf("MarkSent returned error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := svc.MarkSent(context.Background(), id)
	if err != nil {
		t.Fatalf("second MarkSent returned error: %v", err)
	}
	if !first.SentAt.Equal(*second.SentAt) {
		t.Errorf("sentAt changed on second call: %v vs %v", first.SentAt, second.SentAt)
	}
}
