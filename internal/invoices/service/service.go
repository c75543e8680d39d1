// Package service provides business logic for invoices and the payment
// ledger.
package service

import (
	"context"
	"strings"
	"time"

	domainevents "chantier_crm_backend/internal/events"
	"chantier_crm_backend/internal/invoices/domain"
	"chantier_crm_backend/internal/invoices/repository"
	"chantier_crm_backend/internal/invoices/transport"
	"chantier_crm_backend/platform/apperr"
	"chantier_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence interface the invoices service depends on.
// Implemented by the Postgres repository; faked in tests.
type Store interface {
	NextInvoiceNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	Update(ctx context.Context, inv *domain.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddPayment(ctx context.Context, p *domain.Payment) error
	RemovePayment(ctx context.Context, invoiceID, paymentID uuid.UUID) (*domain.Payment, error)
}

// Service provides business logic for invoices
type Service struct {
	store    Store
	log      *logger.Logger
	eventBus domainevents.Bus // optional
}

// New creates a new invoices service
func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// SetEventBus injects the event bus for publishing domain events.
func (s *Service) SetEventBus(bus domainevents.Bus) {
	s.eventBus = bus
}

// Create issues a new draft invoice with a generated number.
func (s *Service) Create(ctx context.Context, req transport.CreateInvoiceRequest) (*transport.InvoiceResponse, error) {
	number, err := s.store.NextInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inv := domain.Invoice{
		ID:          uuid.New(),
		ProspectID:  req.ProspectID,
		Number:      number,
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: strings.ToLower(strings.TrimSpace(req.ClientEmail)),
		TotalCents:  req.TotalCents,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	inv.Apply()

	if err := s.store.Create(ctx, &inv); err != nil {
		return nil, err
	}

	resp := transport.ToInvoiceResponse(inv)
	return &resp, nil
}

// GetByID retrieves an invoice with its payment history.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.ToInvoiceResponse(*inv)
	return &resp, nil
}

// List retrieves invoices with filtering and pagination.
func (s *Service) List(ctx context.Context, params repository.ListParams) (*transport.ListInvoicesResponse, error) {
	result, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &transport.ListInvoicesResponse{
		Items:      transport.ToInvoiceResponses(result.Items),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Update modifies an invoice's editable fields. The total can never drop
// below what was already paid, that would corrupt the ledger.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateInvoiceRequest) (*transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ClientName != nil {
		inv.ClientName = strings.TrimSpace(*req.ClientName)
	}
	if req.ClientEmail != nil {
		inv.ClientEmail = strings.ToLower(strings.TrimSpace(*req.ClientEmail))
	}
	if req.TotalCents != nil {
		if *req.TotalCents < inv.PaidCents {
			return nil, apperr.Validation("le montant de la facture ne peut pas être inférieur au total déjà payé").
				WithCode(domain.CodeInvalidAmount)
		}
		inv.TotalCents = *req.TotalCents
	}
	if req.Notes != nil {
		inv.Notes = req.Notes
	}

	if err := s.store.Update(ctx, inv); err != nil {
		return nil, err
	}
	inv.Apply()

	resp := transport.ToInvoiceResponse(*inv)
	return &resp, nil
}

// MarkSent records that the invoice was dispatched to the client. Idempotent:
// a second call keeps the original timestamp.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID) (*transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.IsCancelled() {
		return nil, apperr.Conflict("cette facture est annulée").WithCode(domain.CodeInvoiceCancelled)
	}
	if inv.SentAt == nil {
		now := time.Now()
		inv.SentAt = &now
		if err := s.store.Update(ctx, inv); err != nil {
			return nil, err
		}
	}
	inv.Apply()

	resp := transport.ToInvoiceResponse(*inv)
	return &resp, nil
}

// Cancel voids an invoice. The payment history stays visible but the status
// becomes annulée and no further payments are accepted.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.CancelledAt == nil {
		now := time.Now()
		inv.CancelledAt = &now
		if err := s.store.Update(ctx, inv); err != nil {
			return nil, err
		}
	}
	inv.Apply()

	resp := transport.ToInvoiceResponse(*inv)
	return &resp, nil
}

// Delete removes an invoice and its payment rows.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// AddPayment records a settlement against an invoice. The amount is checked
// against the remaining balance before anything is written, and the derived
// status is recomputed from the rows afterwards.
func (s *Service) AddPayment(ctx context.Context, invoiceID uuid.UUID, req transport.AddPaymentRequest) (*transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateNewPayment(*inv, req.AmountCents); err != nil {
		return nil, err
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	method := req.Method
	if method == "" {
		method = "virement"
	}

	payment := domain.Payment{
		ID:          uuid.New(),
		InvoiceID:   inv.ID,
		AmountCents: req.AmountCents,
		Method:      method,
		Reference:   req.Reference,
		Notes:       req.Notes,
		PaidAt:      paidAt,
		CreatedAt:   time.Now(),
	}
	if err := s.store.AddPayment(ctx, &payment); err != nil {
		return nil, err
	}

	inv.Payments = append(inv.Payments, payment)
	inv.Apply()

	if s.log != nil {
		s.log.WithContext(ctx).PaymentEvent("payment_recorded", inv.ID.String(), payment.AmountCents, inv.RemainingCents, string(inv.Status))
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, domainevents.InvoicePaymentRecorded{
			BaseEvent:      domainevents.NewBaseEvent(),
			InvoiceID:      inv.ID,
			PaymentID:      payment.ID,
			Number:         inv.Number,
			ClientName:     inv.ClientName,
			ClientEmail:    inv.ClientEmail,
			AmountCents:    payment.AmountCents,
			RemainingCents: inv.RemainingCents,
			Status:         string(inv.Status),
		})
	}

	resp := transport.ToInvoiceResponse(*inv)
	return &resp, nil
}

// RemovePayment deletes a recorded payment; the ledger figures roll back to
// what the remaining rows imply.
func (s *Service) RemovePayment(ctx context.Context, invoiceID, paymentID uuid.UUID) (*transport.InvoiceResponse, error) {
	removed, err := s.store.RemovePayment(ctx, invoiceID, paymentID)
	if err != nil {
		return nil, err
	}

	inv, err := s.store.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.WithContext(ctx).PaymentEvent("payment_removed", inv.ID.String(), removed.AmountCents, inv.RemainingCents, string(inv.Status))
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, domainevents.InvoicePaymentRemoved{
			BaseEvent:      domainevents.NewBaseEvent(),
			InvoiceID:      inv.ID,
			PaymentID:      removed.ID,
			Number:         inv.Number,
			AmountCents:    removed.AmountCents,
			RemainingCents: inv.RemainingCents,
			Status:         string(inv.Status),
		})
	}

	resp := transport.ToInvoiceResponse(*inv)
	return &resp, nil
}
