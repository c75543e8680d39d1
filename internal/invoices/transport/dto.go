package transport

import (
	"time"

	"chantier_crm_backend/internal/invoices/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateInvoiceRequest is the request body for creating a new invoice
type CreateInvoiceRequest struct {
	ProspectID  *uuid.UUID `json:"prospectId"`
	ClientName  string     `json:"clientName" validate:"required,min=1,max=200"`
	ClientEmail string     `json:"clientEmail" validate:"required,email"`
	TotalCents  int64      `json:"totalCents" validate:"required,gt=0"`
	Notes       *string    `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateInvoiceRequest is the request body for updating an invoice
type UpdateInvoiceRequest struct {
	ClientName  *string `json:"clientName" validate:"omitempty,min=1,max=200"`
	ClientEmail *string `json:"clientEmail" validate:"omitempty,email"`
	TotalCents  *int64  `json:"totalCents" validate:"omitempty,gt=0"`
	Notes       *string `json:"notes" validate:"omitempty,max=5000"`
}

// AddPaymentRequest is the request body for recording a payment
type AddPaymentRequest struct {
	AmountCents int64      `json:"amountCents" validate:"required"`
	Method      string     `json:"method" validate:"omitempty,oneof=virement cheque especes carte autre"`
	Reference   *string    `json:"reference" validate:"omitempty,max=200"`
	Notes       *string    `json:"notes" validate:"omitempty,max=5000"`
	PaidAt      *time.Time `json:"paidAt"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// PaymentResponse is the API representation of a payment
type PaymentResponse struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoiceId"`
	AmountCents int64     `json:"amountCents"`
	Method      string    `json:"method"`
	Reference   *string   `json:"reference,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	PaidAt      time.Time `json:"paidAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InvoiceResponse is the API representation of an invoice with its derived
// ledger figures
type InvoiceResponse struct {
	ID             uuid.UUID         `json:"id"`
	ProspectID     *uuid.UUID        `json:"prospectId,omitempty"`
	Number         string            `json:"number"`
	ClientName     string            `json:"clientName"`
	ClientEmail    string            `json:"clientEmail"`
	TotalCents     int64             `json:"totalCents"`
	PaidCents      int64             `json:"paidCents"`
	RemainingCents int64             `json:"remainingCents"`
	Status         string            `json:"status"`
	Notes          *string           `json:"notes,omitempty"`
	SentAt         *time.Time        `json:"sentAt,omitempty"`
	CancelledAt    *time.Time        `json:"cancelledAt,omitempty"`
	Payments       []PaymentResponse `json:"payments,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ListInvoicesResponse is a paginated invoice listing
type ListInvoicesResponse struct {
	Items      []InvoiceResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// ToPaymentResponse maps a domain payment to its API representation
func ToPaymentResponse(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		AmountCents: p.AmountCents,
		Method:      p.Method,
		Reference:   p.Reference,
		Notes:       p.Notes,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
	}
}

// ToInvoiceResponse maps a domain invoice to its API representation
func ToInvoiceResponse(inv domain.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID,
		ProspectID:     inv.ProspectID,
		Number:         inv.Number,
		ClientName:     inv.ClientName,
		ClientEmail:    inv.ClientEmail,
		TotalCents:     inv.TotalCents,
		PaidCents:      inv.PaidCents,
		RemainingCents: inv.RemainingCents,
		Status:         string(inv.Status),
		Notes:          inv.Notes,
		SentAt:         inv.SentAt,
		CancelledAt:    inv.CancelledAt,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, ToPaymentResponse(p))
	}
	return resp
}

// ToInvoiceResponses maps a slice of domain invoices
func ToInvoiceResponses(items []domain.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(items))
	for _, inv := range items {
		out = append(out, ToInvoiceResponse(inv))
	}
	return out
}
