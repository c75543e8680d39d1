// Package domain provides core business rules for invoices and their payment
// ledger.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an invoice. It is never stored: the
// persisted facts are the amount, the sent/cancelled flags and the payment
// rows, and the status is derived from them on every read.
type Status string

const (
	StatusDraft         Status = "brouillon"
	StatusSent          Status = "envoyée"
	StatusPartiallyPaid Status = "partiellement_payée"
	StatusPaid          Status = "payée"
	StatusCancelled     Status = "annulée"
)

// Invoice is an issued invoice with its derived ledger figures. Monetary
// amounts are integer cents.
type Invoice struct {
	ID          uuid.UUID
	ProspectID  *uuid.UUID
	Number      string
	ClientName  string
	ClientEmail string
	TotalCents  int64
	Notes       *string

	SentAt      *time.Time
	CancelledAt *time.Time

	Payments []Payment

	// Derived by the ledger, recomputed on load.
	PaidCents      int64
	RemainingCents int64
	Status         Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment is one recorded settlement against an invoice.
type Payment struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	AmountCents int64
	Method      string
	Reference   *string
	Notes       *string
	PaidAt      time.Time
	CreatedAt   time.Time
}

// IsSent reports whether the invoice was dispatched to the client.
func (i Invoice) IsSent() bool { return i.SentAt != nil }

// IsCancelled reports whether the invoice was voided.
func (i Invoice) IsCancelled() bool { return i.CancelledAt != nil }
