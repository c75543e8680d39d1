// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"chantier_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Prospect Domain Events
// =============================================================================

// ProspectCreated is published when a new prospect enters the pipeline.
type ProspectCreated struct {
	BaseEvent
	ProspectID uuid.UUID `json:"prospectId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
}

func (e ProspectCreated) EventName() string { return "prospects.prospect.created" }

// ProspectStageChanged is published after a pipeline move committed. It is
// never published for rejected or failed moves.
type ProspectStageChanged struct {
	BaseEvent
	ProspectID   uuid.UUID `json:"prospectId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	FromStage    string    `json:"fromStage"`
	ToStage      string    `json:"toStage"`
	RelanceCount int       `json:"relanceCount"`
}

func (e ProspectStageChanged) EventName() string { return "prospects.stage.changed" }

// FollowupReminderDue is published by the scheduler worker when a prospect
// has sat in a stage past the configured reminder delay.
type FollowupReminderDue struct {
	BaseEvent
	ProspectID uuid.UUID `json:"prospectId"`
	Name       string    `json:"name"`
	Stage      string    `json:"stage"`
	IdleSince  time.Time `json:"idleSince"`
}

func (e FollowupReminderDue) EventName() string { return "prospects.followup.due" }

// =============================================================================
// Invoice Domain Events
// =============================================================================

// InvoicePaymentRecorded is published when a payment is added to an invoice.
type InvoicePaymentRecorded struct {
	BaseEvent
	InvoiceID      uuid.UUID `json:"invoiceId"`
	PaymentID      uuid.UUID `json:"paymentId"`
	Number         string    `json:"number"`
	ClientName     string    `json:"clientName"`
	ClientEmail    string    `json:"clientEmail"`
	AmountCents    int64     `json:"amountCents"`
	RemainingCents int64     `json:"remainingCents"`
	Status         string    `json:"status"`
}

func (e InvoicePaymentRecorded) EventName() string { return "invoices.payment.recorded" }

// InvoicePaymentRemoved is published when a recorded payment is deleted.
type InvoicePaymentRemoved struct {
	BaseEvent
	InvoiceID      uuid.UUID `json:"invoiceId"`
	PaymentID      uuid.UUID `json:"paymentId"`
	Number         string    `json:"number"`
	AmountCents    int64     `json:"amountCents"`
	RemainingCents int64     `json:"remainingCents"`
	Status         string    `json:"status"`
}

func (e InvoicePaymentRemoved) EventName() string { return "invoices.payment.removed" }

// =============================================================================
// Planning Domain Events
// =============================================================================

// VisitReminderDue is published by the scheduler worker shortly before a
// planned site visit starts.
type VisitReminderDue struct {
	BaseEvent
	VisitID      uuid.UUID `json:"visitId"`
	ProspectName string    `json:"prospectName"`
	Location     string    `json:"location"`
	StartsAt     time.Time `json:"startsAt"`
}

func (e VisitReminderDue) EventName() string { return "planning.visit.reminder_due" }
