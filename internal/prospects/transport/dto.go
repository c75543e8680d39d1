package transport

import (
	"time"

	"chantier_crm_backend/internal/prospects/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateProspectRequest is the request body for creating a new prospect
type CreateProspectRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   string  `json:"phone" validate:"omitempty,max=30"`
	Company *string `json:"company" validate:"omitempty,max=200"`
	Notes   *string `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateProspectRequest is the request body for updating a prospect's contact
// fields. The stage is never updated here; moves go through the move endpoint.
type UpdateProspectRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Company *string `json:"company" validate:"omitempty,max=200"`
	Notes   *string `json:"notes" validate:"omitempty,max=5000"`
}

// MoveProspectRequest is the request body for a pipeline move. For document
// gated targets the document may be picked explicitly; left empty, the server
// pre-matches a candidate by kind and client email. Subject and message are
// optional overrides of the defaults shown in the confirmation dialog.
type MoveProspectRequest struct {
	TargetStage    string     `json:"targetStage" validate:"required"`
	DocumentID     *uuid.UUID `json:"documentId"`
	RecipientEmail *string    `json:"recipientEmail" validate:"omitempty,email"`
	Subject        string     `json:"subject" validate:"omitempty,max=300"`
	Message        string     `json:"message" validate:"omitempty,max=20000"`
}

// SendFollowupRequest is the request body for dispatching a follow-up
// reminder. An empty message falls back to the stage-family template.
type SendFollowupRequest struct {
	TargetStage string `json:"targetStage" validate:"required"`
	Message     string `json:"message" validate:"omitempty,max=20000"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ProspectResponse is the API representation of a prospect
type ProspectResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Company         *string    `json:"company,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Stage           string     `json:"stage"`
	StageLabel      string     `json:"stageLabel"`
	RelanceCount    int        `json:"relanceCount"`
	LinkedQuoteID   *uuid.UUID `json:"linkedQuoteId,omitempty"`
	LinkedInvoiceID *uuid.UUID `json:"linkedInvoiceId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastActionAt    time.Time  `json:"lastActionAt"`
}

// StageResponse describes one pipeline column
type StageResponse struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Ordinal int    `json:"ordinal"`
	Gated   bool   `json:"gated"`
}

// BoardColumnResponse is one column of the pipeline board with its prospects
type BoardColumnResponse struct {
	Stage     StageResponse      `json:"stage"`
	Prospects []ProspectResponse `json:"prospects"`
}

// BoardResponse is the full pipeline board
type BoardResponse struct {
	Columns []BoardColumnResponse `json:"columns"`
}

// ListProspectsResponse is a paginated prospect listing
type ListProspectsResponse struct {
	Items      []ProspectResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}

// ToProspectResponse maps a domain prospect to its API representation
func ToProspectResponse(p domain.Prospect) ProspectResponse {
	label := ""
	if s, ok := domain.StageByID(p.Stage); ok {
		label = s.Label
	}
	return ProspectResponse{
		ID:              p.ID,
		Name:            p.Name,
		Email:           p.Email,
		Phone:           p.Phone,
		Company:         p.Company,
		Notes:           p.Notes,
		Stage:           string(p.Stage),
		StageLabel:      label,
		RelanceCount:    p.RelanceCount,
		LinkedQuoteID:   p.LinkedQuoteID,
		LinkedInvoiceID: p.LinkedInvoiceID,
		CreatedAt:       p.CreatedAt,
		LastActionAt:    p.LastActionAt,
	}
}

// ToProspectResponses maps a slice of domain prospects
func ToProspectResponses(items []domain.Prospect) []ProspectResponse {
	out := make([]ProspectResponse, 0, len(items))
	for _, p := range items {
		out = append(out, ToProspectResponse(p))
	}
	return out
}
