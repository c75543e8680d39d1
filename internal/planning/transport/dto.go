package transport

import (
	"time"

	"chantier_crm_backend/internal/planning/repository"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateVisitRequest is the request body for planning a site visit
type CreateVisitRequest struct {
	ProspectID *uuid.UUID `json:"prospectId"`
	Title      string     `json:"title" validate:"required,min=1,max=200"`
	Location   string     `json:"location" validate:"required,min=1,max=500"`
	Notes      *string    `json:"notes" validate:"omitempty,max=5000"`
	StartsAt   time.Time  `json:"startsAt" validate:"required"`
	EndsAt     time.Time  `json:"endsAt" validate:"required"`
}

// UpdateVisitRequest is the request body for rescheduling or editing a visit
type UpdateVisitRequest struct {
	ProspectID *uuid.UUID `json:"prospectId"`
	Title      *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Location   *string    `json:"location" validate:"omitempty,min=1,max=500"`
	Notes      *string    `json:"notes" validate:"omitempty,max=5000"`
	StartsAt   *time.Time `json:"startsAt"`
	EndsAt     *time.Time `json:"endsAt"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// VisitResponse is the API representation of a planned visit
type VisitResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProspectID *uuid.UUID `json:"prospectId,omitempty"`
	Title      string     `json:"title"`
	Location   string     `json:"location"`
	Notes      *string    `json:"notes,omitempty"`
	StartsAt   time.Time  `json:"startsAt"`
	EndsAt     time.Time  `json:"endsAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// ToVisitResponse maps a repository visit to its API representation
func ToVisitResponse(v repository.Visit) VisitResponse {
	return VisitResponse{
		ID:         v.ID,
		ProspectID: v.ProspectID,
		Title:      v.Title,
		Location:   v.Location,
		Notes:      v.Notes,
		StartsAt:   v.StartsAt,
		EndsAt:     v.EndsAt,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

// ToVisitResponses maps a slice of repository visits
func ToVisitResponses(items []repository.Visit) []VisitResponse {
	out := make([]VisitResponse, 0, len(items))
	for _, v := range items {
		out = append(out, ToVisitResponse(v))
	}
	return out
}
