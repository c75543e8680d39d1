// Package service provides business logic for the site visit planning.
package service

import (
	"context"
	"strings"
	"time"

	"chantier_crm_backend/internal/planning/repository"
	"chantier_crm_backend/internal/planning/transport"
	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

const visitClashCode = "visit_overlap"

// ReminderScheduler enqueues a delayed reminder before a visit starts.
// Implemented by the asynq task client.
type ReminderScheduler interface {
	ScheduleVisitReminder(ctx context.Context, visitID uuid.UUID, remindAt time.Time) error
}

// Service provides business logic for visits
type Service struct {
	repo      *repository.Repository
	scheduler ReminderScheduler // optional, nil disables reminders

	reminderLead time.Duration
}

// New creates a new planning service. Reminders fire reminderLead before the
// visit start.
func New(repo *repository.Repository, reminderLead time.Duration) *Service {
	return &Service{repo: repo, reminderLead: reminderLead}
}

// SetReminderScheduler injects the visit reminder scheduler.
func (s *Service) SetReminderScheduler(sched ReminderScheduler) {
	s.scheduler = sched
}

// Create plans a new site visit. Overlapping another visit is rejected, the
// crew can only be in one place.
func (s *Service) Create(ctx context.Context, req transport.CreateVisitRequest) (*transport.VisitResponse, error) {
	if err := validateWindow(req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}
	if err := s.ensureNoClash(ctx, req.StartsAt, req.EndsAt, uuid.Nil); err != nil {
		return nil, err
	}

	now := time.Now()
	v := repository.Visit{
		ID:         uuid.New(),
		ProspectID: req.ProspectID,
		Title:      strings.TrimSpace(req.Title),
		Location:   strings.TrimSpace(req.Location),
		Notes:      req.Notes,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, &v); err != nil {
		return nil, err
	}

	s.scheduleReminder(ctx, v)

	resp := transport.ToVisitResponse(v)
	return &resp, nil
}

// GetByID retrieves a visit.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.VisitResponse, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.ToVisitResponse(*v)
	return &resp, nil
}

// ListBetween retrieves the visits intersecting a calendar window.
func (s *Service) ListBetween(ctx context.Context, from, to time.Time) ([]transport.VisitResponse, error) {
	if !to.After(from) {
		return nil, apperr.Validation("la fin de la période doit être postérieure au début")
	}
	items, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return transport.ToVisitResponses(items), nil
}

// Update reschedules or edits a visit.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateVisitRequest) (*transport.VisitResponse, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rescheduled := false
	if req.StartsAt != nil {
		v.StartsAt = *req.StartsAt
		rescheduled = true
	}
	if req.EndsAt != nil {
		v.EndsAt = *req.EndsAt
		rescheduled = true
	}
	if rescheduled {
		if err := validateWindow(v.StartsAt, v.EndsAt); err != nil {
			return nil, err
		}
		if err := s.ensureNoClash(ctx, v.StartsAt, v.EndsAt, v.ID); err != nil {
			return nil, err
		}
	}

	if req.ProspectID != nil {
		v.ProspectID = req.ProspectID
	}
	if req.Title != nil {
		v.Title = strings.TrimSpace(*req.Title)
	}
	if req.Location != nil {
		v.Location = strings.TrimSpace(*req.Location)
	}
	if req.Notes != nil {
		v.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}

	if rescheduled {
		s.scheduleReminder(ctx, *v)
	}

	resp := transport.ToVisitResponse(*v)
	return &resp, nil
}

// Delete removes a visit.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ensureNoClash(ctx context.Context, startsAt, endsAt time.Time, excludeID uuid.UUID) error {
	count, err := s.repo.CountOverlapping(ctx, startsAt, endsAt, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("une autre visite est déjà planifiée sur ce créneau").WithCode(visitClashCode)
	}
	return nil
}

func (s *Service) scheduleReminder(ctx context.Context, v repository.Visit) {
	if s.scheduler == nil {
		return
	}
	remindAt := v.StartsAt.Add(-s.reminderLead)
	if remindAt.Before(time.Now()) {
		return
	}
	_ = s.scheduler.ScheduleVisitReminder(ctx, v.ID, remindAt)
}

func validateWindow(startsAt, endsAt time.Time) error {
	if !endsAt.After(startsAt) {
		return apperr.Validation("la fin de la visite doit être postérieure au début")
	}
	return nil
}
