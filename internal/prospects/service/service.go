// Package service provides business logic for prospects and the sales
// pipeline.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainevents "chantier_crm_backend/internal/events"
	"chantier_crm_backend/internal/prospects/domain"
	"chantier_crm_backend/internal/prospects/engine"
	"chantier_crm_backend/internal/prospects/repository"
	"chantier_crm_backend/internal/prospects/transport"
	"chantier_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// DocumentInfo describes a stored quote/invoice PDF without importing the
// documents domain.
type DocumentInfo struct {
	Ref         engine.DocumentRef
	ClientEmail string
}

// DocumentFinder is the narrow interface the prospects service needs to
// resolve a document for a gated move. Implemented by an adapter in
// internal/adapters wrapping the documents service.
type DocumentFinder interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*DocumentInfo, error)
	// FindCandidate returns the most recent document of the given kind
	// belonging to the client email, or nil when none matches.
	FindCandidate(ctx context.Context, kind, clientEmail string) (*DocumentInfo, error)
}

// FollowupScheduler enqueues a delayed follow-up check after a committed
// move. Implemented by the asynq task client.
type FollowupScheduler interface {
	ScheduleFollowupCheck(ctx context.Context, prospectID uuid.UUID, stage domain.StageID, delay time.Duration) error
}

// Service provides business logic for prospects
type Service struct {
	repo      *repository.Repository
	engine    *engine.Engine
	followups *engine.FollowupDispatcher
	documents DocumentFinder    // optional, nil disables candidate pre-matching
	scheduler FollowupScheduler // optional, nil disables reminder scheduling
	eventBus  domainevents.Bus  // optional

	followupDelay time.Duration
}

// New creates a new prospects service
func New(repo *repository.Repository, eng *engine.Engine, followupDelay time.Duration) *Service {
	return &Service{
		repo:          repo,
		engine:        eng,
		followups:     engine.NewFollowupDispatcher(eng),
		followupDelay: followupDelay,
	}
}

// SetDocumentFinder injects the document lookup (set after construction to break circular deps).
func (s *Service) SetDocumentFinder(finder DocumentFinder) {
	s.documents = finder
}

// SetFollowupScheduler injects the delayed follow-up check scheduler.
func (s *Service) SetFollowupScheduler(sched FollowupScheduler) {
	s.scheduler = sched
}

// SetEventBus injects the event bus for publishing domain events.
func (s *Service) SetEventBus(bus domainevents.Bus) {
	s.eventBus = bus
}

// Create registers a new prospect in the intake stage.
func (s *Service) Create(ctx context.Context, req transport.CreateProspectRequest) (*transport.ProspectResponse, error) {
	now := time.Now()
	p := domain.Prospect{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        phone.NormalizeE164(req.Phone),
		Company:      req.Company,
		Notes:        req.Notes,
		Stage:        domain.StageIntake,
		CreatedAt:    now,
		LastActionAt: now,
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, domainevents.ProspectCreated{
			BaseEvent:  domainevents.NewBaseEvent(),
			ProspectID: p.ID,
			Name:       p.Name,
			Email:      p.Email,
		})
	}

	resp := transport.ToProspectResponse(p)
	return &resp, nil
}

// GetByID retrieves a single prospect.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.ProspectResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.ToProspectResponse(*p)
	return &resp, nil
}

// List retrieves prospects with filtering and pagination.
func (s *Service) List(ctx context.Context, params repository.ListParams) (*transport.ListProspectsResponse, error) {
	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &transport.ListProspectsResponse{
		Items:      transport.ToProspectResponses(result.Items),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Board returns the full pipeline board: one column per catalog stage, in
// catalog order, each holding its prospects. Empty columns are included so
// the board always renders the complete pipeline.
func (s *Service) Board(ctx context.Context) (*transport.BoardResponse, error) {
	prospects, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byStage := make(map[domain.StageID][]transport.ProspectResponse)
	for _, p := range prospects {
		byStage[p.Stage] = append(byStage[p.Stage], transport.ToProspectResponse(p))
	}

	board := transport.BoardResponse{Columns: make([]transport.BoardColumnResponse, 0, len(domain.Catalog))}
	for _, stage := range domain.Catalog {
		column := transport.BoardColumnResponse{
			Stage: transport.StageResponse{
				ID:      string(stage.ID),
				Label:   stage.Label,
				Ordinal: stage.Ordinal,
				Gated:   stage.RequiresGate(),
			},
			Prospects: byStage[stage.ID],
		}
		if column.Prospects == nil {
			column.Prospects = []transport.ProspectResponse{}
		}
		board.Columns = append(board.Columns, column)
	}
	return &board, nil
}

// Stages returns the ordered stage catalog.
func (s *Service) Stages() []transport.StageResponse {
	out := make([]transport.StageResponse, 0, len(domain.Catalog))
	for _, stage := range domain.Catalog {
		out = append(out, transport.StageResponse{
			ID:      string(stage.ID),
			Label:   stage.Label,
			Ordinal: stage.Ordinal,
			Gated:   stage.RequiresGate(),
		})
	}
	return out
}

// Update modifies a prospect's contact fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateProspectRequest) (*transport.ProspectResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		p.Phone = phone.NormalizeE164(*req.Phone)
	}
	if req.Company != nil {
		p.Company = req.Company
	}
	if req.Notes != nil {
		p.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	resp := transport.ToProspectResponse(*p)
	return &resp, nil
}

// Delete removes a prospect.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Move executes a pipeline move. Document gated targets resolve their
// attachment first: an explicit documentId wins, otherwise the most recent
// document of the right kind for the prospect's email is pre-matched. The
// stage only changes if the engine commits.
func (s *Service) Move(ctx context.Context, id uuid.UUID, req transport.MoveProspectRequest) (*transport.ProspectResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := domain.StageID(req.TargetStage)

	recipient := p.Email
	if req.RecipientEmail != nil && *req.RecipientEmail != "" {
		recipient = *req.RecipientEmail
	}

	payload := engine.MovePayload{
		RecipientEmail: recipient,
		Subject:        req.Subject,
		HTMLBody:       req.Message,
	}

	var doc *DocumentInfo
	if stage, ok := domain.StageByID(target); ok && stage.Gate == domain.GateDocumentDispatch {
		doc, err = s.resolveDocument(ctx, p, target, req.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			payload.Document = &doc.Ref
			if payload.Subject == "" {
				payload.Subject = documentSubject(doc.Ref)
			}
			if strings.TrimSpace(payload.HTMLBody) == "" {
				payload.HTMLBody = documentBody(p.Name, doc.Ref)
			}
		}
	}
	if domain.IsFollowupStage(target) {
		if payload.Subject == "" {
			payload.Subject = engine.FollowupSubject(target)
		}
		if strings.TrimSpace(payload.HTMLBody) == "" {
			payload.HTMLBody = engine.DefaultFollowupMessage(target, p.Name)
		}
	}

	updated, err := s.engine.RequestMove(ctx, *p, target, payload)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, *p, updated, doc)

	resp := transport.ToProspectResponse(updated)
	return &resp, nil
}

// SendFollowup dispatches a follow-up reminder and commits the stage move on
// success. The message is sent exactly as received; only a blank message is
// replaced by the stage-family template.
func (s *Service) SendFollowup(ctx context.Context, id uuid.UUID, req transport.SendFollowupRequest) (*transport.ProspectResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.followups.SendFollowup(ctx, *p, domain.StageID(req.TargetStage), req.Message)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, *p, updated, nil)

	resp := transport.ToProspectResponse(updated)
	return &resp, nil
}

// resolveDocument picks the attachment for a document gated move. A missing
// candidate is not an error here: the engine rejects the move with the
// "choose a document" validation message, which is what the UI prompts on.
func (s *Service) resolveDocument(ctx context.Context, p *domain.Prospect, target domain.StageID, explicitID *uuid.UUID) (*DocumentInfo, error) {
	if s.documents == nil {
		return nil, nil
	}
	if explicitID != nil {
		return s.documents.GetDocument(ctx, *explicitID)
	}

	kind := "quote"
	if domain.FamilyOf(target) == domain.FamilyInvoice {
		kind = "invoice"
	}
	return s.documents.FindCandidate(ctx, kind, p.Email)
}

// afterCommit runs the post-move side effects: document linking, the stage
// changed event, and the delayed follow-up check for stages that expect a
// client response.
func (s *Service) afterCommit(ctx context.Context, before, after domain.Prospect, doc *DocumentInfo) {
	if doc != nil {
		if err := s.repo.LinkDocument(ctx, after.ID, doc.Ref.Kind, doc.Ref.ID); err == nil {
			switch doc.Ref.Kind {
			case "invoice":
				after.LinkedInvoiceID = &doc.Ref.ID
			default:
				after.LinkedQuoteID = &doc.Ref.ID
			}
		}
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, domainevents.ProspectStageChanged{
			BaseEvent:    domainevents.NewBaseEvent(),
			ProspectID:   after.ID,
			Name:         after.Name,
			Email:        after.Email,
			FromStage:    string(before.Stage),
			ToStage:      string(after.Stage),
			RelanceCount: after.RelanceCount,
		})
	}

	if s.scheduler != nil && awaitsClientResponse(after.Stage) {
		_ = s.scheduler.ScheduleFollowupCheck(ctx, after.ID, after.Stage, s.followupDelay)
	}
}

// awaitsClientResponse reports whether a stage leaves the ball in the
// client's court, which is when an idle reminder makes sense.
func awaitsClientResponse(stage domain.StageID) bool {
	return domain.FamilyOf(stage) != domain.FamilyNone && !domain.IsTerminalStage(stage)
}

func documentSubject(doc engine.DocumentRef) string {
	label := "devis"
	if doc.Kind == "invoice" {
		label = "facture"
	}
	if doc.Number != "" {
		return fmt.Sprintf("Votre %s %s", label, doc.Number)
	}
	return fmt.Sprintf("Votre %s", label)
}

func documentBody(prospectName string, doc engine.DocumentRef) string {
	label := "notre devis"
	if doc.Kind == "invoice" {
		label = "notre facture"
	}
	return fmt.Sprintf(
		"<p>Bonjour %s,</p><p>Veuillez trouver %s en pièce jointe. "+
			"Nous restons à votre disposition pour toute question.</p>",
		prospectName, label)
}
