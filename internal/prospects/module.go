// Package prospects provides the sales pipeline domain module.
package prospects

import (
	apphttp "chantier_crm_backend/internal/http"
	"chantier_crm_backend/internal/prospects/engine"
	"chantier_crm_backend/internal/prospects/handler"
	"chantier_crm_backend/internal/prospects/repository"
	"chantier_crm_backend/internal/prospects/service"
	"chantier_crm_backend/platform/config"
	"chantier_crm_backend/platform/events"
	"chantier_crm_backend/platform/logger"
	"chantier_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the prospects domain module
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates a new prospects module with all dependencies wired.
// The document and reminder senders come from the adapters layer so the
// pipeline engine stays independent of SMTP and storage details.
func NewModule(
	pool *pgxpool.Pool,
	documents engine.DocumentSender,
	reminders engine.ReminderSender,
	eventBus *events.InMemoryBus,
	val *validator.Validator,
	log *logger.Logger,
	cfg config.PipelineConfig,
) *Module {
	repo := repository.New(pool)
	eng := engine.New(repo, documents, reminders, log)
	svc := service.New(repo, eng, cfg.GetFollowupReminderDelay())
	svc.SetEventBus(eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		service:    svc,
		repository: repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "prospects"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for scheduler access
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	prospects := ctx.Protected.Group("/prospects")
	m.handler.RegisterRoutes(prospects)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
