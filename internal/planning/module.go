// Package planning provides the site visit planning domain module.
package planning

import (
	"time"

	apphttp "chantier_crm_backend/internal/http"
	"chantier_crm_backend/internal/planning/handler"
	"chantier_crm_backend/internal/planning/repository"
	"chantier_crm_backend/internal/planning/service"
	"chantier_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// visitReminderLead is how long before a visit the office reminder fires.
const visitReminderLead = 24 * time.Hour

// Module represents the planning domain module
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates a new planning module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, visitReminderLead)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		service:    svc,
		repository: repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "planning"
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
	planning := ctx.Protected.Group("/planning/visits")
	m.handler.RegisterRoutes(planning)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
