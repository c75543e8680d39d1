// Package invoices provides the invoicing and payment ledger domain module.
package invoices

import (
	apphttp "chantier_crm_backend/internal/http"
	"chantier_crm_backend/internal/invoices/handler"
	"chantier_crm_backend/internal/invoices/repository"
	"chantier_crm_backend/internal/invoices/service"
	"chantier_crm_backend/platform/events"
	"chantier_crm_backend/platform/logger"
	"chantier_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the invoices domain module
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates a new invoices module with all dependencies wired
func NewModule(pool *pgxpool.Pool, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
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
	return "invoices"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for adapter access
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	invoices := ctx.Protected.Group("/invoices")
	m.handler.RegisterRoutes(invoices)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
