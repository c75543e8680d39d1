// Package documents provides the stored quote/invoice PDF domain module.
package documents

import (
	"chantier_crm_backend/internal/adapters/storage"
	"chantier_crm_backend/internal/documents/handler"
	"chantier_crm_backend/internal/documents/repository"
	"chantier_crm_backend/internal/documents/service"
	apphttp "chantier_crm_backend/internal/http"
	"chantier_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the documents domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new documents module with all dependencies wired.
// storageSvc may be nil when MinIO is disabled; uploads then fail with a
// clear unavailability error while metadata reads keep working.
func NewModule(pool *pgxpool.Pool, storageSvc storage.StorageService, bucket string, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, storageSvc, bucket)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "documents"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	documents := ctx.Protected.Group("/documents")
	m.handler.RegisterRoutes(documents)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
