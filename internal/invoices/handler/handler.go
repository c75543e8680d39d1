package handler

import (
	"net/http"
	"strconv"

	"chantier_crm_backend/internal/invoices/repository"
	"chantier_crm_backend/internal/invoices/service"
	"chantier_crm_backend/internal/invoices/transport"
	"chantier_crm_backend/platform/httpkit"
	"chantier_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for invoices
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new invoices handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the invoice routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/mark-sent", h.MarkSent)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/payments", h.AddPayment)
	rg.DELETE("/:id/payments/:paymentId", h.RemovePayment)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(httpkit.ActorContext(c), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) List(c *gin.Context) {
	params := repository.ListParams{
		Search: c.Query("search"),
	}
	if raw := c.Query("prospectId"); raw != "" {
		prospectID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		params.ProspectID = &prospectID
	}
	params.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	params.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	result, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(httpkit.ActorContext(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) MarkSent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.MarkSent(httpkit.ActorContext(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Cancel(httpkit.ActorContext(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// AddPayment records a settlement. Overpayments and payments on cancelled
// invoices are rejected with machine-readable codes the UI surfaces.
func (h *Handler) AddPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AddPayment(httpkit.ActorContext(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) RemovePayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	paymentID, err := uuid.Parse(c.Param("paymentId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.RemovePayment(httpkit.ActorContext(c), id, paymentID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.Delete(httpkit.ActorContext(c), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.NoContent(c)
}
