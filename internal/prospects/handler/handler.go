package handler

import (
	"net/http"
	"strconv"

	"chantier_crm_backend/internal/prospects/domain"
	"chantier_crm_backend/internal/prospects/repository"
	"chantier_crm_backend/internal/prospects/service"
	"chantier_crm_backend/internal/prospects/transport"
	"chantier_crm_backend/platform/httpkit"
	"chantier_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for prospects
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new prospects handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the prospect routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/board", h.Board)
	rg.GET("/stages", h.Stages)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/move", h.Move)
	rg.POST("/:id/followup", h.SendFollowup)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateProspectRequest
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
	if raw := c.Query("stage"); raw != "" {
		stage, ok := domain.NormalizeLegacyStage(raw)
		if !ok {
			httpkit.Error(c, http.StatusBadRequest, "unknown stage", nil)
			return
		}
		params.Stage = &stage
	}
	params.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	params.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	result, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Board(c *gin.Context) {
	result, err := h.svc.Board(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Stages(c *gin.Context) {
	httpkit.OK(c, h.svc.Stages())
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

	var req transport.UpdateProspectRequest
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

// Move executes a pipeline transition. Gated moves dispatch their email
// first; the response reflects the committed stage or, on failure, carries a
// machine-readable code the board uses to pick the rejection toast.
func (h *Handler) Move(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.MoveProspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Move(httpkit.ActorContext(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) SendFollowup(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SendFollowupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SendFollowup(httpkit.ActorContext(c), id, req)
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
