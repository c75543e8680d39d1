package handler

import (
	"net/http"
	"strconv"
	"strings"

	"chantier_crm_backend/internal/documents/repository"
	"chantier_crm_backend/internal/documents/service"
	"chantier_crm_backend/platform/httpkit"
	"chantier_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	maxUploadBytes    = 25 << 20
)

// Handler handles HTTP requests for documents
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new documents handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the document routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Upload)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/download-url", h.DownloadURL)
	rg.DELETE("/:id", h.Delete)
}

// Upload accepts a multipart form with the PDF under "file" plus its
// matching attributes (kind, number, clientEmail, totalCents).
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer file.Close()

	params := service.UploadParams{
		Kind:        strings.TrimSpace(c.PostForm("kind")),
		Number:      c.PostForm("number"),
		ClientEmail: c.PostForm("clientEmail"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   fileHeader.Size,
		Content:     file,
	}
	if raw := c.PostForm("totalCents"); raw != "" {
		totalCents, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		params.TotalCents = &totalCents
	}

	result, err := h.svc.Upload(httpkit.ActorContext(c), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) List(c *gin.Context) {
	params := repository.ListParams{
		Kind:        c.Query("kind"),
		ClientEmail: c.Query("clientEmail"),
		Search:      c.Query("search"),
	}

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

func (h *Handler) DownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.DownloadURL(c.Request.Context(), id)
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
