package handler

import (
	"net/http"

	"lead_portal_backend/internal/leads/management"
	"lead_portal_backend/internal/leads/transport"
	"lead_portal_backend/platform/httpkit"
	"lead_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	exportFilename      = "leads.csv"
)

// Handler serves the operator lead routes.
type Handler struct {
	svc    *management.Service
	notes  *NotesHandler
	stream *StreamHandler
	val    *validator.Validator
}

func New(svc *management.Service, notes *NotesHandler, stream *StreamHandler, val *validator.Validator) *Handler {
	return &Handler{svc: svc, notes: notes, stream: stream, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/export", h.Export)
	rg.GET("/stats", h.Stats)
	rg.GET("/stream", h.stream.Leads)
	rg.GET("/stats/stream", h.stream.Stats)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/tags", h.AddTags)
	rg.DELETE("/:id/tags/:tag", h.RemoveTag)
	rg.POST("/:id/engagement", h.RecordEngagement)
	rg.GET("/:id/notes", h.notes.ListNotes)
	rg.POST("/:id/notes", h.notes.AddNote)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) AddTags(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.AddTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.svc.AddTags(c.Request.Context(), id, req.Tags)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) RemoveTag(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.RemoveTag(c.Request.Context(), id, c.Param("tag"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) RecordEngagement(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.RecordEngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.svc.RecordEngagement(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Export downloads the matching leads as a CSV attachment.
func (h *Handler) Export(c *gin.Context) {
	var req transport.ExportLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	csv, err := h.svc.Export(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
