package handler

import (
	"net/http"

	"lead_portal_backend/internal/questionnaire/service"
	"lead_portal_backend/internal/questionnaire/transport"
	"lead_portal_backend/platform/httpkit"
	"lead_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the portal user's questionnaire routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/questions", h.ListQuestions)
	rg.POST("/start", h.Start)
	rg.POST("/answers", h.Answer)
	rg.GET("/session", h.Resume)
	rg.POST("/complete", h.Complete)
}

// RegisterPublicRoutes mounts unauthenticated routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/questionnaire/questions", h.ListQuestions)
	rg.POST("/score-preview", h.Preview)
}

func (h *Handler) ListQuestions(c *gin.Context) {
	httpkit.OK(c, transport.ToQuestionListResponse(h.svc.Graph().Questions()))
}

func (h *Handler) Start(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	progress, err := h.svc.Start(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(progress))
}

func (h *Handler) Answer(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	progress, err := h.svc.Answer(c.Request.Context(), id.UserID(), req.QuestionID, req.Value)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(progress))
}

func (h *Handler) Resume(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	progress, err := h.svc.Resume(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(progress))
}

func (h *Handler) Complete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCompleteResponse(h.svc.Describe(result.Session), result))
}

func (h *Handler) Preview(c *gin.Context) {
	var req transport.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}
	httpkit.OK(c, h.svc.Preview(req.Responses))
}
