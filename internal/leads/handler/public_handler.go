package handler

import (
	"net/http"
	"sort"
	"strconv"

	"lead_portal_backend/internal/leads/submission"
	"lead_portal_backend/internal/leads/transport"
	"lead_portal_backend/internal/questionnaire"
	"lead_portal_backend/platform/httpkit"
	"lead_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// PublicHandler handles the unauthenticated contact form.
type PublicHandler struct {
	svc *submission.Service
	val *validator.Validator
}

const publicMsgInvalidInput = "Invalid input"

func NewPublicHandler(svc *submission.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// RegisterRoutes registers public lead routes under /public/leads.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
}

// Submit always answers with a SubmitResult so the form can show its
// message, whatever the outcome.
func (h *PublicHandler) Submit(c *gin.Context) {
	var req transport.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.JSON(c, http.StatusBadRequest, submission.SubmitResult{Error: publicMsgInvalidInput, Code: submission.CodeValidation})
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.JSON(c, http.StatusBadRequest, submission.SubmitResult{
			Error:  publicMsgInvalidInput,
			Code:   submission.CodeValidation,
			Fields: fieldErrors(err),
		})
		return
	}

	result := h.svc.SubmitContactForm(c.Request.Context(), submission.ContactForm{
		Name:        req.Name,
		Email:       req.Email,
		Company:     req.Company,
		Phone:       req.Phone,
		Message:     req.Message,
		ProjectType: req.ProjectType,
		Budget:      req.Budget,
		Timeline:    req.Timeline,
		Responses:   req.Responses,
	})

	if result.Code == submission.CodeRateLimited && result.RetryAfterSeconds > 0 {
		c.Header("Retry-After", strconv.Itoa(result.RetryAfterSeconds))
	}
	httpkit.JSON(c, submitStatus(result), result)
}

func fieldErrors(err error) []questionnaire.FieldError {
	failed := validator.FieldErrors(err)
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]questionnaire.FieldError, len(names))
	for i, name := range names {
		out[i] = questionnaire.FieldError{QuestionID: name, Message: "failed " + failed[name]}
	}
	return out
}

func submitStatus(r submission.SubmitResult) int {
	if r.Success {
		return http.StatusCreated
	}
	switch r.Code {
	case submission.CodeValidation:
		return http.StatusBadRequest
	case submission.CodeRateLimited:
		return http.StatusTooManyRequests
	case submission.CodeDuplicate:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
