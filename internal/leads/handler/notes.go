package handler

import (
	"net/http"

	"lead_portal_backend/internal/leads/notes"
	"lead_portal_backend/internal/leads/transport"
	"lead_portal_backend/platform/httpkit"
	"lead_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// NotesHandler handles HTTP requests for lead notes.
// This is separate from the main Handler to allow independent wiring.
type NotesHandler struct {
	svc *notes.Service
	val *validator.Validator
}

// NewNotesHandler creates a new notes handler.
func NewNotesHandler(svc *notes.Service, val *validator.Validator) *NotesHandler {
	return &NotesHandler{svc: svc, val: val}
}

func (h *NotesHandler) ListNotes(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	notesList, err := h.svc.List(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, notesList)
}

func (h *NotesHandler) AddNote(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateLeadNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	created, err := h.svc.Add(c.Request.Context(), id, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, created)
}
