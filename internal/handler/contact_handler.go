package handler

import (
	"net/http"

	"replyflow/internal/models"
	"replyflow/internal/service"
)

// ContactHandler exposes operator controls over a contact
type ContactHandler struct {
	contactService  *service.ContactService
	sequenceService *service.SequenceService
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService *service.ContactService, sequenceService *service.SequenceService) *ContactHandler {
	return &ContactHandler{
		contactService:  contactService,
		sequenceService: sequenceService,
	}
}

// UpdateStatusRequest is the body of PATCH /contacts/{id}/status
type UpdateStatusRequest struct {
	Status models.ContactStatus `json:"status"`
}

// HandoffRequest is the body of PUT /contacts/{id}/handoff
type HandoffRequest struct {
	Requested bool `json:"requested"`
}

// AssignSequenceRequest is the body of POST /contacts/{id}/sequence
type AssignSequenceRequest struct {
	SequenceID    int `json:"sequence_id"`
	StartFromStep int `json:"start_from_step"`
}

// GetByID handles GET /contacts/{id}
func (h *ContactHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "contact")
	if !ok {
		return
	}

	contact, err := h.contactService.GetContact(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, contact)
}

// UpdateStatus handles PATCH /contacts/{id}/status
func (h *ContactHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "contact")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contact, err := h.contactService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, contact)
}

// SetHandoff handles PUT /contacts/{id}/handoff
func (h *ContactHandler) SetHandoff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "contact")
	if !ok {
		return
	}
	var req HandoffRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contact, err := h.contactService.SetHandoff(r.Context(), id, req.Requested)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, contact)
}

// AssignSequence handles POST /contacts/{id}/sequence
func (h *ContactHandler) AssignSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "contact")
	if !ok {
		return
	}
	var req AssignSequenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SequenceID <= 0 {
		WriteValidationError(w, "sequence_id is required")
		return
	}

	contact, err := h.sequenceService.Assign(r.Context(), id, req.SequenceID, req.StartFromStep)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, contact)
}

// ClearSequence handles DELETE /contacts/{id}/sequence
func (h *ContactHandler) ClearSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "contact")
	if !ok {
		return
	}

	if err := h.contactService.ClearSequence(r.Context(), id); err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteNoContent(w)
}
