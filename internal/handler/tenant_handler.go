package handler

import (
	"net/http"

	"replyflow/internal/service"
)

// TenantHandler exposes tenant credit and sequence setup endpoints
type TenantHandler struct {
	creditService   *service.CreditService
	sequenceService *service.SequenceService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(creditService *service.CreditService, sequenceService *service.SequenceService) *TenantHandler {
	return &TenantHandler{
		creditService:   creditService,
		sequenceService: sequenceService,
	}
}

// Credits handles GET /tenants/{id}/credits
func (h *TenantHandler) Credits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tenant")
	if !ok {
		return
	}

	status, err := h.creditService.CheckCredits(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, status)
}

// SeedDefaultSequence handles POST /tenants/{id}/sequences/default
func (h *TenantHandler) SeedDefaultSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "tenant")
	if !ok {
		return
	}

	seq, err := h.sequenceService.SeedDefaultSequence(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteCreated(w, seq)
}
