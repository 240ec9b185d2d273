package handler

import (
	"net/http"

	"replyflow/internal/service"
)

// CampaignHandler handles HTTP requests for campaign operations
type CampaignHandler struct {
	campaignService *service.CampaignService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignService *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
	}
}

// Create handles POST /campaigns - creates a draft campaign
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	campaign, err := h.campaignService.CreateCampaign(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, campaign)
}

// GetByID handles GET /campaigns/{id}
func (h *CampaignHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "campaign")
	if !ok {
		return
	}

	campaign, err := h.campaignService.GetCampaign(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, campaign)
}

// Start handles POST /campaigns/{id}/start - hands a draft campaign to the worker
func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "campaign")
	if !ok {
		return
	}

	result, err := h.campaignService.RequestStart(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteAccepted(w, result)
}
