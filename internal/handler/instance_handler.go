package handler

import (
	"net/http"
	"strconv"

	"replyflow/internal/gateway"
	"replyflow/internal/service"

	"github.com/gorilla/mux"
)

// InstanceHandler manages gateway sessions
type InstanceHandler struct {
	instanceService *service.InstanceService
}

// NewInstanceHandler creates a new instance handler
func NewInstanceHandler(instanceService *service.InstanceService) *InstanceHandler {
	return &InstanceHandler{instanceService: instanceService}
}

// CreateInstanceRequest is the body of POST /instances
type CreateInstanceRequest struct {
	TenantID int    `json:"tenant_id"`
	Name     string `json:"name"`
}

// QRResponse carries a pairing code
type QRResponse struct {
	Instance string `json:"instance"`
	QR       string `json:"qr"`
}

// ChatsResponse lists a session's chats
type ChatsResponse struct {
	Instance string         `json:"instance"`
	Chats    []gateway.Chat `json:"chats"`
}

// Create handles POST /instances
func (h *InstanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInstanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	instance, err := h.instanceService.Create(r.Context(), req.TenantID, req.Name)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteCreated(w, instance)
}

// Delete handles DELETE /instances/{name}
func (h *InstanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.instanceService.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteNoContent(w)
}

// Status handles GET /instances/{name}/status
func (h *InstanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	instance, err := h.instanceService.Status(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, instance)
}

// QRCode handles GET /instances/{name}/qr
func (h *InstanceHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	qr, err := h.instanceService.QRCode(r.Context(), name)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, QRResponse{Instance: name, QR: qr})
}

// Chats handles GET /instances/{name}/chats?limit=N
func (h *InstanceHandler) Chats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			WriteValidationError(w, "limit must be a positive integer")
			return
		}
		limit = l
	}
	if limit > 100 {
		limit = 100
	}

	chats, err := h.instanceService.Chats(r.Context(), name, limit)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, ChatsResponse{Instance: name, Chats: chats})
}
