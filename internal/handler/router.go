package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers bundles every HTTP handler the API serves
type Handlers struct {
	Health   *HealthHandler
	Webhook  *WebhookHandler
	Campaign *CampaignHandler
	Contact  *ContactHandler
	Tenant   *TenantHandler
	Instance *InstanceHandler
}

// NewRouter registers all routes on a gorilla/mux router
func NewRouter(h Handlers, middlewares ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	for _, mw := range middlewares {
		router.Use(mw)
	}

	router.HandleFunc("/health", h.Health.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/webhooks/gateway", h.Webhook.Handle).Methods(http.MethodPost)

	router.HandleFunc("/campaigns", h.Campaign.Create).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}", h.Campaign.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/campaigns/{id}/start", h.Campaign.Start).Methods(http.MethodPost)

	router.HandleFunc("/contacts/{id}", h.Contact.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/contacts/{id}/status", h.Contact.UpdateStatus).Methods(http.MethodPatch)
	router.HandleFunc("/contacts/{id}/handoff", h.Contact.SetHandoff).Methods(http.MethodPut)
	router.HandleFunc("/contacts/{id}/sequence", h.Contact.AssignSequence).Methods(http.MethodPost)
	router.HandleFunc("/contacts/{id}/sequence", h.Contact.ClearSequence).Methods(http.MethodDelete)

	router.HandleFunc("/tenants/{id}/credits", h.Tenant.Credits).Methods(http.MethodGet)
	router.HandleFunc("/tenants/{id}/sequences/default", h.Tenant.SeedDefaultSequence).Methods(http.MethodPost)

	router.HandleFunc("/instances", h.Instance.Create).Methods(http.MethodPost)
	router.HandleFunc("/instances/{name}", h.Instance.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/instances/{name}/status", h.Instance.Status).Methods(http.MethodGet)
	router.HandleFunc("/instances/{name}/qr", h.Instance.QRCode).Methods(http.MethodGet)
	router.HandleFunc("/instances/{name}/chats", h.Instance.Chats).Methods(http.MethodGet)

	return router
}
