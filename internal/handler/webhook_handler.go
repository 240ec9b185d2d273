package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"replyflow/internal/service"
)

// ErrWebhookSignatureInvalid is returned when a webhook body does not match its signature
var ErrWebhookSignatureInvalid = errors.New("webhook signature invalid")

const maxWebhookBody = 1 << 20

// Signature headers accepted on inbound webhooks, in lookup order
var signatureHeaders = []string{"X-Webhook-Signature", "X-Hub-Signature-256"}

// WebhookHandler receives gateway events
type WebhookHandler struct {
	webhookService *service.WebhookService
	secret         []byte
}

// NewWebhookHandler creates a webhook handler verifying bodies with secret
func NewWebhookHandler(webhookService *service.WebhookService, secret string) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		secret:         []byte(secret),
	}
}

// VerifySignature checks an HMAC-SHA256 signature given as raw hex or "sha256=<hex>".
// An empty secret rejects everything.
func VerifySignature(secret, body []byte, signature string) error {
	if len(secret) == 0 {
		return ErrWebhookSignatureInvalid
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return ErrWebhookSignatureInvalid
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrWebhookSignatureInvalid
	}
	return nil
}

// Sign returns the "sha256=<hex>" signature of body
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Handle handles POST /webhooks/gateway
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Failed to read request body")
		return
	}

	signature := ""
	for _, header := range signatureHeaders {
		if v := r.Header.Get(header); v != "" {
			signature = v
			break
		}
	}
	if err := VerifySignature(h.secret, body, signature); err != nil {
		log.Printf("🚫 Rejected webhook from %s: %v", r.RemoteAddr, err)
		WriteError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is missing or invalid")
		return
	}

	// A signed but unusable payload is acknowledged so the gateway does not redeliver it
	var event service.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("⚠️  Ignoring malformed webhook: %v", err)
		WriteOK(w, &service.WebhookResult{Status: service.WebhookIgnored})
		return
	}

	result, err := h.webhookService.HandleEvent(r.Context(), &event)
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		log.Printf("⚠️  Ignoring webhook %s for %s: %s", event.Event, event.Session, validation.Message)
		WriteOK(w, &service.WebhookResult{Status: service.WebhookIgnored})
		return
	}
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, result)
}
