package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"replyflow/internal/models"
)

// HTTPConfig configures the gateway REST client
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	WebhookURL string
	HTTPClient *http.Client
}

// HTTPGateway is a Gateway backed by the gateway's REST API
type HTTPGateway struct {
	cfg HTTPConfig
}

// NewHTTPGateway builds a REST gateway client
func NewHTTPGateway(cfg HTTPConfig) *HTTPGateway {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPGateway{cfg: cfg}
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

type sendTextResponse struct {
	ID json.RawMessage `json:"id"`
}

// SendText sends a text message to phone through the instance's session
func (g *HTTPGateway) SendText(ctx context.Context, instanceID, phone, text string) (result *SendResult) {
	start := time.Now()
	result = &SendResult{}
	defer recoverInto(&result.Error)
	defer func() { result.Latency = time.Since(start) }()

	var resp sendTextResponse
	err := g.do(ctx, http.MethodPost, "/api/sendText", sendTextRequest{
		Session: instanceID,
		ChatID:  ChatID(phone),
		Text:    text,
	}, &resp)
	if err != nil {
		result.Error = fmt.Errorf("failed to send text to %s: %w", phone, err)
		return result
	}

	result.Success = true
	result.MessageID = messageID(resp.ID)
	return result
}

// messageID accepts both a plain string id and the {"_serialized": "..."} form
func messageID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Serialized string `json:"_serialized"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Serialized
	}
	return ""
}

type qrResponse struct {
	Value string `json:"value"`
}

// GetQRCode returns the raw pairing value for a session
func (g *HTTPGateway) GetQRCode(ctx context.Context, instanceID string) (result *QRResult) {
	result = &QRResult{}
	defer recoverInto(&result.Error)

	var resp qrResponse
	path := "/api/" + url.PathEscape(instanceID) + "/auth/qr?format=raw"
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		result.Error = fmt.Errorf("failed to get qr code: %w", err)
		return result
	}

	result.Success = true
	result.Value = resp.Value
	return result
}

type webhookConfig struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type sessionConfig struct {
	Webhooks []webhookConfig `json:"webhooks,omitempty"`
}

type createSessionRequest struct {
	Name   string        `json:"name"`
	Start  bool          `json:"start"`
	Config sessionConfig `json:"config"`
}

type sessionResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// CreateInstance creates and starts a session that reports to our webhook
func (g *HTTPGateway) CreateInstance(ctx context.Context, instanceID string) (result *InstanceResult) {
	result = &InstanceResult{}
	defer recoverInto(&result.Error)

	req := createSessionRequest{Name: instanceID, Start: true}
	if g.cfg.WebhookURL != "" {
		req.Config.Webhooks = []webhookConfig{{
			URL:    g.cfg.WebhookURL,
			Events: []string{"message", "session.status"},
		}}
	}

	var resp sessionResponse
	if err := g.do(ctx, http.MethodPost, "/api/sessions", req, &resp); err != nil {
		result.Error = fmt.Errorf("failed to create instance: %w", err)
		return result
	}

	result.Success = true
	result.Status = parseStatus(resp.Status, models.InstanceStarting)
	return result
}

// DeleteInstance removes a session from the gateway
func (g *HTTPGateway) DeleteInstance(ctx context.Context, instanceID string) (result *InstanceResult) {
	result = &InstanceResult{}
	defer recoverInto(&result.Error)

	if err := g.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(instanceID), nil, nil); err != nil {
		result.Error = fmt.Errorf("failed to delete instance: %w", err)
		return result
	}

	result.Success = true
	result.Status = models.InstanceStopped
	return result
}

// GetInstanceStatus asks the gateway for a session's current state
func (g *HTTPGateway) GetInstanceStatus(ctx context.Context, instanceID string) (result *InstanceResult) {
	result = &InstanceResult{}
	defer recoverInto(&result.Error)

	var resp sessionResponse
	if err := g.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(instanceID), nil, &resp); err != nil {
		result.Error = fmt.Errorf("failed to get instance status: %w", err)
		return result
	}

	result.Success = true
	result.Status = parseStatus(resp.Status, models.InstanceFailed)
	return result
}

// GetChats lists a session's most recent chats
func (g *HTTPGateway) GetChats(ctx context.Context, instanceID string, limit int) (result *ChatsResult) {
	result = &ChatsResult{}
	defer recoverInto(&result.Error)

	if limit <= 0 {
		limit = 20
	}

	var chats []Chat
	path := fmt.Sprintf("/api/%s/chats?limit=%d", url.PathEscape(instanceID), limit)
	if err := g.do(ctx, http.MethodGet, path, nil, &chats); err != nil {
		result.Error = fmt.Errorf("failed to get chats: %w", err)
		return result
	}

	result.Success = true
	result.Chats = chats
	return result
}

func parseStatus(raw string, fallback models.InstanceStatus) models.InstanceStatus {
	status := models.InstanceStatus(strings.ToUpper(raw))
	if status.Valid() {
		return status
	}
	return fallback
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", g.cfg.APIKey)
	}

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func recoverInto(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("gateway panic: %v", r)
	}
}
