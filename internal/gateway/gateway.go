// Package gateway talks to the WhatsApp-style messaging gateway that owns
// the tenant sessions. Every call reports failure through its result value;
// nothing panics across the package boundary.
package gateway

import (
	"context"
	"strings"
	"time"

	"replyflow/internal/models"
)

// Gateway is the messaging gateway contract
type Gateway interface {
	SendText(ctx context.Context, instanceID, phone, text string) *SendResult
	GetQRCode(ctx context.Context, instanceID string) *QRResult
	CreateInstance(ctx context.Context, instanceID string) *InstanceResult
	DeleteInstance(ctx context.Context, instanceID string) *InstanceResult
	GetInstanceStatus(ctx context.Context, instanceID string) *InstanceResult
	GetChats(ctx context.Context, instanceID string, limit int) *ChatsResult
}

// SendResult represents the result of a send attempt
type SendResult struct {
	Success   bool
	MessageID string
	Error     error
	Latency   time.Duration
}

// QRResult carries the pairing code of a session waiting for a scan
type QRResult struct {
	Success bool
	Value   string
	Error   error
}

// InstanceResult carries the session status after a lifecycle call
type InstanceResult struct {
	Success bool
	Status  models.InstanceStatus
	Error   error
}

// Chat is a conversation listed by the gateway
type Chat struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatsResult carries a session's recent chats
type ChatsResult struct {
	Success bool
	Chats   []Chat
	Error   error
}

var jidSuffixes = []string{"@c.us", "@s.whatsapp.net"}

// NormalizePhone strips chat id suffixes so "15550001@c.us" becomes "15550001"
func NormalizePhone(jid string) string {
	phone := strings.TrimSpace(jid)
	for _, suffix := range jidSuffixes {
		phone = strings.TrimSuffix(phone, suffix)
	}
	return strings.TrimPrefix(phone, "+")
}

// ChatID turns a phone number into the gateway's chat id
func ChatID(phone string) string {
	return NormalizePhone(phone) + "@c.us"
}
