package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"replyflow/internal/models"

	"github.com/google/uuid"
)

// SimulatedGateway is an in-process Gateway used for local runs and tests
type SimulatedGateway struct {
	successRate float64 // 0.0 to 1.0 (e.g., 0.95 = 95% success)
	maxLatency  time.Duration

	mu        sync.Mutex
	rand      *rand.Rand
	instances map[string]models.InstanceStatus
	sent      []SentMessage
}

// SentMessage records a message accepted by the simulated gateway
type SentMessage struct {
	InstanceID string
	Phone      string
	Text       string
	MessageID  string
}

// NewSimulatedGateway creates a simulated gateway.
// successRate is clamped to [0, 1].
func NewSimulatedGateway(successRate float64) *SimulatedGateway {
	if successRate < 0.0 {
		successRate = 0.0
	}
	if successRate > 1.0 {
		successRate = 1.0
	}

	return &SimulatedGateway{
		successRate: successRate,
		maxLatency:  150 * time.Millisecond,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		instances:   make(map[string]models.InstanceStatus),
	}
}

// WithoutLatency disables the simulated network delay
func (s *SimulatedGateway) WithoutLatency() *SimulatedGateway {
	s.maxLatency = 0
	return s
}

// SendText simulates sending a message
func (s *SimulatedGateway) SendText(ctx context.Context, instanceID, phone, text string) *SendResult {
	start := time.Now()

	s.mu.Lock()
	var latency time.Duration
	if s.maxLatency > 0 {
		latency = time.Duration(s.rand.Int63n(int64(s.maxLatency)))
	}
	success := s.rand.Float64() < s.successRate
	failure := simulatedFailures[s.rand.Intn(len(simulatedFailures))]
	s.mu.Unlock()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return &SendResult{Error: ctx.Err(), Latency: time.Since(start)}
	}

	result := &SendResult{Success: success, Latency: time.Since(start)}
	if !success {
		result.Error = fmt.Errorf("failed to send to %s: %s", phone, failure)
		return result
	}

	result.MessageID = uuid.NewString()
	s.mu.Lock()
	s.sent = append(s.sent, SentMessage{InstanceID: instanceID, Phone: phone, Text: text, MessageID: result.MessageID})
	s.mu.Unlock()
	return result
}

var simulatedFailures = []string{
	"network timeout",
	"invalid phone number",
	"rate limit exceeded",
	"service temporarily unavailable",
}

// GetQRCode returns a fake pairing value for a known instance
func (s *SimulatedGateway) GetQRCode(ctx context.Context, instanceID string) *QRResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[instanceID]; !ok {
		return &QRResult{Error: fmt.Errorf("instance %s not found", instanceID)}
	}
	s.instances[instanceID] = models.InstanceScanQRCode
	return &QRResult{Success: true, Value: "sim-qr:" + instanceID}
}

// CreateInstance registers an instance that is immediately working
func (s *SimulatedGateway) CreateInstance(ctx context.Context, instanceID string) *InstanceResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instances[instanceID] = models.InstanceWorking
	return &InstanceResult{Success: true, Status: models.InstanceWorking}
}

// DeleteInstance forgets an instance
func (s *SimulatedGateway) DeleteInstance(ctx context.Context, instanceID string) *InstanceResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.instances, instanceID)
	return &InstanceResult{Success: true, Status: models.InstanceStopped}
}

// GetInstanceStatus reports the stored status of an instance
func (s *SimulatedGateway) GetInstanceStatus(ctx context.Context, instanceID string) *InstanceResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.instances[instanceID]
	if !ok {
		return &InstanceResult{Error: fmt.Errorf("instance %s not found", instanceID)}
	}
	return &InstanceResult{Success: true, Status: status}
}

// GetChats lists one chat per phone the instance has messaged
func (s *SimulatedGateway) GetChats(ctx context.Context, instanceID string, limit int) *ChatsResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	chats := []Chat{}
	for i := len(s.sent) - 1; i >= 0; i-- {
		m := s.sent[i]
		if m.InstanceID != instanceID || seen[m.Phone] {
			continue
		}
		seen[m.Phone] = true
		chats = append(chats, Chat{ID: ChatID(m.Phone), Name: m.Phone})
		if limit > 0 && len(chats) == limit {
			break
		}
	}
	return &ChatsResult{Success: true, Chats: chats}
}

// Sent returns a copy of every accepted message
func (s *SimulatedGateway) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
