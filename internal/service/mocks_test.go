package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"replyflow/internal/gateway"
	"replyflow/internal/llm"
	"replyflow/internal/models"
	"replyflow/internal/repository"

	"github.com/cenkalti/backoff/v5"
)

// MockTenantRepository is an in-memory TenantRepository
type MockTenantRepository struct {
	mu       sync.Mutex
	Tenants  map[int]*models.Tenant
	Contexts map[int]*models.TenantContext
	Calls    map[string]int
}

func NewMockTenantRepository() *MockTenantRepository {
	return &MockTenantRepository{
		Tenants:  make(map[int]*models.Tenant),
		Contexts: make(map[int]*models.TenantContext),
		Calls:    make(map[string]int),
	}
}

func (m *MockTenantRepository) Add(tenant *models.Tenant, tc *models.TenantContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tenants[tenant.ID] = tenant
	if tc != nil {
		m.Contexts[tenant.ID] = tc
	}
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id int) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetByID"]++
	t, ok := m.Tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTenantRepository) GetContext(ctx context.Context, id int) (*models.TenantContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetContext"]++
	tc, ok := m.Contexts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *tc
	return &cp, nil
}

func (m *MockTenantRepository) IncrementCreditsUsed(ctx context.Context, id int, cost int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["IncrementCreditsUsed"]++
	t, ok := m.Tenants[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if t.CreditsUsed+cost > t.CreditsLimit {
		return 0, repository.ErrLimitExceeded
	}
	t.CreditsUsed += cost
	return t.CreditsUsed, nil
}

func (m *MockTenantRepository) RollExpiredPeriods(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["RollExpiredPeriods"]++
	var n int64
	for _, t := range m.Tenants {
		if !t.PeriodEnd.After(now) {
			length := t.PeriodEnd.Sub(t.PeriodStart)
			t.PeriodStart = t.PeriodEnd
			t.PeriodEnd = t.PeriodEnd.Add(length)
			t.CreditsUsed = 0
			n++
		}
	}
	return n, nil
}

func (m *MockTenantRepository) Used(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tenants[id].CreditsUsed
}

// MockContactRepository is an in-memory ContactRepository
type MockContactRepository struct {
	mu       sync.Mutex
	Contacts map[int]*models.Contact
	nextID   int
	Calls    map[string]int
}

func NewMockContactRepository() *MockContactRepository {
	return &MockContactRepository{
		Contacts: make(map[int]*models.Contact),
		nextID:   1000,
		Calls:    make(map[string]int),
	}
}

func (m *MockContactRepository) Add(c *models.Contact) *models.Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Status == "" {
		c.Status = models.ContactStatusNew
	}
	m.Contacts[c.ID] = c
	return c
}

// Get returns a copy of the stored contact for assertions
func (m *MockContactRepository) Get(id int) *models.Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Contacts[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (m *MockContactRepository) GetByID(ctx context.Context, id int) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetByID"]++
	c, ok := m.Contacts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockContactRepository) GetByIDs(ctx context.Context, ids []int) ([]*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetByIDs"]++
	out := []*models.Contact{}
	// return in id order, not request order, like the database would
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	for _, id := range sorted {
		if c, ok := m.Contacts[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockContactRepository) FindOrCreateByPhone(ctx context.Context, tenantID int, phone string, name *string) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["FindOrCreateByPhone"]++
	for _, c := range m.Contacts {
		if c.TenantID == tenantID && c.Phone == phone {
			if c.Name == nil {
				c.Name = name
			}
			cp := *c
			return &cp, nil
		}
	}
	m.nextID++
	c := &models.Contact{ID: m.nextID, TenantID: tenantID, Phone: phone, Name: name, Status: models.ContactStatusNew}
	m.Contacts[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *MockContactRepository) UpdateStatus(ctx context.Context, id int, status models.ContactStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["UpdateStatus"]++
	c, ok := m.Contacts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *MockContactRepository) ActivateIfNew(ctx context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ActivateIfNew"]++
	c, ok := m.Contacts[id]
	if !ok || c.Status != models.ContactStatusNew {
		return false, nil
	}
	c.Status = models.ContactStatusActive
	return true, nil
}

func (m *MockContactRepository) SetHandoff(ctx context.Context, id int, requested bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["SetHandoff"]++
	c, ok := m.Contacts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.HandoffRequested = requested
	return nil
}

func (m *MockContactRepository) SetFollowUp(ctx context.Context, id int, sequenceID int, step int, nextAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["SetFollowUp"]++
	c, ok := m.Contacts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.FollowUpSequenceID = &sequenceID
	c.FollowUpStep = &step
	c.NextFollowUpAt = &nextAt
	c.LastFollowUpAt = nil
	return nil
}

func (m *MockContactRepository) AdvanceFollowUp(ctx context.Context, id int, sequenceID int, fromStep int, nextStep int, lastAt time.Time, nextAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["AdvanceFollowUp"]++
	c, ok := m.Contacts[id]
	if !ok || !atStep(c, sequenceID, fromStep) {
		return repository.ErrStaleState
	}
	c.FollowUpStep = &nextStep
	c.LastFollowUpAt = &lastAt
	c.NextFollowUpAt = &nextAt
	return nil
}

func (m *MockContactRepository) ClearFollowUp(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ClearFollowUp"]++
	c, ok := m.Contacts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ClearFollowUp()
	return nil
}

func (m *MockContactRepository) ClearFollowUpIf(ctx context.Context, id int, sequenceID int, step int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ClearFollowUpIf"]++
	c, ok := m.Contacts[id]
	if !ok || !atStep(c, sequenceID, step) {
		return repository.ErrStaleState
	}
	c.ClearFollowUp()
	return nil
}

func (m *MockContactRepository) ListDueFollowUps(ctx context.Context, tenantID *int, now time.Time, limit int) ([]*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ListDueFollowUps"]++
	out := []*models.Contact{}
	for _, c := range m.Contacts {
		if c.FollowUpSequenceID == nil || c.NextFollowUpAt == nil || c.NextFollowUpAt.After(now) {
			continue
		}
		if tenantID != nil && c.TenantID != *tenantID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextFollowUpAt.Before(*out[j].NextFollowUpAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func atStep(c *models.Contact, sequenceID, step int) bool {
	return c.FollowUpSequenceID != nil && *c.FollowUpSequenceID == sequenceID &&
		c.FollowUpStep != nil && *c.FollowUpStep == step
}

// MockSequenceRepository is an in-memory SequenceRepository
type MockSequenceRepository struct {
	mu        sync.Mutex
	Sequences map[int]*models.FollowUpSequence
	nextID    int
	Calls     map[string]int
}

func NewMockSequenceRepository() *MockSequenceRepository {
	return &MockSequenceRepository{
		Sequences: make(map[int]*models.FollowUpSequence),
		nextID:    100,
		Calls:     make(map[string]int),
	}
}

func (m *MockSequenceRepository) Add(seq *models.FollowUpSequence) *models.FollowUpSequence {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sequences[seq.ID] = seq
	return seq
}

func (m *MockSequenceRepository) Remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sequences, id)
}

func (m *MockSequenceRepository) Create(ctx context.Context, seq *models.FollowUpSequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Create"]++
	if seq.IsDefault {
		for _, s := range m.Sequences {
			if s.TenantID == seq.TenantID {
				s.IsDefault = false
			}
		}
	}
	m.nextID++
	seq.ID = m.nextID
	m.Sequences[seq.ID] = seq
	return nil
}

func (m *MockSequenceRepository) GetByID(ctx context.Context, id int) (*models.FollowUpSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetByID"]++
	s, ok := m.Sequences[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSequenceRepository) GetDefault(ctx context.Context, tenantID int) (*models.FollowUpSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetDefault"]++
	for _, s := range m.Sequences {
		if s.TenantID == tenantID && s.IsDefault {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// MockCampaignRepository is an in-memory CampaignRepository
type MockCampaignRepository struct {
	mu        sync.Mutex
	Campaigns map[int]*models.Campaign
	nextID    int
	Calls     map[string]int
}

func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{
		Campaigns: make(map[int]*models.Campaign),
		Calls:     make(map[string]int),
	}
}

func (m *MockCampaignRepository) Add(c *models.Campaign) *models.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.TotalContacts == 0 {
		c.TotalContacts = len(c.ContactIDs)
	}
	m.Campaigns[c.ID] = c
	return c
}

func (m *MockCampaignRepository) Get(id int) *models.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.Campaigns[id]
	return &cp
}

func (m *MockCampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Create"]++
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.Campaigns[c.ID] = &cp
	return nil
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetByID"]++
	c, ok := m.Campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCampaignRepository) TransitionStatus(ctx context.Context, id int, from, to models.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["TransitionStatus"]++
	c, ok := m.Campaigns[id]
	if !ok || c.Status != from {
		return repository.ErrStaleState
	}
	c.Status = to
	return nil
}

func (m *MockCampaignRepository) IncrementSentCount(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["IncrementSentCount"]++
	c, ok := m.Campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.SentCount >= c.TotalContacts {
		return repository.ErrLimitExceeded
	}
	c.SentCount++
	return nil
}

// MockInteractionRepository is an in-memory append-only log
type MockInteractionRepository struct {
	mu           sync.Mutex
	Interactions []*models.Interaction
	CreateFunc   func(ctx context.Context, interaction *models.Interaction) error
	Calls        map[string]int
	LastExclude  string
}

func NewMockInteractionRepository() *MockInteractionRepository {
	return &MockInteractionRepository{Calls: make(map[string]int)}
}

func (m *MockInteractionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Create"]++
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, interaction); err != nil {
			return err
		}
	}
	if interaction.ID == "" {
		interaction.ID = fmt.Sprintf("int-%d", len(m.Interactions)+1)
	}
	interaction.CreatedAt = time.Now()
	cp := *interaction
	m.Interactions = append(m.Interactions, &cp)
	return nil
}

func (m *MockInteractionRepository) CreateInbound(ctx context.Context, interaction *models.Interaction) (bool, error) {
	m.mu.Lock()
	if interaction.ExternalID != nil {
		for _, it := range m.Interactions {
			if it.Type == models.InteractionInbound && it.TenantID == interaction.TenantID &&
				it.ExternalID != nil && *it.ExternalID == *interaction.ExternalID {
				interaction.ID = it.ID
				interaction.CreatedAt = it.CreatedAt
				m.Calls["CreateInbound"]++
				m.mu.Unlock()
				return false, nil
			}
		}
	}
	m.Calls["CreateInbound"]++
	m.mu.Unlock()
	interaction.Type = models.InteractionInbound
	return true, m.Create(ctx, interaction)
}

func (m *MockInteractionRepository) ListRecent(ctx context.Context, contactID int, excludeID string, limit int) ([]*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ListRecent"]++
	m.LastExclude = excludeID
	out := []*models.Interaction{}
	for _, it := range m.Interactions {
		if it.ContactID == contactID && it.ID != excludeID {
			out = append(out, it)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Outbound returns the outbound rows logged for a contact
func (m *MockInteractionRepository) Outbound(contactID int) []*models.Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Interaction{}
	for _, it := range m.Interactions {
		if it.ContactID == contactID && it.Type == models.InteractionOutbound {
			out = append(out, it)
		}
	}
	return out
}

// MockQuickReplyRepository returns a fixed list
type MockQuickReplyRepository struct {
	Replies []*models.QuickReply
	Calls   map[string]int
}

func NewMockQuickReplyRepository(replies ...*models.QuickReply) *MockQuickReplyRepository {
	return &MockQuickReplyRepository{Replies: replies, Calls: make(map[string]int)}
}

func (m *MockQuickReplyRepository) ListActive(ctx context.Context, tenantID int) ([]*models.QuickReply, error) {
	m.Calls["ListActive"]++
	out := []*models.QuickReply{}
	for _, r := range m.Replies {
		if r.TenantID == tenantID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

// MockInstanceRepository is an in-memory InstanceRepository
type MockInstanceRepository struct {
	mu        sync.Mutex
	Instances map[string]*models.Instance
	Calls     map[string]int
}

func NewMockInstanceRepository(instances ...*models.Instance) *MockInstanceRepository {
	m := &MockInstanceRepository{Instances: make(map[string]*models.Instance), Calls: make(map[string]int)}
	for _, i := range instances {
		m.Instances[i.ID] = i
	}
	return m
}

func (m *MockInstanceRepository) Create(ctx context.Context, instance *models.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Create"]++
	cp := *instance
	m.Instances[instance.ID] = &cp
	return nil
}

func (m *MockInstanceRepository) GetByID(ctx context.Context, id string) (*models.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetByID"]++
	i, ok := m.Instances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *MockInstanceRepository) GetForTenant(ctx context.Context, tenantID int) (*models.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetForTenant"]++
	for _, i := range m.Instances {
		if i.TenantID == tenantID {
			cp := *i
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockInstanceRepository) UpdateStatus(ctx context.Context, id string, status models.InstanceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["UpdateStatus"]++
	i, ok := m.Instances[id]
	if !ok {
		return repository.ErrNotFound
	}
	i.Status = status
	return nil
}

func (m *MockInstanceRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Delete"]++
	if _, ok := m.Instances[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.Instances, id)
	return nil
}

// MockTaskRepository keeps task cursors in memory
type MockTaskRepository struct {
	mu           sync.Mutex
	Tasks        map[string]*models.TaskRecord
	SaveStepFunc func(id, step string) error
	Calls        map[string]int
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{Tasks: make(map[string]*models.TaskRecord), Calls: make(map[string]int)}
}

func (m *MockTaskRepository) Begin(ctx context.Context, id, kind string) (*models.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Begin"]++
	t, ok := m.Tasks[id]
	if !ok {
		t = &models.TaskRecord{ID: id, Kind: kind, Status: models.TaskRunning, Steps: map[string]json.RawMessage{}}
		m.Tasks[id] = t
	}
	if t.Status == models.TaskRunning {
		t.Attempts++
	}
	cp := *t
	cp.Steps = make(map[string]json.RawMessage, len(t.Steps))
	for k, v := range t.Steps {
		cp.Steps[k] = v
	}
	return &cp, nil
}

func (m *MockTaskRepository) SaveStep(ctx context.Context, id, step string, output json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["SaveStep"]++
	if m.SaveStepFunc != nil {
		if err := m.SaveStepFunc(id, step); err != nil {
			return err
		}
	}
	t, ok := m.Tasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Steps[step] = output
	t.LastCompletedStep = &step
	return nil
}

func (m *MockTaskRepository) Finish(ctx context.Context, id string, status models.TaskStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Finish"]++
	t, ok := m.Tasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	t.Reason = &reason
	return nil
}

func (m *MockTaskRepository) Status(id string) models.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Tasks[id]; ok {
		return t.Status
	}
	return ""
}

// MockGateway records sends and lets tests script failures
type MockGateway struct {
	mu           sync.Mutex
	SendTextFunc func(instanceID, phone, text string) *gateway.SendResult
	Sent         []gateway.SentMessage
	Calls        map[string]int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{Calls: make(map[string]int)}
}

func (m *MockGateway) SendText(ctx context.Context, instanceID, phone, text string) *gateway.SendResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["SendText"]++
	if m.SendTextFunc != nil {
		if res := m.SendTextFunc(instanceID, phone, text); !res.Success {
			return res
		}
	}
	id := fmt.Sprintf("msg-%d", len(m.Sent)+1)
	m.Sent = append(m.Sent, gateway.SentMessage{InstanceID: instanceID, Phone: phone, Text: text, MessageID: id})
	return &gateway.SendResult{Success: true, MessageID: id}
}

func (m *MockGateway) GetQRCode(ctx context.Context, instanceID string) *gateway.QRResult {
	m.Calls["GetQRCode"]++
	return &gateway.QRResult{Success: true, Value: "qr"}
}

func (m *MockGateway) CreateInstance(ctx context.Context, instanceID string) *gateway.InstanceResult {
	m.Calls["CreateInstance"]++
	return &gateway.InstanceResult{Success: true, Status: models.InstanceStarting}
}

func (m *MockGateway) DeleteInstance(ctx context.Context, instanceID string) *gateway.InstanceResult {
	m.Calls["DeleteInstance"]++
	return &gateway.InstanceResult{Success: true, Status: models.InstanceStopped}
}

func (m *MockGateway) GetInstanceStatus(ctx context.Context, instanceID string) *gateway.InstanceResult {
	m.Calls["GetInstanceStatus"]++
	return &gateway.InstanceResult{Success: true, Status: models.InstanceWorking}
}

func (m *MockGateway) GetChats(ctx context.Context, instanceID string, limit int) *gateway.ChatsResult {
	m.Calls["GetChats"]++
	return &gateway.ChatsResult{Success: true}
}

func (m *MockGateway) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockGenerator returns a canned reply unless GenerateFunc is set
type MockGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(prompt llm.Prompt) (string, error)
	Prompts      []llm.Prompt
	Calls        map[string]int
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Calls: make(map[string]int)}
}

func (m *MockGenerator) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	m.mu.Lock()
	m.Calls["Generate"]++
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(prompt)
	}
	return "Thanks for reaching out!", nil
}

// MockPublisher records published jobs
type MockPublisher struct {
	mu          sync.Mutex
	Jobs        []interface{}
	PublishFunc func(job interface{}) error
	Calls       map[string]int
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Calls: make(map[string]int)}
}

func (m *MockPublisher) Publish(ctx context.Context, job interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Publish"]++
	if m.PublishFunc != nil {
		if err := m.PublishFunc(job); err != nil {
			return err
		}
	}
	m.Jobs = append(m.Jobs, job)
	return nil
}

// newTestRunner returns a StepRunner that retries without waiting
func newTestRunner(tasks repository.TaskRepository) *StepRunner {
	return NewStepRunner(tasks, WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func newTenant(id, used, limit int) *models.Tenant {
	now := time.Now()
	return &models.Tenant{
		ID:           id,
		Name:         fmt.Sprintf("Tenant %d", id),
		PeriodStart:  now.AddDate(0, -1, 0),
		PeriodEnd:    now.AddDate(0, 0, 1),
		CreditsUsed:  used,
		CreditsLimit: limit,
	}
}
