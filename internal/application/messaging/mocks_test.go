package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockChannelRepository is a mock implementation of ChannelRepository
type MockChannelRepository struct {
	mock.Mock
}

func (m *MockChannelRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Channel), args.Error(1)
}

func (m *MockChannelRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messaging.Channel, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]messaging.Channel), args.Error(1)
}

func (m *MockChannelRepository) Save(ctx context.Context, channel *messaging.Channel) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockChannelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChannelRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChannelRepository) FindByPhoneNumber(ctx context.Context, phoneNumber string, channelType messaging.CommunicationType) (*messaging.Channel, error) {
	args := m.Called(ctx, phoneNumber, channelType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Channel), args.Error(1)
}

func (m *MockChannelRepository) FindByStatus(ctx context.Context, status messaging.ChannelStatus, filter shared.Filter) ([]messaging.Channel, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]messaging.Channel), args.Error(1)
}

// MockContactRepository is a mock implementation of ContactRepository
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Contact), args.Error(1)
}

func (m *MockContactRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messaging.Contact, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]messaging.Contact), args.Error(1)
}

func (m *MockContactRepository) Save(ctx context.Context, contact *messaging.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContactRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContactRepository) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*messaging.Contact, error) {
	args := m.Called(ctx, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Contact), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Session), args.Error(1)
}

func (m *MockSessionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messaging.Session, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]messaging.Session), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, session *messaging.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) FindActiveByRemoteNumber(ctx context.Context, channelID uuid.UUID, sessionType messaging.CommunicationType, remoteNumber string) ([]messaging.Session, error) {
	args := m.Called(ctx, channelID, sessionType, remoteNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]messaging.Session), args.Error(1)
}

func (m *MockSessionRepository) FindActiveByChannel(ctx context.Context, channelID uuid.UUID, sessionType messaging.CommunicationType) ([]messaging.Session, error) {
	args := m.Called(ctx, channelID, sessionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]messaging.Session), args.Error(1)
}

func (m *MockSessionRepository) FindByChannel(ctx context.Context, channelID uuid.UUID, filter shared.Filter) ([]messaging.Session, int64, error) {
	args := m.Called(ctx, channelID, filter)
	return args.Get(0).([]messaging.Session), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) TouchActivity(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, sessionID, at)
	return args.Error(0)
}

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Message), args.Error(1)
}

func (m *MockMessageRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messaging.Message, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]messaging.Message), args.Error(1)
}

func (m *MockMessageRepository) Save(ctx context.Context, message *messaging.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMessageRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) FindBySession(ctx context.Context, sessionID uuid.UUID, filter shared.Filter) ([]messaging.Message, int64, error) {
	args := m.Called(ctx, sessionID, filter)
	return args.Get(0).([]messaging.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) FindByChannel(ctx context.Context, channelID uuid.UUID, filter shared.Filter) ([]messaging.Message, int64, error) {
	args := m.Called(ctx, channelID, filter)
	return args.Get(0).([]messaging.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockMessageRepository) FindByProviderSID(ctx context.Context, providerSID string) (*messaging.Message, error) {
	args := m.Called(ctx, providerSID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Message), args.Error(1)
}

// =============================================================================
// Mock Ports
// =============================================================================

// MockProvider is a mock implementation of MessagingProvider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) SendSMS(ctx context.Context, from, to, body string) (*messaging.SendResult, error) {
	args := m.Called(ctx, from, to, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.SendResult), args.Error(1)
}

func (m *MockProvider) SendWhatsApp(ctx context.Context, from, to, body string) (*messaging.SendResult, error) {
	args := m.Called(ctx, from, to, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.SendResult), args.Error(1)
}

// MockGenerator is a mock implementation of ReplyGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req messaging.ReplyRequest) (*messaging.ReplyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.ReplyResult), args.Error(1)
}

// recordingBroadcaster captures broadcast events for assertions
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []messaging.BroadcastEvent
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, event messaging.BroadcastEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBroadcaster) Events() []messaging.BroadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messaging.BroadcastEvent(nil), b.events...)
}

// recordingPublisher captures published domain events for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

// memoryDedupeStore is a map-backed idempotency store for tests
type memoryDedupeStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryDedupeStore() *memoryDedupeStore {
	return &memoryDedupeStore{seen: make(map[string]bool)}
}

func (s *memoryDedupeStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *memoryDedupeStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key], nil
}

func (s *memoryDedupeStore) Close() error {
	return nil
}
