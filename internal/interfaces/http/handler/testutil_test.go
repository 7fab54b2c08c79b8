package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	messagingapp "github.com/chatrelay/backend/internal/application/messaging"
	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
	"github.com/chatrelay/backend/internal/infrastructure/config"
	"github.com/chatrelay/backend/internal/infrastructure/realtime"
	"github.com/chatrelay/backend/internal/interfaces/http/router"
)

// Map-backed fakes for the repository interfaces

type fakeChannelRepo struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*messaging.Channel
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{channels: make(map[uuid.UUID]*messaging.Channel)}
}

func (r *fakeChannelRepo) FindByID(_ context.Context, id uuid.UUID) (*messaging.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel, ok := r.channels[id]; ok {
		copied := *channel
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeChannelRepo) FindAll(_ context.Context, _ shared.Filter) ([]messaging.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]messaging.Channel, 0, len(r.channels))
	for _, channel := range r.channels {
		result = append(result, *channel)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeChannelRepo) Save(_ context.Context, channel *messaging.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *channel
	r.channels[channel.ID] = &copied
	return nil
}

func (r *fakeChannelRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.channels, id)
	return nil
}

func (r *fakeChannelRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.channels)), nil
}

func (r *fakeChannelRepo) FindByPhoneNumber(_ context.Context, phoneNumber string, channelType messaging.CommunicationType) (*messaging.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, channel := range r.channels {
		if channel.PhoneNumber == phoneNumber && channel.Type == channelType {
			copied := *channel
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeChannelRepo) FindByStatus(_ context.Context, status messaging.ChannelStatus, _ shared.Filter) ([]messaging.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []messaging.Channel
	for _, channel := range r.channels {
		if channel.Status == status {
			result = append(result, *channel)
		}
	}
	return result, nil
}

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]*messaging.Contact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[uuid.UUID]*messaging.Contact)}
}

func (r *fakeContactRepo) FindByID(_ context.Context, id uuid.UUID) (*messaging.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if contact, ok := r.contacts[id]; ok {
		copied := *contact
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeContactRepo) FindAll(_ context.Context, _ shared.Filter) ([]messaging.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]messaging.Contact, 0, len(r.contacts))
	for _, contact := range r.contacts {
		result = append(result, *contact)
	}
	return result, nil
}

func (r *fakeContactRepo) Save(_ context.Context, contact *messaging.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *contact
	r.contacts[contact.ID] = &copied
	return nil
}

func (r *fakeContactRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.contacts, id)
	return nil
}

func (r *fakeContactRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.contacts)), nil
}

func (r *fakeContactRepo) FindByPhoneNumber(_ context.Context, phoneNumber string) (*messaging.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, contact := range r.contacts {
		if contact.PhoneNumber == phoneNumber {
			copied := *contact
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*messaging.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*messaging.Session)}
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*messaging.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSessionRepo) FindAll(_ context.Context, _ shared.Filter) ([]messaging.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]messaging.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		result = append(result, *session)
	}
	return result, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session *messaging.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sessions)), nil
}

func (r *fakeSessionRepo) FindActiveByRemoteNumber(_ context.Context, channelID uuid.UUID, sessionType messaging.CommunicationType, remoteNumber string) ([]messaging.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []messaging.Session
	for _, session := range r.sessions {
		if session.ChannelID == channelID && session.Type == sessionType &&
			session.RemoteNumber == remoteNumber && session.IsActive() {
			result = append(result, *session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	return result, nil
}

func (r *fakeSessionRepo) FindActiveByChannel(_ context.Context, channelID uuid.UUID, sessionType messaging.CommunicationType) ([]messaging.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []messaging.Session
	for _, session := range r.sessions {
		if session.ChannelID == channelID && session.Type == sessionType && session.IsActive() {
			result = append(result, *session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	return result, nil
}

func (r *fakeSessionRepo) FindByChannel(_ context.Context, channelID uuid.UUID, _ shared.Filter) ([]messaging.Session, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []messaging.Session
	for _, session := range r.sessions {
		if session.ChannelID == channelID {
			result = append(result, *session)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeSessionRepo) TouchActivity(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return shared.ErrNotFound
	}
	session.MessageCount++
	if at.After(session.LastMessageAt) {
		session.LastMessageAt = at
	}
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*messaging.Message
	sessions *fakeSessionRepo
}

func newFakeMessageRepo(sessions *fakeSessionRepo) *fakeMessageRepo {
	return &fakeMessageRepo{
		messages: make(map[uuid.UUID]*messaging.Message),
		sessions: sessions,
	}
}

func (r *fakeMessageRepo) FindByID(_ context.Context, id uuid.UUID) (*messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message, ok := r.messages[id]; ok {
		copied := *message
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeMessageRepo) FindAll(_ context.Context, _ shared.Filter) ([]messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]messaging.Message, 0, len(r.messages))
	for _, message := range r.messages {
		result = append(result, *message)
	}
	return result, nil
}

func (r *fakeMessageRepo) Save(_ context.Context, message *messaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *message
	r.messages[message.ID] = &copied
	return nil
}

func (r *fakeMessageRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *fakeMessageRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.messages)), nil
}

func (r *fakeMessageRepo) FindBySession(_ context.Context, sessionID uuid.UUID, _ shared.Filter) ([]messaging.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []messaging.Message
	for _, message := range r.messages {
		if message.SessionID == sessionID {
			result = append(result, *message)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, int64(len(result)), nil
}

func (r *fakeMessageRepo) FindByChannel(ctx context.Context, channelID uuid.UUID, filter shared.Filter) ([]messaging.Message, int64, error) {
	sessions, _, err := r.sessions.FindByChannel(ctx, channelID, filter)
	if err != nil {
		return nil, 0, err
	}
	wanted := make(map[uuid.UUID]bool, len(sessions))
	for _, session := range sessions {
		wanted[session.ID] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var result []messaging.Message
	for _, message := range r.messages {
		if !wanted[message.SessionID] {
			continue
		}
		if sessionID, ok := filter.Filters["session_id"].(string); ok && sessionID != message.SessionID.String() {
			continue
		}
		result = append(result, *message)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, int64(len(result)), nil
}

func (r *fakeMessageRepo) DeleteBySession(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, message := range r.messages {
		if message.SessionID == sessionID {
			delete(r.messages, id)
		}
	}
	return nil
}

func (r *fakeMessageRepo) FindByProviderSID(_ context.Context, providerSID string) (*messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.messages {
		if message.ProviderSID == providerSID {
			copied := *message
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

// stubProvider answers every send with a fixed result, or an error when
// failWith is set
type stubProvider struct {
	mu       sync.Mutex
	counter  int
	failWith error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) SendSMS(_ context.Context, _, _, _ string) (*messaging.SendResult, error) {
	return p.send("SM")
}

func (p *stubProvider) SendWhatsApp(_ context.Context, _, _, _ string) (*messaging.SendResult, error) {
	return p.send("WA")
}

func (p *stubProvider) send(prefix string) (*messaging.SendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return nil, p.failWith
	}
	p.counter++
	return &messaging.SendResult{
		ProviderSID: prefix + "-stub-" + uuid.NewString()[:8],
		Status:      messaging.MessageStatusSent,
	}, nil
}

type stubGenerator struct {
	reply string
}

func (g *stubGenerator) Generate(_ context.Context, _ messaging.ReplyRequest) (*messaging.ReplyResult, error) {
	return &messaging.ReplyResult{Body: g.reply, Backend: "stub"}, nil
}

type nopDedupe struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newNopDedupe() *nopDedupe {
	return &nopDedupe{seen: make(map[string]bool)}
}

func (s *nopDedupe) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *nopDedupe) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key], nil
}

func (s *nopDedupe) Close() error { return nil }

// testServer bundles the wired engine with its backing fakes so tests can
// seed and inspect state
type testServer struct {
	engine      *gin.Engine
	channelRepo *fakeChannelRepo
	contactRepo *fakeContactRepo
	sessionRepo *fakeSessionRepo
	messageRepo *fakeMessageRepo
	provider    *stubProvider
	hub         *realtime.Hub
	providerCfg config.ProviderConfig
	msgRouter   *messagingapp.MessageRouter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	channelRepo := newFakeChannelRepo()
	contactRepo := newFakeContactRepo()
	sessionRepo := newFakeSessionRepo()
	messageRepo := newFakeMessageRepo(sessionRepo)
	provider := &stubProvider{}
	hub := realtime.NewHub(logger)

	resolver := messagingapp.NewSessionResolver(sessionRepo, 5*time.Minute, logger)
	channelService := messagingapp.NewChannelService(channelRepo)
	contactService := messagingapp.NewContactService(contactRepo)
	sessionService := messagingapp.NewSessionService(sessionRepo, channelRepo, messageRepo)
	messageService := messagingapp.NewMessageService(
		messageRepo, sessionRepo, channelRepo, resolver, provider, hub,
		&stubGenerator{reply: "auto"}, nil, messagingapp.AutoReplyConfig{}, logger)

	providerCfg := config.ProviderConfig{Backend: "mock"}
	msgRouter := messagingapp.NewMessageRouter(
		channelRepo, sessionRepo, messageRepo, resolver, newNopDedupe(), hub,
		provider, &stubGenerator{reply: "auto"}, nil,
		messagingapp.RouterConfig{}, logger)

	engine := gin.New()
	router.NewRouter(engine).Register(
		NewChannelHandler(channelService),
		NewContactHandler(contactService),
		NewSessionHandler(sessionService, messageService),
		NewMessageHandler(messageService),
		NewWebhookHandler(msgRouter, providerCfg, logger),
		NewStreamHandler(hub, logger),
		NewSystemHandler(nil, "chatrelay"),
	).Setup()

	return &testServer{
		engine:      engine,
		channelRepo: channelRepo,
		contactRepo: contactRepo,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		provider:    provider,
		hub:         hub,
		providerCfg: providerCfg,
		msgRouter:   msgRouter,
	}
}

func (s *testServer) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) seedChannel(t *testing.T, phone string, channelType messaging.CommunicationType) *messaging.Channel {
	t.Helper()
	channel, err := messaging.NewChannel("Test Line", phone, "US", channelType)
	require.NoError(t, err)
	require.NoError(t, s.channelRepo.Save(context.Background(), channel))
	return channel
}

func (s *testServer) seedSession(t *testing.T, channelID uuid.UUID, remote string) *messaging.Session {
	t.Helper()
	session, err := messaging.NewSession(channelID, messaging.CommunicationTypeSMS, remote, "")
	require.NoError(t, err)
	require.NoError(t, s.sessionRepo.Save(context.Background(), session))
	return session
}

func sharedFilter() shared.Filter {
	return shared.DefaultFilter()
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return decoded
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	decoded := decodeResponse(t, w)
	data, ok := decoded["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}
