package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
)

// SentMessage records one delivery handled by the mock provider
type SentMessage struct {
	Kind string // "sms" or "whatsapp"
	From string
	To   string
	Body string
	SID  string
}

// MockProvider simulates the telephony provider. It fabricates provider SIDs
// in the provider's format and keeps a record of everything sent, so the rest
// of the pipeline behaves exactly as it would against the real backend.
type MockProvider struct {
	logger  *zap.Logger
	counter atomic.Int64

	mu   sync.Mutex
	sent []SentMessage
}

// NewMockProvider creates a simulated messaging provider
func NewMockProvider(logger *zap.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// Name identifies the provider backend
func (p *MockProvider) Name() string {
	return "mock"
}

// SendSMS simulates an SMS delivery
func (p *MockProvider) SendSMS(ctx context.Context, from, to, body string) (*messaging.SendResult, error) {
	return p.record("sms", "SM", from, to, body), nil
}

// SendWhatsApp simulates a WhatsApp delivery
func (p *MockProvider) SendWhatsApp(ctx context.Context, from, to, body string) (*messaging.SendResult, error) {
	return p.record("whatsapp", "WA", from, to, body), nil
}

func (p *MockProvider) record(kind, sidPrefix, from, to, body string) *messaging.SendResult {
	sid := fmt.Sprintf("%s%d%04d", sidPrefix, time.Now().UnixMilli(), p.counter.Add(1)%10000)

	p.mu.Lock()
	p.sent = append(p.sent, SentMessage{
		Kind: kind,
		From: from,
		To:   to,
		Body: body,
		SID:  sid,
	})
	p.mu.Unlock()

	p.logger.Info("simulated outbound message",
		zap.String("kind", kind),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("provider_sid", sid),
	)

	return &messaging.SendResult{
		ProviderSID: sid,
		Status:      messaging.MessageStatusQueued,
	}
}

// Sent returns a copy of everything the mock has delivered
func (p *MockProvider) Sent() []SentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SentMessage(nil), p.sent...)
}

// Ensure MockProvider implements MessagingProvider
var _ messaging.MessagingProvider = (*MockProvider)(nil)
