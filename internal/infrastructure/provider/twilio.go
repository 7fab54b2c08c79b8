package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

const messagesPath = "/2010-04-01/Accounts/%s/Messages.json"

// TwilioProvider delivers outbound messages through the Twilio REST API
type TwilioProvider struct {
	httpClient *http.Client
	accountSID string
	authToken  string
	baseURL    string
	logger     *zap.Logger
}

// twilioMessageResponse is the subset of Twilio's message resource we read
type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewTwilioProvider creates a Twilio-backed messaging provider
func NewTwilioProvider(cfg config.ProviderConfig, logger *zap.Logger) *TwilioProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TwilioProvider{
		httpClient: &http.Client{Timeout: timeout},
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger,
	}
}

// Name identifies the provider backend
func (p *TwilioProvider) Name() string {
	return "twilio"
}

// SendSMS delivers a text message over SMS
func (p *TwilioProvider) SendSMS(ctx context.Context, from, to, body string) (*messaging.SendResult, error) {
	return p.sendMessage(ctx, from, to, body)
}

// SendWhatsApp delivers a text message over WhatsApp. Twilio addresses
// WhatsApp endpoints with a "whatsapp:" prefix on both numbers.
func (p *TwilioProvider) SendWhatsApp(ctx context.Context, from, to, body string) (*messaging.SendResult, error) {
	return p.sendMessage(ctx, whatsappAddress(from), whatsappAddress(to), body)
}

func (p *TwilioProvider) sendMessage(ctx context.Context, from, to, body string) (*messaging.SendResult, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := p.baseURL + fmt.Sprintf(messagesPath, p.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	var parsed twilioMessageResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("provider rejected outbound message",
			zap.Int("http_status", resp.StatusCode),
			zap.Int("provider_code", parsed.Code),
			zap.String("provider_message", parsed.Message),
		)
		return nil, fmt.Errorf("provider rejected message (status %d, code %d): %s",
			resp.StatusCode, parsed.Code, parsed.Message)
	}

	p.logger.Info("outbound message accepted by provider",
		zap.String("provider_sid", parsed.SID),
		zap.String("provider_status", parsed.Status),
	)

	return &messaging.SendResult{
		ProviderSID: parsed.SID,
		Status:      mapDeliveryStatus(parsed.Status),
	}, nil
}

// whatsappAddress prefixes a number with "whatsapp:" unless already prefixed
func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// mapDeliveryStatus translates a provider delivery status into ours
func mapDeliveryStatus(status string) messaging.MessageStatus {
	switch status {
	case "queued", "accepted", "sending", "scheduled":
		return messaging.MessageStatusQueued
	case "sent":
		return messaging.MessageStatusSent
	case "delivered":
		return messaging.MessageStatusDelivered
	case "read":
		return messaging.MessageStatusRead
	case "failed", "undelivered", "canceled":
		return messaging.MessageStatusFailed
	default:
		return messaging.MessageStatusQueued
	}
}

// Ensure TwilioProvider implements MessagingProvider
var _ messaging.MessagingProvider = (*TwilioProvider)(nil)
