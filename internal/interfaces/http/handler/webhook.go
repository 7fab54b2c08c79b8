package handler

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	messagingapp "github.com/chatrelay/backend/internal/application/messaging"
	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

const voiceTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Thank you for calling. We have logged your call and will text you back shortly.</Say></Response>`

// WebhookHandler receives provider callbacks. Webhooks are always
// acknowledged: an internal failure is logged, never surfaced, so the
// provider does not retry into the same failure.
type WebhookHandler struct {
	router *messagingapp.MessageRouter
	cfg    config.ProviderConfig
	logger *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(router *messagingapp.MessageRouter, cfg config.ProviderConfig, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		router: router,
		cfg:    cfg,
		logger: logger,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.GET("/health", h.Health)
		webhooks.POST("/sms", h.InboundSMS)
		webhooks.POST("/whatsapp", h.InboundWhatsApp)
		webhooks.POST("/voice", h.InboundVoice)
		webhooks.POST("/status", h.StatusCallback)
	}
}

// Health reports webhook availability to the provider console
func (h *WebhookHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// InboundSMS receives an inbound SMS event
func (h *WebhookHandler) InboundSMS(c *gin.Context) {
	h.handleInbound(c, messaging.CommunicationTypeSMS)
}

// InboundWhatsApp receives an inbound WhatsApp event. The provider
// addresses WhatsApp traffic as "whatsapp:+E164"; the prefix is stripped
// so numbers line up with channel provisioning.
func (h *WebhookHandler) InboundWhatsApp(c *gin.Context) {
	h.handleInbound(c, messaging.CommunicationTypeWhatsApp)
}

// InboundVoice records an incoming call and answers with spoken TwiML
func (h *WebhookHandler) InboundVoice(c *gin.Context) {
	if !h.verifySignature(c) {
		return
	}

	event := messagingapp.InboundEvent{
		Type:        messaging.CommunicationTypeVoice,
		ProviderSID: c.PostForm("CallSid"),
		FromNumber:  c.PostForm("From"),
		ToNumber:    c.PostForm("To"),
		Body:        "Incoming voice call",
		ReceivedAt:  time.Now(),
	}

	if _, err := h.router.HandleInbound(c.Request.Context(), event); err != nil {
		h.logger.Error("failed to record inbound voice call",
			zap.String("call_sid", event.ProviderSID),
			zap.Error(err))
	}

	c.Data(http.StatusOK, "text/xml", []byte(voiceTwiML))
}

// StatusCallback applies a delivery status update to the referenced
// message
func (h *WebhookHandler) StatusCallback(c *gin.Context) {
	if !h.verifySignature(c) {
		return
	}

	event := messagingapp.StatusCallbackEvent{
		ProviderSID: firstNonEmpty(c.PostForm("MessageSid"), c.PostForm("SmsSid")),
		Status:      firstNonEmpty(c.PostForm("MessageStatus"), c.PostForm("SmsStatus")),
	}

	if err := h.router.HandleStatusCallback(c.Request.Context(), event); err != nil {
		h.logger.Warn("status callback not applied",
			zap.String("provider_sid", event.ProviderSID),
			zap.String("status", event.Status),
			zap.Error(err))
	}

	c.String(http.StatusOK, "")
}

func (h *WebhookHandler) handleInbound(c *gin.Context, eventType messaging.CommunicationType) {
	if !h.verifySignature(c) {
		return
	}

	mediaCount, _ := strconv.Atoi(c.PostForm("NumMedia"))
	event := messagingapp.InboundEvent{
		Type:        eventType,
		ProviderSID: firstNonEmpty(c.PostForm("MessageSid"), c.PostForm("SmsSid")),
		FromNumber:  stripWhatsAppPrefix(c.PostForm("From")),
		ToNumber:    stripWhatsAppPrefix(c.PostForm("To")),
		Body:        c.PostForm("Body"),
		MediaCount:  mediaCount,
		ReceivedAt:  time.Now(),
	}

	if _, err := h.router.HandleInbound(c.Request.Context(), event); err != nil {
		h.logger.Error("failed to process inbound event",
			zap.String("type", string(eventType)),
			zap.String("provider_sid", event.ProviderSID),
			zap.Error(err))
	}

	c.Data(http.StatusOK, "text/xml", []byte(emptyTwiML))
}

// verifySignature checks the provider's request signature when validation
// is enabled. Forged requests are the one case a webhook is not
// acknowledged.
func (h *WebhookHandler) verifySignature(c *gin.Context) bool {
	if !h.cfg.ValidateSignatures {
		return true
	}

	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusForbidden, "invalid request")
		c.Abort()
		return false
	}

	url := strings.TrimRight(h.cfg.WebhookBaseURL, "/") + c.Request.URL.RequestURI()
	expected := computeSignature(h.cfg.AuthToken, url, c.Request.PostForm)
	provided := c.GetHeader("X-Twilio-Signature")

	if subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
		h.logger.Warn("rejected webhook with bad signature",
			zap.String("path", c.Request.URL.Path))
		c.String(http.StatusForbidden, "signature mismatch")
		c.Abort()
		return false
	}
	return true
}

// computeSignature implements the provider's scheme: HMAC-SHA1 over the
// full URL concatenated with the form parameters in key order, base64
// encoded.
func computeSignature(authToken, url string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)
	for _, key := range keys {
		for _, value := range form[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func stripWhatsAppPrefix(number string) string {
	return strings.TrimPrefix(number, "whatsapp:")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
