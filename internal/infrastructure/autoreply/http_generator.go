package autoreply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

// HTTPGenerator produces replies by calling an external chat service
type HTTPGenerator struct {
	httpClient *http.Client
	endpoint   string
	actorID    string
	logger     *zap.Logger
}

// chatRequest is the payload the external chat service expects
type chatRequest struct {
	ActorID     string `json:"actor_id"`
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
	EnableTools bool   `json:"enable_tools"`
}

// NewHTTPGenerator creates a generator backed by an external chat service
func NewHTTPGenerator(cfg config.AutoReplyConfig, logger *zap.Logger) *HTTPGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGenerator{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		actorID:    cfg.ActorID,
		logger:     logger,
	}
}

// Generate asks the chat service for a reply to the inbound message
func (g *HTTPGenerator) Generate(ctx context.Context, req messaging.ReplyRequest) (*messaging.ReplyResult, error) {
	payload, err := json.Marshal(chatRequest{
		ActorID:     g.actorID,
		SessionID:   req.SessionID.String(),
		Message:     req.Body,
		EnableTools: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read chat service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat service returned status %d", resp.StatusCode)
	}

	reply := extractReply(body)
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("chat service returned an empty reply")
	}

	g.logger.Debug("chat service produced reply",
		zap.String("session_id", req.SessionID.String()),
		zap.Int("reply_length", len(reply)),
	)

	return &messaging.ReplyResult{Body: reply, Backend: "http"}, nil
}

// extractReply normalizes the chat service response to a plain string.
// The service may answer with a bare string or an object carrying the text
// under "reply", "message" or "text".
func extractReply(body []byte) string {
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil {
		return asString
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(body, &asObject); err == nil {
		for _, key := range []string{"reply", "message", "text"} {
			var value string
			if raw, ok := asObject[key]; ok {
				if err := json.Unmarshal(raw, &value); err == nil && value != "" {
					return value
				}
			}
		}
	}

	return string(body)
}

// Ensure HTTPGenerator implements ReplyGenerator
var _ messaging.ReplyGenerator = (*HTTPGenerator)(nil)
