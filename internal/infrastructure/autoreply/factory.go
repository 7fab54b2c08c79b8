package autoreply

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

// NewGenerator creates the reply generator for the configured backend
func NewGenerator(cfg config.AutoReplyConfig, logger *zap.Logger) (messaging.ReplyGenerator, error) {
	switch cfg.Backend {
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("http reply generator requires an endpoint")
		}
		logger.Info("using external chat service for automated replies",
			zap.String("endpoint", cfg.Endpoint),
		)
		return NewHTTPGenerator(cfg, logger), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown auto-reply backend: %q", cfg.Backend)
	}
}
