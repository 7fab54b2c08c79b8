package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

// NewProvider creates the messaging provider for the configured backend
func NewProvider(cfg config.ProviderConfig, logger *zap.Logger) (messaging.MessagingProvider, error) {
	switch cfg.Backend {
	case "twilio":
		if cfg.AccountSID == "" || cfg.AuthToken == "" {
			return nil, fmt.Errorf("twilio provider requires account SID and auth token")
		}
		logger.Info("using Twilio messaging provider")
		return NewTwilioProvider(cfg, logger), nil
	case "mock":
		logger.Warn("using mock messaging provider, no real messages will be sent")
		return NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown provider backend: %q", cfg.Backend)
	}
}
