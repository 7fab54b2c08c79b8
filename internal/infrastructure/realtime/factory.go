package realtime

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

// NewBroadcaster creates the broadcaster for the configured backend. The hub
// always exists because websocket subscribers attach to it; the "redis"
// backend layers cross-instance fan-out on top of it.
func NewBroadcaster(backend string, redisCfg config.RedisConfig, hub *Hub, logger *zap.Logger) (messaging.MessageBroadcaster, error) {
	switch backend {
	case "memory":
		return hub, nil
	case "redis":
		broadcaster, err := NewRedisBroadcaster(redisCfg, hub, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis broadcaster: %w", err)
		}
		logger.Info("using Redis realtime broadcaster")
		return broadcaster, nil
	default:
		return nil, fmt.Errorf("unknown realtime backend: %q", backend)
	}
}
