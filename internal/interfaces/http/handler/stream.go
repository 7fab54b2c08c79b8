package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/infrastructure/realtime"
	"github.com/chatrelay/backend/internal/interfaces/http/dto"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler upgrades realtime subscribers to WebSocket connections.
// Each connection joins the hub for one channel and receives that
// channel's broadcast frames until either side disconnects.
type StreamHandler struct {
	hub      *realtime.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(hub *realtime.Hub, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser dashboards connect cross-origin; access control is
			// handled at the deployment boundary
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the stream route
func (h *StreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stream/:channelId", h.Stream)
}

// Stream subscribes the caller to a channel's realtime events
func (h *StreamHandler) Stream(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidRequest, "Invalid channel id"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe(channelID)
	h.logger.Info("realtime subscriber connected",
		zap.String("channel_id", channelID.String()),
		zap.String("subscription_id", sub.ID.String()))

	go h.readLoop(conn, sub)
	h.writeLoop(conn, sub)
}

// readLoop drains client frames; inbound content is ignored, but a read
// error is how we learn the client went away
func (h *StreamHandler) readLoop(conn *websocket.Conn, sub *realtime.Subscription) {
	defer h.hub.Unsubscribe(sub)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop relays hub frames to the client and keeps the connection
// alive with pings. It ends when the subscription closes or a write
// fails.
func (h *StreamHandler) writeLoop(conn *websocket.Conn, sub *realtime.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
