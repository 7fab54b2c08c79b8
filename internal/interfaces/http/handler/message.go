package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	messagingapp "github.com/chatrelay/backend/internal/application/messaging"
	"github.com/chatrelay/backend/internal/interfaces/http/dto"
)

// MessageHandler handles message lookup and the generic operator send
// entry
type MessageHandler struct {
	BaseHandler
	messageService *messagingapp.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *messagingapp.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// RegisterRoutes registers message routes
func (h *MessageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	messages := rg.Group("/messages")
	{
		messages.POST("", h.Send)
		messages.GET("/:id", h.GetByID)
		messages.GET("/channel/:channelId", h.ListByChannel)
	}
}

// GetByID retrieves a single message
func (h *MessageHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	message, err := h.messageService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, message)
}

// ListByChannel retrieves messages across a channel's sessions, oldest
// first. session_id narrows to one conversation.
func (h *MessageHandler) ListByChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidRequest, "Invalid channel id"))
		return
	}

	var filter messagingapp.ChannelMessageListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	messages, total, err := h.messageService.ListByChannel(c.Request.Context(), channelID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	if filter.Limit > 0 {
		page, pageSize = filter.Offset/filter.Limit+1, filter.Limit
	}
	h.SuccessWithMeta(c, messages, total, page, pageSize)
}

// Send is the generic operator entry: a provided session_id wins,
// otherwise the conversation is resolved from channel_id and
// remote_number
func (h *MessageHandler) Send(c *gin.Context) {
	var req messagingapp.OperatorSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	message, err := h.messageService.OperatorSend(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, message)
}
