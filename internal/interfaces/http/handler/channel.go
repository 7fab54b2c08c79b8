package handler

import (
	"github.com/gin-gonic/gin"

	messagingapp "github.com/chatrelay/backend/internal/application/messaging"
)

// ChannelHandler handles channel management endpoints
type ChannelHandler struct {
	BaseHandler
	channelService *messagingapp.ChannelService
}

// NewChannelHandler creates a new ChannelHandler
func NewChannelHandler(channelService *messagingapp.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// RegisterRoutes registers channel routes
func (h *ChannelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	channels := rg.Group("/channels")
	{
		channels.GET("", h.List)
		channels.POST("", h.Create)
		channels.GET("/:id", h.GetByID)
		channels.PUT("/:id", h.Update)
		channels.DELETE("/:id", h.Delete)
	}
}

// Create provisions a new channel
func (h *ChannelHandler) Create(c *gin.Context) {
	var req messagingapp.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	channel, err := h.channelService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, channel)
}

// GetByID retrieves a channel
func (h *ChannelHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	channel, err := h.channelService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, channel)
}

// List retrieves channels with filtering and pagination
func (h *ChannelHandler) List(c *gin.Context) {
	var filter messagingapp.ChannelListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	channels, total, err := h.channelService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, channels, total, page, pageSize)
}

// Update updates a channel's details or status
func (h *ChannelHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req messagingapp.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	channel, err := h.channelService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, channel)
}

// Delete removes a channel
func (h *ChannelHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.channelService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}
