package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	messagingapp "github.com/chatrelay/backend/internal/application/messaging"
)

// SessionHandler handles session management endpoints, including the
// per-session message history
type SessionHandler struct {
	BaseHandler
	sessionService *messagingapp.SessionService
	messageService *messagingapp.MessageService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionService *messagingapp.SessionService, messageService *messagingapp.MessageService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		messageService: messageService,
	}
}

// RegisterRoutes registers session routes
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/sessions")
	{
		sessions.GET("", h.List)
		sessions.POST("", h.Create)
		sessions.GET("/:id", h.GetByID)
		sessions.PUT("/:id", h.Update)
		sessions.DELETE("/:id", h.Delete)
		sessions.POST("/:id/archive", h.Archive)
		sessions.GET("/:id/messages", h.ListMessages)
		sessions.POST("/:id/messages", h.SendMessage)
	}
}

// Create manually starts a session
func (h *SessionHandler) Create(c *gin.Context) {
	var req messagingapp.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, session)
}

// GetByID retrieves a session
func (h *SessionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, session)
}

// List retrieves sessions with filtering and pagination
func (h *SessionHandler) List(c *gin.Context) {
	var filter messagingapp.SessionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	sessions, total, err := h.sessionService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, sessions, total, page, pageSize)
}

// Update updates a session's details or status
func (h *SessionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req messagingapp.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	session, err := h.sessionService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, session)
}

// Archive moves a session out of the active set
func (h *SessionHandler) Archive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Archive(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, session)
}

// Delete removes a session. delete_messages=true purges the history too.
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleteMessages, _ := strconv.ParseBool(c.Query("delete_messages"))

	if err := h.sessionService.Delete(c.Request.Context(), id, deleteMessages); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListMessages retrieves a session's conversation, oldest first
func (h *SessionHandler) ListMessages(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var filter messagingapp.MessageListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	messages, total, err := h.messageService.ListBySession(c.Request.Context(), id, filter)
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

// SendMessage sends an operator-authored message on the session
func (h *SessionHandler) SendMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req messagingapp.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, message)
}
