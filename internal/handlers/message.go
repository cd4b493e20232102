package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// MessageHandler manages private message endpoints.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	router      EventRouter
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, router EventRouter, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo, router: router, audit: audit}
}

type sendMessageRequest struct {
	Text       string             `json:"text"`
	Attachment *models.Attachment `json:"attachment"`
}

func (req sendMessageRequest) validate() string {
	if req.Text == "" && req.Attachment == nil {
		return "text or attachment is required"
	}
	if len(req.Text) > models.MaxTextLength {
		return "text too long"
	}
	if req.Attachment != nil && req.Attachment.URL == "" {
		return "attachment url is required"
	}
	return ""
}

// PostMessage handles POST /messages/:user_id: persist a private message
// and notify the receiver's connection.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	receiverID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userID := c.GetInt("userID")
	if receiverID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	msg, err := h.messageRepo.Create(c.Request.Context(), userID, receiverID, req.Text, req.Attachment)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.router.MessageCreated(msg)
	emitAudit(c, h.audit, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

// ListMessages handles GET /messages/:user_id: the paginated conversation
// with another user, oldest first.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userID := c.GetInt("userID")
	limit, offset := pagination(c)

	msgs, err := h.messageRepo.ListConversation(c.Request.Context(), userID, otherID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := 1
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return limit, (page - 1) * limit
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, level, text string) {
	if audit == nil {
		return
	}
	audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
