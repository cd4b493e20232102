package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// ReadReceiptHandler records which group members have read which
// messages.
type ReadReceiptHandler struct {
	messageRepo repositories.GroupMessageRepository
	groupRepo   repositories.GroupRepository
	router      EventRouter
	audit       *telemetry.AuditEmitter
}

// NewReadReceiptHandler constructs a ReadReceiptHandler.
func NewReadReceiptHandler(messageRepo repositories.GroupMessageRepository, groupRepo repositories.GroupRepository, router EventRouter, audit *telemetry.AuditEmitter) *ReadReceiptHandler {
	return &ReadReceiptHandler{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		router:      router,
		audit:       audit,
	}
}

// MarkRead handles POST /read-receipts/:message_id. Marking the same
// message twice is a no-op and pushes no event.
func (h *ReadReceiptHandler) MarkRead(c *gin.Context) {
	userID := c.GetInt("userID")
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	inserted, groupID, ok := h.markOne(c, messageID, userID)
	if !ok {
		return
	}
	if inserted {
		h.pushReadEvent(c, groupID, messageID, userID)
	}

	emitAudit(c, h.audit, "INFO", "Message marked as read")
	c.JSON(http.StatusOK, gin.H{"read": inserted})
}

// MarkManyRead handles POST /read-receipts/bulk. A client catching up
// after reconnect marks a whole page of messages in one call.
func (h *ReadReceiptHandler) MarkManyRead(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		MessageIDs []int `json:"message_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	marked := 0
	for _, messageID := range req.MessageIDs {
		inserted, groupID, ok := h.markOne(c, messageID, userID)
		if !ok {
			return
		}
		if inserted {
			marked++
			h.pushReadEvent(c, groupID, messageID, userID)
		}
	}

	emitAudit(c, h.audit, "INFO", "Messages marked as read")
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// markOne validates access and records the receipt. It reports whether a
// new receipt row was written.
func (h *ReadReceiptHandler) markOne(c *gin.Context, messageID, userID int) (inserted bool, groupID int, ok bool) {
	ctx := c.Request.Context()

	msg, err := h.messageRepo.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return false, 0, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load message"})
		return false, 0, false
	}

	member, err := h.groupRepo.IsMember(ctx, msg.GroupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check membership"})
		return false, 0, false
	}
	if !member {
		emitAudit(c, h.audit, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return false, 0, false
	}

	inserted, err = h.messageRepo.MarkRead(ctx, messageID, userID)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark message as read"})
		return false, 0, false
	}
	return inserted, msg.GroupID, true
}

func (h *ReadReceiptHandler) pushReadEvent(c *gin.Context, groupID, messageID, userID int) {
	receipts, err := h.messageRepo.Receipts(c.Request.Context(), messageID)
	if err != nil {
		return
	}
	h.router.MessageRead(groupID, models.MessageReadPayload{
		MessageID:  messageID,
		ReadBy:     receipts,
		ReadByUser: userID,
	})
}
