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

// ReactionHandler manages emoji reaction endpoints for both private and
// group messages.
type ReactionHandler struct {
	reactionRepo repositories.ReactionRepository
	messageRepo  repositories.MessageRepository
	groupMsgRepo repositories.GroupMessageRepository
	groupRepo    repositories.GroupRepository
	router       EventRouter
	audit        *telemetry.AuditEmitter
}

// NewReactionHandler constructs a ReactionHandler.
func NewReactionHandler(
	reactionRepo repositories.ReactionRepository,
	messageRepo repositories.MessageRepository,
	groupMsgRepo repositories.GroupMessageRepository,
	groupRepo repositories.GroupRepository,
	router EventRouter,
	audit *telemetry.AuditEmitter,
) *ReactionHandler {
	return &ReactionHandler{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		groupMsgRepo: groupMsgRepo,
		groupRepo:    groupRepo,
		router:       router,
		audit:        audit,
	}
}

type reactionRequest struct {
	MessageID   int    `json:"message_id" binding:"required"`
	MessageType string `json:"message_type" binding:"required"`
	Emoji       string `json:"emoji" binding:"required"`
}

func (req reactionRequest) validate() string {
	if req.MessageType != models.MessageTypePrivate && req.MessageType != models.MessageTypeGroup {
		return "message_type must be private or group"
	}
	if len(req.Emoji) > models.MaxEmojiLength {
		return "emoji too long"
	}
	return ""
}

// reactionTarget holds where a reaction's events should be routed.
type reactionTarget struct {
	groupID       int
	counterpartID int
}

// AddReaction handles POST /reactions. A second identical reaction from
// the same user returns 409.
func (h *ReactionHandler) AddReaction(c *gin.Context) {
	userID := c.GetInt("userID")

	var req reactionRequest
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

	target, ok := h.resolveTarget(c, req.MessageID, req.MessageType, userID)
	if !ok {
		return
	}

	reaction, err := h.reactionRepo.Add(c.Request.Context(), req.MessageID, req.MessageType, userID, req.Emoji)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateReaction) {
			c.JSON(http.StatusConflict, gin.H{"error": "reaction already exists"})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add reaction"})
		return
	}

	if req.MessageType == models.MessageTypeGroup {
		h.router.GroupReactionAdded(reaction, target.groupID)
	} else {
		h.router.PrivateReactionAdded(reaction, userID, target.counterpartID)
	}
	emitAudit(c, h.audit, "INFO", "Reaction added")
	c.JSON(http.StatusCreated, gin.H{"reaction": reaction})
}

// RemoveReaction handles DELETE /reactions/:reaction_id. Only the
// reaction's owner may remove it.
func (h *ReactionHandler) RemoveReaction(c *gin.Context) {
	userID := c.GetInt("userID")
	reactionID, err := strconv.Atoi(c.Param("reaction_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reaction id"})
		return
	}

	reaction, err := h.reactionRepo.Remove(c.Request.Context(), reactionID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrReactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reaction not found"})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove reaction"})
		return
	}

	h.fanOutRemoval(c, reaction, userID)
	emitAudit(c, h.audit, "INFO", "Reaction removed")
	c.JSON(http.StatusOK, gin.H{"message": "reaction removed"})
}

// RemoveReactionByKey handles POST /reactions/remove, identifying the
// reaction by (message, emoji) instead of its id.
func (h *ReactionHandler) RemoveReactionByKey(c *gin.Context) {
	userID := c.GetInt("userID")

	var req reactionRequest
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

	reaction, err := h.reactionRepo.RemoveByKey(c.Request.Context(), req.MessageID, req.MessageType, userID, req.Emoji)
	if err != nil {
		if errors.Is(err, repositories.ErrReactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reaction not found"})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove reaction"})
		return
	}

	h.fanOutRemoval(c, reaction, userID)
	emitAudit(c, h.audit, "INFO", "Reaction removed")
	c.JSON(http.StatusOK, gin.H{"message": "reaction removed"})
}

// GetMessageReactions handles GET /reactions/:message_type/:message_id.
func (h *ReactionHandler) GetMessageReactions(c *gin.Context) {
	userID := c.GetInt("userID")
	messageType := c.Param("message_type")
	if messageType != models.MessageTypePrivate && messageType != models.MessageTypeGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_type must be private or group"})
		return
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if _, ok := h.resolveTarget(c, messageID, messageType, userID); !ok {
		return
	}

	reactions, err := h.reactionRepo.ListForMessage(c.Request.Context(), messageID, messageType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": models.BuildReactionMap(reactions)})
}

// BulkReactions handles POST /reactions/bulk: one reaction map per
// requested message id, in a single round trip.
func (h *ReactionHandler) BulkReactions(c *gin.Context) {
	var req struct {
		MessageIDs  []int  `json:"message_ids" binding:"required"`
		MessageType string `json:"message_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MessageType != models.MessageTypePrivate && req.MessageType != models.MessageTypeGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_type must be private or group"})
		return
	}
	if len(req.MessageIDs) == 0 {
		c.JSON(http.StatusOK, gin.H{"reactions": map[int]models.ReactionMap{}})
		return
	}

	maps, err := h.reactionRepo.BulkMaps(c.Request.Context(), req.MessageIDs, req.MessageType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": maps})
}

// resolveTarget checks the caller may touch the message and returns where
// reaction events should go.
func (h *ReactionHandler) resolveTarget(c *gin.Context, messageID int, messageType string, userID int) (reactionTarget, bool) {
	if messageType == models.MessageTypeGroup {
		msg, err := h.groupMsgRepo.Get(c.Request.Context(), messageID)
		if err != nil {
			if errors.Is(err, repositories.ErrMessageNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
				return reactionTarget{}, false
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load message"})
			return reactionTarget{}, false
		}
		member, err := h.groupRepo.IsMember(c.Request.Context(), msg.GroupID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check membership"})
			return reactionTarget{}, false
		}
		if !member {
			emitAudit(c, h.audit, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
			return reactionTarget{}, false
		}
		return reactionTarget{groupID: msg.GroupID}, true
	}

	msg, err := h.messageRepo.Get(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return reactionTarget{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load message"})
		return reactionTarget{}, false
	}
	switch userID {
	case msg.SenderID:
		return reactionTarget{counterpartID: msg.ReceiverID}, true
	case msg.ReceiverID:
		return reactionTarget{counterpartID: msg.SenderID}, true
	}
	emitAudit(c, h.audit, "ERROR", "not allowed")
	c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
	return reactionTarget{}, false
}

// fanOutRemoval routes a removal event using the deleted reaction row.
// The delete already succeeded, so lookup failures here only skip the
// notification.
func (h *ReactionHandler) fanOutRemoval(c *gin.Context, reaction models.Reaction, userID int) {
	ctx := c.Request.Context()
	if reaction.MessageType == models.MessageTypeGroup {
		msg, err := h.groupMsgRepo.Get(ctx, reaction.TargetID())
		if err != nil {
			return
		}
		h.router.GroupReactionRemoved(reaction.TargetID(), userID, reaction.Emoji, msg.GroupID)
		return
	}

	msg, err := h.messageRepo.Get(ctx, reaction.TargetID())
	if err != nil {
		return
	}
	counterpartID := msg.SenderID
	if userID == msg.SenderID {
		counterpartID = msg.ReceiverID
	}
	h.router.PrivateReactionRemoved(reaction.TargetID(), userID, reaction.Emoji, userID, counterpartID)
}
