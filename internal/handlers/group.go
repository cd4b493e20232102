package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// GroupHandler manages group membership and group message endpoints.
type GroupHandler struct {
	groupRepo   repositories.GroupRepository
	messageRepo repositories.GroupMessageRepository
	router      EventRouter
	audit       *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, messageRepo repositories.GroupMessageRepository, router EventRouter, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		router:      router,
		audit:       audit,
	}
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		MemberIDs   []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupRepo.Create(c.Request.Context(), userID, req.Name, req.Description, req.MemberIDs)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.systemMessage(c, group.ID, userID, fmt.Sprintf("Group %q was created", group.Name))
	emitAudit(c, h.audit, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, err := h.groupRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup returns one group, member-only.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, _, ok := h.memberGroup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// UpdateGroupProfile handles PUT /groups/:group_id, admin-only.
func (h *GroupHandler) UpdateGroupProfile(c *gin.Context) {
	group, userID, ok := h.adminGroup(c)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ProfilePic  string `json:"profile_pic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		group.Name = req.Name
	}
	if req.Description != "" {
		group.Description = req.Description
	}
	if req.ProfilePic != "" {
		group.ProfilePic = req.ProfilePic
	}

	if err := h.groupRepo.UpdateProfile(c.Request.Context(), group.ID, group.Name, group.Description, group.ProfilePic); err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update group"})
		return
	}

	updated, err := h.groupRepo.Get(c.Request.Context(), group.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.systemMessage(c, group.ID, userID, "Group profile was updated")
	h.router.GroupUpdated(updated, models.GroupActionProfileUpdated)
	emitAudit(c, h.audit, "INFO", "Group profile updated")
	c.JSON(http.StatusOK, gin.H{"group": updated})
}

// AddMembers handles POST /groups/:group_id/members, admin-only.
func (h *GroupHandler) AddMembers(c *gin.Context) {
	group, userID, ok := h.adminGroup(c)
	if !ok {
		return
	}

	var req struct {
		MemberIDs []int `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.groupRepo.AddMembers(c.Request.Context(), group.ID, req.MemberIDs)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add members"})
		return
	}
	if len(added) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no new members to add"})
		return
	}

	updated, err := h.groupRepo.Get(c.Request.Context(), group.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.systemMessage(c, group.ID, userID, fmt.Sprintf("%d member(s) added to the group", len(added)))
	h.router.GroupUpdated(updated, models.GroupActionMembersAdded)
	emitAudit(c, h.audit, "INFO", "Group members added")
	c.JSON(http.StatusOK, gin.H{"group": updated})
}

// RemoveMember handles DELETE /groups/:group_id/members/:member_id,
// admin-only. The removed member is notified directly before the room
// subscription is dropped.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	group, userID, ok := h.adminGroup(c)
	if !ok {
		return
	}

	memberID, err := strconv.Atoi(c.Param("member_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}
	if memberID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin cannot remove themselves"})
		return
	}

	if err := h.groupRepo.RemoveMember(c.Request.Context(), group.ID, memberID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found in group"})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	updated, err := h.groupRepo.Get(c.Request.Context(), group.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.systemMessage(c, group.ID, userID, fmt.Sprintf("User %d was removed from the group", memberID))
	h.router.MemberRemoved(updated, memberID)
	emitAudit(c, h.audit, "INFO", "Group member removed")
	c.JSON(http.StatusOK, gin.H{"group": updated})
}

// LeaveGroup handles POST /groups/:group_id/leave. The admin cannot leave
// without transferring the role first.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	group, userID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	if group.AdminID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin cannot leave; transfer the admin role first"})
		return
	}

	if err := h.groupRepo.RemoveMember(c.Request.Context(), group.ID, userID); err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave group"})
		return
	}

	updated, err := h.groupRepo.Get(c.Request.Context(), group.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.systemMessage(c, group.ID, userID, fmt.Sprintf("User %d left the group", userID))
	h.router.GroupUpdated(updated, models.GroupActionMemberLeft)
	emitAudit(c, h.audit, "INFO", "Group left")
	c.JSON(http.StatusOK, gin.H{"message": "you have left the group"})
}

// TransferAdmin handles POST /groups/:group_id/transfer-admin. The demote
// and promote happen in one transaction so there is exactly one admin at
// every point.
func (h *GroupHandler) TransferAdmin(c *gin.Context) {
	group, userID, ok := h.adminGroup(c)
	if !ok {
		return
	}

	var req struct {
		NewAdminID int `json:"new_admin_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NewAdminID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you are already the admin"})
		return
	}

	member := false
	for _, m := range group.Members {
		if m.UserID == req.NewAdminID {
			member = true
			break
		}
	}
	if !member {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new admin must be a group member"})
		return
	}

	if err := h.groupRepo.TransferAdmin(c.Request.Context(), group.ID, userID, req.NewAdminID); err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not transfer admin role"})
		return
	}

	updated, err := h.groupRepo.Get(c.Request.Context(), group.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.systemMessage(c, group.ID, userID, fmt.Sprintf("Admin role transferred to user %d", req.NewAdminID))
	h.router.GroupUpdated(updated, models.GroupActionAdminTransferred)
	emitAudit(c, h.audit, "INFO", "Group admin transferred")
	c.JSON(http.StatusOK, gin.H{"group": updated})
}

// PostGroupMessage persists and fans out a group message.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	group, userID, ok := h.memberGroup(c)
	if !ok {
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

	msg, err := h.messageRepo.Create(c.Request.Context(), group.ID, userID, req.Text, req.Attachment)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.router.GroupMessageCreated(msg)
	emitAudit(c, h.audit, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, msg)
}

// GetGroupMessages returns paginated messages in the group, with read
// receipts attached.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	group, _, ok := h.memberGroup(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	msgs, err := h.messageRepo.List(c.Request.Context(), group.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	for i := range msgs {
		receipts, err := h.messageRepo.Receipts(c.Request.Context(), msgs[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load read receipts"})
			return
		}
		msgs[i].ReadBy = receipts
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// memberGroup loads the group and verifies the caller is a member.
func (h *GroupHandler) memberGroup(c *gin.Context) (models.Group, int, bool) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return models.Group{}, 0, false
	}
	userID := c.GetInt("userID")

	group, err := h.groupRepo.Get(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return models.Group{}, 0, false
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return models.Group{}, 0, false
	}

	for _, m := range group.Members {
		if m.UserID == userID {
			return group, userID, true
		}
	}
	emitAudit(c, h.audit, "ERROR", "not allowed")
	c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
	return models.Group{}, 0, false
}

// adminGroup loads the group and verifies the caller is its admin.
func (h *GroupHandler) adminGroup(c *gin.Context) (models.Group, int, bool) {
	group, userID, ok := h.memberGroup(c)
	if !ok {
		return models.Group{}, 0, false
	}
	if group.AdminID != userID {
		emitAudit(c, h.audit, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return models.Group{}, 0, false
	}
	return group, userID, true
}

func (h *GroupHandler) systemMessage(c *gin.Context, groupID, senderID int, text string) {
	if _, err := h.messageRepo.CreateSystem(c.Request.Context(), groupID, senderID, text); err != nil {
		emitAudit(c, h.audit, "ERROR", "system message failed")
	}
}
