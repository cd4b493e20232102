package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, senderID, receiverID int, text string, att *models.Attachment) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, text, att)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversation(ctx context.Context, userID, otherID, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, userID, otherID, limit, offset)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) Create(ctx context.Context, adminID int, name, description string, memberIDs []int) (models.Group, error) {
	args := m.Called(ctx, adminID, name, description, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) Get(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var list []models.Group
	if val := args.Get(0); val != nil {
		list = val.([]models.Group)
	}
	return list, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) AddMembers(ctx context.Context, groupID int, memberIDs []int) ([]int, error) {
	args := m.Called(ctx, groupID, memberIDs)
	var added []int
	if val := args.Get(0); val != nil {
		added = val.([]int)
	}
	return added, args.Error(1)
}

func (m *GroupRepositoryMock) RemoveMember(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) UpdateProfile(ctx context.Context, groupID int, name, description, profilePic string) error {
	args := m.Called(ctx, groupID, name, description, profilePic)
	return args.Error(0)
}

func (m *GroupRepositoryMock) TransferAdmin(ctx context.Context, groupID, oldAdminID, newAdminID int) error {
	args := m.Called(ctx, groupID, oldAdminID, newAdminID)
	return args.Error(0)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) Create(ctx context.Context, groupID, senderID int, text string, att *models.Attachment) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, senderID, text, att)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) CreateSystem(ctx context.Context, groupID, senderID int, text string) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, senderID, text)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) List(ctx context.Context, groupID, limit, offset int) ([]models.GroupMessage, error) {
	args := m.Called(ctx, groupID, limit, offset)
	var list []models.GroupMessage
	if val := args.Get(0); val != nil {
		list = val.([]models.GroupMessage)
	}
	return list, args.Error(1)
}

func (m *GroupMessageRepositoryMock) Get(ctx context.Context, messageID int) (models.GroupMessage, error) {
	args := m.Called(ctx, messageID)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) MarkRead(ctx context.Context, messageID, userID int) (bool, error) {
	args := m.Called(ctx, messageID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupMessageRepositoryMock) Receipts(ctx context.Context, messageID int) ([]models.ReadReceipt, error) {
	args := m.Called(ctx, messageID)
	var receipts []models.ReadReceipt
	if val := args.Get(0); val != nil {
		receipts = val.([]models.ReadReceipt)
	}
	return receipts, args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) Add(ctx context.Context, messageID int, messageType string, userID int, emoji string) (models.Reaction, error) {
	args := m.Called(ctx, messageID, messageType, userID, emoji)
	var reaction models.Reaction
	if val := args.Get(0); val != nil {
		reaction = val.(models.Reaction)
	}
	return reaction, args.Error(1)
}

func (m *ReactionRepositoryMock) Remove(ctx context.Context, reactionID, userID int) (models.Reaction, error) {
	args := m.Called(ctx, reactionID, userID)
	var reaction models.Reaction
	if val := args.Get(0); val != nil {
		reaction = val.(models.Reaction)
	}
	return reaction, args.Error(1)
}

func (m *ReactionRepositoryMock) RemoveByKey(ctx context.Context, messageID int, messageType string, userID int, emoji string) (models.Reaction, error) {
	args := m.Called(ctx, messageID, messageType, userID, emoji)
	var reaction models.Reaction
	if val := args.Get(0); val != nil {
		reaction = val.(models.Reaction)
	}
	return reaction, args.Error(1)
}

func (m *ReactionRepositoryMock) ListForMessage(ctx context.Context, messageID int, messageType string) ([]models.Reaction, error) {
	args := m.Called(ctx, messageID, messageType)
	var list []models.Reaction
	if val := args.Get(0); val != nil {
		list = val.([]models.Reaction)
	}
	return list, args.Error(1)
}

func (m *ReactionRepositoryMock) BulkMaps(ctx context.Context, messageIDs []int, messageType string) (map[int]models.ReactionMap, error) {
	args := m.Called(ctx, messageIDs, messageType)
	var maps map[int]models.ReactionMap
	if val := args.Get(0); val != nil {
		maps = val.(map[int]models.ReactionMap)
	}
	return maps, args.Error(1)
}

type RouterMock struct {
	mock.Mock
}

func (m *RouterMock) MessageCreated(msg models.Message) {
	m.Called(msg)
}

func (m *RouterMock) GroupMessageCreated(msg models.GroupMessage) {
	m.Called(msg)
}

func (m *RouterMock) PrivateReactionAdded(reaction models.Reaction, reactorID, counterpartID int) {
	m.Called(reaction, reactorID, counterpartID)
}

func (m *RouterMock) GroupReactionAdded(reaction models.Reaction, groupID int) {
	m.Called(reaction, groupID)
}

func (m *RouterMock) PrivateReactionRemoved(messageID, userID int, emoji string, reactorID, counterpartID int) {
	m.Called(messageID, userID, emoji, reactorID, counterpartID)
}

func (m *RouterMock) GroupReactionRemoved(messageID, userID int, emoji string, groupID int) {
	m.Called(messageID, userID, emoji, groupID)
}

func (m *RouterMock) GroupUpdated(group models.Group, action string) {
	m.Called(group, action)
}

func (m *RouterMock) MemberRemoved(group models.Group, removedUserID int) {
	m.Called(group, removedUserID)
}

func (m *RouterMock) MessageRead(groupID int, payload models.MessageReadPayload) {
	m.Called(groupID, payload)
}

type DelivererMock struct {
	mock.Mock
}

func (m *DelivererMock) BroadcastRoom(roomID int, exceptUserID int, event models.SocketEvent) {
	m.Called(roomID, exceptUserID, event)
}

func (m *DelivererMock) SendToConn(connID string, event models.SocketEvent) bool {
	args := m.Called(connID, event)
	return args.Bool(0)
}

func (m *DelivererMock) LeaveUser(roomID int, userID int) {
	m.Called(roomID, userID)
}

type PresenceMock struct {
	mock.Mock
}

func (m *PresenceMock) Lookup(userID int) (string, bool) {
	args := m.Called(userID)
	return args.String(0), args.Bool(1)
}

var (
	_ repositories.MessageRepository      = (*MessageRepositoryMock)(nil)
	_ repositories.GroupRepository        = (*GroupRepositoryMock)(nil)
	_ repositories.GroupMessageRepository = (*GroupMessageRepositoryMock)(nil)
	_ repositories.ReactionRepository     = (*ReactionRepositoryMock)(nil)
)
