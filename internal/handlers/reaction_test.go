package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type reactionFixture struct {
	reactionRepo *mocks.ReactionRepositoryMock
	messageRepo  *mocks.MessageRepositoryMock
	groupMsgRepo *mocks.GroupMessageRepositoryMock
	groupRepo    *mocks.GroupRepositoryMock
	router       *mocks.RouterMock
	handler      *ReactionHandler
}

func newReactionFixture() *reactionFixture {
	f := &reactionFixture{
		reactionRepo: new(mocks.ReactionRepositoryMock),
		messageRepo:  new(mocks.MessageRepositoryMock),
		groupMsgRepo: new(mocks.GroupMessageRepositoryMock),
		groupRepo:    new(mocks.GroupRepositoryMock),
		router:       new(mocks.RouterMock),
	}
	f.handler = NewReactionHandler(f.reactionRepo, f.messageRepo, f.groupMsgRepo, f.groupRepo, f.router, nil)
	return f
}

func TestAddPrivateReactionRoutesToCounterpart(t *testing.T) {
	f := newReactionFixture()

	msgID := 5
	reaction := models.Reaction{ID: 1, MessageID: &msgID, UserID: 1, Emoji: "👍", MessageType: models.MessageTypePrivate}
	f.messageRepo.On("Get", mock.Anything, 5).Return(models.Message{ID: 5, SenderID: 2, ReceiverID: 1}, nil).Once()
	f.reactionRepo.On("Add", mock.Anything, 5, models.MessageTypePrivate, 1, "👍").Return(reaction, nil).Once()
	f.router.On("PrivateReactionAdded", reaction, 1, 2).Once()

	r := newTestEngine(1)
	r.POST("/reactions", f.handler.AddReaction)

	req := httptest.NewRequest(http.MethodPost, "/reactions",
		jsonBody(t, gin.H{"message_id": 5, "message_type": "private", "emoji": "👍"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	f.router.AssertExpectations(t)
}

func TestAddReactionDuplicateConflict(t *testing.T) {
	f := newReactionFixture()

	f.messageRepo.On("Get", mock.Anything, 5).Return(models.Message{ID: 5, SenderID: 1, ReceiverID: 2}, nil).Once()
	f.reactionRepo.On("Add", mock.Anything, 5, models.MessageTypePrivate, 1, "👍").
		Return(models.Reaction{}, repositories.ErrDuplicateReaction).Once()

	r := newTestEngine(1)
	r.POST("/reactions", f.handler.AddReaction)

	req := httptest.NewRequest(http.MethodPost, "/reactions",
		jsonBody(t, gin.H{"message_id": 5, "message_type": "private", "emoji": "👍"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	f.router.AssertNotCalled(t, "PrivateReactionAdded", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddGroupReactionRequiresMembership(t *testing.T) {
	f := newReactionFixture()

	f.groupMsgRepo.On("Get", mock.Anything, 8).Return(models.GroupMessage{ID: 8, GroupID: 10}, nil).Once()
	f.groupRepo.On("IsMember", mock.Anything, 10, 1).Return(false, nil).Once()

	r := newTestEngine(1)
	r.POST("/reactions", f.handler.AddReaction)

	req := httptest.NewRequest(http.MethodPost, "/reactions",
		jsonBody(t, gin.H{"message_id": 8, "message_type": "group", "emoji": "🎉"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddGroupReactionRoutesToRoom(t *testing.T) {
	f := newReactionFixture()

	msgID := 8
	reaction := models.Reaction{ID: 2, GroupMessageID: &msgID, UserID: 1, Emoji: "🎉", MessageType: models.MessageTypeGroup}
	f.groupMsgRepo.On("Get", mock.Anything, 8).Return(models.GroupMessage{ID: 8, GroupID: 10}, nil).Once()
	f.groupRepo.On("IsMember", mock.Anything, 10, 1).Return(true, nil).Once()
	f.reactionRepo.On("Add", mock.Anything, 8, models.MessageTypeGroup, 1, "🎉").Return(reaction, nil).Once()
	f.router.On("GroupReactionAdded", reaction, 10).Once()

	r := newTestEngine(1)
	r.POST("/reactions", f.handler.AddReaction)

	req := httptest.NewRequest(http.MethodPost, "/reactions",
		jsonBody(t, gin.H{"message_id": 8, "message_type": "group", "emoji": "🎉"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	f.router.AssertExpectations(t)
}

func TestRemoveReactionByKey(t *testing.T) {
	f := newReactionFixture()

	msgID := 5
	reaction := models.Reaction{ID: 1, MessageID: &msgID, UserID: 1, Emoji: "👍", MessageType: models.MessageTypePrivate}
	f.reactionRepo.On("RemoveByKey", mock.Anything, 5, models.MessageTypePrivate, 1, "👍").Return(reaction, nil).Once()
	f.messageRepo.On("Get", mock.Anything, 5).Return(models.Message{ID: 5, SenderID: 1, ReceiverID: 2}, nil).Once()
	f.router.On("PrivateReactionRemoved", 5, 1, "👍", 1, 2).Once()

	r := newTestEngine(1)
	r.POST("/reactions/remove", f.handler.RemoveReactionByKey)

	req := httptest.NewRequest(http.MethodPost, "/reactions/remove",
		jsonBody(t, gin.H{"message_id": 5, "message_type": "private", "emoji": "👍"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	f.router.AssertExpectations(t)
}

func TestRemoveReactionMissing(t *testing.T) {
	f := newReactionFixture()

	f.reactionRepo.On("Remove", mock.Anything, 44, 1).
		Return(models.Reaction{}, repositories.ErrReactionNotFound).Once()

	r := newTestEngine(1)
	r.DELETE("/reactions/:reaction_id", f.handler.RemoveReaction)

	req := httptest.NewRequest(http.MethodDelete, "/reactions/44", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkReactions(t *testing.T) {
	f := newReactionFixture()

	maps := map[int]models.ReactionMap{
		5: {"👍": []int{1, 2}},
		6: {"🎉": []int{2}},
	}
	f.reactionRepo.On("BulkMaps", mock.Anything, []int{5, 6, 7}, models.MessageTypeGroup).Return(maps, nil).Once()

	r := newTestEngine(1)
	r.POST("/reactions/bulk", f.handler.BulkReactions)

	req := httptest.NewRequest(http.MethodPost, "/reactions/bulk",
		jsonBody(t, gin.H{"message_ids": []int{5, 6, 7}, "message_type": "group"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	f.reactionRepo.AssertExpectations(t)
}
