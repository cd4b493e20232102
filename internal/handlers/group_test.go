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
)

func testGroup() models.Group {
	return models.Group{
		ID:      10,
		Name:    "team",
		AdminID: 1,
		Members: []models.GroupMember{
			{GroupID: 10, UserID: 1, Role: models.RoleAdmin},
			{GroupID: 10, UserID: 2, Role: models.RoleMember},
			{GroupID: 10, UserID: 3, Role: models.RoleMember},
		},
	}
}

func TestCreateGroupWritesSystemMessage(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	h := NewGroupHandler(groupRepo, msgRepo, new(mocks.RouterMock), nil)

	group := testGroup()
	groupRepo.On("Create", mock.Anything, 1, "team", "", []int{2, 3}).Return(group, nil).Once()
	msgRepo.On("CreateSystem", mock.Anything, 10, 1, mock.Anything).Return(models.GroupMessage{}, nil).Once()

	r := newTestEngine(1)
	r.POST("/groups", h.CreateGroup)

	req := httptest.NewRequest(http.MethodPost, "/groups", jsonBody(t, gin.H{"name": "team", "member_ids": []int{2, 3}}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	groupRepo.AssertExpectations(t)
	msgRepo.AssertExpectations(t)
}

func TestAddMembersRequiresAdmin(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	h := NewGroupHandler(groupRepo, new(mocks.GroupMessageRepositoryMock), new(mocks.RouterMock), nil)

	groupRepo.On("Get", mock.Anything, 10).Return(testGroup(), nil).Once()

	r := newTestEngine(2)
	r.POST("/groups/:group_id/members", h.AddMembers)

	req := httptest.NewRequest(http.MethodPost, "/groups/10/members", jsonBody(t, gin.H{"member_ids": []int{4}}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRemoveMemberNotifiesRouter(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	router := new(mocks.RouterMock)
	h := NewGroupHandler(groupRepo, msgRepo, router, nil)

	group := testGroup()
	updated := group
	updated.Members = group.Members[:2]

	groupRepo.On("Get", mock.Anything, 10).Return(group, nil).Once()
	groupRepo.On("RemoveMember", mock.Anything, 10, 3).Return(nil).Once()
	groupRepo.On("Get", mock.Anything, 10).Return(updated, nil).Once()
	msgRepo.On("CreateSystem", mock.Anything, 10, 1, mock.Anything).Return(models.GroupMessage{}, nil).Once()
	router.On("MemberRemoved", updated, 3).Once()

	r := newTestEngine(1)
	r.DELETE("/groups/:group_id/members/:member_id", h.RemoveMember)

	req := httptest.NewRequest(http.MethodDelete, "/groups/10/members/3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	groupRepo.AssertExpectations(t)
	router.AssertExpectations(t)
}

func TestRemoveMemberSelfRejected(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	h := NewGroupHandler(groupRepo, new(mocks.GroupMessageRepositoryMock), new(mocks.RouterMock), nil)

	groupRepo.On("Get", mock.Anything, 10).Return(testGroup(), nil).Once()

	r := newTestEngine(1)
	r.DELETE("/groups/:group_id/members/:member_id", h.RemoveMember)

	req := httptest.NewRequest(http.MethodDelete, "/groups/10/members/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaveGroupBlocksAdmin(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	h := NewGroupHandler(groupRepo, new(mocks.GroupMessageRepositoryMock), new(mocks.RouterMock), nil)

	groupRepo.On("Get", mock.Anything, 10).Return(testGroup(), nil).Once()

	r := newTestEngine(1)
	r.POST("/groups/:group_id/leave", h.LeaveGroup)

	req := httptest.NewRequest(http.MethodPost, "/groups/10/leave", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferAdminRejectsNonMember(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	h := NewGroupHandler(groupRepo, new(mocks.GroupMessageRepositoryMock), new(mocks.RouterMock), nil)

	groupRepo.On("Get", mock.Anything, 10).Return(testGroup(), nil).Once()

	r := newTestEngine(1)
	r.POST("/groups/:group_id/transfer-admin", h.TransferAdmin)

	req := httptest.NewRequest(http.MethodPost, "/groups/10/transfer-admin", jsonBody(t, gin.H{"new_admin_id": 99}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferAdminSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	router := new(mocks.RouterMock)
	h := NewGroupHandler(groupRepo, msgRepo, router, nil)

	group := testGroup()
	updated := group
	updated.AdminID = 2

	groupRepo.On("Get", mock.Anything, 10).Return(group, nil).Once()
	groupRepo.On("TransferAdmin", mock.Anything, 10, 1, 2).Return(nil).Once()
	groupRepo.On("Get", mock.Anything, 10).Return(updated, nil).Once()
	msgRepo.On("CreateSystem", mock.Anything, 10, 1, mock.Anything).Return(models.GroupMessage{}, nil).Once()
	router.On("GroupUpdated", updated, models.GroupActionAdminTransferred).Once()

	r := newTestEngine(1)
	r.POST("/groups/:group_id/transfer-admin", h.TransferAdmin)

	req := httptest.NewRequest(http.MethodPost, "/groups/10/transfer-admin", jsonBody(t, gin.H{"new_admin_id": 2}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	groupRepo.AssertExpectations(t)
	router.AssertExpectations(t)
}

func TestPostGroupMessageRequiresMembership(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	h := NewGroupHandler(groupRepo, new(mocks.GroupMessageRepositoryMock), new(mocks.RouterMock), nil)

	groupRepo.On("Get", mock.Anything, 10).Return(testGroup(), nil).Once()

	r := newTestEngine(99)
	r.POST("/groups/:group_id/messages", h.PostGroupMessage)

	req := httptest.NewRequest(http.MethodPost, "/groups/10/messages", jsonBody(t, gin.H{"text": "hi"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPostGroupMessageRoutes(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	router := new(mocks.RouterMock)
	h := NewGroupHandler(groupRepo, msgRepo, router, nil)

	msg := models.GroupMessage{ID: 42, GroupID: 10, SenderID: 2, Text: "hi", MessageType: models.MessageKindText}
	groupRepo.On("Get", mock.Anything, 10).Return(testGroup(), nil).Once()
	msgRepo.On("Create", mock.Anything, 10, 2, "hi", (*models.Attachment)(nil)).Return(msg, nil).Once()
	router.On("GroupMessageCreated", msg).Once()

	r := newTestEngine(2)
	r.POST("/groups/:group_id/messages", h.PostGroupMessage)

	req := httptest.NewRequest(http.MethodPost, "/groups/10/messages", jsonBody(t, gin.H{"text": "hi"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	msgRepo.AssertExpectations(t)
	router.AssertExpectations(t)
}
