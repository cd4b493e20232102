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

func TestMarkReadFirstTimePushesEvent(t *testing.T) {
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	router := new(mocks.RouterMock)
	h := NewReadReceiptHandler(msgRepo, groupRepo, router, nil)

	receipts := []models.ReadReceipt{{MessageID: 8, UserID: 2}}
	msgRepo.On("Get", mock.Anything, 8).Return(models.GroupMessage{ID: 8, GroupID: 10}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 10, 2).Return(true, nil).Once()
	msgRepo.On("MarkRead", mock.Anything, 8, 2).Return(true, nil).Once()
	msgRepo.On("Receipts", mock.Anything, 8).Return(receipts, nil).Once()
	router.On("MessageRead", 10, models.MessageReadPayload{MessageID: 8, ReadBy: receipts, ReadByUser: 2}).Once()

	r := newTestEngine(2)
	r.POST("/read-receipts/:message_id", h.MarkRead)

	req := httptest.NewRequest(http.MethodPost, "/read-receipts/8", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	router.AssertExpectations(t)
}

func TestMarkReadSecondTimeIsQuiet(t *testing.T) {
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	router := new(mocks.RouterMock)
	h := NewReadReceiptHandler(msgRepo, groupRepo, router, nil)

	msgRepo.On("Get", mock.Anything, 8).Return(models.GroupMessage{ID: 8, GroupID: 10}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 10, 2).Return(true, nil).Once()
	msgRepo.On("MarkRead", mock.Anything, 8, 2).Return(false, nil).Once()

	r := newTestEngine(2)
	r.POST("/read-receipts/:message_id", h.MarkRead)

	req := httptest.NewRequest(http.MethodPost, "/read-receipts/8", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	router.AssertNotCalled(t, "MessageRead", mock.Anything, mock.Anything)
}

func TestMarkReadRequiresMembership(t *testing.T) {
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	h := NewReadReceiptHandler(msgRepo, groupRepo, new(mocks.RouterMock), nil)

	msgRepo.On("Get", mock.Anything, 8).Return(models.GroupMessage{ID: 8, GroupID: 10}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 10, 9).Return(false, nil).Once()

	r := newTestEngine(9)
	r.POST("/read-receipts/:message_id", h.MarkRead)

	req := httptest.NewRequest(http.MethodPost, "/read-receipts/8", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMarkManyReadCountsNewReceipts(t *testing.T) {
	msgRepo := new(mocks.GroupMessageRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	router := new(mocks.RouterMock)
	h := NewReadReceiptHandler(msgRepo, groupRepo, router, nil)

	msgRepo.On("Get", mock.Anything, 8).Return(models.GroupMessage{ID: 8, GroupID: 10}, nil).Once()
	msgRepo.On("Get", mock.Anything, 9).Return(models.GroupMessage{ID: 9, GroupID: 10}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 10, 2).Return(true, nil).Twice()
	msgRepo.On("MarkRead", mock.Anything, 8, 2).Return(true, nil).Once()
	msgRepo.On("MarkRead", mock.Anything, 9, 2).Return(false, nil).Once()
	msgRepo.On("Receipts", mock.Anything, 8).Return([]models.ReadReceipt{{MessageID: 8, UserID: 2}}, nil).Once()
	router.On("MessageRead", 10, mock.Anything).Once()

	r := newTestEngine(2)
	r.POST("/read-receipts/bulk", h.MarkManyRead)

	req := httptest.NewRequest(http.MethodPost, "/read-receipts/bulk", jsonBody(t, gin.H{"message_ids": []int{8, 9}}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"marked": 1}`, w.Body.String())
	router.AssertExpectations(t)
}
