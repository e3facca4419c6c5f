package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NZmikeyG/messaging-app/internal/auth"
	"github.com/NZmikeyG/messaging-app/internal/db"
	"github.com/NZmikeyG/messaging-app/internal/hub"
	"github.com/NZmikeyG/messaging-app/internal/model"
	"github.com/NZmikeyG/messaging-app/internal/service"
)

type fakeChatService struct {
	presence    map[string]hub.PresenceRecord
	typing      map[string][]string
	updateErr   error
	lastStatus  string
	readCreated bool
}

func (f *fakeChatService) GetPresence(_ context.Context, userID string) (hub.PresenceRecord, error) {
	rec, ok := f.presence[userID]
	if !ok {
		return hub.PresenceRecord{}, service.ErrPresenceNotFound
	}
	return rec, nil
}

func (f *fakeChatService) UpdatePresence(_ context.Context, userID, status string) (hub.PresenceRecord, error) {
	if f.updateErr != nil {
		return hub.PresenceRecord{}, f.updateErr
	}
	f.lastStatus = status
	return hub.PresenceRecord{UserID: userID, Online: true, Status: status, LastSeen: time.Now().UTC()}, nil
}

func (f *fakeChatService) ListTyping(channelID string) []string {
	return f.typing[channelID]
}

func (f *fakeChatService) GetRoomMessages(_ context.Context, _ string, _ int64) (*db.PaginatedResult[model.Message], error) {
	return &db.PaginatedResult[model.Message]{Page: 1, PageSize: 50}, nil
}

func (f *fakeChatService) MarkMessageRead(_ context.Context, _, _ string) (bool, error) {
	created := !f.readCreated
	f.readCreated = true
	return created, nil
}

func newTestRouter(svc service.ChatService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserID, userID)
	})
	router.GET("/api/presence/:userId", h.GetPresence)
	router.POST("/api/presence/update", h.UpdatePresence)
	router.GET("/api/channels/:channelId/typing", h.GetTypingUsers)
	router.GET("/api/channels/:channelId/messages", h.GetRoomMessages)
	router.POST("/api/messages/:messageId/read", h.MarkMessageRead)
	return router
}

func TestGetPresenceInvalidID(t *testing.T) {
	router := newTestRouter(&fakeChatService{}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/presence/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPresenceNotFound(t *testing.T) {
	router := newTestRouter(&fakeChatService{presence: map[string]hub.PresenceRecord{}}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/presence/"+uuid.New().String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPresenceOK(t *testing.T) {
	userID := uuid.New().String()
	svc := &fakeChatService{presence: map[string]hub.PresenceRecord{
		userID: {UserID: userID, Online: true, Status: model.StatusOnline},
	}}
	router := newTestRouter(svc, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/presence/"+userID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_online":true`)
}

func TestUpdatePresence(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(svc, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/presence/update",
		strings.NewReader(`{"status":"away"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "away", svc.lastStatus)
}

func TestUpdatePresenceInvalidStatus(t *testing.T) {
	svc := &fakeChatService{updateErr: service.ErrInvalidStatus}
	router := newTestRouter(svc, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/presence/update",
		strings.NewReader(`{"status":"invisible"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTypingUsers(t *testing.T) {
	channelID := uuid.New().String()
	svc := &fakeChatService{typing: map[string][]string{channelID: {"user-2"}}}
	router := newTestRouter(svc, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/channels/"+channelID+"/typing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user-2"`)
}

func TestMarkMessageReadReportsCreation(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(svc, "user-1")

	messageID := uuid.New().String()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages/"+messageID+"/read", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Second read of the same message is a no-op.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/messages/"+messageID+"/read", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := auth.NewManager(auth.Config{SecretKey: "test-secret", Issuer: "test"})

	router := gin.New()
	router.GET("/protected", RequireAuth(manager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID)})
	})

	// No header
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Bad token
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token
	token, err := manager.Issue("user-9", "carol")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-9")
}
