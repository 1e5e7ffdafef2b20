package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/campusfix/internal/entity"
	notifService "anoa.com/campusfix/internal/modules/notification/service"
	"anoa.com/campusfix/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(h *NotificationHandler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	})
	r.GET("/notifications", h.GetNotifications)
	r.GET("/notifications/unread-count", h.UnreadCount)
	r.PUT("/notifications/:id/read", h.MarkAsRead)
	r.GET("/notifications/ws", h.HandleWebSocket)
	return r
}

func TestWebSocketStream(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := notifService.NewNotificationService(testutil.NewNotificationRepo(), rdb)
	userID := uuid.New()
	srv := httptest.NewServer(newRouter(NewNotificationHandler(svc, rdb, nil), userID))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notifications/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, svc.CreateNotification(context.Background(), &entity.Notification{
		UserID:  userID,
		Type:    entity.NotificationStatusChanged,
		Title:   "Issue status updated",
		Message: "Your report is now work done.",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got entity.Notification
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "Issue status updated", got.Title)
	assert.Equal(t, userID, got.UserID)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := notifService.NewNotificationService(testutil.NewNotificationRepo(), rdb)
	h := NewNotificationHandler(svc, rdb, []string{"https://campus.example"})
	srv := httptest.NewServer(newRouter(h, uuid.New()))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notifications/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketWithoutRedis(t *testing.T) {
	svc := notifService.NewNotificationService(testutil.NewNotificationRepo(), nil)
	router := newRouter(NewNotificationHandler(svc, nil, nil), uuid.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInboxEndpoints(t *testing.T) {
	repo := testutil.NewNotificationRepo()
	svc := notifService.NewNotificationService(repo, nil)
	userID := uuid.New()
	router := newRouter(NewNotificationHandler(svc, nil, nil), userID)

	n := &entity.Notification{UserID: userID, Type: entity.NotificationStatusChanged, Title: "hello"}
	require.NoError(t, svc.CreateNotification(context.Background(), n))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/"+n.ID.String()+"/read", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/"+uuid.NewString()+"/read", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
