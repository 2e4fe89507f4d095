package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/models"
)

func newTestHub() (*Hub, *middleware.JWTAuth) {
	auth := middleware.NewJWTAuth("ws-secret")
	logger := zerolog.Nop()
	return NewHub(nil, auth, &logger), auth
}

func TestHandleWebSocket_RejectsBadTokens(t *testing.T) {
	hub, _ := newTestHub()

	for _, target := range []string{"/ws", "/ws?token=garbage"} {
		rec := httptest.NewRecorder()
		hub.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestHub_DeliversToConnectedUser(t *testing.T) {
	hub, auth := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	userID := uuid.New()
	token, err := auth.GenerateAccessToken(userID, models.RoleStudent)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected(userID) == 1 }, time.Second, 10*time.Millisecond)

	hub.SendToUser(userID, models.WSMessage{Type: models.WSTypeAlert, Payload: models.AlertEvent{Message: "take a break"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"alert"`)
	assert.Contains(t, string(data), "take a break")

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connected(userID) == 0 }, time.Second, 10*time.Millisecond)
}
