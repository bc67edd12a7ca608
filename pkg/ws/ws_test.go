package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu       sync.Mutex
	incoming []IncomingMessage
	gone     []string
}

func (c *capture) onIncoming(msg IncomingMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incoming = append(c.incoming, msg)
}

func (c *capture) onDisconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gone = append(c.gone, connID)
}

func (c *capture) messages() []IncomingMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]IncomingMessage{}, c.incoming...)
}

func (c *capture) disconnected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.gone...)
}

func startTestServer(t *testing.T) (*Hub, *capture, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil)
	cap := &capture{}
	hub.OnIncoming = cap.onIncoming
	hub.OnDisconnect = cap.onDisconnect
	go hub.Run()
	t.Cleanup(hub.Close)

	router := gin.New()
	router.GET("/ws", ServeWS(hub))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return hub, cap, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubReceivesClientFrames(t *testing.T) {
	_, cap, url := startTestServer(t)
	conn := dial(t, url)

	err := conn.WriteJSON(map[string]interface{}{
		"event": "chat-message",
		"data":  map[string]string{"message": "hi"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(cap.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	msg := cap.messages()[0]
	require.Equal(t, "chat-message", msg.Event)
	require.NotEmpty(t, msg.From, "read pump must stamp the connection id")

	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	require.Equal(t, "hi", payload.Message)
}

func TestHubSendReachesOneClient(t *testing.T) {
	hub, cap, url := startTestServer(t)
	conn1 := dial(t, url)
	conn2 := dial(t, url)

	// Learn each connection's id by having it speak first.
	require.NoError(t, conn1.WriteJSON(map[string]string{"event": "one"}))
	require.NoError(t, conn2.WriteJSON(map[string]string{"event": "two"}))
	require.Eventually(t, func() bool {
		return len(cap.messages()) == 2
	}, time.Second, 5*time.Millisecond)

	var id1 string
	for _, m := range cap.messages() {
		if m.Event == "one" {
			id1 = m.From
		}
	}
	require.NotEmpty(t, id1)

	hub.Send(id1, "notification", map[string]string{"message": "private"})

	var env Envelope
	conn1.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn1.ReadJSON(&env))
	require.Equal(t, "notification", env.Event)
}

func TestHubBroadcastReachesListedClients(t *testing.T) {
	hub, cap, url := startTestServer(t)
	conn1 := dial(t, url)
	conn2 := dial(t, url)

	require.NoError(t, conn1.WriteJSON(map[string]string{"event": "one"}))
	require.NoError(t, conn2.WriteJSON(map[string]string{"event": "two"}))
	require.Eventually(t, func() bool {
		return len(cap.messages()) == 2
	}, time.Second, 5*time.Millisecond)

	ids := make([]string, 0, 2)
	for _, m := range cap.messages() {
		ids = append(ids, m.From)
	}
	hub.Broadcast(ids, "room-state", map[string]int{"pot": 40})

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		var env Envelope
		conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, conn.ReadJSON(&env))
		require.Equal(t, "room-state", env.Event)
	}
}

func TestHubReportsDisconnect(t *testing.T) {
	_, cap, url := startTestServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"event": "hello"}))
	require.Eventually(t, func() bool {
		return len(cap.messages()) == 1
	}, time.Second, 5*time.Millisecond)
	id := cap.messages()[0].From

	conn.Close()

	require.Eventually(t, func() bool {
		gone := cap.disconnected()
		return len(gone) == 1 && gone[0] == id
	}, time.Second, 5*time.Millisecond)
}

func TestHubCloseClientDropsConnection(t *testing.T) {
	hub, cap, url := startTestServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"event": "hello"}))
	require.Eventually(t, func() bool {
		return len(cap.messages()) == 1
	}, time.Second, 5*time.Millisecond)
	id := cap.messages()[0].From

	hub.CloseClient(id)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
