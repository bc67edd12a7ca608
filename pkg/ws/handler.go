package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Room membership is governed by session tokens, not origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades GET /ws and registers the connection with the hub.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := &Client{
			ID:   uuid.NewString(),
			conn: conn,
			send: make(chan Envelope, 64),
			hub:  hub,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
