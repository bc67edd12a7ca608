package ws

import (
	"sync"

	"github.com/decred/slog"
)

// Hub owns every websocket client and serializes fan-out. It holds no
// game state; inbound frames are handed to OnIncoming and disconnects to
// OnDisconnect, both called from the hub goroutine.
type Hub struct {
	log        slog.Logger
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastReq
	sendOne    chan sendReq
	closeConn  chan string
	incoming   chan IncomingMessage
	quit       chan struct{}
	once       sync.Once

	OnIncoming   func(IncomingMessage)
	OnDisconnect func(connID string)
}

type broadcastReq struct {
	conns []string
	msg   Envelope
}

type sendReq struct {
	conn string
	msg  Envelope
}

// NewHub creates a hub. Run must be started before any client connects.
func NewHub(log slog.Logger) *Hub {
	if log == nil {
		log = slog.Disabled
	}
	return &Hub{
		log:        log,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastReq),
		sendOne:    make(chan sendReq),
		closeConn:  make(chan string),
		incoming:   make(chan IncomingMessage),
		quit:       make(chan struct{}),
	}
}

// Run drains the hub channels until Close.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c.ID] = c
			h.log.Debugf("client %s connected (%d total)", c.ID, len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c.ID]; ok {
				delete(h.clients, c.ID)
				close(c.send)
				h.log.Debugf("client %s disconnected (%d total)", c.ID, len(h.clients))
				if h.OnDisconnect != nil {
					h.OnDisconnect(c.ID)
				}
			}

		case req := <-h.broadcast:
			for _, id := range req.conns {
				h.deliver(id, req.msg)
			}

		case req := <-h.sendOne:
			h.deliver(req.conn, req.msg)

		case id := <-h.closeConn:
			if c, ok := h.clients[id]; ok {
				delete(h.clients, id)
				close(c.send)
				h.log.Debugf("client %s closed by server", id)
			}

		case msg := <-h.incoming:
			if h.OnIncoming != nil {
				h.OnIncoming(msg)
			}

		case <-h.quit:
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			return
		}
	}
}

// deliver drops the frame rather than blocking the hub on a slow client.
func (h *Hub) deliver(connID string, msg Envelope) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.log.Warnf("client %s send queue full, dropping %s", connID, msg.Event)
	}
}

// Send queues an event for a single connection.
func (h *Hub) Send(connID, event string, data interface{}) {
	select {
	case h.sendOne <- sendReq{conn: connID, msg: Envelope{Event: event, Data: data}}:
	case <-h.quit:
	}
}

// Broadcast queues an event for every listed connection.
func (h *Hub) Broadcast(connIDs []string, event string, data interface{}) {
	select {
	case h.broadcast <- broadcastReq{conns: connIDs, msg: Envelope{Event: event, Data: data}}:
	case <-h.quit:
	}
}

// CloseClient force-closes a connection, used when a newer session
// supersedes it.
func (h *Hub) CloseClient(connID string) {
	select {
	case h.closeConn <- connID:
	case <-h.quit:
	}
}

// Close shuts down the hub and every client.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.quit) })
}
