package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"pokerroom/pkg/ws"
)

// Registry owns every live room and routes connections to them. It is
// explicit state handed to its callers, not a package singleton.
type Registry struct {
	mu    sync.RWMutex
	log   slog.Logger
	bc    Broadcaster
	cfg   RoomConfig
	rooms map[string]*Room
	conns map[string]*Room // conn id -> joined room
}

// NewRegistry creates a registry whose rooms share the given broadcaster
// and base config.
func NewRegistry(log slog.Logger, bc Broadcaster, cfg RoomConfig) *Registry {
	if log == nil {
		log = slog.Disabled
	}
	return &Registry{
		log:   log,
		bc:    bc,
		cfg:   cfg,
		rooms: make(map[string]*Room),
		conns: make(map[string]*Room),
	}
}

// CreateRoom validates settings and spins up a room.
func (g *Registry) CreateRoom(settings Settings) (*Room, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()

	cfg := g.cfg
	cfg.Log = g.log
	cfg.OnEmpty = func(roomID string) { go g.Remove(roomID) }

	room := NewRoom(id, settings, g.bc, cfg)
	g.mu.Lock()
	g.rooms[id] = room
	g.mu.Unlock()
	g.log.Infof("room %s created", id)
	return room, nil
}

// Room looks up a live room.
func (g *Registry) Room(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[id]
	return room, ok
}

// Remove drops a room from the registry and stops it.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	room, ok := g.rooms[id]
	if ok {
		delete(g.rooms, id)
		for connID, r := range g.conns {
			if r == room {
				delete(g.conns, connID)
			}
		}
	}
	g.mu.Unlock()
	if ok {
		room.Close()
		g.log.Infof("room %s removed", id)
	}
}

// HandleIncoming routes one inbound frame: join-room picks the room and
// binds the connection, everything else goes to the bound room.
func (g *Registry) HandleIncoming(msg ws.IncomingMessage) {
	if msg.Event == "join-room" {
		g.handleJoin(msg)
		return
	}

	g.mu.RLock()
	room, ok := g.conns[msg.From]
	g.mu.RUnlock()
	if !ok {
		g.bc.Send(msg.From, "error", ErrorEvent{Message: "join a room first"})
		return
	}
	room.HandleCommand(msg.From, msg.Event, msg.Data)
}

func (g *Registry) handleJoin(msg ws.IncomingMessage) {
	var cmd JoinRoomCmd
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			g.bc.Send(msg.From, "error", ErrorEvent{Message: fmt.Sprintf("decoding join-room: %v", err)})
			return
		}
	}

	room, ok := g.Room(cmd.RoomID)
	if !ok {
		g.bc.Send(msg.From, "error", ErrorEvent{Message: "room not found"})
		return
	}

	g.mu.Lock()
	g.conns[msg.From] = room
	g.mu.Unlock()
	room.Join(msg.From, cmd)
}

// HandleDisconnect tells the bound room the connection is gone.
func (g *Registry) HandleDisconnect(connID string) {
	g.mu.Lock()
	room, ok := g.conns[connID]
	delete(g.conns, connID)
	g.mu.Unlock()
	if ok {
		room.HandleDisconnect(connID)
	}
}

// RoomCount reports the number of live rooms.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Close stops every room.
func (g *Registry) Close() {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.rooms = make(map[string]*Room)
	g.conns = make(map[string]*Room)
	g.mu.Unlock()
	for _, room := range rooms {
		room.Close()
	}
}
