// ABOUTME: Room membership and event broadcast for connected clients
// ABOUTME: Per-member buffered channels; sends never block a slow consumer

package room

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrNotInRoom is returned when an operation requires membership the
// connection does not have.
var ErrNotInRoom = errors.New("connection is not in a room")

// subscriberBuffer is the per-member event channel depth. A member that
// falls this far behind starts losing events rather than stalling the room.
const subscriberBuffer = 32

// Member identifies one room member.
type Member struct {
	ConnID string
	UserID string
}

type subscriber struct {
	member Member
	events chan any
}

// Coordinator tracks which connection is in which room and fans events out
// to members. A connection is in at most one room; joining another room
// implicitly leaves the current one.
//
// Broadcasts for a room are serialized under the coordinator's lock, so all
// members observe events in the order they were committed.
type Coordinator struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*subscriber // roomID -> connID -> subscriber
	byConn map[string]string                 // connID -> roomID
	logger *slog.Logger
}

// NewCoordinator creates an empty Coordinator. Pass nil logger for default.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		rooms:  make(map[string]map[string]*subscriber),
		byConn: make(map[string]string),
		logger: logger.With("component", "room"),
	}
}

// Join adds the connection to a room and returns its event channel. The
// channel closes when the connection leaves. If the connection is already
// in a room it is moved, and the previous channel closes. A stale membership
// of the same user in the target room (a dead connection awaiting cleanup)
// is replaced.
func (c *Coordinator) Join(roomID, connID, userID string) <-chan any {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.byConn[connID]; ok {
		c.removeLocked(prev, connID)
	}
	for otherConn, sub := range c.rooms[roomID] {
		if sub.member.UserID == userID {
			c.removeLocked(roomID, otherConn)
		}
	}

	sub := &subscriber{
		member: Member{ConnID: connID, UserID: userID},
		events: make(chan any, subscriberBuffer),
	}
	if c.rooms[roomID] == nil {
		c.rooms[roomID] = make(map[string]*subscriber)
	}
	c.rooms[roomID][connID] = sub
	c.byConn[connID] = roomID

	c.logger.Debug("joined room", "room_id", roomID, "conn_id", connID, "members", len(c.rooms[roomID]))
	return sub.events
}

// Leave removes the connection from its room, closing its event channel.
// Returns the room it left. Safe to call for a connection in no room.
func (c *Coordinator) Leave(connID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	roomID, ok := c.byConn[connID]
	if !ok {
		return "", ErrNotInRoom
	}
	c.removeLocked(roomID, connID)
	return roomID, nil
}

func (c *Coordinator) removeLocked(roomID, connID string) {
	if sub, ok := c.rooms[roomID][connID]; ok {
		close(sub.events)
		delete(c.rooms[roomID], connID)
		if len(c.rooms[roomID]) == 0 {
			delete(c.rooms, roomID)
		}
	}
	delete(c.byConn, connID)
}

// RoomOf returns the room the connection is currently in.
func (c *Coordinator) RoomOf(connID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roomID, ok := c.byConn[connID]
	return roomID, ok
}

// Members lists the current members of a room.
func (c *Coordinator) Members(roomID string) []Member {
	c.mu.RLock()
	defer c.mu.RUnlock()

	members := make([]Member, 0, len(c.rooms[roomID]))
	for _, sub := range c.rooms[roomID] {
		members = append(members, sub.member)
	}
	return members
}

// Broadcast delivers an event to every member of the room except
// excludeConnID (pass "" to deliver to everyone). Sends are non-blocking:
// a member with a full buffer misses the event and the drop is logged.
func (c *Coordinator) Broadcast(roomID string, event any, excludeConnID string) {
	// Exclusive lock: concurrent broadcasts must not interleave, every
	// member sees events in the same order.
	c.mu.Lock()
	defer c.mu.Unlock()

	for connID, sub := range c.rooms[roomID] {
		if connID == excludeConnID {
			continue
		}
		select {
		case sub.events <- event:
		default:
			c.logger.Warn("dropping event for slow subscriber",
				"room_id", roomID,
				"conn_id", connID)
		}
	}
}
