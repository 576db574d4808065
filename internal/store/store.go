// ABOUTME: Store interface and data types for parley-gateway persistence
// ABOUTME: Defines User, Room, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when trying to create a user that already exists
var ErrDuplicateUser = errors.New("user already exists")

// ErrDuplicateRoom is returned when trying to create a room that already exists
var ErrDuplicateRoom = errors.New("room already exists")

// Role constants for message authorship
const (
	RoleUser      = "user"      // Message written by a human participant
	RoleAssistant = "assistant" // AI-generated reply
	RoleSystem    = "system"    // Synthetic entry (e.g. conversation summary)
)

// User is a durable identity. ID is either the identity-resolver id or, when
// resolution falls back, the client-supplied temporary id.
type User struct {
	ID        string
	TempID    string
	CreatedAt time.Time
}

// Room is a named group of users exchanging messages. Its lifetime is
// independent of any one participant.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Message is a single stored message within a room. Messages are never
// mutated after creation; ordering is creation-time ascending.
type Message struct {
	ID        string
	RoomID    string
	UserID    string
	Role      string // "user", "assistant" or "system"
	Content   string
	FileURL   string // presigned artifact URL, empty for plain text replies
	CreatedAt time.Time
}

// Store defines the interface for user, room and message persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	// EnsureUser creates the user if it does not exist yet and returns it.
	EnsureUser(ctx context.Context, id, tempID string) (*User, error)

	// Rooms
	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	// EnsureRoom creates the room if it does not exist yet and returns it.
	EnsureRoom(ctx context.Context, id string) (*Room, error)

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	// RecentMessages returns the most recent `limit` messages of a room in
	// chronological order (oldest first). limit <= 0 returns all messages.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)

	Close() error
}
