// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Covers user/room creation, duplicates, and message ordering

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestStore_CreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := &User{
		ID:        "user-123",
		TempID:    "temp-123",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	err := store.CreateUser(ctx, user)
	require.NoError(t, err)

	retrieved, err := store.GetUser(ctx, "user-123")
	require.NoError(t, err)
	assert.Equal(t, "user-123", retrieved.ID)
	assert.Equal(t, "temp-123", retrieved.TempID)
}

func TestStore_CreateUser_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := &User{ID: "user-123", TempID: "temp-123", CreatedAt: time.Now()}
	require.NoError(t, store.CreateUser(ctx, user))

	err := store.CreateUser(ctx, user)
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestStore_GetUser_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetUser(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EnsureUser_CreatesOnce(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.EnsureUser(ctx, "user-1", "temp-1")
	require.NoError(t, err)

	second, err := store.EnsureUser(ctx, "user-1", "temp-other")
	require.NoError(t, err)

	// Second call returns the existing user, not a new one
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "temp-1", second.TempID)
}

func TestStore_CreateRoom_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := &Room{ID: "room-1", Name: "general", CreatedAt: time.Now()}
	require.NoError(t, store.CreateRoom(ctx, room))

	err := store.CreateRoom(ctx, room)
	assert.ErrorIs(t, err, ErrDuplicateRoom)
}

func TestStore_GetRoom_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetRoom(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EnsureRoom(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room, err := store.EnsureRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "room-1", room.ID)

	again, err := store.EnsureRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID)
}

func TestStore_RecentMessages_ChronologicalOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.EnsureRoom(ctx, "room-1")
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &Message{
			ID:        fmt.Sprintf("msg-%d", i),
			RoomID:    "room-1",
			UserID:    "user-1",
			Role:      RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveMessage(ctx, msg))
	}

	// Limit to the 3 most recent; they come back oldest first
	messages, err := store.RecentMessages(ctx, "room-1", 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "message 2", messages[0].Content)
	assert.Equal(t, "message 3", messages[1].Content)
	assert.Equal(t, "message 4", messages[2].Content)
}

func TestStore_RecentMessages_AllWhenNoLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		msg := &Message{
			ID:        fmt.Sprintf("msg-%d", i),
			RoomID:    "room-1",
			UserID:    "user-1",
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveMessage(ctx, msg))
	}

	messages, err := store.RecentMessages(ctx, "room-1", 0)
	require.NoError(t, err)
	assert.Len(t, messages, 3)

	// Role defaults to "user" when left empty
	assert.Equal(t, RoleUser, messages[0].Role)
}

func TestStore_RecentMessages_EmptyRoom(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	messages, err := store.RecentMessages(ctx, "empty-room", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStore_SaveMessage_FileURL(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	msg := &Message{
		ID:        "msg-1",
		RoomID:    "room-1",
		UserID:    "assistant",
		Role:      RoleAssistant,
		Content:   "here is your document",
		FileURL:   "https://storage.example.com/room-1/doc.pdf",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveMessage(ctx, msg))

	messages, err := store.RecentMessages(ctx, "room-1", 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "https://storage.example.com/room-1/doc.pdf", messages[0].FileURL)
}
