// ABOUTME: Tests for the connection registry
// ABOUTME: Verifies registration, lookup, idempotent removal, and concurrent mutation

package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register("conn-1", "user-1"))

	userID, err := r.UserFor("conn-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	connID, ok := r.ConnFor("user-1")
	require.True(t, ok)
	assert.Equal(t, "conn-1", connID)
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register("conn-1", "user-1"))
	err := r.Register("conn-1", "user-2")
	assert.ErrorIs(t, err, ErrDuplicateConnection)
}

func TestRegistry_UserFor_NotFound(t *testing.T) {
	r := New(nil)

	_, err := r.UserFor("unknown")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestRegistry_Remove_Idempotent(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register("conn-1", "user-1"))

	r.Remove("conn-1")
	// Second removal is a no-op, not a panic or error
	r.Remove("conn-1")
	r.Remove("never-registered")

	_, err := r.UserFor("conn-1")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_Remove_PreservesReconnectedUser(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register("conn-old", "user-1"))
	// User reconnects on a new connection before the old one is cleaned up
	require.NoError(t, r.Register("conn-new", "user-1"))

	r.Remove("conn-old")

	// The reverse mapping still points at the live connection
	connID, ok := r.ConnFor("user-1")
	require.True(t, ok)
	assert.Equal(t, "conn-new", connID)
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", n)
			userID := fmt.Sprintf("user-%d", n)
			require.NoError(t, r.Register(connID, userID))
			_, _ = r.UserFor(connID)
			r.Remove(connID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
}
