// ABOUTME: Maps live connection ids to resolved user ids and back.
// ABOUTME: Process-wide registry mutated on connect/disconnect, internally synchronized.

package registry

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrDuplicateConnection indicates a connection with the same ID is already registered.
var ErrDuplicateConnection = errors.New("connection already registered")

// ErrConnectionNotFound indicates the specified connection was not found.
var ErrConnectionNotFound = errors.New("connection not found")

// Registry tracks which user each live connection belongs to. It holds no
// persistent state: connections do not survive a process restart, so neither
// does the registry.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]string // connID -> userID
	conns  map[string]string // userID -> connID
	logger *slog.Logger
}

// New creates an empty Registry. Pass nil logger for default.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		users:  make(map[string]string),
		conns:  make(map[string]string),
		logger: logger.With("component", "registry"),
	}
}

// Register records the user behind a new connection.
// Returns ErrDuplicateConnection if the connection ID is already registered.
func (r *Registry) Register(connID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[connID]; exists {
		return ErrDuplicateConnection
	}

	r.users[connID] = userID
	r.conns[userID] = connID
	r.logger.Debug("connection registered",
		"conn_id", connID,
		"user_id", userID,
		"total_connections", len(r.users),
	)
	return nil
}

// UserFor resolves the user behind a connection.
// Returns ErrConnectionNotFound if the connection is not registered.
func (r *Registry) UserFor(connID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.users[connID]
	if !ok {
		return "", ErrConnectionNotFound
	}
	return userID, nil
}

// ConnFor returns the live connection of a user, if any.
func (r *Registry) ConnFor(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.conns[userID]
	return connID, ok
}

// Remove deletes a connection from the registry. Removing an unknown
// connection is a no-op, so disconnect cleanup can run unconditionally.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.users[connID]
	if !ok {
		return
	}

	delete(r.users, connID)
	// Only drop the reverse mapping if it still points at this connection;
	// a reconnect may have claimed the user id already.
	if r.conns[userID] == connID {
		delete(r.conns, userID)
	}

	r.logger.Debug("connection removed",
		"conn_id", connID,
		"user_id", userID,
		"total_connections", len(r.users),
	)
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
