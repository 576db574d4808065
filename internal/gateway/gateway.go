// ABOUTME: WebSocket gateway: upgrade handshake, frame dispatch, presence
// ABOUTME: events, and the HTTP surface (health, presigned downloads)

package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/parley-gateway/internal/identity"
	"github.com/2389/parley-gateway/internal/pipeline"
	"github.com/2389/parley-gateway/internal/registry"
	"github.com/2389/parley-gateway/internal/room"
	"github.com/2389/parley-gateway/internal/store"
)

// defaultMaxFrameBytes bounds a single client frame. Attachments are
// base64-encoded inside the frame, so this sits above the decoded file limit.
const defaultMaxFrameBytes = 80 * 1024 * 1024

// Presigner hands out download URLs for stored artifacts.
type Presigner interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MessageProcessor runs the message pipeline for one inbound message.
type MessageProcessor interface {
	Process(ctx context.Context, in pipeline.Inbound) (*pipeline.MessageResult, error)
}

// Gateway is the client-facing transport. It owns the WebSocket handshake,
// per-connection loops, and the HTTP routes.
type Gateway struct {
	resolver      identity.Resolver
	registry      *registry.Registry
	rooms         *room.Coordinator
	pipeline      MessageProcessor
	store         store.Store
	presigner     Presigner
	logger        *slog.Logger
	upgrader      websocket.Upgrader
	maxFrameBytes int64
}

// New builds a Gateway from its collaborators.
func New(
	resolver identity.Resolver,
	reg *registry.Registry,
	rooms *room.Coordinator,
	proc MessageProcessor,
	st store.Store,
	presigner Presigner,
	logger *slog.Logger,
) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		resolver:  resolver,
		registry:  reg,
		rooms:     rooms,
		pipeline:  proc,
		store:     st,
		presigner: presigner,
		logger:    logger.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; identity is
			// established by the handshake, not the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		maxFrameBytes: defaultMaxFrameBytes,
	}
}

// Router returns the HTTP routes: the WebSocket endpoint, health, and the
// presigned artifact download exchange.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", g.handleWS)
	r.Get("/healthz", g.handleHealth)
	r.Post("/presigned/download", g.handlePresignedDownload)
	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": g.registry.Count(),
	})
}

// handlePresignedDownload exchanges a stored artifact key for a fresh
// time-limited download URL.
func (g *Gateway) handlePresignedDownload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileURL string `json:"fileUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fileUrl is required"})
		return
	}

	url, err := g.presigner.PresignedURL(r.Context(), req.FileURL, 0)
	if err != nil {
		g.logger.Error("presigning download failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "presigning failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleWS upgrades the connection, resolves the client's identity from the
// handshake, and starts the per-connection loops. Identity failures are
// reported as an error event before closing so the client can distinguish
// rejection from a network fault.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	token := r.URL.Query().Get("token")
	tempID := r.URL.Query().Get("user_temp_id")

	ident, err := g.resolver.Resolve(token, tempID)
	if err != nil {
		ws.WriteJSON(errorEvent(errorCode(err), "identity could not be established"))
		ws.Close()
		return
	}

	ctx := r.Context()
	if _, err := g.store.EnsureUser(ctx, ident.UserID, tempID); err != nil {
		g.logger.Error("ensuring user failed", "user_id", ident.UserID, "error", err)
		ws.WriteJSON(errorEvent(codeInternal, "could not establish session"))
		ws.Close()
		return
	}

	conn := newConnection(uuid.New().String(), ident.UserID, ws, g.logger)
	if err := g.registry.Register(conn.id, conn.userID); err != nil {
		ws.WriteJSON(errorEvent(codeInternal, "could not register connection"))
		ws.Close()
		return
	}

	g.logger.Info("client connected",
		"conn_id", conn.id,
		"user_id", conn.userID,
		"resolved", ident.Source == identity.Resolved)

	go conn.writeLoop()
	conn.enqueue(outboundEvent{Type: eventConnected, UserID: conn.userID})

	// The reader runs on the handler goroutine; the handler returns when the
	// client goes away.
	conn.readLoop(context.WithoutCancel(ctx), g)
}

// dispatch routes one inbound frame. Frames are handled synchronously so a
// connection's events apply in arrival order.
func (g *Gateway) dispatch(ctx context.Context, c *connection, frame inboundFrame) {
	switch frame.Type {
	case frameJoinRoom:
		g.handleJoin(ctx, c, frame)
	case frameLeaveRoom:
		g.handleLeave(c)
	case frameMessage:
		g.handleMessage(ctx, c, frame)
	default:
		c.enqueue(errorEvent(codeInternal, "unknown frame type: "+frame.Type))
	}
}

func (g *Gateway) handleJoin(ctx context.Context, c *connection, frame inboundFrame) {
	if frame.RoomID == "" {
		c.enqueue(errorEvent(codeNotFound, "roomId is required"))
		return
	}
	if _, err := g.store.EnsureRoom(ctx, frame.RoomID); err != nil {
		g.logger.Error("ensuring room failed", "room_id", frame.RoomID, "error", err)
		c.enqueue(errorEvent(errorCode(err), "could not join room"))
		return
	}

	// Leaving the previous room (if any) is implicit in Join; announce it
	// first so observers see a consistent sequence.
	if prev, ok := g.rooms.RoomOf(c.id); ok && prev != frame.RoomID {
		g.rooms.Broadcast(prev, outboundEvent{Type: eventUserLeft, RoomID: prev, UserID: c.userID}, c.id)
	}

	events := g.rooms.Join(frame.RoomID, c.id, c.userID)
	go c.forwardRoomEvents(events)

	members := g.rooms.Members(frame.RoomID)
	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.UserID)
	}

	c.enqueue(outboundEvent{Type: eventRoomJoined, RoomID: frame.RoomID, Members: memberIDs})
	g.rooms.Broadcast(frame.RoomID, outboundEvent{
		Type:   eventUserJoined,
		RoomID: frame.RoomID,
		UserID: c.userID,
	}, c.id)
}

func (g *Gateway) handleLeave(c *connection) {
	roomID, err := g.rooms.Leave(c.id)
	if err != nil {
		c.enqueue(errorEvent(codeNotFound, "not in a room"))
		return
	}
	c.enqueue(outboundEvent{Type: eventRoomLeft, RoomID: roomID})
	g.rooms.Broadcast(roomID, outboundEvent{Type: eventUserLeft, RoomID: roomID, UserID: c.userID}, c.id)
}

func (g *Gateway) handleMessage(ctx context.Context, c *connection, frame inboundFrame) {
	roomID, ok := g.rooms.RoomOf(c.id)
	if !ok {
		c.enqueue(errorEvent(codeNotFound, "join a room before sending messages"))
		return
	}
	if frame.RoomID != "" && frame.RoomID != roomID {
		c.enqueue(errorEvent(codeNotFound, "not a member of that room"))
		return
	}

	// The pipeline broadcasts the result to the room itself; the originator
	// receives it through its own room subscription.
	_, err := g.pipeline.Process(ctx, pipeline.Inbound{
		ConnID:      c.id,
		UserID:      c.userID,
		RoomID:      roomID,
		Message:     frame.Message,
		OutputFlag:  frame.OutputFlag,
		MaxTokens:   frame.MaxTokens,
		Attachments: frame.Attachments,
	})
	if err != nil {
		g.logger.Error("message pipeline failed",
			"conn_id", c.id,
			"room_id", roomID,
			"code", errorCode(err),
			"error", err)
		// Failure is private to the originator; the room sees nothing.
		c.enqueue(errorEvent(errorCode(err), "message could not be processed"))
	}
}

// disconnect runs the cleanup for a closed connection. Always invoked from
// the reader loop's defer, so it runs exactly once per connection and is
// safe if the connection never joined a room.
func (g *Gateway) disconnect(_ context.Context, c *connection) {
	roomID, err := g.rooms.Leave(c.id)
	g.registry.Remove(c.id)
	if err == nil {
		// A reconnect may already have replaced this connection for the
		// same user; only announce the departure when none remains.
		if _, live := g.registry.ConnFor(c.userID); !live {
			g.rooms.Broadcast(roomID, outboundEvent{
				Type:   eventUserDisconnected,
				RoomID: roomID,
				UserID: c.userID,
			}, c.id)
		}
	}
	g.logger.Info("client disconnected", "conn_id", c.id, "user_id", c.userID)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
