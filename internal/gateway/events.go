// ABOUTME: Wire event types exchanged with WebSocket clients
// ABOUTME: Inbound frames carry a type discriminator; outbound events mirror it

package gateway

import (
	"github.com/2389/parley-gateway/internal/extract"
	"github.com/2389/parley-gateway/internal/pipeline"
)

// Inbound frame types.
const (
	frameJoinRoom  = "join_room"
	frameLeaveRoom = "leave_room"
	frameMessage   = "message"
)

// Outbound event types.
const (
	eventConnected        = "connected"
	eventError            = "error"
	eventRoomJoined       = "room_joined"
	eventRoomLeft         = "room_left"
	eventUserJoined       = "user_joined"
	eventUserLeft         = "user_left"
	eventUserDisconnected = "user_disconnected"
	eventMessageResult    = "message_result"
)

// inboundFrame is one client frame. The Type discriminator selects which of
// the remaining fields are meaningful.
type inboundFrame struct {
	Type        string               `json:"type"`
	RoomID      string               `json:"roomId,omitempty"`
	Message     string               `json:"message,omitempty"`
	OutputFlag  string               `json:"outputFlag,omitempty"`
	MaxTokens   int                  `json:"maxTokens,omitempty"`
	Attachments []extract.Attachment `json:"attachments,omitempty"`
}

// outboundEvent is one server event. Only the fields relevant to Type are
// populated.
type outboundEvent struct {
	Type    string                  `json:"type"`
	UserID  string                  `json:"userId,omitempty"`
	RoomID  string                  `json:"roomId,omitempty"`
	Members []string                `json:"members,omitempty"`
	Code    string                  `json:"code,omitempty"`
	Message string                  `json:"message,omitempty"`
	Result  *pipeline.MessageResult `json:"result,omitempty"`
}

func errorEvent(code, message string) outboundEvent {
	return outboundEvent{Type: eventError, Code: code, Message: message}
}
