// ABOUTME: Package doc for the client-facing transport

// Package gateway is the client-facing transport: the WebSocket endpoint,
// the per-connection read/write loops, presence events, and the small HTTP
// surface (health, presigned artifact downloads).
//
// A connection authenticates during the handshake, joins at most one room,
// and exchanges JSON frames. Inbound frames are processed in arrival order;
// outbound delivery never blocks on a slow client.
package gateway
