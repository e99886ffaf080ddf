// Package websocket provides the live fan-out layer for voting sessions.
//
// The websocket package implements:
//   - Session groups of live connections (Hub)
//   - One Client per WebSocket connection with bounded, non-blocking sends
//   - The connect handshake for /ws/voting/{session_id}/ (Gateway)
//   - Decoding and re-broadcasting of client events (Router)
//
// Architecture:
//
// The Hub keeps one group per session ID, each behind its own mutex. A
// broadcast holds the group's mutex for the whole fan-out, so every member
// of a group sees that group's broadcasts in the same order. Members whose
// Send fails are removed during the fan-out and closed in the background.
//
// Each Client runs a read pump and a write pump. Send never blocks: it
// queues onto a buffered channel and a full queue tears the client down.
// Teardown runs once, however many goroutines trigger it, and leaves the
// hub before the transport is closed.
//
// Message Protocol:
//
// Clients send one of:
//
//	{"type": "vote", "card_id": <id>, "vote": <bool>, "user_id": <id>}
//	{"type": "card_added", "card": <object>}
//
// and every member of the sender's session, the sender included, receives
// the same event back. IDs and cards are relayed verbatim. Anything else is
// dropped with ErrMalformedEvent and the connection stays open.
//
// Usage:
//
//	hub := websocket.NewHub()
//	gateway := websocket.NewGateway(hub, websocket.NewRouter(hub),
//		websocket.WithOptions(websocket.DefaultOptions()))
//
//	router.HandleFunc("/ws/voting/{session_id}/", func(w http.ResponseWriter, r *http.Request) {
//		gateway.ServeWS(w, r, mux.Vars(r)["session_id"])
//	})
//
//	// Push an event from outside a connection
//	hub.Broadcast("XYZ789", websocket.CardBroadcast{Card: cardJSON})
package websocket
