// Package api provides the HTTP REST API and the live WebSocket route for
// voting sessions.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session (optional "access_code")
//   - GET /api/sessions - List sessions (?sort=created_at|access_code&order=asc|desc&limit=N)
//   - GET /api/sessions/{code} - Session with counts and per-card tally
//   - POST /api/sessions/{code}/close - Close a session
//
// Participants, cards and votes:
//   - GET|POST /api/sessions/{code}/users
//   - GET|POST /api/sessions/{code}/cards
//   - GET|POST /api/sessions/{code}/votes
//
// Live:
//   - GET /api/live/stats - Group and connection counts
//   - GET /api/live/{session_id} - Connection ids in one group
//   - /ws/voting/{session_id}/ - WebSocket upgrade into the session's group
//
// Errors are returned as JSON with the matching HTTP status:
//
//	{"error": "session not found: XYZ789"}
//
// Unknown sessions map to 404, invalid input to 400, and closed sessions,
// duplicate votes and taken access codes to 409.
//
// Usage:
//
//	hub := websocket.NewHub()
//	server := api.NewServer(votingService, hub, api.Options{EchoWrites: true})
//	http.ListenAndServe(":8080", server)
package api
