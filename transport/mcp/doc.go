// Package mcp exposes the voting REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one REST request and the
// JSON response is rendered as text. Errors returned by the API surface as
// tool errors rather than protocol errors.
//
// MCP Tools:
//   - create_session, get_session, list_sessions, close_session
//   - join_session, list_users
//   - add_card, list_cards
//   - cast_vote, list_votes
//   - live_stats
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp handled with GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
