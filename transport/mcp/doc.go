// Package mcp exposes the referee's read-only REST API as Model Context
// Protocol tools.
//
// The Client is a thin proxy: every tool call becomes a GET against the REST
// API and the JSON answer is rendered as text for the agent.
//
// MCP Tools:
//   - server_status: viewer presence, player and session counts, uptime
//   - list_players: registered clients and the session each is playing
//   - list_sessions: live sessions, optionally filtered by player
//   - get_session: one session's players, budget, mover and move count
//
// Transports:
//
// ServeHTTP answers single JSON-RPC messages posted to /mcp on the main
// server. In stdio mode main hands MCPServer() to server.ServeStdio.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	router.Handle("/mcp", client)
package mcp
