// Package api serves the read-only HTTP view of the referee and mounts the
// websocket endpoint.
//
// Endpoints:
//   - GET /api - Server status and endpoint index
//   - GET /api/health - Liveness probe
//   - GET /api/players - Registered clients and their current session
//   - GET /api/sessions - Live sessions (?player=name filters)
//   - GET /api/sessions/{id} - One live session
//   - GET /ws - WebSocket upgrade for players and the viewer
//
// Games are started and played over the websocket only; there are no write
// endpoints.
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "session not found"}
package api
