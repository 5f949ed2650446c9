// Package service wires the client registry and the session manager into the
// orchestrator that sits behind every transport.
//
// The Orchestrator is the application context object:
//   - it routes decoded inbound frames to register, start and move handlers
//   - it delivers outbound messages by client name
//   - it exposes read-only views of players and sessions through GameService
//
// Transports hand it raw frames through protocol.Handler. The HTTP API and
// the MCP tools read from it through GameService.
//
// Usage:
//
//	orch := service.New(service.Options{
//		Viewer:                "viewer",
//		DefaultSecondsPerTurn: 2,
//	}, rules.NewChessFactory(), logger)
//	defer orch.Shutdown()
//
//	hub := websocket.NewHub(orch, logger)
package service
