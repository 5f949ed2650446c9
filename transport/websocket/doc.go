// Package websocket carries the JSON protocol over gorilla/websocket.
//
// A Hub tracks live connections. Each accepted connection gets a read
// goroutine, which hands every text frame to a protocol.Handler in arrival
// order, and a write goroutine, which drains a bounded send queue and keeps
// the peer alive with pings.
//
// Client.Send never blocks: a full queue or a closed connection is reported
// as an error and the frame is dropped.
//
// Usage:
//
//	hub := websocket.NewHub(orchestrator, websocket.Options{SendBuffer: 64}, logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
