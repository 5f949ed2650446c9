// Package session runs live two-player games.
//
// A Manager owns every ACTIVE session together with its rules engine and
// turn clock. Sessions refer to clients by name only; name lookups and
// message delivery go through the Directory and Broadcaster interfaces so
// the manager never touches connections directly.
//
// Lifecycle:
//
// A session is created ACTIVE by Start and becomes ENDED exactly once, by an
// engine-reported result, an illegal move or a turn timeout. Ended sessions
// are dropped from the live set immediately and both players are free to be
// paired again.
//
// Concurrency:
//
// All transitions run under a single mutex. Each armed clock captures the
// session's move sequence; a timeout that fires after a move has been
// accepted sees a newer sequence and is discarded.
//
// Usage:
//
//	manager := session.NewManager(registry, orchestrator, rules.NewChessFactory(), logger)
//
//	snap, err := manager.Start(session.StartRequest{
//		White:          "alice",
//		Black:          "bob",
//		SecondsPerTurn: 2,
//	})
//
//	err = manager.Move("alice", protocol.Move{From: "e2", To: "e4"})
package session
