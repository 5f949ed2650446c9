// Package rules defines the contract between the session orchestrator and
// the game's own legality logic, and ships a chess implementation of it.
//
// The orchestrator treats an Engine as opaque: it asks whose turn it is and
// submits moves, receiving one of three answers:
//
//   - Continue: the move was applied and the game goes on
//   - Ended: the move was applied and finished the game with an Outcome
//   - Rejected: the move was malformed or illegal and was not applied
//
// Engines are not safe for concurrent use. The session manager serializes
// every call under its own lock.
//
// Usage:
//
//	eng := rules.NewChess()
//	if eng.IsMover(rules.White) {
//		res := eng.Submit(rules.Move{From: "e2", To: "e4"})
//		...
//	}
package rules
