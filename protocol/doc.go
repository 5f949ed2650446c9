// Package protocol defines the JSON wire format spoken between the referee
// server and its clients, plus the connection contract the transport layer
// implements.
//
// Inbound frames are flat JSON objects. The kind of a frame is decided once,
// by Decode, from the marker fields it carries:
//
//	{"name": "alice"}                                    register
//	{"white": "alice", "black": "bob", "seconds_per_turn": 3}   start (viewer only)
//	{"from": "e2", "to": "e4", "transform": "queen"}     move
//
// A frame may also carry an explicit "type" field ("register", "start" or
// "move"); when present it must agree with the markers.
//
// Outbound frames are Registered, Roster, StartNotice, Move (relayed verbatim)
// and Outcome.
package protocol
