package service

import (
	"time"

	"github.com/wricardo/chess-referee/game/registry"
	"github.com/wricardo/chess-referee/game/session"
)

// ServerStatus summarizes the orchestrator for status endpoints.
type ServerStatus struct {
	Status          string    `json:"status"`
	Viewer          string    `json:"viewer"`
	ViewerConnected bool      `json:"viewer_connected"`
	Players         int       `json:"players"`
	Sessions        int       `json:"sessions"`
	StartedAt       time.Time `json:"started_at"`
	Uptime          string    `json:"uptime"`
}

// PlayerInfo is a registered client and the session it is playing, if any.
type PlayerInfo struct {
	registry.Client
	SessionID string `json:"session_id,omitempty"`
}

// SessionList wraps session snapshots for list responses.
type SessionList struct {
	Sessions []*session.Snapshot `json:"sessions"`
	Count    int                 `json:"count"`
}
