package service

import (
	"context"

	"github.com/wricardo/chess-referee/game/session"
)

// GameService is the read-only view used by the HTTP API and MCP tools.
type GameService interface {
	Status(ctx context.Context) (*ServerStatus, error)
	ListPlayers(ctx context.Context) ([]PlayerInfo, error)
	ListSessions(ctx context.Context) (*SessionList, error)
	GetSession(ctx context.Context, sessionID string) (*session.Snapshot, error)
}

var _ GameService = (*Orchestrator)(nil)
