package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wricardo/chess-referee/game/registry"
	"github.com/wricardo/chess-referee/game/rules"
	"github.com/wricardo/chess-referee/game/session"
	"github.com/wricardo/chess-referee/protocol"
)

// ErrNotViewer is logged when a client other than the viewer asks to start a game.
var ErrNotViewer = errors.New("only the viewer may start sessions")

// Options configure an Orchestrator.
type Options struct {
	// Viewer is the privileged client name.
	Viewer string

	// DefaultSecondsPerTurn applies to start requests without a budget.
	DefaultSecondsPerTurn float64
}

// Orchestrator owns the registry and the session manager and routes every
// inbound frame to them.
type Orchestrator struct {
	registry      *registry.Registry
	sessions      *session.Manager
	defaultBudget float64
	startedAt     time.Time
	logger        *slog.Logger
}

// New creates an orchestrator. Every started session gets an engine from newEngine.
func New(opts Options, newEngine rules.Factory, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultSecondsPerTurn <= 0 {
		opts.DefaultSecondsPerTurn = protocol.DefaultSecondsPerTurn
	}

	o := &Orchestrator{
		registry:      registry.New(opts.Viewer, logger.With("component", "registry")),
		defaultBudget: opts.DefaultSecondsPerTurn,
		startedAt:     time.Now(),
		logger:        logger,
	}
	o.sessions = session.NewManager(o.registry, o, newEngine, logger.With("component", "session"))
	return o
}

// Registry returns the client registry.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Sessions returns the session manager.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// HandleMessage decodes one inbound frame and dispatches it. Malformed or
// unauthorized frames are logged and dropped; the connection stays open.
func (o *Orchestrator) HandleMessage(conn protocol.Connection, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		o.logger.Warn("dropping inbound message", "conn", conn.ID(), "error", err)
		return
	}

	switch env.Kind {
	case protocol.KindRegister:
		o.handleRegister(conn, env.Register)
	case protocol.KindStart:
		o.handleStart(conn, env.Start)
	case protocol.KindMove:
		o.handleMove(conn, env.Move)
	}
}

// HandleDisconnect forgets the connection's name. Sessions are left alone; a
// participant that does not come back loses on time.
func (o *Orchestrator) HandleDisconnect(conn protocol.Connection) {
	name, ok := o.registry.Unregister(conn)
	if !ok {
		return
	}
	attrs := []any{"client", name, "conn", conn.ID()}
	if snap, playing := o.sessions.SessionOf(name); playing {
		attrs = append(attrs, "session", snap.ID)
	}
	o.logger.Info("client disconnected", attrs...)
}

func (o *Orchestrator) handleRegister(conn protocol.Connection, req *protocol.Register) {
	if err := o.registry.Register(req.Name, conn); err != nil {
		o.logger.Warn("registration refused", "client", req.Name, "conn", conn.ID(), "error", err)
		return
	}
	o.logger.Info("client registered", "client", req.Name, "conn", conn.ID())
}

func (o *Orchestrator) handleStart(conn protocol.Connection, req *protocol.StartRequest) {
	requester, ok := o.registry.LookupName(conn)
	if !ok || !o.registry.IsViewer(requester) {
		o.logger.Warn("start request refused",
			"conn", conn.ID(), "client", requester, "error", ErrNotViewer)
		return
	}

	budget := o.defaultBudget
	if req.SecondsPerTurn != nil {
		budget = *req.SecondsPerTurn
	}

	_, err := o.sessions.Start(session.StartRequest{
		White:          req.White,
		Black:          req.Black,
		SecondsPerTurn: budget,
	})
	if err != nil {
		o.logger.Warn("start request refused",
			"white", req.White, "black", req.Black, "error", err)
	}
}

func (o *Orchestrator) handleMove(conn protocol.Connection, mv *protocol.Move) {
	sender, ok := o.registry.LookupName(conn)
	if !ok {
		o.logger.Warn("move from unregistered connection", "conn", conn.ID())
		return
	}
	if err := o.sessions.Move(sender, *mv); err != nil {
		o.logger.Info("move dropped", "client", sender, "from", mv.From, "to", mv.To, "error", err)
	}
}

// Notify sends msg to one client. Unknown names and send failures are logged.
func (o *Orchestrator) Notify(name string, msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		o.logger.Error("encode outbound message", "client", name, "error", err)
		return
	}
	o.deliver(name, data)
}

// Broadcast sends msg to both players and then the viewer, skipping exclude.
func (o *Orchestrator) Broadcast(players session.Players, msg any, exclude string) {
	data, err := protocol.Encode(msg)
	if err != nil {
		o.logger.Error("encode broadcast", "white", players.White, "black", players.Black, "error", err)
		return
	}

	for _, color := range rules.Colors() {
		if name := players.Name(color); name != exclude {
			o.deliver(name, data)
		}
	}
	if viewer := o.registry.Viewer(); viewer != exclude && o.registry.Registered(viewer) {
		o.deliver(viewer, data)
	}
}

func (o *Orchestrator) deliver(name string, data []byte) {
	conn, ok := o.registry.LookupConnection(name)
	if !ok {
		o.logger.Debug("recipient not connected", "client", name)
		return
	}
	if err := conn.Send(data); err != nil {
		o.logger.Warn("send failed", "client", name, "conn", conn.ID(), "error", err)
	}
}

// Shutdown cancels every turn clock. It returns the number of sessions dropped.
func (o *Orchestrator) Shutdown() int {
	return o.sessions.Shutdown()
}

// Status implements GameService.
func (o *Orchestrator) Status(ctx context.Context) (*ServerStatus, error) {
	viewer := o.registry.Viewer()
	return &ServerStatus{
		Status:          "ok",
		Viewer:          viewer,
		ViewerConnected: o.registry.Registered(viewer),
		Players:         len(o.registry.Names()),
		Sessions:        o.sessions.Count(),
		StartedAt:       o.startedAt,
		Uptime:          time.Since(o.startedAt).Round(time.Second).String(),
	}, nil
}

// ListPlayers implements GameService. The viewer is listed too.
func (o *Orchestrator) ListPlayers(ctx context.Context) ([]PlayerInfo, error) {
	clients := o.registry.Clients()
	result := make([]PlayerInfo, 0, len(clients))
	for _, c := range clients {
		info := PlayerInfo{Client: c}
		if snap, ok := o.sessions.SessionOf(c.Name); ok {
			info.SessionID = snap.ID
		}
		result = append(result, info)
	}
	return result, nil
}

// ListSessions implements GameService.
func (o *Orchestrator) ListSessions(ctx context.Context) (*SessionList, error) {
	sessions := o.sessions.List()
	return &SessionList{Sessions: sessions, Count: len(sessions)}, nil
}

// GetSession implements GameService.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	snap, err := o.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %q: %w", sessionID, err)
	}
	return snap, nil
}
