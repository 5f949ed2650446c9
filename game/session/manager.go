package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/chess-referee/game/rules"
	"github.com/wricardo/chess-referee/protocol"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrUnknownPlayer    = errors.New("player not registered")
	ErrSamePlayer       = errors.New("a player cannot play against itself")
	ErrPlayerBusy       = errors.New("player already in an active session")
	ErrViewerCannotPlay = errors.New("the viewer cannot play")
	ErrInvalidBudget    = errors.New("seconds per turn must be a positive number")
	ErrNotParticipant   = errors.New("sender is not in an active session")
	ErrNotYourTurn      = errors.New("not the sender's turn")
	ErrShutdown         = errors.New("session manager is shut down")
)

// Directory answers the questions Start asks about client names.
type Directory interface {
	Registered(name string) bool
	IsViewer(name string) bool
}

// Broadcaster delivers outbound messages by client name.
type Broadcaster interface {
	// Notify sends msg to a single client.
	Notify(name string, msg any)

	// Broadcast sends msg to both players, skipping exclude, and then to the viewer.
	Broadcast(players Players, msg any, exclude string)
}

// Status of a session.
type Status int

const (
	Active Status = iota
	Ended
)

func (s Status) String() string {
	if s == Active {
		return "active"
	}
	return "ended"
}

// Players binds client names to colors.
type Players struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// Name returns the client playing c.
func (p Players) Name(c rules.Color) string {
	switch c {
	case rules.White:
		return p.White
	case rules.Black:
		return p.Black
	default:
		return ""
	}
}

// ColorOf returns the color played by name, or NoColor.
func (p Players) ColorOf(name string) rules.Color {
	switch name {
	case p.White:
		return rules.White
	case p.Black:
		return rules.Black
	default:
		return rules.NoColor
	}
}

// Session is one game between two registered clients.
type Session struct {
	ID             string
	Players        Players
	SecondsPerTurn float64
	Status         Status
	CreatedAt      time.Time
	LastMoveAt     time.Time
	MoveCount      int

	budget time.Duration
	engine rules.Engine
	clock  Clock
	seq    uint64
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID             string    `json:"id"`
	White          string    `json:"white"`
	Black          string    `json:"black"`
	SecondsPerTurn float64   `json:"seconds_per_turn"`
	Status         string    `json:"status"`
	ToMove         string    `json:"to_move,omitempty"`
	ToMoveColor    string    `json:"to_move_color,omitempty"`
	MoveCount      int       `json:"move_count"`
	CreatedAt      time.Time `json:"created_at"`
	LastMoveAt     time.Time `json:"last_move_at"`
}

func (s *Session) snapshot() *Snapshot {
	mover := s.engine.CurrentMover()
	return &Snapshot{
		ID:             s.ID,
		White:          s.Players.White,
		Black:          s.Players.Black,
		SecondsPerTurn: s.SecondsPerTurn,
		Status:         s.Status.String(),
		ToMove:         s.Players.Name(mover),
		ToMoveColor:    mover.String(),
		MoveCount:      s.MoveCount,
		CreatedAt:      s.CreatedAt,
		LastMoveAt:     s.LastMoveAt,
	}
}

// StartRequest pairs two clients. SecondsPerTurn must already have any
// default applied.
type StartRequest struct {
	White          string
	Black          string
	SecondsPerTurn float64
}

// Manager owns all live sessions.
type Manager struct {
	sessions  map[string]*Session
	byPlayer  map[string]*Session
	directory Directory
	out       Broadcaster
	newEngine rules.Factory
	logger    *slog.Logger
	closed    bool
	mu        sync.Mutex
}

// NewManager creates a session manager.
func NewManager(directory Directory, out Broadcaster, newEngine rules.Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		byPlayer:  make(map[string]*Session),
		directory: directory,
		out:       out,
		newEngine: newEngine,
		logger:    logger,
	}
}

// Start creates an ACTIVE session, arms the first turn clock and tells each
// player its color, the turn budget and its opponent.
func (m *Manager) Start(req StartRequest) (*Snapshot, error) {
	budget, err := turnBudget(req.SecondsPerTurn)
	if err != nil {
		return nil, err
	}
	if req.White == req.Black {
		return nil, fmt.Errorf("%w: %q", ErrSamePlayer, req.White)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrShutdown
	}
	for _, name := range []string{req.White, req.Black} {
		if m.directory.IsViewer(name) {
			return nil, fmt.Errorf("%w: %q", ErrViewerCannotPlay, name)
		}
		if !m.directory.Registered(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
		}
		if s, busy := m.byPlayer[name]; busy {
			return nil, fmt.Errorf("%w: %q is playing session %s", ErrPlayerBusy, name, s.ID)
		}
	}

	now := time.Now()
	s := &Session{
		ID:             m.generateSessionID(),
		Players:        Players{White: req.White, Black: req.Black},
		SecondsPerTurn: req.SecondsPerTurn,
		Status:         Active,
		CreatedAt:      now,
		LastMoveAt:     now,
		budget:         budget,
		engine:         m.newEngine(),
	}
	m.sessions[s.ID] = s
	m.byPlayer[s.Players.White] = s
	m.byPlayer[s.Players.Black] = s
	m.arm(s, s.budget)

	m.logger.Info("session started",
		"session", s.ID, "white", s.Players.White, "black", s.Players.Black,
		"seconds_per_turn", s.SecondsPerTurn)

	for _, color := range rules.Colors() {
		m.out.Notify(s.Players.Name(color), protocol.StartNotice{
			Color:          color.String(),
			SecondsPerTurn: s.SecondsPerTurn,
			Opponent:       s.Players.Name(color.Opponent()),
		})
	}
	return s.snapshot(), nil
}

// Move applies a move sent by a client. The move is forwarded to the
// opponent and the viewer before the engine sees it. Moves from clients
// outside a session or out of turn are dropped and reported as errors.
func (m *Manager) Move(sender string, mv protocol.Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byPlayer[sender]
	if !ok || s.Status != Active {
		return ErrNotParticipant
	}
	color := s.Players.ColorOf(sender)
	if !s.engine.IsMover(color) {
		return fmt.Errorf("%w: %q plays %s in session %s", ErrNotYourTurn, sender, color, s.ID)
	}

	m.out.Broadcast(s.Players, mv, sender)

	res := s.engine.Submit(rules.Move{From: mv.From, To: mv.To, Transform: mv.Transform})
	s.MoveCount++
	s.LastMoveAt = time.Now()

	switch res.Status {
	case rules.Rejected:
		m.logger.Info("illegal move",
			"session", s.ID, "client", sender, "from", mv.From, "to", mv.To, "error", res.Err)
		m.end(s, rules.Forfeit(color, rules.IllegalMove))
	case rules.Ended:
		m.end(s, res.Outcome)
	default:
		s.seq++
		m.arm(s, s.budget)
	}
	return nil
}

// arm restarts the session clock. The callback carries the session pointer
// and the sequence current at arm time.
func (m *Manager) arm(s *Session, d time.Duration) {
	seq := s.seq
	s.clock.Arm(d, func() { m.expire(s, seq) })
}

func (m *Manager) expire(s *Session, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Status != Active || s.seq != seq || m.sessions[s.ID] != s {
		m.logger.Debug("stale turn timeout discarded", "session", s.ID)
		return
	}

	loser := s.engine.CurrentMover()
	m.logger.Info("turn timed out", "session", s.ID, "client", s.Players.Name(loser))
	m.end(s, rules.Forfeit(loser, rules.Timeout))
}

// end performs the single ACTIVE -> ENDED transition. Callers hold m.mu.
func (m *Manager) end(s *Session, outcome rules.Outcome) {
	s.Status = Ended
	s.seq++
	s.clock.Cancel()
	delete(m.sessions, s.ID)
	delete(m.byPlayer, s.Players.White)
	delete(m.byPlayer, s.Players.Black)

	msg := OutcomeMessage(s.Players, outcome)
	m.logger.Info("session ended",
		"session", s.ID, "winner", msg.Winner, "reason", msg.Reason, "moves", s.MoveCount)
	m.out.Broadcast(s.Players, msg, "")
}

// OutcomeMessage resolves the winning color to a client name.
func OutcomeMessage(players Players, outcome rules.Outcome) protocol.Outcome {
	winner := protocol.Draw
	if !outcome.IsDraw() {
		winner = players.Name(outcome.Winner)
	}
	return protocol.Outcome{Winner: winner, Reason: string(outcome.Reason)}
}

// Get returns a snapshot of a live session.
func (m *Manager) Get(id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// SessionOf returns the live session name is playing in.
func (m *Manager) SessionOf(name string) (*Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byPlayer[name]
	if !ok {
		return nil, false
	}
	return s.snapshot(), true
}

// List returns snapshots of all live sessions, oldest first.
func (m *Manager) List() []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s.snapshot())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown cancels every clock and drops all live sessions without sending
// outcomes. Later Start calls fail with ErrShutdown. It returns how many
// sessions were dropped.
func (m *Manager) Shutdown() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	dropped := len(m.sessions)
	for id, s := range m.sessions {
		s.Status = Ended
		s.seq++
		s.clock.Cancel()
		delete(m.sessions, id)
	}
	clear(m.byPlayer)
	if dropped > 0 {
		m.logger.Info("sessions dropped on shutdown", "count", dropped)
	}
	return dropped
}

// maxSecondsPerTurn keeps the budget representable as a time.Duration.
const maxSecondsPerTurn = float64(math.MaxInt64 / int64(time.Second))

func turnBudget(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || seconds <= 0 || seconds > maxSecondsPerTurn {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBudget, seconds)
	}
	d := time.Duration(seconds * float64(time.Second))
	if d <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBudget, seconds)
	}
	return d, nil
}

// generateSessionID returns a 4 hex character ID not used by a live session.
// Callers hold m.mu.
func (m *Manager) generateSessionID() string {
	bytes := make([]byte, 2)
	for {
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if _, taken := m.sessions[id]; !taken {
			return id
		}
	}
}
