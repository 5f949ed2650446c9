package rules

// Color is one of the two symmetric participant slots of a game.
type Color int

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Opponent returns the other color. NoColor has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// Colors lists both participant colors in move order.
func Colors() [2]Color {
	return [2]Color{White, Black}
}

// Reason is a stable code describing why a game ended.
type Reason string

const (
	Checkmate            Reason = "checkmate"
	Stalemate            Reason = "stalemate"
	InsufficientMaterial Reason = "insufficient_material"
	Repetition           Reason = "repetition"
	FiftyMoves           Reason = "fifty_moves"
	SeventyFiveMoves     Reason = "seventy_five_moves"

	// Forfeits synthesized by the orchestrator rather than the engine.
	Timeout     Reason = "timeout"
	IllegalMove Reason = "illegal_move"
)

// Outcome is the result of a finished game. A NoColor winner means a draw.
type Outcome struct {
	Winner Color
	Reason Reason
}

// IsDraw reports whether the game ended without a winner.
func (o Outcome) IsDraw() bool {
	return o.Winner == NoColor
}

// Forfeit builds the outcome awarded to the opponent of loser.
func Forfeit(loser Color, reason Reason) Outcome {
	return Outcome{Winner: loser.Opponent(), Reason: reason}
}

// Move is a proposed move: a from-cell, a to-cell and an optional
// promotion hint ("queen", "Knight", "q", ...).
type Move struct {
	From      string
	To        string
	Transform string
}

// Status is the engine's verdict on a submitted move.
type Status int

const (
	Continue Status = iota
	Ended
	Rejected
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Ended:
		return "ended"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is returned by Engine.Submit. Outcome is set when Status is Ended;
// Err explains a rejection.
type Result struct {
	Status  Status
	Outcome Outcome
	Err     error
}

// Engine is the per-game rules service consumed by the session manager.
type Engine interface {
	// CurrentMover returns the color to move, or NoColor once the game is over.
	CurrentMover() Color

	// IsMover reports whether it is c's turn.
	IsMover(c Color) bool

	// Submit validates and applies a move for the current mover.
	Submit(m Move) Result
}

// Factory allocates a fresh Engine for a new game.
type Factory func() Engine
