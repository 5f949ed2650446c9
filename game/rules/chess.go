package rules

import (
	"fmt"

	"github.com/notnil/chess"
)

// Chess is an Engine backed by github.com/notnil/chess.
type Chess struct {
	game *chess.Game
}

// NewChess starts a game from the standard initial position.
func NewChess() *Chess {
	return &Chess{game: chess.NewGame()}
}

// NewChessFactory returns a Factory producing fresh chess games.
func NewChessFactory() Factory {
	return func() Engine {
		return NewChess()
	}
}

// NewChessFromFEN starts a game from an arbitrary position.
func NewChessFromFEN(fen string) (*Chess, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}
	return &Chess{game: chess.NewGame(opt)}, nil
}

// CurrentMover returns the color to move, or NoColor once the game is over.
func (c *Chess) CurrentMover() Color {
	if c.game.Outcome() != chess.NoOutcome {
		return NoColor
	}
	return fromChessColor(c.game.Position().Turn())
}

// IsMover reports whether it is color's turn.
func (c *Chess) IsMover(color Color) bool {
	return color != NoColor && c.CurrentMover() == color
}

// Submit validates and applies a move for the side to move.
func (c *Chess) Submit(m Move) Result {
	if c.CurrentMover() == NoColor {
		return Result{Status: Rejected, Err: fmt.Errorf("%w: game is over", ErrIllegalMove)}
	}

	text, err := ParseMove(m)
	if err != nil {
		return Result{Status: Rejected, Err: err}
	}

	move, err := chess.UCINotation{}.Decode(c.game.Position(), text)
	if err != nil {
		return Result{Status: Rejected, Err: fmt.Errorf("%w: %s", ErrIllegalMove, text)}
	}
	if err := c.game.Move(move); err != nil {
		return Result{Status: Rejected, Err: fmt.Errorf("%w: %s", ErrIllegalMove, text)}
	}

	if c.game.Outcome() == chess.NoOutcome {
		return Result{Status: Continue}
	}
	return Result{Status: Ended, Outcome: c.outcome()}
}

// FEN returns the current position.
func (c *Chess) FEN() string {
	return c.game.Position().String()
}

// MoveCount returns the number of half-moves played.
func (c *Chess) MoveCount() int {
	return len(c.game.Moves())
}

func (c *Chess) outcome() Outcome {
	var winner Color
	switch c.game.Outcome() {
	case chess.WhiteWon:
		winner = White
	case chess.BlackWon:
		winner = Black
	}
	return Outcome{Winner: winner, Reason: reasonFor(c.game.Method())}
}

func reasonFor(method chess.Method) Reason {
	switch method {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	case chess.InsufficientMaterial:
		return InsufficientMaterial
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return Repetition
	case chess.FiftyMoveRule:
		return FiftyMoves
	case chess.SeventyFiveMoveRule:
		return SeventyFiveMoves
	default:
		return Reason(fmt.Sprint(method))
	}
}

func fromChessColor(c chess.Color) Color {
	switch c {
	case chess.White:
		return White
	case chess.Black:
		return Black
	default:
		return NoColor
	}
}
