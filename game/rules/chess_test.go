package rules

import (
	"errors"
	"testing"
)

func play(t *testing.T, eng Engine, moves ...Move) Result {
	t.Helper()
	var res Result
	for i, m := range moves {
		res = eng.Submit(m)
		if res.Status == Rejected {
			t.Fatalf("Move %d (%+v) rejected: %v", i+1, m, res.Err)
		}
	}
	return res
}

func TestChess_TurnOrder(t *testing.T) {
	eng := NewChess()

	if eng.CurrentMover() != White {
		t.Fatalf("Expected white to move first, got %s", eng.CurrentMover())
	}
	if !eng.IsMover(White) || eng.IsMover(Black) {
		t.Error("Only white should be on the move")
	}

	res := eng.Submit(Move{From: "E2", To: "E4"})
	if res.Status != Continue {
		t.Fatalf("Expected continue, got %s (%v)", res.Status, res.Err)
	}
	if eng.CurrentMover() != Black {
		t.Errorf("Expected black to move, got %s", eng.CurrentMover())
	}
	if eng.MoveCount() != 1 {
		t.Errorf("Expected 1 half-move, got %d", eng.MoveCount())
	}
}

func TestChess_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		move    Move
		wantErr error
	}{
		{name: "malformed cell", move: Move{From: "z9", To: "e4"}, wantErr: ErrMalformedCell},
		{name: "illegal pawn jump", move: Move{From: "e2", To: "e5"}, wantErr: ErrIllegalMove},
		{name: "moving opponent piece", move: Move{From: "e7", To: "e5"}, wantErr: ErrIllegalMove},
		{name: "promotion hint on normal move", move: Move{From: "e2", To: "e4", Transform: "queen"}, wantErr: ErrIllegalMove},
		{name: "unknown promotion piece", move: Move{From: "e2", To: "e4", Transform: "xylophone"}, wantErr: ErrIllegalMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewChess()
			res := eng.Submit(tt.move)
			if res.Status != Rejected {
				t.Fatalf("Expected rejection, got %s", res.Status)
			}
			if !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, res.Err)
			}
			if eng.CurrentMover() != White {
				t.Error("A rejected move must not change the side to move")
			}
		})
	}
}

func TestChess_FoolsMate(t *testing.T) {
	eng := NewChess()
	res := play(t, eng,
		Move{From: "f2", To: "f3"},
		Move{From: "e7", To: "e5"},
		Move{From: "g2", To: "g4"},
		Move{From: "d8", To: "h4"},
	)

	if res.Status != Ended {
		t.Fatalf("Expected game to end, got %s", res.Status)
	}
	if res.Outcome.Winner != Black || res.Outcome.Reason != Checkmate {
		t.Errorf("Expected black to win by checkmate, got %+v", res.Outcome)
	}
	if eng.CurrentMover() != NoColor {
		t.Error("Nobody should be on the move after checkmate")
	}
	if again := eng.Submit(Move{From: "a2", To: "a3"}); again.Status != Rejected {
		t.Error("Moves after the game ended should be rejected")
	}
}

func TestChess_Stalemate(t *testing.T) {
	eng, err := NewChessFromFEN("k7/8/8/2Q5/8/8/8/7K w - - 0 1")
	if err != nil {
		t.Fatalf("NewChessFromFEN failed: %v", err)
	}

	res := eng.Submit(Move{From: "c5", To: "b6"})
	if res.Status != Ended {
		t.Fatalf("Expected stalemate to end the game, got %s", res.Status)
	}
	if !res.Outcome.IsDraw() || res.Outcome.Reason != Stalemate {
		t.Errorf("Expected draw by stalemate, got %+v", res.Outcome)
	}
}

func TestChess_InsufficientMaterial(t *testing.T) {
	eng, err := NewChessFromFEN("k7/8/8/8/8/8/1r6/K7 w - - 0 1")
	if err != nil {
		t.Fatalf("NewChessFromFEN failed: %v", err)
	}

	res := eng.Submit(Move{From: "a1", To: "b2"})
	if res.Status != Ended {
		t.Fatalf("Expected bare kings to end the game, got %s", res.Status)
	}
	if !res.Outcome.IsDraw() || res.Outcome.Reason != InsufficientMaterial {
		t.Errorf("Expected draw by insufficient material, got %+v", res.Outcome)
	}
}

func TestChess_Promotion(t *testing.T) {
	eng, err := NewChessFromFEN("8/P7/8/8/8/8/8/k6K w - - 0 1")
	if err != nil {
		t.Fatalf("NewChessFromFEN failed: %v", err)
	}

	if res := eng.Submit(Move{From: "a7", To: "a8"}); res.Status != Rejected {
		t.Fatalf("Promotion without a piece should be rejected, got %s", res.Status)
	}

	res := eng.Submit(Move{From: "A7", To: "A8", Transform: "Queen"})
	if res.Status != Continue {
		t.Fatalf("Expected promotion to be accepted, got %s (%v)", res.Status, res.Err)
	}
	if eng.CurrentMover() != Black {
		t.Errorf("Expected black to move after promotion, got %s", eng.CurrentMover())
	}
}

func TestNewChessFromFEN_Invalid(t *testing.T) {
	if _, err := NewChessFromFEN("not a position"); err == nil {
		t.Error("Expected error for invalid FEN")
	}
}

func TestNewChessFactory(t *testing.T) {
	factory := NewChessFactory()
	a, b := factory(), factory()

	a.Submit(Move{From: "e2", To: "e4"})
	if b.CurrentMover() != White {
		t.Error("Factory engines must not share state")
	}
}
