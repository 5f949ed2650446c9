package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/notnil/chess"

	"github.com/wricardo/chess-referee/game/rules"
	"github.com/wricardo/chess-referee/protocol"
)

// Bot plays uniformly random legal moves. It keeps its own board so it can
// tell whose turn it is.
type Bot struct {
	color chess.Color
	game  *chess.Game
	rng   *rand.Rand
}

// NewBot creates an idle bot. rng may be nil.
func NewBot(rng *rand.Rand) *Bot {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Bot{rng: rng}
}

// inbound covers every frame the server sends a player.
type inbound struct {
	Color     string `json:"color"`
	From      string `json:"from"`
	To        string `json:"to"`
	Transform string `json:"transform"`
	Winner    string `json:"winner"`
	Reason    string `json:"reason"`
}

// Playing reports whether a game is in progress.
func (b *Bot) Playing() bool {
	return b.game != nil
}

// Handle processes one server frame and returns the frame to send in reply,
// or nil. Outcome frames are reported through over.
func (b *Bot) Handle(data []byte) (reply []byte, over *protocol.Outcome, err error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, nil, nil
	}

	switch {
	case msg.Winner != "":
		b.game = nil
		return nil, &protocol.Outcome{Winner: msg.Winner, Reason: msg.Reason}, nil

	case msg.Color != "":
		b.color = chess.White
		if strings.EqualFold(msg.Color, "black") {
			b.color = chess.Black
		}
		b.game = chess.NewGame()

	case msg.From != "" && msg.To != "":
		if b.game == nil {
			return nil, nil, nil
		}
		if err := b.apply(msg); err != nil {
			return nil, nil, err
		}

	default:
		return nil, nil, nil
	}

	reply, err = b.move()
	return reply, nil, err
}

func (b *Bot) apply(msg inbound) error {
	text, err := rules.ParseMove(rules.Move{From: msg.From, To: msg.To, Transform: msg.Transform})
	if err != nil {
		return fmt.Errorf("opponent move %s-%s: %w", msg.From, msg.To, err)
	}
	move, err := chess.UCINotation{}.Decode(b.game.Position(), text)
	if err != nil {
		return fmt.Errorf("opponent move %s: %w", text, err)
	}
	if err := b.game.Move(move); err != nil {
		return fmt.Errorf("opponent move %s: %w", text, err)
	}
	return nil
}

// move picks and plays a random legal move when it is the bot's turn.
func (b *Bot) move() ([]byte, error) {
	if b.game.Outcome() != chess.NoOutcome || b.game.Position().Turn() != b.color {
		return nil, nil
	}
	moves := b.game.ValidMoves()
	if len(moves) == 0 {
		return nil, nil
	}

	m := moves[b.rng.IntN(len(moves))]
	if err := b.game.Move(m); err != nil {
		return nil, err
	}
	return protocol.Encode(protocol.Move{
		From:      strings.ToUpper(m.S1().String()),
		To:        strings.ToUpper(m.S2().String()),
		Transform: pieceName(m.Promo()),
	})
}

func pieceName(p chess.PieceType) string {
	switch p {
	case chess.Queen:
		return "Queen"
	case chess.Rook:
		return "Rook"
	case chess.Knight:
		return "Knight"
	case chess.Bishop:
		return "Bishop"
	default:
		return ""
	}
}
