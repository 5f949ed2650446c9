package main

import (
	"fmt"
	"os"

	"github.com/wricardo/chess-referee/protocol"
)

// Options are the frames requested on the command line. Empty fields are skipped.
type Options struct {
	Name           string
	From           string
	To             string
	Transform      string
	White          string
	Black          string
	SecondsPerTurn string
	Text           string
	File           string
}

// startFrame keeps seconds_per_turn as text; the server accepts numbers or numeric strings.
type startFrame struct {
	White          string `json:"white"`
	Black          string `json:"black"`
	SecondsPerTurn string `json:"seconds_per_turn"`
}

// Frames builds the outbound frames in send order: register, move, start,
// raw text, file.
func Frames(opts Options) ([][]byte, error) {
	var frames [][]byte
	add := func(msg any) error {
		data, err := protocol.Encode(msg)
		if err != nil {
			return err
		}
		frames = append(frames, data)
		return nil
	}

	if opts.Name != "" {
		if err := add(protocol.Register{Name: opts.Name}); err != nil {
			return nil, err
		}
	}
	if opts.From != "" && opts.To != "" {
		if err := add(protocol.Move{From: opts.From, To: opts.To, Transform: opts.Transform}); err != nil {
			return nil, err
		}
	}
	if opts.White != "" && opts.Black != "" && opts.SecondsPerTurn != "" {
		if err := add(startFrame{White: opts.White, Black: opts.Black, SecondsPerTurn: opts.SecondsPerTurn}); err != nil {
			return nil, err
		}
	}
	if opts.Text != "" {
		frames = append(frames, []byte(opts.Text))
	}
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("read frame file: %w", err)
		}
		frames = append(frames, data)
	}
	return frames, nil
}
