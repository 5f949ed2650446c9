package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrUnrecognized = errors.New("unrecognized message")
	ErrAmbiguous    = errors.New("ambiguous message")
)

// Seconds accepts either a JSON number or a numeric JSON string.
type Seconds float64

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Seconds(n)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("seconds_per_turn must be a number: %s", data)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return fmt.Errorf("seconds_per_turn must be a number: %q", str)
	}
	*s = Seconds(n)
	return nil
}

// rawEnvelope is the union of every marker field a client may send.
type rawEnvelope struct {
	Type           string   `json:"type"`
	Name           *string  `json:"name"`
	White          *string  `json:"white"`
	Black          *string  `json:"black"`
	SecondsPerTurn *Seconds `json:"seconds_per_turn"`
	From           *string  `json:"from"`
	To             *string  `json:"to"`
	Transform      *string  `json:"transform"`
}

// Decode parses an inbound frame and classifies it into exactly one Kind.
func Decode(data []byte) (Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Envelope{}, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}

	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kind, err := raw.classify()
	if err != nil {
		return Envelope{}, err
	}

	switch kind {
	case KindRegister:
		return Envelope{Kind: kind, Register: &Register{Name: *raw.Name}}, nil

	case KindStart:
		req := &StartRequest{White: *raw.White, Black: *raw.Black}
		if raw.SecondsPerTurn != nil {
			secs := float64(*raw.SecondsPerTurn)
			req.SecondsPerTurn = &secs
		}
		return Envelope{Kind: kind, Start: req}, nil

	default:
		move := &Move{From: *raw.From, To: *raw.To}
		if raw.Transform != nil {
			move.Transform = *raw.Transform
		}
		return Envelope{Kind: kind, Move: move}, nil
	}
}

// classify inspects the marker fields and returns the single matching kind.
func (r *rawEnvelope) classify() (Kind, error) {
	var found []Kind

	if r.Name != nil {
		found = append(found, KindRegister)
	}

	if r.White != nil || r.Black != nil {
		if r.White == nil || r.Black == nil {
			return KindUnknown, fmt.Errorf("%w: start request needs both white and black", ErrMalformed)
		}
		found = append(found, KindStart)
	}

	if r.From != nil || r.To != nil {
		if r.From == nil || r.To == nil {
			return KindUnknown, fmt.Errorf("%w: move needs both from and to", ErrMalformed)
		}
		found = append(found, KindMove)
	}

	if r.Type != "" {
		declared := parseKind(r.Type)
		if declared == KindUnknown {
			return KindUnknown, fmt.Errorf("%w: type %q", ErrUnrecognized, r.Type)
		}
		if len(found) == 0 {
			return KindUnknown, fmt.Errorf("%w: %s message without its fields", ErrMalformed, declared)
		}
		if len(found) > 1 || found[0] != declared {
			return KindUnknown, fmt.Errorf("%w: type %s does not match fields", ErrAmbiguous, declared)
		}
		return declared, nil
	}

	switch len(found) {
	case 0:
		return KindUnknown, ErrUnrecognized
	case 1:
		return found[0], nil
	default:
		return KindUnknown, fmt.Errorf("%w: matches %d message kinds", ErrAmbiguous, len(found))
	}
}

// Encode serializes an outbound message.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}
