package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedCell = errors.New("malformed cell")
	ErrIllegalMove   = errors.New("illegal move")
)

const (
	minColumn = 'a'
	maxColumn = 'h'
	minRow    = '1'
	maxRow    = '8'
)

// ParseCell normalizes a cell such as "E2" or " e2 " to "e2". Parsing is
// lenient: the first letter in a..h and the first digit found are used.
func ParseCell(cell string) (string, error) {
	lower := strings.ToLower(cell)

	column := strings.IndexFunc(lower, func(r rune) bool {
		return r >= minColumn && r <= maxColumn
	})
	if column < 0 {
		return "", fmt.Errorf("%w: no column in %q", ErrMalformedCell, cell)
	}

	row := strings.IndexFunc(lower, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
	if row < 0 {
		return "", fmt.Errorf("%w: no row in %q", ErrMalformedCell, cell)
	}
	if lower[row] < minRow || lower[row] > maxRow {
		return "", fmt.Errorf("%w: row out of range in %q", ErrMalformedCell, cell)
	}

	return string([]byte{lower[column], lower[row]}), nil
}

// promotionSuffix maps a transform hint to its UCI promotion letter.
// Only the first letter counts; "k" (knight, or a mistaken king) means knight.
func promotionSuffix(transform string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(transform))
	if t == "" {
		return "", nil
	}
	switch t[0] {
	case 'k':
		return "n", nil
	case 'q', 'r', 'b', 'n':
		return t[:1], nil
	default:
		return "", fmt.Errorf("%w: unknown promotion piece %q", ErrIllegalMove, transform)
	}
}

// ParseMove converts a Move into long algebraic (UCI) text, e.g. "e7e8q".
func ParseMove(m Move) (string, error) {
	from, err := ParseCell(m.From)
	if err != nil {
		return "", fmt.Errorf("invalid from cell: %w", err)
	}
	to, err := ParseCell(m.To)
	if err != nil {
		return "", fmt.Errorf("invalid to cell: %w", err)
	}
	promo, err := promotionSuffix(m.Transform)
	if err != nil {
		return "", err
	}
	return from + to + promo, nil
}
