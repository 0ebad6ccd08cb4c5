package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistentState reports that move resolution reached a state
	// that breaks the board invariants. The board is left self-consistent
	// but the tick should not be trusted.
	ErrInconsistentState = errors.New("inconsistent game state")

	// ErrMatchOver is returned when stepping a finished match.
	ErrMatchOver = errors.New("match is over")
)

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(format, args...))
}
