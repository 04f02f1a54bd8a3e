// internal/board/types.go
//
// Value types returned by the board service.
//   - State:          snapshot for GET /api/state.
//   - GenerateResult: outcome of an axis-generation trigger.
//   - Reason:         why a generation trigger did nothing.

package board

import (
	"github.com/robalobadob/squares/internal/axis"
	"github.com/robalobadob/squares/internal/store"
)

// Metadata keys and the generation flag sentinel.
const (
	KeyAxisX          = "axis_x"
	KeyAxisY          = "axis_y"
	KeyAxesGenerated  = "axes_generated"
	generatedSentinel = "1"
)

// Reason tags a generation trigger that made no change.
type Reason string

const (
	ReasonAlreadyGenerated Reason = "already-generated"
	ReasonBoardNotFull     Reason = "board-not-full"
)

// Teams holds the fixed display labels for the two axes.
type Teams struct {
	X string // columns
	Y string // rows
}

// State is a read-only snapshot of the board.
// AxisX/AxisY and the team labels are only set once axes are generated.
type State struct {
	Generated bool
	AxisX     *axis.Digits
	AxisY     *axis.Digits
	TeamX     string
	TeamY     string
	Squares   []store.Square
}

// ClaimedCount counts squares with initials in the snapshot.
func (s State) ClaimedCount() int {
	n := 0
	for _, sq := range s.Squares {
		if sq.Claimed() {
			n++
		}
	}
	return n
}

// GenerateResult is the outcome of GenerateAxes.
// When OK is false, Reason says why; ClaimedCount is set for ReasonBoardNotFull.
type GenerateResult struct {
	OK           bool
	Reason       Reason
	ClaimedCount int
	AxisX        axis.Digits
	AxisY        axis.Digits
	TeamX        string
	TeamY        string
}
