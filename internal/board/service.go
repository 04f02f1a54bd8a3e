// internal/board/service.go
//
// Board service: the public contract consumed by the HTTP layer.
//   - GetState:     idempotent init, then a snapshot of axes + squares.
//   - ClaimSquare:  first-writer-wins claim of one square.
//   - GenerateAxes: one-time axis generation, gated on a full board.
//
// The service keeps no board state between calls; every operation starts with
// EnsureInitialized and re-reads the store. Generation is guarded by an
// insert-if-absent on the axes_generated key, so two triggers racing past the
// count check still produce exactly one set of axes.

package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalobadob/squares/internal/axis"
	"github.com/robalobadob/squares/internal/store"
)

// ErrInvalidSquare is returned for square ids outside [0, NumSquares).
var ErrInvalidSquare = errors.New("board: square id out of range")

// Service orchestrates board operations over a Store.
type Service struct {
	store   store.Store
	teams   Teams
	shuffle func() (axis.Digits, error)
}

// NewService builds a Service over st with the given axis labels.
func NewService(st store.Store, teams Teams) *Service {
	return &Service{store: st, teams: teams, shuffle: axis.Shuffle}
}

// EnsureInitialized creates the schema and the 100 square rows if missing.
func (s *Service) EnsureInitialized(ctx context.Context) error {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.store.EnsureSquares(ctx)
}

// GetState returns the current board snapshot.
// Stored axes that fail to parse are reported as not generated.
func (s *Service) GetState(ctx context.Context) (State, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return State{}, err
	}

	var st State
	generated, err := s.flagSet(ctx)
	if err != nil {
		return State{}, err
	}
	if generated {
		x, okX, err := s.readAxis(ctx, KeyAxisX)
		if err != nil {
			return State{}, err
		}
		y, okY, err := s.readAxis(ctx, KeyAxisY)
		if err != nil {
			return State{}, err
		}
		if okX && okY {
			st.Generated = true
			st.AxisX, st.AxisY = &x, &y
			st.TeamX, st.TeamY = s.teams.X, s.teams.Y
		}
	}

	squares, err := s.store.ListSquares(ctx)
	if err != nil {
		return State{}, err
	}
	st.Squares = squares
	return st, nil
}

// ClaimSquare records initials on square id if it is still free.
// It returns false, with no error, when the square was already claimed.
// initials are expected to be normalized by the caller.
func (s *Service) ClaimSquare(ctx context.Context, id int, initials string) (bool, error) {
	if id < 0 || id >= store.NumSquares {
		return false, fmt.Errorf("%w: %d", ErrInvalidSquare, id)
	}
	if err := s.EnsureInitialized(ctx); err != nil {
		return false, err
	}
	return s.store.TryClaim(ctx, id, initials)
}

// GenerateAxes shuffles both axes once the board is full.
// Refusals (already generated, board not full) are reported via the result,
// not as errors.
func (s *Service) GenerateAxes(ctx context.Context) (GenerateResult, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return GenerateResult{}, err
	}

	generated, err := s.flagSet(ctx)
	if err != nil {
		return GenerateResult{}, err
	}
	if generated {
		return GenerateResult{Reason: ReasonAlreadyGenerated}, nil
	}

	claimed, err := s.store.CountClaimed(ctx)
	if err != nil {
		return GenerateResult{}, err
	}
	if claimed < store.NumSquares {
		return GenerateResult{Reason: ReasonBoardNotFull, ClaimedCount: claimed}, nil
	}

	x, err := s.shuffle()
	if err != nil {
		return GenerateResult{}, err
	}
	y, err := s.shuffle()
	if err != nil {
		return GenerateResult{}, err
	}

	applied, err := s.store.WriteMetaBatchIfAbsent(ctx,
		store.MetaEntry{Key: KeyAxesGenerated, Value: generatedSentinel},
		[]store.MetaEntry{
			{Key: KeyAxisX, Value: axis.Encode(x)},
			{Key: KeyAxisY, Value: axis.Encode(y)},
		})
	if err != nil {
		return GenerateResult{}, err
	}
	if !applied {
		return GenerateResult{Reason: ReasonAlreadyGenerated}, nil
	}

	return GenerateResult{
		OK:           true,
		ClaimedCount: claimed,
		AxisX:        x,
		AxisY:        y,
		TeamX:        s.teams.X,
		TeamY:        s.teams.Y,
	}, nil
}

func (s *Service) flagSet(ctx context.Context) (bool, error) {
	v, ok, err := s.store.ReadMeta(ctx, KeyAxesGenerated)
	if err != nil {
		return false, err
	}
	return ok && v == generatedSentinel, nil
}

func (s *Service) readAxis(ctx context.Context, key string) (axis.Digits, bool, error) {
	v, ok, err := s.store.ReadMeta(ctx, key)
	if err != nil || !ok {
		return axis.Digits{}, false, err
	}
	d, ok := axis.Parse(v)
	return d, ok, nil
}
