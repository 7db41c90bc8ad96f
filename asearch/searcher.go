package asearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/asearch/ttable"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β, color) is
    if depth = 0 or node is a terminal node then
        return color × the heuristic value of node

    childNodes := generateMoves(node)
    value := −∞
    foreach child in childNodes do
        value := max(value, −negamax(child, depth − 1, −β, −α, −color))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
**/

var (
	// ErrNoMoveSelected means the root had no legal moves but was not
	// reported terminal. The game state breaks its contract.
	ErrNoMoveSelected = errors.New("search selected no move")
	ErrInvalidPlies   = errors.New("search needs at least one ply")
)

var noPair = ttable.Pair{Value: -ttable.Infinity, Move: ttable.NoMove}

// Searcher runs the three top-level searches. A Searcher must not be used
// by more than one goroutine at a time.
type Searcher struct {
	nodes atomic.Uint64

	hashMoveOrdering bool
	// rootMove is searched first at the root when hash move ordering is on.
	rootMove ttable.Move

	logStream io.Writer
}

// Nodes returns the number of states visited by the last search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes.Load()
}

func (s *Searcher) SetLogStream(w io.Writer) {
	s.logStream = w
}

// SetHashMoveOrdering makes AlphaBeta search a node's cached move before
// its siblings. Values are unaffected; only the node count changes.
func (s *Searcher) SetHashMoveOrdering(o bool) {
	s.hashMoveOrdering = o
}

// descend plays m, evaluates the child and takes m back on every exit path.
func descend(state Rules, m ttable.Move, eval func() (ttable.Value, error)) (ttable.Value, error) {
	state.MakeMove(m)
	defer state.UndoMove(m)
	return eval()
}

func moveFirst(moves []ttable.Move, m ttable.Move) []ttable.Move {
	if m == ttable.NoMove {
		return moves
	}
	idx := lo.IndexOf(moves, m)
	if idx <= 0 {
		return moves
	}
	ordered := make([]ttable.Move, 0, len(moves))
	ordered = append(ordered, m)
	ordered = append(ordered, moves[:idx]...)
	return append(ordered, moves[idx+1:]...)
}

func (s *Searcher) begin(state GameState, plies int) error {
	if plies < 1 {
		return ErrInvalidPlies
	}
	s.nodes.Store(0)
	if rm, ok := state.(RootMarker); ok {
		rm.MarkRoot()
	}
	if s.logStream != nil {
		fmt.Fprint(s.logStream, "  plays:\n")
	}
	return nil
}

func (s *Searcher) trace(m ttable.Move, val ttable.Value, best ttable.Pair) {
	if s.logStream == nil {
		return
	}
	fmt.Fprintf(s.logStream, "  - play: %d\n", m)
	fmt.Fprintf(s.logStream, "    value: %d\n", val)
	fmt.Fprintf(s.logStream, "    best: %d\n", best.Value)
}

func (s *Searcher) finish(algorithm string, state GameState, best ttable.Pair) (ttable.Pair, error) {
	log.Debug().Uint64("nodes", s.nodes.Load()).Str("best", best.String()).
		Msg(algorithm + "-states-visited")
	if best.Move == ttable.NoMove {
		return noPair, fmt.Errorf("%s: %w:\n%s", algorithm, ErrNoMoveSelected,
			strings.TrimRight(state.String(), "\n"))
	}
	return best, nil
}

//------------------------------------------------------------------------------
// MINIMAX
//------------------------------------------------------------------------------

// Minimax searches the entire tree to the given depth without pruning.
func (s *Searcher) Minimax(ctx context.Context, state GameState, plies int) (ttable.Pair, error) {
	if err := s.begin(state, plies); err != nil {
		return noPair, err
	}
	best := noPair
	for _, m := range state.LegalMoves() {
		s.nodes.Add(1)
		v, err := descend(state, m, func() (ttable.Value, error) {
			return s.minimaxValue(ctx, state, plies-1)
		})
		if err != nil {
			return noPair, err
		}
		val := -v
		if val > best.Value {
			best = ttable.Pair{Value: val, Move: m}
		}
		s.trace(m, val, best)
	}
	return s.finish("minimax", state, best)
}

func (s *Searcher) minimaxValue(ctx context.Context, state GameState, depth int) (ttable.Value, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if depth <= 0 || state.IsTerminal() {
		return state.Score(), nil
	}
	s.nodes.Add(1)

	best := -ttable.Infinity
	for _, m := range state.LegalMoves() {
		v, err := descend(state, m, func() (ttable.Value, error) {
			return s.minimaxValue(ctx, state, depth-1)
		})
		if err != nil {
			return 0, err
		}
		best = max(best, -v)
	}
	return best, nil
}

//------------------------------------------------------------------------------
// ALPHABETA
//------------------------------------------------------------------------------

// AlphaBeta is a fail-soft negamax alpha-beta search that consults and
// fills the state's transposition table.
func (s *Searcher) AlphaBeta(ctx context.Context, state GameState, plies int) (ttable.Pair, error) {
	if err := s.begin(state, plies); err != nil {
		return noPair, err
	}
	moves := state.LegalMoves()
	if s.hashMoveOrdering {
		moves = moveFirst(moves, s.rootMove)
	}
	best := noPair
	for _, m := range moves {
		s.nodes.Add(1)
		v, err := descend(state, m, func() (ttable.Value, error) {
			return s.alphaBetaValue(ctx, state, plies-1, 1, -ttable.Infinity, -best.Value)
		})
		if err != nil {
			return noPair, err
		}
		val := -v
		if val > best.Value {
			best = ttable.Pair{Value: val, Move: m}
		}
		s.trace(m, val, best)
	}
	return s.finish("alphabeta", state, best)
}

func (s *Searcher) alphaBetaValue(ctx context.Context, state GameState, depth, ply int,
	α, β ttable.Value) (ttable.Value, error) {

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if depth <= 0 || state.IsTerminal() {
		return state.Quiescence(α, β), nil
	}
	s.nodes.Add(1)

	cached, flag := state.Get(depth, ply)
	switch flag {
	case ttable.Exact:
		return cached.Value, nil
	case ttable.LowerBound:
		α = max(α, cached.Value)
		// Tightening β from an UpperBound entry is deliberately left out;
		// it is not known to be safe with an always-replace table.
	}
	if α >= β {
		return α, nil
	}

	moves := state.LegalMoves()
	if s.hashMoveOrdering && flag != ttable.Invalid {
		moves = moveFirst(moves, cached.Move)
	}

	best := noPair
	alpha := α
	for _, m := range moves {
		v, err := descend(state, m, func() (ttable.Value, error) {
			return s.alphaBetaValue(ctx, state, depth-1, ply+1, -β, -alpha)
		})
		if err != nil {
			return 0, err
		}
		if -v > best.Value {
			best = ttable.Pair{Value: -v, Move: m}
		}
		alpha = max(alpha, best.Value)
		if alpha >= β {
			break // beta cut-off
		}
	}
	// The table classifies the result against the window this node was
	// searched with.
	state.Put(depth, ply, α, β, best)
	return best.Value, nil
}

//------------------------------------------------------------------------------
// NEGASCOUT
//------------------------------------------------------------------------------

// Negascout is principal variation search: every move after the first is
// tried with a null window and only re-searched if it might be better.
// It does not use the transposition table.
func (s *Searcher) Negascout(ctx context.Context, state GameState, plies int) (ttable.Pair, error) {
	if err := s.begin(state, plies); err != nil {
		return noPair, err
	}
	best := noPair
	β := ttable.Infinity
	for i, m := range state.LegalMoves() {
		s.nodes.Add(1)
		v, err := descend(state, m, func() (ttable.Value, error) {
			v, err := s.negascoutValue(ctx, state, plies-1, -β, -best.Value)
			if err != nil {
				return 0, err
			}
			if i > 0 && best.Value < -v && -v < ttable.Infinity {
				return s.negascoutValue(ctx, state, plies-1, -ttable.Infinity, -best.Value)
			}
			return v, nil
		})
		if err != nil {
			return noPair, err
		}
		val := -v
		if val > best.Value {
			best = ttable.Pair{Value: val, Move: m}
		}
		s.trace(m, val, best)
		if best.Value < ttable.Infinity {
			β = best.Value + 1
		}
	}
	return s.finish("negascout", state, best)
}

func (s *Searcher) negascoutValue(ctx context.Context, state GameState, depth int,
	α, β ttable.Value) (ttable.Value, error) {

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if depth <= 0 || state.IsTerminal() {
		return state.Quiescence(α, β), nil
	}
	s.nodes.Add(1)

	scoutβ := β
	for i, m := range state.LegalMoves() {
		v, err := descend(state, m, func() (ttable.Value, error) {
			v, err := s.negascoutValue(ctx, state, depth-1, -scoutβ, -α)
			if err != nil {
				return 0, err
			}
			if i > 0 && α < -v && -v < β {
				return s.negascoutValue(ctx, state, depth-1, -β, -α)
			}
			return v, nil
		})
		if err != nil {
			return 0, err
		}
		α = max(α, -v)
		if α >= β {
			return α, nil
		}
		scoutβ = α + 1
	}
	return α, nil
}
