package asearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/asearch/ttable"
)

type Algorithm int

const (
	AlphaBetaAlgorithm Algorithm = iota
	MinimaxAlgorithm
	NegascoutAlgorithm
)

func (a Algorithm) String() string {
	switch a {
	case AlphaBetaAlgorithm:
		return "alphabeta"
	case MinimaxAlgorithm:
		return "minimax"
	case NegascoutAlgorithm:
		return "negascout"
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alphabeta", "ab":
		return AlphaBetaAlgorithm, nil
	case "minimax", "mm":
		return MinimaxAlgorithm, nil
	case "negascout", "pvs", "ns":
		return NegascoutAlgorithm, nil
	}
	return AlphaBetaAlgorithm, fmt.Errorf("algorithm %q is not a valid choice", s)
}

// Iteration is the outcome of one iterative-deepening pass.
type Iteration struct {
	Plies int         `yaml:"plies"`
	Best  ttable.Pair `yaml:"best"`
	Nodes uint64      `yaml:"nodes"`
}

type Result struct {
	Algorithm   string        `yaml:"algorithm"`
	Best        ttable.Pair   `yaml:"best"`
	Plies       int           `yaml:"plies"`
	Nodes       uint64        `yaml:"nodes"`
	HelperNodes uint64        `yaml:"helper-nodes,omitempty"`
	ElapsedSec  float64       `yaml:"elapsed-sec"`
	Iterations  []Iteration   `yaml:"iterations"`
	Table       *ttable.Stats `yaml:"ttable,omitempty"`
}

// Solver drives a Searcher, optionally with iterative deepening and with
// helper goroutines that share the transposition table (lazy SMP).
type Solver struct {
	state GameState
	table *ttable.TranspositionTable

	algorithm               Algorithm
	iterativeDeepeningOptim bool
	lazySMPOptim            bool
	threads                 int

	searcher    Searcher
	nodes       atomic.Uint64
	helperNodes atomic.Uint64
	// set while s.searcher holds the count of an unfinished iteration
	inFlight atomic.Bool

	logStream io.Writer
}

// Init initializes the solver. table may be nil if the state does not use
// one; it is only needed for thread-safety switching and statistics.
func (s *Solver) Init(state GameState, table *ttable.TranspositionTable) error {
	if state == nil {
		return errors.New("solver needs a game state")
	}
	s.state = state
	s.table = table
	s.algorithm = AlphaBetaAlgorithm
	s.iterativeDeepeningOptim = true
	s.threads = 1
	s.lazySMPOptim = false
	return nil
}

func (s *Solver) SetAlgorithm(a Algorithm) {
	s.algorithm = a
}

func (s *Solver) SetIterativeDeepening(id bool) {
	s.iterativeDeepeningOptim = id
}

func (s *Solver) SetThreads(threads int) {
	switch {
	case threads < 2:
		s.threads = 1
		s.lazySMPOptim = false
	case threads >= 2:
		s.threads = threads
		s.lazySMPOptim = true
	}
}

func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}

func (s *Solver) search(ctx context.Context, sr *Searcher, state GameState, a Algorithm, plies int) (ttable.Pair, error) {
	switch a {
	case MinimaxAlgorithm:
		return sr.Minimax(ctx, state, plies)
	case NegascoutAlgorithm:
		return sr.Negascout(ctx, state, plies)
	}
	return sr.AlphaBeta(ctx, state, plies)
}

func (s *Solver) checkLazySMP() error {
	if !s.lazySMPOptim {
		return nil
	}
	if s.algorithm != AlphaBetaAlgorithm {
		return fmt.Errorf("cannot use lazySMP with %v; only alphabeta shares the table", s.algorithm)
	}
	if s.table == nil {
		return errors.New("cannot use lazySMP optimization without transposition table")
	}
	if _, ok := s.state.(Copier); !ok {
		return errors.New("cannot use lazySMP: game state cannot be copied")
	}
	return nil
}

// runHelpers starts threads-1 helper searches at depths around plies. They
// only exist to fill the shared table; their results are discarded.
func (s *Solver) runHelpers(ctx context.Context, g *errgroup.Group, plies int) {
	copier := s.state.(Copier)
	for t := 1; t < s.threads; t++ {
		state := copier.Copy()
		depth := plies + t%2
		g.Go(func() error {
			helper := &Searcher{}
			helper.SetHashMoveOrdering(true)
			log.Debug().Msgf("Thread %d starting; searching %d deep", t, depth)
			_, err := helper.AlphaBeta(ctx, state, depth)
			s.helperNodes.Add(helper.Nodes())
			log.Debug().Msgf("Thread %d done; nodes %d", t, helper.Nodes())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
}

func (s *Solver) iterativelyDeepen(ctx context.Context, plies int, res *Result) error {
	start := 1
	if !s.iterativeDeepeningOptim {
		start = plies
	}
	s.searcher.SetHashMoveOrdering(s.iterativeDeepeningOptim)
	s.searcher.SetLogStream(s.logStream)
	s.searcher.rootMove = ttable.NoMove

	for p := start; p <= plies; p++ {
		log.Info().Int("plies", p).Msg("deepening-iteratively")
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "- ply: %d\n", p)
		}

		var helpers *errgroup.Group
		cancel := func() {}
		if s.lazySMPOptim {
			var helperCtx context.Context
			helperCtx, cancel = context.WithCancel(ctx)
			helpers = &errgroup.Group{}
			s.runHelpers(helperCtx, helpers, p)
		}

		s.searcher.nodes.Store(0)
		s.inFlight.Store(true)
		best, err := s.search(ctx, &s.searcher, s.state, s.algorithm, p)
		s.inFlight.Store(false)
		s.nodes.Add(s.searcher.Nodes())
		// stop helper threads cleanly
		cancel()
		if helpers != nil {
			if herr := helpers.Wait(); herr != nil && err == nil {
				err = herr
			}
		}
		if err != nil {
			return err
		}

		log.Info().Int16("value", int16(best.Value)).Int("ply", p).
			Uint64("nodes", s.searcher.Nodes()).Msg("best-val")
		res.Best = best
		res.Plies = p
		res.Iterations = append(res.Iterations, Iteration{Plies: p, Best: best, Nodes: s.searcher.Nodes()})
		s.searcher.rootMove = best.Move
	}
	return nil
}

// totalNodes counts the nodes of finished iterations plus the one running.
func (s *Solver) totalNodes() uint64 {
	n := s.nodes.Load()
	if s.inFlight.Load() {
		n += s.searcher.Nodes()
	}
	return n
}

// npsDelta is the growth of the node count since the previous tick. The
// total dips briefly while a finished iteration is folded into s.nodes.
func npsDelta(cur, last uint64) uint64 {
	if cur < last {
		return 0
	}
	return cur - last
}

// Solve searches the state to the given number of plies.
func (s *Solver) Solve(ctx context.Context, plies int) (*Result, error) {
	if s.state == nil {
		return nil, errors.New("solver is not initialized")
	}
	if plies < 1 {
		return nil, ErrInvalidPlies
	}
	if err := s.checkLazySMP(); err != nil {
		return nil, err
	}
	log.Debug().Int("plies", plies).Str("algorithm", s.algorithm.String()).
		Int("threads", s.threads).Bool("iterative-deepening", s.iterativeDeepeningOptim).
		Msg("solve-config")

	if s.table != nil {
		if s.lazySMPOptim {
			s.table.SetMultiThreadedMode()
		} else {
			s.table.SetSingleThreadedMode()
		}
	}
	s.nodes.Store(0)
	s.helperNodes.Store(0)
	tstart := time.Now()
	res := &Result{Algorithm: s.algorithm.String(), Best: noPair}

	g := &errgroup.Group{}
	done := make(chan bool)

	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		var lastNodes uint64
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				nodes := s.totalNodes()
				log.Debug().Uint64("nps", npsDelta(nodes, lastNodes)).Msg("nodes-per-second")
				lastNodes = max(nodes, lastNodes)
			}
		}
	})

	g.Go(func() error {
		defer close(done)
		return s.iterativelyDeepen(ctx, plies, res)
	})

	err := g.Wait()

	res.Nodes = s.nodes.Load()
	res.HelperNodes = s.helperNodes.Load()
	res.ElapsedSec = time.Since(tstart).Seconds()
	ev := log.Info().
		Uint64("nodes", res.Nodes).
		Uint64("helper-nodes", res.HelperNodes).
		Float64("time-elapsed-sec", res.ElapsedSec)
	if s.table != nil {
		stats := s.table.Stats()
		res.Table = &stats
		ev = ev.Uint64("ttable-created", stats.Created).
			Uint64("ttable-lookups", stats.Lookups).
			Uint64("ttable-hits", stats.Hits).
			Uint64("ttable-collisions", stats.Collisions)
	}
	ev.Msg("solve-returning")

	return res, err
}
