package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/domino14/asearch/asearch"
	"github.com/domino14/asearch/config"
	"github.com/domino14/asearch/tictactoe"
	"github.com/domino14/asearch/ttable"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) BoolDefault(key string, defaultB bool) bool {
	v := c[key]
	if len(v) == 0 {
		return defaultB
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) logStream() io.Writer {
	if sc.logFile == nil {
		return nil
	}
	return sc.logFile
}

func (sc *ShellController) legalSquares() []string {
	return lo.Map(sc.board.LegalMoves(), func(m ttable.Move, _ int) string {
		return tictactoe.SquareName(m)
	})
}

func (sc *ShellController) boardText() string {
	return sc.board.String() + "legal: " + strings.Join(sc.legalSquares(), " ")
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	sc.board = tictactoe.New(sc.table)
	sc.lastResult = nil
	return msg(sc.boardText()), nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <square> [<square>...]")
	}
	for _, a := range cmd.args {
		m, err := tictactoe.ParseSquare(a)
		if err != nil {
			return nil, err
		}
		if err := sc.board.Play(m); err != nil {
			return nil, err
		}
	}
	return msg(sc.boardText()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if !sc.board.Undo() {
		return nil, errors.New("no moves to undo")
	}
	return msg(sc.boardText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.boardText()), nil
}

// searchArgs reads the optional positional algorithm and plies. Either may
// be omitted; a bare number is taken as plies.
func (sc *ShellController) searchArgs(args []string) (asearch.Algorithm, int, error) {
	alg, err := asearch.ParseAlgorithm(sc.config.GetString(config.ConfigAlgorithm))
	if err != nil {
		return alg, 0, err
	}
	plies := sc.config.GetInt(config.ConfigPlies)
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			plies = n
			continue
		}
		alg, err = asearch.ParseAlgorithm(a)
		if err != nil {
			return alg, 0, err
		}
	}
	return alg, plies, nil
}

func (sc *ShellController) checkSearchable() error {
	if sc.board.IsTerminal() {
		return errors.New("the game is over; use `undo` or `new`")
	}
	return nil
}

func (sc *ShellController) search(cmd *shellcmd) (*Response, error) {
	if err := sc.checkSearchable(); err != nil {
		return nil, err
	}
	alg, plies, err := sc.searchArgs(cmd.args)
	if err != nil {
		return nil, err
	}
	s := &asearch.Searcher{}
	s.SetLogStream(sc.logStream())
	ctx := context.Background()
	var best ttable.Pair
	switch alg {
	case asearch.MinimaxAlgorithm:
		best, err = s.Minimax(ctx, sc.board, plies)
	case asearch.NegascoutAlgorithm:
		best, err = s.Negascout(ctx, sc.board, plies)
	default:
		best, err = s.AlphaBeta(ctx, sc.board, plies)
	}
	if err != nil {
		return nil, err
	}
	sc.lastResult = &asearch.Result{
		Algorithm:  alg.String(),
		Best:       best,
		Plies:      plies,
		Nodes:      s.Nodes(),
		Iterations: []asearch.Iteration{{Plies: plies, Best: best, Nodes: s.Nodes()}},
	}
	return msg(fmt.Sprintf("%s to %d plies: best %s value %d (%d nodes)",
		alg, plies, tictactoe.SquareName(best.Move), best.Value, s.Nodes())), nil
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	if err := sc.checkSearchable(); err != nil {
		return nil, err
	}
	alg, plies, err := sc.searchArgs(cmd.args)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigThreads))
	if err != nil {
		return nil, err
	}
	solver := &asearch.Solver{}
	if err := solver.Init(sc.board, sc.table); err != nil {
		return nil, err
	}
	solver.SetAlgorithm(alg)
	solver.SetThreads(threads)
	solver.SetIterativeDeepening(!cmd.options.BoolDefault("disable-id",
		!sc.config.GetBool(config.ConfigIterativeDeepening)))
	solver.SetLogStream(sc.logStream())

	res, err := solver.Solve(context.Background(), plies)
	if err != nil {
		return nil, err
	}
	sc.lastResult = res
	var sb strings.Builder
	for _, it := range res.Iterations {
		fmt.Fprintf(&sb, "%2d plies: %s %d (%d nodes)\n", it.Plies,
			tictactoe.SquareName(it.Best.Move), it.Best.Value, it.Nodes)
	}
	fmt.Fprintf(&sb, "best: %s value %d; %d nodes in %.3fs",
		tictactoe.SquareName(res.Best.Move), res.Best.Value, res.Nodes, res.ElapsedSec)
	return msg(sb.String()), nil
}

func (sc *ShellController) ttableStats(cmd *shellcmd) (*Response, error) {
	if sc.table == nil {
		return nil, errors.New("no transposition table")
	}
	st := sc.table.Stats()
	return msg(fmt.Sprintf("size: %d\ncreated: %d\nlookups: %d\nhits: %d\ncollisions: %d",
		st.Size, st.Created, st.Lookups, st.Hits, st.Collisions)), nil
}

func (sc *ShellController) resetTable(cmd *shellcmd) (*Response, error) {
	if sc.table == nil {
		return nil, errors.New("no transposition table")
	}
	sc.table.Reset()
	return msg("transposition table cleared"), nil
}

func (sc *ShellController) report(cmd *shellcmd) (*Response, error) {
	if sc.lastResult == nil {
		return nil, errors.New("nothing to report; run `search` or `solve` first")
	}
	out, err := yaml.Marshal(sc.lastResult)
	if err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(string(out), "\n")), nil
}
