package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/asearch/asearch"
	"github.com/domino14/asearch/gametree"
	"github.com/domino14/asearch/stats"
	"github.com/domino14/asearch/ttable"
)

const (
	defaultBenchTrees     = 20
	defaultBenchDepth     = 6
	defaultBenchBranching = 4
	benchScoreSpread      = 1000
	benchTableMB          = 16
)

var benchAlgorithms = []asearch.Algorithm{
	asearch.MinimaxAlgorithm,
	asearch.AlphaBetaAlgorithm,
	asearch.NegascoutAlgorithm,
}

type benchParams struct {
	trees, depth, branching int
	seed                    uint64
	ordered                 bool
}

func benchArgs(cmd *shellcmd) (benchParams, error) {
	p := benchParams{trees: defaultBenchTrees, depth: defaultBenchDepth, branching: defaultBenchBranching}
	dst := []*int{&p.trees, &p.depth, &p.branching}
	if len(cmd.args) > len(dst) {
		return p, fmt.Errorf("bench takes at most %d arguments", len(dst))
	}
	for i, a := range cmd.args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return p, err
		}
		if n < 1 {
			return p, fmt.Errorf("bench argument %q must be positive", a)
		}
		*dst[i] = n
	}
	seed, err := cmd.options.IntDefault("seed", 1)
	if err != nil {
		return p, err
	}
	p.seed = uint64(seed)
	p.ordered = cmd.options.BoolDefault("ordered", false)
	return p, nil
}

// runBench searches random trees with every algorithm and checks that they
// agree with each other and with the exact tree value.
func runBench(ctx context.Context, p benchParams) (map[asearch.Algorithm]*stats.Sample, error) {
	samples := map[asearch.Algorithm]*stats.Sample{}
	for _, a := range benchAlgorithms {
		samples[a] = &stats.Sample{}
	}
	tt := ttable.New(benchTableMB, 0)
	for i := 0; i < p.trees; i++ {
		root := gametree.RandomTree(gametree.NewRNG(p.seed+uint64(i)), p.depth, p.branching, benchScoreSpread)
		if p.ordered {
			gametree.OrderChildren(root)
		}
		want := gametree.Negamax(root)
		for _, a := range benchAlgorithms {
			tt.Reset()
			s := &asearch.Searcher{}
			tr := gametree.New(root, tt)
			var best ttable.Pair
			var err error
			switch a {
			case asearch.MinimaxAlgorithm:
				best, err = s.Minimax(ctx, tr, p.depth)
			case asearch.NegascoutAlgorithm:
				best, err = s.Negascout(ctx, tr, p.depth)
			default:
				best, err = s.AlphaBeta(ctx, tr, p.depth)
			}
			if err != nil {
				return nil, err
			}
			if best.Value != want {
				return nil, fmt.Errorf("tree %d: %s found %d, want %d", i, a, best.Value, want)
			}
			samples[a].Push(float64(s.Nodes()))
		}
		log.Debug().Int("tree", i).Int16("value", int16(want)).Msg("bench-tree-done")
	}
	return samples, nil
}

func (sc *ShellController) bench(cmd *shellcmd) (*Response, error) {
	p, err := benchArgs(cmd)
	if err != nil {
		return nil, err
	}
	samples, err := runBench(context.Background(), p)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("%d trees, depth %d, branching <= %d (all algorithms agree)\n", p.trees, p.depth, p.branching)
	header += fmt.Sprintf("%-10s %12s %12s %12s %12s", "algorithm", "mean nodes", "stdev", "median", "ci95")
	rows := lo.Map(benchAlgorithms, func(a asearch.Algorithm, _ int) string {
		sum := samples[a].Summarize()
		return fmt.Sprintf("%-10s %12.1f %12.1f %12.1f %12.1f", a, sum.Mean, sum.Stdev, sum.Median, sum.CI95)
	})
	return msg(header + "\n" + strings.Join(rows, "\n")), nil
}
