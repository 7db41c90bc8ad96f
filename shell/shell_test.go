package shell

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/asearch/config"
	"github.com/domino14/asearch/tictactoe"
	"github.com/domino14/asearch/ttable"
)

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"solve -threads 4",
			&shellcmd{"solve", nil, CmdOptions{"threads": {"4"}}},
			nil},
		{"search negascout 5",
			&shellcmd{"search", []string{"negascout", "5"}, CmdOptions{}},
			nil},
		{"solve alphabeta 9 -threads 2 -disable-id true ",
			&shellcmd{"solve",
				[]string{"alphabeta", "9"},
				CmdOptions{"threads": {"2"}, "disable-id": {"true"}}},
			nil,
		},
		{"solve alphabeta -threads",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

func newTestController(is *is.I) (*ShellController, *bytes.Buffer) {
	cfg := config.DefaultConfig()
	var buf bytes.Buffer
	sc, err := NewShellController(cfg, ttable.New(1, tictactoe.NumHashFeatures), &buf)
	is.NoErr(err)
	return sc, &buf
}

func run(sc *ShellController, buf *bytes.Buffer, line string) string {
	buf.Reset()
	sig := make(chan os.Signal, 1)
	sc.Execute(sig, line)
	return buf.String()
}

func TestPlayAndSearch(t *testing.T) {
	is := is.New(t)
	sc, buf := newTestController(is)

	out := run(sc, buf, "play a1 b1 b2 c1")
	is.True(strings.Contains(out, "X to move"))
	is.True(strings.Contains(out, "legal: a2 c2 a3 b3 c3"))

	out = run(sc, buf, "search")
	is.True(strings.HasPrefix(out, "alphabeta to 9 plies: best c3 value 29999 ("))

	out = run(sc, buf, "search negascout 3")
	is.True(strings.HasPrefix(out, "negascout to 3 plies: best c3 value 29999"))

	out = run(sc, buf, "report")
	is.True(strings.Contains(out, "algorithm: negascout"))
	is.True(strings.Contains(out, "move: 8"))

	out = run(sc, buf, "undo")
	is.True(strings.Contains(out, "O to move"))
	out = run(sc, buf, "play d4")
	is.True(strings.HasPrefix(out, "Error: "))
}

func TestSolve(t *testing.T) {
	is := is.New(t)
	sc, buf := newTestController(is)

	out := run(sc, buf, "solve 9 -threads 2")
	is.True(strings.Contains(out, " 9 plies: "))
	is.True(strings.Contains(out, "best: "))
	is.Equal(sc.lastResult.Best.Value, ttable.Value(0))
	is.Equal(len(sc.lastResult.Iterations), 9)

	out = run(sc, buf, "ttable")
	is.True(strings.Contains(out, "lookups: "))
	is.True(sc.table.Stats().Created > 0)

	run(sc, buf, "reset")
	is.Equal(sc.table.Stats().Created, uint64(0))

	out = run(sc, buf, "solve negascout 3 -threads 2")
	is.True(strings.Contains(out, "lazySMP"))
}

func TestGameOver(t *testing.T) {
	is := is.New(t)
	sc, buf := newTestController(is)
	run(sc, buf, "play a1 a2 b2 a3 c3")
	out := run(sc, buf, "search")
	is.True(strings.Contains(out, "the game is over"))
	out = run(sc, buf, "new")
	is.True(strings.Contains(out, "legal: a1 b1 c1 a2 b2 c2 a3 b3 c3"))
	out = run(sc, buf, "report")
	is.True(strings.HasPrefix(out, "Error: nothing to report"))
}

func TestBench(t *testing.T) {
	is := is.New(t)
	sc, buf := newTestController(is)
	out := run(sc, buf, "bench 5 4 3 -seed 9")
	is.True(strings.HasPrefix(out, "5 trees, depth 4, branching <= 3 (all algorithms agree)"))
	is.Equal(strings.Count(out, "\n"), 5)

	out = run(sc, buf, "bench 5 x")
	is.True(strings.HasPrefix(out, "Error: "))

	samples, err := runBench(t.Context(), benchParams{trees: 4, depth: 5, branching: 4, seed: 3, ordered: true})
	is.NoErr(err)
	for _, a := range benchAlgorithms {
		is.Equal(samples[a].N(), 4)
	}
}

func TestHelpAndUnknown(t *testing.T) {
	is := is.New(t)
	sc, buf := newTestController(is)
	is.True(strings.HasPrefix(run(sc, buf, "help"), "Usage:"))
	is.True(strings.Contains(run(sc, buf, "help solve"), "lazy SMP"))
	is.True(strings.HasPrefix(run(sc, buf, "help nope"), "Error: "))
	is.True(strings.HasPrefix(run(sc, buf, "frobnicate"), "Error: unrecognized command"))
	is.Equal(run(sc, buf, "   "), "")
}

func TestExit(t *testing.T) {
	is := is.New(t)
	sc, buf := newTestController(is)
	sig := make(chan os.Signal, 1)
	sc.Execute(sig, "exit")
	is.Equal(len(sig), 1)
	is.Equal(buf.Len(), 0)
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(is)
	c := NewShellCompleter(sc)

	m, n := c.Do([]rune("so"), 2)
	is.Equal(n, 2)
	is.Equal(m, [][]rune{[]rune("lve")})

	line := []rune("search nega")
	m, n = c.Do(line, len(line))
	is.Equal(n, 4)
	is.Equal(m, [][]rune{[]rune("scout")})

	line = []rune("solve -thr")
	m, _ = c.Do(line, len(line))
	is.Equal(m, [][]rune{[]rune("eads")})

	line = []rune("play c")
	m, _ = c.Do(line, len(line))
	is.Equal(len(m), 3)
}
