package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/asearch/asearch"
	"github.com/domino14/asearch/config"
	"github.com/domino14/asearch/tictactoe"
	"github.com/domino14/asearch/ttable"
)

var (
	errNoData            = errors.New("no data in line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errQuit              = errors.New("sending quit signal")
)

type ShellController struct {
	l      *readline.Instance
	config *config.Config
	out    io.Writer

	table      *ttable.TranspositionTable
	board      *tictactoe.Board
	lastResult *asearch.Result

	logFile *os.File
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController returns a controller writing to out. The readline
// instance is only created by Loop, so commands can run without a terminal.
func NewShellController(cfg *config.Config, table *ttable.TranspositionTable, out io.Writer) (*ShellController, error) {
	sc := &ShellController{config: cfg, table: table, out: out}
	sc.board = tictactoe.New(table)
	if path := cfg.GetString(config.ConfigLogStream); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		sc.logFile = f
	}
	return sc, nil
}

func (sc *ShellController) initReadline() error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31masearch>\033[0m ",
		HistoryFile:     "/tmp/asearch_readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	sc.l = l
	sc.out = l.Stderr()
	return nil
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: CmdOptions{}}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		if strings.HasPrefix(f, "-") && len(f) > 1 {
			if i == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := f[1:]
			cmd.options[key] = append(cmd.options[key], fields[i+1])
			i++
			continue
		}
		cmd.args = append(cmd.args, f)
	}
	return cmd, nil
}

func (sc *ShellController) dispatch(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "new":
		return sc.newGame(cmd)
	case "play":
		return sc.play(cmd)
	case "undo":
		return sc.undo(cmd)
	case "s", "show":
		return sc.show(cmd)
	case "search":
		return sc.search(cmd)
	case "solve":
		return sc.solve(cmd)
	case "bench":
		return sc.bench(cmd)
	case "ttable":
		return sc.ttableStats(cmd)
	case "reset":
		return sc.resetTable(cmd)
	case "report":
		return sc.report(cmd)
	case "help":
		return sc.help(cmd)
	case "exit", "bye":
		return nil, errQuit
	}
	log.Debug().Msgf("you said: %v", strconv.Quote(strings.Join(append([]string{cmd.cmd}, cmd.args...), " ")))
	return nil, fmt.Errorf("unrecognized command %q; try `help`", cmd.cmd)
}

// Execute runs a single command line. A quit command sends SIGINT on sig.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	cmd, err := extractFields(line)
	if err == errNoData {
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	resp, err := sc.dispatch(cmd)
	if err == errQuit {
		sig <- syscall.SIGINT
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	if err := sc.initReadline(); err != nil {
		log.Error().Err(err).Msg("readline")
		sig <- syscall.SIGINT
		return
	}
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "exit" || line == "bye" {
			sig <- syscall.SIGINT
			break
		}
		sc.Execute(sig, line)
	}
	log.Debug().Msgf("Exiting readline loop...")
}

func (sc *ShellController) Cleanup() {
	if sc.logFile != nil {
		if err := sc.logFile.Close(); err != nil {
			log.Err(err).Msg("closing-log-stream")
		}
	}
	if sc.table != nil {
		sc.table.LogStats()
	}
}
