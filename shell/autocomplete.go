package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter implements readline.AutoCompleter.
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

type CommandMetadata struct {
	Options []string
	Args    []string
}

var algorithmNames = []string{"alphabeta", "minimax", "negascout"}

var commandMetadata = map[string]CommandMetadata{
	"search": {Args: algorithmNames},
	"solve": {
		Options: []string{"-threads", "-disable-id"},
		Args:    algorithmNames,
	},
	"bench": {Options: []string{"-seed", "-ordered"}},
	"help":  {Args: []string{"search", "solve", "bench", "play"}},
}

var commandNames = []string{
	"new", "play", "undo", "show", "search", "solve", "bench",
	"ttable", "reset", "report", "help", "exit",
}

var boolValues = []string{"true", "false"}

func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		switch lastCompleteField {
		case "-disable-id", "-ordered":
			completions = boolValues
		case "play":
			if c.sc != nil && c.sc.board != nil {
				completions = c.sc.legalSquares()
			}
		}
		if completions == nil {
			if md, ok := commandMetadata[cmdName]; ok {
				if strings.HasPrefix(prefix, "-") || len(md.Args) == 0 {
					completions = md.Options
				} else {
					completions = md.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
