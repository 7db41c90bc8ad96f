package asearch

import "github.com/domino14/asearch/ttable"

// Rules is what the engine needs from a concrete game.
type Rules interface {
	// LegalMoves returns the moves of the current position in a stable
	// order. It is empty only if the position is terminal.
	LegalMoves() []ttable.Move
	// MakeMove and UndoMove mutate the position in place. Every MakeMove
	// is undone exactly once, in reverse order.
	MakeMove(m ttable.Move)
	UndoMove(m ttable.Move)
	IsTerminal() bool
	// Score is the static evaluation from the side to move.
	Score() ttable.Value
	// Quiescence is used instead of Score at the search horizon.
	Quiescence(alpha, beta ttable.Value) ttable.Value
	IsMateScore(v ttable.Value) bool
	// CreateHash recomputes the position's hash key from scratch.
	CreateHash()
	String() string
}

// Cache is the transposition-table half of a game state. ttable.Keyed
// implements it.
type Cache interface {
	Get(depth, ply int) (ttable.Pair, ttable.Flag)
	Put(depth, ply int, alpha, beta ttable.Value, p ttable.Pair)
}

type GameState interface {
	Rules
	Cache
}

// RootMarker is implemented by games that score mates relative to the
// search root. MarkRoot is called at the start of every top-level search.
type RootMarker interface {
	MarkRoot()
}

// Copier is implemented by games that can be searched by several
// goroutines at once. The copy must share the original's table.
type Copier interface {
	Copy() GameState
}
