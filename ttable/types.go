package ttable

import "fmt"

// Move is an opaque identifier for a legal action. The table only needs
// equality and the NoMove sentinel.
type Move uint32

// Value is a score from the perspective of the side to move.
type Value int16

const (
	// Infinity bounds the search window. -Infinity is representable, so
	// negating any Value in [-Infinity, Infinity] is safe.
	Infinity = Value(32767)

	moveBits = 22
	// NoMove is the "no move selected" sentinel. It is the all-ones
	// pattern of a packed move.
	NoMove = Move(1<<moveBits - 1)
	// MaxMove is the largest move id that survives packing.
	MaxMove = NoMove - 1
)

// Pair is the best move found at a node together with its value.
type Pair struct {
	Value Value `yaml:"value"`
	Move  Move  `yaml:"move"`
}

func (p Pair) String() string {
	if p.Move == NoMove {
		return fmt.Sprintf("<value: %d move: none>", p.Value)
	}
	return fmt.Sprintf("<value: %d move: %d>", p.Value, p.Move)
}

// Flag classifies a cached value.
type Flag uint8

const (
	// Invalid: no entry for this position.
	Invalid Flag = iota
	// Outdated: the entry was searched shallower than requested.
	Outdated
	// UpperBound: the true value is <= the cached value.
	UpperBound
	// LowerBound: the true value is >= the cached value.
	LowerBound
	// Quiescent: the entry came from a depth-0 (quiescence) evaluation.
	Quiescent
	// Exact: the cached value is exact at the searched depth.
	Exact
)

var flagNames = [...]string{"invalid", "outdated", "upperbound", "lowerbound", "quiescent", "exact"}

func (f Flag) String() string {
	if int(f) < len(flagNames) {
		return flagNames[f]
	}
	return fmt.Sprintf("flag(%d)", uint8(f))
}

// MateScorer decides whether a value denotes a forced win or loss. Such
// values are stored ply-independently.
type MateScorer interface {
	IsMateScore(Value) bool
}
