package tictactoe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/domino14/asearch/asearch"
	"github.com/domino14/asearch/ttable"
	"github.com/domino14/asearch/zobrist"
)

const (
	NumSquares = 9
	// Two features per square (one per player) plus side to move.
	NumHashFeatures = 2*NumSquares + 1

	// MateValue is the score of a win on the move. Wins further from the
	// search root score lower.
	MateValue = ttable.Value(30000)
	// a 3x3 board has at most 9 plies.
	mateWindow = 64
)

type Player int8

const (
	Empty Player = iota
	X
	O
)

func (p Player) String() string {
	switch p {
	case X:
		return "X"
	case O:
		return "O"
	}
	return "."
}

func (p Player) opponent() Player {
	return 3 - p
}

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

var ErrIllegalMove = errors.New("illegal move")

// Board is a tic-tac-toe position. It implements asearch.GameState; its
// hash key is maintained incrementally from the table's Zobrist features.
type Board struct {
	ttable.Keyed

	squares  [NumSquares]Player
	onTurn   Player
	history  []ttable.Move
	rootPly  int
	features *zobrist.Zobrist
}

// New returns an empty board. The board hashes with the table's features;
// if table is nil it draws its own and runs without a cache.
func New(table *ttable.TranspositionTable) *Board {
	b := &Board{onTurn: X}
	var z *zobrist.Zobrist
	if table != nil && table.Zobrist() != nil && table.Zobrist().NumFeatures() >= NumHashFeatures {
		z = table.Zobrist()
	} else {
		z = &zobrist.Zobrist{}
		z.Initialize(NumHashFeatures)
	}
	b.features = z
	b.Keyed = ttable.Keyed{Table: table, Mate: b}
	b.CreateHash()
	return b
}

func squareFeature(sq int, p Player) int {
	return sq*2 + int(p) - 1
}

const sideToMoveFeature = 2 * NumSquares

func (b *Board) CreateHash() {
	var features []int
	for sq, p := range b.squares {
		if p != Empty {
			features = append(features, squareFeature(sq, p))
		}
	}
	if b.onTurn == O {
		features = append(features, sideToMoveFeature)
	}
	b.Key = b.features.Hash(features)
}

func (b *Board) OnTurn() Player {
	return b.onTurn
}

func (b *Board) At(sq int) Player {
	return b.squares[sq]
}

func (b *Board) Winner() Player {
	for _, l := range lines {
		p := b.squares[l[0]]
		if p != Empty && p == b.squares[l[1]] && p == b.squares[l[2]] {
			return p
		}
	}
	return Empty
}

func (b *Board) full() bool {
	return len(b.history) == NumSquares
}

func (b *Board) IsTerminal() bool {
	return b.Winner() != Empty || b.full()
}

func (b *Board) LegalMoves() []ttable.Move {
	if b.IsTerminal() {
		return nil
	}
	moves := make([]ttable.Move, 0, NumSquares-len(b.history))
	for sq, p := range b.squares {
		if p == Empty {
			moves = append(moves, ttable.Move(sq))
		}
	}
	return moves
}

func (b *Board) MakeMove(m ttable.Move) {
	sq := int(m)
	b.squares[sq] = b.onTurn
	b.Key = b.features.Toggle(b.Key, squareFeature(sq, b.onTurn))
	b.Key = b.features.Toggle(b.Key, sideToMoveFeature)
	b.onTurn = b.onTurn.opponent()
	b.history = append(b.history, m)
}

func (b *Board) UndoMove(m ttable.Move) {
	sq := int(m)
	b.onTurn = b.onTurn.opponent()
	b.Key = b.features.Toggle(b.Key, sideToMoveFeature)
	b.Key = b.features.Toggle(b.Key, squareFeature(sq, b.onTurn))
	b.squares[sq] = Empty
	b.history = b.history[:len(b.history)-1]
}

// Play validates and makes a move.
func (b *Board) Play(m ttable.Move) error {
	if m >= NumSquares || b.squares[m] != Empty || b.IsTerminal() {
		return fmt.Errorf("%w: %d", ErrIllegalMove, m)
	}
	b.MakeMove(m)
	return nil
}

// Undo takes back the last move, if any.
func (b *Board) Undo() bool {
	if len(b.history) == 0 {
		return false
	}
	b.UndoMove(b.history[len(b.history)-1])
	return true
}

func (b *Board) MarkRoot() {
	b.rootPly = len(b.history)
}

// Score is from the side to move. The side to move never has a line of its
// own on a finished board: the last mover made it.
func (b *Board) Score() ttable.Value {
	w := b.Winner()
	switch {
	case w == b.onTurn:
		return MateValue - ttable.Value(len(b.history)-b.rootPly)
	case w != Empty:
		return -(MateValue - ttable.Value(len(b.history)-b.rootPly))
	case b.full():
		return 0
	}
	return b.openLines(b.onTurn) - b.openLines(b.onTurn.opponent())
}

// openLines counts lines p could still complete, weighted by how many of
// its marks they already hold.
func (b *Board) openLines(p Player) ttable.Value {
	var v ttable.Value
	for _, l := range lines {
		own := 0
		blocked := false
		for _, sq := range l {
			switch b.squares[sq] {
			case p:
				own++
			case p.opponent():
				blocked = true
			}
		}
		if !blocked {
			v += ttable.Value(1 + own*own)
		}
	}
	return v
}

// Quiescence has no tactics to resolve on this board.
func (b *Board) Quiescence(alpha, beta ttable.Value) ttable.Value {
	return b.Score()
}

func (b *Board) IsMateScore(v ttable.Value) bool {
	return v >= MateValue-mateWindow || v <= -(MateValue-mateWindow)
}

func (b *Board) Copy() asearch.GameState {
	c := &Board{
		squares:  b.squares,
		onTurn:   b.onTurn,
		history:  append([]ttable.Move(nil), b.history...),
		rootPly:  b.rootPly,
		features: b.features,
	}
	c.Keyed = ttable.Keyed{Table: b.Table, Key: b.Key, Mate: c}
	return c
}

// ParseSquare accepts 0-8 or a coordinate like b2 (column a-c, row 1-3).
func ParseSquare(s string) (ttable.Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= NumSquares {
			return ttable.NoMove, fmt.Errorf("square %d is off the board", n)
		}
		return ttable.Move(n), nil
	}
	if len(s) != 2 || s[0] < 'a' || s[0] > 'c' || s[1] < '1' || s[1] > '3' {
		return ttable.NoMove, fmt.Errorf("cannot parse square %q", s)
	}
	col := int(s[0] - 'a')
	row := int(s[1] - '1')
	return ttable.Move(row*3 + col), nil
}

func SquareName(m ttable.Move) string {
	if m >= NumSquares {
		return "--"
	}
	return string(rune('a'+int(m)%3)) + strconv.Itoa(int(m)/3+1)
}

func (b *Board) String() string {
	var sb strings.Builder
	for row := 2; row >= 0; row-- {
		fmt.Fprintf(&sb, "%d ", row+1)
		for col := 0; col < 3; col++ {
			sb.WriteString(b.squares[row*3+col].String())
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  abc\n")
	fmt.Fprintf(&sb, "%v to move\n", b.onTurn)
	return sb.String()
}
