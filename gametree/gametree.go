// Package gametree is a game whose positions are the nodes of an explicit
// tree. Nodes may be shared between parents to model transpositions. It is
// used to check search results against hand-computed values.
package gametree

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
	"lukechampine.com/frand"

	"github.com/domino14/asearch/asearch"
	"github.com/domino14/asearch/ttable"
)

// MateThreshold: leaf scores at or beyond this magnitude are mate scores.
const MateThreshold = ttable.Value(30000)

type Node struct {
	// Label identifies the position. Nodes with the same label hash to
	// the same key. Empty labels are filled in from the node's path.
	Label string
	// Score is the evaluation from the perspective of the side to move
	// at this node.
	Score    ttable.Value
	Terminal bool
	Children []*Node

	key uint64
}

func Leaf(score ttable.Value) *Node {
	return &Node{Score: score, Terminal: true}
}

func Branch(children ...*Node) *Node {
	return &Node{Children: children}
}

func (n *Node) isLeaf() bool {
	return n.Terminal || len(n.Children) == 0
}

func label(n *Node, path string) {
	if n.Label == "" {
		n.Label = path
	}
	n.key = xxhash.Sum64String(n.Label)
	for i, c := range n.Children {
		if c.key == 0 || c.Label == "" {
			label(c, path+"."+strconv.Itoa(i))
		}
	}
}

// Tree is a position in a node tree. It implements asearch.GameState.
type Tree struct {
	ttable.Keyed

	root  *Node
	path  []*Node
	moves []ttable.Move

	// Made counts MakeMove calls.
	Made int
}

func New(root *Node, table *ttable.TranspositionTable) *Tree {
	label(root, "r")
	t := &Tree{root: root, path: []*Node{root}}
	t.Keyed = ttable.Keyed{Table: table, Mate: t}
	t.CreateHash()
	return t
}

func (t *Tree) current() *Node {
	return t.path[len(t.path)-1]
}

func (t *Tree) LegalMoves() []ttable.Move {
	n := t.current()
	if n.isLeaf() {
		return nil
	}
	moves := make([]ttable.Move, len(n.Children))
	for i := range n.Children {
		moves[i] = ttable.Move(i)
	}
	return moves
}

func (t *Tree) MakeMove(m ttable.Move) {
	child := t.current().Children[m]
	t.path = append(t.path, child)
	t.moves = append(t.moves, m)
	t.Key = child.key
	t.Made++
}

func (t *Tree) UndoMove(m ttable.Move) {
	last := len(t.moves) - 1
	if last < 0 || t.moves[last] != m {
		panic(fmt.Sprintf("undo of move %d does not match the last move made", m))
	}
	t.moves = t.moves[:last]
	t.path = t.path[:len(t.path)-1]
	t.Key = t.current().key
}

func (t *Tree) IsTerminal() bool {
	return t.current().Terminal
}

func (t *Tree) Score() ttable.Value {
	return t.current().Score
}

func (t *Tree) Quiescence(alpha, beta ttable.Value) ttable.Value {
	return t.current().Score
}

func (t *Tree) IsMateScore(v ttable.Value) bool {
	return v >= MateThreshold || v <= -MateThreshold
}

func (t *Tree) CreateHash() {
	t.Key = xxhash.Sum64String(t.current().Label)
}

// Depth is the number of moves made from the root.
func (t *Tree) Depth() int {
	return len(t.moves)
}

func (t *Tree) String() string {
	labels := make([]string, len(t.path))
	for i, n := range t.path {
		labels[i] = n.Label
	}
	return strings.Join(labels, " -> ")
}

func (t *Tree) Copy() asearch.GameState {
	c := &Tree{
		root:  t.root,
		path:  append([]*Node(nil), t.path...),
		moves: append([]ttable.Move(nil), t.moves...),
	}
	c.Keyed = ttable.Keyed{Table: t.Table, Key: t.Key, Mate: c}
	return c
}

// Negamax returns the exact value of n searched to the leaves.
func Negamax(n *Node) ttable.Value {
	return negamax(n, map[*Node]ttable.Value{})
}

func negamax(n *Node, memo map[*Node]ttable.Value) ttable.Value {
	if v, ok := memo[n]; ok {
		return v
	}
	v := n.Score
	if !n.isLeaf() {
		v = -ttable.Infinity
		for _, c := range n.Children {
			v = max(v, -negamax(c, memo))
		}
	}
	memo[n] = v
	return v
}

// OrderChildren sorts every node's children best-first for the side to
// move, which is the ordering principal variation search assumes.
func OrderChildren(root *Node) {
	memo := map[*Node]ttable.Value{}
	negamax(root, memo)
	seen := map[*Node]bool{}
	var order func(n *Node)
	order = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		sort.SliceStable(n.Children, func(i, j int) bool {
			return memo[n.Children[i]] < memo[n.Children[j]]
		})
		for _, c := range n.Children {
			order(c)
		}
	}
	order(root)
}

// NewRNG returns a deterministic generator for reproducible trees.
func NewRNG(seed uint64) *frand.RNG {
	s := make([]byte, 32)
	binary.LittleEndian.PutUint64(s, seed)
	return frand.NewCustom(s, 1024, 12)
}

// RandomTree builds a tree of the given height. Every internal node has
// between 1 and maxBranching children; scores are drawn from
// [-spread, spread]. Internal nodes carry a heuristic score too, so that
// searches shallower than the tree are meaningful.
func RandomTree(rng *frand.RNG, height, maxBranching, spread int) *Node {
	score := func() ttable.Value {
		return ttable.Value(rng.Intn(2*spread+1) - spread)
	}
	var build func(h int) *Node
	build = func(h int) *Node {
		if h == 0 {
			return &Node{Score: score(), Terminal: true}
		}
		n := &Node{Score: score()}
		nc := 1 + rng.Intn(maxBranching)
		for i := 0; i < nc; i++ {
			n.Children = append(n.Children, build(h-1))
		}
		return n
	}
	return build(height)
}
