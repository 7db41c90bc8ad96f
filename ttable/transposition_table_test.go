package ttable

import (
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

// mates above this magnitude are forced wins/losses in these tests.
type mateThreshold Value

func (m mateThreshold) IsMateScore(v Value) bool {
	if v < 0 {
		v = -v
	}
	return v >= Value(m)
}

const testMate = mateThreshold(30000)

func newTestTable() *TranspositionTable {
	// 1 MB / 16 bytes = 65536 slots.
	return New(1, 16)
}

func TestEntriesFor(t *testing.T) {
	cases := []struct {
		budget   uint64
		expected int
	}{
		{0, 1},
		{15, 1},
		{16, 1},
		{48, 2},
		{64, 4},
		{1 << 20, 65536},
		{(1 << 20) + 100, 65536},
		{3 << 20, 131072},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, entriesFor(c.budget), "budget %d", c.budget)
	}
}

func TestPackMeta(t *testing.T) {
	is := is.New(t)
	e := entry{meta: packMeta(23, LowerBound, 1234567)}
	is.Equal(e.depth(), 23)
	is.Equal(e.flag(), LowerBound)
	is.Equal(e.move(), Move(1234567))
	is.True(e.valid())

	e = entry{meta: packMeta(40, Exact, MaxMove+5)}
	is.Equal(e.depth(), MaxDepth)
	is.Equal(e.flag(), Exact)
	is.Equal(e.move(), NoMove)

	e = entry{meta: packMeta(0, Quiescent, NoMove)}
	is.Equal(e.depth(), 0)
	is.Equal(e.move(), NoMove)
	is.True(e.valid())

	is.True(!entry{}.valid())
}

func TestInitialize(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()
	is.Equal(tt.Size(), 65536)
	is.Equal(tt.sizeMask, uint64(65535))
	is.Equal(tt.Zobrist().NumFeatures(), 16)

	tt.Put(77, 3, 0, -10, 10, Pair{Value: 4, Move: 2}, testMate)
	features := tt.Zobrist()
	// Same size: cleared, not reallocated, and the features are kept.
	tt.Initialize(1, 16)
	is.Equal(tt.Size(), 65536)
	is.True(tt.Zobrist() == features)
	_, flag := tt.Get(77, 3, 0, testMate)
	is.Equal(flag, Invalid)

	tt.Initialize(2, 32)
	is.Equal(tt.Size(), 131072)
	is.Equal(tt.Zobrist().NumFeatures(), 32)
}

func TestInitializeFraction(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.InitializeFraction(0.0001, 4)
	is.True(tt.Size() >= 1)
	// power of two
	is.Equal(tt.Size()&(tt.Size()-1), 0)
}

func TestRoundTripClassification(t *testing.T) {
	tt := newTestTable()
	cases := []struct {
		name     string
		key      uint64
		depth    int
		alpha    Value
		beta     Value
		value    Value
		expected Flag
	}{
		{"exact", 1, 3, -10, 10, 5, Exact},
		{"fail-high", 2, 3, -10, 10, 10, LowerBound},
		{"fail-high-soft", 3, 3, -10, 10, 25, LowerBound},
		{"fail-low", 4, 3, -10, 10, -10, UpperBound},
		{"fail-low-soft", 5, 3, -10, 10, -40, UpperBound},
		{"quiescent", 6, 0, -10, 10, 5, Quiescent},
		{"quiescent-high", 7, 0, -10, 10, 500, Quiescent},
	}
	for _, c := range cases {
		pair := Pair{Value: c.value, Move: Move(c.key * 3)}
		tt.Put(c.key, c.depth, 0, c.alpha, c.beta, pair, testMate)
		got, flag := tt.Get(c.key, c.depth, 0, testMate)
		assert.Equal(t, c.expected, flag, c.name)
		assert.Equal(t, pair, got, c.name)
	}
}

func TestDepthGating(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()
	tt.Put(99, 4, 0, -100, 100, Pair{Value: 12, Move: 7}, testMate)

	_, flag := tt.Get(99, 5, 0, testMate)
	is.Equal(flag, Outdated)
	_, flag = tt.Get(99, 4, 0, testMate)
	is.Equal(flag, Exact)
	_, flag = tt.Get(99, 2, 0, testMate)
	is.Equal(flag, Exact)

	// Depth-0 entries read back as quiescent regardless of the request.
	tt.Put(100, 0, 0, -100, 100, Pair{Value: 12, Move: 7}, testMate)
	_, flag = tt.Get(100, 0, 0, testMate)
	is.Equal(flag, Quiescent)
	_, flag = tt.Get(100, 6, 0, testMate)
	is.Equal(flag, Quiescent)

	// A mate score is never outdated.
	tt.Put(101, 2, 0, -100, 100, Pair{Value: 30010, Move: 7}, testMate)
	p, flag := tt.Get(101, 9, 0, testMate)
	is.Equal(flag, LowerBound)
	is.Equal(p.Value, Value(30010))
}

func TestMissAndReset(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()

	p, flag := tt.Get(12345, 1, 0, testMate)
	is.Equal(flag, Invalid)
	is.Equal(p.Move, NoMove)

	// An empty slot must not match key 0.
	_, flag = tt.Get(0, 1, 0, testMate)
	is.Equal(flag, Invalid)

	tt.Put(12345, 2, 0, -5, 5, Pair{Value: 1, Move: 3}, testMate)
	_, flag = tt.Get(12345, 1, 0, testMate)
	is.Equal(flag, Exact)

	tt.Reset()
	is.Equal(tt.Size(), 65536)
	_, flag = tt.Get(12345, 1, 0, testMate)
	is.Equal(flag, Invalid)
	is.Equal(tt.Stats().Lookups, uint64(1))
	is.Equal(tt.Stats().Hits, uint64(0))
}

func TestMateScorePlyAdjustment(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()

	win := Value(30100)
	tt.Put(500, 3, 4, -Infinity, Infinity, Pair{Value: win, Move: 1}, testMate)
	is.Equal(tt.table[500&tt.sizeMask].value, int16(win+4))

	p, _ := tt.Get(500, 3, 4, testMate)
	is.Equal(p.Value, win)
	p, _ = tt.Get(500, 3, 7, testMate)
	is.Equal(p.Value, win-3)
	p, _ = tt.Get(500, 3, 1, testMate)
	is.Equal(p.Value, win+3)

	loss := Value(-30100)
	tt.Put(501, 3, 4, -Infinity, Infinity, Pair{Value: loss, Move: 1}, testMate)
	is.Equal(tt.table[501&tt.sizeMask].value, int16(loss-4))
	p, _ = tt.Get(501, 3, 4, testMate)
	is.Equal(p.Value, loss)
	p, _ = tt.Get(501, 3, 7, testMate)
	is.Equal(p.Value, loss+3)

	// Non-mate values are never shifted.
	tt.Put(502, 3, 4, -Infinity, Infinity, Pair{Value: 250, Move: 1}, testMate)
	p, _ = tt.Get(502, 3, 9, testMate)
	is.Equal(p.Value, Value(250))
}

func TestMateScoreShiftSaturates(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()

	tt.Put(7, 3, 5, -Infinity, Infinity, Pair{Value: Infinity - 2, Move: 1}, testMate)
	is.Equal(tt.table[7&tt.sizeMask].value, int16(Infinity-1))
	p, flag := tt.Get(7, 3, 5, testMate)
	is.Equal(flag, Exact)
	is.True(p.Value > 0)
	is.True(testMate.IsMateScore(p.Value))
	is.Equal(p.Value, Infinity-6)

	tt.Put(8, 3, 5, -Infinity, Infinity, Pair{Value: -(Infinity - 2), Move: 1}, testMate)
	is.Equal(tt.table[8&tt.sizeMask].value, int16(-(Infinity - 1)))
	p, flag = tt.Get(8, 3, 5, testMate)
	is.Equal(flag, Exact)
	is.True(p.Value < 0)
	is.True(testMate.IsMateScore(p.Value))
	is.Equal(p.Value, -(Infinity - 6))

	// Shifts past the edge saturate in both directions.
	is.Equal(fromTableScore(Infinity-1, -3), Infinity-1)
	is.Equal(toTableScore(-Infinity, 4), -(Infinity - 1))
}

func TestMateScoreIsRootRelativeForQuiescent(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()

	// A mate found at the horizon keeps depth 0, so Get reports it as
	// Quiescent, but the value still comes back unshifted.
	tt.Put(600, 0, 4, -Infinity, Infinity, Pair{Value: 30100, Move: 2}, testMate)
	is.Equal(tt.table[600&tt.sizeMask].value, int16(30104))
	p, flag := tt.Get(600, 3, 6, testMate)
	is.Equal(flag, Quiescent)
	is.Equal(p.Value, Value(30098))
	is.Equal(p.Move, Move(2))
}

func TestCollisionCounting(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()
	key := uint64(9409641586937047728)
	sameSlot := key + 1<<16

	tt.Put(key, 2, 0, -5, 5, Pair{Value: 1, Move: 1}, testMate)
	tt.Put(key, 3, 0, -5, 5, Pair{Value: 2, Move: 1}, testMate)
	tt.Put(key, 4, 0, -5, 5, Pair{Value: 3, Move: 1}, testMate)
	is.Equal(tt.Stats().Collisions, uint64(0))

	tt.Put(sameSlot, 2, 0, -5, 5, Pair{Value: 1, Move: 1}, testMate)
	is.Equal(tt.Stats().Collisions, uint64(1))

	// The old occupant is gone.
	_, flag := tt.Get(key, 2, 0, testMate)
	is.Equal(flag, Invalid)

	tt.Put(key, 2, 0, -5, 5, Pair{Value: 1, Move: 1}, testMate)
	is.Equal(tt.Stats().Collisions, uint64(2))
	is.Equal(tt.Stats().Created, uint64(5))
	is.Equal(tt.Stats().Lookups, uint64(1))
}

func TestKeyed(t *testing.T) {
	is := is.New(t)

	var k Keyed
	k.Put(3, 0, -1, 1, Pair{Value: 0, Move: 1})
	_, flag := k.Get(3, 0)
	is.Equal(flag, Invalid)

	k = Keyed{Table: newTestTable(), Key: 4242, Mate: testMate}
	k.Put(3, 2, -1, 1, Pair{Value: 0, Move: 1})
	p, flag := k.Get(3, 2)
	is.Equal(flag, Exact)
	is.Equal(p.Move, Move(1))
}

func TestMultiThreadedMode(t *testing.T) {
	is := is.New(t)
	tt := newTestTable()
	tt.SetMultiThreadedMode()
	done := make(chan bool)
	for g := 0; g < 4; g++ {
		go func(g int) {
			for i := 0; i < 1000; i++ {
				key := uint64(g*1000 + i)
				tt.Put(key, 1, 0, -5, 5, Pair{Value: 1, Move: Move(i)}, testMate)
				tt.Get(key, 1, 0, testMate)
			}
			done <- true
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}
	is.Equal(tt.Stats().Lookups, uint64(4000))
	is.Equal(tt.Stats().Created, uint64(4000))
}

func TestFlagString(t *testing.T) {
	is := is.New(t)
	is.Equal(Exact.String(), "exact")
	is.Equal(Flag(9).String(), "flag(9)")
}
