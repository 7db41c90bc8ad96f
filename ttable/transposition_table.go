package ttable

import (
	"math"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/asearch/zobrist"
)

// DefaultMemoryFraction is the share of physical memory used when no
// explicit budget is given.
const DefaultMemoryFraction = 0.25

type TableLock interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type FakeLock struct{}

func (f FakeLock) Lock()    {}
func (f FakeLock) Unlock()  {}
func (f FakeLock) RLock()   {}
func (f FakeLock) RUnlock() {}

// TranspositionTable caches search results keyed by a position's Zobrist
// hash. Every Put overwrites whatever lives in the slot.
type TranspositionTable struct {
	TableLock
	table    []entry
	sizeMask uint64

	created    atomic.Uint64
	lookups    atomic.Uint64
	hits       atomic.Uint64
	collisions atomic.Uint64

	zobrist *zobrist.Zobrist
}

// Stats is a snapshot of the table's counters.
type Stats struct {
	Size       int    `yaml:"size"`
	Created    uint64 `yaml:"created"`
	Lookups    uint64 `yaml:"lookups"`
	Hits       uint64 `yaml:"hits"`
	Collisions uint64 `yaml:"collisions"`
}

// New returns an initialized, single-threaded table.
func New(memoryMB, numHashFeatures int) *TranspositionTable {
	t := &TranspositionTable{}
	t.SetSingleThreadedMode()
	t.Initialize(memoryMB, numHashFeatures)
	return t
}

func (t *TranspositionTable) SetSingleThreadedMode() {
	t.TableLock = &FakeLock{}
}

func (t *TranspositionTable) SetMultiThreadedMode() {
	t.TableLock = new(sync.RWMutex)
}

// entriesFor returns the largest power of two whose storage fits in
// budget bytes. It never returns less than 1.
func entriesFor(budget uint64) int {
	n := budget / entrySize
	if n == 0 {
		return 1
	}
	return 1 << (bits.Len64(n) - 1)
}

// Initialize allocates the table to fit in memoryMB megabytes and draws
// numHashFeatures Zobrist features. A non-positive budget sizes the table
// from physical memory instead.
func (t *TranspositionTable) Initialize(memoryMB, numHashFeatures int) {
	if memoryMB <= 0 {
		t.InitializeFraction(DefaultMemoryFraction, numHashFeatures)
		return
	}
	t.allocate(entriesFor(uint64(memoryMB)<<20), numHashFeatures)
}

// InitializeFraction sizes the table to a fraction of total system memory.
func (t *TranspositionTable) InitializeFraction(fractionOfMemory float64, numHashFeatures int) {
	totalMem := memory.TotalMemory()
	budget := uint64(math.Max(0, fractionOfMemory*float64(totalMem)))
	log.Debug().Uint64("total-system-memory-bytes", totalMem).
		Float64("fraction", fractionOfMemory).Msg("sizing-transposition-table")
	t.allocate(entriesFor(budget), numHashFeatures)
}

func (t *TranspositionTable) allocate(numElems, numHashFeatures int) {
	if t.TableLock == nil {
		t.SetSingleThreadedMode()
	}
	t.Lock()
	defer t.Unlock()

	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		clear(t.table)
	} else {
		t.table = make([]entry, numElems)
	}
	t.sizeMask = uint64(numElems - 1)

	if t.zobrist == nil || t.zobrist.NumFeatures() != numHashFeatures {
		t.zobrist = &zobrist.Zobrist{}
		t.zobrist.Initialize(numHashFeatures)
	}
	t.resetCounters()

	log.Info().Int("num-elems", numElems).
		Int("estimated-total-memory-bytes", numElems*entrySize).
		Int("num-hash-features", numHashFeatures).
		Bool("reset", reset).
		Msg("transposition-table-size")
}

// Reset clears every entry and counter but keeps the allocation.
func (t *TranspositionTable) Reset() {
	t.Lock()
	defer t.Unlock()
	clear(t.table)
	t.resetCounters()
}

func (t *TranspositionTable) resetCounters() {
	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.collisions.Store(0)
}

// Size is the number of slots.
func (t *TranspositionTable) Size() int {
	return len(t.table)
}

func (t *TranspositionTable) Zobrist() *zobrist.Zobrist {
	return t.zobrist
}

// Put stores pair for the position with hash key. The flag is derived from
// the window the node was searched with. Mate scores are shifted by ply so
// that they no longer depend on the distance from the root. A shift that
// would leave the int16 range saturates at Infinity-1 instead of wrapping.
func (t *TranspositionTable) Put(key uint64, depth, ply int, alpha, beta Value, pair Pair, ms MateScorer) {
	if len(t.table) == 0 {
		return
	}
	isMate := ms != nil && ms.IsMateScore(pair.Value)

	var flag Flag
	switch {
	case depth == 0 && !isMate:
		flag = Quiescent
	case pair.Value >= beta:
		flag = LowerBound
	case pair.Value <= alpha:
		flag = UpperBound
	default:
		flag = Exact
	}

	value := pair.Value
	if isMate {
		value = toTableScore(value, ply)
	}

	idx := key & t.sizeMask
	t.Lock()
	defer t.Unlock()
	resident := t.table[idx]
	if resident.valid() && resident.key != key {
		t.collisions.Add(1)
	}
	t.table[idx] = entry{
		key:   key,
		value: int16(value),
		meta:  packMeta(depth, flag, pair.Move),
	}
	t.created.Add(1)
}

// Get looks up the position with hash key. The returned pair is only
// meaningful when the flag is not Invalid. A mate value is always returned
// relative to the root, whatever the flag: the ply shift applied by Put is
// undone for Quiescent and Outdated entries too.
func (t *TranspositionTable) Get(key uint64, depth, ply int, ms MateScorer) (Pair, Flag) {
	t.lookups.Add(1)
	if len(t.table) == 0 {
		return Pair{Move: NoMove}, Invalid
	}
	t.RLock()
	e := t.table[key&t.sizeMask]
	t.RUnlock()

	if !e.valid() || e.key != key {
		return Pair{Move: NoMove}, Invalid
	}
	t.hits.Add(1)

	pair := Pair{Value: Value(e.value), Move: e.move()}
	isMate := ms != nil && ms.IsMateScore(pair.Value)
	if isMate {
		pair.Value = fromTableScore(pair.Value, ply)
	}

	switch {
	case e.depth() == 0:
		return pair, Quiescent
	case e.depth() < depth && !isMate:
		return pair, Outdated
	}
	return pair, e.flag()
}

func toTableScore(v Value, ply int) Value {
	if v > 0 {
		return clampScore(int(v) + ply)
	}
	return clampScore(int(v) - ply)
}

func fromTableScore(v Value, ply int) Value {
	if v > 0 {
		return clampScore(int(v) - ply)
	}
	return clampScore(int(v) + ply)
}

// clampScore saturates a shifted score so that it keeps its sign in an
// int16 slot. Infinity itself stays reserved for the search window.
func clampScore(v int) Value {
	if v > int(Infinity-1) {
		return Infinity - 1
	}
	if v < -int(Infinity-1) {
		return -(Infinity - 1)
	}
	return Value(v)
}

func (t *TranspositionTable) Stats() Stats {
	return Stats{
		Size:       len(t.table),
		Created:    t.created.Load(),
		Lookups:    t.lookups.Load(),
		Hits:       t.hits.Load(),
		Collisions: t.collisions.Load(),
	}
}

// LogStats reports the aggregate counters. Purely informational.
func (t *TranspositionTable) LogStats() {
	s := t.Stats()
	log.Info().
		Int("ttable-size", s.Size).
		Uint64("ttable-created", s.Created).
		Uint64("ttable-lookups", s.Lookups).
		Uint64("ttable-hits", s.Hits).
		Uint64("ttable-collisions", s.Collisions).
		Msg("ttable-stats")
}
