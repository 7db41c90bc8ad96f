package ttable

// 16 bytes (entrySize) once aligned.
type entry struct {
	key   uint64
	value int16
	// Schema, low bits first:
	// 5 bits for depth
	// 3 bits for flag
	// 22 bits for move
	// 2 bits unused
	meta uint32
}

const entrySize = 16

const (
	depthBits = 5
	flagBits  = 3

	depthMask = (1 << depthBits) - 1
	flagMask  = (1 << flagBits) - 1
	moveMask  = (1 << moveBits) - 1

	flagShift = depthBits
	moveShift = depthBits + flagBits

	// MaxDepth is the deepest search depth an entry can record. Deeper
	// results are stored as MaxDepth, so they read back as outdated for
	// requests beyond it.
	MaxDepth = depthMask
)

func packMeta(depth int, flag Flag, m Move) uint32 {
	if depth > MaxDepth {
		depth = MaxDepth
	} else if depth < 0 {
		depth = 0
	}
	if m > MaxMove {
		m = NoMove
	}
	return uint32(depth) | uint32(flag&flagMask)<<flagShift | uint32(m&moveMask)<<moveShift
}

func (e entry) depth() int {
	return int(e.meta & depthMask)
}

func (e entry) flag() Flag {
	return Flag((e.meta >> flagShift) & flagMask)
}

func (e entry) move() Move {
	return Move((e.meta >> moveShift) & moveMask)
}

func (e entry) valid() bool {
	return e.flag() != Invalid
}
