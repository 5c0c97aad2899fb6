package structio

import "fmt"

// Whence selects how a seek's delta is interpreted.
type Whence int

const (
	// WhenceSet seeks to an absolute offset.
	WhenceSet Whence = iota
	// WhenceCurrent seeks relative to the current position.
	WhenceCurrent
	// WhenceEnd seeks relative to the end of the buffer. Only meaningful
	// for readers, whose buffer size is fixed; writers reject it.
	WhenceEnd
	// WhenceAt seeks to a runtime-supplied pool base plus delta, used by
	// indirection chains that jump relative to a section header.
	WhenceAt
)

func (w Whence) String() string {
	switch w {
	case WhenceSet:
		return "Set"
	case WhenceCurrent:
		return "Current"
	case WhenceEnd:
		return "End"
	case WhenceAt:
		return "At"
	default:
		return fmt.Sprintf("Whence(%d)", int(w))
	}
}

// cursor tracks a position within a fixed-size window and validates seeks
// against it. Both Reader and Writer embed one; Writer's window grows as
// it writes, so its size is refreshed on every write.
type cursor struct {
	pos  uint32
	size uint32
}

func (c *cursor) tell() uint32 { return c.pos }

func (c *cursor) seekSet(pos uint32) { c.pos = pos }

func (c *cursor) startpos() uint32 { return 0 }

func (c *cursor) endpos() uint32 { return c.size }

// seek applies whence + delta (+ pool, for WhenceAt) to the cursor. allowEnd
// controls whether WhenceEnd is accepted -- the reader allows it, the
// writer does not, since its buffer has no fixed end.
func (c *cursor) seek(w Whence, delta int32, pool uint32, allowEnd bool) error {
	switch w {
	case WhenceSet:
		c.pos = uint32(delta)
	case WhenceCurrent:
		if delta != 0 {
			c.pos = uint32(int64(c.pos) + int64(delta))
		}
	case WhenceEnd:
		if !allowEnd {
			return fmt.Errorf("structio: Whence.End is not valid for this stream")
		}
		c.pos = uint32(int64(c.size) - int64(delta))
	case WhenceAt:
		c.pos = uint32(int64(delta) + int64(pool))
	default:
		return fmt.Errorf("structio: invalid whence %v", w)
	}
	return nil
}
