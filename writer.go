package structio

import "fmt"

// linkSentinel is the recognizable placeholder value written into a
// reserved link slot until the linker patches it; truncated to the slot's
// width. It's a debugging convenience only -- nothing depends on callers
// seeing this exact value, just on the reservation being recorded (spec
// design notes, "Link sentinel 0xCCCCCCCC").
const linkSentinel uint32 = 0xcccccccc

// ReferenceEntry is a pending relocation: a link written at addr (width
// bytes wide) waiting for the Linker's resolve pass to compute and patch
// the final displacement.
type ReferenceEntry struct {
	Addr      uint32
	Width     uint32
	Link      Link
	Namespace string
	BlockName string
}

// Writer is an auto-extending byte buffer with typed, endian-aware writes
// and a recorded list of link reservations for the Linker to resolve. It
// never resolves a link itself -- only the Linker's second pass does,
// once every node has been written and every symbol is known.
type Writer struct {
	cur       cursor
	buf       []byte
	bigEndian bool

	// Namespace and BlockName are set by the Linker immediately before
	// calling each node's Write, and recorded into every ReferenceEntry
	// the node produces via WriteLink.
	Namespace string
	BlockName string

	Reservations []ReferenceEntry

	// written is the high-water mark: the end of the furthest write made so
	// far, independent of how large the backing buffer has grown.
	written uint32

	// matchBuffer, when non-nil, is compared byte-for-byte against every
	// scalar write (skipping floats and the sentinel) to catch
	// regressions against a known-good reference encoding. Debug-only.
	matchBuffer []byte
	matchSink   Sink

	// BreakpointProcess is called with the width of every scalar write
	// before it happens -- a hook point for interactive debugging. Nil
	// by default (no-op).
	BreakpointProcess func(width uint32)
}

// NewWriter creates a writer with an initial capacity of size bytes (it
// grows as needed; size is just a hint).
func NewWriter(size uint32) *Writer {
	return &Writer{
		cur:       cursor{pos: 0, size: size},
		buf:       make([]byte, size),
		bigEndian: DefaultBigEndian,
	}
}

func (w *Writer) Tell() uint32     { return w.cur.tell() }
func (w *Writer) StartPos() uint32 { return w.cur.startpos() }
func (w *Writer) EndPos() uint32   { return w.cur.endpos() }

func (w *Writer) SeekSet(pos uint32) { w.cur.seekSet(pos) }

// Seek applies whence+delta (+pool for WhenceAt). WhenceEnd is rejected:
// the writer's buffer has no fixed end to seek relative to.
func (w *Writer) Seek(whence Whence, delta int32, pool uint32) error {
	return w.cur.seek(whence, delta, pool, false)
}

func (w *Writer) SwitchEndian()      { w.bigEndian = !w.bigEndian }
func (w *Writer) SetEndian(big bool) { w.bigEndian = big }
func (w *Writer) IsBigEndian() bool  { return w.bigEndian }

// SetMatchBuffer installs a reference encoding that subsequent scalar
// writes are checked against in Debug builds; violations are reported to
// sink (or discarded if sink is nil).
func (w *Writer) SetMatchBuffer(ref []byte, sink Sink) {
	w.matchBuffer = ref
	if sink == nil {
		sink = DiscardSink
	}
	w.matchSink = sink
}

func (w *Writer) grow(upto uint32) {
	for uint32(len(w.buf)) < upto {
		w.buf = append(w.buf, 0)
	}
	if w.cur.size < uint32(len(w.buf)) {
		w.cur.size = uint32(len(w.buf))
	}
}

func (w *Writer) breakpoint(width uint32) {
	if w.BreakpointProcess != nil {
		w.BreakpointProcess(width)
	}
}

// Write encodes val at the current position, growing the buffer as
// needed, and advances the cursor by sizeof(T). checkMatch controls
// whether this write participates in the debug match-buffer check;
// floating-point writes always skip it, since byte comparison of NaN
// payloads isn't well defined.
func Write[T Scalar](w *Writer, val T, checkMatch bool) {
	width := sizeOf[T]()
	at := w.Tell()
	w.grow(at + width)
	w.breakpoint(width)

	big := w.bigEndian
	dst := w.buf[at : at+width]

	if Debug && checkMatch && !isFloatScalar[T]() && w.matchBuffer != nil && uint32(len(w.matchBuffer)) >= at+width {
		before := decodeScalar[T](w.matchBuffer[at:at+width], big)
		sentinel := decodeScalar[T](sentinelBytes(width, big), big)
		if before != val && val != sentinel {
			w.matchSink(Warning{
				Kind:    WarningMatchViolation,
				Message: fmt.Sprintf("matching violation at 0x%x: writing %v where reference has %v", at, val, before),
				Begin:   at,
				End:     at + width,
				Fatal:   false,
			})
		}
	}

	encodeScalar(dst, val, big)
	w.cur.pos += width
	w.markWritten(at + width)
}

func (w *Writer) markWritten(upto uint32) {
	if upto > w.written {
		w.written = upto
	}
}

func isFloatScalar[T Scalar]() bool {
	var z T
	switch any(z).(type) {
	case float32, float64:
		return true
	default:
		return false
	}
}

func sentinelBytes(width uint32, big bool) []byte {
	b := make([]byte, width)
	v := linkSentinel
	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		putU16(b, uint16(v), big)
	case 4:
		putU32(b, v, big)
	case 8:
		putU64(b, uint64(v), big)
	}
	return b
}

// WriteN writes the low nbytes of val in the writer's endian, growing the
// buffer as needed.
func (w *Writer) WriteN(nbytes uint32, val uint32) {
	at := w.Tell()
	w.grow(at + nbytes)
	w.breakpoint(nbytes)

	buf := sentinelBytesGeneric(nbytes, val, w.bigEndian)
	copy(w.buf[at:at+nbytes], buf)
	w.cur.pos += nbytes
	w.markWritten(at + nbytes)
}

func sentinelBytesGeneric(nbytes uint32, val uint32, big bool) []byte {
	full := make([]byte, 4)
	putU32(full, val, big)
	if !big {
		return full[:nbytes]
	}
	return full[4-nbytes:]
}

// WriteLink records a reservation for the Linker to resolve and claims
// width bytes with the sentinel pattern.
func WriteLink[T Scalar](w *Writer, link Link) {
	width := sizeOf[T]()
	w.Reservations = append(w.Reservations, ReferenceEntry{
		Addr:      w.Tell(),
		Width:     width,
		Link:      link,
		Namespace: w.Namespace,
		BlockName: w.BlockName,
	})
	Write[T](w, decodeScalar[T](sentinelBytes(width, w.bigEndian), w.bigEndian), false)
}

// Bytes returns the writer's buffer, truncated to the highest position
// ever written to.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.written]
}
