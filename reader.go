package structio

import "fmt"

// Reader peeks and reads fixed-width values out of an in-memory buffer,
// emitting Warnings for bounds and alignment problems rather than
// returning an error from every call -- mirroring the "poisoned reader,
// zeroed result" contract the format handlers are written against.
type Reader struct {
	cur       cursor
	buf       []byte
	bigEndian bool

	file string // informational; included in warnings if non-empty

	alignmentCheck bool
	boundsCheck    bool

	sink  Sink
	stack dispatchStack
}

// NewReader wraps buf for reading. sink may be nil, in which case warnings
// are discarded.
func NewReader(buf []byte, sink Sink) *Reader {
	if sink == nil {
		sink = DiscardSink
	}
	return &Reader{
		cur:            cursor{pos: 0, size: uint32(len(buf))},
		buf:            buf,
		bigEndian:      DefaultBigEndian,
		alignmentCheck: Debug,
		boundsCheck:    true,
		sink:           sink,
	}
}

func (r *Reader) Tell() uint32     { return r.cur.tell() }
func (r *Reader) StartPos() uint32 { return r.cur.startpos() }
func (r *Reader) EndPos() uint32   { return r.cur.endpos() }

func (r *Reader) SeekSet(pos uint32) { r.cur.seekSet(pos) }

// Seek applies whence+delta (+pool for WhenceAt). WhenceEnd is supported
// here (unlike Writer.Seek) because the input buffer has a fixed size.
func (r *Reader) Seek(w Whence, delta int32, pool uint32) error {
	return r.cur.seek(w, delta, pool, true)
}

func (r *Reader) SwitchEndian()       { r.bigEndian = !r.bigEndian }
func (r *Reader) SetEndian(big bool)  { r.bigEndian = big }
func (r *Reader) IsBigEndian() bool   { return r.bigEndian }
func (r *Reader) File() string        { return r.file }
func (r *Reader) SetFile(name string) { r.file = name }

func (r *Reader) boundsCheckAt(width, at uint32) bool {
	if !r.boundsCheck {
		return true
	}
	if at+width > r.cur.size {
		r.warn(Warning{
			Kind:    WarningBounds,
			Message: fmt.Sprintf("read of %d bytes at 0x%x exceeds buffer size 0x%x", width, at, r.cur.size),
			Begin:   at,
			End:     at + width,
			Fatal:   true,
		})
		return false
	}
	return true
}

func (r *Reader) alignmentCheckAt(width, at uint32) {
	if !r.alignmentCheck || width == 0 || at%width == 0 {
		return
	}
	r.warn(Warning{
		Kind:    WarningAlignment,
		Message: fmt.Sprintf("alignment error: 0x%x is not %d-byte aligned", at, width),
		Begin:   at,
		End:     at + width,
		Fatal:   false,
	})
}

func (r *Reader) warn(w Warning) {
	w.Stack = r.stack.snapshot()
	r.sink(w)
}

// Peek reads a T at r.Tell() without advancing the cursor.
func Peek[T Scalar](r *Reader, endian EndianSelect) T {
	width := sizeOf[T]()
	at := r.Tell()
	r.alignmentCheckAt(width, at)
	var zero T
	if !r.boundsCheckAt(width, at) {
		return zero
	}
	big := resolveBig(endian, r.bigEndian)
	return decodeScalar[T](r.buf[at:at+width], big)
}

// Read peeks a T and advances the cursor by sizeof(T).
func Read[T Scalar](r *Reader, endian EndianSelect) T {
	v := Peek[T](r, endian)
	r.cur.pos += sizeOf[T]()
	return v
}

// ReadArray reads n successive T values, host-ordered in the result.
func ReadArray[T Scalar](r *Reader, n int, endian EndianSelect) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = Read[T](r, endian)
	}
	return out
}

// PeekAt reads a T at r.Tell()+translation without advancing the cursor
// and without an alignment check (the offset is arbitrary by design).
func PeekAt[T Scalar](r *Reader, translation int32, endian EndianSelect) T {
	width := sizeOf[T]()
	at := uint32(int64(r.Tell()) + int64(translation))
	var zero T
	if !r.boundsCheckAt(width, at) {
		return zero
	}
	big := resolveBig(endian, r.bigEndian)
	return decodeScalar[T](r.buf[at:at+width], big)
}

// ExpectMagic reads a big-endian 32-bit value and compares it to magic. On
// mismatch it emits a WarningMagicMismatch; when critical is true the
// mismatch is treated as fatal and an error is returned.
func (r *Reader) ExpectMagic(magic uint32, critical bool) error {
	begin := r.Tell()
	observed := Read[uint32](r, EndianBig)
	if observed == magic {
		return nil
	}
	r.warn(Warning{
		Kind:     WarningMagicMismatch,
		Message:  formatMagicMessage(magic, observed),
		Begin:    begin,
		End:      begin + 4,
		Fatal:    critical,
		Expected: magic,
		Observed: observed,
	})
	if critical {
		return fmt.Errorf("structio: %s", formatMagicMessage(magic, observed))
	}
	return nil
}

// SignalInvalidityLast emits a Warning of the given trait referencing the
// span of the last T read ([pos-sizeof(T), pos)), with a caller message.
// kind selects which template the sink renders -- WarningUser for ad hoc
// checks, WarningBadBOM for a byte-order-mark that didn't match either
// convention, or any other trait a caller wants attributed to the value it
// just read rather than to the read itself.
func SignalInvalidityLast[T Scalar](r *Reader, kind WarningKind, msg string) {
	width := sizeOf[T]()
	end := r.Tell()
	var begin uint32
	if end >= width {
		begin = end - width
	}
	r.warn(Warning{
		Kind:    kind,
		Message: msg,
		Begin:   begin,
		End:     end,
		Fatal:   false,
	})
}

// ExpectByteOrderMark reads a 16-bit mark and adopts the byte order it
// names: 0xFEFF selects big-endian, 0xFFFE selects little-endian. Any other
// value is left as-is (the reader's endianness is unchanged) and reported
// through SignalInvalidityLast with the BadBOM trait.
func (r *Reader) ExpectByteOrderMark() {
	raw := Read[uint16](r, EndianBig)
	switch raw {
	case 0xFEFF:
		r.SetEndian(true)
	case 0xFFFE:
		r.SetEndian(false)
	default:
		SignalInvalidityLast[uint16](r, WarningBadBOM, fmt.Sprintf("unrecognized byte-order mark 0x%04x", raw))
	}
}

// ScopedRegion pushes a dispatch frame named name at the current position
// and returns a closer that pops it. Handlers that want ancestry in
// diagnostics without going through Dispatch call this and defer the
// returned function, guaranteeing the pop runs on every exit path.
func (r *Reader) ScopedRegion(name string) func() {
	start := r.Tell()
	r.stack.push(Frame{Jump: start, JumpSize: 0, HandlerName: name, HandlerStart: start})

	var hadParent bool
	var savedJump, savedSize uint32
	if parent := r.stack.parent(); parent != nil {
		savedJump, savedSize = parent.Jump, parent.JumpSize
		parent.Jump = start
		hadParent = true
	}

	return func() {
		if hadParent {
			if parent := r.stack.parent(); parent != nil {
				parent.Jump = savedJump
				parent.JumpSize = savedSize
			}
		}
		r.stack.pop()
	}
}
