package structio

import "fmt"

// OffsetType is the width and signedness of the offset field an
// indirection link reads before jumping.
type OffsetType int

const (
	OffsetI8 OffsetType = iota
	OffsetU8
	OffsetI16
	OffsetU16
	OffsetI32
	OffsetU32
)

// Width returns the byte width of the offset field.
func (t OffsetType) Width() uint32 {
	switch t {
	case OffsetI8, OffsetU8:
		return 1
	case OffsetI16, OffsetU16:
		return 2
	case OffsetI32, OffsetU32:
		return 4
	default:
		return 0
	}
}

func readOffsetValue(r *Reader, t OffsetType) int32 {
	switch t {
	case OffsetI8:
		return int32(Read[int8](r, EndianCurrent))
	case OffsetU8:
		return int32(Read[uint8](r, EndianCurrent))
	case OffsetI16:
		return int32(Read[int16](r, EndianCurrent))
	case OffsetU16:
		return int32(Read[uint16](r, EndianCurrent))
	case OffsetI32:
		return Read[int32](r, EndianCurrent)
	case OffsetU32:
		return int32(Read[uint32](r, EndianCurrent))
	default:
		return 0
	}
}

// Indirection is one link of a compile-time-fixed-in-spirit, runtime-valued
// chain describing how to chase zero or more offset fields to reach a
// region. Direct is the built-in zero-link chain: read nothing, dispatch
// at the current position.
type Indirection struct {
	IsPointed   bool
	OffsetType  OffsetType
	Whence      Whence
	Translation int32
	Next        *Indirection
}

// Direct is the trivial indirection: the handler runs at the current
// cursor position, no offset field is consumed.
var Direct = Indirection{IsPointed: false, Whence: WhenceCurrent, Translation: 0}

// Handler is invoked by Dispatch once an indirection chain reaches its
// target region. It is stateless; ctx carries whatever mutable state the
// caller wants threaded through.
type Handler interface {
	Name() string
	OnRead(r *Reader, ctx any) error
}

// HandlerFunc adapts a plain function to the Handler interface for
// handlers that don't need their own named type.
type HandlerFunc struct {
	FuncName string
	Func     func(r *Reader, ctx any) error
}

func (h HandlerFunc) Name() string                   { return h.FuncName }
func (h HandlerFunc) OnRead(r *Reader, ctx any) error { return h.Func(r, ctx) }

// Dispatch chases ind's offset chain from the reader's current position
// and invokes h once it terminates. With seekBack (the common case), the
// cursor is restored to the position just past the outermost offset field
// (or left untouched if ind isn't pointed) regardless of what h does to
// the cursor while it runs. pool supplies the runtime base used by any
// WhenceAt link in the chain.
func Dispatch(r *Reader, h Handler, ind Indirection, seekBack bool, ctx any, pool uint32) error {
	return dispatchStep(r, h, ind, seekBack, ctx, pool)
}

func dispatchStep(r *Reader, h Handler, ind Indirection, seekBack bool, ctx any, pool uint32) error {
	start := r.Tell()

	var entryWidth uint32
	var offset int32
	if ind.IsPointed {
		entryWidth = ind.OffsetType.Width()
		offset = readOffsetValue(r, ind.OffsetType)
	}

	back := r.Tell()

	if err := r.Seek(ind.Whence, offset+ind.Translation, pool); err != nil {
		return err
	}

	var err error
	if ind.Next != nil {
		err = dispatchStep(r, h, *ind.Next, false, ctx, pool)
	} else {
		err = r.invokeHandler(h, start, entryWidth, ctx)
	}

	if seekBack {
		r.SeekSet(back)
	}

	return err
}

// invokeHandler pushes the dispatch frame describing h's region, retargets
// the parent frame's jump site so warnings raised inside h attribute it
// correctly, runs h, and unwinds both on every exit path via defer.
func (r *Reader) invokeHandler(h Handler, linkStart, entryWidth uint32, ctx any) (err error) {
	if r.stack.size >= dispatchStackCapacity {
		r.warn(Warning{
			Kind:    WarningStackOverflow,
			Message: fmt.Sprintf("dispatch stack overflow: capacity %d exceeded invoking %q", dispatchStackCapacity, h.Name()),
			Begin:   r.Tell(),
			End:     r.Tell(),
			Fatal:   true,
		})
		return fmt.Errorf("structio: dispatch stack overflow invoking handler %q", h.Name())
	}

	handlerStart := r.Tell()
	r.stack.push(Frame{Jump: handlerStart, JumpSize: 0, HandlerName: h.Name(), HandlerStart: handlerStart})
	defer r.stack.pop()

	if parent := r.stack.parent(); parent != nil {
		savedJump, savedSize := parent.Jump, parent.JumpSize
		parent.Jump = linkStart
		parent.JumpSize = entryWidth
		defer func() {
			if p := r.stack.parent(); p != nil {
				p.Jump = savedJump
				p.JumpSize = savedSize
			}
		}()
	}

	return h.OnRead(r, ctx)
}
