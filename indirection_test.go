package structio

import "testing"

type captureHandler struct {
	name string
	got  uint32
}

func (h *captureHandler) Name() string { return h.name }
func (h *captureHandler) OnRead(r *Reader, ctx any) error {
	h.got = Read[uint32](r, EndianBig)
	return nil
}

func TestDispatchSingleIndirection(t *testing.T) {
	buf := make([]byte, 12)
	encodeScalar[uint32](buf[0:4], 8, true) // pointer -> offset 8
	encodeScalar[uint32](buf[8:12], 0xDEADBEEF, true)

	r := NewReader(buf, nil)
	ind := Indirection{IsPointed: true, OffsetType: OffsetU32, Whence: WhenceSet}
	h := &captureHandler{name: "value"}

	beforeStack := r.stack.size
	if err := Dispatch(r, h, ind, true, nil, 0); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.got != 0xDEADBEEF {
		t.Fatalf("handler read 0x%x, want 0xDEADBEEF", h.got)
	}
	if r.Tell() != 4 {
		t.Fatalf("cursor after seekBack dispatch = %d, want 4", r.Tell())
	}
	if r.stack.size != beforeStack {
		t.Fatalf("dispatch stack size = %d, want %d (balanced)", r.stack.size, beforeStack)
	}
}

func TestDispatchChainedIndirection(t *testing.T) {
	buf := make([]byte, 20)
	encodeScalar[uint32](buf[0:4], 8, true)   // pointer 1 -> offset 8
	encodeScalar[uint32](buf[8:12], 16, true) // pointer 2 -> offset 16
	encodeScalar[uint32](buf[16:20], 0xDEADBEEF, true)

	r := NewReader(buf, nil)
	second := Indirection{IsPointed: true, OffsetType: OffsetU32, Whence: WhenceSet}
	first := Indirection{IsPointed: true, OffsetType: OffsetU32, Whence: WhenceSet, Next: &second}
	h := &captureHandler{name: "chained"}

	if err := Dispatch(r, h, first, true, nil, 0); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.got != 0xDEADBEEF {
		t.Fatalf("handler read 0x%x, want 0xDEADBEEF", h.got)
	}
	if r.Tell() != 4 {
		t.Fatalf("cursor after chained dispatch = %d, want 4 (after outermost pointer)", r.Tell())
	}
}

func TestDispatchDirectIsNoOpIndirection(t *testing.T) {
	buf := make([]byte, 4)
	encodeScalar[uint32](buf[0:4], 7, true)

	r := NewReader(buf, nil)
	h := &captureHandler{name: "direct"}
	if err := Dispatch(r, h, Direct, true, nil, 0); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.got != 7 {
		t.Fatalf("handler read %d, want 7", h.got)
	}
	if r.Tell() != 0 {
		t.Fatalf("cursor after Direct dispatch = %d, want 0 (seekBack restores the start even though the handler consumed a u32)", r.Tell())
	}
}

type stackRecordingHandler struct {
	jump           uint32
	parentJump     uint32
	parentJumpSize uint32
	sawParent      bool
}

func (h *stackRecordingHandler) Name() string { return "recorder" }
func (h *stackRecordingHandler) OnRead(r *Reader, ctx any) error {
	if top := r.stack.top(); top != nil {
		h.jump = top.Jump
	}
	if parent := r.stack.parent(); parent != nil {
		h.parentJump, h.parentJumpSize, h.sawParent = parent.Jump, parent.JumpSize, true
	}
	return nil
}

func TestDispatchAttributesJumpSiteToOffsetField(t *testing.T) {
	buf := make([]byte, 8)
	encodeScalar[uint32](buf[0:4], 4, true)

	r := NewReader(buf, nil)
	closeOuter := r.ScopedRegion("outer")
	defer closeOuter()
	ind := Indirection{IsPointed: true, OffsetType: OffsetU32, Whence: WhenceSet}
	h := &stackRecordingHandler{}

	if err := Dispatch(r, h, ind, true, nil, 0); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.jump != 4 {
		t.Fatalf("top frame jump inside handler = %d, want 4 (handler's own start)", h.jump)
	}
	if !h.sawParent || h.parentJump != 0 || h.parentJumpSize != 4 {
		t.Fatalf("parent frame inside handler = jump %d size %d (seen %v), want jump 0 size 4 (the offset field just consumed)", h.parentJump, h.parentJumpSize, h.sawParent)
	}
}

func TestDispatchStackOverflow(t *testing.T) {
	buf := make([]byte, 4)
	r := NewReader(buf, nil)
	for i := 0; i < dispatchStackCapacity; i++ {
		r.stack.push(Frame{})
	}
	h := &captureHandler{name: "overflow"}
	err := Dispatch(r, h, Direct, true, nil, 0)
	if err == nil {
		t.Fatal("expected an error once the dispatch stack is at capacity")
	}
}
