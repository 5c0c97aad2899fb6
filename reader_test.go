package structio

import "testing"

func TestPeekThenReadAgree(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x2a, 0xff}
	r := NewReader(buf, nil)

	peeked := Peek[uint32](r, EndianBig)
	if r.Tell() != 0 {
		t.Fatalf("Peek must not advance the cursor, tell() = %d", r.Tell())
	}

	read := Read[uint32](r, EndianBig)
	if read != peeked {
		t.Fatalf("Read() = %d, Peek() = %d, want equal", read, peeked)
	}
	if r.Tell() != 4 {
		t.Fatalf("Read must advance by sizeof(T), tell() = %d", r.Tell())
	}
	if read != 42 {
		t.Fatalf("Read() = %d, want 42", read)
	}
}

func TestBoundsCheckAtEdge(t *testing.T) {
	buf := make([]byte, 8)
	r := NewReader(buf, nil)

	r.SeekSet(4)
	if v := Peek[uint32](r, EndianBig); v != 0 {
		t.Fatalf("edge peek should succeed, got %d", v)
	}

	var warned Warning
	got := false
	r2 := NewReader(buf, func(w Warning) { warned = w; got = true })
	r2.SeekSet(5)
	_ = Peek[uint32](r2, EndianBig)
	if !got {
		t.Fatal("expected a bounds warning one byte past the edge")
	}
	if warned.Kind != WarningBounds || !warned.Fatal {
		t.Fatalf("warning = %+v, want fatal Bounds", warned)
	}
}

func TestAlignmentWarningNonFatal(t *testing.T) {
	buf := make([]byte, 16)
	var warnings []Warning
	r := NewReader(buf, func(w Warning) { warnings = append(warnings, w) })
	r.alignmentCheck = true

	r.SeekSet(1)
	_ = Read[uint32](r, EndianBig)

	if len(warnings) != 1 || warnings[0].Kind != WarningAlignment {
		t.Fatalf("warnings = %+v, want one Alignment warning", warnings)
	}
	if warnings[0].Fatal {
		t.Fatal("alignment warnings must not be fatal")
	}
}

func TestExpectMagicRoundTrip(t *testing.T) {
	w := NewWriter(4)
	Write[uint32](w, 0x12345678, false)

	r := NewReader(w.Bytes(), nil)
	if err := r.ExpectMagic(0x12345678, true); err != nil {
		t.Fatalf("matching magic should not error: %v", err)
	}
}

func TestExpectMagicMismatch(t *testing.T) {
	buf := []byte{0x12, 0x34, 0x56, 0x79} // last byte mutated
	var warnings []Warning
	r := NewReader(buf, func(w Warning) { warnings = append(warnings, w) })

	err := r.ExpectMagic(0x12345678, true)
	if err == nil {
		t.Fatal("critical mismatch should error")
	}
	if len(warnings) != 1 || warnings[0].Kind != WarningMagicMismatch {
		t.Fatalf("warnings = %+v, want exactly one MagicMismatch", warnings)
	}
	if warnings[0].Observed != 0x12345679 {
		t.Fatalf("Observed = 0x%x, want 0x12345679", warnings[0].Observed)
	}

	warnings = nil
	r2 := NewReader(buf, func(w Warning) { warnings = append(warnings, w) })
	if err := r2.ExpectMagic(0x12345678, false); err != nil {
		t.Fatalf("non-critical mismatch must not error: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Fatal {
		t.Fatal("non-critical mismatch warning must not be marked fatal")
	}
}

func TestScopedRegionBalancesStack(t *testing.T) {
	buf := make([]byte, 8)
	r := NewReader(buf, nil)

	before := r.stack.size
	func() {
		closeRegion := r.ScopedRegion("outer")
		defer closeRegion()

		closeInner := r.ScopedRegion("inner")
		defer closeInner()

		if r.stack.size != before+2 {
			t.Fatalf("stack size inside nested regions = %d, want %d", r.stack.size, before+2)
		}
	}()

	if r.stack.size != before {
		t.Fatalf("stack size after regions close = %d, want %d", r.stack.size, before)
	}
}

func TestExpectByteOrderMarkAdoptsEndianness(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xFE}, nil)
	r.SetEndian(true)
	r.ExpectByteOrderMark()
	if r.IsBigEndian() {
		t.Fatal("0xFFFE should switch the reader to little-endian")
	}

	r2 := NewReader([]byte{0xFE, 0xFF}, nil)
	r2.SetEndian(false)
	r2.ExpectByteOrderMark()
	if !r2.IsBigEndian() {
		t.Fatal("0xFEFF should switch the reader to big-endian")
	}
}

func TestExpectByteOrderMarkUnrecognizedWarnsBadBOM(t *testing.T) {
	var warnings []Warning
	r := NewReader([]byte{0x12, 0x34}, func(w Warning) { warnings = append(warnings, w) })
	r.SetEndian(true)

	r.ExpectByteOrderMark()

	if len(warnings) != 1 || warnings[0].Kind != WarningBadBOM {
		t.Fatalf("warnings = %+v, want exactly one BadBOM", warnings)
	}
	if warnings[0].Fatal {
		t.Fatal("BadBOM warning must not be fatal")
	}
	if !r.IsBigEndian() {
		t.Fatal("an unrecognized mark must not change the reader's endianness")
	}
}

func TestReadArrayHostOrdered(t *testing.T) {
	w := NewWriter(12)
	Write[uint32](w, 1, false)
	Write[uint32](w, 2, false)
	Write[uint32](w, 3, false)

	r := NewReader(w.Bytes(), nil)
	got := ReadArray[uint32](r, 3, EndianCurrent)
	want := []uint32{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadArray()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
