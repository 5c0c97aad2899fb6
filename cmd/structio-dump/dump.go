package main

import (
	"fmt"

	"github.com/xyproto/structio"
)

// nameCapture reads a NUL-terminated string at the dispatch target and
// stashes it through ctx, which the caller supplies as a *string.
type nameCapture struct{}

func (nameCapture) Name() string { return "name" }
func (nameCapture) OnRead(r *structio.Reader, ctx any) error {
	out := ctx.(*string)
	var b []byte
	for {
		c := structio.Read[uint8](r, structio.EndianCurrent)
		if c == 0 {
			break
		}
		b = append(b, c)
		if len(b) > 256 {
			return fmt.Errorf("name exceeds 256 bytes, probably an unresolved link")
		}
	}
	*out = string(b)
	return nil
}

var pointerIndirection = structio.Indirection{
	IsPointed:  true,
	OffsetType: structio.OffsetU32,
	Whence:     structio.WhenceAt,
}

// tableReader reads the block count and every entry once Dispatch has
// chased the header's link into the table.
type tableReader struct{}

func (tableReader) Name() string { return "table" }
func (tableReader) OnRead(r *structio.Reader, ctx any) error {
	count := structio.Read[uint32](r, structio.EndianCurrent)

	var name string
	for i := uint32(0); i < count; i++ {
		// The entry's link field begins exactly here, before it's read --
		// the same rule the writer used to compute BeginOf(entry).
		entryPool := r.Tell()
		if err := structio.Dispatch(r, nameCapture{}, pointerIndirection, true, &name, entryPool); err != nil {
			return err
		}
		value := structio.Read[uint32](r, structio.EndianCurrent)
		fmt.Printf("block[%d]: name=%q value=%d\n", i, name, value)
	}
	return nil
}

func dumpArchive(buf []byte) error {
	r := structio.NewReader(buf, warnSink)

	if err := r.ExpectMagic(magicSTIO, true); err != nil {
		return err
	}

	// The header's link field begins exactly where the cursor sits now --
	// pool must equal that, matching the from-address the linker patched
	// the stored displacement against.
	headerPool := r.Tell()
	return structio.Dispatch(r, tableReader{}, pointerIndirection, true, nil, headerPool)
}
