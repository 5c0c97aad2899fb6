package structio

import "testing"

func TestScalarRoundTrip(t *testing.T) {
	buf := make([]byte, 8)

	encodeScalar[uint32](buf, 0x12345678, true)
	if got := decodeScalar[uint32](buf, true); got != 0x12345678 {
		t.Fatalf("big-endian round trip: got 0x%x", got)
	}

	encodeScalar[uint32](buf, 0x12345678, false)
	if got := decodeScalar[uint32](buf, false); got != 0x12345678 {
		t.Fatalf("little-endian round trip: got 0x%x", got)
	}

	encodeScalar[float64](buf, 3.5, true)
	if got := decodeScalar[float64](buf, true); got != 3.5 {
		t.Fatalf("float64 round trip: got %v", got)
	}
}

func TestEndianByteOrderDiffers(t *testing.T) {
	buf := make([]byte, 4)
	encodeScalar[uint32](buf, 0x11223344, true)
	be := decodeScalar[uint32](buf, true)
	le := decodeScalar[uint32](buf, false)
	if be == le {
		t.Fatal("expected big/little decode of the same bytes to differ")
	}
	if le != 0x44332211 {
		t.Fatalf("little-endian reinterpretation: got 0x%x", le)
	}
}

func TestSwapEndian(t *testing.T) {
	v := uint32(0x01020304)
	swapped := swapEndian(v)
	if swapped != 0x04030201 {
		t.Fatalf("swapEndian(0x%x) = 0x%x", v, swapped)
	}
	if swapEndian(swapped) != v {
		t.Fatal("swapEndian should be its own inverse")
	}
}

func TestSizeOf(t *testing.T) {
	cases := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"uint8", sizeOf[uint8](), 1},
		{"int16", sizeOf[int16](), 2},
		{"uint32", sizeOf[uint32](), 4},
		{"float32", sizeOf[float32](), 4},
		{"uint64", sizeOf[uint64](), 8},
		{"float64", sizeOf[float64](), 8},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("sizeOf %s = %d, want %d", c.name, c.got, c.want)
		}
	}
}
