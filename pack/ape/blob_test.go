package ape

import (
	"testing"

	"github.com/pkg/errors"
)

func TestRelocateNullOffset(t *testing.T) {
	rl := NewRelocator(NewBlob(make([]byte, 0x40)))

	for _, count := range []uint32{0, 1, 100, 0xffffffff} {
		ref, err := rl.Relocate(0, count, 0x10)
		if err != nil {
			t.Errorf("Relocate(0, %d, 0x10) returned error %v", count, err)
		}
		if !ref.IsNull() {
			t.Errorf("Relocate(0, %d, 0x10) returned non-null reference", count)
		}
	}
}

func TestRelocateValid(t *testing.T) {
	data := make([]byte, 0x40)
	for i := range data {
		data[i] = byte(i)
	}
	rl := NewRelocator(NewBlob(data))

	ref, err := rl.Relocate(0x10, 4, 8)
	if err != nil {
		t.Fatalf("Relocate(0x10, 4, 8) returned error %v", err)
	}
	if ref.IsNull() {
		t.Fatal("valid reference reported as null")
	}
	if ref.Offset() != 0x10 || ref.Size() != 0x20 {
		t.Errorf("got offset 0x%x size 0x%x, expected 0x10 and 0x20", ref.Offset(), ref.Size())
	}
	b := ref.Bytes()
	if len(b) != 0x20 || b[0] != 0x10 || b[0x1f] != 0x2f {
		t.Errorf("reference bytes window is wrong: len %d first 0x%x last 0x%x", len(b), b[0], b[len(b)-1])
	}
}

func TestRelocateMalformedOffset(t *testing.T) {
	rl := NewRelocator(NewBlob(make([]byte, 0x40)))

	for _, off := range []RawOffset{0x40, 0x41, 0xffffffff} {
		_, err := rl.Relocate(off, 0, 0)
		if errors.Cause(err) != ErrMalformedOffset {
			t.Errorf("Relocate(0x%x, 0, 0) error = %v, expected ErrMalformedOffset", uint32(off), err)
		}
	}
}

func TestRelocateTruncated(t *testing.T) {
	rl := NewRelocator(NewBlob(make([]byte, 0x40)))

	_, err := rl.Relocate(0x30, 2, 0x10)
	if errors.Cause(err) != ErrTruncated {
		t.Errorf("Relocate(0x30, 2, 0x10) error = %v, expected ErrTruncated", err)
	}

	// Exactly fitting array is fine
	if _, err := rl.Relocate(0x30, 1, 0x10); err != nil {
		t.Errorf("Relocate(0x30, 1, 0x10) returned error %v", err)
	}
}

func TestRelocateCountOverflow(t *testing.T) {
	rl := NewRelocator(NewBlob(make([]byte, 0x40)))

	// count*stride overflows 32 bits; must not wrap into a small size
	_, err := rl.Relocate(0x10, 0x10000000, 0x100)
	if errors.Cause(err) != ErrTruncated {
		t.Errorf("overflowing relocation error = %v, expected ErrTruncated", err)
	}
}

func TestReaderSticksOnError(t *testing.T) {
	r := reader{b: []byte{1, 2}}

	if v := r.U16(); v != 0x0102 {
		t.Errorf("U16() = 0x%x, expected 0x0102", v)
	}
	if r.U32() != 0 {
		t.Error("U32 past end of buffer returned non-zero")
	}
	if errors.Cause(r.Err()) != ErrTruncated {
		t.Errorf("Err() = %v, expected ErrTruncated", r.Err())
	}
	// Error must stay sticky for every later read
	if r.U8() != 0 || r.Err() == nil {
		t.Error("reader kept reading after failure")
	}
}

func TestReaderBigEndian(t *testing.T) {
	r := reader{b: []byte{
		0x12, 0x34, 0x56, 0x78,
		0xff, 0xfe,
		0x3f, 0x80, 0x00, 0x00,
	}}

	if v := r.U32(); v != 0x12345678 {
		t.Errorf("U32() = 0x%x, expected 0x12345678", v)
	}
	if v := r.I16(); v != -2 {
		t.Errorf("I16() = %d, expected -2", v)
	}
	if v := r.F32(); v != 1.0 {
		t.Errorf("F32() = %f, expected 1.0", v)
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}
