package ape

import (
	"github.com/pkg/errors"
)

// RawOffset is a blob-relative offset exactly as stored in the file.
// It is never usable as a pointer: the only way to dereference it is to
// pass it through a Relocator, which produces a range-checked Reference.
// Zero is the null sentinel.
type RawOffset uint32

func (o RawOffset) IsNull() bool {
	return o == 0
}

// Blob owns the raw bytes of a single asset file. Every Reference produced
// during loading is a view into this buffer and must not outlive it.
type Blob struct {
	data []byte
}

func NewBlob(data []byte) *Blob {
	return &Blob{data: data}
}

func (b *Blob) Len() int {
	return len(b.data)
}

func (b *Blob) Bytes() []byte {
	return b.data
}

// Reference is the post-relocation counterpart of RawOffset: either null,
// or a validated byte range inside the blob.
type Reference struct {
	blob *Blob
	off  uint32
	size uint32
}

func (r Reference) IsNull() bool {
	return r.blob == nil
}

func (r Reference) Offset() uint32 {
	return r.off
}

func (r Reference) Size() uint32 {
	return r.size
}

// Bytes returns the referenced range. Null references yield nil.
func (r Reference) Bytes() []byte {
	if r.IsNull() {
		return nil
	}
	return r.blob.data[r.off : r.off+r.size]
}

// Relocator converts stored offsets into validated references against one
// blob. All offsets in the format are blob-relative, never parent-relative,
// so a single relocator serves the whole structure graph.
type Relocator struct {
	blob *Blob
}

func NewRelocator(b *Blob) *Relocator {
	return &Relocator{blob: b}
}

// Relocate validates that count*stride bytes starting at o fit inside the
// blob. A null offset relocates to the null Reference no matter what the
// sibling count says. A zero count validates the offset only, which is how
// regions of unverified layout (shader registers, collision trees) are kept
// addressable without trusting their contents.
func (rl *Relocator) Relocate(o RawOffset, count, stride uint32) (Reference, error) {
	if o.IsNull() {
		return Reference{}, nil
	}
	off := uint64(o)
	size := uint64(count) * uint64(stride)
	if off >= uint64(rl.blob.Len()) {
		return Reference{}, errors.Wrapf(ErrMalformedOffset, "offset 0x%x beyond blob size 0x%x", off, rl.blob.Len())
	}
	if off+size > uint64(rl.blob.Len()) {
		return Reference{}, errors.Wrapf(ErrTruncated, "range [0x%x:0x%x] beyond blob size 0x%x", off, off+size, rl.blob.Len())
	}
	return Reference{blob: rl.blob, off: uint32(off), size: uint32(size)}, nil
}
