package ape

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// reader is a big-endian cursor over the blob. The file stores structures
// as they existed in the original console's memory, numeric fields in
// big-endian order, so every multi-byte read converts to host order here
// and nowhere else. Name buffers and u8 arrays go through Bytes untouched.
//
// Errors are sticky: after the first failed read every following read
// returns zero values and Err() reports the failure, so struct decoders
// can read all fields in declaration order and check once at the end.
type reader struct {
	b   []byte
	off uint32
	pos uint32
	err error
}

func newReader(blob *Blob, off uint32) *reader {
	return &reader{b: blob.data, off: off}
}

func newRefReader(ref Reference) *reader {
	return &reader{b: ref.blob.data, off: ref.off}
}

func (r *reader) fail(n uint32) {
	if r.err == nil {
		r.err = errors.Wrapf(ErrTruncated, "read of %d bytes at 0x%x", n, r.off+r.pos)
	}
}

func (r *reader) take(n uint32) []byte {
	if r.err != nil {
		return nil
	}
	start := uint64(r.off) + uint64(r.pos)
	if start+uint64(n) > uint64(len(r.b)) {
		r.fail(n)
		return nil
	}
	r.pos += n
	return r.b[start : start+uint64(n)]
}

func (r *reader) Err() error { return r.err }

func (r *reader) Skip(n uint32) { r.take(n) }

func (r *reader) U8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) I8() int8 { return int8(r.U8()) }

func (r *reader) U16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) I16() int16 { return int16(r.U16()) }

func (r *reader) U32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Offset reads a stored pointer field. The value stays a RawOffset until
// the relocator checks it.
func (r *reader) Offset() RawOffset {
	return RawOffset(r.U32())
}

// Bytes copies out a fixed-width opaque region (names, index arrays);
// no byte order conversion is applied.
func (r *reader) Bytes(n uint32) []byte {
	b := r.take(n)
	if b == nil {
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) Vec2() mgl32.Vec2 {
	return mgl32.Vec2{r.F32(), r.F32()}
}

func (r *reader) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{r.F32(), r.F32(), r.F32()}
}

func (r *reader) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{r.F32(), r.F32(), r.F32(), r.F32()}
}

func (r *reader) Sphere() Sphere {
	return Sphere{Radius: r.F32(), Center: r.Vec3()}
}

func (r *reader) Mtx43() Mtx43 {
	return Mtx43{r.Vec3(), r.Vec3(), r.Vec3(), r.Vec3()}
}
