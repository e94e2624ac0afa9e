package ape

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const (
	DXMESH_SIZE = 0x2c
	DXVB_SIZE   = 0x30
)

// DxLayout selects one of the fixed FVF vertex record shapes.
// DX_LAYOUT_SHADER means the format is driven by an external vertex
// shader and has no fixed decode.
type DxLayout int8

const (
	DX_LAYOUT_SHADER DxLayout = -1

	// 1 normal, 1 color, 1 texture coordinate pair
	DX_LAYOUT_N1C1T1 DxLayout = 0
	// 1 normal, 1 color, 2 texture coordinate pairs
	DX_LAYOUT_N1C1T2 DxLayout = 1
	// 1 normal, 3 weights, 1 color, 1 texture coordinate pair
	DX_LAYOUT_N1W3C1T1 DxLayout = 2
	// 1 normal, 3 weights, 1 color, 2 texture coordinate pairs
	DX_LAYOUT_N1W3C1T2 DxLayout = 3
	// Post-transformed-and-lit vertex: 2 colors, 2 texture coordinate pairs
	DX_LAYOUT_TLC2T2 DxLayout = 4
	// 1 color
	DX_LAYOUT_C1 DxLayout = 5
	// 1 color, 1 texture coordinate pair
	DX_LAYOUT_C1T1 DxLayout = 6
)

var dxLayoutStrides = map[DxLayout]uint16{
	DX_LAYOUT_N1C1T1:   36,
	DX_LAYOUT_N1C1T2:   44,
	DX_LAYOUT_N1W3C1T1: 48,
	DX_LAYOUT_N1W3C1T2: 56,
	DX_LAYOUT_TLC2T2:   40,
	DX_LAYOUT_C1:       12,
	DX_LAYOUT_C1T1:     24,
}

// Stride returns the fixed record size of the layout, false for the
// shader sentinel.
func (l DxLayout) Stride() (uint16, bool) {
	s, ok := dxLayoutStrides[l]
	return s, ok
}

func (l DxLayout) String() string {
	switch l {
	case DX_LAYOUT_SHADER:
		return "Shader"
	case DX_LAYOUT_N1C1T1:
		return "N1C1T1"
	case DX_LAYOUT_N1C1T2:
		return "N1C1T2"
	case DX_LAYOUT_N1W3C1T1:
		return "N1W3C1T1"
	case DX_LAYOUT_N1W3C1T2:
		return "N1W3C1T2"
	case DX_LAYOUT_TLC2T2:
		return "TLC2T2"
	case DX_LAYOUT_C1:
		return "C1"
	case DX_LAYOUT_C1T1:
		return "C1T1"
	default:
		return "DxLayout(?)"
	}
}

// Vertex record shapes. Packed colors stay raw D3DCOLOR u32 values.

type DxVertN1C1T1 struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Diffuse  uint32
	ST0      mgl32.Vec2
}

type DxVertN1C1T2 struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Diffuse  uint32
	ST0      mgl32.Vec2
	ST1      mgl32.Vec2
}

type DxVertN1W3C1T1 struct {
	Position mgl32.Vec3
	Weight   mgl32.Vec3
	Normal   mgl32.Vec3
	Diffuse  uint32
	ST0      mgl32.Vec2
}

type DxVertN1W3C1T2 struct {
	Position mgl32.Vec3
	Weight   mgl32.Vec3
	Normal   mgl32.Vec3
	Diffuse  uint32
	ST0      mgl32.Vec2
	ST1      mgl32.Vec2
}

type DxVertTLC2T2 struct {
	Position mgl32.Vec3
	RHW      float32
	Diffuse  uint32
	Specular uint32
	ST0      mgl32.Vec2
	ST1      mgl32.Vec2
}

type DxVertC1 struct {
	Color mgl32.Vec3
}

type DxVertC1T1 struct {
	Color   mgl32.Vec3
	Diffuse uint32
	ST0     mgl32.Vec2
}

// DxRecords is the decoded vertex stream: exactly one concrete slice type
// per layout. Callers needing attributes beyond positions switch on the
// concrete type.
type DxRecords interface {
	dxRecords()
}

type DxRecordsN1C1T1 []DxVertN1C1T1
type DxRecordsN1C1T2 []DxVertN1C1T2
type DxRecordsN1W3C1T1 []DxVertN1W3C1T1
type DxRecordsN1W3C1T2 []DxVertN1W3C1T2
type DxRecordsTLC2T2 []DxVertTLC2T2
type DxRecordsC1 []DxVertC1
type DxRecordsC1T1 []DxVertC1T1

func (DxRecordsN1C1T1) dxRecords()   {}
func (DxRecordsN1C1T2) dxRecords()   {}
func (DxRecordsN1W3C1T1) dxRecords() {}
func (DxRecordsN1W3C1T2) dxRecords() {}
func (DxRecordsTLC2T2) dxRecords()   {}
func (DxRecordsC1) dxRecords()       {}
func (DxRecordsC1T1) dxRecords()     {}

type DxVertexBuffer struct {
	VertexCount    uint32
	BytesPerVertex uint16
	// f32 pair count per vertex in the lightmap UV stream
	LmtcCount uint16
	Layout    DxLayout
	Dynamic   bool
	// FVF code, or shader handle when Layout is the shader sentinel
	VertexShader uint32

	stream Reference
	lmuv   Reference
	basis  Reference
}

func (vb *DxVertexBuffer) parse(r *reader, rl *Relocator) error {
	r.Skip(8) // resource list link, meaningless on disk
	vb.VertexCount = r.U32()
	vb.BytesPerVertex = r.U16()
	vb.LmtcCount = r.U16()
	lmuvOff := r.Offset()
	basisOff := r.Offset()
	vb.Layout = DxLayout(r.I8())
	vb.Dynamic = r.U8() != 0
	r.Skip(2) // software vp / lock flags, runtime only
	r.Skip(4) // lock buffer pointer
	r.Skip(8) // lock offset/bytes
	vb.VertexShader = r.U32()
	streamOff := r.Offset()
	if err := r.Err(); err != nil {
		return err
	}

	if stride, ok := vb.Layout.Stride(); ok {
		if vb.BytesPerVertex != stride {
			return errors.Wrapf(ErrTruncated, "layout %v expects stride %d, descriptor says %d",
				vb.Layout, stride, vb.BytesPerVertex)
		}
	} else if vb.Layout != DX_LAYOUT_SHADER {
		return errors.Wrapf(ErrUnsupportedTag, "dx vertex layout %d", int8(vb.Layout))
	}

	var err error
	if vb.stream, err = rl.Relocate(streamOff, vb.VertexCount, uint32(vb.BytesPerVertex)); err != nil {
		return errors.Wrap(err, "vertex stream")
	}
	if vb.lmuv, err = rl.Relocate(lmuvOff, vb.VertexCount, uint32(vb.LmtcCount)*8); err != nil {
		return errors.Wrap(err, "lightmap uv stream")
	}
	if vb.basis, err = rl.Relocate(basisOff, 0, 0); err != nil {
		return errors.Wrap(err, "basis stream")
	}
	return nil
}

// Records decodes the vertex stream according to the layout tag.
// Shader-driven buffers have no fixed decode: the result is nil, nil.
func (vb *DxVertexBuffer) Records() (DxRecords, error) {
	if vb.Layout == DX_LAYOUT_SHADER {
		return nil, nil
	}
	b := vb.stream.Bytes()
	if b == nil {
		return nil, nil
	}
	r := reader{b: b}
	n := int(vb.VertexCount)

	switch vb.Layout {
	case DX_LAYOUT_N1C1T1:
		out := make(DxRecordsN1C1T1, n)
		for i := range out {
			out[i] = DxVertN1C1T1{
				Position: r.Vec3(), Normal: r.Vec3(),
				Diffuse: r.U32(), ST0: r.Vec2(),
			}
		}
		return out, r.Err()
	case DX_LAYOUT_N1C1T2:
		out := make(DxRecordsN1C1T2, n)
		for i := range out {
			out[i] = DxVertN1C1T2{
				Position: r.Vec3(), Normal: r.Vec3(),
				Diffuse: r.U32(), ST0: r.Vec2(), ST1: r.Vec2(),
			}
		}
		return out, r.Err()
	case DX_LAYOUT_N1W3C1T1:
		out := make(DxRecordsN1W3C1T1, n)
		for i := range out {
			out[i] = DxVertN1W3C1T1{
				Position: r.Vec3(), Weight: r.Vec3(), Normal: r.Vec3(),
				Diffuse: r.U32(), ST0: r.Vec2(),
			}
		}
		return out, r.Err()
	case DX_LAYOUT_N1W3C1T2:
		out := make(DxRecordsN1W3C1T2, n)
		for i := range out {
			out[i] = DxVertN1W3C1T2{
				Position: r.Vec3(), Weight: r.Vec3(), Normal: r.Vec3(),
				Diffuse: r.U32(), ST0: r.Vec2(), ST1: r.Vec2(),
			}
		}
		return out, r.Err()
	case DX_LAYOUT_TLC2T2:
		out := make(DxRecordsTLC2T2, n)
		for i := range out {
			out[i] = DxVertTLC2T2{
				Position: r.Vec3(), RHW: r.F32(),
				Diffuse: r.U32(), Specular: r.U32(),
				ST0: r.Vec2(), ST1: r.Vec2(),
			}
		}
		return out, r.Err()
	case DX_LAYOUT_C1:
		out := make(DxRecordsC1, n)
		for i := range out {
			out[i] = DxVertC1{Color: r.Vec3()}
		}
		return out, r.Err()
	case DX_LAYOUT_C1T1:
		out := make(DxRecordsC1T1, n)
		for i := range out {
			out[i] = DxVertC1T1{Color: r.Vec3(), Diffuse: r.U32(), ST0: r.Vec2()}
		}
		return out, r.Err()
	default:
		return nil, errors.Wrapf(ErrUnsupportedTag, "dx vertex layout %d", int8(vb.Layout))
	}
}

// Positions extracts the leading float triple of every record: the 3D
// coordinate for positional layouts, the color for the two color-only
// layouts. Shader-driven buffers yield nil.
func (vb *DxVertexBuffer) Positions() []mgl32.Vec3 {
	stride, ok := vb.Layout.Stride()
	if !ok {
		return nil
	}
	b := vb.stream.Bytes()
	if b == nil {
		return nil
	}
	out := make([]mgl32.Vec3, vb.VertexCount)
	for i := range out {
		r := reader{b: b[uint32(i)*uint32(stride):]}
		out[i] = r.Vec3()
	}
	return out
}

type DxMesh struct {
	Flags uint16
	// Start of the disposable file region converted to DX resources
	DisposableOffset  uint32
	AtRestBoundSphere Sphere

	VertexBuffers []DxVertexBuffer
	// Index buffers are u16 arrays sized by a parallel count array, not
	// by the buffers themselves
	indexBuffers [][]uint16

	// Collision vertex buffer array, kept addressable only
	CollVertexBuffers Reference
}

func parseDxMesh(rl *Relocator, off RawOffset, warnf func(string, ...interface{})) (*DxMesh, error) {
	ref, err := rl.Relocate(off, 1, DXMESH_SIZE)
	if err != nil {
		return nil, err
	}
	r := newRefReader(ref)
	m := &DxMesh{}

	m.Flags = r.U16()
	vbCount := r.U8()
	ibCount := r.U8()
	m.DisposableOffset = r.U32()
	m.AtRestBoundSphere = r.Sphere()
	r.Skip(4) // base object back-pointer
	vbOff := r.Offset()
	collVbOff := r.Offset()
	indexCountsOff := r.Offset()
	indexBuffersOff := r.Offset()
	if err := r.Err(); err != nil {
		return nil, err
	}

	vbRef, err := rl.Relocate(vbOff, uint32(vbCount), DXVB_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffers")
	}
	if !vbRef.IsNull() {
		vr := newRefReader(vbRef)
		m.VertexBuffers = make([]DxVertexBuffer, vbCount)
		for i := range m.VertexBuffers {
			if err := m.VertexBuffers[i].parse(vr, rl); err != nil {
				return nil, errors.Wrapf(err, "vertex buffer %d", i)
			}
		}
	}

	if m.CollVertexBuffers, err = rl.Relocate(collVbOff, 0, 0); err != nil {
		return nil, errors.Wrap(err, "collision vertex buffers")
	}

	countsRef, err := rl.Relocate(indexCountsOff, uint32(ibCount), 2)
	if err != nil {
		return nil, errors.Wrap(err, "index counts")
	}
	buffersRef, err := rl.Relocate(indexBuffersOff, uint32(ibCount), 4)
	if err != nil {
		return nil, errors.Wrap(err, "index buffers")
	}

	if !countsRef.IsNull() && !buffersRef.IsNull() {
		cr := newRefReader(countsRef)
		br := newRefReader(buffersRef)
		m.indexBuffers = make([][]uint16, ibCount)
		for i := range m.indexBuffers {
			count := cr.U16()
			bufOff := br.Offset()
			if err := cr.Err(); err != nil {
				return nil, err
			}
			if err := br.Err(); err != nil {
				return nil, err
			}

			bufRef, err := rl.Relocate(bufOff, uint32(count), 2)
			if err != nil {
				return nil, errors.Wrapf(err, "index buffer %d", i)
			}
			if bufRef.IsNull() {
				continue
			}

			ir := newRefReader(bufRef)
			indices := make([]uint16, count)
			for j := range indices {
				indices[j] = ir.U16()
			}
			if err := ir.Err(); err != nil {
				return nil, err
			}
			m.indexBuffers[i] = indices

			// Some original exports reference vertices past the end of
			// the paired vertex buffer; tolerated, never fatal
			if i < len(m.VertexBuffers) {
				vertexCount := m.VertexBuffers[i].VertexCount
				for j, index := range indices {
					if uint32(index) >= vertexCount {
						warnf("index buffer %d entry %d: index %d beyond vertex count %d",
							i, j, index, vertexCount)
						break
					}
				}
			}
		}
	}

	return m, nil
}

func (m *DxMesh) IndexBuffers() [][]uint16 {
	return m.indexBuffers
}

// IndexBuffer returns index buffer i, nil when absent.
func (m *DxMesh) IndexBuffer(i int) []uint16 {
	if i < 0 || i >= len(m.indexBuffers) {
		return nil
	}
	return m.indexBuffers[i]
}
