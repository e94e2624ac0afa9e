package ape

import (
	"testing"

	"github.com/pkg/errors"
)

// buildDxBlob attaches a directx payload with a single vertex buffer
// descriptor and returns the blob plus the descriptor's offset.
func buildDxBlob(extra int) ([]byte, int) {
	b := make([]byte, MESH_HEADER_SIZE+DXMESH_SIZE+DXVB_SIZE+extra)
	copy(b, "test")
	putU32(b, hdrDxOff, MESH_HEADER_SIZE)

	dxOff := MESH_HEADER_SIZE
	vbOff := dxOff + DXMESH_SIZE
	b[dxOff+2] = 1 // vertex buffer count
	putU32(b, dxOff+0x1c, uint32(vbOff))
	return b, vbOff
}

func loadDx(t *testing.T, b []byte) *DxMesh {
	t.Helper()
	d, err := Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Platform() != PLATFORM_DIRECTX8 || d.DirectX() == nil {
		t.Fatalf("expected a directx8 document, got %v", d.Platform())
	}
	return d.DirectX()
}

func TestDxVertexDecode(t *testing.T) {
	stride := 40
	b, vbOff := buildDxBlob(2 * stride)
	streamOff := vbOff + DXVB_SIZE

	putU32(b, vbOff+8, 2)               // vertex count
	putU16(b, vbOff+0xc, uint16(stride))
	b[vbOff+0x18] = byte(DX_LAYOUT_TLC2T2)
	putU32(b, vbOff+0x2c, uint32(streamOff))

	putF32(b, streamOff+0, 1.5)  // x
	putF32(b, streamOff+4, -2.5) // y
	putF32(b, streamOff+12, 1.0) // rhw
	putU32(b, streamOff+16, 0xffaabbcc)
	putF32(b, streamOff+24, 0.25) // st0.s
	putF32(b, streamOff+40, 7.0)  // second vertex x

	m := loadDx(t, b)
	vb := &m.VertexBuffers[0]

	records, err := vb.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	verts, ok := records.(DxRecordsTLC2T2)
	if !ok || len(verts) != 2 {
		t.Fatalf("Records() = %T of len %d", records, len(verts))
	}
	v := verts[0]
	if v.Position[0] != 1.5 || v.Position[1] != -2.5 || v.RHW != 1.0 {
		t.Errorf("vertex 0 = %+v", v)
	}
	if v.Diffuse != 0xffaabbcc || v.ST0[0] != 0.25 {
		t.Errorf("vertex 0 attributes = %+v", v)
	}
	if verts[1].Position[0] != 7.0 {
		t.Errorf("vertex 1 = %+v", verts[1])
	}

	positions := vb.Positions()
	if len(positions) != 2 || positions[0][0] != 1.5 || positions[1][0] != 7.0 {
		t.Errorf("Positions() = %v", positions)
	}
}

func TestDxStrideMismatchFailsLoad(t *testing.T) {
	b, vbOff := buildDxBlob(0)
	putU16(b, vbOff+0xc, 36) // TLC2T2 is 40 bytes
	b[vbOff+0x18] = byte(DX_LAYOUT_TLC2T2)

	_, err := Load(b)
	if errors.Cause(err) != ErrTruncated {
		t.Errorf("Load error = %v, expected ErrTruncated", err)
	}
}

func TestDxUnknownLayoutFailsLoad(t *testing.T) {
	b, vbOff := buildDxBlob(0)
	b[vbOff+0x18] = 42

	_, err := Load(b)
	if errors.Cause(err) != ErrUnsupportedTag {
		t.Errorf("Load error = %v, expected ErrUnsupportedTag", err)
	}
}

func TestDxShaderLayoutHasNoDecode(t *testing.T) {
	b, vbOff := buildDxBlob(0)
	putU16(b, vbOff+0xc, 0x50) // free-form stride
	b[vbOff+0x18] = 0xff       // shader sentinel
	putU32(b, vbOff+0x28, 0xbeef)

	m := loadDx(t, b)
	vb := &m.VertexBuffers[0]
	if vb.Layout != DX_LAYOUT_SHADER || vb.VertexShader != 0xbeef {
		t.Fatalf("descriptor = %+v", vb)
	}

	records, err := vb.Records()
	if records != nil || err != nil {
		t.Errorf("Records() = %v, %v, expected nil, nil", records, err)
	}
	if vb.Positions() != nil {
		t.Error("Positions() decoded a shader-driven buffer")
	}
}

func TestDxIndexBufferOverflowWarns(t *testing.T) {
	stride := 12
	// vertex stream + counts array + pointer array + 3 indices
	b, vbOff := buildDxBlob(2*stride + 2 + 4 + 6)
	streamOff := vbOff + DXVB_SIZE
	countsOff := streamOff + 2*stride
	ptrsOff := countsOff + 2
	indicesOff := ptrsOff + 4

	putU32(b, vbOff+8, 2)
	putU16(b, vbOff+0xc, uint16(stride))
	b[vbOff+0x18] = byte(DX_LAYOUT_C1)
	putU32(b, vbOff+0x2c, uint32(streamOff))

	dxOff := MESH_HEADER_SIZE
	b[dxOff+3] = 1 // index buffer count
	putU32(b, dxOff+0x24, uint32(countsOff))
	putU32(b, dxOff+0x28, uint32(ptrsOff))
	putU16(b, countsOff, 3)
	putU32(b, ptrsOff, uint32(indicesOff))
	putU16(b, indicesOff, 0)
	putU16(b, indicesOff+2, 1)
	putU16(b, indicesOff+4, 5) // beyond the 2 vertex buffer entries

	d, err := Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := d.DirectX()

	indices := m.IndexBuffer(0)
	if len(indices) != 3 || indices[2] != 5 {
		t.Errorf("IndexBuffer(0) = %v", indices)
	}
	warnings := d.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("Warnings() = %v, expected one entry", warnings)
	}
}

func TestDxIndexBufferInRangeIsSilent(t *testing.T) {
	stride := 12
	b, vbOff := buildDxBlob(stride + 2 + 4 + 2)
	streamOff := vbOff + DXVB_SIZE
	countsOff := streamOff + stride
	ptrsOff := countsOff + 2
	indicesOff := ptrsOff + 4

	putU32(b, vbOff+8, 1)
	putU16(b, vbOff+0xc, uint16(stride))
	b[vbOff+0x18] = byte(DX_LAYOUT_C1)
	putU32(b, vbOff+0x2c, uint32(streamOff))

	dxOff := MESH_HEADER_SIZE
	b[dxOff+3] = 1
	putU32(b, dxOff+0x24, uint32(countsOff))
	putU32(b, dxOff+0x28, uint32(ptrsOff))
	putU16(b, countsOff, 1)
	putU32(b, ptrsOff, uint32(indicesOff))

	d, err := Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", d.Warnings())
	}
}
