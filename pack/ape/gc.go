package ape

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const (
	GCMESH_SIZE      = 0x20
	GCVB_SIZE        = 0x1c
	GCSKIN_SIZE      = 0x18
	GCTRANSDESC_SIZE = 8
	GCPOSNORM_SIZE   = 0xc
	GCWEIGHTS_SIZE   = 4
	GCMESHMTL_SIZE   = 8
	GCDLCONT_SIZE    = 0x18
)

// GX component type tag of the position stream.
type GxPosType uint8

const (
	GX_POS_U8  GxPosType = 0
	GX_POS_S8  GxPosType = 1
	GX_POS_U16 GxPosType = 2
	GX_POS_S16 GxPosType = 3
	GX_POS_F32 GxPosType = 4
)

const (
	// Position and normal stored as paired s16 triples
	GCVB_FLAG_SKINNED = 0x01
	// Normal stream carries binormal and tangent for bump-mapping
	GCVB_FLAG_NORM_NBT = 0x10
)

// Reciprocals for fixed-point position components, indexed by the
// per-buffer fraction bit count.
var gcFracScale = [16]float32{
	1.0 / 0x1, 1.0 / 0x2, 1.0 / 0x4, 1.0 / 0x8,
	1.0 / 0x10, 1.0 / 0x20, 1.0 / 0x40, 1.0 / 0x80,
	1.0 / 0x100, 1.0 / 0x200, 1.0 / 0x400, 1.0 / 0x800,
	1.0 / 0x1000, 1.0 / 0x2000, 1.0 / 0x4000, 1.0 / 0x8000,
}

type GxColor struct {
	R, G, B, A uint8
}

// GxSt is a UV pair in raw signed 16 bit units. The buffer-level scale is
// an implicit 1.0; conversion is the caller's concern.
type GxSt struct {
	S, T int16
}

// GxNBT carries normal, binormal and tangent as signed 8 bit triples.
type GxNBT struct {
	N, B, T [3]int8
}

type GxVertexBuffer struct {
	Flags uint16

	PosCount   uint16
	PosType    GxPosType
	PosIdxType uint8
	PosStride  uint8
	// Bits in the fractional component of fixed-point positions (0-15)
	PosFrac uint8

	DiffuseCount uint16
	ColorIdxType uint8
	VertexFormat uint8

	positions Reference
	diffuse   Reference
	st        Reference
	nbt       Reference
}

func (vb *GxVertexBuffer) Skinned() bool {
	return vb.Flags&GCVB_FLAG_SKINNED != 0
}

// posRecordSize gives the byte size of one position record for the
// buffer's type tag, accounting for the skinned pairing.
func (vb *GxVertexBuffer) posRecordSize() (uint32, error) {
	switch vb.PosType {
	case GX_POS_U8, GX_POS_S8:
		return 3, nil
	case GX_POS_U16, GX_POS_S16:
		if vb.Skinned() {
			return GCPOSNORM_SIZE, nil
		}
		return 6, nil
	case GX_POS_F32:
		return 12, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedTag, "gc position type %d", vb.PosType)
	}
}

func (vb *GxVertexBuffer) parse(r *reader, rl *Relocator) error {
	vb.Flags = r.U16()
	vb.PosCount = r.U16()
	vb.PosType = GxPosType(r.U8())
	vb.PosIdxType = r.U8()
	vb.PosStride = r.U8()
	vb.PosFrac = r.U8()
	vb.DiffuseCount = r.U16()
	vb.ColorIdxType = r.U8()
	vb.VertexFormat = r.U8()
	positionsOff := r.Offset()
	diffuseOff := r.Offset()
	stOff := r.Offset()
	nbtOff := r.Offset()
	if err := r.Err(); err != nil {
		return err
	}

	recordSize, err := vb.posRecordSize()
	if err != nil {
		return err
	}
	if int(vb.PosFrac) >= len(gcFracScale) {
		return errors.Wrapf(ErrUnsupportedTag, "position fraction bits %d", vb.PosFrac)
	}

	// Every sibling stream is sized by the position count, except diffuse
	if vb.positions, err = rl.Relocate(positionsOff, uint32(vb.PosCount), recordSize); err != nil {
		return errors.Wrap(err, "positions")
	}
	if vb.diffuse, err = rl.Relocate(diffuseOff, uint32(vb.DiffuseCount), 4); err != nil {
		return errors.Wrap(err, "diffuse")
	}
	if vb.st, err = rl.Relocate(stOff, uint32(vb.PosCount), 4); err != nil {
		return errors.Wrap(err, "st")
	}
	if vb.nbt, err = rl.Relocate(nbtOff, uint32(vb.PosCount), 9); err != nil {
		return errors.Wrap(err, "nbt")
	}
	return nil
}

// decodePosition reads record i of the position stream. Bulk and
// single-index access share this path so both apply identical scaling.
func (vb *GxVertexBuffer) decodePosition(b []byte, recordSize uint32, i int) mgl32.Vec3 {
	rec := b[uint32(i)*recordSize:]
	scale := gcFracScale[vb.PosFrac]
	switch vb.PosType {
	case GX_POS_U8:
		return mgl32.Vec3{
			float32(rec[0]) * scale,
			float32(rec[1]) * scale,
			float32(rec[2]) * scale,
		}
	case GX_POS_S8:
		return mgl32.Vec3{
			float32(int8(rec[0])) * scale,
			float32(int8(rec[1])) * scale,
			float32(int8(rec[2])) * scale,
		}
	case GX_POS_U16:
		return mgl32.Vec3{
			float32(uint16(rec[0])<<8|uint16(rec[1])) * scale,
			float32(uint16(rec[2])<<8|uint16(rec[3])) * scale,
			float32(uint16(rec[4])<<8|uint16(rec[5])) * scale,
		}
	case GX_POS_S16:
		// For skinned buffers only the position half of the pos/norm
		// pair contributes to geometry
		return mgl32.Vec3{
			float32(int16(uint16(rec[0])<<8|uint16(rec[1]))) * scale,
			float32(int16(uint16(rec[2])<<8|uint16(rec[3]))) * scale,
			float32(int16(uint16(rec[4])<<8|uint16(rec[5]))) * scale,
		}
	default: // GX_POS_F32, tag is validated at parse time
		r := reader{b: rec}
		return r.Vec3()
	}
}

// Positions decodes the whole position stream to model-space floats.
func (vb *GxVertexBuffer) Positions() []mgl32.Vec3 {
	b := vb.positions.Bytes()
	if b == nil {
		return nil
	}
	recordSize, _ := vb.posRecordSize()
	out := make([]mgl32.Vec3, vb.PosCount)
	for i := range out {
		out[i] = vb.decodePosition(b, recordSize, i)
	}
	return out
}

// PositionAt decodes a single position, false when i is out of range.
func (vb *GxVertexBuffer) PositionAt(i int) (mgl32.Vec3, bool) {
	b := vb.positions.Bytes()
	if b == nil || i < 0 || i >= int(vb.PosCount) {
		return mgl32.Vec3{}, false
	}
	recordSize, _ := vb.posRecordSize()
	return vb.decodePosition(b, recordSize, i), true
}

// Normals decodes the normal halves of a skinned buffer, raw s16 units.
func (vb *GxVertexBuffer) Normals() [][3]int16 {
	if !vb.Skinned() {
		return nil
	}
	b := vb.positions.Bytes()
	if b == nil {
		return nil
	}
	out := make([][3]int16, vb.PosCount)
	r := reader{b: b}
	for i := range out {
		r.Skip(6)
		out[i] = [3]int16{r.I16(), r.I16(), r.I16()}
	}
	return out
}

func (vb *GxVertexBuffer) Diffuse() []GxColor {
	b := vb.diffuse.Bytes()
	if b == nil {
		return nil
	}
	out := make([]GxColor, vb.DiffuseCount)
	for i := range out {
		out[i] = GxColor{R: b[i*4], G: b[i*4+1], B: b[i*4+2], A: b[i*4+3]}
	}
	return out
}

func (vb *GxVertexBuffer) St() []GxSt {
	b := vb.st.Bytes()
	if b == nil {
		return nil
	}
	out := make([]GxSt, vb.PosCount)
	r := reader{b: b}
	for i := range out {
		out[i] = GxSt{S: r.I16(), T: r.I16()}
	}
	return out
}

func (vb *GxVertexBuffer) Nbt() []GxNBT {
	b := vb.nbt.Bytes()
	if b == nil {
		return nil
	}
	out := make([]GxNBT, vb.PosCount)
	r := reader{b: b}
	for i := range out {
		for j := 0; j < 3; j++ {
			out[i].N[j] = r.I8()
		}
		for j := 0; j < 3; j++ {
			out[i].B[j] = r.I8()
		}
		for j := 0; j < 3; j++ {
			out[i].T[j] = r.I8()
		}
	}
	return out
}

// GxTransDesc describes which bone matrices apply to a run of
// skinned vertices.
type GxTransDesc struct {
	MatrixCount uint8
	VertCount   uint16
	MtxIds      [4]uint8
}

func (td *GxTransDesc) MatrixIds() []uint8 {
	n := td.MatrixCount
	if n > 4 {
		n = 4
	}
	return td.MtxIds[:n]
}

type GxSkinPosNorm struct {
	Position [3]int16
	Normal   [3]int16
}

type GxMeshSkin struct {
	// Verts weighted to 1, 2 and 3-or-4 matrices respectively
	Td1MtxCount    uint16
	Td2MtxCount    uint16
	Td3Or4MtxCount uint16

	TransDesc    []GxTransDesc
	SkinnedVerts []GxSkinPosNorm
	// One weight quad per skinned vert
	Weights [][4]uint8
}

func parseGxMeshSkin(rl *Relocator, ref Reference) (*GxMeshSkin, error) {
	r := newRefReader(ref)
	skin := &GxMeshSkin{}
	transDescCount := r.U16()
	skin.Td1MtxCount = r.U16()
	skin.Td2MtxCount = r.U16()
	skin.Td3Or4MtxCount = r.U16()
	transDescOff := r.Offset()
	skinnedVertsCount := r.U32()
	skinnedVertsOff := r.Offset()
	weightsOff := r.Offset()
	if err := r.Err(); err != nil {
		return nil, err
	}

	tdRef, err := rl.Relocate(transDescOff, uint32(transDescCount), GCTRANSDESC_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "trans desc")
	}
	if !tdRef.IsNull() {
		tr := newRefReader(tdRef)
		skin.TransDesc = make([]GxTransDesc, transDescCount)
		for i := range skin.TransDesc {
			td := &skin.TransDesc[i]
			td.MatrixCount = tr.U8()
			tr.Skip(1)
			td.VertCount = tr.U16()
			for j := range td.MtxIds {
				td.MtxIds[j] = tr.U8()
			}
		}
		if err := tr.Err(); err != nil {
			return nil, err
		}
	}

	vertsRef, err := rl.Relocate(skinnedVertsOff, skinnedVertsCount, GCPOSNORM_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "skinned verts")
	}
	if !vertsRef.IsNull() {
		vr := newRefReader(vertsRef)
		skin.SkinnedVerts = make([]GxSkinPosNorm, skinnedVertsCount)
		for i := range skin.SkinnedVerts {
			v := &skin.SkinnedVerts[i]
			for j := range v.Position {
				v.Position[j] = vr.I16()
			}
			for j := range v.Normal {
				v.Normal[j] = vr.I16()
			}
		}
		if err := vr.Err(); err != nil {
			return nil, err
		}
	}

	weightsRef, err := rl.Relocate(weightsOff, skinnedVertsCount, GCWEIGHTS_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "weights")
	}
	if b := weightsRef.Bytes(); b != nil {
		skin.Weights = make([][4]uint8, skinnedVertsCount)
		for i := range skin.Weights {
			copy(skin.Weights[i][:], b[i*4:])
		}
	}

	return skin, nil
}

const (
	GCDL_FLAG_SKINNED        = 0x01
	GCDL_FLAG_CONSTANT_COLOR = 0x02
	GCDL_FLAG_BUMPMAP        = 0x04
	GCDL_FLAG_STREAMING      = 0x80
)

// GxDisplayContainer references one GX display list of stripped or listed
// triangles for a material.
type GxDisplayContainer struct {
	Flags       uint8
	MatrixIndex uint8
	// LOD this display list belongs to (0 is closest)
	LodId  uint8
	PartId uint8

	StripTriCount uint16
	ListTriCount  uint16
	StripCount    uint16
	ListCount     uint8
	// Index of the vertex buffer this display list draws from
	VbIndex uint8

	Buffer        Reference
	ConstantColor GxColor
}

type GxMeshMaterial struct {
	DisplayContainers []GxDisplayContainer
}

type GxMesh struct {
	AtRestBoundSphere Sphere
	Flags             uint8
	MtlCount          uint16

	VertexBuffers []GxVertexBuffer
	Skin          *GxMeshSkin

	rl *Relocator
}

func parseGxMesh(rl *Relocator, off RawOffset) (*GxMesh, error) {
	ref, err := rl.Relocate(off, 1, GCMESH_SIZE)
	if err != nil {
		return nil, err
	}
	r := newRefReader(ref)
	m := &GxMesh{rl: rl}

	r.Skip(4) // base object back-pointer, always null in files
	m.AtRestBoundSphere = r.Sphere()
	m.Flags = r.U8()
	vbCount := r.U8()
	m.MtlCount = r.U16()
	vbOff := r.Offset()
	skinOff := r.Offset()
	if err := r.Err(); err != nil {
		return nil, err
	}

	vbRef, err := rl.Relocate(vbOff, uint32(vbCount), GCVB_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffers")
	}
	if !vbRef.IsNull() {
		vr := newRefReader(vbRef)
		m.VertexBuffers = make([]GxVertexBuffer, vbCount)
		for i := range m.VertexBuffers {
			if err := m.VertexBuffers[i].parse(vr, rl); err != nil {
				return nil, errors.Wrapf(err, "vertex buffer %d", i)
			}
		}
	}

	skinRef, err := rl.Relocate(skinOff, 1, GCSKIN_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "mesh skin")
	}
	if !skinRef.IsNull() {
		if m.Skin, err = parseGxMeshSkin(rl, skinRef); err != nil {
			return nil, errors.Wrap(err, "mesh skin")
		}
	}

	return m, nil
}

// MaterialData decodes a material's platform payload as the GameCube
// display list container set. Only valid for materials of the same
// document; DirectX8 documents keep the payload opaque.
func (m *GxMesh) MaterialData(mtl *Material) (*GxMeshMaterial, error) {
	if mtl.PlatformData.IsNull() {
		return nil, nil
	}
	hdr, err := m.rl.Relocate(RawOffset(mtl.PlatformData.Offset()), 1, GCMESHMTL_SIZE)
	if err != nil {
		return nil, err
	}
	r := newRefReader(hdr)
	dlOff := r.Offset()
	dlCount := r.U16()
	r.Skip(2)
	if err := r.Err(); err != nil {
		return nil, err
	}

	dlRef, err := m.rl.Relocate(dlOff, uint32(dlCount), GCDLCONT_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "display containers")
	}
	out := &GxMeshMaterial{}
	if dlRef.IsNull() {
		return out, nil
	}

	dr := newRefReader(dlRef)
	out.DisplayContainers = make([]GxDisplayContainer, dlCount)
	for i := range out.DisplayContainers {
		dl := &out.DisplayContainers[i]
		dl.Flags = dr.U8()
		dl.MatrixIndex = dr.U8()
		dl.LodId = dr.U8()
		dl.PartId = dr.U8()
		dl.StripTriCount = dr.U16()
		dl.ListTriCount = dr.U16()
		dl.StripCount = dr.U16()
		dl.ListCount = dr.U8()
		dl.VbIndex = dr.U8()
		size := dr.U32()
		bufOff := dr.Offset()
		dl.ConstantColor = GxColor{R: dr.U8(), G: dr.U8(), B: dr.U8(), A: dr.U8()}
		if err := dr.Err(); err != nil {
			return nil, err
		}

		if dl.Flags&GCDL_FLAG_STREAMING != 0 {
			// Streamed display lists live outside the blob
			continue
		}
		if dl.Buffer, err = m.rl.Relocate(bufOff, size, 1); err != nil {
			return nil, errors.Wrapf(err, "display container %d buffer", i)
		}
	}
	return out, nil
}
