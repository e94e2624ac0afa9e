package ape

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/ape_browser/utils"
	"github.com/pkg/errors"
)

const (
	MESH_NAME_LENGTH     = 16
	BONE_NAME_LENGTH     = 32
	LIGHT_NAME_LENGTH    = 16
	LIGHT_TEXNAME_LENGTH = 16

	MAX_LOD_MESH_COUNT = 8
	VW_COUNT_PER_VTX   = 4

	SEGMENT_SIZE  = 0x18
	BONE_SIZE     = 0xf8
	LIGHT_SIZE    = 0x9c
	MATERIAL_SIZE = 0x48
	TEXLAYER_SIZE = 0x18
	TEXINST_SIZE  = 0x18
)

// 255 in parent/matrix index slots means "none".
const INDEX_NONE = 0xff

type Sphere struct {
	Radius float32
	Center mgl32.Vec3
}

// Mtx43 is a 4x3 transform stored as four row vectors.
type Mtx43 [4]mgl32.Vec3

type Segment struct {
	BoundSphere Sphere

	// Number of simultaneous bone matrices used for vertices within this
	// segment (1 = segmented, but not skinned)
	BoneMtxCount uint8
	// Indexes into instance bone matrix palette (255 = none)
	BoneMtxIndex [VW_COUNT_PER_VTX]uint8
}

func (s *Segment) parse(r *reader) {
	s.BoundSphere = r.Sphere()
	s.BoneMtxCount = r.U8()
	for i := range s.BoneMtxIndex {
		s.BoneMtxIndex[i] = r.U8()
	}
	r.Skip(3)
}

type Skeleton struct {
	// Bone index of this bone's parent (255 = no parent)
	ParentBoneIndex uint8
	// Number of children attached to this bone
	ChildBoneCount uint8
	// Start of this bone's child list inside the skeleton index array
	ChildArrayStartIndex uint8
}

const (
	BONE_FLAG_VOID    = 0x01
	BONE_FLAG_SKINNED = 0x10
)

type Bone struct {
	Name string

	AtRestBoneToModel  Mtx43
	AtRestModelToBone  Mtx43
	AtRestParentToBone Mtx43
	AtRestBoneToParent Mtx43

	BoundSphere Sphere
	Skeleton    Skeleton
	Flags       uint8
	PartId      uint8
}

func (b *Bone) parse(r *reader) {
	b.Name = utils.BytesToString(r.Bytes(BONE_NAME_LENGTH))
	b.AtRestBoneToModel = r.Mtx43()
	b.AtRestModelToBone = r.Mtx43()
	b.AtRestParentToBone = r.Mtx43()
	b.AtRestBoneToParent = r.Mtx43()
	b.BoundSphere = r.Sphere()
	b.Skeleton.ParentBoneIndex = r.U8()
	b.Skeleton.ChildBoneCount = r.U8()
	b.Skeleton.ChildArrayStartIndex = r.U8()
	b.Flags = r.U8()
	b.PartId = r.U8()
	r.Skip(3)
}

func (b *Bone) IsRoot() bool {
	return b.Skeleton.ParentBoneIndex == INDEX_NONE
}

type LightType uint8

const (
	LIGHT_TYPE_DIR     LightType = 0
	LIGHT_TYPE_OMNI    LightType = 1
	LIGHT_TYPE_SPOT    LightType = 2
	LIGHT_TYPE_AMBIENT LightType = 3
)

// ColorMotif is an RGBA color plus a motif table index. Alpha unused.
type ColorMotif struct {
	Color      mgl32.Vec4
	MotifIndex uint32
}

type Light struct {
	Name            string
	PerPixelTexName string
	CoronaTexName   string

	Flags   uint32
	LightId uint16
	Type    LightType
	// Index into the parent model's bones (-1 if there is no parent bone)
	ParentBoneIndex int8

	Intensity float32
	Motif     ColorMotif
	// Position and radius in model space (ignored for directional lights)
	Influence   Sphere
	Orientation Mtx43

	SpotInnerRadians float32
	SpotOuterRadians float32
	CoronaScale      float32
}

func (l *Light) parse(r *reader) error {
	l.Name = utils.BytesToString(r.Bytes(LIGHT_NAME_LENGTH))
	l.PerPixelTexName = utils.BytesToString(r.Bytes(LIGHT_TEXNAME_LENGTH))
	l.CoronaTexName = utils.BytesToString(r.Bytes(LIGHT_TEXNAME_LENGTH))
	l.Flags = r.U32()
	l.LightId = r.U16()
	l.Type = LightType(r.U8())
	l.ParentBoneIndex = r.I8()
	l.Intensity = r.F32()
	l.Motif.Color = r.Vec4()
	l.Motif.MotifIndex = r.U32()
	l.Influence = r.Sphere()
	l.Orientation = r.Mtx43()
	l.SpotInnerRadians = r.F32()
	l.SpotOuterRadians = r.F32()
	l.CoronaScale = r.F32()

	if l.Type > LIGHT_TYPE_AMBIENT {
		return errors.Wrapf(ErrUnsupportedTag, "light type %d", l.Type)
	}
	return nil
}

type Material struct {
	// Shader register blocks are kept addressable but not interpreted
	ShaderLightRegisters   Reference
	ShaderSurfaceRegisters Reference

	LightShaderIndex    uint8
	SpecularShaderIndex uint8
	SurfaceShaderIndex  uint16

	// Bits set for each mesh part id that uses this material
	PartIdMask uint32
	// Opaque platform-specific payload; GameCube documents can decode it
	// further via GxMesh.MaterialData
	PlatformData Reference

	// Bits set for each LOD that uses this material
	LodMask        uint8
	DepthBiasLevel uint8
	BaseSTSets     uint8
	LightMapSTSets uint8

	// Indices into the tex layer id array, 255 = empty slot,
	// filled from the lowest element up
	TexLayerIdIndex [4]uint8

	AffectAngle        float32
	CompAffectNormal   [3]int8
	AffectBoneId       int8
	CompressedRadius   uint8
	MaterialFlags      uint16
	DrawKey            uint32
	MaterialTint       mgl32.Vec3
	AverageVertPos     mgl32.Vec3
	DisplayListHashKey uint32
}

func (m *Material) parse(r *reader, rl *Relocator) error {
	var err error
	lightRegs := r.Offset()
	surfaceRegs := r.Offset()
	m.LightShaderIndex = r.U8()
	m.SpecularShaderIndex = r.U8()
	m.SurfaceShaderIndex = r.U16()
	m.PartIdMask = r.U32()
	platformData := r.Offset()
	m.LodMask = r.U8()
	m.DepthBiasLevel = r.U8()
	m.BaseSTSets = r.U8()
	m.LightMapSTSets = r.U8()
	for i := range m.TexLayerIdIndex {
		m.TexLayerIdIndex[i] = r.U8()
	}
	m.AffectAngle = r.F32()
	m.CompAffectNormal[0] = r.I8()
	m.CompAffectNormal[1] = r.I8()
	m.CompAffectNormal[2] = r.I8()
	m.AffectBoneId = r.I8()
	m.CompressedRadius = r.U8()
	r.Skip(1)
	m.MaterialFlags = r.U16()
	m.DrawKey = r.U32()
	m.MaterialTint = r.Vec3()
	m.AverageVertPos = r.Vec3()
	m.DisplayListHashKey = r.U32()
	if err := r.Err(); err != nil {
		return err
	}

	// Register blocks carry no length field, validate offsets only
	if m.ShaderLightRegisters, err = rl.Relocate(lightRegs, 0, 0); err != nil {
		return errors.Wrap(err, "shader light registers")
	}
	if m.ShaderSurfaceRegisters, err = rl.Relocate(surfaceRegs, 0, 0); err != nil {
		return errors.Wrap(err, "shader surface registers")
	}
	if m.PlatformData, err = rl.Relocate(platformData, 0, 0); err != nil {
		return errors.Wrap(err, "platform data")
	}
	return nil
}

// TexLayerIndices returns the used part of TexLayerIdIndex.
func (m *Material) TexLayerIndices() []uint8 {
	used := 0
	for _, idx := range m.TexLayerIdIndex {
		if idx == INDEX_NONE {
			break
		}
		used++
	}
	return m.TexLayerIdIndex[:used]
}

type TexLayerID struct {
	TexLayerId    uint8
	Flags         uint8
	FlipPageCount uint8
	FramesPerFlip uint8

	// Flip palette entries point at texture instances; instances stay
	// opaque since streaming texture resolution lives outside the loader
	FlipPalette []Reference

	ScrollStPerSecond         mgl32.Vec2
	UVDegreeRotationPerSecond float32
	CompressedUVRotAnchor     [2]uint8
}

func (t *TexLayerID) parse(r *reader, rl *Relocator) error {
	t.TexLayerId = r.U8()
	t.Flags = r.U8()
	t.FlipPageCount = r.U8()
	t.FramesPerFlip = r.U8()
	flipPalette := r.Offset()
	t.ScrollStPerSecond = r.Vec2()
	t.UVDegreeRotationPerSecond = r.F32()
	t.CompressedUVRotAnchor[0] = r.U8()
	t.CompressedUVRotAnchor[1] = r.U8()
	r.Skip(2)
	if err := r.Err(); err != nil {
		return err
	}

	// Array of pointers: relocate the outer array, then every entry
	paletteRef, err := rl.Relocate(flipPalette, uint32(t.FlipPageCount), 4)
	if err != nil {
		return errors.Wrap(err, "flip palette")
	}
	if !paletteRef.IsNull() {
		t.FlipPalette = make([]Reference, t.FlipPageCount)
		pr := newRefReader(paletteRef)
		for i := range t.FlipPalette {
			entry := pr.Offset()
			if err := pr.Err(); err != nil {
				return err
			}
			if t.FlipPalette[i], err = rl.Relocate(entry, 1, TEXINST_SIZE); err != nil {
				return errors.Wrapf(err, "flip palette entry %d", i)
			}
		}
	}
	return nil
}
