package ape

import (
	"testing"

	"github.com/pkg/errors"
)

func TestSegmentDecode(t *testing.T) {
	b := buildMeshBlob(2 * SEGMENT_SIZE)
	segOff := MESH_HEADER_SIZE + GCMESH_SIZE
	b[hdrSegmentCount] = 2
	putU32(b, hdrSegmentsOff, uint32(segOff))

	putF32(b, segOff, 5.0) // bound sphere radius
	b[segOff+0x10] = 2     // bone matrix count
	b[segOff+0x11] = 7
	b[segOff+0x12] = 9
	b[segOff+0x13] = INDEX_NONE
	b[segOff+0x14] = INDEX_NONE

	d, err := Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	segments := d.Segments()
	if len(segments) != 2 {
		t.Fatalf("len(Segments()) = %d, expected 2", len(segments))
	}
	s := segments[0]
	if s.BoundSphere.Radius != 5.0 || s.BoneMtxCount != 2 {
		t.Errorf("segment 0 = %+v", s)
	}
	if s.BoneMtxIndex != [4]uint8{7, 9, INDEX_NONE, INDEX_NONE} {
		t.Errorf("segment 0 matrix indexes = %v", s.BoneMtxIndex)
	}
}

func TestLightDecode(t *testing.T) {
	b := buildMeshBlob(LIGHT_SIZE)
	lightOff := MESH_HEADER_SIZE + GCMESH_SIZE
	b[hdrLightCount] = 1
	putU32(b, hdrLightsOff, uint32(lightOff))

	copy(b[lightOff:], "sun")
	copy(b[lightOff+0x20:], "corona")
	putU16(b, lightOff+0x34, 11)
	b[lightOff+0x36] = byte(LIGHT_TYPE_SPOT)
	b[lightOff+0x37] = 0xff // no parent bone
	putF32(b, lightOff+0x38, 0.75)
	putF32(b, lightOff+0x90, 0.5)
	putF32(b, lightOff+0x94, 1.5)

	d, err := Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	lights := d.Lights()
	if len(lights) != 1 {
		t.Fatalf("len(Lights()) = %d, expected 1", len(lights))
	}
	l := lights[0]
	if l.Name != "sun" || l.CoronaTexName != "corona" {
		t.Errorf("light names = %q %q %q", l.Name, l.PerPixelTexName, l.CoronaTexName)
	}
	if l.LightId != 11 || l.Type != LIGHT_TYPE_SPOT || l.ParentBoneIndex != -1 {
		t.Errorf("light = %+v", l)
	}
	if l.Intensity != 0.75 || l.SpotInnerRadians != 0.5 || l.SpotOuterRadians != 1.5 {
		t.Errorf("light cone = %+v", l)
	}
}

func TestLightUnknownTypeFailsLoad(t *testing.T) {
	b := buildMeshBlob(LIGHT_SIZE)
	lightOff := MESH_HEADER_SIZE + GCMESH_SIZE
	b[hdrLightCount] = 1
	putU32(b, hdrLightsOff, uint32(lightOff))
	b[lightOff+0x36] = 200

	_, err := Load(b)
	if errors.Cause(err) != ErrUnsupportedTag {
		t.Errorf("Load error = %v, expected ErrUnsupportedTag", err)
	}
}

func TestMaterialDecode(t *testing.T) {
	b := buildMeshBlob(MATERIAL_SIZE + 0x10)
	mtlOff := MESH_HEADER_SIZE + GCMESH_SIZE
	regsOff := mtlOff + MATERIAL_SIZE
	b[hdrMtlCount] = 1
	putU32(b, hdrMtlsOff, uint32(mtlOff))

	putU32(b, mtlOff, uint32(regsOff)) // light registers
	putU32(b, mtlOff+0xc, 0x5)         // part id mask
	b[mtlOff+0x18] = 2
	b[mtlOff+0x19] = 0
	b[mtlOff+0x1a] = INDEX_NONE
	b[mtlOff+0x1b] = INDEX_NONE
	putU32(b, mtlOff+0x28, 0xdeadbeef) // draw key

	d, err := Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	materials := d.Materials()
	if len(materials) != 1 {
		t.Fatalf("len(Materials()) = %d, expected 1", len(materials))
	}
	m := &materials[0]
	if m.PartIdMask != 0x5 || m.DrawKey != 0xdeadbeef {
		t.Errorf("material = %+v", m)
	}
	if m.ShaderLightRegisters.IsNull() || m.ShaderLightRegisters.Offset() != uint32(regsOff) {
		t.Errorf("light registers reference = %+v", m.ShaderLightRegisters)
	}
	if !m.ShaderSurfaceRegisters.IsNull() {
		t.Error("null surface registers decoded as non-null")
	}
	indices := m.TexLayerIndices()
	if len(indices) != 2 || indices[0] != 2 || indices[1] != 0 {
		t.Errorf("TexLayerIndices() = %v", indices)
	}
}

func TestTexLayerFlipPalette(t *testing.T) {
	b := buildMeshBlob(TEXLAYER_SIZE + 2*4 + 2*TEXINST_SIZE)
	layerOff := MESH_HEADER_SIZE + GCMESH_SIZE
	paletteOff := layerOff + TEXLAYER_SIZE
	instOff := paletteOff + 2*4
	b[hdrTexLayers] = 1
	putU32(b, hdrTexLayersOff, uint32(layerOff))

	b[layerOff] = 3   // tex layer id
	b[layerOff+2] = 2 // flip page count
	b[layerOff+3] = 4 // frames per flip
	putU32(b, layerOff+4, uint32(paletteOff))
	putF32(b, layerOff+8, 0.5) // scroll s per second

	putU32(b, paletteOff, uint32(instOff))
	putU32(b, paletteOff+4, uint32(instOff+TEXINST_SIZE))

	d, err := Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	layers := d.TexLayers()
	if len(layers) != 1 {
		t.Fatalf("len(TexLayers()) = %d, expected 1", len(layers))
	}
	l := &layers[0]
	if l.TexLayerId != 3 || l.FlipPageCount != 2 || l.FramesPerFlip != 4 {
		t.Errorf("tex layer = %+v", l)
	}
	if l.ScrollStPerSecond[0] != 0.5 {
		t.Errorf("scroll = %v", l.ScrollStPerSecond)
	}
	if len(l.FlipPalette) != 2 {
		t.Fatalf("len(FlipPalette) = %d, expected 2", len(l.FlipPalette))
	}
	if l.FlipPalette[1].Offset() != uint32(instOff+TEXINST_SIZE) {
		t.Errorf("flip palette entry 1 = %+v", l.FlipPalette[1])
	}
}

func TestTexLayerFlipPaletteEntryOutOfBlob(t *testing.T) {
	b := buildMeshBlob(TEXLAYER_SIZE + 4)
	layerOff := MESH_HEADER_SIZE + GCMESH_SIZE
	paletteOff := layerOff + TEXLAYER_SIZE
	b[hdrTexLayers] = 1
	putU32(b, hdrTexLayersOff, uint32(layerOff))
	b[layerOff+2] = 1
	putU32(b, layerOff+4, uint32(paletteOff))
	putU32(b, paletteOff, uint32(len(b))) // points past the end

	_, err := Load(b)
	if errors.Cause(err) != ErrMalformedOffset {
		t.Errorf("Load error = %v, expected ErrMalformedOffset", err)
	}
}
