package ape

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/ape_browser/utils"
	"github.com/pkg/errors"
)

const MESH_HEADER_SIZE = 0x8c

type Platform int

const (
	PLATFORM_GAMECUBE Platform = 1
	PLATFORM_DIRECTX8 Platform = 2
)

func (p Platform) String() string {
	switch p {
	case PLATFORM_GAMECUBE:
		return "gamecube"
	case PLATFORM_DIRECTX8:
		return "directx8"
	default:
		return fmt.Sprintf("platform(%d)", int(p))
	}
}

var unnamedMeshes utils.RandomNameGenerator

// Document is a loaded mesh asset. After Load returns it is read-only and
// safe to share between goroutines.
type Document struct {
	Name string

	BoundSphere Sphere
	BoundBoxMin mgl32.Vec3
	BoundBoxMax mgl32.Vec3

	Flags        uint16
	MeshCollMask uint16

	// Non-void bones are grouped at the beginning of the bone array
	UsedBoneCount uint8
	// Index of the root bone (255 if this mesh has no bones)
	RootBoneIndex uint8
	ShadowLodBias uint8

	lodCount    uint8
	lodDistance [MAX_LOD_MESH_COUNT]float32

	segments  []Segment
	bones     []Bone
	lights    []Light
	materials []Material
	texLayers []TexLayerID

	skeletonIndexes Reference
	// Never structurally decoded, layout unverified; kept addressable only
	collisionTree Reference

	platform Platform
	gc       *GxMesh
	dx       *DxMesh

	warnings  []string
	relocated bool
	blob      *Blob
}

// Load byte-converts and relocates a raw mesh blob into a Document.
// The buffer is owned by the returned document and must not be modified
// by the caller afterwards.
func Load(data []byte) (*Document, error) {
	d := &Document{blob: NewBlob(data)}
	if err := d.Relocate(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadFile reads a whole asset file into memory and loads it.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}
	return Load(data)
}

// Relocate runs the single fixup pass: decode every big-endian field of
// the structure graph and convert every stored offset into a checked
// Reference. Load calls it exactly once; any further invocation fails
// with ErrDoubleRelocation instead of corrupting the document.
func (d *Document) Relocate() error {
	if d.relocated {
		return ErrDoubleRelocation
	}
	d.relocated = true

	if d.blob.Len() < MESH_HEADER_SIZE {
		return errors.Wrapf(ErrTruncated, "blob size 0x%x below header size 0x%x", d.blob.Len(), MESH_HEADER_SIZE)
	}

	rl := NewRelocator(d.blob)
	r := newReader(d.blob, 0)

	d.Name = utils.BytesToString(r.Bytes(MESH_NAME_LENGTH))
	d.BoundSphere = r.Sphere()
	d.BoundBoxMin = r.Vec3()
	d.BoundBoxMax = r.Vec3()
	d.Flags = r.U16()
	d.MeshCollMask = r.U16()
	d.UsedBoneCount = r.U8()
	d.RootBoneIndex = r.U8()
	boneCount := r.U8()
	segmentCount := r.U8()
	texLayerIdCount := r.U8()
	r.Skip(2) // tex layer ST/flip subset counts, derivable from flags
	lightCount := r.U8()
	materialCount := r.U8()
	collTreeCount := r.U8()
	d.lodCount = r.U8()
	d.ShadowLodBias = r.U8()
	for i := range d.lodDistance {
		d.lodDistance[i] = r.F32()
	}

	segmentsOff := r.Offset()
	bonesOff := r.Offset()
	lightsOff := r.Offset()
	skeletonIndexOff := r.Offset()
	materialsOff := r.Offset()
	collTreeOff := r.Offset()
	texLayersOff := r.Offset()
	gcOff := r.Offset()
	dxOff := r.Offset()
	if err := r.Err(); err != nil {
		return err
	}

	if d.Name == "" {
		d.Name = unnamedMeshes.RandomName()
	}

	var err error
	if d.segments, err = parseSegments(rl, segmentsOff, segmentCount); err != nil {
		return errors.Wrap(err, "segments")
	}
	if d.bones, err = parseBones(rl, bonesOff, boneCount); err != nil {
		return errors.Wrap(err, "bones")
	}
	if d.lights, err = parseLights(rl, lightsOff, lightCount); err != nil {
		return errors.Wrap(err, "lights")
	}
	if d.materials, err = parseMaterials(rl, materialsOff, materialCount); err != nil {
		return errors.Wrap(err, "materials")
	}
	if d.texLayers, err = parseTexLayers(rl, texLayersOff, texLayerIdCount); err != nil {
		return errors.Wrap(err, "tex layers")
	}

	// The skeleton index array has no stored length; the smallest size
	// that holds every bone's child list is the furthest list end. Child
	// lists are not required to be densely packed.
	skeletonIndexCount := uint32(0)
	for i := range d.bones {
		sk := &d.bones[i].Skeleton
		if sk.ChildBoneCount == 0 {
			continue
		}
		if end := uint32(sk.ChildArrayStartIndex) + uint32(sk.ChildBoneCount); end > skeletonIndexCount {
			skeletonIndexCount = end
		}
	}
	if d.skeletonIndexes, err = rl.Relocate(skeletonIndexOff, skeletonIndexCount, 1); err != nil {
		return errors.Wrap(err, "skeleton index array")
	}

	if d.collisionTree, err = rl.Relocate(collTreeOff, uint32(collTreeCount), 0); err != nil {
		return errors.Wrap(err, "collision tree")
	}

	switch {
	case gcOff.IsNull() && dxOff.IsNull():
		return errors.Wrap(ErrNullRequiredField, "platform-specific payload")
	case !gcOff.IsNull() && !dxOff.IsNull():
		return errors.New("both platform payloads present")
	case !gcOff.IsNull():
		d.platform = PLATFORM_GAMECUBE
		if d.gc, err = parseGxMesh(rl, gcOff); err != nil {
			return errors.Wrap(err, "gamecube mesh")
		}
	default:
		d.platform = PLATFORM_DIRECTX8
		if d.dx, err = parseDxMesh(rl, dxOff, d.addWarning); err != nil {
			return errors.Wrap(err, "directx8 mesh")
		}
	}

	return nil
}

func (d *Document) addWarning(format string, a ...interface{}) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, a...))
}

func parseSegments(rl *Relocator, off RawOffset, count uint8) ([]Segment, error) {
	ref, err := rl.Relocate(off, uint32(count), SEGMENT_SIZE)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	r := newRefReader(ref)
	segments := make([]Segment, count)
	for i := range segments {
		segments[i].parse(r)
	}
	return segments, r.Err()
}

func parseBones(rl *Relocator, off RawOffset, count uint8) ([]Bone, error) {
	ref, err := rl.Relocate(off, uint32(count), BONE_SIZE)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	r := newRefReader(ref)
	bones := make([]Bone, count)
	for i := range bones {
		bones[i].parse(r)
	}
	return bones, r.Err()
}

func parseLights(rl *Relocator, off RawOffset, count uint8) ([]Light, error) {
	ref, err := rl.Relocate(off, uint32(count), LIGHT_SIZE)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	r := newRefReader(ref)
	lights := make([]Light, count)
	for i := range lights {
		if err := lights[i].parse(r); err != nil {
			return nil, errors.Wrapf(err, "light %d", i)
		}
	}
	return lights, r.Err()
}

func parseMaterials(rl *Relocator, off RawOffset, count uint8) ([]Material, error) {
	ref, err := rl.Relocate(off, uint32(count), MATERIAL_SIZE)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	r := newRefReader(ref)
	materials := make([]Material, count)
	for i := range materials {
		if err := materials[i].parse(r, rl); err != nil {
			return nil, errors.Wrapf(err, "material %d", i)
		}
	}
	return materials, r.Err()
}

func parseTexLayers(rl *Relocator, off RawOffset, count uint8) ([]TexLayerID, error) {
	ref, err := rl.Relocate(off, uint32(count), TEXLAYER_SIZE)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	r := newRefReader(ref)
	layers := make([]TexLayerID, count)
	for i := range layers {
		if err := layers[i].parse(r, rl); err != nil {
			return nil, errors.Wrapf(err, "tex layer %d", i)
		}
	}
	return layers, r.Err()
}

// Accessors return empty sequences when the backing pointer was null,
// regardless of what the sibling count field claimed.

func (d *Document) Segments() []Segment     { return d.segments }
func (d *Document) Bones() []Bone           { return d.bones }
func (d *Document) Lights() []Light         { return d.lights }
func (d *Document) Materials() []Material   { return d.materials }
func (d *Document) TexLayers() []TexLayerID { return d.texLayers }

func (d *Document) LodDistances() []float32 {
	n := int(d.lodCount)
	if n > len(d.lodDistance) {
		n = len(d.lodDistance)
	}
	return d.lodDistance[:n]
}

// SkeletonIndex reads entry i of the skeleton index array, false when the
// array is null or i is out of range.
func (d *Document) SkeletonIndex(i uint8) (uint8, bool) {
	b := d.skeletonIndexes.Bytes()
	if uint32(i) >= uint32(len(b)) {
		return 0, false
	}
	return b[i], true
}

// BoneChildren returns the child bone indices of bone i.
func (d *Document) BoneChildren(i int) []uint8 {
	if i < 0 || i >= len(d.bones) {
		return nil
	}
	sk := &d.bones[i].Skeleton
	b := d.skeletonIndexes.Bytes()
	end := uint32(sk.ChildArrayStartIndex) + uint32(sk.ChildBoneCount)
	if end > uint32(len(b)) {
		return nil
	}
	return b[sk.ChildArrayStartIndex:end]
}

// CollisionTree exposes the raw, undecoded collision tree range.
func (d *Document) CollisionTree() Reference { return d.collisionTree }

func (d *Document) Platform() Platform { return d.platform }

// GameCube returns the GameCube payload, nil for DirectX8 documents.
func (d *Document) GameCube() *GxMesh { return d.gc }

// DirectX returns the DirectX8 payload, nil for GameCube documents.
func (d *Document) DirectX() *DxMesh { return d.dx }

// Warnings lists non-fatal anomalies found while loading, e.g. index
// buffer entries beyond their vertex buffer.
func (d *Document) Warnings() []string { return d.warnings }
