package ape

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/ape_browser/utils/gltfutils"
)

// ExportGLTF converts the mesh into a fresh gltf document. Every vertex
// buffer becomes its own gltf mesh node so viewers can toggle pieces
// independently.
func (d *Document) ExportGLTF() (*gltf.Document, error) {
	doc := gltfutils.NewDocument()

	switch d.platform {
	case PLATFORM_GAMECUBE:
		exportGLTFGx(doc, d.Name, d.gc)
	case PLATFORM_DIRECTX8:
		exportGLTFDx(doc, d.Name, d.dx)
	}

	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "default",
		DoubleSided: true,
	})
	for _, gltfMesh := range doc.Meshes {
		for _, primitive := range gltfMesh.Primitives {
			primitive.Material = gltf.Index(0)
		}
	}

	return doc, nil
}

func exportGLTFGx(doc *gltf.Document, name string, m *GxMesh) {
	for iBuffer := range m.VertexBuffers {
		vb := &m.VertexBuffers[iBuffer]

		vertices := vb.Positions()
		if len(vertices) == 0 {
			continue
		}
		positions := make([][3]float32, len(vertices))
		for iVertex, position := range vertices {
			positions[iVertex] = position
		}

		attributes := map[string]uint32{
			"POSITION": modeler.WritePosition(doc, positions),
		}

		mode := gltf.PrimitivePoints
		addGLTFMesh(doc, fmt.Sprintf("%s_gx%d", name, iBuffer), &gltf.Primitive{
			Attributes: attributes,
			Mode:       mode,
		})
	}
}

func exportGLTFDx(doc *gltf.Document, name string, m *DxMesh) {
	for iBuffer := range m.VertexBuffers {
		vb := &m.VertexBuffers[iBuffer]

		vertices := vb.Positions()
		if len(vertices) == 0 {
			continue
		}
		positions := make([][3]float32, len(vertices))
		for iVertex, position := range vertices {
			positions[iVertex] = position
		}

		attributes := map[string]uint32{
			"POSITION": modeler.WritePosition(doc, positions),
		}

		if records, err := vb.Records(); err == nil {
			if uvs := dxRecordUVs(records); uvs != nil {
				texCoords := make([][2]float32, len(uvs))
				for iVertex, uv := range uvs {
					texCoords[iVertex] = uv
				}
				attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, texCoords)
			}
		}

		primitive := &gltf.Primitive{
			Attributes: attributes,
			Mode:       gltf.PrimitivePoints,
		}

		if indexes := m.IndexBuffer(iBuffer); faceable(indexes, uint32(len(vertices))) {
			indices := make([]uint32, len(indexes))
			for i, index := range indexes {
				indices[i] = uint32(index)
			}
			primitive.Indices = gltf.Index(modeler.WriteIndices(doc, indices))
			primitive.Mode = gltf.PrimitiveTriangles
		}

		addGLTFMesh(doc, fmt.Sprintf("%s_dx%d", name, iBuffer), primitive)
	}
}

func addGLTFMesh(doc *gltf.Document, name string, primitive *gltf.Primitive) {
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       name,
		Primitives: []*gltf.Primitive{primitive},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})
}
