package ape

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
)

// ExportObj writes a wavefront obj view of the mesh. GameCube buffers
// become point clouds since triangle assembly lives inside raw display
// lists; DirectX buffers get faces when a paired index buffer exists and
// every index lands inside the buffer.
func (d *Document) ExportObj(_w io.Writer) error {
	w := func(format string, args ...interface{}) {
		_w.Write(([]byte)(fmt.Sprintf(format+"\n", args...)))
	}

	w("# %s", d.Name)

	switch d.platform {
	case PLATFORM_GAMECUBE:
		exportObjGx(w, d.gc)
	case PLATFORM_DIRECTX8:
		exportObjDx(w, d.dx)
	}

	return nil
}

func exportObjGx(w func(string, ...interface{}), m *GxMesh) {
	iV := uint32(1)
	for iBuffer := range m.VertexBuffers {
		vb := &m.VertexBuffers[iBuffer]
		positions := vb.Positions()

		w("o gx%.2d", iBuffer)
		for _, position := range positions {
			w("v %f %f %f", position[0], position[1], position[2])
		}
		for _, st := range vb.St() {
			w("vt %f %f", float32(st.S), -float32(st.T))
		}

		w("p%s", objIndexRun(iV, uint32(len(positions))))
		iV += uint32(len(positions))
	}
}

func exportObjDx(w func(string, ...interface{}), m *DxMesh) {
	iV := uint32(1)
	for iBuffer := range m.VertexBuffers {
		vb := &m.VertexBuffers[iBuffer]
		positions := vb.Positions()
		if positions == nil {
			continue
		}

		w("o dx%.2dl%s", iBuffer, vb.Layout)
		for _, position := range positions {
			w("v %f %f %f", position[0], position[1], position[2])
		}

		haveUV := false
		if records, err := vb.Records(); err == nil {
			if uvs := dxRecordUVs(records); uvs != nil {
				haveUV = true
				for _, uv := range uvs {
					w("vt %f %f", uv[0], -uv[1])
				}
			}
		}

		indexes := m.IndexBuffer(iBuffer)
		if faceable(indexes, uint32(len(positions))) {
			for iIndex := 0; iIndex+3 <= len(indexes); iIndex += 3 {
				a, b, c := uint32(indexes[iIndex]), uint32(indexes[iIndex+1]), uint32(indexes[iIndex+2])
				if haveUV {
					w("f %v/%v %v/%v %v/%v", iV+a, iV+a, iV+b, iV+b, iV+c, iV+c)
				} else {
					w("f %v %v %v", iV+a, iV+b, iV+c)
				}
			}
		} else {
			w("p%s", objIndexRun(iV, uint32(len(positions))))
		}

		iV += uint32(len(positions))
	}
}

func faceable(indexes []uint16, vertexCount uint32) bool {
	if len(indexes) < 3 {
		return false
	}
	for _, index := range indexes {
		if uint32(index) >= vertexCount {
			return false
		}
	}
	return true
}

func objIndexRun(start, count uint32) string {
	s := ""
	for i := uint32(0); i < count; i++ {
		s += fmt.Sprintf(" %v", start+i)
	}
	return s
}

// dxRecordUVs pulls the first texture coordinate layer out of a decoded
// record slice, nil when the layout carries none.
func dxRecordUVs(records DxRecords) []mgl32.Vec2 {
	switch recs := records.(type) {
	case DxRecordsN1C1T1:
		out := make([]mgl32.Vec2, len(recs))
		for i := range recs {
			out[i] = recs[i].ST0
		}
		return out
	case DxRecordsN1C1T2:
		out := make([]mgl32.Vec2, len(recs))
		for i := range recs {
			out[i] = recs[i].ST0
		}
		return out
	case DxRecordsN1W3C1T1:
		out := make([]mgl32.Vec2, len(recs))
		for i := range recs {
			out[i] = recs[i].ST0
		}
		return out
	case DxRecordsN1W3C1T2:
		out := make([]mgl32.Vec2, len(recs))
		for i := range recs {
			out[i] = recs[i].ST0
		}
		return out
	case DxRecordsTLC2T2:
		out := make([]mgl32.Vec2, len(recs))
		for i := range recs {
			out[i] = recs[i].ST0
		}
		return out
	case DxRecordsC1T1:
		out := make([]mgl32.Vec2, len(recs))
		for i := range recs {
			out[i] = recs[i].ST0
		}
		return out
	default:
		return nil
	}
}
