//go:build !nogpu

package triangle

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/trimesh"
)

// UniformsSize is the size of one Uniforms block in bytes.
const UniformsSize = 64

// Uniforms is the per-item uniform block: the item transform as a
// column-major mat4x4<f32>.
type Uniforms struct {
	Transform [16]float32
}

// NewUniforms converts a transformation into its uniform block.
func NewUniforms(t trimesh.Transformation) Uniforms {
	return Uniforms{Transform: t.ColumnMajor()}
}

// offsetRecord locates one item's data inside the shared buffers.
type offsetRecord struct {
	vertexOffset uint64 // bytes
	indexOffset  uint64 // bytes
	indexCount   uint32
}

// batchPlan is the layout of one frame's items in the shared buffers.
type batchPlan struct {
	vertices uint64 // total vertex count
	indices  uint64 // total index count
	records  []offsetRecord
}

// planBatch lays the items out back to back in input order. records is
// reused as backing storage. A nil mesh occupies no space.
func planBatch(items []trimesh.DrawItem, records []offsetRecord) batchPlan {
	plan := batchPlan{records: records[:0]}
	for _, item := range items {
		rec := offsetRecord{
			vertexOffset: plan.vertices * trimesh.VertexSize,
			indexOffset:  plan.indices * trimesh.IndexSize,
		}
		if item.Mesh != nil {
			rec.indexCount = uint32(len(item.Mesh.Indices)) //nolint:gosec // index counts fit uint32 on every backend
			plan.vertices += uint64(len(item.Mesh.Vertices))
			plan.indices += uint64(len(item.Mesh.Indices))
		}
		plan.records = append(plan.records, rec)
	}
	return plan
}

// appendVertices encodes vertices in the little-endian GPU layout.
func appendVertices(dst []byte, vertices []trimesh.Vertex2D) []byte {
	for _, v := range vertices {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v.Position[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v.Position[1]))
		for _, c := range v.Color {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(c))
		}
	}
	return dst
}

func appendIndices(dst []byte, indices []uint32) []byte {
	for _, i := range indices {
		dst = binary.LittleEndian.AppendUint32(dst, i)
	}
	return dst
}

// appendUniforms encodes u and pads it with zeros to stride bytes.
func appendUniforms(dst []byte, u Uniforms, stride uint64) []byte {
	for _, f := range u.Transform {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	for pad := stride - UniformsSize; pad > 0; pad-- {
		dst = append(dst, 0)
	}
	return dst
}
