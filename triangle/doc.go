// Package triangle renders batches of trimesh.DrawItem values with a single
// render pipeline on a gogpu/wgpu hal device.
//
// # Per-frame flow
//
// Pipeline.Draw packs every item of a frame into three shared buffers:
//
//	uniforms  [item 0 | item 1 | ...]    one mat4x4<f32> per item, UniformStride apart
//	vertices  [mesh 0 ... | mesh 1 ...]  24-byte Vertex2D records
//	indices   [mesh 0 ... | mesh 1 ...]  uint32, relative to each mesh
//
// Data goes through a staging belt: bytes are written into reusable
// transient buffers with the queue and copied into place by commands on
// the frame's encoder. One render pass then draws the items in input
// order, binding item i's uniforms with dynamic offset i*UniformStride and
// its vertex and index ranges at their byte offsets.
//
// The buffers only grow. Growth happens before any upload of the frame and
// nothing is copied forward, since every frame rewrites them entirely.
//
// Staging space and outgrown buffers stay reserved until Pipeline.Recall.
// Call it after the work of the recorded Draws has completed on the GPU,
// typically once per frame after waiting on the submission. Several Draws
// may share one encoder in between.
//
// # Antialiasing
//
// With WithAntialiasing the pass renders into a multisampled attachment
// owned by a Resolver, cleared to transparent black at the start of the
// pass, and the Resolver composites the resolved image onto the target.
// Without it, draws go straight onto the target and its contents are kept.
//
// # Build tags
//
// All files of this package are excluded by the nogpu build tag.
package triangle
