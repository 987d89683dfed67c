// Package trimesh describes batches of colored 2-D triangle meshes for GPU
// rendering.
//
// # Overview
//
// A frame is a list of [DrawItem] values, each placing a shared, immutable
// [Mesh2D] at an origin. The triangle sub-package packs every item of a
// frame into three persistent GPU buffers (vertices, indices, per-item
// uniforms) and records a single render pass that draws the items in
// order, optionally through a multisampled attachment.
//
// # Data layout
//
// A [Vertex2D] is 24 bytes on the GPU: a vec2 position followed by a vec4
// linear RGBA color. Indices are 32-bit. Each item's uniform block is one
// column-major 4x4 matrix computed as global·Translate(origin).
//
// # Quick Start
//
//	p, err := triangle.NewPipeline(device, queue, gputypes.TextureFormatBGRA8Unorm,
//	    triangle.WithAntialiasing(trimesh.MSAAx4),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Destroy()
//
//	mesh := &trimesh.Mesh2D{Vertices: verts, Indices: []uint32{0, 1, 2}}
//	err = p.Draw(triangle.WrapEncoder(encoder), view, w, h,
//	    trimesh.Orthographic(float32(w), float32(h)),
//	    []trimesh.DrawItem{{Origin: trimesh.Pt(10, 10), Mesh: mesh}},
//	    trimesh.Rectangle{Width: w, Height: h},
//	)
//	// ... end encoding, submit, wait for completion ...
//	p.Recall()
//
// The pipeline compiles its embedded WGSL shaders unless
// triangle.WithShaders supplies SPIR-V blobs.
//
// # Logging
//
// trimesh is silent by default. Use [SetLogger] to route diagnostics to any
// [log/slog] handler.
package trimesh
