//go:build !nogpu

package triangle

import "github.com/gogpu/trimesh"

// Initial buffer capacities, in elements.
const (
	DefaultUniformCapacity = 100
	DefaultVertexCapacity  = 100_000
	DefaultIndexCapacity   = 100_000
)

// DefaultStagingChunkSize is the size of one staging belt chunk in bytes.
const DefaultStagingChunkSize = 1 << 20

// Option configures a Pipeline during creation.
//
// Example:
//
//	p, err := triangle.NewPipeline(device, queue, format,
//	    triangle.WithAntialiasing(trimesh.MSAAx4),
//	    triangle.WithUniformAlignment(limits.MinUniformBufferOffsetAlignment),
//	)
type Option func(*config)

type config struct {
	antialiasing trimesh.Antialiasing
	resolver     Resolver

	vertexShader   []byte
	fragmentShader []byte

	uniformCapacity uint64
	vertexCapacity  uint64
	indexCapacity   uint64

	uniformAlignment uint64
	stagingChunkSize uint64
	validateMeshes   bool
}

func defaultConfig() config {
	return config{
		uniformCapacity:  DefaultUniformCapacity,
		vertexCapacity:   DefaultVertexCapacity,
		indexCapacity:    DefaultIndexCapacity,
		uniformAlignment: UniformsSize,
		stagingChunkSize: DefaultStagingChunkSize,
	}
}

// WithAntialiasing renders through a multisampled attachment with the
// sample count of a. Without a resolver option the pipeline creates its own.
func WithAntialiasing(a trimesh.Antialiasing) Option {
	return func(c *config) {
		c.antialiasing = a
	}
}

// WithResolver supplies the multisample resolver. Its sample count, which
// must be at least 2, becomes the pipeline's sample count. The pipeline
// takes ownership and destroys it.
func WithResolver(r Resolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithShaders supplies SPIR-V blobs for the vertex and fragment stages.
// Both must expose a "main" entry point. By default the embedded shaders
// are compiled with naga.
func WithShaders(vertex, fragment []byte) Option {
	return func(c *config) {
		c.vertexShader = vertex
		c.fragmentShader = fragment
	}
}

// WithInitialCapacity sets the initial capacities, in elements, of the
// uniform, vertex and index buffers. Zero keeps the default.
func WithInitialCapacity(uniforms, vertices, indices uint64) Option {
	return func(c *config) {
		if uniforms > 0 {
			c.uniformCapacity = uniforms
		}
		if vertices > 0 {
			c.vertexCapacity = vertices
		}
		if indices > 0 {
			c.indexCapacity = indices
		}
	}
}

// WithUniformAlignment pads the per-item uniform stride to a multiple of
// align, which must be a power of two. Pass the device's
// minUniformBufferOffsetAlignment when it exceeds 64.
func WithUniformAlignment(align uint64) Option {
	return func(c *config) {
		c.uniformAlignment = align
	}
}

// WithStagingChunkSize sets the size of staging belt chunks in bytes.
func WithStagingChunkSize(size uint64) Option {
	return func(c *config) {
		if size > 0 {
			c.stagingChunkSize = size
		}
	}
}

// WithMeshValidation makes Draw check every mesh with Mesh2D.Validate
// before uploading anything.
func WithMeshValidation() Option {
	return func(c *config) {
		c.validateMeshes = true
	}
}
