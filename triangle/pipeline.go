// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package triangle

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/google/uuid"

	"github.com/gogpu/trimesh"
	"github.com/gogpu/trimesh/internal/shader"
)

// Pipeline errors.
var (
	// ErrInvalidShader is returned when a shader blob is not valid SPIR-V.
	ErrInvalidShader = errors.New("triangle: invalid shader")

	// ErrPipelineDestroyed is returned by Draw after Destroy.
	ErrPipelineDestroyed = errors.New("triangle: pipeline has been destroyed")

	// ErrSampleCountMismatch is returned when WithAntialiasing and
	// WithResolver disagree on the sample count, or when the resolver is
	// not multisampled.
	ErrSampleCountMismatch = errors.New("triangle: resolver sample count does not match antialiasing")
)

// vertexLayout matches VertexInput in triangle.vert.wgsl:
//
//	location 0: position (vec2<f32>) at byte 0
//	location 1: color    (vec4<f32>) at byte 8
func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: trimesh.VertexSize,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1}, // color
			},
		},
	}
}

// blendState is straight-alpha color over, premultiplied alpha accumulation.
func blendState() gputypes.BlendState {
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// Pipeline draws batches of triangle meshes into a render target of one
// texture format.
//
// A Pipeline owns three buffers that only grow: per-item uniforms, vertices
// and indices. Every Draw packs all items of a frame into them and records
// one render pass. A Pipeline is not safe for concurrent use.
type Pipeline struct {
	device hal.Device
	queue  Queue
	format gputypes.TextureFormat
	id     uuid.UUID
	cfg    config

	samples       uint32
	uniformStride uint64

	vsModule      hal.ShaderModule
	fsModule      hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
	uniformGroup  hal.BindGroup

	uniforms *Buffer[Uniforms]
	vertices *Buffer[trimesh.Vertex2D]
	indices  *Buffer[uint32]

	staging  stagingBelt
	resolver Resolver

	// Replaced by growth but possibly still referenced by recorded
	// commands; released by Recall.
	retiredBuffers []hal.Buffer
	retiredGroups  []hal.BindGroup

	// Per-frame scratch, reused across frames.
	records  []offsetRecord
	scratch  []byte
	uniBytes []byte
	offsets  []uint32

	last      FrameStats
	destroyed bool
}

// NewPipeline creates every GPU object the pipeline needs. On failure all
// partially created resources are released and the error names the object
// that could not be created.
func NewPipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat, opts ...Option) (*Pipeline, error) {
	return newPipeline(device, halQueue{q: queue}, format, opts...)
}

func newPipeline(device hal.Device, queue Queue, format gputypes.TextureFormat, opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pipeline{
		device:  device,
		queue:   queue,
		format:  format,
		id:      uuid.New(),
		cfg:     cfg,
		samples: cfg.antialiasing.SampleCount(),
		staging: newStagingBelt(cfg.stagingChunkSize),
		offsets: make([]uint32, 1),
	}

	if err := p.init(); err != nil {
		p.release()
		slogger().Warn("triangle: pipeline creation failed", "id", p.id, "err", err)
		return nil, err
	}

	slogger().Info("triangle: pipeline created",
		"id", p.id,
		"format", format,
		"samples", p.samples,
		"uniform_stride", p.uniformStride,
	)
	return p, nil
}

func (p *Pipeline) init() error {
	align := p.cfg.uniformAlignment
	if align == 0 || align&(align-1) != 0 {
		return fmt.Errorf("triangle: uniform alignment %d is not a power of two", align)
	}
	p.uniformStride = alignUp(UniformsSize, align)

	if r := p.cfg.resolver; r != nil {
		if r.SampleCount() < 2 {
			return fmt.Errorf("%w: resolver has %d sample(s), need at least 2", ErrSampleCountMismatch, r.SampleCount())
		}
		if p.cfg.antialiasing != trimesh.AntialiasingOff && r.SampleCount() != p.samples {
			return fmt.Errorf("%w: resolver %d, %s", ErrSampleCountMismatch, r.SampleCount(), p.cfg.antialiasing)
		}
		p.resolver = r
		p.samples = r.SampleCount()
	}

	if err := p.createShaders(); err != nil {
		return err
	}
	if err := p.createPipeline(); err != nil {
		return err
	}
	if err := p.createBuffers(); err != nil {
		return err
	}
	if err := p.createUniformGroup(); err != nil {
		return err
	}

	if p.resolver == nil && p.samples > 1 {
		r, err := newMSAABlit(p.device, p.format, p.samples)
		if err != nil {
			return fmt.Errorf("create msaa resolver: %w", err)
		}
		p.resolver = r
	}
	return nil
}

func (p *Pipeline) createShaders() error {
	vs, fs := p.cfg.vertexShader, p.cfg.fragmentShader
	if vs == nil || fs == nil {
		var err error
		vs, fs, err = shader.Triangle()
		if err != nil {
			return fmt.Errorf("triangle: embedded shaders: %w", err)
		}
	}

	mod, err := p.shaderModule(shader.Vertex, vs)
	if err != nil {
		return err
	}
	p.vsModule = mod

	mod, err = p.shaderModule(shader.Fragment, fs)
	if err != nil {
		return err
	}
	p.fsModule = mod
	return nil
}

func (p *Pipeline) shaderModule(stage shader.Stage, blob []byte) (hal.ShaderModule, error) {
	words, err := shader.Words(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %s shader: %w", ErrInvalidShader, stage, err)
	}
	mod, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "triangle_" + stage.String() + "_shader",
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s shader module: %w", stage, err)
	}
	return mod, nil
}

func (p *Pipeline) createPipeline() error {
	uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "triangle_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   UniformsSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create triangle uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "triangle_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("create triangle pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	blend := blendState()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "triangle_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vsModule,
			EntryPoint: shader.EntryPoint,
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.fsModule,
			EntryPoint: shader.EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: p.samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create triangle pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

func (p *Pipeline) createBuffers() error {
	var err error
	p.uniforms, err = NewStridedBuffer[Uniforms](p.device, "triangle_uniforms",
		p.cfg.uniformCapacity, p.uniformStride,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	p.vertices, err = NewBuffer[trimesh.Vertex2D](p.device, "triangle_vertices",
		p.cfg.vertexCapacity, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	p.indices, err = NewBuffer[uint32](p.device, "triangle_indices",
		p.cfg.indexCapacity, gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	return err
}

// createUniformGroup binds one Uniforms block of the uniform buffer. It is
// rebuilt whenever that buffer grows.
func (p *Pipeline) createUniformGroup() error {
	group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "triangle_uniform_group",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniforms.Raw().NativeHandle(),
				Offset: 0,
				Size:   UniformsSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create triangle uniform bind group: %w", err)
	}
	if p.uniformGroup != nil {
		p.retiredGroups = append(p.retiredGroups, p.uniformGroup)
	}
	p.uniformGroup = group
	return nil
}

// Recall returns the upload space of every Draw since the previous Recall
// to the pipeline and releases buffers those Draws outgrew. Call it once
// the command buffers holding them have finished executing; until then
// Draws may share one encoder or be in flight together, at the cost of
// more staging memory.
func (p *Pipeline) Recall() {
	if p.destroyed {
		return
	}
	p.staging.recall()
	p.releaseRetired()
}

func (p *Pipeline) releaseRetired() {
	for _, g := range p.retiredGroups {
		p.device.DestroyBindGroup(g)
	}
	for _, b := range p.retiredBuffers {
		p.device.DestroyBuffer(b)
	}
	clear(p.retiredGroups)
	clear(p.retiredBuffers)
	p.retiredGroups = p.retiredGroups[:0]
	p.retiredBuffers = p.retiredBuffers[:0]
}

// ID identifies the pipeline in log output.
func (p *Pipeline) ID() uuid.UUID { return p.id }

// Format returns the color target format.
func (p *Pipeline) Format() gputypes.TextureFormat { return p.format }

// SampleCount returns the multisample count, 1 when antialiasing is off.
func (p *Pipeline) SampleCount() uint32 { return p.samples }

// UniformStride returns the byte distance between per-item uniform blocks.
func (p *Pipeline) UniformStride() uint64 { return p.uniformStride }

// Capacities returns the current capacities, in elements, of the uniform,
// vertex and index buffers.
func (p *Pipeline) Capacities() (uniforms, vertices, indices uint64) {
	return p.uniforms.Capacity(), p.vertices.Capacity(), p.indices.Capacity()
}

// Destroy releases all GPU resources. Safe to call multiple times.
func (p *Pipeline) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.release()
}

// release destroys resources in reverse creation order.
func (p *Pipeline) release() {
	if p.device == nil {
		return
	}
	if p.resolver != nil {
		p.resolver.Destroy()
		p.resolver = nil
	}
	p.staging.destroy(p.device)
	p.releaseRetired()
	if p.uniformGroup != nil {
		p.device.DestroyBindGroup(p.uniformGroup)
		p.uniformGroup = nil
	}
	if p.indices != nil {
		p.indices.Destroy(p.device)
	}
	if p.vertices != nil {
		p.vertices.Destroy(p.device)
	}
	if p.uniforms != nil {
		p.uniforms.Destroy(p.device)
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.fsModule != nil {
		p.device.DestroyShaderModule(p.fsModule)
		p.fsModule = nil
	}
	if p.vsModule != nil {
		p.device.DestroyShaderModule(p.vsModule)
		p.vsModule = nil
	}
}
