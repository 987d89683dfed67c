// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package triangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/google/uuid"

	"github.com/gogpu/trimesh/internal/shader"
)

// Resolver owns the multisampled attachment of an antialiased pipeline and
// composites the resolved image onto the final target.
type Resolver interface {
	// SampleCount returns the samples per pixel of the attachment.
	SampleCount() uint32

	// Attachment returns the multisampled view to render into and the
	// single-sample view it resolves to, sized width×height.
	Attachment(width, height uint32) (view, resolveTarget hal.TextureView, err error)

	// Resolve records the composite of the resolved image onto target.
	Resolve(enc Encoder, target hal.TextureView)

	// Destroy releases the resolver's GPU resources.
	Destroy()
}

// msaaBlit is the default Resolver. The triangle pass renders into a
// multisampled texture that resolves into an intermediate texture, which a
// fullscreen triangle then blends onto the target with premultiplied alpha.
//
// Textures are recreated only when the requested size changes.
type msaaBlit struct {
	device  hal.Device
	format  gputypes.TextureFormat
	samples uint32
	label   string

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	msaaTex     hal.Texture
	msaaView    hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView
	group       hal.BindGroup
	width       uint32
	height      uint32
}

// NewMSAAResolver creates the default resolver for targets of the given
// format.
func NewMSAAResolver(device hal.Device, format gputypes.TextureFormat, samples uint32) (Resolver, error) {
	return newMSAABlit(device, format, samples)
}

func newMSAABlit(device hal.Device, format gputypes.TextureFormat, samples uint32) (*msaaBlit, error) {
	b := &msaaBlit{
		device:  device,
		format:  format,
		samples: samples,
		label:   "triangle_msaa_" + uuid.NewString(),
	}
	if err := b.createPipeline(); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *msaaBlit) SampleCount() uint32 { return b.samples }

func (b *msaaBlit) createPipeline() error {
	mod, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  b.label + "_blit_shader",
		Source: hal.ShaderSource{WGSL: shader.BlitWGSL},
	})
	if err != nil {
		return fmt.Errorf("compile msaa blit shader: %w", err)
	}
	b.shader = mod

	layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: b.label + "_blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create msaa blit layout: %w", err)
	}
	b.layout = layout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            b.label + "_blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{b.layout},
	})
	if err != nil {
		return fmt.Errorf("create msaa blit pipeline layout: %w", err)
	}
	b.pipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  b.label + "_blit_pipeline",
		Layout: b.pipeLayout,
		Vertex: hal.VertexState{
			Module:     b.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     b.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    b.format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create msaa blit pipeline: %w", err)
	}
	b.pipeline = pipeline
	return nil
}

func (b *msaaBlit) Attachment(width, height uint32) (view, resolveTarget hal.TextureView, err error) {
	if err := b.ensureTextures(width, height); err != nil {
		return nil, nil, err
	}
	return b.msaaView, b.resolveView, nil
}

// ensureTextures creates or recreates the attachment textures when the
// requested dimensions differ from the current ones.
func (b *msaaBlit) ensureTextures(w, h uint32) error {
	if b.width == w && b.height == h && b.msaaTex != nil {
		return nil
	}
	b.destroyTextures()

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	msaaTex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         b.label + "_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   b.samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        b.format,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create MSAA color texture: %w", err)
	}
	b.msaaTex = msaaTex

	msaaView, err := b.device.CreateTextureView(msaaTex, &hal.TextureViewDescriptor{
		Label: b.label + "_color_view",
	})
	if err != nil {
		b.destroyTextures()
		return fmt.Errorf("create MSAA color view: %w", err)
	}
	b.msaaView = msaaView

	resolveTex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         b.label + "_resolve",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        b.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		b.destroyTextures()
		return fmt.Errorf("create resolve texture: %w", err)
	}
	b.resolveTex = resolveTex

	resolveView, err := b.device.CreateTextureView(resolveTex, &hal.TextureViewDescriptor{
		Label:         b.label + "_resolve_view",
		Format:        b.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.destroyTextures()
		return fmt.Errorf("create resolve view: %w", err)
	}
	b.resolveView = resolveView

	group, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  b.label + "_blit_group",
		Layout: b.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{
				TextureView: resolveView.NativeHandle(),
			}},
		},
	})
	if err != nil {
		b.destroyTextures()
		return fmt.Errorf("create msaa blit bind group: %w", err)
	}
	b.group = group

	b.width = w
	b.height = h
	slogger().Debug("triangle: msaa textures created", "label", b.label, "width", w, "height", h, "samples", b.samples)
	return nil
}

// Resolve blends the resolved image onto target. It records nothing before
// the first Attachment call.
func (b *msaaBlit) Resolve(enc Encoder, target hal.TextureView) {
	if b.group == nil || b.pipeline == nil {
		return
	}
	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: b.label + "_blit_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})
	rp.SetPipeline(b.pipeline)
	rp.SetBindGroup(0, b.group, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
}

func (b *msaaBlit) destroyTextures() {
	if b.group != nil {
		b.device.DestroyBindGroup(b.group)
		b.group = nil
	}
	if b.resolveView != nil {
		b.device.DestroyTextureView(b.resolveView)
		b.resolveView = nil
	}
	if b.resolveTex != nil {
		b.device.DestroyTexture(b.resolveTex)
		b.resolveTex = nil
	}
	if b.msaaView != nil {
		b.device.DestroyTextureView(b.msaaView)
		b.msaaView = nil
	}
	if b.msaaTex != nil {
		b.device.DestroyTexture(b.msaaTex)
		b.msaaTex = nil
	}
	b.width = 0
	b.height = 0
}

// Destroy releases all resources in reverse creation order. Safe to call
// multiple times.
func (b *msaaBlit) Destroy() {
	if b.device == nil {
		return
	}
	b.destroyTextures()
	if b.pipeline != nil {
		b.device.DestroyRenderPipeline(b.pipeline)
		b.pipeline = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.layout != nil {
		b.device.DestroyBindGroupLayout(b.layout)
		b.layout = nil
	}
	if b.shader != nil {
		b.device.DestroyShaderModule(b.shader)
		b.shader = nil
	}
}
