//go:build !nogpu

package triangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/trimesh"
)

// FrameStats describes the work recorded by the last Draw.
type FrameStats struct {
	Items       int
	Vertices    uint64
	Indices     uint64
	DrawCalls   int
	Copies      int
	StagedBytes uint64
	Grew        bool // some buffer was reallocated
}

// LastFrame returns statistics of the most recent Draw.
func (p *Pipeline) LastFrame() FrameStats { return p.last }

// renderMode is either directMode or multisampledMode.
type renderMode interface {
	attachment() hal.RenderPassColorAttachment
	finish(enc Encoder)
}

// directMode draws straight into the target, keeping its contents.
type directMode struct {
	target hal.TextureView
}

func (m directMode) attachment() hal.RenderPassColorAttachment {
	return hal.RenderPassColorAttachment{
		View:    m.target,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
}

func (directMode) finish(Encoder) {}

// multisampledMode draws into a cleared multisampled attachment and lets
// the resolver composite the result onto the target.
type multisampledMode struct {
	resolver      Resolver
	view          hal.TextureView
	resolveTarget hal.TextureView
	target        hal.TextureView
}

func (m multisampledMode) attachment() hal.RenderPassColorAttachment {
	return hal.RenderPassColorAttachment{
		View:          m.view,
		ResolveTarget: m.resolveTarget,
		LoadOp:        gputypes.LoadOpClear,
		StoreOp:       gputypes.StoreOpStore,
		ClearValue:    gputypes.Color{},
	}
}

func (m multisampledMode) finish(enc Encoder) {
	m.resolver.Resolve(enc, m.target)
}

func (p *Pipeline) selectMode(target hal.TextureView, width, height uint32) (renderMode, error) {
	if p.resolver == nil {
		return directMode{target: target}, nil
	}
	view, resolveTarget, err := p.resolver.Attachment(width, height)
	if err != nil {
		return nil, fmt.Errorf("triangle: multisample attachment %dx%d: %w", width, height, err)
	}
	return multisampledMode{
		resolver:      p.resolver,
		view:          view,
		resolveTarget: resolveTarget,
		target:        target,
	}, nil
}

// Draw records the upload and drawing of items into enc.
//
// Items are drawn in order, each translated by its origin and then by
// transform, and clipped to clip (clamped to the width×height target).
// With antialiasing the pass renders into a cleared multisampled
// attachment and is resolved onto target once; otherwise it draws directly
// onto target, keeping its contents.
//
// Upload space and outgrown buffers are held until Recall, so several
// Draws may be recorded into one encoder before it is submitted.
func (p *Pipeline) Draw(
	enc Encoder,
	target hal.TextureView,
	width, height uint32,
	transform trimesh.Transformation,
	items []trimesh.DrawItem,
	clip trimesh.Rectangle,
) error {
	if p.destroyed {
		return ErrPipelineDestroyed
	}
	p.staging.resetStats()
	p.last = FrameStats{Items: len(items)}
	if len(items) == 0 {
		return nil
	}

	if p.cfg.validateMeshes {
		for i := range items {
			if err := items[i].Mesh.Validate(); err != nil {
				return fmt.Errorf("triangle: item %d: %w", i, err)
			}
		}
	}

	plan := planBatch(items, p.records)
	p.records = plan.records
	p.last.Vertices = plan.vertices
	p.last.Indices = plan.indices

	grew, err := p.ensureCapacity(uint64(len(items)), plan.vertices, plan.indices)
	if err != nil {
		return err
	}
	p.last.Grew = grew

	if err := p.upload(enc, transform, items); err != nil {
		return err
	}

	mode, err := p.selectMode(target, width, height)
	if err != nil {
		return err
	}

	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "triangle_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{mode.attachment()},
	})
	p.recordDraws(rp, clip.Clamp(width, height))
	rp.End()
	mode.finish(enc)

	p.last.Copies = p.staging.copies
	p.last.StagedBytes = p.staging.staged
	slogger().Debug("triangle: frame recorded",
		"items", p.last.Items,
		"vertices", p.last.Vertices,
		"indices", p.last.Indices,
		"draws", p.last.DrawCalls,
		"copies", p.last.Copies,
		"grew", p.last.Grew,
	)
	return nil
}

// ensureCapacity grows the buffers to fit a frame. A new uniform buffer
// needs a new bind group. Replaced buffers are retired, not destroyed.
func (p *Pipeline) ensureCapacity(items, vertices, indices uint64) (bool, error) {
	uniformsGrew, err := p.retireOnGrow(p.uniforms.grow(p.device, items))
	if err != nil {
		return false, err
	}
	if uniformsGrew {
		if err := p.createUniformGroup(); err != nil {
			return false, err
		}
	}
	verticesGrew, err := p.retireOnGrow(p.vertices.grow(p.device, vertices))
	if err != nil {
		return false, err
	}
	indicesGrew, err := p.retireOnGrow(p.indices.grow(p.device, indices))
	if err != nil {
		return false, err
	}
	return uniformsGrew || verticesGrew || indicesGrew, nil
}

func (p *Pipeline) retireOnGrow(old hal.Buffer, grew bool, err error) (bool, error) {
	if old != nil {
		p.retiredBuffers = append(p.retiredBuffers, old)
	}
	return grew, err
}

// upload stages every mesh at its recorded offsets, then all uniforms in
// one contiguous copy.
func (p *Pipeline) upload(enc Encoder, transform trimesh.Transformation, items []trimesh.DrawItem) error {
	p.uniBytes = p.uniBytes[:0]
	for i, item := range items {
		u := NewUniforms(transform.Mul(trimesh.Translate(item.Origin.X, item.Origin.Y)))
		p.uniBytes = appendUniforms(p.uniBytes, u, p.uniformStride)

		if item.Mesh == nil {
			continue
		}
		rec := p.records[i]

		p.scratch = appendVertices(p.scratch[:0], item.Mesh.Vertices)
		if err := p.staging.write(p.device, p.queue, enc, p.vertices.Raw(), rec.vertexOffset, p.scratch); err != nil {
			return fmt.Errorf("upload item %d to %s: %w", i, p.vertices.Label(), err)
		}
		p.scratch = appendIndices(p.scratch[:0], item.Mesh.Indices)
		if err := p.staging.write(p.device, p.queue, enc, p.indices.Raw(), rec.indexOffset, p.scratch); err != nil {
			return fmt.Errorf("upload item %d to %s: %w", i, p.indices.Label(), err)
		}
	}
	if err := p.staging.write(p.device, p.queue, enc, p.uniforms.Raw(), 0, p.uniBytes); err != nil {
		return fmt.Errorf("upload %s: %w", p.uniforms.Label(), err)
	}
	return nil
}

func (p *Pipeline) recordDraws(rp RenderPass, scissor trimesh.Rectangle) {
	for i, rec := range p.records {
		if rec.indexCount == 0 {
			continue
		}
		p.offsets[0] = uint32(uint64(i) * p.uniformStride) //nolint:gosec // bounded by the uniform buffer size

		rp.SetPipeline(p.pipeline)
		rp.SetBindGroup(0, p.uniformGroup, p.offsets)
		rp.SetIndexBuffer(p.indices.Raw(), gputypes.IndexFormatUint32, rec.indexOffset)
		rp.SetVertexBuffer(0, p.vertices.Raw(), rec.vertexOffset)
		rp.SetScissorRect(scissor.X, scissor.Y, scissor.Width, scissor.Height)
		rp.DrawIndexed(rec.indexCount, 1, 0, 0, 0)
		p.last.DrawCalls++
	}
}
