//go:build !nogpu

package triangle

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Encoder is the part of a command encoder that Draw records into.
// Use WrapEncoder to adapt a hal.CommandEncoder.
type Encoder interface {
	CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy)
	BeginRenderPass(desc *hal.RenderPassDescriptor) RenderPass
}

// RenderPass is the part of a render pass encoder that Draw uses.
type RenderPass interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
	SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64)
	SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64)
	SetScissorRect(x, y, width, height uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End()
}

// Queue uploads bytes into a buffer.
type Queue interface {
	WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error
}

// WrapEncoder adapts a hal command encoder. The encoder must be between
// BeginEncoding and EndEncoding.
func WrapEncoder(enc hal.CommandEncoder) Encoder {
	return halEncoder{enc: enc}
}

type halEncoder struct {
	enc hal.CommandEncoder
}

func (e halEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	e.enc.CopyBufferToBuffer(src, dst, regions)
}

func (e halEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) RenderPass {
	return halPass{rp: e.enc.BeginRenderPass(desc)}
}

type halPass struct {
	rp hal.RenderPassEncoder
}

func (p halPass) SetPipeline(pipeline hal.RenderPipeline) { p.rp.SetPipeline(pipeline) }

func (p halPass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.rp.SetBindGroup(index, group, offsets)
}

func (p halPass) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	p.rp.SetIndexBuffer(buffer, format, offset)
}

func (p halPass) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	p.rp.SetVertexBuffer(slot, buffer, offset)
}

func (p halPass) SetScissorRect(x, y, width, height uint32) {
	p.rp.SetScissorRect(x, y, width, height)
}

func (p halPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.rp.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p halPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.rp.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p halPass) End() { p.rp.End() }

// halQueue adapts hal.Queue to Queue.
type halQueue struct {
	q hal.Queue
}

func (q halQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	return q.q.WriteBuffer(buffer, offset, data)
}
