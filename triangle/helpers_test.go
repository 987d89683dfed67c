//go:build !nogpu

package triangle

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/trimesh"
	"github.com/gogpu/trimesh/internal/shader"
)

// createNoopDevice creates a noop device and queue for tests.
func createNoopDevice(t testing.TB) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// testSPIRV is a minimal blob with a valid SPIR-V header.
func testSPIRV() []byte {
	words := []uint32{shader.Magic, 0x00010000, 0, 1, 0}
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

var errInjected = errors.New("injected failure")

// countingDevice wraps a device, counts resource traffic, gives every
// bind group, pipeline, texture and view a distinct identity, keeps the
// descriptors it was handed and can fail buffer creation for a label
// prefix.
type countingDevice struct {
	hal.Device

	failBufferPrefix string
	failShaderModule bool

	buffersCreated     int
	buffersDestroyed   int
	groupsCreated      int
	groupsDestroyed    int
	modulesCreated     int
	modulesDestroyed   int
	pipelinesCreated   int
	pipelinesDestroyed int
	texturesCreated    int
	texturesDestroyed  int
	viewsCreated       int
	viewsDestroyed     int
	lastBufferLabel    string
	lastBufferRequest  uint64

	nextHandle int
	groups     []hal.BindGroupDescriptor
	layouts    []hal.BindGroupLayoutDescriptor
	pipelines  []hal.RenderPipelineDescriptor
}

func (d *countingDevice) handle(label string) testHandle {
	d.nextHandle++
	return testHandle{id: 1000 + d.nextHandle, label: label}
}

// pipelineDesc returns the descriptor of the render pipeline with label.
func (d *countingDevice) pipelineDesc(t testing.TB, label string) hal.RenderPipelineDescriptor {
	t.Helper()
	for _, desc := range d.pipelines {
		if desc.Label == label {
			return desc
		}
	}
	t.Fatalf("no render pipeline %q created", label)
	return hal.RenderPipelineDescriptor{}
}

// layoutDesc returns the descriptor of the bind group layout with label.
func (d *countingDevice) layoutDesc(t testing.TB, label string) hal.BindGroupLayoutDescriptor {
	t.Helper()
	for _, desc := range d.layouts {
		if desc.Label == label {
			return desc
		}
	}
	t.Fatalf("no bind group layout %q created", label)
	return hal.BindGroupLayoutDescriptor{}
}

func (d *countingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.failBufferPrefix != "" && strings.HasPrefix(desc.Label, d.failBufferPrefix) {
		return nil, errInjected
	}
	inner, err := d.Device.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}
	d.buffersCreated++
	d.lastBufferLabel = desc.Label
	d.lastBufferRequest = desc.Size
	return &testBuffer{id: d.buffersCreated, label: desc.Label, size: desc.Size, inner: inner}, nil
}

func (d *countingDevice) DestroyBuffer(b hal.Buffer) {
	d.buffersDestroyed++
	if tb, ok := b.(*testBuffer); ok {
		tb.destroyed = true
		d.Device.DestroyBuffer(tb.inner)
		return
	}
	d.Device.DestroyBuffer(b)
}

func (d *countingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if _, err := d.Device.CreateBindGroup(desc); err != nil {
		return nil, err
	}
	d.groupsCreated++
	d.groups = append(d.groups, *desc)
	h := d.handle(desc.Label)
	return &h, nil
}

func (d *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.groupsDestroyed++
	if h, ok := g.(*testHandle); ok {
		h.destroyed = true
	}
}

func (d *countingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	d.layouts = append(d.layouts, *desc)
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *countingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if _, err := d.Device.CreateRenderPipeline(desc); err != nil {
		return nil, err
	}
	d.pipelinesCreated++
	d.pipelines = append(d.pipelines, *desc)
	h := d.handle(desc.Label)
	return &h, nil
}

func (d *countingDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.pipelinesDestroyed++
	if h, ok := p.(*testHandle); ok {
		h.destroyed = true
	}
}

func (d *countingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if _, err := d.Device.CreateTexture(desc); err != nil {
		return nil, err
	}
	d.texturesCreated++
	return &testTexture{testHandle: d.handle(desc.Label)}, nil
}

func (d *countingDevice) DestroyTexture(tex hal.Texture) {
	d.texturesDestroyed++
	if tt, ok := tex.(*testTexture); ok {
		tt.destroyed = true
	}
}

func (d *countingDevice) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if tt, ok := tex.(*testTexture); ok && tt.destroyed {
		return nil, errors.New("view of a destroyed texture")
	}
	d.viewsCreated++
	h := d.handle(desc.Label)
	return &h, nil
}

func (d *countingDevice) DestroyTextureView(v hal.TextureView) {
	d.viewsDestroyed++
	if h, ok := v.(*testHandle); ok {
		h.destroyed = true
	}
}

func (d *countingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if d.failShaderModule {
		return nil, errInjected
	}
	d.modulesCreated++
	return d.Device.CreateShaderModule(desc)
}

func (d *countingDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.modulesDestroyed++
	d.Device.DestroyShaderModule(m)
}

// testBuffer gives every buffer a distinct identity and remembers its
// descriptor.
type testBuffer struct {
	id        int
	label     string
	size      uint64
	inner     hal.Buffer
	destroyed bool
}

func (b *testBuffer) Destroy()              {}
func (b *testBuffer) NativeHandle() uintptr { return uintptr(b.id) }

// testHandle is a bind group, render pipeline or texture view with its own
// identity.
type testHandle struct {
	id        int
	label     string
	destroyed bool
}

func (h *testHandle) Destroy()              {}
func (h *testHandle) NativeHandle() uintptr { return uintptr(h.id) }

type testTexture struct {
	testHandle
}

func (t *testTexture) CurrentUsage() gputypes.TextureUsage { return 0 }
func (t *testTexture) AddPendingRef()                      {}
func (t *testTexture) DecPendingRef()                      {}

// fakeView is a stand-in texture view.
type fakeView struct{ name string }

func (v *fakeView) Destroy()              {}
func (v *fakeView) NativeHandle() uintptr { return 0 }

// queueWrite is one recorded Queue.WriteBuffer call.
type queueWrite struct {
	buf    hal.Buffer
	offset uint64
	data   []byte
}

type recordingQueue struct {
	writes []queueWrite
}

func (q *recordingQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	q.writes = append(q.writes, queueWrite{buf: buf, offset: offset, data: append([]byte(nil), data...)})
	return nil
}

// failingQueue rejects every write after the first ok ones.
type failingQueue struct {
	ok    int
	err   error
	calls int
}

func (q *failingQueue) WriteBuffer(hal.Buffer, uint64, []byte) error {
	q.calls++
	if q.calls <= q.ok {
		return nil
	}
	return q.err
}

// copyCall is one recorded CopyBufferToBuffer region.
type copyCall struct {
	src, dst hal.Buffer
	region   hal.BufferCopy
}

// drawCall captures the pass state at a DrawIndexed.
type drawCall struct {
	pipeline     hal.RenderPipeline
	group        hal.BindGroup
	offsets      []uint32
	indexBuffer  hal.Buffer
	indexFormat  gputypes.IndexFormat
	indexOffset  uint64
	vertexBuffer hal.Buffer
	vertexOffset uint64
	scissor      [4]uint32
	indexCount   uint32
}

type recordingPass struct {
	desc  *hal.RenderPassDescriptor
	cur   drawCall
	draws []drawCall
	plain int // non-indexed draws
	ended bool
}

func (p *recordingPass) SetPipeline(pl hal.RenderPipeline) { p.cur.pipeline = pl }
func (p *recordingPass) SetBindGroup(_ uint32, g hal.BindGroup, offsets []uint32) {
	p.cur.group = g
	p.cur.offsets = append([]uint32(nil), offsets...)
}

func (p *recordingPass) SetIndexBuffer(b hal.Buffer, f gputypes.IndexFormat, off uint64) {
	p.cur.indexBuffer, p.cur.indexFormat, p.cur.indexOffset = b, f, off
}

func (p *recordingPass) SetVertexBuffer(_ uint32, b hal.Buffer, off uint64) {
	p.cur.vertexBuffer, p.cur.vertexOffset = b, off
}

func (p *recordingPass) SetScissorRect(x, y, w, h uint32) { p.cur.scissor = [4]uint32{x, y, w, h} }
func (p *recordingPass) DrawIndexed(n, _, _ uint32, _ int32, _ uint32) {
	d := p.cur
	d.indexCount = n
	p.draws = append(p.draws, d)
}
func (p *recordingPass) Draw(_, _, _, _ uint32) { p.plain++ }
func (p *recordingPass) End()                   { p.ended = true }

type recordingEncoder struct {
	copies []copyCall
	passes []*recordingPass
}

func (e *recordingEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	for _, r := range regions {
		e.copies = append(e.copies, copyCall{src: src, dst: dst, region: r})
	}
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) RenderPass {
	p := &recordingPass{desc: desc}
	e.passes = append(e.passes, p)
	return p
}

// memory replays queue writes and encoder copies to reconstruct buffer
// contents as the GPU would see them after submission.
func memory(q *recordingQueue, e *recordingEncoder) map[hal.Buffer][]byte {
	mem := make(map[hal.Buffer][]byte)
	put := func(b hal.Buffer, off uint64, data []byte) {
		buf := mem[b]
		if need := off + uint64(len(data)); uint64(len(buf)) < need {
			buf = append(buf, make([]byte, need-uint64(len(buf)))...)
		}
		copy(buf[off:], data)
		mem[b] = buf
	}
	for _, w := range q.writes {
		put(w.buf, w.offset, w.data)
	}
	for _, c := range e.copies {
		src := mem[c.src][c.region.SrcOffset : c.region.SrcOffset+c.region.Size]
		put(c.dst, c.region.DstOffset, append([]byte(nil), src...))
	}
	return mem
}

func readFloats(b []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// fakeResolver records how the pipeline drives it.
type fakeResolver struct {
	samples     uint32
	view        *fakeView
	resolveView *fakeView
	attachErr   error

	attachments [][2]uint32
	resolves    []hal.TextureView
	destroyed   int
}

func newFakeResolver(samples uint32) *fakeResolver {
	return &fakeResolver{samples: samples, view: &fakeView{"msaa"}, resolveView: &fakeView{"resolve"}}
}

func (r *fakeResolver) SampleCount() uint32 { return r.samples }

func (r *fakeResolver) Attachment(w, h uint32) (hal.TextureView, hal.TextureView, error) {
	r.attachments = append(r.attachments, [2]uint32{w, h})
	if r.attachErr != nil {
		return nil, nil, r.attachErr
	}
	return r.view, r.resolveView, nil
}

func (r *fakeResolver) Resolve(_ Encoder, target hal.TextureView) {
	r.resolves = append(r.resolves, target)
}

func (r *fakeResolver) Destroy() { r.destroyed++ }

func triangleMesh() *trimesh.Mesh2D {
	return &trimesh.Mesh2D{
		Vertices: []trimesh.Vertex2D{
			{Position: f32.Vec2{0, 0}, Color: f32.Vec4{1, 0, 0, 1}},
			{Position: f32.Vec2{10, 0}, Color: f32.Vec4{1, 0, 0, 1}},
			{Position: f32.Vec2{0, 10}, Color: f32.Vec4{1, 0, 0, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

// quadMesh is two triangles over a w×h rectangle.
func quadMesh(w, h float32, color f32.Vec4) *trimesh.Mesh2D {
	return &trimesh.Mesh2D{
		Vertices: []trimesh.Vertex2D{
			{Position: f32.Vec2{0, 0}, Color: color},
			{Position: f32.Vec2{w, 0}, Color: color},
			{Position: f32.Vec2{w, h}, Color: color},
			{Position: f32.Vec2{0, h}, Color: color},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// newTestPipeline builds a pipeline on a counting noop device with a
// recording queue.
func newTestPipeline(t testing.TB, opts ...Option) (*Pipeline, *countingDevice, *recordingQueue) {
	t.Helper()
	device, _, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)

	dev := &countingDevice{Device: device}
	q := &recordingQueue{}
	opts = append([]Option{WithShaders(testSPIRV(), testSPIRV())}, opts...)
	p, err := newPipeline(dev, q, gputypes.TextureFormatBGRA8Unorm, opts...)
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	t.Cleanup(p.Destroy)
	return p, dev, q
}
