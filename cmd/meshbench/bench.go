package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/trimesh"
	"github.com/gogpu/trimesh/triangle"
)

// Report summarizes a benchmark run.
type Report struct {
	Frames    int
	Items     int
	Vertices  uint64
	Indices   uint64
	DrawCalls int
	Copies    int
	Staged    uint64
	Growths   int
	Elapsed   time.Duration
}

// PerFrame is the mean CPU time spent encoding and submitting one frame.
func (r Report) PerFrame() time.Duration {
	if r.Frames == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Frames)
}

// gpu is a headless device provider. It shares its hal objects and has no
// windowing context.
type gpu struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	format   gputypes.TextureFormat
}

func (g *gpu) Device() gpucontext.Device             { return nil }
func (g *gpu) Queue() gpucontext.Queue               { return nil }
func (g *gpu) Adapter() gpucontext.Adapter           { return nil }
func (g *gpu) SurfaceFormat() gputypes.TextureFormat { return g.format }
func (g *gpu) HalDevice() any                        { return g.device }
func (g *gpu) HalQueue() any                         { return g.queue }

var _ gpucontext.DeviceProvider = (*gpu)(nil)

func openNoop() (*gpu, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &gpu{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		format:   gputypes.TextureFormatBGRA8Unorm,
	}, nil
}

func (g *gpu) close() {
	g.device.Destroy()
	g.instance.Destroy()
}

type target struct {
	tex  hal.Texture
	view hal.TextureView
}

func (g *gpu) createTarget(w, h uint32, format gputypes.TextureFormat) (*target, error) {
	tex, err := g.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "meshbench_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	view, err := g.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "meshbench_target_view"})
	if err != nil {
		g.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create target view: %w", err)
	}
	return &target{tex: tex, view: view}, nil
}

func (g *gpu) destroyTarget(t *target) {
	g.device.DestroyTextureView(t.view)
	g.device.DestroyTexture(t.tex)
}

func pipelineOptions(s Scene) []triangle.Option {
	opts := []triangle.Option{
		triangle.WithAntialiasing(s.AA()),
		triangle.WithInitialCapacity(s.Capacity.Uniforms, s.Capacity.Vertices, s.Capacity.Indices),
		triangle.WithUniformAlignment(s.UniformAlignment),
		triangle.WithStagingChunkSize(s.StagingChunk),
	}
	if s.ValidateMeshes {
		opts = append(opts, triangle.WithMeshValidation())
	}
	return opts
}

// Run renders s.Frames frames of the scene on the noop backend.
func Run(ctx context.Context, s Scene, logger *slog.Logger) (Report, error) {
	g, err := openNoop()
	if err != nil {
		return Report{}, err
	}
	defer g.close()

	p, err := triangle.NewPipelineFromProvider(g, gputypes.TextureFormatUndefined, pipelineOptions(s)...)
	if err != nil {
		return Report{}, err
	}
	defer p.Destroy()

	tgt, err := g.createTarget(s.Width, s.Height, p.Format())
	if err != nil {
		return Report{}, err
	}
	defer g.destroyTarget(tgt)

	logger.Info("pipeline ready",
		"id", p.ID(),
		"samples", p.SampleCount(),
		"uniform_stride", p.UniformStride(),
		"items", s.Meshes)

	items := s.Items()
	transform := trimesh.Orthographic(float32(s.Width), float32(s.Height))

	var r Report
	start := time.Now()
	for frame := 0; frame < s.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		if err := g.frame(p, tgt.view, s, transform, items); err != nil {
			return r, fmt.Errorf("frame %d: %w", frame, err)
		}
		st := p.LastFrame()
		r.Frames++
		r.Items += st.Items
		r.Vertices += st.Vertices
		r.Indices += st.Indices
		r.DrawCalls += st.DrawCalls
		r.Copies += st.Copies
		r.Staged += st.StagedBytes
		if st.Grew {
			r.Growths++
			u, v, i := p.Capacities()
			logger.Debug("buffers grew", "frame", frame, "uniforms", u, "vertices", v, "indices", i)
		}
	}
	r.Elapsed = time.Since(start)
	return r, nil
}

// frame encodes one Draw, submits it, waits for it and recalls the
// pipeline's upload space.
func (g *gpu) frame(p *triangle.Pipeline, view hal.TextureView, s Scene, transform trimesh.Transformation, items []trimesh.DrawItem) error {
	encoder, err := g.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "meshbench_frame"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("meshbench_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	if err := p.Draw(triangle.WrapEncoder(encoder), view, s.Width, s.Height, transform, items, s.Clip()); err != nil {
		encoder.DiscardEncoding()
		p.Recall()
		return err
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer g.device.FreeCommandBuffer(cmdBuf)

	idx, err := g.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if g.queue.PollCompleted() < idx {
		if err := g.device.WaitIdle(); err != nil {
			return fmt.Errorf("wait for submission %d: %w", idx, err)
		}
	}
	p.Recall()
	return nil
}
