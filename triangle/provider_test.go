//go:build !nogpu

package triangle

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// testProvider implements gpucontext.DeviceProvider without a windowing
// context, like a null device handle.
type testProvider struct {
	format gputypes.TextureFormat
}

func (p *testProvider) Device() gpucontext.Device             { return nil }
func (p *testProvider) Queue() gpucontext.Queue               { return nil }
func (p *testProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *testProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }

// halTestProvider additionally shares its hal device and queue.
type halTestProvider struct {
	testProvider
	device any
	queue  any
}

func (p *halTestProvider) HalDevice() any { return p.device }
func (p *halTestProvider) HalQueue() any  { return p.queue }

func TestNewPipelineFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	provider := &halTestProvider{
		testProvider: testProvider{format: gputypes.TextureFormatRGBA8Unorm},
		device:       device,
		queue:        queue,
	}

	t.Run("surface format", func(t *testing.T) {
		p, err := NewPipelineFromProvider(provider, gputypes.TextureFormatUndefined, WithShaders(testSPIRV(), testSPIRV()))
		if err != nil {
			t.Fatalf("NewPipelineFromProvider: %v", err)
		}
		defer p.Destroy()
		if p.Format() != gputypes.TextureFormatRGBA8Unorm {
			t.Errorf("Format = %v, want the provider's surface format", p.Format())
		}
		if p.device != device {
			t.Error("pipeline does not use the provider's device")
		}
		if q, ok := p.queue.(halQueue); !ok || q.q != queue {
			t.Errorf("queue = %T, want the provider's hal queue", p.queue)
		}
	})

	t.Run("explicit format", func(t *testing.T) {
		p, err := NewPipelineFromProvider(provider, gputypes.TextureFormatBGRA8Unorm, WithShaders(testSPIRV(), testSPIRV()))
		if err != nil {
			t.Fatalf("NewPipelineFromProvider: %v", err)
		}
		defer p.Destroy()
		if p.Format() != gputypes.TextureFormatBGRA8Unorm {
			t.Errorf("Format = %v, want BGRA8Unorm", p.Format())
		}
	})
}

func TestNewPipelineFromProviderErrors(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
		format   gputypes.TextureFormat
		wantHAL  bool
	}{
		{"nil", nil, gputypes.TextureFormatBGRA8Unorm, true},
		{"no hal", &testProvider{format: gputypes.TextureFormatBGRA8Unorm}, gputypes.TextureFormatBGRA8Unorm, true},
		{"device not hal", &halTestProvider{device: "device", queue: queue}, gputypes.TextureFormatBGRA8Unorm, true},
		{"nil queue", &halTestProvider{device: device}, gputypes.TextureFormatBGRA8Unorm, true},
		{"no surface format", &halTestProvider{device: device, queue: queue}, gputypes.TextureFormatUndefined, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPipelineFromProvider(tt.provider, tt.format, WithShaders(testSPIRV(), testSPIRV()))
			if err == nil {
				p.Destroy()
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrNoHAL); got != tt.wantHAL {
				t.Errorf("errors.Is(%q, ErrNoHAL) = %v, want %v", err, got, tt.wantHAL)
			}
		})
	}
}
