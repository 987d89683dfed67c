// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package triangle

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoHAL is returned by NewPipelineFromProvider when the provider does
// not hand out a hal device and queue.
var ErrNoHAL = errors.New("triangle: provider does not expose HAL types")

// halProvider is implemented by providers that share their hal objects,
// such as gogpu windows.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewPipelineFromProvider creates a pipeline on the device of a shared
// gpucontext provider. The provider must also implement HalDevice() and
// HalQueue() returning a hal.Device and hal.Queue. An undefined format
// selects the provider's surface format.
func NewPipelineFromProvider(provider gpucontext.DeviceProvider, format gputypes.TextureFormat, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrNoHAL)
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoHAL, provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}

	if format == gputypes.TextureFormatUndefined {
		format = provider.SurfaceFormat()
		if format == gputypes.TextureFormatUndefined {
			return nil, fmt.Errorf("triangle: provider %T has no surface format", provider)
		}
	}
	return NewPipeline(device, queue, format, opts...)
}
