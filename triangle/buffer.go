// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package triangle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	// ErrBufferAllocation is returned when the device cannot allocate a buffer.
	ErrBufferAllocation = errors.New("triangle: buffer allocation failed")

	// ErrInvalidStride is returned when an element stride is smaller than the
	// element itself.
	ErrInvalidStride = errors.New("triangle: stride smaller than element size")
)

// copyAlignment is the required alignment of buffer sizes and copy offsets.
const copyAlignment = 4

// Buffer is a GPU buffer that holds a number of T elements and only ever
// grows. Contents are not preserved across growth; the buffer is rewritten
// every frame.
type Buffer[T any] struct {
	raw      hal.Buffer
	label    string
	capacity uint64 // in elements
	stride   uint64 // bytes per element
	usage    gputypes.BufferUsage
}

// NewBuffer allocates a buffer for capacity elements of T. The element
// stride is the encoded size of T.
func NewBuffer[T any](device hal.Device, label string, capacity uint64, usage gputypes.BufferUsage) (*Buffer[T], error) {
	var zero T
	return NewStridedBuffer[T](device, label, capacity, uint64(binary.Size(zero)), usage) //nolint:gosec // binary.Size is non-negative for fixed-size T
}

// NewStridedBuffer allocates a buffer whose elements are stride bytes
// apart. stride must be at least the encoded size of T.
func NewStridedBuffer[T any](device hal.Device, label string, capacity, stride uint64, usage gputypes.BufferUsage) (*Buffer[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return nil, fmt.Errorf("triangle: buffer %q: element type %T has no fixed size", label, zero)
	}
	if stride < uint64(size) {
		return nil, fmt.Errorf("%w: buffer %q stride %d, element %d", ErrInvalidStride, label, stride, size)
	}
	if capacity == 0 {
		capacity = 1
	}

	b := &Buffer[T]{label: label, stride: stride, usage: usage}
	raw, err := b.allocate(device, capacity)
	if err != nil {
		return nil, err
	}
	b.raw = raw
	b.capacity = capacity
	return b, nil
}

// EnsureCapacity makes room for at least n elements. When the buffer is
// already large enough this is a no-op. Otherwise a buffer of exactly n
// elements replaces the current one, which is destroyed, and grew is true;
// nothing is copied. If the allocation fails the current buffer is kept.
func (b *Buffer[T]) EnsureCapacity(device hal.Device, n uint64) (grew bool, err error) {
	old, grew, err := b.grow(device, n)
	if old != nil {
		device.DestroyBuffer(old)
	}
	return grew, err
}

// grow is EnsureCapacity that hands the replaced buffer to the caller
// instead of destroying it, for commands that still reference it.
func (b *Buffer[T]) grow(device hal.Device, n uint64) (old hal.Buffer, grew bool, err error) {
	if n <= b.capacity {
		return nil, false, nil
	}

	raw, err := b.allocate(device, n)
	if err != nil {
		return nil, false, err
	}

	slogger().Debug("triangle: buffer grew",
		"label", b.label,
		"from", b.capacity,
		"to", n,
		"bytes", b.bytesFor(n),
	)
	old = b.raw
	b.raw = raw
	b.capacity = n
	return old, true, nil
}

func (b *Buffer[T]) allocate(device hal.Device, n uint64) (hal.Buffer, error) {
	size := b.bytesFor(n)
	raw, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  size,
		Usage: b.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%d bytes): %w", ErrBufferAllocation, b.label, size, err)
	}
	return raw, nil
}

func (b *Buffer[T]) bytesFor(n uint64) uint64 {
	return alignUp(n*b.stride, copyAlignment)
}

// Raw returns the backing hal buffer. It changes whenever the buffer grows.
func (b *Buffer[T]) Raw() hal.Buffer { return b.raw }

// Capacity returns the capacity in elements.
func (b *Buffer[T]) Capacity() uint64 { return b.capacity }

// Stride returns the distance between elements in bytes.
func (b *Buffer[T]) Stride() uint64 { return b.stride }

// ByteSize returns the allocated size in bytes.
func (b *Buffer[T]) ByteSize() uint64 { return b.bytesFor(b.capacity) }

// Usage returns the usage flags the buffer was created with.
func (b *Buffer[T]) Usage() gputypes.BufferUsage { return b.usage }

// Label returns the debug label.
func (b *Buffer[T]) Label() string { return b.label }

// Destroy releases the backing buffer. Safe to call more than once.
func (b *Buffer[T]) Destroy(device hal.Device) {
	if b.raw != nil {
		device.DestroyBuffer(b.raw)
		b.raw = nil
	}
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}
