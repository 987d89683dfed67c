//go:build !nogpu

package triangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// stagingChunk is one transient upload buffer.
type stagingChunk struct {
	buf    hal.Buffer
	label  string
	size   uint64
	cursor uint64
}

func (c *stagingChunk) room() uint64 { return c.size - c.cursor }

// stagingBelt hands out upload space in reusable chunks. Data is written
// into a chunk through the queue and copied into its destination by a
// command recorded on the frame's encoder.
//
// A chunk stays active until recall, so any number of Draws may share one
// encoder. recall must only run once the GPU has finished every command
// buffer that copies out of the active chunks.
type stagingBelt struct {
	chunkSize uint64
	active    []*stagingChunk
	free      []*stagingChunk

	created int    // chunks ever allocated, for labels
	copies  int    // copies recorded since the last resetStats
	staged  uint64 // bytes staged since the last resetStats
}

func newStagingBelt(chunkSize uint64) stagingBelt {
	return stagingBelt{chunkSize: alignUp(chunkSize, copyAlignment)}
}

// write stages data and records a copy to dst at dstOffset. Nothing is
// recorded when the queue rejects the write.
func (s *stagingBelt) write(device hal.Device, queue Queue, enc Encoder, dst hal.Buffer, dstOffset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n := uint64(len(data))

	chunk, err := s.chunkFor(device, n)
	if err != nil {
		return err
	}
	off := chunk.cursor
	if err := queue.WriteBuffer(chunk.buf, off, data); err != nil {
		return fmt.Errorf("triangle: write %s at %d (%d bytes): %w", chunk.label, off, n, err)
	}
	enc.CopyBufferToBuffer(chunk.buf, dst, []hal.BufferCopy{
		{SrcOffset: off, DstOffset: dstOffset, Size: n},
	})
	chunk.cursor = alignUp(off+n, copyAlignment)

	s.copies++
	s.staged += n
	return nil
}

func (s *stagingBelt) chunkFor(device hal.Device, n uint64) (*stagingChunk, error) {
	if k := len(s.active); k > 0 && s.active[k-1].room() >= n {
		return s.active[k-1], nil
	}
	for i, c := range s.free {
		if c.size >= n {
			s.free = append(s.free[:i], s.free[i+1:]...)
			s.active = append(s.active, c)
			return c, nil
		}
	}

	size := max(s.chunkSize, alignUp(n, copyAlignment))
	label := fmt.Sprintf("triangle_staging_%d", s.created)
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%d bytes): %w", ErrBufferAllocation, label, size, err)
	}
	s.created++
	slogger().Debug("triangle: staging chunk allocated", "label", label, "bytes", size)

	c := &stagingChunk{buf: buf, label: label, size: size}
	s.active = append(s.active, c)
	return c, nil
}

func (s *stagingBelt) resetStats() {
	s.copies = 0
	s.staged = 0
}

// recall makes every active chunk available again.
func (s *stagingBelt) recall() {
	for _, c := range s.active {
		c.cursor = 0
		s.free = append(s.free, c)
	}
	s.active = s.active[:0]
}

func (s *stagingBelt) destroy(device hal.Device) {
	for _, c := range s.active {
		device.DestroyBuffer(c.buf)
	}
	for _, c := range s.free {
		device.DestroyBuffer(c.buf)
	}
	s.active = nil
	s.free = nil
}
