// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package trimesh

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"
)

// Wire sizes of mesh data, in bytes.
const (
	VertexSize = 24
	IndexSize  = 4
)

// ErrMeshInvalid is returned by [Mesh2D.Validate].
var ErrMeshInvalid = errors.New("trimesh: invalid mesh")

// Vertex2D is a colored vertex. On the GPU it occupies VertexSize bytes:
// the position at byte 0 and the linear RGBA color at byte 8.
type Vertex2D struct {
	Position f32.Vec2
	Color    f32.Vec4
}

// Mesh2D is an indexed triangle list. Every three indices form one triangle.
//
// The renderer never modifies a mesh, so one *Mesh2D may be shared by any
// number of draw items, frames and goroutines.
type Mesh2D struct {
	Vertices []Vertex2D
	Indices  []uint32
}

// Validate reports whether the index count is a multiple of three and
// every index refers to an existing vertex. The renderer trusts its input
// unless validation is requested.
func (m *Mesh2D) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mesh", ErrMeshInvalid)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a whole number of triangles", ErrMeshInvalid, len(m.Indices))
	}
	n := uint32(len(m.Vertices)) //nolint:gosec // vertex counts fit uint32 on every backend
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at position %d out of range [0, %d)", ErrMeshInvalid, idx, i, n)
		}
	}
	return nil
}

// Point is a position in pixels.
type Point struct {
	X, Y float32
}

// Pt is a convenience function to create a Point.
func Pt(x, y float32) Point {
	return Point{X: x, Y: y}
}

// DrawItem places a mesh at an origin. Item order is draw order.
type DrawItem struct {
	Origin Point
	Mesh   *Mesh2D
}

// Rectangle is an axis-aligned pixel rectangle.
type Rectangle struct {
	X, Y          uint32
	Width, Height uint32
}

// Clamp returns the part of r that lies inside a width×height target.
func (r Rectangle) Clamp(width, height uint32) Rectangle {
	if r.X >= width || r.Y >= height {
		return Rectangle{X: min(r.X, width), Y: min(r.Y, height)}
	}
	r.Width = min(r.Width, width-r.X)
	r.Height = min(r.Height, height-r.Y)
	return r
}

// Empty reports whether r covers no pixels.
func (r Rectangle) Empty() bool {
	return r.Width == 0 || r.Height == 0
}
