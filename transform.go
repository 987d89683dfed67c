// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package trimesh

import "golang.org/x/image/math/f32"

// Transformation is a 4x4 projective transform stored in row-major order:
//
//	| m[0]  m[1]  m[2]  m[3]  |
//	| m[4]  m[5]  m[6]  m[7]  |
//	| m[8]  m[9]  m[10] m[11] |
//	| m[12] m[13] m[14] m[15] |
//
// Points are column vectors, so a point p maps to M·p. The zero value is
// not the identity; use [Identity].
type Transformation struct {
	m f32.Mat4
}

// Identity returns the identity transformation.
func Identity() Transformation {
	return Transformation{m: f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Translate creates a translation in the XY plane.
func Translate(x, y float32) Transformation {
	return Transformation{m: f32.Mat4{
		1, 0, 0, x,
		0, 1, 0, y,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Scale creates a scaling in the XY plane.
func Scale(x, y float32) Transformation {
	return Transformation{m: f32.Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Orthographic maps pixel coordinates of a width×height target to clip
// space. (0, 0) is the top-left corner and (width, height) the bottom-right.
func Orthographic(width, height float32) Transformation {
	return Transformation{m: f32.Mat4{
		2 / width, 0, 0, -1,
		0, -2 / height, 0, 1,
		0, 0, -1, 0,
		0, 0, 0, 1,
	}}
}

// FromMatrix wraps a row-major matrix.
func FromMatrix(m f32.Mat4) Transformation {
	return Transformation{m: m}
}

// Mul returns t·o: o is applied first, then t.
func (t Transformation) Mul(o Transformation) Transformation {
	var r f32.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += t.m[row*4+k] * o.m[k*4+col]
			}
			r[row*4+col] = sum
		}
	}
	return Transformation{m: r}
}

// Apply transforms a point, ignoring the perspective divide.
func (t Transformation) Apply(p Point) Point {
	return Point{
		X: t.m[0]*p.X + t.m[1]*p.Y + t.m[3],
		Y: t.m[4]*p.X + t.m[5]*p.Y + t.m[7],
	}
}

// Matrix returns the row-major matrix.
func (t Transformation) Matrix() f32.Mat4 {
	return t.m
}

// ColumnMajor returns the matrix in the column-major order WGSL expects
// for a mat4x4<f32>.
func (t Transformation) ColumnMajor() [16]float32 {
	var c [16]float32
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			c[col*4+row] = t.m[row*4+col]
		}
	}
	return c
}
