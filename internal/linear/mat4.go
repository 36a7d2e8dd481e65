// Package linear provides the 4x4 float32 matrix math shared by the gfx
// package and the backends.
//
// Matrices are column-major and multiply column vectors (v' = M * v), which
// is the memory layout WGSL expects for mat4x4<f32> uniforms.
package linear

import (
	"encoding/binary"
	"math"
)

// MatrixSize is the byte size of one packed Mat4.
const MatrixSize = 16 * 4

// Vec4 is a homogeneous 4-component vector.
type Vec4 [4]float32

// Mat4 is a column-major 4x4 matrix: element (row r, column c) is m[c*4+r].
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a matrix that moves points by (x, y, z).
func Translation(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scaling returns a matrix that scales by (x, y, z).
func Scaling(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// OrthographicLH returns a left-handed orthographic projection centered on
// the origin. The view volume is width x height with y up, and z in
// [near, far] maps to depth [0, 1].
func OrthographicLH(width, height, near, far float32) Mat4 {
	m := Identity()
	m[0] = 2 / width
	m[5] = 2 / height
	m[10] = 1 / (far - near)
	m[14] = -near / (far - near)
	return m
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 { return m[c*4+r] }

// Mul returns m * n. Applied to a vector, n acts first.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * n[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// Transform returns m * v.
func (m Mat4) Transform(v Vec4) Vec4 {
	var out Vec4
	for r := 0; r < 4; r++ {
		out[r] = m[r]*v[0] + m[4+r]*v[1] + m[8+r]*v[2] + m[12+r]*v[3]
	}
	return out
}

// Bytes packs m as little-endian float32s in column-major order.
func (m Mat4) Bytes() []byte {
	return m.AppendBytes(make([]byte, 0, MatrixSize))
}

// AppendBytes appends the packed form of m to dst.
func (m Mat4) AppendBytes(dst []byte) []byte {
	for _, f := range m {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// FromBytes unpacks a matrix written by Bytes. It reports false when b is
// shorter than MatrixSize.
func FromBytes(b []byte) (Mat4, bool) {
	var m Mat4
	if len(b) < MatrixSize {
		return m, false
	}
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return m, true
}

// ApproxEqual reports whether every element of m and n differs by at most eps.
func (m Mat4) ApproxEqual(n Mat4, eps float32) bool {
	for i := range m {
		d := m[i] - n[i]
		if d < -eps || d > eps {
			return false
		}
	}
	return true
}
