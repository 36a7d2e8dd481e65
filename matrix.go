package gfx

import "github.com/gogpu/gfx/internal/linear"

// Mat4 is a column-major 4x4 matrix multiplying column vectors, laid out
// the way the sprite shaders read their uniforms.
type Mat4 = linear.Mat4

// Sprite placement constants.
const (
	// SpriteDepth is the z every sprite is drawn at.
	SpriteDepth = 0.5

	// NearPlane and FarPlane bound the camera's depth range.
	NearPlane = 0.1
	FarPlane  = 100
)

// Identity returns the identity matrix.
func Identity() Mat4 { return linear.Identity() }

// Translation returns a matrix that moves points by (x, y, z).
func Translation(x, y, z float32) Mat4 { return linear.Translation(x, y, z) }

// Scaling returns a matrix that scales by (x, y, z).
func Scaling(x, y, z float32) Mat4 { return linear.Scaling(x, y, z) }

// SpriteWorld places the unit quad as a w x h sprite centered at (x, y):
// scale first, then translate to (x, y, SpriteDepth).
func SpriteWorld(x, y, w, h float32) Mat4 {
	return linear.Translation(x, y, SpriteDepth).Mul(linear.Scaling(w, h, 1))
}

// SpriteProjection is the camera projection for a width x height target:
// left-handed orthographic, origin at the center, y up.
func SpriteProjection(width, height int) Mat4 {
	return linear.OrthographicLH(float32(width), float32(height), NearPlane, FarPlane)
}

// cameraData packs view and projection in the order the vertex shader
// declares them.
func cameraData(view, proj Mat4) []byte {
	b := make([]byte, 0, 2*linear.MatrixSize)
	b = view.AppendBytes(b)
	return proj.AppendBytes(b)
}
