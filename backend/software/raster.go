package software

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
	"github.com/gogpu/gfx/internal/linear"
)

// Constant buffer layout read by the vertex stage.
const (
	objectSlot = 0 // world matrix
	cameraSlot = 1 // view then projection
)

// clipVertex is a vertex after the vertex stage.
type clipVertex struct {
	pos  linear.Vec4
	u, v float32
}

// subpixelSteps is the fixed-point precision of screen positions.
const subpixelSteps = 256

// screenVertex is a vertex after the perspective divide and viewport
// transform. x and y are snapped to the subpixel grid, which keeps edge
// evaluation in float64 exact. invW is kept for perspective-correct
// interpolation.
type screenVertex struct {
	x, y float64
	z    float32
	invW float32
	u, v float32 // pre-divided by w
}

// DrawIndexed draws count indices from the bound model starting at start,
// as a triangle list.
func (a *Adapter) DrawIndexed(count, start int) error {
	if a.state == backend.StateUninitialized {
		return backend.ErrNotInitialized
	}
	b := &a.bound
	if err := a.checkBindings(); err != nil {
		return err
	}
	if b.layout.stride > b.model.stride {
		return fmt.Errorf("%w: layout %d, model %d", ErrStrideMismatch, b.layout.stride, b.model.stride)
	}
	if count < 0 || start < 0 || start+count > len(b.model.indices) {
		return fmt.Errorf("%w: indices [%d, %d) of %d", ErrInvalidModel, start, start+count, len(b.model.indices))
	}

	world, _ := linear.FromBytes(b.vsCB[objectSlot].data)
	view, _ := linear.FromBytes(b.vsCB[cameraSlot].data)
	proj, _ := linear.FromBytes(b.vsCB[cameraSlot].data[linear.MatrixSize:])
	mvp := proj.Mul(view.Mul(world))

	// Vertex stage runs once per referenced vertex.
	cache := make(map[uint16]clipVertex, 4)
	fetch := func(idx uint16) clipVertex {
		if cv, ok := cache[idx]; ok {
			return cv
		}
		cv := a.shadeVertex(mvp, idx)
		cache[idx] = cv
		return cv
	}

	a.stats.Draws++
	idx := b.model.indices[start : start+count]
	for i := 0; i+2 < len(idx); i += 3 {
		a.drawTriangle(fetch(idx[i]), fetch(idx[i+1]), fetch(idx[i+2]))
	}
	return nil
}

func (a *Adapter) checkBindings() error {
	b := &a.bound
	var missing string
	switch {
	case a.target == nil || a.depth == nil:
		missing = "render target"
	case b.program == nil:
		missing = "program"
	case b.layout == nil:
		missing = "input layout"
	case b.model == nil:
		missing = "model"
	case b.vsCB[objectSlot] == nil || len(b.vsCB[objectSlot].data) < linear.MatrixSize:
		missing = "object constant buffer"
	case b.vsCB[cameraSlot] == nil || len(b.vsCB[cameraSlot].data) < 2*linear.MatrixSize:
		missing = "camera constant buffer"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", backend.ErrIncompleteBindings, missing)
}

// shadeVertex fetches vertex idx through the bound input layout and
// transforms it to clip space.
func (a *Adapter) shadeVertex(mvp linear.Mat4, idx uint16) clipVertex {
	m, l := a.bound.model, a.bound.layout
	base := int(idx) * int(m.stride) / 4

	pos := linear.Vec4{0, 0, 0, 1}
	p := base + int(l.position.Offset)/4
	for i := 0; i < backend.Components(l.position.Format) && i < 3; i++ {
		pos[i] = m.vertices[p+i]
	}

	var uv [2]float32
	t := base + int(l.uv.Offset)/4
	for i := 0; i < backend.Components(l.uv.Format) && i < 2; i++ {
		uv[i] = m.vertices[t+i]
	}
	return clipVertex{pos: mvp.Transform(pos), u: uv[0], v: uv[1]}
}

func (a *Adapter) toScreen(cv clipVertex) screenVertex {
	invW := 1 / cv.pos[3]
	nx, ny, nz := cv.pos[0]*invW, cv.pos[1]*invW, cv.pos[2]*invW
	vp := a.viewport
	return screenVertex{
		x:    snap(vp.X + (nx+1)/2*vp.Width),
		y:    snap(vp.Y + (1-ny)/2*vp.Height),
		z:    nz,
		invW: invW,
		u:    cv.u * invW,
		v:    cv.v * invW,
	}
}

func snap(v float32) float64 {
	return math.Round(float64(v)*subpixelSteps) / subpixelSteps
}

// edge is twice the signed area of (a, b, p) in y-down screen space.
// It is positive when a, b, p turn clockwise on screen.
func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// topLeft reports whether the edge a->b is a top or left edge of a
// clockwise triangle. Pixels centered exactly on such edges are drawn.
func topLeft(ax, ay, bx, by float64) bool {
	dx, dy := bx-ax, by-ay
	return (dy == 0 && dx > 0) || dy < 0
}

func (a *Adapter) drawTriangle(c0, c1, c2 clipVertex) {
	if c0.pos[3] <= 0 || c1.pos[3] <= 0 || c2.pos[3] <= 0 {
		return
	}
	v0, v1, v2 := a.toScreen(c0), a.toScreen(c1), a.toScreen(c2)

	area := edge(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 {
		return
	}
	front := area > 0
	if a.raster.frontFace == gputypes.FrontFaceCCW {
		front = !front
	}
	if !front && a.raster.cullBack {
		return
	}
	if area < 0 {
		// Rewind to clockwise so inside means positive edge values.
		v1, v2 = v2, v1
		area = -area
	}
	a.stats.Triangles++

	minX, maxX := a.clipX(min3(v0.x, v1.x, v2.x), max3(v0.x, v1.x, v2.x))
	minY, maxY := a.clipY(min3(v0.y, v1.y, v2.y), max3(v0.y, v1.y, v2.y))

	tl0 := topLeft(v1.x, v1.y, v2.x, v2.y)
	tl1 := topLeft(v2.x, v2.y, v0.x, v0.y)
	tl2 := topLeft(v0.x, v0.y, v1.x, v1.y)

	for y := minY; y < maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x < maxX; x++ {
			px := float64(x) + 0.5
			e0 := edge(v1.x, v1.y, v2.x, v2.y, px, py)
			e1 := edge(v2.x, v2.y, v0.x, v0.y, px, py)
			e2 := edge(v0.x, v0.y, v1.x, v1.y, px, py)
			if !inside(e0, tl0) || !inside(e1, tl1) || !inside(e2, tl2) {
				continue
			}
			w0, w1, w2 := float32(e0/area), float32(e1/area), float32(e2/area)

			z := w0*v0.z + w1*v1.z + w2*v2.z
			if z < 0 || z > 1 {
				continue
			}
			di := y*a.depth.width + x
			if z > a.depth.data[di] {
				continue
			}

			invW := w0*v0.invW + w1*v1.invW + w2*v2.invW
			u := (w0*v0.u + w1*v1.u + w2*v2.u) / invW
			v := (w0*v0.v + w1*v1.v + w2*v2.v) / invW

			src := a.shadePixel(u, v)
			a.target.set(x, y, blend(src, a.target.get(x, y)))
			a.depth.data[di] = z
			a.stats.Pixels++
		}
	}
}

func inside(e float64, tl bool) bool {
	return e > 0 || (e == 0 && tl)
}

// clipX bounds the pixel columns to the viewport and the target.
func (a *Adapter) clipX(lo, hi float64) (int, int) {
	vp := a.viewport
	return clampSpan(lo, hi, float64(vp.X), float64(vp.X+vp.Width), a.target.width)
}

func (a *Adapter) clipY(lo, hi float64) (int, int) {
	vp := a.viewport
	return clampSpan(lo, hi, float64(vp.Y), float64(vp.Y+vp.Height), a.target.height)
}

func clampSpan(lo, hi, vlo, vhi float64, size int) (int, int) {
	lo = max(lo, vlo)
	hi = min(hi, vhi)
	first := int(math.Floor(lo))
	last := int(math.Ceil(hi))
	return max(first, 0), min(last, size)
}

func min3(a, b, c float64) float64 { return min(a, min(b, c)) }
func max3(a, b, c float64) float64 { return max(a, max(b, c)) }

// shadePixel samples texture slot 0 with sampler slot 0.
func (a *Adapter) shadePixel(u, v float32) rgba {
	tex := a.bound.textures[0]
	if tex == nil {
		return rgba{}
	}
	smp := a.bound.samplers[0]
	if smp == nil {
		smp = a.pointSampler
	}
	return sample(tex, smp.desc, u, v)
}

// blend composites straight-alpha src over dst.
func blend(src, dst rgba) rgba {
	inv := 1 - src.A
	return rgba{
		R: src.R*src.A + dst.R*inv,
		G: src.G*src.A + dst.G*inv,
		B: src.B*src.A + dst.B*inv,
		A: src.A + dst.A*inv,
	}
}
