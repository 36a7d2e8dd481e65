package software

import (
	"image"
)

// rgba is a straight-alpha color with components in [0, 1].
type rgba struct {
	R, G, B, A float32
}

// surface is a rectangular RGBA8 pixel buffer, 4 bytes per pixel, rows
// top to bottom.
type surface struct {
	width  int
	height int
	data   []uint8
}

func newSurface(width, height int) *surface {
	return &surface{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

func (s *surface) set(x, y int, c rgba) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	i := (y*s.width + x) * 4
	s.data[i+0] = to8(c.R)
	s.data[i+1] = to8(c.G)
	s.data[i+2] = to8(c.B)
	s.data[i+3] = to8(c.A)
}

func (s *surface) get(x, y int) rgba {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return rgba{}
	}
	i := (y*s.width + x) * 4
	return rgba{
		R: float32(s.data[i+0]) / 255,
		G: float32(s.data[i+1]) / 255,
		B: float32(s.data[i+2]) / 255,
		A: float32(s.data[i+3]) / 255,
	}
}

func (s *surface) clear(c rgba) {
	r, g, b, a := to8(c.R), to8(c.G), to8(c.B), to8(c.A)
	for i := 0; i < len(s.data); i += 4 {
		s.data[i+0] = r
		s.data[i+1] = g
		s.data[i+2] = b
		s.data[i+3] = a
	}
}

// toImage copies the surface into a new NRGBA image.
func (s *surface) toImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.data)
	return img
}

// depthBuffer holds one float32 depth per pixel.
type depthBuffer struct {
	width  int
	height int
	data   []float32
}

func newDepthBuffer(width, height int) *depthBuffer {
	return &depthBuffer{width: width, height: height, data: make([]float32, width*height)}
}

func (d *depthBuffer) clear(v float32) {
	for i := range d.data {
		d.data[i] = v
	}
}

// swapchain rotates a fixed number of equally sized surfaces. The back
// buffer is the one rendered into; present advances to the next buffer.
type swapchain struct {
	buffers []*surface
	back    int
}

func newSwapchain(count, width, height int) *swapchain {
	sc := &swapchain{buffers: make([]*surface, count)}
	sc.resize(width, height)
	return sc
}

// resize reallocates every buffer. Callers must have dropped all views of
// the old buffers first.
func (sc *swapchain) resize(width, height int) {
	for i := range sc.buffers {
		sc.buffers[i] = newSurface(width, height)
	}
	sc.back = 0
}

func (sc *swapchain) backBuffer() *surface { return sc.buffers[sc.back] }

func (sc *swapchain) size() (int, int) {
	b := sc.buffers[0]
	return b.width, b.height
}

// flip makes the current back buffer the front and returns it.
func (sc *swapchain) flip() *surface {
	front := sc.buffers[sc.back]
	sc.back = (sc.back + 1) % len(sc.buffers)
	return front
}
