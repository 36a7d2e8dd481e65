package software

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
	"github.com/gogpu/gfx/internal/linear"
	gfxshader "github.com/gogpu/gfx/internal/shader"
)

var quadVertices = []float32{
	-0.5, -0.5, 0, 0, 1,
	-0.5, 0.5, 0, 0, 0,
	0.5, 0.5, 0, 1, 0,
	0.5, -0.5, 0, 1, 1,
}

var quadIndices = []uint16{0, 1, 2, 0, 2, 3}

var quadElements = []backend.VertexElement{
	{Location: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
	{Location: 1, Format: gputypes.VertexFormatFloat32x2, Offset: 12},
}

// spritePipeline binds everything a sprite draw needs and returns the
// object constant buffer.
func spritePipeline(t *testing.T, a *Adapter, w, h int) backend.ConstantBuffer {
	t.Helper()
	vs, err := a.CompileShader(gfxshader.SpriteVertexSource(), backend.StageVertex)
	if err != nil {
		t.Fatalf("compile vs: %v", err)
	}
	ps, err := a.CompileShader(gfxshader.SpritePixelSource(), backend.StagePixel)
	if err != nil {
		t.Fatalf("compile ps: %v", err)
	}
	prog, err := a.CreateProgram(vs, ps)
	if err != nil {
		t.Fatal(err)
	}
	layout, err := a.CreateInputLayout(vs, quadElements)
	if err != nil {
		t.Fatal(err)
	}
	mdl, err := a.CreateModel(quadVertices, 20, quadIndices)
	if err != nil {
		t.Fatal(err)
	}
	object, _ := a.CreateConstantBuffer(linear.MatrixSize)
	camera, _ := a.CreateConstantBuffer(2 * linear.MatrixSize)
	cam := linear.Identity().AppendBytes(nil)
	cam = linear.OrthographicLH(float32(w), float32(h), 0.1, 100).AppendBytes(cam)
	if err := a.UpdateConstantBuffer(camera, cam); err != nil {
		t.Fatal(err)
	}

	a.SetProgram(prog)
	a.SetInputLayout(layout)
	a.SetModel(mdl)
	a.SetConstantBuffer(backend.StageVertex, 0, object)
	a.SetConstantBuffer(backend.StageVertex, 1, camera)
	return object
}

func setWorld(t *testing.T, a *Adapter, cb backend.ConstantBuffer, x, y, w, h float32) {
	t.Helper()
	world := linear.Translation(x, y, 0.5).Mul(linear.Scaling(w, h, 1))
	if err := a.UpdateConstantBuffer(cb, world.Bytes()); err != nil {
		t.Fatal(err)
	}
}

func TestDrawSpriteScreenPlacement(t *testing.T) {
	a, win := newTestAdapter(t, 640, 480)
	object := spritePipeline(t, a, 640, 480)
	tex, err := a.CreateTexture(solid(64, 64, color.NRGBA{255, 0, 0, 255}))
	if err != nil {
		t.Fatal(err)
	}

	a.BindBackbuffer(backend.Viewport{Width: 640, Height: 480})
	a.Clear(gputypes.Color{R: 0, G: 0, B: 1, A: 1})
	setWorld(t, a, object, 100, 100, 64, 64)
	a.SetTexture(0, tex)
	a.SetSampler(0, nil)
	if err := a.DrawIndexed(6, 0); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
	if err := a.Present(); err != nil {
		t.Fatal(err)
	}
	frame := win.frames[0]

	// World (100,100) in a 640x480 window centered on the origin, y up.
	want := image.Rect(388, 108, 452, 172)
	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}
	for y := 0; y < 480; y += 4 {
		for x := 0; x < 640; x += 4 {
			got := frame.NRGBAAt(x, y)
			exp := blue
			if image.Pt(x, y).In(want) {
				exp = red
			}
			if got != exp {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, exp)
			}
		}
	}
	// Exact edges.
	for _, p := range []image.Point{{388, 108}, {451, 171}, {388, 171}, {451, 108}} {
		if got := frame.NRGBAAt(p.X, p.Y); got != red {
			t.Errorf("corner %v = %v, want red", p, got)
		}
	}
	for _, p := range []image.Point{{387, 108}, {452, 108}, {388, 107}, {388, 172}} {
		if got := frame.NRGBAAt(p.X, p.Y); got != blue {
			t.Errorf("outside %v = %v, want blue", p, got)
		}
	}
	if got := a.Stats().Pixels; got != 64*64 {
		t.Errorf("shaded %d pixels, want %d (shared edge drawn once)", got, 64*64)
	}
}

func TestDrawBlendsTransparentTexels(t *testing.T) {
	a, win := newTestAdapter(t, 16, 16)
	object := spritePipeline(t, a, 16, 16)
	tex, _ := a.CreateTexture(solid(2, 2, color.NRGBA{255, 255, 255, 128}))

	a.Clear(gputypes.Color{A: 1})
	setWorld(t, a, object, 0, 0, 16, 16)
	a.SetTexture(0, tex)
	if err := a.DrawIndexed(6, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Present(); err != nil {
		t.Fatal(err)
	}
	got := win.frames[0].NRGBAAt(8, 8)
	if got.R < 126 || got.R > 130 || got.A != 255 {
		t.Errorf("half white over black = %v, want ~(128,128,128,255)", got)
	}
}

func TestDrawUnboundTextureIsTransparent(t *testing.T) {
	a, win := newTestAdapter(t, 8, 8)
	object := spritePipeline(t, a, 8, 8)
	a.Clear(gputypes.Color{G: 1, A: 1})
	setWorld(t, a, object, 0, 0, 8, 8)
	if err := a.DrawIndexed(6, 0); err != nil {
		t.Fatal(err)
	}
	_ = a.Present()
	if got := win.frames[0].NRGBAAt(4, 4); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("pixel = %v, want clear color", got)
	}
}

func TestDrawDepthLessEqual(t *testing.T) {
	a, win := newTestAdapter(t, 8, 8)
	object := spritePipeline(t, a, 8, 8)
	red, _ := a.CreateTexture(solid(1, 1, color.NRGBA{255, 0, 0, 255}))
	green, _ := a.CreateTexture(solid(1, 1, color.NRGBA{0, 255, 0, 255}))

	a.Clear(gputypes.Color{A: 1})
	setWorld(t, a, object, 0, 0, 8, 8)
	a.SetTexture(0, red)
	_ = a.DrawIndexed(6, 0)
	// Same depth passes LessEqual, so the later sprite wins.
	a.SetTexture(0, green)
	_ = a.DrawIndexed(6, 0)
	_ = a.Present()
	if got := win.frames[0].NRGBAAt(4, 4); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("pixel = %v, want green", got)
	}
}

func TestDrawIncompleteBindings(t *testing.T) {
	a, _ := newTestAdapter(t, 8, 8)
	if err := a.DrawIndexed(6, 0); !errors.Is(err, backend.ErrIncompleteBindings) {
		t.Errorf("DrawIndexed() error = %v, want ErrIncompleteBindings", err)
	}
	spritePipeline(t, a, 8, 8)
	a.SetConstantBuffer(backend.StageVertex, 1, nil)
	if err := a.DrawIndexed(6, 0); !errors.Is(err, backend.ErrIncompleteBindings) {
		t.Errorf("DrawIndexed() without camera error = %v", err)
	}
	if err := New().DrawIndexed(6, 0); !errors.Is(err, backend.ErrNotInitialized) {
		t.Errorf("DrawIndexed() before Init error = %v", err)
	}
}

func TestDrawIndexRange(t *testing.T) {
	a, _ := newTestAdapter(t, 8, 8)
	spritePipeline(t, a, 8, 8)
	if err := a.DrawIndexed(6, 3); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("DrawIndexed(6, 3) error = %v, want ErrInvalidModel", err)
	}
}

func TestDrawCullsBackFaces(t *testing.T) {
	a, _ := newTestAdapter(t, 8, 8)
	spritePipeline(t, a, 8, 8)
	// Mirror the quad in x: every triangle turns counter-clockwise.
	object, _ := a.CreateConstantBuffer(linear.MatrixSize)
	_ = a.UpdateConstantBuffer(object, linear.Scaling(-8, 8, 1).Bytes())
	a.SetConstantBuffer(backend.StageVertex, 0, object)
	if err := a.DrawIndexed(6, 0); err != nil {
		t.Fatal(err)
	}
	if got := a.Stats().Triangles; got != 0 {
		t.Errorf("rasterized %d triangles, want 0", got)
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		mode gputypes.AddressMode
		in   int
		want int
	}{
		{gputypes.AddressModeClampToEdge, -3, 0},
		{gputypes.AddressModeClampToEdge, 9, 3},
		{gputypes.AddressModeRepeat, 5, 1},
		{gputypes.AddressModeRepeat, -1, 3},
		{gputypes.AddressModeMirrorRepeat, 4, 3},
		{gputypes.AddressModeMirrorRepeat, 7, 0},
		{gputypes.AddressModeMirrorRepeat, -1, 0},
	}
	for _, tt := range tests {
		if got := address(tt.mode, tt.in, 4); got != tt.want {
			t.Errorf("address(%v, %d, 4) = %d, want %d", tt.mode, tt.in, got, tt.want)
		}
	}
}

func TestSampleLinear(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 255})
	tex := &texture{img: img}

	desc := backend.SamplerDescriptor{AddressMode: gputypes.AddressModeClampToEdge, Filter: gputypes.FilterModeLinear}
	mid := sample(tex, desc, 0.5, 0.5)
	if mid.R < 0.49 || mid.R > 0.51 {
		t.Errorf("linear sample at center = %v, want 0.5", mid.R)
	}
	desc.Filter = gputypes.FilterModeNearest
	if got := sample(tex, desc, 0.9, 0.5); got.R != 1 {
		t.Errorf("nearest sample at 0.9 = %v, want 1", got.R)
	}
}
