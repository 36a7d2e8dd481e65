package gfx

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gfx/backend"
	"github.com/gogpu/gfx/backend/software"
	"github.com/gogpu/gfx/window"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newTestContext(t *testing.T, w, h int, opts ...Option) (*Context, *window.Offscreen) {
	t.Helper()
	win := window.NewOffscreen(w, h)
	ctx, err := InitGraphics(backend.KindSoftware, win, opts...)
	if err != nil {
		t.Fatalf("InitGraphics() error = %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, win
}

// frame renders one frame: bind, clear to bg, draw, present.
func frame(t *testing.T, ctx *Context, bg color.NRGBA, draw func()) *image.NRGBA {
	t.Helper()
	w, h := ctx.Size()
	ctx.BindBackbuffer(0, 0, float32(w), float32(h))
	ctx.ClearBackbuffer(float32(bg.R)/255, float32(bg.G)/255, float32(bg.B)/255, float32(bg.A)/255)
	if draw != nil {
		draw()
	}
	if err := ctx.PresentBackbuffer(); err != nil {
		t.Fatalf("PresentBackbuffer() error = %v", err)
	}
	img, err := ctx.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	return img
}

func TestInitGraphicsSoftware(t *testing.T) {
	ctx, _ := newTestContext(t, 800, 600)

	if ctx.Kind() != backend.KindSoftware {
		t.Errorf("Kind() = %v", ctx.Kind())
	}
	if ctx.State() != backend.StateRenderTargetsBound {
		t.Errorf("State() = %v", ctx.State())
	}
	if w, h := ctx.Size(); w != 800 || h != 600 {
		t.Errorf("Size() = %dx%d", w, h)
	}

	d := ctx.Defaults()
	_, vsOK := ctx.shaders.Get(d.VertexShader)
	_, psOK := ctx.shaders.Get(d.PixelShader)
	_, progOK := ctx.programs.Get(d.Program)
	_, smpOK := ctx.samplers.Get(d.Sampler)
	_, layoutOK := ctx.inputLayouts.Get(d.InputLayout)
	_, quadOK := ctx.models.Get(d.Quad)
	_, objOK := ctx.constantBuffers.Get(d.ObjectBuffer)
	_, camOK := ctx.constantBuffers.Get(d.CameraBuffer)
	checks := []struct {
		name string
		ok   bool
	}{
		{"vertex shader", vsOK},
		{"pixel shader", psOK},
		{"program", progOK},
		{"sampler", smpOK},
		{"input layout", layoutOK},
		{"quad", quadOK},
		{"object buffer", objOK},
		{"camera buffer", camOK},
	}
	for _, c := range checks {
		if !c.ok {
			t.Errorf("default %s does not resolve", c.name)
		}
	}
	if d.ObjectBuffer == d.CameraBuffer {
		t.Error("object and camera buffers share a handle")
	}

	quad, _ := ctx.models.Get(d.Quad)
	if quad.IndexCount() != 6 || quad.Stride() != QuadStride {
		t.Errorf("quad: %d indices, stride %d", quad.IndexCount(), quad.Stride())
	}

	sw := ctx.adapter.(*software.Adapter)
	cam, _ := ctx.constantBuffers.Get(d.CameraBuffer)
	if got := sw.Bindings().VertexCB[CameraSlot]; got != cam {
		t.Error("camera buffer not bound at the camera slot")
	}
}

func TestInitGraphicsFailures(t *testing.T) {
	tests := []struct {
		name string
		kind backend.Kind
		win  backend.Window
		want error
	}{
		{"nil window", backend.KindSoftware, nil, ErrInvalidWindow},
		{"zero size", backend.KindSoftware, window.NewOffscreen(0, 0), ErrInvalidWindow},
		{"negative size", backend.KindSoftware, window.NewOffscreen(-3, 10), ErrInvalidWindow},
		{"unknown kind", backend.KindUnknown, window.NewOffscreen(8, 8), backend.ErrUnknownKind},
		{"out of range kind", backend.Kind(42), window.NewOffscreen(8, 8), backend.ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := InitGraphics(tt.kind, tt.win)
			if !errors.Is(err, tt.want) {
				t.Errorf("InitGraphics() error = %v, want %v", err, tt.want)
			}
			if ctx != nil {
				t.Error("InitGraphics() returned a context on failure")
			}
		})
	}
}

type brokenCompiler struct{}

func (brokenCompiler) Compile(string, backend.Stage) (*backend.Bytecode, error) {
	return nil, errors.New("no shaders today")
}

func TestInitGraphicsBootstrapFailure(t *testing.T) {
	win := window.NewOffscreen(16, 16)
	ctx, err := InitGraphics(backend.KindSoftware, win, WithCompiler(brokenCompiler{}))
	if !errors.Is(err, ErrBootstrap) {
		t.Fatalf("InitGraphics() error = %v, want ErrBootstrap", err)
	}
	if ctx != nil {
		t.Error("context returned after bootstrap failure")
	}
}

// closeRecorder is a software adapter that remembers being closed.
type closeRecorder struct {
	*software.Adapter
	closed int
}

func (r *closeRecorder) Close() {
	r.closed++
	r.Adapter.Close()
}

func TestInitGraphicsBootstrapFailureClosesAdapter(t *testing.T) {
	var made []*closeRecorder
	backend.Register(backend.KindSoftware, func() backend.Adapter {
		r := &closeRecorder{Adapter: software.New()}
		made = append(made, r)
		return r
	})
	t.Cleanup(func() {
		backend.Register(backend.KindSoftware, func() backend.Adapter { return software.New() })
	})

	_, err := InitGraphics(backend.KindSoftware, window.NewOffscreen(16, 16), WithCompiler(brokenCompiler{}))
	if !errors.Is(err, ErrBootstrap) {
		t.Fatalf("InitGraphics() error = %v, want ErrBootstrap", err)
	}
	if len(made) != 1 {
		t.Fatalf("factory called %d times, want 1", len(made))
	}
	if made[0].closed != 1 {
		t.Errorf("adapter closed %d times, want 1", made[0].closed)
	}
	if st := made[0].State(); st != backend.StateUninitialized {
		t.Errorf("adapter state = %v after failed bootstrap, want Uninitialized", st)
	}
}

func TestDrawTextureEndToEnd(t *testing.T) {
	ctx, win := newTestContext(t, 800, 600)

	tex := ctx.CreateTextureFromImage(solid(64, 64, red))
	if tex == InvalidHandle {
		t.Fatal("CreateTextureFromImage() returned InvalidHandle")
	}

	img := frame(t, ctx, blue, func() {
		if err := ctx.DrawTexture(tex, 100, 100); err != nil {
			t.Fatalf("DrawTexture() error = %v", err)
		}
	})

	// (100, 100) in camera space is pixel (500, 200); the sprite is 64x64.
	want := image.Rect(468, 168, 532, 232)
	var reds int
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			got := img.NRGBAAt(x, y)
			in := image.Pt(x, y).In(want)
			switch {
			case in && got != red:
				t.Fatalf("pixel (%d,%d) = %v, want red", x, y, got)
			case !in && got != blue:
				t.Fatalf("pixel (%d,%d) = %v, want blue", x, y, got)
			}
			if in {
				reds++
			}
		}
	}
	if reds != 64*64 {
		t.Errorf("%d red pixels, want %d", reds, 64*64)
	}
	if win.Frames() != 1 {
		t.Errorf("window received %d frames, want 1", win.Frames())
	}
}

func TestDrawTextureDistinctTextures(t *testing.T) {
	ctx, _ := newTestContext(t, 400, 200)

	a := ctx.CreateTextureFromImage(solid(32, 32, red))
	b := ctx.CreateTextureFromImage(solid(32, 32, green))
	if a == InvalidHandle || b == InvalidHandle || a == b {
		t.Fatalf("handles a=%d b=%d, want two distinct valid handles", a, b)
	}

	img := frame(t, ctx, blue, func() {
		_ = ctx.DrawTexture(a, -100, 0)
		_ = ctx.DrawTexture(b, 100, 0)
	})

	if got := img.NRGBAAt(100, 100); got != red {
		t.Errorf("left sprite = %v, want red", got)
	}
	if got := img.NRGBAAt(300, 100); got != green {
		t.Errorf("right sprite = %v, want green", got)
	}
	if got := img.NRGBAAt(200, 100); got != blue {
		t.Errorf("gap = %v, want blue", got)
	}
}

func TestDrawTextureScalesToTextureSize(t *testing.T) {
	ctx, _ := newTestContext(t, 200, 200)
	tex := ctx.CreateTextureFromImage(solid(40, 10, red))

	img := frame(t, ctx, blue, func() { _ = ctx.DrawTexture(tex, 0, 0) })

	bounds := image.Rectangle{Min: image.Pt(200, 200)}
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if img.NRGBAAt(x, y) == red {
				bounds = bounds.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	if want := image.Rect(80, 95, 120, 105); bounds != want {
		t.Errorf("sprite bounds = %v, want %v", bounds, want)
	}
}

func TestDrawTextureInvalidHandle(t *testing.T) {
	ctx, _ := newTestContext(t, 64, 64)
	sw := ctx.adapter.(*software.Adapter)

	tex := ctx.CreateTextureFromImage(solid(8, 8, red))
	w, h := ctx.Size()
	ctx.BindBackbuffer(0, 0, float32(w), float32(h))
	if err := ctx.DrawTexture(tex, 0, 0); err != nil {
		t.Fatal(err)
	}
	before := sw.Bindings()
	draws := sw.Stats().Draws

	for _, h := range []Handle{InvalidHandle, tex + 1, 1 << 20} {
		if err := ctx.DrawTexture(h, 5, 5); err != nil {
			t.Errorf("DrawTexture(%d) error = %v, want nil", h, err)
		}
	}
	if sw.Bindings() != before {
		t.Error("draw with an unknown handle changed the bound state")
	}
	if sw.Stats().Draws != draws {
		t.Error("draw with an unknown handle reached the backend")
	}
}

func TestResizeClearPresent(t *testing.T) {
	ctx, _ := newTestContext(t, 100, 100)
	tex := ctx.CreateTextureFromImage(solid(2, 2, red))

	sizes := [][2]int{{320, 240}, {320, 240}, {50, 80}, {640, 480}}
	for _, sz := range sizes {
		if err := ctx.Resize(sz[0], sz[1]); err != nil {
			t.Fatalf("Resize(%d, %d) error = %v", sz[0], sz[1], err)
		}
		ctx.ClearBackbuffer(0, 0, 1, 1)
		if err := ctx.PresentBackbuffer(); err != nil {
			t.Fatalf("PresentBackbuffer() after Resize(%d, %d) error = %v", sz[0], sz[1], err)
		}
		img, err := ctx.Snapshot()
		if err != nil {
			t.Fatal(err)
		}
		if img.Rect.Dx() != sz[0] || img.Rect.Dy() != sz[1] {
			t.Errorf("frame size = %v, want %dx%d", img.Rect.Size(), sz[0], sz[1])
		}
	}

	// The camera follows the new size: the origin is the center pixel.
	img := frame(t, ctx, blue, func() { _ = ctx.DrawTexture(tex, 0, 0) })
	if got := img.NRGBAAt(320, 240); got != red {
		t.Errorf("center after resize = %v, want red", got)
	}
	if got := img.NRGBAAt(322, 242); got != blue {
		t.Errorf("outside sprite after resize = %v, want blue", got)
	}

	if err := ctx.Resize(0, 10); !errors.Is(err, backend.ErrInvalidDimensions) {
		t.Errorf("Resize(0, 10) error = %v", err)
	}
}

type flakyWindow struct {
	*window.Offscreen
	fail error
}

func (w *flakyWindow) PresentFrame(f *image.NRGBA) error {
	if w.fail != nil {
		return w.fail
	}
	return w.Offscreen.PresentFrame(f)
}

func TestPresentFailureKeepsContext(t *testing.T) {
	win := &flakyWindow{Offscreen: window.NewOffscreen(32, 32)}
	ctx, err := InitGraphics(backend.KindSoftware, win)
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()

	lost := errors.New("display disconnected")
	win.fail = lost
	ctx.BindBackbuffer(0, 0, 32, 32)
	ctx.ClearBackbuffer(1, 0, 0, 1)
	err = ctx.PresentBackbuffer()
	var removed *backend.DeviceRemovedError
	if !errors.As(err, &removed) || !errors.Is(err, lost) {
		t.Fatalf("PresentBackbuffer() error = %v, want DeviceRemovedError(%v)", err, lost)
	}

	win.fail = nil
	img := frame(t, ctx, green, nil)
	if img.NRGBAAt(0, 0) != green {
		t.Error("frame after recovered present is wrong")
	}
}

func TestNoContextIsNoop(t *testing.T) {
	closed, _ := newTestContext(t, 8, 8)
	if err := closed.Close(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ctx  *Context
	}{
		{"nil", nil},
		{"zero", &Context{}},
		{"closed", closed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.ctx
			ctx.BindBackbuffer(0, 0, 8, 8)
			ctx.ClearBackbuffer(1, 1, 1, 1)
			if err := ctx.PresentBackbuffer(); !errors.Is(err, ErrNoContext) {
				t.Errorf("PresentBackbuffer() error = %v", err)
			}
			if err := ctx.DrawTexture(1, 0, 0); !errors.Is(err, ErrNoContext) {
				t.Errorf("DrawTexture() error = %v", err)
			}
			if h := ctx.CreateTextureFromImage(solid(2, 2, red)); h != InvalidHandle {
				t.Errorf("CreateTextureFromImage() = %d", h)
			}
			if h := ctx.CreateTextureFromFile("missing.png"); h != InvalidHandle {
				t.Errorf("CreateTextureFromFile() = %d", h)
			}
			if err := ctx.Resize(4, 4); !errors.Is(err, ErrNoContext) {
				t.Errorf("Resize() error = %v", err)
			}
			if _, err := ctx.Snapshot(); !errors.Is(err, ErrNoContext) {
				t.Errorf("Snapshot() error = %v", err)
			}
			if ctx.State() != backend.StateUninitialized {
				t.Errorf("State() = %v", ctx.State())
			}
			if ctx.Defaults() != (Defaults{}) {
				t.Error("Defaults() not empty")
			}
			if err := ctx.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestUnregisteredKindIsNoop(t *testing.T) {
	ctx, win := newTestContext(t, 16, 16)
	tex := ctx.CreateTextureFromImage(solid(4, 4, red))

	backend.Unregister(backend.KindSoftware)
	t.Cleanup(func() {
		backend.Register(backend.KindSoftware, func() backend.Adapter { return software.New() })
	})

	ctx.BindBackbuffer(0, 0, 16, 16)
	ctx.ClearBackbuffer(1, 0, 0, 1)
	if err := ctx.DrawTexture(tex, 0, 0); !errors.Is(err, ErrNoContext) {
		t.Errorf("DrawTexture() error = %v", err)
	}
	if err := ctx.PresentBackbuffer(); !errors.Is(err, ErrNoContext) {
		t.Errorf("PresentBackbuffer() error = %v", err)
	}
	if win.Frames() != 0 {
		t.Error("frame presented through an unregistered backend")
	}
}

func TestCloseReleasesAdapter(t *testing.T) {
	ctx, _ := newTestContext(t, 8, 8)
	sw := ctx.adapter.(*software.Adapter)
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if sw.State() != backend.StateUninitialized {
		t.Errorf("adapter state after Close = %v", sw.State())
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
