package gfx

import (
	"errors"
	"testing"

	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gfx/backend"
	"github.com/gogpu/gfx/backend/native"
	"github.com/gogpu/gfx/window"
)

func TestNativeContextFrame(t *testing.T) {
	win := window.NewOffscreen(800, 600)
	ctx, err := InitGraphics(backend.KindNative, win, WithHeadless(true), WithBufferCount(3))
	if err != nil {
		t.Fatalf("InitGraphics(native) error = %v", err)
	}
	defer ctx.Close()

	if ctx.State() != backend.StateRenderTargetsBound {
		t.Errorf("State() = %v", ctx.State())
	}

	hero := ctx.CreateTextureFromImage(solid(64, 64, red))
	if hero == InvalidHandle {
		t.Fatal("texture upload failed")
	}

	for i := 0; i < 3; i++ {
		ctx.BindBackbuffer(0, 0, 800, 600)
		ctx.ClearBackbuffer(1, 0, 0, 1)
		if err := ctx.DrawTexture(hero, 100, 100); err != nil {
			t.Fatalf("DrawTexture() error = %v", err)
		}
		if err := ctx.PresentBackbuffer(); err != nil {
			t.Fatalf("PresentBackbuffer() error = %v", err)
		}
	}
	if err := ctx.Resize(1024, 768); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	ctx.ClearBackbuffer(0, 0, 1, 1)
	if err := ctx.PresentBackbuffer(); err != nil {
		t.Fatalf("PresentBackbuffer() after resize error = %v", err)
	}

	st := ctx.adapter.(*native.Adapter).Stats()
	if st.Draws != 3 || st.Presents != 4 {
		t.Errorf("stats = %+v, want 3 draws and 4 presents", st)
	}
	if _, err := ctx.Snapshot(); !errors.Is(err, backend.ErrNotSupported) {
		t.Errorf("Snapshot() error = %v, want ErrNotSupported", err)
	}
}
