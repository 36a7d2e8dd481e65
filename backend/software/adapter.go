// Package software implements the CPU reference backend.
//
// The adapter rasterizes into an in-memory swapchain, so it needs no GPU and
// no real window. Presented frames are handed to the window when it
// implements backend.Presenter, and the last one is kept for Snapshot.
//
// The pipeline is fixed function: it executes the built-in sprite program
// (world, view and projection transforms from vertex constant buffers 0
// and 1, then one texture sample) for whatever compiled program is bound.
package software

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
)

// init registers the software backend on package import.
func init() {
	backend.Register(backend.KindSoftware, func() backend.Adapter {
		return New()
	})
}

// bindings is the pipeline state set by the Set* methods. It is not
// restored between draws.
type bindings struct {
	vsCB     [MaxSlots]*constantBuffer
	psCB     [MaxSlots]*constantBuffer
	textures [MaxSlots]*texture
	samplers [MaxSlots]*sampler
	program  *program
	layout   *inputLayout
	model    *model
}

// rasterState is the global rasterizer configuration fixed at Init.
type rasterState struct {
	cullBack  bool
	frontFace gputypes.FrontFace
}

// Stats counts work done since Init.
type Stats struct {
	Draws     uint64
	Triangles uint64
	Pixels    uint64
	Presents  uint64
}

// Adapter is the software backend.Adapter.
type Adapter struct {
	log   *slog.Logger
	state backend.State
	cfg   backend.Config

	win       backend.Window
	presenter backend.Presenter

	chain    *swapchain
	target   *surface
	depth    *depthBuffer
	viewport backend.Viewport

	raster       rasterState
	pointSampler *sampler
	bound        bindings

	front *image.NRGBA
	stats Stats
}

var _ backend.Adapter = (*Adapter)(nil)

// New returns an uninitialized software adapter.
func New() *Adapter {
	return &Adapter{log: newNopLogger().With("backend", "software")}
}

// Kind returns backend.KindSoftware.
func (a *Adapter) Kind() backend.Kind { return backend.KindSoftware }

// State returns the lifecycle state.
func (a *Adapter) State() backend.State { return a.state }

// Stats returns work counters.
func (a *Adapter) Stats() Stats { return a.stats }

// Init creates the swapchain for win and binds render targets at its size.
func (a *Adapter) Init(win backend.Window, cfg backend.Config) error {
	if a.state != backend.StateUninitialized {
		return backend.ErrAlreadyInitialized
	}
	if win == nil {
		return fmt.Errorf("%w: nil window", backend.ErrSwapchainCreation)
	}

	// Uninitialized -> DeviceReady: the CPU is always an acceptable device.
	a.cfg = cfg
	a.raster = rasterState{cullBack: true, frontFace: gputypes.FrontFaceCW}
	a.pointSampler = &sampler{owner: a, desc: backend.SamplerDescriptor{
		AddressMode: gputypes.AddressModeClampToEdge,
		Filter:      gputypes.FilterModeNearest,
	}}
	a.resetBindings()
	a.state = backend.StateDeviceReady
	a.log.Info("device ready", "device", "cpu")

	// DeviceReady -> SwapchainBound.
	w, h := win.Size()
	a.logDisplayMode(win, w, h)
	if w <= 0 || h <= 0 {
		a.Close()
		return fmt.Errorf("%w: %w %dx%d", backend.ErrSwapchainCreation, backend.ErrInvalidDimensions, w, h)
	}
	a.win = win
	a.presenter, _ = win.(backend.Presenter)
	a.chain = newSwapchain(cfg.SwapchainLength(), w, h)
	a.state = backend.StateSwapchainBound
	a.log.Info("swapchain created", "width", w, "height", h, "buffers", cfg.SwapchainLength())

	if err := a.Resize(w, h); err != nil {
		a.Close()
		return err
	}
	return nil
}

// logDisplayMode reports whether the window's scale factor maps the
// requested size onto whole physical pixels. Diagnostic only.
func (a *Adapter) logDisplayMode(win backend.Window, w, h int) {
	sf := win.ScaleFactor()
	pw, ph := float64(w)*sf, float64(h)*sf
	if pw != float64(int(pw)) || ph != float64(int(ph)) {
		a.log.Warn("no exact display mode for requested size", "width", w, "height", h, "scale", sf)
		return
	}
	a.log.Debug("display mode", "width", int(pw), "height", int(ph), "scale", sf)
}

// Resize rebuilds the render targets at width x height. It unbinds the
// targets and every texture slot first, then releases the depth buffer,
// resizes the swapchain, recreates both targets and resets the viewport.
func (a *Adapter) Resize(width, height int) error {
	if !a.state.HasSwapchain() {
		return backend.ErrNotInitialized
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", backend.ErrInvalidDimensions, width, height)
	}

	a.target = nil
	for i := range a.bound.textures {
		a.bound.textures[i] = nil
	}
	a.state = backend.StateSwapchainBound
	a.depth = nil

	a.chain.resize(width, height)

	a.target = a.chain.backBuffer()
	a.depth = newDepthBuffer(width, height)
	a.depth.clear(1)
	a.viewport = backend.Viewport{Width: float32(width), Height: float32(height)}
	a.state = backend.StateRenderTargetsBound
	a.log.Debug("render targets bound", "width", width, "height", height)
	return nil
}

// BindBackbuffer rebinds the current back buffer and depth buffer and sets
// the viewport.
func (a *Adapter) BindBackbuffer(vp backend.Viewport) {
	if !a.state.HasSwapchain() || a.depth == nil {
		return
	}
	a.target = a.chain.backBuffer()
	a.viewport = vp
	a.state = backend.StateRenderTargetsBound
}

// Clear fills the bound color target with c and the depth target with 1.0.
func (a *Adapter) Clear(c gputypes.Color) {
	if a.target == nil || a.depth == nil {
		return
	}
	a.target.clear(rgba{R: float32(c.R), G: float32(c.G), B: float32(c.B), A: float32(c.A)})
	a.depth.clear(1)
}

// Present hands the back buffer to the window and advances the swapchain.
// A presenter failure is reported as *backend.DeviceRemovedError and the
// swapchain does not advance.
func (a *Adapter) Present() error {
	if !a.state.CanDraw() {
		return backend.ErrNotInitialized
	}
	frame := a.chain.backBuffer().toImage()
	if a.presenter != nil {
		if err := a.presenter.PresentFrame(frame); err != nil {
			return &backend.DeviceRemovedError{Reason: err}
		}
	}
	a.chain.flip()
	a.front = frame
	a.stats.Presents++

	if a.target != nil {
		a.target = a.chain.backBuffer()
	}
	return nil
}

// Snapshot returns a copy of the last presented frame.
func (a *Adapter) Snapshot() (*image.NRGBA, error) {
	if a.front == nil {
		return nil, ErrNoFrame
	}
	out := image.NewNRGBA(a.front.Rect)
	copy(out.Pix, a.front.Pix)
	return out, nil
}

// Close releases the swapchain and every binding.
func (a *Adapter) Close() {
	a.resetBindings()
	a.target = nil
	a.depth = nil
	a.chain = nil
	a.front = nil
	a.win = nil
	a.presenter = nil
	a.state = backend.StateUninitialized
}

func (a *Adapter) resetBindings() {
	a.bound = bindings{}
	for i := range a.bound.samplers {
		a.bound.samplers[i] = a.pointSampler
	}
}

// Bindings is a read-only view of the bound pipeline state.
type Bindings struct {
	Program     backend.Program
	InputLayout backend.InputLayout
	Model       backend.Model
	Textures    [MaxSlots]backend.Texture
	Samplers    [MaxSlots]backend.Sampler
	VertexCB    [MaxSlots]backend.ConstantBuffer
	PixelCB     [MaxSlots]backend.ConstantBuffer
}

// Bindings returns the currently bound pipeline state. Unbound slots are nil.
func (a *Adapter) Bindings() Bindings {
	var b Bindings
	if a.bound.program != nil {
		b.Program = a.bound.program
	}
	if a.bound.layout != nil {
		b.InputLayout = a.bound.layout
	}
	if a.bound.model != nil {
		b.Model = a.bound.model
	}
	for i := 0; i < MaxSlots; i++ {
		if t := a.bound.textures[i]; t != nil {
			b.Textures[i] = t
		}
		if s := a.bound.samplers[i]; s != nil {
			b.Samplers[i] = s
		}
		if c := a.bound.vsCB[i]; c != nil {
			b.VertexCB[i] = c
		}
		if c := a.bound.psCB[i]; c != nil {
			b.PixelCB[i] = c
		}
	}
	return b
}

// Viewport returns the active viewport.
func (a *Adapter) Viewport() backend.Viewport { return a.viewport }
