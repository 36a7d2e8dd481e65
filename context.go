package gfx

import (
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
	"github.com/gogpu/gfx/internal/registry"
	"github.com/gogpu/gfx/internal/shader"
)

// Handle identifies a resource created through a Context. The zero Handle
// never resolves.
type Handle = registry.Handle

// InvalidHandle is returned when a resource could not be created.
const InvalidHandle = registry.InvalidHandle

// Context is an initialized graphics backend. It owns one adapter and the
// handle tables of every resource created through it.
//
// A Context is not safe for concurrent use; call it from the goroutine that
// owns the window. Methods on a nil, zero or closed Context do nothing.
type Context struct {
	kind    backend.Kind
	adapter backend.Adapter
	log     *slog.Logger
	opts    options

	width, height int

	textures        *registry.Registry[backend.Texture]
	shaders         *registry.Registry[backend.Shader]
	programs        *registry.Registry[backend.Program]
	samplers        *registry.Registry[backend.Sampler]
	models          *registry.Registry[backend.Model]
	constantBuffers *registry.Registry[backend.ConstantBuffer]
	inputLayouts    *registry.Registry[backend.InputLayout]

	defaults Defaults
	closed   bool
}

var _ io.Closer = (*Context)(nil)

// InitGraphics brings up the backend of the given kind on win and creates
// the default sprite resources.
//
// It fails if kind is not registered, if win is nil or has no area, or if
// device, swapchain or default resource creation fails. A failed call
// leaves nothing behind.
//
// Example:
//
//	win := window.NewOffscreen(800, 600)
//	ctx, err := gfx.InitGraphics(backend.KindSoftware, win)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
func InitGraphics(kind backend.Kind, win backend.Window, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg.Compiler == nil {
		o.cfg.Compiler = shader.NewCompiler()
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	if win == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidWindow)
	}
	w, h := win.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidWindow, w, h)
	}

	a, err := backend.New(kind)
	if err != nil {
		return nil, err
	}
	propagateLogger(a, log)

	if err := a.Init(win, o.cfg); err != nil {
		return nil, fmt.Errorf("gfx: init %s backend: %w", kind, err)
	}

	c := &Context{
		kind:            kind,
		adapter:         a,
		log:             log,
		opts:            o,
		width:           w,
		height:          h,
		textures:        registry.New[backend.Texture](),
		shaders:         registry.New[backend.Shader](),
		programs:        registry.New[backend.Program](),
		samplers:        registry.New[backend.Sampler](),
		models:          registry.New[backend.Model](),
		constantBuffers: registry.New[backend.ConstantBuffer](),
		inputLayouts:    registry.New[backend.InputLayout](),
	}

	d, err := c.bootstrap()
	if err != nil {
		a.Close()
		return nil, err
	}
	c.defaults = d

	log.Info("gfx: context ready", "backend", kind, "width", w, "height", h)
	return c, nil
}

// active returns the adapter operations dispatch to, or nil when the
// context cannot take calls.
func (c *Context) active() backend.Adapter {
	if c == nil || c.closed || c.adapter == nil {
		return nil
	}
	if !backend.IsRegistered(c.kind) || c.adapter.Kind() != c.kind {
		return nil
	}
	return c.adapter
}

// Kind returns the backend kind the context dispatches to.
func (c *Context) Kind() backend.Kind {
	if c == nil {
		return backend.KindUnknown
	}
	return c.kind
}

// State returns the adapter lifecycle state.
func (c *Context) State() backend.State {
	a := c.active()
	if a == nil {
		return backend.StateUninitialized
	}
	return a.State()
}

// Size returns the current swapchain size.
func (c *Context) Size() (width, height int) {
	if c.active() == nil {
		return 0, 0
	}
	return c.width, c.height
}

// Defaults returns the handles of the resources created by InitGraphics.
func (c *Context) Defaults() Defaults {
	if c.active() == nil {
		return Defaults{}
	}
	return c.defaults
}

// SetLogger replaces the logger of this context and its adapter.
// Pass nil to follow the package logger again.
func (c *Context) SetLogger(l *slog.Logger) {
	a := c.active()
	if a == nil {
		return
	}
	if l == nil {
		l = Logger()
	}
	c.log = l
	propagateLogger(a, l)
}

// BindBackbuffer binds the swapchain color target and the depth target and
// sets the viewport. Call it once per frame before clearing or drawing.
func (c *Context) BindBackbuffer(x, y, width, height float32) {
	a := c.active()
	if a == nil {
		return
	}
	a.BindBackbuffer(backend.Viewport{X: x, Y: y, Width: width, Height: height})
}

// ClearBackbuffer fills the color target with (r, g, b, a) and the depth
// target with 1.0.
func (c *Context) ClearBackbuffer(r, g, b, alpha float32) {
	a := c.active()
	if a == nil {
		return
	}
	a.Clear(gputypes.Color{R: float64(r), G: float64(g), B: float64(b), A: float64(alpha)})
}

// PresentBackbuffer shows the frame. A failure, including device removal,
// is logged and returned; the context stays usable and the caller decides
// whether to reinitialize.
func (c *Context) PresentBackbuffer() error {
	a := c.active()
	if a == nil {
		return ErrNoContext
	}
	if err := a.Present(); err != nil {
		c.log.Warn("gfx: present failed", "backend", c.kind, "reason", err)
		return err
	}
	return nil
}

// Resize rebuilds the swapchain targets at width x height and uploads the
// matching camera projection. Repeated calls with the same size are fine.
func (c *Context) Resize(width, height int) error {
	a := c.active()
	if a == nil {
		return ErrNoContext
	}
	if err := a.Resize(width, height); err != nil {
		return err
	}
	c.width, c.height = width, height
	if err := c.uploadCamera(); err != nil {
		return err
	}
	c.log.Debug("gfx: resized", "width", width, "height", height)
	return nil
}

// Snapshot returns a copy of the last presented frame. Backends that
// cannot read back return backend.ErrNotSupported.
func (c *Context) Snapshot() (*image.NRGBA, error) {
	a := c.active()
	if a == nil {
		return nil, ErrNoContext
	}
	return a.Snapshot()
}

// Close releases the backend and every resource created through the
// context. Later calls on the context do nothing.
func (c *Context) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	if c.adapter != nil {
		c.textures.Each(func(h Handle, t backend.Texture) {
			c.log.Debug("gfx: release texture", "handle", h, "width", t.Width(), "height", t.Height())
		})
		c.adapter.Close()
		c.log.Info("gfx: context closed", "backend", c.kind,
			"textures", c.textures.Len(), "models", c.models.Len())
	}
	c.adapter = nil
	return nil
}
