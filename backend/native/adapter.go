// Package native implements the GPU backend on top of the gogpu/wgpu HAL.
//
// Every registered HAL variant (Vulkan, Metal, DX12, GLES) is tried in
// order until one opens a device. Config.Headless selects the noop
// variant, which runs the full adapter state machine without a GPU.
//
// Work is submitted eagerly: Clear and DrawIndexed each encode one render
// pass against the acquired surface texture and submit it.
package native

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/backend"
)

func init() {
	backend.Register(backend.KindNative, func() backend.Adapter {
		return New()
	})
}

const (
	surfaceFormat = gputypes.TextureFormatBGRA8Unorm
	depthFormat   = gputypes.TextureFormatDepth24Plus
)

// Stats counts work done since Init.
type Stats struct {
	Draws    uint64
	Submits  uint64
	Presents uint64
}

// frame is the acquired surface texture for the current back buffer.
type frame struct {
	tex  hal.SurfaceTexture
	view hal.TextureView
}

// inflight is a submitted command buffer awaiting completion.
type inflight struct {
	index uint64
	cmd   hal.CommandBuffer
}

// Adapter is the native backend.Adapter.
type Adapter struct {
	log   *slog.Logger
	state backend.State
	cfg   backend.Config

	variant  gputypes.Backend
	instance hal.Instance
	gpu      hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue

	surface   hal.Surface
	width     int
	height    int
	depthTex  hal.Texture
	depthView hal.TextureView
	frame     *frame
	viewport  backend.Viewport

	layouts      *layouts
	pipelines    map[pipelineKey]hal.RenderPipeline
	objectGroups map[cameraKey]hal.BindGroup
	spriteGroups map[spriteKey]hal.BindGroup
	pointSampler *sampler
	blank        *texture
	bound        bindings
	owned        []destroyer
	pending      []inflight

	stats Stats
}

var _ backend.Adapter = (*Adapter)(nil)

// New returns an uninitialized native adapter.
func New() *Adapter {
	a := &Adapter{}
	a.SetLogger(nil)
	return a
}

// Kind returns backend.KindNative.
func (a *Adapter) Kind() backend.Kind { return backend.KindNative }

// State returns the lifecycle state.
func (a *Adapter) State() backend.State { return a.state }

// Stats returns work counters.
func (a *Adapter) Stats() Stats { return a.stats }

// Info returns the opened GPU's description. Zero before Init.
func (a *Adapter) Info() gputypes.AdapterInfo { return a.info }

// Init opens a device, binds a surface to win and creates render targets
// at the window size. Any failure leaves the adapter Uninitialized.
func (a *Adapter) Init(win backend.Window, cfg backend.Config) error {
	if a.state != backend.StateUninitialized {
		return backend.ErrAlreadyInitialized
	}
	if win == nil {
		return fmt.Errorf("%w: nil window", backend.ErrSwapchainCreation)
	}
	if _, handle := win.NativeHandle(); handle == 0 && !cfg.Headless {
		return fmt.Errorf("%w: %w", backend.ErrSwapchainCreation, ErrNoSurface)
	}
	a.cfg = cfg

	if err := a.openDevice(); err != nil {
		a.Close()
		return fmt.Errorf("%w: %w", backend.ErrDeviceCreation, err)
	}
	if err := a.createDefaults(); err != nil {
		a.Close()
		return fmt.Errorf("%w: %w", backend.ErrDeviceCreation, err)
	}
	a.state = backend.StateDeviceReady
	a.log.Info("device ready", "hal", a.variant, "adapter", a.info.Name, "type", a.info.DeviceType)

	w, h := win.Size()
	if w <= 0 || h <= 0 {
		a.Close()
		return fmt.Errorf("%w: %w %dx%d", backend.ErrSwapchainCreation, backend.ErrInvalidDimensions, w, h)
	}
	display, window := win.NativeHandle()
	surface, err := a.instance.CreateSurface(display, window)
	if err != nil {
		a.Close()
		return fmt.Errorf("%w: %w", backend.ErrSwapchainCreation, err)
	}
	a.surface = surface
	a.logSurfaceModes()
	a.state = backend.StateSwapchainBound

	if err := a.Resize(w, h); err != nil {
		a.Close()
		return fmt.Errorf("%w: %w", backend.ErrSwapchainCreation, err)
	}
	return nil
}

// variants lists the HAL variants Init tries, in order.
func (a *Adapter) variants() []gputypes.Backend {
	switch {
	case a.cfg.Headless:
		return []gputypes.Backend{gputypes.BackendEmpty}
	case a.cfg.HALBackend != gputypes.BackendEmpty:
		return []gputypes.Backend{a.cfg.HALBackend}
	}
	var out []gputypes.Backend
	for _, v := range hal.AvailableBackends() {
		if v != gputypes.BackendEmpty {
			out = append(out, v)
		}
	}
	return out
}

func (a *Adapter) openDevice() error {
	variants := a.variants()
	if len(variants) == 0 {
		return ErrNoHALBackend
	}
	var errs []error
	for _, v := range variants {
		err := a.openVariant(v)
		if err == nil {
			return nil
		}
		a.log.Debug("HAL variant unavailable", "hal", v, "err", err)
		errs = append(errs, fmt.Errorf("%v: %w", v, err))
	}
	return errors.Join(errs...)
}

func (a *Adapter) openVariant(v gputypes.Backend) error {
	api, ok := hal.GetBackend(v)
	if !ok {
		return ErrNoHALBackend
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return ErrNoGPU
	}
	selected := pickAdapter(adapters)
	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("open device: %w", err)
	}
	a.variant = v
	a.instance = instance
	a.gpu = selected.Adapter
	a.info = selected.Info
	a.device = open.Device
	a.queue = open.Queue
	return nil
}

// pickAdapter prefers a discrete GPU, then an integrated one, then
// whatever was enumerated first.
func pickAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// logSurfaceModes reports whether the surface supports the format and
// present mode the adapter configures. Diagnostic only.
func (a *Adapter) logSurfaceModes() {
	caps := a.gpu.SurfaceCapabilities(a.surface)
	if caps == nil {
		a.log.Warn("adapter reports no surface capabilities")
		return
	}
	formatOK := len(caps.Formats) == 0
	for _, f := range caps.Formats {
		if f == surfaceFormat {
			formatOK = true
		}
	}
	modeOK := len(caps.PresentModes) == 0
	for _, m := range caps.PresentModes {
		if m == a.presentMode() {
			modeOK = true
		}
	}
	if !formatOK || !modeOK {
		a.log.Warn("no matching display mode", "format", surfaceFormat, "present", a.presentMode())
		return
	}
	a.log.Debug("display mode", "format", surfaceFormat, "present", a.presentMode())
}

func (a *Adapter) presentMode() gputypes.PresentMode {
	if a.cfg.VSync {
		return gputypes.PresentModeFifo
	}
	return gputypes.PresentModeImmediate
}

// Resize reconfigures the surface at width x height and recreates the
// depth target. Targets and texture slots are unbound first.
func (a *Adapter) Resize(width, height int) error {
	if !a.state.HasSwapchain() {
		return backend.ErrNotInitialized
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", backend.ErrInvalidDimensions, width, height)
	}

	a.releaseFrame()
	for i := range a.bound.textures {
		a.bound.textures[i] = nil
	}
	a.state = backend.StateSwapchainBound
	a.releaseDepth()

	a.width, a.height = width, height
	if err := a.configure(); err != nil {
		return err
	}
	if err := a.createDepth(); err != nil {
		return err
	}
	a.viewport = backend.Viewport{Width: float32(width), Height: float32(height)}
	a.state = backend.StateRenderTargetsBound
	a.log.Debug("render targets bound", "width", width, "height", height)
	return nil
}

func (a *Adapter) configure() error {
	err := a.surface.Configure(a.device, &hal.SurfaceConfiguration{
		Width:       uint32(a.width),
		Height:      uint32(a.height),
		Format:      surfaceFormat,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: a.presentMode(),
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return fmt.Errorf("native: configure surface: %w", err)
	}
	return nil
}

func (a *Adapter) createDepth() error {
	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "gfx-depth",
		Size:          hal.Extent3D{Width: uint32(a.width), Height: uint32(a.height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("native: create depth texture: %w", err)
	}
	view, err := a.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "gfx-depth-view",
		Format:        depthFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectDepthOnly,
		MipLevelCount: 1,
	})
	if err != nil {
		a.device.DestroyTexture(tex)
		return fmt.Errorf("native: create depth view: %w", err)
	}
	a.depthTex, a.depthView = tex, view
	return nil
}

func (a *Adapter) releaseDepth() {
	if a.depthView != nil {
		a.device.DestroyTextureView(a.depthView)
		a.depthView = nil
	}
	if a.depthTex != nil {
		a.device.DestroyTexture(a.depthTex)
		a.depthTex = nil
	}
}

// acquire returns the current back buffer, acquiring it from the surface
// on first use in a frame. Outdated or lost surfaces are reconfigured once.
func (a *Adapter) acquire() (*frame, error) {
	if a.frame != nil {
		return a.frame, nil
	}
	acquired, err := a.surface.AcquireTexture(nil)
	if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
		a.log.Debug("surface outdated, reconfiguring", "err", err)
		if cerr := a.configure(); cerr != nil {
			return nil, cerr
		}
		acquired, err = a.surface.AcquireTexture(nil)
	}
	if err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			return nil, &backend.DeviceRemovedError{Reason: err}
		}
		return nil, fmt.Errorf("native: acquire surface texture: %w", err)
	}
	view, err := a.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:         "gfx-backbuffer",
		Format:        surfaceFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		a.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("native: create backbuffer view: %w", err)
	}
	if acquired.Suboptimal {
		a.log.Debug("surface texture suboptimal")
	}
	a.frame = &frame{tex: acquired.Texture, view: view}
	return a.frame, nil
}

// releaseFrame discards an acquired but unpresented back buffer.
func (a *Adapter) releaseFrame() {
	if a.frame == nil {
		return
	}
	a.device.DestroyTextureView(a.frame.view)
	a.surface.DiscardTexture(a.frame.tex)
	a.frame = nil
}

// BindBackbuffer rebinds the back buffer and depth target and sets the
// viewport.
func (a *Adapter) BindBackbuffer(vp backend.Viewport) {
	if !a.state.HasSwapchain() || a.depthView == nil {
		return
	}
	a.viewport = vp
	a.state = backend.StateRenderTargetsBound
}

// Clear fills the back buffer with c and the depth target with 1.0.
func (a *Adapter) Clear(c gputypes.Color) {
	if !a.state.CanDraw() {
		return
	}
	f, err := a.acquire()
	if err != nil {
		a.log.Error("clear: acquire failed", "err", err)
		return
	}
	enc, err := a.beginPass("gfx-clear", f, gputypes.LoadOpClear, c)
	if err != nil {
		a.log.Error("clear: encode failed", "err", err)
		return
	}
	enc.pass.End()
	if err := a.submit(enc.encoder); err != nil {
		a.log.Error("clear: submit failed", "err", err)
	}
}

// Present shows the back buffer. Device loss is reported as
// *backend.DeviceRemovedError and leaves the adapter usable.
func (a *Adapter) Present() error {
	if !a.state.CanDraw() {
		return backend.ErrNotInitialized
	}
	f, err := a.acquire()
	if err != nil {
		return err
	}
	a.device.DestroyTextureView(f.view)
	a.frame = nil
	if err := a.queue.Present(a.surface, f.tex, nil); err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
			a.log.Debug("present on outdated surface, reconfiguring", "err", err)
			if cerr := a.configure(); cerr != nil {
				return &backend.DeviceRemovedError{Reason: cerr}
			}
			return fmt.Errorf("%w: %w", ErrFrameDropped, err)
		}
		return &backend.DeviceRemovedError{Reason: err}
	}
	a.stats.Presents++
	a.recycle()
	return nil
}

// Snapshot is not supported: surface textures are not readable.
func (a *Adapter) Snapshot() (*image.NRGBA, error) {
	return nil, fmt.Errorf("native: snapshot: %w", backend.ErrNotSupported)
}

// Close waits for the GPU, destroys every resource and returns to
// Uninitialized. It is safe to call in any state.
func (a *Adapter) Close() {
	if a.device != nil {
		if err := a.device.WaitIdle(); err != nil {
			a.log.Warn("wait idle on close", "err", err)
		}
		for _, p := range a.pending {
			a.device.FreeCommandBuffer(p.cmd)
		}
		a.pending = nil
		if a.surface != nil {
			a.releaseFrame()
		}
		a.releaseDepth()
		a.destroyOwned()
	}
	if a.surface != nil {
		a.surface.Unconfigure(a.device)
		a.surface.Destroy()
		a.surface = nil
	}
	if a.device != nil {
		a.device.Destroy()
		a.device = nil
		a.queue = nil
	}
	if a.gpu != nil {
		a.gpu.Destroy()
		a.gpu = nil
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
	a.bound = bindings{}
	a.info = gputypes.AdapterInfo{}
	a.state = backend.StateUninitialized
}

// Viewport returns the active viewport.
func (a *Adapter) Viewport() backend.Viewport { return a.viewport }
