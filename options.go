package gfx

import (
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
	gfximage "github.com/gogpu/gfx/internal/image"
)

// Option configures a Context during InitGraphics.
//
// Example:
//
//	// Triple buffered, vsync on
//	ctx, err := gfx.InitGraphics(backend.KindNative, win,
//	    gfx.WithBufferCount(3),
//	    gfx.WithVSync(true),
//	)
type Option func(*options)

// ImageLoader decodes an image file into straight-alpha RGBA8 pixels.
type ImageLoader func(path string) (*image.NRGBA, error)

type options struct {
	cfg       backend.Config
	loadImage ImageLoader
	logger    *slog.Logger
}

func defaultOptions() options {
	return options{
		cfg:       backend.Config{BufferCount: 2},
		loadImage: gfximage.LoadRGBA,
	}
}

// WithBufferCount sets the swapchain length. Values outside 2..3 are
// clamped by the backend.
func WithBufferCount(n int) Option {
	return func(o *options) {
		o.cfg.BufferCount = n
	}
}

// WithVSync selects FIFO presentation. The default presents immediately.
func WithVSync(on bool) Option {
	return func(o *options) {
		o.cfg.VSync = on
	}
}

// WithCompiler replaces the shader compiler used for the default sprite
// shaders and every CompileShader call.
func WithCompiler(c backend.Compiler) Option {
	return func(o *options) {
		if c != nil {
			o.cfg.Compiler = c
		}
	}
}

// WithHALBackend pins the native adapter to one HAL variant, for example
// gputypes.BackendVulkan. Ignored by the software backend.
func WithHALBackend(b gputypes.Backend) Option {
	return func(o *options) {
		o.cfg.HALBackend = b
	}
}

// WithHeadless runs the native adapter on the noop HAL device.
// The noop HAL must be linked in with
//
//	import _ "github.com/gogpu/wgpu/hal/noop"
func WithHeadless(on bool) Option {
	return func(o *options) {
		o.cfg.Headless = on
	}
}

// WithImageLoader replaces the decoder used by CreateTextureFromFile.
func WithImageLoader(load ImageLoader) Option {
	return func(o *options) {
		if load != nil {
			o.loadImage = load
		}
	}
}

// WithLogger sets the logger of this context and its backend, overriding
// the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConfig applies the backend settings of a loaded Config. Options
// listed after it override individual values.
//
// Example:
//
//	cfg, err := gfx.LoadConfig("gfx.yaml")
//	if err != nil {
//	    return err
//	}
//	ctx, err := gfx.InitGraphics(cfg.Kind(), win, gfx.WithConfig(cfg))
func WithConfig(c *Config) Option {
	return func(o *options) {
		if c == nil {
			return
		}
		if c.BufferCount != 0 {
			o.cfg.BufferCount = c.BufferCount
		}
		o.cfg.VSync = c.VSync
		o.cfg.Headless = c.Headless
		if b, err := parseHALBackend(c.HAL); err == nil {
			o.cfg.HALBackend = b
		}
	}
}
