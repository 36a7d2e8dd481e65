// Command gfxdemo draws a sprite in a frame loop and saves the last frame.
//
// It opens a headless window, loads the sprite texture (falling back to
// the parent directory), renders until the window quits and writes the
// final frame as PNG.
//
//	gfxdemo -backend software -frames 60 -output demo.png
//	gfxdemo -config gfx.yaml
package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/gogpu/wgpu/hal/noop" // headless native device

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend"
	gfximage "github.com/gogpu/gfx/internal/image"
	"github.com/gogpu/gfx/window"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML or TOML config file")
		backendArg = flag.String("backend", "", "backend: software, native, wgpu or auto")
		width      = flag.Int("width", 0, "window width")
		height     = flag.Int("height", 0, "window height")
		texture    = flag.String("texture", "", "sprite image")
		headless   = flag.Bool("headless", false, "run the native backend on the noop device")
		frames     = flag.Int("frames", 60, "frames to render before quitting")
		output     = flag.String("output", "demo.png", "where to save the last frame")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		gfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := gfx.DefaultConfig()
	if *configPath != "" {
		loaded, err := gfx.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backendArg
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "texture":
			cfg.Texture = *texture
		case "headless":
			cfg.Headless = *headless
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	log.Println("game starting")
	win := window.NewOffscreen(cfg.Width, cfg.Height, window.WithTitle("gfxdemo"))
	defer win.Close()

	if needsHeadless(cfg, win) {
		log.Println("offscreen window has no native surface, using the noop device")
		cfg.Headless = true
	}

	ctx, err := gfx.InitGraphics(cfg.Kind(), win, gfx.WithConfig(cfg))
	if err != nil {
		log.Fatalf("init graphics: %v", err)
	}
	defer ctx.Close()

	hero, err := ctx.LoadTexture(cfg.Texture, filepath.Join("..", cfg.Texture))
	if err != nil {
		log.Fatalf("load texture: %v", err)
	}
	log.Println("hero texture loaded")

	rendered := run(ctx, win, hero, *frames)
	log.Printf("rendered %d frames", rendered)

	img, err := ctx.Snapshot()
	switch {
	case errors.Is(err, backend.ErrNotSupported):
		log.Printf("%s backend cannot read back frames, %s not written", ctx.Kind(), *output)
	case err != nil:
		log.Fatalf("snapshot: %v", err)
	default:
		if err := gfximage.SavePNG(*output, img); err != nil {
			log.Fatalf("save: %v", err)
		}
		log.Printf("last frame saved to %s (%dx%d)", *output, img.Rect.Dx(), img.Rect.Dy())
	}
}

// needsHeadless reports whether cfg asks the native backend to present to
// a window that has no platform surface.
func needsHeadless(cfg *gfx.Config, win backend.Window) bool {
	if cfg.Kind() != backend.KindNative || cfg.Headless {
		return false
	}
	_, handle := win.NativeHandle()
	return handle == 0
}

// run is the frame loop. It quits the window after maxFrames frames and
// returns the number rendered.
func run(ctx *gfx.Context, win *window.Offscreen, hero gfx.Handle, maxFrames int) int {
	n := 0
	for {
		events, running := win.PollMessages()
		for _, e := range events {
			if e.Type == window.EventResize {
				if err := ctx.Resize(e.Width, e.Height); err != nil {
					log.Printf("resize: %v", err)
				}
			}
		}
		if !running {
			return n
		}

		w, h := ctx.Size()
		ctx.BindBackbuffer(0, 0, float32(w), float32(h))
		ctx.ClearBackbuffer(1, 0, 0, 1)
		if err := ctx.DrawTexture(hero, 100, 100); err != nil {
			log.Printf("draw: %v", err)
		}
		if err := ctx.PresentBackbuffer(); err != nil {
			log.Printf("present: %v", err)
		}

		n++
		if n >= maxFrames {
			win.Quit()
		}
	}
}
