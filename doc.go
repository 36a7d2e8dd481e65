// Package gfx is a small sprite renderer over interchangeable graphics
// backends.
//
// # Overview
//
// A Context owns one backend adapter and hands out small integer handles
// for the resources created through it. Drawing is immediate mode: bind
// the back buffer, clear it, draw textured quads and present.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gfx"
//	    "github.com/gogpu/gfx/backend"
//	    "github.com/gogpu/gfx/window"
//	)
//
//	win := window.NewOffscreen(800, 600)
//	ctx, err := gfx.InitGraphics(backend.KindSoftware, win)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	hero := ctx.CreateTextureFromFile("sample_assets/hero.png")
//	for {
//	    if _, running := win.PollMessages(); !running {
//	        break
//	    }
//	    ctx.BindBackbuffer(0, 0, 800, 600)
//	    ctx.ClearBackbuffer(1, 0, 0, 1)
//	    ctx.DrawTexture(hero, 100, 100)
//	    ctx.PresentBackbuffer()
//	}
//
// # Backends
//
// Two backends are compiled in and selected per context by backend.Kind:
//   - backend.KindSoftware: a CPU rasterizer presenting to any window that
//     implements backend.Presenter
//   - backend.KindNative: gogpu/wgpu HAL (Vulkan, Metal, DX12, GLES)
//
// Operations on a Context dispatch to its adapter only. A nil or closed
// Context, or one whose backend has been unregistered, ignores every call.
//
// # Coordinate System
//
// The camera is a left-handed orthographic projection the size of the
// window:
//   - Origin (0,0) at the window center
//   - X increases right
//   - Y increases up
//
// DrawTexture centers the sprite on (x, y) at depth SpriteDepth and sizes
// it to the texture's pixel dimensions.
//
// # Handles
//
// Handles start at 1 and are never reused. InvalidHandle (0) never
// resolves; drawing it is a no-op.
package gfx

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
