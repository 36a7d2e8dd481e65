// Package backend defines the capability set every graphics backend adapter
// implements, and the table adapters register themselves into.
//
// # Backend Registration
//
// Adapters register a factory from an init function, keyed by Kind:
//
//	import _ "github.com/gogpu/gfx/backend/software"
//
// A factory returns a fresh, uninitialized Adapter. Each gfx.Context owns the
// adapter it was given; adapters are never shared between contexts.
//
// # Adapter Lifecycle
//
// An adapter moves through four states:
//
//	Uninitialized -> DeviceReady -> SwapchainBound -> RenderTargetsBound
//
// Init drives it all the way to RenderTargetsBound. Resize tears down and
// rebuilds the size dependent targets and may be called any number of times
// after the swapchain exists. Close returns the adapter to Uninitialized.
//
// # Available Backends
//
//   - "software": CPU reference rasterizer (always available, headless)
//   - "native": GPU adapter over gogpu/wgpu HAL
package backend
