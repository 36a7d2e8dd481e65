package backend

// State is the lifecycle position of an Adapter.
type State uint8

const (
	// StateUninitialized means no device exists.
	StateUninitialized State = iota
	// StateDeviceReady means the device and its command queue exist.
	StateDeviceReady
	// StateSwapchainBound means the swapchain exists but render targets do not.
	StateSwapchainBound
	// StateRenderTargetsBound means color and depth targets are bound and
	// the adapter can clear, draw and present.
	StateRenderTargetsBound
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateDeviceReady:
		return "DeviceReady"
	case StateSwapchainBound:
		return "SwapchainBound"
	case StateRenderTargetsBound:
		return "RenderTargetsBound"
	default:
		return "State(?)"
	}
}

// HasSwapchain reports whether Resize may be called in this state.
func (s State) HasSwapchain() bool {
	return s >= StateSwapchainBound
}

// CanDraw reports whether clear, draw and present are meaningful.
func (s State) CanDraw() bool {
	return s == StateRenderTargetsBound
}
