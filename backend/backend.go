package backend

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnknownKind is returned when a backend name or Kind is not recognized.
	ErrUnknownKind = errors.New("backend: unknown kind")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrAlreadyInitialized is returned when Init is called twice.
	ErrAlreadyInitialized = errors.New("backend: already initialized")

	// ErrDeviceCreation is returned when no adapter accepts device creation.
	ErrDeviceCreation = errors.New("backend: device creation failed")

	// ErrSwapchainCreation is returned when the swapchain cannot be bound to the window.
	ErrSwapchainCreation = errors.New("backend: swapchain creation failed")

	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = errors.New("backend: invalid dimensions")

	// ErrDeviceRemoved is matched by DeviceRemovedError.
	ErrDeviceRemoved = errors.New("backend: device removed")

	// ErrIncompleteBindings is returned by DrawIndexed when a program,
	// input layout or model is not bound.
	ErrIncompleteBindings = errors.New("backend: draw with incomplete bindings")

	// ErrForeignResource is returned when a resource created by another
	// adapter is passed in.
	ErrForeignResource = errors.New("backend: resource belongs to another adapter")

	// ErrInputLayoutMismatch is returned when vertex elements do not satisfy
	// the vertex shader inputs.
	ErrInputLayoutMismatch = errors.New("backend: input layout does not match vertex shader")

	// ErrNoCompiler is returned when a shader is compiled without a Compiler.
	ErrNoCompiler = errors.New("backend: no shader compiler configured")

	// ErrNotSupported is returned for operations a backend does not provide.
	ErrNotSupported = errors.New("backend: operation not supported")
)

// DeviceRemovedError reports a device-loss class present failure. The
// adapter stays usable; the caller decides whether to reinitialize.
type DeviceRemovedError struct {
	// Reason is the underlying failure reported by the device or window.
	Reason error
}

func (e *DeviceRemovedError) Error() string {
	if e.Reason == nil {
		return ErrDeviceRemoved.Error()
	}
	return fmt.Sprintf("%v: %v", ErrDeviceRemoved, e.Reason)
}

// Unwrap lets errors.Is match both ErrDeviceRemoved and the reason.
func (e *DeviceRemovedError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrDeviceRemoved}
	}
	return []error{ErrDeviceRemoved, e.Reason}
}

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota
	// StagePixel is the pixel (fragment) stage.
	StagePixel
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StagePixel:
		return "pixel"
	default:
		return "stage(?)"
	}
}

// Window is the slice of a native window an adapter needs: its size and the
// platform handles a swapchain is created against.
type Window interface {
	gpucontext.WindowProvider

	// NativeHandle returns the platform display and window handles.
	// Headless windows return zeros.
	NativeHandle() (display, window uintptr)
}

// Presenter is implemented by windows that accept CPU frames. The software
// backend hands every presented frame to it. An error is treated as loss of
// the presentation device.
type Presenter interface {
	PresentFrame(frame *image.NRGBA) error
}

// Compiler turns shader source text into backend bytecode.
type Compiler interface {
	Compile(source string, stage Stage) (*Bytecode, error)
}

// Bytecode is a compiled shader stage.
type Bytecode struct {
	Stage      Stage
	EntryPoint string
	SPIRV      []uint32
	// Inputs are the vertex stage @location inputs, sorted by location.
	// Empty for pixel shaders.
	Inputs []VertexInput
}

// VertexInput is one vertex shader input the input layout must feed.
type VertexInput struct {
	Location   uint32
	Components int
}

// Config carries adapter settings resolved by the gfx package.
type Config struct {
	// BufferCount is the swapchain length. Values outside 2..3 are clamped.
	BufferCount int

	// VSync selects FIFO presentation. The default is immediate.
	VSync bool

	// Compiler compiles shader source for CompileShader.
	Compiler Compiler

	// HALBackend selects the HAL variant for the native adapter.
	// BackendEmpty tries every registered GPU variant in order.
	HALBackend gputypes.Backend

	// Headless runs the native adapter on the noop HAL: the full state
	// machine without a GPU or a window surface.
	Headless bool
}

// SwapchainLength returns BufferCount clamped to double or triple buffering.
func (c Config) SwapchainLength() int {
	switch {
	case c.BufferCount <= 2:
		return 2
	case c.BufferCount >= 3:
		return 3
	default:
		return c.BufferCount
	}
}

// Viewport is a rectangle of the render target in pixels.
type Viewport struct {
	X, Y, Width, Height float32
}

// SamplerDescriptor configures texture sampling.
type SamplerDescriptor struct {
	AddressMode gputypes.AddressMode
	Filter      gputypes.FilterMode
}

// VertexElement is one attribute of an interleaved vertex.
type VertexElement struct {
	Location uint32
	Format   gputypes.VertexFormat
	Offset   uint64
}

// Shader is a compiled shader stage owned by an adapter.
type Shader interface {
	Stage() Stage
}

// Program pairs a vertex and a pixel shader.
type Program interface {
	Shaders() (vertex, pixel Shader)
}

// Sampler is a texture sampling state object.
type Sampler interface {
	Descriptor() SamplerDescriptor
}

// InputLayout describes the memory layout of one vertex.
type InputLayout interface {
	Stride() uint64
	Elements() []VertexElement
}

// Model is an immutable vertex and index buffer pair.
type Model interface {
	Stride() uint64
	IndexCount() int
}

// ConstantBuffer is a small uniform buffer.
type ConstantBuffer interface {
	Size() int
}

// Texture is sampled pixel storage plus its view.
type Texture interface {
	gpucontext.Texture
}

// Adapter is the capability set a backend implements. Adapters are not safe
// for concurrent use; every call happens on the thread owning the window.
type Adapter interface {
	// Kind returns the backend kind this adapter implements.
	Kind() Kind

	// State returns the current lifecycle state.
	State() State

	// Init brings up the device and swapchain for win and binds render
	// targets at the window size. On failure the adapter is left
	// Uninitialized.
	Init(win Window, cfg Config) error

	// Resize rebuilds the size dependent render targets.
	Resize(width, height int) error

	// BindBackbuffer rebinds color and depth targets and sets the viewport.
	BindBackbuffer(vp Viewport)

	// Clear fills color with c and depth with 1.0.
	Clear(c gputypes.Color)

	// Present shows the backbuffer. Device loss is reported as
	// *DeviceRemovedError.
	Present() error

	// Snapshot returns a copy of the most recently presented frame.
	Snapshot() (*image.NRGBA, error)

	// Close releases every resource and returns to Uninitialized.
	Close()

	CompileShader(source string, stage Stage) (Shader, error)
	CreateProgram(vs, ps Shader) (Program, error)
	CreateSampler(desc SamplerDescriptor) (Sampler, error)
	CreateInputLayout(vs Shader, elements []VertexElement) (InputLayout, error)
	CreateModel(vertices []float32, stride uint64, indices []uint16) (Model, error)
	CreateConstantBuffer(size int) (ConstantBuffer, error)
	CreateTexture(img *image.NRGBA) (Texture, error)

	UpdateConstantBuffer(cb ConstantBuffer, data []byte) error
	SetConstantBuffer(stage Stage, slot int, cb ConstantBuffer)
	SetTexture(slot int, tex Texture)
	SetSampler(slot int, s Sampler)
	SetProgram(p Program)
	SetInputLayout(l InputLayout)
	SetModel(m Model)

	// DrawIndexed draws count indices of the bound model as a triangle list.
	DrawIndexed(count, start int) error
}
