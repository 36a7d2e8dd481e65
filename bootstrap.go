package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
	"github.com/gogpu/gfx/internal/linear"
	"github.com/gogpu/gfx/internal/shader"
)

// Vertex constant buffer slots of the sprite vertex shader.
const (
	ObjectSlot = 0
	CameraSlot = 1
)

// QuadStride is the byte size of one sprite vertex: position xyz, uv.
const QuadStride = 5 * 4

// Defaults holds the handles InitGraphics creates. Every one of them
// resolves for the life of the context.
type Defaults struct {
	VertexShader Handle
	PixelShader  Handle
	Program      Handle
	Sampler      Handle
	InputLayout  Handle
	Quad         Handle
	ObjectBuffer Handle
	CameraBuffer Handle
}

// quadVertices is the unit quad centered on the origin. Each vertex is
// x, y, z, u, v with v growing downwards in the image.
var quadVertices = []float32{
	-0.5, -0.5, 0, 0, 1,
	-0.5, 0.5, 0, 0, 0,
	0.5, 0.5, 0, 1, 0,
	0.5, -0.5, 0, 1, 1,
}

// quadIndices wind clockwise with y up.
var quadIndices = []uint16{0, 1, 2, 0, 2, 3}

var spriteElements = []backend.VertexElement{
	{Location: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
	{Location: 1, Format: gputypes.VertexFormatFloat32x2, Offset: 12},
}

// bootstrap creates the sprite shaders, program, sampler, input layout,
// quad and constant buffers, uploads the camera and binds it.
func (c *Context) bootstrap() (Defaults, error) {
	var d Defaults
	a := c.adapter

	vs, err := a.CompileShader(shader.SpriteVertexSource(), backend.StageVertex)
	if err != nil {
		return d, fmt.Errorf("%w: vertex shader: %w", ErrBootstrap, err)
	}
	d.VertexShader = c.shaders.Store(vs)

	ps, err := a.CompileShader(shader.SpritePixelSource(), backend.StagePixel)
	if err != nil {
		return d, fmt.Errorf("%w: pixel shader: %w", ErrBootstrap, err)
	}
	d.PixelShader = c.shaders.Store(ps)

	prog, err := a.CreateProgram(vs, ps)
	if err != nil {
		return d, fmt.Errorf("%w: program: %w", ErrBootstrap, err)
	}
	d.Program = c.programs.Store(prog)

	smp, err := a.CreateSampler(backend.SamplerDescriptor{
		AddressMode: gputypes.AddressModeRepeat,
		Filter:      gputypes.FilterModeLinear,
	})
	if err != nil {
		return d, fmt.Errorf("%w: sampler: %w", ErrBootstrap, err)
	}
	d.Sampler = c.samplers.Store(smp)

	layout, err := a.CreateInputLayout(vs, spriteElements)
	if err != nil {
		return d, fmt.Errorf("%w: input layout: %w", ErrBootstrap, err)
	}
	d.InputLayout = c.inputLayouts.Store(layout)

	quad, err := a.CreateModel(quadVertices, QuadStride, quadIndices)
	if err != nil {
		return d, fmt.Errorf("%w: quad: %w", ErrBootstrap, err)
	}
	d.Quad = c.models.Store(quad)

	object, err := a.CreateConstantBuffer(linear.MatrixSize)
	if err != nil {
		return d, fmt.Errorf("%w: object buffer: %w", ErrBootstrap, err)
	}
	d.ObjectBuffer = c.constantBuffers.Store(object)

	camera, err := a.CreateConstantBuffer(2 * linear.MatrixSize)
	if err != nil {
		return d, fmt.Errorf("%w: camera buffer: %w", ErrBootstrap, err)
	}
	d.CameraBuffer = c.constantBuffers.Store(camera)

	c.defaults = d
	if err := c.uploadCamera(); err != nil {
		return d, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	c.log.Debug("gfx: default resources created",
		"program", d.Program, "sampler", d.Sampler, "quad", d.Quad)
	return d, nil
}

// uploadCamera writes an identity view and the projection for the current
// size into the camera buffer and binds it.
func (c *Context) uploadCamera() error {
	cb, ok := c.constantBuffers.Get(c.defaults.CameraBuffer)
	if !ok {
		return fmt.Errorf("gfx: camera buffer %d not found", c.defaults.CameraBuffer)
	}
	data := cameraData(Identity(), SpriteProjection(c.width, c.height))
	if err := c.adapter.UpdateConstantBuffer(cb, data); err != nil {
		return fmt.Errorf("gfx: upload camera: %w", err)
	}
	c.adapter.SetConstantBuffer(backend.StageVertex, CameraSlot, cb)
	return nil
}
