package software

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
)

// MaxSlots is the number of constant buffer, texture and sampler slots per
// stage.
const MaxSlots = 8

type shader struct {
	owner *Adapter
	code  *backend.Bytecode
}

func (s *shader) Stage() backend.Stage { return s.code.Stage }

// Bytecode returns the compiled stage.
func (s *shader) Bytecode() *backend.Bytecode { return s.code }

type program struct {
	owner  *Adapter
	vs, ps *shader
}

func (p *program) Shaders() (backend.Shader, backend.Shader) { return p.vs, p.ps }

type sampler struct {
	owner *Adapter
	desc  backend.SamplerDescriptor
}

func (s *sampler) Descriptor() backend.SamplerDescriptor { return s.desc }

type inputLayout struct {
	owner    *Adapter
	elements []backend.VertexElement
	stride   uint64
	// position and uv are the elements feeding locations 0 and 1.
	position backend.VertexElement
	uv       backend.VertexElement
}

func (l *inputLayout) Stride() uint64                    { return l.stride }
func (l *inputLayout) Elements() []backend.VertexElement { return l.elements }

type model struct {
	owner    *Adapter
	vertices []float32
	stride   uint64
	indices  []uint16
}

func (m *model) Stride() uint64   { return m.stride }
func (m *model) IndexCount() int  { return len(m.indices) }
func (m *model) vertexCount() int { return len(m.vertices) * 4 / int(m.stride) }

type constantBuffer struct {
	owner *Adapter
	data  []byte
}

func (c *constantBuffer) Size() int { return len(c.data) }

type texture struct {
	owner *Adapter
	img   *image.NRGBA
}

func (t *texture) Width() int  { return t.img.Rect.Dx() }
func (t *texture) Height() int { return t.img.Rect.Dy() }

// CompileShader compiles source with the configured compiler. The software
// rasterizer executes the sprite stages natively; compilation validates
// the source and records the vertex inputs for input layout matching.
func (a *Adapter) CompileShader(source string, stage backend.Stage) (backend.Shader, error) {
	if a.state == backend.StateUninitialized {
		return nil, backend.ErrNotInitialized
	}
	if a.cfg.Compiler == nil {
		return nil, backend.ErrNoCompiler
	}
	code, err := a.cfg.Compiler.Compile(source, stage)
	if err != nil {
		return nil, fmt.Errorf("software: compile %s shader: %w", stage, err)
	}
	return &shader{owner: a, code: code}, nil
}

// CreateProgram pairs a vertex and a pixel shader.
func (a *Adapter) CreateProgram(vs, ps backend.Shader) (backend.Program, error) {
	v, ok := vs.(*shader)
	if !ok || v.owner != a {
		return nil, fmt.Errorf("software: program vertex shader: %w", backend.ErrForeignResource)
	}
	p, ok := ps.(*shader)
	if !ok || p.owner != a {
		return nil, fmt.Errorf("software: program pixel shader: %w", backend.ErrForeignResource)
	}
	if v.Stage() != backend.StageVertex || p.Stage() != backend.StagePixel {
		return nil, fmt.Errorf("%w: got %s and %s", ErrStageMismatch, v.Stage(), p.Stage())
	}
	return &program{owner: a, vs: v, ps: p}, nil
}

// CreateSampler creates a sampler state object.
func (a *Adapter) CreateSampler(desc backend.SamplerDescriptor) (backend.Sampler, error) {
	switch desc.AddressMode {
	case gputypes.AddressModeRepeat, gputypes.AddressModeClampToEdge, gputypes.AddressModeMirrorRepeat:
	default:
		return nil, fmt.Errorf("%w: address mode %v", ErrInvalidSampler, desc.AddressMode)
	}
	switch desc.Filter {
	case gputypes.FilterModeNearest, gputypes.FilterModeLinear:
	default:
		return nil, fmt.Errorf("%w: filter %v", ErrInvalidSampler, desc.Filter)
	}
	return &sampler{owner: a, desc: desc}, nil
}

// CreateInputLayout validates elements against the vertex shader inputs.
func (a *Adapter) CreateInputLayout(vs backend.Shader, elements []backend.VertexElement) (backend.InputLayout, error) {
	v, ok := vs.(*shader)
	if !ok || v.owner != a {
		return nil, fmt.Errorf("software: input layout shader: %w", backend.ErrForeignResource)
	}
	stride := backend.LayoutStride(elements)
	if err := backend.MatchInputLayout(v.code, elements, stride); err != nil {
		return nil, err
	}

	l := &inputLayout{owner: a, elements: backend.SortedElements(elements), stride: stride}
	var havePos, haveUV bool
	for _, e := range l.elements {
		switch e.Location {
		case 0:
			l.position, havePos = e, true
		case 1:
			l.uv, haveUV = e, true
		}
	}
	if !havePos || !haveUV {
		return nil, fmt.Errorf("%w: software rasterizer needs position at location 0 and uv at location 1",
			backend.ErrInputLayoutMismatch)
	}
	return l, nil
}

// CreateModel copies vertices and indices into an immutable model.
// stride is in bytes.
func (a *Adapter) CreateModel(vertices []float32, stride uint64, indices []uint16) (backend.Model, error) {
	if stride == 0 || stride%4 != 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrInvalidModel, stride)
	}
	if len(vertices) == 0 || uint64(len(vertices)*4)%stride != 0 {
		return nil, fmt.Errorf("%w: %d floats do not divide into stride %d", ErrInvalidModel, len(vertices), stride)
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidModel, len(indices))
	}
	m := &model{
		owner:    a,
		vertices: append([]float32(nil), vertices...),
		stride:   stride,
		indices:  append([]uint16(nil), indices...),
	}
	n := m.vertexCount()
	for _, idx := range indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("%w: index %d out of %d vertices", ErrInvalidModel, idx, n)
		}
	}
	return m, nil
}

// CreateConstantBuffer allocates a zeroed buffer. size must be a positive
// multiple of 16.
func (a *Adapter) CreateConstantBuffer(size int) (backend.ConstantBuffer, error) {
	if size <= 0 || size%16 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBufferSize, size)
	}
	return &constantBuffer{owner: a, data: make([]byte, size)}, nil
}

// CreateTexture copies img into a new texture.
func (a *Adapter) CreateTexture(img *image.NRGBA) (backend.Texture, error) {
	if img == nil || img.Rect.Empty() {
		return nil, ErrEmptyTexture
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	own := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(own.Pix[y*own.Stride:], img.Pix[off:off+w*4])
	}
	return &texture{owner: a, img: own}, nil
}

// UpdateConstantBuffer replaces the leading bytes of cb with data.
func (a *Adapter) UpdateConstantBuffer(cb backend.ConstantBuffer, data []byte) error {
	c, ok := cb.(*constantBuffer)
	if !ok || c.owner != a {
		return fmt.Errorf("software: update constant buffer: %w", backend.ErrForeignResource)
	}
	if len(data) > len(c.data) {
		return fmt.Errorf("%w: %d bytes into %d byte buffer", ErrInvalidBufferSize, len(data), len(c.data))
	}
	copy(c.data, data)
	return nil
}

// SetConstantBuffer binds cb to slot of stage. nil unbinds.
func (a *Adapter) SetConstantBuffer(stage backend.Stage, slot int, cb backend.ConstantBuffer) {
	if slot < 0 || slot >= MaxSlots {
		a.log.Debug("constant buffer slot out of range", "slot", slot)
		return
	}
	c, _ := cb.(*constantBuffer)
	if c != nil && c.owner != a {
		a.log.Warn("ignoring foreign constant buffer", "slot", slot)
		c = nil
	}
	if stage == backend.StagePixel {
		a.bound.psCB[slot] = c
		return
	}
	a.bound.vsCB[slot] = c
}

// SetTexture binds tex to the pixel stage texture slot. nil unbinds.
func (a *Adapter) SetTexture(slot int, tex backend.Texture) {
	if slot < 0 || slot >= MaxSlots {
		a.log.Debug("texture slot out of range", "slot", slot)
		return
	}
	t, _ := tex.(*texture)
	if t != nil && t.owner != a {
		a.log.Warn("ignoring foreign texture", "slot", slot)
		t = nil
	}
	a.bound.textures[slot] = t
}

// SetSampler binds s to the pixel stage sampler slot. nil restores the
// default point sampler.
func (a *Adapter) SetSampler(slot int, s backend.Sampler) {
	if slot < 0 || slot >= MaxSlots {
		a.log.Debug("sampler slot out of range", "slot", slot)
		return
	}
	smp, _ := s.(*sampler)
	if smp != nil && smp.owner != a {
		a.log.Warn("ignoring foreign sampler", "slot", slot)
		smp = nil
	}
	if smp == nil {
		smp = a.pointSampler
	}
	a.bound.samplers[slot] = smp
}

// SetProgram binds the vertex and pixel shaders.
func (a *Adapter) SetProgram(p backend.Program) {
	prog, _ := p.(*program)
	if prog != nil && prog.owner != a {
		prog = nil
	}
	a.bound.program = prog
}

// SetInputLayout binds the vertex input layout.
func (a *Adapter) SetInputLayout(l backend.InputLayout) {
	layout, _ := l.(*inputLayout)
	if layout != nil && layout.owner != a {
		layout = nil
	}
	a.bound.layout = layout
}

// SetModel binds the vertex and index buffers.
func (a *Adapter) SetModel(m backend.Model) {
	mdl, _ := m.(*model)
	if mdl != nil && mdl.owner != a {
		mdl = nil
	}
	a.bound.model = mdl
}
