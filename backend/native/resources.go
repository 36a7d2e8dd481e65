package native

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/backend"
)

// MaxSlots is the number of constant buffer, texture and sampler slots per
// stage.
const MaxSlots = 8

// destroyer releases one HAL object.
type destroyer func(hal.Device)

func (a *Adapter) own(d destroyer) { a.owned = append(a.owned, d) }

// destroyOwned releases HAL objects in reverse creation order.
func (a *Adapter) destroyOwned() {
	for i := len(a.owned) - 1; i >= 0; i-- {
		a.owned[i](a.device)
	}
	a.owned = nil
	a.layouts = nil
	a.pipelines = nil
	a.objectGroups = nil
	a.spriteGroups = nil
	a.pointSampler = nil
	a.blank = nil
}

type shader struct {
	owner  *Adapter
	code   *backend.Bytecode
	module hal.ShaderModule
}

func (s *shader) Stage() backend.Stage { return s.code.Stage }

type program struct {
	owner  *Adapter
	vs, ps *shader
}

func (p *program) Shaders() (backend.Shader, backend.Shader) { return p.vs, p.ps }

type sampler struct {
	owner *Adapter
	desc  backend.SamplerDescriptor
	hal   hal.Sampler
}

func (s *sampler) Descriptor() backend.SamplerDescriptor { return s.desc }

type inputLayout struct {
	owner    *Adapter
	elements []backend.VertexElement
	stride   uint64
}

func (l *inputLayout) Stride() uint64                    { return l.stride }
func (l *inputLayout) Elements() []backend.VertexElement { return l.elements }

// vertexBufferLayout describes l for a pipeline reading vertices of stride bytes.
func (l *inputLayout) vertexBufferLayout(stride uint64) gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(l.elements))
	for i, e := range l.elements {
		attrs[i] = gputypes.VertexAttribute{Format: e.Format, Offset: e.Offset, ShaderLocation: e.Location}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: stride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

type model struct {
	owner      *Adapter
	stride     uint64
	indexCount int
	vertices   hal.Buffer
	indices    hal.Buffer
}

func (m *model) Stride() uint64  { return m.stride }
func (m *model) IndexCount() int { return m.indexCount }

type constantBuffer struct {
	owner *Adapter
	size  int
	buf   hal.Buffer
}

func (c *constantBuffer) Size() int { return c.size }

type texture struct {
	owner         *Adapter
	width, height int
	tex           hal.Texture
	view          hal.TextureView
}

func (t *texture) Width() int  { return t.width }
func (t *texture) Height() int { return t.height }

// bindings is the pipeline state set by the Set* methods.
type bindings struct {
	vsCB     [MaxSlots]*constantBuffer
	psCB     [MaxSlots]*constantBuffer
	textures [MaxSlots]*texture
	samplers [MaxSlots]*sampler
	program  *program
	layout   *inputLayout
	model    *model
}

// createDefaults creates the bind group layouts, the default point
// sampler and the transparent texture bound to empty slots.
func (a *Adapter) createDefaults() error {
	a.pipelines = make(map[pipelineKey]hal.RenderPipeline)
	a.objectGroups = make(map[cameraKey]hal.BindGroup)
	a.spriteGroups = make(map[spriteKey]hal.BindGroup)

	l, err := a.createLayouts()
	if err != nil {
		return err
	}
	a.layouts = l

	s, err := a.CreateSampler(backend.SamplerDescriptor{
		AddressMode: gputypes.AddressModeClampToEdge,
		Filter:      gputypes.FilterModeNearest,
	})
	if err != nil {
		return err
	}
	a.pointSampler = s.(*sampler)

	t, err := a.CreateTexture(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	if err != nil {
		return err
	}
	a.blank = t.(*texture)
	return nil
}

// CompileShader compiles source to SPIR-V and creates a shader module.
func (a *Adapter) CompileShader(source string, stage backend.Stage) (backend.Shader, error) {
	if a.device == nil {
		return nil, backend.ErrNotInitialized
	}
	if a.cfg.Compiler == nil {
		return nil, backend.ErrNoCompiler
	}
	code, err := a.cfg.Compiler.Compile(source, stage)
	if err != nil {
		return nil, fmt.Errorf("native: compile %s shader: %w", stage, err)
	}
	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("gfx-%s-%s", stage, code.EntryPoint),
		Source: hal.ShaderSource{SPIRV: code.SPIRV},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create %s shader module: %w", stage, err)
	}
	a.own(func(d hal.Device) { d.DestroyShaderModule(module) })
	return &shader{owner: a, code: code, module: module}, nil
}

// CreateProgram pairs a vertex and a pixel shader. Pipelines are built
// lazily per input layout at draw time.
func (a *Adapter) CreateProgram(vs, ps backend.Shader) (backend.Program, error) {
	v, ok := vs.(*shader)
	if !ok || v.owner != a {
		return nil, fmt.Errorf("native: program vertex shader: %w", backend.ErrForeignResource)
	}
	p, ok := ps.(*shader)
	if !ok || p.owner != a {
		return nil, fmt.Errorf("native: program pixel shader: %w", backend.ErrForeignResource)
	}
	if v.Stage() != backend.StageVertex || p.Stage() != backend.StagePixel {
		return nil, fmt.Errorf("%w: got %s and %s", ErrStageMismatch, v.Stage(), p.Stage())
	}
	return &program{owner: a, vs: v, ps: p}, nil
}

// CreateSampler creates a sampler with the same address mode on every axis.
func (a *Adapter) CreateSampler(desc backend.SamplerDescriptor) (backend.Sampler, error) {
	if a.device == nil {
		return nil, backend.ErrNotInitialized
	}
	s, err := a.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "gfx-sampler",
		AddressModeU: desc.AddressMode,
		AddressModeV: desc.AddressMode,
		AddressModeW: desc.AddressMode,
		MagFilter:    desc.Filter,
		MinFilter:    desc.Filter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create sampler: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroySampler(s) })
	return &sampler{owner: a, desc: desc, hal: s}, nil
}

// CreateInputLayout validates elements against the vertex shader inputs.
func (a *Adapter) CreateInputLayout(vs backend.Shader, elements []backend.VertexElement) (backend.InputLayout, error) {
	v, ok := vs.(*shader)
	if !ok || v.owner != a {
		return nil, fmt.Errorf("native: input layout shader: %w", backend.ErrForeignResource)
	}
	stride := backend.LayoutStride(elements)
	if err := backend.MatchInputLayout(v.code, elements, stride); err != nil {
		return nil, err
	}
	return &inputLayout{owner: a, elements: backend.SortedElements(elements), stride: stride}, nil
}

// CreateModel uploads vertices and indices into GPU buffers. stride is in
// bytes.
func (a *Adapter) CreateModel(vertices []float32, stride uint64, indices []uint16) (backend.Model, error) {
	if a.device == nil {
		return nil, backend.ErrNotInitialized
	}
	if stride == 0 || stride%4 != 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrInvalidModel, stride)
	}
	if len(vertices) == 0 || uint64(len(vertices)*4)%stride != 0 {
		return nil, fmt.Errorf("%w: %d floats do not divide into stride %d", ErrInvalidModel, len(vertices), stride)
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidModel, len(indices))
	}
	n := uint64(len(vertices)*4) / stride
	for _, idx := range indices {
		if uint64(idx) >= n {
			return nil, fmt.Errorf("%w: index %d out of %d vertices", ErrInvalidModel, idx, n)
		}
	}

	vdata := make([]byte, 0, len(vertices)*4)
	for _, f := range vertices {
		vdata = binary.LittleEndian.AppendUint32(vdata, math.Float32bits(f))
	}
	// Index buffer writes must be 4-byte aligned.
	idata := make([]byte, 0, (len(indices)*2+3)&^3)
	for _, i := range indices {
		idata = binary.LittleEndian.AppendUint16(idata, i)
	}
	for len(idata)%4 != 0 {
		idata = append(idata, 0)
	}

	vbuf, err := a.uploadBuffer("gfx-vertices", gputypes.BufferUsageVertex, vdata)
	if err != nil {
		return nil, err
	}
	ibuf, err := a.uploadBuffer("gfx-indices", gputypes.BufferUsageIndex, idata)
	if err != nil {
		return nil, err
	}
	return &model{owner: a, stride: stride, indexCount: len(indices), vertices: vbuf, indices: ibuf}, nil
}

func (a *Adapter) uploadBuffer(label string, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create %s buffer: %w", label, err)
	}
	a.own(func(d hal.Device) { d.DestroyBuffer(buf) })
	if err := a.queue.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("native: upload %s: %w", label, err)
	}
	return buf, nil
}

// CreateConstantBuffer allocates a zeroed uniform buffer. size must be a
// positive multiple of 16.
func (a *Adapter) CreateConstantBuffer(size int) (backend.ConstantBuffer, error) {
	if a.device == nil {
		return nil, backend.ErrNotInitialized
	}
	if size <= 0 || size%16 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBufferSize, size)
	}
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gfx-constants",
		Size:  uint64(size),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create constant buffer: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyBuffer(buf) })
	return &constantBuffer{owner: a, size: size, buf: buf}, nil
}

// CreateTexture uploads img into a sampled RGBA8 texture.
func (a *Adapter) CreateTexture(img *image.NRGBA) (backend.Texture, error) {
	if a.device == nil {
		return nil, backend.ErrNotInitialized
	}
	if img == nil || img.Rect.Empty() {
		return nil, ErrEmptyTexture
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	size := hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}
	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "gfx-texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyTexture(tex) })

	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(pix[y*w*4:], img.Pix[off:off+w*4])
	}
	err = a.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		pix,
		&hal.ImageDataLayout{BytesPerRow: uint32(w * 4), RowsPerImage: uint32(h)},
		&size,
	)
	if err != nil {
		return nil, fmt.Errorf("native: upload texture: %w", err)
	}

	view, err := a.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "gfx-texture-view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture view: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyTextureView(view) })
	return &texture{owner: a, width: w, height: h, tex: tex, view: view}, nil
}

// UpdateConstantBuffer writes data at the start of cb.
func (a *Adapter) UpdateConstantBuffer(cb backend.ConstantBuffer, data []byte) error {
	c, ok := cb.(*constantBuffer)
	if !ok || c.owner != a {
		return fmt.Errorf("native: update constant buffer: %w", backend.ErrForeignResource)
	}
	if len(data) > c.size {
		return fmt.Errorf("%w: %d bytes into %d byte buffer", ErrInvalidBufferSize, len(data), c.size)
	}
	if err := a.queue.WriteBuffer(c.buf, 0, data); err != nil {
		return fmt.Errorf("native: write constant buffer: %w", err)
	}
	return nil
}

// SetConstantBuffer binds cb to slot of stage. nil unbinds.
func (a *Adapter) SetConstantBuffer(stage backend.Stage, slot int, cb backend.ConstantBuffer) {
	if slot < 0 || slot >= MaxSlots {
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
		return
	}
	smp, _ := s.(*sampler)
	if smp != nil && smp.owner != a {
		a.log.Warn("ignoring foreign sampler", "slot", slot)
		smp = nil
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
