package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Bind group indices used by the sprite shaders.
const (
	objectGroup = 0 // object_data, camera_data
	spriteGroup = 1 // sprite_texture, sprite_sampler
)

// layouts are the bind group and pipeline layouts shared by every program.
type layouts struct {
	object   hal.BindGroupLayout
	sprite   hal.BindGroupLayout
	pipeline hal.PipelineLayout
}

type pipelineKey struct {
	program *program
	layout  *inputLayout
	stride  uint64
}

type cameraKey struct {
	object, camera *constantBuffer
}

type spriteKey struct {
	texture *texture
	sampler *sampler
}

func (a *Adapter) createLayouts() (*layouts, error) {
	object, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gfx-object-layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create object bind group layout: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyBindGroupLayout(object) })

	sprite, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gfx-sprite-layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Sampler: &gputypes.SamplerBindingLayout{
				Type: gputypes.SamplerBindingTypeFiltering,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create sprite bind group layout: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyBindGroupLayout(sprite) })

	pl, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gfx-pipeline-layout",
		BindGroupLayouts: []hal.BindGroupLayout{object, sprite},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create pipeline layout: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyPipelineLayout(pl) })

	return &layouts{object: object, sprite: sprite, pipeline: pl}, nil
}

// pipeline returns the cached render pipeline for the bound program,
// input layout and model stride, creating it on first use.
func (a *Adapter) pipeline() (hal.RenderPipeline, error) {
	b := &a.bound
	key := pipelineKey{program: b.program, layout: b.layout, stride: b.model.stride}
	if p, ok := a.pipelines[key]; ok {
		return p, nil
	}

	blend := gputypes.BlendStateAlpha()
	p, err := a.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "gfx-sprite-pipeline",
		Layout: a.layouts.pipeline,
		Vertex: hal.VertexState{
			Module:     b.program.vs.module,
			EntryPoint: b.program.vs.code.EntryPoint,
			Buffers:    []gputypes.VertexBufferLayout{b.layout.vertexBufferLayout(b.model.stride)},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCW,
			CullMode:  gputypes.CullModeBack,
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLessEqual,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     b.program.ps.module,
			EntryPoint: b.program.ps.code.EntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    surfaceFormat,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create render pipeline: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyRenderPipeline(p) })
	a.pipelines[key] = p
	a.log.Debug("render pipeline created", "stride", key.stride, "pipelines", len(a.pipelines))
	return p, nil
}

// objectBindGroup returns the bind group for vertex constant slots 0 and 1.
func (a *Adapter) objectBindGroup() (hal.BindGroup, error) {
	key := cameraKey{object: a.bound.vsCB[0], camera: a.bound.vsCB[1]}
	if g, ok := a.objectGroups[key]; ok {
		return g, nil
	}
	g, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gfx-object-group",
		Layout: a.layouts.object,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: key.object.buf.NativeHandle(), Size: uint64(key.object.size)}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: key.camera.buf.NativeHandle(), Size: uint64(key.camera.size)}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create object bind group: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyBindGroup(g) })
	a.objectGroups[key] = g
	return g, nil
}

// spriteBindGroup returns the bind group for texture and sampler slot 0.
// Empty slots fall back to the transparent texture and the point sampler.
func (a *Adapter) spriteBindGroup() (hal.BindGroup, error) {
	key := spriteKey{texture: a.bound.textures[0], sampler: a.bound.samplers[0]}
	if key.texture == nil {
		key.texture = a.blank
	}
	if key.sampler == nil {
		key.sampler = a.pointSampler
	}
	if g, ok := a.spriteGroups[key]; ok {
		return g, nil
	}
	g, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gfx-sprite-group",
		Layout: a.layouts.sprite,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: key.texture.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: key.sampler.hal.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create sprite bind group: %w", err)
	}
	a.own(func(d hal.Device) { d.DestroyBindGroup(g) })
	a.spriteGroups[key] = g
	return g, nil
}
