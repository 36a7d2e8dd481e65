package gfx

import (
	"fmt"

	"github.com/gogpu/gfx/backend"
)

// DrawTexture draws the texture behind tex as a sprite of its own pixel
// size centered at (x, y), in a camera space with the origin at the window
// center and y up.
//
// An unknown handle draws nothing and returns nil. Every call rebinds the
// object buffer, texture, sampler, program, input layout and quad, because
// the backend keeps whatever the previous draw left bound.
func (c *Context) DrawTexture(tex Handle, x, y float32) error {
	a := c.active()
	if a == nil {
		return ErrNoContext
	}
	t, ok := c.textures.Get(tex)
	if !ok {
		return nil
	}

	d := c.defaults
	object, ok1 := c.constantBuffers.Get(d.ObjectBuffer)
	smp, ok2 := c.samplers.Get(d.Sampler)
	prog, ok3 := c.programs.Get(d.Program)
	layout, ok4 := c.inputLayouts.Get(d.InputLayout)
	quad, ok5 := c.models.Get(d.Quad)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return fmt.Errorf("%w: default resources missing", ErrBootstrap)
	}

	world := SpriteWorld(x, y, float32(t.Width()), float32(t.Height()))
	if err := a.UpdateConstantBuffer(object, world.Bytes()); err != nil {
		c.log.Warn("gfx: draw failed", "texture", tex, "err", err)
		return err
	}
	a.SetConstantBuffer(backend.StageVertex, ObjectSlot, object)
	a.SetTexture(0, t)
	a.SetSampler(0, smp)
	a.SetProgram(prog)
	a.SetInputLayout(layout)
	a.SetModel(quad)

	if err := a.DrawIndexed(quad.IndexCount(), 0); err != nil {
		c.log.Warn("gfx: draw failed", "texture", tex, "err", err)
		return err
	}
	return nil
}
