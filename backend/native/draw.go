package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/backend"
)

// pass is an open render pass and the encoder recording it.
type pass struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
}

// beginPass starts a render pass on the back buffer and depth target.
// LoadOpClear clears color to c and depth to 1.0; LoadOpLoad keeps both.
func (a *Adapter) beginPass(label string, f *frame, load gputypes.LoadOp, c gputypes.Color) (*pass, error) {
	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       f.view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            a.depthView,
			DepthLoadOp:     load,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	return &pass{encoder: enc, pass: rp}, nil
}

// submit finishes enc and queues it. The command buffer is freed once the
// GPU reports its submission complete.
func (a *Adapter) submit(enc hal.CommandEncoder) error {
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	idx, err := a.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		a.device.FreeCommandBuffer(cmd)
		if errors.Is(err, hal.ErrDeviceLost) {
			return &backend.DeviceRemovedError{Reason: err}
		}
		return fmt.Errorf("native: submit: %w", err)
	}
	a.pending = append(a.pending, inflight{index: idx, cmd: cmd})
	a.stats.Submits++
	return nil
}

// recycle frees command buffers the GPU has finished with.
func (a *Adapter) recycle() {
	done := a.queue.PollCompleted()
	keep := a.pending[:0]
	for _, p := range a.pending {
		if p.index <= done {
			a.device.FreeCommandBuffer(p.cmd)
			continue
		}
		keep = append(keep, p)
	}
	a.pending = keep
}

func (a *Adapter) checkBindings() error {
	b := &a.bound
	var missing string
	switch {
	case !a.state.CanDraw() || a.depthView == nil:
		missing = "render target"
	case b.program == nil:
		missing = "program"
	case b.layout == nil:
		missing = "input layout"
	case b.model == nil:
		missing = "model"
	case b.vsCB[0] == nil:
		missing = "object constant buffer"
	case b.vsCB[1] == nil:
		missing = "camera constant buffer"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", backend.ErrIncompleteBindings, missing)
}

// DrawIndexed draws count indices of the bound model starting at start.
func (a *Adapter) DrawIndexed(count, start int) error {
	if a.state == backend.StateUninitialized {
		return backend.ErrNotInitialized
	}
	if err := a.checkBindings(); err != nil {
		return err
	}
	b := &a.bound
	if b.layout.stride > b.model.stride {
		return fmt.Errorf("%w: layout %d, model %d", ErrStrideMismatch, b.layout.stride, b.model.stride)
	}
	if count < 0 || start < 0 || start+count > b.model.indexCount {
		return fmt.Errorf("%w: indices [%d, %d) of %d", ErrInvalidModel, start, start+count, b.model.indexCount)
	}

	pipe, err := a.pipeline()
	if err != nil {
		return err
	}
	objGroup, err := a.objectBindGroup()
	if err != nil {
		return err
	}
	texGroup, err := a.spriteBindGroup()
	if err != nil {
		return err
	}
	f, err := a.acquire()
	if err != nil {
		return err
	}

	p, err := a.beginPass("gfx-draw", f, gputypes.LoadOpLoad, gputypes.Color{})
	if err != nil {
		return err
	}
	vp := a.viewport
	p.pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, 0, 1)
	p.pass.SetPipeline(pipe)
	p.pass.SetBindGroup(objectGroup, objGroup, nil)
	p.pass.SetBindGroup(spriteGroup, texGroup, nil)
	p.pass.SetVertexBuffer(0, b.model.vertices, 0)
	p.pass.SetIndexBuffer(b.model.indices, gputypes.IndexFormatUint16, 0)
	p.pass.DrawIndexed(uint32(count), 1, uint32(start), 0, 0)
	p.pass.End()

	if err := a.submit(p.encoder); err != nil {
		return err
	}
	a.stats.Draws++
	return nil
}
