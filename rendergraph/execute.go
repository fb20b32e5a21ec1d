package rendergraph

import (
	"fmt"

	"github.com/fulcrumgfx/core/hal"
	"github.com/gogpu/gputypes"
)

// ExecuteContext is handed to each pass's Execute callback. It resolves
// handles to real hal resources and exposes the single command encoder
// the whole graph replays into — the graph never submits or waits on
// fences itself, that's framesync's and the queue's job.
type ExecuteContext struct {
	graph   *Graph
	encoder hal.CommandEncoder
}

// Encoder returns the command encoder passes should record into.
func (c *ExecuteContext) Encoder() hal.CommandEncoder { return c.encoder }

// Texture resolves a texture handle to its backing hal.Texture. Valid
// only during Execute; transient textures don't exist before Compile runs.
func (c *ExecuteContext) Texture(h RGTextureHandle) hal.Texture {
	if h.index < 0 || h.index >= len(c.graph.textures) {
		return nil
	}
	return c.graph.textures[h.index].texture
}

// View resolves a texture handle to a whole-resource hal.TextureView.
// Imported textures return the view the caller supplied to ImportTexture;
// transient textures get a view created (and cached for the rest of this
// plan's lifetime) the first time a pass asks for one. ReleaseTransientResources
// destroys it along with the backing texture.
func (c *ExecuteContext) View(h RGTextureHandle) hal.TextureView {
	if h.index < 0 || h.index >= len(c.graph.textures) {
		return nil
	}
	res := c.graph.textures[h.index]
	if res.view != nil {
		return res.view
	}
	if res.texture == nil {
		return nil
	}
	view, err := c.graph.device.CreateTextureView(res.texture, &hal.TextureViewDescriptor{})
	if err != nil {
		return nil
	}
	res.view = view
	return view
}

// Buffer resolves a buffer handle to its backing hal.Buffer.
func (c *ExecuteContext) Buffer(h RGBufferHandle) hal.Buffer {
	if h.index < 0 || h.index >= len(c.graph.buffers) {
		return nil
	}
	return c.graph.buffers[h.index].buffer
}

// Execute replays the compiled plan into encoder: for each surviving pass
// in compiled order, it issues that pass's barriers, then invokes its
// Execute callback. A trailing epilogue barrier batch runs after the last
// pass to leave exported resources in their declared export state (e.g.
// transitioning the swapchain image to Present).
func (p *Plan) Execute(encoder hal.CommandEncoder) error {
	if encoder == nil {
		return fmt.Errorf("rendergraph: execute: nil command encoder")
	}
	ctx := &ExecuteContext{graph: p.graph, encoder: encoder}

	for _, passIdx := range p.ordered {
		pass := p.graph.passes[passIdx]
		if ops, ok := p.barriers[passIdx]; ok {
			p.issueBarriers(encoder, ops)
		}
		if pass.execute != nil {
			pass.execute(ctx)
		}
	}

	if len(p.epilogue) > 0 {
		p.issueBarriers(encoder, p.epilogue)
	}
	return nil
}

func (p *Plan) issueBarriers(encoder hal.CommandEncoder, ops []BarrierOp) {
	var bufferBarriers []hal.BufferBarrier
	var textureBarriers []hal.TextureBarrier

	for _, op := range ops {
		if op.IsTexture {
			res := p.graph.textures[op.TextureIndex]
			if res.texture == nil {
				continue
			}
			rng := hal.TextureRange{Aspect: gputypes.TextureAspectAll}
			if op.Mip != AllMips {
				rng.BaseMipLevel = op.Mip
				rng.MipLevelCount = 1
			}
			textureBarriers = append(textureBarriers, hal.TextureBarrier{
				Texture: res.texture,
				Range:   rng,
				Usage: hal.TextureUsageTransition{
					OldUsage: op.From.toTextureUsage(),
					NewUsage: op.To.toTextureUsage(),
				},
			})
		} else {
			res := p.graph.buffers[op.BufferIndex]
			if res.buffer == nil {
				continue
			}
			bufferBarriers = append(bufferBarriers, hal.BufferBarrier{
				Buffer: res.buffer,
				Usage: hal.BufferUsageTransition{
					OldUsage: op.From.toBufferUsage(),
					NewUsage: op.To.toBufferUsage(),
				},
			})
		}
	}

	bufferBarriers, textureBarriers = hal.MergeBarriers(bufferBarriers, textureBarriers)
	if len(bufferBarriers) > 0 {
		encoder.TransitionBuffers(bufferBarriers)
	}
	if len(textureBarriers) > 0 {
		encoder.TransitionTextures(textureBarriers)
	}
}

// ReleaseTransientResources destroys every transient texture and buffer
// this plan created, but leaves cached transient heaps alone — those are
// reused by Graph.Clear/Compile across frames. Call this once the plan's
// command buffer has finished executing on the GPU (after framesync's
// WaitForFrame), never before.
func (p *Plan) ReleaseTransientResources() {
	for _, t := range p.graph.textures {
		if t.kind == kindTransient && t.texture != nil {
			if t.view != nil {
				p.graph.device.DestroyTextureView(t.view)
				t.view = nil
			}
			p.graph.device.DestroyTexture(t.texture)
			t.texture = nil
		}
	}
	for _, b := range p.graph.buffers {
		if b.kind == kindTransient && b.buffer != nil {
			p.graph.device.DestroyBuffer(b.buffer)
			b.buffer = nil
		}
	}
}
