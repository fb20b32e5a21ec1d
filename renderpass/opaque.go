package renderpass

import (
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/rendergraph"
	"github.com/gogpu/gputypes"
)

// OpaquePass draws every opaque object front-to-back into the color
// target, reading (but not writing) the depth buffer DepthPrepassPass
// already populated.
type OpaquePass struct{}

func (OpaquePass) Name() string                  { return "Opaque" }
func (OpaquePass) Type() rendergraph.PassType     { return rendergraph.PassGraphics }
func (OpaquePass) Priority() int                  { return PriorityOpaque }
func (OpaquePass) IsEnabled(f *FrameContext) bool { return f.ColorTarget.IsValid() }

func (OpaquePass) Setup(b *rendergraph.Builder, f *FrameContext) {
	b.WriteTexture(f.ColorTarget, rendergraph.StateRenderTarget, rendergraph.StageFragment)
	if f.DepthTarget.IsValid() {
		b.SetDepthStencil(f.DepthTarget, true)
	}
	if f.ShadowMap.IsValid() {
		b.ReadTexture(f.ShadowMap, rendergraph.StateShaderResource, rendergraph.StageFragment)
	}
}

func (OpaquePass) Execute(ctx *rendergraph.ExecuteContext, f *FrameContext) {
	colorView := ctx.View(f.ColorTarget)
	if colorView == nil {
		return
	}

	desc := &hal.RenderPassDescriptor{
		Label: "Opaque",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{View: colorView, LoadOp: gputypes.LoadOpLoad, StoreOp: gputypes.StoreOpStore},
		},
	}
	if f.DepthTarget.IsValid() {
		if depthView := ctx.View(f.DepthTarget); depthView != nil {
			desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
				View:         depthView,
				DepthLoadOp:  gputypes.LoadOpLoad,
				DepthStoreOp: gputypes.StoreOpDiscard,
				DepthReadOnly: true,
			}
		}
	}

	enc := ctx.Encoder().BeginRenderPass(desc)
	defer enc.End()

	for _, obj := range f.Visible.Opaque {
		drawObject(enc, f, obj)
	}
}
