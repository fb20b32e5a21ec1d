package renderpass

import (
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/rendergraph"
	"github.com/gogpu/gputypes"
)

// DepthPrepassPass writes depth only for every opaque object, letting
// OpaquePass later run with an equal-depth test and no depth writes so
// overdraw never re-shades a pixel twice.
type DepthPrepassPass struct{}

func (DepthPrepassPass) Name() string                 { return "DepthPrepass" }
func (DepthPrepassPass) Type() rendergraph.PassType    { return rendergraph.PassGraphics }
func (DepthPrepassPass) Priority() int                 { return PriorityDepthPrepass }
func (DepthPrepassPass) IsEnabled(f *FrameContext) bool { return f.DepthTarget.IsValid() }

func (DepthPrepassPass) Setup(b *rendergraph.Builder, f *FrameContext) {
	b.SetDepthStencil(f.DepthTarget, false)
}

func (DepthPrepassPass) Execute(ctx *rendergraph.ExecuteContext, f *FrameContext) {
	depthView := ctx.View(f.DepthTarget)
	if depthView == nil {
		return
	}

	enc := ctx.Encoder().BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "DepthPrepass",
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	defer enc.End()

	for _, obj := range f.Visible.Opaque {
		drawObject(enc, f, obj)
	}
}
