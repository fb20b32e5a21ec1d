package renderpass

import (
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/rendergraph"
	"github.com/gogpu/gputypes"
)

// TransparentPass draws every transparent object back-to-front, testing
// against (but never writing) the depth buffer, after Opaque and Skybox
// have both run.
type TransparentPass struct{}

func (TransparentPass) Name() string               { return "Transparent" }
func (TransparentPass) Type() rendergraph.PassType { return rendergraph.PassGraphics }
func (TransparentPass) Priority() int              { return PriorityTransparent }

func (TransparentPass) IsEnabled(f *FrameContext) bool {
	return f.ColorTarget.IsValid() && len(f.Visible.Transparent) > 0
}

func (TransparentPass) Setup(b *rendergraph.Builder, f *FrameContext) {
	b.WriteTexture(f.ColorTarget, rendergraph.StateRenderTarget, rendergraph.StageFragment)
	if f.DepthTarget.IsValid() {
		b.SetDepthStencil(f.DepthTarget, true)
	}
}

func (TransparentPass) Execute(ctx *rendergraph.ExecuteContext, f *FrameContext) {
	colorView := ctx.View(f.ColorTarget)
	if colorView == nil {
		return
	}

	desc := &hal.RenderPassDescriptor{
		Label: "Transparent",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{View: colorView, LoadOp: gputypes.LoadOpLoad, StoreOp: gputypes.StoreOpStore},
		},
	}
	if f.DepthTarget.IsValid() {
		if depthView := ctx.View(f.DepthTarget); depthView != nil {
			desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
				View:          depthView,
				DepthLoadOp:   gputypes.LoadOpLoad,
				DepthStoreOp:  gputypes.StoreOpDiscard,
				DepthReadOnly: true,
			}
		}
	}

	enc := ctx.Encoder().BeginRenderPass(desc)
	defer enc.End()

	for _, obj := range f.Visible.Transparent {
		drawObject(enc, f, obj)
	}
}
