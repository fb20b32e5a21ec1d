package renderpass

import (
	"github.com/fulcrumgfx/core/gpures"
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/rendergraph"
	"github.com/gogpu/gputypes"
)

// SkyboxPass draws a single full-screen (or cube-mesh) background object
// after the opaque pass, with depth testing enabled but depth writes off,
// so it only shades pixels the opaque pass left untouched.
type SkyboxPass struct{}

func (SkyboxPass) Name() string               { return "Skybox" }
func (SkyboxPass) Type() rendergraph.PassType { return rendergraph.PassGraphics }
func (SkyboxPass) Priority() int              { return PrioritySkybox }

func (SkyboxPass) IsEnabled(f *FrameContext) bool {
	return f.ColorTarget.IsValid() && f.SkyboxMesh != 0
}

func (SkyboxPass) Setup(b *rendergraph.Builder, f *FrameContext) {
	b.WriteTexture(f.ColorTarget, rendergraph.StateRenderTarget, rendergraph.StageFragment)
	if f.DepthTarget.IsValid() {
		b.SetDepthStencil(f.DepthTarget, true)
	}
}

func (SkyboxPass) Execute(ctx *rendergraph.ExecuteContext, f *FrameContext) {
	colorView := ctx.View(f.ColorTarget)
	if colorView == nil {
		return
	}

	desc := &hal.RenderPassDescriptor{
		Label: "Skybox",
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

	mesh, ok := f.Meshes.Mesh(gpures.ResourceID(f.SkyboxMesh))
	if !ok || len(mesh.Submeshes) == 0 {
		return
	}
	mat, ok := f.Materials.Lookup(f.SkyboxMaterial)
	if !ok {
		return
	}

	bindMaterial(enc, mat, 0)
	for slot, buf := range mesh.VertexBuffers {
		if buf != nil {
			enc.SetVertexBuffer(uint32(slot), buf, 0)
		}
	}
	if mesh.IndexBuffer == nil {
		return
	}
	sub := mesh.Submeshes[0]
	enc.SetIndexBuffer(mesh.IndexBuffer, indexFormatFor(mesh.IndexIs32), 0)
	enc.DrawIndexed(sub.IndexCount, 1, sub.IndexOffset, sub.BaseVertex, 0)
}
