// Package renderpass is the standard pass library: depth prepass, cascaded
// shadow maps, opaque, skybox, and transparent. Each Pass wraps a
// rendergraph.AddPass registration, so SceneRenderer only needs to iterate
// an ordered list of Pass values and call AddToGraph once per frame.
package renderpass

import (
	"github.com/fulcrumgfx/core/gpures"
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/pipelinecache"
	"github.com/fulcrumgfx/core/rendergraph"
	"github.com/fulcrumgfx/core/scene"
)

// Standard priority slots. Passes sharing a priority keep their AddPass
// registration order. The topological sort always runs the ready pass with
// the lowest priority first, so a pass that waits on another pass's output
// can still end up after passes in later bands.
const (
	PriorityDepthPrepass = 100
	PriorityShadow       = 200
	PriorityOpaque       = 300
	PrioritySkybox       = 400
	PriorityTransparent  = 500
	PriorityPostProcess  = 1000
)

// Material is the compiled GPU state one scene.MaterialID resolves to.
// SceneRenderer (or whatever owns the material system) builds these once
// per pipelinecache.Cache/format combination; renderpass only consumes them.
type Material struct {
	Pipeline hal.RenderPipeline
	Cache    *pipelinecache.Cache

	// ViewBindGroup is set 0: the view constant buffer, bound once per pass.
	ViewBindGroup hal.BindGroup

	// ObjectSet is the bind group index the per-object constant buffer is
	// bound at; ObjectBindGroup wraps Cache.ObjectConstantRingBuffer's
	// backing buffer with a dynamic offset applied per draw.
	ObjectSet       uint32
	ObjectBindGroup hal.BindGroup

	// Extra holds any further material-specific bind groups (textures,
	// samplers), keyed by their bind group index.
	Extra map[uint32]hal.BindGroup
}

// MaterialIndex resolves a scene.MaterialID to its compiled Material.
// SceneRenderer's material system implements this; renderpass never builds
// pipelines or bind groups itself.
type MaterialIndex interface {
	Lookup(id scene.MaterialID) (Material, bool)
}

// FrameContext is the per-frame state every standard pass reads. One
// FrameContext is built per view per frame and threaded through every
// Pass's Setup and Execute.
type FrameContext struct {
	View    scene.ViewData
	Visible scene.VisibleScene

	Meshes    *gpures.Manager
	Materials MaterialIndex
	Queue     hal.Queue
	Device    hal.Device

	ColorTarget rendergraph.RGTextureHandle
	DepthTarget rendergraph.RGTextureHandle

	// ShadowMap, if valid, names a transient texture array (one layer per
	// cascade) the caller created on the graph before registering passes.
	// ShadowPass writes into it; OpaquePass declares a read dependency on
	// it so the graph orders Shadow before Opaque without either pass
	// knowing about the other.
	ShadowMap rendergraph.RGTextureHandle

	// ShadowCascades is filled in by ShadowPass.Execute with the matrices
	// and split depths it computed this frame, for the material system to
	// pick up when building Opaque's shadow-sampling bind group.
	ShadowCascades []CascadeInfo

	// Skybox identifies the full-screen mesh/material SkyboxPass draws.
	// Left zero-valued, SkyboxPass is a no-op.
	SkyboxMesh     scene.MeshID
	SkyboxMaterial scene.MaterialID
}

// Pass is one stage of the standard render pass library.
type Pass interface {
	Name() string
	Type() rendergraph.PassType
	Priority() int
	// IsEnabled reports whether this pass has anything to do this frame;
	// a disabled pass is never registered with the graph, so it can't even
	// be culled-in by an unrelated dependency.
	IsEnabled(frame *FrameContext) bool
	Setup(b *rendergraph.Builder, frame *FrameContext)
	Execute(ctx *rendergraph.ExecuteContext, frame *FrameContext)
}

// AddToGraph registers p with g if it reports itself enabled for frame.
func AddToGraph(g *rendergraph.Graph, p Pass, frame *FrameContext) {
	if !p.IsEnabled(frame) {
		return
	}
	g.AddPass(p.Name(), p.Type(), p.Priority(),
		func(b *rendergraph.Builder) { p.Setup(b, frame) },
		func(ctx *rendergraph.ExecuteContext) { p.Execute(ctx, frame) },
	)
}

// bindMaterial binds a material's pipeline and bind groups, in the
// standard order: pipeline, view (set 0), per-object (ObjectSet, with the
// draw's ring allocation offset), then any extra material bind groups.
func bindMaterial(enc hal.RenderPassEncoder, mat Material, objectOffset uint32) {
	enc.SetPipeline(mat.Pipeline)
	if mat.ViewBindGroup != nil {
		enc.SetBindGroup(0, mat.ViewBindGroup, nil)
	}
	if mat.ObjectBindGroup != nil {
		enc.SetBindGroup(mat.ObjectSet, mat.ObjectBindGroup, []uint32{objectOffset})
	}
	for set, bg := range mat.Extra {
		enc.SetBindGroup(set, bg, nil)
	}
}

// drawObject resolves obj's mesh/material, updates its per-object
// constants, binds everything, and issues the indexed draw for its
// submesh. Objects whose mesh isn't resident yet or whose material can't
// be resolved are silently skipped — gpures streams meshes in over
// several frames, so a not-yet-uploaded mesh just doesn't draw this frame.
func drawObject(enc hal.RenderPassEncoder, frame *FrameContext, obj scene.RenderObject) {
	mesh, ok := frame.Meshes.Mesh(gpures.ResourceID(obj.Mesh))
	if !ok {
		return
	}
	mat, ok := frame.Materials.Lookup(obj.Material)
	if !ok {
		return
	}
	if obj.SubmeshIdx < 0 || obj.SubmeshIdx >= len(mesh.Submeshes) {
		return
	}
	sub := mesh.Submeshes[obj.SubmeshIdx]

	alloc, err := mat.Cache.UpdateObjectConstants(obj.World)
	if err != nil {
		return
	}

	bindMaterial(enc, mat, uint32(alloc.GPUOffset))
	for slot, buf := range mesh.VertexBuffers {
		if buf != nil {
			enc.SetVertexBuffer(uint32(slot), buf, 0)
		}
	}
	if mesh.IndexBuffer == nil {
		return
	}
	format := indexFormatFor(mesh.IndexIs32)
	enc.SetIndexBuffer(mesh.IndexBuffer, format, 0)
	enc.DrawIndexed(sub.IndexCount, 1, sub.IndexOffset, sub.BaseVertex, 0)
}
