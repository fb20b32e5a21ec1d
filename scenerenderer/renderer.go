package scenerenderer

import (
	"fmt"
	"sort"
	"time"

	"github.com/fulcrumgfx/core/gpures"
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/pipelinecache"
	"github.com/fulcrumgfx/core/rendercontext"
	"github.com/fulcrumgfx/core/rendergraph"
	"github.com/fulcrumgfx/core/renderpass"
	"github.com/fulcrumgfx/core/scene"
	"github.com/gogpu/gputypes"
)

// Camera is the per-frame camera state SetupView needs. The world/camera
// system (outside this package's scope) supplies a fresh Camera each frame.
type Camera struct {
	View, Projection       scene.Mat4
	Position, Forward      scene.Vec3
	Near, Far, FovY         float32
	Viewport                scene.Viewport
}

// Renderer drives one rendercontext.Context through the standard
// collect -> cull -> build graph -> compile -> execute -> present sequence
// every frame, per spec §4.9. It owns the depth buffer (the one persistent
// render target this layer needs) and the RenderGraph instance it rebuilds
// from scratch each frame.
type Renderer struct {
	ctx       *rendercontext.Context
	meshes    *gpures.Manager
	materials renderpass.MaterialIndex
	caches    []*pipelinecache.Cache
	passes    []renderpass.Pass

	graph *rendergraph.Graph

	depthFormat              gputypes.TextureFormat
	depthTexture             hal.Texture
	depthView                hal.TextureView
	depthWidth, depthHeight  uint32

	// pendingColorViews holds, per frame-in-flight slot, the back-buffer
	// view created for that slot's most recent frame. It is destroyed at
	// the start of the slot's *next* BeginFrame, once WaitForFrame has
	// confirmed the GPU is done reading from it — never immediately after
	// Execute, since a real backend's command buffer may still be
	// in-flight when this call returns.
	pendingColorViews []hal.TextureView

	// pendingMeshRefs holds, per frame-in-flight slot, the mesh IDs the
	// slot's most recently submitted frame drew. BeginFrame's WaitForFrame
	// proves that submission has retired, so its refs are released right
	// before the new frame's own refs are taken — this is what backs
	// gpures' in-flight refcount (spec §4.4, property P6).
	pendingMeshRefs [][]gpures.ResourceID

	uploadBudget time.Duration

	frameNumber uint64
	startTime   time.Time
	lastFrame   time.Time

	view    scene.ViewData
	visible scene.VisibleScene
}

// New creates a Renderer bound to ctx. passes may be given in any order;
// Render registers them with the graph in ascending Priority order each
// frame. caches lists every pipelinecache.Cache this frame's materials
// draw with — Render refreshes each one's view constants and rotates its
// per-object ring buffer once per frame, before executing any pass.
func New(ctx *rendercontext.Context, meshes *gpures.Manager, materials renderpass.MaterialIndex, caches []*pipelinecache.Cache, passes []renderpass.Pass, depthFormat gputypes.TextureFormat, uploadBudget time.Duration) *Renderer {
	sorted := append([]renderpass.Pass(nil), passes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	return &Renderer{
		ctx:               ctx,
		meshes:            meshes,
		materials:         materials,
		caches:            caches,
		passes:            sorted,
		graph:             rendergraph.NewGraph(ctx.Device()),
		depthFormat:       depthFormat,
		pendingColorViews: make([]hal.TextureView, ctx.FrameCount()),
		pendingMeshRefs:   make([][]gpures.ResourceID, ctx.FrameCount()),
		uploadBudget:      uploadBudget,
	}
}

// SetupView collects world, culls it against cam's frustum, and marks
// every surviving object's mesh as used this frame so gpures.EvictUnused
// won't reclaim it mid-stream. Call once per frame before Render.
func (r *Renderer) SetupView(cam Camera, world scene.World) {
	r.view = scene.NewViewData(cam.View, cam.Projection, cam.Position, cam.Forward, cam.Near, cam.Far, cam.FovY, cam.Viewport)
	r.view.FrameNumber = r.frameNumber

	now := time.Now()
	if r.startTime.IsZero() {
		r.startTime = now
		r.lastFrame = now
	}
	r.view.Time = float32(now.Sub(r.startTime).Seconds())
	r.view.DeltaTime = float32(now.Sub(r.lastFrame).Seconds())
	r.lastFrame = now

	rscene := scene.CollectFromWorld(world)
	r.visible = scene.CullAgainstCamera(rscene, r.view.Frustum, cam.Position)

	for _, obj := range r.visible.Opaque {
		r.meshes.MarkUsed(gpures.ResourceID(obj.Mesh), gpures.KindMesh, r.frameNumber)
	}
	for _, obj := range r.visible.Transparent {
		r.meshes.MarkUsed(gpures.ResourceID(obj.Mesh), gpures.KindMesh, r.frameNumber)
	}
}

// Render drains a bounded slice of the upload queue, then builds, compiles,
// and executes this frame's RenderGraph against the back buffer
// rendercontext.BeginFrame hands back. A zero-area viewport is a no-op per
// spec §8's boundary behavior rather than an error — a minimized window
// still calls Render every tick.
func (r *Renderer) Render() error {
	if r.view.Viewport.Width == 0 || r.view.Viewport.Height == 0 {
		return nil
	}

	if _, err := r.meshes.ProcessPendingUploads(r.uploadBudget); err != nil {
		return fmt.Errorf("scenerenderer: process pending uploads: %w", err)
	}

	width, height := uint32(r.view.Viewport.Width), uint32(r.view.Viewport.Height)
	if err := r.ensureDepthTarget(width, height); err != nil {
		return fmt.Errorf("scenerenderer: depth target: %w", err)
	}

	frame, err := r.ctx.BeginFrame()
	if err != nil {
		return fmt.Errorf("scenerenderer: begin frame: %w", err)
	}

	device := r.ctx.Device()
	if old := r.pendingColorViews[frame.Slot]; old != nil {
		device.DestroyTextureView(old)
		r.pendingColorViews[frame.Slot] = nil
	}
	for _, meshID := range r.pendingMeshRefs[frame.Slot] {
		r.meshes.ReleaseInflightRef(meshID, gpures.KindMesh)
	}
	r.pendingMeshRefs[frame.Slot] = r.pendingMeshRefs[frame.Slot][:0]

	for _, obj := range r.visible.Opaque {
		id := gpures.ResourceID(obj.Mesh)
		r.meshes.AddInflightRef(id, gpures.KindMesh)
		r.pendingMeshRefs[frame.Slot] = append(r.pendingMeshRefs[frame.Slot], id)
	}
	for _, obj := range r.visible.Transparent {
		id := gpures.ResourceID(obj.Mesh)
		r.meshes.AddInflightRef(id, gpures.KindMesh)
		r.pendingMeshRefs[frame.Slot] = append(r.pendingMeshRefs[frame.Slot], id)
	}

	colorView, err := device.CreateTextureView(frame.ColorTexture, &hal.TextureViewDescriptor{})
	if err != nil {
		return fmt.Errorf("scenerenderer: create back buffer view: %w", err)
	}
	r.pendingColorViews[frame.Slot] = colorView

	for _, cache := range r.caches {
		cache.UpdateViewConstants(r.ctx.Queue(), r.view)
		cache.ResetObjectConstants(frame.Slot)
	}

	r.graph.Clear()

	colorHandle := r.graph.ImportTexture("backbuffer", frame.ColorTexture, colorView, backBufferImportState(frame.InitialColorState))
	r.graph.SetExportTextureState(colorHandle, rendergraph.StatePresent)

	depthHandle := r.graph.ImportTexture("depth", r.depthTexture, r.depthView, rendergraph.StateUndefined)

	r.view.ColorTarget = colorHandle
	r.view.DepthTarget = depthHandle

	fc := &renderpass.FrameContext{
		View:        r.view,
		Visible:     r.visible,
		Meshes:      r.meshes,
		Materials:   r.materials,
		Queue:       r.ctx.Queue(),
		Device:      device,
		ColorTarget: colorHandle,
		DepthTarget: depthHandle,
	}

	for _, p := range r.passes {
		renderpass.AddToGraph(r.graph, p, fc)
	}

	plan, err := r.graph.Compile()
	if err != nil {
		return fmt.Errorf("scenerenderer: compile: %w", err)
	}

	if err := plan.Execute(frame.Encoder); err != nil {
		return fmt.Errorf("scenerenderer: execute: %w", err)
	}

	if err := r.ctx.EndFrame(frame); err != nil {
		return fmt.Errorf("scenerenderer: end frame: %w", err)
	}

	plan.ReleaseTransientResources()

	if err := r.ctx.Present(frame); err != nil {
		return fmt.Errorf("scenerenderer: present: %w", err)
	}

	r.frameNumber++
	return nil
}

// Shutdown destroys the depth target and any back-buffer views still
// awaiting their next-acquire cleanup. Call after the last Render, before
// ctx.Shutdown.
func (r *Renderer) Shutdown() {
	device := r.ctx.Device()
	for i, v := range r.pendingColorViews {
		if v != nil {
			device.DestroyTextureView(v)
			r.pendingColorViews[i] = nil
		}
	}
	for slot, ids := range r.pendingMeshRefs {
		for _, id := range ids {
			r.meshes.ReleaseInflightRef(id, gpures.KindMesh)
		}
		r.pendingMeshRefs[slot] = nil
	}
	if r.depthView != nil {
		device.DestroyTextureView(r.depthView)
		r.depthView = nil
	}
	if r.depthTexture != nil {
		device.DestroyTexture(r.depthTexture)
		r.depthTexture = nil
	}
	r.graph.DestroyTransientHeaps()
}

// FrameNumber returns the number of frames Render has completed.
func (r *Renderer) FrameNumber() uint64 { return r.frameNumber }

func (r *Renderer) ensureDepthTarget(width, height uint32) error {
	if r.depthTexture != nil && r.depthWidth == width && r.depthHeight == height {
		return nil
	}

	device := r.ctx.Device()
	if r.depthTexture != nil {
		if r.depthView != nil {
			device.DestroyTextureView(r.depthView)
			r.depthView = nil
		}
		device.DestroyTexture(r.depthTexture)
		r.depthTexture = nil
	}

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "scene-depth",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        r.depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("create depth view: %w", err)
	}

	r.depthTexture = tex
	r.depthView = view
	r.depthWidth = width
	r.depthHeight = height
	return nil
}

// backBufferImportState translates rendercontext's 2-state back-buffer
// tracking into the richer rendergraph.ResourceState the graph's barrier
// planner needs as a starting point.
func backBufferImportState(s rendercontext.BackBufferState) rendergraph.ResourceState {
	if s == rendercontext.BackBufferPresent {
		return rendergraph.StatePresent
	}
	return rendergraph.StateUndefined
}
