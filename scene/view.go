package scene

import "github.com/fulcrumgfx/core/rendergraph"

// Viewport is the pixel rectangle of the render target a view draws into.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// ViewData is everything a frame's render passes need to know about the
// camera and the target it is drawing into. SceneRenderer builds one of
// these per view per frame and threads it through pipelinecache (for
// constant buffer updates) and each renderpass.Pass.
type ViewData struct {
	View           Mat4
	Projection     Mat4
	ViewProjection Mat4

	InvView           Mat4
	InvProjection     Mat4
	InvViewProjection Mat4

	CameraPosition Vec3
	CameraForward  Vec3

	Near, Far float32
	FovY      float32

	Viewport Viewport
	Frustum  Frustum

	ColorTarget rendergraph.RGTextureHandle
	DepthTarget rendergraph.RGTextureHandle

	FrameNumber uint64
	Time        float32
	DeltaTime   float32
}

// NewViewData computes the derived matrices, inverses, and frustum for a
// view from its raw camera parameters. Matrix inversion failure (a
// degenerate camera transform) leaves the corresponding inverse as the
// identity matrix rather than propagating an error, since a malformed
// view still needs to produce *something* for this frame.
func NewViewData(view, projection Mat4, cameraPos, cameraForward Vec3, near, far, fovY float32, viewport Viewport) ViewData {
	vp := projection.Mul(view)

	invView, ok := view.Inverse()
	if !ok {
		invView = Identity()
	}
	invProj, ok := projection.Inverse()
	if !ok {
		invProj = Identity()
	}
	invVP, ok := vp.Inverse()
	if !ok {
		invVP = Identity()
	}

	var frustum Frustum
	frustum.SetFromMatrix(vp)

	return ViewData{
		View:              view,
		Projection:        projection,
		ViewProjection:    vp,
		InvView:           invView,
		InvProjection:     invProj,
		InvViewProjection: invVP,
		CameraPosition:    cameraPos,
		CameraForward:     cameraForward,
		Near:              near,
		Far:               far,
		FovY:              fovY,
		Viewport:          viewport,
		Frustum:           frustum,
	}
}
