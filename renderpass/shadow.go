package renderpass

import (
	"github.com/chewxy/math32"
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/rendergraph"
	"github.com/fulcrumgfx/core/scene"
	"github.com/gogpu/gputypes"
)

// CascadeInfo is one cascaded shadow map slice's light-space
// view-projection matrix and the view-space depth its far plane sits at.
type CascadeInfo struct {
	ViewProjection scene.Mat4
	SplitFar       float32
}

// ShadowPass renders depth-only cascaded shadow maps for the scene's first
// shadow-casting directional light into FrameContext.ShadowMap, an
// array texture the caller must have sized with at least CascadeCount
// layers before this pass runs. scenerenderer.Renderer does not set
// ShadowMap in the FrameContext it builds.
type ShadowPass struct {
	CascadeCount uint32
	Resolution   uint32
	// SplitLambda blends between a uniform and a logarithmic cascade
	// split scheme; 0 is uniform, 1 is fully logarithmic. 0.5 is a
	// reasonable default for outdoor scenes.
	SplitLambda float32
}

func (ShadowPass) Name() string               { return "Shadow" }
func (ShadowPass) Type() rendergraph.PassType { return rendergraph.PassGraphics }
func (ShadowPass) Priority() int              { return PriorityShadow }

func (p ShadowPass) IsEnabled(f *FrameContext) bool {
	if !f.ShadowMap.IsValid() || p.CascadeCount == 0 {
		return false
	}
	return findShadowLight(f.Visible.Lights) != nil
}

func (p ShadowPass) Setup(b *rendergraph.Builder, f *FrameContext) {
	b.WriteTexture(f.ShadowMap, rendergraph.StateDepthWrite, rendergraph.StageFragment)
}

func (p ShadowPass) Execute(ctx *rendergraph.ExecuteContext, f *FrameContext) {
	light := findShadowLight(f.Visible.Lights)
	if light == nil {
		return
	}
	atlas := ctx.Texture(f.ShadowMap)
	if atlas == nil || f.Device == nil {
		return
	}

	splits := practicalSplits(f.View.Near, f.View.Far, p.CascadeCount, p.SplitLambda)
	cascades := make([]CascadeInfo, 0, p.CascadeCount)

	near := f.View.Near
	for i := uint32(0); i < p.CascadeCount; i++ {
		far := splits[i]
		vp := cascadeViewProjection(f.View, light.Direction, near, far)
		cascades = append(cascades, CascadeInfo{ViewProjection: vp, SplitFar: far})

		view, err := f.Device.CreateTextureView(atlas, &hal.TextureViewDescriptor{
			Dimension:       gputypes.TextureViewDimension2D,
			BaseArrayLayer:  i,
			ArrayLayerCount: 1,
		})
		if err != nil {
			near = far
			continue
		}

		enc := ctx.Encoder().BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "Shadow.cascade",
			DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
				View:            view,
				DepthLoadOp:     gputypes.LoadOpClear,
				DepthStoreOp:    gputypes.StoreOpStore,
				DepthClearValue: 1.0,
			},
		})
		for _, obj := range f.Visible.Opaque {
			if obj.CastsShadow {
				drawObject(enc, f, obj)
			}
		}
		enc.End()
		f.Device.DestroyTextureView(view)

		near = far
	}

	f.ShadowCascades = cascades
}

func findShadowLight(lights []scene.RenderLight) *scene.RenderLight {
	for i := range lights {
		if lights[i].Type == scene.LightDirectional && lights[i].CastsShadow {
			return &lights[i]
		}
	}
	return nil
}

// practicalSplits computes cascadeCount far-plane distances between near
// and far using the practical split scheme (Zhang et al.): a blend of a
// uniform split and a logarithmic split, weighted by lambda.
func practicalSplits(near, far float32, cascadeCount uint32, lambda float32) []float32 {
	splits := make([]float32, cascadeCount)
	n := float32(cascadeCount)
	for i := uint32(1); i <= cascadeCount; i++ {
		fi := float32(i)
		uniform := near + (far-near)*(fi/n)
		log := near * pow32(far/near, fi/n)
		splits[i-1] = lambda*log + (1-lambda)*uniform
	}
	return splits
}

func pow32(base, exp float32) float32 {
	if base <= 0 {
		return 0
	}
	// Repeated-squaring isn't applicable for fractional exponents; use the
	// identity base^exp = exp(exp * ln(base)) via math32's Exp/Log.
	return expLog(base, exp)
}

func expLog(base, exp float32) float32 { return math32.Exp(exp * math32.Log(base)) }
func sqrt32(x float32) float32         { return math32.Sqrt(x) }
func tan32(x float32) float32          { return math32.Tan(x) }
func absf(x float32) float32           { return math32.Abs(x) }

// cascadeViewProjection fits an orthographic light-space projection around
// the camera frustum slice spanning [near, far], conservatively using a
// bounding sphere of the slice's eight corners so the fitted volume doesn't
// change size as the camera rotates (avoiding shadow shimmering).
func cascadeViewProjection(view scene.ViewData, lightDir scene.Vec3, near, far float32) scene.Mat4 {
	corners := frustumSliceCorners(view, near, far)

	var center scene.Vec3
	for _, c := range corners {
		center = center.Add(c)
	}
	center = center.Scale(1.0 / float32(len(corners)))

	var radius float32
	for _, c := range corners {
		if d := c.DistanceSquared(center); d > radius {
			radius = d
		}
	}
	radius = sqrt32(radius)
	if radius < 1 {
		radius = 1
	}

	up := scene.Vec3{X: 0, Y: 1, Z: 0}
	if absf(lightDir.Y) > 0.99 {
		up = scene.Vec3{X: 1, Y: 0, Z: 0}
	}

	eye := center.Sub(lightDir.Scale(radius * 2))
	lightView := scene.LookAt(eye, center, up)
	proj := scene.Orthographic(-radius, radius, -radius, radius, 0.1, radius*4)
	return proj.Mul(lightView)
}

// frustumSliceCorners returns the eight world-space corners of the camera
// frustum slice between near and far, computed from view's field of view
// and aspect ratio rather than its full [Near,Far] range.
func frustumSliceCorners(view scene.ViewData, near, far float32) [8]scene.Vec3 {
	aspect := view.Viewport.Width / view.Viewport.Height
	if aspect <= 0 {
		aspect = 1
	}
	tanHalfFovY := tan32(view.FovY / 2)

	var corners [8]scene.Vec3
	depths := [2]float32{near, far}
	i := 0
	for _, d := range depths {
		halfH := tanHalfFovY * d
		halfW := halfH * aspect
		for _, sy := range [2]float32{-1, 1} {
			for _, sx := range [2]float32{-1, 1} {
				local := scene.Vec3{X: sx * halfW, Y: sy * halfH, Z: -d}
				corners[i] = view.InvView.MulPoint(local)
				i++
			}
		}
	}
	return corners
}
