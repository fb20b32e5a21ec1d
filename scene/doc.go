// Package scene collects a per-frame snapshot of the external world —
// renderable objects and lights — and performs the visibility work
// SceneRenderer needs before it builds a RenderGraph: frustum culling and
// front-to-back / back-to-front sorting.
//
// The world representation itself is opaque to this package; callers
// implement World to expose their own scene graph through CollectFromWorld.
package scene
