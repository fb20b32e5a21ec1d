// Package scenerenderer drives the per-frame sequence: collect and cull
// the scene against a camera, drain a time-bounded upload budget, rebuild
// and compile the RenderGraph from the standard pass library, and execute
// it against the frame rendercontext.Context hands back.
package scenerenderer
