// Package rendercontext owns the device, surface, per-frame command
// encoders, and the frame synchronizer, and exposes the BeginFrame/
// EndFrame/Present/ResizeSwapChain orchestration every frame drives.
package rendercontext
