package rendergraph

import (
	"fmt"

	"github.com/fulcrumgfx/core/hal"
)

// Graph accumulates passes and virtual resources across one frame's
// construction. It is built fresh (or reused via Clear) once per frame;
// Compile turns the accumulated declarations into an executable Plan.
type Graph struct {
	device hal.Device

	textures []*rgTextureResource
	buffers  []*rgBufferResource
	passes   []*rgPass

	plan *Plan

	// transientHeapCache survives Clear so repeated frames with the same
	// transient resource shape don't reallocate heaps every frame.
	transientHeapCache map[heapCacheKey]hal.Heap
}

// NewGraph creates an empty graph bound to device for resource creation.
func NewGraph(device hal.Device) *Graph {
	return &Graph{
		device:             device,
		transientHeapCache: make(map[heapCacheKey]hal.Heap),
	}
}

// CreateTexture declares a transient texture: one whose hal.Texture is
// allocated (and possibly aliased with another transient resource) during
// Compile and destroyed by Plan.ReleaseTransientResources.
func (g *Graph) CreateTexture(name string, desc hal.TextureDescriptor) RGTextureHandle {
	res := &rgTextureResource{
		name:    name,
		kind:    kindTransient,
		desc:    &desc,
		initial: StateUndefined,
	}
	g.textures = append(g.textures, res)
	return RGTextureHandle{index: len(g.textures) - 1}
}

// ImportTexture registers an externally-owned texture (a swapchain back
// buffer, a persistent shadow atlas) with the graph so passes can read or
// write it through the same handle-based API as transient resources.
// currentState is the state the texture is already in when the graph
// starts executing. view is the texture view passes should bind as a
// render target or shader resource; the graph never creates or destroys
// it since it doesn't own the underlying texture.
func (g *Graph) ImportTexture(name string, texture hal.Texture, view hal.TextureView, currentState ResourceState) RGTextureHandle {
	res := &rgTextureResource{
		name:    name,
		kind:    kindImported,
		texture: texture,
		view:    view,
		initial: currentState,
	}
	g.textures = append(g.textures, res)
	return RGTextureHandle{index: len(g.textures) - 1}
}

// CreateBuffer declares a transient buffer, analogous to CreateTexture.
func (g *Graph) CreateBuffer(name string, desc hal.BufferDescriptor) RGBufferHandle {
	res := &rgBufferResource{
		name:    name,
		kind:    kindTransient,
		desc:    &desc,
		initial: StateUndefined,
	}
	g.buffers = append(g.buffers, res)
	return RGBufferHandle{index: len(g.buffers) - 1}
}

// ImportBuffer registers an externally-owned buffer with the graph.
func (g *Graph) ImportBuffer(name string, buffer hal.Buffer, currentState ResourceState) RGBufferHandle {
	res := &rgBufferResource{
		name:    name,
		kind:    kindImported,
		buffer:  buffer,
		initial: currentState,
	}
	g.buffers = append(g.buffers, res)
	return RGBufferHandle{index: len(g.buffers) - 1}
}

// SetExportTextureState pins the state an imported or transient texture
// must end the frame in (e.g. StatePresent for the swapchain image). If
// unset, the resource is left in whatever state its last access produced.
func (g *Graph) SetExportTextureState(h RGTextureHandle, state ResourceState) {
	if h.index < 0 || h.index >= len(g.textures) {
		return
	}
	s := state
	g.textures[h.index].exportState = &s
}

// SetExportBufferState pins the state an imported or transient buffer
// must end the frame in.
func (g *Graph) SetExportBufferState(h RGBufferHandle, state ResourceState) {
	if h.index < 0 || h.index >= len(g.buffers) {
		return
	}
	s := state
	g.buffers[h.index].exportState = &s
}

// AddPass registers a pass. setup is invoked during Compile's access-graph
// build to record the pass's reads/writes via a Builder; execute is invoked
// during Execute to record actual commands. Passes with no reachable
// dependency on an exported resource are culled before Execute ever runs.
func (g *Graph) AddPass(name string, ptype PassType, priority int, setup func(*Builder), execute func(*ExecuteContext)) int {
	g.passes = append(g.passes, &rgPass{
		name:     name,
		ptype:    ptype,
		priority: priority,
		setup:    setup,
		execute:  execute,
	})
	return len(g.passes) - 1
}

// Clear drops all handles, recorded accesses, and the compiled plan,
// readying the graph for the next frame's AddPass/CreateX calls. Transient
// heaps are kept in transientHeapCache and reused by the next Compile if
// a heap group with the same (memory type, heap flags, size) recurs, avoiding
// per-frame heap churn for a graph whose shape is stable frame to frame.
func (g *Graph) Clear() {
	g.textures = g.textures[:0]
	g.buffers = g.buffers[:0]
	g.passes = g.passes[:0]
	g.plan = nil
}

// DestroyTransientHeaps releases every cached transient heap. Call this
// only when tearing the graph down entirely (e.g. on swapchain resize),
// not between ordinary frames.
func (g *Graph) DestroyTransientHeaps() {
	for key, heap := range g.transientHeapCache {
		g.device.DestroyHeap(heap)
		delete(g.transientHeapCache, key)
	}
}

type heapCacheKey struct {
	memType   hal.MemoryType
	flags     hal.HeapFlags
	size      uint64
}

func (g *Graph) findResourceName(isTexture bool, index int) string {
	if isTexture {
		if index >= 0 && index < len(g.textures) {
			return g.textures[index].name
		}
		return fmt.Sprintf("texture#%d", index)
	}
	if index >= 0 && index < len(g.buffers) {
		return g.buffers[index].name
	}
	return fmt.Sprintf("buffer#%d", index)
}
