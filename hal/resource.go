package hal

// Resource is the base interface for all GPU resources.
// Resources must be explicitly destroyed to free GPU memory.
type Resource interface {
	// Destroy releases the GPU resource.
	// After this call, the resource must not be used.
	// Calling Destroy multiple times is undefined behavior.
	Destroy()
}

// Buffer represents a GPU buffer.
// Buffers are contiguous memory regions accessible by the GPU.
type Buffer interface {
	Resource
}

// Texture represents a GPU texture.
// Textures are multi-dimensional images with specific formats.
type Texture interface {
	Resource
}

// TextureView represents a view into a texture.
// Views specify how a texture is interpreted (format, dimensions, layers).
type TextureView interface {
	Resource
}

// Sampler represents a texture sampler.
// Samplers define how textures are filtered and addressed.
type Sampler interface {
	Resource
}

// ShaderModule represents a compiled shader module.
// Shader modules contain executable GPU code in a backend-specific format.
type ShaderModule interface {
	Resource
}

// BindGroupLayout defines the layout of a bind group.
// Layouts specify the structure of resource bindings for shaders.
type BindGroupLayout interface {
	Resource
}

// BindGroup represents bound resources.
// Bind groups associate actual resources with bind group layouts.
type BindGroup interface {
	Resource
}

// PipelineLayout defines the layout of a pipeline.
// Pipeline layouts specify the bind group layouts used by a pipeline.
type PipelineLayout interface {
	Resource
}

// RenderPipeline is a configured render pipeline.
// Render pipelines define the complete graphics pipeline state.
type RenderPipeline interface {
	Resource
}

// ComputePipeline is a configured compute pipeline.
// Compute pipelines define the compute shader and resource layout.
type ComputePipeline interface {
	Resource
}

// CommandBuffer holds recorded GPU commands.
// Command buffers are immutable after encoding and can be submitted to a queue.
type CommandBuffer interface {
	Resource
}

// Fence is a GPU synchronization primitive.
// Fences allow CPU-GPU synchronization via signaled values.
type Fence interface {
	Resource
}

// Surface represents a rendering surface.
// Surfaces are platform-specific presentation targets (windows).
type Surface interface {
	Resource

	// Configure configures the surface with the given device and settings.
	// Must be called before acquiring textures.
	Configure(device Device, config *SurfaceConfiguration) error

	// Unconfigure removes the surface configuration.
	// Call before destroying the device.
	Unconfigure(device Device)

	// AcquireTexture acquires the next surface texture for rendering.
	// The texture must be presented via Queue.Present or discarded via DiscardTexture.
	// Returns ErrSurfaceOutdated if the surface needs reconfiguration.
	// Returns ErrSurfaceLost if the surface has been destroyed.
	// Returns ErrTimeout if the timeout expires before a texture is available.
	AcquireTexture(fence Fence) (*AcquiredSurfaceTexture, error)

	// DiscardTexture discards a surface texture without presenting it.
	// Use this if rendering failed or was canceled.
	DiscardTexture(texture SurfaceTexture)
}

// SurfaceTexture is a texture acquired from a surface.
// Surface textures have special lifetime constraints - they must be presented
// or discarded before the next frame.
type SurfaceTexture interface {
	Texture
}

// AcquiredSurfaceTexture bundles a surface texture with metadata.
type AcquiredSurfaceTexture struct {
	// Texture is the acquired surface texture.
	Texture SurfaceTexture

	// Suboptimal indicates the surface configuration is suboptimal but usable.
	// Consider reconfiguring the surface at a convenient time.
	Suboptimal bool
}

// Heap is a raw block of device memory that placed buffers and textures
// can be suballocated from. Heaps exist so memory can be aliased between
// resources whose lifetimes don't overlap (RenderGraph transient aliasing).
type Heap interface {
	Resource

	// Size is the heap's total size in bytes.
	Size() uint64
}

// QueryPool holds a fixed number of GPU queries of a single type.
type QueryPool interface {
	Resource

	// Type reports the kind of query this pool holds.
	Type() QueryType

	// Count is the number of queries in the pool.
	Count() uint32
}

// QueryType identifies the kind of GPU query a QueryPool records.
type QueryType int

const (
	// QueryTypeTimestamp records a GPU timestamp.
	QueryTypeTimestamp QueryType = iota
	// QueryTypeOcclusion records a pass/fail occlusion sample count.
	QueryTypeOcclusion
	// QueryTypeBinaryOcclusion records a boolean visible/not-visible result.
	QueryTypeBinaryOcclusion
	// QueryTypePipelineStatistics records pipeline invocation counters.
	QueryTypePipelineStatistics
)

// StagingBuffer is a host-visible, single-use buffer used as the source of
// a CopyBufferToTexture or CopyBuffer upload. Unlike Queue.WriteBuffer
// (which hides its own internal staging), a StagingBuffer is owned by the
// caller for the lifetime of one upload.
type StagingBuffer interface {
	Resource

	// Map returns a CPU-visible slice of the buffer's contents.
	Map() ([]byte, error)

	// Unmap flushes CPU writes and invalidates the mapped slice.
	Unmap()

	// Size is the buffer's size in bytes.
	Size() uint64
}

// RingAllocation is a single sub-allocation served by a RingBuffer.
type RingAllocation struct {
	// CPUAddress is the mapped host pointer for writing.
	CPUAddress []byte

	// GPUOffset is the byte offset into the ring's backing buffer.
	GPUOffset uint64

	// Size is the allocation's size in bytes.
	Size uint64

	// Buffer is the ring's backing buffer, for binding.
	Buffer Buffer
}

// IsValid reports whether the allocation succeeded.
func (a RingAllocation) IsValid() bool {
	return a.Buffer != nil
}

// RingBuffer partitions a backing buffer into N per-frame regions (N =
// frames in flight) and bump-allocates aligned sub-ranges from the active
// region. Reset rotates the active region at the start of a frame.
// Not safe for concurrent use; the caller must scope allocations to the
// render thread (spec §5).
type RingBuffer interface {
	// Allocate serves an aligned block from the active region.
	// Returns a zero-value (invalid) allocation if the active region
	// cannot satisfy the request.
	Allocate(size uint64) RingAllocation

	// Reset rotates the active region to frameIndex % regionCount and
	// discards all allocations made from it since the last Reset.
	Reset(frameIndex uint32)

	// Destroy releases the backing buffer.
	Destroy()
}
