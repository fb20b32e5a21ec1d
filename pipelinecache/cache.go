package pipelinecache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/scene"
	"github.com/gogpu/gputypes"
)

// ViewConstantsSize is the byte size of the per-view constant buffer this
// package writes: ViewProjection, View, Projection (3 row-major Mat4s),
// CameraPosition (vec3, padded to vec4), and Time (packed into the padding
// lane), matching a conventional std140-style layout. DeltaTime is not
// written.
const ViewConstantsSize = 3*64 + 16

// ObjectConstantsSize is the byte size of the per-object constant buffer
// slice: a single row-major Mat4 world matrix.
const ObjectConstantsSize = 64

// ObjectConstantsAlignment is the stride every per-object ring allocation
// is rounded up to, satisfying typical uniform buffer offset alignment
// (256 bytes covers every backend's reported minimum).
const ObjectConstantsAlignment = 256

// Cache owns the compiled GPU state for one shader pair: its shader
// modules, bind group layouts, pipeline layout, one hal.RenderPipeline per
// target color format it has been asked to build, and the constant buffers
// the bound material's draws read from.
type Cache struct {
	device hal.Device

	vertexModule   hal.ShaderModule
	fragmentModule hal.ShaderModule

	setOrder    []uint32
	setLayouts  map[uint32]hal.BindGroupLayout
	pipeLayout  hal.PipelineLayout

	vertexLayout []gputypes.VertexBufferLayout
	depthFormat  *hal.DepthStencilState

	pipelines map[gputypes.TextureFormat]hal.RenderPipeline

	viewCB hal.Buffer
	objCB  hal.RingBuffer

	// yDown mirrors the Y row of the stored view-projection matrix for
	// backends whose clip space has Y pointing down the framebuffer
	// (DX12, Vulkan, Metal) instead of up (the convention scene.Perspective
	// assumes). Supplied explicitly by the caller since hal.Device exposes
	// no backend-type query.
	yDown bool
}

// Options configures Cache construction.
type Options struct {
	VertexLayout []gputypes.VertexBufferLayout
	DepthStencil *hal.DepthStencilState
	// YDownClipSpace mirrors the projected Y axis for the target backend.
	// Pass true for every backend except one using a Y-up clip space.
	YDownClipSpace bool
	// ObjectConstantRegions sizes the per-object ring buffer; it should be
	// at least the number of draws issued against this material per frame,
	// in flight across framesync's frame count.
	ObjectConstantRegions uint32
}

// New validates set's WGSL, compiles both stages into hal.ShaderModules,
// builds the bind group/pipeline layouts from set's reflection metadata,
// and allocates the view and per-object constant buffers. It does not yet
// create any hal.RenderPipeline; call CreatePipeline once per target
// color format the material is drawn against.
func New(device hal.Device, set ShaderSet, opts Options) (*Cache, error) {
	if err := validateWGSL(set.Vertex.WGSL, set.Vertex.EntryPoint); err != nil {
		return nil, err
	}
	if err := validateWGSL(set.Fragment.WGSL, set.Fragment.EntryPoint); err != nil {
		return nil, err
	}

	vertexModule, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "pipelinecache.vertex",
		Source: hal.ShaderSource{WGSL: set.Vertex.WGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("pipelinecache: vertex module: %w", err)
	}
	fragmentModule, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "pipelinecache.fragment",
		Source: hal.ShaderSource{WGSL: set.Fragment.WGSL},
	})
	if err != nil {
		device.DestroyShaderModule(vertexModule)
		return nil, fmt.Errorf("pipelinecache: fragment module: %w", err)
	}

	setOrder, setLayouts, err := buildBindGroupLayouts(device, set)
	if err != nil {
		device.DestroyShaderModule(vertexModule)
		device.DestroyShaderModule(fragmentModule)
		return nil, err
	}

	bgls := make([]hal.BindGroupLayout, len(setOrder))
	for i, s := range setOrder {
		bgls[i] = setLayouts[s]
	}
	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "pipelinecache.layout",
		BindGroupLayouts: bgls,
	})
	if err != nil {
		return nil, fmt.Errorf("pipelinecache: CreatePipelineLayout: %w", err)
	}

	viewCB, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pipelinecache.viewConstants",
		Size:  ViewConstantsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("pipelinecache: view constant buffer: %w", err)
	}

	regions := opts.ObjectConstantRegions
	if regions == 0 {
		regions = 1
	}
	objCB, err := device.CreateRingBuffer(uint64(regions)*ObjectConstantsAlignment, regions)
	if err != nil {
		return nil, fmt.Errorf("pipelinecache: object constant ring buffer: %w", err)
	}

	return &Cache{
		device:         device,
		vertexModule:   vertexModule,
		fragmentModule: fragmentModule,
		setOrder:       setOrder,
		setLayouts:     setLayouts,
		pipeLayout:     pipeLayout,
		vertexLayout:   opts.VertexLayout,
		depthFormat:    opts.DepthStencil,
		pipelines:      make(map[gputypes.TextureFormat]hal.RenderPipeline),
		viewCB:         viewCB,
		objCB:          objCB,
		yDown:          opts.YDownClipSpace,
	}, nil
}

// CreatePipeline builds (or returns the cached) hal.RenderPipeline for the
// given vertex entry point, fragment entry point, and color target state,
// keyed by the target's format. Re-requesting an already-built format
// returns the existing pipeline without creating a new one.
func (c *Cache) CreatePipeline(set ShaderSet, primitive gputypes.PrimitiveState, target gputypes.ColorTargetState) (hal.RenderPipeline, error) {
	if p, ok := c.pipelines[target.Format]; ok {
		return p, nil
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("pipelinecache.pipeline.%v", target.Format),
		Layout: c.pipeLayout,
		Vertex: hal.VertexState{
			Module:     c.vertexModule,
			EntryPoint: set.Vertex.EntryPoint,
			Buffers:    c.vertexLayout,
		},
		Primitive:    primitive,
		DepthStencil: c.depthFormat,
		Fragment: &hal.FragmentState{
			Module:     c.fragmentModule,
			EntryPoint: set.Fragment.EntryPoint,
			Targets:    []gputypes.ColorTargetState{target},
		},
	}

	pipeline, err := c.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("pipelinecache: CreateRenderPipeline: %w", err)
	}
	c.pipelines[target.Format] = pipeline
	return pipeline, nil
}

// BindGroupLayout returns the layout for the given binding set, or nil if
// no binding declared that set.
func (c *Cache) BindGroupLayout(set uint32) hal.BindGroupLayout { return c.setLayouts[set] }

// PipelineLayout returns the pipeline layout shared by every pipeline this
// cache builds.
func (c *Cache) PipelineLayout() hal.PipelineLayout { return c.pipeLayout }

// ViewConstantBuffer returns the buffer UpdateViewConstants writes into.
func (c *Cache) ViewConstantBuffer() hal.Buffer { return c.viewCB }

// ObjectConstantRingBuffer returns the ring allocator UpdateObjectConstants
// draws sub-allocations from. Reset it once per frame, after the previous
// frame's commands are known to have finished (the same point framesync
// signals via WaitForFrame), never mid-frame.
func (c *Cache) ObjectConstantRingBuffer() hal.RingBuffer { return c.objCB }

// UpdateViewConstants writes view's matrices into the view constant
// buffer, applying the Y-down clip-space fixup this cache was built with.
func (c *Cache) UpdateViewConstants(queue hal.Queue, view scene.ViewData) {
	vp := view.ViewProjection
	if c.yDown {
		vp.NegateRow(1)
	}

	var buf [ViewConstantsSize]byte
	off := 0
	off = putMat4(buf[:], off, vp)
	off = putMat4(buf[:], off, view.View)
	off = putMat4(buf[:], off, view.Projection)
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(view.CameraPosition.X))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(view.CameraPosition.Y))
	binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(view.CameraPosition.Z))
	binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(view.Time))

	queue.WriteBuffer(c.viewCB, 0, buf[:])
}

// UpdateObjectConstants sub-allocates one ObjectConstantsAlignment-sized
// region from the per-object ring buffer, writes world's matrix into it,
// and returns the allocation so the caller can bind it (with its GPUOffset)
// as a dynamic-offset constant buffer binding for the draw.
func (c *Cache) UpdateObjectConstants(world scene.Mat4) (hal.RingAllocation, error) {
	alloc := c.objCB.Allocate(ObjectConstantsAlignment)
	if !alloc.IsValid() {
		return alloc, fmt.Errorf("pipelinecache: object constant ring buffer exhausted")
	}
	putMat4(alloc.CPUAddress, 0, world)
	return alloc, nil
}

// ResetObjectConstants rotates the per-object ring buffer to frameIndex's
// region. Call once framesync confirms the frame that last used this
// region has finished on the GPU.
func (c *Cache) ResetObjectConstants(frameIndex uint32) { c.objCB.Reset(frameIndex) }

func putMat4(dst []byte, off int, m scene.Mat4) int {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(dst[off+i*4:], math.Float32bits(m[i]))
	}
	return off + 64
}

// Destroy releases every GPU resource this cache owns.
func (c *Cache) Destroy() {
	for _, p := range c.pipelines {
		c.device.DestroyRenderPipeline(p)
	}
	if c.pipeLayout != nil {
		c.device.DestroyPipelineLayout(c.pipeLayout)
	}
	for _, l := range c.setLayouts {
		c.device.DestroyBindGroupLayout(l)
	}
	if c.viewCB != nil {
		c.device.DestroyBuffer(c.viewCB)
	}
	if c.objCB != nil {
		c.objCB.Destroy()
	}
	if c.vertexModule != nil {
		c.device.DestroyShaderModule(c.vertexModule)
	}
	if c.fragmentModule != nil {
		c.device.DestroyShaderModule(c.fragmentModule)
	}
}
