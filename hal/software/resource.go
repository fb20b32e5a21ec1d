package software

import (
	"sync"
	"sync/atomic"

	"github.com/fulcrumgfx/core/hal"
	"github.com/gogpu/gputypes"
)

// Resource is a placeholder implementation for most HAL resource types.
// It implements the hal.Resource interface with a no-op Destroy method.
type Resource struct{}

// Destroy is a no-op.
func (r *Resource) Destroy() {}

// Buffer implements hal.Buffer with real data storage.
// All software buffers store their data in memory.
type Buffer struct {
	Resource
	data  []byte
	size  uint64
	usage gputypes.BufferUsage
	mu    sync.RWMutex // Protects data access
}

// GetData returns a copy of the buffer data (thread-safe).
func (b *Buffer) GetData() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]byte, len(b.data))
	copy(result, b.data)
	return result
}

// WriteData writes data to the buffer (thread-safe).
func (b *Buffer) WriteData(offset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.data[offset:], data)
}

// Texture implements hal.Texture with real pixel storage.
type Texture struct {
	Resource
	data          []byte
	width         uint32
	height        uint32
	depth         uint32
	format        gputypes.TextureFormat
	usage         gputypes.TextureUsage
	mipLevelCount uint32
	sampleCount   uint32
	mu            sync.RWMutex // Protects data access
}

// GetData returns a copy of the texture data (thread-safe).
func (t *Texture) GetData() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]byte, len(t.data))
	copy(result, t.data)
	return result
}

// WriteData writes data to the texture (thread-safe).
func (t *Texture) WriteData(offset uint64, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	copy(t.data[offset:], data)
}

// Clear fills the texture with a color value.
func (t *Texture) Clear(color gputypes.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Simple RGBA8 clear (4 bytes per pixel)
	r := uint8(color.R * 255)
	g := uint8(color.G * 255)
	b := uint8(color.B * 255)
	a := uint8(color.A * 255)

	for i := 0; i < len(t.data); i += 4 {
		t.data[i+0] = r
		t.data[i+1] = g
		t.data[i+2] = b
		t.data[i+3] = a
	}
}

// TextureView implements hal.TextureView.
// In software backend, views just reference the original texture.
type TextureView struct {
	Resource
	texture *Texture
}

// Surface implements hal.Surface for the software backend.
type Surface struct {
	Resource
	configured  bool
	width       uint32
	height      uint32
	format      gputypes.TextureFormat
	framebuffer []byte
	mu          sync.RWMutex // Protects framebuffer access
	presentMode hal.PresentMode
	alphaMode   hal.CompositeAlphaMode
}

// Configure configures the surface with the given settings.
//
// Returns hal.ErrZeroArea if width or height is zero.
// This commonly happens when the window is minimized or not yet fully visible.
// Wait until the window has valid dimensions before calling Configure again.
func (s *Surface) Configure(_ hal.Device, config *hal.SurfaceConfiguration) error {
	// Validate dimensions first (before any side effects).
	// This matches wgpu-core behavior which returns ConfigureSurfaceError::ZeroArea.
	if config.Width == 0 || config.Height == 0 {
		return hal.ErrZeroArea
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.configured = true
	s.width = config.Width
	s.height = config.Height
	s.format = config.Format
	s.presentMode = config.PresentMode
	s.alphaMode = config.AlphaMode

	// Allocate framebuffer (assuming 4 bytes per pixel - RGBA8)
	size := int(config.Width) * int(config.Height) * 4
	s.framebuffer = make([]byte, size)

	return nil
}

// Unconfigure removes the surface configuration.
func (s *Surface) Unconfigure(_ hal.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configured = false
	s.framebuffer = nil
}

// AcquireTexture returns a surface texture backed by the framebuffer.
func (s *Surface) AcquireTexture(_ hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &hal.AcquiredSurfaceTexture{
		Texture: &SurfaceTexture{
			surface: s,
			Texture: Texture{
				data:   s.framebuffer,
				width:  s.width,
				height: s.height,
				depth:  1,
				format: s.format,
				usage:  gputypes.TextureUsageRenderAttachment,
			},
		},
		Suboptimal: false,
	}, nil
}

// DiscardTexture is a no-op (framebuffer stays allocated).
func (s *Surface) DiscardTexture(_ hal.SurfaceTexture) {}

// GetFramebuffer returns a copy of the current framebuffer data (thread-safe).
// This is the key method for reading rendered results in software backend.
func (s *Surface) GetFramebuffer() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.framebuffer == nil {
		return nil
	}

	result := make([]byte, len(s.framebuffer))
	copy(result, s.framebuffer)
	return result
}

// SurfaceTexture implements hal.SurfaceTexture.
// It shares the framebuffer with the surface.
type SurfaceTexture struct {
	Texture
	surface *Surface
}

// RenderPipeline captures the state the software rasterizer needs to
// interpret vertex data and apply fixed-function render state. Real shader
// bytecode execution is out of scope for a CPU backend (the RHI contract
// delivers opaque bytecode blobs, spec §6); instead the first vertex
// buffer's layout and the depth/blend/cull state drive a fixed position +
// vertex-color rasterization path via raster.Pipeline.
type RenderPipeline struct {
	Resource
	vertexLayout gputypes.VertexBufferLayout
	hasLayout    bool
	cullMode     gputypes.CullMode
	frontFace    gputypes.FrontFace
	depthTest    bool
	depthWrite   bool
	depthCompare gputypes.CompareFunction
	blend        bool
}

// Fence implements hal.Fence with an atomic counter for synchronization.
type Fence struct {
	Resource
	value atomic.Uint64
}

// Heap implements hal.Heap as a plain byte slice. Placed buffers and
// textures in the software backend don't actually alias into it (each
// keeps its own Go slice); the heap exists so size accounting and the
// RenderGraph aliasing path have something real to allocate and destroy.
type Heap struct {
	Resource
	size uint64
}

// Size returns the heap's total size in bytes.
func (h *Heap) Size() uint64 { return h.size }

// QueryPool implements hal.QueryPool with CPU-recorded results.
// Timestamps are recorded via time.Now(); occlusion queries count draws
// issued while the query was active.
type QueryPool struct {
	Resource
	mu      sync.Mutex
	kind    hal.QueryType
	count   uint32
	results []uint64
}

// Type reports the kind of query this pool holds.
func (q *QueryPool) Type() hal.QueryType { return q.kind }

// Count is the number of queries in the pool.
func (q *QueryPool) Count() uint32 { return q.count }

func (q *QueryPool) write(index uint32, value uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if int(index) < len(q.results) {
		q.results[index] = value
	}
}

func (q *QueryPool) read(first, count uint32) []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uint64, count)
	copy(out, q.results[first:first+count])
	return out
}

// StagingBuffer implements hal.StagingBuffer over a plain byte slice.
type StagingBuffer struct {
	Resource
	data   []byte
	mapped bool
}

// Map returns a CPU-visible slice of the buffer's contents.
func (s *StagingBuffer) Map() ([]byte, error) {
	s.mapped = true
	return s.data, nil
}

// Unmap marks the buffer unmapped. Writes through the slice Map returned are
// already in the buffer; that slice still aliases the buffer's storage.
func (s *StagingBuffer) Unmap() { s.mapped = false }

// Size is the buffer's size in bytes.
func (s *StagingBuffer) Size() uint64 { return uint64(len(s.data)) }

// RingBuffer implements hal.RingBuffer by bump-allocating out of
// regionCount equally sized slices of a single backing buffer.
type RingBuffer struct {
	regions    [][]byte
	regionSize uint64
	active     int
	cursor     uint64
	backing    *Buffer
}

// Allocate serves an aligned block from the active region.
func (r *RingBuffer) Allocate(size uint64) hal.RingAllocation {
	const alignment = 256
	aligned := (r.cursor + alignment - 1) &^ (alignment - 1)
	if aligned+size > r.regionSize {
		return hal.RingAllocation{}
	}
	region := r.regions[r.active]
	base := uint64(r.active)*r.regionSize + aligned
	r.cursor = aligned + size
	return hal.RingAllocation{
		CPUAddress: region[aligned : aligned+size],
		GPUOffset:  base,
		Size:       size,
		Buffer:     r.backing,
	}
}

// Reset rotates the active region to frameIndex % regionCount.
func (r *RingBuffer) Reset(frameIndex uint32) {
	r.active = int(frameIndex) % len(r.regions)
	r.cursor = 0
}

// Destroy releases the backing buffer.
func (r *RingBuffer) Destroy() {}
