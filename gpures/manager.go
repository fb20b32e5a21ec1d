package gpures

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fulcrumgfx/core/hal"
	"github.com/gogpu/gputypes"
)

// Manager owns every mesh and texture the renderer knows about, and
// decides which of them currently have GPU backing. It is safe for
// concurrent use; the render thread typically calls ProcessPendingUploads
// and MarkUsed while a loader goroutine calls RegisterMesh/RequestUpload.
type Manager struct {
	device hal.Device
	queue  hal.Queue

	mu       sync.RWMutex
	meshes   map[ResourceID]*meshEntry
	textures map[ResourceID]*textureEntry
	nextID   ResourceID

	pending    uploadQueue
	pendingSeq uint64

	// memoryBudget is the soft ceiling EvictUnused enforces once its
	// threshold sweep is done; 0 means unlimited (threshold is the only
	// eviction rule).
	memoryBudget uint64
}

// SetMemoryBudget sets the total resident-byte ceiling EvictUnused tries
// to keep usedMemory() under once its threshold sweep finishes. 0 (the
// default) disables budget-driven eviction entirely.
func (m *Manager) SetMemoryBudget(bytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memoryBudget = bytes
}

// UsedMemory returns the total byte count of every currently resident
// mesh and texture.
func (m *Manager) UsedMemory() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usedMemoryLocked()
}

func (m *Manager) usedMemoryLocked() uint64 {
	var total uint64
	for _, e := range m.meshes {
		if e.residency == ResidencyResident {
			total += e.bytes
		}
	}
	for _, e := range m.textures {
		if e.residency == ResidencyResident {
			total += e.bytes
		}
	}
	return total
}

// New creates a Manager that uploads through device/queue.
func New(device hal.Device, queue hal.Queue) *Manager {
	m := &Manager{
		device:   device,
		queue:    queue,
		meshes:   make(map[ResourceID]*meshEntry),
		textures: make(map[ResourceID]*textureEntry),
	}
	heap.Init(&m.pending)
	return m
}

// RegisterMesh records a mesh's CPU source and returns its ID. The mesh
// starts evicted; call RequestUpload to schedule it for residency.
func (m *Manager) RegisterMesh(source MeshSource) ResourceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.meshes[id] = &meshEntry{source: source, residency: ResidencyEvicted}
	return id
}

// RegisterTexture records a texture's CPU source and returns its ID.
func (m *Manager) RegisterTexture(source TextureSource) ResourceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.textures[id] = &textureEntry{source: source, residency: ResidencyEvicted}
	return id
}

// RequestUpload schedules id for upload at the given priority. A
// resource that is already resident or already pending is left alone.
func (m *Manager) RequestUpload(id ResourceID, kind ResourceKind, priority UploadPriority) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case KindMesh:
		e, ok := m.meshes[id]
		if !ok {
			return fmt.Errorf("gpures: unknown mesh id %d", id)
		}
		if e.residency != ResidencyEvicted {
			return nil
		}
		e.residency = ResidencyPending
	case KindTexture:
		e, ok := m.textures[id]
		if !ok {
			return fmt.Errorf("gpures: unknown texture id %d", id)
		}
		if e.residency != ResidencyEvicted {
			return nil
		}
		e.residency = ResidencyPending
	default:
		return fmt.Errorf("gpures: unknown resource kind %d", kind)
	}

	m.pendingSeq++
	heap.Push(&m.pending, &uploadRequest{id: id, kind: kind, priority: priority, seq: m.pendingSeq})
	return nil
}

// UploadImmediate uploads id synchronously, bypassing the priority queue
// entirely. Used for resources the very next draw call needs (e.g. a
// mesh streamed in this frame with no time to wait for its turn).
func (m *Manager) UploadImmediate(id ResourceID, kind ResourceKind) error {
	switch kind {
	case KindMesh:
		return m.uploadMesh(id)
	case KindTexture:
		return m.uploadTexture(id)
	default:
		return fmt.Errorf("gpures: unknown resource kind %d", kind)
	}
}

// ProcessPendingUploads drains the upload queue in priority order until
// timeBudget elapses. At least one pending upload is always attempted
// (if the queue is non-empty), even if timeBudget is zero, so the queue
// always makes forward progress.
func (m *Manager) ProcessPendingUploads(timeBudget time.Duration) (uploaded int, err error) {
	deadline := time.Now().Add(timeBudget)

	for {
		m.mu.Lock()
		if m.pending.Len() == 0 {
			m.mu.Unlock()
			break
		}
		req := heap.Pop(&m.pending).(*uploadRequest)
		m.mu.Unlock()

		var upErr error
		switch req.kind {
		case KindMesh:
			upErr = m.uploadMesh(req.id)
		case KindTexture:
			upErr = m.uploadTexture(req.id)
		}
		if upErr != nil {
			err = upErr
		}
		uploaded++

		if time.Now().After(deadline) {
			break
		}
	}
	return uploaded, err
}

// AddInflightRef increments id's in-flight reference count. Call once per
// frame that submits GPU work reading id, before that work is submitted —
// this is what keeps EvictUnused from freeing a resource a frame still in
// flight depends on, even past its eviction threshold.
func (m *Manager) AddInflightRef(id ResourceID, kind ResourceKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case KindMesh:
		if e, ok := m.meshes[id]; ok {
			e.inflightRefs++
		}
	case KindTexture:
		if e, ok := m.textures[id]; ok {
			e.inflightRefs++
		}
	}
}

// ReleaseInflightRef decrements id's in-flight reference count. Call once
// the frame that called AddInflightRef has had its fence signal (the
// submission it was part of has completed on the GPU).
func (m *Manager) ReleaseInflightRef(id ResourceID, kind ResourceKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case KindMesh:
		if e, ok := m.meshes[id]; ok && e.inflightRefs > 0 {
			e.inflightRefs--
		}
	case KindTexture:
		if e, ok := m.textures[id]; ok && e.inflightRefs > 0 {
			e.inflightRefs--
		}
	}
}

// MarkUsed records that id was drawn in currentFrame, protecting it from
// EvictUnused.
func (m *Manager) MarkUsed(id ResourceID, kind ResourceKind, currentFrame uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case KindMesh:
		if e, ok := m.meshes[id]; ok {
			e.lastUsed = currentFrame
		}
	case KindTexture:
		if e, ok := m.textures[id]; ok {
			e.lastUsed = currentFrame
		}
	}
}

// EvictUnused destroys the GPU backing of every resident resource whose
// lastUsed frame is more than threshold frames behind currentFrame,
// unless it has an in-flight reference (inflightRefs > 0). Entries whose
// CPU source is still registered return to ResidencyEvicted rather than
// being forgotten, so a later RequestUpload re-creates them.
//
// If a memory budget is set (SetMemoryBudget) and usedMemory still
// exceeds it once the threshold sweep is done, eviction continues past
// the threshold rule, taking the least-recently-used non-in-flight
// resident resources (regardless of how recently they were used) until
// the budget is met or nothing evictable remains.
func (m *Manager) EvictUnused(currentFrame, threshold uint64) (freedBytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	isStale := func(lastUsed uint64) bool {
		if currentFrame < threshold {
			return false
		}
		return lastUsed < currentFrame-threshold
	}

	for _, e := range m.meshes {
		if e.residency != ResidencyResident || e.inflightRefs > 0 || !isStale(e.lastUsed) {
			continue
		}
		m.destroyMeshGPU(e)
		freedBytes += e.bytes
		e.bytes = 0
		e.residency = ResidencyEvicted
	}

	for _, e := range m.textures {
		if e.residency != ResidencyResident || e.inflightRefs > 0 || !isStale(e.lastUsed) {
			continue
		}
		m.destroyTextureGPU(e)
		freedBytes += e.bytes
		e.bytes = 0
		e.residency = ResidencyEvicted
	}

	if m.memoryBudget == 0 || m.usedMemoryLocked() <= m.memoryBudget {
		return freedBytes
	}

	type lruCandidate struct {
		lastUsed uint64
		isMesh   bool
		meshE    *meshEntry
		texE     *textureEntry
	}
	var candidates []lruCandidate
	for _, e := range m.meshes {
		if e.residency == ResidencyResident && e.inflightRefs == 0 {
			candidates = append(candidates, lruCandidate{lastUsed: e.lastUsed, isMesh: true, meshE: e})
		}
	}
	for _, e := range m.textures {
		if e.residency == ResidencyResident && e.inflightRefs == 0 {
			candidates = append(candidates, lruCandidate{lastUsed: e.lastUsed, texE: e})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].lastUsed < candidates[j].lastUsed })

	for _, c := range candidates {
		if m.usedMemoryLocked() <= m.memoryBudget {
			break
		}
		if c.isMesh {
			freedBytes += c.meshE.bytes
			m.destroyMeshGPU(c.meshE)
			c.meshE.bytes = 0
			c.meshE.residency = ResidencyEvicted
		} else {
			freedBytes += c.texE.bytes
			m.destroyTextureGPU(c.texE)
			c.texE.bytes = 0
			c.texE.residency = ResidencyEvicted
		}
	}

	return freedBytes
}

// Mesh returns the GPU data for id, and whether it is currently resident.
func (m *Manager) Mesh(id ResourceID) (MeshGPUData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.meshes[id]
	if !ok || e.residency != ResidencyResident {
		return MeshGPUData{}, false
	}
	return e.gpu, true
}

// Texture returns the GPU data for id, and whether it is currently resident.
func (m *Manager) Texture(id ResourceID) (TextureGPUData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.textures[id]
	if !ok || e.residency != ResidencyResident {
		return TextureGPUData{}, false
	}
	return e.gpu, true
}

func (m *Manager) uploadMesh(id ResourceID) error {
	m.mu.Lock()
	e, ok := m.meshes[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("gpures: unknown mesh id %d", id)
	}

	var gpu MeshGPUData
	gpu.IndexIs32 = e.source.IndexIs32
	gpu.Submeshes = e.source.Submeshes

	var totalBytes uint64
	for stream, data := range e.source.VertexData {
		if len(data) == 0 {
			continue
		}
		buf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("mesh-vertex-stream-%d", stream),
			Size:  uint64(len(data)),
			Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpures: create vertex buffer: %w", err)
		}
		m.queue.WriteBuffer(buf, 0, data)
		gpu.VertexBuffers[stream] = buf
		totalBytes += uint64(len(data))
	}

	if len(e.source.IndexData) > 0 {
		buf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "mesh-index",
			Size:  uint64(len(e.source.IndexData)),
			Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpures: create index buffer: %w", err)
		}
		m.queue.WriteBuffer(buf, 0, e.source.IndexData)
		gpu.IndexBuffer = buf
		totalBytes += uint64(len(e.source.IndexData))
	}

	m.mu.Lock()
	e.gpu = gpu
	e.bytes = totalBytes
	e.residency = ResidencyResident
	m.mu.Unlock()
	return nil
}

func (m *Manager) uploadTexture(id ResourceID) error {
	m.mu.Lock()
	e, ok := m.textures[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("gpures: unknown texture id %d", id)
	}

	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "texture",
		Size:          hal.Extent3D{Width: e.source.Width, Height: e.source.Height, DepthOrArrayLayers: 1},
		MipLevelCount: uint32(len(e.source.MipLevels)),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormat(e.source.Format),
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpures: create texture: %w", err)
	}

	var totalBytes uint64
	w, h := e.source.Width, e.source.Height
	for mip, data := range e.source.MipLevels {
		if len(data) == 0 {
			continue
		}
		bytesPerRow := uint32(len(data)) / max1(h)
		m.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: tex, MipLevel: uint32(mip), Aspect: gputypes.TextureAspectAll},
			data,
			&hal.ImageDataLayout{BytesPerRow: bytesPerRow},
			&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
		totalBytes += uint64(len(data))
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}

	view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Format:    gputypes.TextureFormat(e.source.Format),
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
		MipLevelCount: uint32(len(e.source.MipLevels)),
		ArrayLayerCount: 1,
	})
	if err != nil {
		m.device.DestroyTexture(tex)
		return fmt.Errorf("gpures: create texture view: %w", err)
	}

	m.mu.Lock()
	e.gpu = TextureGPUData{Texture: tex, View: view}
	e.bytes = totalBytes
	e.residency = ResidencyResident
	m.mu.Unlock()
	return nil
}

func (m *Manager) destroyMeshGPU(e *meshEntry) {
	for _, buf := range e.gpu.VertexBuffers {
		if buf != nil {
			m.device.DestroyBuffer(buf)
		}
	}
	if e.gpu.IndexBuffer != nil {
		m.device.DestroyBuffer(e.gpu.IndexBuffer)
	}
	e.gpu = MeshGPUData{}
}

func (m *Manager) destroyTextureGPU(e *textureEntry) {
	if e.gpu.View != nil {
		m.device.DestroyTextureView(e.gpu.View)
	}
	if e.gpu.Texture != nil {
		m.device.DestroyTexture(e.gpu.Texture)
	}
	e.gpu = TextureGPUData{}
}

func max1(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}
