package gpures

import (
	"github.com/fulcrumgfx/core/hal"
)

// ResourceID names a mesh or a texture registered with a Manager. Mesh IDs
// and texture IDs share no namespace; a caller tracks which space an ID
// came from.
type ResourceID uint64

// Residency describes whether a registered resource currently has a
// backing GPU allocation.
type Residency int

const (
	// ResidencyEvicted means no GPU memory is currently allocated; the
	// entry still remembers its CPU source and can be re-uploaded.
	ResidencyEvicted Residency = iota
	// ResidencyPending means an upload has been queued but not yet run.
	ResidencyPending
	// ResidencyResident means the GPU buffers/textures are live and usable.
	ResidencyResident
)

// Submesh is one indexed draw range within a mesh's shared vertex/index
// buffers.
type Submesh struct {
	IndexOffset uint32
	IndexCount  uint32
	BaseVertex  int32
}

// VertexStream identifies one of the (up to four) vertex attribute
// streams a mesh may carry, each backed by its own hal.Buffer so a
// pipeline only binds the streams its vertex shader actually reads.
type VertexStream int

const (
	StreamPosition VertexStream = iota
	StreamNormal
	StreamUV
	StreamTangent

	streamCount
)

// MeshSource is the CPU-side description of a mesh, supplied once at
// registration time. Vertex streams that are nil are simply absent from
// the mesh (e.g. a mesh with no tangents skips StreamTangent).
type MeshSource struct {
	VertexData [streamCount][]byte
	IndexData  []byte
	IndexIs32  bool
	Submeshes  []Submesh
}

// MeshGPUData is the GPU-resident form of a registered mesh.
type MeshGPUData struct {
	VertexBuffers [streamCount]hal.Buffer
	IndexBuffer   hal.Buffer
	IndexIs32     bool
	Submeshes     []Submesh
}

// TextureSource is the CPU-side description of a texture, supplied once
// at registration time.
type TextureSource struct {
	Width, Height uint32
	MipLevels     [][]byte // one entry per mip, mip 0 first
	Format        uint32   // gputypes.TextureFormat value; kept opaque here to avoid an import cycle with pipelinecache's format negotiation
}

// TextureGPUData is the GPU-resident form of a registered texture.
type TextureGPUData struct {
	Texture hal.Texture
	View    hal.TextureView
}

type meshEntry struct {
	source       MeshSource
	gpu          MeshGPUData
	residency    Residency
	lastUsed     uint64
	bytes        uint64
	inflightRefs int
}

type textureEntry struct {
	source       TextureSource
	gpu          TextureGPUData
	residency    Residency
	lastUsed     uint64
	bytes        uint64
	inflightRefs int
}
