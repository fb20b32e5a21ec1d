package rendergraph

import (
	"github.com/fulcrumgfx/core/hal"
	"github.com/gogpu/gputypes"
)

// ResourceState is the RenderGraph's unified per-subresource state. It is
// coarser-grained than hal's usage bitsets by design: barrier planning
// needs exactly one "current state" per subresource to diff against, not
// a set of simultaneously-valid usages.
type ResourceState int

const (
	StateUndefined ResourceState = iota
	StateCommon
	StateVertexConstantBuffer
	StateIndexBuffer
	StateRenderTarget
	StateUnorderedAccess
	StateDepthWrite
	StateDepthRead
	StateShaderResource
	StateCopySrc
	StateCopyDst
	StatePresent
)

// String returns a human-readable state name, used by the Graphviz export.
func (s ResourceState) String() string {
	switch s {
	case StateUndefined:
		return "Undefined"
	case StateCommon:
		return "Common"
	case StateVertexConstantBuffer:
		return "VertexConstantBuffer"
	case StateIndexBuffer:
		return "IndexBuffer"
	case StateRenderTarget:
		return "RenderTarget"
	case StateUnorderedAccess:
		return "UnorderedAccess"
	case StateDepthWrite:
		return "DepthWrite"
	case StateDepthRead:
		return "DepthRead"
	case StateShaderResource:
		return "ShaderResource"
	case StateCopySrc:
		return "CopySrc"
	case StateCopyDst:
		return "CopyDst"
	case StatePresent:
		return "Present"
	default:
		return "Unknown"
	}
}

// isWrite reports whether a state represents the pass producing into the
// resource (as opposed to only consuming it).
func (s ResourceState) isWrite() bool {
	switch s {
	case StateRenderTarget, StateUnorderedAccess, StateDepthWrite, StateCopyDst:
		return true
	default:
		return false
	}
}

func (s ResourceState) isBufferState() bool {
	switch s {
	case StateVertexConstantBuffer, StateIndexBuffer, StateUnorderedAccess,
		StateShaderResource, StateCopySrc, StateCopyDst, StateCommon, StateUndefined:
		return true
	default:
		return false
	}
}

func (s ResourceState) toBufferUsage() gputypes.BufferUsage {
	switch s {
	case StateVertexConstantBuffer:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageUniform
	case StateIndexBuffer:
		return gputypes.BufferUsageIndex
	case StateUnorderedAccess:
		return gputypes.BufferUsageStorage
	case StateShaderResource:
		return gputypes.BufferUsageStorage
	case StateCopySrc:
		return gputypes.BufferUsageCopySrc
	case StateCopyDst:
		return gputypes.BufferUsageCopyDst
	default:
		return 0
	}
}

func (s ResourceState) toTextureUsage() gputypes.TextureUsage {
	switch s {
	case StateRenderTarget:
		return gputypes.TextureUsageRenderAttachment
	case StateUnorderedAccess:
		return gputypes.TextureUsageStorageBinding
	case StateDepthWrite, StateDepthRead:
		return gputypes.TextureUsageRenderAttachment
	case StateShaderResource:
		return gputypes.TextureUsageTextureBinding
	case StateCopySrc:
		return gputypes.TextureUsageCopySrc
	case StateCopyDst:
		return gputypes.TextureUsageCopyDst
	case StatePresent:
		return 0
	default:
		return 0
	}
}

// PassType classifies what kind of command context a pass needs.
type PassType int

const (
	PassGraphics PassType = iota
	PassCompute
	PassCopy
)

// ShaderStageMask records which pipeline stages read a resource; it's
// stored with each access for information only (neither Stats nor Graphviz
// reports it) and doesn't affect the state a resource transitions to.
type ShaderStageMask uint32

const (
	StageVertex ShaderStageMask = 1 << iota
	StageFragment
	StageCompute
)

// AllMips addresses the whole resource rather than a single mip level in
// subresource-scoped accesses.
const AllMips uint32 = 0xFFFFFFFF

// SubresourceRange narrows an access or an exported handle to part of a
// texture. A zero-value range (MipCount 0) means "whole resource".
type SubresourceRange struct {
	BaseMip  uint32
	MipCount uint32
}

func (r SubresourceRange) mips() []uint32 {
	if r.MipCount == 0 {
		return []uint32{AllMips}
	}
	mips := make([]uint32, r.MipCount)
	for i := range mips {
		mips[i] = r.BaseMip + uint32(i)
	}
	return mips
}

// RGTextureHandle identifies a texture resource within a single graph's
// lifetime. It is a plain index, not an RHI object — the backing hal.Texture
// isn't created (or bound to an imported one) until Compile.
type RGTextureHandle struct {
	index int
}

// IsValid reports whether the handle refers to a real resource.
func (h RGTextureHandle) IsValid() bool { return h.index >= 0 }

// RGBufferHandle identifies a buffer resource within a single graph's lifetime.
type RGBufferHandle struct {
	index int
}

// IsValid reports whether the handle refers to a real resource.
func (h RGBufferHandle) IsValid() bool { return h.index >= 0 }

type resourceKind int

const (
	kindTransient resourceKind = iota
	kindImported
)

type textureAccess struct {
	passIndex int
	state     ResourceState
	stages    ShaderStageMask
	mip       uint32 // AllMips or a single level
	isWrite   bool
}

type bufferAccess struct {
	passIndex int
	state     ResourceState
	stages    ShaderStageMask
	isWrite   bool
}

type rgTextureResource struct {
	name        string
	kind        resourceKind
	desc        *hal.TextureDescriptor
	initial     ResourceState
	exportState *ResourceState
	accesses    []textureAccess

	// populated by Compile
	texture     hal.Texture
	view        hal.TextureView
	memReq      hal.MemoryRequirements
	heap        hal.Heap
	heapOffset  uint64
	aliased     bool
	firstUse    int
	lastUse     int
	usedAtAll   bool
}

type rgBufferResource struct {
	name        string
	kind        resourceKind
	desc        *hal.BufferDescriptor
	initial     ResourceState
	exportState *ResourceState
	accesses    []bufferAccess

	buffer     hal.Buffer
	memReq     hal.MemoryRequirements
	heap       hal.Heap
	heapOffset uint64
	aliased    bool
	firstUse   int
	lastUse    int
	usedAtAll  bool
}

type rgPass struct {
	name     string
	ptype    PassType
	priority int
	setup    func(*Builder)
	execute  func(*ExecuteContext)

	textureReads  []int // texture resource indices
	textureWrites []int
	bufferReads   []int
	bufferWrites  []int

	culled bool
}
