package software

import (
	"fmt"
	"time"

	"github.com/fulcrumgfx/core/hal"
)

// Device implements hal.Device for the software backend.
type Device struct{}

// CreateBuffer creates a software buffer with real data storage.
func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	// Always allocate real storage for software backend
	data := make([]byte, desc.Size)
	return &Buffer{
		data:  data,
		size:  desc.Size,
		usage: desc.Usage,
	}, nil
}

// DestroyBuffer is a no-op (Go GC handles cleanup).
func (d *Device) DestroyBuffer(_ hal.Buffer) {}

// CreateTexture creates a software texture with real pixel storage.
func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	// Calculate total size needed for texture data
	// Simple calculation: width * height * depth * bytesPerPixel
	// Assuming 4 bytes per pixel (RGBA8) for now
	bytesPerPixel := uint64(4)
	totalSize := uint64(desc.Size.Width) * uint64(desc.Size.Height) * uint64(desc.Size.DepthOrArrayLayers) * bytesPerPixel

	return &Texture{
		data:          make([]byte, totalSize),
		width:         desc.Size.Width,
		height:        desc.Size.Height,
		depth:         desc.Size.DepthOrArrayLayers,
		format:        desc.Format,
		usage:         desc.Usage,
		mipLevelCount: desc.MipLevelCount,
		sampleCount:   desc.SampleCount,
	}, nil
}

// DestroyTexture is a no-op (Go GC handles cleanup).
func (d *Device) DestroyTexture(_ hal.Texture) {}

// CreateTextureView creates a software texture view.
func (d *Device) CreateTextureView(texture hal.Texture, _ *hal.TextureViewDescriptor) (hal.TextureView, error) {
	// Views in software backend just reference the original texture
	if tex, ok := texture.(*Texture); ok {
		return &TextureView{texture: tex}, nil
	}
	return &Resource{}, nil
}

// DestroyTextureView is a no-op.
func (d *Device) DestroyTextureView(_ hal.TextureView) {}

// CreateSampler creates a software sampler.
func (d *Device) CreateSampler(_ *hal.SamplerDescriptor) (hal.Sampler, error) {
	return &Resource{}, nil
}

// DestroySampler is a no-op.
func (d *Device) DestroySampler(_ hal.Sampler) {}

// CreateBindGroupLayout creates a software bind group layout.
func (d *Device) CreateBindGroupLayout(_ *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	return &Resource{}, nil
}

// DestroyBindGroupLayout is a no-op.
func (d *Device) DestroyBindGroupLayout(_ hal.BindGroupLayout) {}

// CreateBindGroup creates a software bind group.
func (d *Device) CreateBindGroup(_ *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	return &Resource{}, nil
}

// DestroyBindGroup is a no-op.
func (d *Device) DestroyBindGroup(_ hal.BindGroup) {}

// CreatePipelineLayout creates a software pipeline layout.
func (d *Device) CreatePipelineLayout(_ *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	return &Resource{}, nil
}

// DestroyPipelineLayout is a no-op.
func (d *Device) DestroyPipelineLayout(_ hal.PipelineLayout) {}

// CreateShaderModule creates a software shader module.
func (d *Device) CreateShaderModule(_ *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	return &Resource{}, nil
}

// DestroyShaderModule is a no-op.
func (d *Device) DestroyShaderModule(_ hal.ShaderModule) {}

// CreateRenderPipeline creates a software render pipeline, capturing the
// fixed-function and vertex-layout state the rasterizer needs (see
// RenderPipeline's doc comment for why shader bytecode itself isn't
// interpreted).
func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	p := &RenderPipeline{
		cullMode:  desc.Primitive.CullMode,
		frontFace: desc.Primitive.FrontFace,
	}
	if len(desc.Vertex.Buffers) > 0 {
		p.vertexLayout = desc.Vertex.Buffers[0]
		p.hasLayout = true
	}
	if desc.DepthStencil != nil {
		p.depthTest = true
		p.depthWrite = desc.DepthStencil.DepthWriteEnabled
		p.depthCompare = desc.DepthStencil.DepthCompare
	}
	if desc.Fragment != nil {
		for _, target := range desc.Fragment.Targets {
			if target.Blend != nil {
				p.blend = true
			}
		}
	}
	return p, nil
}

// DestroyRenderPipeline is a no-op.
func (d *Device) DestroyRenderPipeline(_ hal.RenderPipeline) {}

// CreateComputePipeline returns an error as compute is not supported.
func (d *Device) CreateComputePipeline(_ *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	return nil, fmt.Errorf("compute pipelines not supported in software backend")
}

// DestroyComputePipeline is a no-op.
func (d *Device) DestroyComputePipeline(_ hal.ComputePipeline) {}

// CreateCommandEncoder creates a software command encoder.
func (d *Device) CreateCommandEncoder(_ *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	return &CommandEncoder{}, nil
}

// CreateFence creates a software fence with atomic counter.
func (d *Device) CreateFence() (hal.Fence, error) {
	return &Fence{}, nil
}

// DestroyFence is a no-op.
func (d *Device) DestroyFence(_ hal.Fence) {}

// Wait simulates waiting for a fence value.
// Returns immediately without honoring the timeout: true if the fence has
// reached value, false otherwise.
func (d *Device) Wait(fence hal.Fence, value uint64, _ time.Duration) (bool, error) {
	f, ok := fence.(*Fence)
	if !ok {
		return true, nil
	}
	// Check if fence has reached the value
	return f.value.Load() >= value, nil
}

// CreateHeap allocates a heap backed by a plain byte slice.
func (d *Device) CreateHeap(desc *hal.HeapDescriptor) (hal.Heap, error) {
	return &Heap{size: desc.Size}, nil
}

// DestroyHeap is a no-op (Go GC handles cleanup).
func (d *Device) DestroyHeap(_ hal.Heap) {}

// GetBufferMemoryRequirements reports the buffer's size with no padding and
// a fixed 16-byte alignment.
func (d *Device) GetBufferMemoryRequirements(desc *hal.BufferDescriptor) hal.MemoryRequirements {
	return hal.MemoryRequirements{Size: desc.Size, Alignment: 16}
}

// GetTextureMemoryRequirements reports the texture's raw RGBA8 byte size.
func (d *Device) GetTextureMemoryRequirements(desc *hal.TextureDescriptor) hal.MemoryRequirements {
	const bytesPerPixel = uint64(4)
	size := uint64(desc.Size.Width) * uint64(desc.Size.Height) * uint64(desc.Size.DepthOrArrayLayers) * bytesPerPixel
	return hal.MemoryRequirements{Size: size, Alignment: 256}
}

// CreateQueryPool creates a CPU-backed query pool.
func (d *Device) CreateQueryPool(desc *hal.QueryPoolDescriptor) (hal.QueryPool, error) {
	return &QueryPool{kind: desc.Type, count: desc.Count, results: make([]uint64, desc.Count)}, nil
}

// DestroyQueryPool is a no-op.
func (d *Device) DestroyQueryPool(_ hal.QueryPool) {}

// CreateStagingBuffer creates a host-visible buffer for one-shot uploads.
func (d *Device) CreateStagingBuffer(size uint64) (hal.StagingBuffer, error) {
	return &StagingBuffer{data: make([]byte, size)}, nil
}

// CreateRingBuffer creates a per-frame ring allocator over regionCount
// equally sized regions of a totalSize backing buffer.
func (d *Device) CreateRingBuffer(totalSize uint64, regionCount uint32) (hal.RingBuffer, error) {
	if regionCount == 0 {
		return nil, fmt.Errorf("software: CreateRingBuffer: regionCount must be > 0")
	}
	regionSize := totalSize / uint64(regionCount)
	backing := &Buffer{data: make([]byte, totalSize), size: totalSize}
	regions := make([][]byte, regionCount)
	for i := range regions {
		start := uint64(i) * regionSize
		regions[i] = backing.data[start : start+regionSize]
	}
	return &RingBuffer{regions: regions, regionSize: regionSize, backing: backing}, nil
}

// Capabilities reports the software backend's static feature set.
func (d *Device) Capabilities() hal.Capabilities {
	return hal.Capabilities{}
}

// MemoryStats reports current memory usage. The software backend has no
// real device budget, so it reports zero usage against an unbounded budget.
func (d *Device) MemoryStats() hal.MemoryStats {
	return hal.MemoryStats{BudgetBytes: 0, UsageBytes: 0}
}

// WaitIdle returns immediately: the software rasterizer executes
// Queue.Submit synchronously on the calling goroutine, so there is never
// any in-flight work left to drain.
func (d *Device) WaitIdle() error { return nil }

// Destroy is a no-op for the software device.
func (d *Device) Destroy() {}
