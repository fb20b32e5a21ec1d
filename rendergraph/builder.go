package rendergraph

// Builder records one pass's resource accesses during Compile's setup
// walk. A Builder is only valid for the duration of its owning pass's
// setup callback.
type Builder struct {
	graph     *Graph
	passIndex int
}

// ReadTexture records a read-only access to the whole texture (all mips)
// in the given shader stages, typically StateShaderResource.
func (b *Builder) ReadTexture(h RGTextureHandle, state ResourceState, stages ShaderStageMask) {
	b.readTextureMip(h, state, stages, AllMips)
}

// ReadMip narrows a read to a single mip level, letting a pass that
// downsamples mip N into mip N+1 avoid a false write-after-write hazard
// against sibling levels.
func (b *Builder) ReadMip(h RGTextureHandle, state ResourceState, stages ShaderStageMask, mip uint32) {
	b.readTextureMip(h, state, stages, mip)
}

func (b *Builder) readTextureMip(h RGTextureHandle, state ResourceState, stages ShaderStageMask, mip uint32) {
	res := b.texture(h)
	if res == nil {
		return
	}
	res.accesses = append(res.accesses, textureAccess{
		passIndex: b.passIndex,
		state:     state,
		stages:    stages,
		mip:       mip,
		isWrite:   false,
	})
	res.usedAtAll = true
	pass := b.graph.passes[b.passIndex]
	pass.textureReads = appendUnique(pass.textureReads, h.index)
}

// WriteTexture records a write access to the whole texture, typically
// StateRenderTarget or StateUnorderedAccess.
func (b *Builder) WriteTexture(h RGTextureHandle, state ResourceState, stages ShaderStageMask) {
	b.writeTextureMip(h, state, stages, AllMips)
}

// WriteMip narrows a write to a single mip level.
func (b *Builder) WriteMip(h RGTextureHandle, state ResourceState, stages ShaderStageMask, mip uint32) {
	b.writeTextureMip(h, state, stages, mip)
}

func (b *Builder) writeTextureMip(h RGTextureHandle, state ResourceState, stages ShaderStageMask, mip uint32) {
	res := b.texture(h)
	if res == nil {
		return
	}
	res.accesses = append(res.accesses, textureAccess{
		passIndex: b.passIndex,
		state:     state,
		stages:    stages,
		mip:       mip,
		isWrite:   true,
	})
	res.usedAtAll = true
	pass := b.graph.passes[b.passIndex]
	pass.textureWrites = appendUnique(pass.textureWrites, h.index)
}

// ReadWriteTexture records both a read and a write to the whole resource
// in one call (e.g. a compute pass that reads and then stores back into
// the same UAV).
func (b *Builder) ReadWriteTexture(h RGTextureHandle, state ResourceState, stages ShaderStageMask) {
	b.ReadTexture(h, state, stages)
	b.WriteTexture(h, state, stages)
}

// SetDepthStencil is sugar for a depth access recorded against the whole
// resource: WriteTexture with StateDepthWrite, or ReadTexture with
// StateDepthRead when readOnly is true.
func (b *Builder) SetDepthStencil(h RGTextureHandle, readOnly bool) {
	state := StateDepthWrite
	if readOnly {
		state = StateDepthRead
	}
	if readOnly {
		b.ReadTexture(h, state, StageFragment)
	} else {
		b.WriteTexture(h, state, StageFragment)
	}
}

// ReadBuffer records a read-only access to a buffer resource.
func (b *Builder) ReadBuffer(h RGBufferHandle, state ResourceState, stages ShaderStageMask) {
	res := b.buffer(h)
	if res == nil {
		return
	}
	res.accesses = append(res.accesses, bufferAccess{
		passIndex: b.passIndex,
		state:     state,
		stages:    stages,
		isWrite:   false,
	})
	res.usedAtAll = true
	pass := b.graph.passes[b.passIndex]
	pass.bufferReads = appendUnique(pass.bufferReads, h.index)
}

// WriteBuffer records a write access to a buffer resource.
func (b *Builder) WriteBuffer(h RGBufferHandle, state ResourceState, stages ShaderStageMask) {
	res := b.buffer(h)
	if res == nil {
		return
	}
	res.accesses = append(res.accesses, bufferAccess{
		passIndex: b.passIndex,
		state:     state,
		stages:    stages,
		isWrite:   true,
	})
	res.usedAtAll = true
	pass := b.graph.passes[b.passIndex]
	pass.bufferWrites = appendUnique(pass.bufferWrites, h.index)
}

// ReadWriteBuffer records both a read and write to a buffer in one call.
func (b *Builder) ReadWriteBuffer(h RGBufferHandle, state ResourceState, stages ShaderStageMask) {
	b.ReadBuffer(h, state, stages)
	b.WriteBuffer(h, state, stages)
}

func (b *Builder) texture(h RGTextureHandle) *rgTextureResource {
	if h.index < 0 || h.index >= len(b.graph.textures) {
		return nil
	}
	return b.graph.textures[h.index]
}

func (b *Builder) buffer(h RGBufferHandle) *rgBufferResource {
	if h.index < 0 || h.index >= len(b.graph.buffers) {
		return nil
	}
	return b.graph.buffers[h.index]
}

func appendUnique(slice []int, v int) []int {
	for _, existing := range slice {
		if existing == v {
			return slice
		}
	}
	return append(slice, v)
}
