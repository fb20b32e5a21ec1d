package software

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/hal/software/raster"
	"github.com/gogpu/gputypes"
)

// CommandEncoder implements hal.CommandEncoder for the software backend.
type CommandEncoder struct {
	eventDepth    int
	activeQuery   *QueryPool
	activeQueryAt uint32
	drawsInQuery  uint64
}

// BeginEncoding is a no-op.
func (c *CommandEncoder) BeginEncoding(_ string) error {
	return nil
}

// EndEncoding returns a placeholder command buffer.
func (c *CommandEncoder) EndEncoding() (hal.CommandBuffer, error) {
	return &Resource{}, nil
}

// DiscardEncoding is a no-op.
func (c *CommandEncoder) DiscardEncoding() {}

// ResetAll is a no-op.
func (c *CommandEncoder) ResetAll(_ []hal.CommandBuffer) {}

// TransitionBuffers is a no-op (software backend doesn't need explicit transitions).
func (c *CommandEncoder) TransitionBuffers(_ []hal.BufferBarrier) {}

// TransitionTextures is a no-op (software backend doesn't need explicit transitions).
func (c *CommandEncoder) TransitionTextures(_ []hal.TextureBarrier) {}

// ClearBuffer clears a buffer region to zero.
func (c *CommandEncoder) ClearBuffer(buffer hal.Buffer, offset, size uint64) {
	if b, ok := buffer.(*Buffer); ok {
		b.mu.Lock()
		defer b.mu.Unlock()
		// Clear to zero
		for i := offset; i < offset+size && i < uint64(len(b.data)); i++ {
			b.data[i] = 0
		}
	}
}

// CopyBufferToBuffer copies data between buffers.
func (c *CommandEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	srcBuf, srcOK := src.(*Buffer)
	dstBuf, dstOK := dst.(*Buffer)

	if !srcOK || !dstOK {
		return
	}

	for _, region := range regions {
		srcBuf.mu.RLock()
		dstBuf.mu.Lock()

		// Perform copy with bounds checking
		srcEnd := region.SrcOffset + region.Size
		dstEnd := region.DstOffset + region.Size

		if srcEnd <= uint64(len(srcBuf.data)) && dstEnd <= uint64(len(dstBuf.data)) {
			copy(dstBuf.data[region.DstOffset:dstEnd], srcBuf.data[region.SrcOffset:srcEnd])
		}

		dstBuf.mu.Unlock()
		srcBuf.mu.RUnlock()
	}
}

// CopyBufferToTexture copies data from a buffer to a texture.
func (c *CommandEncoder) CopyBufferToTexture(src hal.Buffer, dst hal.Texture, regions []hal.BufferTextureCopy) {
	srcBuf, srcOK := src.(*Buffer)
	dstTex, dstOK := dst.(*Texture)

	if !srcOK || !dstOK {
		return
	}

	for _, region := range regions {
		srcBuf.mu.RLock()
		dstTex.mu.Lock()

		// Simple copy: just copy from buffer to texture data
		// In a real implementation, this would respect image layout and stride
		offset := region.BufferLayout.Offset
		size := uint64(region.Size.Width) * uint64(region.Size.Height) * uint64(region.Size.DepthOrArrayLayers) * 4 // 4 bytes per pixel

		if offset+size <= uint64(len(srcBuf.data)) && size <= uint64(len(dstTex.data)) {
			copy(dstTex.data, srcBuf.data[offset:offset+size])
		}

		dstTex.mu.Unlock()
		srcBuf.mu.RUnlock()
	}
}

// CopyTextureToBuffer copies data from a texture to a buffer.
func (c *CommandEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, regions []hal.BufferTextureCopy) {
	srcTex, srcOK := src.(*Texture)
	dstBuf, dstOK := dst.(*Buffer)

	if !srcOK || !dstOK {
		return
	}

	for _, region := range regions {
		srcTex.mu.RLock()
		dstBuf.mu.Lock()

		// Simple copy: just copy from texture to buffer data
		offset := region.BufferLayout.Offset
		size := uint64(region.Size.Width) * uint64(region.Size.Height) * uint64(region.Size.DepthOrArrayLayers) * 4 // 4 bytes per pixel

		if size <= uint64(len(srcTex.data)) && offset+size <= uint64(len(dstBuf.data)) {
			copy(dstBuf.data[offset:offset+size], srcTex.data[:size])
		}

		dstBuf.mu.Unlock()
		srcTex.mu.RUnlock()
	}
}

// CopyTextureToTexture copies data between textures.
func (c *CommandEncoder) CopyTextureToTexture(src, dst hal.Texture, regions []hal.TextureCopy) {
	srcTex, srcOK := src.(*Texture)
	dstTex, dstOK := dst.(*Texture)

	if !srcOK || !dstOK {
		return
	}

	for _, region := range regions {
		srcTex.mu.RLock()
		dstTex.mu.Lock()

		// Simple copy: just copy texture data
		size := uint64(region.Size.Width) * uint64(region.Size.Height) * uint64(region.Size.DepthOrArrayLayers) * 4 // 4 bytes per pixel

		if size <= uint64(len(srcTex.data)) && size <= uint64(len(dstTex.data)) {
			copy(dstTex.data[:size], srcTex.data[:size])
		}

		dstTex.mu.Unlock()
		srcTex.mu.RUnlock()
	}
}

// BeginRenderPass begins a render pass and returns an encoder. When the
// first color attachment resolves to a real software Texture, a
// raster.Pipeline sized to match it is created so Draw/DrawIndexed have
// somewhere to rasterize into; other attachments still get a plain
// load/store treatment in End (see that method).
func (c *CommandEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	r := &RenderPassEncoder{desc: desc, encoder: c}

	if len(desc.ColorAttachments) > 0 {
		attachment := desc.ColorAttachments[0]
		if view, ok := attachment.View.(*TextureView); ok && view.texture != nil {
			r.raster = raster.NewPipeline(int(view.texture.width), int(view.texture.height))
			switch attachment.LoadOp {
			case gputypes.LoadOpClear:
				cv := attachment.ClearValue
				r.raster.Clear(float32(cv.R), float32(cv.G), float32(cv.B), float32(cv.A))
			default:
				r.raster.LoadColorBuffer(view.texture.GetData())
			}
		}
	}
	if ds := desc.DepthStencilAttachment; ds != nil && r.raster != nil {
		if ds.DepthLoadOp == gputypes.LoadOpClear {
			r.raster.ClearDepth(ds.DepthClearValue)
		} else {
			r.raster.ClearDepth(1.0)
		}
	}
	return r
}

// BeginComputePass begins a compute pass and returns an encoder.
func (c *CommandEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return &ComputePassEncoder{
		desc: desc,
	}
}

// WriteTimestamp records the current wall-clock time as nanoseconds since
// the Unix epoch into the query pool slot.
func (c *CommandEncoder) WriteTimestamp(pool hal.QueryPool, index uint32) {
	if qp, ok := pool.(*QueryPool); ok {
		qp.write(index, uint64(time.Now().UnixNano()))
	}
}

// BeginOcclusionQuery starts counting draws issued until EndOcclusionQuery.
// The count is the number of Draw/DrawIndexed calls made while the query
// was active, not a true visible-fragment count (the software rasterizer
// has no hardware occlusion counter to sample).
func (c *CommandEncoder) BeginOcclusionQuery(pool hal.QueryPool, index uint32) {
	if qp, ok := pool.(*QueryPool); ok {
		c.activeQuery = qp
		c.activeQueryAt = index
		c.drawsInQuery = 0
	}
}

// EndOcclusionQuery writes the accumulated draw count as the query result.
func (c *CommandEncoder) EndOcclusionQuery() {
	if c.activeQuery != nil {
		c.activeQuery.write(c.activeQueryAt, c.drawsInQuery)
		c.activeQuery = nil
	}
}

// ResolveQueryPool copies recorded query results into dst as packed uint64s.
func (c *CommandEncoder) ResolveQueryPool(pool hal.QueryPool, first, count uint32, dst hal.Buffer, dstOffset uint64) {
	qp, ok := pool.(*QueryPool)
	if !ok {
		return
	}
	dstBuf, ok := dst.(*Buffer)
	if !ok {
		return
	}
	values := qp.read(first, count)
	dstBuf.mu.Lock()
	defer dstBuf.mu.Unlock()
	for i, v := range values {
		off := dstOffset + uint64(i)*8
		if off+8 > uint64(len(dstBuf.data)) {
			break
		}
		binary.LittleEndian.PutUint64(dstBuf.data[off:off+8], v)
	}
}

// BeginEvent pushes a debug marker range. The software backend doesn't
// surface these anywhere visible; the stack depth exists so mismatched
// Begin/End pairs can be caught by a debug build.
func (c *CommandEncoder) BeginEvent(_ string) {
	c.eventDepth++
}

// EndEvent pops the innermost debug marker range.
func (c *CommandEncoder) EndEvent() {
	if c.eventDepth > 0 {
		c.eventDepth--
	}
}

// SetMarker is a no-op; nothing observes software-backend markers.
func (c *CommandEncoder) SetMarker(_ string) {}

const maxVertexBufferSlots = 8

// vertexBinding records a SetVertexBuffer call.
type vertexBinding struct {
	buffer *Buffer
	offset uint64
}

// indexBinding records a SetIndexBuffer call.
type indexBinding struct {
	buffer *Buffer
	format gputypes.IndexFormat
	offset uint64
	bound  bool
}

// RenderPassEncoder implements hal.RenderPassEncoder for the software
// backend. When raster is non-nil it backs the pass's first color
// attachment and Draw/DrawIndexed rasterize real triangles into it;
// attachments beyond the first only get load/store treatment in End.
type RenderPassEncoder struct {
	desc     *hal.RenderPassDescriptor
	encoder  *CommandEncoder
	pipeline *RenderPipeline
	vertex   [maxVertexBufferSlots]vertexBinding
	index    indexBinding
	raster   *raster.Pipeline
}

// End finishes the render pass, writing any rasterized pixels back to the
// attachment textures and performing load/store bookkeeping for the rest.
func (r *RenderPassEncoder) End() {
	for i, attachment := range r.desc.ColorAttachments {
		view, ok := attachment.View.(*TextureView)
		if !ok || view.texture == nil {
			continue
		}
		if i == 0 && r.raster != nil {
			if attachment.StoreOp != gputypes.StoreOpDiscard {
				view.texture.WriteData(0, r.raster.GetColorBuffer())
			}
			continue
		}
		if attachment.LoadOp == gputypes.LoadOpClear {
			view.texture.Clear(attachment.ClearValue)
		}
	}

	if ds := r.desc.DepthStencilAttachment; ds != nil {
		if view, ok := ds.View.(*TextureView); ok && view.texture != nil && ds.DepthLoadOp == gputypes.LoadOpClear {
			val := ds.DepthClearValue
			view.texture.Clear(gputypes.Color{R: float64(val), G: float64(val), B: float64(val), A: 1.0})
		}
	}
}

// SetPipeline records the pipeline and applies its fixed-function state to
// this pass's rasterizer.
func (r *RenderPassEncoder) SetPipeline(pipeline hal.RenderPipeline) {
	p, ok := pipeline.(*RenderPipeline)
	if !ok || r.raster == nil {
		return
	}
	r.pipeline = p
	r.raster.SetCullMode(cullModeToRaster(p.cullMode))
	r.raster.SetFrontFace(frontFaceToRaster(p.frontFace))
	r.raster.SetDepthTest(p.depthTest, compareFuncToRaster(p.depthCompare))
	r.raster.SetDepthWrite(p.depthWrite || !p.depthTest)
	if p.blend {
		r.raster.SetBlendState(raster.BlendSourceOver)
	} else {
		r.raster.SetBlendState(raster.BlendDisabled)
	}
}

// SetBindGroup is a no-op; the software backend rasterizes position and
// vertex-color attributes only (see RenderPipeline's doc comment) and
// doesn't execute shader bytecode that would consume bound resources.
func (r *RenderPassEncoder) SetBindGroup(_ uint32, _ hal.BindGroup, _ []uint32) {}

// SetVertexBuffer records a vertex buffer binding for the given slot.
func (r *RenderPassEncoder) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	if int(slot) >= len(r.vertex) {
		return
	}
	b, _ := buffer.(*Buffer)
	r.vertex[slot] = vertexBinding{buffer: b, offset: offset}
}

// SetIndexBuffer records the index buffer binding.
func (r *RenderPassEncoder) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	b, _ := buffer.(*Buffer)
	r.index = indexBinding{buffer: b, format: format, offset: offset, bound: b != nil}
}

// SetViewport applies the viewport rectangle to the pass's rasterizer.
func (r *RenderPassEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	if r.raster == nil {
		return
	}
	r.raster.SetViewport(raster.Viewport{
		X: int(x), Y: int(y), Width: int(width), Height: int(height),
		MinDepth: minDepth, MaxDepth: maxDepth,
	})
}

// SetScissorRect is a no-op; the software rasterizer clips to the viewport
// and framebuffer bounds only.
func (r *RenderPassEncoder) SetScissorRect(_, _, _, _ uint32) {}

// SetBlendConstant is a no-op; the rasterizer's blend presets don't use a
// constant-color blend factor.
func (r *RenderPassEncoder) SetBlendConstant(_ *gputypes.Color) {}

// SetStencilReference is a no-op; the software rasterizer doesn't implement
// stencil testing.
func (r *RenderPassEncoder) SetStencilReference(_ uint32) {}

// Draw decodes vertexCount vertices starting at firstVertex from the bound
// vertex buffer and rasterizes them as a triangle list.
func (r *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, _ uint32) {
	if instanceCount == 0 {
		instanceCount = 1
	}
	indices := make([]uint32, vertexCount)
	for i := range indices {
		indices[i] = firstVertex + uint32(i)
	}
	for inst := uint32(0); inst < instanceCount; inst++ {
		r.drawTriangleList(indices, 0)
	}
	if r.encoder != nil {
		r.encoder.drawsInQuery++
	}
}

// DrawIndexed decodes indexCount indices starting at firstIndex from the
// bound index buffer (adding baseVertex to each) and rasterizes them as a
// triangle list.
func (r *RenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, _ uint32) {
	if instanceCount == 0 {
		instanceCount = 1
	}
	indices := r.readIndices(firstIndex, indexCount)
	if indices == nil {
		return
	}
	for inst := uint32(0); inst < instanceCount; inst++ {
		r.drawTriangleList(indices, baseVertex)
	}
	if r.encoder != nil {
		r.encoder.drawsInQuery++
	}
}

// DrawIndirect is a no-op; the software backend doesn't read GPU-generated
// draw arguments.
func (r *RenderPassEncoder) DrawIndirect(_ hal.Buffer, _ uint64) {}

// DrawIndexedIndirect is a no-op; see DrawIndirect.
func (r *RenderPassEncoder) DrawIndexedIndirect(_ hal.Buffer, _ uint64) {}

// ExecuteBundle is a no-op; render bundles aren't recorded separately by
// this backend.
func (r *RenderPassEncoder) ExecuteBundle(_ hal.RenderBundle) {}

// readIndices decodes count indices starting at first from the bound index
// buffer. Returns nil if no index buffer is bound or the range is invalid.
func (r *RenderPassEncoder) readIndices(first, count uint32) []uint32 {
	if !r.index.bound {
		return nil
	}
	data := r.index.buffer.GetData()
	out := make([]uint32, count)
	switch r.index.format {
	case gputypes.IndexFormatUint16:
		base := r.index.offset + uint64(first)*2
		for i := range out {
			off := base + uint64(i)*2
			if off+2 > uint64(len(data)) {
				return out[:i]
			}
			out[i] = uint32(binary.LittleEndian.Uint16(data[off : off+2]))
		}
	default: // IndexFormatUint32
		base := r.index.offset + uint64(first)*4
		for i := range out {
			off := base + uint64(i)*4
			if off+4 > uint64(len(data)) {
				return out[:i]
			}
			out[i] = binary.LittleEndian.Uint32(data[off : off+4])
		}
	}
	return out
}

// decodeVertex reads the position (and, if present, a second vertex-color
// attribute) for one vertex out of slot 0's bound buffer using the active
// pipeline's first vertex layout.
func (r *RenderPassEncoder) decodeVertex(vertexIndex uint32) (pos [3]float32, color [4]float32, ok bool) {
	color = [4]float32{1, 1, 1, 1}
	binding := r.vertex[0]
	if binding.buffer == nil || r.pipeline == nil || !r.pipeline.hasLayout {
		return pos, color, false
	}
	layout := r.pipeline.vertexLayout
	if layout.ArrayStride == 0 {
		return pos, color, false
	}
	data := binding.buffer.GetData()
	base := binding.offset + uint64(vertexIndex)*layout.ArrayStride
	if base+layout.ArrayStride > uint64(len(data)) {
		return pos, color, false
	}
	havePos := false
	for _, attr := range layout.Attributes {
		off := base + attr.Offset
		switch attr.Format {
		case gputypes.VertexFormatFloat32x3:
			if off+12 > uint64(len(data)) {
				continue
			}
			for c := 0; c < 3; c++ {
				pos[c] = readFloat32(data, off+uint64(c)*4)
			}
			havePos = true
		case gputypes.VertexFormatFloat32x4:
			if off+16 > uint64(len(data)) {
				continue
			}
			for c := 0; c < 4; c++ {
				v := readFloat32(data, off+uint64(c)*4)
				if attr.ShaderLocation == 0 {
					if c < 3 {
						pos[c] = v
					}
				} else {
					color[c] = v
				}
			}
			if attr.ShaderLocation == 0 {
				havePos = true
			}
		}
	}
	return pos, color, havePos
}

// drawTriangleList rasterizes consecutive triples of indices (after adding
// baseVertex) as independent triangles.
func (r *RenderPassEncoder) drawTriangleList(indices []uint32, baseVertex int32) {
	if r.raster == nil || r.pipeline == nil {
		return
	}
	width, height := r.raster.Width(), r.raster.Height()
	triangles := make([]raster.Triangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		v0, c0, ok0 := r.vertexAt(indices[i], baseVertex)
		v1, c1, ok1 := r.vertexAt(indices[i+1], baseVertex)
		v2, c2, ok2 := r.vertexAt(indices[i+2], baseVertex)
		if !ok0 || !ok1 || !ok2 {
			continue
		}
		triangles = append(triangles, raster.Triangle{
			V0: ndcToScreen(v0, c0, width, height),
			V1: ndcToScreen(v1, c1, width, height),
			V2: ndcToScreen(v2, c2, width, height),
		})
	}
	r.raster.DrawTrianglesInterpolated(triangles)
}

func (r *RenderPassEncoder) vertexAt(index uint32, baseVertex int32) ([3]float32, [4]float32, bool) {
	signed := int64(index) + int64(baseVertex)
	if signed < 0 {
		return [3]float32{}, [4]float32{}, false
	}
	return r.decodeVertex(uint32(signed))
}

// ndcToScreen converts a position already expressed in normalized device
// coordinates into the raster package's screen-space vertex, flipping Y
// since NDC has +Y up and screen space has +Y down.
func ndcToScreen(pos [3]float32, color [4]float32, width, height int) raster.ScreenVertex {
	return raster.ScreenVertex{
		X:          (pos[0]*0.5 + 0.5) * float32(width),
		Y:          (1 - (pos[1]*0.5 + 0.5)) * float32(height),
		Z:          pos[2]*0.5 + 0.5,
		W:          1,
		Attributes: []float32{color[0], color[1], color[2], color[3]},
	}
}

func readFloat32(data []byte, offset uint64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
}

func cullModeToRaster(mode gputypes.CullMode) raster.CullMode {
	switch mode {
	case gputypes.CullModeFront:
		return raster.CullFront
	case gputypes.CullModeBack:
		return raster.CullBack
	default:
		return raster.CullNone
	}
}

func frontFaceToRaster(face gputypes.FrontFace) raster.FrontFace {
	if face == gputypes.FrontFaceCW {
		return raster.FrontFaceCW
	}
	return raster.FrontFaceCCW
}

func compareFuncToRaster(fn gputypes.CompareFunction) raster.CompareFunc {
	switch fn {
	case gputypes.CompareFunctionNever:
		return raster.CompareNever
	case gputypes.CompareFunctionEqual:
		return raster.CompareEqual
	case gputypes.CompareFunctionLessEqual:
		return raster.CompareLessEqual
	case gputypes.CompareFunctionGreater:
		return raster.CompareGreater
	case gputypes.CompareFunctionNotEqual:
		return raster.CompareNotEqual
	case gputypes.CompareFunctionGreaterEqual:
		return raster.CompareGreaterEqual
	case gputypes.CompareFunctionAlways:
		return raster.CompareAlways
	default:
		return raster.CompareLess
	}
}

// ComputePassEncoder implements hal.ComputePassEncoder for the software backend.
type ComputePassEncoder struct {
	desc *hal.ComputePassDescriptor
}

// End is a no-op.
func (c *ComputePassEncoder) End() {}

// SetPipeline is a no-op (compute not supported).
func (c *ComputePassEncoder) SetPipeline(_ hal.ComputePipeline) {}

// SetBindGroup is a no-op.
func (c *ComputePassEncoder) SetBindGroup(_ uint32, _ hal.BindGroup, _ []uint32) {}

// Dispatch is a no-op (compute not supported).
func (c *ComputePassEncoder) Dispatch(_, _, _ uint32) {}

// DispatchIndirect is a no-op.
func (c *ComputePassEncoder) DispatchIndirect(_ hal.Buffer, _ uint64) {}
