package rendercontext

import (
	"fmt"

	"github.com/fulcrumgfx/core/framesync"
	"github.com/fulcrumgfx/core/hal"
)

// BackBufferState names the two states RenderContext itself tracks for an
// acquired back buffer between frames. RenderGraph expresses every
// intermediate state a pass transitions through (RenderTarget,
// ShaderResource, ...) during Execute; the context only needs to know
// where each slot's chain starts, since that's the one piece of state
// that survives across Graph.Clear calls.
type BackBufferState int

const (
	// BackBufferUndefined is the state a slot starts in (or returns to
	// after a resize) before anything has rendered into it.
	BackBufferUndefined BackBufferState = iota
	// BackBufferPresent is the state a slot is left in after Present —
	// spec invariant 4 requires every acquired back buffer to reach
	// Present before Present() is called, so this is always accurate.
	BackBufferPresent
)

// AcquiredFrame is returned by BeginFrame and consumed by EndFrame and
// Present, in that order. A caller must not call BeginFrame again until
// Present has returned for the previous AcquiredFrame.
type AcquiredFrame struct {
	// Slot is the frame-in-flight index this frame occupies.
	Slot uint32

	// Encoder is the command encoder this frame's passes record into.
	// It is already past BeginEncoding when returned.
	Encoder hal.CommandEncoder

	// ColorTexture is the acquired swap-chain back buffer.
	ColorTexture hal.Texture

	// InitialColorState is the state ColorTexture was left in by the
	// previous frame that used this slot (BackBufferUndefined the first
	// time a slot is used or right after a resize, BackBufferPresent
	// otherwise). Callers importing ColorTexture into a RenderGraph use
	// this to pick the graph's initial state for the handle.
	InitialColorState BackBufferState

	// Suboptimal reports the surface configuration is usable but stale;
	// the caller may want to schedule a ResizeSwapChain soon.
	Suboptimal bool

	surfaceTexture hal.SurfaceTexture
	cmdBuffer      hal.CommandBuffer
	ended          bool
}

// Context owns one hal.Device, one hal.Surface, and the frame
// synchronizer that gates reuse of each frame-in-flight slot. It is the
// single owner of the "begin frame -> record -> submit -> present"
// sequence; RenderGraph construction/compile/execute happens above it
// (in scenerenderer), driven by the encoder and textures BeginFrame
// hands back.
type Context struct {
	device hal.Device
	queue  hal.Queue
	surface hal.Surface

	sync       *framesync.Synchronizer
	frameCount uint32
	slot       uint32

	config          hal.SurfaceConfiguration
	backBufferState []BackBufferState

	acquired *AcquiredFrame
}

// New configures surface with config and creates a Synchronizer with
// frameCount frame-in-flight slots.
func New(device hal.Device, queue hal.Queue, surface hal.Surface, config hal.SurfaceConfiguration, frameCount uint32) (*Context, error) {
	if device == nil || queue == nil || surface == nil {
		return nil, fmt.Errorf("rendercontext: device, queue, and surface are required")
	}
	if config.Width == 0 || config.Height == 0 {
		return nil, fmt.Errorf("rendercontext: surface configuration has zero area")
	}

	if err := surface.Configure(device, &config); err != nil {
		return nil, fmt.Errorf("rendercontext: configure surface: %w", err)
	}

	sync, err := framesync.New(device, frameCount)
	if err != nil {
		surface.Unconfigure(device)
		return nil, fmt.Errorf("rendercontext: %w", err)
	}

	return &Context{
		device:          device,
		queue:           queue,
		surface:         surface,
		sync:            sync,
		frameCount:      frameCount,
		config:          config,
		backBufferState: make([]BackBufferState, frameCount),
	}, nil
}

// Device returns the underlying device, for packages above this one that
// need to create or import resources against it.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the underlying submission queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// FrameCount returns the number of frame-in-flight slots.
func (c *Context) FrameCount() uint32 { return c.frameCount }

// CurrentSlot returns the frame-in-flight slot the next BeginFrame will use.
func (c *Context) CurrentSlot() uint32 { return c.slot }

// BeginFrame waits for the next slot's prior work to retire, acquires the
// next back buffer, and opens a fresh command encoder for recording. The
// returned AcquiredFrame must be passed to EndFrame and then Present, in
// that order, before the next BeginFrame.
func (c *Context) BeginFrame() (*AcquiredFrame, error) {
	if c.acquired != nil {
		return nil, fmt.Errorf("rendercontext: BeginFrame called while a frame is still active")
	}

	slot := c.slot
	if err := c.sync.WaitForFrame(slot); err != nil {
		return nil, fmt.Errorf("rendercontext: wait for frame %d: %w", slot, err)
	}

	acquired, err := c.surface.AcquireTexture(c.sync.Fence(slot))
	if err != nil {
		return nil, fmt.Errorf("rendercontext: acquire surface texture: %w", err)
	}

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame"})
	if err != nil {
		c.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("rendercontext: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		c.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("rendercontext: begin encoding: %w", err)
	}

	frame := &AcquiredFrame{
		Slot:              slot,
		Encoder:           encoder,
		ColorTexture:      acquired.Texture,
		InitialColorState: c.backBufferState[slot],
		Suboptimal:        acquired.Suboptimal,
		surfaceTexture:    acquired.Texture,
	}
	c.acquired = frame
	return frame, nil
}

// EndFrame finishes recording frame's encoder and submits it, signaling
// frame.Slot's fence on completion. Call Present afterward to hand the
// back buffer to the display.
func (c *Context) EndFrame(frame *AcquiredFrame) error {
	if err := c.checkActive(frame); err != nil {
		return err
	}
	if frame.ended {
		return fmt.Errorf("rendercontext: EndFrame called twice for the same frame")
	}

	cmdBuf, err := frame.Encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("rendercontext: end encoding: %w", err)
	}

	nextValue := c.sync.FrameFenceValue(frame.Slot) + 1
	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, c.sync.Fence(frame.Slot), nextValue); err != nil {
		return fmt.Errorf("rendercontext: submit: %w", err)
	}
	c.sync.SignalFrame(frame.Slot)

	frame.cmdBuffer = cmdBuf
	frame.ended = true
	return nil
}

// Present presents frame's back buffer and advances to the next
// frame-in-flight slot. Must be called after EndFrame.
func (c *Context) Present(frame *AcquiredFrame) error {
	if err := c.checkActive(frame); err != nil {
		return err
	}
	if !frame.ended {
		return fmt.Errorf("rendercontext: Present called before EndFrame")
	}

	if err := c.queue.Present(c.surface, frame.surfaceTexture); err != nil {
		return fmt.Errorf("rendercontext: present: %w", err)
	}

	c.backBufferState[frame.Slot] = BackBufferPresent
	c.slot = (c.slot + 1) % c.frameCount
	c.acquired = nil
	return nil
}

func (c *Context) checkActive(frame *AcquiredFrame) error {
	if frame == nil || c.acquired != frame {
		return fmt.Errorf("rendercontext: called with a frame not currently active")
	}
	return nil
}

// ResizeSwapChain waits for all in-flight work to drain, then
// destroys-and-recreates the surface's configuration at the new
// dimensions. A resize to zero area is ignored (the window is minimized
// or not yet laid out) rather than treated as an error, per spec §8's
// boundary behaviors. Every slot's back-buffer state resets to
// BackBufferUndefined; the next frame that acquires each slot starts its
// barrier chain from scratch.
func (c *Context) ResizeSwapChain(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}

	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("rendercontext: wait idle: %w", err)
	}

	c.surface.Unconfigure(c.device)
	c.config.Width = width
	c.config.Height = height
	if err := c.surface.Configure(c.device, &c.config); err != nil {
		return fmt.Errorf("rendercontext: reconfigure surface: %w", err)
	}

	for i := range c.backBufferState {
		c.backBufferState[i] = BackBufferUndefined
	}
	return nil
}

// Shutdown waits for every in-flight frame to retire, releases the frame
// synchronizer's fences, and unconfigures the surface. Call once, after
// the last Present, before destroying the device.
func (c *Context) Shutdown() {
	if c.sync != nil {
		c.sync.Shutdown()
	}
	if c.surface != nil {
		c.surface.Unconfigure(c.device)
	}
}
