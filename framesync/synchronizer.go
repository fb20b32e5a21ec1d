package framesync

import (
	"fmt"
	"time"

	"github.com/fulcrumgfx/core/hal"
)

// MaxFrameCount bounds how many frames may be in flight at once.
const MaxFrameCount = 8

// defaultWaitTimeout is the maximum time WaitForFrame blocks on a single
// fence before giving up. Heavy compute passes can legitimately run long,
// so this is generous rather than tight.
const defaultWaitTimeout = 30 * time.Second

// Synchronizer owns one timeline fence per frame-in-flight slot and the
// last-signalled value expected on it. WaitForFrame(i) must be called
// before a caller starts reusing slot i's per-frame resources; SignalFrame
// must be called after slot i's command buffers are submitted.
//
// The synchronizer never issues a queue signal itself — the device signals
// the fence as part of Queue.Submit. SignalFrame only tracks what value to
// wait for next.
type Synchronizer struct {
	device      hal.Device
	frameCount  uint32
	fences      [MaxFrameCount]hal.Fence
	fenceValues [MaxFrameCount]uint64
}

// New creates a Synchronizer with frameCount fences, 1 <= frameCount <= MaxFrameCount.
func New(device hal.Device, frameCount uint32) (*Synchronizer, error) {
	if device == nil {
		return nil, fmt.Errorf("framesync: device is nil")
	}
	if frameCount == 0 || frameCount > MaxFrameCount {
		return nil, fmt.Errorf("framesync: invalid frame count %d", frameCount)
	}

	s := &Synchronizer{device: device, frameCount: frameCount}
	for i := uint32(0); i < frameCount; i++ {
		fence, err := device.CreateFence()
		if err != nil {
			s.Shutdown()
			return nil, fmt.Errorf("framesync: create fence for frame %d: %w", i, err)
		}
		s.fences[i] = fence
	}
	return s, nil
}

// WaitForFrame blocks until slot frameIndex's fence reaches the value
// expected of it. A slot that has never been signaled returns immediately
// (no work submitted yet for it).
func (s *Synchronizer) WaitForFrame(frameIndex uint32) error {
	if frameIndex >= s.frameCount {
		return fmt.Errorf("framesync: invalid frame index %d", frameIndex)
	}

	expected := s.fenceValues[frameIndex]
	if expected == 0 {
		return nil
	}

	_, err := s.device.Wait(s.fences[frameIndex], expected, defaultWaitTimeout)
	if err != nil {
		return fmt.Errorf("framesync: wait frame %d: %w", frameIndex, err)
	}
	return nil
}

// SignalFrame increments the expected fence value for frameIndex. Call
// this after submitting frameIndex's command buffers; the actual GPU-side
// signal happens inside the submit call, not here.
func (s *Synchronizer) SignalFrame(frameIndex uint32) {
	if frameIndex >= s.frameCount {
		return
	}
	s.fenceValues[frameIndex]++
}

// WaitForAllFrames waits every slot. Useful during shutdown or whenever
// all GPU work must be flushed before proceeding.
func (s *Synchronizer) WaitForAllFrames() error {
	for i := uint32(0); i < s.frameCount; i++ {
		if err := s.WaitForFrame(i); err != nil {
			return err
		}
	}
	return nil
}

// IsFrameComplete reports, without blocking, whether slot frameIndex's
// GPU work has finished.
func (s *Synchronizer) IsFrameComplete(frameIndex uint32) bool {
	if frameIndex >= s.frameCount {
		return true
	}
	done, err := s.device.Wait(s.fences[frameIndex], s.fenceValues[frameIndex], 0)
	return err == nil && done
}

// Fence returns the fence backing frameIndex, or nil if out of range.
func (s *Synchronizer) Fence(frameIndex uint32) hal.Fence {
	if frameIndex >= s.frameCount {
		return nil
	}
	return s.fences[frameIndex]
}

// FrameFenceValue returns the value WaitForFrame(frameIndex) currently waits for.
func (s *Synchronizer) FrameFenceValue(frameIndex uint32) uint64 {
	if frameIndex >= s.frameCount {
		return 0
	}
	return s.fenceValues[frameIndex]
}

// FrameCount returns the number of frame-in-flight slots.
func (s *Synchronizer) FrameCount() uint32 { return s.frameCount }

// Shutdown waits for all frames to complete and releases every fence.
func (s *Synchronizer) Shutdown() {
	if s.device == nil {
		return
	}
	_ = s.WaitForAllFrames()
	for i := uint32(0); i < s.frameCount; i++ {
		if s.fences[i] != nil {
			s.device.DestroyFence(s.fences[i])
			s.fences[i] = nil
		}
	}
	s.device = nil
	s.frameCount = 0
}
