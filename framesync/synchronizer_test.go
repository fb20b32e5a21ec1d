package framesync_test

import (
	"testing"

	"github.com/fulcrumgfx/core/framesync"
	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/hal/software"
	"github.com/fulcrumgfx/core/types"
)

func newTestDevice(t *testing.T) (*software.Device, func()) {
	t.Helper()
	backend := software.API{}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("no adapters found")
	}
	opened, err := adapters[0].Adapter.Open(0, types.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	dev, ok := opened.Device.(*software.Device)
	if !ok {
		t.Fatalf("expected *software.Device, got %T", opened.Device)
	}
	return dev, func() { instance.Destroy() }
}

func TestNewRejectsBadFrameCount(t *testing.T) {
	dev, cleanup := newTestDevice(t)
	defer cleanup()

	if _, err := framesync.New(dev, 0); err == nil {
		t.Fatal("expected error for frameCount == 0")
	}
	if _, err := framesync.New(dev, framesync.MaxFrameCount+1); err == nil {
		t.Fatal("expected error for frameCount beyond MaxFrameCount")
	}
}

func TestWaitForFrameBeforeAnySignalReturnsImmediately(t *testing.T) {
	dev, cleanup := newTestDevice(t)
	defer cleanup()

	sync, err := framesync.New(dev, 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer sync.Shutdown()

	if err := sync.WaitForFrame(0); err != nil {
		t.Fatalf("WaitForFrame on untouched slot should not error: %v", err)
	}
	if !sync.IsFrameComplete(0) {
		t.Error("untouched slot should report complete")
	}
}

func TestSignalThenWaitRoundTrips(t *testing.T) {
	dev, cleanup := newTestDevice(t)
	defer cleanup()

	sync, err := framesync.New(dev, 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer sync.Shutdown()

	sync.SignalFrame(0)
	if got := sync.FrameFenceValue(0); got != 1 {
		t.Errorf("expected fence value 1 after one signal, got %d", got)
	}

	// The software fence only advances when the device actually signals it
	// (as Queue.Submit would); SignalFrame alone just tracks the expectation.
	if sync.IsFrameComplete(0) {
		t.Error("frame should not be complete before the fence is actually signaled")
	}
}

func TestWaitForAllFramesCoversEverySlot(t *testing.T) {
	dev, cleanup := newTestDevice(t)
	defer cleanup()

	sync, err := framesync.New(dev, framesync.MaxFrameCount)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer sync.Shutdown()

	if err := sync.WaitForAllFrames(); err != nil {
		t.Fatalf("WaitForAllFrames failed: %v", err)
	}
}

func TestOutOfRangeFrameIndexIsSafe(t *testing.T) {
	dev, cleanup := newTestDevice(t)
	defer cleanup()

	sync, err := framesync.New(dev, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer sync.Shutdown()

	sync.SignalFrame(5) // no-op, out of range
	if err := sync.WaitForFrame(5); err == nil {
		t.Fatal("expected error for out-of-range WaitForFrame")
	}
	if !sync.IsFrameComplete(5) {
		t.Error("out-of-range IsFrameComplete should report complete (vacuously true)")
	}
	if sync.Fence(5) != nil {
		t.Error("expected nil fence for out-of-range index")
	}
}
