package pipelinecache_test

import (
	"testing"

	"github.com/fulcrumgfx/core/hal"
	"github.com/fulcrumgfx/core/hal/software"
	"github.com/fulcrumgfx/core/pipelinecache"
	"github.com/fulcrumgfx/core/scene"
	"github.com/fulcrumgfx/core/types"
	"github.com/gogpu/gputypes"
)

const testWGSL = `
struct ViewConstants {
    viewProjection: mat4x4<f32>,
}
@group(0) @binding(0) var<uniform> view: ViewConstants;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return view.viewProjection * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

func newTestDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
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
	return opened.Device, opened.Queue, func() { instance.Destroy() }
}

func testShaderSet() pipelinecache.ShaderSet {
	return pipelinecache.ShaderSet{
		Vertex: pipelinecache.ShaderStageSource{
			EntryPoint: "vs_main",
			WGSL:       testWGSL,
			Bindings: []pipelinecache.BindingInfo{
				{Set: 0, Slot: 0, Kind: pipelinecache.BindingConstantBuffer, Stages: gputypes.ShaderStageVertex},
			},
		},
		Fragment: pipelinecache.ShaderStageSource{
			EntryPoint: "fs_main",
			WGSL:       testWGSL,
		},
	}
}

func TestNewBuildsLayoutsAndConstantBuffers(t *testing.T) {
	dev, _, cleanup := newTestDevice(t)
	defer cleanup()

	cache, err := pipelinecache.New(dev, testShaderSet(), pipelinecache.Options{
		ObjectConstantRegions: 2,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Destroy()

	if cache.BindGroupLayout(0) == nil {
		t.Fatal("expected a bind group layout for set 0")
	}
	if cache.PipelineLayout() == nil {
		t.Fatal("expected a pipeline layout")
	}
	if cache.ViewConstantBuffer() == nil {
		t.Fatal("expected a view constant buffer")
	}
}

func TestCreatePipelineCachesByFormat(t *testing.T) {
	dev, _, cleanup := newTestDevice(t)
	defer cleanup()

	cache, err := pipelinecache.New(dev, testShaderSet(), pipelinecache.Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Destroy()

	target := gputypes.ColorTargetState{Format: gputypes.TextureFormatRGBA8Unorm}
	p1, err := cache.CreatePipeline(testShaderSet(), gputypes.PrimitiveState{}, target)
	if err != nil {
		t.Fatalf("CreatePipeline failed: %v", err)
	}
	p2, err := cache.CreatePipeline(testShaderSet(), gputypes.PrimitiveState{}, target)
	if err != nil {
		t.Fatalf("CreatePipeline (cached) failed: %v", err)
	}
	if p1 != p2 {
		t.Error("expected the second CreatePipeline call to return the cached pipeline")
	}
}

func TestUpdateViewAndObjectConstants(t *testing.T) {
	dev, queue, cleanup := newTestDevice(t)
	defer cleanup()

	cache, err := pipelinecache.New(dev, testShaderSet(), pipelinecache.Options{
		ObjectConstantRegions: 1,
		YDownClipSpace:        true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Destroy()

	view := scene.NewViewData(scene.Identity(), scene.Identity(), scene.Vec3{}, scene.Vec3{Z: -1}, 0.1, 100, 1.0, scene.Viewport{Width: 800, Height: 600})
	cache.UpdateViewConstants(queue, view)

	alloc, err := cache.UpdateObjectConstants(scene.Identity())
	if err != nil {
		t.Fatalf("UpdateObjectConstants failed: %v", err)
	}
	if !alloc.IsValid() {
		t.Fatal("expected a valid ring allocation")
	}
	cache.ResetObjectConstants(0)
}
