package pipelinecache

import (
	"fmt"
	"sort"

	"github.com/fulcrumgfx/core/hal"
	"github.com/gogpu/gputypes"
)

// buildBindGroupLayouts groups every binding across both stages by Set and
// creates one hal.BindGroupLayout per group, returning them ordered by Set
// ascending (the order CreatePipelineLayout expects).
func buildBindGroupLayouts(device hal.Device, set ShaderSet) ([]uint32, map[uint32]hal.BindGroupLayout, error) {
	grouped := make(map[uint32][]BindingInfo)
	addAll := func(bindings []BindingInfo) {
		for _, b := range bindings {
			grouped[b.Set] = append(grouped[b.Set], b)
		}
	}
	addAll(set.Vertex.Bindings)
	addAll(set.Fragment.Bindings)

	sets := make([]uint32, 0, len(grouped))
	for s := range grouped {
		sets = append(sets, s)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i] < sets[j] })

	layouts := make(map[uint32]hal.BindGroupLayout, len(sets))
	for _, s := range sets {
		entries, err := mergeEntries(grouped[s])
		if err != nil {
			return nil, nil, fmt.Errorf("pipelinecache: set %d: %w", s, err)
		}
		layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("pipelinecache.set%d", s),
			Entries: entries,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("pipelinecache: CreateBindGroupLayout(set %d): %w", s, err)
		}
		layouts[s] = layout
	}
	return sets, layouts, nil
}

// mergeEntries collapses bindings that share a Slot (declared by both
// vertex and fragment stages) into a single entry with the union of their
// Stages masks, and converts the rest into gputypes.BindGroupLayoutEntry.
func mergeEntries(bindings []BindingInfo) ([]gputypes.BindGroupLayoutEntry, error) {
	bySlot := make(map[uint32]*BindingInfo)
	order := make([]uint32, 0, len(bindings))
	for _, b := range bindings {
		b := b
		if existing, ok := bySlot[b.Slot]; ok {
			if existing.Kind != b.Kind {
				return nil, fmt.Errorf("binding slot %d: conflicting kinds between stages", b.Slot)
			}
			existing.Stages |= b.Stages
			continue
		}
		bySlot[b.Slot] = &b
		order = append(order, b.Slot)
	}

	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(order))
	for _, slot := range order {
		b := bySlot[slot]
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    b.Slot,
			Visibility: b.Stages,
		}
		switch b.Kind {
		case BindingConstantBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: b.DynamicOffset,
			}
		case BindingStorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeStorage,
				HasDynamicOffset: b.DynamicOffset,
			}
		case BindingTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case BindingSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{
				Type: gputypes.SamplerBindingTypeFiltering,
			}
		default:
			return nil, fmt.Errorf("binding slot %d: unknown kind %d", b.Slot, b.Kind)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
