package pipelinecache

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// BindingKind identifies what kind of resource a BindingInfo describes.
type BindingKind int

const (
	BindingConstantBuffer BindingKind = iota
	BindingTexture
	BindingStorageBuffer
	BindingSampler
)

// BindingInfo is one resource binding a shader expects, as reported by the
// caller's material/shader authoring pipeline. The engine does not parse
// WGSL for binding layout; it trusts this metadata and only uses naga to
// validate that the shader text itself compiles.
type BindingInfo struct {
	// Set groups bindings into one hal.BindGroupLayout per distinct value.
	Set uint32
	// Slot is the binding number within its set.
	Slot uint32
	Kind BindingKind
	// Stages is which shader stages access this binding; entries whose
	// Stages don't include a stage's mask are still grouped with it, since
	// a bind group layout is shared across the whole pipeline.
	Stages gputypes.ShaderStages
	// DynamicOffset marks a constant/storage buffer binding as requiring a
	// per-draw dynamic offset (used for the per-object constant buffer,
	// which rides a single persistent binding sliced per draw).
	DynamicOffset bool
}

// ShaderStageSource is one shader stage's WGSL text plus the entry point
// Cache should compile and the bindings that entry point expects.
type ShaderStageSource struct {
	EntryPoint string
	WGSL       string
	Bindings   []BindingInfo
}

// ShaderSet is the vertex/fragment pair New and Cache.CreatePipeline
// consume. Vertex and Fragment may point at the same WGSL module (the
// common case: one file, two entry points) or different ones.
type ShaderSet struct {
	Vertex   ShaderStageSource
	Fragment ShaderStageSource
}

// validateWGSL parses and lowers src, returning an error if either step
// fails or if wantEntry is not among its entry points. It exists to catch malformed shaders at pipeline build time
// rather than deep inside a backend's shader compiler, and to confirm
// wantEntry is actually present in the module.
func validateWGSL(src, wantEntry string) error {
	ast, err := naga.Parse(src)
	if err != nil {
		return fmt.Errorf("pipelinecache: WGSL parse: %w", err)
	}
	mod, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return fmt.Errorf("pipelinecache: WGSL lower: %w", err)
	}
	for _, ep := range mod.EntryPoints {
		if ep.Name == wantEntry {
			return nil
		}
	}
	return fmt.Errorf("pipelinecache: entry point %q not found in shader", wantEntry)
}

// entryPointStages returns the set of stages declared by src's entry
// points, purely informational; nothing in this package calls it.
func entryPointStages(src string) ([]ir.ShaderStage, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, err
	}
	mod, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, err
	}
	stages := make([]ir.ShaderStage, 0, len(mod.EntryPoints))
	for _, ep := range mod.EntryPoints {
		stages = append(stages, ep.Stage)
	}
	return stages, nil
}
