package rendergraph

import (
	"fmt"
	"sort"

	"github.com/fulcrumgfx/core/hal"
	"github.com/gogpu/gputypes"
)

// BarrierOp is one resource transition the Plan inserts before a pass runs.
type BarrierOp struct {
	IsTexture    bool
	TextureIndex int
	BufferIndex  int
	Mip          uint32 // only meaningful when IsTexture
	From         ResourceState
	To           ResourceState
}

// Stats summarizes a compiled Plan, useful for profiling overlays and the
// Graphviz export.
type Stats struct {
	TotalPasses     int
	CulledPasses    int
	ExecutedPasses  int
	TransientHeaps  int
	TransientBytes  uint64
	AliasedTextures int
	AliasedBuffers  int
	BarrierCount    int
}

// Plan is the immutable result of Compile: an ordered pass list, a barrier
// schedule, and resolved resource placements. Execute replays it.
type Plan struct {
	graph    *Graph
	ordered  []int
	barriers map[int][]BarrierOp
	epilogue []BarrierOp
	stats    Stats
}

// Stats returns the statistics gathered while compiling this plan.
func (p *Plan) Stats() Stats { return p.stats }

// subresourceStates tracks a texture's current state per mip, with a
// whole-resource fallback. A narrower per-mip entry always overrides the
// whole-resource state for that mip.
type subresourceStates struct {
	whole  ResourceState
	perMip map[uint32]ResourceState
}

func (s *subresourceStates) get(mip uint32) ResourceState {
	if mip != AllMips && s.perMip != nil {
		if v, ok := s.perMip[mip]; ok {
			return v
		}
	}
	return s.whole
}

func (s *subresourceStates) set(mip uint32, state ResourceState) {
	if mip == AllMips {
		s.whole = state
		s.perMip = nil
		return
	}
	if s.perMip == nil {
		s.perMip = make(map[uint32]ResourceState)
	}
	s.perMip[mip] = state
}

type depEdge struct{ from, to int }

// Compile runs the graph's seven compilation steps: access-graph build,
// pass culling, priority-ordered topological sort, lifetime computation
// (using final post-sort positions), barrier planning, memory aliasing,
// and statistics gathering. The returned Plan is only valid until the
// next Clear.
func (g *Graph) Compile() (*Plan, error) {
	// 1. Access-graph build: invoke every pass's Setup against a Builder
	// scoped to that pass, recording its reads/writes against resources.
	for i, p := range g.passes {
		if p.setup == nil {
			continue
		}
		p.setup(&Builder{graph: g, passIndex: i})
	}

	// 2. Pass culling via reverse reachability from exported/imported
	// resources and side-effecting (no tracked write) passes.
	live := g.computeLivePasses()
	culledCount := 0
	for i, p := range g.passes {
		p.culled = !live[i]
		if p.culled {
			culledCount++
		}
	}

	// 3. Priority-tie-break stable topological sort of the surviving passes.
	edges := g.buildDependencyEdges()
	var liveEdges []depEdge
	for _, e := range edges {
		if live[e.from] && live[e.to] {
			liveEdges = append(liveEdges, e)
		}
	}
	fullOrder, cycle := stableTopoSort(len(g.passes), liveEdges, func(i int) int { return g.passes[i].priority })
	if cycle != nil {
		names := make([]string, len(cycle))
		for i, idx := range cycle {
			names[i] = g.passes[idx].name
		}
		return nil, fmt.Errorf("rendergraph: compile: cyclic pass dependency among %v", names)
	}
	ordered := make([]int, 0, len(g.passes)-culledCount)
	for _, idx := range fullOrder {
		if live[idx] {
			ordered = append(ordered, idx)
		}
	}

	position := make(map[int]int, len(ordered))
	for pos, idx := range ordered {
		position[idx] = pos
	}

	// 4. Lifetime computation, using positions in the final pass order.
	g.computeLifetimes(position)

	// 5. Barrier planning: walk the ordered passes, diffing each access
	// against the tracked current state and only emitting a transition on
	// change. Consecutive same-state accesses (within or across passes)
	// naturally collapse to zero barriers since nothing changed.
	barriers, epilogue := g.planBarriers(ordered)

	// 6. Memory aliasing via first-fit interval-graph coloring, grouped by
	// (memory type, heap flags).
	stats, err := g.allocateAndAlias(ordered)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: compile: %w", err)
	}

	barrierCount := len(epilogue)
	for _, ops := range barriers {
		barrierCount += len(ops)
	}

	stats.TotalPasses = len(g.passes)
	stats.CulledPasses = culledCount
	stats.ExecutedPasses = len(ordered)
	stats.BarrierCount = barrierCount

	plan := &Plan{
		graph:    g,
		ordered:  ordered,
		barriers: barriers,
		epilogue: epilogue,
		stats:    stats,
	}
	g.plan = plan
	return plan, nil
}

// computeLivePasses marks every pass reachable, through write->read
// chains, from a resource the graph exports (imported resources are
// always considered exported since something outside the graph owns
// them). A pass with no tracked writes at all is conservatively kept:
// the graph can't reason about its side effects.
func (g *Graph) computeLivePasses() []bool {
	n := len(g.passes)
	live := make([]bool, n)

	textureTerminal := make([]bool, len(g.textures))
	for i, t := range g.textures {
		textureTerminal[i] = t.kind == kindImported || t.exportState != nil
	}
	bufferTerminal := make([]bool, len(g.buffers))
	for i, b := range g.buffers {
		bufferTerminal[i] = b.kind == kindImported || b.exportState != nil
	}

	for i, p := range g.passes {
		if len(p.textureWrites) == 0 && len(p.bufferWrites) == 0 {
			live[i] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for i, p := range g.passes {
			if live[i] {
				continue
			}
			makeLive := false
			for _, ti := range p.textureWrites {
				if textureTerminal[ti] || g.textureFeedsLivePass(ti, i, live) {
					makeLive = true
					break
				}
			}
			if !makeLive {
				for _, bi := range p.bufferWrites {
					if bufferTerminal[bi] || g.bufferFeedsLivePass(bi, i, live) {
						makeLive = true
						break
					}
				}
			}
			if makeLive {
				live[i] = true
				changed = true
			}
		}
	}
	return live
}

func (g *Graph) textureFeedsLivePass(ti, producerIdx int, live []bool) bool {
	for _, a := range g.textures[ti].accesses {
		if a.isWrite || a.passIndex == producerIdx {
			continue
		}
		if live[a.passIndex] {
			return true
		}
	}
	return false
}

func (g *Graph) bufferFeedsLivePass(bi, producerIdx int, live []bool) bool {
	for _, a := range g.buffers[bi].accesses {
		if a.isWrite || a.passIndex == producerIdx {
			continue
		}
		if live[a.passIndex] {
			return true
		}
	}
	return false
}

// buildDependencyEdges chains consecutive distinct-pass accesses to the
// same resource: each access after the first depends on whatever pass
// made the previous access, covering RAW, WAW, and WAR hazards in one
// pass. Resource access lists are already ordered by pass-add order since
// Setup is invoked pass-by-pass in that order.
func (g *Graph) buildDependencyEdges() []depEdge {
	var edges []depEdge
	for _, t := range g.textures {
		edges = appendChainEdges(edges, t.accessPassIndices())
	}
	for _, b := range g.buffers {
		edges = appendChainEdges(edges, b.accessPassIndices())
	}
	return edges
}

func appendChainEdges(edges []depEdge, passIdxs []int) []depEdge {
	for i := 0; i+1 < len(passIdxs); i++ {
		if passIdxs[i] != passIdxs[i+1] {
			edges = append(edges, depEdge{from: passIdxs[i], to: passIdxs[i+1]})
		}
	}
	return edges
}

func (t *rgTextureResource) accessPassIndices() []int {
	idxs := make([]int, len(t.accesses))
	for i, a := range t.accesses {
		idxs[i] = a.passIndex
	}
	return idxs
}

func (b *rgBufferResource) accessPassIndices() []int {
	idxs := make([]int, len(b.accesses))
	for i, a := range b.accesses {
		idxs[i] = a.passIndex
	}
	return idxs
}

// stableTopoSort produces a topological order over n nodes (0..n-1) given
// edges, breaking ties among ready nodes by priority (lower first) then
// by node index, so equal-priority passes keep their AddPass order. If the
// graph is cyclic, no node ever reaches in-degree 0 again once the acyclic
// prefix is exhausted; stableTopoSort stops there and reports the indices
// still stuck with a non-zero in-degree instead of forcing a total order.
func stableTopoSort(n int, edges []depEdge, priority func(int) int) (order []int, cycle []int) {
	inDegree := make([]int, n)
	adj := make([][]int, n)
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
		inDegree[e.to]++
	}

	removed := make([]bool, n)
	order = make([]int, 0, n)
	for len(order) < n {
		best := -1
		for i := 0; i < n; i++ {
			if removed[i] || inDegree[i] > 0 {
				continue
			}
			if best == -1 || priority(i) < priority(best) {
				best = i
			}
		}
		if best == -1 {
			for i := 0; i < n; i++ {
				if !removed[i] {
					cycle = append(cycle, i)
				}
			}
			return order, cycle
		}
		order = append(order, best)
		removed[best] = true
		for _, nb := range adj[best] {
			inDegree[nb]--
		}
	}
	return order, nil
}

func (g *Graph) computeLifetimes(position map[int]int) {
	for _, t := range g.textures {
		t.firstUse, t.lastUse = -1, -1
		for _, a := range t.accesses {
			pos, ok := position[a.passIndex]
			if !ok {
				continue
			}
			if t.firstUse == -1 || pos < t.firstUse {
				t.firstUse = pos
			}
			if pos > t.lastUse {
				t.lastUse = pos
			}
		}
	}
	for _, b := range g.buffers {
		b.firstUse, b.lastUse = -1, -1
		for _, a := range b.accesses {
			pos, ok := position[a.passIndex]
			if !ok {
				continue
			}
			if b.firstUse == -1 || pos < b.firstUse {
				b.firstUse = pos
			}
			if pos > b.lastUse {
				b.lastUse = pos
			}
		}
	}
}

func (g *Graph) planBarriers(ordered []int) (map[int][]BarrierOp, []BarrierOp) {
	barriers := make(map[int][]BarrierOp, len(ordered))

	texState := make([]*subresourceStates, len(g.textures))
	for i, t := range g.textures {
		texState[i] = &subresourceStates{whole: t.initial}
	}
	bufState := make([]ResourceState, len(g.buffers))
	for i, b := range g.buffers {
		bufState[i] = b.initial
	}

	texByPass := make(map[int][]struct {
		idx   int
		mip   uint32
		state ResourceState
	})
	for ti, t := range g.textures {
		for _, a := range t.accesses {
			texByPass[a.passIndex] = append(texByPass[a.passIndex], struct {
				idx   int
				mip   uint32
				state ResourceState
			}{ti, a.mip, a.state})
		}
	}
	bufByPass := make(map[int][]struct {
		idx   int
		state ResourceState
	})
	for bi, b := range g.buffers {
		for _, a := range b.accesses {
			bufByPass[a.passIndex] = append(bufByPass[a.passIndex], struct {
				idx   int
				state ResourceState
			}{bi, a.state})
		}
	}

	for _, passIdx := range ordered {
		var ops []BarrierOp
		for _, a := range texByPass[passIdx] {
			cur := texState[a.idx].get(a.mip)
			if cur != a.state {
				ops = append(ops, BarrierOp{IsTexture: true, TextureIndex: a.idx, Mip: a.mip, From: cur, To: a.state})
				texState[a.idx].set(a.mip, a.state)
			}
		}
		for _, a := range bufByPass[passIdx] {
			cur := bufState[a.idx]
			if cur != a.state {
				ops = append(ops, BarrierOp{IsTexture: false, BufferIndex: a.idx, From: cur, To: a.state})
				bufState[a.idx] = a.state
			}
		}
		if len(ops) > 0 {
			barriers[passIdx] = ops
		}
	}

	var epilogue []BarrierOp
	for i, t := range g.textures {
		if t.exportState == nil {
			continue
		}
		cur := texState[i].get(AllMips)
		if cur != *t.exportState {
			epilogue = append(epilogue, BarrierOp{IsTexture: true, TextureIndex: i, Mip: AllMips, From: cur, To: *t.exportState})
		}
	}
	for i, b := range g.buffers {
		if b.exportState == nil {
			continue
		}
		cur := bufState[i]
		if cur != *b.exportState {
			epilogue = append(epilogue, BarrierOp{IsTexture: false, BufferIndex: i, From: cur, To: *b.exportState})
		}
	}

	return barriers, epilogue
}

type heapGroupKey struct {
	memType hal.MemoryType
	flags   hal.HeapFlags
}

type allocRequest struct {
	isTexture          bool
	index              int
	size, alignment    uint64
	firstUse, lastUse  int
}

type aliasSlot struct {
	lastUse  int
	size     uint64
	occupied int
}

// allocateAndAlias sizes and creates (or reuses, from transientHeapCache)
// one heap per (memory type, heap flags) group, assigns every transient
// resource in that group a slot via first-fit interval-graph coloring
// (two resources share a slot only if their lifetimes never overlap), and
// binds each resource's Placement to its slot's offset within the heap.
func (g *Graph) allocateAndAlias(ordered []int) (Stats, error) {
	groups := make(map[heapGroupKey][]*allocRequest)

	for i, t := range g.textures {
		if t.kind != kindTransient || !t.usedAtAll {
			continue
		}
		mr := g.device.GetTextureMemoryRequirements(t.desc)
		t.memReq = mr
		flags := hal.HeapFlagAllowTextures
		if t.desc.Usage&gputypes.TextureUsageRenderAttachment != 0 {
			flags |= hal.HeapFlagAllowRenderTargets
		}
		key := heapGroupKey{memType: hal.MemoryTypeDefault, flags: flags}
		groups[key] = append(groups[key], &allocRequest{
			isTexture: true, index: i,
			size: mr.Size, alignment: mr.Alignment,
			firstUse: t.firstUse, lastUse: t.lastUse,
		})
	}
	for i, b := range g.buffers {
		if b.kind != kindTransient || !b.usedAtAll {
			continue
		}
		mr := g.device.GetBufferMemoryRequirements(b.desc)
		b.memReq = mr
		key := heapGroupKey{memType: hal.MemoryTypeDefault, flags: hal.HeapFlagAllowBuffers}
		groups[key] = append(groups[key], &allocRequest{
			isTexture: false, index: i,
			size: mr.Size, alignment: mr.Alignment,
			firstUse: b.firstUse, lastUse: b.lastUse,
		})
	}

	var stats Stats
	for key, reqs := range groups {
		sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].firstUse < reqs[j].firstUse })

		var slots []*aliasSlot
		slotOf := make(map[*allocRequest]int, len(reqs))
		for _, r := range reqs {
			chosen := -1
			for si, s := range slots {
				if s.lastUse < r.firstUse {
					chosen = si
					break
				}
			}
			if chosen == -1 {
				slots = append(slots, &aliasSlot{lastUse: r.lastUse, size: alignUp(r.size, r.alignment)})
				chosen = len(slots) - 1
			} else {
				s := slots[chosen]
				s.lastUse = r.lastUse
				if sz := alignUp(r.size, r.alignment); sz > s.size {
					s.size = sz
				}
			}
			slots[chosen].occupied++
			slotOf[r] = chosen
		}

		offsets := make([]uint64, len(slots))
		var total uint64
		for i, s := range slots {
			offsets[i] = total
			total += s.size
		}

		heap, err := g.heapForGroup(key, total)
		if err != nil {
			return Stats{}, err
		}
		stats.TransientBytes += total

		for _, r := range reqs {
			slotIdx := slotOf[r]
			offset := offsets[slotIdx]
			shared := slots[slotIdx].occupied > 1
			if r.isTexture {
				t := g.textures[r.index]
				t.heap = heap
				t.heapOffset = offset
				t.aliased = shared
				t.desc.Placement = &hal.Placement{Heap: heap, Offset: offset}
				if shared {
					stats.AliasedTextures++
				}
			} else {
				b := g.buffers[r.index]
				b.heap = heap
				b.heapOffset = offset
				b.aliased = shared
				b.desc.Placement = &hal.Placement{Heap: heap, Offset: offset}
				if shared {
					stats.AliasedBuffers++
				}
			}
		}
	}

	for _, t := range g.textures {
		if t.kind != kindTransient || !t.usedAtAll {
			continue
		}
		tex, err := g.device.CreateTexture(t.desc)
		if err != nil {
			return Stats{}, fmt.Errorf("create transient texture %q: %w", t.name, err)
		}
		t.texture = tex
	}
	for _, b := range g.buffers {
		if b.kind != kindTransient || !b.usedAtAll {
			continue
		}
		buf, err := g.device.CreateBuffer(b.desc)
		if err != nil {
			return Stats{}, fmt.Errorf("create transient buffer %q: %w", b.name, err)
		}
		b.buffer = buf
	}

	stats.TransientHeaps = len(g.transientHeapCache)
	_ = ordered
	return stats, nil
}

func (g *Graph) heapForGroup(key heapGroupKey, size uint64) (hal.Heap, error) {
	if size == 0 {
		return nil, nil
	}
	cacheKey := heapCacheKey{memType: key.memType, flags: key.flags, size: size}
	if heap, ok := g.transientHeapCache[cacheKey]; ok {
		return heap, nil
	}
	// Drop any cached heap of another size for this (memType, flags) shape; a
	// shape change this frame means last frame's heap is stale.
	for k, heap := range g.transientHeapCache {
		if k.memType == key.memType && k.flags == key.flags {
			g.device.DestroyHeap(heap)
			delete(g.transientHeapCache, k)
		}
	}
	heap, err := g.device.CreateHeap(&hal.HeapDescriptor{
		Label:      "rendergraph.transient",
		Size:       size,
		MemoryType: key.memType,
		Flags:      key.flags,
	})
	if err != nil {
		return nil, err
	}
	g.transientHeapCache[cacheKey] = heap
	return heap, nil
}

func alignUp(size, alignment uint64) uint64 {
	if alignment <= 1 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}
