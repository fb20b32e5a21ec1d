package rendergraph

import (
	"fmt"
	"strings"
)

// Graphviz renders the compiled plan as a DOT digraph: one node per
// surviving pass (in compiled order), one node per resource read or
// written at least once (dashed when aliased), and one edge per access
// labeled with the state that access uses. Culled passes and
// unused resources are omitted entirely.
func (p *Plan) Graphviz() string {
	var b strings.Builder
	b.WriteString("digraph rendergraph {\n")
	b.WriteString("  rankdir=LR;\n  node [shape=box];\n")

	for rank, passIdx := range p.ordered {
		pass := p.graph.passes[passIdx]
		b.WriteString(fmt.Sprintf("  pass%d [label=%q];\n", passIdx, fmt.Sprintf("%s\\n(prio %d, rank %d)", pass.name, pass.priority, rank)))
	}

	for ti, t := range p.graph.textures {
		if !t.usedAtAll {
			continue
		}
		shape := "ellipse"
		style := "solid"
		if t.aliased {
			style = "dashed"
		}
		b.WriteString(fmt.Sprintf("  tex%d [shape=%s style=%s label=%q];\n", ti, shape, style, t.name))
		for _, a := range t.accesses {
			if _, culled := passLabelIfLive(p, a.passIndex); culled {
				continue
			}
			if a.isWrite {
				b.WriteString(fmt.Sprintf("  pass%d -> tex%d [label=%q];\n", a.passIndex, ti, a.state.String()))
			} else {
				b.WriteString(fmt.Sprintf("  tex%d -> pass%d [label=%q];\n", ti, a.passIndex, a.state.String()))
			}
		}
	}

	for bi, buf := range p.graph.buffers {
		if !buf.usedAtAll {
			continue
		}
		style := "solid"
		if buf.aliased {
			style = "dashed"
		}
		b.WriteString(fmt.Sprintf("  buf%d [shape=box3d style=%s label=%q];\n", bi, style, buf.name))
		for _, a := range buf.accesses {
			if _, culled := passLabelIfLive(p, a.passIndex); culled {
				continue
			}
			if a.isWrite {
				b.WriteString(fmt.Sprintf("  pass%d -> buf%d [label=%q];\n", a.passIndex, bi, a.state.String()))
			} else {
				b.WriteString(fmt.Sprintf("  buf%d -> pass%d [label=%q];\n", bi, a.passIndex, a.state.String()))
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func passLabelIfLive(p *Plan, passIdx int) (string, bool) {
	pass := p.graph.passes[passIdx]
	return pass.name, pass.culled
}
