package graph

import (
	"fmt"
	"sort"
	"strings"
)

// DOT 以 Graphviz DOT 文本输出图的拓扑，仅用于诊断展示。
func (r *Runnable[S]) DOT() string {
	var b strings.Builder
	b.WriteString("digraph workflow {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  __start__ [shape=circle,label=\"START\"];\n")
	b.WriteString("  __end__ [shape=doublecircle,label=\"END\"];\n")

	names := r.nodeNames()
	sort.Strings(names)
	for _, n := range names {
		shape := "box"
		if _, ok := r.tasks[n]; ok {
			shape = "box3d"
		}
		fmt.Fprintf(&b, "  %q [shape=%s];\n", n, shape)
	}

	fmt.Fprintf(&b, "  %q -> %q;\n", START, r.entry)
	froms := make([]string, 0, len(r.edges))
	for from := range r.edges {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		tos := append([]string(nil), r.edges[from]...)
		sort.Strings(tos)
		for _, to := range tos {
			if _, ok := r.fanouts[to]; ok {
				fmt.Fprintf(&b, "  %q -> %q [style=dashed,label=\"fan-out\"];\n", from, to)
				continue
			}
			fmt.Fprintf(&b, "  %q -> %q;\n", from, to)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
