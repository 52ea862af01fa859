package framegraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// WriteDot renders the compiled frame as a Graphviz digraph: one node per
// pass, one edge per dependency labeled with the resource and the
// primitive it was lowered to. Culled passes are drawn dashed.
func (p *Plan) WriteDot(w io.Writer, names func(*Dependency) string) error {
	var sb strings.Builder
	sb.WriteString("digraph framegraph {\n")
	sb.WriteString("  node [shape=box, fontname=monospace];\n")
	for _, pp := range p.Passes {
		// Graphviz DOT: "\l" ends a left-aligned line.
		text := fmt.Sprintf("%s\\l%s on %s\\l", pp.Name, pp.Kind, pp.Queue)
		if pp.RenderPass != nil {
			text += fmt.Sprintf("render pass: %d attachments\\l", len(pp.RenderPass.Attachments))
		}
		style := ""
		if !pp.Alive {
			style = ", style=dashed, fontcolor=gray"
		}
		fmt.Fprintf(&sb, "  p%d [label=\"%s\"%s];\n", pp.ID, text, style)
	}
	for _, d := range p.Edges() {
		label := d.Sync.String()
		if names != nil {
			label = names(&d) + "\\n" + label
		}
		fmt.Fprintf(&sb, "  p%d -> p%d [label=\"%s\"];\n", d.Producer, d.Consumer, label)
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "framegraph: write dot")
}

// WriteDot renders the graph's compiled frame with resource names.
func (g *Graph) WriteDot(w io.Writer) error {
	f := g.f
	return g.Plan().WriteDot(w, func(d *Dependency) string {
		return f.depResource(d)
	})
}
