package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// Exporter provides methods to export graphs in different formats
type Exporter struct {
	graph *StateGraph
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter(graph *StateGraph) *Exporter {
	return &Exporter{graph: graph}
}

// GetGraphForRunnable returns an Exporter for the compiled graph.
func GetGraphForRunnable(r *Runnable) *Exporter {
	return NewExporter(r.graph)
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (ge *Exporter) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options
func (ge *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	g := ge.graph
	if g.entryPoint != "" {
		sb.WriteString("    START([\"START\"])\n")
		fmt.Fprintf(&sb, "    START --> %s\n", g.entryPoint)
		sb.WriteString("    style START fill:#90EE90\n")
	}

	for _, name := range g.nodeOrder {
		if _, ok := g.fanIns[name]; ok {
			fmt.Fprintf(&sb, "    %s{{\"%s\"}}\n", name, name)
			continue
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
	}

	if ge.referencesEnd() {
		sb.WriteString("    END([\"END\"])\n")
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	for _, edge := range g.edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", edge.From, edge.To)
	}

	for _, from := range g.conditionalSources() {
		ce := g.conditionalEdges[from]
		for _, label := range sortedLabels(ce.Branches) {
			fmt.Fprintf(&sb, "    %s -. %s .-> %s\n", from, label, ce.Branches[label])
		}
	}

	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", g.entryPoint)
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter) DrawDOT() (string, error) {
	g := ge.graph
	dot := gographviz.NewGraph()
	if err := dot.SetName("G"); err != nil {
		return "", err
	}
	if err := dot.SetDir(true); err != nil {
		return "", err
	}
	if err := dot.AddAttr("G", "rankdir", "TB"); err != nil {
		return "", err
	}

	if g.entryPoint != "" {
		if err := dot.AddNode("G", "START", map[string]string{
			"shape": "ellipse", "style": "filled", "fillcolor": "lightgreen",
		}); err != nil {
			return "", err
		}
	}

	for _, name := range g.nodeOrder {
		attrs := map[string]string{"shape": "box", "label": quote(name)}
		if name == g.entryPoint {
			attrs["style"] = "filled"
			attrs["fillcolor"] = "lightblue"
		}
		if _, ok := g.fanIns[name]; ok {
			attrs["shape"] = "hexagon"
		}
		if n := g.nodes[name]; n.Description != "" {
			attrs["tooltip"] = quote(n.Description)
		}
		if err := dot.AddNode("G", name, attrs); err != nil {
			return "", err
		}
	}

	if ge.referencesEnd() {
		if err := dot.AddNode("G", END, map[string]string{
			"shape": "ellipse", "style": "filled", "fillcolor": "lightpink",
		}); err != nil {
			return "", err
		}
	}

	if g.entryPoint != "" {
		if err := dot.AddEdge("START", g.entryPoint, true, nil); err != nil {
			return "", err
		}
	}
	for _, edge := range g.edges {
		if err := dot.AddEdge(edge.From, edge.To, true, nil); err != nil {
			return "", err
		}
	}
	for _, from := range g.conditionalSources() {
		ce := g.conditionalEdges[from]
		for _, label := range sortedLabels(ce.Branches) {
			attrs := map[string]string{"style": "dashed", "label": quote(label)}
			if err := dot.AddEdge(from, ce.Branches[label], true, attrs); err != nil {
				return "", err
			}
		}
	}

	return dot.String(), nil
}

// DrawASCII generates an ASCII tree representation of the graph
func (ge *Exporter) DrawASCII() string {
	if ge.graph.entryPoint == "" {
		return "No entry point set\n"
	}

	var sb strings.Builder
	visited := make(map[string]bool)

	sb.WriteString("Graph Execution Flow:\n")
	sb.WriteString("├── START\n")

	ge.drawASCIINode(ge.graph.entryPoint, "│   ", true, "", visited, &sb)

	return sb.String()
}

// drawASCIINode recursively draws nodes. A node reached a second time, such
// as a join, is printed once more and marked but not expanded again.
func (ge *Exporter) drawASCIINode(nodeName, prefix string, isLast bool, label string, visited map[string]bool, sb *strings.Builder) {
	connector := "├──"
	nextPrefix := prefix + "│   "
	if isLast {
		connector = "└──"
		nextPrefix = prefix + "    "
	}

	text := nodeName
	if label != "" {
		text = fmt.Sprintf("[%s] %s", label, nodeName)
	}
	if visited[nodeName] {
		fmt.Fprintf(sb, "%s%s %s (see above)\n", prefix, connector, text)
		return
	}
	visited[nodeName] = true
	fmt.Fprintf(sb, "%s%s %s\n", prefix, connector, text)

	if nodeName == END {
		return
	}

	type child struct{ name, label string }
	var children []child
	if ce, ok := ge.graph.conditionalEdges[nodeName]; ok {
		for _, l := range sortedLabels(ce.Branches) {
			children = append(children, child{ce.Branches[l], l})
		}
	} else {
		for _, edge := range ge.graph.edges {
			if edge.From == nodeName {
				children = append(children, child{name: edge.To})
			}
		}
	}

	for i, c := range children {
		ge.drawASCIINode(c.name, nextPrefix, i == len(children)-1, c.label, visited, sb)
	}
}

func (ge *Exporter) referencesEnd() bool {
	for _, edge := range ge.graph.edges {
		if edge.To == END {
			return true
		}
	}
	for _, ce := range ge.graph.conditionalEdges {
		for _, to := range ce.Branches {
			if to == END {
				return true
			}
		}
	}
	return false
}

// conditionalSources returns the nodes with a conditional edge in
// declaration order.
func (g *StateGraph) conditionalSources() []string {
	var out []string
	for _, name := range g.nodeOrder {
		if _, ok := g.conditionalEdges[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func sortedLabels(branches map[string]string) []string {
	labels := make([]string, 0, len(branches))
	for l := range branches {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
