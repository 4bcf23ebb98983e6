// Package report renders career simulation results as Markdown and
// sanitized HTML.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/smallnest/careergraph/career"
	"github.com/smallnest/careergraph/graph"
)

// ErrNoDashboard is returned for a state that never reached dashboard_formatter.
var ErrNoDashboard = errors.New("report: state has no dashboard")

// Markdown renders the final state of a simulation.
func Markdown(state graph.State) (string, error) {
	d, ok := state[career.FieldDashboard].(career.Dashboard)
	if !ok {
		return "", ErrNoDashboard
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Career Simulation: %s\n\n", d.Career)
	if d.Field != "" {
		fmt.Fprintf(&b, "_Field: %s_\n\n", d.Field)
	}
	if summary, _ := state[career.FieldReportSummary].(string); summary != "" {
		fmt.Fprintf(&b, "%s\n\n", summary)
	}
	if d.Degraded {
		b.WriteString("> Some steps failed and used fallback output. See Issues below.\n\n")
	}

	b.WriteString("## Key Metrics\n\n| Metric | Value |\n|---|---|\n")
	for _, m := range d.KeyMetrics {
		fmt.Fprintf(&b, "| %s | %s |\n", m.Title, m.Value)
	}
	b.WriteString("\n")

	if t, ok := state[career.FieldTimeline].(career.Timeline); ok && len(t.Paths) > 0 {
		b.WriteString("## Paths\n\n| Path | Years | Final salary |\n|---|---|---|\n")
		for _, p := range t.Paths {
			name := p.Label
			if p.Type == t.Recommended {
				name = "**" + name + "** (recommended)"
			}
			fmt.Fprintf(&b, "| %s | %d | $%.0f |\n", name, p.Years, p.FinalSalary)
		}
		fmt.Fprintf(&b, "\n%s\n\n", t.Reason)
	}

	if len(d.Milestones) > 0 {
		b.WriteString("## Milestones\n\n")
		for _, m := range d.Milestones {
			fmt.Fprintf(&b, "- Year %d Q%d: %s", m.Year, m.Quarter, m.Title)
			if m.Cost > 0 {
				fmt.Fprintf(&b, " ($%.0f)", m.Cost)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if ra, ok := state[career.FieldRiskAssessment].(career.RiskAssessment); ok && len(ra.Factors) > 0 {
		b.WriteString("## Risks\n\n")
		for _, f := range ra.Factors {
			fmt.Fprintf(&b, "- **%s** (%s, %s)\n", f.Name, f.Category, f.Severity)
		}
		b.WriteString("\n")
	}

	list(&b, "Alternatives", alternatives(state))
	list(&b, "Recommendations", d.TopRecommendations)
	list(&b, "Immediate Actions", d.ImmediateActions)
	warnings, _ := state[graph.FieldWarnings].([]string)
	list(&b, "Warnings", warnings)
	list(&b, "Issues", graph.Errors(state))

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func alternatives(state graph.State) []string {
	alts, _ := state[career.FieldAlternatives].([]career.AlternativeCareer)
	out := make([]string, 0, len(alts))
	for _, a := range alts {
		out = append(out, fmt.Sprintf("%s (%s): gap %.0f/100, %s transition", a.Role, a.Field, a.GapScore, strings.ToLower(a.Transition)))
	}
	return out
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// Matches renders the ranked options of phase one.
func Matches(fits []career.CareerFit) string {
	var b strings.Builder
	b.WriteString("# Career Matches\n\n| # | Career | Field | Fit | Salary |\n|---|---|---|---|---|\n")
	for i, f := range fits {
		fmt.Fprintf(&b, "| %d | %s | %s | %.0f | %s |\n", i, f.Title, f.Field, f.OverallFit, f.SalaryRange)
	}
	return b.String()
}

// HTML converts Markdown to HTML and strips anything unsafe.
func HTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return string(bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer)))
}
