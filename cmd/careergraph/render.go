package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/careergraph/career"
	"github.com/smallnest/careergraph/graph"
	"github.com/smallnest/careergraph/report"
)

const (
	formatText     = "text"
	formatMarkdown = "md"
	formatHTML     = "html"
	formatJSON     = "json"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

type matchesOutput struct {
	CheckpointID string             `json:"checkpoint_id"`
	Options      []career.CareerFit `json:"options"`
}

func writeMatches(w io.Writer, format, checkpointID string, fits []career.CareerFit) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(matchesOutput{CheckpointID: checkpointID, Options: fits})
	case formatMarkdown:
		_, err := fmt.Fprintf(w, "%s\nCheckpoint: `%s`\n", report.Matches(fits), checkpointID)
		return err
	case formatText:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	var boxes []string
	for i, f := range fits {
		lines := []string{
			titleStyle.Render(fmt.Sprintf("[%d] %s", i, f.Title)) + mutedStyle.Render(" "+f.Field),
			fmt.Sprintf("fit %.0f  skills %.0f  interest %.0f  market %.0f", f.OverallFit, f.SkillFit, f.InterestFit, f.MarketFit),
			fmt.Sprintf("%s, %s to entry", f.SalaryRange, f.TimeToEntry),
		}
		if f.Tagline != "" {
			lines = append(lines, mutedStyle.Render(f.Tagline))
		}
		boxes = append(boxes, boxStyle.Render(strings.Join(lines, "\n")))
	}
	_, err := fmt.Fprintf(w, "%s\ncheckpoint: %s\n", lipgloss.JoinVertical(lipgloss.Left, boxes...), checkpointID)
	return err
}

func writeSimulation(w io.Writer, format string, final graph.State) error {
	switch format {
	case formatJSON:
		data, err := career.Schema().Marshal(final)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case formatMarkdown, formatHTML:
		md, err := report.Markdown(final)
		if err != nil {
			return err
		}
		if format == formatHTML {
			md = report.HTML(md)
		}
		_, err = io.WriteString(w, md)
		return err
	case formatText:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	d, ok := final[career.FieldDashboard].(career.Dashboard)
	if !ok {
		return report.ErrNoDashboard
	}
	lines := []string{titleStyle.Render(d.Career) + mutedStyle.Render(" "+d.Field)}
	for _, m := range d.KeyMetrics {
		lines = append(lines, fmt.Sprintf("%-20s %s", m.Title, m.Value))
	}
	if len(d.Alternatives) > 0 {
		lines = append(lines, "alternatives: "+strings.Join(d.Alternatives, ", "))
	}
	for _, a := range d.ImmediateActions {
		lines = append(lines, "next: "+a)
	}
	for _, e := range graph.Errors(final) {
		lines = append(lines, warnStyle.Render("degraded: "+e))
	}
	_, err := fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
	return err
}
