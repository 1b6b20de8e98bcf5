// Package observability renders pipeline progress for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jonathan/code-reviewer/internal/pipeline"
)

const (
	// panelWidth is the width of stage output panels
	panelWidth = 80
	// maxPanelLines caps how much of a stage's output a panel shows
	maxPanelLines = 40
)

// roleColors mirrors the reviewers' console colours.
var roleColors = map[pipeline.Role]lipgloss.Color{
	pipeline.RoleBuild:  lipgloss.Color("#5B8DEF"),
	pipeline.RoleSyntax: lipgloss.Color("#C678DD"),
	pipeline.RoleDesign: lipgloss.Color("#E5C07B"),
	pipeline.RoleBoss:   lipgloss.Color("#98C379"),
}

var (
	ruleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98C379"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	defaultColor = lipgloss.Color("#AAAAAA")
)

// Printer is a pipeline.Observer that writes progress to a terminal.
// In verbose mode every stage output is shown in a bordered panel.
type Printer struct {
	out     io.Writer
	verbose bool
	mu      sync.Mutex
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose}
}

// OnProgress renders one event.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) OnProgress(e pipeline.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Event {
	case pipeline.EventStarted:
		if e.Index == 0 {
			fmt.Fprintln(p.out, ruleStyle.Render(fmt.Sprintf("── ANALYSE DE %s ──", e.Artifact)))
		}
		fmt.Fprintf(p.out, "Stage %d/%d: %s (%s) reviewing %s...\n", e.Index+1, e.Total, e.Stage, e.Model, e.Artifact)
	case pipeline.EventCompleted:
		if p.verbose {
			fmt.Fprintln(p.out, p.panel(e.Stage, e.Content))
			return
		}
		fmt.Fprintf(p.out, "  %s %s produced %d characters\n", okStyle.Render("✓"), e.Stage, e.Chars)
	case pipeline.EventFailed:
		label := "run"
		if e.Stage != "" {
			label = string(e.Stage)
		}
		fmt.Fprintf(p.out, "  %s %s failed for %s: %s\n", errorStyle.Render("✗"), label, e.Artifact, e.Message)
	case pipeline.EventSkipped:
		fmt.Fprintf(p.out, "%s %s\n", warnStyle.Render("⚠"), e.Message)
	case pipeline.EventWritten:
		fmt.Fprintf(p.out, "\n%s\n\n", okStyle.Render("✅ "+e.Message))
	default:
		fmt.Fprintln(p.out, dimStyle.Render(e.Message))
	}
}

// panel renders a stage's output in a bordered box titled by role.
func (p *Printer) panel(role pipeline.Role, content string) string {
	color, ok := roleColors[role]
	if !ok {
		color = defaultColor
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(color).
		Render(fmt.Sprintf("[IA %s]", strings.ToUpper(string(role))))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(panelWidth)

	return lipgloss.JoinVertical(lipgloss.Left, title, box.Render(truncateLines(content, maxPanelLines)))
}

// truncateLines keeps the first n lines and notes how many were dropped.
func truncateLines(content string, n int) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	kept := append(lines[:n:n], fmt.Sprintf("... and %d more lines", len(lines)-n))
	return strings.Join(kept, "\n")
}

// PrintReport summarises a batch.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintReport(report *pipeline.BatchReport) {
	if report == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out, ruleStyle.Render("── RÉSUMÉ ──"))
	for _, o := range report.Outcomes {
		switch o.Kind {
		case pipeline.OutcomeWritten:
			fmt.Fprintf(p.out, "  %s %s -> %s\n", okStyle.Render("✓"), o.Target, o.OutputName)
		case pipeline.OutcomeNotFound:
			fmt.Fprintf(p.out, "  %s %s (not found)\n", warnStyle.Render("-"), o.Target)
		default:
			fmt.Fprintf(p.out, "  %s %s (%s): %v\n", errorStyle.Render("✗"), o.Target, o.Kind, o.Err)
		}
	}
	fmt.Fprintf(p.out, "%d written, %d skipped, %d failed\n", report.Succeeded(), report.Skipped(), report.Failed())
}
