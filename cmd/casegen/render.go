package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/casegen/internal/pipeline"
)

const separatorWidth = 50

// printer writes reports as indented JSON or styled text.
type printer struct {
	w      io.Writer
	format string

	heading lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	ok      lipgloss.Style
	bad     lipgloss.Style
	dim     lipgloss.Style
}

func newPrinter(w io.Writer, format string) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		format:  format,
		heading: r.NewStyle().Bold(true),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   r.NewStyle().Width(22),
		ok:      r.NewStyle().Foreground(lipgloss.Color("10")),
		bad:     r.NewStyle().Foreground(lipgloss.Color("9")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (p *printer) section(name string) {
	fmt.Fprintf(p.w, "\n%s\n", p.heading.Render("=== "+name+" ==="))
}

func (p *printer) separator() {
	fmt.Fprintln(p.w, p.dim.Render(strings.Repeat("-", separatorWidth)))
}

func (p *printer) json(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(out))
	return err
}

func (p *printer) report(r pipeline.Report) error {
	if p.format == outputJSON {
		return p.json(r)
	}

	fmt.Fprintln(p.w, p.title.Render(r.UserStory))
	p.row("Generated test cases", fmt.Sprint(r.GeneratedTestCases))
	p.row("Created issues", p.ok.Render(fmt.Sprint(r.CreatedIssues)))
	failed := fmt.Sprint(r.FailedIssues)
	if r.FailedIssues > 0 {
		failed = p.bad.Render(failed)
	}
	p.row("Failed issues", failed)
	if len(r.TestCaseKeys) > 0 {
		p.row("Test case keys", strings.Join(r.TestCaseKeys, ", "))
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(p.w, "  Errors:")
		for _, e := range r.Errors {
			fmt.Fprintf(p.w, "    - %s\n", p.bad.Render(e))
		}
	}
	return nil
}

func (p *printer) coverage(r pipeline.CoverageReport) error {
	if p.format == outputJSON {
		return p.json(r)
	}
	if r.IsEmpty() {
		fmt.Fprintln(p.w, p.bad.Render("Coverage report unavailable"))
		return nil
	}

	fmt.Fprintln(p.w, p.title.Render("Coverage for "+r.ProjectKey))
	p.row("Stories", fmt.Sprint(r.TotalStories))
	p.row("Tests", fmt.Sprint(r.TotalTests))
	p.row("Stories with tests", fmt.Sprint(r.StoriesWithTests))
	p.row("Coverage", fmt.Sprintf("%.2f%%", r.CoveragePercentage))
	p.row("Tests per story", fmt.Sprintf("%.2f", r.TestsPerStoryAvg))
	return nil
}

func (p *printer) row(label, value string) {
	fmt.Fprintf(p.w, "  %s%s\n", p.label.Render(label+":"), value)
}
