// Package report renders samples and catalog listings for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/samplecat/internal/model"
)

// Format selects how records are written.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	maxNameWidth = 48
	maxTreeWidth = 24
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (use text, json or yaml)", s)
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes reports to an output stream.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter returns a Printer. Styling is applied only when styled is set.
func NewPrinter(w io.Writer, styled bool) *Printer {
	return &Printer{w: w, styled: styled}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// writeTable styles the header row of headed tables and the label column of
// key/value tables after padding, so escape codes never skew alignment.
func (p *Printer) writeTable(t *table) error {
	for i, cells := range t.cells() {
		switch {
		case t.header && i == 0:
			for j := range cells {
				cells[j] = p.style(headerStyle, cells[j])
			}
		case !t.header && len(cells) > 0:
			cells[0] = p.style(labelStyle, cells[0])
		}
		if _, err := fmt.Fprintln(p.w, joinCells(cells)); err != nil {
			return err
		}
	}
	return nil
}

func keyValueTable() *table {
	return newTable(false, column{}, column{})
}

// Sample writes a resolved sample in the given format.
func (p *Printer) Sample(sample model.Sample, format Format) error {
	switch format {
	case FormatJSON:
		return p.json(sample)
	case FormatYAML:
		return p.yaml(sample)
	}
	t := keyValueTable()
	t.add("Name", sample.Name)
	t.add("Datatype", sample.DataType.String())
	t.add("Class", sample.ClassType.String())
	t.add("Tree", sample.Tree)
	t.add("Weight", formatWeight(sample.Weight))
	t.add("Files", strconv.Itoa(len(sample.Files)))
	if err := p.writeTable(t); err != nil {
		return err
	}
	for _, f := range sample.Files {
		if _, err := fmt.Fprintln(p.w, "  "+f); err != nil {
			return err
		}
	}
	return nil
}

type entryRecord struct {
	model.Sample `yaml:",inline"`
	Base         string    `json:"base" yaml:"base"`
	Periods      []string  `json:"periods,omitempty" yaml:"periods,omitempty"`
	ScanID       string    `json:"scan_id" yaml:"scan_id"`
	ResolvedAt   time.Time `json:"resolved_at" yaml:"resolved_at"`
}

// Entry writes a catalog entry in the given format.
func (p *Printer) Entry(entry model.CatalogEntry, format Format) error {
	rec := entryRecord{
		Sample:     entry.Sample,
		Base:       entry.Base,
		Periods:    entry.Periods,
		ScanID:     entry.ScanID,
		ResolvedAt: entry.ResolvedAt,
	}
	switch format {
	case FormatJSON:
		return p.json(rec)
	case FormatYAML:
		return p.yaml(rec)
	}
	if err := p.Sample(entry.Sample, FormatText); err != nil {
		return err
	}
	t := keyValueTable()
	t.add("Base", entry.Base)
	t.add("Periods", dash(strings.Join(entry.Periods, ",")))
	t.add("Scan", entry.ScanID)
	t.add("Resolved", entry.ResolvedAt.Local().Format(time.RFC3339))
	return p.writeTable(t)
}

// Catalog writes a table of catalog entries with their file counts.
func (p *Printer) Catalog(entries []model.CatalogEntry, counts map[string]int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(p.w, "No samples in catalog.")
		return err
	}
	t := newTable(true,
		column{title: "Sample", max: maxNameWidth},
		column{title: "Type"},
		column{title: "Class"},
		column{title: "Tree", max: maxTreeWidth},
		column{title: "Weight", right: true},
		column{title: "Files", right: true},
	)
	for _, e := range entries {
		t.add(
			e.Sample.Name,
			e.Sample.DataType.String(),
			e.Sample.ClassType.String(),
			e.Sample.Tree,
			formatWeight(e.Sample.Weight),
			strconv.Itoa(counts[e.Sample.Name]),
		)
	}
	return p.writeTable(t)
}

// Periods writes the period table.
func (p *Printer) Periods(periods []model.Period) error {
	t := newTable(true,
		column{title: "Period"},
		column{title: "First run", right: true},
		column{title: "Last run", right: true},
	)
	for _, per := range periods {
		t.add(per.Label, strconv.Itoa(per.Runs.Lo), strconv.Itoa(per.Runs.Hi-1))
	}
	return p.writeTable(t)
}

// ScanSummary writes the outcome of a catalog scan.
func (p *Printer) ScanSummary(summary model.ScanSummary) error {
	if _, err := fmt.Fprintf(p.w, "Scan %s: %d resolved, %d failed\n", summary.ScanID, summary.Resolved, summary.Failed); err != nil {
		return err
	}
	names := make([]string, 0, len(summary.Failures))
	for name := range summary.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		line := fmt.Sprintf("  %s: %v", name, summary.Failures[name])
		if _, err := fmt.Fprintln(p.w, p.style(errorStyle, line)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
