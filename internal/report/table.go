package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	columnGap    = "  "
	truncateTail = "…"
)

type column struct {
	title string
	right bool
	// max caps the column width; zero means unbounded.
	max int
}

type table struct {
	columns []column
	header  bool
	rows    [][]string
}

func newTable(header bool, columns ...column) *table {
	return &table{columns: columns, header: header}
}

func (t *table) add(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
		if limit := t.columns[i].max; limit > 0 && displayWidth(row[i]) > limit {
			row[i] = runewidth.Truncate(row[i], limit, truncateTail)
		}
	}
	t.rows = append(t.rows, row)
}

// cells returns the header (when enabled) followed by every row, with each
// cell padded to its column width.
func (t *table) cells() [][]string {
	widths := make([]int, len(t.columns))
	all := t.rows
	if t.header {
		titles := make([]string, len(t.columns))
		for i, c := range t.columns {
			titles[i] = c.title
		}
		all = append([][]string{titles}, t.rows...)
	}
	for _, row := range all {
		for i, cell := range row {
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	out := make([][]string, 0, len(all))
	for _, row := range all {
		padded := make([]string, len(row))
		for i, cell := range row {
			padded[i] = padCell(cell, widths[i], t.columns[i].right)
		}
		out = append(out, padded)
	}
	return out
}

func joinCells(cells []string) string {
	return strings.TrimRight(strings.Join(cells, columnGap), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	gap := width - displayWidth(value)
	if gap <= 0 {
		return value
	}
	if rightAlign {
		return strings.Repeat(" ", gap) + value
	}
	return value + strings.Repeat(" ", gap)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
