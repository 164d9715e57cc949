// Package browse provides the Bubble Tea catalog browser.
package browse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/samplecat/internal/model"
	"github.com/verte-zerg/samplecat/internal/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// Model implements the Bubble Tea catalog browser.
type Model struct {
	store  *store.Store
	filter model.CatalogFilter

	entries []model.CatalogEntry
	counts  map[string]int
	errMsg  string

	table     table.Model
	files     viewport.Model
	showFiles bool
	selected  string

	width  int
	height int
}

// NewModel constructs a catalog browser model.
func NewModel(st *store.Store, filter model.CatalogFilter) *Model {
	m := &Model{
		store:  st,
		filter: filter,
		files:  viewport.New(0, 0),
	}
	m.table = table.New(
		table.WithColumns(columnsFor(nil)),
		table.WithFocused(true),
		table.WithHeight(1),
	)
	m.table.SetStyles(tableStyles())
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.showFiles {
				m.showFiles = false
				return m, nil
			}
			m.openFiles()
			return m, nil
		case "esc":
			m.showFiles = false
			return m, nil
		case "r":
			m.reload()
			m.updateLayout()
			return m, nil
		}
		var cmd tea.Cmd
		if m.showFiles {
			m.files, cmd = m.files.Update(msg)
		} else {
			m.table, cmd = m.table.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	parts := []string{m.renderHeader()}
	if m.showFiles {
		parts = append(parts, m.files.View())
	} else {
		parts = append(parts, m.table.View())
	}
	if m.errMsg != "" {
		parts = append(parts, errorStyle.Render(m.errMsg))
	}
	parts = append(parts, m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	if m.showFiles {
		return titleStyle.Render(fmt.Sprintf("%s (%d files)", m.selected, m.counts[m.selected]))
	}
	return titleStyle.Render(fmt.Sprintf("Samples (%d)", len(m.entries)))
}

func (m *Model) renderFooter() string {
	if m.showFiles {
		return footerStyle.Render("enter/esc back  up/down scroll  q quit")
	}
	return footerStyle.Render("enter files  r reload  up/down move  q quit")
}

func (m *Model) reload() {
	ctx := context.Background()
	entries, err := m.store.ListSamples(ctx, m.filter)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to list samples: %v", err)
		return
	}
	counts, err := m.store.FileCounts(ctx)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to count files: %v", err)
		return
	}
	m.errMsg = ""
	m.entries = entries
	m.counts = counts
	m.table.SetRows(nil)
	m.table.SetColumns(columnsFor(entries))
	m.table.SetRows(rowsFor(entries, counts))
	if m.table.Cursor() >= len(entries) {
		m.table.SetCursor(0)
	}
}

func (m *Model) openFiles() {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return
	}
	entry, err := m.store.GetSample(context.Background(), row[0])
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load %s: %v", row[0], err)
		return
	}
	m.errMsg = ""
	m.selected = entry.Sample.Name
	content := "No data files."
	if len(entry.Sample.Files) > 0 {
		content = strings.Join(entry.Sample.Files, "\n")
	}
	m.files.SetContent(content)
	m.files.GotoTop()
	m.showFiles = true
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	bodyHeight := m.height - 2
	if m.errMsg != "" {
		bodyHeight--
	}
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.table.SetWidth(m.width)
	// The header row and its border take two lines.
	m.table.SetHeight(maxInt(1, bodyHeight-2))
	m.files.Width = m.width
	m.files.Height = bodyHeight
}

func columnsFor(entries []model.CatalogEntry) []table.Column {
	nameWidth := len("Sample")
	for _, e := range entries {
		if w := lipgloss.Width(e.Sample.Name); w > nameWidth {
			nameWidth = w
		}
	}
	return []table.Column{
		{Title: "Sample", Width: nameWidth},
		{Title: "Type", Width: 4},
		{Title: "Class", Width: 10},
		{Title: "Tree", Width: 12},
		{Title: "Weight", Width: 10},
		{Title: "Files", Width: 6},
	}
}

func rowsFor(entries []model.CatalogEntry, counts map[string]int) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			e.Sample.Name,
			e.Sample.DataType.String(),
			e.Sample.ClassType.String(),
			e.Sample.Tree,
			strconv.FormatFloat(e.Sample.Weight, 'g', 6, 64),
			strconv.Itoa(counts[e.Sample.Name]),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
