package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"diachron/internal/domain"
	"diachron/internal/service"
	"diachron/internal/stats"
)

// ReportPort is the TUI-facing subset of the study service.
type ReportPort interface {
	Report(v domain.Variant) (*service.Result, error)
}

// Model is the Bubble Tea model for browsing aggregated runs.
type Model struct {
	service  ReportPort
	variant  domain.Variant
	result   *service.Result
	table    table.Model
	viewport viewport.Model
	status   string
	ready    bool
}

// New creates a browser showing res, the report of variant.
func New(svc ReportPort, variant domain.Variant, res *service.Result) Model {
	t := table.New(table.WithFocused(true), table.WithHeight(8))
	st := table.DefaultStyles()
	st.Header = st.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	st.Selected = st.Selected.Foreground(lipgloss.Color("11")).Bold(true)
	t.SetStyles(st)
	m := Model{service: svc, variant: variant, table: t, viewport: viewport.New(0, 0)}
	m.load(res)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, dh := detailBoxStyle.GetFrameSize()
		reserved := 2 + m.table.Height() + 2 + 1 // header, table, table border, status
		m.table.SetWidth(max(20, msg.Width-2))
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-dh)
		m.viewport.SetContent(m.renderDetail())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "1", "2", "3", "4":
			v := domain.Variants[int(msg.String()[0]-'1')]
			res, err := m.service.Report(v)
			if err != nil {
				m.status = fmt.Sprintf("%s: %v", v, err)
				return m, nil
			}
			m.variant = v
			m.load(res)
			return m, nil
		case "pgdown", "J":
			m.viewport.LineDown(1)
			return m, nil
		case "pgup", "K":
			m.viewport.LineUp(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.viewport.SetContent(m.renderDetail())
	return m, cmd
}

// View renders the table of means and the detail of the selected target.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("diachron report  variant=%s", m.variant)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  [1-4] variant  [↑/↓] target  [q] quit")
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + tableBoxStyle.Render(m.table.View()) + "\n" + detailBoxStyle.Render(m.viewport.View()) + "\n" + status
}

func (m *Model) load(res *service.Result) {
	m.result = res
	if res == nil || res.Table == nil {
		m.table.SetRows(nil)
		m.status = "No runs."
		return
	}
	tbl := res.Table
	cols := []table.Column{{Title: "target", Width: colWidth(tbl.Targets, 8)}}
	for _, era := range tbl.Eras {
		cols = append(cols, table.Column{Title: era, Width: 8})
	}
	rows := make([]table.Row, len(tbl.Targets))
	for i, target := range tbl.Targets {
		row := table.Row{target}
		for _, st := range tbl.Stats[i] {
			row = append(row, formatMean(st))
		}
		rows[i] = row
	}
	// columns first so rows never outnumber cells
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.table.SetCursor(0)
	m.status = fmt.Sprintf("runs %s", res.Runs.ID)
	if res.Insufficient != nil {
		m.status += "  (some cells have too few samples)"
	}
	m.viewport.SetContent(m.renderDetail())
}

func (m Model) renderDetail() string {
	if m.result == nil || m.result.Table == nil || len(m.result.Table.Targets) == 0 {
		return "Nothing to show."
	}
	ti := m.table.Cursor()
	if ti < 0 || ti >= len(m.result.Table.Targets) {
		ti = 0
	}
	return RenderSeries(m.result.Table, ti)
}

// RenderSeries describes one target across eras: the interval, the sample
// counts and a bar locating the mean in [-1, 1].
func RenderSeries(tbl *stats.Table, target int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  (%s)", tbl.Targets[target], tbl.Variant)))
	b.WriteString("\n\n")
	for ei, era := range tbl.Eras {
		st := tbl.Stats[target][ei]
		if !st.OK {
			fmt.Fprintf(&b, "%-6s %s  valid=%d missing=%d\n", era, missingStyle.Render(domain.MissingMarker), st.Valid, st.Missing)
			continue
		}
		fmt.Fprintf(&b, "%-6s %+.4f  [%+.4f, %+.4f]  valid=%d missing=%d  %s\n",
			era, st.Mean, st.Lower, st.Upper, st.Valid, st.Missing, bar(st.Mean, 21))
	}
	return b.String()
}

func bar(v float64, width int) string {
	pos := int((v + 1) / 2 * float64(width-1))
	pos = min(max(pos, 0), width-1)
	cells := []rune(strings.Repeat("·", width))
	cells[width/2] = '|'
	cells[pos] = '●'
	return barStyle.Render(string(cells))
}

func formatMean(st stats.EraStatistic) string {
	if !st.OK {
		return domain.MissingMarker
	}
	return fmt.Sprintf("%+.3f", st.Mean)
}

func colWidth(words []string, least int) int {
	w := least
	for _, s := range words {
		w = max(w, len(s))
	}
	return w
}

var (
	tableBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	detailBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	missingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)
