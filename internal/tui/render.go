package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"diachron/internal/coverage"
	"diachron/internal/stats"
)

// grid lays out rows of cells in columns padded to their widest cell. The
// first row is rendered as a header.
func grid(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			st := cellStyle.Width(widths[i])
			if i > 0 {
				st = st.Align(lipgloss.Right)
			}
			if r == 0 {
				st = st.Bold(true)
			}
			cells[i] = st.Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderTable renders per-era means of every target.
func RenderTable(tbl *stats.Table) string {
	rows := [][]string{append([]string{"target"}, tbl.Eras...)}
	for i, target := range tbl.Targets {
		row := []string{target}
		for _, st := range tbl.Stats[i] {
			row = append(row, formatMean(st))
		}
		rows = append(rows, row)
	}
	return titleStyle.Render(fmt.Sprintf("%s means", tbl.Variant)) + "\n" + grid(rows)
}

// RenderCoverage renders sentence counts per era and, per word, the share of
// sentences containing it with the chance a resample drops it entirely.
func RenderCoverage(r *coverage.Report) string {
	header := []string{"era", "sentences", "tokens"}
	header = append(header, r.Words...)
	rows := [][]string{header}
	for ei, row := range r.Rows {
		cells := []string{row.Era, fmt.Sprint(row.Sentences), fmt.Sprint(row.Tokens)}
		for _, w := range r.Words {
			cell := fmt.Sprintf("%d (p=%.2f)", row.DocFreq[w], r.MissProbability(ei, w))
			if row.DocFreq[w] == 0 {
				cell = missingStyle.Render(cell)
			}
			cells = append(cells, cell)
		}
		rows = append(rows, cells)
	}
	return titleStyle.Render("coverage: sentences containing word (p = resample misses it)") + "\n" + grid(rows)
}

var cellStyle = lipgloss.NewStyle().PaddingRight(2)
