package internal

import (
	"bufio"
	"io"
	"strings"

	"github.com/rivo/uniseg"
)

type (
	// 列幅を決めるには全行が必要なので、End までは出力せずに保持する
	tableRenderer struct {
		w       io.Writer
		styler  Styler
		columns []string
		rows    [][]tableCell
	}

	tableCell struct {
		lines []string
		style func(string) string
	}
)

func newTableRenderer(w io.Writer, styler Styler) *tableRenderer {
	return &tableRenderer{w: w, styler: styler}
}

func (t *tableRenderer) Begin(columns []string) error {
	t.columns = columns
	return nil
}

func (t *tableRenderer) Row(row Row, report MatchReport) error {
	cells := make([]tableCell, len(row.Cells))

	for i, cell := range row.Cells {
		v, ok := cell.Value()
		switch {
		case !ok:
			cells[i] = tableCell{lines: []string{absentText}, style: t.styler.Absent}
		case report.IsMatched(i):
			cells[i] = tableCell{lines: splitLines(v.String()), style: t.styler.Matched}
		default:
			cells[i] = tableCell{lines: splitLines(v.String())}
		}
	}

	t.rows = append(t.rows, cells)
	return nil
}

func (t *tableRenderer) End() error {
	if len(t.columns) == 0 {
		return nil
	}

	header := make([]tableCell, len(t.columns))
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		header[i] = tableCell{lines: splitLines(col), style: t.styler.Header}
		widths[i] = header[i].width()
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], cell.width())
		}
	}

	bw := bufio.NewWriter(t.w)
	border := tableBorder(widths, '-')

	bw.WriteString(border)
	writeTableRow(bw, header, widths)
	bw.WriteString(tableBorder(widths, '='))
	for _, row := range t.rows {
		writeTableRow(bw, row, widths)
		bw.WriteString(border)
	}

	return bw.Flush()
}

func (c tableCell) width() int {
	w := 0
	for _, line := range c.lines {
		w = max(w, uniseg.StringWidth(line))
	}
	return w
}

// +-----+----+ の形の区切り線
func tableBorder(widths []int, fill byte) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat(string(fill), w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

// 複数行にわたるセルがあれば、行の高さはその最大行数になる
func writeTableRow(bw *bufio.Writer, cells []tableCell, widths []int) {
	height := 1
	for _, c := range cells {
		height = max(height, len(c.lines))
	}

	for line := 0; line < height; line++ {
		bw.WriteByte('|')
		for i, c := range cells {
			text := ""
			if line < len(c.lines) {
				text = c.lines[line]
			}
			padding := strings.Repeat(" ", widths[i]-uniseg.StringWidth(text))
			if c.style != nil && text != "" {
				text = c.style(text)
			}
			bw.WriteByte(' ')
			bw.WriteString(text)
			bw.WriteString(padding)
			bw.WriteString(" |")
		}
		bw.WriteByte('\n')
	}
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
