package internal

import (
	"encoding/csv"
	"io"
)

// 値を持たないセルは空のフィールドになり、空文字列とは区別できない
type csvRenderer struct {
	w      *csv.Writer
	record []string
}

func newCSVRenderer(w io.Writer) *csvRenderer {
	return &csvRenderer{w: csv.NewWriter(w)}
}

func (r *csvRenderer) Begin(columns []string) error {
	r.record = make([]string, len(columns))
	return r.w.Write(columns)
}

func (r *csvRenderer) Row(row Row, _ MatchReport) error {
	for i, cell := range row.Cells {
		r.record[i] = ""
		if v, ok := cell.Value(); ok {
			r.record[i] = v.String()
		}
	}
	return r.w.Write(r.record)
}

func (r *csvRenderer) End() error {
	r.w.Flush()
	return r.w.Error()
}
