package internal

import (
	"fmt"
	"io"
)

type (
	Format int

	// Renderer writes the final rows in one output format. Begin is called
	// once with the columns, then Row for every retained row, then End.
	Renderer interface {
		Begin(columns []string) error
		Row(row Row, report MatchReport) error
		End() error
	}

	// Styler decorates table cells. The table renderer only decides which
	// cells are emphasized; how is up to the Styler.
	Styler interface {
		Header(text string) string
		Matched(text string) string
		Absent(text string) string
	}

	RenderOptions struct {
		Styler Styler
		Pretty bool // JSON をインデント付きで出力する
	}

	PlainStyler struct{}
)

const (
	FormatTable Format = iota
	FormatCSV
	FormatJSON
)

// 値を持たないセルの表での表記
const absentText = "N/A"

// ParseFormat maps a format name to a Format. An empty name means table.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "table":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown output format '%s'", name)
	}
}

func (f Format) String() string {
	switch f {
	case FormatTable:
		return "table"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// NewRenderer returns the renderer for the format.
func NewRenderer(format Format, w io.Writer, opts RenderOptions) Renderer {
	if opts.Styler == nil {
		opts.Styler = PlainStyler{}
	}

	switch format {
	case FormatCSV:
		return newCSVRenderer(w)
	case FormatJSON:
		return newJSONRenderer(w, opts.Pretty)
	default:
		return newTableRenderer(w, opts.Styler)
	}
}

func (PlainStyler) Header(text string) string  { return text }
func (PlainStyler) Matched(text string) string { return text }
func (PlainStyler) Absent(text string) string  { return text }
