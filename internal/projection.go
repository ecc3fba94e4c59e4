package internal

// レコードではない値しか持たないファイルは、この名前の列を1つだけ持つものとして扱う
const scalarColumn = "value"

type (
	// Cell is either a present value or absent, when the record's schema has
	// no field for the column. The zero Cell is absent.
	Cell struct {
		value   Value
		present bool
	}

	// Row holds one cell per column, aligned with the projector's columns.
	Row struct {
		Source string
		Cells  []Cell
	}

	// Projector maps records onto a stable list of columns.
	Projector struct {
		columns  []string
		resolved bool
	}
)

func Present(v Value) Cell {
	return Cell{value: v, present: true}
}

func Absent() Cell {
	return Cell{}
}

func (c Cell) IsAbsent() bool {
	return !c.present
}

func (c Cell) Value() (Value, bool) {
	return c.value, c.present
}

// NewProjector creates a projector for the requested fields. Duplicates are
// dropped, keeping the first occurrence. With no fields the columns are
// taken from the first projected record.
func NewProjector(fields []string) *Projector {
	p := &Projector{}
	if len(fields) == 0 {
		return p
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		p.columns = append(p.columns, f)
	}
	p.resolved = true
	return p
}

// Resolved reports whether the column list is fixed.
func (p *Projector) Resolved() bool {
	return p.resolved
}

// Columns returns the column names. Before the first record is projected
// it is empty when no fields were requested.
func (p *Projector) Columns() []string {
	return p.columns
}

// ResolveFrom fixes the columns from a schema when no record ever arrived.
func (p *Projector) ResolveFrom(s *Schema) {
	if p.resolved || s == nil {
		return
	}
	if s.Resolve().Type == TypeRecord {
		p.columns = s.FieldNames()
	} else {
		p.columns = []string{scalarColumn}
	}
	p.resolved = true
}

// Project extracts the cells of one record.
func (p *Projector) Project(rec Entry) Row {
	fields, isRecord := rec.Value.(*Record)

	// レコードのフィールドはスキーマの宣言順に並んでいる
	if !p.resolved {
		if isRecord {
			p.columns = make([]string, len(fields.Fields))
			for i, f := range fields.Fields {
				p.columns[i] = f.Name
			}
		} else {
			p.columns = []string{scalarColumn}
		}
		p.resolved = true
	}

	row := Row{Source: rec.Source, Cells: make([]Cell, len(p.columns))}

	for i, col := range p.columns {
		switch {
		case isRecord:
			if v, ok := fields.Get(col); ok {
				row.Cells[i] = Present(v)
			}
		case col == scalarColumn:
			row.Cells[i] = Present(rec.Value)
		}
	}

	return row
}
