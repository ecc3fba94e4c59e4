package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellTexts(row Row) []string {
	texts := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		if v, ok := c.Value(); ok {
			texts[i] = v.String()
		} else {
			texts[i] = "<absent>"
		}
	}
	return texts
}

func TestProjector_AllFields(t *testing.T) {
	p := NewProjector(nil)
	assert.False(t, p.Resolved())
	assert.Empty(t, p.Columns())

	row := p.Project(Entry{Source: "bttf.avro", Value: person("Marty", "McFly", 24)})
	assert.True(t, p.Resolved())
	assert.Equal(t, []string{"firstName", "lastName", "age"}, p.Columns())
	assert.Equal(t, "bttf.avro", row.Source)
	assert.Equal(t, []string{"Marty", "McFly", "24"}, cellTexts(row))
}

func TestProjector_SelectedFields(t *testing.T) {
	p := NewProjector([]string{"age", "firstName", "age", "hoverboard"})
	assert.True(t, p.Resolved())
	assert.Equal(t, []string{"age", "firstName", "hoverboard"}, p.Columns())

	row := p.Project(Entry{Value: person("Biff", "Tannen", 72)})
	assert.Equal(t, []string{"72", "Biff", "<absent>"}, cellTexts(row))
	assert.True(t, row.Cells[2].IsAbsent())
}

func TestProjector_ColumnsStayFixed(t *testing.T) {
	p := NewProjector(nil)
	p.Project(Entry{Value: person("Marty", "McFly", 24)})

	// 後続のファイルのスキーマが異なっても列は変わらない
	other := &Record{Name: "Car", Fields: []RecordField{
		{Name: "model", Value: String("DeLorean")},
		{Name: "firstName", Value: String("Doc")},
	}}
	row := p.Project(Entry{Value: other})
	assert.Equal(t, []string{"firstName", "lastName", "age"}, p.Columns())
	assert.Equal(t, []string{"Doc", "<absent>", "<absent>"}, cellTexts(row))

	row = p.Project(Entry{Value: Long(88)})
	assert.Equal(t, []string{"<absent>", "<absent>", "<absent>"}, cellTexts(row))
}

func TestProjector_NonRecordValues(t *testing.T) {
	p := NewProjector(nil)
	row := p.Project(Entry{Value: Long(1955)})
	assert.Equal(t, []string{"value"}, p.Columns())
	assert.Equal(t, []string{"1955"}, cellTexts(row))

	p = NewProjector([]string{"value", "other"})
	row = p.Project(Entry{Value: String("1.21 gigawatts")})
	assert.Equal(t, []string{"1.21 gigawatts", "<absent>"}, cellTexts(row))
}

func TestProjector_ResolveFrom(t *testing.T) {
	p := NewProjector(nil)
	p.ResolveFrom(nil)
	assert.False(t, p.Resolved())

	p.ResolveFrom(mustParseSchema(t, personSchema))
	require.True(t, p.Resolved())
	assert.Equal(t, []string{"firstName", "lastName", "age"}, p.Columns())

	p = NewProjector(nil)
	p.ResolveFrom(mustParseSchema(t, `["null", "string"]`))
	assert.Equal(t, []string{"value"}, p.Columns())

	p = NewProjector([]string{"age"})
	p.ResolveFrom(mustParseSchema(t, personSchema))
	assert.Equal(t, []string{"age"}, p.Columns())
}

func TestCell(t *testing.T) {
	absent := Absent()
	assert.True(t, absent.IsAbsent())
	_, ok := absent.Value()
	assert.False(t, ok)

	var zero Cell
	assert.True(t, zero.IsAbsent())

	present := Present(Null{})
	assert.False(t, present.IsAbsent())
	v, ok := present.Value()
	assert.True(t, ok)
	assert.Equal(t, Null{}, v)
}
