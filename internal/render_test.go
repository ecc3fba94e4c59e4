package internal

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bracketStyler struct{}

func (bracketStyler) Header(text string) string  { return "<" + text + ">" }
func (bracketStyler) Matched(text string) string { return "*" + text + "*" }
func (bracketStyler) Absent(text string) string  { return "!" + text + "!" }

func render(t *testing.T, format Format, opts RenderOptions, columns []string, rows ...Row) string {
	t.Helper()

	var buf bytes.Buffer
	r := NewRenderer(format, &buf, opts)
	require.NoError(t, r.Begin(columns))
	for _, row := range rows {
		require.NoError(t, r.Row(row, MatchReport{Retained: true}))
	}
	require.NoError(t, r.End())
	return buf.String()
}

func rowOf(cells ...Cell) Row {
	return Row{Cells: cells}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"": FormatTable, "table": FormatTable, "csv": FormatCSV, "json": FormatJSON} {
		got, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("parquet")
	assert.Error(t, err)
	assert.Equal(t, "csv", FormatCSV.String())
}

func TestTableRenderer(t *testing.T) {
	out := render(t, FormatTable, RenderOptions{}, []string{"firstName", "age"},
		rowOf(Present(String("Marty")), Present(Long(24))),
		rowOf(Present(String("Biff")), Present(Long(72))),
	)

	assert.Equal(t, ""+
		"+-----------+-----+\n"+
		"| firstName | age |\n"+
		"+===========+=====+\n"+
		"| Marty     | 24  |\n"+
		"+-----------+-----+\n"+
		"| Biff      | 72  |\n"+
		"+-----------+-----+\n",
		out,
	)
}

func TestTableRenderer_AbsentAndWideCells(t *testing.T) {
	out := render(t, FormatTable, RenderOptions{}, []string{"name", "note"},
		rowOf(Present(String("ドク")), Absent()),
	)

	assert.Equal(t, ""+
		"+------+------+\n"+
		"| name | note |\n"+
		"+======+======+\n"+
		"| ドク | N/A  |\n"+
		"+------+------+\n",
		out,
	)
}

func TestTableRenderer_MultilineCells(t *testing.T) {
	out := render(t, FormatTable, RenderOptions{}, []string{"x", "y"},
		rowOf(Present(String("a\r\nbc")), Present(Long(1))),
	)

	assert.Equal(t, ""+
		"+----+---+\n"+
		"| x  | y |\n"+
		"+====+===+\n"+
		"| a  | 1 |\n"+
		"| bc |   |\n"+
		"+----+---+\n",
		out,
	)
}

func TestTableRenderer_Styles(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf, RenderOptions{Styler: bracketStyler{}})
	require.NoError(t, r.Begin([]string{"firstName", "lastName", "car"}))

	matched := bitset.New(3).Set(1)
	require.NoError(t, r.Row(rowOf(Present(String("Marty")), Present(String("McFly")), Absent()), MatchReport{Retained: true, Matched: matched}))
	require.NoError(t, r.End())

	// 幅は装飾前の文字列で計算される
	assert.Equal(t, ""+
		"+-----------+----------+-----+\n"+
		"| <firstName> | <lastName> | <car> |\n"+
		"+===========+==========+=====+\n"+
		"| Marty     | *McFly*    | !N/A! |\n"+
		"+-----------+----------+-----+\n",
		buf.String(),
	)
}

func TestTableRenderer_NoColumns(t *testing.T) {
	assert.Empty(t, render(t, FormatTable, RenderOptions{}, nil))
}

func TestTableRenderer_HeaderOnly(t *testing.T) {
	out := render(t, FormatTable, RenderOptions{}, []string{"firstName"})
	assert.Equal(t, "+-----------+\n| firstName |\n+===========+\n", out)
}

func TestCSVRenderer(t *testing.T) {
	out := render(t, FormatCSV, RenderOptions{}, []string{"firstName", "note"},
		rowOf(Present(String("Marty")), Absent()),
		rowOf(Present(String("Doc, Emmett")), Present(String(`say "Great Scott"`))),
	)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"firstName", "note"},
		{"Marty", ""},
		{"Doc, Emmett", `say "Great Scott"`},
	}, records)
}

func TestCSVRenderer_MultilineCells(t *testing.T) {
	out := render(t, FormatCSV, RenderOptions{}, []string{"quote", "year"},
		rowOf(Present(String("1.21\ngigawatts")), Present(Long(1955))),
		rowOf(Present(String("where we're going\r\nwe don't need roads")), Present(Long(2015))),
	)

	assert.Contains(t, out, "\"1.21\ngigawatts\",1955\n")

	// csv.Reader は引用符内の \r\n を \n として返す
	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"quote", "year"},
		{"1.21\ngigawatts", "1955"},
		{"where we're going\nwe don't need roads", "2015"},
	}, records)
}

func TestJSONRenderer(t *testing.T) {
	out := render(t, FormatJSON, RenderOptions{}, []string{"firstName", "age", "car"},
		rowOf(Present(String("Marty")), Present(Long(24)), Absent()),
		rowOf(Present(String("Biff")), Present(Long(72)), Present(Null{})),
	)

	assert.Equal(t, ""+
		`{"firstName":"Marty","age":24}`+"\n"+
		`{"firstName":"Biff","age":72,"car":null}`+"\n",
		out,
	)
}

func TestJSONRenderer_Pretty(t *testing.T) {
	out := render(t, FormatJSON, RenderOptions{Pretty: true}, []string{"firstName", "age"},
		rowOf(Present(String("Marty")), Present(Long(24))),
	)

	assert.Equal(t, "{\n  \"firstName\": \"Marty\",\n  \"age\": 24\n}\n", out)
}

func TestJSONValue(t *testing.T) {
	attrs := NewMap()
	attrs.Entries.Set("z", Long(1))
	attrs.Entries.Set("a", Float(1.5))

	rec := &Record{Name: "Doc", Fields: []RecordField{
		{Name: "name", Value: String("Emmett")},
		{Name: "tags", Value: Array{String("inventor")}},
		{Name: "attrs", Value: attrs},
		{Name: "hash", Value: Fixed{1, 2}},
		{Name: "raw", Value: Bytes{}},
		{Name: "nick", Value: Union{Branch: 1, Value: String("Doc")}},
		{Name: "none", Value: Union{Branch: 0, Value: Null{}}},
		{Name: "suit", Value: Enum{Index: 1, Symbol: "HEARTS"}},
		{Name: "ok", Value: Boolean(true)},
		{Name: "nan", Value: Double(math.NaN())},
		{Name: "inf", Value: Float(float32(math.Inf(1)))},
		{Name: "day", Value: Date(time.Date(1955, 11, 5, 0, 0, 0, 0, time.UTC))},
	}}

	encoded, err := json.Marshal(JSONValue(rec))
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"Emmett","tags":["inventor"],"attrs":{"z":1,"a":1.5},"hash":[1,2],"raw":[],`+
			`"nick":"Doc","none":null,"suit":"HEARTS","ok":true,"nan":0,"inf":0,"day":"1955-11-05"}`,
		string(encoded),
	)
}
