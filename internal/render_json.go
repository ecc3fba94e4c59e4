package internal

import (
	"bytes"
	"encoding/json"
	"io"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// 1行を1つの JSON オブジェクトとして出力する
// キーは列の順に並び、値を持たないセルのキーは出力しない
type jsonRenderer struct {
	w       io.Writer
	pretty  bool
	columns []string
	buf     bytes.Buffer
}

func newJSONRenderer(w io.Writer, pretty bool) *jsonRenderer {
	return &jsonRenderer{w: w, pretty: pretty}
}

func (r *jsonRenderer) Begin(columns []string) error {
	r.columns = columns
	return nil
}

func (r *jsonRenderer) Row(row Row, _ MatchReport) error {
	obj := orderedmap.New[string, any]()
	for i, cell := range row.Cells {
		if v, ok := cell.Value(); ok {
			obj.Set(r.columns[i], JSONValue(v))
		}
	}

	encoded, err := obj.MarshalJSON()
	if err != nil {
		return err
	}

	r.buf.Reset()
	if r.pretty {
		if err := json.Indent(&r.buf, encoded, "", "  "); err != nil {
			return err
		}
	} else {
		r.buf.Write(encoded)
	}
	r.buf.WriteByte('\n')

	_, err = r.w.Write(r.buf.Bytes())
	return err
}

func (r *jsonRenderer) End() error {
	return nil
}

// JSONValue converts a value to its JSON counterpart. Bytes and fixed become
// arrays of integers, enums their symbol, and logical types their text form.
func JSONValue(v Value) any {
	switch v := v.(type) {
	case Null:
		return nil
	case Boolean:
		return bool(v)
	case Long:
		return int64(v)
	case Float:
		// JSON には NaN や無限大の表現がないので 0 とする
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return float32(v)
	case Double:
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return float64(v)
	case String:
		return string(v)
	case Bytes:
		return byteArray(v)
	case Fixed:
		return byteArray(v)
	case Enum:
		return v.Symbol
	case Union:
		return JSONValue(v.Value)
	case Array:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = JSONValue(item)
		}
		return items
	case *Record:
		obj := orderedmap.New[string, any]()
		for _, f := range v.Fields {
			obj.Set(f.Name, JSONValue(f.Value))
		}
		return obj
	case *Map:
		obj := orderedmap.New[string, any]()
		for pair := v.Entries.Oldest(); pair != nil; pair = pair.Next() {
			obj.Set(pair.Key, JSONValue(pair.Value))
		}
		return obj
	default:
		return v.String()
	}
}

func byteArray(b []byte) []int {
	ints := make([]int, len(b))
	for i, n := range b {
		ints[i] = int(n)
	}
	return ints
}
