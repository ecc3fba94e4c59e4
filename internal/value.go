package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type (
	// Value is a decoded Avro datum. The concrete type always matches the
	// schema node the value was decoded against.
	Value interface {
		Type() Type
		// String returns the canonical text form used for display and search.
		String() string
	}

	Null    struct{}
	Boolean bool
	Long    int64 // int と long の両方を表す
	Float   float32
	Double  float64
	Bytes   []byte
	String  string
	Fixed   []byte
	Array   []Value

	Record struct {
		Name   string
		Fields []RecordField
	}

	RecordField struct {
		Name  string
		Value Value
	}

	Map struct {
		Entries *orderedmap.OrderedMap[string, Value]
	}

	Enum struct {
		Index  int
		Symbol string
	}

	Union struct {
		Branch int
		Value  Value
	}

	// 論理型の値
	Decimal struct {
		Decimal decimal.Decimal
		Scale   int32
	}

	UUID uuid.UUID

	Date time.Time

	TimeOfDay struct {
		Since     time.Duration // 0時からの経過時間
		Precision time.Duration
	}

	Timestamp struct {
		Time      time.Time
		Precision time.Duration
		Local     bool
	}

	Duration struct {
		Months uint32
		Days   uint32
		Millis uint32
	}
)

const nullText = "null"

func NewMap() *Map {
	return &Map{Entries: orderedmap.New[string, Value]()}
}

func (Null) Type() Type      { return TypeNull }
func (Boolean) Type() Type   { return TypeBoolean }
func (Long) Type() Type      { return TypeLong }
func (Float) Type() Type     { return TypeFloat }
func (Double) Type() Type    { return TypeDouble }
func (Bytes) Type() Type     { return TypeBytes }
func (String) Type() Type    { return TypeString }
func (Fixed) Type() Type     { return TypeFixed }
func (Array) Type() Type     { return TypeArray }
func (*Record) Type() Type   { return TypeRecord }
func (*Map) Type() Type      { return TypeMap }
func (Enum) Type() Type      { return TypeEnum }
func (Union) Type() Type     { return TypeUnion }
func (Decimal) Type() Type   { return TypeBytes }
func (UUID) Type() Type      { return TypeString }
func (Date) Type() Type      { return TypeInt }
func (TimeOfDay) Type() Type { return TypeLong }
func (Timestamp) Type() Type { return TypeLong }
func (Duration) Type() Type  { return TypeFixed }

func (Null) String() string { return nullText }

func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }

func (v Long) String() string { return strconv.FormatInt(int64(v), 10) }

func (v Float) String() string { return formatFloat(float64(v), 32) }

func (v Double) String() string { return formatFloat(float64(v), 64) }

// バイト列は各バイトの10進表記をカンマ区切りで並べる
func (v Bytes) String() string { return joinBytes(v) }

func (v Fixed) String() string { return joinBytes(v) }

func (v String) String() string { return string(v) }

func (v Array) String() string {
	items := make([]string, len(v))
	for i, item := range v {
		items[i] = item.String()
	}
	return strings.Join(items, ", ")
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (r *Record) String() string {
	items := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		items[i] = f.Name + ": " + f.Value.String()
	}
	return strings.Join(items, ", ")
}

func (m *Map) Len() int {
	return m.Entries.Len()
}

func (m *Map) String() string {
	items := make([]string, 0, m.Entries.Len())
	for pair := m.Entries.Oldest(); pair != nil; pair = pair.Next() {
		items = append(items, pair.Key+": "+pair.Value.String())
	}
	return strings.Join(items, ", ")
}

func (v Enum) String() string { return fmt.Sprintf("%d (%s)", v.Index, v.Symbol) }

func (v Union) String() string { return v.Value.String() }

func (v Decimal) String() string { return v.Decimal.StringFixed(v.Scale) }

func (v UUID) String() string { return uuid.UUID(v).String() }

func (v Date) String() string { return time.Time(v).Format(time.DateOnly) }

func (v TimeOfDay) String() string {
	t := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(v.Since)
	return t.Format(fractionLayout("15:04:05", v.Precision))
}

func (v Timestamp) String() string {
	if v.Local {
		return v.Time.Format(fractionLayout("2006-01-02T15:04:05", v.Precision))
	}
	return v.Time.UTC().Format(fractionLayout("2006-01-02T15:04:05", v.Precision) + "Z07:00")
}

// ISO 8601 形式の期間表記
func (v Duration) String() string {
	var b strings.Builder
	b.WriteByte('P')
	if v.Months > 0 {
		fmt.Fprintf(&b, "%dM", v.Months)
	}
	if v.Days > 0 {
		fmt.Fprintf(&b, "%dD", v.Days)
	}
	if v.Millis > 0 || (v.Months == 0 && v.Days == 0) {
		seconds := decimal.New(int64(v.Millis), -3)
		fmt.Fprintf(&b, "T%sS", seconds.String())
	}
	return b.String()
}

// 末尾の0を除いた小数部を、値の精度の桁数まで出力するレイアウト
func fractionLayout(base string, precision time.Duration) string {
	switch {
	case precision >= time.Second:
		return base
	case precision >= time.Millisecond:
		return base + ".999"
	case precision >= time.Microsecond:
		return base + ".999999"
	default:
		return base + ".999999999"
	}
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

func joinBytes(b []byte) string {
	items := make([]string, len(b))
	for i, n := range b {
		items[i] = strconv.Itoa(int(n))
	}
	return strings.Join(items, ", ")
}
