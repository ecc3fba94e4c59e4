package internal

import (
	"encoding/binary"
	"math"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// いずれの関数も、読み取った値と未読部分のバイト列を返す
// 入力が足りない場合は ErrTruncated を返し、与えられた範囲を超えて読むことはない

func LongDecoder(data []byte) (int64, []byte, error) {
	n, size := binary.Varint(data)
	switch {
	case size == 0:
		return 0, data, truncatedErrorf("varint needs more bytes")
	case size < 0:
		return 0, data, formatErrorf("varint overflows 64 bits")
	}
	return n, data[size:], nil
}

func IntDecoder(data []byte) (int32, []byte, error) {
	n, rest, err := LongDecoder(data)
	if err != nil {
		return 0, data, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, data, formatErrorf("int value %d out of 32-bit range", n)
	}
	return int32(n), rest, nil
}

func FloatDecoder(data []byte) (float32, []byte, error) {
	if len(data) < 4 {
		return 0, data, truncatedErrorf("float needs 4 bytes, %d left", len(data))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(data)), data[4:], nil
}

func DoubleDecoder(data []byte) (float64, []byte, error) {
	if len(data) < 8 {
		return 0, data, truncatedErrorf("double needs 8 bytes, %d left", len(data))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), data[8:], nil
}

// 長さ付きのバイト列
// 返すスライスは入力と領域を共有するので、保持する場合は呼び出し側でコピーする
func BytesDecoder(data []byte) ([]byte, []byte, error) {
	size, rest, err := LongDecoder(data)
	if err != nil {
		return nil, data, err
	}
	if size < 0 {
		return nil, data, formatErrorf("negative length %d", size)
	}
	if int64(len(rest)) < size {
		return nil, data, truncatedErrorf("%d bytes declared, %d left", size, len(rest))
	}
	return rest[:size], rest[size:], nil
}

func StringDecoder(data []byte) (string, []byte, error) {
	b, rest, err := BytesDecoder(data)
	if err != nil {
		return "", data, err
	}
	if !utf8.Valid(b) {
		return "", data, ErrEncoding
	}
	return string(b), rest, nil
}

func FixedDecoder(data []byte, size int) ([]byte, []byte, error) {
	if len(data) < size {
		return nil, data, truncatedErrorf("fixed needs %d bytes, %d left", size, len(data))
	}
	return data[:size], data[size:], nil
}

const (
	// 入れ子の深さの上限
	maxNestingDepth = 10000

	// 幅0の要素(null や空のレコード)が1つのブロックに並べられる数の上限
	maxZeroWidthItems = 1 << 20
)

// DecodeValue decodes exactly one value of the given schema.
func DecodeValue(s *Schema, data []byte) (Value, []byte, error) {
	return decodeValue(s, data, 0)
}

func decodeValue(s *Schema, data []byte, depth int) (Value, []byte, error) {
	if depth > maxNestingDepth {
		return nil, data, formatErrorf("value nesting exceeds %d levels", maxNestingDepth)
	}
	s = s.Resolve()

	switch s.Type {
	case TypeNull:
		return Null{}, data, nil

	case TypeBoolean:
		if len(data) < 1 {
			return nil, data, truncatedErrorf("boolean needs 1 byte")
		}
		switch data[0] {
		case 0:
			return Boolean(false), data[1:], nil
		case 1:
			return Boolean(true), data[1:], nil
		default:
			return nil, data, formatErrorf("invalid boolean byte 0x%02x", data[0])
		}

	case TypeInt:
		n, rest, err := IntDecoder(data)
		if err != nil {
			return nil, data, err
		}
		return decodeLogicalInt(s, n), rest, nil

	case TypeLong:
		n, rest, err := LongDecoder(data)
		if err != nil {
			return nil, data, err
		}
		return decodeLogicalLong(s, n), rest, nil

	case TypeFloat:
		f, rest, err := FloatDecoder(data)
		return Float(f), rest, err

	case TypeDouble:
		f, rest, err := DoubleDecoder(data)
		return Double(f), rest, err

	case TypeBytes:
		b, rest, err := BytesDecoder(data)
		if err != nil {
			return nil, data, err
		}
		if s.Logical == LogicalDecimal {
			return newDecimal(b, s.Scale), rest, nil
		}
		return Bytes(clone(b)), rest, nil

	case TypeString:
		str, rest, err := StringDecoder(data)
		if err != nil {
			return nil, data, err
		}
		if s.Logical == LogicalUUID {
			if id, err := uuid.Parse(str); err == nil {
				return UUID(id), rest, nil
			}
		}
		return String(str), rest, nil

	case TypeFixed:
		b, rest, err := FixedDecoder(data, s.Size)
		if err != nil {
			return nil, data, err
		}
		return decodeLogicalFixed(s, b), rest, nil

	case TypeEnum:
		idx, rest, err := LongDecoder(data)
		if err != nil {
			return nil, data, err
		}
		if idx < 0 || idx >= int64(len(s.Symbols)) {
			return nil, data, schemaErrorf("enum index %d out of range for '%s'", idx, s.Name)
		}
		return Enum{Index: int(idx), Symbol: s.Symbols[idx]}, rest, nil

	case TypeUnion:
		idx, rest, err := LongDecoder(data)
		if err != nil {
			return nil, data, err
		}
		if idx < 0 || idx >= int64(len(s.Branches)) {
			return nil, data, schemaErrorf("union index %d out of range(%d branches)", idx, len(s.Branches))
		}
		v, rest, err := decodeValue(s.Branches[idx], rest, depth+1)
		if err != nil {
			return nil, data, err
		}
		return Union{Branch: int(idx), Value: v}, rest, nil

	case TypeRecord:
		rec := &Record{Name: s.Name, Fields: make([]RecordField, len(s.Fields))}
		rest := data
		for i, f := range s.Fields {
			var v Value
			var err error
			if v, rest, err = decodeValue(f.Schema, rest, depth+1); err != nil {
				return nil, data, err
			}
			rec.Fields[i] = RecordField{Name: f.Name, Value: v}
		}
		return rec, rest, nil

	case TypeArray:
		items := make(Array, 0)
		rest, err := decodeBlocks(data, s.Items.minEncodedSize(), func(d []byte) ([]byte, error) {
			v, r, err := decodeValue(s.Items, d, depth+1)
			if err == nil {
				items = append(items, v)
			}
			return r, err
		})
		if err != nil {
			return nil, data, err
		}
		return items, rest, nil

	case TypeMap:
		m := NewMap()
		rest, err := decodeBlocks(data, 1+s.Values.minEncodedSize(), func(d []byte) ([]byte, error) {
			key, r, err := StringDecoder(d)
			if err != nil {
				return d, err
			}
			v, r, err := decodeValue(s.Values, r, depth+1)
			if err == nil {
				m.Entries.Set(key, v)
			}
			return r, err
		})
		if err != nil {
			return nil, data, err
		}
		return m, rest, nil

	default:
		return nil, data, schemaErrorf("unresolved type reference '%s'", s.Name)
	}
}

// 配列とマップに共通するブロック列の読み取り
// 各ブロックは要素数から始まり、要素数0のブロックで終わる
// 要素数が負の場合は絶対値が要素数で、直後にブロックのバイト長が続く
// 要素数は残りのバイト数で足りるかを確かめてから読み始める
func decodeBlocks(data []byte, itemSize int, item func([]byte) ([]byte, error)) ([]byte, error) {
	for {
		count, rest, err := LongDecoder(data)
		if err != nil {
			return data, err
		}
		if count == 0 {
			return rest, nil
		}
		if count < 0 {
			if count == math.MinInt64 {
				return data, formatErrorf("invalid block count %d", count)
			}
			count = -count
			if _, rest, err = LongDecoder(rest); err != nil {
				return data, err
			}
		}
		if err := checkItemCount(count, len(rest), itemSize); err != nil {
			return data, err
		}

		for i := int64(0); i < count; i++ {
			if rest, err = item(rest); err != nil {
				return data, err
			}
		}
		data = rest
	}
}

// 宣言された要素数が残りのバイト数で表現しきれるかを確かめる
func checkItemCount(count int64, left, itemSize int) error {
	if itemSize == 0 {
		if count > maxZeroWidthItems {
			return formatErrorf("block count %d exceeds limit %d", count, maxZeroWidthItems)
		}
		return nil
	}
	if count > int64(left/itemSize) {
		return truncatedErrorf("%d items declared, %d bytes left", count, left)
	}
	return nil
}

func decodeLogicalInt(s *Schema, n int32) Value {
	switch s.Logical {
	case LogicalDate:
		return Date(time.Unix(int64(n)*86400, 0).UTC())
	case LogicalTimeMillis:
		return TimeOfDay{Since: time.Duration(n) * time.Millisecond, Precision: time.Millisecond}
	default:
		return Long(n)
	}
}

func decodeLogicalLong(s *Schema, n int64) Value {
	switch s.Logical {
	case LogicalTimeMicros:
		return TimeOfDay{Since: time.Duration(n) * time.Microsecond, Precision: time.Microsecond}
	case LogicalTimestampMillis:
		return Timestamp{Time: time.UnixMilli(n).UTC(), Precision: time.Millisecond}
	case LogicalTimestampMicros:
		return Timestamp{Time: time.UnixMicro(n).UTC(), Precision: time.Microsecond}
	case LogicalTimestampNanos:
		return Timestamp{Time: time.Unix(0, n).UTC(), Precision: time.Nanosecond}
	case LogicalLocalTimestampMillis:
		return Timestamp{Time: time.UnixMilli(n).UTC(), Precision: time.Millisecond, Local: true}
	case LogicalLocalTimestampMicros:
		return Timestamp{Time: time.UnixMicro(n).UTC(), Precision: time.Microsecond, Local: true}
	case LogicalLocalTimestampNanos:
		return Timestamp{Time: time.Unix(0, n).UTC(), Precision: time.Nanosecond, Local: true}
	default:
		return Long(n)
	}
}

func decodeLogicalFixed(s *Schema, b []byte) Value {
	switch s.Logical {
	case LogicalDecimal:
		return newDecimal(b, s.Scale)
	case LogicalUUID:
		id, _ := uuid.FromBytes(b)
		return UUID(id)
	case LogicalDuration:
		return Duration{
			Months: binary.LittleEndian.Uint32(b[0:4]),
			Days:   binary.LittleEndian.Uint32(b[4:8]),
			Millis: binary.LittleEndian.Uint32(b[8:12]),
		}
	default:
		return Fixed(clone(b))
	}
}

// 2の補数・ビッグエンディアンで表現されたスケールなしの値から10進数を作る
func newDecimal(b []byte, scale int) Decimal {
	unscaled := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		unscaled.Sub(unscaled, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return Decimal{Decimal: decimal.NewFromBigInt(unscaled, -int32(scale)), Scale: int32(scale)}
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
