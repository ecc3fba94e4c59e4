package internal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math"
	"testing"

	"github.com/DataDog/zstd"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// テスト用のエンコーダー。読み取り側の実装とは独立に Avro のバイナリ表現を組み立てる

var testSync = [syncSize]byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

const personSchema = `{
	"type": "record",
	"name": "Person",
	"namespace": "bttf",
	"fields": [
		{"name": "firstName", "type": "string"},
		{"name": "lastName", "type": "string"},
		{"name": "age", "type": "int"}
	]
}`

func person(first, last string, age int64) *Record {
	return &Record{
		Name: "bttf.Person",
		Fields: []RecordField{
			{Name: "firstName", Value: String(first)},
			{Name: "lastName", Value: String(last)},
			{Name: "age", Value: Long(age)},
		},
	}
}

func appendLong(b []byte, n int64) []byte {
	return binary.AppendVarint(b, n)
}

func appendBytes(b, p []byte) []byte {
	return append(appendLong(b, int64(len(p))), p...)
}

func encodeValue(t *testing.T, s *Schema, v Value) []byte {
	t.Helper()
	return appendValue(t, nil, s, v)
}

func appendValue(t *testing.T, b []byte, s *Schema, v Value) []byte {
	t.Helper()
	s = s.Resolve()

	switch s.Type {
	case TypeNull:
		return b
	case TypeBoolean:
		if v.(Boolean) {
			return append(b, 1)
		}
		return append(b, 0)
	case TypeInt, TypeLong:
		return appendLong(b, int64(v.(Long)))
	case TypeFloat:
		return binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v.(Float))))
	case TypeDouble:
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(float64(v.(Double))))
	case TypeBytes:
		return appendBytes(b, v.(Bytes))
	case TypeString:
		return appendBytes(b, []byte(v.(String)))
	case TypeFixed:
		return append(b, v.(Fixed)...)
	case TypeEnum:
		return appendLong(b, int64(v.(Enum).Index))
	case TypeUnion:
		u := v.(Union)
		b = appendLong(b, int64(u.Branch))
		return appendValue(t, b, s.Branches[u.Branch], u.Value)
	case TypeRecord:
		rec := v.(*Record)
		for i, f := range s.Fields {
			b = appendValue(t, b, f.Schema, rec.Fields[i].Value)
		}
		return b
	case TypeArray:
		items := v.(Array)
		if len(items) > 0 {
			b = appendLong(b, int64(len(items)))
			for _, item := range items {
				b = appendValue(t, b, s.Items, item)
			}
		}
		return appendLong(b, 0)
	case TypeMap:
		m := v.(*Map)
		if m.Len() > 0 {
			b = appendLong(b, int64(m.Len()))
			for pair := m.Entries.Oldest(); pair != nil; pair = pair.Next() {
				b = appendBytes(b, []byte(pair.Key))
				b = appendValue(t, b, s.Values, pair.Value)
			}
		}
		return appendLong(b, 0)
	}

	t.Fatalf("cannot encode %s", s.Type)
	return nil
}

func compressBlock(t *testing.T, codec Codec, data []byte) []byte {
	t.Helper()

	switch codec {
	case CodecNull, "":
		return data

	case CodecDeflate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return buf.Bytes()

	case CodecSnappy:
		encoded := snappy.Encode(nil, data)
		return binary.BigEndian.AppendUint32(encoded, crc32.ChecksumIEEE(data))

	case CodecZstandard:
		encoded, err := zstd.Compress(nil, data)
		require.NoError(t, err)
		return encoded

	case CodecXZ:
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return buf.Bytes()
	}

	t.Fatalf("cannot compress with %s", codec)
	return nil
}

// 指定したブロック構成のコンテナファイルを組み立てる
func buildContainer(t *testing.T, schemaJSON string, codec Codec, blocks ...[]Value) []byte {
	t.Helper()

	schema, err := ParseSchema([]byte(schemaJSON))
	require.NoError(t, err)

	b := buildHeader(schemaJSON, string(codec))
	for _, block := range blocks {
		var payload []byte
		for _, v := range block {
			payload = appendValue(t, payload, schema, v)
		}
		b = appendBlock(b, int64(len(block)), compressBlock(t, codec, payload))
	}
	return b
}

func buildHeader(schemaJSON, codec string) []byte {
	b := append([]byte{}, magic...)
	b = appendLong(b, 2)
	b = appendBytes(b, []byte(metaSchema))
	b = appendBytes(b, []byte(schemaJSON))
	b = appendBytes(b, []byte(metaCodec))
	b = appendBytes(b, []byte(codec))
	b = appendLong(b, 0)
	return append(b, testSync[:]...)
}

func appendBlock(b []byte, count int64, payload []byte) []byte {
	b = appendLong(b, count)
	b = appendLong(b, int64(len(payload)))
	b = append(b, payload...)
	return append(b, testSync[:]...)
}

func mustParseSchema(t *testing.T, src string) *Schema {
	t.Helper()
	s, err := ParseSchema([]byte(src))
	require.NoError(t, err)
	return s
}

func bttfFile(t *testing.T) []byte {
	t.Helper()
	return buildContainer(t, personSchema, CodecNull, []Value{
		person("Marty", "McFly", 24),
		person("Biff", "Tannen", 72),
	})
}

func sourceOf(name string, data []byte) Source {
	return Source{Name: name, R: bytes.NewReader(data)}
}
