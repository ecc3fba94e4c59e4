package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type (
	Type int

	LogicalType string

	// Schema is one node of an Avro schema tree.
	// Named types (record, enum, fixed) are stored once in the arena shared by
	// the whole tree; later occurrences are TypeRef nodes holding the full name.
	Schema struct {
		Type      Type
		Name      string // 名前付き型および参照の完全修飾名
		Logical   LogicalType
		Precision int
		Scale     int
		Fields    []*Field
		Symbols   []string
		Items     *Schema
		Values    *Schema
		Branches  []*Schema
		Size      int

		names        *namedTypes
		minSize      int // エンコード後の最小バイト数
		minSizeKnown bool
	}

	Field struct {
		Name   string
		Schema *Schema
	}

	// 名前付き型の定義を完全修飾名で引くためのアリーナ
	namedTypes struct {
		defs map[string]*Schema
	}

	schemaParser struct {
		names *namedTypes
	}
)

const (
	TypeNull Type = iota
	TypeBoolean
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeBytes
	TypeString
	TypeRecord
	TypeEnum
	TypeArray
	TypeMap
	TypeUnion
	TypeFixed
	TypeRef
)

const (
	LogicalNone                 LogicalType = ""
	LogicalDecimal              LogicalType = "decimal"
	LogicalUUID                 LogicalType = "uuid"
	LogicalDate                 LogicalType = "date"
	LogicalTimeMillis           LogicalType = "time-millis"
	LogicalTimeMicros           LogicalType = "time-micros"
	LogicalTimestampMillis      LogicalType = "timestamp-millis"
	LogicalTimestampMicros      LogicalType = "timestamp-micros"
	LogicalTimestampNanos       LogicalType = "timestamp-nanos"
	LogicalLocalTimestampMillis LogicalType = "local-timestamp-millis"
	LogicalLocalTimestampMicros LogicalType = "local-timestamp-micros"
	LogicalLocalTimestampNanos  LogicalType = "local-timestamp-nanos"
	LogicalDuration             LogicalType = "duration"
)

var typeNames = [...]string{
	TypeNull:    "null",
	TypeBoolean: "boolean",
	TypeInt:     "int",
	TypeLong:    "long",
	TypeFloat:   "float",
	TypeDouble:  "double",
	TypeBytes:   "bytes",
	TypeString:  "string",
	TypeRecord:  "record",
	TypeEnum:    "enum",
	TypeArray:   "array",
	TypeMap:     "map",
	TypeUnion:   "union",
	TypeFixed:   "fixed",
	TypeRef:     "reference",
}

var primitiveTypes = map[string]Type{
	"null":    TypeNull,
	"boolean": TypeBoolean,
	"int":     TypeInt,
	"long":    TypeLong,
	"float":   TypeFloat,
	"double":  TypeDouble,
	"bytes":   TypeBytes,
	"string":  TypeString,
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseSchema parses the JSON representation of an Avro schema, as stored in
// the avro.schema metadata entry of a container file.
func ParseSchema(src []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, schemaErrorf("malformed schema json: %v", err)
	}

	p := &schemaParser{names: &namedTypes{defs: make(map[string]*Schema)}}
	s, err := p.parse(raw, "")
	if err != nil {
		return nil, err
	}
	if err := p.checkTermination(); err != nil {
		return nil, err
	}
	return s, nil
}

// union・array・map を経由せずに自分自身へ戻るレコードは、値を1つも確定できない
// 終端できると分かったレコードを不動点に達するまで広げていき、残ったものを拒否する
func (p *schemaParser) checkTermination() error {
	finite := make(map[string]bool)

	for changed := true; changed; {
		changed = false
		for name, def := range p.names.defs {
			if finite[name] || def.Type != TypeRecord {
				continue
			}
			if fieldsTerminate(def, finite) {
				finite[name] = true
				changed = true
			}
		}
	}

	var infinite []string
	for name, def := range p.names.defs {
		if def.Type == TypeRecord && !finite[name] {
			infinite = append(infinite, name)
		}
	}
	if len(infinite) > 0 {
		sort.Strings(infinite)
		return schemaErrorf("record '%s' is infinitely recursive", infinite[0])
	}
	return nil
}

func fieldsTerminate(record *Schema, finite map[string]bool) bool {
	for _, f := range record.Fields {
		if !terminates(f.Schema, finite) {
			return false
		}
	}
	return true
}

func terminates(s *Schema, finite map[string]bool) bool {
	switch s.Type {
	case TypeRecord:
		return finite[s.Name]
	case TypeRef:
		def := s.Resolve()
		return def.Type != TypeRecord || finite[def.Name]
	case TypeUnion:
		for _, b := range s.Branches {
			if terminates(b, finite) {
				return true
			}
		}
		return false
	default:
		// 配列とマップは要素数0で終端できる
		return true
	}
}

func (p *schemaParser) parse(raw any, namespace string) (*Schema, error) {
	switch v := raw.(type) {
	case string:
		return p.parseName(v, namespace)

	case []any:
		return p.parseUnion(v, namespace)

	case map[string]any:
		return p.parseObject(v, namespace)

	default:
		return nil, schemaErrorf("unexpected schema element %v", raw)
	}
}

// 型名のみの指定はプリミティブ型か、定義済みの名前付き型への参照
func (p *schemaParser) parseName(name, namespace string) (*Schema, error) {
	if t, ok := primitiveTypes[name]; ok {
		return p.newSchema(t), nil
	}

	full := fullName(name, namespace)
	if _, ok := p.names.defs[full]; !ok {
		// 名前空間なしでの参照も許容する
		if _, ok := p.names.defs[name]; !ok {
			return nil, schemaErrorf("unknown type '%s'", name)
		}
		full = name
	}

	s := p.newSchema(TypeRef)
	s.Name = full
	return s, nil
}

func (p *schemaParser) parseUnion(branches []any, namespace string) (*Schema, error) {
	s := p.newSchema(TypeUnion)
	s.Branches = make([]*Schema, len(branches))

	for i, b := range branches {
		branch, err := p.parse(b, namespace)
		if err != nil {
			return nil, fmt.Errorf("union branch %d: %w", i, err)
		}
		if branch.Type == TypeUnion {
			return nil, schemaErrorf("union may not immediately contain another union")
		}
		s.Branches[i] = branch
	}

	return s, nil
}

func (p *schemaParser) parseObject(obj map[string]any, namespace string) (*Schema, error) {
	rawType, ok := obj["type"]
	if !ok {
		return nil, schemaErrorf("schema object has no 'type' attribute")
	}

	typeName, ok := rawType.(string)
	if !ok {
		// {"type": {"type": "array", ...}} のような入れ子
		return p.parse(rawType, namespace)
	}

	var s *Schema
	var err error

	switch typeName {
	case "record", "error":
		return p.parseRecord(obj, namespace)

	case "enum":
		return p.parseEnum(obj, namespace)

	case "fixed":
		s, err = p.parseFixed(obj, namespace)

	case "array":
		s = p.newSchema(TypeArray)
		if s.Items, err = p.parseChild(obj, "items", namespace); err != nil {
			return nil, err
		}
		return s, nil

	case "map":
		s = p.newSchema(TypeMap)
		if s.Values, err = p.parseChild(obj, "values", namespace); err != nil {
			return nil, err
		}
		return s, nil

	default:
		if s, err = p.parseName(typeName, namespace); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	if s.Type != TypeRef {
		applyLogicalType(s, obj)
	}
	return s, nil
}

func (p *schemaParser) parseChild(obj map[string]any, key, namespace string) (*Schema, error) {
	raw, ok := obj[key]
	if !ok {
		return nil, schemaErrorf("'%s' attribute is required", key)
	}
	return p.parse(raw, namespace)
}

func (p *schemaParser) parseRecord(obj map[string]any, namespace string) (*Schema, error) {
	s, namespace, err := p.define(TypeRecord, obj, namespace)
	if err != nil {
		return nil, err
	}

	rawFields, ok := obj["fields"].([]any)
	if !ok {
		return nil, schemaErrorf("record '%s' has no 'fields' array", s.Name)
	}

	seen := make(map[string]struct{}, len(rawFields))
	s.Fields = make([]*Field, 0, len(rawFields))

	for i, rf := range rawFields {
		fieldObj, ok := rf.(map[string]any)
		if !ok {
			return nil, schemaErrorf("field %d of record '%s' is not an object", i, s.Name)
		}

		name, ok := fieldObj["name"].(string)
		if !ok || name == "" {
			return nil, schemaErrorf("field %d of record '%s' has no name", i, s.Name)
		}
		if _, dup := seen[name]; dup {
			return nil, schemaErrorf("record '%s' has duplicate field '%s'", s.Name, name)
		}
		seen[name] = struct{}{}

		fieldSchema, err := p.parseChild(fieldObj, "type", namespace)
		if err != nil {
			return nil, fmt.Errorf("field '%s.%s': %w", s.Name, name, err)
		}

		s.Fields = append(s.Fields, &Field{Name: name, Schema: fieldSchema})
	}

	return s, nil
}

func (p *schemaParser) parseEnum(obj map[string]any, namespace string) (*Schema, error) {
	s, _, err := p.define(TypeEnum, obj, namespace)
	if err != nil {
		return nil, err
	}

	rawSymbols, ok := obj["symbols"].([]any)
	if !ok {
		return nil, schemaErrorf("enum '%s' has no 'symbols' array", s.Name)
	}

	s.Symbols = make([]string, len(rawSymbols))
	for i, rs := range rawSymbols {
		if s.Symbols[i], ok = rs.(string); !ok {
			return nil, schemaErrorf("symbol %d of enum '%s' is not a string", i, s.Name)
		}
	}

	return s, nil
}

func (p *schemaParser) parseFixed(obj map[string]any, namespace string) (*Schema, error) {
	s, _, err := p.define(TypeFixed, obj, namespace)
	if err != nil {
		return nil, err
	}

	size, ok := intAttr(obj, "size")
	if !ok || size < 0 {
		return nil, schemaErrorf("fixed '%s' has no valid 'size'", s.Name)
	}
	s.Size = size

	return s, nil
}

// 名前付き型を登録する
// 再帰的な参照を解決できるよう、子要素を解析する前にアリーナへ登録しておく
func (p *schemaParser) define(t Type, obj map[string]any, namespace string) (*Schema, string, error) {
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return nil, "", schemaErrorf("%s has no name", t)
	}

	if ns, ok := obj["namespace"].(string); ok && !strings.Contains(name, ".") {
		namespace = ns
	}

	full := fullName(name, namespace)
	if _, dup := p.names.defs[full]; dup {
		return nil, "", schemaErrorf("type '%s' is defined more than once", full)
	}

	s := p.newSchema(t)
	s.Name = full
	p.names.defs[full] = s

	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		namespace = full[:i]
	} else {
		namespace = ""
	}

	return s, namespace, nil
}

func (p *schemaParser) newSchema(t Type) *Schema {
	return &Schema{Type: t, names: p.names}
}

func fullName(name, namespace string) string {
	if strings.Contains(name, ".") || namespace == "" {
		return name
	}
	return namespace + "." + name
}

func intAttr(obj map[string]any, key string) (int, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(i), true
}

// 論理型の注釈を付与する
// 下位の型と合致しない注釈は Avro の仕様に従い無視し、元の型として扱う
func applyLogicalType(s *Schema, obj map[string]any) {
	lt, _ := obj["logicalType"].(string)

	switch LogicalType(lt) {
	case LogicalDecimal:
		if s.Type != TypeBytes && s.Type != TypeFixed {
			return
		}
		precision, ok := intAttr(obj, "precision")
		if !ok || precision <= 0 {
			return
		}
		scale, ok := intAttr(obj, "scale")
		if !ok {
			scale = 0
		}
		if scale < 0 || scale > precision {
			return
		}
		s.Logical, s.Precision, s.Scale = LogicalDecimal, precision, scale

	case LogicalUUID:
		if s.Type == TypeString || (s.Type == TypeFixed && s.Size == 16) {
			s.Logical = LogicalUUID
		}

	case LogicalDate, LogicalTimeMillis:
		if s.Type == TypeInt {
			s.Logical = LogicalType(lt)
		}

	case LogicalTimeMicros,
		LogicalTimestampMillis, LogicalTimestampMicros, LogicalTimestampNanos,
		LogicalLocalTimestampMillis, LogicalLocalTimestampMicros, LogicalLocalTimestampNanos:
		if s.Type == TypeLong {
			s.Logical = LogicalType(lt)
		}

	case LogicalDuration:
		if s.Type == TypeFixed && s.Size == 12 {
			s.Logical = LogicalDuration
		}
	}
}

// Resolve returns the definition a reference node points at, or the node itself.
func (s *Schema) Resolve() *Schema {
	if s.Type != TypeRef {
		return s
	}
	if def, ok := s.names.defs[s.Name]; ok {
		return def
	}
	return s
}

// 値がエンコード後に必ず占める最小のバイト数
// 終端できないレコードは解析時に拒否しているので、この再帰は必ず止まる
func (s *Schema) minEncodedSize() int {
	s = s.Resolve()
	if s.minSizeKnown {
		return s.minSize
	}

	n := 1 // boolean、可変長整数、長さ、添字、ブロックの要素数
	switch s.Type {
	case TypeNull:
		n = 0
	case TypeFloat:
		n = 4
	case TypeDouble:
		n = 8
	case TypeFixed:
		n = s.Size
	case TypeRecord:
		n = 0
		for _, f := range s.Fields {
			n += f.Schema.minEncodedSize()
		}
	}

	s.minSize, s.minSizeKnown = n, true
	return n
}

// Field looks up a record field by name.
func (s *Schema) Field(name string) (*Field, bool) {
	s = s.Resolve()
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// FieldNames returns the field names of a record schema in declaration order.
func (s *Schema) FieldNames() []string {
	s = s.Resolve()
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether two schemas are structurally identical.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.String() == other.String()
}

// String returns the canonical JSON form of the schema. Logical type
// annotations are kept so that two schemas compare equal only when values
// decoded against them render the same way.
func (s *Schema) String() string {
	var b strings.Builder
	s.writeCanonical(&b, make(map[string]struct{}))
	return b.String()
}

func (s *Schema) writeCanonical(b *strings.Builder, written map[string]struct{}) {
	switch s.Type {
	case TypeRef:
		writeJSONString(b, s.Name)

	case TypeRecord, TypeEnum, TypeFixed:
		if _, ok := written[s.Name]; ok {
			writeJSONString(b, s.Name)
			return
		}
		written[s.Name] = struct{}{}

		b.WriteString(`{"name":`)
		writeJSONString(b, s.Name)
		b.WriteString(`,"type":`)
		writeJSONString(b, s.Type.String())

		switch s.Type {
		case TypeRecord:
			b.WriteString(`,"fields":[`)
			for i, f := range s.Fields {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(`{"name":`)
				writeJSONString(b, f.Name)
				b.WriteString(`,"type":`)
				f.Schema.writeCanonical(b, written)
				b.WriteByte('}')
			}
			b.WriteByte(']')

		case TypeEnum:
			b.WriteString(`,"symbols":[`)
			for i, sym := range s.Symbols {
				if i > 0 {
					b.WriteByte(',')
				}
				writeJSONString(b, sym)
			}
			b.WriteByte(']')

		case TypeFixed:
			fmt.Fprintf(b, `,"size":%d`, s.Size)
			s.writeLogical(b)
		}
		b.WriteByte('}')

	case TypeArray:
		b.WriteString(`{"type":"array","items":`)
		s.Items.writeCanonical(b, written)
		b.WriteByte('}')

	case TypeMap:
		b.WriteString(`{"type":"map","values":`)
		s.Values.writeCanonical(b, written)
		b.WriteByte('}')

	case TypeUnion:
		b.WriteByte('[')
		for i, branch := range s.Branches {
			if i > 0 {
				b.WriteByte(',')
			}
			branch.writeCanonical(b, written)
		}
		b.WriteByte(']')

	default:
		if s.Logical == LogicalNone {
			writeJSONString(b, s.Type.String())
			return
		}
		b.WriteString(`{"type":`)
		writeJSONString(b, s.Type.String())
		s.writeLogical(b)
		b.WriteByte('}')
	}
}

func (s *Schema) writeLogical(b *strings.Builder) {
	if s.Logical == LogicalNone {
		return
	}
	b.WriteString(`,"logicalType":`)
	writeJSONString(b, string(s.Logical))
	if s.Logical == LogicalDecimal {
		fmt.Fprintf(b, `,"precision":%d,"scale":%d`, s.Precision, s.Scale)
	}
}

func writeJSONString(b *strings.Builder, s string) {
	quoted, _ := json.Marshal(s)
	b.Write(quoted)
}
