package internal

import (
	"bytes"
	"errors"
	"sort"
	"strings"
)

const (
	syncSize = 16

	metaSchema = "avro.schema"
	metaCodec  = "avro.codec"
)

var magic = []byte{'O', 'b', 'j', 1}

type (
	// Header is the fixed part at the head of an Avro object container file.
	Header struct {
		Meta   map[string][]byte
		Schema *Schema
		Codec  Codec
		Sync   [syncSize]byte
		Size   int64 // ヘッダー全体のバイト長
	}
)

// ファイル先頭からヘッダーを読み取る
// マジックナンバー、メタデータのマップ、同期マーカーの順に並んでいる
func readHeader(r *byteReader) (*Header, error) {
	head, err := r.readFull(int64(len(magic)))
	if err != nil {
		if errors.Is(err, ErrTruncated) {
			return nil, formatErrorf("file is too short to be an avro container")
		}
		return nil, err
	}
	if !bytes.Equal(head, magic) {
		return nil, formatErrorf("magic bytes %q not found", magic)
	}

	meta, err := readMetaData(r)
	if err != nil {
		return nil, err
	}

	header := &Header{Meta: meta}

	rawSchema, ok := meta[metaSchema]
	if !ok {
		return nil, schemaErrorf("'%s' metadata is missing", metaSchema)
	}
	if header.Schema, err = ParseSchema(rawSchema); err != nil {
		return nil, err
	}

	if header.Codec, err = ParseCodec(string(meta[metaCodec])); err != nil {
		return nil, err
	}

	sync, err := r.readFull(syncSize)
	if err != nil {
		return nil, err
	}
	copy(header.Sync[:], sync)
	header.Size = r.offset

	return header, nil
}

// メタデータは map<bytes> としてエンコードされている
func readMetaData(r *byteReader) (map[string][]byte, error) {
	meta := make(map[string][]byte)

	for {
		count, err := r.readLong()
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return meta, nil
		}
		if count < 0 {
			count = -count
			if _, err := r.readLong(); err != nil {
				return nil, err
			}
		}

		for i := int64(0); i < count; i++ {
			key, err := r.readBytes()
			if err != nil {
				return nil, err
			}
			value, err := r.readBytes()
			if err != nil {
				return nil, err
			}
			meta[string(key)] = value
		}
	}
}

// MetaKeys returns the metadata keys in sorted order.
func (h *Header) MetaKeys() []string {
	keys := make([]string, 0, len(h.Meta))
	for k := range h.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// 独自メタデータ(avro. で始まらないもの)を文字列として取得
func (h *Header) UserMeta() map[string]string {
	user := make(map[string]string)
	for k, v := range h.Meta {
		if strings.HasPrefix(k, "avro.") {
			continue
		}
		user[k] = string(v)
	}
	return user
}
