package internal

import (
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/DataDog/zstd"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/ulikunitz/xz"
)

// Codec は avro.codec メタデータで宣言されるブロックの圧縮方式
type Codec string

const (
	CodecNull      Codec = "null"
	CodecDeflate   Codec = "deflate"
	CodecSnappy    Codec = "snappy"
	CodecZstandard Codec = "zstandard"
	CodecBzip2     Codec = "bzip2"
	CodecXZ        Codec = "xz"
)

// ParseCodec validates a codec name. An empty name means no compression.
func ParseCodec(name string) (Codec, error) {
	switch c := Codec(name); c {
	case "":
		return CodecNull, nil
	case CodecNull, CodecDeflate, CodecSnappy, CodecZstandard, CodecBzip2, CodecXZ:
		return c, nil
	default:
		return "", &UnsupportedCodecError{Codec: name}
	}
}

// Decompress returns the uncompressed payload of one block.
func (c Codec) Decompress(data []byte) ([]byte, error) {
	switch c {
	case CodecNull:
		return data, nil

	case CodecDeflate:
		// RFC 1951 の生の deflate で、zlib ヘッダーは付かない
		return readAllFrom(flate.NewReader(bytes.NewReader(data)))

	case CodecSnappy:
		// 末尾4バイトは展開後データの CRC32(ビッグエンディアン)
		if len(data) < 4 {
			return nil, truncatedErrorf("snappy block needs a 4 byte checksum")
		}
		body, checksum := data[:len(data)-4], binary.BigEndian.Uint32(data[len(data)-4:])
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, formatErrorf("snappy: %v", err)
		}
		if crc32.ChecksumIEEE(decoded) != checksum {
			return nil, formatErrorf("snappy block checksum mismatch")
		}
		return decoded, nil

	case CodecZstandard:
		decoded, err := zstd.Decompress(nil, data)
		if err != nil {
			return nil, formatErrorf("zstandard: %v", err)
		}
		return decoded, nil

	case CodecBzip2:
		return readAllFrom(bzip2.NewReader(bytes.NewReader(data)))

	case CodecXZ:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, formatErrorf("xz: %v", err)
		}
		return readAllFrom(r)

	default:
		return nil, &UnsupportedCodecError{Codec: string(c)}
	}
}

func readAllFrom(r io.Reader) ([]byte, error) {
	decoded, err := io.ReadAll(r)
	if closer, ok := r.(io.Closer); ok {
		closer.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress block: %v", ErrFormat, err)
	}
	return decoded, nil
}
