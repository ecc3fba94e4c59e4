package internal

import (
	"errors"
	"fmt"
)

// 処理中に発生しうるエラーの分類
// いずれも errors.Is で判別できるよう、実際のエラーはこれらをラップして返す
var (
	ErrFormat    = errors.New("invalid avro container format")
	ErrSchema    = errors.New("invalid avro schema")
	ErrEncoding  = errors.New("invalid string encoding")
	ErrTruncated = errors.New("truncated avro data")
	ErrPattern   = errors.New("invalid search pattern")
)

type (
	// UnsupportedCodecError is returned when a container declares a compression
	// codec that cannot be decoded.
	UnsupportedCodecError struct {
		Codec string
	}

	// FileError locates a failure inside one input file.
	// Offset is the byte offset of the header or block being read when the
	// failure happened, Block is its index (-1 while reading the header).
	FileError struct {
		Path   string
		Offset int64
		Block  int
		Err    error
	}
)

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("unsupported compression codec '%s'", e.Codec)
}

func (e *FileError) Error() string {
	if e.Block < 0 {
		return fmt.Sprintf("%s: header(offset: %d): %v", e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: block %d(offset: %d): %v", e.Path, e.Block, e.Offset, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

func schemaErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))
}

func truncatedErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTruncated, fmt.Sprintf(format, args...))
}
