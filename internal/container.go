package internal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

type (
	// Container decodes one Avro object container file block by block.
	Container struct {
		path   string
		r      io.ReadSeeker
		br     *byteReader
		header *Header
		logger *zap.Logger

		block       int   // 読み取り中のブロック番号
		blockOffset int64 // 読み取り中のブロックの先頭オフセット
		remaining   int64 // 読み取り中のブロックに残っているレコード数
		payload     []byte
		err         error
	}

	// 読み取り位置を記録しながら1バイトずつ読めるようにするためのラッパー
	byteReader struct {
		br     *bufio.Reader
		offset int64
	}
)

func NewContainer(path string, r io.ReadSeeker, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{path: path, r: r, logger: logger, block: -1}
}

func (c *Container) Path() string {
	return c.path
}

// Header returns the parsed header, or nil before Open succeeded.
func (c *Container) Header() *Header {
	return c.header
}

// Open rewinds the source and reads the container header.
func (c *Container) Open(ctx context.Context) (*Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := c.r.Seek(0, io.SeekStart); err != nil {
		return nil, c.fail(fmt.Errorf("failed to seek to head of file: %w", err))
	}

	c.br = &byteReader{br: bufio.NewReader(c.r)}
	c.block, c.blockOffset, c.remaining, c.payload, c.err = -1, 0, 0, nil, nil

	header, err := readHeader(c.br)
	if err != nil {
		return nil, c.fail(err)
	}
	c.header = header

	c.logger.Debug("opened avro container",
		zap.String("file", c.path),
		zap.String("codec", string(header.Codec)),
		zap.Int64("header_size", header.Size),
	)
	return header, nil
}

// Next decodes the next record. It returns io.EOF when the file ends
// normally right after a sync marker. Any other error is final: subsequent
// calls return it again.
func (c *Container) Next(ctx context.Context) (Value, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.header == nil {
		return nil, errors.New("container is not opened")
	}

	for c.remaining == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.readBlock(); err != nil {
			if err == io.EOF {
				c.err = io.EOF
				return nil, io.EOF
			}
			return nil, c.fail(err)
		}
	}

	v, rest, err := DecodeValue(c.header.Schema, c.payload)
	if err != nil {
		return nil, c.fail(err)
	}
	c.payload = rest
	c.remaining--

	if c.remaining == 0 && len(c.payload) > 0 {
		c.logger.Debug("block has trailing bytes",
			zap.String("file", c.path),
			zap.Int("block", c.block),
			zap.Int("bytes", len(c.payload)),
		)
	}

	return v, nil
}

// ブロックを1つ読み取り、展開した内容を保持する
// ブロックはレコード数、バイト長、内容、同期マーカーの順に並んでいる
func (c *Container) readBlock() error {
	payload, count, err := c.nextBlock(true)
	if err != nil {
		return err
	}

	if c.payload, err = c.header.Codec.Decompress(payload); err != nil {
		return err
	}
	if err := checkItemCount(count, len(c.payload), c.header.Schema.minEncodedSize()); err != nil {
		return err
	}
	c.remaining = count

	c.logger.Debug("read block",
		zap.String("file", c.path),
		zap.Int("block", c.block),
		zap.Int64("offset", c.blockOffset),
		zap.Int64("records", count),
		zap.Int("size", len(payload)),
	)
	return nil
}

// 次のブロックへ進む。withPayload が false なら内容は読み飛ばす
func (c *Container) nextBlock(withPayload bool) ([]byte, int64, error) {
	if c.br.atEOF() {
		return nil, 0, io.EOF
	}

	c.block++
	c.blockOffset = c.br.offset

	count, err := c.br.readLong()
	if err != nil {
		return nil, 0, err
	}
	if count < 0 {
		return nil, 0, formatErrorf("negative record count %d", count)
	}

	size, err := c.br.readLong()
	if err != nil {
		return nil, 0, err
	}
	if size < 0 {
		return nil, 0, formatErrorf("negative block size %d", size)
	}

	var payload []byte
	if withPayload {
		if payload, err = c.br.readFull(size); err != nil {
			return nil, 0, err
		}
	} else if err = c.br.discard(size); err != nil {
		return nil, 0, err
	}

	sync, err := c.br.readFull(syncSize)
	if err != nil {
		return nil, 0, err
	}
	if !bytes.Equal(sync, c.header.Sync[:]) {
		return nil, 0, formatErrorf("sync marker mismatch")
	}

	return payload, count, nil
}

// Inspect walks every block of the file without decoding records and
// reports the layout of the file.
func (c *Container) Inspect(ctx context.Context) (*Structure, error) {
	header, err := c.Open(ctx)
	if err != nil {
		return nil, err
	}

	structure := &Structure{
		Path:       c.path,
		Schema:     header.Schema.String(),
		Codec:      string(header.Codec),
		Sync:       hex.EncodeToString(header.Sync[:]),
		Meta:       header.UserMeta(),
		HeaderSize: header.Size,
		Blocks:     make([]*Block, 0),
	}

	records := NewStatsAggregator[int64]()
	sizes := NewStatsAggregator[int64]()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offset := c.br.offset
		_, count, err := c.nextBlock(false)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, c.fail(err)
		}

		size := c.br.offset - offset
		structure.Blocks = append(structure.Blocks, &Block{Offset: offset, NumRecords: count, Size: size})
		records.Aggregate(count, 1)
		sizes.Aggregate(size, 1)
	}

	structure.TotalRecords = records.Sum()
	structure.MinBlockRecords, structure.MaxBlockRecords = records.Min(), records.Max()
	structure.setTotalSize(header.Size + sizes.Sum())
	return structure, nil
}

// エラーにファイル名と位置を付与する
func (c *Container) fail(err error) error {
	var fe *FileError
	if errors.As(err, &fe) {
		c.err = err
		return err
	}

	fe = &FileError{Path: c.path, Offset: c.blockOffset, Block: c.block, Err: err}
	if c.block < 0 && c.br != nil {
		fe.Offset = c.br.offset
	}
	c.err = fe
	return fe
}

func (r *byteReader) ReadByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err == nil {
		r.offset++
	}
	return b, err
}

func (r *byteReader) atEOF() bool {
	_, err := r.br.Peek(1)
	return err == io.EOF
}

func (r *byteReader) readLong() (int64, error) {
	n, err := binary.ReadVarint(r)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return 0, truncatedErrorf("unexpected end of file at offset %d", r.offset)
	default:
		// ReadVarint が返すのは 64bit を超えるオーバーフローのみ
		return 0, formatErrorf("%v at offset %d", err, r.offset)
	}
}

// 宣言された長さを信用して一度に確保せず、実際に読めた分だけ確保する
func (r *byteReader) readFull(size int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r.br, size))
	r.offset += int64(len(buf))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) < size {
		return nil, truncatedErrorf("%d bytes expected, %d bytes left", size, len(buf))
	}
	return buf, nil
}

func (r *byteReader) readBytes() ([]byte, error) {
	size, err := r.readLong()
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, formatErrorf("negative length %d", size)
	}
	return r.readFull(size)
}

func (r *byteReader) discard(size int64) error {
	n, err := io.CopyN(io.Discard, r.br, size)
	r.offset += n
	if err == io.EOF {
		return truncatedErrorf("%d bytes expected, %d bytes left", size, n)
	}
	return err
}
