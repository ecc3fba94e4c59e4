package internal

import (
	"context"
	"errors"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type (
	// Source is one input file handed over by the caller.
	Source struct {
		Name string
		R    io.ReadSeeker
	}

	// Entry is one decoded top-level value together with the schema of the
	// file it came from.
	Entry struct {
		Source string
		Schema *Schema
		Value  Value
	}

	// Reader streams records of several container files in the given order.
	// A failure inside one file ends only that file: records already read
	// stay valid and reading goes on with the next file.
	Reader struct {
		sources []Source
		next    int
		cur     *Container
		schema  *Schema
		first   *Schema
		decoded int64
		entry   Entry
		errs    error
		logger  *zap.Logger
	}
)

func NewReader(sources []Source, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{sources: sources, logger: logger}
}

// Next advances to the next record. It returns false once every source is
// exhausted or the context is done; Err reports what went wrong on the way.
func (r *Reader) Next(ctx context.Context) bool {
	for {
		if r.cur == nil && !r.openNext(ctx) {
			return false
		}

		v, err := r.cur.Next(ctx)
		if err == io.EOF {
			r.logger.Debug("finished avro container",
				zap.String("file", r.cur.Path()),
				zap.Int64("records", r.decoded),
			)
			r.cur = nil
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				r.errs = multierr.Append(r.errs, err)
				return false
			}
			r.skip(err)
			r.cur = nil
			continue
		}

		r.decoded++
		r.entry = Entry{Source: r.cur.Path(), Schema: r.schema, Value: v}
		return true
	}
}

// 次のファイルを開く。開けなかったファイルは記録して読み飛ばす
func (r *Reader) openNext(ctx context.Context) bool {
	for r.next < len(r.sources) {
		if err := ctx.Err(); err != nil {
			r.errs = multierr.Append(r.errs, err)
			return false
		}

		src := r.sources[r.next]
		r.next++

		c := NewContainer(src.Name, src.R, r.logger)
		header, err := c.Open(ctx)
		if err != nil {
			r.skip(err)
			continue
		}

		if r.schema != nil && !r.schema.Equal(header.Schema) {
			r.logger.Info("schema differs from previous file",
				zap.String("file", src.Name),
				zap.String("schema", header.Schema.String()),
			)
		}
		if r.first == nil {
			r.first = header.Schema
		}

		r.cur, r.schema, r.decoded = c, header.Schema, 0
		return true
	}
	return false
}

func (r *Reader) skip(err error) {
	r.logger.Warn("skipping rest of avro container", zap.Error(err))
	r.errs = multierr.Append(r.errs, err)
}

// Entry returns the entry Next advanced to.
func (r *Reader) Entry() Entry {
	return r.entry
}

// ResolveSchema returns the schema of the first file that can be opened.
// Files are opened only when none has been opened yet, so take 0 still
// learns the columns.
func (r *Reader) ResolveSchema(ctx context.Context) *Schema {
	if r.first == nil && r.cur == nil {
		r.openNext(ctx)
	}
	return r.first
}

// FirstSchema returns the schema of the first file that could be opened.
func (r *Reader) FirstSchema() *Schema {
	return r.first
}

// Err returns every failure met so far, combined.
func (r *Reader) Err() error {
	return r.errs
}
