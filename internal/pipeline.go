package internal

import (
	"context"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type (
	// Options is the parameter bundle of one run.
	Options struct {
		Fields     []string
		Search     string
		IgnoreCase bool
		WholeCell  bool
		Take       int // 負の値なら上限なし
		Format     Format
		Pretty     bool
	}

	RunOption func(*runConfig)

	runConfig struct {
		logger *zap.Logger
		styler Styler
	}
)

func WithLogger(logger *zap.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

func WithStyler(styler Styler) RunOption {
	return func(c *runConfig) {
		c.styler = styler
	}
}

// Run decodes the sources in order, projects, filters and truncates the
// rows, and renders them to w. Failures of single files do not stop the run;
// they are returned together once everything readable has been rendered.
func Run(ctx context.Context, sources []Source, opts Options, w io.Writer, options ...RunOption) error {
	cfg := &runConfig{logger: zap.NewNop(), styler: PlainStyler{}}
	for _, o := range options {
		o(cfg)
	}

	// 不正なパターンはファイルを開く前に検出する
	matcher, err := NewMatcher(opts.Search, MatchOptions{IgnoreCase: opts.IgnoreCase, WholeCell: opts.WholeCell})
	if err != nil {
		return err
	}

	reader := NewReader(sources, cfg.logger)
	projector := NewProjector(opts.Fields)
	renderer := NewRenderer(opts.Format, w, RenderOptions{Styler: cfg.styler, Pretty: opts.Pretty})

	begun := false
	begin := func() error {
		if begun {
			return nil
		}
		begun = true
		return renderer.Begin(projector.Columns())
	}

	// take は絞り込み後の行数に対して適用し、満たした時点で読み取りをやめる
	emitted := 0
	for opts.Take < 0 || emitted < opts.Take {
		if !reader.Next(ctx) {
			break
		}

		row := projector.Project(reader.Entry())
		report := matcher.Match(row)
		if !report.Retained {
			continue
		}

		if err := begin(); err != nil {
			return multierr.Append(err, reader.Err())
		}
		if err := renderer.Row(row, report); err != nil {
			return multierr.Append(err, reader.Err())
		}
		emitted++
	}

	if !begun {
		// 1行も出力していなくても、列は最初に開けたファイルのスキーマから決める
		if !projector.Resolved() {
			projector.ResolveFrom(reader.ResolveSchema(ctx))
		}
		if err := begin(); err != nil {
			return multierr.Append(err, reader.Err())
		}
	}
	if err := renderer.End(); err != nil {
		return multierr.Append(err, reader.Err())
	}

	cfg.logger.Debug("rendered rows",
		zap.Stringer("format", opts.Format),
		zap.Strings("columns", projector.Columns()),
		zap.Int("rows", emitted),
	)
	return reader.Err()
}
