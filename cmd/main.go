package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/murakmii/ravro/internal"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const usage = `usage:
  ravro get [flags] <file or glob>...
  ravro inspect [flags] <file or glob>...`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "get":
		err = get(os.Args[2:])
	case "inspect":
		err = inspect(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command '%s'\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", e)
		}
		os.Exit(1)
	}
}

func get(args []string) error {
	cfg, err := loadGetConfig(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, closeSources, err := openSources(cfg.Paths)
	if err != nil {
		return err
	}
	defer closeSources()

	logger.Debug("starting get",
		zap.Int("files", len(sources)),
		zap.Strings("fields", cfg.Options.Fields),
		zap.Stringer("format", cfg.Options.Format),
		zap.Int("take", cfg.Options.Take),
	)

	// Windows のコンソールでもエスケープシーケンスを色として表示する
	return internal.Run(ctx, sources, cfg.Options, colorable.NewColorable(os.Stdout),
		internal.WithLogger(logger),
		internal.WithStyler(newStyler(os.Stdout, cfg.Color)),
	)
}

func inspect(args []string) error {
	cfg, err := loadInspectConfig(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, closeSources, err := openSources(cfg.Paths)
	if err != nil {
		return err
	}
	defer closeSources()

	inspected := make([]*internal.Structure, 0, len(sources))
	var errs error

	for _, src := range sources {
		structure, err := internal.NewContainer(src.Name, src.R, logger).Inspect(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to inspect avro file: %w", err))
			continue
		}
		inspected = append(inspected, structure)
	}

	j, err := json.MarshalIndent(inspected, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal inspection result: %w", err)
	}

	fmt.Println(string(j))
	return errs
}

// パターンに一致するファイルを、指定された順に開く
func openSources(patterns []string) ([]internal.Source, func(), error) {
	paths := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read glob pattern '%s': %w", pattern, err)
		}
		// filepath.Glob は存在するファイルしか返さない
		paths = append(paths, matches...)
	}

	if len(paths) == 0 {
		return nil, nil, errors.New("no files found")
	}

	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	sources := make([]internal.Source, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open avro file: %w", err)
		}
		files = append(files, f)
		sources = append(sources, internal.Source{Name: path, R: f})
	}

	return sources, closeAll, nil
}
