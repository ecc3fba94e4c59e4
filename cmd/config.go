package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/murakmii/ravro/internal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "RAVRO"

type (
	getConfig struct {
		Paths    []string
		Options  internal.Options
		LogLevel string
		Color    string
	}

	inspectConfig struct {
		Paths    []string
		LogLevel string
	}
)

// get コマンドの設定を、フラグ・環境変数・設定ファイルの順に優先して読み取る
func loadGetConfig(args []string) (*getConfig, error) {
	fs := pflag.NewFlagSet("get", pflag.ContinueOnError)
	fs.StringSliceP("fields", "f", nil, "names of the fields to get (repeatable or comma separated)")
	fs.StringP("search", "s", "", "regex to search; only rows with a matching field are shown")
	fs.Bool("ignore-case", false, "match the search pattern case-insensitively")
	fs.Bool("whole-cell", false, "require the search pattern to match a whole cell")
	fs.IntP("take", "t", -1, "maximum number of rows to show")
	fs.StringP("format", "p", "", "output format: omit for a table, or csv, json, json-pretty")
	fs.String("color", "auto", "highlight table cells: auto, always or never")
	addCommonFlags(fs)

	v, err := parseFlags(fs, args)
	if err != nil {
		return nil, err
	}

	cfg := &getConfig{
		Paths:    fs.Args(),
		LogLevel: v.GetString("log-level"),
		Color:    v.GetString("color"),
		Options: internal.Options{
			Fields:     splitList(v.GetStringSlice("fields")),
			Search:     v.GetString("search"),
			IgnoreCase: v.GetBool("ignore-case"),
			WholeCell:  v.GetBool("whole-cell"),
			Take:       v.GetInt("take"),
		},
	}

	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one file must be specified")
	}
	if fs.Changed("take") && cfg.Options.Take < 0 {
		return nil, fmt.Errorf("take must not be negative: %d", cfg.Options.Take)
	}

	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return nil, fmt.Errorf("unknown color mode '%s'", cfg.Color)
	}

	// json-pretty はインデント付きの JSON として扱う
	format := v.GetString("format")
	if format == "json-pretty" {
		format, cfg.Options.Pretty = "json", true
	}
	if cfg.Options.Format, err = internal.ParseFormat(format); err != nil {
		return nil, fmt.Errorf("output format not recognized: %w", err)
	}

	return cfg, nil
}

// 環境変数や設定ファイルの文字列は空白でしか区切られないので、カンマでも区切り直す
func splitList(values []string) []string {
	var list []string
	for _, value := range values {
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
	}
	return list
}

func loadInspectConfig(args []string) (*inspectConfig, error) {
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	addCommonFlags(fs)

	v, err := parseFlags(fs, args)
	if err != nil {
		return nil, err
	}

	if fs.NArg() == 0 {
		return nil, errors.New("at least one file must be specified")
	}

	return &inspectConfig{Paths: fs.Args(), LogLevel: v.GetString("log-level")}, nil
}

func addCommonFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "warn", "log level: debug, info, warn or error")
	fs.String("config", "", "path to a config file")
}

func parseFlags(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_")) // 例: --log-level は RAVRO_LOG_LEVEL
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}
