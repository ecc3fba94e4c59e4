package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mitchellh/colorstring"
	"github.com/murakmii/ravro/internal"
)

// 見出しは青の太字・下線、一致したセルは緑の太字、値のないセルは赤で表示する
// セルの文字列は colorstring に渡さないので、"[red]" のような値もそのまま表示される
type colorStyler struct {
	header  string
	matched string
	absent  string
	reset   string
}

func newColorStyler(disable bool) colorStyler {
	c := colorstring.Colorize{Colors: colorstring.DefaultColors, Disable: disable}
	return colorStyler{
		header:  c.Color("[bold][underline][blue]"),
		matched: c.Color("[bold][green]"),
		absent:  c.Color("[red]"),
		reset:   c.Color("[reset]"),
	}
}

func (s colorStyler) Header(text string) string {
	return s.header + text + s.reset
}

func (s colorStyler) Matched(text string) string {
	return s.matched + text + s.reset
}

func (s colorStyler) Absent(text string) string {
	return s.absent + text + s.reset
}

func newStyler(out *os.File, mode string) internal.Styler {
	switch mode {
	case "always":
		return newColorStyler(false)
	case "never":
		return internal.PlainStyler{}
	}

	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		return newColorStyler(false)
	}
	return internal.PlainStyler{}
}
