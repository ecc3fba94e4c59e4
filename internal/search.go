package internal

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/grafana/regexp"
)

type (
	MatchOptions struct {
		IgnoreCase bool // 大文字小文字を区別しない
		WholeCell  bool // セルの文字列全体に一致する場合のみ一致とみなす
	}

	// Matcher tests rows against a search pattern. A Matcher without a
	// pattern retains every row and marks nothing.
	Matcher struct {
		re *regexp.Regexp
	}

	MatchReport struct {
		Retained bool
		Matched  *bitset.BitSet // 一致した列の番号
	}
)

// NewMatcher compiles the pattern. An empty pattern means no search.
func NewMatcher(pattern string, opts MatchOptions) (*Matcher, error) {
	if pattern == "" {
		return &Matcher{}, nil
	}

	expr := pattern
	if opts.WholeCell {
		expr = "^(?:" + expr + ")$"
	}
	if opts.IgnoreCase {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w '%s': %v", ErrPattern, pattern, err)
	}
	return &Matcher{re: re}, nil
}

func (m *Matcher) Enabled() bool {
	return m.re != nil
}

// Match tests every present cell's text form against the pattern.
func (m *Matcher) Match(row Row) MatchReport {
	report := MatchReport{Matched: bitset.New(uint(len(row.Cells)))}
	if m.re == nil {
		report.Retained = true
		return report
	}

	for i, cell := range row.Cells {
		v, ok := cell.Value()
		if !ok {
			continue
		}
		if m.re.MatchString(v.String()) {
			report.Matched.Set(uint(i))
		}
	}

	report.Retained = report.Matched.Any()
	return report
}

// IsMatched reports whether the cell at the column index matched.
func (r MatchReport) IsMatched(i int) bool {
	return r.Matched != nil && r.Matched.Test(uint(i))
}
