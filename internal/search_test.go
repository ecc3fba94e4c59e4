package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personRow(first, last string, age int64) Row {
	return NewProjector(nil).Project(Entry{Value: person(first, last, age)})
}

func TestMatcher_NoPattern(t *testing.T) {
	m, err := NewMatcher("", MatchOptions{})
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	report := m.Match(personRow("Marty", "McFly", 24))
	assert.True(t, report.Retained)
	assert.False(t, report.IsMatched(0))
	assert.False(t, report.IsMatched(1))
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		opts     MatchOptions
		row      Row
		retained bool
		matched  []int
	}{
		{
			name:     "substring",
			pattern:  "McFly",
			row:      personRow("Marty", "McFly", 24),
			retained: true,
			matched:  []int{1},
		},
		{
			name:    "no match",
			pattern: "McFly",
			row:     personRow("Biff", "Tannen", 72),
		},
		{
			name:     "regex over several cells",
			pattern:  "^[MB]",
			row:      personRow("Biff", "McFly", 24),
			retained: true,
			matched:  []int{0, 1},
		},
		{
			name:     "numbers match their text form",
			pattern:  "^2",
			row:      personRow("Marty", "McFly", 24),
			retained: true,
			matched:  []int{2},
		},
		{
			name:    "case sensitive by default",
			pattern: "mcfly",
			row:     personRow("Marty", "McFly", 24),
		},
		{
			name:     "ignore case",
			pattern:  "mcfly",
			opts:     MatchOptions{IgnoreCase: true},
			row:      personRow("Marty", "McFly", 24),
			retained: true,
			matched:  []int{1},
		},
		{
			name:    "whole cell rejects partial",
			pattern: "Mc",
			opts:    MatchOptions{WholeCell: true},
			row:     personRow("Marty", "McFly", 24),
		},
		{
			name:     "whole cell with alternation",
			pattern:  "Marty|Doc",
			opts:     MatchOptions{WholeCell: true},
			row:      personRow("Marty", "McFly", 24),
			retained: true,
			matched:  []int{0},
		},
		{
			name:    "absent cells never match",
			pattern: "N/A",
			row:     Row{Cells: []Cell{Absent(), Present(String("x"))}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatcher(tt.pattern, tt.opts)
			require.NoError(t, err)
			assert.True(t, m.Enabled())

			report := m.Match(tt.row)
			assert.Equal(t, tt.retained, report.Retained)

			var matched []int
			for i := range tt.row.Cells {
				if report.IsMatched(i) {
					matched = append(matched, i)
				}
			}
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher("(unclosed", MatchOptions{})
	require.ErrorIs(t, err, ErrPattern)
	assert.Contains(t, err.Error(), "(unclosed")
}
