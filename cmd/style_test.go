package main

import (
	"os"
	"strings"
	"testing"

	"github.com/murakmii/ravro/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorStyler(t *testing.T) {
	s := newColorStyler(false)

	assert.Equal(t, "\x1b[1m\x1b[4m\x1b[34mfirstName\x1b[0m", s.Header("firstName"))
	assert.Equal(t, "\x1b[1m\x1b[32mMcFly\x1b[0m", s.Matched("McFly"))
	assert.Equal(t, "\x1b[31mN/A\x1b[0m", s.Absent("N/A"))

	// セルの値に含まれる色指定は解釈しない
	matched := s.Matched("[red]Biff")
	assert.True(t, strings.HasPrefix(matched, "\x1b[1m\x1b[32m[red]Biff"))
	assert.NotContains(t, matched, "\x1b[31m")
}

func TestColorStyler_Disabled(t *testing.T) {
	s := newColorStyler(true)
	assert.Equal(t, "firstName", s.Header("firstName"))
	assert.Equal(t, "[bold]Doc", s.Matched("[bold]Doc"))
}

func TestNewStyler(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, colorStyler{}, newStyler(f, "always"))
	assert.Equal(t, internal.PlainStyler{}, newStyler(f, "never"))
	// 端末でなければ色を付けない
	assert.Equal(t, internal.PlainStyler{}, newStyler(f, "auto"))
}
