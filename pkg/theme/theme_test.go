package theme

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	styleA = Style{Foreground: "#AA0000"}
	styleB = Style{Foreground: "#00BB00"}
	styleC = Style{Foreground: "#FFFFFF", Background: "#000000"}
)

func commentScheme() *ColorScheme {
	return NewColorScheme("test", "", []StyleRule{
		{Name: "A", Scope: "comment", Settings: styleA},
		{Name: "B", Scope: "comment.block", Settings: styleB},
		{Name: "C", Scope: "default", Settings: styleC},
	})
}

func TestMoreSpecificSelectorWins(t *testing.T) {
	cs := commentScheme()
	assert.Equal(t, "B", cs.Select("source.c comment.block.c"))
	assert.Equal(t, "#00BB00", cs.Resolve("source.c comment.block.c").Foreground)

	// declaration order does not matter
	reversed := NewColorScheme("test", "", []StyleRule{
		{Name: "B", Scope: "comment.block", Settings: styleB},
		{Name: "A", Scope: "comment", Settings: styleA},
	})
	assert.Equal(t, "B", reversed.Select("source.c comment.block.c"))
}

func TestSelect(t *testing.T) {
	cs := NewColorScheme("test", "", []StyleRule{
		{Settings: styleC},
		{Name: "comment", Scope: "comment", Settings: styleA},
		{Name: "string", Scope: "string, constant.character.escape", Settings: styleB},
		{Name: "string in comment", Scope: "comment  string", Settings: styleB},
		{Name: "first keyword", Scope: "keyword", Settings: styleA},
		{Name: "second keyword", Scope: "keyword", Settings: styleB},
		{Scope: "meta.tag", Settings: styleB},
	})

	tests := []struct {
		chain    string
		expected string
	}{
		{"source.c comment.line.double-slash.c", "comment"},
		{"source.c string.quoted.double.c", "string"},
		{"source.c string.quoted.double.c constant.character.escape.c", "string"},
		{"source.c comment string.quoted.c", "string in comment"},
		{"source.c keyword.control.c", "first keyword"},
		{"text.html meta.tag.html", "meta.tag"},
		{"source.c entity.name.function.c", "default"},
		{"source.c xcomment.c", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.chain, func(t *testing.T) {
			assert.Equal(t, tt.expected, cs.Select(tt.chain))
		})
	}
}

func TestResolveInheritsDefault(t *testing.T) {
	cs := commentScheme()
	s := cs.Resolve("source.c comment.line.c")
	assert.Equal(t, "#AA0000", s.Foreground)
	assert.Equal(t, "#000000", s.Background)

	assert.Equal(t, styleC, ResolveStyle(cs, "source.c"))
}

func TestSelectIsCached(t *testing.T) {
	cs := commentScheme()
	first := cs.Select("source.c comment.block.c")
	assert.Equal(t, 1, cs.selected.Len())
	assert.Equal(t, first, cs.Select("source.c comment.block.c"))
	assert.Equal(t, 1, cs.selected.Len())
}

func TestStyleHas(t *testing.T) {
	s := Style{FontStyle: "bold italic"}
	assert.True(t, s.Has("bold"))
	assert.True(t, s.Has("italic"))
	assert.False(t, s.Has("underline"))
}

func TestLoadTmTheme(t *testing.T) {
	cs, err := Load(filepath.Join("testdata", "mono.tmTheme"))
	require.NoError(t, err)

	assert.Equal(t, "Mono", cs.Name)
	assert.Equal(t, "2C39E1F4-3F0B-4E0A-9A55-0B6F8E6C1D11", cs.UUID)
	assert.Equal(t, Style{Foreground: "#D4D4D4", Background: "#1E1E1E"}, cs.Default)

	s := cs.Resolve("source.go comment.line.double-slash.go")
	assert.Equal(t, Style{Foreground: "#6A9955", Background: "#1E1E1E", FontStyle: "italic"}, s)
	assert.Equal(t, "String", cs.Select("source.go string.quoted.double.go constant.character.escape.go"))
}

func TestLoadJSON(t *testing.T) {
	cs, err := Load(filepath.Join("testdata", "mono.json"))
	require.NoError(t, err)

	assert.Equal(t, "#1E1E1E", cs.Default.Background)
	s := cs.Resolve("source.go keyword.control.go")
	assert.Equal(t, "#569CD6", s.Foreground)
	assert.True(t, s.Has("bold"))
}

func TestLoadYAML(t *testing.T) {
	cs, err := Load(filepath.Join("testdata", "mono.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Number", cs.Select("source.go constant.numeric.integer.go"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Decode([]byte("{}"), ".ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load(filepath.Join("testdata", "absent.json"))
	assert.Error(t, err)

	_, err = Decode([]byte("{"), ".json")
	assert.Error(t, err)
}
