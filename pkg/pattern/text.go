package pattern

import (
	"strings"
	"unicode/utf8"
)

// Text is an immutable document snapshot indexed for searching.
// The host engine matches on runes while every offset exposed by this
// package is a byte offset into the original string.
type Text struct {
	src    string
	runes  []rune
	byteOf []int // rune index -> byte offset, len(runes)+1 entries
	runeOf []int // byte offset -> index of the rune starting at or after it
}

// NewText indexes s for searching.
func NewText(s string) *Text {
	t := &Text{
		src:    s,
		runes:  make([]rune, 0, len(s)),
		byteOf: make([]int, 0, len(s)+1),
		runeOf: make([]int, len(s)+1),
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		idx := len(t.runes)
		t.runes = append(t.runes, r)
		t.byteOf = append(t.byteOf, i)
		t.runeOf[i] = idx
		// bytes inside a rune map to the rune after it
		for j := i + 1; j < i+size; j++ {
			t.runeOf[j] = idx + 1
		}
		i += size
	}
	t.byteOf = append(t.byteOf, len(s))
	t.runeOf[len(s)] = len(t.runes)
	return t
}

// String returns the original document.
func (t *Text) String() string {
	return t.src
}

// Len returns the document length in bytes.
func (t *Text) Len() int {
	return len(t.src)
}

// Slice returns the document bytes in [start, end).
func (t *Text) Slice(start, end int) string {
	return t.src[start:end]
}

// NextRune returns the byte offset of the rune boundary after pos.
func (t *Text) NextRune(pos int) int {
	if pos >= len(t.src) {
		return len(t.src)
	}
	_, size := utf8.DecodeRuneInString(t.src[pos:])
	return pos + size
}

// LineEnd returns the offset of the first '\n' at or after pos, or the
// document length when pos is on the last line.
func (t *Text) LineEnd(pos int) int {
	if pos >= len(t.src) {
		return len(t.src)
	}
	if i := strings.IndexByte(t.src[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(t.src)
}

func (t *Text) runeIndex(pos int) int {
	switch {
	case pos <= 0:
		return 0
	case pos >= len(t.src):
		return len(t.runes)
	}
	return t.runeOf[pos]
}

func (t *Text) byteOffset(idx int) int {
	return t.byteOf[idx]
}
