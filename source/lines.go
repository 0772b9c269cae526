package source

import "sort"

// LineIndex maps byte offsets in a text to 1-based line numbers.
type LineIndex struct {
	starts []int
}

// NewLineIndex records the start offset of every line in text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Line returns the 1-based line holding offset.
func (l *LineIndex) Line(offset int) int {
	return sort.Search(len(l.starts), func(i int) bool {
		return l.starts[i] > offset
	})
}
