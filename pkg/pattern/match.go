package pattern

// Match holds byte offsets of a match: pairs of start and end for the
// whole match (group 0) followed by every capture group. Groups that did
// not participate are -1, -1, which is distinct from a zero-width group.
type Match []int

// Start returns the start of the whole match.
func (m Match) Start() int {
	return m[0]
}

// End returns the end of the whole match.
func (m Match) End() int {
	return m[1]
}

// Empty reports whether the whole match is zero-width.
func (m Match) Empty() bool {
	return m[0] == m[1]
}

// Groups returns the number of groups including group 0.
func (m Match) Groups() int {
	return len(m) / 2
}

// Group returns the range of group i and whether it participated.
func (m Match) Group(i int) (start, end int, ok bool) {
	if i < 0 || 2*i+1 >= len(m) || m[2*i] < 0 {
		return -1, -1, false
	}
	return m[2*i], m[2*i+1], true
}
