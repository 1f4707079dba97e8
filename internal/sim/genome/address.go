package genome

// Wrap projects an unbounded virtual index onto [0, size).
// Negative indices count down from the top, so -1 is size-1 and
// exact negative multiples of size land on 0.
func Wrap(index, size int) int {
	if size <= 0 {
		return 0
	}
	m := index % size
	if m < 0 {
		m += size
	}
	return m
}
