package identifiers

// upperBoundSentinel is appended to the needle to find the end of the run of
// records sharing its prefix. It sorts after every letter and digit once the
// alphabet is uppercased.
const upperBoundSentinel = '~'

func upperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// uppercase folds ASCII lowercase letters only; other bytes are kept as-is.
func uppercase(s []byte) []byte {
	out := make([]byte, len(s))
	for i, c := range s {
		out[i] = upperByte(c)
	}
	return out
}

// compareUpper compares uppercase(line) with an already uppercased needle
// without allocating.
func compareUpper(line, upperNeedle []byte) int {
	n := min(len(line), len(upperNeedle))
	for i := 0; i < n; i++ {
		a, b := upperByte(line[i]), upperNeedle[i]
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(line) < len(upperNeedle):
		return -1
	case len(line) > len(upperNeedle):
		return 1
	}
	return 0
}

// getLine returns the line containing pos, without its newline. A pos on a
// newline belongs to the line that newline terminates.
func (ix *Index) getLine(pos int) []byte {
	data := ix.data
	if pos < 0 || pos >= len(data) {
		return nil
	}
	if data[pos] == '\n' && pos > 0 {
		pos--
	}

	start, end := pos, pos
	for start > 0 && data[start-1] != '\n' {
		start--
	}
	for end < len(data) && data[end] != '\n' {
		end++
	}
	return data[start:end]
}

// bisect returns the offset of the first line not less than needle under
// uppercase ordering. With upperBound set it returns the offset just past
// every line that has needle as a prefix.
func (ix *Index) bisect(needle []byte, upperBound bool) int {
	upper := uppercase(needle)
	if upperBound {
		upper = append(upper, upperBoundSentinel)
	}

	first := 0
	count := len(ix.data)
	for count > 0 {
		step := count / 2
		pos := first + step

		c := compareUpper(ix.getLine(pos), upper)
		if c < 0 || (upperBound && c == 0) {
			first = pos + 1
			count -= step + 1
		} else {
			count = step
		}
	}
	return first
}
