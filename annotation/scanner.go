// Package annotation locates `<<` / `>>` marker pairs in body text and
// records them as byte ranges for later styling. The scan is a single pass
// over the raw bytes, so recorded offsets always address the original body
// text regardless of what downstream conversion does to the output.
//
// Marker pairs inside literal code regions are never recognized. The scanner
// tracks three lexical states: normal text, inline code spans (a run of N
// backticks closes only on an identical run of N), and fenced code blocks
// (3+ backticks or tildes, closed only by an equal-or-longer run of the same
// character). Indented code lines outside a fence are skipped as well.
package annotation

// MaxSpanLength bounds the forward search for a closing marker. Unmatched
// openings past the bound degrade to literal text, which keeps the scan
// linear on adversarial input full of lone `<<` markers.
const MaxSpanLength = 64 * 1024

// Range is a half-open byte interval over the original body text, inclusive
// of the opening and closing markers.
type Range struct {
	Start int
	End   int
}

// Len returns the byte length of the range.
func (r Range) Len() int { return r.End - r.Start }

// Overlaps reports whether the range intersects [start, stop).
func (r Range) Overlaps(start, stop int) bool {
	return r.Start < stop && r.End > start
}

// Scan returns every annotation span in body, sorted and non-overlapping.
// Scan never fails: malformed or unmatched markers are left as literal text.
func Scan(body string) []Range {
	var ranges []Range

	var (
		fenceChar byte
		fenceLen  int
		inlineLen int
	)
	atLineStart := true

	i := 0
	for i < len(body) {
		c := body[i]

		if c == '\n' {
			atLineStart = true
			i++
			continue
		}

		// Indented code line, only meaningful outside code states.
		if atLineStart && fenceLen == 0 && inlineLen == 0 {
			if runLength(body, i, ' ') >= 4 {
				for i < len(body) && body[i] != '\n' {
					i++
				}
				continue
			}
		}
		atLineStart = false

		if fenceLen == 0 && inlineLen == 0 && (c == '`' || c == '~') {
			if run := runLength(body, i, c); run >= 3 {
				fenceChar, fenceLen = c, run
				i += run
				continue
			}
		}

		if fenceLen > 0 {
			if c == fenceChar {
				if run := runLength(body, i, c); run >= fenceLen {
					fenceChar, fenceLen = 0, 0
					i += run
					continue
				}
			}
			i++
			continue
		}

		if c == '`' {
			run := runLength(body, i, '`')
			if inlineLen > 0 {
				// A different run length cannot close the span.
				if run == inlineLen {
					inlineLen = 0
					i += run
					continue
				}
				i++
				continue
			}
			inlineLen = run
			i += run
			continue
		}

		if inlineLen > 0 {
			i++
			continue
		}

		if c == '<' && i+1 < len(body) && body[i+1] == '<' {
			if end, ok := findSpanEnd(body, i+2); ok {
				ranges = append(ranges, Range{Start: i, End: end})
				i = end
				continue
			}
		}

		i++
	}

	return ranges
}

// findSpanEnd searches forward for the closing `>>`, returning the offset
// just past it. The search stops at a line boundary or once the content
// exceeds MaxSpanLength bytes.
func findSpanEnd(body string, from int) (int, bool) {
	for j := from; j+1 < len(body) && j-from <= MaxSpanLength; j++ {
		switch body[j] {
		case '\n':
			return 0, false
		case '>':
			if body[j+1] == '>' {
				return j + 2, true
			}
		}
	}
	return 0, false
}

// runLength counts consecutive occurrences of c starting at i.
func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}
