package harness

import "strings"

// excerptLines is how many lines of a stream a failure report shows.
const excerptLines = 2

// Excerpt returns the first two lines of out on a single line. Line breaks
// become the two characters `\n` and tabs become `\t`. One trailing newline
// is dropped first so single-line output carries no marker.
func Excerpt(out []byte) string {
	s := strings.TrimSuffix(string(out), "\n")
	if s == "" {
		return ""
	}
	lines := strings.SplitN(s, "\n", excerptLines+1)
	if len(lines) > excerptLines {
		lines = lines[:excerptLines]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return strings.ReplaceAll(strings.Join(lines, `\n`), "\t", `\t`)
}
