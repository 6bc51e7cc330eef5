package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	hyphenatedBreak = regexp.MustCompile(`(\p{L})-\n(\p{Ll})`)
	repeatedSpaces  = regexp.MustCompile(` {2,}`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText cleans PDF extraction artefacts: CR line endings, control
// characters, non-breaking and soft hyphens, words hyphenated across lines,
// repeated spaces and runs of blank lines. Paragraph breaks ("\n\n") survive.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\u00ad':
			return -1
		case r == '\t' || r == '\u00a0' || r == '\f' || r == '\v':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)

	s = hyphenatedBreak.ReplaceAllString(s, "$1$2")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(repeatedSpaces.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
