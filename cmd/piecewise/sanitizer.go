package main

import (
	"regexp"
	"strings"
)

var (
	extraWhitespace = regexp.MustCompile(`[[:space:]]+`)
	repeatedNewline = regexp.MustCompile(`\n{2,}`)
	spacedColon     = regexp.MustCompile(` +:`)
	textCleanup     = strings.NewReplacer("\r", "", "\\n", "\n", "\t", " ")
)

// sanitizeText repairs whitespace damage common in scraped text. Blank lines
// are dropped and whitespace within a line is collapsed.
func sanitizeText(text string) string {
	text = textCleanup.Replace(text)
	text = repeatedNewline.ReplaceAllString(text, "\n")
	text = spacedColon.ReplaceAllString(text, ":")
	lines := strings.Split(text, "\n")
	for idx, line := range lines {
		lines[idx] = strings.TrimSpace(extraWhitespace.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}
