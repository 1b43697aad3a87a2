//go:build js || wasip1

package piecewise

import "strings"

// SplitSentences returns one sentence per non-blank line. Browser builds
// do not carry the prose models.
func SplitSentences(text string) ([]string, error) {
	sentences := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences, nil
}
