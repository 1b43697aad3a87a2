//go:build !wasip1 && !js

package piecewise

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// SplitSentences breaks text into sentences with prose's segmenter.
// Whitespace-only text yields no sentences.
func SplitSentences(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	doc, err := prose.NewDocument(
		text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
	if err != nil {
		return nil, err
	}
	sentences := make([]string, 0, len(doc.Sentences()))
	for _, sentence := range doc.Sentences() {
		if s := strings.TrimSpace(sentence.Text); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		sentences = append(sentences, strings.TrimSpace(text))
	}
	return sentences, nil
}
