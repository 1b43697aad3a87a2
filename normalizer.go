package piecewise

import (
	"strings"
	"unicode"
)

// Normalizer prepares raw text for segmentation. It only rewrites
// whitespace; no character mapping is applied.
type Normalizer struct {
	AddDummyPrefix         bool `json:"add_dummy_prefix" toml:"add_dummy_prefix" mapstructure:"add_dummy_prefix"`
	RemoveExtraWhitespaces bool `json:"remove_extra_whitespaces" toml:"remove_extra_whitespaces" mapstructure:"remove_extra_whitespaces"`
	EscapeWhitespaces      bool `json:"escape_whitespaces" toml:"escape_whitespaces" mapstructure:"escape_whitespaces"`
}

// DefaultNormalizer matches the usual SentencePiece training options.
func DefaultNormalizer() *Normalizer {
	return &Normalizer{
		AddDummyPrefix:         true,
		RemoveExtraWhitespaces: true,
		EscapeWhitespaces:      true,
	}
}

// Normalize applies, in order, whitespace collapsing, the dummy prefix and
// whitespace escaping. Empty input stays empty.
func (normalizer *Normalizer) Normalize(text string) string {
	if normalizer.RemoveExtraWhitespaces {
		text = strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
	}
	if text == "" {
		return text
	}
	if normalizer.AddDummyPrefix {
		text = " " + text
	}
	if normalizer.EscapeWhitespaces {
		text = strings.ReplaceAll(text, " ", WhitespaceEscape)
	}
	return text
}
