package piecewise

import (
	"errors"
	"fmt"
)

// ErrAttributeLength is returned when an attribute does not carry exactly one
// value per input text.
var ErrAttributeLength = errors.New("piecewise: attribute length does not match number of texts")

// Attribute carries one value per text of a batch. Encoding a batch expands
// each value over the positions its text occupies in the output window.
type Attribute interface {
	Len() int
	expand(endOffsets []int, start, size int) Attribute
}

type Int32Attribute []int32

type Float32Attribute []float32

func (attr Int32Attribute) Len() int { return len(attr) }

func (attr Float32Attribute) Len() int { return len(attr) }

func (attr Int32Attribute) expand(endOffsets []int, start, size int) Attribute {
	return Int32Attribute(expandAttribute(attr, endOffsets, start, size))
}

func (attr Float32Attribute) expand(endOffsets []int, start, size int) Attribute {
	return Float32Attribute(expandAttribute(attr, endOffsets, start, size))
}

// expandAttribute repeats values[i] for every kept position of text i.
// endOffsets[i] is the end of text i in the concatenated codes and start is
// the first concatenated position kept in the window. The tail is padded
// with the last written value, or zero when nothing was written.
func expandAttribute[T int32 | float32](values []T, endOffsets []int,
	start, size int) []T {
	out := make([]T, size)
	offset := 0
	for idx := 0; idx < len(endOffsets) && offset < size; idx++ {
		n := min(max(0, endOffsets[idx]-start-offset), size-offset)
		if n == 0 {
			continue
		}
		for pos := offset; pos < offset+n; pos++ {
			out[pos] = values[idx]
		}
		offset += n
	}
	var pad T
	if offset > 0 {
		pad = out[offset-1]
	}
	for pos := offset; pos < size; pos++ {
		out[pos] = pad
	}
	return out
}

// windowStart is the first position kept when only the trailing size items
// of total are retained.
func windowStart(total, size int) int {
	return max(0, total-size)
}

func checkAttributes(attrs []Attribute, numTexts int) error {
	for idx, attr := range attrs {
		if attr == nil || attr.Len() != numTexts {
			got := 0
			if attr != nil {
				got = attr.Len()
			}
			return fmt.Errorf("%w: attribute %d has %d values for %d texts",
				ErrAttributeLength, idx, got, numTexts)
		}
	}
	return nil
}
