package piecewise

import (
	"context"
	"fmt"
	"runtime"

	"github.com/wbrown/piecewise/types"
	"golang.org/x/sync/errgroup"
)

// EncodedBatch is a fixed size window over the concatenated encodings of a
// batch of texts.
type EncodedBatch struct {
	// Codes always holds maxLength codes; positions past Length are padding.
	Codes types.Codes
	// Length counts the real codes at the front of Codes.
	Length int
	// Attributes are expanded to one value per position of Codes.
	Attributes []Attribute
}

// TextEncoder normalizes texts, encodes them and packs the result into a
// fixed length window keeping the most recent codes.
type TextEncoder struct {
	segmenter   Segmenter
	normalizer  Normalizer
	config      EncoderConfig
	concurrency int
}

// NewTextEncoder builds a pipeline around segmenter. config must carry the
// same sentinels the segmenter emits. Nil arguments use the defaults.
func NewTextEncoder(segmenter Segmenter, normalizer *Normalizer,
	config *EncoderConfig) *TextEncoder {
	if normalizer == nil {
		normalizer = DefaultNormalizer()
	}
	if config == nil {
		config = DefaultEncoderConfig()
	}
	return &TextEncoder{
		segmenter:   segmenter,
		normalizer:  *normalizer,
		config:      *config,
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// SetConcurrency bounds how many texts of a batch are encoded at once.
func (te *TextEncoder) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	te.concurrency = n
}

func (te *TextEncoder) Normalizer() Normalizer {
	return te.normalizer
}

// EncodeBatch encodes every text, concatenates the encodings in order and
// keeps the trailing maxLength codes. Short output is padded with its last
// code, or EndCode when the batch is empty. Each attribute must hold one
// value per text.
func (te *TextEncoder) EncodeBatch(ctx context.Context, texts []string,
	maxLength int, attrs ...Attribute) (*EncodedBatch, error) {
	if maxLength < 0 {
		return nil, fmt.Errorf("piecewise: negative max length %d", maxLength)
	}
	if err := checkAttributes(attrs, len(texts)); err != nil {
		return nil, err
	}

	encoded := make([]types.Codes, len(texts))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(te.concurrency)
	for idx := range texts {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			normalized := te.normalizer.Normalize(texts[idx])
			codes, err := te.segmenter.Encode([]byte(normalized))
			if err != nil {
				return fmt.Errorf("text %d: %w", idx, err)
			}
			encoded[idx] = codes
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	total := make(types.Codes, 0)
	endOffsets := make([]int, len(encoded))
	for idx, codes := range encoded {
		total = append(total, codes...)
		endOffsets[idx] = len(total)
	}

	start := windowStart(len(total), maxLength)
	batch := &EncodedBatch{Codes: make(types.Codes, maxLength)}
	batch.Length = copy(batch.Codes, total[start:])
	pad := types.Code(te.config.EndCode)
	if len(total) > 0 {
		pad = total[len(total)-1]
	}
	for pos := batch.Length; pos < maxLength; pos++ {
		batch.Codes[pos] = pad
	}

	if len(attrs) > 0 {
		batch.Attributes = make([]Attribute, len(attrs))
		for idx, attr := range attrs {
			batch.Attributes[idx] = attr.expand(endOffsets, start, maxLength)
		}
	}
	return batch, nil
}

// EncodeDocument splits doc into sentences and encodes them as one batch.
func (te *TextEncoder) EncodeDocument(ctx context.Context, doc string,
	maxLength int) (*EncodedBatch, error) {
	sentences, err := SplitSentences(doc)
	if err != nil {
		return nil, err
	}
	return te.EncodeBatch(ctx, sentences, maxLength)
}
