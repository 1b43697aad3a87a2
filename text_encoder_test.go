package piecewise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/piecewise/types"
)

// newHelloTextEncoder skips normalization so pieces match raw input.
func newHelloTextEncoder(t *testing.T) *TextEncoder {
	t.Helper()
	encoder := newHelloEncoder(t, []float32{-0.5, -1.0, -10.0, -1.0})
	return NewTextEncoder(encoder, &Normalizer{}, nil)
}

func TestTextEncoder_EncodeBatchPads(t *testing.T) {
	te := newHelloTextEncoder(t)

	batch, err := te.EncodeBatch(context.Background(),
		[]string{"hello", "there"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 6, batch.Length)
	assert.Equal(t, types.Codes{0, 3, 1, 0, 5, 1, 1, 1, 1, 1}, batch.Codes)
	assert.Nil(t, batch.Attributes)
}

func TestTextEncoder_EncodeBatchKeepsTail(t *testing.T) {
	te := newHelloTextEncoder(t)

	batch, err := te.EncodeBatch(context.Background(),
		[]string{"hello", "there"}, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, batch.Length)
	assert.Equal(t, types.Codes{1, 0, 5, 1}, batch.Codes)
}

func TestTextEncoder_EncodeBatchEmpty(t *testing.T) {
	te := newHelloTextEncoder(t)

	batch, err := te.EncodeBatch(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Length)
	assert.Equal(t, types.Codes{1, 1, 1}, batch.Codes)

	batch, err = te.EncodeBatch(context.Background(), []string{"hello"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Length)
	assert.Empty(t, batch.Codes)

	_, err = te.EncodeBatch(context.Background(), nil, -1)
	assert.Error(t, err)
}

func TestTextEncoder_Attributes(t *testing.T) {
	te := newHelloTextEncoder(t)

	// Encodings are [0 3 1] and [0 5 1]; a window of 4 drops the first two.
	batch, err := te.EncodeBatch(context.Background(),
		[]string{"hello", "there"}, 4,
		Int32Attribute{7, 9}, Float32Attribute{0.5, 1.5})
	require.NoError(t, err)
	require.Len(t, batch.Attributes, 2)
	assert.Equal(t, Int32Attribute{7, 9, 9, 9}, batch.Attributes[0])
	assert.Equal(t, Float32Attribute{0.5, 1.5, 1.5, 1.5}, batch.Attributes[1])

	batch, err = te.EncodeBatch(context.Background(),
		[]string{"hello", "there"}, 8, Int32Attribute{7, 9})
	require.NoError(t, err)
	assert.Equal(t, Int32Attribute{7, 7, 7, 9, 9, 9, 9, 9},
		batch.Attributes[0])
}

func TestTextEncoder_AttributeLength(t *testing.T) {
	te := newHelloTextEncoder(t)

	_, err := te.EncodeBatch(context.Background(),
		[]string{"hello", "there"}, 4, Int32Attribute{7})
	assert.ErrorIs(t, err, ErrAttributeLength)
	_, err = te.EncodeBatch(context.Background(),
		[]string{"hello"}, 4, nil)
	assert.ErrorIs(t, err, ErrAttributeLength)
}

func TestTextEncoder_EmptyBatchAttributesPadZero(t *testing.T) {
	te := newHelloTextEncoder(t)

	batch, err := te.EncodeBatch(context.Background(), []string{}, 3,
		Float32Attribute{})
	require.NoError(t, err)
	assert.Equal(t, Float32Attribute{0, 0, 0}, batch.Attributes[0])
}

func TestTextEncoder_UnmatchedText(t *testing.T) {
	te := newHelloTextEncoder(t)
	te.SetConcurrency(1)

	_, err := te.EncodeBatch(context.Background(),
		[]string{"hello", "hellathere"}, 8)
	assert.ErrorIs(t, err, ErrUnmatchedInput)
}

func TestTextEncoder_CancelledContext(t *testing.T) {
	te := newHelloTextEncoder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := te.EncodeBatch(ctx, []string{"hello", "there"}, 8)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextEncoder_Normalizes(t *testing.T) {
	vocab := newSpacedVocabulary()
	encoder, err := NewEncoder(vocab.Table(), vocab.Len(),
		[]float32{-5, -5, -4, -3, -2, -1, -1}, nil)
	require.NoError(t, err)
	te := NewTextEncoder(encoder, nil, nil)
	assert.Equal(t, *DefaultNormalizer(), te.Normalizer())

	batch, err := te.EncodeBatch(context.Background(),
		[]string{"  hello   there "}, 4)
	require.NoError(t, err)
	assert.Equal(t, types.Codes{0, 7, 8, 1}, batch.Codes)
	assert.Equal(t, "hello there", vocab.Decode(batch.Codes))
}

func TestTextEncoder_EncodeDocument(t *testing.T) {
	te := newHelloTextEncoder(t)

	batch, err := te.EncodeDocument(context.Background(), "   ", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Length)
}
