package piecewise

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/piecewise/types"
)

type countingSegmenter struct {
	inner Segmenter
	calls atomic.Int32
}

func (s *countingSegmenter) Encode(text []byte) (types.Codes, error) {
	s.calls.Add(1)
	return s.inner.Encode(text)
}

func newCountingCache(t *testing.T, size int) (*CachedEncoder,
	*countingSegmenter) {
	t.Helper()
	counting := &countingSegmenter{
		inner: newHelloEncoder(t, []float32{-0.5, -1.0, -10.0, -1.0}),
	}
	cached, err := NewCachedEncoder(counting, size)
	require.NoError(t, err)
	return cached, counting
}

func TestCachedEncoder_HitsAndMisses(t *testing.T) {
	cached, counting := newCountingCache(t, 16)

	first, err := cached.Encode([]byte("hellothere"))
	require.NoError(t, err)
	second, err := cached.Encode([]byte("hellothere"))
	require.NoError(t, err)

	assert.Equal(t, types.Codes{0, 3, 5, 1}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), counting.calls.Load())
	assert.Equal(t, uint64(1), cached.Hits())
	assert.Equal(t, uint64(1), cached.Misses())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEncoder_ReturnsCopies(t *testing.T) {
	cached, _ := newCountingCache(t, 16)

	first, err := cached.Encode([]byte("hellothere"))
	require.NoError(t, err)
	first[1] = 99

	second, err := cached.Encode([]byte("hellothere"))
	require.NoError(t, err)
	assert.Equal(t, types.Codes{0, 3, 5, 1}, second)
	second[1] = 98

	third, err := cached.Encode([]byte("hellothere"))
	require.NoError(t, err)
	assert.Equal(t, types.Codes{0, 3, 5, 1}, third)
}

func TestCachedEncoder_InputBufferReuse(t *testing.T) {
	cached, counting := newCountingCache(t, 16)

	buf := []byte("hellothere")
	_, err := cached.Encode(buf)
	require.NoError(t, err)
	copy(buf, "hellohell!")

	codes, err := cached.Encode([]byte("hellothere"))
	require.NoError(t, err)
	assert.Equal(t, types.Codes{0, 3, 5, 1}, codes)
	assert.Equal(t, int32(1), counting.calls.Load())
}

func TestCachedEncoder_ErrorsNotCached(t *testing.T) {
	cached, counting := newCountingCache(t, 16)

	_, err := cached.Encode([]byte("hellathere"))
	assert.ErrorIs(t, err, ErrUnmatchedInput)
	_, err = cached.Encode([]byte("hellathere"))
	assert.ErrorIs(t, err, ErrUnmatchedInput)

	assert.Equal(t, int32(2), counting.calls.Load())
	assert.Equal(t, 0, cached.Len())
}

func TestCachedEncoder_Purge(t *testing.T) {
	cached, counting := newCountingCache(t, 0)

	_, err := cached.Encode([]byte("hello"))
	require.NoError(t, err)
	cached.Purge()
	assert.Equal(t, 0, cached.Len())
	_, err = cached.Encode([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), counting.calls.Load())
}
