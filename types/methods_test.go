package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes_ToBinUint16(t *testing.T) {
	codes := Codes{0, 3, 5, 1, 65535}
	bin, err := codes.ToBin(false)
	require.NoError(t, err)
	assert.Len(t, *bin, len(codes)*CodeSize16)
	assert.Equal(t, []byte{0, 0, 3, 0, 5, 0, 1, 0, 0xff, 0xff}, *bin)
	assert.Equal(t, codes, *CodesFromBin(bin))
}

func TestCodes_ToBinUint16Overflow(t *testing.T) {
	codes := Codes{0, 70000, 1}
	_, err := codes.ToBinUint16()
	assert.Error(t, err)

	codes = Codes{-1}
	_, err = codes.ToBinUint16()
	assert.Error(t, err)
}

func TestCodes_ToBinUint32(t *testing.T) {
	codes := Codes{0, 70000, 1}
	bin, err := codes.ToBin(true)
	require.NoError(t, err)
	assert.Len(t, *bin, len(codes)*CodeSize32)
	assert.Equal(t, codes, *CodesFromBin32(bin))
}

func TestCodesFromBin_IgnoresTrailingByte(t *testing.T) {
	bin := []byte{2, 0, 7}
	assert.Equal(t, Codes{2}, *CodesFromBin(&bin))
}

func TestCodes_Ints(t *testing.T) {
	assert.Equal(t, []int{0, 4, 1}, Codes{0, 4, 1}.Ints())
}
