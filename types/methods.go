package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

func (codes *Codes) ToBin(useUint32 bool) (*[]byte, error) {
	if useUint32 {
		return codes.ToBinUint32()
	} else {
		return codes.ToBinUint16()
	}
}

// ToBinUint16 writes codes as little-endian uint16. Codes that do not fit are
// an error rather than being silently truncated.
func (codes *Codes) ToBinUint16() (*[]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(*codes)*CodeSize16))
	for idx := range *codes {
		c := (*codes)[idx]
		if c < 0 || c > math.MaxUint16 {
			return nil, fmt.Errorf("integer overflow: tried to write code %d as unsigned 16-bit", c)
		}
		err := binary.Write(buf, binary.LittleEndian, uint16(c))
		if err != nil {
			return nil, err
		}
	}
	byt := buf.Bytes()
	return &byt, nil
}

func (codes *Codes) ToBinUint32() (*[]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(*codes)*CodeSize32))
	for idx := range *codes {
		c := (*codes)[idx]
		if c < 0 {
			return nil, fmt.Errorf("negative code %d cannot be written as unsigned 32-bit", c)
		}
		err := binary.Write(buf, binary.LittleEndian, uint32(c))
		if err != nil {
			return nil, err
		}
	}
	byt := buf.Bytes()
	return &byt, nil
}

func CodesFromBin(bin *[]byte) *Codes {
	codes := make(Codes, 0, len(*bin)/CodeSize16)
	buf := bytes.NewReader(*bin)
	for {
		var code uint16
		if err := binary.Read(buf, binary.LittleEndian, &code); err != nil {
			break
		}
		codes = append(codes, Code(code))
	}
	return &codes
}

func CodesFromBin32(bin *[]byte) *Codes {
	codes := make(Codes, 0, len(*bin)/CodeSize32)
	buf := bytes.NewReader(*bin)
	for {
		var code uint32
		if err := binary.Read(buf, binary.LittleEndian, &code); err != nil {
			break
		}
		codes = append(codes, Code(code))
	}
	return &codes
}

// Ints returns the codes as plain ints.
func (codes Codes) Ints() []int {
	out := make([]int, len(codes))
	for i, c := range codes {
		out[i] = int(c)
	}
	return out
}
