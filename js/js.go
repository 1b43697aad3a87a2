package main

//go:generate gopherjs build --minify

import (
	"github.com/gopherjs/gopherjs/js"
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/internal/logger"
	"github.com/wbrown/piecewise/resources"
	"github.com/wbrown/piecewise/types"
)

var (
	encoder    *piecewise.Encoder
	vocab      *piecewise.Vocabulary
	normalizer = piecewise.DefaultNormalizer()
	jslog      = logger.New("piecewise")
)

// Load parses a flat model. It returns false when the bytes are not a valid
// model.
func Load(data []byte) bool {
	model, err := resources.ParseModel(data)
	if err != nil {
		jslog.Error("cannot load model", "err", err)
		return false
	}
	enc, err := model.NewEncoder()
	if err != nil {
		jslog.Error("cannot load model", "err", err)
		return false
	}
	encoder, vocab = enc, model.Vocabulary()
	jslog.Info("model loaded", "pieces", model.NumPieces())
	return true
}

// Tokenize returns nil when no model is loaded or text cannot be segmented.
func Tokenize(text string) []int {
	if encoder == nil {
		return nil
	}
	codes, err := encoder.EncodeString(normalizer.Normalize(text))
	if err != nil {
		jslog.Warn("cannot tokenize", "err", err)
		return nil
	}
	return codes.Ints()
}

func Decode(codes []int) string {
	if vocab == nil {
		return ""
	}
	decoded := make(types.Codes, len(codes))
	for idx, code := range codes {
		decoded[idx] = types.Code(code)
	}
	return vocab.Decode(decoded)
}

// DecodeBin decodes little-endian uint16 codes.
func DecodeBin(arr []byte) string {
	if vocab == nil {
		return ""
	}
	return vocab.Decode(*types.CodesFromBin(&arr))
}

func init() {
	exports := js.Module.Get("exports")
	exports.Set("load", Load)
	exports.Set("tokenize", Tokenize)
	exports.Set("decode", Decode)
	exports.Set("decodeBin", DecodeBin)
}

func main() {

}
