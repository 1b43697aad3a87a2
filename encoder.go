package piecewise

import (
	"errors"
	"fmt"

	"github.com/wbrown/piecewise/types"
)

const (
	DefaultStartCode      = 0
	DefaultEndCode        = 1
	DefaultEncodingOffset = 2
)

var (
	// ErrUnmatchedInput is returned when no sequence of vocabulary pieces
	// covers the whole input.
	ErrUnmatchedInput = errors.New("piecewise: input cannot be segmented with the vocabulary")
	// ErrPieceOutOfRange is returned when a matcher reports an id outside the
	// encoder's score table.
	ErrPieceOutOfRange = errors.New("piecewise: matched piece id out of range")
)

// UnmatchedInputError reports where segmentation stopped. Offset is the end of
// the longest prefix of the input that some tiling reaches.
type UnmatchedInputError struct {
	Offset int
	Length int
}

func (e *UnmatchedInputError) Error() string {
	return fmt.Sprintf("%v: segmentation reaches only byte %d of %d",
		ErrUnmatchedInput, e.Offset, e.Length)
}

func (e *UnmatchedInputError) Unwrap() error {
	return ErrUnmatchedInput
}

// Segmenter turns normalized text into codes.
type Segmenter interface {
	Encode(text []byte) (types.Codes, error)
}

// EncoderConfig holds the sentinel codes bracketing every encoding and the
// offset added to piece ids so they never collide with the sentinels.
type EncoderConfig struct {
	StartCode      int32 `json:"start_code" toml:"start_code" mapstructure:"start_code"`
	EndCode        int32 `json:"end_code" toml:"end_code" mapstructure:"end_code"`
	EncodingOffset int32 `json:"encoding_offset" toml:"encoding_offset" mapstructure:"encoding_offset"`
}

func DefaultEncoderConfig() *EncoderConfig {
	return &EncoderConfig{
		StartCode:      DefaultStartCode,
		EndCode:        DefaultEndCode,
		EncodingOffset: DefaultEncodingOffset,
	}
}

// Encoder segments text into pieces so that the sum of the piece scores is
// maximal, assuming pieces are independent of each other.
//
// An Encoder is immutable and safe for concurrent use. It borrows the matcher
// and the score slice, which must not change while it is in use.
type Encoder struct {
	matcher   Matcher
	numPieces int
	scores    []float32
	config    EncoderConfig
}

var _ Segmenter = (*Encoder)(nil)

// SegmentationEntry is the best path found so far to one end position.
type SegmentationEntry struct {
	Score       float32 // Accumulated score.
	PreviousPos int     // Start of the last piece.
	PieceID     int     // Last piece used, -1 while unreached.
	NumPieces   int     // Pieces on the path.
}

// NewEncoder returns an Encoder over numPieces entries of matcher. scores is
// indexed by entry id and must hold at least numPieces values. A nil config
// uses the defaults.
func NewEncoder(matcher Matcher, numPieces int, scores []float32,
	config *EncoderConfig) (*Encoder, error) {
	if matcher == nil {
		return nil, errors.New("piecewise: encoder requires a matcher")
	}
	if numPieces < 0 {
		return nil, fmt.Errorf("piecewise: negative piece count %d", numPieces)
	}
	if len(scores) < numPieces {
		return nil, fmt.Errorf("piecewise: %d scores for %d pieces",
			len(scores), numPieces)
	}
	if config == nil {
		config = DefaultEncoderConfig()
	}
	return &Encoder{
		matcher:   matcher,
		numPieces: numPieces,
		scores:    scores,
		config:    *config,
	}, nil
}

func (encoder *Encoder) Config() EncoderConfig {
	return encoder.config
}

func (encoder *Encoder) NumPieces() int {
	return encoder.numPieces
}

// EncodeString is Encode for string input.
func (encoder *Encoder) EncodeString(text string) (types.Codes, error) {
	return encoder.Encode([]byte(text))
}

// Encode returns [StartCode, id_1+EncodingOffset, ..., EndCode] for the
// highest scoring segmentation of text.
//
// When two paths into the same position score equally, the one found first
// is kept. Start positions are visited in increasing order, so that is the
// path whose final piece is longest.
func (encoder *Encoder) Encode(text []byte) (types.Codes, error) {
	segmentation, err := encoder.segment(text)
	if err != nil {
		return nil, err
	}
	end := segmentation[len(text)]
	codes := make(types.Codes, end.NumPieces+2)
	codes[0] = types.Code(encoder.config.StartCode)
	codes[len(codes)-1] = types.Code(encoder.config.EndCode)
	idx := end.NumPieces
	for pos := len(text); pos > 0; pos = segmentation[pos].PreviousPos {
		codes[idx] = types.Code(int32(segmentation[pos].PieceID) +
			encoder.config.EncodingOffset)
		idx--
	}
	return codes, nil
}

// Segment returns the pieces of the best segmentation as views into text.
func (encoder *Encoder) Segment(text []byte) ([][]byte, error) {
	segmentation, err := encoder.segment(text)
	if err != nil {
		return nil, err
	}
	pieces := make([][]byte, segmentation[len(text)].NumPieces)
	idx := len(pieces) - 1
	for pos := len(text); pos > 0; pos = segmentation[pos].PreviousPos {
		pieces[idx] = text[segmentation[pos].PreviousPos:pos]
		idx--
	}
	return pieces, nil
}

// Score returns the total score of the best segmentation of text.
func (encoder *Encoder) Score(text []byte) (float32, error) {
	segmentation, err := encoder.segment(text)
	if err != nil {
		return 0, err
	}
	return segmentation[len(text)].Score, nil
}

// segment runs the forward pass. Entry 0 is the empty path; any other entry
// with PieceID -1 was never reached.
func (encoder *Encoder) segment(text []byte) ([]SegmentationEntry, error) {
	segmentation := make([]SegmentationEntry, len(text)+1)
	for pos := range segmentation {
		segmentation[pos] = SegmentationEntry{PreviousPos: -1, PieceID: -1}
	}

	reached := 0
	for pos := 0; pos < len(text); pos++ {
		current := segmentation[pos]
		if pos > 0 && current.PieceID < 0 {
			continue
		}
		reached = pos
		for _, match := range encoder.matcher.FindAllPrefixMatches(text[pos:]) {
			if match.ID < 0 || match.ID >= encoder.numPieces {
				return nil, fmt.Errorf("%w: id %d at byte %d, %d pieces",
					ErrPieceOutOfRange, match.ID, pos, encoder.numPieces)
			}
			if match.Length <= 0 || pos+match.Length > len(text) {
				continue
			}
			score := current.Score + encoder.scores[match.ID]
			next := &segmentation[pos+match.Length]
			if next.PieceID < 0 || score > next.Score {
				*next = SegmentationEntry{
					Score:       score,
					PreviousPos: pos,
					PieceID:     match.ID,
					NumPieces:   current.NumPieces + 1,
				}
			}
		}
	}
	if len(text) > 0 && segmentation[len(text)].PieceID < 0 {
		return nil, &UnmatchedInputError{Offset: reached, Length: len(text)}
	}
	return segmentation, nil
}
