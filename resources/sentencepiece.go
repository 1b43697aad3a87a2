package resources

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/internal/logger"
	"google.golang.org/protobuf/proto"
)

// DuplicateEntry records two source pieces that map to the same bytes.
// KeptIdx is the one that survived.
type DuplicateEntry struct {
	KeptIdx    int
	DroppedIdx int
	Repr       string
}

// ConversionReport summarizes what ConvertSentencePiece skipped.
type ConversionReport struct {
	Kept       int
	Control    int
	Unknown    int
	Duplicates []DuplicateEntry
}

// decodeBytePiece turns a BYTE piece such as "<0x0A>" into its raw byte.
func decodeBytePiece(repr string) ([]byte, error) {
	if len(repr) != 6 || !strings.HasPrefix(repr, "<0x") ||
		!strings.HasSuffix(repr, ">") {
		return nil, fmt.Errorf("%w: malformed byte piece %q",
			ErrInvalidModel, repr)
	}
	decoded, err := hex.DecodeString(repr[3:5])
	if err != nil {
		return nil, fmt.Errorf("%w: malformed byte piece %q: %v",
			ErrInvalidModel, repr, err)
	}
	return decoded, nil
}

// ConvertSentencePiece builds a flat model from a serialized SentencePiece
// ModelProto. NORMAL, USER_DEFINED, UNUSED and BYTE pieces are kept;
// CONTROL and UNKNOWN pieces never appear in text and are dropped. When two
// pieces share the same bytes the higher score wins.
func ConvertSentencePiece(data []byte,
	config *piecewise.EncoderConfig) (*Model, *ConversionReport, error) {
	var spModel sentencepiece.ModelProto
	if err := proto.Unmarshal(data, &spModel); err != nil {
		return nil, nil, fmt.Errorf("%w: unable to unmarshal proto: %v",
			ErrInvalidModel, err)
	}

	report := &ConversionReport{}
	pieces := make([][]byte, 0, len(spModel.GetPieces()))
	scores := make([]float32, 0, len(spModel.GetPieces()))
	sourceIDs := make([]int, 0, len(spModel.GetPieces()))
	seen := make(map[string]int)

	for pieceIdx, piece := range spModel.GetPieces() {
		var repr []byte
		switch piece.GetType() {
		case sentencepiece.ModelProto_SentencePiece_CONTROL:
			report.Control++
			continue
		case sentencepiece.ModelProto_SentencePiece_UNKNOWN:
			report.Unknown++
			continue
		case sentencepiece.ModelProto_SentencePiece_BYTE:
			decoded, err := decodeBytePiece(piece.GetPiece())
			if err != nil {
				return nil, nil, err
			}
			repr = decoded
		default:
			repr = []byte(piece.GetPiece())
		}
		if len(repr) == 0 {
			continue
		}

		if kept, ok := seen[string(repr)]; ok {
			dupe := DuplicateEntry{
				KeptIdx:    sourceIDs[kept],
				DroppedIdx: pieceIdx,
				Repr:       string(repr),
			}
			if piece.GetScore() > scores[kept] {
				dupe.KeptIdx, dupe.DroppedIdx = pieceIdx, sourceIDs[kept]
				scores[kept] = piece.GetScore()
				sourceIDs[kept] = pieceIdx
			}
			report.Duplicates = append(report.Duplicates, dupe)
			continue
		}
		seen[string(repr)] = len(pieces)
		pieces = append(pieces, repr)
		scores = append(scores, piece.GetScore())
		sourceIDs = append(sourceIDs, pieceIdx)
	}

	model, err := NewModel(pieces, scores, config)
	if err != nil {
		return nil, nil, err
	}
	for id, idx := range model.SourceIDs {
		model.SourceIDs[id] = sourceIDs[idx]
	}
	report.Kept = model.NumPieces()

	log := logger.New("convert")
	for _, dupe := range report.Duplicates {
		log.Warn("duplicate piece", "kept", dupe.KeptIdx,
			"dropped", dupe.DroppedIdx, "repr", EscapeString(dupe.Repr))
	}
	log.Info("converted sentencepiece model", "pieces", report.Kept,
		"control", report.Control, "unknown", report.Unknown,
		"duplicates", len(report.Duplicates))
	return model, report, nil
}

// ConvertSentencePieceFile converts the .model file at modelPath and writes
// the flat model to outPath.
func ConvertSentencePieceFile(modelPath, outPath string,
	config *piecewise.EncoderConfig) (*ConversionReport, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, err
	}
	model, report, err := ConvertSentencePiece(data, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", modelPath, err)
	}
	if err := SaveModel(outPath, model); err != nil {
		return nil, err
	}
	return report, nil
}

var escaper = strings.NewReplacer(
	"\"", "\\\"",
	"\\", "\\\\",
	"\n", "\\n",
	"\r", "\\r",
	"\b", "\\b",
	"\t", "\\t")

// EscapeString makes a piece printable for logs and listings.
func EscapeString(s string) string {
	escaped := escaper.Replace(s)
	var sb strings.Builder
	for _, b := range []byte(escaped) {
		if b < 0x20 || b == 0x7f {
			fmt.Fprintf(&sb, "\\x%02x", b)
		} else {
			sb.WriteByte(b)
		}
	}
	return sb.String()
}
