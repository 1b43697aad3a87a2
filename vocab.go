package piecewise

import (
	"bytes"
	"sort"
	"strings"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"
	"github.com/wbrown/piecewise/fastexp"
	"github.com/wbrown/piecewise/types"
)

// WhitespaceEscape is the piece character standing in for a space.
const WhitespaceEscape = "▁"

// Vocabulary maps between piece ids, piece bytes and codes for one sorted
// table and its scores.
type Vocabulary struct {
	table  *SortedStringsTable
	scores []float32
	config EncoderConfig

	completionOnce sync.Once
	completion     *patricia.Trie
}

// NewVocabulary wraps table and scores. A nil config uses the defaults.
func NewVocabulary(table *SortedStringsTable, scores []float32,
	config *EncoderConfig) *Vocabulary {
	if config == nil {
		config = DefaultEncoderConfig()
	}
	return &Vocabulary{table: table, scores: scores, config: *config}
}

func (vocab *Vocabulary) Len() int {
	return vocab.table.NumPieces()
}

func (vocab *Vocabulary) Table() *SortedStringsTable {
	return vocab.table
}

func (vocab *Vocabulary) Config() EncoderConfig {
	return vocab.config
}

// Piece returns the bytes of piece id, or nil when id is out of range.
func (vocab *Vocabulary) Piece(id int) []byte {
	if id < 0 || id >= vocab.Len() {
		return nil
	}
	return vocab.table.Piece(id)
}

func (vocab *Vocabulary) Score(id int) float32 {
	return vocab.scores[id]
}

// Probability treats the score of id as a natural log probability.
func (vocab *Vocabulary) Probability(id int) float32 {
	return fastexp.VeryFastExp(vocab.scores[id])
}

// Lookup finds the id of piece by binary search over the sorted table.
func (vocab *Vocabulary) Lookup(piece []byte) (int, bool) {
	n := vocab.Len()
	id := sort.Search(n, func(i int) bool {
		return bytes.Compare(vocab.table.Piece(i), piece) >= 0
	})
	if id < n && bytes.Equal(vocab.table.Piece(id), piece) {
		return id, true
	}
	return -1, false
}

// PieceID converts a code back to a piece id. Sentinels and codes outside
// the vocabulary report false.
func (vocab *Vocabulary) PieceID(code types.Code) (int, bool) {
	c := int32(code)
	if c == vocab.config.StartCode || c == vocab.config.EndCode {
		return -1, false
	}
	id := int(c - vocab.config.EncodingOffset)
	if id < 0 || id >= vocab.Len() {
		return -1, false
	}
	return id, true
}

// DecodePieces returns the piece of each non-sentinel code, in order.
func (vocab *Vocabulary) DecodePieces(codes types.Codes) [][]byte {
	pieces := make([][]byte, 0, len(codes))
	for _, code := range codes {
		if id, ok := vocab.PieceID(code); ok {
			pieces = append(pieces, vocab.table.Piece(id))
		}
	}
	return pieces
}

// Decode concatenates the pieces of codes and turns escaped whitespace back
// into spaces, dropping the single leading space a dummy prefix adds.
func (vocab *Vocabulary) Decode(codes types.Codes) string {
	var sb strings.Builder
	for _, piece := range vocab.DecodePieces(codes) {
		sb.Write(piece)
	}
	text := strings.ReplaceAll(sb.String(), WhitespaceEscape, " ")
	return strings.TrimPrefix(text, " ")
}

// PiecesWithPrefix lists up to limit pieces starting with prefix, in byte
// order. A limit of zero or less means no limit.
func (vocab *Vocabulary) PiecesWithPrefix(prefix []byte, limit int) []string {
	vocab.completionOnce.Do(func() {
		trie := patricia.NewTrie()
		for id := 0; id < vocab.Len(); id++ {
			piece := vocab.table.Piece(id)
			if len(piece) == 0 {
				continue
			}
			key := make(patricia.Prefix, len(piece))
			copy(key, piece)
			trie.Insert(key, id)
		}
		vocab.completion = trie
	})
	// VisitSubtree appends to the prefix it is given.
	key := make(patricia.Prefix, len(prefix))
	copy(key, prefix)
	found := make([]string, 0)
	_ = vocab.completion.VisitSubtree(key,
		func(p patricia.Prefix, item patricia.Item) error {
			found = append(found, string(p))
			return nil
		})
	sort.Strings(found)
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}
