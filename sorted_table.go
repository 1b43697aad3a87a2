package piecewise

import (
	"bytes"
	"sort"
)

// DefaultLinearScanThreshold is the range size at or below which the table
// stops binary searching and compares the remaining entries directly.
const DefaultLinearScanThreshold = 10

// SortedStringsTable is a Matcher over a vocabulary stored as one byte buffer
// of concatenated entries in ascending byte order. Entry i is
// pieces[offsets[i]:offsets[i+1]].
//
// The table borrows offsets and pieces and never copies or validates them; an
// unsorted table silently produces wrong matches.
type SortedStringsTable struct {
	numPieces           int
	offsets             []uint32
	pieces              []byte
	linearScanThreshold int
}

var _ Matcher = (*SortedStringsTable)(nil)

// NewSortedStringsTable builds a table over numPieces entries. offsets must
// hold numPieces+1 values. A negative threshold is treated as zero.
func NewSortedStringsTable(numPieces int, offsets []uint32, pieces []byte,
	linearScanThreshold int) *SortedStringsTable {
	if linearScanThreshold < 0 {
		linearScanThreshold = 0
	}
	return &SortedStringsTable{
		numPieces:           numPieces,
		offsets:             offsets,
		pieces:              pieces,
		linearScanThreshold: linearScanThreshold,
	}
}

func (table *SortedStringsTable) NumPieces() int {
	return table.numPieces
}

// Piece returns entry id as a view into the backing buffer.
func (table *SortedStringsTable) Piece(id int) []byte {
	return table.pieces[table.offsets[id]:table.offsets[id+1]]
}

func (table *SortedStringsTable) pieceLen(id int) int {
	return int(table.offsets[id+1] - table.offsets[id])
}

// byteAt returns the byte of entry id at pos, or -1 when the entry ends at or
// before pos. An entry that ends early sorts before every entry continuing
// with a real byte.
func (table *SortedStringsTable) byteAt(id int, pos int) int {
	if pos >= table.pieceLen(id) {
		return -1
	}
	return int(table.pieces[int(table.offsets[id])+pos])
}

func (table *SortedStringsTable) FindAllPrefixMatches(input []byte) []TrieMatch {
	var matches []TrieMatch
	table.gatherPrefixMatches(input, func(match TrieMatch) {
		matches = append(matches, match)
	})
	return matches
}

func (table *SortedStringsTable) LongestPrefixMatch(input []byte) TrieMatch {
	longest := NoMatch
	table.gatherPrefixMatches(input, func(match TrieMatch) {
		longest = match
	})
	return longest
}

// gatherPrefixMatches narrows [lo, hi) one input byte at a time. Every entry
// in the range shares input[:consumed], and the entry of length consumed, if
// any, sits at lo and has already been reported.
func (table *SortedStringsTable) gatherPrefixMatches(input []byte,
	update func(TrieMatch)) {
	lo, hi := 0, table.numPieces
	for consumed := 0; lo < hi; consumed++ {
		if hi-lo <= table.linearScanThreshold {
			table.linearScan(input, consumed, lo, hi, update)
			return
		}
		if consumed == len(input) {
			return
		}
		c := int(input[consumed])
		span := hi - lo
		lo += sort.Search(span, func(i int) bool {
			return table.byteAt(lo+i, consumed) >= c
		})
		hi = lo + sort.Search(hi-lo, func(i int) bool {
			return table.byteAt(lo+i, consumed) > c
		})
		if lo == hi {
			return
		}
		if table.pieceLen(lo) == consumed+1 {
			update(TrieMatch{ID: lo, Length: consumed + 1})
		}
	}
}

// linearScan compares the remaining entries in [lo, hi) against the rest of
// the input. Matching entries are prefixes of each other, so ascending index
// order is ascending length order.
func (table *SortedStringsTable) linearScan(input []byte, consumed int,
	lo int, hi int, update func(TrieMatch)) {
	for id := lo; id < hi; id++ {
		length := table.pieceLen(id)
		if length <= consumed || length > len(input) {
			continue
		}
		piece := table.Piece(id)
		if bytes.Equal(piece[consumed:], input[consumed:length]) {
			update(TrieMatch{ID: id, Length: length})
		}
	}
}
