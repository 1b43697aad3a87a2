package piecewise

import (
	"github.com/tchap/go-patricia/v2/patricia"
)

// TrieMatcher is a Matcher backed by a patricia trie. Unlike
// SortedStringsTable it accepts entries in any order, at the cost of copying
// them into trie nodes.
type TrieMatcher struct {
	trie      *patricia.Trie
	numPieces int
}

var _ Matcher = (*TrieMatcher)(nil)

// NewTrieMatcher builds a trie where pieces[i] maps to id i. Empty pieces are
// skipped, and a repeated piece keeps the first id it was seen with.
func NewTrieMatcher(pieces [][]byte) *TrieMatcher {
	trie := patricia.NewTrie()
	for id, piece := range pieces {
		if len(piece) == 0 {
			continue
		}
		key := make(patricia.Prefix, len(piece))
		copy(key, piece)
		trie.Insert(key, id)
	}
	return &TrieMatcher{trie: trie, numPieces: len(pieces)}
}

// NewTrieMatcherFromTable builds a TrieMatcher holding the same entries and
// ids as table.
func NewTrieMatcherFromTable(table *SortedStringsTable) *TrieMatcher {
	pieces := make([][]byte, table.NumPieces())
	for id := range pieces {
		pieces[id] = table.Piece(id)
	}
	return NewTrieMatcher(pieces)
}

func (matcher *TrieMatcher) NumPieces() int {
	return matcher.numPieces
}

func (matcher *TrieMatcher) gatherPrefixMatches(input []byte,
	update func(TrieMatch)) {
	if len(input) == 0 {
		return
	}
	_ = matcher.trie.VisitPrefixes(patricia.Prefix(input),
		func(prefix patricia.Prefix, item patricia.Item) error {
			if len(prefix) > 0 {
				update(TrieMatch{ID: item.(int), Length: len(prefix)})
			}
			return nil
		})
}

func (matcher *TrieMatcher) FindAllPrefixMatches(input []byte) []TrieMatch {
	var matches []TrieMatch
	matcher.gatherPrefixMatches(input, func(match TrieMatch) {
		matches = append(matches, match)
	})
	return matches
}

func (matcher *TrieMatcher) LongestPrefixMatch(input []byte) TrieMatch {
	longest := NoMatch
	matcher.gatherPrefixMatches(input, func(match TrieMatch) {
		longest = match
	})
	return longest
}
