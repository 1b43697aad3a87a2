package piecewise

// TrieMatch is a vocabulary entry found as a prefix of a query.
type TrieMatch struct {
	ID     int // Index of the matched entry.
	Length int // Bytes of the query consumed by the match.
}

// NoMatch is returned by LongestPrefixMatch when no entry is a prefix of the
// query.
var NoMatch = TrieMatch{ID: -1, Length: 0}

// Matcher finds vocabulary entries that are prefixes of an input.
//
// FindAllPrefixMatches returns every matching entry ordered by increasing
// length. LongestPrefixMatch returns the last of those, or NoMatch.
type Matcher interface {
	FindAllPrefixMatches(input []byte) []TrieMatch
	LongestPrefixMatch(input []byte) TrieMatch
}

func (m TrieMatch) Found() bool {
	return m.ID >= 0
}
