package types

// Code is a single emitted value: a sentinel or a piece id plus the encoding
// offset.
type Code int32
type Codes []Code

const (
	CodeSize16 = 2
	CodeSize32 = 4
)
