package scopes

// Position is a 0-based line and column location in a source file, either
// authored or generated. The zero value is the start of the file.
type Position struct {
	Line   uint32 `json:"line"`
	Column uint32 `json:"column"`
}

// OriginalPosition is a position in an authored source, identified by its
// index in the source map's "sources" array.
type OriginalPosition struct {
	SourceIndex uint32 `json:"sourceIndex"`
	Position
}

// ComparePositions returns a negative value if a comes before b, a positive
// value if a comes after b, and 0 if they are the same position. The order is
// lexicographic by (line, column).
func ComparePositions(a, b Position) int {
	if a.Line != b.Line {
		return int(a.Line) - int(b.Line)
	}
	return int(a.Column) - int(b.Column)
}
