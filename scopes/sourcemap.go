package scopes

// SourceMap is the JSON representation of a v3 source map, restricted to the
// fields the codec reads or writes. Unknown fields of the host document are
// outside the codec's contract.
//
// A map is either a regular map (Sources, Mappings, ...) or an index map
// (Sections), never both.
type SourceMap struct {
	Version    int       `json:"version"`
	File       string    `json:"file,omitempty"`
	SourceRoot string    `json:"sourceRoot,omitempty"`
	Sources    []*string `json:"sources,omitempty"`
	Names      []string  `json:"names,omitempty"`
	Mappings   string    `json:"mappings"`
	Scopes     string    `json:"scopes,omitempty"`
	Sections   []Section `json:"sections,omitempty"`
}

// Section is one entry of an index map: a nested source map positioned at
// Offset in the combined generated file.
type Section struct {
	Offset Position   `json:"offset"`
	Map    *SourceMap `json:"map"`
}

// IsIndexMap reports whether m is an index map (carries sections instead of
// a mappings string).
func (m *SourceMap) IsIndexMap() bool { return len(m.Sections) > 0 }
