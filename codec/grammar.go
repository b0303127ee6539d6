// Package codec translates between the in-memory scopes.ScopeInfo
// representation and the compact base64-VLQ encoding stored in the "scopes"
// field of a JSON source map.
//
// The encoded form is a comma-separated list of items. Each item starts
// with an unsigned VLQ tag selecting the item kind, followed by tag-specific
// fields. An empty item is a placeholder for a source without scope
// information. Decoders skip unknown tags (and any trailing VLQs on known
// tags) wholesale, which keeps the format forward-compatible.
package codec

// Item tags. Values are stable on the wire.
const (
	tagOriginalScopeStart     = 0x1
	tagOriginalScopeEnd       = 0x2
	tagOriginalScopeVariables = 0x3
	tagGeneratedRangeStart    = 0x5
	tagGeneratedRangeEnd      = 0x6
	tagGeneratedRangeBindings = 0x7
	tagGeneratedRangeSubRange = 0x8
	tagGeneratedRangeCallSite = 0x9
)

// Flag bits of the OriginalScopeStart item. Unknown bits are ignored by the
// decoder.
const (
	scopeFlagHasName      uint64 = 0x1
	scopeFlagHasKind      uint64 = 0x2
	scopeFlagIsStackFrame uint64 = 0x4
)

// Flag bits of the GeneratedRangeStart item. Unknown bits are ignored by
// the decoder.
const (
	rangeFlagHasLine       uint64 = 0x1
	rangeFlagHasDefinition uint64 = 0x2
	rangeFlagIsStackFrame  uint64 = 0x4
	rangeFlagIsHidden      uint64 = 0x8
)

// scopeState is the differential state shared by the encoder and decoder
// for original-scope items. It is reset at the start of each top-level
// scope tree. The column is tracked only to verify ordering at encode time,
// columns are stored absolute on the wire.
type scopeState struct {
	line     int64
	column   int64
	name     int64
	kind     int64
	variable int64
}

// rangeState is the differential state shared by the encoder and decoder
// for generated-range items, reset at the start of each top-level range.
// The call-site triplet cascades: a nonzero source delta makes line and
// column absolute, a nonzero line delta makes the column absolute.
type rangeState struct {
	line        int64
	column      int64
	defScopeIdx int64
	csSource    int64
	csLine      int64
	csColumn    int64
}
