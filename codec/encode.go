package codec

import (
	"fmt"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"

	"github.com/mna/scopecodec/scopes"
	"github.com/mna/scopecodec/vlq"
)

// Encode serializes info into the "scopes" field of m and returns m. If m
// is nil, a minimal v3 source map is synthesized with one null source per
// entry of info.Scopes. Otherwise m must have exactly one source per entry
// of info.Scopes; its "names" table is extended with any string not already
// present (existing indices are preserved) and its "scopes" field is
// replaced. On error, m is left untouched.
func Encode(info *scopes.ScopeInfo, m *scopes.SourceMap) (*scopes.SourceMap, error) {
	if info == nil {
		info = &scopes.ScopeInfo{}
	}
	if m == nil {
		m = &scopes.SourceMap{
			Version: 3,
			Sources: make([]*string, len(info.Scopes)),
			Names:   []string{},
		}
	} else if len(m.Sources) != len(info.Scopes) {
		return nil, fmt.Errorf("source map has %d sources for %d scope entries",
			len(m.Sources), len(info.Scopes))
	}

	e := &encoder{
		names:    slices.Clone(m.Names),
		nameIdx:  swiss.NewMap[string, int64](uint32(len(m.Names)) + 8),
		scopeIdx: swiss.NewMap[*scopes.OriginalScope, int64](16),
	}
	if e.names == nil {
		e.names = []string{}
	}
	// cache existing names; on duplicates the first index wins
	for i, n := range e.names {
		if _, ok := e.nameIdx.Get(n); !ok {
			e.nameIdx.Put(n, int64(i))
		}
	}

	for _, s := range info.Scopes {
		if s == nil {
			e.beginItem()
			continue
		}
		e.sState = scopeState{}
		if err := e.scope(s); err != nil {
			return nil, err
		}
	}
	for _, r := range info.Ranges {
		e.rState = rangeState{}
		if err := e.rng(r); err != nil {
			return nil, err
		}
	}

	m.Names = e.names
	m.Scopes = string(e.buf)
	return m, nil
}

// encoder is a one-shot stream producer over the scope and range forests.
type encoder struct {
	buf     []byte
	started bool // at least one item was begun, separate the next with a comma

	names   []string
	nameIdx *swiss.Map[string, int64]

	// pre-order numbering of emitted scopes, referenced by range items
	scopeIdx  *swiss.Map[*scopes.OriginalScope, int64]
	nextScope int64

	sState scopeState
	rState rangeState
}

func (e *encoder) beginItem() {
	if e.started {
		e.buf = append(e.buf, ',')
	}
	e.started = true
}

func (e *encoder) u(n uint64) { e.buf = vlq.AppendUnsigned(e.buf, n) }
func (e *encoder) sv(n int64) { e.buf = vlq.AppendSigned(e.buf, n) }

// intern returns the index of s in the names table, appending it if absent.
func (e *encoder) intern(s string) int64 {
	if idx, ok := e.nameIdx.Get(s); ok {
		return idx
	}
	idx := int64(len(e.names))
	e.names = append(e.names, s)
	e.nameIdx.Put(s, idx)
	return idx
}

func (e *encoder) scope(s *scopes.OriginalScope) error {
	line, col := int64(s.Start.Line), int64(s.Start.Column)
	if line < e.sState.line || (line == e.sState.line && col < e.sState.column) {
		return fmt.Errorf("scope start %d:%d precedes the previous scope item at %d:%d",
			line, col, e.sState.line, e.sState.column)
	}
	if scopes.ComparePositions(s.End, s.Start) < 0 {
		return fmt.Errorf("scope end %d:%d precedes scope start %d:%d",
			s.End.Line, s.End.Column, s.Start.Line, s.Start.Column)
	}

	var flags uint64
	if s.Name != "" {
		flags |= scopeFlagHasName
	}
	if s.Kind != "" {
		flags |= scopeFlagHasKind
	}
	if s.IsStackFrame {
		flags |= scopeFlagIsStackFrame
	}

	// the kind is interned before the name, the name delta is emitted first
	var nameIdx, kindIdx int64
	if flags&scopeFlagHasKind != 0 {
		kindIdx = e.intern(s.Kind)
	}
	if flags&scopeFlagHasName != 0 {
		nameIdx = e.intern(s.Name)
	}

	e.beginItem()
	e.u(tagOriginalScopeStart)
	e.u(flags)
	e.u(uint64(line - e.sState.line))
	e.u(uint64(col))
	if flags&scopeFlagHasName != 0 {
		e.sv(nameIdx - e.sState.name)
		e.sState.name = nameIdx
	}
	if flags&scopeFlagHasKind != 0 {
		e.sv(kindIdx - e.sState.kind)
		e.sState.kind = kindIdx
	}
	e.sState.line, e.sState.column = line, col

	e.scopeIdx.Put(s, e.nextScope)
	e.nextScope++

	if len(s.Variables) > 0 {
		e.beginItem()
		e.u(tagOriginalScopeVariables)
		for _, v := range s.Variables {
			idx := e.intern(v)
			e.sv(idx - e.sState.variable)
			e.sState.variable = idx
		}
	}

	for _, c := range s.Children {
		if err := e.scope(c); err != nil {
			return err
		}
	}

	endLine, endCol := int64(s.End.Line), int64(s.End.Column)
	if endLine < e.sState.line || (endLine == e.sState.line && endCol < e.sState.column) {
		return fmt.Errorf("scope end %d:%d precedes the previous scope item at %d:%d",
			endLine, endCol, e.sState.line, e.sState.column)
	}
	e.beginItem()
	e.u(tagOriginalScopeEnd)
	e.u(uint64(endLine - e.sState.line))
	e.u(uint64(endCol))
	e.sState.line, e.sState.column = endLine, endCol
	return nil
}

func (e *encoder) rng(r *scopes.GeneratedRange) error {
	line, col := int64(r.Start.Line), int64(r.Start.Column)
	if line < e.rState.line || (line == e.rState.line && col < e.rState.column) {
		return fmt.Errorf("range start %d:%d precedes the previous range item at %d:%d",
			line, col, e.rState.line, e.rState.column)
	}
	if scopes.ComparePositions(r.End, r.Start) < 0 {
		return fmt.Errorf("range end %d:%d precedes range start %d:%d",
			r.End.Line, r.End.Column, r.Start.Line, r.Start.Column)
	}

	var (
		flags  uint64
		defIdx int64
	)
	if r.OriginalScope != nil {
		idx, ok := e.scopeIdx.Get(r.OriginalScope)
		if !ok {
			return fmt.Errorf("unknown OriginalScope for definition of range %d:%d",
				r.Start.Line, r.Start.Column)
		}
		flags |= rangeFlagHasDefinition
		defIdx = idx
	}
	if r.IsStackFrame {
		flags |= rangeFlagIsStackFrame
	}
	if r.IsHidden {
		flags |= rangeFlagIsHidden
	}

	// validate bindings up front so that nothing is emitted for an invalid
	// range
	if len(r.Values) > 0 {
		if r.OriginalScope == nil {
			return fmt.Errorf("range %d:%d has bindings but no definition scope",
				r.Start.Line, r.Start.Column)
		}
		if len(r.Values) != len(r.OriginalScope.Variables) {
			return fmt.Errorf("range %d:%d has %d bindings for %d variables",
				r.Start.Line, r.Start.Column, len(r.Values), len(r.OriginalScope.Variables))
		}
		for i, v := range r.Values {
			if srs, ok := v.(scopes.SubRangeBindings); ok {
				if err := scopes.ValidateSubRanges(srs, r.Start, r.End); err != nil {
					return fmt.Errorf("sub-range bindings for variable %d of range %d:%d: %v",
						i, r.Start.Line, r.Start.Column, err)
				}
			}
		}
	}

	dline := line - e.rState.line
	if dline > 0 {
		flags |= rangeFlagHasLine
	}
	e.beginItem()
	e.u(tagGeneratedRangeStart)
	e.u(flags)
	if dline > 0 {
		e.u(uint64(dline))
		e.u(uint64(col))
	} else {
		e.u(uint64(col - e.rState.column))
	}
	e.rState.line, e.rState.column = line, col
	if flags&rangeFlagHasDefinition != 0 {
		e.sv(defIdx - e.rState.defScopeIdx)
		e.rState.defScopeIdx = defIdx
	}

	if len(r.Values) > 0 {
		// the bindings item carries atomic values, and for sub-range sequences
		// the value of their first piece
		e.beginItem()
		e.u(tagGeneratedRangeBindings)
		for _, v := range r.Values {
			switch v := v.(type) {
			case nil:
				e.sv(-1)
			case scopes.ExprBinding:
				e.sv(e.intern(string(v)))
			case scopes.SubRangeBindings:
				if v[0].Value == nil {
					e.sv(-1)
				} else {
					e.sv(e.intern(*v[0].Value))
				}
			default:
				return fmt.Errorf("invalid binding type %T", v)
			}
		}

		// one sub-range item per variable, one group per piece after the first
		for vi, v := range r.Values {
			srs, ok := v.(scopes.SubRangeBindings)
			if !ok {
				continue
			}
			e.beginItem()
			e.u(tagGeneratedRangeSubRange)
			e.u(uint64(vi))
			cursor := r.Start
			for _, sr := range srs[1:] {
				if sr.Value == nil {
					e.sv(-1)
				} else {
					e.sv(e.intern(*sr.Value))
				}
				dl := uint64(sr.From.Line - cursor.Line)
				e.u(dl)
				if dl > 0 {
					e.u(uint64(sr.From.Column))
				} else {
					e.u(uint64(sr.From.Column - cursor.Column))
				}
				cursor = sr.From
			}
		}
	}

	if cs := r.CallSite; cs != nil {
		e.beginItem()
		e.u(tagGeneratedRangeCallSite)
		src, csLine, csCol := int64(cs.SourceIndex), int64(cs.Line), int64(cs.Column)
		dsrc := src - e.rState.csSource
		e.sv(dsrc)
		switch {
		case dsrc != 0:
			e.sv(csLine)
			e.sv(csCol)
		case csLine != e.rState.csLine:
			e.sv(csLine - e.rState.csLine)
			e.sv(csCol)
		default:
			e.sv(0)
			e.sv(csCol - e.rState.csColumn)
		}
		e.rState.csSource, e.rState.csLine, e.rState.csColumn = src, csLine, csCol
	}

	for _, c := range r.Children {
		if err := e.rng(c); err != nil {
			return err
		}
	}

	endLine, endCol := int64(r.End.Line), int64(r.End.Column)
	if endLine < e.rState.line || (endLine == e.rState.line && endCol < e.rState.column) {
		return fmt.Errorf("range end %d:%d precedes the previous range item at %d:%d",
			endLine, endCol, e.rState.line, e.rState.column)
	}
	e.beginItem()
	e.u(tagGeneratedRangeEnd)
	if dl := endLine - e.rState.line; dl == 0 {
		e.u(uint64(endCol - e.rState.column))
	} else {
		e.u(uint64(dl))
		e.u(uint64(endCol))
	}
	e.rState.line, e.rState.column = endLine, endCol
	return nil
}
