package codec

import (
	"errors"
	"fmt"

	"github.com/mna/scopecodec/scopes"
	"github.com/mna/scopecodec/vlq"
)

// Mode selects how the decoder reacts to structural and reference errors in
// the encoded stream. Input-shape errors (malformed VLQs) fail in both
// modes.
type Mode uint

const (
	// Lax silently recovers: orphan items are dropped, out-of-bounds name
	// indices decode to the empty string, unknown definition-scope indices
	// leave the definition scope unset, unclosed trees at the end of the
	// input are discarded. Call-site source indices are not checked.
	Lax Mode = iota

	// Strict fails on unmatched start/end items, orphan items, indices
	// outside the names table, unknown definition-scope indices and unclosed
	// trees.
	Strict
)

// DecodeOptions configures Decode. The zero value decodes in Lax mode with
// no offset.
type DecodeOptions struct {
	Mode Mode

	// GeneratedOffset shifts every decoded generated-range position: lines
	// are incremented by the offset's line, and positions on the first line
	// also get their column incremented by the offset's column. It is
	// ignored for index maps, which use their per-section offsets instead.
	GeneratedOffset scopes.Position
}

// Decode parses the "scopes" field of m back into a ScopeInfo. A nil opts
// decodes in Lax mode. For an index map, each section's inner map is
// decoded with the section's offset applied to its generated ranges and the
// results are concatenated in section order.
func Decode(m *scopes.SourceMap, opts *DecodeOptions) (*scopes.ScopeInfo, error) {
	if m == nil {
		return nil, errors.New("nil source map")
	}
	var o DecodeOptions
	if opts != nil {
		o = *opts
	}

	if m.IsIndexMap() {
		info := &scopes.ScopeInfo{}
		for i, sec := range m.Sections {
			if sec.Map == nil {
				continue
			}
			sub, err := Decode(sec.Map, &DecodeOptions{Mode: o.Mode})
			if err != nil {
				return nil, fmt.Errorf("section %d: %w", i, err)
			}
			for _, r := range sub.Ranges {
				shiftRange(r, sec.Offset)
			}
			info.Scopes = append(info.Scopes, sub.Scopes...)
			info.Ranges = append(info.Ranges, sub.Ranges...)
		}
		return info, nil
	}

	info, err := decodeString(m.Scopes, m.Names, o.Mode)
	if err != nil {
		return nil, err
	}
	if o.GeneratedOffset != (scopes.Position{}) {
		for _, r := range info.Ranges {
			shiftRange(r, o.GeneratedOffset)
		}
	}
	return info, nil
}

// shiftRange applies a generated offset to every position of the range
// tree: positions on the (section-relative) first line get their column
// shifted, all positions get their line shifted.
func shiftRange(r *scopes.GeneratedRange, off scopes.Position) {
	r.Start = shiftPos(r.Start, off)
	r.End = shiftPos(r.End, off)
	for _, v := range r.Values {
		srs, ok := v.(scopes.SubRangeBindings)
		if !ok {
			continue
		}
		for i := range srs {
			srs[i].From = shiftPos(srs[i].From, off)
			srs[i].To = shiftPos(srs[i].To, off)
		}
	}
	for _, c := range r.Children {
		shiftRange(c, off)
	}
}

func shiftPos(p, off scopes.Position) scopes.Position {
	if p.Line == 0 {
		p.Column += off.Column
	}
	p.Line += off.Line
	return p
}

func decodeString(s string, names []string, mode Mode) (*scopes.ScopeInfo, error) {
	// a map without the scopes extension has no scope information
	if s == "" {
		return &scopes.ScopeInfo{}, nil
	}

	d := &decoder{it: vlq.NewTokenIterator(s), mode: mode, names: names}
	for {
		if d.it.HasNext() && d.it.Peek() != ',' {
			if err := d.item(); err != nil {
				return nil, err
			}
		} else {
			// empty item: null placeholder
			d.info.Scopes = append(d.info.Scopes, nil)
		}
		if !d.it.HasNext() {
			break
		}
		d.it.NextChar() // consume the ','
	}

	if len(d.scopeStack) > 0 {
		if err := d.strictErr("unclosed scope at end of input"); err != nil {
			return nil, err
		}
	}
	if len(d.rangeStack) > 0 {
		if err := d.strictErr("unclosed range at end of input"); err != nil {
			return nil, err
		}
	}
	return &d.info, nil
}

// decoder is a one-shot streaming parser over the encoded item list.
type decoder struct {
	it   vlq.TokenIterator
	mode Mode

	names []string
	info  scopes.ScopeInfo

	// flat pre-order list of decoded scopes, indexed by definition-scope
	// references
	flat []*scopes.OriginalScope

	scopeStack []*scopes.OriginalScope
	rangeStack []*rangeFrame

	sState scopeState
	rState rangeState
}

// rangeFrame is an open generated range plus the decoding bookkeeping that
// does not survive on the node itself.
type rangeFrame struct {
	r *scopes.GeneratedRange

	// variables that already received a sub-range binding item
	subRanged map[uint64]bool
}

// strictErr builds the error for a structural or reference problem:
// non-nil in Strict mode, nil in Lax mode where the caller recovers as
// specified per item.
func (d *decoder) strictErr(format string, args ...any) error {
	if d.mode == Strict {
		return fmt.Errorf(format, args...)
	}
	return nil
}

// resolveName resolves an index into the names table. Out-of-bounds
// indices are an error in Strict mode and decode to the empty string in Lax
// mode.
func (d *decoder) resolveName(idx int64, what string) (string, error) {
	if idx < 0 || idx >= int64(len(d.names)) {
		return "", d.strictErr("%s index %d outside the names table (%d entries)", what, idx, len(d.names))
	}
	return d.names[idx], nil
}

// hasMore reports whether the current item has more VLQs before the next
// comma or the end of the input.
func (d *decoder) hasMore() bool {
	return d.it.HasNext() && d.it.Peek() != ','
}

// skipRest discards the remaining VLQs of the current item: trailing fields
// of known tags and the whole payload of unknown ones.
func (d *decoder) skipRest() error {
	for d.hasMore() {
		if _, err := d.it.NextUnsignedVLQ(); err != nil {
			return err
		}
	}
	return nil
}

// item parses a single non-empty item at the cursor.
func (d *decoder) item() error {
	tag, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}

	switch tag {
	case tagOriginalScopeStart:
		err = d.scopeStart()
	case tagOriginalScopeEnd:
		err = d.scopeEnd()
	case tagOriginalScopeVariables:
		err = d.scopeVariables()
	case tagGeneratedRangeStart:
		err = d.rangeStart()
	case tagGeneratedRangeEnd:
		err = d.rangeEnd()
	case tagGeneratedRangeBindings:
		err = d.rangeBindings()
	case tagGeneratedRangeSubRange:
		err = d.rangeSubRangeBinding()
	case tagGeneratedRangeCallSite:
		err = d.rangeCallSite()
	default:
		// unknown tag: skip the whole item
	}
	if err != nil {
		return err
	}
	return d.skipRest()
}

func (d *decoder) scopeStart() error {
	flags, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	dline, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	col, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	d.sState.line += int64(dline)

	pos := scopes.Position{Line: uint32(d.sState.line), Column: uint32(col)}
	s := &scopes.OriginalScope{
		Start:        pos,
		End:          pos,
		IsStackFrame: flags&scopeFlagIsStackFrame != 0,
	}
	if flags&scopeFlagHasName != 0 {
		delta, err := d.it.NextSignedVLQ()
		if err != nil {
			return err
		}
		d.sState.name += delta
		name, err := d.resolveName(d.sState.name, "scope name")
		if err != nil {
			return err
		}
		s.Name = name
	}
	if flags&scopeFlagHasKind != 0 {
		delta, err := d.it.NextSignedVLQ()
		if err != nil {
			return err
		}
		d.sState.kind += delta
		kind, err := d.resolveName(d.sState.kind, "scope kind")
		if err != nil {
			return err
		}
		s.Kind = kind
	}

	d.flat = append(d.flat, s)
	d.scopeStack = append(d.scopeStack, s)
	return nil
}

func (d *decoder) scopeEnd() error {
	n := len(d.scopeStack)
	if n == 0 {
		// unmatched end
		return d.strictErr("unmatched original scope end item")
	}
	dline, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	col, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	d.sState.line += int64(dline)

	s := d.scopeStack[n-1]
	d.scopeStack = d.scopeStack[:n-1]
	s.End = scopes.Position{Line: uint32(d.sState.line), Column: uint32(col)}
	if n > 1 {
		parent := d.scopeStack[n-2]
		s.Parent = parent
		parent.Children = append(parent.Children, s)
	} else {
		d.info.Scopes = append(d.info.Scopes, s)
		d.sState = scopeState{}
	}
	return nil
}

func (d *decoder) scopeVariables() error {
	n := len(d.scopeStack)
	if n == 0 {
		// orphan variables item
		return d.strictErr("variables item outside an open scope")
	}
	s := d.scopeStack[n-1]
	for d.hasMore() {
		delta, err := d.it.NextSignedVLQ()
		if err != nil {
			return err
		}
		d.sState.variable += delta
		name, err := d.resolveName(d.sState.variable, "variable")
		if err != nil {
			return err
		}
		s.Variables = append(s.Variables, name)
	}
	return nil
}

func (d *decoder) rangeStart() error {
	flags, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	if flags&rangeFlagHasLine != 0 {
		dline, err := d.it.NextUnsignedVLQ()
		if err != nil {
			return err
		}
		col, err := d.it.NextUnsignedVLQ()
		if err != nil {
			return err
		}
		d.rState.line += int64(dline)
		d.rState.column = int64(col)
	} else {
		dcol, err := d.it.NextUnsignedVLQ()
		if err != nil {
			return err
		}
		d.rState.column += int64(dcol)
	}

	pos := scopes.Position{Line: uint32(d.rState.line), Column: uint32(d.rState.column)}
	r := &scopes.GeneratedRange{
		Start:        pos,
		End:          pos,
		IsStackFrame: flags&rangeFlagIsStackFrame != 0,
		IsHidden:     flags&rangeFlagIsHidden != 0,
	}
	if flags&rangeFlagHasDefinition != 0 {
		delta, err := d.it.NextSignedVLQ()
		if err != nil {
			return err
		}
		d.rState.defScopeIdx += delta
		if idx := d.rState.defScopeIdx; idx >= 0 && idx < int64(len(d.flat)) {
			r.OriginalScope = d.flat[idx]
		} else if err := d.strictErr("definition scope index %d unknown (%d scopes decoded)", idx, len(d.flat)); err != nil {
			return err
		}
	}

	d.rangeStack = append(d.rangeStack, &rangeFrame{r: r})
	return nil
}

func (d *decoder) rangeEnd() error {
	n := len(d.rangeStack)
	if n == 0 {
		// unmatched end
		return d.strictErr("unmatched generated range end item")
	}
	first, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	if d.hasMore() {
		// two VLQs: line delta then absolute column
		col, err := d.it.NextUnsignedVLQ()
		if err != nil {
			return err
		}
		d.rState.line += int64(first)
		d.rState.column = int64(col)
	} else {
		d.rState.column += int64(first)
	}

	fr := d.rangeStack[n-1]
	d.rangeStack = d.rangeStack[:n-1]
	r := fr.r
	r.End = scopes.Position{Line: uint32(d.rState.line), Column: uint32(d.rState.column)}

	// close the last piece of every sub-range sequence
	for _, v := range r.Values {
		if srs, ok := v.(scopes.SubRangeBindings); ok && len(srs) > 0 {
			srs[len(srs)-1].To = r.End
		}
	}

	if n > 1 {
		parent := d.rangeStack[n-2].r
		r.Parent = parent
		parent.Children = append(parent.Children, r)
	} else {
		d.info.Ranges = append(d.info.Ranges, r)
		d.rState = rangeState{}
	}
	return nil
}

func (d *decoder) rangeBindings() error {
	n := len(d.rangeStack)
	if n == 0 {
		// orphan bindings item
		return d.strictErr("bindings item outside an open range")
	}
	r := d.rangeStack[n-1].r
	for d.hasMore() {
		idx, err := d.it.NextSignedVLQ()
		if err != nil {
			return err
		}
		if idx == -1 {
			r.Values = append(r.Values, nil)
			continue
		}
		expr, err := d.resolveName(idx, "binding")
		if err != nil {
			return err
		}
		r.Values = append(r.Values, scopes.ExprBinding(expr))
	}
	return nil
}

func (d *decoder) rangeSubRangeBinding() error {
	n := len(d.rangeStack)
	if n == 0 {
		// orphan sub-range binding item
		return d.strictErr("sub-range binding item outside an open range")
	}
	fr := d.rangeStack[n-1]
	r := fr.r

	vi, err := d.it.NextUnsignedVLQ()
	if err != nil {
		return err
	}
	if vi >= uint64(len(r.Values)) {
		// no such variable slot
		return d.strictErr("sub-range binding for variable %d, range has %d bindings", vi, len(r.Values))
	}

	var srs scopes.SubRangeBindings
	if fr.subRanged == nil {
		fr.subRanged = make(map[uint64]bool)
	}
	if fr.subRanged[vi] {
		// duplicate item for the same variable: appended as-is in lax mode,
		// without re-validating that the sequence still tiles the range
		if err := d.strictErr("duplicate sub-range binding for variable %d", vi); err != nil {
			return err
		}
		srs = r.Values[vi].(scopes.SubRangeBindings)
	} else {
		fr.subRanged[vi] = true
		// convert the atomic value into the first piece of the sequence
		var first *string
		switch v := r.Values[vi].(type) {
		case nil:
		case scopes.ExprBinding:
			s := string(v)
			first = &s
		case scopes.SubRangeBindings:
			// cannot happen: subRanged guards the conversion
		}
		srs = scopes.SubRangeBindings{{Value: first, From: r.Start}}
	}

	cursor := r.Start
	for d.hasMore() {
		idx, err := d.it.NextSignedVLQ()
		if err != nil {
			return err
		}
		if !d.hasMore() {
			if err := d.strictErr("truncated sub-range binding for variable %d", vi); err != nil {
				return err
			}
			break
		}
		dline, err := d.it.NextUnsignedVLQ()
		if err != nil {
			return err
		}
		if !d.hasMore() {
			if err := d.strictErr("truncated sub-range binding for variable %d", vi); err != nil {
				return err
			}
			break
		}
		col, err := d.it.NextUnsignedVLQ()
		if err != nil {
			return err
		}

		if dline > 0 {
			cursor.Line += uint32(dline)
			cursor.Column = uint32(col)
		} else {
			cursor.Column += uint32(col)
		}

		var val *string
		if idx != -1 {
			expr, err := d.resolveName(idx, "binding")
			if err != nil {
				return err
			}
			val = &expr
		}
		srs[len(srs)-1].To = cursor
		srs = append(srs, scopes.SubRangeBinding{Value: val, From: cursor})
	}
	r.Values[vi] = srs
	return nil
}

func (d *decoder) rangeCallSite() error {
	n := len(d.rangeStack)
	if n == 0 {
		// orphan call site item
		return d.strictErr("call site item outside an open range")
	}
	dsrc, err := d.it.NextSignedVLQ()
	if err != nil {
		return err
	}
	dline, err := d.it.NextSignedVLQ()
	if err != nil {
		return err
	}
	dcol, err := d.it.NextSignedVLQ()
	if err != nil {
		return err
	}

	d.rState.csSource += dsrc
	switch {
	case dsrc != 0:
		// line and column are absolute after a source change
		d.rState.csLine = dline
		d.rState.csColumn = dcol
	case dline != 0:
		// column is absolute after a line change
		d.rState.csLine += dline
		d.rState.csColumn = dcol
	default:
		d.rState.csColumn += dcol
	}

	d.rangeStack[n-1].r.CallSite = &scopes.OriginalPosition{
		SourceIndex: uint32(d.rState.csSource),
		Position: scopes.Position{
			Line:   uint32(d.rState.csLine),
			Column: uint32(d.rState.csColumn),
		},
	}
	return nil
}
