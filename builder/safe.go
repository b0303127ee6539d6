package builder

import (
	"fmt"

	"github.com/mna/scopecodec/scopes"
)

// SafeScopeInfoBuilder exposes the same fluent interface as
// ScopeInfoBuilder but validates nesting, ordering and cross-reference
// correctness as the trees are assembled. The first violation is recorded
// and every subsequent call becomes a no-op; the error is reported by Err
// and by Build.
type SafeScopeInfoBuilder struct {
	b   ScopeInfoBuilder
	err error
}

// NewSafeScopeInfoBuilder returns an empty validating builder.
func NewSafeScopeInfoBuilder() *SafeScopeInfoBuilder {
	sb := &SafeScopeInfoBuilder{}
	sb.b.reset()
	return sb
}

// Err returns the first validation error encountered, nil if none.
func (sb *SafeScopeInfoBuilder) Err() error { return sb.err }

func (sb *SafeScopeInfoBuilder) fail(format string, args ...any) {
	if sb.err == nil {
		sb.err = fmt.Errorf(format, args...)
	}
}

// AddNullScope appends a null top-level placeholder. It is an error to add
// one while a range is open.
func (sb *SafeScopeInfoBuilder) AddNullScope() *SafeScopeInfoBuilder {
	if sb.err != nil {
		return sb
	}
	if len(sb.b.rangeStack) > 0 {
		sb.fail("cannot add a null scope while a range is open")
		return sb
	}
	sb.b.AddNullScope()
	return sb
}

// StartScope opens a new scope, validating that no range is open and that
// the start position does not precede the enclosing scope's start nor the
// preceding sibling's end.
func (sb *SafeScopeInfoBuilder) StartScope(line, column uint32, opts ...ScopeOption) *SafeScopeInfoBuilder {
	if sb.err != nil {
		return sb
	}
	if len(sb.b.rangeStack) > 0 {
		sb.fail("cannot start a scope while a range is open")
		return sb
	}

	// top-level scopes are not checked against each other: each one is
	// rooted in its own source file, so positions restart at every tree
	pos := scopes.Position{Line: line, Column: column}
	if parent := sb.b.CurrentScope(); parent != nil {
		if scopes.ComparePositions(pos, parent.Start) < 0 {
			sb.fail("scope start %d:%d precedes enclosing scope start %d:%d",
				line, column, parent.Start.Line, parent.Start.Column)
			return sb
		}
		if n := len(parent.Children); n > 0 {
			if prev := parent.Children[n-1]; scopes.ComparePositions(pos, prev.End) < 0 {
				sb.fail("scope start %d:%d precedes preceding sibling end %d:%d",
					line, column, prev.End.Line, prev.End.Column)
				return sb
			}
		}
	}

	sb.b.StartScope(line, column, opts...)
	return sb
}

// SetScopeName sets the name of the open scope. It is an error if no scope
// is open.
func (sb *SafeScopeInfoBuilder) SetScopeName(name string) *SafeScopeInfoBuilder {
	if sb.requireScope("SetScopeName") {
		sb.b.SetScopeName(name)
	}
	return sb
}

// SetScopeKind sets the kind of the open scope. It is an error if no scope
// is open.
func (sb *SafeScopeInfoBuilder) SetScopeKind(kind string) *SafeScopeInfoBuilder {
	if sb.requireScope("SetScopeKind") {
		sb.b.SetScopeKind(kind)
	}
	return sb
}

// SetScopeStackFrame sets the stack-frame flag of the open scope. It is an
// error if no scope is open.
func (sb *SafeScopeInfoBuilder) SetScopeStackFrame(v bool) *SafeScopeInfoBuilder {
	if sb.requireScope("SetScopeStackFrame") {
		sb.b.SetScopeStackFrame(v)
	}
	return sb
}

// SetScopeVariables sets the variables of the open scope. It is an error if
// no scope is open.
func (sb *SafeScopeInfoBuilder) SetScopeVariables(vars ...string) *SafeScopeInfoBuilder {
	if sb.requireScope("SetScopeVariables") {
		sb.b.SetScopeVariables(vars...)
	}
	return sb
}

// EndScope closes the open scope, validating that one is open and that the
// end position does not precede its start.
func (sb *SafeScopeInfoBuilder) EndScope(line, column uint32) *SafeScopeInfoBuilder {
	if sb.err != nil {
		return sb
	}
	s := sb.b.CurrentScope()
	if s == nil {
		sb.fail("cannot end a scope: none is open")
		return sb
	}
	if scopes.ComparePositions(scopes.Position{Line: line, Column: column}, s.Start) < 0 {
		sb.fail("scope end %d:%d precedes scope start %d:%d",
			line, column, s.Start.Line, s.Start.Column)
		return sb
	}
	sb.b.EndScope(line, column)
	return sb
}

// CurrentScope returns the scope at the top of the scope stack, nil if none
// is open.
func (sb *SafeScopeInfoBuilder) CurrentScope() *scopes.OriginalScope { return sb.b.CurrentScope() }

// LastScope returns the most recently closed scope.
func (sb *SafeScopeInfoBuilder) LastScope() *scopes.OriginalScope { return sb.b.LastScope() }

// StartRange opens a new generated range, validating that no scope is open,
// that the start position respects parent and sibling ordering, that any
// definition-scope reference resolves to a scope produced by this builder,
// and that values are consistent with the definition scope's variables.
func (sb *SafeScopeInfoBuilder) StartRange(line, column uint32, opts ...RangeOption) *SafeScopeInfoBuilder {
	if sb.err != nil {
		return sb
	}
	if len(sb.b.scopeStack) > 0 {
		sb.fail("cannot start a range while a scope is open")
		return sb
	}

	pos := scopes.Position{Line: line, Column: column}
	if parent := sb.b.currentRange(); parent != nil {
		if scopes.ComparePositions(pos, parent.Start) < 0 {
			sb.fail("range start %d:%d precedes enclosing range start %d:%d",
				line, column, parent.Start.Line, parent.Start.Column)
			return sb
		}
		if n := len(parent.Children); n > 0 {
			if prev := parent.Children[n-1]; scopes.ComparePositions(pos, prev.End) < 0 {
				sb.fail("range start %d:%d precedes preceding sibling end %d:%d",
					line, column, prev.End.Line, prev.End.Column)
				return sb
			}
		}
	} else if n := len(sb.b.ranges); n > 0 {
		if prev := sb.b.ranges[n-1]; scopes.ComparePositions(pos, prev.End) < 0 {
			sb.fail("range start %d:%d precedes preceding sibling end %d:%d",
				line, column, prev.End.Line, prev.End.Column)
			return sb
		}
	}

	var cfg rangeConfig
	for _, o := range opts {
		o(&cfg)
	}
	var def *scopes.OriginalScope
	switch {
	case cfg.hasScope:
		if !sb.b.knownScope(cfg.scope) {
			sb.fail("definition scope was not produced by this builder")
			return sb
		}
		def = cfg.scope
	case cfg.hasScopeID:
		if int(cfg.scopeID) >= len(sb.b.byID) {
			sb.fail("unknown definition scope id %d", cfg.scopeID)
			return sb
		}
		def = sb.b.byID[cfg.scopeID]
	case cfg.hasScopeKey:
		s, ok := sb.b.keyed[cfg.scopeKey]
		if !ok {
			sb.fail("unknown definition scope key %v", cfg.scopeKey)
			return sb
		}
		def = s
	}
	if len(cfg.values) > 0 {
		if def == nil {
			sb.fail("range values require a definition scope")
			return sb
		}
		if len(cfg.values) != len(def.Variables) {
			sb.fail("range has %d values for %d variables of its definition scope",
				len(cfg.values), len(def.Variables))
			return sb
		}
	}

	sb.b.StartRange(line, column, opts...)
	return sb
}

// SetRangeDefinitionScope sets the definition scope of the open range. It
// is an error if no range is open or the scope was not produced by this
// builder.
func (sb *SafeScopeInfoBuilder) SetRangeDefinitionScope(s *scopes.OriginalScope) *SafeScopeInfoBuilder {
	if !sb.requireRange("SetRangeDefinitionScope") {
		return sb
	}
	if !sb.b.knownScope(s) {
		sb.fail("definition scope was not produced by this builder")
		return sb
	}
	sb.b.SetRangeDefinitionScope(s)
	return sb
}

// SetRangeDefinitionScopeKey sets the definition scope of the open range by
// registered key. It is an error if no range is open or the key is unknown.
func (sb *SafeScopeInfoBuilder) SetRangeDefinitionScopeKey(key any) *SafeScopeInfoBuilder {
	if !sb.requireRange("SetRangeDefinitionScopeKey") {
		return sb
	}
	if _, ok := sb.b.keyed[key]; !ok {
		sb.fail("unknown definition scope key %v", key)
		return sb
	}
	sb.b.SetRangeDefinitionScopeKey(key)
	return sb
}

// SetRangeStackFrame sets the stack-frame flag of the open range. It is an
// error if no range is open.
func (sb *SafeScopeInfoBuilder) SetRangeStackFrame(v bool) *SafeScopeInfoBuilder {
	if sb.requireRange("SetRangeStackFrame") {
		sb.b.SetRangeStackFrame(v)
	}
	return sb
}

// SetRangeHidden sets the hidden flag of the open range. It is an error if
// no range is open.
func (sb *SafeScopeInfoBuilder) SetRangeHidden(v bool) *SafeScopeInfoBuilder {
	if sb.requireRange("SetRangeHidden") {
		sb.b.SetRangeHidden(v)
	}
	return sb
}

// SetRangeValues sets the per-variable bindings of the open range. It is an
// error if no range is open, the range has no definition scope, or the
// number of values does not match the definition scope's variables.
func (sb *SafeScopeInfoBuilder) SetRangeValues(values ...scopes.Binding) *SafeScopeInfoBuilder {
	if !sb.requireRange("SetRangeValues") {
		return sb
	}
	r := sb.b.currentRange()
	if r.OriginalScope == nil {
		sb.fail("range values require a definition scope")
		return sb
	}
	if len(values) != len(r.OriginalScope.Variables) {
		sb.fail("range has %d values for %d variables of its definition scope",
			len(values), len(r.OriginalScope.Variables))
		return sb
	}
	sb.b.SetRangeValues(values...)
	return sb
}

// SetRangeCallSite sets the inlining call site of the open range. It is an
// error if no range is open.
func (sb *SafeScopeInfoBuilder) SetRangeCallSite(pos scopes.OriginalPosition) *SafeScopeInfoBuilder {
	if sb.requireRange("SetRangeCallSite") {
		sb.b.SetRangeCallSite(pos)
	}
	return sb
}

// EndRange closes the open range, validating that one is open, that the end
// position does not precede its start, that an inlined range has a
// definition scope and is not a stack frame, and that every sub-range
// binding sequence tiles the range exactly.
func (sb *SafeScopeInfoBuilder) EndRange(line, column uint32) *SafeScopeInfoBuilder {
	if sb.err != nil {
		return sb
	}
	r := sb.b.currentRange()
	if r == nil {
		sb.fail("cannot end a range: none is open")
		return sb
	}
	end := scopes.Position{Line: line, Column: column}
	if scopes.ComparePositions(end, r.Start) < 0 {
		sb.fail("range end %d:%d precedes range start %d:%d",
			line, column, r.Start.Line, r.Start.Column)
		return sb
	}
	if r.CallSite != nil {
		if r.OriginalScope == nil {
			sb.fail("range with a call site requires a definition scope")
			return sb
		}
		if r.IsStackFrame {
			sb.fail("range with a call site cannot be a stack frame")
			return sb
		}
	}
	for i, v := range r.Values {
		srs, ok := v.(scopes.SubRangeBindings)
		if !ok {
			continue
		}
		if err := scopes.ValidateSubRanges(srs, r.Start, end); err != nil {
			sb.fail("sub-range bindings for variable %d: %v", i, err)
			return sb
		}
	}
	sb.b.EndRange(line, column)
	return sb
}

// Build validates that both stacks are empty and returns the assembled
// ScopeInfo, or the first error recorded by the builder.
func (sb *SafeScopeInfoBuilder) Build() (*scopes.ScopeInfo, error) {
	if sb.err != nil {
		return nil, sb.err
	}
	if len(sb.b.scopeStack) > 0 {
		return nil, fmt.Errorf("cannot build: %d scope(s) still open", len(sb.b.scopeStack))
	}
	if len(sb.b.rangeStack) > 0 {
		return nil, fmt.Errorf("cannot build: %d range(s) still open", len(sb.b.rangeStack))
	}
	return sb.b.Build(), nil
}

func (sb *SafeScopeInfoBuilder) requireScope(op string) bool {
	if sb.err != nil {
		return false
	}
	if sb.b.CurrentScope() == nil {
		sb.fail("%s: no scope is open", op)
		return false
	}
	return true
}

func (sb *SafeScopeInfoBuilder) requireRange(op string) bool {
	if sb.err != nil {
		return false
	}
	if sb.b.currentRange() == nil {
		sb.fail("%s: no range is open", op)
		return false
	}
	return true
}
