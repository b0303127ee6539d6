// Package builder provides fluent construction of scope and range trees.
// ScopeInfoBuilder accepts whatever it is given and silently ignores
// ill-timed calls; SafeScopeInfoBuilder enforces the nesting, ordering and
// cross-reference rules and fails on the first violation.
package builder

import (
	"golang.org/x/exp/slices"

	"github.com/mna/scopecodec/scopes"
)

// ScopeOption configures a scope created by StartScope.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	name, kind   string
	isStackFrame bool
	variables    []string
	key          any
	hasKey       bool
}

// ScopeName sets the name of the started scope.
func ScopeName(name string) ScopeOption {
	return func(c *scopeConfig) { c.name = name }
}

// ScopeKind sets the kind of the started scope.
func ScopeKind(kind string) ScopeOption {
	return func(c *scopeConfig) { c.kind = kind }
}

// ScopeStackFrame marks whether the started scope produces a stack frame.
func ScopeStackFrame(v bool) ScopeOption {
	return func(c *scopeConfig) { c.isStackFrame = v }
}

// ScopeVariables sets the variable names declared in the started scope. The
// slice is copied.
func ScopeVariables(vars ...string) ScopeOption {
	return func(c *scopeConfig) { c.variables = slices.Clone(vars) }
}

// ScopeKey registers the started scope under an arbitrary caller-provided
// key, so that ranges can later refer to it with RangeDefinitionScopeKey or
// SetRangeDefinitionScopeKey.
func ScopeKey(key any) ScopeOption {
	return func(c *scopeConfig) { c.key = key; c.hasKey = true }
}

// RangeOption configures a range created by StartRange.
type RangeOption func(*rangeConfig)

type rangeConfig struct {
	scope        *scopes.OriginalScope
	scopeID      uint32
	scopeKey     any
	hasScope     bool
	hasScopeID   bool
	hasScopeKey  bool
	isStackFrame bool
	isHidden     bool
	callSite     *scopes.OriginalPosition
	values       []scopes.Binding
}

// RangeDefinitionScope sets the definition scope of the started range by
// direct reference.
func RangeDefinitionScope(s *scopes.OriginalScope) RangeOption {
	return func(c *rangeConfig) { c.scope = s; c.hasScope = true }
}

// RangeDefinitionScopeID sets the definition scope of the started range by
// the numeric id assigned to it by this builder.
func RangeDefinitionScopeID(id uint32) RangeOption {
	return func(c *rangeConfig) { c.scopeID = id; c.hasScopeID = true }
}

// RangeDefinitionScopeKey sets the definition scope of the started range by
// the key it was registered under with ScopeKey.
func RangeDefinitionScopeKey(key any) RangeOption {
	return func(c *rangeConfig) { c.scopeKey = key; c.hasScopeKey = true }
}

// RangeStackFrame marks whether the started range corresponds to a stack
// frame.
func RangeStackFrame(v bool) RangeOption {
	return func(c *rangeConfig) { c.isStackFrame = v }
}

// RangeHidden marks whether the started range is hidden from stack traces.
func RangeHidden(v bool) RangeOption {
	return func(c *rangeConfig) { c.isHidden = v }
}

// RangeCallSite sets the inlining call site of the started range.
func RangeCallSite(pos scopes.OriginalPosition) RangeOption {
	return func(c *rangeConfig) { c.callSite = &pos }
}

// RangeValues sets the per-variable bindings of the started range. The
// slice is copied.
func RangeValues(values ...scopes.Binding) RangeOption {
	return func(c *rangeConfig) { c.values = slices.Clone(values) }
}

// ScopeInfoBuilder assembles a ScopeInfo tree by tree. It is permissive:
// calls made at the wrong time (e.g. ending a scope when none is open) are
// silently ignored. Use SafeScopeInfoBuilder to get validation instead. A
// builder is not safe for concurrent use.
type ScopeInfoBuilder struct {
	scopes []*scopes.OriginalScope
	ranges []*scopes.GeneratedRange

	scopeStack []*scopes.OriginalScope
	rangeStack []*scopes.GeneratedRange

	// bidirectional id <-> scope mapping; ids are assigned to scopes in
	// StartScope order.
	byID []*scopes.OriginalScope
	ids  map[*scopes.OriginalScope]uint32

	keyed map[any]*scopes.OriginalScope
	last  *scopes.OriginalScope
}

// NewScopeInfoBuilder returns an empty permissive builder.
func NewScopeInfoBuilder() *ScopeInfoBuilder {
	b := &ScopeInfoBuilder{}
	b.reset()
	return b
}

func (b *ScopeInfoBuilder) reset() {
	b.scopes = nil
	b.ranges = nil
	b.scopeStack = nil
	b.rangeStack = nil
	b.byID = nil
	b.ids = make(map[*scopes.OriginalScope]uint32)
	b.keyed = make(map[any]*scopes.OriginalScope)
	b.last = nil
}

// AddNullScope appends a null top-level placeholder for a source that
// carries no scope information.
func (b *ScopeInfoBuilder) AddNullScope() *ScopeInfoBuilder {
	b.scopes = append(b.scopes, nil)
	return b
}

// StartScope opens a new scope starting at the provided position and pushes
// it on the scope stack.
func (b *ScopeInfoBuilder) StartScope(line, column uint32, opts ...ScopeOption) *ScopeInfoBuilder {
	var cfg scopeConfig
	for _, o := range opts {
		o(&cfg)
	}

	s := &scopes.OriginalScope{
		Start:        scopes.Position{Line: line, Column: column},
		End:          scopes.Position{Line: line, Column: column},
		Name:         cfg.name,
		Kind:         cfg.kind,
		IsStackFrame: cfg.isStackFrame,
		Variables:    cfg.variables,
	}
	b.ids[s] = uint32(len(b.byID))
	b.byID = append(b.byID, s)
	if cfg.hasKey {
		b.keyed[cfg.key] = s
	}
	b.scopeStack = append(b.scopeStack, s)
	return b
}

// SetScopeName sets the name of the scope at the top of the scope stack.
func (b *ScopeInfoBuilder) SetScopeName(name string) *ScopeInfoBuilder {
	if s := b.CurrentScope(); s != nil {
		s.Name = name
	}
	return b
}

// SetScopeKind sets the kind of the scope at the top of the scope stack.
func (b *ScopeInfoBuilder) SetScopeKind(kind string) *ScopeInfoBuilder {
	if s := b.CurrentScope(); s != nil {
		s.Kind = kind
	}
	return b
}

// SetScopeStackFrame sets the stack-frame flag of the scope at the top of
// the scope stack.
func (b *ScopeInfoBuilder) SetScopeStackFrame(v bool) *ScopeInfoBuilder {
	if s := b.CurrentScope(); s != nil {
		s.IsStackFrame = v
	}
	return b
}

// SetScopeVariables sets the variables of the scope at the top of the scope
// stack. The slice is copied.
func (b *ScopeInfoBuilder) SetScopeVariables(vars ...string) *ScopeInfoBuilder {
	if s := b.CurrentScope(); s != nil {
		s.Variables = slices.Clone(vars)
	}
	return b
}

// EndScope closes the scope at the top of the scope stack at the provided
// position, attaching it to its parent or, if none, to the top-level scope
// list.
func (b *ScopeInfoBuilder) EndScope(line, column uint32) *ScopeInfoBuilder {
	n := len(b.scopeStack)
	if n == 0 {
		return b
	}
	s := b.scopeStack[n-1]
	b.scopeStack = b.scopeStack[:n-1]

	s.End = scopes.Position{Line: line, Column: column}
	if n > 1 {
		parent := b.scopeStack[n-2]
		s.Parent = parent
		parent.Children = append(parent.Children, s)
	} else {
		b.scopes = append(b.scopes, s)
	}
	b.last = s
	return b
}

// CurrentScope returns the scope at the top of the scope stack, nil if none
// is open.
func (b *ScopeInfoBuilder) CurrentScope() *scopes.OriginalScope {
	if n := len(b.scopeStack); n > 0 {
		return b.scopeStack[n-1]
	}
	return nil
}

// LastScope returns the most recently closed scope.
func (b *ScopeInfoBuilder) LastScope() *scopes.OriginalScope { return b.last }

// StartRange opens a new generated range starting at the provided position
// and pushes it on the range stack.
func (b *ScopeInfoBuilder) StartRange(line, column uint32, opts ...RangeOption) *ScopeInfoBuilder {
	var cfg rangeConfig
	for _, o := range opts {
		o(&cfg)
	}

	r := &scopes.GeneratedRange{
		Start:        scopes.Position{Line: line, Column: column},
		End:          scopes.Position{Line: line, Column: column},
		IsStackFrame: cfg.isStackFrame,
		IsHidden:     cfg.isHidden,
		CallSite:     cfg.callSite,
		Values:       cfg.values,
	}
	switch {
	case cfg.hasScope:
		r.OriginalScope = cfg.scope
	case cfg.hasScopeID:
		if int(cfg.scopeID) < len(b.byID) {
			r.OriginalScope = b.byID[cfg.scopeID]
		}
	case cfg.hasScopeKey:
		r.OriginalScope = b.keyed[cfg.scopeKey]
	}
	b.rangeStack = append(b.rangeStack, r)
	return b
}

// SetRangeDefinitionScope sets the definition scope of the range at the top
// of the range stack.
func (b *ScopeInfoBuilder) SetRangeDefinitionScope(s *scopes.OriginalScope) *ScopeInfoBuilder {
	if r := b.currentRange(); r != nil {
		r.OriginalScope = s
	}
	return b
}

// SetRangeDefinitionScopeKey sets the definition scope of the range at the
// top of the range stack by registered key.
func (b *ScopeInfoBuilder) SetRangeDefinitionScopeKey(key any) *ScopeInfoBuilder {
	if r := b.currentRange(); r != nil {
		if s, ok := b.keyed[key]; ok {
			r.OriginalScope = s
		}
	}
	return b
}

// SetRangeStackFrame sets the stack-frame flag of the range at the top of
// the range stack.
func (b *ScopeInfoBuilder) SetRangeStackFrame(v bool) *ScopeInfoBuilder {
	if r := b.currentRange(); r != nil {
		r.IsStackFrame = v
	}
	return b
}

// SetRangeHidden sets the hidden flag of the range at the top of the range
// stack.
func (b *ScopeInfoBuilder) SetRangeHidden(v bool) *ScopeInfoBuilder {
	if r := b.currentRange(); r != nil {
		r.IsHidden = v
	}
	return b
}

// SetRangeValues sets the per-variable bindings of the range at the top of
// the range stack. The slice is copied.
func (b *ScopeInfoBuilder) SetRangeValues(values ...scopes.Binding) *ScopeInfoBuilder {
	if r := b.currentRange(); r != nil {
		r.Values = slices.Clone(values)
	}
	return b
}

// SetRangeCallSite sets the inlining call site of the range at the top of
// the range stack.
func (b *ScopeInfoBuilder) SetRangeCallSite(pos scopes.OriginalPosition) *ScopeInfoBuilder {
	if r := b.currentRange(); r != nil {
		r.CallSite = &pos
	}
	return b
}

// EndRange closes the range at the top of the range stack at the provided
// position, attaching it to its parent or, if none, to the top-level range
// list.
func (b *ScopeInfoBuilder) EndRange(line, column uint32) *ScopeInfoBuilder {
	n := len(b.rangeStack)
	if n == 0 {
		return b
	}
	r := b.rangeStack[n-1]
	b.rangeStack = b.rangeStack[:n-1]

	r.End = scopes.Position{Line: line, Column: column}
	if n > 1 {
		parent := b.rangeStack[n-2]
		r.Parent = parent
		parent.Children = append(parent.Children, r)
	} else {
		b.ranges = append(b.ranges, r)
	}
	return b
}

// Build returns the assembled ScopeInfo and resets the builder to its
// initial state.
func (b *ScopeInfoBuilder) Build() *scopes.ScopeInfo {
	info := &scopes.ScopeInfo{Scopes: b.scopes, Ranges: b.ranges}
	b.reset()
	return info
}

func (b *ScopeInfoBuilder) currentRange() *scopes.GeneratedRange {
	if n := len(b.rangeStack); n > 0 {
		return b.rangeStack[n-1]
	}
	return nil
}

// knownScope reports whether s was produced by this builder.
func (b *ScopeInfoBuilder) knownScope(s *scopes.OriginalScope) bool {
	_, ok := b.ids[s]
	return ok
}
