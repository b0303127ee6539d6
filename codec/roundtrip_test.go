package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/scopecodec/builder"
	"github.com/mna/scopecodec/codec"
	"github.com/mna/scopecodec/scopes"
)

func roundTrip(t *testing.T, info *scopes.ScopeInfo) {
	t.Helper()

	m, err := codec.Encode(info, nil)
	require.NoError(t, err)

	for _, mode := range []codec.Mode{codec.Lax, codec.Strict} {
		got, err := codec.Decode(m, &codec.DecodeOptions{Mode: mode})
		require.NoError(t, err)
		requireSameInfo(t, info, got)
	}
}

func TestRoundTripNullPlaceholders(t *testing.T) {
	info, err := builder.NewSafeScopeInfoBuilder().
		AddNullScope().
		AddNullScope().
		AddNullScope().
		Build()
	require.NoError(t, err)
	roundTrip(t, info)
}

func TestRoundTripNamedScopes(t *testing.T) {
	info, err := builder.NewSafeScopeInfoBuilder().
		StartScope(0, 0, builder.ScopeKind("Global")).
		StartScope(10, 5, builder.ScopeKind("Function"), builder.ScopeName("foo")).
		EndScope(20, 0).
		EndScope(30, 0).
		Build()
	require.NoError(t, err)
	roundTrip(t, info)
}

func TestRoundTripInlinedRangeWithCallSite(t *testing.T) {
	b := builder.NewSafeScopeInfoBuilder()
	b.StartScope(0, 0, builder.ScopeKind("Global"), builder.ScopeKey("outer")).
		StartScope(10, 0, builder.ScopeName("f"), builder.ScopeKind("Function"), builder.ScopeKey("f")).
		EndScope(20, 0).
		EndScope(30, 0)
	b.StartRange(0, 0, builder.RangeDefinitionScopeKey("outer")).
		StartRange(0, 10,
			builder.RangeDefinitionScopeKey("f"),
			builder.RangeCallSite(scopes.OriginalPosition{SourceIndex: 0, Position: scopes.Position{Line: 30, Column: 5}})).
		EndRange(0, 20).
		EndRange(0, 70)

	info, err := b.Build()
	require.NoError(t, err)
	roundTrip(t, info)

	// the call site survives the trip exactly
	m, err := codec.Encode(info, nil)
	require.NoError(t, err)
	got, err := codec.Decode(m, nil)
	require.NoError(t, err)
	cs := got.Ranges[0].Children[0].CallSite
	require.NotNil(t, cs)
	require.Equal(t, scopes.OriginalPosition{SourceIndex: 0, Position: scopes.Position{Line: 30, Column: 5}}, *cs)
}

func TestRoundTripSubRangeBindings(t *testing.T) {
	b := builder.NewSafeScopeInfoBuilder()
	b.StartScope(0, 0, builder.ScopeKind("Function"), builder.ScopeVariables("x"), builder.ScopeKey("f")).
		EndScope(5, 0)
	b.StartRange(0, 0,
		builder.RangeDefinitionScopeKey("f"),
		builder.RangeValues(scopes.SubRangeBindings{
			{Value: scopes.StrPtr(`"foo"`), From: scopes.Position{Line: 0, Column: 0}, To: scopes.Position{Line: 1, Column: 0}},
			{Value: scopes.StrPtr(`"bar"`), From: scopes.Position{Line: 1, Column: 0}, To: scopes.Position{Line: 1, Column: 19}},
		})).
		StartRange(0, 5).
		EndRange(0, 10).
		EndRange(1, 19)

	info, err := b.Build()
	require.NoError(t, err)
	roundTrip(t, info)

	m, err := codec.Encode(info, nil)
	require.NoError(t, err)
	got, err := codec.Decode(m, nil)
	require.NoError(t, err)

	srs, ok := got.Ranges[0].Values[0].(scopes.SubRangeBindings)
	require.True(t, ok)
	require.Len(t, srs, 2)
	require.Equal(t, `"foo"`, *srs[0].Value)
	require.Equal(t, scopes.Position{Line: 0, Column: 0}, srs[0].From)
	require.Equal(t, scopes.Position{Line: 1, Column: 0}, srs[0].To)
	require.Equal(t, `"bar"`, *srs[1].Value)
	require.Equal(t, scopes.Position{Line: 1, Column: 0}, srs[1].From)
	require.Equal(t, scopes.Position{Line: 1, Column: 19}, srs[1].To)
}

func TestRoundTripKitchenSink(t *testing.T) {
	b := builder.NewSafeScopeInfoBuilder()

	b.AddNullScope()
	b.StartScope(0, 0, builder.ScopeKind("Global"), builder.ScopeKey("ga")).
		StartScope(1, 0,
			builder.ScopeName("f"), builder.ScopeKind("Function"),
			builder.ScopeStackFrame(true), builder.ScopeVariables("x", "y"),
			builder.ScopeKey("f")).
		EndScope(10, 0).
		StartScope(12, 0,
			builder.ScopeName("g"), builder.ScopeKind("Function"),
			builder.ScopeStackFrame(true), builder.ScopeVariables("z"),
			builder.ScopeKey("g")).
		EndScope(20, 3).
		EndScope(40, 0)
	b.AddNullScope()
	b.StartScope(0, 0, builder.ScopeKind("Module"), builder.ScopeKey("gb")).
		EndScope(5, 0)

	b.StartRange(0, 0, builder.RangeDefinitionScopeKey("ga"), builder.RangeStackFrame(true)).
		StartRange(0, 10,
			builder.RangeDefinitionScopeKey("f"),
			builder.RangeCallSite(scopes.OriginalPosition{SourceIndex: 0, Position: scopes.Position{Line: 5, Column: 2}}),
			builder.RangeValues(scopes.ExprBinding("a"), nil)).
		EndRange(0, 30).
		StartRange(0, 40,
			builder.RangeDefinitionScopeKey("g"),
			builder.RangeHidden(true),
			builder.RangeCallSite(scopes.OriginalPosition{SourceIndex: 0, Position: scopes.Position{Line: 5, Column: 10}}),
			builder.RangeValues(scopes.SubRangeBindings{
				{Value: scopes.StrPtr("q"), From: scopes.Position{Line: 0, Column: 40}, To: scopes.Position{Line: 0, Column: 50}},
				{Value: nil, From: scopes.Position{Line: 0, Column: 50}, To: scopes.Position{Line: 0, Column: 80}},
			})).
		EndRange(0, 80).
		EndRange(0, 100)
	b.StartRange(1, 0, builder.RangeDefinitionScopeKey("gb")).
		EndRange(3, 0)

	info, err := b.Build()
	require.NoError(t, err)
	roundTrip(t, info)

	// the names table interns each string once, in first-appearance order
	m, err := codec.Encode(info, nil)
	require.NoError(t, err)
	require.Equal(t,
		[]string{"Global", "Function", "f", "x", "y", "g", "z", "Module", "a", "q"},
		m.Names)
}
