package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/scopecodec/codec"
	"github.com/mna/scopecodec/scopes"
)

func decodeMap(scopesField string, names []string) *scopes.SourceMap {
	src := "a.js"
	return &scopes.SourceMap{
		Version: 3,
		Sources: []*string{&src},
		Names:   names,
		Scopes:  scopesField,
	}
}

func TestDecodeNoScopesField(t *testing.T) {
	info, err := codec.Decode(decodeMap("", nil), nil)
	require.NoError(t, err)
	require.Empty(t, info.Scopes)
	require.Empty(t, info.Ranges)
}

func TestDecodeNilMap(t *testing.T) {
	_, err := codec.Decode(nil, nil)
	require.Error(t, err)
}

func TestDecodeNullPlaceholders(t *testing.T) {
	info, err := codec.Decode(decodeMap(",,", nil), nil)
	require.NoError(t, err)
	require.Equal(t, []*scopes.OriginalScope{nil, nil, nil}, info.Scopes)
	require.Empty(t, info.Ranges)
}

func TestDecodePlaceholderPositions(t *testing.T) {
	t.Run("leading comma", func(t *testing.T) {
		info, err := codec.Decode(decodeMap(",BAAA,CAA", nil), nil)
		require.NoError(t, err)
		require.Len(t, info.Scopes, 2)
		require.Nil(t, info.Scopes[0])
		require.NotNil(t, info.Scopes[1])
	})

	t.Run("trailing comma", func(t *testing.T) {
		info, err := codec.Decode(decodeMap("BAAA,CAA,", nil), nil)
		require.NoError(t, err)
		require.Len(t, info.Scopes, 2)
		require.NotNil(t, info.Scopes[0])
		require.Nil(t, info.Scopes[1])
	})
}

func TestDecodeMalformedVLQ(t *testing.T) {
	for _, mode := range []codec.Mode{codec.Lax, codec.Strict} {
		t.Run("illegal character", func(t *testing.T) {
			_, err := codec.Decode(decodeMap("B!", nil), &codec.DecodeOptions{Mode: mode})
			require.ErrorContains(t, err, "unexpected character")
		})
		t.Run("unexpected end", func(t *testing.T) {
			_, err := codec.Decode(decodeMap("Bg", nil), &codec.DecodeOptions{Mode: mode})
			require.ErrorContains(t, err, "unexpected end of input")
		})
	}
}

func TestDecodeStrictLax(t *testing.T) {
	cases := []struct {
		desc      string
		scopes    string
		names     []string
		strictErr string // strict error "contains" this string
		laxWant   string // printed form of the lax result
	}{
		{
			"unmatched scope end", "CAA", nil,
			"unmatched original scope end",
			"scopes:\nranges:\n",
		},
		{
			"orphan variables", "DA", nil,
			"variables item outside an open scope",
			"scopes:\nranges:\n",
		},
		{
			"orphan bindings", "HA", []string{"x"},
			"bindings item outside an open range",
			"scopes:\nranges:\n",
		},
		{
			"orphan call site", "JAAA", nil,
			"call site item outside an open range",
			"scopes:\nranges:\n",
		},
		{
			"orphan sub-range binding", "IAAAA", nil,
			"sub-range binding item outside an open range",
			"scopes:\nranges:\n",
		},
		{
			"unmatched range end", "GA", nil,
			"unmatched generated range end",
			"scopes:\nranges:\n",
		},
		{
			"unclosed scope", "BAAA", nil,
			"unclosed scope at end of input",
			"scopes:\nranges:\n",
		},
		{
			"unclosed range", "FAA", nil,
			"unclosed range at end of input",
			"scopes:\nranges:\n",
		},
		{
			"scope name index out of bounds", "BBAAC,CAA", []string{"foo"},
			"names",
			"scopes:\nscope 0:0 - 0:0\nranges:\n",
		},
		{
			"scope kind index out of bounds", "BCAAC,CAA", []string{"foo"},
			"names",
			"scopes:\nscope 0:0 - 0:0\nranges:\n",
		},
		{
			"variable index out of bounds", "BAAA,DC,CAA", []string{"foo"},
			"variable index",
			"scopes:\nscope 0:0 - 0:0 vars=[\"\"]\nranges:\n",
		},
		{
			"binding index out of bounds", "FAA,HC,GF", []string{"x"},
			"binding index",
			"scopes:\nranges:\nrange 0:0 - 0:5 values=[\"\"]\n",
		},
		{
			"definition scope index out of bounds", "FCAC,GA", nil,
			"definition scope index",
			"scopes:\nranges:\nrange 0:0 - 0:0\n",
		},
		{
			"sub-range variable index out of bounds", "FAA,IBAAA,GF", nil,
			"sub-range binding for variable",
			"scopes:\nranges:\nrange 0:0 - 0:5\n",
		},
		{
			"duplicate sub-range binding",
			"BAAA,DA,CBA,FCAA,HC,IAEAF,IAEAK,GU", []string{"x", "a", "b"},
			"duplicate sub-range binding",
			"scopes:\nscope 0:0 - 1:0 vars=[\"x\"]\nranges:\n" +
				"range 0:0 - 0:20 scope=#0 values=[(0:0-0:5=\"a\" 0:5-0:10=\"b\" 0:10-0:20=\"b\")]\n",
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := codec.Decode(decodeMap(c.scopes, c.names), &codec.DecodeOptions{Mode: codec.Strict})
			require.ErrorContains(t, err, c.strictErr)

			info, err := codec.Decode(decodeMap(c.scopes, c.names), nil)
			require.NoError(t, err)
			require.Equal(t, c.laxWant, printInfo(t, info))
		})
	}
}

func TestDecodeLaxDistinguishesUnavailable(t *testing.T) {
	// bindings: -1 is unavailable, an out-of-bounds index decodes to the
	// empty expression; the two must remain distinguishable
	info, err := codec.Decode(decodeMap("FAA,HDC,GF", []string{}), nil)
	require.NoError(t, err)
	require.Len(t, info.Ranges, 1)
	vals := info.Ranges[0].Values
	require.Len(t, vals, 2)
	require.Nil(t, vals[0])
	require.Equal(t, scopes.ExprBinding(""), vals[1])
}

func TestDecodeForwardCompatUnknownTags(t *testing.T) {
	// tag 0x4 ('E') is not assigned; unknown items are skipped wholesale
	// wherever they appear, in both modes
	for _, mode := range []codec.Mode{codec.Lax, codec.Strict} {
		want, err := codec.Decode(decodeMap("BAAA,CAA", nil), &codec.DecodeOptions{Mode: mode})
		require.NoError(t, err)

		got, err := codec.Decode(decodeMap("EAAAA,BAAA,EB,CAA,EACA", nil), &codec.DecodeOptions{Mode: mode})
		require.NoError(t, err)
		requireSameInfo(t, want, got)
	}
}

func TestDecodeIgnoresTrailingVLQs(t *testing.T) {
	for _, mode := range []codec.Mode{codec.Lax, codec.Strict} {
		want, err := codec.Decode(decodeMap("BAAA,CAA", nil), &codec.DecodeOptions{Mode: mode})
		require.NoError(t, err)

		got, err := codec.Decode(decodeMap("BAAAA,CAAA", nil), &codec.DecodeOptions{Mode: mode})
		require.NoError(t, err)
		requireSameInfo(t, want, got)
	}
}

func TestDecodeIgnoresUnknownFlagBits(t *testing.T) {
	// scope flags 0x8 and range flags 0x10 are not assigned; the decoder
	// must leave the corresponding semantic fields at their defaults
	info, err := codec.Decode(decodeMap("BIAA,CAA,FQA,GF", nil), &codec.DecodeOptions{Mode: codec.Strict})
	require.NoError(t, err)
	require.Len(t, info.Scopes, 1)
	s := info.Scopes[0]
	require.Empty(t, s.Name)
	require.Empty(t, s.Kind)
	require.False(t, s.IsStackFrame)
	require.Len(t, info.Ranges, 1)
	r := info.Ranges[0]
	require.False(t, r.IsStackFrame)
	require.False(t, r.IsHidden)
	require.Nil(t, r.OriginalScope)
}

func TestDecodeGeneratedOffset(t *testing.T) {
	// one range (0,0)-(1,5) and a nested one (1,2)-(1,4)
	const enc = "FAA,FBBC,GC,GB"

	info, err := codec.Decode(decodeMap(enc, nil), &codec.DecodeOptions{
		GeneratedOffset: scopes.Position{Line: 2, Column: 7},
	})
	require.NoError(t, err)
	require.Len(t, info.Ranges, 1)

	r := info.Ranges[0]
	// the start line was 0, so its column is shifted too
	require.Equal(t, scopes.Position{Line: 2, Column: 7}, r.Start)
	require.Equal(t, scopes.Position{Line: 3, Column: 5}, r.End)
	require.Len(t, r.Children, 1)
	c := r.Children[0]
	// the child was not on the first line, only its line is shifted
	require.Equal(t, scopes.Position{Line: 3, Column: 2}, c.Start)
	require.Equal(t, scopes.Position{Line: 3, Column: 4}, c.End)
}

func TestDecodeIndexMap(t *testing.T) {
	// each section holds a single range (0,0)-(0,5)
	const enc = "FAA,GF"

	m := &scopes.SourceMap{
		Version: 3,
		Sections: []scopes.Section{
			{Offset: scopes.Position{Line: 0, Column: 0}, Map: decodeMap(enc, nil)},
			{Offset: scopes.Position{Line: 1, Column: 42}, Map: decodeMap(enc, nil)},
		},
	}

	info, err := codec.Decode(m, &codec.DecodeOptions{
		// the caller-provided offset is ignored for index maps
		GeneratedOffset: scopes.Position{Line: 99, Column: 99},
	})
	require.NoError(t, err)
	require.Empty(t, info.Scopes) // neither section carries scope items
	require.Len(t, info.Ranges, 2)

	require.Equal(t, scopes.Position{Line: 0, Column: 0}, info.Ranges[0].Start)
	require.Equal(t, scopes.Position{Line: 0, Column: 5}, info.Ranges[0].End)
	require.Equal(t, scopes.Position{Line: 1, Column: 42}, info.Ranges[1].Start)
	require.Equal(t, scopes.Position{Line: 1, Column: 47}, info.Ranges[1].End)
}
