package codec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/scopecodec/scopes"
)

// printInfo renders info with the scopes tree printer, the canonical
// human-readable form used to compare decoded results.
func printInfo(t *testing.T, info *scopes.ScopeInfo) string {
	t.Helper()

	var buf bytes.Buffer
	p := scopes.Printer{Output: &buf}
	require.NoError(t, p.Print(info))
	return buf.String()
}

// requireSameInfo asserts that got represents the same scope and range
// forests as want, and that got's parent back-references are consistent
// with its tree structure.
func requireSameInfo(t *testing.T, want, got *scopes.ScopeInfo) {
	t.Helper()

	require.Equal(t, printInfo(t, want), printInfo(t, got))
	requireConsistentParents(t, got)
}

func requireConsistentParents(t *testing.T, info *scopes.ScopeInfo) {
	t.Helper()

	var checkScope func(s *scopes.OriginalScope, parent *scopes.OriginalScope)
	checkScope = func(s, parent *scopes.OriginalScope) {
		require.Same(t, parent, s.Parent)
		for _, c := range s.Children {
			checkScope(c, s)
		}
	}
	for _, s := range info.Scopes {
		if s != nil {
			checkScope(s, nil)
		}
	}

	var checkRange func(r *scopes.GeneratedRange, parent *scopes.GeneratedRange)
	checkRange = func(r, parent *scopes.GeneratedRange) {
		require.Same(t, parent, r.Parent)
		for _, c := range r.Children {
			checkRange(c, r)
		}
	}
	for _, r := range info.Ranges {
		checkRange(r, nil)
	}
}
