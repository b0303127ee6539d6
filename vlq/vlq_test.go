package vlq

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendUnsigned(t *testing.T) {
	cases := []struct {
		n    uint64
		want string
	}{
		{0, "A"},
		{1, "B"},
		{15, "P"},
		{16, "Q"},
		{25, "Z"},
		{26, "a"},
		{31, "f"},
		{32, "gB"},
		{63, "/B"},
		{1024, "ggB"},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%d", c.n), func(t *testing.T) {
			got := string(AppendUnsigned(nil, c.n))
			require.Equal(t, c.want, got)
		})
	}
}

func TestAppendSigned(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{2, "E"},
		{-2, "F"},
		{16, "gB"},
		{-16, "hB"},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%d", c.n), func(t *testing.T) {
			got := string(AppendSigned(nil, c.n))
			require.Equal(t, c.want, got)
		})
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 2, 30, 31, 32, 33, 63, 64, 1023, 1024, 123456789, 1 << 40} {
		t.Run(fmt.Sprintf("%d", n), func(t *testing.T) {
			it := NewTokenIterator(string(AppendUnsigned(nil, n)))
			got, err := it.NextUnsignedVLQ()
			require.NoError(t, err)
			require.Equal(t, n, got)
			require.False(t, it.HasNext())
		})
	}
}

func TestSignedRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 15, -15, 16, -16, 31, -31, 32, -32, 123456, -123456} {
		t.Run(fmt.Sprintf("%d", n), func(t *testing.T) {
			it := NewTokenIterator(string(AppendSigned(nil, n)))
			got, err := it.NextSignedVLQ()
			require.NoError(t, err)
			require.Equal(t, n, got)
			require.False(t, it.HasNext())
		})
	}
}

func TestNextUnsignedVLQErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		it := NewTokenIterator("")
		_, err := it.NextUnsignedVLQ()
		require.ErrorIs(t, err, ErrUnexpectedEnd)
	})

	t.Run("continuation at end of input", func(t *testing.T) {
		// 'g' has the continuation bit set, so more digits are required
		it := NewTokenIterator("g")
		_, err := it.NextUnsignedVLQ()
		require.ErrorIs(t, err, ErrUnexpectedEnd)
	})

	t.Run("non-alphabet character", func(t *testing.T) {
		it := NewTokenIterator("!")
		_, err := it.NextUnsignedVLQ()
		require.ErrorContains(t, err, "unexpected character")
	})

	t.Run("comma at the start of a VLQ", func(t *testing.T) {
		it := NewTokenIterator(",A")
		_, err := it.NextUnsignedVLQ()
		require.ErrorContains(t, err, "unexpected character")
	})

	t.Run("comma after a complete VLQ", func(t *testing.T) {
		// the comma ends the first VLQ cleanly, it is only an error when a
		// VLQ is requested at its position
		it := NewTokenIterator("B,")
		n, err := it.NextUnsignedVLQ()
		require.NoError(t, err)
		require.Equal(t, uint64(1), n)
		require.True(t, it.HasNext())
		require.Equal(t, byte(','), it.Peek())
	})
}

func TestTokenIteratorCursor(t *testing.T) {
	it := NewTokenIterator("AB")
	require.True(t, it.HasNext())
	require.Equal(t, byte('A'), it.Peek())
	require.Equal(t, byte('A'), it.NextChar())
	require.Equal(t, byte('A'), it.CurrentChar())
	require.Equal(t, byte('B'), it.Peek())
	require.Equal(t, byte('B'), it.NextChar())
	require.Equal(t, byte('B'), it.CurrentChar())
	require.False(t, it.HasNext())
	// the last consumed char remains observable at the end of input
	require.Equal(t, byte('B'), it.CurrentChar())
}

func TestCurrentCharBeforeAdvance(t *testing.T) {
	it := NewTokenIterator("A")
	require.Panics(t, func() { it.CurrentChar() })
}
