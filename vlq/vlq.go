// Package vlq implements the base64 variable-length-quantity encoding used
// by source maps: values are split in 5-bit groups emitted low-order first,
// each group carried by one character of the base64 alphabet with bit 6 set
// on all groups but the last. Signed values store their sign in the least
// significant bit.
package vlq

import (
	"errors"
	"fmt"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	baseShift       = 5
	baseMask        = 1<<baseShift - 1 // 31
	continuationBit = 1 << baseShift   // 32
)

// ErrUnexpectedEnd is returned when the input ends while a VLQ digit still
// has its continuation bit set, or when a VLQ is requested at the end of the
// input.
var ErrUnexpectedEnd = errors.New("unexpected end of input")

// reverse lookup of alphabet characters to their 6-bit value, -1 for
// characters outside the alphabet.
var digits [256]int8

func init() {
	for i := range digits {
		digits[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		digits[alphabet[i]] = int8(i)
	}
}

// AppendUnsigned appends the VLQ encoding of n to b and returns the extended
// slice.
func AppendUnsigned(b []byte, n uint64) []byte {
	for {
		digit := byte(n & baseMask)
		n >>= baseShift
		if n > 0 {
			digit |= continuationBit
		}
		b = append(b, alphabet[digit])
		if n == 0 {
			return b
		}
	}
}

// AppendSigned appends the VLQ encoding of n to b, with the sign of n stored
// in the least significant bit, and returns the extended slice.
func AppendSigned(b []byte, n int64) []byte {
	if n < 0 {
		return AppendUnsigned(b, uint64(-n)<<1|1)
	}
	return AppendUnsigned(b, uint64(n)<<1)
}

// TokenIterator is a pull-style cursor over a VLQ-encoded string. The zero
// value is an exhausted iterator; use NewTokenIterator to position one at
// the start of a string. It does not allocate beyond its own struct.
type TokenIterator struct {
	s   string
	off int
	cur byte // most recently consumed character, valid once off > 0
}

// NewTokenIterator returns a TokenIterator at the start of s.
func NewTokenIterator(s string) TokenIterator {
	return TokenIterator{s: s}
}

// HasNext reports whether the iterator has not passed the end of its input.
func (it *TokenIterator) HasNext() bool { return it.off < len(it.s) }

// Peek returns the current character without consuming it. It panics if the
// iterator is exhausted; callers check HasNext first.
func (it *TokenIterator) Peek() byte { return it.s[it.off] }

// NextChar consumes and returns the current character. It panics if the
// iterator is exhausted; callers check HasNext first.
func (it *TokenIterator) NextChar() byte {
	c := it.s[it.off]
	it.off++
	it.cur = c
	return c
}

// CurrentChar returns the character most recently consumed. It panics if the
// iterator has not yet advanced.
func (it *TokenIterator) CurrentChar() byte {
	if it.off == 0 {
		panic("vlq: CurrentChar called before the iterator advanced")
	}
	return it.cur
}

// NextUnsignedVLQ decodes an unsigned VLQ at the cursor. It returns
// ErrUnexpectedEnd if the input ends with the continuation bit set (or if
// the iterator is already exhausted), and an error if a character outside
// the base64 alphabet appears inside the VLQ.
func (it *TokenIterator) NextUnsignedVLQ() (uint64, error) {
	var (
		val   uint64
		shift uint
	)
	for {
		if !it.HasNext() {
			return 0, ErrUnexpectedEnd
		}
		c := it.NextChar()
		digit := digits[c]
		if digit < 0 {
			return 0, fmt.Errorf("unexpected character %q in VLQ", c)
		}
		val |= uint64(digit&baseMask) << shift
		if digit&continuationBit == 0 {
			return val, nil
		}
		shift += baseShift
	}
}

// NextSignedVLQ decodes a sign-bit-in-LSB VLQ at the cursor.
func (it *TokenIterator) NextSignedVLQ() (int64, error) {
	val, err := it.NextUnsignedVLQ()
	if err != nil {
		return 0, err
	}
	if val&1 != 0 {
		return -int64(val >> 1), nil
	}
	return int64(val >> 1), nil
}
