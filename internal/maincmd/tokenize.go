package maincmd

import (
	"context"
	"fmt"
	"io"

	"github.com/mna/mainer"

	"github.com/mna/scopecodec/vlq"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles dumps the raw item stream of the scopes field of the
// source-map files: one line per item with its tag and VLQ values, without
// interpreting the grammar (unknown tags dump the same way as known ones).
func TokenizeFiles(_ context.Context, stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		m, err := readMap(file)
		if err != nil {
			return printError(stdio, err)
		}
		if err := dumpItems(stdio.Stdout, m.Scopes); err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
	}
	return nil
}

func dumpItems(w io.Writer, s string) error {
	if s == "" {
		return nil
	}

	it := vlq.NewTokenIterator(s)
	for idx := 0; ; idx++ {
		if it.HasNext() && it.Peek() != ',' {
			tag, err := it.NextUnsignedVLQ()
			if err != nil {
				return err
			}
			var vals []uint64
			for it.HasNext() && it.Peek() != ',' {
				v, err := it.NextUnsignedVLQ()
				if err != nil {
					return err
				}
				vals = append(vals, v)
			}
			if _, err := fmt.Fprintf(w, "item %d: tag=%#x vlqs=%v\n", idx, tag, vals); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintf(w, "item %d: null\n", idx); err != nil {
			return err
		}

		if !it.HasNext() {
			return nil
		}
		it.NextChar() // consume the ','
	}
}
