package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/scopecodec/codec"
)

func (c *Cmd) Reencode(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ReencodeFiles(ctx, stdio, c.mode(), args...)
}

// ReencodeFiles decodes then re-encodes the scopes field of the source-map
// files and prints the resulting encoded string, one line per file. It is a
// round-trip harness: the output should be equivalent to the input field,
// modulo re-interning of the names table.
func ReencodeFiles(_ context.Context, stdio mainer.Stdio, mode codec.Mode, files ...string) error {
	for _, file := range files {
		m, err := readMap(file)
		if err != nil {
			return printError(stdio, err)
		}
		info, err := codec.Decode(m, &codec.DecodeOptions{Mode: mode})
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		out, err := codec.Encode(info, nil)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		if _, err := fmt.Fprintln(stdio.Stdout, out.Scopes); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}
