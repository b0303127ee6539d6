package maincmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/scopecodec/codec"
	"github.com/mna/scopecodec/scopes"
)

func (c *Cmd) Decode(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DecodeFiles(ctx, stdio, c.mode(), args...)
}

func (c *Cmd) mode() codec.Mode {
	if c.Strict {
		return codec.Strict
	}
	return codec.Lax
}

// DecodeFiles decodes the scopes field of the source-map files and prints
// the resulting scope and range trees to stdout.
func DecodeFiles(_ context.Context, stdio mainer.Stdio, mode codec.Mode, files ...string) error {
	printer := scopes.Printer{Output: stdio.Stdout}
	for _, file := range files {
		m, err := readMap(file)
		if err != nil {
			return printError(stdio, err)
		}
		info, err := codec.Decode(m, &codec.DecodeOptions{Mode: mode})
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		if err := printer.Print(info); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func readMap(file string) (*scopes.SourceMap, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var m scopes.SourceMap
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return &m, nil
}
