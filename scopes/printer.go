package scopes

import (
	"fmt"
	"io"
	"strings"
)

// Printer pretty-prints a ScopeInfo as an indented tree, one node per line.
// Generated ranges refer to their definition scope by its pre-order index in
// the scope forest, the same numbering the codec uses on the wire.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer
}

// Print pretty-prints the scope and range trees of info.
func (p *Printer) Print(info *ScopeInfo) error {
	pp := &printer{w: p.Output, scopeIdx: make(map[*OriginalScope]int)}

	// number the scopes in pre-order so ranges can refer to them
	for _, s := range info.Scopes {
		if s != nil {
			pp.number(s)
		}
	}

	pp.println("scopes:")
	for _, s := range info.Scopes {
		pp.scope(s, 0)
	}
	pp.println("ranges:")
	for _, r := range info.Ranges {
		pp.rng(r, 0)
	}
	return pp.err
}

type printer struct {
	w        io.Writer
	scopeIdx map[*OriginalScope]int
	err      error
}

func (p *printer) number(s *OriginalScope) {
	p.scopeIdx[s] = len(p.scopeIdx)
	for _, c := range s.Children {
		p.number(c)
	}
}

func (p *printer) println(line string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, line)
}

func (p *printer) scope(s *OriginalScope, depth int) {
	indent := strings.Repeat(". ", depth)
	if s == nil {
		p.println(indent + "null")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%sscope %d:%d - %d:%d", indent, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
	if s.Name != "" {
		fmt.Fprintf(&sb, " name=%q", s.Name)
	}
	if s.Kind != "" {
		fmt.Fprintf(&sb, " kind=%q", s.Kind)
	}
	if s.IsStackFrame {
		sb.WriteString(" frame")
	}
	if len(s.Variables) > 0 {
		sb.WriteString(" vars=[")
		for i, v := range s.Variables {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%q", v)
		}
		sb.WriteByte(']')
	}
	p.println(sb.String())

	for _, c := range s.Children {
		p.scope(c, depth+1)
	}
}

func (p *printer) rng(r *GeneratedRange, depth int) {
	indent := strings.Repeat(". ", depth)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%srange %d:%d - %d:%d", indent, r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
	if r.OriginalScope != nil {
		if idx, ok := p.scopeIdx[r.OriginalScope]; ok {
			fmt.Fprintf(&sb, " scope=#%d", idx)
		} else {
			sb.WriteString(" scope=#?")
		}
	}
	if r.IsStackFrame {
		sb.WriteString(" frame")
	}
	if r.IsHidden {
		sb.WriteString(" hidden")
	}
	if cs := r.CallSite; cs != nil {
		fmt.Fprintf(&sb, " callsite=#%d@%d:%d", cs.SourceIndex, cs.Line, cs.Column)
	}
	if len(r.Values) > 0 {
		sb.WriteString(" values=[")
		for i, v := range r.Values {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(formatBinding(v))
		}
		sb.WriteByte(']')
	}
	p.println(sb.String())

	for _, c := range r.Children {
		p.rng(c, depth+1)
	}
}

func formatBinding(b Binding) string {
	switch b := b.(type) {
	case nil:
		return "-"
	case ExprBinding:
		return fmt.Sprintf("%q", string(b))
	case SubRangeBindings:
		var sb strings.Builder
		sb.WriteByte('(')
		for i, sr := range b {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d:%d-%d:%d=", sr.From.Line, sr.From.Column, sr.To.Line, sr.To.Column)
			if sr.Value == nil {
				sb.WriteByte('-')
			} else {
				fmt.Fprintf(&sb, "%q", *sr.Value)
			}
		}
		sb.WriteByte(')')
		return sb.String()
	default:
		return fmt.Sprintf("<invalid binding %T>", b)
	}
}
