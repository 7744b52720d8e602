// Package disasm renders a read-back image.Module as a human-readable
// listing: one indented block per path, one per clause, one line per
// instruction. It is purely a view over internal/image's structural
// form — it never touches bytecode.ClauseEntry directly, so it works
// equally on a freshly compiled module or one reloaded from disk.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kr/text"

	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/image"
	"github.com/purlang/purc/internal/value"
)

// Listing renders mod to w, prefixing the whole output with a header
// line reporting the encoded size in human units and, when buildID is
// non-empty, the build that produced it (internal/buildcache stamps
// this).
func Listing(w io.Writer, mod *image.Module, encodedSize int64, buildID string) error {
	header := fmt.Sprintf("module: %d path(s), %s", len(mod.Paths), humanize.Bytes(uint64(encodedSize)))
	if buildID != "" {
		header += fmt.Sprintf(" (build %s)", buildID)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, p := range mod.Paths {
		if err := writePath(w, p); err != nil {
			return err
		}
	}
	return nil
}

func writePath(w io.Writer, p *image.Path) error {
	var body strings.Builder
	for i, c := range p.Clauses {
		fmt.Fprintf(&body, "clause %d (%s) [%d registers]\n", i, patternString(c.Param), c.NReg)
		if err := writeClauseBody(&body, c); err != nil {
			return err
		}
	}
	name := p.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(w, "path %s:\n", name)
	_, err := io.Copy(w, strings.NewReader(text.Indent(body.String(), "  ")))
	return err
}

func writeClauseBody(w io.Writer, c *image.Clause) error {
	var out strings.Builder
	for i, k := range c.Constants {
		fmt.Fprintf(&out, "K%d = %s\n", i, constantString(k))
	}
	for pc, word := range c.Code {
		instr := bytecode.Instruction(word)
		fmt.Fprintf(&out, "%4d  %s\n", pc, instructionString(instr))
	}
	_, err := io.Copy(w, strings.NewReader(text.Indent(out.String(), "  ")))
	return err
}

func instructionString(instr bytecode.Instruction) string {
	op := instr.Op()
	switch op {
	case bytecode.OpJump:
		return fmt.Sprintf("%s %+d", op, instr.J())
	case bytecode.OpLoadK:
		return fmt.Sprintf("%s r%d, %s", op, instr.A(), operandString(instr.D()))
	case bytecode.OpMove:
		return fmt.Sprintf("%s r%d, %s", op, instr.A(), operandString(instr.B()))
	default:
		return fmt.Sprintf("%s r%d, %s, %s", op, instr.A(), operandString(instr.B()), operandString(instr.C()))
	}
}

func operandString(o bytecode.Operand) string {
	if o.K {
		return fmt.Sprintf("K%d", o.Index)
	}
	return fmt.Sprintf("r%d", o.Index)
}

func patternString(p *image.Pattern) string {
	if p == nil {
		return "_"
	}
	switch p.Tag {
	case image.PatternAny:
		return "_"
	case image.PatternAtom:
		return ":" + p.Atom
	case image.PatternNumber:
		return fmt.Sprintf("%d", p.Number)
	case image.PatternTuple:
		parts := make([]string, len(p.Members))
		for i, m := range p.Members {
			parts[i] = patternString(m)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case image.PatternList:
		return "[]"
	default:
		return "?"
	}
}

func constantString(c image.Constant) string {
	switch value.Tag(c.Tag).Base() {
	case value.TagNumber:
		return fmt.Sprintf("%d", c.Number)
	case value.TagAtom:
		return ":" + c.Atom
	case value.TagPathID:
		return c.Module + "." + c.Path
	case value.TagTuple:
		parts := make([]string, len(c.Tuple))
		for i, m := range c.Tuple {
			parts[i] = constantString(m)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case value.TagList:
		return fmt.Sprintf("list/%d", len(c.List))
	default:
		return fmt.Sprintf("r%d", c.Register)
	}
}
