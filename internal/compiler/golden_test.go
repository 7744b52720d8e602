package compiler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/goldentest"
)

// goldenBuilders maps a fixture's "module" section (trimmed) to the
// *ast.Path it exercises. The fixtures themselves live under
// testdata/*.txtar; this registry is the bridge from "module" text to
// an actual tree, since this repository's spec treats source-text
// parsing as an external collaborator (spec §1) this package never
// implements.
var goldenBuilders = map[string]*ast.Path{
	"identity": path("identity", ident("X"), ident("X")),
	"add": path("add",
		&ast.Tuple{Members: []ast.Node{ident("X"), ident("Y")}},
		&ast.Add{Left: ident("X"), Right: ident("Y")}),
}

// renderClause prints every instruction but the trailing terminator
// word, in the same shorthand the fixtures' "want" sections use.
func renderClause(c *bytecode.ClauseEntry) string {
	var lines []string
	for _, instr := range c.Code[:len(c.Code)-1] {
		lines = append(lines, renderInstr(instr))
	}
	return strings.Join(lines, "\n")
}

func renderInstr(instr bytecode.Instruction) string {
	switch instr.Op() {
	case bytecode.OpReturn:
		return fmt.Sprintf("RETURN r%d", instr.A())
	case bytecode.OpMove:
		return fmt.Sprintf("MOVE r%d, %s", instr.A(), renderOperand(instr.B()))
	case bytecode.OpLoadK:
		return fmt.Sprintf("LOADK r%d, %s", instr.A(), renderOperand(instr.D()))
	default:
		return fmt.Sprintf("%s r%d, %s, %s", instr.Op(), instr.A(), renderOperand(instr.B()), renderOperand(instr.C()))
	}
}

func renderOperand(o bytecode.Operand) string {
	if o.K {
		return fmt.Sprintf("K%d", o.Index)
	}
	return fmt.Sprintf("r%d", o.Index)
}

func TestGoldenFixtures(t *testing.T) {
	cases, err := goldentest.Load("testdata")
	if err != nil {
		t.Fatalf("loading fixtures: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("no fixtures found under testdata/")
	}

	err = goldentest.Run(context.Background(), cases, func(_ context.Context, c goldentest.Case) error {
		name := strings.TrimSpace(c.Module)
		p, ok := goldenBuilders[name]
		if !ok {
			return fmt.Errorf("no builder registered for module %q", name)
		}
		g := New(Module{Name: "m"})
		paths, err := g.Generate(&ast.Block{Children: []ast.Node{p}})
		if err != nil {
			return fmt.Errorf("Generate: %w", err)
		}
		got := renderClause(paths[0].Clauses[0])
		want := strings.TrimSpace(c.Want)
		if got != want {
			return fmt.Errorf("disassembly mismatch:\n got:\n%s\nwant:\n%s", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
