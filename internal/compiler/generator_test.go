package compiler

import (
	"testing"

	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/diagnostics"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func number(lexeme string, v int64) *ast.Number { return &ast.Number{Lexeme: lexeme, Value: v} }

func path(name string, param ast.Node, body ast.Node) *ast.Path {
	return &ast.Path{Name: name, Clause: &ast.Clause{Param: param, Body: body}}
}

func compile(t *testing.T, paths ...*ast.Path) []*bytecode.PathEntry {
	t.Helper()
	children := make([]ast.Node, len(paths))
	for i, p := range paths {
		children[i] = p
	}
	g := New(Module{Name: "m"})
	out, err := g.Generate(&ast.Block{Children: children})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return out
}

func lastInstr(c *bytecode.ClauseEntry) bytecode.Instruction {
	return c.Code[c.PC()-1]
}

// f (X): X  ->  RETURN 1, 0, 0  followed by a zero terminator.
func TestIdentityClauseReturnsItsParameter(t *testing.T) {
	paths := compile(t, path("f", ident("X"), ident("X")))
	clause := paths[0].Clauses[0]

	if got := clause.PC(); got != 2 {
		t.Fatalf("PC = %d, want 2 (RETURN + terminator)", got)
	}
	instr := clause.Code[0]
	if instr.Op() != bytecode.OpReturn {
		t.Fatalf("op = %s, want RETURN", instr.Op())
	}
	if instr.A() != 1 {
		t.Fatalf("RETURN register = %d, want 1", instr.A())
	}
	if clause.Code[1] != 0 {
		t.Fatalf("terminator word = %#x, want 0", clause.Code[1])
	}
}

// add (X, Y): X + Y  ->  ADD r3, r1, r2 ; RETURN r3, 0, 0
func TestAddLowersBothOperandsThenAdds(t *testing.T) {
	param := &ast.Tuple{Members: []ast.Node{ident("X"), ident("Y")}}
	body := &ast.Add{Left: ident("X"), Right: ident("Y")}
	paths := compile(t, path("add", param, body))
	clause := paths[0].Clauses[0]

	add := clause.Code[0]
	if add.Op() != bytecode.OpAdd {
		t.Fatalf("op = %s, want ADD", add.Op())
	}
	if add.A() != 3 || add.B() != bytecode.Reg(1) || add.C() != bytecode.Reg(2) {
		t.Fatalf("ADD operands = %d,%v,%v, want 3,r1,r2", add.A(), add.B(), add.C())
	}
	ret := clause.Code[1]
	if ret.Op() != bytecode.OpReturn || ret.A() != 3 {
		t.Fatalf("RETURN = %s %d, want RETURN 3", ret.Op(), ret.A())
	}
}

// pair (X, Y): (X, Y)  ->  TUPLE r3,2,0 ; SETTUPLE r3,0,r1 ; SETTUPLE r3,1,r2 ; RETURN r3,0,0
func TestTupleLiteralEmitsSetTuplePerMember(t *testing.T) {
	param := &ast.Tuple{Members: []ast.Node{ident("X"), ident("Y")}}
	body := &ast.Tuple{Members: []ast.Node{ident("X"), ident("Y")}}
	paths := compile(t, path("pair", param, body))
	clause := paths[0].Clauses[0]

	tuple := clause.Code[0]
	if tuple.Op() != bytecode.OpTuple || tuple.A() != 3 || tuple.B() != bytecode.Reg(2) {
		t.Fatalf("TUPLE = %s %d %v, want TUPLE 3,2", tuple.Op(), tuple.A(), tuple.B())
	}
	set0 := clause.Code[1]
	if set0.Op() != bytecode.OpSetTuple || set0.B() != bytecode.Reg(0) || set0.C() != bytecode.Reg(1) {
		t.Fatalf("first SETTUPLE = %s %v %v, want SETTUPLE _,0,r1", set0.Op(), set0.B(), set0.C())
	}
	set1 := clause.Code[2]
	if set1.Op() != bytecode.OpSetTuple || set1.B() != bytecode.Reg(1) || set1.C() != bytecode.Reg(2) {
		t.Fatalf("second SETTUPLE = %s %v %v, want SETTUPLE _,1,r2", set1.Op(), set1.B(), set1.C())
	}
	if clause.Code[3].Op() != bytecode.OpReturn {
		t.Fatalf("last op before terminator = %s, want RETURN", clause.Code[3].Op())
	}
}

// Empty list literal produces exactly LIST r,0,0 (spec §8 boundary behavior).
func TestEmptyListLiteralEmitsExactlyOneListInstruction(t *testing.T) {
	paths := compile(t, path("e", nil, &ast.List{}))
	clause := paths[0].Clauses[0]

	listInstr := clause.Code[0]
	if listInstr.Op() != bytecode.OpList || listInstr.B() != bytecode.Reg(0) || listInstr.C() != bytecode.Reg(0) {
		t.Fatalf("LIST = %s %v %v, want LIST _,0,0", listInstr.Op(), listInstr.B(), listInstr.C())
	}
}

// fac (0): 1 | fac (N): fac(N - 1), desugared to a select in the outer
// clause's body (spec §8 scenario 3): TAILCALL in the recursive arm
// (its whole body is the call, so it is in tail position), RETURN in
// the base arm.
func TestFactorialSelectEmitsTailCallInRecursiveArm(t *testing.T) {
	baseClause := &ast.SelectClause{Pattern: number("0", 0), Body: number("1", 1)}
	recArg := &ast.Sub{Left: ident("N"), Right: number("1", 1)}
	recClause := &ast.SelectClause{Body: &ast.Apply{Callee: ident("fac"), Arg: recArg}}

	sel := &ast.Select{Arg: ident("N"), Clauses: []*ast.SelectClause{baseClause, recClause}}

	g := New(Module{Name: "m"})
	block := &ast.Block{Children: []ast.Node{path("fac", ident("N"), sel)}}

	paths, err := g.Generate(block)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	clause := paths[0].Clauses[0]
	var sawTailCall, sawReturn bool
	for _, instr := range clause.Code[:clause.PC()] {
		switch instr.Op() {
		case bytecode.OpTailCall:
			sawTailCall = true
		case bytecode.OpReturn:
			sawReturn = true
		}
	}
	if !sawTailCall {
		t.Fatalf("expected a TAILCALL in the recursive arm, code: %v", clause.Code)
	}
	if !sawReturn {
		t.Fatalf("expected a RETURN in the base arm, code: %v", clause.Code)
	}
}

// A recursive call nested inside an arithmetic expression is never a
// tail call, even when it is the same path name and the select itself
// sits in tail position: the call result still feeds the subtraction.
func TestRecursiveCallNestedInArithmeticIsNotATailCall(t *testing.T) {
	baseClause := &ast.SelectClause{Pattern: number("0", 0), Body: number("1", 1)}
	recArg := &ast.Sub{Left: ident("N"), Right: number("1", 1)}
	recBody := &ast.Sub{Left: ident("N"), Right: &ast.Apply{Callee: ident("fac"), Arg: recArg}}
	recClause := &ast.SelectClause{Body: recBody}

	sel := &ast.Select{Arg: ident("N"), Clauses: []*ast.SelectClause{baseClause, recClause}}

	paths := compile(t, path("fac", ident("N"), sel))
	clause := paths[0].Clauses[0]

	for _, instr := range clause.Code[:clause.PC()] {
		if instr.Op() == bytecode.OpTailCall {
			t.Fatalf("expected CALL, found TAILCALL: %v", clause.Code)
		}
	}
}

// Duplicate top-level path declarations report RedefinitionError and
// no clause is compiled for the second declaration.
func TestDuplicatePathDeclarationIsRedefinitionError(t *testing.T) {
	g := New(Module{Name: "m"})
	block := &ast.Block{Children: []ast.Node{
		path("a", nil, number("1", 1)),
		path("a", nil, number("2", 2)),
	}}
	_, err := g.Generate(block)
	if err == nil {
		t.Fatal("expected a redefinition error, got nil")
	}
	if _, ok := err.(*diagnostics.RedefinitionError); !ok {
		t.Fatalf("err = %T, want *diagnostics.RedefinitionError", err)
	}
}

// An identifier referenced but never bound is ERR_UNDEFINED.
func TestUndefinedIdentifierReportsUndefinedError(t *testing.T) {
	g := New(Module{Name: "m"})
	block := &ast.Block{Children: []ast.Node{path("g", ident("X"), ident("Y"))}}
	if _, err := g.Generate(block); err == nil {
		t.Fatal("expected an undefined-identifier error, got nil")
	}
}

// Registers are allocated monotonically and never recycled mid-clause
// (spec invariant 1): the high-water mark only grows.
func TestRegistersAllocateMonotonically(t *testing.T) {
	param := &ast.Tuple{Members: []ast.Node{ident("X"), ident("Y")}}
	body := &ast.Add{Left: ident("X"), Right: ident("Y")}
	paths := compile(t, path("add", param, body))
	clause := paths[0].Clauses[0]
	if clause.NReg != 4 {
		t.Fatalf("NReg = %d, want 4 (r0 reserved, r1=X, r2=Y, r3=sum)", clause.NReg)
	}
}
