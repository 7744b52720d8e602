// Package compiler lowers a parsed module (internal/ast) to the
// register-bytecode form defined by internal/bytecode, resolving names
// against internal/symbols and reporting failures via
// internal/diagnostics. It is the generator: one dispatch function per
// AST node kind, the pattern compiler, and the select-clause compiler.
package compiler

import (
	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/diagnostics"
	"github.com/purlang/purc/internal/symbols"
	"github.com/purlang/purc/internal/value"
)

// Module names the source unit being compiled. MajorVersion has no wire
// representation (the image format fixes a single version sentinel,
// spec §6.2), and the generator does not read it: the self-access
// PATHID carries only Name.
type Module struct {
	Name         string
	MajorVersion int
}

// Generator holds everything one compilation pass needs: the symbol
// environment, the module identity, the paths accumulated so far, and
// the active path/clause pair being lowered. It is strictly
// single-threaded and non-reentrant (spec §5) — never share one across
// goroutines.
type Generator struct {
	tree   *symbols.Tree
	module Module

	paths []*bytecode.PathEntry
	path  *bytecode.PathEntry

	clauseBody ast.Node // the active clause's Body; set and restored by lowerClause, never read (tail position travels as lowerExpr's tail flag)
}

// New creates a Generator for a single module compilation.
func New(module Module) *Generator {
	return &Generator{
		tree:   symbols.NewTree(),
		module: module,
	}
}

// Generate lowers block, the module's top-level sequence of path
// declarations, into the accumulated path table. It is the sole entry
// point; on any error the returned slice is nil and no partial state
// should be serialized (spec §4.9: compilation is total).
func (g *Generator) Generate(block *ast.Block) ([]*bytecode.PathEntry, error) {
	for _, child := range block.Children {
		p, ok := child.(*ast.Path)
		if !ok {
			return nil, &diagnostics.InternalError{
				NodeKind: child.Kind().String(),
				Detail:   "top-level block child is not a path declaration",
				At:       pos(child),
			}
		}
		if err := g.lowerPath(p); err != nil {
			return nil, err
		}
	}
	return g.paths, nil
}

func pos(n ast.Node) diagnostics.Location {
	p := n.Pos()
	return diagnostics.Location{File: p.File, Line: p.Line, Column: p.Column}
}

// lowerPath registers n in the flat path table (duplicate is
// ERR_REDEFINITION, spec §4.4 OPATH), allocates its PathEntry, installs
// it as active, and lowers its single clause.
func (g *Generator) lowerPath(n *ast.Path) error {
	if _, ok := g.tree.Paths.LookupLocal(n.Name); ok {
		return &diagnostics.RedefinitionError{Name: n.Name, Kind: diagnostics.KindPath, At: pos(n)}
	}

	index := len(g.paths)
	entry := bytecode.NewPathEntry(n.Name, n, index)
	g.paths = append(g.paths, entry)
	g.tree.Paths.Insert(n.Name, &symbols.PathSymbol{Name: n.Name, Index: index})

	old := g.path
	g.path = entry
	defer func() { g.path = old }()

	return g.lowerClause(n.Clause)
}

// lowerClause implements spec §4.4 OCLAUSE: a fresh ClauseEntry, a
// pushed lexical scope, locals declared from the parameter pattern, the
// body lowered in tail position, and a guaranteed RETURN/terminator
// pair unless the body's last instruction is already a TAILCALL.
func (g *Generator) lowerClause(n *ast.Clause) error {
	oldBody := g.clauseBody
	g.clauseBody = n.Body
	defer func() { g.clauseBody = oldBody }()

	index := len(g.path.Clauses)
	clause := bytecode.NewClauseEntry(n, index)
	g.path.Clauses = append(g.path.Clauses, clause)

	g.tree.EnterScope()
	if err := g.declareParamLocals(n.Param); err != nil {
		g.tree.ExitScope()
		return err
	}

	result, err := g.lowerExpr(n.Body, true)
	g.tree.ExitScope()
	if err != nil {
		return err
	}

	last := clause.PC() - 1
	needsReturn := last < 0 || clause.Code[last].Op() != bytecode.OpTailCall
	if needsReturn {
		reg := g.materialize(result)
		clause.Emit(bytecode.EncodeABC(bytecode.OpReturn, uint8(reg), bytecode.Reg(0), bytecode.Reg(0)))
	}
	clause.Terminate()

	return nil
}

// clause returns the active clause entry: the last one appended to
// g.path.Clauses.
func (g *Generator) clause() *bytecode.ClauseEntry {
	return g.path.Clauses[len(g.path.Clauses)-1]
}

// materialize forces op into a register, emitting LOADK if it is
// K-flagged; register operands pass through unchanged.
func (g *Generator) materialize(op bytecode.Operand) int {
	if op.IsRegister() {
		return op.Index
	}
	c := g.clause()
	r := c.AllocRegister()
	c.Emit(bytecode.EncodeAD(bytecode.OpLoadK, uint8(r), op))
	return r
}

// moveInto writes src into the fixed register dst, choosing LOADK or
// MOVE according to src's K-flag (spec §4.7 step 4, §4.4 OBIND).
func (g *Generator) moveInto(dst int, src bytecode.Operand) {
	c := g.clause()
	if src.K {
		c.Emit(bytecode.EncodeAD(bytecode.OpLoadK, uint8(dst), src))
		return
	}
	c.Emit(bytecode.EncodeABC(bytecode.OpMove, uint8(dst), src, bytecode.Reg(0)))
}

// lowerBlock lowers a sequence of expressions in order, returning the
// last child's operand. tail propagates to the last child only — every
// other child is lowered as a non-tail statement (spec §4.4 OBLOCK).
func (g *Generator) lowerBlock(n *ast.Block, tail bool) (bytecode.Operand, error) {
	var result bytecode.Operand
	for i, child := range n.Children {
		isLast := i == len(n.Children)-1
		op, err := g.lowerExpr(child, tail && isLast)
		if err != nil {
			return bytecode.Operand{}, err
		}
		result = op
	}
	return result, nil
}

// lowerExpr is the dispatch table keyed by AST kind (spec §4.4). tail
// marks whether n sits in its clause's tail position; only Apply and
// the constructs that can forward it (Block, Select) consult it.
func (g *Generator) lowerExpr(n ast.Node, tail bool) (bytecode.Operand, error) {
	switch x := n.(type) {
	case *ast.Block:
		return g.lowerBlock(x, tail)
	case *ast.Number:
		return g.lowerNumber(x), nil
	case *ast.Atom:
		return g.lowerAtom(x), nil
	case *ast.Ident:
		return g.lowerIdentDefined(x)
	case *ast.List:
		return g.lowerList(), nil
	case *ast.Cons:
		return g.lowerCons(x)
	case *ast.Tuple:
		return g.lowerTuple(x)
	case *ast.Add:
		return g.lowerAdd(x)
	case *ast.Sub:
		return g.lowerSub(x)
	case *ast.Gt:
		return g.lowerComparison(x.Left, x.Right, false)
	case *ast.Lt:
		return g.lowerComparison(x.Left, x.Right, true)
	case *ast.Access:
		return g.lowerAccess(x)
	case *ast.Apply:
		return g.lowerApply(x, tail)
	case *ast.Bind:
		return g.lowerBind(x)
	case *ast.Match:
		return g.lowerMatch(x)
	case *ast.Select:
		return g.lowerSelect(x, tail)
	case *ast.Range:
		return bytecode.Operand{}, &diagnostics.InternalError{NodeKind: "range", Detail: "range marker outside pattern position", At: pos(n)}
	case *ast.String:
		return bytecode.Operand{}, &diagnostics.NotYetImplementedError{Construct: "string constant", At: pos(n)}
	default:
		return bytecode.Operand{}, &diagnostics.InternalError{NodeKind: n.Kind().String(), At: pos(n)}
	}
}

func (g *Generator) lowerNumber(n *ast.Number) bytecode.Operand {
	return g.clause().Intern(n.Lexeme, value.Number(n.Value))
}

func (g *Generator) lowerAtom(n *ast.Atom) bytecode.Operand {
	return g.clause().Intern(n.Lexeme, value.Atom(n.Lexeme))
}

// lowerIdentSilent mirrors gen_ident: a lexical lookup that returns
// "unbound" (ok == false) instead of reporting ERR_UNDEFINED. Its only
// caller is lowerIdentDefined; the pattern compiler looks names up in
// g.tree.Variables directly.
func (g *Generator) lowerIdentSilent(n *ast.Ident) (bytecode.Operand, bool) {
	sym, ok := g.tree.Variables.Lookup(n.Name)
	if !ok {
		return bytecode.Operand{}, false
	}
	return bytecode.Reg(sym.Register), true
}

// lowerIdentDefined mirrors gen_defined: every ordinary expression
// context requires the identifier to already be bound.
func (g *Generator) lowerIdentDefined(n *ast.Ident) (bytecode.Operand, error) {
	op, ok := g.lowerIdentSilent(n)
	if !ok {
		return bytecode.Operand{}, &diagnostics.UndefinedError{Name: n.Name, At: pos(n)}
	}
	return op, nil
}

func (g *Generator) lowerList() bytecode.Operand {
	c := g.clause()
	r := c.AllocRegister()
	c.Emit(bytecode.EncodeABC(bytecode.OpList, uint8(r), bytecode.Reg(0), bytecode.Reg(0)))
	return bytecode.Reg(r)
}

// lowerCons implements spec §4.4 OCONS: recurse into the tail first (a
// nil tail starts a fresh LIST), then CONS the head onto it.
func (g *Generator) lowerCons(n *ast.Cons) (bytecode.Operand, error) {
	var (
		listOp bytecode.Operand
		err    error
	)
	if n.Tail == nil {
		listOp = g.lowerList()
	} else {
		listOp, err = g.lowerExpr(n.Tail, false)
		if err != nil {
			return bytecode.Operand{}, err
		}
	}
	if n.Head == nil {
		return listOp, nil
	}
	headOp, err := g.lowerExpr(n.Head, false)
	if err != nil {
		return bytecode.Operand{}, err
	}
	r := g.materialize(listOp)
	c := g.clause()
	c.Emit(bytecode.EncodeABC(bytecode.OpCons, uint8(r), bytecode.Reg(r), headOp))
	return bytecode.Reg(r), nil
}

// lowerTuple implements spec §4.4 OTUPLE: TUPLE r, arity, 0 followed by
// one SETTUPLE per member. The arity and index operands are plain
// register-shaped immediates (never K-flagged), not register
// references; bytecode.Reg is reused for its bit pattern only.
func (g *Generator) lowerTuple(n *ast.Tuple) (bytecode.Operand, error) {
	c := g.clause()
	r := c.AllocRegister()
	c.Emit(bytecode.EncodeABC(bytecode.OpTuple, uint8(r), bytecode.Reg(len(n.Members)), bytecode.Reg(0)))
	for i, member := range n.Members {
		memberOp, err := g.lowerExpr(member, false)
		if err != nil {
			return bytecode.Operand{}, err
		}
		c.Emit(bytecode.EncodeABC(bytecode.OpSetTuple, uint8(r), bytecode.Reg(i), memberOp))
	}
	return bytecode.Reg(r), nil
}

func (g *Generator) lowerAdd(n *ast.Add) (bytecode.Operand, error) {
	return g.lowerArith(bytecode.OpAdd, n.Left, n.Right)
}

func (g *Generator) lowerSub(n *ast.Sub) (bytecode.Operand, error) {
	return g.lowerArith(bytecode.OpSub, n.Left, n.Right)
}

func (g *Generator) lowerArith(op bytecode.OpCode, left, right ast.Node) (bytecode.Operand, error) {
	lop, err := g.lowerExpr(left, false)
	if err != nil {
		return bytecode.Operand{}, err
	}
	rop, err := g.lowerExpr(right, false)
	if err != nil {
		return bytecode.Operand{}, err
	}
	c := g.clause()
	r := c.AllocRegister()
	c.Emit(bytecode.EncodeABC(op, uint8(r), lop, rop))
	return bytecode.Reg(r), nil
}

// lowerComparison implements spec §4.4 OGT/OLT: both lower to the same
// GT opcode, `<` swapping its operands since there is no dedicated LT
// instruction (spec §9 open question, preserved as-is). Comparisons
// produce no value — they set the predicate the following guard JUMP
// consumes inside a select — so the returned operand is never read.
func (g *Generator) lowerComparison(left, right ast.Node, swap bool) (bytecode.Operand, error) {
	lop, err := g.lowerExpr(left, false)
	if err != nil {
		return bytecode.Operand{}, err
	}
	rop, err := g.lowerExpr(right, false)
	if err != nil {
		return bytecode.Operand{}, err
	}
	c := g.clause()
	if swap {
		c.Emit(bytecode.EncodeABC(bytecode.OpGt, 0, rop, lop))
	} else {
		c.Emit(bytecode.EncodeABC(bytecode.OpGt, 0, lop, rop))
	}
	return bytecode.Operand{}, nil
}

// lowerAccess implements spec §4.4 OACCESS: only the module-self form
// `.name` is reachable from this AST (Access has no object field to
// name another module), so it always interns a self PATHID.
func (g *Generator) lowerAccess(n *ast.Access) (bytecode.Operand, error) {
	return g.clause().Intern("", value.Path(g.module.Name, n.Right.Name)), nil
}

// pathOperandValue builds the PATHID value a non-tail CALL references
// its callee by, mirroring the PATHID constant Access produces — both
// name a path in the current module, since cross-module calls are out
// of scope here.
func (g *Generator) pathOperandValue(name string) value.Value {
	return value.Path(g.module.Name, name)
}

// lowerBind implements spec §4.4 OBIND. The rhs is lowered with
// gen_defined semantics when it is a bare identifier (an unbound rhs
// name is an error here, unlike inside a pattern); any other rhs shape
// lowers normally. The lhs must already be an *ast.Ident; redefinition
// in the innermost scope is ERR_REDEFINITION.
func (g *Generator) lowerBind(n *ast.Bind) (bytecode.Operand, error) {
	var (
		rhs bytecode.Operand
		err error
	)
	if ident, ok := n.Value.(*ast.Ident); ok {
		rhs, err = g.lowerIdentDefined(ident)
	} else {
		rhs, err = g.lowerExpr(n.Value, false)
	}
	if err != nil {
		return bytecode.Operand{}, err
	}

	if _, ok := g.tree.Variables.LookupLocal(n.Name.Name); ok {
		return bytecode.Operand{}, &diagnostics.RedefinitionError{Name: n.Name.Name, Kind: diagnostics.KindLocal, At: pos(n)}
	}

	c := g.clause()
	reg := c.AllocRegister()
	c.NLocals++
	g.tree.Variables.Insert(n.Name.Name, &symbols.VarSymbol{Name: n.Name.Name, Register: reg})
	g.moveInto(reg, rhs)

	// A bind has no meaningful value of its own (mirrors the original's
	// fixed zero return); it is never the clause's tail expression.
	return bytecode.Reg(0), nil
}

// lowerMatch implements spec §4.4 OMATCH: emit the comparison and a
// JUMP placeholder reserved for future bad-match handling (spec §9,
// left unpatched: a no-op sentinel, same as the source this is grounded
// on).
func (g *Generator) lowerMatch(n *ast.Match) (bytecode.Operand, error) {
	lop, err := g.lowerExpr(n.Left, false)
	if err != nil {
		return bytecode.Operand{}, err
	}
	rop, err := g.lowerExpr(n.Right, false)
	if err != nil {
		return bytecode.Operand{}, err
	}
	c := g.clause()
	c.Emit(bytecode.EncodeABC(bytecode.OpMatch, 0, lop, rop))
	c.EmitJumpPlaceholder(bytecode.OpJump, 0)
	return bytecode.Reg(0), nil
}
