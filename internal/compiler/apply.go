package compiler

import (
	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/diagnostics"
)

// lowerApply implements spec §4.4 OAPPLY. The callee must be a bare
// identifier naming a path (this generator has no cross-module calls,
// spec Non-goals); tail replaces the original's block-parent-climbing
// loop with the threaded tail flag (see lowerBlock/lowerSelect), which
// gives the same answer for every reachable shape: a recursive call is
// a tail call only when it is lowered in tail position and its name
// matches the enclosing path.
func (g *Generator) lowerApply(n *ast.Apply, tail bool) (bytecode.Operand, error) {
	calleeIdent, ok := n.Callee.(*ast.Ident)
	if !ok {
		return bytecode.Operand{}, &diagnostics.InternalError{
			NodeKind: n.Callee.Kind().String(),
			Detail:   "apply callee is not a path identifier",
			At:       pos(n),
		}
	}
	if _, ok := g.tree.Paths.Lookup(calleeIdent.Name); !ok {
		return bytecode.Operand{}, &diagnostics.UndefinedError{Name: calleeIdent.Name, At: pos(n)}
	}

	argOp, err := g.lowerExpr(n.Arg, false)
	if err != nil {
		return bytecode.Operand{}, err
	}

	c := g.clause()
	rr := c.AllocRegister()

	if tail && calleeIdent.Name == g.path.Name {
		c.Emit(bytecode.EncodeABC(bytecode.OpTailCall, uint8(rr), bytecode.Reg(0), argOp))
	} else {
		calleeOp := c.Intern("", g.pathOperandValue(calleeIdent.Name))
		c.Emit(bytecode.EncodeABC(bytecode.OpCall, uint8(rr), calleeOp, argOp))
	}

	return bytecode.Reg(rr), nil
}
