package compiler

import (
	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/value"
)

// lowerSelect implements spec §4.7. tail mirrors the original's
// `islast`: when true and this is not the last clause, the end-of-arm
// jump becomes a RETURN instead of a forward JUMP past the whole
// select; tail also propagates into each clause body, since a tail
// call reached through a matched arm is still a tail call.
func (g *Generator) lowerSelect(n *ast.Select, tail bool) (bytecode.Operand, error) {
	var subject bytecode.Operand
	hasSubject := n.Arg != nil
	if hasSubject {
		op, err := g.lowerExpr(n.Arg, false)
		if err != nil {
			return bytecode.Operand{}, err
		}
		subject = op
	}

	c := g.clause()
	result := c.AllocRegister()

	nclauses := len(n.Clauses)
	var endPatches []bytecode.PatchSite

	for i, cl := range n.Clauses {
		g.tree.EnterScope()

		var patternPatch *bytecode.PatchSite
		if cl.Pattern != nil && hasSubject {
			patVal, err := g.makePattern(cl.Pattern)
			if err != nil {
				g.tree.ExitScope()
				return bytecode.Operand{}, err
			}
			patOperand := c.Intern("", patVal)
			scratch := c.AllocRegister()

			op := bytecode.OpMatch
			if patVal.Tag.Base() == value.TagNumber {
				op = bytecode.OpEq
			}
			c.Emit(bytecode.EncodeABC(op, uint8(scratch), patOperand, subject))

			ps := c.EmitJumpPlaceholder(bytecode.OpJump, 0)
			patternPatch = &ps
		}

		var guardPatches []bytecode.PatchSite
		for _, guard := range cl.Guards {
			if _, err := g.lowerExpr(guard, false); err != nil {
				g.tree.ExitScope()
				return bytecode.Operand{}, err
			}
			guardPatches = append(guardPatches, c.EmitJumpPlaceholder(bytecode.OpJump, 0))
		}

		g.tree.EnterScope()
		bodyOp, err := g.lowerExpr(cl.Body, tail)
		g.tree.ExitScope()
		if err != nil {
			g.tree.ExitScope()
			return bytecode.Operand{}, err
		}

		g.moveInto(result, bodyOp)

		if i < nclauses-1 {
			endPatches = append(endPatches, c.EmitJumpPlaceholder(bytecode.OpJump, 0))
		}

		if patternPatch != nil {
			patternPatch.PatchToHere()
		}
		for _, gp := range guardPatches {
			gp.PatchToHere()
		}

		g.tree.ExitScope()
	}

	if tail {
		for _, p := range endPatches {
			p.PatchAsReturn(uint8(result))
		}
	} else {
		for _, p := range endPatches {
			p.PatchToHere()
		}
	}

	return bytecode.Reg(result), nil
}
