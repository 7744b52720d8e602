package compiler

import (
	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/diagnostics"
	"github.com/purlang/purc/internal/symbols"
	"github.com/purlang/purc/internal/value"
)

// declareParamLocals walks a clause's parameter pattern declaring
// locals without emitting instructions (spec §4.5). It is distinct
// from makePattern below: a clause has exactly one parameter pattern
// and it is always "matched" implicitly (multi-clause dispatch is
// expressed as a select in the body, spec §8 scenario 3), so this walk
// only needs to bind names and intern literal constants, never produce
// a Value.
func (g *Generator) declareParamLocals(n ast.Node) error {
	switch x := n.(type) {
	case nil:
		return nil
	case *ast.Tuple:
		for _, member := range x.Members {
			if err := g.declareParamLocals(member); err != nil {
				return err
			}
		}
		return nil
	case *ast.Ident:
		if _, ok := g.tree.Variables.LookupLocal(x.Name); !ok {
			reg := g.clause().AllocRegister()
			g.clause().NLocals++
			g.tree.Variables.Insert(x.Name, &symbols.VarSymbol{Name: x.Name, Register: reg})
		}
		return nil
	case *ast.Number:
		g.lowerNumber(x)
		return nil
	case *ast.Atom:
		g.lowerAtom(x)
		return nil
	case *ast.String:
		return &diagnostics.NotYetImplementedError{Construct: "string pattern", At: pos(n)}
	default:
		// Other shapes (Range, List, Cons) are left alone here; a
		// parameter pattern that needs their matching semantics goes
		// through a select in the body instead (spec §4.5).
		return nil
	}
}

// makePattern implements spec §4.6: a pure transformation from pattern
// AST shape to a Value, used only by the select compiler. It never
// emits instructions; an *ast.Ident/*ast.Range that is not yet bound
// declares a fresh local as a side effect, exactly like a clause
// parameter would.
func (g *Generator) makePattern(n ast.Node) (value.Value, error) {
	switch x := n.(type) {
	case *ast.Tuple:
		members := make([]value.Value, len(x.Members))
		for i, member := range x.Members {
			v, err := g.makePattern(member)
			if err != nil {
				return value.Value{}, err
			}
			members[i] = v
		}
		return value.Tuple(members), nil
	case *ast.Range:
		ident, ok := x.Operand.(*ast.Ident)
		if !ok {
			return value.Value{}, &diagnostics.InternalError{NodeKind: "range", Detail: "range operand is not an identifier", At: pos(n)}
		}
		return g.patternIdent(ident, true), nil
	case *ast.Ident:
		return g.patternIdent(x, false), nil
	case *ast.Atom:
		return value.Atom(x.Lexeme), nil
	case *ast.Number:
		return value.Number(x.Value), nil
	case *ast.List:
		// Only the empty list is representable without a cons chain;
		// a non-empty list pattern arrives as *ast.Cons, rejected below.
		return value.List(nil), nil
	case *ast.Cons:
		return value.Value{}, &diagnostics.NotYetImplementedError{Construct: "cons pattern", At: pos(n)}
	case *ast.String:
		return value.Value{}, &diagnostics.NotYetImplementedError{Construct: "string pattern", At: pos(n)}
	default:
		return value.Value{}, &diagnostics.InternalError{NodeKind: n.Kind().String(), Detail: "unsupported pattern shape", At: pos(n)}
	}
}

// patternIdent implements the shared OIDENT/ORANGE-operand rule: reuse
// an already-bound register as VAR, or declare a fresh one as ANY.
func (g *Generator) patternIdent(ident *ast.Ident, ranged bool) value.Value {
	if sym, ok := g.tree.Variables.Lookup(ident.Name); ok {
		return value.Var(sym.Register, ranged)
	}
	reg := g.clause().AllocRegister()
	g.clause().NLocals++
	g.tree.Variables.Insert(ident.Name, &symbols.VarSymbol{Name: ident.Name, Register: reg})
	return value.Any(reg, ranged)
}
