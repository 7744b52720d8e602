// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the compiler. The compiler borrows these nodes; it never
// mutates or frees them.
package ast

// Position locates a node in its source file, for diagnostics.
type Position struct {
	File   string
	Line   int
	Column int
}

// Kind identifies the shape of a Node, used by the compiler's dispatch.
type Kind int

const (
	KindBlock Kind = iota
	KindPath
	KindClause
	KindBind
	KindMatch
	KindSelect
	KindApply
	KindAccess
	KindTuple
	KindList
	KindCons
	KindIdent
	KindNumber
	KindAtom
	KindAdd
	KindSub
	KindGt
	KindLt
	KindRange
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindPath:
		return "path"
	case KindClause:
		return "clause"
	case KindBind:
		return "bind"
	case KindMatch:
		return "match"
	case KindSelect:
		return "select"
	case KindApply:
		return "apply"
	case KindAccess:
		return "access"
	case KindTuple:
		return "tuple"
	case KindList:
		return "list"
	case KindCons:
		return "cons"
	case KindIdent:
		return "ident"
	case KindNumber:
		return "number"
	case KindAtom:
		return "atom"
	case KindAdd:
		return "add"
	case KindSub:
		return "sub"
	case KindGt:
		return "gt"
	case KindLt:
		return "lt"
	case KindRange:
		return "range"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Node is any AST node. Every concrete node type below implements it.
type Node interface {
	Kind() Kind
	Pos() Position
}

// Block is a sequence of expressions; its value is its last child's.
// The top-level module is a Block whose children are all Paths.
type Block struct {
	At       Position
	Children []Node
}

func (n *Block) Kind() Kind    { return KindBlock }
func (n *Block) Pos() Position { return n.At }

// Path is a named top-level definition: `name (pattern): body`.
type Path struct {
	At     Position
	Name   string
	Clause *Clause
}

func (n *Path) Kind() Kind    { return KindPath }
func (n *Path) Pos() Position { return n.At }

// Clause is one alternative of a path's definition: a parameter pattern
// and a body. purlang paths currently carry exactly one clause; `select`
// below is where multi-clause matching lives.
type Clause struct {
	At    Position
	Param Node // pattern: Ident, Tuple, Number, Atom, List, Range, or nil (no parameter)
	Body  Node
}

func (n *Clause) Kind() Kind    { return KindClause }
func (n *Clause) Pos() Position { return n.At }

// Bind is a local declaration: `name: value`. The left side must be a
// plain identifier in this version of the language.
type Bind struct {
	At    Position
	Name  *Ident
	Value Node
}

func (n *Bind) Kind() Kind    { return KindBind }
func (n *Bind) Pos() Position { return n.At }

// Match is a single pattern-match test: `lhs = rhs`.
type Match struct {
	At          Position
	Left, Right Node
}

func (n *Match) Kind() Kind    { return KindMatch }
func (n *Match) Pos() Position { return n.At }

// Select is the multi-clause pattern-match expression.
type Select struct {
	At      Position
	Arg     Node // subject being matched; may be nil
	Clauses []*SelectClause
}

func (n *Select) Kind() Kind    { return KindSelect }
func (n *Select) Pos() Position { return n.At }

// SelectClause is one arm of a Select: an optional pattern, zero or more
// guard expressions, and a body.
type SelectClause struct {
	At      Position
	Pattern Node // nil means "always matches" (a wildcard arm)
	Guards  []Node
	Body    Node
}

// Apply is a path invocation: `callee arg`.
type Apply struct {
	At     Position
	Callee Node
	Arg    Node
}

func (n *Apply) Kind() Kind    { return KindApply }
func (n *Apply) Pos() Position { return n.At }

// Access is member access. Only the module-self form `.name` can be
// expressed: Access has no field naming another module.
type Access struct {
	At    Position
	Right *Ident
}

func (n *Access) Kind() Kind    { return KindAccess }
func (n *Access) Pos() Position { return n.At }

// Tuple is a fixed-arity grouping: `(a, b, c)`.
type Tuple struct {
	At      Position
	Members []Node
}

func (n *Tuple) Kind() Kind    { return KindTuple }
func (n *Tuple) Pos() Position { return n.At }

// List is the empty list literal `[]`. Non-empty list literals are
// represented as chains of Cons nodes.
type List struct {
	At Position
}

func (n *List) Kind() Kind    { return KindList }
func (n *List) Pos() Position { return n.At }

// Cons is a list cell: `head :: tail`. Tail is nil at the end of a
// literal list (the generator then emits a fresh empty list).
type Cons struct {
	At         Position
	Head, Tail Node
}

func (n *Cons) Kind() Kind    { return KindCons }
func (n *Cons) Pos() Position { return n.At }

// Ident is a bare identifier, used both as an expression and, inside
// patterns, as a binding site.
type Ident struct {
	At   Position
	Name string
}

func (n *Ident) Kind() Kind    { return KindIdent }
func (n *Ident) Pos() Position { return n.At }

// Number is an integer literal. Lexeme is the original source text,
// used as the constant-interning key.
type Number struct {
	At     Position
	Lexeme string
	Value  int64
}

func (n *Number) Kind() Kind    { return KindNumber }
func (n *Number) Pos() Position { return n.At }

// Atom is an interned symbolic literal, e.g. `:ok`.
type Atom struct {
	At     Position
	Lexeme string
}

func (n *Atom) Kind() Kind    { return KindAtom }
func (n *Atom) Pos() Position { return n.At }

// Add is `lhs + rhs`.
type Add struct {
	At          Position
	Left, Right Node
}

func (n *Add) Kind() Kind    { return KindAdd }
func (n *Add) Pos() Position { return n.At }

// Sub is `lhs - rhs`.
type Sub struct {
	At          Position
	Left, Right Node
}

func (n *Sub) Kind() Kind    { return KindSub }
func (n *Sub) Pos() Position { return n.At }

// Gt is `lhs > rhs`.
type Gt struct {
	At          Position
	Left, Right Node
}

func (n *Gt) Kind() Kind    { return KindGt }
func (n *Gt) Pos() Position { return n.At }

// Lt is `lhs < rhs`, lowered by reusing the GT opcode with swapped
// operands (see compiler.lowerComparison).
type Lt struct {
	At          Position
	Left, Right Node
}

func (n *Lt) Kind() Kind    { return KindLt }
func (n *Lt) Pos() Position { return n.At }

// Range wraps an identifier in a pattern position to mark it as a
// quantified (Q_RANGE) binding rather than a plain one.
type Range struct {
	At      Position
	Operand Node // always an Ident in valid input
}

func (n *Range) Kind() Kind    { return KindRange }
func (n *Range) Pos() Position { return n.At }

// String is a string literal. Not supported as a constant or pattern by
// this generator (spec Non-goals); kept so the parser's full grammar
// round-trips and the generator can report NotYetImplemented precisely.
type String struct {
	At    Position
	Value string
}

func (n *String) Kind() Kind    { return KindString }
func (n *String) Pos() Position { return n.At }
